package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	pkgerrors "github.com/pkg/errors"

	"b2bmarket/internal/domain/entity"
	"b2bmarket/internal/domain/repository"
	"b2bmarket/pkg/errors"
)

// Numeric columns travel as text in both directions so no precision is
// lost between decimal.Decimal and NUMERIC.

const negotiationColumns = `
	id::text, shop_id, supplier_id, product_id, status, message_count,
	last_message_at, last_message_preview, last_proposed_price::text,
	agreed_price::text, closed_by, closed_at, created_at, updated_at`

const messageColumns = `
	id::text, negotiation_id::text, sequence, sender_id, sender_role, body,
	proposed_price::text, read_at, created_at`

type postgresNegotiationRepository struct {
	db *pgxpool.Pool
}

func NewPostgresNegotiationRepository(db *pgxpool.Pool) repository.NegotiationRepository {
	return &postgresNegotiationRepository{
		db: db,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

// uuidParam normalises an id bound against a UUID column. A string that is
// not a UUID names no row, so callers answer NOT_FOUND without a query.
func uuidParam(id string) (string, bool) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", false
	}
	return parsed.String(), true
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	return pkgerrors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == constraint
}

func scanNegotiation(row rowScanner) (*entity.Negotiation, error) {
	var doc negotiationDoc
	err := row.Scan(
		&doc.ID, &doc.ShopID, &doc.SupplierID, &doc.ProductID, &doc.Status, &doc.MessageCount,
		&doc.LastMessageAt, &doc.LastMessagePreview, &doc.LastProposedPrice,
		&doc.AgreedPrice, &doc.ClosedBy, &doc.ClosedAt, &doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return doc.toEntity()
}

func scanMessage(row rowScanner) (*entity.NegotiationMessage, error) {
	var doc messageDoc
	err := row.Scan(
		&doc.ID, &doc.NegotiationID, &doc.Sequence, &doc.SenderID, &doc.SenderRole, &doc.Body,
		&doc.ProposedPrice, &doc.ReadAt, &doc.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return doc.toEntity()
}

func insertMessage(ctx context.Context, tx pgx.Tx, m *entity.NegotiationMessage) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO negotiation_messages
			(id, negotiation_id, sequence, sender_id, sender_role, body, proposed_price, read_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7::numeric, $8, $9)
	`, m.ID, m.NegotiationID, m.Sequence, m.SenderID, string(m.SenderRole), m.Body,
		priceString(m.ProposedPrice), m.ReadAt, m.CreatedAt)
	return err
}

func (r *postgresNegotiationRepository) Create(ctx context.Context, negotiation *entity.Negotiation, first *entity.NegotiationMessage) error {
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		doc := toNegotiationDoc(negotiation)
		_, err := tx.Exec(ctx, `
			INSERT INTO negotiations
				(id, shop_id, supplier_id, product_id, status, message_count, last_message_at,
				 last_message_preview, last_proposed_price, agreed_price, closed_by, closed_at,
				 created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::numeric, $10::numeric, $11, $12, $13, $14)
		`, doc.ID, doc.ShopID, doc.SupplierID, doc.ProductID, doc.Status, doc.MessageCount, doc.LastMessageAt,
			doc.LastMessagePreview, doc.LastProposedPrice, doc.AgreedPrice, doc.ClosedBy, doc.ClosedAt,
			doc.CreatedAt, doc.UpdatedAt)
		if err != nil {
			return err
		}
		if first != nil {
			return insertMessage(ctx, tx, first)
		}
		return nil
	})
	if err != nil {
		if isUniqueViolation(err, "negotiations_pkey") {
			return errors.Conflict("Negotiation already exists")
		}
		return errors.Internal("Failed to create negotiation", pkgerrors.Wrapf(err, "create negotiation %s", negotiation.ID))
	}
	return nil
}

func (r *postgresNegotiationRepository) GetByID(ctx context.Context, id string) (*entity.Negotiation, error) {
	key, ok := uuidParam(id)
	if !ok {
		return nil, errors.NotFound("Negotiation", nil)
	}

	n, err := scanNegotiation(r.db.QueryRow(ctx, `SELECT `+negotiationColumns+` FROM negotiations WHERE id = $1::uuid`, key))
	if err != nil {
		if pkgerrors.Is(err, pgx.ErrNoRows) {
			return nil, errors.NotFound("Negotiation", err)
		}
		return nil, errors.Internal("Failed to get negotiation", pkgerrors.Wrapf(err, "get negotiation %s", id))
	}
	return n, nil
}

func participantColumn(role entity.Role) string {
	switch role {
	case entity.RoleShop:
		return "shop_id"
	case entity.RoleSupplier:
		return "supplier_id"
	case entity.RoleAdmin:
	}
	return ""
}

func (r *postgresNegotiationRepository) ListByParticipant(ctx context.Context, filter repository.NegotiationFilter) ([]*entity.Negotiation, int64, error) {
	column := participantColumn(filter.Role)
	if column == "" {
		return nil, 0, errors.Forbidden("Listing is only available to shops and suppliers", nil)
	}

	where := fmt.Sprintf("%s = $1 AND ($2 = '' OR status = $2)", column)

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM negotiations WHERE `+where, filter.ProfileID, string(filter.Status)).Scan(&total); err != nil {
		return nil, 0, errors.Internal("Failed to count negotiations", pkgerrors.Wrap(err, "count negotiations"))
	}

	rows, err := r.db.Query(ctx, `
		SELECT `+negotiationColumns+`
		FROM negotiations
		WHERE `+where+`
		ORDER BY updated_at DESC, id
		LIMIT $3 OFFSET $4
	`, filter.ProfileID, string(filter.Status), filter.Limit, filter.Offset)
	if err != nil {
		return nil, 0, errors.Internal("Failed to list negotiations", pkgerrors.Wrap(err, "list negotiations"))
	}
	defer rows.Close()

	negotiations := []*entity.Negotiation{}
	for rows.Next() {
		n, err := scanNegotiation(rows)
		if err != nil {
			return nil, 0, errors.Internal("Failed to parse negotiation data", err)
		}
		negotiations = append(negotiations, n)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.Internal("Failed to list negotiations", err)
	}

	return negotiations, total, nil
}

// Mutate holds a row lock on the negotiation for the whole callback, so
// concurrent writers queue and the second one sees the first's result.
func (r *postgresNegotiationRepository) Mutate(ctx context.Context, id string, fn repository.NegotiationMutation) (*entity.Negotiation, *entity.NegotiationMessage, error) {
	var (
		result  *entity.Negotiation
		message *entity.NegotiationMessage
	)

	key, ok := uuidParam(id)
	if !ok {
		return nil, nil, errors.NotFound("Negotiation", nil)
	}

	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		n, err := scanNegotiation(tx.QueryRow(ctx, `SELECT `+negotiationColumns+` FROM negotiations WHERE id = $1::uuid FOR UPDATE`, key))
		if err != nil {
			if pkgerrors.Is(err, pgx.ErrNoRows) {
				return errors.NotFound("Negotiation", err)
			}
			return err
		}

		msg, err := fn(n)
		if err != nil {
			return err
		}

		doc := toNegotiationDoc(n)
		_, err = tx.Exec(ctx, `
			UPDATE negotiations SET
				status = $2, message_count = $3, last_message_at = $4, last_message_preview = $5,
				last_proposed_price = $6::numeric, agreed_price = $7::numeric, closed_by = $8,
				closed_at = $9, updated_at = $10
			WHERE id = $1::uuid
		`, key, doc.Status, doc.MessageCount, doc.LastMessageAt, doc.LastMessagePreview,
			doc.LastProposedPrice, doc.AgreedPrice, doc.ClosedBy, doc.ClosedAt, doc.UpdatedAt)
		if err != nil {
			return err
		}

		if msg != nil {
			if err := insertMessage(ctx, tx, msg); err != nil {
				return err
			}
		}

		result, message = n, msg
		return nil
	})
	if err != nil {
		if _, ok := errors.As(err); ok {
			return nil, nil, err
		}
		return nil, nil, errors.Internal("Failed to update negotiation", pkgerrors.Wrapf(err, "mutate negotiation %s", id))
	}

	return result, message, nil
}

func (r *postgresNegotiationRepository) ListMessages(ctx context.Context, negotiationID string, limit, offset int, newestFirst bool) ([]*entity.NegotiationMessage, int64, error) {
	key, ok := uuidParam(negotiationID)
	if !ok {
		return []*entity.NegotiationMessage{}, 0, nil
	}

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM negotiation_messages WHERE negotiation_id = $1::uuid`, key).Scan(&total); err != nil {
		return nil, 0, errors.Internal("Failed to count messages", pkgerrors.Wrapf(err, "count messages of %s", negotiationID))
	}

	order := "ASC"
	if newestFirst {
		order = "DESC"
	}

	rows, err := r.db.Query(ctx, `
		SELECT `+messageColumns+`
		FROM negotiation_messages
		WHERE negotiation_id = $1::uuid
		ORDER BY sequence `+order+`
		LIMIT $2 OFFSET $3
	`, key, limit, offset)
	if err != nil {
		return nil, 0, errors.Internal("Failed to list messages", pkgerrors.Wrapf(err, "list messages of %s", negotiationID))
	}
	defer rows.Close()

	messages := []*entity.NegotiationMessage{}
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, 0, errors.Internal("Failed to parse message data", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.Internal("Failed to list messages", err)
	}

	return messages, total, nil
}

func (r *postgresNegotiationRepository) MarkMessagesRead(ctx context.Context, negotiationID string, readerRole entity.Role, at time.Time) (int, error) {
	key, ok := uuidParam(negotiationID)
	if !ok {
		return 0, nil
	}

	tag, err := r.db.Exec(ctx, `
		UPDATE negotiation_messages
		SET read_at = $3
		WHERE negotiation_id = $1::uuid AND sender_role <> $2 AND read_at IS NULL
	`, key, string(readerRole), at)
	if err != nil {
		return 0, errors.Internal("Failed to mark messages read", pkgerrors.Wrapf(err, "mark read on negotiation %s", negotiationID))
	}
	return int(tag.RowsAffected()), nil
}
