package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pkgerrors "github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"b2bmarket/internal/domain/entity"
	"b2bmarket/internal/domain/repository"
	"b2bmarket/pkg/errors"
)

const purchaseIntentColumns = `
	id::text, intent_number, shop_id, supplier_id, negotiation_id, status, line_items,
	total_amount::text, notes, cancellation_reason, cancelled_by, created_at, updated_at,
	submitted_at, accepted_at, cancelled_at`

const uniqueViolation = "23505"

type postgresPurchaseIntentRepository struct {
	db *pgxpool.Pool
}

func NewPostgresPurchaseIntentRepository(db *pgxpool.Pool) repository.PurchaseIntentRepository {
	return &postgresPurchaseIntentRepository{
		db: db,
	}
}

func scanPurchaseIntent(row rowScanner) (*entity.PurchaseIntent, error) {
	var (
		p         entity.PurchaseIntent
		status    string
		lineItems []byte
		total     string
	)
	err := row.Scan(
		&p.ID, &p.IntentNumber, &p.ShopID, &p.SupplierID, &p.NegotiationID, &status, &lineItems,
		&total, &p.Notes, &p.CancellationReason, &p.CancelledBy, &p.CreatedAt, &p.UpdatedAt,
		&p.SubmittedAt, &p.AcceptedAt, &p.CancelledAt,
	)
	if err != nil {
		return nil, err
	}

	p.Status = entity.PurchaseIntentStatus(status)
	if err := json.Unmarshal(lineItems, &p.LineItems); err != nil {
		return nil, pkgerrors.Wrapf(err, "decode line items of %s", p.ID)
	}
	if p.TotalAmount, err = decimal.NewFromString(total); err != nil {
		return nil, pkgerrors.Wrapf(err, "parse total amount of %s", p.ID)
	}
	return &p, nil
}

func (r *postgresPurchaseIntentRepository) Create(ctx context.Context, intent *entity.PurchaseIntent) error {
	lineItems, err := json.Marshal(intent.LineItems)
	if err != nil {
		return errors.Internal("Failed to encode line items", err)
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO purchase_intents
			(id, intent_number, shop_id, supplier_id, negotiation_id, status, line_items, total_amount,
			 notes, cancellation_reason, cancelled_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8::numeric, $9, $10, $11, $12, $13)
	`, intent.ID, intent.IntentNumber, intent.ShopID, intent.SupplierID, intent.NegotiationID,
		string(intent.Status), string(lineItems), intent.TotalAmount.StringFixed(entity.PriceScale),
		intent.Notes, intent.CancellationReason, intent.CancelledBy, intent.CreatedAt, intent.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, "purchase_intents_intent_number_key") {
			return repository.ErrDuplicateIntentNumber
		}
		if isUniqueViolation(err, "purchase_intents_pkey") {
			return errors.Conflict("Purchase intent already exists")
		}
		return errors.Internal("Failed to create purchase intent", pkgerrors.Wrapf(err, "create purchase intent %s", intent.ID))
	}
	return nil
}

func (r *postgresPurchaseIntentRepository) getOne(ctx context.Context, where string, arg string) (*entity.PurchaseIntent, error) {
	p, err := scanPurchaseIntent(r.db.QueryRow(ctx, `SELECT `+purchaseIntentColumns+` FROM purchase_intents WHERE `+where, arg))
	if err != nil {
		if pkgerrors.Is(err, pgx.ErrNoRows) {
			return nil, errors.NotFound("Purchase intent", err)
		}
		return nil, errors.Internal("Failed to get purchase intent", pkgerrors.Wrapf(err, "get purchase intent %s", arg))
	}
	return p, nil
}

func (r *postgresPurchaseIntentRepository) GetByID(ctx context.Context, id string) (*entity.PurchaseIntent, error) {
	key, ok := uuidParam(id)
	if !ok {
		return nil, errors.NotFound("Purchase intent", nil)
	}
	return r.getOne(ctx, "id = $1::uuid", key)
}

func (r *postgresPurchaseIntentRepository) GetByIntentNumber(ctx context.Context, number string) (*entity.PurchaseIntent, error) {
	return r.getOne(ctx, "intent_number = $1", number)
}

func (r *postgresPurchaseIntentRepository) ListByParticipant(ctx context.Context, filter repository.PurchaseIntentFilter) ([]*entity.PurchaseIntent, int64, error) {
	column := participantColumn(filter.Role)
	if column == "" {
		return nil, 0, errors.Forbidden("Listing is only available to shops and suppliers", nil)
	}

	where := fmt.Sprintf("%s = $1 AND ($2 = '' OR status = $2)", column)

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM purchase_intents WHERE `+where, filter.ProfileID, string(filter.Status)).Scan(&total); err != nil {
		return nil, 0, errors.Internal("Failed to count purchase intents", pkgerrors.Wrap(err, "count purchase intents"))
	}

	rows, err := r.db.Query(ctx, `
		SELECT `+purchaseIntentColumns+`
		FROM purchase_intents
		WHERE `+where+`
		ORDER BY updated_at DESC, id
		LIMIT $3 OFFSET $4
	`, filter.ProfileID, string(filter.Status), filter.Limit, filter.Offset)
	if err != nil {
		return nil, 0, errors.Internal("Failed to list purchase intents", pkgerrors.Wrap(err, "list purchase intents"))
	}
	defer rows.Close()

	intents := []*entity.PurchaseIntent{}
	for rows.Next() {
		p, err := scanPurchaseIntent(rows)
		if err != nil {
			return nil, 0, errors.Internal("Failed to parse purchase intent data", err)
		}
		intents = append(intents, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.Internal("Failed to list purchase intents", err)
	}

	return intents, total, nil
}

func (r *postgresPurchaseIntentRepository) Mutate(ctx context.Context, id string, fn repository.PurchaseIntentMutation) (*entity.PurchaseIntent, error) {
	var result *entity.PurchaseIntent

	key, ok := uuidParam(id)
	if !ok {
		return nil, errors.NotFound("Purchase intent", nil)
	}

	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		p, err := scanPurchaseIntent(tx.QueryRow(ctx, `SELECT `+purchaseIntentColumns+` FROM purchase_intents WHERE id = $1::uuid FOR UPDATE`, key))
		if err != nil {
			if pkgerrors.Is(err, pgx.ErrNoRows) {
				return errors.NotFound("Purchase intent", err)
			}
			return err
		}

		if err := fn(p); err != nil {
			return err
		}

		// Line items are immutable after creation and are not rewritten.
		_, err = tx.Exec(ctx, `
			UPDATE purchase_intents SET
				status = $2, cancellation_reason = $3, cancelled_by = $4, updated_at = $5,
				submitted_at = $6, accepted_at = $7, cancelled_at = $8
			WHERE id = $1::uuid
		`, key, string(p.Status), p.CancellationReason, p.CancelledBy, p.UpdatedAt,
			p.SubmittedAt, p.AcceptedAt, p.CancelledAt)
		if err != nil {
			return err
		}

		result = p
		return nil
	})
	if err != nil {
		if _, ok := errors.As(err); ok {
			return nil, err
		}
		return nil, errors.Internal("Failed to update purchase intent", pkgerrors.Wrapf(err, "mutate purchase intent %s", id))
	}

	return result, nil
}
