package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"
	pkgerrors "github.com/pkg/errors"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"b2bmarket/internal/domain/entity"
	"b2bmarket/internal/domain/repository"
	"b2bmarket/pkg/errors"
	"b2bmarket/pkg/logger"
)

type firestoreNegotiationRepository struct {
	client *firestore.Client
}

func NewFirestoreNegotiationRepository(client *firestore.Client) repository.NegotiationRepository {
	return &firestoreNegotiationRepository{
		client: client,
	}
}

func (r *firestoreNegotiationRepository) doc(id string) *firestore.DocumentRef {
	return r.client.Collection(negotiationsCollection).Doc(id)
}

func (r *firestoreNegotiationRepository) messages(negotiationID string) *firestore.CollectionRef {
	return r.doc(negotiationID).Collection(messagesCollection)
}

func (r *firestoreNegotiationRepository) Create(ctx context.Context, negotiation *entity.Negotiation, first *entity.NegotiationMessage) error {
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if err := tx.Create(r.doc(negotiation.ID), toNegotiationDoc(negotiation)); err != nil {
			return err
		}
		if first != nil {
			return tx.Create(r.messages(negotiation.ID).Doc(first.ID), toMessageDoc(first))
		}
		return nil
	})
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return errors.Conflict("Negotiation already exists")
		}
		return errors.Internal("Failed to create negotiation", pkgerrors.Wrapf(err, "create negotiation %s", negotiation.ID))
	}
	return nil
}

func (r *firestoreNegotiationRepository) GetByID(ctx context.Context, id string) (*entity.Negotiation, error) {
	snap, err := r.doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Negotiation", err)
		}
		return nil, errors.Internal("Failed to get negotiation", pkgerrors.Wrapf(err, "get negotiation %s", id))
	}
	return decodeNegotiation(snap)
}

func decodeNegotiation(snap *firestore.DocumentSnapshot) (*entity.Negotiation, error) {
	var doc negotiationDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, errors.Internal("Failed to parse negotiation data", err)
	}
	n, err := doc.toEntity()
	if err != nil {
		return nil, errors.Internal("Failed to parse negotiation data", err)
	}
	return n, nil
}

func countQuery(ctx context.Context, query firestore.Query) (int64, error) {
	results, err := query.NewAggregationQuery().WithCount("total").Get(ctx)
	if err != nil {
		return 0, err
	}
	value, ok := results["total"].(*firestorepb.Value)
	if !ok {
		return 0, pkgerrors.New("count aggregation returned no value")
	}
	return value.GetIntegerValue(), nil
}

func participantField(role entity.Role) string {
	switch role {
	case entity.RoleShop:
		return "shopId"
	case entity.RoleSupplier:
		return "supplierId"
	case entity.RoleAdmin:
	}
	return ""
}

func (r *firestoreNegotiationRepository) ListByParticipant(ctx context.Context, filter repository.NegotiationFilter) ([]*entity.Negotiation, int64, error) {
	field := participantField(filter.Role)
	if field == "" {
		return nil, 0, errors.Forbidden("Listing is only available to shops and suppliers", nil)
	}

	query := r.client.Collection(negotiationsCollection).Where(field, "==", filter.ProfileID)
	if filter.Status != "" {
		query = query.Where("status", "==", string(filter.Status))
	}

	total, err := countQuery(ctx, query)
	if err != nil {
		logger.Error("Firestore error while counting negotiations for %s: %v", filter.ProfileID, err)
		return nil, 0, errors.Internal("Failed to count negotiations", err)
	}

	query = query.OrderBy("updatedAt", firestore.Desc).Offset(filter.Offset)
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	negotiations := []*entity.Negotiation{}
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, 0, errors.Internal("Failed to iterate negotiations", err)
		}
		n, err := decodeNegotiation(snap)
		if err != nil {
			return nil, 0, err
		}
		negotiations = append(negotiations, n)
	}

	return negotiations, total, nil
}

// Mutate runs fn inside a Firestore transaction. The client retries fn
// on contention, so the loser always sees the winner's committed state.
func (r *firestoreNegotiationRepository) Mutate(ctx context.Context, id string, fn repository.NegotiationMutation) (*entity.Negotiation, *entity.NegotiationMessage, error) {
	var (
		result  *entity.Negotiation
		message *entity.NegotiationMessage
	)

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		ref := r.doc(id)
		snap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return errors.NotFound("Negotiation", err)
			}
			return err
		}

		n, err := decodeNegotiation(snap)
		if err != nil {
			return err
		}

		msg, err := fn(n)
		if err != nil {
			return err
		}

		if err := tx.Set(ref, toNegotiationDoc(n)); err != nil {
			return err
		}
		if msg != nil {
			if err := tx.Create(r.messages(id).Doc(msg.ID), toMessageDoc(msg)); err != nil {
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

func (r *firestoreNegotiationRepository) ListMessages(ctx context.Context, negotiationID string, limit, offset int, newestFirst bool) ([]*entity.NegotiationMessage, int64, error) {
	direction := firestore.Asc
	if newestFirst {
		direction = firestore.Desc
	}

	base := r.messages(negotiationID).Query
	total, err := countQuery(ctx, base)
	if err != nil {
		logger.Error("Firestore error while counting messages for negotiation %s: %v", negotiationID, err)
		return nil, 0, errors.Internal("Failed to count messages", err)
	}

	query := base.OrderBy("sequence", direction).Offset(offset)
	if limit > 0 {
		query = query.Limit(limit)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	messages := []*entity.NegotiationMessage{}
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, 0, errors.Internal("Failed to iterate messages", err)
		}

		var doc messageDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, 0, errors.Internal("Failed to parse message data", err)
		}
		msg, err := doc.toEntity()
		if err != nil {
			return nil, 0, errors.Internal("Failed to parse message data", err)
		}
		messages = append(messages, msg)
	}

	return messages, total, nil
}

func (r *firestoreNegotiationRepository) MarkMessagesRead(ctx context.Context, negotiationID string, readerRole entity.Role, at time.Time) (int, error) {
	var marked int

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		marked = 0

		// Sender role is filtered in memory to avoid a composite index.
		unread, err := tx.Documents(r.messages(negotiationID).Where("readAt", "==", nil)).GetAll()
		if err != nil {
			return err
		}

		for _, snap := range unread {
			senderRole, err := snap.DataAt("senderRole")
			if err != nil {
				return err
			}
			if senderRole == string(readerRole) {
				continue
			}
			if err := tx.Update(snap.Ref, []firestore.Update{{Path: "readAt", Value: at}}); err != nil {
				return err
			}
			marked++
		}
		return nil
	})
	if err != nil {
		return 0, errors.Internal("Failed to mark messages read", pkgerrors.Wrapf(err, "mark read on negotiation %s", negotiationID))
	}

	return marked, nil
}
