package repository

import (
	"context"

	"cloud.google.com/go/firestore"
	pkgerrors "github.com/pkg/errors"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"b2bmarket/internal/domain/entity"
	"b2bmarket/internal/domain/repository"
	"b2bmarket/pkg/errors"
	"b2bmarket/pkg/logger"
)

type firestorePurchaseIntentRepository struct {
	client *firestore.Client
}

func NewFirestorePurchaseIntentRepository(client *firestore.Client) repository.PurchaseIntentRepository {
	return &firestorePurchaseIntentRepository{
		client: client,
	}
}

func (r *firestorePurchaseIntentRepository) doc(id string) *firestore.DocumentRef {
	return r.client.Collection(purchaseIntentsCollection).Doc(id)
}

// Create claims the intent number through a marker document written in
// the same transaction, which is how uniqueness is enforced here.
func (r *firestorePurchaseIntentRepository) Create(ctx context.Context, intent *entity.PurchaseIntent) error {
	numberRef := r.client.Collection(intentNumbersCollection).Doc(intent.IntentNumber)

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(numberRef)
		if err != nil && status.Code(err) != codes.NotFound {
			return err
		}
		if snap != nil && snap.Exists() {
			return repository.ErrDuplicateIntentNumber
		}

		if err := tx.Create(numberRef, map[string]interface{}{"intentId": intent.ID}); err != nil {
			return err
		}
		return tx.Create(r.doc(intent.ID), toPurchaseIntentDoc(intent))
	})
	if err != nil {
		if pkgerrors.Is(err, repository.ErrDuplicateIntentNumber) || status.Code(err) == codes.AlreadyExists {
			return repository.ErrDuplicateIntentNumber
		}
		return errors.Internal("Failed to create purchase intent", pkgerrors.Wrapf(err, "create purchase intent %s", intent.ID))
	}
	return nil
}

func decodePurchaseIntent(snap *firestore.DocumentSnapshot) (*entity.PurchaseIntent, error) {
	var doc purchaseIntentDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, errors.Internal("Failed to parse purchase intent data", err)
	}
	intent, err := doc.toEntity()
	if err != nil {
		return nil, errors.Internal("Failed to parse purchase intent data", err)
	}
	return intent, nil
}

func (r *firestorePurchaseIntentRepository) GetByID(ctx context.Context, id string) (*entity.PurchaseIntent, error) {
	snap, err := r.doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Purchase intent", err)
		}
		return nil, errors.Internal("Failed to get purchase intent", pkgerrors.Wrapf(err, "get purchase intent %s", id))
	}
	return decodePurchaseIntent(snap)
}

func (r *firestorePurchaseIntentRepository) GetByIntentNumber(ctx context.Context, number string) (*entity.PurchaseIntent, error) {
	iter := r.client.Collection(purchaseIntentsCollection).Where("intentNumber", "==", number).Limit(1).Documents(ctx)
	defer iter.Stop()

	snap, err := iter.Next()
	if err != nil {
		if err == iterator.Done {
			return nil, errors.NotFound("Purchase intent", nil)
		}
		return nil, errors.Internal("Failed to query purchase intent by number", err)
	}
	return decodePurchaseIntent(snap)
}

func (r *firestorePurchaseIntentRepository) ListByParticipant(ctx context.Context, filter repository.PurchaseIntentFilter) ([]*entity.PurchaseIntent, int64, error) {
	field := participantField(filter.Role)
	if field == "" {
		return nil, 0, errors.Forbidden("Listing is only available to shops and suppliers", nil)
	}

	query := r.client.Collection(purchaseIntentsCollection).Where(field, "==", filter.ProfileID)
	if filter.Status != "" {
		query = query.Where("status", "==", string(filter.Status))
	}

	total, err := countQuery(ctx, query)
	if err != nil {
		logger.Error("Firestore error while counting purchase intents for %s: %v", filter.ProfileID, err)
		return nil, 0, errors.Internal("Failed to count purchase intents", err)
	}

	query = query.OrderBy("updatedAt", firestore.Desc).Offset(filter.Offset)
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	intents := []*entity.PurchaseIntent{}
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, 0, errors.Internal("Failed to iterate purchase intents", err)
		}
		intent, err := decodePurchaseIntent(snap)
		if err != nil {
			return nil, 0, err
		}
		intents = append(intents, intent)
	}

	return intents, total, nil
}

func (r *firestorePurchaseIntentRepository) Mutate(ctx context.Context, id string, fn repository.PurchaseIntentMutation) (*entity.PurchaseIntent, error) {
	var result *entity.PurchaseIntent

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		ref := r.doc(id)
		snap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return errors.NotFound("Purchase intent", err)
			}
			return err
		}

		intent, err := decodePurchaseIntent(snap)
		if err != nil {
			return err
		}
		if err := fn(intent); err != nil {
			return err
		}
		if err := tx.Set(ref, toPurchaseIntentDoc(intent)); err != nil {
			return err
		}

		result = intent
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
