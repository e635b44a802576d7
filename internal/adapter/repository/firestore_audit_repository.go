package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"
	"google.golang.org/api/iterator"

	"b2bmarket/internal/domain/entity"
	"b2bmarket/internal/domain/repository"
	"b2bmarket/pkg/errors"
)

type auditEntryDoc struct {
	ID         string    `firestore:"id"`
	EntityType string    `firestore:"entityType"`
	EntityID   string    `firestore:"entityId"`
	Event      string    `firestore:"event"`
	FromStatus string    `firestore:"fromStatus"`
	ToStatus   string    `firestore:"toStatus"`
	ActorID    string    `firestore:"actorId"`
	Notes      string    `firestore:"notes"`
	CreatedAt  time.Time `firestore:"createdAt"`
}

type firestoreAuditRepository struct {
	client *firestore.Client
}

func NewFirestoreAuditRepository(client *firestore.Client) repository.AuditRepository {
	return &firestoreAuditRepository{
		client: client,
	}
}

func (r *firestoreAuditRepository) Append(ctx context.Context, entry *entity.AuditEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := r.client.Collection(auditCollection).Doc(entry.ID).Set(ctx, auditEntryDoc(*entry))
	if err != nil {
		return errors.Internal("Failed to write audit entry", pkgerrors.Wrapf(err, "audit %s %s", entry.EntityType, entry.EntityID))
	}
	return nil
}

func (r *firestoreAuditRepository) ListByEntity(ctx context.Context, entityType, entityID string) ([]*entity.AuditEntry, error) {
	iter := r.client.Collection(auditCollection).
		Where("entityType", "==", entityType).
		Where("entityId", "==", entityID).
		OrderBy("createdAt", firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	entries := []*entity.AuditEntry{}
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.Internal("Failed to iterate audit entries", err)
		}

		var doc auditEntryDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, errors.Internal("Failed to parse audit entry", err)
		}
		entry := entity.AuditEntry(doc)
		entries = append(entries, &entry)
	}

	return entries, nil
}
