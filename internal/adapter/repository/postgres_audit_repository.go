package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	pkgerrors "github.com/pkg/errors"

	"b2bmarket/internal/domain/entity"
	"b2bmarket/internal/domain/repository"
	"b2bmarket/pkg/errors"
)

type postgresAuditRepository struct {
	db *pgxpool.Pool
}

func NewPostgresAuditRepository(db *pgxpool.Pool) repository.AuditRepository {
	return &postgresAuditRepository{
		db: db,
	}
}

func (r *postgresAuditRepository) Append(ctx context.Context, entry *entity.AuditEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.Exec(ctx, `
		INSERT INTO audit_log (id, entity_type, entity_id, event, from_status, to_status, actor_id, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, entry.ID, entry.EntityType, entry.EntityID, entry.Event, entry.FromStatus, entry.ToStatus,
		entry.ActorID, entry.Notes, entry.CreatedAt)
	if err != nil {
		return errors.Internal("Failed to write audit entry", pkgerrors.Wrapf(err, "audit %s %s", entry.EntityType, entry.EntityID))
	}
	return nil
}

func (r *postgresAuditRepository) ListByEntity(ctx context.Context, entityType, entityID string) ([]*entity.AuditEntry, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id::text, entity_type, entity_id, event, from_status, to_status, actor_id, notes, created_at
		FROM audit_log
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY created_at ASC
	`, entityType, entityID)
	if err != nil {
		return nil, errors.Internal("Failed to list audit entries", pkgerrors.Wrapf(err, "list audit of %s %s", entityType, entityID))
	}
	defer rows.Close()

	entries := []*entity.AuditEntry{}
	for rows.Next() {
		var e entity.AuditEntry
		if err := rows.Scan(&e.ID, &e.EntityType, &e.EntityID, &e.Event, &e.FromStatus, &e.ToStatus, &e.ActorID, &e.Notes, &e.CreatedAt); err != nil {
			return nil, errors.Internal("Failed to parse audit entry", err)
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Internal("Failed to list audit entries", err)
	}
	return entries, nil
}
