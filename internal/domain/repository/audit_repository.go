package repository

import (
	"context"

	"b2bmarket/internal/domain/entity"
)

type AuditRepository interface {
	Append(ctx context.Context, entry *entity.AuditEntry) error
	ListByEntity(ctx context.Context, entityType, entityID string) ([]*entity.AuditEntry, error)
}
