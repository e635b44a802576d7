package repository

import (
	"context"
	"errors"

	"b2bmarket/internal/domain/entity"
)

// ErrDuplicateIntentNumber is returned by Create when the intent number is
// already taken; the caller retries with a fresh number.
var ErrDuplicateIntentNumber = errors.New("intent number already in use")

type PurchaseIntentFilter struct {
	Role      entity.Role
	ProfileID string
	Status    entity.PurchaseIntentStatus
	Limit     int
	Offset    int
}

type PurchaseIntentMutation func(intent *entity.PurchaseIntent) error

type PurchaseIntentRepository interface {
	Create(ctx context.Context, intent *entity.PurchaseIntent) error
	GetByID(ctx context.Context, id string) (*entity.PurchaseIntent, error)
	GetByIntentNumber(ctx context.Context, number string) (*entity.PurchaseIntent, error)
	ListByParticipant(ctx context.Context, filter PurchaseIntentFilter) ([]*entity.PurchaseIntent, int64, error)
	Mutate(ctx context.Context, id string, fn PurchaseIntentMutation) (*entity.PurchaseIntent, error)
}
