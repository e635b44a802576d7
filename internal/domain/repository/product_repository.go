package repository

import (
	"context"

	"b2bmarket/internal/domain/entity"
)

// ProductRepository is a read-only view of the supplier catalog.
type ProductRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Product, error)
}
