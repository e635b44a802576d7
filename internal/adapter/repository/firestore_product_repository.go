package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	pkgerrors "github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"b2bmarket/internal/domain/entity"
	"b2bmarket/internal/domain/repository"
	"b2bmarket/pkg/errors"
)

// productDoc is the catalog's product document. The catalog is written by
// another service; this repository only reads it.
type productDoc struct {
	ID         string    `firestore:"id"`
	SupplierID string    `firestore:"supplierId"`
	Name       string    `firestore:"name"`
	BasePrice  string    `firestore:"basePrice"`
	IsActive   bool      `firestore:"isActive"`
	UpdatedAt  time.Time `firestore:"updatedAt"`
}

type firestoreProductRepository struct {
	client *firestore.Client
}

func NewFirestoreProductRepository(client *firestore.Client) repository.ProductRepository {
	return &firestoreProductRepository{
		client: client,
	}
}

func (r *firestoreProductRepository) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	snap, err := r.client.Collection(productsCollection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Product", err)
		}
		return nil, errors.Internal("Failed to get product", pkgerrors.Wrapf(err, "get product %s", id))
	}

	var doc productDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, errors.Internal("Failed to parse product data", err)
	}

	price, err := decimal.NewFromString(doc.BasePrice)
	if err != nil {
		return nil, errors.Internal("Failed to parse product data", pkgerrors.Wrapf(err, "base price of product %s", id))
	}

	return &entity.Product{
		ID:         snap.Ref.ID,
		SupplierID: doc.SupplierID,
		Name:       doc.Name,
		BasePrice:  price,
		IsActive:   doc.IsActive,
		UpdatedAt:  doc.UpdatedAt,
	}, nil
}
