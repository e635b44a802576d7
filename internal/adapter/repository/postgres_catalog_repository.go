package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pkgerrors "github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"b2bmarket/internal/domain/entity"
	"b2bmarket/internal/domain/repository"
	"b2bmarket/pkg/errors"
)

type postgresProductRepository struct {
	db *pgxpool.Pool
}

func NewPostgresProductRepository(db *pgxpool.Pool) repository.ProductRepository {
	return &postgresProductRepository{
		db: db,
	}
}

func (r *postgresProductRepository) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	var (
		p     entity.Product
		price string
	)
	err := r.db.QueryRow(ctx, `
		SELECT id, supplier_id, name, base_price::text, is_active, updated_at
		FROM products
		WHERE id = $1
	`, id).Scan(&p.ID, &p.SupplierID, &p.Name, &price, &p.IsActive, &p.UpdatedAt)
	if err != nil {
		if pkgerrors.Is(err, pgx.ErrNoRows) {
			return nil, errors.NotFound("Product", err)
		}
		return nil, errors.Internal("Failed to get product", pkgerrors.Wrapf(err, "get product %s", id))
	}

	if p.BasePrice, err = decimal.NewFromString(price); err != nil {
		return nil, errors.Internal("Failed to parse product data", pkgerrors.Wrapf(err, "base price of product %s", id))
	}
	return &p, nil
}

type postgresUserRepository struct {
	db *pgxpool.Pool
}

func NewPostgresUserRepository(db *pgxpool.Pool) repository.UserRepository {
	return &postgresUserRepository{
		db: db,
	}
}

const userProfileColumns = `user_id, email, display_name, role, profile_id, account_status, email_verified, created_at, updated_at`

func scanUserProfile(row rowScanner) (*entity.UserProfile, error) {
	var (
		u             entity.UserProfile
		role, account string
	)
	if err := row.Scan(&u.UserID, &u.Email, &u.DisplayName, &role, &u.ProfileID, &account, &u.EmailVerified, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.Role = entity.Role(role)
	u.AccountStatus = entity.AccountStatus(account)
	return &u, nil
}

func (r *postgresUserRepository) GetByUserID(ctx context.Context, userID string) (*entity.UserProfile, error) {
	u, err := scanUserProfile(r.db.QueryRow(ctx, `SELECT `+userProfileColumns+` FROM user_profiles WHERE user_id = $1`, userID))
	if err != nil {
		if pkgerrors.Is(err, pgx.ErrNoRows) {
			return nil, errors.NotFound("User", err)
		}
		return nil, errors.Internal("Failed to get user", pkgerrors.Wrapf(err, "get user %s", userID))
	}
	return u, nil
}

func (r *postgresUserRepository) GetByProfileID(ctx context.Context, role entity.Role, profileID string) (*entity.UserProfile, error) {
	u, err := scanUserProfile(r.db.QueryRow(ctx, `
		SELECT `+userProfileColumns+`
		FROM user_profiles
		WHERE role = $1 AND profile_id = $2
		ORDER BY created_at
		LIMIT 1
	`, string(role), profileID))
	if err != nil {
		if pkgerrors.Is(err, pgx.ErrNoRows) {
			return nil, errors.NotFound("Profile", err)
		}
		return nil, errors.Internal("Failed to get profile", pkgerrors.Wrapf(err, "get %s profile %s", role, profileID))
	}
	return u, nil
}
