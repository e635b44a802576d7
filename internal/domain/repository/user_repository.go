package repository

import (
	"context"

	"b2bmarket/internal/domain/entity"
)

type UserRepository interface {
	GetByUserID(ctx context.Context, userID string) (*entity.UserProfile, error)
	// GetByProfileID returns one account linked to the shop or supplier
	// profile.
	GetByProfileID(ctx context.Context, role entity.Role, profileID string) (*entity.UserProfile, error)
}
