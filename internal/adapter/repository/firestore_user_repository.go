package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	pkgerrors "github.com/pkg/errors"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"b2bmarket/internal/domain/entity"
	"b2bmarket/internal/domain/repository"
	"b2bmarket/pkg/errors"
)

type userProfileDoc struct {
	Email         string    `firestore:"email"`
	DisplayName   string    `firestore:"displayName"`
	Role          string    `firestore:"role"`
	ProfileID     string    `firestore:"profileId"`
	Status        string    `firestore:"status"`
	EmailVerified bool      `firestore:"emailVerified"`
	CreatedAt     time.Time `firestore:"createdAt"`
	UpdatedAt     time.Time `firestore:"updatedAt"`
}

type firestoreUserRepository struct {
	client *firestore.Client
}

func NewFirestoreUserRepository(client *firestore.Client) repository.UserRepository {
	return &firestoreUserRepository{
		client: client,
	}
}

func (d userProfileDoc) toEntity(userID string) *entity.UserProfile {
	return &entity.UserProfile{
		UserID:        userID,
		Email:         d.Email,
		DisplayName:   d.DisplayName,
		Role:          entity.Role(d.Role),
		ProfileID:     d.ProfileID,
		AccountStatus: entity.AccountStatus(d.Status),
		EmailVerified: d.EmailVerified,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

// GetByUserID loads the marketplace profile keyed by the auth provider's
// user id.
func (r *firestoreUserRepository) GetByUserID(ctx context.Context, userID string) (*entity.UserProfile, error) {
	snap, err := r.client.Collection(usersCollection).Doc(userID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("User", err)
		}
		return nil, errors.Internal("Failed to get user", pkgerrors.Wrapf(err, "get user %s", userID))
	}

	var doc userProfileDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, errors.Internal("Failed to parse user data", err)
	}
	return doc.toEntity(userID), nil
}

func (r *firestoreUserRepository) GetByProfileID(ctx context.Context, role entity.Role, profileID string) (*entity.UserProfile, error) {
	iter := r.client.Collection(usersCollection).
		Where("role", "==", string(role)).
		Where("profileId", "==", profileID).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	snap, err := iter.Next()
	if err != nil {
		if err == iterator.Done {
			return nil, errors.NotFound("Profile", nil)
		}
		return nil, errors.Internal("Failed to query profile", pkgerrors.Wrapf(err, "get %s profile %s", role, profileID))
	}

	var doc userProfileDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, errors.Internal("Failed to parse user data", err)
	}
	return doc.toEntity(snap.Ref.ID), nil
}
