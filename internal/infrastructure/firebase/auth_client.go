package firebase

import (
	"context"

	"firebase.google.com/go/v4/auth"

	"b2bmarket/internal/domain/entity"
)

type FirebaseAuthClient struct {
	client *auth.Client
}

func NewFirebaseAuthClient(client *auth.Client) *FirebaseAuthClient {
	return &FirebaseAuthClient{
		client: client,
	}
}

// VerifyToken checks a Firebase ID token and returns its subject.
func (f *FirebaseAuthClient) VerifyToken(ctx context.Context, token string) (*entity.TokenClaims, error) {
	result, err := f.client.VerifyIDToken(ctx, token)
	if err != nil {
		return nil, err
	}

	verified, _ := result.Claims["email_verified"].(bool)
	return &entity.TokenClaims{
		UserID:        result.UID,
		EmailVerified: verified,
	}, nil
}
