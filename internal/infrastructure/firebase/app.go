package firebase

import (
	"context"
	"os"

	"cloud.google.com/go/firestore"
	fbapp "firebase.google.com/go/v4"
	"github.com/pkg/errors"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"b2bmarket/pkg/config"
	"b2bmarket/pkg/logger"
)

// ClientOption picks credentials: inline JSON first (production), then a
// service account file, then application default credentials.
func ClientOption(cfg *config.Config) (option.ClientOption, error) {
	if cfg.FirebaseServiceAccountJSON != "" {
		logger.Info("Using Firebase service account from environment variable")
		return option.WithCredentialsJSON([]byte(cfg.FirebaseServiceAccountJSON)), nil
	}

	if cfg.FirebaseServiceAccountPath != "" {
		if _, err := os.Stat(cfg.FirebaseServiceAccountPath); err != nil {
			return nil, errors.Wrapf(err, "service account file %s", cfg.FirebaseServiceAccountPath)
		}
		logger.Info("Using Firebase service account from file: %s", cfg.FirebaseServiceAccountPath)
		return option.WithCredentialsFile(cfg.FirebaseServiceAccountPath), nil
	}

	logger.Info("Using application default credentials for Firebase")
	return nil, nil
}

func options(opt option.ClientOption) []option.ClientOption {
	if opt == nil {
		return nil
	}
	return []option.ClientOption{opt}
}

func NewAuthClient(ctx context.Context, cfg *config.Config, opt option.ClientOption) (*FirebaseAuthClient, error) {
	app, err := fbapp.NewApp(ctx, &fbapp.Config{ProjectID: cfg.FirebaseProject}, options(opt)...)
	if err != nil {
		return nil, errors.Wrap(err, "initialize firebase app")
	}

	client, err := app.Auth(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "initialize firebase auth")
	}
	return NewFirebaseAuthClient(client), nil
}

func NewFirestoreClient(ctx context.Context, cfg *config.Config, opt option.ClientOption) (*firestore.Client, error) {
	client, err := firestore.NewClient(ctx, cfg.FirebaseProject, options(opt)...)
	if err != nil {
		return nil, errors.Wrap(err, "create firestore client")
	}
	return client, nil
}

// FirestorePinger reports whether Firestore answers reads.
type FirestorePinger struct {
	Client *firestore.Client
}

func (p FirestorePinger) Ping(ctx context.Context) error {
	_, err := p.Client.Collection("_health").Doc("ping").Get(ctx)
	if err != nil && status.Code(err) != codes.NotFound {
		return err
	}
	return nil
}
