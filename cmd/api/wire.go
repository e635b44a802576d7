package main

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"google.golang.org/api/option"

	"b2bmarket/internal/adapter/api/handler"
	"b2bmarket/internal/adapter/api/middleware"
	"b2bmarket/internal/adapter/repository"
	domainrepo "b2bmarket/internal/domain/repository"
	"b2bmarket/internal/infrastructure/database"
	"b2bmarket/internal/infrastructure/firebase"
	"b2bmarket/internal/infrastructure/jwtauth"
	"b2bmarket/pkg/config"
)

type repositories struct {
	negotiations domainrepo.NegotiationRepository
	intents      domainrepo.PurchaseIntentRepository
	products     domainrepo.ProductRepository
	users        domainrepo.UserRepository
	audit        domainrepo.AuditRepository
	pinger       handler.Pinger
	close        func()
}

type poolPinger struct {
	pool *pgxpool.Pool
}

func (p poolPinger) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func firebaseOption(cfg *config.Config) (option.ClientOption, error) {
	if !cfg.UsesFirebase() {
		return nil, nil
	}
	return firebase.ClientOption(cfg)
}

func openRepositories(ctx context.Context, cfg *config.Config, opt option.ClientOption) (*repositories, error) {
	switch cfg.StorageDriver {
	case config.StoragePostgres:
		pool, err := database.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return &repositories{
			negotiations: repository.NewPostgresNegotiationRepository(pool),
			intents:      repository.NewPostgresPurchaseIntentRepository(pool),
			products:     repository.NewPostgresProductRepository(pool),
			users:        repository.NewPostgresUserRepository(pool),
			audit:        repository.NewPostgresAuditRepository(pool),
			pinger:       poolPinger{pool: pool},
			close:        pool.Close,
		}, nil

	case config.StorageFirestore:
		client, err := firebase.NewFirestoreClient(ctx, cfg, opt)
		if err != nil {
			return nil, err
		}
		return &repositories{
			negotiations: repository.NewFirestoreNegotiationRepository(client),
			intents:      repository.NewFirestorePurchaseIntentRepository(client),
			products:     repository.NewFirestoreProductRepository(client),
			users:        repository.NewFirestoreUserRepository(client),
			audit:        repository.NewFirestoreAuditRepository(client),
			pinger:       firebase.FirestorePinger{Client: client},
			close:        func() { closeFirestore(client) },
		}, nil
	}
	return nil, errors.Errorf("unknown storage driver %q", cfg.StorageDriver)
}

func closeFirestore(client *firestore.Client) {
	_ = client.Close()
}

func newTokenVerifier(ctx context.Context, cfg *config.Config, opt option.ClientOption) (middleware.TokenVerifier, func(), error) {
	switch cfg.AuthProvider {
	case config.AuthFirebase:
		client, err := firebase.NewAuthClient(ctx, cfg, opt)
		if err != nil {
			return nil, nil, err
		}
		return client, func() {}, nil

	case config.AuthJWT:
		return jwtauth.NewHMACVerifier(cfg.JWTSecret, cfg.JWTIssuer), func() {}, nil

	case config.AuthJWKS:
		v, err := jwtauth.NewJWKSVerifier(cfg.JWKSURL, cfg.JWTIssuer)
		if err != nil {
			return nil, nil, err
		}
		return v, v.Close, nil
	}
	return nil, nil, errors.Errorf("unknown auth provider %q", cfg.AuthProvider)
}
