package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	StorageFirestore = "firestore"
	StoragePostgres  = "postgres"

	AuthFirebase = "firebase"
	AuthJWT      = "jwt"
	AuthJWKS     = "jwks"
)

type Config struct {
	ServerPort  string `envconfig:"SERVER_PORT" default:"8080"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	StorageDriver              string `envconfig:"STORAGE_DRIVER" default:"firestore"`
	FirebaseProject            string `envconfig:"FIREBASE_PROJECT_ID"`
	FirebaseServiceAccountPath string `envconfig:"FIREBASE_SERVICE_ACCOUNT_PATH"`
	FirebaseServiceAccountJSON string `envconfig:"FIREBASE_SERVICE_ACCOUNT_JSON"`
	DatabaseURL                string `envconfig:"DATABASE_URL"`

	AuthProvider string `envconfig:"AUTH_PROVIDER" default:"firebase"`
	JWTSecret    string `envconfig:"JWT_SECRET"`
	JWTIssuer    string `envconfig:"JWT_ISSUER"`
	JWKSURL      string `envconfig:"JWKS_URL"`

	OTLPEndpoint string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName  string `envconfig:"SERVICE_NAME" default:"b2bmarket"`

	NotifyTimeout        time.Duration `envconfig:"NOTIFY_TIMEOUT" default:"5s"`
	MessageRatePerMinute int           `envconfig:"MESSAGE_RATE_PER_MINUTE" default:"10"`
	CreateRatePerHour    int           `envconfig:"CREATE_RATE_PER_HOUR" default:"20"`
}

func Load() (*Config, error) {
	// .env is optional outside local development
	_ = godotenv.Load()

	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) Validate() error {
	switch c.StorageDriver {
	case StorageFirestore:
		if c.FirebaseProject == "" {
			return fmt.Errorf("FIREBASE_PROJECT_ID is required for the firestore storage driver")
		}
	case StoragePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres storage driver")
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}

	switch c.AuthProvider {
	case AuthFirebase:
		if c.FirebaseProject == "" {
			return fmt.Errorf("FIREBASE_PROJECT_ID is required for firebase authentication")
		}
	case AuthJWT:
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required for jwt authentication")
		}
	case AuthJWKS:
		if c.JWKSURL == "" {
			return fmt.Errorf("JWKS_URL is required for jwks authentication")
		}
	default:
		return fmt.Errorf("unknown AUTH_PROVIDER %q", c.AuthProvider)
	}

	if c.MessageRatePerMinute <= 0 || c.CreateRatePerHour <= 0 {
		return fmt.Errorf("rate limits must be positive")
	}

	return nil
}

func (c *Config) UsesFirebase() bool {
	return c.StorageDriver == StorageFirestore || c.AuthProvider == AuthFirebase
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}
