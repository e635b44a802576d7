package jwtauth

import (
	"context"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/golang-jwt/jwt/v4"
	"github.com/pkg/errors"

	"b2bmarket/internal/domain/entity"
	"b2bmarket/pkg/logger"
)

// Claims are the token claims the service reads. The subject is the
// user id profiles are keyed by.
type Claims struct {
	EmailVerified bool `json:"email_verified"`
	jwt.RegisteredClaims
}

var ErrMissingSubject = errors.New("token has no subject")

type verifier struct {
	keyFunc jwt.Keyfunc
	methods []string
	issuer  string
}

func (v *verifier) VerifyToken(_ context.Context, token string) (*entity.TokenClaims, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, v.keyFunc, jwt.WithValidMethods(v.methods))
	if err != nil {
		return nil, errors.Wrap(err, "parse token")
	}
	if !parsed.Valid {
		return nil, errors.New("token is not valid")
	}
	if v.issuer != "" && !claims.VerifyIssuer(v.issuer, true) {
		return nil, errors.Errorf("unexpected issuer %q", claims.Issuer)
	}
	if claims.Subject == "" {
		return nil, ErrMissingSubject
	}

	return &entity.TokenClaims{
		UserID:        claims.Subject,
		EmailVerified: claims.EmailVerified,
	}, nil
}

// HMACVerifier accepts HS256 tokens signed with a shared secret.
type HMACVerifier struct {
	verifier
}

func NewHMACVerifier(secret, issuer string) *HMACVerifier {
	key := []byte(secret)
	return &HMACVerifier{verifier{
		keyFunc: func(*jwt.Token) (interface{}, error) { return key, nil },
		methods: []string{jwt.SigningMethodHS256.Alg()},
		issuer:  issuer,
	}}
}

// JWKSVerifier accepts RS256/ES256 tokens whose keys are published at a
// JWKS endpoint. Keys are refreshed in the background until Close.
type JWKSVerifier struct {
	verifier
	jwks *keyfunc.JWKS
}

func NewJWKSVerifier(jwksURL, issuer string) (*JWKSVerifier, error) {
	jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{
		RefreshInterval:   time.Hour,
		RefreshRateLimit:  5 * time.Minute,
		RefreshTimeout:    10 * time.Second,
		RefreshUnknownKID: true,
		RefreshErrorHandler: func(err error) {
			logger.Warn("JWKS refresh from %s failed: %v", jwksURL, err)
		},
	})
	if err != nil {
		return nil, errors.Wrapf(err, "load jwks from %s", jwksURL)
	}

	return &JWKSVerifier{
		verifier: verifier{
			keyFunc: jwks.Keyfunc,
			methods: []string{jwt.SigningMethodRS256.Alg(), jwt.SigningMethodES256.Alg()},
			issuer:  issuer,
		},
		jwks: jwks,
	}, nil
}

func (v *JWKSVerifier) Close() {
	v.jwks.EndBackground()
}
