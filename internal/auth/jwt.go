package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/upb/clinic-admin/internal/policy"
)

// DefaultRoleClaim is the claim read for the caller's role
const DefaultRoleClaim = "role"

var (
	// ErrInvalidToken is returned when the token is malformed or its
	// signature, issuer or audience do not verify.
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired is returned when the token has expired
	ErrTokenExpired = errors.New("token expired")

	// ErrMissingSubject is returned when the token carries no subject
	ErrMissingSubject = errors.New("token has no subject")

	// ErrNoSigningKey is returned by NewTokenValidator without a secret
	ErrNoSigningKey = errors.New("token signing secret is not configured")
)

// Config holds configuration for TokenValidator
type Config struct {
	Secret    string
	Issuer    string
	Audience  string
	RoleClaim string
	Leeway    time.Duration
}

// TokenValidator verifies HS256-signed tokens issued by the clinic login
// service.
type TokenValidator struct {
	secret    []byte
	roleClaim string
	parser    *jwt.Parser
}

// NewTokenValidator creates a validator for tokens signed with cfg.Secret.
func NewTokenValidator(cfg Config) (*TokenValidator, error) {
	if cfg.Secret == "" {
		return nil, ErrNoSigningKey
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	if cfg.Leeway > 0 {
		opts = append(opts, jwt.WithLeeway(cfg.Leeway))
	}

	roleClaim := cfg.RoleClaim
	if roleClaim == "" {
		roleClaim = DefaultRoleClaim
	}

	return &TokenValidator{
		secret:    []byte(cfg.Secret),
		roleClaim: roleClaim,
		parser:    jwt.NewParser(opts...),
	}, nil
}

// ValidateToken verifies tokenString and returns the caller's identity.
// A token without a role claim is valid; the identity then has an empty
// role and every guard rejects it as unauthenticated.
func (v *TokenValidator) ValidateToken(ctx context.Context, tokenString string) (*policy.Identity, error) {
	claims := jwt.MapClaims{}
	token, err := v.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	subject, err := claims.GetSubject()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if subject == "" {
		return nil, ErrMissingSubject
	}

	var role string
	if raw, ok := claims[v.roleClaim]; ok {
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("%w: claim %q is not a string", ErrInvalidToken, v.roleClaim)
		}
		role = s
	}

	return &policy.Identity{
		Subject: subject,
		Role:    NormalizeRole(role),
	}, nil
}
