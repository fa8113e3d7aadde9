package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/upb/clinic-admin/internal/policy"
	"github.com/upb/clinic-admin/utils"
	"go.uber.org/zap"
)

// TokenValidator defines the interface for validating JWT tokens
type TokenValidator interface {
	// ValidateToken validates a JWT token and returns the caller identity
	ValidateToken(ctx context.Context, token string) (*policy.Identity, error)
}

// Default cookies checked for a token when no Authorization header is sent
const (
	authTokenCookieName = "auth_token"
	sessionCookieName   = "session"
)

// AuthMiddleware attaches the caller identity to the request context
type AuthMiddleware struct {
	validator   TokenValidator
	logger      *zap.Logger
	cookieNames []string
}

// NewAuthMiddleware creates a new AuthMiddleware. cookieNames overrides
// the cookies searched for a token.
func NewAuthMiddleware(validator TokenValidator, logger *zap.Logger, cookieNames ...string) *AuthMiddleware {
	if len(cookieNames) == 0 {
		cookieNames = []string{authTokenCookieName, sessionCookieName}
	}
	return &AuthMiddleware{
		validator:   validator,
		logger:      logger,
		cookieNames: cookieNames,
	}
}

// Authenticate attaches the identity of a valid token and otherwise lets
// the request through anonymously. Route guards reject anonymous callers.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := m.identify(r)
		if id != nil {
			r = r.WithContext(WithIdentity(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAuth rejects requests without a valid token with 401
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := GetIdentityFromContext(r.Context()); id != nil {
			next.ServeHTTP(w, r)
			return
		}

		id, reason := m.identify(r)
		if id == nil {
			_ = utils.WriteUnauthorized(w, reason)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

// identify validates the request token. On failure it returns a reason
// suitable for the client.
func (m *AuthMiddleware) identify(r *http.Request) (*policy.Identity, string) {
	ctx := r.Context()
	requestID := GetRequestIDFromContext(ctx)

	token := m.extractToken(r)
	if token == "" {
		m.logger.Debug("no token presented",
			zap.String("request_id", requestID))
		return nil, "Missing or invalid authorization"
	}

	id, err := m.validator.ValidateToken(ctx, token)
	if err != nil {
		m.logger.Warn("token validation failed",
			zap.String("request_id", requestID),
			zap.Error(err))
		return nil, "Invalid or expired token"
	}

	m.logger.Debug("authentication successful",
		zap.String("request_id", requestID),
		zap.String("subject", id.Subject),
		zap.String("role", string(id.Role)))
	return id, ""
}

// extractToken reads the Authorization header first, then the configured
// cookies in order.
func (m *AuthMiddleware) extractToken(r *http.Request) string {
	if token := extractBearerToken(r); token != "" {
		return token
	}
	for _, name := range m.cookieNames {
		if cookie, err := r.Cookie(name); err == nil && cookie.Value != "" {
			return cookie.Value
		}
	}
	return ""
}

// extractBearerToken extracts the Bearer token from the Authorization header
func extractBearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}

	return strings.TrimSpace(parts[1])
}
