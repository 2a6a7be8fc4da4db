package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/collabware/guest-lobby/internal/httputil"
)

type contextKey string

const (
	// UserIDKey is the context key for the authenticated user id.
	UserIDKey contextKey = "user_id"
	// TenantIDKey is the context key for the caller's tenant id (may be Nil
	// for guests entering from outside any tenant).
	TenantIDKey contextKey = "tenant_id"
	// CallerSessionIDKey is the context key for the caller's session
	// identifier (the jti claim). It keys the guest context store.
	CallerSessionIDKey contextKey = "caller_session_id"
)

// AccessTokenClaims are the claims expected in a caller's access token.
// Tokens are issued by the upstream identity service; this service only
// validates them.
type AccessTokenClaims struct {
	jwt.RegisteredClaims
	TenantID string `json:"tenant_id,omitempty"`
}

// Auth creates middleware that validates bearer tokens and places the
// caller's identity on the request context.
func Auth(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var tokenString string
			authHeader := r.Header.Get("Authorization")
			if authHeader != "" {
				parts := strings.SplitN(authHeader, " ", 2)
				if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
					tokenString = parts[1]
				}
			}
			if tokenString == "" {
				httputil.Error(w, http.StatusUnauthorized, "missing authorization")
				return
			}

			claims := &AccessTokenClaims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrTokenUnverifiable
				}
				return secret, nil
			})
			if err != nil || !token.Valid {
				httputil.Error(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			userID, err := uuid.Parse(claims.Subject)
			if err != nil {
				httputil.Error(w, http.StatusUnauthorized, "invalid token subject")
				return
			}
			if claims.ID == "" {
				httputil.Error(w, http.StatusUnauthorized, "token has no session id")
				return
			}

			// Tenant is optional: guests may carry no tenant at all.
			tenantID := uuid.Nil
			if claims.TenantID != "" {
				tenantID, err = uuid.Parse(claims.TenantID)
				if err != nil {
					httputil.Error(w, http.StatusUnauthorized, "invalid tenant_id in token")
					return
				}
			}

			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			ctx = context.WithValue(ctx, TenantIDKey, tenantID)
			ctx = context.WithValue(ctx, CallerSessionIDKey, claims.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserID extracts the authenticated user id from the request context.
func UserID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(UserIDKey).(uuid.UUID)
	return id, ok
}

// TenantID extracts the caller's tenant id from the request context.
func TenantID(ctx context.Context) uuid.UUID {
	id, _ := ctx.Value(TenantIDKey).(uuid.UUID)
	return id
}

// CallerSessionID extracts the caller's session identifier from the request
// context.
func CallerSessionID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(CallerSessionIDKey).(string)
	return id, ok
}
