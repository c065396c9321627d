package middleware

import (
	"context"
	"net/http"
	"strings"

	pkgauth "github.com/zhouzirui/aria/backend/pkg/auth"
	"github.com/zhouzirui/aria/backend/pkg/utils"
)

type ctxKey string

const (
	userIDKey   ctxKey = "user_id"
	usernameKey ctxKey = "username"
)

// TokenParser validates a bearer token.
type TokenParser interface {
	Parse(token string) (*pkgauth.Claims, error)
}

// Auth requires "Authorization: Bearer <token>" and stores the user in the
// request context. Websocket clients cannot set headers, so a ?token= query
// parameter is accepted too.
func Auth(parser TokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				token = strings.TrimSpace(r.URL.Query().Get("token"))
			}
			if token == "" {
				utils.RespondError(w, http.StatusUnauthorized, "missing or invalid Authorization header")
				return
			}

			claims, err := parser.Parse(token)
			if err != nil {
				utils.RespondError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), claims.UserID, claims.Username)))
		})
	}
}

// WithUser stores the authenticated user in ctx.
func WithUser(ctx context.Context, userID, username string) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	return context.WithValue(ctx, usernameKey, username)
}

// UserID returns the authenticated user id, empty when absent.
func UserID(ctx context.Context) string {
	v, _ := ctx.Value(userIDKey).(string)
	return v
}

// Username returns the authenticated username, empty when absent.
func Username(ctx context.Context) string {
	v, _ := ctx.Value(usernameKey).(string)
	return v
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, prefix))
}
