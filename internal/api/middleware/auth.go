package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/api/response"
	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/apperrors"
	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/model"
)

// AccessTokenCookie is the cookie set on login for browser clients.
const AccessTokenCookie = "AccessToken"

// Authenticator resolves an access token to a user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (model.User, error)
}

type contextKey int

const userContextKey contextKey = iota

// ContextWithUser stores the authenticated user in ctx.
func ContextWithUser(ctx context.Context, user model.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// UserFromContext returns the authenticated user, if any.
func UserFromContext(ctx context.Context) (model.User, bool) {
	user, ok := ctx.Value(userContextKey).(model.User)
	return user, ok
}

// tokenFromRequest reads a bearer token, falling back to the cookie.
func tokenFromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if cookie, err := r.Cookie(AccessTokenCookie); err == nil {
		return cookie.Value
	}
	return ""
}

// Authenticate rejects requests without a valid access token with 401 and
// stores the user in the request context otherwise.
func Authenticate(authenticator Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := tokenFromRequest(r)
			if token == "" {
				w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
				response.RespondError(w, http.StatusUnauthorized, "authentication required", "missing access token")
				return
			}

			user, err := authenticator.Authenticate(r.Context(), token)
			if err != nil {
				if errors.Is(err, apperrors.ErrInvalidToken) {
					w.Header().Set("WWW-Authenticate", `Bearer realm="api", error="invalid_token"`)
					response.RespondError(w, http.StatusUnauthorized, "authentication required", apperrors.ErrInvalidToken.Error())
					return
				}
				response.RespondError(w, http.StatusInternalServerError, "failed to authenticate", "")
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithUser(r.Context(), user)))
		})
	}
}

// RequireRole rejects authenticated users without role with 403. It must run
// after Authenticate.
func RequireRole(role model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok {
				response.RespondError(w, http.StatusUnauthorized, "authentication required", "")
				return
			}
			if user.Role != role {
				response.RespondError(w, http.StatusForbidden, apperrors.ErrForbidden.Error(), "")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
