package auth

import (
	"context"
	"net/http"

	"github.com/petermazzocco/go-microblog-api/internal/apperr"
	"github.com/petermazzocco/go-microblog-api/models"
)

// Header carries the caller's API key.
const Header = "api-key"

type contextKey string

const userKey contextKey = "user"

type Authenticator interface {
	Authenticate(ctx context.Context, apiKey string) (models.User, error)
}

// ErrorWriter renders a failed authentication. The error never contains the key.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

// UserMiddleware resolves the api-key header to a user and stores it in the
// request context. Requests without a valid key stop here.
func UserMiddleware(authn Authenticator, fail ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(Header)
			if key == "" {
				fail(w, r, apperr.New(apperr.Unauthorized, "API key authentication failed"))
				return
			}

			user, err := authn.Authenticate(r.Context(), key)
			if err != nil {
				fail(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

func WithUser(ctx context.Context, user models.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// CurrentUser returns the actor stored by UserMiddleware.
func CurrentUser(ctx context.Context) (models.User, bool) {
	user, ok := ctx.Value(userKey).(models.User)
	return user, ok
}
