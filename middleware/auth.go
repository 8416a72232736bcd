package middleware

import (
	"context"
	"net/http"

	"github.com/chorecast/chorecast/session"
	"github.com/chorecast/chorecast/user"
	"github.com/google/uuid"
)

// Identity is the authenticated caller: who they are and which household
// they belong to. Handlers pass both ids explicitly into the services; the
// core never reads them from ambient state.
type Identity struct {
	UserID      uuid.UUID
	HouseholdID uuid.NullUUID
}

type contextKey string

const identityKey contextKey = "identity"

// Authenticate resolves the session cookie into an Identity on the request
// context. Requests without a valid session pass through unauthenticated.
func Authenticate(users user.Repository, sessions session.Repository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(session.CookieName)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			sess, err := sessions.GetByToken(r.Context(), cookie.Value)
			if err != nil {
				// stale cookie, clear it
				http.SetCookie(w, &http.Cookie{
					Name:   session.CookieName,
					Value:  "",
					Path:   "/",
					MaxAge: -1,
				})
				next.ServeHTTP(w, r)
				return
			}

			account, err := users.GetByID(r.Context(), sess.UserID)
			if err != nil || account == nil {
				next.ServeHTTP(w, r)
				return
			}

			identity := Identity{UserID: account.ID, HouseholdID: account.HouseholdID}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// RequireAuth rejects unauthenticated requests with 401.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := FromContext(r.Context()); !ok {
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireHousehold rejects authenticated callers that have not joined a
// household yet; household-scoped endpoints need the scoping id.
func RequireHousehold(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := FromContext(r.Context())
		if !ok {
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}
		if !identity.HouseholdID.Valid {
			http.Error(w, "no household joined", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WithIdentity returns a context carrying the identity. Exported for tests.
func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

func FromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityKey).(Identity)
	return identity, ok
}
