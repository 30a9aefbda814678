package middleware

import (
	"context"
	"net/http"

	"github.com/doj0985/databricks-aibi-external-embedding/internal/model"
)

// SessionCookieName is the cookie carrying the signed session reference.
const SessionCookieName = "aibi_session"

type userResolver interface {
	Current(ctx context.Context, cookieValue string) (model.User, error)
}

type contextKey string

const currentUserContextKey contextKey = "current_user"

type SessionMiddleware struct {
	sessions userResolver
}

func NewSessionMiddleware(sessions userResolver) *SessionMiddleware {
	return &SessionMiddleware{sessions: sessions}
}

// RequireSession rejects requests without a live session and injects the
// bound user into the request context for downstream handlers.
func (m *SessionMiddleware) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(SessionCookieName)
		if err != nil || cookie.Value == "" {
			writeUnauthorized(w)
			return
		}

		user, err := m.sessions.Current(r.Context(), cookie.Value)
		if err != nil {
			writeUnauthorized(w)
			return
		}

		ctx := context.WithValue(r.Context(), currentUserContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func UserFromContext(ctx context.Context) (model.User, bool) {
	user, ok := ctx.Value(currentUserContextKey).(model.User)
	return user, ok
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = jsonEncode(w, model.ErrorResponse{
		Error: &model.APIError{
			Code:    "UNAUTHORIZED",
			Message: "Authentication required",
		},
	})
}
