package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doj0985/databricks-aibi-external-embedding/internal/model"
)

type fakeResolver struct {
	user    model.User
	err     error
	gotRaw  string
	invoked bool
}

func (f *fakeResolver) Current(_ context.Context, cookieValue string) (model.User, error) {
	f.invoked = true
	f.gotRaw = cookieValue
	return f.user, f.err
}

func TestRequireSessionRejectsMissingCookie(t *testing.T) {
	resolver := &fakeResolver{}
	mw := NewSessionMiddleware(resolver)

	handler := mw.RequireSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run without a session")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/auth/current-user", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, resolver.invoked)
	assert.Contains(t, rec.Body.String(), "UNAUTHORIZED")
}

func TestRequireSessionRejectsInvalidSession(t *testing.T) {
	resolver := &fakeResolver{err: model.ErrUnauthenticated}
	mw := NewSessionMiddleware(resolver)

	handler := mw.RequireSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run with an invalid session")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/auth/current-user", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "stale"})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "stale", resolver.gotRaw)
}

func TestRequireSessionInjectsUser(t *testing.T) {
	want := model.User{ID: "user_alice", Name: "Alice Johnson", Email: "alice@example.com", Department: "Sales"}
	resolver := &fakeResolver{user: want}
	mw := NewSessionMiddleware(resolver)

	var got model.User
	handler := mw.RequireSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		require.True(t, ok)
		got = user
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/dashboard/embed-config", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "signed"})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, want, got)
}
