package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRateLimitMiddlewareTightAuthBucket(t *testing.T) {
	mw := NewRateLimitMiddleware(0, 1)

	handler := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// Burst of 1: the first login attempt passes, the immediate second is
	// rejected.
	rec1 := httptest.NewRecorder()
	handler.ServeHTTP(rec1, httptest.NewRequest(http.MethodPost, "/api/auth/login", nil))
	assert.Equal(t, http.StatusOK, rec1.Code)

	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, httptest.NewRequest(http.MethodPost, "/api/auth/login", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec2.Code)

	// The general bucket is independent of the auth bucket.
	rec3 := httptest.NewRecorder()
	handler.ServeHTTP(rec3, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, rec3.Code)
}

func TestRateLimitMiddlewareDefaults(t *testing.T) {
	mw := NewRateLimitMiddleware(-1, 0)
	assert.Equal(t, 100, mw.generalRPM)
	assert.Equal(t, 10, mw.authRPM)
}
