package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/doj0985/databricks-aibi-external-embedding/internal/middleware"
	"github.com/doj0985/databricks-aibi-external-embedding/internal/model"
	"github.com/doj0985/databricks-aibi-external-embedding/pkg/apierror"
)

type sessionService interface {
	Login(ctx context.Context, username string) (model.User, string, error)
	Logout(ctx context.Context, cookieValue string)
}

type AuthHandler struct {
	sessions   sessionService
	sessionTTL time.Duration
}

func NewAuthHandler(sessions sessionService, sessionTTL time.Duration) *AuthHandler {
	return &AuthHandler{sessions: sessions, sessionTTL: sessionTTL}
}

// Login authenticates by username lookup alone. Demo contract: there is no
// credential to verify, the caller just selects an identity.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.BadRequest("invalid JSON body"))
		return
	}

	if strings.TrimSpace(payload.Username) == "" {
		writeError(w, apierror.BadRequest("username is required"))
		return
	}

	user, cookieValue, err := h.sessions.Login(r.Context(), payload.Username)
	if err != nil {
		writeError(w, err)
		return
	}

	http.SetCookie(w, h.sessionCookie(cookieValue, h.sessionTTL))
	writeJSON(w, http.StatusOK, model.LoginResponse{Success: true, User: user})
}

// Logout destroys the session and expires the cookie; it succeeds whether or
// not a session existed.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(middleware.SessionCookieName); err == nil {
		h.sessions.Logout(r.Context(), cookie.Value)
	}

	http.SetCookie(w, h.sessionCookie("", -time.Second))
	writeJSON(w, http.StatusOK, model.LogoutResponse{Success: true})
}

func (h *AuthHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, apierror.Unauthorized("authentication required"))
		return
	}

	writeJSON(w, http.StatusOK, user)
}

func (h *AuthHandler) sessionCookie(value string, ttl time.Duration) *http.Cookie {
	maxAge := int(ttl.Seconds())
	if ttl < 0 {
		maxAge = -1
	}

	return &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}
