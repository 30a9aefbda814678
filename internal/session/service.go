// Package session implements login/logout and resolution of the current user
// from a signed session cookie.
package session

import (
	"context"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/doj0985/databricks-aibi-external-embedding/internal/directory"
	"github.com/doj0985/databricks-aibi-external-embedding/internal/model"
	"github.com/doj0985/databricks-aibi-external-embedding/pkg/apierror"
)

type Service struct {
	directory *directory.Directory
	store     Store
	secret    []byte
	ttl       time.Duration
}

func NewService(dir *directory.Directory, store Store, secret string, ttl time.Duration) *Service {
	return &Service{
		directory: dir,
		store:     store,
		secret:    []byte(secret),
		ttl:       ttl,
	}
}

// Login authenticates by identity selection: any username present in the
// directory is accepted. No credential is checked — this mirrors the demo's
// contract and must not be mistaken for production authentication.
func (s *Service) Login(ctx context.Context, username string) (model.User, string, error) {
	user, exists := s.directory.Lookup(username)
	if !exists {
		return model.User{}, "", apierror.Wrap(model.ErrUnknownUser, "UNAUTHORIZED", "invalid username", http.StatusUnauthorized)
	}

	now := time.Now().UTC()
	session := model.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Username:  username,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	if err := s.store.Put(ctx, session); err != nil {
		return model.User{}, "", apierror.Wrap(err, "INTERNAL_ERROR", "failed to create session", http.StatusInternalServerError)
	}

	cookieValue, err := s.signCookie(session)
	if err != nil {
		_ = s.store.Delete(ctx, session.ID)
		return model.User{}, "", apierror.Wrap(err, "INTERNAL_ERROR", "failed to create session", http.StatusInternalServerError)
	}

	return user, cookieValue, nil
}

// Current resolves the user bound to the session cookie. The store is
// authoritative: a cookie whose session has been logged out (or lost to a
// restart of the in-memory store) is rejected even if its signature is valid.
func (s *Service) Current(ctx context.Context, cookieValue string) (model.User, error) {
	sid, err := s.verifyCookie(cookieValue)
	if err != nil {
		return model.User{}, apierror.Wrap(model.ErrUnauthenticated, "UNAUTHORIZED", "authentication required", http.StatusUnauthorized)
	}

	session, err := s.store.Get(ctx, sid)
	if err != nil {
		return model.User{}, apierror.Wrap(model.ErrUnauthenticated, "UNAUTHORIZED", "authentication required", http.StatusUnauthorized)
	}

	user, exists := s.directory.Lookup(session.Username)
	if !exists {
		// The directory is immutable, so this only happens when the users
		// file changed between restarts while a Postgres session survived.
		_ = s.store.Delete(ctx, sid)
		return model.User{}, apierror.Wrap(model.ErrUnknownUser, "UNAUTHORIZED", "authentication required", http.StatusUnauthorized)
	}

	return user, nil
}

// Logout destroys the session unconditionally; an absent or invalid cookie
// is not an error.
func (s *Service) Logout(ctx context.Context, cookieValue string) {
	sid, err := s.verifyCookie(cookieValue)
	if err != nil {
		return
	}
	_ = s.store.Delete(ctx, sid)
}

func (s *Service) signCookie(session model.Session) (string, error) {
	now := time.Now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sid":      session.ID,
		"sub":      session.UserID,
		"username": session.Username,
		"iat":      now.Unix(),
		"exp":      session.ExpiresAt.Unix(),
	})
	return token.SignedString(s.secret)
}

func (s *Service) verifyCookie(cookieValue string) (string, error) {
	parsed, err := jwt.Parse(cookieValue, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, model.ErrUnauthenticated
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return "", model.ErrUnauthenticated
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", model.ErrUnauthenticated
	}

	sid, _ := claims["sid"].(string)
	if sid == "" {
		return "", model.ErrUnauthenticated
	}

	return sid, nil
}
