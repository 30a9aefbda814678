package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/doj0985/databricks-aibi-external-embedding/internal/model"
)

// PostgresStore keeps sessions in a shared database so multiple backend
// instances can serve the same browser session.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Put(ctx context.Context, session model.Session) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO sessions (id, user_id, username, created_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE
		 SET user_id = excluded.user_id,
		     username = excluded.username,
		     expires_at = excluded.expires_at`,
		session.ID, session.UserID, session.Username, session.CreatedAt, session.ExpiresAt)
	if err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (model.Session, error) {
	var session model.Session
	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, username, created_at, expires_at
		 FROM sessions WHERE id = $1`, id).
		Scan(&session.ID, &session.UserID, &session.Username, &session.CreatedAt, &session.ExpiresAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return model.Session{}, model.ErrSessionNotFound
	}
	if err != nil {
		return model.Session{}, fmt.Errorf("load session: %w", err)
	}

	if session.Expired(time.Now().UTC()) {
		_ = s.Delete(ctx, id)
		return model.Session{}, model.ErrSessionExpired
	}

	return session, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// CleanExpired removes stale rows; called periodically by the app.
func (s *PostgresStore) CleanExpired(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= now()`)
	if err != nil {
		return 0, fmt.Errorf("clean expired sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}
