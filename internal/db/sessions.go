package db

import (
	"context"
	"crypto/rand"
	"database/sql"
	stderrors "errors"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/postclip/internal/errors"
)

// Session is one storage session. Its session_kv rows live until it ends.
type Session struct {
	ID        string `json:"id"`
	StartedAt int64  `json:"started_at"`
	EndedAt   *int64 `json:"ended_at,omitempty"`
}

// CurrentSession returns the open session, starting a new one if none is open.
func CurrentSession(ctx context.Context, db *sql.DB) (*Session, error) {
	s, err := openSession(ctx, db)
	if err != nil {
		return nil, err
	}
	if s != nil {
		return s, nil
	}

	s = &Session{ID: newID(), StartedAt: time.Now().Unix()}
	_, err = db.ExecContext(ctx,
		`INSERT INTO sessions (id, started_at, ended_at) VALUES (?, ?, NULL)`,
		s.ID, s.StartedAt,
	)
	if err != nil {
		// Another process opened one first
		if isUniqueConstraintError(err) {
			if existing, err := openSession(ctx, db); err == nil && existing != nil {
				return existing, nil
			}
		}
		return nil, errors.NewPersistenceFault("session start", err)
	}
	return s, nil
}

func openSession(ctx context.Context, db *sql.DB) (*Session, error) {
	s := &Session{}
	err := db.QueryRowContext(ctx,
		`SELECT id, started_at FROM sessions WHERE ended_at IS NULL ORDER BY started_at DESC LIMIT 1`,
	).Scan(&s.ID, &s.StartedAt)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewPersistenceFault("session read", err)
	}
	return s, nil
}

// EndSession deletes the session's stored values and marks it ended.
// Ending a session that is unknown or already ended is an INVALID_REQUEST.
func EndSession(ctx context.Context, db *sql.DB, id string) (*Session, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.NewPersistenceFault("session end", err)
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	res, err := tx.ExecContext(ctx,
		`UPDATE sessions SET ended_at = ? WHERE id = ? AND ended_at IS NULL`,
		now, id,
	)
	if err != nil {
		return nil, errors.NewPersistenceFault("session end", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, errors.NewPersistenceFault("session end", err)
	}
	if n == 0 {
		return nil, errors.NewInvalidRequest("no open session with id " + id)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM session_kv WHERE session_id = ?`, id); err != nil {
		return nil, errors.NewPersistenceFault("session end", err)
	}

	var s Session
	if err := tx.QueryRowContext(ctx,
		`SELECT id, started_at, ended_at FROM sessions WHERE id = ?`, id,
	).Scan(&s.ID, &s.StartedAt, &s.EndedAt); err != nil {
		return nil, errors.NewPersistenceFault("session end", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.NewPersistenceFault("session end", err)
	}
	return &s, nil
}

func newID() string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// isUniqueConstraintError checks if the error is a SQLite UNIQUE constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	// SQLite returns "UNIQUE constraint failed: ..." for unique violations
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
