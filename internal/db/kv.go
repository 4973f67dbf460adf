package db

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"
)

// SessionKV is the key/value area of one storage session.
type SessionKV struct {
	db        *sql.DB
	sessionID string
}

// NewSessionKV binds a key/value area to sessionID.
func NewSessionKV(db *sql.DB, sessionID string) *SessionKV {
	return &SessionKV{db: db, sessionID: sessionID}
}

// SessionID returns the bound session.
func (k *SessionKV) SessionID() string {
	return k.sessionID
}

func (k *SessionKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := k.db.QueryRowContext(ctx,
		`SELECT value FROM session_kv WHERE session_id = ? AND key = ?`,
		k.sessionID, key,
	).Scan(&value)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (k *SessionKV) Set(ctx context.Context, key string, value []byte) error {
	_, err := k.db.ExecContext(ctx, `
		INSERT INTO session_kv (session_id, key, value, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(session_id, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, k.sessionID, key, value, time.Now().Unix())
	return err
}

func (k *SessionKV) Delete(ctx context.Context, key string) error {
	_, err := k.db.ExecContext(ctx,
		`DELETE FROM session_kv WHERE session_id = ? AND key = ?`,
		k.sessionID, key,
	)
	return err
}

// DurableKV is the key/value area that survives session ends.
type DurableKV struct {
	db *sql.DB
}

// NewDurableKV wraps db.
func NewDurableKV(db *sql.DB) *DurableKV {
	return &DurableKV{db: db}
}

func (k *DurableKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := k.db.QueryRowContext(ctx, `SELECT value FROM durable_kv WHERE key = ?`, key).Scan(&value)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (k *DurableKV) Set(ctx context.Context, key string, value []byte) error {
	_, err := k.db.ExecContext(ctx, `
		INSERT INTO durable_kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, time.Now().Unix())
	return err
}

func (k *DurableKV) Delete(ctx context.Context, key string) error {
	_, err := k.db.ExecContext(ctx, `DELETE FROM durable_kv WHERE key = ?`, key)
	return err
}
