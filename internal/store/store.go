package store

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/hpungsan/postclip/internal/entry"
	"github.com/hpungsan/postclip/internal/errors"
	"github.com/hpungsan/postclip/internal/metrics"
)

// LinksKey is the session key holding the saved list.
const LinksKey = "links"

// Store holds the ordered list of captured entries for one session.
type Store interface {
	GetAll(ctx context.Context) ([]entry.Entry, error)
	SetAll(ctx context.Context, entries []entry.Entry) error
	Append(ctx context.Context, e entry.Entry) ([]entry.Entry, error)
	Clear(ctx context.Context) error
}

// SessionStore keeps the list as a JSON array under LinksKey in a session KV.
type SessionStore struct {
	kv     KV
	logger *zap.Logger
}

// NewSessionStore creates a SessionStore. A nil logger is replaced by a no-op logger.
func NewSessionStore(kv KV, logger *zap.Logger) *SessionStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionStore{kv: kv, logger: logger}
}

// GetAll returns the saved list, oldest first. A missing or non-array value is an empty list.
func (s *SessionStore) GetAll(ctx context.Context) ([]entry.Entry, error) {
	raw, found, err := s.kv.Get(ctx, LinksKey)
	if err != nil {
		return nil, errors.NewPersistenceFault("read", err)
	}
	if !found || len(raw) == 0 {
		return []entry.Entry{}, nil
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, errors.NewPersistenceFault("read", fmt.Errorf("decode %s: %w", LinksKey, err))
	}
	if _, ok := v.([]any); !ok {
		s.logger.Warn("stored list is not an array, treating as empty")
	}
	return entry.NormalizeList(v), nil
}

// SetAll replaces the saved list. Every element is normalized before writing.
func (s *SessionStore) SetAll(ctx context.Context, entries []entry.Entry) error {
	normalized := make([]entry.Entry, len(entries))
	for i := range entries {
		normalized[i] = entry.Normalize(entries[i])
	}

	data, err := json.Marshal(normalized)
	if err != nil {
		return errors.NewPersistenceFault("write", err)
	}
	if err := s.kv.Set(ctx, LinksKey, data); err != nil {
		metrics.IncrementStoreWrite("set_all", "error")
		return errors.NewPersistenceFault("write", err)
	}
	metrics.IncrementStoreWrite("set_all", "ok")
	return nil
}

// Append reads the list, adds e at the end and writes it back.
// The read and write are separate steps; concurrent appends may lose one.
func (s *SessionStore) Append(ctx context.Context, e entry.Entry) ([]entry.Entry, error) {
	existing, err := s.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	updated := append(existing, entry.Normalize(e))
	if err := s.SetAll(ctx, updated); err != nil {
		return nil, err
	}
	return updated, nil
}

// Clear replaces the saved list with an empty list.
func (s *SessionStore) Clear(ctx context.Context) error {
	if err := s.kv.Set(ctx, LinksKey, []byte("[]")); err != nil {
		metrics.IncrementStoreWrite("clear", "error")
		return errors.NewPersistenceFault("clear", err)
	}
	metrics.IncrementStoreWrite("clear", "ok")
	return nil
}
