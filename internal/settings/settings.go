package settings

import (
	"context"
	"strings"

	"github.com/hpungsan/postclip/internal/errors"
	"github.com/hpungsan/postclip/internal/store"
)

// APIKeyKey is the durable key holding the OpenAI API key.
const APIKeyKey = "openAiKey"

// KeyStatus describes the saved key without revealing it.
type KeyStatus struct {
	Saved   bool   `json:"saved"`
	Preview string `json:"preview,omitempty"`
	Message string `json:"message"`
}

// Credentials stores the API key in a durable KV.
type Credentials struct {
	kv store.KV
}

// NewCredentials wraps a durable KV.
func NewCredentials(kv store.KV) *Credentials {
	return &Credentials{kv: kv}
}

// APIKey returns the trimmed saved key, or "" when none is saved.
func (c *Credentials) APIKey(ctx context.Context) (string, error) {
	raw, found, err := c.kv.Get(ctx, APIKeyKey)
	if err != nil {
		return "", errors.NewPersistenceFault("read", err)
	}
	if !found {
		return "", nil
	}
	return strings.TrimSpace(string(raw)), nil
}

// SetKey saves key after trimming it. A blank key is rejected.
func (c *Credentials) SetKey(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.NewInvalidRequest("enter a valid OpenAI API key")
	}
	if err := c.kv.Set(ctx, APIKeyKey, []byte(key)); err != nil {
		return errors.NewPersistenceFault("write", err)
	}
	return nil
}

// ClearKey removes the saved key.
func (c *Credentials) ClearKey(ctx context.Context) error {
	if err := c.kv.Delete(ctx, APIKeyKey); err != nil {
		return errors.NewPersistenceFault("clear", err)
	}
	return nil
}

// Status reports whether a key is saved.
func (c *Credentials) Status(ctx context.Context) (*KeyStatus, error) {
	key, err := c.APIKey(ctx)
	if err != nil {
		return nil, err
	}
	if key == "" {
		return &KeyStatus{Message: "No API key saved yet."}, nil
	}
	return &KeyStatus{Saved: true, Preview: Mask(key), Message: "API key saved."}, nil
}

// Mask keeps the last four characters of key.
func Mask(key string) string {
	runes := []rune(key)
	if len(runes) <= 4 {
		return strings.Repeat("*", len(runes))
	}
	return strings.Repeat("*", len(runes)-4) + string(runes[len(runes)-4:])
}
