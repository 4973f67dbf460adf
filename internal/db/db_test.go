package db

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hpungsan/postclip/internal/config"
	"github.com/hpungsan/postclip/internal/errors"
)

func TestInit(t *testing.T) {
	tmpDir := t.TempDir()

	db, err := Init(tmpDir)
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer db.Close()

	dbPath := filepath.Join(tmpDir, "postclip.db")
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Errorf("database file not created at %s", dbPath)
	}

	exportsDir := filepath.Join(tmpDir, "exports")
	info, err := os.Stat(exportsDir)
	if os.IsNotExist(err) {
		t.Errorf("exports directory not created at %s", exportsDir)
	} else if !info.IsDir() {
		t.Errorf("exports path is not a directory")
	}

	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode;").Scan(&journalMode); err != nil {
		t.Fatalf("failed to query journal_mode: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("journal_mode = %s, want wal", journalMode)
	}

	for _, table := range []string{"sessions", "session_kv", "durable_kv"} {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s not found: %v", table, err)
		}
	}
}

func TestInit_CreatesDirectories(t *testing.T) {
	baseDir := filepath.Join(t.TempDir(), "nested", "path", ".postclip")

	db, err := Init(baseDir)
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(baseDir); os.IsNotExist(err) {
		t.Errorf("base directory not created at %s", baseDir)
	}
}

func TestInit_MigrationIdempotent(t *testing.T) {
	tmpDir := t.TempDir()

	db1, err := Init(tmpDir)
	if err != nil {
		t.Fatalf("first Init() error = %v", err)
	}
	db1.Close()

	db2, err := Init(tmpDir)
	if err != nil {
		t.Fatalf("second Init() error = %v", err)
	}
	defer db2.Close()

	version, err := GetUserVersion(db2)
	if err != nil {
		t.Fatalf("GetUserVersion() error = %v", err)
	}
	if version != CurrentSchemaVersion {
		t.Errorf("user_version after second Init = %d, want %d", version, CurrentSchemaVersion)
	}
}

func TestConfigurePool(t *testing.T) {
	db, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer db.Close()

	ConfigurePool(db, nil)
	ConfigurePool(db, &config.Config{DBMaxOpenConns: 1, DBMaxIdleConns: 1})

	if got := db.Stats().MaxOpenConnections; got != 1 {
		t.Errorf("MaxOpenConnections = %d, want 1", got)
	}
}

func TestCurrentSession_StartsOnceAndReuses(t *testing.T) {
	ctx := context.Background()
	db, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer db.Close()

	first, err := CurrentSession(ctx, db)
	if err != nil {
		t.Fatalf("CurrentSession() error = %v", err)
	}
	if len(first.ID) != 26 {
		t.Errorf("session ID = %q, want a 26-char ULID", first.ID)
	}

	second, err := CurrentSession(ctx, db)
	if err != nil {
		t.Fatalf("CurrentSession() error = %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("CurrentSession() = %s, want reused %s", second.ID, first.ID)
	}
}

func TestEndSession_ClearsValuesAndStartsFresh(t *testing.T) {
	ctx := context.Background()
	db, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer db.Close()

	s, err := CurrentSession(ctx, db)
	if err != nil {
		t.Fatalf("CurrentSession() error = %v", err)
	}
	kv := NewSessionKV(db, s.ID)
	if err := kv.Set(ctx, "links", []byte(`[{"url":"u"}]`)); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	durable := NewDurableKV(db)
	if err := durable.Set(ctx, "openAiKey", []byte("sk-1")); err != nil {
		t.Fatalf("durable Set() error = %v", err)
	}

	ended, err := EndSession(ctx, db, s.ID)
	if err != nil {
		t.Fatalf("EndSession() error = %v", err)
	}
	if ended.EndedAt == nil {
		t.Error("EndedAt = nil, want set")
	}

	if _, found, err := kv.Get(ctx, "links"); err != nil || found {
		t.Errorf("session value after end: found=%v err=%v, want gone", found, err)
	}
	if v, found, err := durable.Get(ctx, "openAiKey"); err != nil || !found || string(v) != "sk-1" {
		t.Errorf("durable value after end = %q found=%v err=%v, want kept", v, found, err)
	}

	next, err := CurrentSession(ctx, db)
	if err != nil {
		t.Fatalf("CurrentSession() after end error = %v", err)
	}
	if next.ID == s.ID {
		t.Error("CurrentSession() after end reused the ended session")
	}

	if _, err := EndSession(ctx, db, s.ID); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("second EndSession() error = %v, want INVALID_REQUEST", err)
	}
}

func TestSessionKV_IsolatedPerSession(t *testing.T) {
	ctx := context.Background()
	db, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer db.Close()

	s, err := CurrentSession(ctx, db)
	if err != nil {
		t.Fatalf("CurrentSession() error = %v", err)
	}
	a := NewSessionKV(db, s.ID)
	if err := a.Set(ctx, "links", []byte("[1]")); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := a.Set(ctx, "links", []byte("[2]")); err != nil {
		t.Fatalf("overwrite Set() error = %v", err)
	}

	got, found, err := a.Get(ctx, "links")
	if err != nil || !found || string(got) != "[2]" {
		t.Errorf("Get() = %q found=%v err=%v, want [2]", got, found, err)
	}

	other := NewSessionKV(db, "01OTHERSESSION0000000000000")
	if _, found, _ := other.Get(ctx, "links"); found {
		t.Error("value leaked across sessions")
	}

	if err := a.Delete(ctx, "links"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, found, _ := a.Get(ctx, "links"); found {
		t.Error("value still present after Delete")
	}
}

func TestDurableKV_MissingKey(t *testing.T) {
	db, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer db.Close()

	_, found, err := NewDurableKV(db).Get(context.Background(), "openAiKey")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if found {
		t.Error("found = true on an empty database")
	}
}
