package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/hpungsan/postclip/internal/config"
	"github.com/hpungsan/postclip/internal/db"
	"github.com/hpungsan/postclip/internal/extract"
	"github.com/hpungsan/postclip/internal/ops"
	"github.com/hpungsan/postclip/internal/settings"
	"github.com/hpungsan/postclip/internal/store"
	"github.com/hpungsan/postclip/internal/summarize"
)

const (
	redisSessionPrefix = "postclip:session:"
	redisDurablePrefix = "postclip:durable:"
)

// runtime holds the wired collaborators for one process.
type runtime struct {
	env   *ops.Env
	creds *settings.Credentials

	backend   string
	sessionKV store.KV

	// sqlite backend only
	db      *sql.DB
	session *db.Session

	// redis backend only
	rdb *redis.Client
}

// newLogger builds a JSON logger on stderr. Warn level unless verbose.
func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return cfg.Build()
}

// openRuntime connects the configured backend and builds the operation environment.
func openRuntime(ctx context.Context, baseDir string, cfg *config.Config, logger *zap.Logger) (*runtime, error) {
	rt := &runtime{backend: cfg.Backend}

	var durable store.KV
	switch cfg.Backend {
	case config.BackendSQLite:
		database, err := db.Init(baseDir)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		db.ConfigurePool(database, cfg)
		session, err := db.CurrentSession(ctx, database)
		if err != nil {
			database.Close()
			return nil, fmt.Errorf("failed to open session: %w", err)
		}
		rt.db = database
		rt.session = session
		rt.sessionKV = db.NewSessionKV(database, session.ID)
		durable = db.NewDurableKV(database)

	case config.BackendRedis:
		rdb := store.NewRedisClient(store.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		rt.rdb = rdb
		rt.sessionKV = store.NewRedisKV(rdb, redisSessionPrefix, cfg.SessionTTL())
		durable = store.NewRedisKV(rdb, redisDurablePrefix, 0)

	case config.BackendMemory:
		rt.sessionKV = store.NewMemoryKV()
		durable = store.NewMemoryKV()

	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}

	rt.creds = settings.NewCredentials(durable)

	exportDir := cfg.ExportDir
	if exportDir == "" {
		exportDir = filepath.Join(baseDir, "exports")
	}
	if err := os.MkdirAll(exportDir, 0700); err != nil {
		rt.Close()
		return nil, fmt.Errorf("failed to create exports directory: %w", err)
	}

	httpClient := &http.Client{Timeout: cfg.RequestTimeout()}
	rt.env = &ops.Env{
		Store: store.NewSessionStore(rt.sessionKV, logger),
		Pages: extract.NewHTTPLoader(httpClient, cfg.UserAgent),
		Summarizer: summarize.NewClient(rt.creds,
			summarize.WithEndpoint(cfg.Endpoint),
			summarize.WithModel(cfg.Model),
			summarize.WithHTTPClient(httpClient),
			summarize.WithLogger(logger),
		),
		Config:    cfg,
		Logger:    logger,
		ExportDir: exportDir,
	}
	return rt, nil
}

// Close releases backend connections.
func (rt *runtime) Close() error {
	if rt.db != nil {
		return rt.db.Close()
	}
	if rt.rdb != nil {
		return rt.rdb.Close()
	}
	return nil
}
