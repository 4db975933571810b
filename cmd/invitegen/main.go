package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"invitegen/internal/config"
	"invitegen/internal/http/server"
	"invitegen/internal/infra/cache"
	"invitegen/internal/infra/logging"
	"invitegen/internal/infra/postgres"
	"invitegen/internal/invitation"
	"invitegen/internal/tokens"
)

func main() {
	cfg := config.Load()
	if err := ensureLogDir(cfg.Logger.File); err != nil {
		logging.Error("Cannot create log directory", "file", cfg.Logger.File, "error", err)
	}
	logging.InitLogger(
		cfg.Logger.File,
		cfg.Logger.MaxSizeMB,
		cfg.Logger.MaxBackups,
		cfg.Logger.MaxAgeDays,
		cfg.Logger.Compress,
		cfg.Logger.Level,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var artifacts *cache.Artifacts
	if cfg.Cache.ArtifactCacheEnabled && cfg.Cache.RedisHost != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr: cfg.Cache.RedisHost,
			DB:   cfg.Cache.ArtifactDB,
		})
		defer func() { _ = rdb.Close() }()
		artifacts = cache.NewArtifacts(rdb, cfg.Cache.ArtifactCacheTTL)
	}

	var auth *tokens.Cache
	if cfg.Auth.Enabled {
		db := postgres.NewDB()
		defer func() { _ = db.Close() }()
		auth = startTokenReloader(ctx, cfg, db)
	}

	gen, pool, err := invitation.NewFromConfig(cfg, invitation.StateObserverFunc(func(key string, busy bool) {
		logging.Debug("Generation state changed", "client", key, "busy", busy)
	}))
	if err != nil {
		logging.Error("Failed to set up invitation generator", "error", err)
		os.Exit(1)
	}
	if pool != nil {
		defer pool.Close()
	}

	app := server.New(server.Deps{
		Config:    cfg,
		Generator: gen,
		Artifacts: artifacts,
		Auth:      auth,
		Pool:      pool,
	})

	idleConnsClosed := make(chan struct{})
	startServer(app, cfg, idleConnsClosed)
	<-idleConnsClosed
}

// startTokenReloader loads API tokens once and keeps refreshing them. A
// failed first load leaves the service unready until a reload succeeds.
func startTokenReloader(ctx context.Context, cfg config.Config, db *postgres.DB) *tokens.Cache {
	auth := tokens.NewCache()

	dsn, err := cfg.Auth.Postgres.DSN()
	if err != nil {
		logging.Error("Invalid token database settings", "error", err)
		return auth
	}
	if sqlDB, err := db.Get(dsn); err == nil {
		if err := postgres.VerifySchema(sqlDB); err != nil {
			logging.Warn("Token database not ready", "error", err)
		}
	}

	reloader := tokens.NewReloader(postgres.NewTokenRepository(db, dsn), auth, cfg.Auth.ReloadInterval)
	if err := reloader.LoadOnce(ctx); err != nil {
		logging.Error("Failed to load API tokens", "error", err)
	}
	reloader.Start(ctx)
	return auth
}

// ensureLogDir creates the directory of the log file if needed.
func ensureLogDir(file string) error {
	if file == "" {
		return nil
	}
	dir := filepath.Dir(file)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// startServer starts the Fiber app and blocks until a termination signal.
func startServer(app *fiber.App, cfg config.Config, idleConnsClosed chan struct{}) {
	go func() {
		if err := app.Listen(cfg.Server.Host + cfg.Server.Port); err != nil {
			logging.Error("Server error", "error", err)
		}
	}()

	sigint := make(chan os.Signal, 1)
	signal.Notify(sigint, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigint)
	<-sigint

	logging.Warn("Shutdown signal received, closing server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logging.Error("Server forced to shutdown", "error", err)
	}

	close(idleConnsClosed)
	logging.Info("Server stopped cleanly")
}
