package ratelimit

import (
	"github.com/gofiber/fiber/v2"
	memoryStorage "github.com/gofiber/storage/memory/v2"
	redisStorage "github.com/gofiber/storage/redis/v2"

	"invitegen/internal/infra/logging"
)

type RedisConfig struct {
	Addr string
	DB   int
}

// NewStore returns the limiter storage. It prefers Redis and falls back to
// process memory when Redis is not configured or unreachable.
func NewStore(cfg RedisConfig) (store fiber.Storage) {
	store = memoryStorage.New()
	if cfg.Addr == "" {
		logging.Info("Using in-memory storage for rate limiting")
		return store
	}

	defer func() {
		if r := recover(); r != nil {
			logging.Error("Redis limiter store init panicked, falling back to memory", "panic", r)
		}
	}()
	store = redisStorage.New(redisStorage.Config{
		Addrs:    []string{cfg.Addr},
		Database: cfg.DB,
	})
	logging.Info("Using Redis for rate limiting", "addr", cfg.Addr, "db", cfg.DB)
	return store
}
