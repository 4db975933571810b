package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"invitegen/internal/infra/logging"
)

// RateLimitConfig mirrors the rate_limiter config section.
type RateLimitConfig struct {
	RateInterval           time.Duration
	EnableUserLimiter      bool
	UserLimit              int
	EnableTokenRateLimiter bool
}

// TokenRater returns the per-interval request limit of a token, 0 meaning
// unlimited.
type TokenRater interface {
	RateLimit(token string) int
}

// LimiterCache keeps one limiter handler per distinct token limit.
type LimiterCache struct {
	mu       sync.RWMutex
	handlers map[int]fiber.Handler
}

func NewLimiterCache() *LimiterCache {
	return &LimiterCache{handlers: make(map[int]fiber.Handler)}
}

func (lc *LimiterCache) get(limit int, build func() fiber.Handler) fiber.Handler {
	lc.mu.RLock()
	h, ok := lc.handlers[limit]
	lc.mu.RUnlock()
	if ok {
		return h
	}

	lc.mu.Lock()
	defer lc.mu.Unlock()
	if h, ok := lc.handlers[limit]; ok {
		return h
	}
	h = build()
	lc.handlers[limit] = h
	return h
}

// APIKey returns the authenticated token of the request, if any.
func APIKey(c *fiber.Ctx) string {
	token, _ := c.Locals(apiKeyLocal).(string)
	return token
}

// ClientKey identifies the caller: its API token when authenticated,
// otherwise a hash of the client IP and User-Agent.
func ClientKey(c *fiber.Ctx) string {
	if token := APIKey(c); token != "" {
		return "token:" + token
	}
	sum := sha256.Sum256([]byte(c.IP() + c.Get(fiber.HeaderUserAgent)))
	return "user:" + hex.EncodeToString(sum[:])
}

func tooManyRequests(c *fiber.Ctx) error {
	return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    fiber.StatusTooManyRequests,
			"message": "Too many requests",
		},
	})
}

// TokenRateLimit applies the authenticated token's own limit.
func TokenRateLimit(cfg RateLimitConfig, rater TokenRater, store fiber.Storage, cache *LimiterCache) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !cfg.EnableTokenRateLimiter {
			return c.Next()
		}
		token := APIKey(c)
		if token == "" {
			return c.Next()
		}
		limit := rater.RateLimit(token)
		if limit <= 0 {
			return c.Next()
		}
		h := cache.get(limit, func() fiber.Handler {
			return limiter.New(limiter.Config{
				Max:               limit,
				Expiration:        cfg.RateInterval,
				LimiterMiddleware: limiter.SlidingWindow{},
				Storage:           store,
				KeyGenerator:      ClientKey,
				LimitReached: func(c *fiber.Ctx) error {
					logging.Warn("Rate limit exceeded", "token", APIKey(c), "path", c.Path())
					return tooManyRequests(c)
				},
			})
		})
		return h(c)
	}
}

// UserRateLimit limits anonymous callers by IP and User-Agent. Authenticated
// requests are left to TokenRateLimit.
func UserRateLimit(cfg RateLimitConfig, store fiber.Storage) fiber.Handler {
	if !cfg.EnableUserLimiter && cfg.UserLimit <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	max := cfg.UserLimit
	if max <= 0 {
		max = 5
	}
	userLimiter := limiter.New(limiter.Config{
		Max:               max,
		Expiration:        cfg.RateInterval,
		LimiterMiddleware: limiter.SlidingWindow{},
		Storage:           store,
		KeyGenerator:      ClientKey,
		Next: func(c *fiber.Ctx) bool {
			return APIKey(c) != ""
		},
		LimitReached: func(c *fiber.Ctx) error {
			logging.Warn("Rate limit exceeded", "user", ClientKey(c), "path", c.Path())
			return tooManyRequests(c)
		},
	})
	return userLimiter
}
