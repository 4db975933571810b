// Package middleware registers the global fiber middleware: CORS, request ids,
// health checks, API key auth, rate limits and request logging.
package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/healthcheck"
	"github.com/gofiber/fiber/v2/middleware/keyauth"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/rs/xid"

	"invitegen/internal/config"
	"invitegen/internal/infra/logging"
	"invitegen/internal/infra/ratelimit"
	"invitegen/internal/tokens"
)

const apiKeyLocal = "api_key"

// ScopeInvitations is the token scope required to call the API.
const ScopeInvitations = "invitations"

// Register attaches global middleware to the app. Token auth is enabled only
// when auth is non-nil.
func Register(app *fiber.App, cfg config.Config, auth *tokens.Cache) {
	store := ratelimit.NewStore(ratelimit.RedisConfig{
		Addr: cfg.Cache.RedisHost,
		DB:   cfg.Cache.RateLimitDB,
	})

	app.Use(cors.New())

	app.Use(requestid.New(requestid.Config{
		Generator: func() string {
			return xid.New().String()
		},
	}))

	app.Use(healthcheck.New(healthcheck.Config{
		LivenessEndpoint:  "/ops/health",
		ReadinessEndpoint: "/ops/ready",
		ReadinessProbe: func(*fiber.Ctx) bool {
			return auth == nil || auth.Ready()
		},
	}))

	if auth != nil {
		app.Use(KeyAuth(auth))
	}

	rlCfg := RateLimitConfig{
		RateInterval:           cfg.RateLimiter.Interval,
		EnableUserLimiter:      cfg.RateLimiter.EnableUserLimiter,
		UserLimit:              cfg.RateLimiter.UserLimit,
		EnableTokenRateLimiter: cfg.RateLimiter.EnableTokenRateLimiter,
	}
	if auth != nil {
		app.Use(TokenRateLimit(rlCfg, auth, store, NewLimiterCache()))
	}
	if rlCfg.EnableUserLimiter || rlCfg.UserLimit > 0 {
		app.Use(UserRateLimit(rlCfg, store))
	}

	app.Use(func(c *fiber.Ctx) error {
		requestID := c.Get(fiber.HeaderXRequestID)
		if requestID == "" {
			requestID = c.GetRespHeader(fiber.HeaderXRequestID)
		}
		logging.Info("Incoming request", "method", c.Method(), "path", c.Path(), "request_id", requestID)
		return c.Next()
	})
}

// KeyAuth validates X-API-Key against the token cache. Requests without the
// header pass through as anonymous callers.
func KeyAuth(auth *tokens.Cache) fiber.Handler {
	return keyauth.New(keyauth.Config{
		KeyLookup:  "header:X-API-Key",
		ContextKey: apiKeyLocal,
		Validator: func(c *fiber.Ctx, key string) (bool, error) {
			if err := auth.Validate(key, ScopeInvitations); err != nil {
				return false, err
			}
			return true, nil
		},
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions || c.Get("X-API-Key") == ""
		},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// keyauth may call the handler with a nil error.
			if err == nil {
				err = fiber.ErrUnauthorized
			}
			status := fiber.StatusUnauthorized
			switch {
			case errors.Is(err, tokens.ErrStoreNotReady):
				status = fiber.StatusServiceUnavailable
			case errors.Is(err, tokens.ErrScopeDenied):
				status = fiber.StatusForbidden
			}
			return c.Status(status).JSON(fiber.Map{
				"error": fiber.Map{
					"code":    status,
					"message": err.Error(),
				},
			})
		},
	})
}
