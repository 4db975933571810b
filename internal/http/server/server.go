// Package server assembles the fiber application.
package server

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/monitor"

	"invitegen/internal/config"
	"invitegen/internal/http/handlers"
	"invitegen/internal/http/middleware"
	"invitegen/internal/infra/cache"
	"invitegen/internal/infra/chrome"
	"invitegen/internal/infra/logging"
	"invitegen/internal/invitation"
	"invitegen/internal/tokens"
)

// Deps are the collaborators the routes need. Artifacts, Auth and Pool are
// optional.
type Deps struct {
	Config    config.Config
	Generator *invitation.Generator
	Artifacts *cache.Artifacts
	Auth      *tokens.Cache
	Pool      *chrome.Pool
}

// New creates the fiber app with middleware, routes and JSON errors.
func New(d Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		Prefork:               d.Config.Server.Prefork,
		BodyLimit:             d.Config.Server.BodyLimit,
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})

	middleware.Register(app, d.Config, d.Auth)
	registerRoutes(app, d)

	// Ensure all responses, including 404s, return JSON.
	app.Use(func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusNotFound, "Not Found")
	})

	return app
}

func registerRoutes(app *fiber.App, d Deps) {
	v1 := app.Group("/v1")

	svc := handlers.NewInvitationService(d.Generator, d.Artifacts, d.Pool)
	v1.Post("/invitations", svc.HandleGenerate)
	v1.Get("/templates", svc.HandleTemplates)
	v1.Get("/renderer/stats", svc.HandleRendererStats)

	v1.Get("/monitor", monitor.New())
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := "Internal Server Error"

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		msg = e.Message
	}

	logging.Warn("Request failed", "path", c.Path(), "status", code, "message", msg)

	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    code,
			"message": msg,
		},
	})
}
