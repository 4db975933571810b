// Package handlers serves the invitation API.
package handlers

import (
	"errors"
	"mime"

	"github.com/gofiber/fiber/v2"

	"invitegen/internal/domain"
	"invitegen/internal/http/middleware"
	"invitegen/internal/infra/cache"
	"invitegen/internal/infra/chrome"
	"invitegen/internal/infra/logging"
	"invitegen/internal/invitation"
)

// InvitationService serves generation requests. A nil Cache disables
// artifact caching and a nil Pool reports the chrome renderer as disabled.
type InvitationService struct {
	Generator *invitation.Generator
	Cache     *cache.Artifacts
	Pool      *chrome.Pool
}

func NewInvitationService(gen *invitation.Generator, artifacts *cache.Artifacts, pool *chrome.Pool) *InvitationService {
	return &InvitationService{Generator: gen, Cache: artifacts, Pool: pool}
}

// HandleGenerate handles POST /v1/invitations with a JSON or form body.
func (svc *InvitationService) HandleGenerate(c *fiber.Ctx) error {
	var req invitation.Request
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body.")
	}

	t, err := svc.Generator.Composer().Validate(req)
	if err != nil {
		return generationError(err)
	}

	role := ""
	if t.RoleAt != nil {
		role = req.Role
	}
	key := cache.Key(t.Name, req.Name, role, req.Background)
	if svc.Cache != nil {
		if hit := svc.Cache.Get(c.UserContext(), key); hit != nil {
			c.Set("X-Cache", "HIT")
			return sendArtifact(c, hit.Filename, hit.ContentType, hit.Data)
		}
	}

	art, err := svc.Generator.Generate(c.UserContext(), middleware.ClientKey(c), req)
	if err != nil {
		return generationError(err)
	}

	if svc.Cache != nil {
		svc.Cache.Set(c.UserContext(), key, cache.Artifact{
			Filename:    art.Filename,
			ContentType: art.ContentType,
			Data:        art.Data,
		})
		c.Set("X-Cache", "MISS")
	}
	logging.Info("Invitation sent", "template", t.Name, "filename", art.Filename, "bytes", len(art.Data))
	return sendArtifact(c, art.Filename, art.ContentType, art.Data)
}

type canvasView struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type templateView struct {
	Name       string     `json:"name"`
	Mode       string     `json:"mode"`
	Fields     []string   `json:"fields"`
	Attachment bool       `json:"attachment"`
	Canvas     canvasView `json:"canvas"`
}

// HandleTemplates handles GET /v1/templates.
func (svc *InvitationService) HandleTemplates(c *fiber.Ctx) error {
	composer := svc.Generator.Composer()
	def, err := composer.Template("")
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "No default template configured.")
	}

	out := make([]templateView, 0)
	for _, t := range composer.Templates() {
		out = append(out, templateView{
			Name:       t.Name,
			Mode:       string(t.Mode),
			Fields:     t.Fields(),
			Attachment: t.Attachment != "",
			Canvas:     canvasView{Width: t.Width, Height: t.Height},
		})
	}
	return c.JSON(fiber.Map{
		"default":   def.Name,
		"templates": out,
	})
}

// HandleRendererStats handles GET /v1/renderer/stats.
func (svc *InvitationService) HandleRendererStats(c *fiber.Ctx) error {
	var st chrome.Stats
	if svc.Pool != nil {
		st = svc.Pool.Stats()
	}
	return c.JSON(st)
}

func sendArtifact(c *fiber.Ctx, filename, contentType string, data []byte) error {
	if cd := mime.FormatMediaType("attachment", map[string]string{"filename": filename}); cd != "" {
		c.Set(fiber.HeaderContentDisposition, cd)
	} else {
		c.Attachment(filename)
	}
	c.Set(fiber.HeaderContentType, contentType)
	return c.Send(data)
}

// generationError maps domain errors to HTTP errors with user-facing messages.
// Causes of generation failures stay in the log.
func generationError(err error) error {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		return fiber.NewError(fiber.StatusBadRequest, ve.Message)
	case errors.Is(err, domain.ErrUnknownTemplate):
		return fiber.NewError(fiber.StatusNotFound, "Unknown template.")
	case errors.Is(err, domain.ErrBusy):
		return fiber.NewError(fiber.StatusConflict, domain.MsgBusy)
	default:
		return fiber.NewError(fiber.StatusInternalServerError, domain.MsgGenerationFailed)
	}
}
