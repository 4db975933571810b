package invitation

import (
	"invitegen/internal/config"
)

// Mode selects the artifact format a template produces.
type Mode string

const (
	ModeImage    Mode = config.ModeImage
	ModePDF      Mode = config.ModePDF
	ModePDFMerge Mode = config.ModePDFMerge
)

// Template is one invitation layout.
type Template struct {
	Name        string
	Mode        Mode
	Background  string
	Attachment  string
	Width       int
	Height      int
	MaxFontSize float64
	Emphasis    bool
	NameAt      Placement
	RoleAt      *Placement
}

// Fields lists the request fields the template reads.
func (t Template) Fields() []string {
	if t.RoleAt != nil {
		return []string{"name", "role"}
	}
	return []string{"name"}
}

// Extension is the artifact file extension without the dot.
func (t Template) Extension() string {
	if t.Mode == ModeImage {
		return "png"
	}
	return "pdf"
}

// ContentType is the artifact MIME type.
func (t Template) ContentType() string {
	if t.Mode == ModeImage {
		return "image/png"
	}
	return "application/pdf"
}

// TemplatesFromConfig converts the configured templates.
func TemplatesFromConfig(cfg config.Config) map[string]Template {
	out := make(map[string]Template, len(cfg.Templates))
	for name, c := range cfg.Templates {
		t := Template{
			Name:        name,
			Mode:        Mode(c.Mode),
			Background:  c.Background,
			Attachment:  c.Attachment,
			Width:       c.Canvas.Width,
			Height:      c.Canvas.Height,
			MaxFontSize: c.MaxFontSize,
			Emphasis:    c.Emphasis,
			NameAt:      placementFromConfig(c.Name),
		}
		if c.Role != nil {
			role := placementFromConfig(*c.Role)
			t.RoleAt = &role
		}
		out[name] = t
	}
	return out
}
