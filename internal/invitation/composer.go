// Package invitation validates invitation requests and composes the
// rasterized name onto a template background as PNG or PDF.
package invitation

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/gogpu/gg"

	"invitegen/internal/assets"
	"invitegen/internal/domain"
	"invitegen/internal/infra/logging"
	"invitegen/internal/render"
	"invitegen/internal/textart"
)

// Request is one invitation to generate. An empty Template selects the
// default template. Background optionally replaces the template background
// with a data URL; an undecodable one falls back to the template's.
type Request struct {
	Template   string `json:"template" form:"template"`
	Name       string `json:"name" form:"name"`
	Role       string `json:"role" form:"role"`
	Background string `json:"background" form:"background"`
}

// AssetSource resolves background and attachment references.
type AssetSource interface {
	Background(ctx context.Context, ref string) (*assets.Background, error)
	Document(ctx context.Context, ref string) ([]byte, error)
}

// TextRasterizer renders text to a transparent image.
type TextRasterizer interface {
	Rasterize(req textart.TextRequest) (*textart.RasterizedText, error)
}

type Composer struct {
	templates       map[string]Template
	defaultTemplate string
	text            TextRasterizer
	assets          AssetSource
	pages           render.PageRenderer
	merge           func(docs ...[]byte) ([]byte, error)
}

func NewComposer(templates map[string]Template, defaultTemplate string, text TextRasterizer, assets AssetSource, pages render.PageRenderer) *Composer {
	return &Composer{
		templates:       templates,
		defaultTemplate: defaultTemplate,
		text:            text,
		assets:          assets,
		pages:           pages,
		merge:           render.Merge,
	}
}

// Templates returns the configured templates sorted by name.
func (c *Composer) Templates() []Template {
	out := make([]Template, 0, len(c.templates))
	for _, t := range c.templates {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Template resolves a template name, falling back to the default for "".
func (c *Composer) Template(name string) (Template, error) {
	if name == "" {
		name = c.defaultTemplate
	}
	t, ok := c.templates[name]
	if !ok {
		return Template{}, fmt.Errorf("%w: %s", domain.ErrUnknownTemplate, name)
	}
	return t, nil
}

// Validate checks the request without doing any rendering work.
func (c *Composer) Validate(req Request) (Template, error) {
	t, err := c.Template(req.Template)
	if err != nil {
		return Template{}, err
	}
	if strings.TrimSpace(req.Name) == "" {
		return Template{}, domain.NewValidationError("name", domain.MsgNameRequired)
	}
	if t.RoleAt != nil && strings.TrimSpace(req.Role) == "" {
		return Template{}, domain.NewValidationError("role", domain.MsgRoleRequired)
	}
	if req.Background != "" && !strings.HasPrefix(req.Background, "data:") {
		return Template{}, domain.NewValidationError("background", domain.MsgBackgroundDataURL)
	}
	return t, nil
}

// Compose validates req and produces the artifact. Failures after validation
// are *domain.GenerationError values.
func (c *Composer) Compose(ctx context.Context, req Request) (*Artifact, error) {
	t, err := c.Validate(req)
	if err != nil {
		return nil, err
	}

	bg, err := c.background(ctx, t, req)
	if err != nil {
		return nil, err
	}

	overlays, err := c.overlays(t, req)
	if err != nil {
		return nil, err
	}

	var data []byte
	switch t.Mode {
	case ModeImage:
		data, err = composeImage(bg, overlays)
	case ModePDF:
		data, err = c.composePDF(ctx, bg, overlays)
	case ModePDFMerge:
		data, err = c.composeMerged(ctx, t, bg, overlays)
	default:
		err = domain.EncodeError(domain.StageCompose, fmt.Errorf("unsupported mode %q", t.Mode))
	}
	if err != nil {
		return nil, err
	}

	return &Artifact{
		Filename:    artifactFilename(req.Name, t.Extension()),
		ContentType: t.ContentType(),
		Data:        data,
	}, nil
}

func (c *Composer) background(ctx context.Context, t Template, req Request) (*assets.Background, error) {
	if req.Background != "" {
		bg, err := c.assets.Background(ctx, req.Background)
		if err == nil {
			return bg, nil
		}
		logging.Warn("Request background unusable, using template background", "template", t.Name, "error", err)
	}
	bg, err := c.assets.Background(ctx, t.Background)
	if err != nil {
		return nil, domain.AssetLoadError(domain.StageBackground, err)
	}
	return bg, nil
}

type overlay struct {
	text *textart.RasterizedText
	at   Position
}

func (c *Composer) overlays(t Template, req Request) ([]overlay, error) {
	name, err := c.rasterize(t, req.Name)
	if err != nil {
		return nil, err
	}
	out := []overlay{{text: name, at: t.NameAt.Select(utf8.RuneCountInString(req.Name))}}

	if t.RoleAt != nil {
		role, err := c.rasterize(t, req.Role)
		if err != nil {
			return nil, err
		}
		out = append(out, overlay{text: role, at: t.RoleAt.Select(utf8.RuneCountInString(req.Role))})
	}
	return out, nil
}

func (c *Composer) rasterize(t Template, s string) (*textart.RasterizedText, error) {
	rt, err := c.text.Rasterize(textart.TextRequest{
		Text:        s,
		Width:       t.Width,
		Height:      t.Height,
		Emphasis:    t.Emphasis,
		MaxFontSize: t.MaxFontSize,
	})
	if err != nil {
		var ge *domain.GenerationError
		if errors.As(err, &ge) {
			return nil, err
		}
		return nil, domain.EncodeError(domain.StageRasterize, err)
	}
	return rt, nil
}

// composeImage draws the overlays onto the background at native size.
func composeImage(bg *assets.Background, overlays []overlay) ([]byte, error) {
	dc := gg.NewContextForImage(bg.Image)
	defer dc.Close()

	for _, o := range overlays {
		dc.DrawImageEx(gg.ImageBufFromImage(o.text.Image), gg.DrawImageOptions{
			X:             o.at.X,
			Y:             o.at.Y,
			Interpolation: gg.InterpNearest,
			Opacity:       1,
			BlendMode:     gg.BlendNormal,
		})
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, domain.EncodeError(domain.StageCompose, err)
	}
	return buf.Bytes(), nil
}

func pageFor(bg *assets.Background, overlays []overlay) render.Page {
	page := render.Page{
		Background: render.Image{Name: "background", PNG: bg.PNG, Width: bg.Width, Height: bg.Height},
	}
	for _, o := range overlays {
		b := o.text.Image.Bounds()
		page.Overlays = append(page.Overlays, render.Overlay{
			Image: render.Image{PNG: o.text.PNG, Width: b.Dx(), Height: b.Dy()},
			X:     o.at.X,
			Y:     o.at.Y,
		})
	}
	return page
}

func (c *Composer) composePDF(ctx context.Context, bg *assets.Background, overlays []overlay) ([]byte, error) {
	data, err := c.pages.RenderPage(ctx, pageFor(bg, overlays))
	if err != nil {
		return nil, domain.EncodeError(domain.StageRender, err)
	}
	return data, nil
}

// composeMerged puts the invitation page first and the attachment's pages
// after it. Renderers that can draw into the merged document do so; the rest
// render the page on its own and have it merged.
func (c *Composer) composeMerged(ctx context.Context, t Template, bg *assets.Background, overlays []overlay) ([]byte, error) {
	attachment, err := c.assets.Document(ctx, t.Attachment)
	if err != nil {
		return nil, domain.AssetLoadError(domain.StageAttachment, err)
	}

	if m, ok := c.pages.(render.MergingRenderer); ok {
		merged, err := m.RenderMerged(ctx, pageFor(bg, overlays), attachment)
		if err != nil {
			return nil, mergeError(err, 0)
		}
		return merged, nil
	}

	primary, err := c.composePDF(ctx, bg, overlays)
	if err != nil {
		return nil, err
	}
	merged, err := c.merge(primary, attachment)
	if err != nil {
		return nil, mergeError(err, 1)
	}
	return merged, nil
}

// mergeError blames the attachment when the document at attachmentIndex could
// not be parsed or imported.
func mergeError(err error, attachmentIndex int) error {
	var ie *render.ImportError
	if errors.As(err, &ie) && ie.Index == attachmentIndex {
		return domain.AssetLoadError(domain.StageAttachment, err)
	}
	return domain.EncodeError(domain.StageMerge, err)
}
