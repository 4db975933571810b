package invitation

import (
	"time"

	"invitegen/internal/assets"
	"invitegen/internal/config"
	"invitegen/internal/infra/chrome"
	"invitegen/internal/infra/logging"
	"invitegen/internal/render"
	"invitegen/internal/textart"
)

// NewFromConfig wires a Generator from configuration. The returned pool is
// non-nil only for the chrome renderer and must be closed by the caller.
func NewFromConfig(cfg config.Config, observer StateObserver) (*Generator, *chrome.Pool, error) {
	fonts, err := textart.LoadFonts(cfg.Text.FontPath)
	if err != nil {
		logging.Warn("Custom font unavailable, using embedded fonts", "path", cfg.Text.FontPath, "error", err)
		if fonts, err = textart.EmbeddedFonts(); err != nil {
			return nil, nil, err
		}
	}
	raster := textart.NewRasterizer(fonts, textart.Options{
		Color:         cfg.Text.Color,
		MinFontSize:   cfg.Text.MinFontSize,
		Margin:        cfg.Text.Margin,
		FirstBaseline: cfg.Text.FirstBaseline,
		LineGap:       cfg.Text.LineGap,
	})

	loader := assets.NewLoader(assets.Options{
		FetchTimeout: cfg.Assets.FetchTimeout,
		MaxBytes:     cfg.Assets.MaxBytes,
	})

	for _, p := range cfg.CoincidingPlacements() {
		logging.Warn("Short and long placements coincide; length threshold has no effect", "placement", p)
	}

	var pages render.PageRenderer = render.NewPDFRenderer(cfg.PDF.PageWidth)
	var pool *chrome.Pool
	if cfg.PDF.Renderer == config.RendererChrome {
		pool, err = chrome.NewPool(chrome.Options{
			ExecPath:    cfg.PDF.ChromePath,
			NoSandbox:   cfg.PDF.ChromeNoSandbox,
			PoolSize:    cfg.PDF.ChromePoolSize,
			UserDataDir: cfg.PDF.UserDataDir,
		})
		if err != nil {
			return nil, nil, err
		}
		pages = chrome.NewRenderer(pool, cfg.PDF.PageWidth, time.Duration(cfg.PDF.TimeoutSecs)*time.Second)
	}

	composer := NewComposer(TemplatesFromConfig(cfg), cfg.DefaultTemplate, raster, loader, pages)
	return NewGenerator(composer, observer), pool, nil
}
