package chrome

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"html/template"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"invitegen/internal/infra/logging"
	"invitegen/internal/render"
)

const pointsPerInch = 72.0

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><style>
@page { size: {{.Width}}pt {{.Height}}pt; margin: 0; }
html, body { margin: 0; padding: 0; }
.page { position: relative; width: {{.Width}}pt; height: {{.Height}}pt; overflow: hidden; }
.page img { position: absolute; display: block; }
</style></head><body><div class="page">
{{range .Images}}<img src="{{.Src}}" style="left: {{.X}}pt; top: {{.Y}}pt; width: {{.W}}pt; height: {{.H}}pt;">
{{end}}</div></body></html>`))

type htmlImage struct {
	Src        template.URL
	X, Y, W, H float64
}

type htmlPage struct {
	Width, Height float64
	Images        []htmlImage
}

// Renderer prints Page layouts through Chrome.
type Renderer struct {
	pool      *Pool
	pageWidth float64
	timeout   time.Duration
}

func NewRenderer(pool *Pool, pageWidth float64, timeout time.Duration) *Renderer {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Renderer{pool: pool, pageWidth: pageWidth, timeout: timeout}
}

func (r *Renderer) Stats() Stats { return r.pool.Stats() }

func (r *Renderer) RenderPage(ctx context.Context, pg render.Page) ([]byte, error) {
	html, layout, err := pageHTML(pg, r.pageWidth)
	if err != nil {
		return nil, err
	}

	runOnce := func() ([]byte, error) {
		acquireCtx, acquireCancel := context.WithTimeout(ctx, 5*time.Second)
		defer acquireCancel()

		tab, err := r.pool.Acquire(acquireCtx)
		if err != nil {
			return nil, err
		}

		tabCtx, cancel := context.WithTimeout(tab.Ctx, r.timeout)
		stop := context.AfterFunc(ctx, cancel)
		out, renderErr := renderInTab(tabCtx, html, layout.Width/pointsPerInch, layout.Height/pointsPerInch)
		stop()
		cancel()

		r.pool.Release(tab, renderErr)
		return out, renderErr
	}

	out, err := runOnce()
	if err != nil && IsSessionInterrupted(err) && ctx.Err() == nil {
		logging.Warn("Chrome session interrupted; restarting pool and retrying once", "error", err)
		_ = r.pool.Restart()
		return runOnce()
	}
	return out, err
}

// pageHTML lays the page out as absolutely positioned images in points.
func pageHTML(pg render.Page, pageWidth float64) (string, render.Layout, error) {
	layout, err := pg.Resolve(pageWidth)
	if err != nil {
		return "", render.Layout{}, err
	}

	data := htmlPage{Width: layout.Width, Height: layout.Height}
	data.Images = append(data.Images, htmlImage{
		Src: dataURI(pg.Background.PNG),
		W:   layout.Background.W,
		H:   layout.Background.H,
	})
	for i, o := range pg.Overlays {
		box := layout.Overlays[i]
		data.Images = append(data.Images, htmlImage{Src: dataURI(o.Image.PNG), X: box.X, Y: box.Y, W: box.W, H: box.H})
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		return "", render.Layout{}, fmt.Errorf("chrome: page html: %w", err)
	}
	return buf.String(), layout, nil
}

func dataURI(png []byte) template.URL {
	return template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(png))
}

// renderInTab loads html into the tab and prints it on a single page of the
// given size in inches.
func renderInTab(ctx context.Context, html string, widthIn, heightIn float64) ([]byte, error) {
	var pdfBuf []byte
	err := chromedp.Run(ctx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frame, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frame.Frame.ID, html).Do(ctx)
		}),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			return waitForRenderReady(ctx, 100*time.Millisecond)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			pdfBuf, _, err = page.PrintToPDF().
				WithPrintBackground(true).
				WithPreferCSSPageSize(true).
				WithPaperWidth(widthIn).
				WithPaperHeight(heightIn).
				WithMarginTop(0).
				WithMarginBottom(0).
				WithMarginLeft(0).
				WithMarginRight(0).
				WithPageRanges("1").
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, err
	}
	return pdfBuf, nil
}

// waitForRenderReady gives image decoding a moment to settle.
func waitForRenderReady(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
