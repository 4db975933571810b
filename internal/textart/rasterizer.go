// Package textart renders short texts as styled, word-wrapped transparent
// images.
package textart

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"strings"

	"github.com/gogpu/gg"
	"github.com/gogpu/gg/text"

	"invitegen/internal/domain"
)

// Defaults applied when Options leaves a field zero.
const (
	DefaultColor         = "#b40000"
	DefaultMaxFontSize   = 20.0
	DefaultMinFontSize   = 14.0
	DefaultMargin        = 10.0
	DefaultFirstBaseline = 40.0
	DefaultLineGap       = 10.0
)

// Options controls the appearance shared by every rasterized text.
type Options struct {
	Color         string
	MinFontSize   float64
	Margin        float64
	FirstBaseline float64
	LineGap       float64
}

func (o Options) withDefaults() Options {
	if o.Color == "" {
		o.Color = DefaultColor
	}
	if o.MinFontSize <= 0 {
		o.MinFontSize = DefaultMinFontSize
	}
	if o.Margin <= 0 {
		o.Margin = DefaultMargin
	}
	if o.FirstBaseline <= 0 {
		o.FirstBaseline = DefaultFirstBaseline
	}
	if o.LineGap <= 0 {
		o.LineGap = DefaultLineGap
	}
	return o
}

// TextRequest describes one text to rasterize.
type TextRequest struct {
	Text        string
	Width       int
	Height      int
	Emphasis    bool
	MaxFontSize float64
}

// RasterizedText is the result of Rasterize. Image is exactly Width x Height.
type RasterizedText struct {
	Image    *image.RGBA
	PNG      []byte
	FontSize float64
	Lines    []string
}

type Rasterizer struct {
	fonts *Fonts
	opts  Options
}

func NewRasterizer(fonts *Fonts, opts Options) *Rasterizer {
	if fonts == nil || fonts.Bold == nil || fonts.SemiBold == nil {
		panic("textart: fonts are required")
	}
	return &Rasterizer{fonts: fonts, opts: opts.withDefaults()}
}

// Rasterize fits the text into the request width by shrinking the font down
// to the minimum size, wraps it greedily on whitespace and draws it onto a
// transparent canvas. Lines below the canvas are clipped.
func (r *Rasterizer) Rasterize(req TextRequest) (*RasterizedText, error) {
	if req.Width <= 0 || req.Height <= 0 {
		panic(fmt.Sprintf("textart: invalid canvas %dx%d", req.Width, req.Height))
	}

	maxSize := req.MaxFontSize
	if maxSize <= 0 {
		maxSize = DefaultMaxFontSize
	}
	if maxSize < r.opts.MinFontSize {
		maxSize = r.opts.MinFontSize
	}
	limit := float64(req.Width) - 2*r.opts.Margin
	src := r.fonts.source(req.Emphasis)
	measure := func(s string, size float64) float64 {
		w, _ := text.Measure(s, src.Face(size))
		return w
	}

	sizes := fitFontSize(req.Text, limit, maxSize, r.opts.MinFontSize, measure)
	size := sizes[len(sizes)-1]
	lines := wrapWords(req.Text, limit, func(s string) float64 { return measure(s, size) })

	dc := gg.NewContext(req.Width, req.Height)
	defer dc.Close()

	dc.SetFont(src.Face(size))
	dc.SetHexColor(r.opts.Color)
	for i, line := range lines {
		y := r.opts.FirstBaseline + float64(i)*(size+r.opts.LineGap)
		dc.DrawString(line, r.opts.Margin, y)
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, domain.EncodeError(domain.StageRasterize, err)
	}

	return &RasterizedText{
		Image:    toRGBA(dc.Image()),
		PNG:      buf.Bytes(),
		FontSize: size,
		Lines:    lines,
	}, nil
}

// fitFontSize returns every size tried, starting at maxSize and ending at the
// chosen one. Sizes only decrease and never go below minSize.
func fitFontSize(s string, limit, maxSize, minSize float64, measure func(string, float64) float64) []float64 {
	size := maxSize
	sizes := []float64{size}
	for measure(s, size) > limit && size > minSize {
		size--
		if size < minSize {
			size = minSize
		}
		sizes = append(sizes, size)
	}
	return sizes
}

// wrapWords splits s into lines no wider than limit. A word that alone
// exceeds the limit gets a line of its own.
func wrapWords(s string, limit float64, measure func(string) float64) []string {
	var lines []string
	current := ""
	for _, word := range strings.Fields(s) {
		candidate := current + word + " "
		if current != "" && measure(candidate) > limit {
			lines = append(lines, strings.TrimSpace(current))
			current = word + " "
			continue
		}
		current = candidate
	}
	if last := strings.TrimSpace(current); last != "" {
		lines = append(lines, last)
	}
	return lines
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return rgba
}
