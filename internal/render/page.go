// Package render turns single-page invitation layouts into PDF documents and
// appends secondary PDFs to them.
package render

import (
	"context"
	"fmt"
)

// Image is an encoded PNG together with its pixel size.
type Image struct {
	Name   string
	PNG    []byte
	Width  int
	Height int
}

// Overlay is an image placed at X, Y in background pixel space.
type Overlay struct {
	Image Image
	X, Y  float64
}

// Page is a full-bleed background with absolutely positioned overlays.
type Page struct {
	Background Image
	Overlays   []Overlay
}

// Box is a rectangle in PDF points.
type Box struct {
	X, Y, W, H float64
}

// Layout is a Page resolved to PDF points for a given page width.
type Layout struct {
	Width, Height float64
	Scale         float64
	Background    Box
	Overlays      []Box
}

// PageRenderer renders one Page to a single-page PDF.
type PageRenderer interface {
	RenderPage(ctx context.Context, page Page) ([]byte, error)
}

// MergingRenderer renders a page followed by the pages of other documents
// into a single PDF.
type MergingRenderer interface {
	RenderMerged(ctx context.Context, page Page, docs ...[]byte) ([]byte, error)
}

// Resolve scales the page so the background spans pageWidth points. The page
// height keeps the background aspect ratio.
func (p Page) Resolve(pageWidth float64) (Layout, error) {
	if p.Background.Width <= 0 || p.Background.Height <= 0 {
		return Layout{}, fmt.Errorf("render: background has no size")
	}
	if pageWidth <= 0 {
		return Layout{}, fmt.Errorf("render: page width must be positive")
	}
	scale := pageWidth / float64(p.Background.Width)
	l := Layout{
		Width:      pageWidth,
		Height:     float64(p.Background.Height) * scale,
		Scale:      scale,
		Background: Box{W: pageWidth, H: float64(p.Background.Height) * scale},
	}
	for _, o := range p.Overlays {
		l.Overlays = append(l.Overlays, Box{
			X: o.X * scale,
			Y: o.Y * scale,
			W: float64(o.Image.Width) * scale,
			H: float64(o.Image.Height) * scale,
		})
	}
	return l, nil
}
