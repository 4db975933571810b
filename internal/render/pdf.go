package render

import (
	"bytes"
	"context"
	"fmt"
	"time"

	gofpdf "github.com/lvillar/gofpdf"
)

// DocumentDate is stamped as creation and modification date on every PDF so
// identical inputs produce identical bytes.
var DocumentDate = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// PDFRenderer draws pages with gofpdf.
type PDFRenderer struct {
	PageWidth float64
}

func NewPDFRenderer(pageWidth float64) *PDFRenderer {
	return &PDFRenderer{PageWidth: pageWidth}
}

// NewDocument returns an empty point-based document with automatic page
// breaks disabled and pinned metadata.
func NewDocument() *gofpdf.Fpdf {
	pdf := gofpdf.NewDocument(gofpdf.WithUnit(gofpdf.UnitPoint))
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(0, 0, 0)
	pdf.SetCreationDate(DocumentDate)
	pdf.SetModificationDate(DocumentDate)
	pdf.SetCatalogSort(true)
	return pdf
}

func (r *PDFRenderer) RenderPage(ctx context.Context, page Page) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pdf := NewDocument()
	if err := DrawPage(pdf, page, r.PageWidth); err != nil {
		return nil, err
	}
	return output(pdf)
}

// RenderMerged draws page and appends every page of docs after it, in order.
// A document whose pages cannot be imported is reported as *ImportError with
// its index in docs.
func (r *PDFRenderer) RenderMerged(ctx context.Context, page Page, docs ...[]byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pdf := NewDocument()
	if err := DrawPage(pdf, page, r.PageWidth); err != nil {
		return nil, err
	}

	imp, err := newImporter()
	if err != nil {
		return nil, err
	}
	defer imp.Close()
	for i, doc := range docs {
		if err := imp.appendDocument(pdf, i, doc); err != nil {
			return nil, err
		}
	}
	return output(pdf)
}

// DrawPage adds page to pdf as a new page pageWidth points wide.
func DrawPage(pdf *gofpdf.Fpdf, page Page, pageWidth float64) error {
	layout, err := page.Resolve(pageWidth)
	if err != nil {
		return err
	}

	pdf.AddPageFormat("P", gofpdf.SizeType{Wd: layout.Width, Ht: layout.Height})
	placeImage(pdf, "background", page.Background, layout.Background)
	for i, o := range page.Overlays {
		placeImage(pdf, fmt.Sprintf("overlay-%d", i), o.Image, layout.Overlays[i])
	}
	if pdf.Err() {
		return fmt.Errorf("render: %w", pdf.Error())
	}
	return nil
}

func output(pdf *gofpdf.Fpdf) ([]byte, error) {
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render: output: %w", err)
	}
	return buf.Bytes(), nil
}

func placeImage(pdf *gofpdf.Fpdf, name string, img Image, box Box) {
	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(img.PNG))
	pdf.ImageOptions(name, box.X, box.Y, box.W, box.H, false, opts, 0, "")
}
