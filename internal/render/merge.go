package render

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	gofpdf "github.com/lvillar/gofpdf"
	"github.com/lvillar/gofpdf/contrib/gofpdi"
	"github.com/lvillar/gofpdf/reader"
)

// A4 fallback used when an imported page reports no MediaBox.
const (
	a4Width  = 595.28
	a4Height = 841.89
)

// ImportError reports a document whose pages could not be parsed or imported.
type ImportError struct {
	Index int
	Err   error
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("render: document %d: %v", e.Index+1, e.Err)
}

func (e *ImportError) Unwrap() error { return e.Err }

// Merge concatenates the pages of docs, in order, into a new PDF.
func Merge(docs ...[]byte) ([]byte, error) {
	if len(docs) == 0 {
		return nil, fmt.Errorf("render: no documents to merge")
	}

	imp, err := newImporter()
	if err != nil {
		return nil, err
	}
	defer imp.Close()

	pdf := NewDocument()
	for i, doc := range docs {
		if err := imp.appendDocument(pdf, i, doc); err != nil {
			return nil, err
		}
	}
	return output(pdf)
}

// PageCount parses data and returns its number of pages.
func PageCount(data []byte) (int, error) {
	doc, err := reader.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return 0, err
	}
	return doc.NumPages(), nil
}

// importer appends pages of existing PDFs to a document. gofpdi keys imported
// objects by source file name, so every document is imported from its own
// file; stream sources would overwrite each other.
type importer struct {
	imp *gofpdi.Importer
	dir string
}

func newImporter() (*importer, error) {
	dir, err := os.MkdirTemp("", "invitegen-merge-*")
	if err != nil {
		return nil, fmt.Errorf("render: merge dir: %w", err)
	}
	return &importer{imp: gofpdi.NewImporter(), dir: dir}, nil
}

func (im *importer) Close() {
	_ = os.RemoveAll(im.dir)
}

// appendDocument adds every page of data to pdf. Parse and import failures
// are returned as *ImportError.
func (im *importer) appendDocument(pdf *gofpdf.Fpdf, index int, data []byte) (err error) {
	n, err := PageCount(data)
	if err != nil {
		return &ImportError{Index: index, Err: err}
	}
	if n == 0 {
		return &ImportError{Index: index, Err: fmt.Errorf("document has no pages")}
	}

	path := filepath.Join(im.dir, fmt.Sprintf("doc-%d.pdf", index))
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("render: stage document %d: %w", index+1, err)
	}

	// gofpdi panics on malformed input.
	defer func() {
		if r := recover(); r != nil {
			err = &ImportError{Index: index, Err: fmt.Errorf("import: %v", r)}
		}
	}()

	for page := 1; page <= n; page++ {
		tpl := im.imp.ImportPage(pdf, path, page, "/MediaBox")
		w, h := a4Width, a4Height
		if dims, ok := im.imp.GetPageSizes()[page]; ok {
			if mb, ok := dims["/MediaBox"]; ok && mb["w"] > 0 && mb["h"] > 0 {
				w, h = mb["w"], mb["h"]
			}
		}
		pdf.AddPageFormat("P", gofpdf.SizeType{Wd: w, Ht: h})
		im.imp.UseImportedTemplate(pdf, tpl, 0, 0, w, h)
	}
	if pdf.Err() {
		return &ImportError{Index: index, Err: pdf.Error()}
	}
	return nil
}
