// Package rendertest inspects generated PDFs in tests.
package rendertest

import (
	"bytes"
	"regexp"
	"testing"

	gofpdf "github.com/lvillar/gofpdf"
	"github.com/lvillar/gofpdf/reader"
	"github.com/stretchr/testify/require"
)

// TextPDF builds an A4 document with one page per text.
func TextPDF(t testing.TB, pages ...string) []byte {
	t.Helper()
	pdf := gofpdf.New("P", "pt", "A4", "")
	pdf.SetFont("Helvetica", "", 12)
	for _, s := range pages {
		pdf.AddPage()
		pdf.Text(20, 40, s)
	}
	var buf bytes.Buffer
	require.NoError(t, pdf.Output(&buf))
	return buf.Bytes()
}

var doOperator = regexp.MustCompile(`/([^\s/\[\]<>()]+)\s+Do\b`)

// Content is what one page paints.
type Content struct {
	Images int
	Forms  int
	Text   string
}

// PageContent reports the image and form XObjects page n of data paints, and
// the text of its content stream and of those forms.
func PageContent(t testing.TB, data []byte, n int) Content {
	t.Helper()
	doc, err := reader.ReadFrom(bytes.NewReader(data))
	require.NoError(t, err)
	page, err := doc.Page(n)
	require.NoError(t, err)

	stream, err := page.ContentStream()
	require.NoError(t, err)
	var c Content
	c.Text, err = page.ExtractText()
	require.NoError(t, err)

	xobjects := page.Resources.GetDict("XObject")
	for _, m := range doOperator.FindAllSubmatch(stream, -1) {
		ref, ok := xobjects[reader.Name(m[1])].(reader.Reference)
		require.True(t, ok, "page %d paints unknown XObject %s", n, m[1])
		obj, err := doc.ResolveReference(ref)
		require.NoError(t, err)
		xobj, ok := obj.(reader.Stream)
		require.True(t, ok, "XObject %s is not a stream", m[1])

		switch sub := xobj.Dict.GetName("Subtype"); sub {
		case "Image":
			c.Images++
		case "Form":
			c.Forms++
			form := reader.Page{Number: n, Contents: []reader.Stream{xobj}}
			text, err := form.ExtractText()
			require.NoError(t, err)
			c.Text += text
		default:
			t.Fatalf("XObject %s has unexpected subtype %q", m[1], sub)
		}
	}
	return c
}
