package assets

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invitegen/internal/render"
)

func solid(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 10, G: 120, B: 200, A: 255})
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newTestLoader() *Loader {
	return NewLoader(Options{FetchTimeout: 2 * time.Second, MaxBytes: 1 << 20})
}

func TestBuiltinInvitation(t *testing.T) {
	bg, err := newTestLoader().Background(context.Background(), "builtin:invitation")
	require.NoError(t, err)
	assert.Equal(t, ArtworkWidth, bg.Width)
	assert.Equal(t, ArtworkHeight, bg.Height)

	img, err := png.Decode(bytes.NewReader(bg.PNG))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, ArtworkWidth, ArtworkHeight), img.Bounds())
}

func TestBuiltinInvitation_Deterministic(t *testing.T) {
	a, err := InvitationArtwork()
	require.NoError(t, err)
	b, err := InvitationArtwork()
	require.NoError(t, err)
	assert.True(t, bytes.Equal(a, b))
}

func TestBuiltinProgramme(t *testing.T) {
	doc, err := newTestLoader().Document(context.Background(), "builtin:programme")
	require.NoError(t, err)
	n, err := render.PageCount(doc)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestFetch_UnknownBuiltin(t *testing.T) {
	_, err := newTestLoader().Fetch(context.Background(), "builtin:nope")
	assert.ErrorIs(t, err, ErrUnknownBuiltin)
}

func TestFetch_EmptyReference(t *testing.T) {
	_, err := newTestLoader().Fetch(context.Background(), "")
	assert.Error(t, err)
}

func TestFetch_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestLoader().Fetch(ctx, "builtin:invitation")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBackground_DataURL(t *testing.T) {
	data := encodePNG(t, solid(30, 20))
	ref := "data:image/png;base64," + base64.StdEncoding.EncodeToString(data)

	bg, err := newTestLoader().Background(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, 30, bg.Width)
	assert.Equal(t, 20, bg.Height)
	assert.Equal(t, data, bg.PNG)
}

func TestBackground_DataURLErrors(t *testing.T) {
	tests := []struct {
		name string
		ref  string
	}{
		{"no comma", "data:image/png;base64"},
		{"not base64", "data:image/png,abc"},
		{"bad payload", "data:image/png;base64,@@@"},
		{"not an image", "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("hello"))},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := newTestLoader().Background(context.Background(), tc.ref)
			assert.Error(t, err)
		})
	}
}

func TestBackground_JPEGFileIsReencoded(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, solid(40, 30), nil))
	p := filepath.Join(t.TempDir(), "bg.jpg")
	require.NoError(t, os.WriteFile(p, buf.Bytes(), 0o644))

	bg, err := newTestLoader().Background(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, 40, bg.Width)
	cfg, format, err := image.DecodeConfig(bytes.NewReader(bg.PNG))
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, 30, cfg.Height)
}

func TestFetch_FileTooLarge(t *testing.T) {
	p := filepath.Join(t.TempDir(), "big.bin")
	require.NoError(t, os.WriteFile(p, make([]byte, 2048), 0o644))
	l := NewLoader(Options{FetchTimeout: time.Second, MaxBytes: 1024})
	_, err := l.Fetch(context.Background(), p)
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestFetch_MissingFile(t *testing.T) {
	_, err := newTestLoader().Fetch(context.Background(), filepath.Join(t.TempDir(), "missing.png"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDocument_Remote(t *testing.T) {
	programme, err := ProgrammeDocument()
	require.NoError(t, err)

	mux := http.NewServeMux()
	mux.HandleFunc("/programme.pdf", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write(programme)
	})
	mux.HandleFunc("/text.pdf", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("plain text"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	l := newTestLoader()
	doc, err := l.Document(context.Background(), srv.URL+"/programme.pdf")
	require.NoError(t, err)
	assert.Equal(t, programme, doc)

	_, err = l.Document(context.Background(), srv.URL+"/missing.pdf")
	assert.Error(t, err)

	_, err = l.Document(context.Background(), srv.URL+"/text.pdf")
	assert.ErrorIs(t, err, ErrNotPDF)
}

func TestDocument_RemoteBodyCapped(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/sized.pdf", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(make([]byte, 4096))
	})
	mux.HandleFunc("/chunked.pdf", func(w http.ResponseWriter, r *http.Request) {
		for i := 0; i < 8; i++ {
			_, _ = w.Write(make([]byte, 512))
			w.(http.Flusher).Flush()
		}
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	l := NewLoader(Options{FetchTimeout: 2 * time.Second, MaxBytes: 1024})
	_, err := l.Document(context.Background(), srv.URL+"/sized.pdf")
	assert.ErrorIs(t, err, ErrTooLarge)
	_, err = l.Document(context.Background(), srv.URL+"/chunked.pdf")
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestDocument_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL + "/programme.pdf"
	srv.Close()

	_, err := newTestLoader().Document(context.Background(), url)
	assert.Error(t, err)
}

func TestValidatePDF(t *testing.T) {
	programme, err := ProgrammeDocument()
	require.NoError(t, err)
	assert.NoError(t, ValidatePDF(programme))
	assert.ErrorIs(t, ValidatePDF([]byte("hello")), ErrNotPDF)
	assert.ErrorIs(t, ValidatePDF([]byte("%PDF-1.4\ntruncated")), ErrNotPDF)
}
