// Package assets resolves background images and attachment documents from
// builtin names, data URLs, local files and http(s) URLs.
package assets

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
	_ "golang.org/x/image/webp"
	"seehuhn.de/go/pdf"
	"seehuhn.de/go/pdf/pagetree"
)

// BuiltinPrefix marks references to generated assets.
const BuiltinPrefix = "builtin:"

var (
	ErrUnknownBuiltin = errors.New("assets: unknown builtin")
	ErrTooLarge       = errors.New("assets: asset exceeds size limit")
	ErrNotPDF         = errors.New("assets: not a PDF document")
)

type Options struct {
	FetchTimeout time.Duration
	MaxBytes     int
}

// Background is a decoded background image with its PNG encoding.
type Background struct {
	Image  image.Image
	PNG    []byte
	Width  int
	Height int
}

type Loader struct {
	opts     Options
	builtins map[string]func() ([]byte, error)
}

func NewLoader(opts Options) *Loader {
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 10 * time.Second
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = 20 * 1024 * 1024
	}
	return &Loader{
		opts: opts,
		builtins: map[string]func() ([]byte, error){
			"invitation": sync.OnceValues(InvitationArtwork),
			"programme":  sync.OnceValues(ProgrammeDocument),
		},
	}
}

// Fetch returns the raw bytes behind ref.
func (l *Loader) Fetch(ctx context.Context, ref string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch {
	case ref == "":
		return nil, fmt.Errorf("assets: empty reference")
	case strings.HasPrefix(ref, BuiltinPrefix):
		gen, ok := l.builtins[strings.TrimPrefix(ref, BuiltinPrefix)]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownBuiltin, ref)
		}
		return gen()
	case strings.HasPrefix(ref, "data:"):
		return l.decodeDataURL(ref)
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		return l.fetchRemote(ctx, ref)
	default:
		return l.readFile(ref)
	}
}

// Background fetches and decodes a PNG, JPEG or WebP image.
func (l *Loader) Background(ctx context.Context, ref string) (*Background, error) {
	data, err := l.Fetch(ctx, ref)
	if err != nil {
		return nil, err
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("assets: decode %s: %w", describe(ref), err)
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("assets: %s has no pixels", describe(ref))
	}

	encoded := data
	if format != "png" {
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("assets: re-encode %s: %w", describe(ref), err)
		}
		encoded = buf.Bytes()
	}
	return &Background{Image: img, PNG: encoded, Width: b.Dx(), Height: b.Dy()}, nil
}

// Document fetches a PDF and checks that its header and cross-reference
// table parse.
func (l *Loader) Document(ctx context.Context, ref string) ([]byte, error) {
	data, err := l.Fetch(ctx, ref)
	if err != nil {
		return nil, err
	}
	if err := ValidatePDF(data); err != nil {
		return nil, fmt.Errorf("%s: %w", describe(ref), err)
	}
	return data, nil
}

// ValidatePDF reports ErrNotPDF when data cannot be opened as a PDF file.
func ValidatePDF(data []byte) (err error) {
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return ErrNotPDF
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrNotPDF, r)
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(data), nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotPDF, err)
	}
	defer r.Close()
	n, err := pagetree.NumPages(r)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotPDF, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: no pages", ErrNotPDF)
	}
	return nil
}

func (l *Loader) decodeDataURL(ref string) ([]byte, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(ref, "data:"), ",")
	if !ok {
		return nil, fmt.Errorf("assets: malformed data url")
	}
	if !strings.HasSuffix(meta, ";base64") {
		return nil, fmt.Errorf("assets: data url must be base64 encoded")
	}
	if base64.StdEncoding.DecodedLen(len(payload)) > l.opts.MaxBytes {
		return nil, ErrTooLarge
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("assets: data url: %w", err)
	}
	return data, nil
}

func (l *Loader) readFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("assets: %w", err)
	}
	defer f.Close()
	return l.readLimited(f)
}

func (l *Loader) readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, int64(l.opts.MaxBytes)+1))
	if err != nil {
		return nil, fmt.Errorf("assets: read: %w", err)
	}
	if len(data) > l.opts.MaxBytes {
		return nil, ErrTooLarge
	}
	return data, nil
}

func (l *Loader) fetchRemote(ctx context.Context, url string) ([]byte, error) {
	deadline := l.opts.FetchTimeout
	if d, ok := ctx.Deadline(); ok {
		if left := time.Until(d); left < deadline {
			deadline = left
		}
	}
	if deadline <= 0 {
		return nil, context.DeadlineExceeded
	}

	a := fiber.Get(url)
	a.Timeout(deadline)
	a.MaxRedirectsCount(3)
	if err := a.Parse(); err != nil {
		return nil, fmt.Errorf("assets: %s: %w", url, err)
	}
	// Parse creates the host client, so the cap is set afterwards.
	a.MaxResponseBodySize = l.opts.MaxBytes
	code, body, errs := a.Bytes()
	if len(errs) > 0 {
		err := errors.Join(errs...)
		if errors.Is(err, fasthttp.ErrBodyTooLarge) {
			return nil, fmt.Errorf("assets: %s: %w", url, ErrTooLarge)
		}
		return nil, fmt.Errorf("assets: %s: %w", url, err)
	}
	if code != fiber.StatusOK {
		return nil, fmt.Errorf("assets: %s: unexpected status %d", url, code)
	}
	if len(body) > l.opts.MaxBytes {
		return nil, ErrTooLarge
	}
	return body, nil
}

// describe shortens data URLs for error messages.
func describe(ref string) string {
	if strings.HasPrefix(ref, "data:") {
		if i := strings.IndexByte(ref, ','); i > 0 {
			return ref[:i]
		}
		return "data url"
	}
	return ref
}
