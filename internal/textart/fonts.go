package textart

import (
	"fmt"

	"github.com/gogpu/gg/text"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gomedium"
)

// Fonts holds the two weights used for names. Emphasised text uses SemiBold,
// everything else Bold. A FontSource is safe for concurrent use.
type Fonts struct {
	Bold     *text.FontSource
	SemiBold *text.FontSource
}

// EmbeddedFonts returns the Go Bold and Go Medium faces.
func EmbeddedFonts() (*Fonts, error) {
	bold, err := text.NewFontSource(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("textart: go bold: %w", err)
	}
	medium, err := text.NewFontSource(gomedium.TTF)
	if err != nil {
		return nil, fmt.Errorf("textart: go medium: %w", err)
	}
	return &Fonts{Bold: bold, SemiBold: medium}, nil
}

// LoadFonts reads a TrueType file and uses it for both weights. An empty path
// selects the embedded fonts.
func LoadFonts(path string) (*Fonts, error) {
	if path == "" {
		return EmbeddedFonts()
	}
	src, err := text.NewFontSourceFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("textart: load %s: %w", path, err)
	}
	return &Fonts{Bold: src, SemiBold: src}, nil
}

func (f *Fonts) source(emphasis bool) *text.FontSource {
	if emphasis {
		return f.SemiBold
	}
	return f.Bold
}
