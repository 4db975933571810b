package textart

import (
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/font/gofont/goregular"
)

func TestLoadFonts_EmptyPathUsesEmbedded(t *testing.T) {
	fonts, err := LoadFonts("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if fonts.Bold == fonts.SemiBold {
		t.Fatalf("expected distinct embedded weights")
	}
}

func TestLoadFonts_CustomFileReplacesBothWeights(t *testing.T) {
	p := filepath.Join(t.TempDir(), "display.ttf")
	if err := os.WriteFile(p, goregular.TTF, 0o644); err != nil {
		t.Fatalf("write font: %v", err)
	}
	fonts, err := LoadFonts(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if fonts.Bold != fonts.SemiBold {
		t.Fatalf("expected one source for both weights")
	}
}

func TestLoadFonts_MissingFile(t *testing.T) {
	if _, err := LoadFonts(filepath.Join(t.TempDir(), "missing.ttf")); err == nil {
		t.Fatalf("expected error")
	}
}

func TestLoadFonts_InvalidFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "broken.ttf")
	if err := os.WriteFile(p, []byte("not a font"), 0o644); err != nil {
		t.Fatalf("write font: %v", err)
	}
	if _, err := LoadFonts(p); err == nil {
		t.Fatalf("expected error")
	}
}
