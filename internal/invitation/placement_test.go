package invitation

import (
	"testing"

	"invitegen/internal/config"
)

func TestPlacementSelect(t *testing.T) {
	p := Placement{Threshold: 3, Short: Position{X: 1, Y: 2}, Long: Position{X: 3, Y: 4}}
	tests := []struct {
		runes int
		want  Position
	}{
		{0, p.Short},
		{3, p.Short},
		{4, p.Long},
		{100, p.Long},
	}
	for _, tc := range tests {
		if got := p.Select(tc.runes); got != tc.want {
			t.Fatalf("Select(%d) = %+v, want %+v", tc.runes, got, tc.want)
		}
	}
}

func TestDefaultPlacementsDistinctAndReachable(t *testing.T) {
	for name, tpl := range TemplatesFromConfig(config.Default()) {
		placements := map[string]Placement{"name": tpl.NameAt}
		if tpl.RoleAt != nil {
			placements["role"] = *tpl.RoleAt
		}
		for field, p := range placements {
			if !p.Distinct() {
				t.Fatalf("%s.%s: short and long coincide", name, field)
			}
			if p.Select(p.Threshold) != p.Short {
				t.Fatalf("%s.%s: short tuple unreachable", name, field)
			}
			if p.Select(p.Threshold+1) != p.Long {
				t.Fatalf("%s.%s: long tuple unreachable", name, field)
			}
		}
	}
}

func TestTemplatesFromConfig(t *testing.T) {
	tpls := TemplatesFromConfig(config.Default())
	img := tpls["image"]
	if img.Mode != ModeImage || img.Extension() != "png" || img.ContentType() != "image/png" {
		t.Fatalf("unexpected image template %+v", img)
	}
	if img.NameAt.Threshold != 33 {
		t.Fatalf("expected threshold 33, got %d", img.NameAt.Threshold)
	}
	role := tpls["pdf-role"]
	if role.RoleAt == nil || len(role.Fields()) != 2 {
		t.Fatalf("expected role field on pdf-role, got %v", role.Fields())
	}
	if role.Extension() != "pdf" || role.ContentType() != "application/pdf" {
		t.Fatalf("unexpected pdf-role artifact type")
	}
	if role.Attachment == "" {
		t.Fatalf("expected attachment on pdf-role")
	}
}

func TestArtifactFilename(t *testing.T) {
	tests := []struct {
		name, ext, want string
	}{
		{"Raj", "png", "Raj.png"},
		{"  Raj Kumar  ", "pdf", "Raj Kumar.pdf"},
		{"", "pdf", "Generated.pdf"},
		{"   ", "png", "Generated.png"},
		{"a/b\\c", "pdf", "a_b_c.pdf"},
		{"Zoë", "png", "Zoë.png"},
	}
	for _, tc := range tests {
		if got := artifactFilename(tc.name, tc.ext); got != tc.want {
			t.Fatalf("artifactFilename(%q) = %q, want %q", tc.name, got, tc.want)
		}
	}
}
