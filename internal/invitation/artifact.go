package invitation

import "strings"

// Artifact is a finished invitation ready for download.
type Artifact struct {
	Filename    string
	ContentType string
	Data        []byte
}

var filenameReplacer = strings.NewReplacer("/", "_", "\\", "_", "\x00", "")

// artifactFilename returns "<trimmed name or Generated>.<ext>".
func artifactFilename(name, ext string) string {
	base := filenameReplacer.Replace(strings.TrimSpace(name))
	if base == "" {
		base = "Generated"
	}
	return base + "." + ext
}
