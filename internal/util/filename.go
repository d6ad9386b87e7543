package util

import (
	"path/filepath"
	"regexp"
	"strings"
)

const (
	maxFilenameLength  = 100
	maxExtensionLength = 10
)

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// SanitizeFilename reduces a client supplied file name to a safe object name
// component: directories are dropped, runs of unsafe characters become a
// single underscore and the extension is lower-cased.
func SanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(strings.TrimSpace(name), `\`, "/"))
	if name == "." || name == "/" {
		name = ""
	}

	ext := strings.ToLower(filepath.Ext(name))
	base := strings.TrimSuffix(name, filepath.Ext(name))

	base = unsafeFilenameChars.ReplaceAllString(base, "_")
	base = strings.Trim(base, "._")
	ext = unsafeFilenameChars.ReplaceAllString(ext, "")
	if base == "" {
		base = "image"
	}
	if len(ext) > maxExtensionLength {
		ext = ext[:maxExtensionLength]
	}
	if len(base)+len(ext) > maxFilenameLength {
		base = base[:max(maxFilenameLength-len(ext), 0)]
	}
	return base + ext
}
