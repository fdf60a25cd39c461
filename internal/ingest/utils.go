package ingest

import (
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/campus-feed/constants"
)

// defaultExts are the poster formats the OCR backend accepts.
var defaultExts = func() map[string]struct{} {
	m := map[string]struct{}{"jpeg": {}}
	for _, ext := range constants.ImageMIMEToExt {
		m[ext] = struct{}{}
	}
	return m
}()

// ExtSet builds a lookup set from extensions such as ".PNG" or "jpg".
// An empty list yields the default poster formats.
func ExtSet(exts []string) map[string]struct{} {
	if len(exts) == 0 {
		return defaultExts
	}
	out := make(map[string]struct{}, len(exts))
	for _, e := range exts {
		if e = constants.NormalizeExt(strings.TrimSpace(e)); e != "" {
			out[e] = struct{}{}
		}
	}
	return out
}

func allowed(path string, exts map[string]struct{}) bool {
	_, ok := exts[constants.NormalizeExt(filepath.Ext(path))]
	return ok
}

// IsHidden reports whether a file or directory name starts with '.'.
func IsHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}
