// Package ingest finds card images on disk, loads them for processing and
// watches directories for new arrivals.
package ingest

import (
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/idcard-reader/constants"
)

// HEIC extensions are accepted only when a converter is configured.
var heicExts = map[string]struct{}{"heic": {}, "heif": {}}

func isHEIC(ext string) bool {
	_, ok := heicExts[constants.NormalizeExt(ext)]
	return ok
}

// Extensions returns the accepted extension set, with HEIC added when
// withHEIC is true.
func Extensions(withHEIC bool) map[string]struct{} {
	out := make(map[string]struct{}, len(constants.AllowedExtensions)+len(heicExts))
	for e := range constants.AllowedExtensions {
		out[e] = struct{}{}
	}
	if withHEIC {
		for e := range heicExts {
			out[e] = struct{}{}
		}
	}
	return out
}

func allowed(path string, exts map[string]struct{}) bool {
	_, ok := exts[constants.NormalizeExt(filepath.Ext(path))]
	return ok
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}
