// Package pathutil implements the path relativize/absolutize pair the
// indexer, cross-file resolver and retriever use, grounded on the Python
// original's _get_relative_path/_get_absolute_path.
package pathutil

import (
	"path/filepath"
	"strings"
)

// Relativize returns path relative to base when path is inside base;
// otherwise path is returned unchanged (kept absolute).
func Relativize(base, path string) string {
	if base == "" {
		return path
	}
	rel, err := filepath.Rel(base, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return filepath.ToSlash(rel)
}

// Absolutize reverses Relativize: joins a relative path back onto base. A
// path that is already absolute is returned unchanged.
func Absolutize(base, path string) string {
	if base == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}

var keySanitizer = strings.NewReplacer("/", "_", "\\", "_", ":", "_")

// SanitizeForKey replaces path separators with "_" for use inside the
// stable chunk identity key (§6).
func SanitizeForKey(s string) string {
	return keySanitizer.Replace(s)
}
