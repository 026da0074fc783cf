package archive

import (
	"path"
	"strings"
)

// CleanPath normalizes a logical path: forward slashes, lower case,
// archive-root relative. It returns false for empty paths and paths
// escaping the archive root.
func CleanPath(p string) (string, bool) {
	p = strings.ReplaceAll(p, "\\", "/")
	p = strings.ToLower(strings.TrimSpace(p))
	p = strings.TrimLeft(p, "/")
	if p == "" {
		return "", false
	}
	p = path.Clean(p)
	if p == "." || p == ".." || strings.HasPrefix(p, "../") {
		return "", false
	}
	return p, true
}

// Ext returns the lower-cased extension of p without the leading dot.
func Ext(p string) string {
	return strings.TrimPrefix(strings.ToLower(path.Ext(p)), ".")
}
