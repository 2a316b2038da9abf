package chapter

import (
	"path"
	"strings"
)

var supportedExt = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
	".avif": true,
}

// IsSupportedImage reports whether the path has an allow-listed image
// extension. Matching is case-insensitive.
func IsSupportedImage(p string) bool {
	return supportedExt[strings.ToLower(path.Ext(strings.TrimSpace(p)))]
}

// SupportedImages returns the allow-listed paths in their original order.
func SupportedImages(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if IsSupportedImage(p) {
			out = append(out, p)
		}
	}
	return out
}
