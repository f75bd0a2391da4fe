package sink

import (
	"path/filepath"
	"strconv"
	"strings"
)

const maxNameLen = 180

// SafeName reduces a derived resource name to a single path element made
// of [A-Za-z0-9._-]. Anything else becomes '_'. The result never starts
// with a dot and is never empty.
func SafeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		if isNameChar(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	out := strings.TrimLeft(b.String(), ".")
	if out == "" || strings.Trim(out, "_") == "" {
		out = "resource" + filepath.Ext(out)
		if out == "resource" {
			out = "resource.img"
		}
	}
	if len(out) > maxNameLen {
		ext := filepath.Ext(out)
		if len(ext) > 16 {
			ext = ""
		}
		out = out[:maxNameLen-len(ext)] + ext
	}
	return out
}

// suffixed returns name with "_n" inserted before the extension.
// suffixed("cover.jpg", 2) == "cover_2.jpg".
func suffixed(name string, n int) string {
	if n == 0 {
		return name
	}
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	return stem + "_" + strconv.Itoa(n) + ext
}

func isNameChar(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9') || r == '_' || r == '-' || r == '.'
}
