package netobs

import (
	"mime"
	"net/url"
	"path"
	"strings"

	"github.com/hazyhaar/readercap/capture/internal/sink"
	"github.com/hazyhaar/readercap/capture/record"
)

// preferredExt overrides mime.ExtensionsByType where the system table
// returns an unusual first choice (".jfif" for image/jpeg on some hosts).
var preferredExt = map[string]string{
	"image/jpeg":    ".jpg",
	"image/png":     ".png",
	"image/gif":     ".gif",
	"image/webp":    ".webp",
	"image/svg+xml": ".svg",
	"image/avif":    ".avif",
	"image/bmp":     ".bmp",
	"image/tiff":    ".tiff",
	"image/x-icon":  ".ico",
}

// MediaType returns the lower-cased media type of resp, parameters
// stripped. The browser's parsed MIME type wins over the raw header.
func MediaType(resp record.Response) string {
	for _, v := range []string{resp.MIMEType, resp.ContentType} {
		if v == "" {
			continue
		}
		if mt, _, err := mime.ParseMediaType(v); err == nil {
			return strings.ToLower(mt)
		}
		mt, _, _ := strings.Cut(v, ";")
		return strings.ToLower(strings.TrimSpace(mt))
	}
	return ""
}

// IsImage reports whether resp should be captured: an image/* media type,
// or a browser image load that carried no type at all.
func IsImage(resp record.Response) bool {
	mt := MediaType(resp)
	if mt == "" {
		return strings.EqualFold(resp.ResourceType, "Image")
	}
	return strings.HasPrefix(mt, "image/")
}

// DeriveName builds the storage name of a resource from the last path
// segment of its URL. Collision suffixing is left to the store.
func DeriveName(rawURL, mediaType string) string {
	name := ""
	if u, err := url.Parse(rawURL); err == nil && u.Scheme != "data" {
		seg := path.Base(u.EscapedPath())
		if unescaped, err := url.PathUnescape(seg); err == nil {
			seg = unescaped
		}
		if seg != "/" && seg != "." {
			name = seg
		}
	}
	if name = strings.TrimSpace(name); name == "" {
		name = "resource"
	} else {
		name = sink.SafeName(name)
	}
	if path.Ext(name) == "" {
		name += extensionFor(mediaType)
	}
	return name
}

func extensionFor(mediaType string) string {
	if ext, ok := preferredExt[mediaType]; ok {
		return ext
	}
	if exts, err := mime.ExtensionsByType(mediaType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ".img"
}
