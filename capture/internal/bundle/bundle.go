// Package bundle assembles the images of a run into a single PDF, one
// image per page, in discovery order.
package bundle

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
)

// ErrNoImages is returned when none of the inputs can go into a PDF.
var ErrNoImages = errors.New("bundle: no importable images")

var importable = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true,
	".tif": true, ".tiff": true, ".webp": true,
}

// Result reports what went into the PDF.
type Result struct {
	Path    string   `json:"path"`
	Pages   int      `json:"pages"`
	Skipped []string `json:"skipped,omitempty"`
}

// Build writes a PDF at out from the images at paths. Formats the PDF
// importer cannot take (svg, gif, avif...) and files that do not decode
// are skipped. out is replaced atomically.
func Build(ctx context.Context, paths []string, out string, logger *slog.Logger) (Result, error) {
	if logger == nil {
		logger = slog.Default()
	}
	res := Result{Path: out}

	var files []string
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if !importable[strings.ToLower(filepath.Ext(p))] || !decodable(p) {
			res.Skipped = append(res.Skipped, p)
			continue
		}
		files = append(files, p)
	}
	if len(files) == 0 {
		return res, ErrNoImages
	}

	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return res, fmt.Errorf("bundle: mkdir: %w", err)
	}
	// ImportImagesFile appends to an existing file; start from scratch.
	tmp := out + ".tmp"
	os.Remove(tmp)
	if err := api.ImportImagesFile(files, tmp, pdfcpu.DefaultImportConfig(), nil); err != nil {
		os.Remove(tmp)
		return res, fmt.Errorf("bundle: import images: %w", err)
	}
	if err := os.Rename(tmp, out); err != nil {
		os.Remove(tmp)
		return res, fmt.Errorf("bundle: rename: %w", err)
	}

	res.Pages = len(files)
	logger.Info("bundle: pdf written", "path", out, "pages", res.Pages, "skipped", len(res.Skipped))
	return res, nil
}

func decodable(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	_, _, err = image.DecodeConfig(f)
	return err == nil
}
