package sink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/microcosm-cc/bluemonday"

	"github.com/hazyhaar/readercap/capture/record"
)

// maxSuffix bounds the collision search for a single resource name.
const maxSuffix = 100_000

// Files is the content store: markup under <root>/html, images under
// <root>/images, the run summary at <root>/summary.json.
//
// Markup writes are idempotent per (page, frame): a retry overwrites the
// same file atomically. Resource writes never overwrite: a taken name is
// retried as stem_1.ext, stem_2.ext, ...
type Files struct {
	root     string
	htmlDir  string
	imageDir string
	policy   *bluemonday.Policy
}

// FilesOption configures a Files store.
type FilesOption func(*Files)

// WithSanitizedCopies writes a page_NNNN_frame_NN.clean.html next to each
// markup file with scripts, handlers and embeds stripped, so captured
// pages can be opened offline without re-running the viewer.
func WithSanitizedCopies() FilesOption {
	return func(f *Files) {
		p := bluemonday.UGCPolicy()
		p.AllowAttrs("class", "style", "id").Globally()
		p.AllowDataURIImages()
		f.policy = p
	}
}

// NewFiles creates the directory layout under root.
func NewFiles(root string, opts ...FilesOption) (*Files, error) {
	f := &Files{
		root:     root,
		htmlDir:  filepath.Join(root, "html"),
		imageDir: filepath.Join(root, "images"),
	}
	for _, o := range opts {
		o(f)
	}
	for _, dir := range []string{f.htmlDir, f.imageDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, storageErr("mkdir "+dir, err)
		}
	}
	return f, nil
}

// HTMLDir returns the markup directory.
func (f *Files) HTMLDir() string { return f.htmlDir }

// ImageDir returns the image directory.
func (f *Files) ImageDir() string { return f.imageDir }

func (f *Files) PutMarkup(_ context.Context, m *record.Markup) error {
	target := filepath.Join(f.htmlDir, m.Key()+".html")
	if err := writeAtomic(target, []byte(m.HTML)); err != nil {
		return storageErr("markup "+m.Key(), err)
	}
	m.Path = target
	if m.SHA256 == "" {
		m.SHA256 = record.Hash([]byte(m.HTML))
	}

	if f.policy != nil {
		clean := f.policy.Sanitize(m.HTML)
		cleanPath := filepath.Join(f.htmlDir, m.Key()+".clean.html")
		if err := writeAtomic(cleanPath, []byte(clean)); err != nil {
			return storageErr("sanitized markup "+m.Key(), err)
		}
	}
	return nil
}

func (f *Files) PutResource(_ context.Context, r *record.Resource) error {
	name := SafeName(r.Name)

	file, target, err := reserve(f.imageDir, name)
	if err != nil {
		return storageErr("reserve "+name, err)
	}

	_, werr := file.Write(r.Data)
	cerr := file.Close()
	if werr != nil || cerr != nil {
		os.Remove(target)
		return storageErr("resource "+name, errors.Join(werr, cerr))
	}

	r.Path = target
	r.Size = len(r.Data)
	if r.SHA256 == "" {
		r.SHA256 = record.Hash(r.Data)
	}
	return nil
}

func (f *Files) PutSummary(_ context.Context, s record.Summary) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("sink: marshal summary: %w", err)
	}
	if err := writeAtomic(filepath.Join(f.root, "summary.json"), append(data, '\n')); err != nil {
		return storageErr("summary", err)
	}
	return nil
}

func (f *Files) Close() error { return nil }

// reserve creates name (or the first free suffixed variant) exclusively.
// O_EXCL makes the reservation safe across goroutines and across runs
// sharing the same output directory.
func reserve(dir, name string) (*os.File, string, error) {
	for n := 0; n < maxSuffix; n++ {
		target := filepath.Join(dir, suffixed(name, n))
		file, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return file, target, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, "", err
		}
	}
	return nil, "", fmt.Errorf("no free name for %s after %d attempts", name, maxSuffix)
}

// writeAtomic writes data to a .tmp sibling then renames it into place.
func writeAtomic(target string, data []byte) error {
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

func storageErr(op string, err error) error {
	return fmt.Errorf("sink: %s: %w", op, errors.Join(record.ErrStorage, err))
}
