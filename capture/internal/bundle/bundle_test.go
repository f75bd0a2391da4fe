package bundle

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func writePNG(t *testing.T, path string, c color.Color) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 12))
	for x := 0; x < 8; x++ {
		for y := 0; y < 12; y++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestBuild(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.png")
	b := filepath.Join(dir, "b.png")
	svg := filepath.Join(dir, "logo.svg")
	broken := filepath.Join(dir, "broken.png")
	writePNG(t, a, color.White)
	writePNG(t, b, color.Black)
	os.WriteFile(svg, []byte("<svg/>"), 0o644)
	os.WriteFile(broken, []byte("not a png"), 0o644)

	out := filepath.Join(dir, "book", "book.pdf")
	res, err := Build(context.Background(), []string{a, svg, broken, b}, out, nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if res.Pages != 2 || len(res.Skipped) != 2 {
		t.Errorf("result: %+v", res)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Error("output is not a PDF")
	}
	if _, err := os.Stat(out + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file left behind")
	}
}

func TestBuild_NothingImportable(t *testing.T) {
	dir := t.TempDir()
	svg := filepath.Join(dir, "x.svg")
	os.WriteFile(svg, []byte("<svg/>"), 0o644)

	_, err := Build(context.Background(), []string{svg}, filepath.Join(dir, "out.pdf"), nil)
	if !errors.Is(err, ErrNoImages) {
		t.Fatalf("error: got %v, want ErrNoImages", err)
	}
}
