package sink

import (
	"strings"
	"testing"
)

func TestSafeName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"cover.jpg", "cover.jpg"},
		{"page 12.png", "page_12.png"},
		{"../../etc/passwd", "_.._etc_passwd"},
		{".hidden.png", "hidden.png"},
		{"", "resource.img"},
		{"???", "resource.img"},
		{"héllo.webp", "h_llo.webp"},
	}
	for _, tt := range tests {
		if got := SafeName(tt.in); got != tt.want {
			t.Errorf("SafeName(%q): got %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSafeName_NoSeparators(t *testing.T) {
	for _, in := range []string{"a/b.png", `a\b.png`, "../x"} {
		got := SafeName(in)
		if strings.ContainsAny(got, `/\`) {
			t.Errorf("SafeName(%q) = %q contains a separator", in, got)
		}
	}
}

func TestSafeName_Truncates(t *testing.T) {
	got := SafeName(strings.Repeat("a", 400) + ".jpeg")
	if len(got) != maxNameLen {
		t.Errorf("length: got %d, want %d", len(got), maxNameLen)
	}
	if !strings.HasSuffix(got, ".jpeg") {
		t.Errorf("extension lost: %q", got)
	}
}

func TestSuffixed(t *testing.T) {
	tests := []struct {
		name string
		n    int
		want string
	}{
		{"cover.jpg", 0, "cover.jpg"},
		{"cover.jpg", 2, "cover_2.jpg"},
		{"blob", 1, "blob_1"},
		{"a.b.png", 3, "a.b_3.png"},
	}
	for _, tt := range tests {
		if got := suffixed(tt.name, tt.n); got != tt.want {
			t.Errorf("suffixed(%q, %d): got %q, want %q", tt.name, tt.n, got, tt.want)
		}
	}
}
