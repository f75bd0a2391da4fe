package snapshot

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/hazyhaar/readercap/capture/record"
)

type fakeViewer struct {
	frames  []record.FrameInfo
	markup  map[string]string
	errs    map[string]error
	listErr error
}

func (v *fakeViewer) ListFrames(context.Context) ([]record.FrameInfo, error) {
	return v.frames, v.listErr
}

func (v *fakeViewer) FrameMarkup(_ context.Context, id string) (string, error) {
	if err := v.errs[id]; err != nil {
		return "", err
	}
	return v.markup[id], nil
}

type memStore struct {
	got []*record.Markup
	err error
}

func (m *memStore) PutMarkup(_ context.Context, mk *record.Markup) error {
	if m.err != nil {
		return m.err
	}
	m.got = append(m.got, mk)
	return nil
}

func threeFrames() *fakeViewer {
	return &fakeViewer{
		frames: []record.FrameInfo{
			{ID: "main", URL: "https://read.example.com/"},
			{ID: "reader", URL: "https://read.example.com/reader"},
			{ID: "page", URL: "https://read.example.com/page"},
		},
		markup: map[string]string{
			"main":   "<html><body><iframe></iframe></body></html>",
			"reader": "<div><iframe></iframe></div>",
			"page":   `<div><img src="https://cdn/p1.jpg"></div>`,
		},
	}
}

func TestCapture_PersistsEveryFrame(t *testing.T) {
	v := threeFrames()
	store := &memStore{}
	s := New(Config{Viewer: v, Sink: store})

	snap, err := s.Capture(context.Background(), 4)
	if err != nil {
		t.Fatal(err)
	}
	if snap.Page != 4 || len(snap.Frames) != 3 {
		t.Fatalf("snapshot: page=%d frames=%d", snap.Page, len(snap.Frames))
	}

	var keys []string
	for _, m := range store.got {
		keys = append(keys, m.Key())
	}
	want := []string{"page_0004_frame_00", "page_0004_frame_01", "page_0004_frame_02"}
	if diff := cmp.Diff(want, keys); diff != "" {
		t.Errorf("keys (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"https://cdn/p1.jpg"}, store.got[2].ImageRefs); diff != "" {
		t.Errorf("refs (-want +got):\n%s", diff)
	}
}

func TestCapture_SkipsDetachedFrames(t *testing.T) {
	// WHAT: a frame that vanished between enumeration and read is left
	// out and the remaining frames are re-indexed densely.
	v := threeFrames()
	v.errs = map[string]error{"reader": fmt.Errorf("tab: %w", record.ErrFrameDetached)}
	store := &memStore{}

	snap, err := New(Config{Viewer: v, Sink: store}).Capture(context.Background(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.Frames) != 2 {
		t.Fatalf("frames: got %d, want 2", len(snap.Frames))
	}
	if snap.Frames[1].ID != "page" || snap.Frames[1].Index != 1 {
		t.Errorf("second frame: %+v", snap.Frames[1])
	}
}

func TestCapture_ExtractionFailureWritesNothing(t *testing.T) {
	v := threeFrames()
	v.errs = map[string]error{"page": errors.New("target crashed")}
	store := &memStore{}

	_, err := New(Config{Viewer: v, Sink: store}).Capture(context.Background(), 0)
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, record.ErrStorage) {
		t.Error("extraction failure classified as storage")
	}
	if len(store.got) != 0 {
		t.Errorf("partial snapshot persisted: %d records", len(store.got))
	}
}

func TestCapture_AllDetached(t *testing.T) {
	v := &fakeViewer{
		frames: []record.FrameInfo{{ID: "main"}},
		errs:   map[string]error{"main": record.ErrFrameDetached},
	}
	if _, err := New(Config{Viewer: v, Sink: &memStore{}}).Capture(context.Background(), 0); err == nil {
		t.Fatal("expected error for a snapshot with no frames")
	}
}

func TestCapture_StoreErrorIsStorage(t *testing.T) {
	store := &memStore{err: errors.New("read-only file system")}
	_, err := New(Config{Viewer: threeFrames(), Sink: store}).Capture(context.Background(), 2)
	if !errors.Is(err, record.ErrStorage) {
		t.Fatalf("error %v does not wrap ErrStorage", err)
	}
}

func TestEqual(t *testing.T) {
	v := threeFrames()
	s := New(Config{Viewer: v, Sink: &memStore{}})
	a, _ := s.Capture(context.Background(), 0)
	b, _ := s.Capture(context.Background(), 1)
	if !Equal(a, b) {
		t.Error("identical renders on different pages must compare equal")
	}

	v.frames[1], v.frames[2] = v.frames[2], v.frames[1]
	c, _ := s.Capture(context.Background(), 2)
	if Equal(a, c) {
		t.Error("same markup in a different frame order must differ")
	}
}
