package netobs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/hazyhaar/readercap/capture/internal/sink"
	"github.com/hazyhaar/readercap/capture/record"
)

type memStore struct {
	mu   sync.Mutex
	got  []*record.Resource
	fail map[string]error
}

func (m *memStore) PutResource(_ context.Context, r *record.Resource) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail[r.URL]; err != nil {
		return err
	}
	m.got = append(m.got, r)
	return nil
}

// fakeSource hands the callback to the test so it can play the browser.
type fakeSource struct{ fn func(record.Response) }

func (f *fakeSource) OnResourceResponse(_ context.Context, fn func(record.Response)) error {
	f.fn = fn
	return nil
}

func image(url string, body string) record.Response {
	return record.Response{
		URL:          url,
		MIMEType:     "image/png",
		ResourceType: "Image",
		Body:         func(context.Context) ([]byte, error) { return []byte(body), nil },
	}
}

func TestObserver_CapturesImagesOnly(t *testing.T) {
	// WHAT: non-image responses never reach the store.
	store := &memStore{}
	o := New(Config{Sink: store})
	src := &fakeSource{}
	if err := o.Attach(context.Background(), src); err != nil {
		t.Fatal(err)
	}

	src.fn(image("https://cdn/p1.png", "one"))
	src.fn(record.Response{URL: "https://cdn/app.js", MIMEType: "application/javascript",
		Body: func(context.Context) ([]byte, error) { return []byte("js"), nil }})
	src.fn(image("https://cdn/p2.png", "two"))
	o.Close()

	if len(store.got) != 2 {
		t.Fatalf("stored %d resources, want 2", len(store.got))
	}
	st := o.Stats()
	if st.Captured != 2 || st.Ignored != 1 || st.Skipped != 0 {
		t.Errorf("stats: %+v", st)
	}
	if store.got[0].Seq != 1 || store.got[1].Seq != 2 {
		t.Errorf("seq: got %d,%d want 1,2", store.got[0].Seq, store.got[1].Seq)
	}
	if store.got[0].Name != "p1.png" || string(store.got[0].Data) != "one" {
		t.Errorf("first: name=%q data=%q", store.got[0].Name, store.got[0].Data)
	}
}

func TestObserver_UnreadableBodySkipped(t *testing.T) {
	// WHY: the browser may evict a body before we ask for it. One lost
	// resource must not stop the ones after it.
	store := &memStore{}
	o := New(Config{Sink: store})

	o.Handle(image("https://cdn/a.png", "a"))
	o.Handle(record.Response{URL: "https://cdn/gone.png", MIMEType: "image/png",
		Body: func(context.Context) ([]byte, error) {
			return nil, errors.New("No resource with given identifier found")
		}})
	o.Handle(image("https://cdn/empty.png", ""))
	o.Handle(image("https://cdn/b.png", "b"))
	o.Close()

	var names []string
	for _, r := range store.got {
		names = append(names, r.Name)
	}
	if len(names) != 2 || names[0] != "a.png" || names[1] != "b.png" {
		t.Errorf("stored: %v", names)
	}
	if st := o.Stats(); st.Skipped != 2 || st.Captured != 2 {
		t.Errorf("stats: %+v", st)
	}
}

func TestObserver_StoreErrorSkipped(t *testing.T) {
	store := &memStore{fail: map[string]error{"https://cdn/bad.png": record.ErrStorage}}
	o := New(Config{Sink: store})

	o.Handle(image("https://cdn/bad.png", "x"))
	o.Handle(image("https://cdn/good.png", "y"))
	o.Close()

	if len(store.got) != 1 || store.got[0].Name != "good.png" {
		t.Errorf("stored: %+v", store.got)
	}
}

func TestObserver_CollisionsKeepBoth(t *testing.T) {
	// WHAT: two different images named cover.jpg both land on disk.
	files, err := sink.NewFiles(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	o := New(Config{Sink: files})

	jpeg := func(u, body string) record.Response {
		r := image(u, body)
		r.MIMEType = "image/jpeg"
		return r
	}
	o.Handle(jpeg("https://cdn/p/1/cover.jpg", "first"))
	o.Handle(jpeg("https://cdn/p/2/cover.jpg?v=2", "second"))
	o.Close()

	entries, err := os.ReadDir(files.ImageDir())
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	if len(names) != 2 || names[0] != "cover.jpg" || names[1] != "cover_1.jpg" {
		t.Fatalf("files: %v", names)
	}
	a, _ := os.ReadFile(filepath.Join(files.ImageDir(), "cover.jpg"))
	b, _ := os.ReadFile(filepath.Join(files.ImageDir(), "cover_1.jpg"))
	if string(a) == string(b) {
		t.Error("one capture overwrote the other")
	}
}

func TestObserver_CloseDrainsAndRejects(t *testing.T) {
	store := &memStore{}
	o := New(Config{Sink: store, QueueSize: 1000})

	for i := 0; i < 500; i++ {
		o.Handle(image("https://cdn/x.png", "x"))
	}
	o.Close()
	if len(store.got) != 500 {
		t.Fatalf("drained %d, want 500", len(store.got))
	}

	o.Handle(image("https://cdn/late.png", "late"))
	if err := o.Close(); err != nil {
		t.Fatal(err)
	}
	if len(store.got) != 500 {
		t.Error("response accepted after Close")
	}
}

func TestObserver_ConcurrentHandlers(t *testing.T) {
	store := &memStore{}
	o := New(Config{Sink: store, QueueSize: 4})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				o.Handle(image("https://cdn/c.png", "c"))
			}
		}()
	}
	wg.Wait()
	o.Close()

	seen := make(map[uint64]bool)
	for _, r := range store.got {
		if seen[r.Seq] {
			t.Fatalf("duplicate seq %d", r.Seq)
		}
		seen[r.Seq] = true
	}
	if len(seen) != 200 {
		t.Errorf("captured %d, want 200", len(seen))
	}
}

func TestObserver_ReadTimeout(t *testing.T) {
	// WHAT: body reads carry no deadline of their own unless one is
	// configured; the browser bounds them otherwise.
	for _, tt := range []struct {
		timeout  time.Duration
		deadline bool
	}{
		{0, false},
		{time.Minute, true},
	} {
		store := &memStore{}
		o := New(Config{Sink: store, ReadTimeout: tt.timeout})
		var sawDeadline bool
		o.Handle(record.Response{URL: "https://cdn/a.png", MIMEType: "image/png",
			Body: func(ctx context.Context) ([]byte, error) {
				_, sawDeadline = ctx.Deadline()
				return []byte("a"), nil
			}})
		o.Close()

		if sawDeadline != tt.deadline {
			t.Errorf("timeout %s: deadline=%v, want %v", tt.timeout, sawDeadline, tt.deadline)
		}
		if len(store.got) != 1 {
			t.Errorf("timeout %s: stored %d", tt.timeout, len(store.got))
		}
	}
}
