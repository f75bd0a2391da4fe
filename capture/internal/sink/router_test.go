package sink

import (
	"context"
	"errors"
	"testing"

	"github.com/hazyhaar/readercap/capture/record"
)

func TestRouter_PrimaryErrorPropagates(t *testing.T) {
	boom := errors.New("disk full")
	var tapped bool
	primary := NewCallback(func(context.Context, *record.Markup) error { return boom }, nil, nil)
	tap := NewCallback(func(context.Context, *record.Markup) error { tapped = true; return nil }, nil, nil)

	r := NewRouter(nil, primary, tap)
	err := r.PutMarkup(context.Background(), &record.Markup{})
	if !errors.Is(err, boom) {
		t.Fatalf("error: got %v, want %v", err, boom)
	}
	if tapped {
		t.Error("tap must not see a record the primary failed to store")
	}
}

func TestRouter_TapErrorSwallowed(t *testing.T) {
	primary := NewCallback(nil, func(_ context.Context, r *record.Resource) error {
		r.Path = "/store/x.png"
		return nil
	}, nil)
	var seenPath string
	tap := NewCallback(nil, func(_ context.Context, r *record.Resource) error {
		seenPath = r.Path
		return errors.New("webhook down")
	}, nil)

	r := NewRouter(nil, primary, tap)
	if err := r.PutResource(context.Background(), &record.Resource{Seq: 1}); err != nil {
		t.Fatalf("tap error leaked: %v", err)
	}
	if seenPath != "/store/x.png" {
		t.Errorf("tap saw Path %q, want the primary's resolved path", seenPath)
	}
}

func TestRouter_SummaryReachesAll(t *testing.T) {
	var got []string
	mk := func(name string) Sink {
		return NewCallback(nil, nil, func(context.Context, record.Summary) error {
			got = append(got, name)
			return nil
		})
	}
	r := NewRouter(nil, mk("primary"), mk("a"), mk("b"))
	if err := r.PutSummary(context.Background(), record.Summary{}); err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 || got[0] != "primary" {
		t.Errorf("order: %v", got)
	}
	if err := r.Close(); err != nil {
		t.Errorf("close: %v", err)
	}
}
