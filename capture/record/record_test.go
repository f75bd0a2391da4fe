package record

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
)

func TestSnapshotEqual_OrderSensitive(t *testing.T) {
	a := Snapshot{Frames: []Frame{{Index: 0, HTML: "<main/>"}, {Index: 1, HTML: "<page>1</page>"}}}
	b := Snapshot{Frames: []Frame{{Index: 0, HTML: "<page>1</page>"}, {Index: 1, HTML: "<main/>"}}}

	if a.Equal(b) {
		t.Error("reordered frame markup compared equal")
	}
	if !a.Equal(a) {
		t.Error("snapshot not equal to itself")
	}
}

func TestSnapshotEqual_IgnoresFrameIdentity(t *testing.T) {
	a := Snapshot{Page: 1, Frames: []Frame{{Index: 0, ID: "F1", URL: "https://r/a", HTML: "x"}}}
	b := Snapshot{Page: 2, Frames: []Frame{{Index: 0, ID: "F9", URL: "https://r/b", HTML: "x"}}}
	if !a.Equal(b) {
		t.Error("frame ids and urls must not affect equality")
	}
}

func TestSnapshotEqual_LengthMismatch(t *testing.T) {
	a := Snapshot{Frames: []Frame{{Index: 0, HTML: "x"}}}
	b := Snapshot{Frames: []Frame{{Index: 0, HTML: "x"}, {Index: 1, HTML: ""}}}
	if a.Equal(b) {
		t.Error("snapshots with different frame counts compared equal")
	}
	if !(Snapshot{}).Equal(Snapshot{}) {
		t.Error("two empty snapshots must compare equal")
	}
}

func TestMarkupKey(t *testing.T) {
	m := Markup{Page: 7, Frame: 2}
	if got := m.Key(); got != "page_0007_frame_02" {
		t.Errorf("Key: got %q", got)
	}
}

func TestHash(t *testing.T) {
	h := Hash([]byte("abc"))
	if len(h) != 64 {
		t.Fatalf("Hash length: got %d, want 64", len(h))
	}
	if h != Hash([]byte("abc")) {
		t.Error("Hash not deterministic")
	}
}

func TestReasonFor(t *testing.T) {
	tests := []struct {
		err  error
		want Reason
	}{
		{nil, ReasonUnknown},
		{&PageError{Page: 3, Op: "capture", Err: ErrCapture}, CaptureError},
		{&PageError{Page: 3, Op: "capture", Err: errors.Join(ErrCapture, ErrStorage)}, StorageError},
		{&PageError{Page: 1, Op: "turn", Err: ErrNavigation}, NavigationError},
		{fmt.Errorf("wrapped: %w", ErrAborted), Aborted},
		{errors.New("anything else"), CaptureError},
	}
	for _, tt := range tests {
		if got := ReasonFor(tt.err); got != tt.want {
			t.Errorf("ReasonFor(%v): got %s, want %s", tt.err, got, tt.want)
		}
	}
}

func TestReasonExitCode(t *testing.T) {
	tests := []struct {
		r    Reason
		code int
	}{
		{StaleContent, 0},
		{MaxPagesReached, 0},
		{Aborted, 130},
		{CaptureError, 1},
		{NavigationError, 1},
		{StorageError, 1},
	}
	for _, tt := range tests {
		if got := tt.r.ExitCode(); got != tt.code {
			t.Errorf("%s.ExitCode(): got %d, want %d", tt.r, got, tt.code)
		}
	}
}

func TestReasonJSON(t *testing.T) {
	data, err := json.Marshal(Summary{Reason: StaleContent})
	if err != nil {
		t.Fatal(err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}
	if out["reason"] != "stale_content" {
		t.Errorf("reason: got %v", out["reason"])
	}

	var back Summary
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if back.Reason != StaleContent {
		t.Errorf("decoded reason: got %v", back.Reason)
	}
}

func TestPageErrorMessage(t *testing.T) {
	err := &PageError{Page: 12, Op: "turn", Err: ErrNavigation}
	if !errors.Is(err, ErrNavigation) {
		t.Error("PageError must unwrap to its cause")
	}
	want := "capture: page 12: turn: capture: page turn failed"
	if err.Error() != want {
		t.Errorf("Error(): got %q, want %q", err.Error(), want)
	}
}
