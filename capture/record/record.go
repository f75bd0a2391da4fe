// Package record defines the structured types produced by a capture run.
// These are the public contract between the capture loop and its sinks:
// any consumer (manifest readers, webhooks, custom pipelines) imports this
// package to receive snapshots, markup and captured resources.
package record

import (
	"crypto/sha256"
	"fmt"
)

// Frame is the markup of one rendered frame at capture time.
type Frame struct {
	Index int    `json:"index"` // position in the snapshot, 0 = main frame
	ID    string `json:"id"`    // browser frame id, informational only
	URL   string `json:"url"`
	HTML  string `json:"-"`
}

// FrameInfo identifies a frame at enumeration time, before its markup
// is read.
type FrameInfo struct {
	ID  string
	URL string
}

// Snapshot is one render of the current page: every attached frame in
// stable enumeration order. Immutable once captured.
type Snapshot struct {
	Page   int     `json:"page"`
	Frames []Frame `json:"frames"`
}

// Equal reports whether two snapshots hold the same (index, markup) pairs
// in the same order. Frame ids and URLs do not participate.
func (s Snapshot) Equal(other Snapshot) bool {
	if len(s.Frames) != len(other.Frames) {
		return false
	}
	for i := range s.Frames {
		if s.Frames[i].Index != other.Frames[i].Index || s.Frames[i].HTML != other.Frames[i].HTML {
			return false
		}
	}
	return true
}

// Size returns the total markup length across frames.
func (s Snapshot) Size() int {
	n := 0
	for _, f := range s.Frames {
		n += len(f.HTML)
	}
	return n
}

// Markup is the persisted form of one (page, frame) pair.
type Markup struct {
	Page      int      `json:"page"`
	Frame     int      `json:"frame"`
	URL       string   `json:"url"`
	HTML      string   `json:"-"`
	ImageRefs []string `json:"image_refs,omitempty"`
	SHA256    string   `json:"sha256,omitempty"`
	Path      string   `json:"path,omitempty"` // filled by the content store
	Timestamp int64    `json:"timestamp"`      // epoch milliseconds
}

// Key is the deterministic storage key of a markup record.
func (m *Markup) Key() string {
	return fmt.Sprintf("page_%04d_frame_%02d", m.Page, m.Frame)
}

// Hash returns the SHA-256 hex digest of raw bytes.
func Hash(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h)
}
