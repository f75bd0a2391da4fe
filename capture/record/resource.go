package record

import "context"

// Response is a completed network response as reported by the browser.
// Body is read lazily: the browser may already have evicted it.
type Response struct {
	RequestID    string
	URL          string
	MIMEType     string
	ContentType  string // raw Content-Type header, may be empty
	ResourceType string // browser resource type: Image, Document, Script...
	Status       int
	Body         func(ctx context.Context) ([]byte, error)
}

// Resource is a captured binary payload. Written once, never updated.
type Resource struct {
	Seq       uint64 `json:"seq"` // discovery order across the session
	URL       string `json:"url"`
	Name      string `json:"name"` // derived name before collision suffixing
	MIMEType  string `json:"mime_type"`
	Data      []byte `json:"-"`
	Size      int    `json:"size"`
	SHA256    string `json:"sha256,omitempty"`
	Path      string `json:"path,omitempty"` // final stored location, filled by the content store
	Timestamp int64  `json:"timestamp"`      // epoch milliseconds
}
