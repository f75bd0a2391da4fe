package sink

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"

	"github.com/hazyhaar/readercap/capture/record"
)

// Stdout writes one JSON line per event to an io.Writer (default os.Stdout).
// Payload bytes are never written, only metadata.
type Stdout struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewStdout creates a Stdout sink. If w is nil, os.Stdout is used.
func NewStdout(w io.Writer) *Stdout {
	if w == nil {
		w = os.Stdout
	}
	return &Stdout{enc: json.NewEncoder(w)}
}

func (s *Stdout) PutMarkup(_ context.Context, m *record.Markup) error {
	return s.emit("markup", m)
}

func (s *Stdout) PutResource(_ context.Context, r *record.Resource) error {
	return s.emit("resource", r)
}

func (s *Stdout) PutSummary(_ context.Context, sum record.Summary) error {
	return s.emit("summary", sum)
}

func (s *Stdout) Close() error { return nil }

func (s *Stdout) emit(typ string, data any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc.Encode(envelope{Type: typ, Data: data})
}
