package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/hazyhaar/readercap/capture/record"
)

func TestStdout_JSONLines(t *testing.T) {
	var buf bytes.Buffer
	s := NewStdout(&buf)
	ctx := context.Background()

	s.PutMarkup(ctx, &record.Markup{Page: 1, Frame: 0, HTML: "<secret-markup/>"})
	s.PutResource(ctx, &record.Resource{Seq: 7, URL: "https://cdn/x.png", Data: []byte("PNGDATA")})
	s.PutSummary(ctx, record.Summary{Reason: record.MaxPagesReached})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines: got %d, want 3", len(lines))
	}

	wantTypes := []string{"markup", "resource", "summary"}
	for i, line := range lines {
		var env struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal([]byte(line), &env); err != nil {
			t.Fatalf("line %d: %v", i, err)
		}
		if env.Type != wantTypes[i] {
			t.Errorf("line %d type: got %q, want %q", i, env.Type, wantTypes[i])
		}
	}
	if strings.Contains(buf.String(), "secret-markup") || strings.Contains(buf.String(), "PNGDATA") {
		t.Error("payload bytes leaked into the event stream")
	}
}
