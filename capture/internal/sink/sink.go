// Package sink defines output backends for captured markup and resources.
//
// The content store (Files) is the durable destination; the other sinks
// (SQLite manifest, stdout JSON lines, webhook, callback) record metadata
// about what was stored. Every sink must be safe for concurrent calls on
// distinct keys: the network observer and the pagination loop write at the
// same time.
package sink

import (
	"context"

	"github.com/hazyhaar/readercap/capture/record"
)

// Sink is the output interface. PutMarkup and PutResource may fill in
// Path and SHA256 on the record they receive; sinks called after the
// content store observe those values.
type Sink interface {
	PutMarkup(ctx context.Context, m *record.Markup) error
	PutResource(ctx context.Context, r *record.Resource) error
	PutSummary(ctx context.Context, s record.Summary) error
	Close() error
}

type envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}
