package capture

import (
	"context"
	"io"
	"log/slog"

	"github.com/hazyhaar/readercap/capture/internal/sink"
	"github.com/hazyhaar/readercap/capture/record"
)

// Sink is the output interface for capture records.
type Sink = sink.Sink

// NewStdoutSink creates a stdout JSON-lines sink.
func NewStdoutSink(w io.Writer) Sink {
	return sink.NewStdout(w)
}

// NewWebhookSink creates a webhook POST sink with retry.
func NewWebhookSink(url string, logger *slog.Logger) Sink {
	return sink.NewWebhook(url, sink.WithWebhookLogger(logger))
}

// NewCallbackSink creates an in-process callback sink with no
// serialisation. Any handler may be nil.
func NewCallbackSink(
	onMarkup func(ctx context.Context, m *record.Markup) error,
	onResource func(ctx context.Context, r *record.Resource) error,
	onSummary func(ctx context.Context, s record.Summary) error,
) Sink {
	return sink.NewCallback(onMarkup, onResource, onSummary)
}
