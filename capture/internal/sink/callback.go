package sink

import (
	"context"

	"github.com/hazyhaar/readercap/capture/record"
)

// MarkupFunc is called for each persisted markup record.
type MarkupFunc func(ctx context.Context, m *record.Markup) error

// ResourceFunc is called for each persisted resource.
type ResourceFunc func(ctx context.Context, r *record.Resource) error

// SummaryFunc is called once at the end of a run.
type SummaryFunc func(ctx context.Context, s record.Summary) error

// Callback delivers records to in-process functions with no
// serialisation. Used by embedders that run the capture loop inside a
// larger program.
type Callback struct {
	onMarkup   MarkupFunc
	onResource ResourceFunc
	onSummary  SummaryFunc
}

// NewCallback creates a Callback sink. Any handler may be nil.
func NewCallback(onMarkup MarkupFunc, onResource ResourceFunc, onSummary SummaryFunc) *Callback {
	return &Callback{onMarkup: onMarkup, onResource: onResource, onSummary: onSummary}
}

func (c *Callback) PutMarkup(ctx context.Context, m *record.Markup) error {
	if c.onMarkup != nil {
		return c.onMarkup(ctx, m)
	}
	return nil
}

func (c *Callback) PutResource(ctx context.Context, r *record.Resource) error {
	if c.onResource != nil {
		return c.onResource(ctx, r)
	}
	return nil
}

func (c *Callback) PutSummary(ctx context.Context, s record.Summary) error {
	if c.onSummary != nil {
		return c.onSummary(ctx, s)
	}
	return nil
}

func (c *Callback) Close() error { return nil }
