package sink

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hazyhaar/readercap/capture/record"
)

// Router delivers every record to a primary sink, then to taps. Primary
// errors are returned to the caller, which decides fatal versus skip.
// Tap errors are logged and never block the run.
type Router struct {
	primary Sink
	taps    []Sink
	logger  *slog.Logger
}

// NewRouter creates a Router. primary is usually the Files store so that
// taps see the resolved Path and SHA256.
func NewRouter(logger *slog.Logger, primary Sink, taps ...Sink) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{primary: primary, taps: taps, logger: logger}
}

func (r *Router) PutMarkup(ctx context.Context, m *record.Markup) error {
	if err := r.primary.PutMarkup(ctx, m); err != nil {
		return err
	}
	for _, s := range r.taps {
		if err := s.PutMarkup(ctx, m); err != nil {
			r.logger.Warn("sink: tap markup failed", "key", m.Key(), "error", err)
		}
	}
	return nil
}

func (r *Router) PutResource(ctx context.Context, res *record.Resource) error {
	if err := r.primary.PutResource(ctx, res); err != nil {
		return err
	}
	for _, s := range r.taps {
		if err := s.PutResource(ctx, res); err != nil {
			r.logger.Warn("sink: tap resource failed", "seq", res.Seq, "error", err)
		}
	}
	return nil
}

func (r *Router) PutSummary(ctx context.Context, s record.Summary) error {
	err := r.primary.PutSummary(ctx, s)
	for _, t := range r.taps {
		if terr := t.PutSummary(ctx, s); terr != nil {
			r.logger.Warn("sink: tap summary failed", "error", terr)
		}
	}
	return err
}

func (r *Router) Close() error {
	errs := []error{r.primary.Close()}
	for _, s := range r.taps {
		errs = append(errs, s.Close())
	}
	return errors.Join(errs...)
}
