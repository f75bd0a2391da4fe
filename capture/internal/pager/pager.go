// Package pager drives the capture loop: snapshot the current page,
// compare it with the previous one, turn the page, wait, and decide when
// to stop.
package pager

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hazyhaar/readercap/capture/record"
)

// Snapshotter captures and persists the current page under index page.
type Snapshotter interface {
	Capture(ctx context.Context, page int) (record.Snapshot, error)
}

// Navigator issues one forward page-turn.
type Navigator interface {
	NavigateForward(ctx context.Context) error
}

// Progress is reported after every completed iteration.
type Progress struct {
	Page      int  `json:"page"`
	Turns     int  `json:"turns"`
	Streak    int  `json:"streak"`
	Unchanged bool `json:"unchanged"`
}

// Result describes how a run ended.
type Result struct {
	Reason record.Reason `json:"reason"`
	Pages  int           `json:"pages"` // snapshots captured
	Turns  int           `json:"turns"` // page-turn commands issued
	Streak int           `json:"streak"`
}

// Config for creating a Controller.
type Config struct {
	Snapshotter   Snapshotter
	Navigator     Navigator
	MaxPages      int           // default 300
	Delay         time.Duration // wait after each turn
	StopThreshold int           // default 3
	Progress      func(Progress)
	Logger        *slog.Logger
}

func (c *Config) defaults() {
	if c.MaxPages <= 0 {
		c.MaxPages = 300
	}
	if c.StopThreshold <= 0 {
		c.StopThreshold = 3
	}
	if c.Delay < 0 {
		c.Delay = 0
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Controller owns the capture counter, the unchanged streak and the
// previous snapshot. It is not safe for concurrent use; run it on one
// goroutine.
type Controller struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a Controller.
func New(cfg Config) *Controller {
	cfg.defaults()
	return &Controller{cfg: cfg, logger: cfg.Logger}
}

// Run executes the loop until a termination condition. The returned error
// is non-nil only for CaptureError, NavigationError and StorageError, and
// is then a *record.PageError. Aborted, StaleContent and MaxPagesReached
// return a nil error.
func (c *Controller) Run(ctx context.Context) (Result, error) {
	var (
		res  Result
		prev record.Snapshot
		have bool
		run  int // length of the current run of identical snapshots
	)

	for page := 0; page < c.cfg.MaxPages; page++ {
		if ctx.Err() != nil {
			return c.aborted(res, page), nil
		}

		snap, retried, err := c.capture(ctx, page)
		if err != nil {
			if ctx.Err() != nil {
				return c.aborted(res, page), nil
			}
			return c.fail(res, page, "capture", errors.Join(record.ErrCapture, err))
		}
		res.Pages++

		unchanged := !retried && have && prev.Equal(snap)
		if unchanged {
			run++
		} else {
			run = 1
		}
		prev, have = snap, true
		res.Streak = c.streak(run)

		if err := c.turn(ctx, page); err != nil {
			if ctx.Err() != nil {
				return c.aborted(res, page), nil
			}
			return c.fail(res, page, "turn", errors.Join(record.ErrNavigation, err))
		}
		res.Turns++

		c.logger.Info("pager: page captured",
			"page", page, "frames", len(snap.Frames), "streak", res.Streak, "unchanged", unchanged)
		if c.cfg.Progress != nil {
			c.cfg.Progress(Progress{Page: page, Turns: res.Turns, Streak: res.Streak, Unchanged: unchanged})
		}

		if res.Streak >= c.cfg.StopThreshold {
			res.Reason = record.StaleContent
			c.logger.Info("pager: content stopped changing", "page", page, "streak", res.Streak)
			return res, nil
		}

		if page+1 < c.cfg.MaxPages {
			if err := sleep(ctx, c.cfg.Delay); err != nil {
				return c.aborted(res, page+1), nil
			}
		}
	}

	res.Reason = record.MaxPagesReached
	c.logger.Info("pager: page limit reached", "max_pages", c.cfg.MaxPages)
	return res, nil
}

// streak maps a run length to the unchanged streak: a lone snapshot is
// not a streak, and the value never exceeds the stop threshold.
func (c *Controller) streak(run int) int {
	if run < 2 {
		return 0
	}
	return min(run, c.cfg.StopThreshold)
}

// capture takes one snapshot, retrying once. retried reports that the
// first attempt failed; such a snapshot never extends an unchanged run.
func (c *Controller) capture(ctx context.Context, page int) (snap record.Snapshot, retried bool, err error) {
	snap, err = c.cfg.Snapshotter.Capture(ctx, page)
	if err == nil {
		return snap, false, nil
	}
	if ctx.Err() != nil {
		return snap, false, err
	}
	c.logger.Warn("pager: capture failed, retrying", "page", page, "error", err)

	snap, err = c.cfg.Snapshotter.Capture(ctx, page)
	return snap, true, err
}

func (c *Controller) turn(ctx context.Context, page int) error {
	err := c.cfg.Navigator.NavigateForward(ctx)
	if err == nil || ctx.Err() != nil {
		return err
	}
	c.logger.Warn("pager: page turn failed, retrying", "page", page, "error", err)
	return c.cfg.Navigator.NavigateForward(ctx)
}

func (c *Controller) aborted(res Result, page int) Result {
	res.Reason = record.Aborted
	c.logger.Info("pager: aborted", "page", page, "turns", res.Turns)
	return res
}

func (c *Controller) fail(res Result, page int, op string, err error) (Result, error) {
	perr := &record.PageError{Page: page, Op: op, Err: err}
	res.Reason = record.ReasonFor(perr)
	c.logger.Error("pager: run failed", "page", page, "reason", res.Reason, "error", err)
	return res, perr
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
