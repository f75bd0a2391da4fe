// Package snapshot reads the rendered markup of every frame of the active
// view and persists it under the current page index.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/readercap/capture/record"
)

var errNoFrames = errors.New("snapshot: no frame could be read")

// Viewer exposes the frame tree of the page under capture. ListFrames
// returns the main frame first, then nested frames depth-first in
// document order. FrameMarkup returns record.ErrFrameDetached for a frame
// that went away after enumeration.
type Viewer interface {
	ListFrames(ctx context.Context) ([]record.FrameInfo, error)
	FrameMarkup(ctx context.Context, id string) (string, error)
}

// Store persists markup records.
type Store interface {
	PutMarkup(ctx context.Context, m *record.Markup) error
}

// Config for creating a Snapshotter.
type Config struct {
	Viewer Viewer
	Sink   Store
	Logger *slog.Logger
}

// Snapshotter captures and persists page snapshots.
type Snapshotter struct {
	viewer Viewer
	sink   Store
	logger *slog.Logger
}

// New creates a Snapshotter.
func New(cfg Config) *Snapshotter {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Snapshotter{viewer: cfg.Viewer, sink: cfg.Sink, logger: cfg.Logger}
}

// Capture reads every frame, then persists each one as (page, index).
// Nothing is written when extraction fails. Persist failures carry
// record.ErrStorage.
func (s *Snapshotter) Capture(ctx context.Context, page int) (record.Snapshot, error) {
	snap, err := s.read(ctx, page)
	if err != nil {
		return record.Snapshot{}, err
	}
	if err := s.persist(ctx, snap); err != nil {
		return record.Snapshot{}, err
	}
	return snap, nil
}

func (s *Snapshotter) read(ctx context.Context, page int) (record.Snapshot, error) {
	infos, err := s.viewer.ListFrames(ctx)
	if err != nil {
		return record.Snapshot{}, fmt.Errorf("snapshot: list frames: %w", err)
	}

	snap := record.Snapshot{Page: page, Frames: make([]record.Frame, 0, len(infos))}
	for _, fi := range infos {
		html, err := s.viewer.FrameMarkup(ctx, fi.ID)
		if errors.Is(err, record.ErrFrameDetached) {
			s.logger.Debug("snapshot: frame detached", "page", page, "frame", fi.ID)
			continue
		}
		if err != nil {
			return record.Snapshot{}, fmt.Errorf("snapshot: frame %s: %w", fi.ID, err)
		}
		snap.Frames = append(snap.Frames, record.Frame{
			Index: len(snap.Frames),
			ID:    fi.ID,
			URL:   fi.URL,
			HTML:  html,
		})
	}
	if len(snap.Frames) == 0 {
		return record.Snapshot{}, errNoFrames
	}
	return snap, nil
}

func (s *Snapshotter) persist(ctx context.Context, snap record.Snapshot) error {
	now := time.Now().UnixMilli()
	for _, f := range snap.Frames {
		m := &record.Markup{
			Page:      snap.Page,
			Frame:     f.Index,
			URL:       f.URL,
			HTML:      f.HTML,
			ImageRefs: ImageRefs(f.HTML),
			Timestamp: now,
		}
		if err := s.sink.PutMarkup(ctx, m); err != nil {
			if !errors.Is(err, record.ErrStorage) {
				err = errors.Join(record.ErrStorage, err)
			}
			return fmt.Errorf("snapshot: persist %s: %w", m.Key(), err)
		}
	}
	s.logger.Debug("snapshot: captured", "page", snap.Page, "frames", len(snap.Frames), "bytes", snap.Size())
	return nil
}

// Equal reports whether a and b hold the same markup in the same frame
// order.
func Equal(a, b record.Snapshot) bool { return a.Equal(b) }
