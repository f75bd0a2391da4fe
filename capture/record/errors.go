package record

import (
	"errors"
	"fmt"
)

// ErrCapture is returned when frame extraction fails twice in a row.
var ErrCapture = errors.New("capture: frame extraction failed")

// ErrStorage is returned when a sink cannot create or write its destination.
var ErrStorage = errors.New("capture: storage write failed")

// ErrNavigation is returned when the page-turn command fails twice in a row.
var ErrNavigation = errors.New("capture: page turn failed")

// ErrAborted is returned when the run is cancelled by the operator.
var ErrAborted = errors.New("capture: aborted")

// ErrFrameDetached is returned by a viewer when a frame went away between
// enumeration and extraction. Snapshotters skip such frames.
var ErrFrameDetached = errors.New("capture: frame detached")

// PageError ties a loop failure to the page index at which it occurred.
type PageError struct {
	Page int
	Op   string // "capture" or "turn"
	Err  error
}

func (e *PageError) Error() string {
	return fmt.Sprintf("capture: page %d: %s: %v", e.Page, e.Op, e.Err)
}

func (e *PageError) Unwrap() error { return e.Err }

// ReasonFor classifies a loop error into a termination reason.
func ReasonFor(err error) Reason {
	switch {
	case err == nil:
		return ReasonUnknown
	case errors.Is(err, ErrAborted):
		return Aborted
	case errors.Is(err, ErrStorage):
		return StorageError
	case errors.Is(err, ErrNavigation):
		return NavigationError
	default:
		return CaptureError
	}
}
