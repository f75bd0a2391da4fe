package record

// Reason is why a capture run stopped.
type Reason int

const (
	ReasonUnknown   Reason = iota
	StaleContent           // unchanged streak reached the threshold
	MaxPagesReached        // loop exhausted without early stop
	Aborted                // external cancellation
	CaptureError           // frame extraction failed twice in a row
	NavigationError        // page turn failed twice in a row
	StorageError           // markup could not be persisted
)

var reasonNames = map[Reason]string{
	ReasonUnknown:   "unknown",
	StaleContent:    "stale_content",
	MaxPagesReached: "max_pages_reached",
	Aborted:         "aborted",
	CaptureError:    "capture_error",
	NavigationError: "navigation_error",
	StorageError:    "storage_error",
}

func (r Reason) String() string {
	if s, ok := reasonNames[r]; ok {
		return s
	}
	return "unknown"
}

// MarshalText encodes the reason by name.
func (r Reason) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText decodes a reason name. Unknown names decode to
// ReasonUnknown.
func (r *Reason) UnmarshalText(b []byte) error {
	for k, v := range reasonNames {
		if v == string(b) {
			*r = k
			return nil
		}
	}
	*r = ReasonUnknown
	return nil
}

// Success reports whether the run ended normally.
func (r Reason) Success() bool {
	return r == StaleContent || r == MaxPagesReached
}

// ExitCode maps a reason to a process exit status.
func (r Reason) ExitCode() int {
	switch {
	case r.Success():
		return 0
	case r == Aborted:
		return 130
	default:
		return 1
	}
}
