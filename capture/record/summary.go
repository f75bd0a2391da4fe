package record

import "time"

// Summary describes a finished run. Emitted once to every sink.
type Summary struct {
	RunID     string    `json:"run_id"` // UUIDv7
	URL       string    `json:"url"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
	Reason    Reason    `json:"reason"`
	Pages     int       `json:"pages"`     // snapshots captured
	Turns     int       `json:"turns"`     // page-turn commands issued
	Streak    int       `json:"streak"`    // unchanged streak at exit
	Resources uint64    `json:"resources"` // images persisted
	Skipped   uint64    `json:"skipped"`   // images dropped (unreadable body, storage)
	Error     string    `json:"error,omitempty"`
}
