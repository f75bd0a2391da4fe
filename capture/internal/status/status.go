// Package status serves the progress of a running capture over HTTP so a
// long unattended run can be watched from another terminal.
package status

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hazyhaar/readercap/capture/record"
)

// Phase is the coarse state of a run.
type Phase string

const (
	PhaseStarting Phase = "starting"
	PhaseWaiting  Phase = "waiting_operator"
	PhaseCapture  Phase = "capturing"
	PhaseDraining Phase = "draining"
	PhaseDone     Phase = "done"
)

// Report is the body of GET /status.
type Report struct {
	RunID     string        `json:"run_id"`
	URL       string        `json:"url"`
	Phase     Phase         `json:"phase"`
	Page      int           `json:"page"`
	Turns     int           `json:"turns"`
	Streak    int           `json:"streak"`
	Resources uint64        `json:"resources"`
	Skipped   uint64        `json:"skipped"`
	Reason    record.Reason `json:"reason,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	Elapsed   string        `json:"elapsed"`
}

// Tracker holds the latest progress. Safe for concurrent use.
type Tracker struct {
	mu        sync.RWMutex
	rep       Report
	resources func() (captured, skipped uint64)
}

// NewTracker creates a Tracker for one run. resources, if set, is polled
// on every report for the network observer counters.
func NewTracker(runID, url string, resources func() (captured, skipped uint64)) *Tracker {
	return &Tracker{
		rep:       Report{RunID: runID, URL: url, Phase: PhaseStarting, StartedAt: time.Now()},
		resources: resources,
	}
}

// SetPhase records a phase change.
func (t *Tracker) SetPhase(p Phase) {
	t.mu.Lock()
	t.rep.Phase = p
	t.mu.Unlock()
}

// Progress records the outcome of one loop iteration.
func (t *Tracker) Progress(page, turns, streak int) {
	t.mu.Lock()
	t.rep.Page, t.rep.Turns, t.rep.Streak = page, turns, streak
	t.mu.Unlock()
}

// Finish records the termination reason.
func (t *Tracker) Finish(reason record.Reason) {
	t.mu.Lock()
	t.rep.Phase = PhaseDone
	t.rep.Reason = reason
	t.mu.Unlock()
}

// Report returns the current progress.
func (t *Tracker) Report() Report {
	t.mu.RLock()
	rep := t.rep
	t.mu.RUnlock()

	if t.resources != nil {
		rep.Resources, rep.Skipped = t.resources()
	}
	rep.Elapsed = time.Since(rep.StartedAt).Round(time.Second).String()
	return rep
}

// Handler returns the status routes.
func Handler(t *Tracker) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/status", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, t.Report())
	})
	return r
}

// Serve listens on addr until ctx is done. The listener is bound before
// Serve returns so a bad address fails the run at startup.
func Serve(ctx context.Context, addr string, t *Tracker, logger *slog.Logger) (stop func(), err error) {
	if logger == nil {
		logger = slog.Default()
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	srv := &http.Server{Handler: Handler(t), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("status: server stopped", "error", err)
		}
	}()
	logger.Info("status: listening", "addr", ln.Addr().String())

	var once sync.Once
	stop = func() {
		once.Do(func() {
			shutCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			srv.Shutdown(shutCtx)
		})
	}
	go func() {
		<-ctx.Done()
		stop()
	}()
	return stop, nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
