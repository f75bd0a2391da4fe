// Package netobs captures image resources as they stream through the
// browser network layer. It has no notion of page: everything the viewer
// loads during the session is a candidate, including prefetched pages.
package netobs

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hazyhaar/readercap/capture/record"
)

// errEmptyBody marks a response that completed with no payload.
var errEmptyBody = errors.New("netobs: empty body")

// Source delivers completed network responses. Failed or aborted loads
// must not be delivered.
type Source interface {
	OnResourceResponse(ctx context.Context, fn func(record.Response)) error
}

// Store persists captured resources. Implementations resolve name
// collisions and fill Path.
type Store interface {
	PutResource(ctx context.Context, r *record.Resource) error
}

// Config for creating an Observer.
type Config struct {
	Sink        Store
	QueueSize   int           // default 256
	ReadTimeout time.Duration // per body read, 0 = bounded only by the browser
	Logger      *slog.Logger
}

func (c *Config) defaults() {
	if c.QueueSize <= 0 {
		c.QueueSize = 256
	}
	if c.ReadTimeout < 0 {
		c.ReadTimeout = 0
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Stats counts what the observer did with the responses it saw.
type Stats struct {
	Captured uint64 `json:"captured"`
	Skipped  uint64 `json:"skipped"` // qualifying responses that could not be stored
	Ignored  uint64 `json:"ignored"` // non-image responses
}

type pending struct {
	seq  uint64
	resp record.Response
	at   time.Time
}

// Observer classifies responses on the browser's event goroutine and
// hands qualifying ones to a single worker that reads bodies and writes
// through the store.
type Observer struct {
	store       Store
	logger      *slog.Logger
	readTimeout time.Duration

	mu     sync.RWMutex
	closed bool
	queue  chan pending
	done   chan struct{}

	seq      atomic.Uint64
	captured atomic.Uint64
	skipped  atomic.Uint64
	ignored  atomic.Uint64
}

// New creates an Observer and starts its worker.
func New(cfg Config) *Observer {
	cfg.defaults()
	o := &Observer{
		store:       cfg.Sink,
		logger:      cfg.Logger,
		readTimeout: cfg.ReadTimeout,
		queue:       make(chan pending, cfg.QueueSize),
		done:        make(chan struct{}),
	}
	go o.work()
	return o
}

// Attach subscribes the observer to src. Call once per session.
func (o *Observer) Attach(ctx context.Context, src Source) error {
	return src.OnResourceResponse(ctx, o.Handle)
}

// Handle receives one completed response. Safe for concurrent use.
// Responses arriving after Close are dropped.
func (o *Observer) Handle(resp record.Response) {
	if !IsImage(resp) {
		o.ignored.Add(1)
		return
	}

	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.closed {
		return
	}
	o.queue <- pending{seq: o.seq.Add(1), resp: resp, at: time.Now()}
}

// Close stops accepting responses, drains the queue and waits for the
// last write to finish.
func (o *Observer) Close() error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		<-o.done
		return nil
	}
	o.closed = true
	close(o.queue)
	o.mu.Unlock()

	<-o.done
	return nil
}

// Stats returns a snapshot of the counters.
func (o *Observer) Stats() Stats {
	return Stats{
		Captured: o.captured.Load(),
		Skipped:  o.skipped.Load(),
		Ignored:  o.ignored.Load(),
	}
}

func (o *Observer) work() {
	defer close(o.done)
	for p := range o.queue {
		if err := o.persist(p); err != nil {
			o.skipped.Add(1)
			o.logger.Warn("netobs: resource skipped",
				"seq", p.seq, "url", p.resp.URL, "error", err)
			continue
		}
		o.captured.Add(1)
	}
}

func (o *Observer) persist(p pending) error {
	// The run context may already be cancelled while the queue drains,
	// so bodies are read on a detached context.
	ctx := context.Background()
	if o.readTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.readTimeout)
		defer cancel()
	}

	if p.resp.Body == nil {
		return errEmptyBody
	}
	body, err := p.resp.Body(ctx)
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return errEmptyBody
	}

	mimeType := MediaType(p.resp)
	res := &record.Resource{
		Seq:       p.seq,
		URL:       p.resp.URL,
		Name:      DeriveName(p.resp.URL, mimeType),
		MIMEType:  mimeType,
		Data:      body,
		Size:      len(body),
		Timestamp: p.at.UnixMilli(),
	}
	if err := o.store.PutResource(ctx, res); err != nil {
		return err
	}
	o.logger.Debug("netobs: captured", "seq", res.Seq, "path", res.Path, "size", res.Size)
	return nil
}
