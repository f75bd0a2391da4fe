// Package capture drives a paginated web reader through a browser and
// keeps everything it renders: the markup of every page and frame, and
// every image the viewer loads along the way.
//
// A run opens a persistent browser session, lets the operator sign in,
// then loops snapshot, compare, turn, wait until the content stops
// changing or the page limit is reached. Images are captured from the
// network layer for the whole session, independently of the loop.
package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/hazyhaar/readercap/capture/internal/browser"
	"github.com/hazyhaar/readercap/capture/internal/bundle"
	"github.com/hazyhaar/readercap/capture/internal/config"
	"github.com/hazyhaar/readercap/capture/internal/netobs"
	"github.com/hazyhaar/readercap/capture/internal/pager"
	"github.com/hazyhaar/readercap/capture/internal/sink"
	"github.com/hazyhaar/readercap/capture/internal/snapshot"
	"github.com/hazyhaar/readercap/capture/internal/status"
	"github.com/hazyhaar/readercap/capture/record"
)

// Viewer is what the capture loop needs from the browser.
type Viewer interface {
	ListFrames(ctx context.Context) ([]record.FrameInfo, error)
	FrameMarkup(ctx context.Context, id string) (string, error)
	NavigateForward(ctx context.Context) error
	OnResourceResponse(ctx context.Context, fn func(record.Response)) error
}

// Session is a Viewer bound to a browser that can load the start URL and
// be torn down.
type Session interface {
	Viewer
	Navigate(ctx context.Context, url string) error
	Close() error
}

// Capturer runs one capture. Create one per run.
type Capturer struct {
	cfg         *config.Config
	logger      *slog.Logger
	extra       []sink.Sink
	openSession func(ctx context.Context) (Session, error)
	in          io.Reader
	out         io.Writer
}

// Option configures a Capturer.
type Option func(*Capturer)

// WithSession replaces the Chrome session with another Viewer source.
func WithSession(open func(ctx context.Context) (Session, error)) Option {
	return func(c *Capturer) { c.openSession = open }
}

// WithOperator sets where the sign-in pause reads Enter and writes its
// prompt. Default: stdin and stderr.
func WithOperator(in io.Reader, out io.Writer) Option {
	return func(c *Capturer) { c.in, c.out = in, out }
}

// WithSinks adds sinks that receive every record after the filesystem
// store. Their errors are logged, never fatal.
func WithSinks(sinks ...Sink) Option {
	return func(c *Capturer) { c.extra = append(c.extra, sinks...) }
}

// New creates a Capturer from configuration.
func New(cfg *Config, logger *slog.Logger, opts ...Option) *Capturer {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Capturer{cfg: cfg, logger: logger, in: os.Stdin, out: os.Stderr}
	c.openSession = c.launchChrome
	for _, o := range opts {
		o(c)
	}
	return c
}

// Run executes the capture. The summary is always filled. The error is
// non-nil for startup failures and for the capture_error,
// navigation_error and storage_error reasons.
func (c *Capturer) Run(ctx context.Context) (record.Summary, error) {
	cfg := c.cfg
	cfg.ApplyDefaults()

	sum := record.Summary{URL: cfg.URL, StartedAt: time.Now()}
	if err := cfg.Validate(); err != nil {
		return c.finish(sum, err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return c.finish(sum, fmt.Errorf("capture: run id: %w", err))
	}
	sum.RunID = id.String()
	log := c.logger.With("run_id", sum.RunID)

	router, manifest, err := c.openSinks(ctx, sum, log)
	if err != nil {
		return c.finish(sum, err)
	}

	sess, err := c.openSession(ctx)
	if err != nil {
		router.Close()
		return c.finish(sum, fmt.Errorf("capture: open session: %w", err))
	}
	defer func() {
		if err := sess.Close(); err != nil {
			log.Warn("capture: close session", "error", err)
		}
	}()
	defer func() {
		if err := router.Close(); err != nil {
			log.Warn("capture: close sinks", "error", err)
		}
	}()

	obs := netobs.New(netobs.Config{Sink: router, QueueSize: cfg.Capture.QueueSize, Logger: log})
	defer obs.Close()

	tracker := status.NewTracker(sum.RunID, cfg.URL, func() (uint64, uint64) {
		st := obs.Stats()
		return st.Captured, st.Skipped
	})
	if cfg.StatusAddr != "" {
		stop, err := status.Serve(ctx, cfg.StatusAddr, tracker, log)
		if err != nil {
			return c.finish(sum, fmt.Errorf("capture: status server: %w", err))
		}
		defer stop()
	}

	if err := obs.Attach(ctx, sess); err != nil {
		return c.finish(sum, fmt.Errorf("capture: attach network observer: %w", err))
	}
	if err := sess.Navigate(ctx, cfg.URL); err != nil {
		return c.finish(sum, fmt.Errorf("capture: %w", err))
	}

	if !cfg.Capture.NoWait {
		tracker.SetPhase(status.PhaseWaiting)
		if err := WaitForEnter(ctx, c.in, c.out); err != nil && ctx.Err() == nil {
			log.Warn("capture: operator input", "error", err)
		}
	}

	var res pager.Result
	var loopErr error
	if ctx.Err() != nil {
		res.Reason = record.Aborted
	} else {
		tracker.SetPhase(status.PhaseCapture)
		ctrl := pager.New(pager.Config{
			Snapshotter:   snapshot.New(snapshot.Config{Viewer: sess, Sink: router, Logger: log}),
			Navigator:     sess,
			MaxPages:      cfg.Capture.MaxPages,
			Delay:         cfg.Capture.Delay,
			StopThreshold: cfg.Capture.StopUnchanged,
			Logger:        log,
			Progress: func(p pager.Progress) {
				tracker.Progress(p.Page, p.Turns, p.Streak)
			},
		})
		res, loopErr = ctrl.Run(ctx)
	}

	// Images of the last pages may still be queued.
	tracker.SetPhase(status.PhaseDraining)
	obs.Close()
	st := obs.Stats()

	sum.Reason = res.Reason
	sum.Pages, sum.Turns, sum.Streak = res.Pages, res.Turns, res.Streak
	sum.Resources, sum.Skipped = st.Captured, st.Skipped
	sum.EndedAt = time.Now()
	if loopErr != nil {
		sum.Error = loopErr.Error()
	}
	tracker.Finish(sum.Reason)

	// The run context may be cancelled; the summary and the bundle still
	// have to be written.
	bg := context.WithoutCancel(ctx)
	if err := router.PutSummary(bg, sum); err != nil {
		log.Error("capture: write summary", "error", err)
	}
	if cfg.PDF != "" {
		c.bundle(bg, manifest, cfg.PDF, log)
	}

	log.Info("capture: run finished",
		"reason", sum.Reason, "pages", sum.Pages, "turns", sum.Turns,
		"resources", sum.Resources, "skipped", sum.Skipped)
	return sum, loopErr
}

func (c *Capturer) openSinks(ctx context.Context, start record.Summary, log *slog.Logger) (*sink.Router, *sink.Manifest, error) {
	cfg := c.cfg

	var fopts []sink.FilesOption
	if cfg.Capture.Sanitize {
		fopts = append(fopts, sink.WithSanitizedCopies())
	}
	files, err := sink.NewFiles(cfg.OutputDir, fopts...)
	if err != nil {
		return nil, nil, fmt.Errorf("capture: %w", err)
	}

	manifest, err := sink.OpenManifest(ctx, filepath.Join(cfg.OutputDir, "manifest.db"), start)
	if err != nil {
		return nil, nil, fmt.Errorf("capture: %w", err)
	}

	taps := []sink.Sink{manifest}
	for _, sc := range cfg.Sinks {
		switch sc.Type {
		case "stdout":
			taps = append(taps, sink.NewStdout(os.Stdout))
		case "webhook":
			wopts := []sink.WebhookOption{sink.WithWebhookLogger(log)}
			if sc.Retries > 0 {
				wopts = append(wopts, sink.WithWebhookRetries(sc.Retries))
			}
			taps = append(taps, sink.NewWebhook(sc.URL, wopts...))
		}
	}
	taps = append(taps, c.extra...)

	return sink.NewRouter(log, files, taps...), manifest, nil
}

func (c *Capturer) bundle(ctx context.Context, manifest *sink.Manifest, out string, log *slog.Logger) {
	paths, err := manifest.ResourcePaths(ctx)
	if err != nil {
		log.Warn("capture: list resources for pdf", "error", err)
		return
	}
	if _, err := bundle.Build(ctx, paths, out, log); err != nil {
		log.Warn("capture: pdf bundle", "error", err)
	}
}

// finish closes a run that failed before the loop started.
func (c *Capturer) finish(sum record.Summary, err error) (record.Summary, error) {
	sum.EndedAt = time.Now()
	sum.Error = err.Error()
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		sum.Reason = record.Aborted
		return sum, nil
	}
	c.logger.Error("capture: startup failed", "error", err)
	return sum, err
}

// launchChrome launches Chrome on the configured profile and opens the
// reader tab.
func (c *Capturer) launchChrome(ctx context.Context) (Session, error) {
	bc := c.cfg.Browser
	key, err := browser.ParseKey(bc.TurnKey)
	if err != nil {
		return nil, err
	}

	mgr := browser.NewManager(browser.Config{
		RemoteURL:        bc.Remote,
		ProfileDir:       bc.ProfileDir,
		Headless:         bc.Headless,
		XvfbDisplay:      bc.XvfbDisplay,
		Bin:              bc.Bin,
		Stealth:          bc.Stealth,
		ResourceBlocking: bc.ResourceBlocking,
		NavigateTimeout:  bc.NavigateTimeout,
		Logger:           c.logger,
	})
	if _, err := mgr.Start(ctx); err != nil {
		mgr.Close()
		return nil, err
	}
	tab, err := browser.OpenTab(mgr, browser.TabOptions{TurnKey: key})
	if err != nil {
		mgr.Close()
		return nil, err
	}
	return &chromeSession{Tab: tab, mgr: mgr}, nil
}

type chromeSession struct {
	*browser.Tab
	mgr *browser.Manager
}

func (s *chromeSession) Close() error {
	return errors.Join(s.Tab.Close(), s.mgr.Close())
}
