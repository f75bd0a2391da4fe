package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// TabOptions configures the reader tab.
type TabOptions struct {
	TurnKey      input.Key     // default ArrowRight
	FrameTimeout time.Duration // per-frame markup read, default 15s
}

// Tab is the reader page. It implements the viewer capabilities of the
// capture loop: ListFrames, FrameMarkup, NavigateForward and
// OnResourceResponse.
type Tab struct {
	Page *rod.Page

	turnKey      input.Key
	frameTimeout time.Duration
	navTimeout   time.Duration
	logger       *slog.Logger
	blocker      *rod.HijackRouter

	root frameNode // nil: the page itself

	mu     sync.Mutex
	mainID string
	frames map[string]frameNode // from the last ListFrames
}

// OpenTab prepares the reader tab without navigating. A persistent
// profile restores a blank tab at startup; it is reused so the operator
// sees a single window.
func OpenTab(mgr *Manager, opts TabOptions) (*Tab, error) {
	b := mgr.Browser()
	if b == nil {
		return nil, errors.New("browser: no active browser")
	}
	if opts.TurnKey == 0 {
		opts.TurnKey = input.ArrowRight
	}
	if opts.FrameTimeout <= 0 {
		opts.FrameTimeout = 15 * time.Second
	}

	page, err := mgr.newPage(b)
	if err != nil {
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}

	t := &Tab{
		Page:         page,
		turnKey:      opts.TurnKey,
		frameTimeout: opts.FrameTimeout,
		navTimeout:   mgr.cfg.NavigateTimeout,
		logger:       mgr.cfg.Logger,
		mainID:       string(page.FrameID),
	}

	if len(mgr.cfg.ResourceBlocking) > 0 {
		t.blocker = applyResourceBlocking(page, mgr.cfg.ResourceBlocking)
	}
	return t, nil
}

func (m *Manager) newPage(b *rod.Browser) (*rod.Page, error) {
	if m.cfg.Stealth {
		return stealth.Page(b)
	}
	if pages, err := b.Pages(); err == nil && len(pages) > 0 {
		return pages.First(), nil
	}
	return b.Page(proto.TargetCreateTarget{URL: ""})
}

// Navigate loads pageURL and waits for the load event. A load timeout is
// logged, not fatal: readers keep streaming after load.
func (t *Tab) Navigate(ctx context.Context, pageURL string) error {
	navCtx, cancel := context.WithTimeout(ctx, t.navTimeout)
	defer cancel()

	if err := t.Page.Context(navCtx).Navigate(pageURL); err != nil {
		return fmt.Errorf("browser: navigate %s: %w", pageURL, err)
	}
	if err := t.Page.Context(navCtx).WaitLoad(); err != nil {
		t.logger.Warn("browser: wait load timeout", "url", pageURL, "error", err)
	}
	return nil
}

// NavigateForward dispatches the page-turn key to the reader.
func (t *Tab) NavigateForward(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := t.Page.Keyboard.Press(t.turnKey); err != nil {
		return fmt.Errorf("browser: press key: %w", err)
	}
	return nil
}

// Close stops request interception and closes the tab.
func (t *Tab) Close() error {
	if t.blocker != nil {
		t.blocker.Stop()
	}
	if t.Page != nil {
		return t.Page.Close()
	}
	return nil
}
