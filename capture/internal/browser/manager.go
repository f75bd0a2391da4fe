// Package browser manages the Chrome session a capture runs in: launch
// against a persistent profile (or attach to a remote instance), open the
// reader tab, and expose the viewer capabilities the capture loop needs:
// frame markup, key dispatch and network responses.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
)

// Config configures the browser manager.
type Config struct {
	// RemoteURL is the WebSocket URL of an external Chrome instance.
	// Empty = launch a local Chrome via launcher.
	RemoteURL string

	// ProfileDir is the persistent user-data directory. Created if absent,
	// reused otherwise, never removed.
	ProfileDir string

	// Headless hides the browser window. The operator usually needs a
	// visible window to sign in.
	Headless bool

	// XvfbDisplay starts a virtual display for headful mode on hosts
	// without X. Empty = use the current DISPLAY.
	XvfbDisplay string

	// Bin overrides the Chrome binary. Empty = launcher lookup/download.
	Bin string

	// Stealth injects go-rod/stealth evasions into the reader tab.
	Stealth bool

	// ResourceBlocking lists resource types to block (fonts, media,
	// stylesheets). Images are never blocked.
	ResourceBlocking []string

	// NavigateTimeout bounds the initial navigation. Default: 60s.
	NavigateTimeout time.Duration

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.NavigateTimeout <= 0 {
		c.NavigateTimeout = 60 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Manager owns the Chrome process for the lifetime of one session.
type Manager struct {
	cfg     Config
	mu      sync.RWMutex
	browser *rod.Browser
	lnch    *launcher.Launcher
	xvfb    *exec.Cmd
	closed  bool
}

// NewManager creates a browser Manager. Call Start to launch Chrome.
func NewManager(cfg Config) *Manager {
	cfg.defaults()
	return &Manager{cfg: cfg}
}

// Start launches Chrome (or connects to a remote instance) and returns
// the Rod browser handle.
func (m *Manager) Start(ctx context.Context) (*rod.Browser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, errors.New("browser: manager is closed")
	}
	if m.browser != nil {
		return m.browser, nil
	}

	b, err := m.launch(ctx)
	if err != nil {
		m.cleanup()
		return nil, err
	}
	m.browser = b
	return b, nil
}

// Browser returns the current Rod browser handle. Thread-safe.
func (m *Manager) Browser() *rod.Browser {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.browser
}

// Close shuts down Chrome and Xvfb. The profile directory is kept.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	return m.cleanup()
}

func (m *Manager) launch(ctx context.Context) (*rod.Browser, error) {
	log := m.cfg.Logger

	var wsURL string

	if m.cfg.RemoteURL != "" {
		wsURL = m.cfg.RemoteURL
		log.Info("browser: connecting to remote", "url", wsURL)
	} else {
		l := launcher.New().Context(ctx)

		if m.cfg.ProfileDir != "" {
			if err := os.MkdirAll(m.cfg.ProfileDir, 0o700); err != nil {
				return nil, fmt.Errorf("browser: profile dir: %w", err)
			}
			l = l.UserDataDir(m.cfg.ProfileDir)
		}
		if m.cfg.Bin != "" {
			l = l.Bin(m.cfg.Bin)
		}

		if m.cfg.Headless {
			l = l.Headless(true)
		} else {
			l = l.Headless(false)
			if m.cfg.XvfbDisplay != "" {
				if err := m.startXvfb(); err != nil {
					return nil, fmt.Errorf("browser: xvfb: %w", err)
				}
				l = l.Env(append(os.Environ(), "DISPLAY="+m.cfg.XvfbDisplay)...)
			}
		}

		// Anti-detection flags.
		l = l.Set("disable-blink-features", "AutomationControlled")

		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("browser: launch: %w", err)
		}
		wsURL = u
		m.lnch = l
		log.Info("browser: launched local chrome",
			"url", wsURL, "headless", m.cfg.Headless, "profile", m.cfg.ProfileDir)
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("browser: connect: %w", err)
	}
	return b, nil
}

func (m *Manager) cleanup() error {
	var err error
	if m.browser != nil {
		err = m.browser.Close()
		m.browser = nil
	}
	if m.lnch != nil {
		// Kill, not Cleanup: Cleanup deletes the user-data dir.
		m.lnch.Kill()
		m.lnch = nil
	}
	m.stopXvfb()
	if err != nil {
		return fmt.Errorf("browser: close: %w", err)
	}
	return nil
}
