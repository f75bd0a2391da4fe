// Package config handles readercap configuration from YAML files.
// Command-line flags are applied on top by the caller.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/readercap/capture/internal/browser"
)

// Config is the top-level readercap configuration.
type Config struct {
	URL        string        `yaml:"url"`
	OutputDir  string        `yaml:"output_dir"`
	Browser    BrowserConfig `yaml:"browser"`
	Capture    CaptureConfig `yaml:"capture"`
	Sinks      []SinkConfig  `yaml:"sinks"`
	StatusAddr string        `yaml:"status_addr"` // empty = no status endpoint
	PDF        string        `yaml:"pdf"`         // empty = no PDF bundle
}

// BrowserConfig controls the Chrome session.
type BrowserConfig struct {
	Remote           string        `yaml:"remote"`
	ProfileDir       string        `yaml:"profile_dir"` // default <output_dir>/browser_profile
	Headless         bool          `yaml:"headless"`
	XvfbDisplay      string        `yaml:"xvfb_display"`
	Bin              string        `yaml:"bin"`
	Stealth          bool          `yaml:"stealth"`
	ResourceBlocking []string      `yaml:"resource_blocking"` // fonts | media | stylesheets
	NavigateTimeout  time.Duration `yaml:"navigate_timeout"`
	TurnKey          string        `yaml:"turn_key"`
}

// CaptureConfig controls the pagination loop and the network observer.
type CaptureConfig struct {
	MaxPages      int           `yaml:"max_pages"`
	Delay         time.Duration `yaml:"-"` // decoded by UnmarshalYAML
	StopUnchanged int           `yaml:"stop_unchanged"`
	NoWait        bool          `yaml:"no_wait"` // skip the operator pause
	Sanitize      bool          `yaml:"sanitize"`
	QueueSize     int           `yaml:"queue_size"`
}

// SinkConfig defines an additional output backend. The filesystem store
// and the manifest are always on.
type SinkConfig struct {
	Type    string `yaml:"type"` // stdout | webhook
	URL     string `yaml:"url"`  // for webhook
	Retries int    `yaml:"retries"`
}

// Default returns the configuration used when neither a file nor flags
// say otherwise.
func Default() *Config {
	return &Config{
		OutputDir: "output",
		Browser: BrowserConfig{
			NavigateTimeout: 60 * time.Second,
			TurnKey:         "ArrowRight",
		},
		Capture: CaptureConfig{
			MaxPages:      300,
			Delay:         time.Second,
			StopUnchanged: 3,
			QueueSize:     256,
		},
	}
}

// LoadFile reads a YAML configuration file over the defaults. Keys absent
// from the file keep their default value.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.ApplyDefaults()
	return cfg, nil
}

// ApplyDefaults fills fields that derive from others. Call it again after
// overriding OutputDir.
func (c *Config) ApplyDefaults() {
	if c.OutputDir == "" {
		c.OutputDir = "output"
	}
	if c.Browser.ProfileDir == "" {
		c.Browser.ProfileDir = filepath.Join(c.OutputDir, "browser_profile")
	}
	if c.Browser.NavigateTimeout <= 0 {
		c.Browser.NavigateTimeout = 60 * time.Second
	}
	if c.Browser.TurnKey == "" {
		c.Browser.TurnKey = "ArrowRight"
	}
	if c.Capture.QueueSize <= 0 {
		c.Capture.QueueSize = 256
	}
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs []error

	if c.URL == "" {
		errs = append(errs, errors.New("url is required"))
	} else if u, err := url.Parse(c.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("url %q is not an http(s) URL", c.URL))
	}
	if c.Capture.MaxPages < 1 {
		errs = append(errs, fmt.Errorf("max_pages must be >= 1, got %d", c.Capture.MaxPages))
	}
	if c.Capture.StopUnchanged < 1 {
		errs = append(errs, fmt.Errorf("stop_unchanged must be >= 1, got %d", c.Capture.StopUnchanged))
	}
	if c.Capture.Delay < 0 {
		errs = append(errs, fmt.Errorf("delay must not be negative, got %s", c.Capture.Delay))
	}
	if _, err := browser.ParseKey(c.Browser.TurnKey); err != nil {
		errs = append(errs, err)
	}
	for _, r := range c.Browser.ResourceBlocking {
		switch strings.ToLower(r) {
		case "fonts", "media", "stylesheets":
		case "images":
			errs = append(errs, errors.New("resource_blocking: images cannot be blocked"))
		default:
			errs = append(errs, fmt.Errorf("resource_blocking: unknown type %q", r))
		}
	}
	for i, s := range c.Sinks {
		switch s.Type {
		case "stdout":
		case "webhook":
			if s.URL == "" {
				errs = append(errs, fmt.Errorf("sinks[%d]: webhook needs a url", i))
			}
		default:
			errs = append(errs, fmt.Errorf("sinks[%d]: unknown type %q", i, s.Type))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}
