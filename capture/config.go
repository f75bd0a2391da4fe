package capture

import (
	"time"

	"github.com/hazyhaar/readercap/capture/internal/config"
)

// Config is the top-level readercap configuration. Re-exported from internal.
type Config = config.Config

// BrowserConfig controls the Chrome session.
type BrowserConfig = config.BrowserConfig

// CaptureConfig controls the pagination loop and the network observer.
type CaptureConfig = config.CaptureConfig

// SinkConfig defines an additional output backend.
type SinkConfig = config.SinkConfig

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return config.Default()
}

// LoadConfigFile reads a YAML configuration file over the defaults.
func LoadConfigFile(path string) (*Config, error) {
	return config.LoadFile(path)
}

// ParseDelay reads a delay given as seconds ("1.5") or a duration ("1500ms").
func ParseDelay(v string) (time.Duration, error) {
	return config.ParseDelay(v)
}
