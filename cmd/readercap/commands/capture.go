package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/readercap/capture"
)

var captureFlags struct {
	config        string
	url           string
	outputDir     string
	profileDir    string
	headless      bool
	stealth       bool
	maxPages      int
	delay         seconds
	stopUnchanged int
	noWait        bool
	turnKey       string
	statusAddr    string
	pdf           string
	sanitize      bool
	events        bool
	webhook       string
}

var captureCmd = &cobra.Command{
	Use:   "capture --url <reader url> [flags]",
	Short: "Opens the reader, waits for sign-in, then captures page after page.",
	Args:  cobra.NoArgs,
	RunE:  runCapture,
}

func init() {
	registerCaptureFlags()
	rootCmd.AddCommand(captureCmd)
}

func registerCaptureFlags() {
	f := captureCmd.Flags()
	f.StringVar(&captureFlags.config, "config", "", "YAML configuration file; flags override it")
	f.StringVar(&captureFlags.url, "url", "", "reader URL to open")
	f.StringVar(&captureFlags.outputDir, "output-dir", "output", "directory for html/, images/, manifest.db and summary.json")
	f.StringVar(&captureFlags.profileDir, "profile-dir", "", "persistent browser profile (default <output-dir>/browser_profile)")
	f.BoolVar(&captureFlags.headless, "headless", false, "run the browser without a window")
	f.BoolVar(&captureFlags.stealth, "stealth", false, "inject anti-automation-detection evasions")
	f.IntVar(&captureFlags.maxPages, "max-pages", 300, "maximum number of page turns")
	captureFlags.delay = seconds(defaultDelay)
	f.Var(&captureFlags.delay, "delay", "wait after each page turn, in seconds (1.5) or as a duration (1500ms)")
	f.IntVar(&captureFlags.stopUnchanged, "stop-unchanged", 3, "stop after this many identical consecutive snapshots")
	f.BoolVar(&captureFlags.noWait, "no-wait", false, "start capturing without waiting for Enter")
	f.StringVar(&captureFlags.turnKey, "turn-key", "ArrowRight", "key that turns the page: ArrowRight, ArrowLeft, ArrowDown, PageDown, Space, Enter")
	f.StringVar(&captureFlags.statusAddr, "status-addr", "", "serve progress on this address, e.g. 127.0.0.1:8089")
	f.StringVar(&captureFlags.pdf, "pdf", "", "bundle the captured images into this PDF after the run")
	f.BoolVar(&captureFlags.sanitize, "sanitize", false, "also write sanitised .clean.html copies of every frame")
	f.BoolVar(&captureFlags.events, "events", false, "emit JSON-lines records on stdout")
	f.StringVar(&captureFlags.webhook, "webhook", "", "POST every record to this URL")
}

func runCapture(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	sum, err := capture.New(cfg, logger).Run(cmd.Context())
	exitCode = sum.Reason.ExitCode()
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "%s: %d pages, %d images in %s\n",
		sum.Reason, sum.Pages, sum.Resources, filepath.Join(cfg.OutputDir, "images"))
	return nil
}

// buildConfig layers explicitly set flags over the config file (or the
// defaults when there is none).
func buildConfig(cmd *cobra.Command) (*capture.Config, error) {
	cfg := capture.DefaultConfig()
	if captureFlags.config != "" {
		loaded, err := capture.LoadConfigFile(captureFlags.config)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	fl := cmd.Flags()
	set := func(name string, apply func()) {
		if fl.Changed(name) {
			apply()
		}
	}
	set("url", func() { cfg.URL = captureFlags.url })
	set("output-dir", func() {
		cfg.OutputDir = captureFlags.outputDir
		if !fl.Changed("profile-dir") {
			cfg.Browser.ProfileDir = ""
		}
	})
	set("profile-dir", func() { cfg.Browser.ProfileDir = captureFlags.profileDir })
	set("headless", func() { cfg.Browser.Headless = captureFlags.headless })
	set("stealth", func() { cfg.Browser.Stealth = captureFlags.stealth })
	set("max-pages", func() { cfg.Capture.MaxPages = captureFlags.maxPages })
	set("delay", func() { cfg.Capture.Delay = captureFlags.delay.Duration() })
	set("stop-unchanged", func() { cfg.Capture.StopUnchanged = captureFlags.stopUnchanged })
	set("no-wait", func() { cfg.Capture.NoWait = captureFlags.noWait })
	set("turn-key", func() { cfg.Browser.TurnKey = captureFlags.turnKey })
	set("status-addr", func() { cfg.StatusAddr = captureFlags.statusAddr })
	set("pdf", func() { cfg.PDF = captureFlags.pdf })
	set("sanitize", func() { cfg.Capture.Sanitize = captureFlags.sanitize })
	set("events", func() {
		if captureFlags.events {
			cfg.Sinks = append(cfg.Sinks, capture.SinkConfig{Type: "stdout"})
		}
	})
	set("webhook", func() {
		cfg.Sinks = append(cfg.Sinks, capture.SinkConfig{Type: "webhook", URL: captureFlags.webhook})
	})

	cfg.ApplyDefaults()
	return cfg, cfg.Validate()
}
