package commands

import (
	"time"

	"github.com/hazyhaar/readercap/capture"
)

const defaultDelay = time.Second

// seconds is a pflag.Value holding a delay given either as a number of
// seconds ("1.5") or as a Go duration ("1500ms").
type seconds time.Duration

func (s *seconds) String() string { return time.Duration(*s).String() }

func (s *seconds) Set(v string) error {
	d, err := capture.ParseDelay(v)
	if err != nil {
		return err
	}
	*s = seconds(d)
	return nil
}

func (s *seconds) Type() string { return "seconds" }

func (s *seconds) Duration() time.Duration { return time.Duration(*s) }
