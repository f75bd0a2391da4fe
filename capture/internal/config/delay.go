package config

import (
	"fmt"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ParseDelay reads a delay given either as a number of seconds ("1.5")
// or as a Go duration ("1500ms").
func ParseDelay(v string) (time.Duration, error) {
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		if f < 0 {
			return 0, fmt.Errorf("negative delay %q", v)
		}
		return time.Duration(f * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid delay %q: want seconds (1.5) or a duration (1500ms)", v)
	}
	if d < 0 {
		return 0, fmt.Errorf("negative delay %q", v)
	}
	return d, nil
}

// UnmarshalYAML decodes the capture section, reading delay through
// ParseDelay so the file accepts the same values as --delay.
func (c *CaptureConfig) UnmarshalYAML(n *yaml.Node) error {
	type plain CaptureConfig
	aux := struct {
		plain `yaml:",inline"`
		Delay *yaml.Node `yaml:"delay"`
	}{plain: plain(*c)}
	if err := n.Decode(&aux); err != nil {
		return err
	}
	*c = CaptureConfig(aux.plain)

	if aux.Delay != nil && aux.Delay.Tag != "!!null" {
		if aux.Delay.Kind != yaml.ScalarNode {
			return fmt.Errorf("line %d: delay must be a scalar", aux.Delay.Line)
		}
		d, err := ParseDelay(aux.Delay.Value)
		if err != nil {
			return fmt.Errorf("line %d: %w", aux.Delay.Line, err)
		}
		c.Delay = d
	}
	return nil
}
