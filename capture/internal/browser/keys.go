package browser

import (
	"fmt"
	"strings"

	"github.com/go-rod/rod/lib/input"
)

var turnKeys = map[string]input.Key{
	"arrowright": input.ArrowRight,
	"arrowleft":  input.ArrowLeft,
	"arrowdown":  input.ArrowDown,
	"pagedown":   input.PageDown,
	"space":      input.Space,
	"enter":      input.Enter,
}

// ParseKey resolves a page-turn key name such as "ArrowRight".
// Matching is case-insensitive.
func ParseKey(name string) (input.Key, error) {
	if name == "" {
		return input.ArrowRight, nil
	}
	k, ok := turnKeys[strings.ToLower(name)]
	if !ok {
		return 0, fmt.Errorf("browser: unsupported turn key %q", name)
	}
	return k, nil
}
