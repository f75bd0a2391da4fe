package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"

	"github.com/hazyhaar/readercap/capture/record"
)

const frameSelector = "iframe, frame"

// frameNode is one frame of the reader document.
type frameNode interface {
	location(ctx context.Context) string
	children(ctx context.Context) ([]childFrame, error)
	markup(ctx context.Context) (string, error)
}

// childFrame is a nested frame element. err is set when the element
// could not be entered.
type childFrame struct {
	id   string
	node frameNode
	err  error
}

type rodFrame struct{ p *rod.Page }

func (f rodFrame) location(ctx context.Context) string {
	res, err := f.p.Context(ctx).Eval(`() => location.href`)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

func (f rodFrame) children(ctx context.Context) ([]childFrame, error) {
	els, err := f.p.Context(ctx).Elements(frameSelector)
	if err != nil {
		return nil, err
	}
	out := make([]childFrame, 0, len(els))
	for _, el := range els {
		child, err := el.Frame()
		if err != nil {
			out = append(out, childFrame{err: err})
			continue
		}
		out = append(out, childFrame{id: string(child.FrameID), node: rodFrame{child}})
	}
	return out, nil
}

func (f rodFrame) markup(ctx context.Context) (string, error) {
	return f.p.Context(ctx).HTML()
}

// ListFrames enumerates the main frame, then every nested frame
// depth-first in document order. Nested frames that cannot be entered,
// or that do not answer within the frame timeout, are left out with
// their subtree.
func (t *Tab) ListFrames(ctx context.Context) ([]record.FrameInfo, error) {
	frames, infos, err := enumerateFrames(ctx, t.top(), t.mainFrameID(), t.frameTimeout, t.logger)
	if err != nil {
		return nil, fmt.Errorf("browser: list frames: %w", err)
	}

	t.mu.Lock()
	t.frames = frames
	t.mu.Unlock()
	return infos, nil
}

func enumerateFrames(ctx context.Context, root frameNode, rootID string, timeout time.Duration, logger *slog.Logger) (map[string]frameNode, []record.FrameInfo, error) {
	frames := make(map[string]frameNode)
	var infos []record.FrameInfo

	var walk func(n frameNode, id string) error
	walk = func(n frameNode, id string) error {
		fctx, cancel := context.WithTimeout(ctx, timeout)
		url := n.location(fctx)
		kids, err := n.children(fctx)
		cancel()
		if err != nil {
			return err
		}

		frames[id] = n
		infos = append(infos, record.FrameInfo{ID: id, URL: url})

		for i, c := range kids {
			if c.err != nil {
				logger.Debug("browser: skip frame", "parent", id, "index", i, "error", c.err)
				continue
			}
			childID := c.id
			if childID == "" {
				childID = fmt.Sprintf("%s/%d", id, i)
			}
			if _, dup := frames[childID]; dup {
				continue
			}
			if err := walk(c.node, childID); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				logger.Debug("browser: skip frame", "frame", childID, "error", err)
			}
		}
		return nil
	}

	if err := walk(root, rootID); err != nil {
		return nil, nil, err
	}
	return frames, infos, nil
}

// FrameMarkup serialises the document of a frame returned by the last
// ListFrames. Failures on nested frames report record.ErrFrameDetached.
func (t *Tab) FrameMarkup(ctx context.Context, id string) (string, error) {
	t.mu.Lock()
	n, ok := t.frames[id]
	t.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("browser: frame %s: %w", id, record.ErrFrameDetached)
	}

	fctx, cancel := context.WithTimeout(ctx, t.frameTimeout)
	defer cancel()

	html, err := n.markup(fctx)
	if err != nil {
		if id != t.mainFrameID() && ctx.Err() == nil {
			return "", fmt.Errorf("browser: frame %s: %w", id, errors.Join(record.ErrFrameDetached, err))
		}
		return "", fmt.Errorf("browser: frame %s: %w", id, err)
	}
	return html, nil
}

func (t *Tab) top() frameNode {
	if t.root != nil {
		return t.root
	}
	return rodFrame{t.Page}
}

func (t *Tab) mainFrameID() string {
	if t.mainID != "" {
		return t.mainID
	}
	return "main"
}
