package browser

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/go-rod/rod/lib/proto"

	"github.com/hazyhaar/readercap/capture/record"
)

// OnResourceResponse enables the Network domain and calls fn for every
// response whose load finished. Failed loads are dropped. fn runs on the
// event goroutine and should hand work off quickly. Listening stops when
// ctx is done.
func (t *Tab) OnResourceResponse(ctx context.Context, fn func(record.Response)) error {
	if err := (proto.NetworkEnable{}).Call(t.Page); err != nil {
		return fmt.Errorf("browser: network enable: %w", err)
	}

	tr := newResponseTracker(func(e *proto.NetworkResponseReceived) {
		fn(t.response(e))
	})
	wait := t.Page.Context(ctx).EachEvent(tr.received, tr.finished, tr.failed)
	go wait()
	return nil
}

// responseTracker pairs ResponseReceived with the LoadingFinished or
// LoadingFailed event of the same request. Only finished loads are
// emitted. Not safe for concurrent use; rod delivers events on one
// goroutine.
type responseTracker struct {
	pending map[proto.NetworkRequestID]*proto.NetworkResponseReceived
	emit    func(*proto.NetworkResponseReceived)
}

func newResponseTracker(emit func(*proto.NetworkResponseReceived)) *responseTracker {
	return &responseTracker{
		pending: make(map[proto.NetworkRequestID]*proto.NetworkResponseReceived),
		emit:    emit,
	}
}

func (r *responseTracker) received(e *proto.NetworkResponseReceived) {
	r.pending[e.RequestID] = e
}

func (r *responseTracker) finished(e *proto.NetworkLoadingFinished) {
	resp, ok := r.pending[e.RequestID]
	if !ok {
		return
	}
	delete(r.pending, e.RequestID)
	r.emit(resp)
}

func (r *responseTracker) failed(e *proto.NetworkLoadingFailed) {
	delete(r.pending, e.RequestID)
}

func (t *Tab) response(e *proto.NetworkResponseReceived) record.Response {
	var contentType string
	for k, v := range e.Response.Headers {
		if strings.EqualFold(k, "content-type") {
			contentType = v.Str()
			break
		}
	}

	id := e.RequestID
	page := t.Page
	return record.Response{
		RequestID:    string(id),
		URL:          e.Response.URL,
		MIMEType:     e.Response.MIMEType,
		ContentType:  contentType,
		ResourceType: string(e.Type),
		Status:       e.Response.Status,
		Body: func(ctx context.Context) ([]byte, error) {
			res, err := proto.NetworkGetResponseBody{RequestID: id}.Call(page.Context(ctx))
			if err != nil {
				return nil, fmt.Errorf("browser: response body %s: %w", id, err)
			}
			if res.Base64Encoded {
				return base64.StdEncoding.DecodeString(res.Body)
			}
			return []byte(res.Body), nil
		},
	}
}
