package whisper

import (
	"context"
	"net/http"
	"sync/atomic"
)

// Meter counts the HTTP requests the client makes on behalf of one caller.
// Responses the engine accepted (2xx) are counted as billed.
type Meter struct {
	requests atomic.Int32
	billed   atomic.Int32
}

// Requests is the number of HTTP attempts, retries included.
func (m *Meter) Requests() int {
	if m == nil {
		return 0
	}
	return int(m.requests.Load())
}

// Billed is the number of attempts the engine answered with a 2xx status.
func (m *Meter) Billed() int {
	if m == nil {
		return 0
	}
	return int(m.billed.Load())
}

func (m *Meter) record(status int) {
	if m == nil {
		return
	}
	m.requests.Add(1)
	if status >= http.StatusOK && status < http.StatusMultipleChoices {
		m.billed.Add(1)
	}
}

type meterKey struct{}

// WithMeter returns a context whose engine requests are counted on m.
func WithMeter(ctx context.Context, m *Meter) context.Context {
	if m == nil {
		return ctx
	}
	return context.WithValue(ctx, meterKey{}, m)
}

func meterFrom(ctx context.Context) *Meter {
	if ctx == nil {
		return nil
	}
	m, _ := ctx.Value(meterKey{}).(*Meter)
	return m
}
