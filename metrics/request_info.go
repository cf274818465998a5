package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/omalloc/limitio/internal/constants"
)

type requestMetricKey struct{}

// RequestMetric accumulates per-request accounting while a guarded body is
// being consumed.
type RequestMetric struct {
	StartAt    time.Time
	RequestID  string
	RemoteAddr string
	LimitBytes int64
	BodyBytes  int64
	Rejected   bool
}

// WithRequestMetric attaches a fresh RequestMetric to the request context
// and returns both.
func WithRequestMetric(req *http.Request) (*http.Request, *RequestMetric) {
	metric := &RequestMetric{
		StartAt:    time.Now(),
		RequestID:  MustParseRequestID(req.Header),
		RemoteAddr: req.RemoteAddr,
	}
	return req.WithContext(newContext(req.Context(), metric)), metric
}

// FromContext returns the RequestMetric stored in ctx, or an empty one.
func FromContext(ctx context.Context) *RequestMetric {
	if v, ok := ctx.Value(requestMetricKey{}).(*RequestMetric); ok {
		return v
	}
	return &RequestMetric{}
}

func newContext(ctx context.Context, metric *RequestMetric) context.Context {
	return context.WithValue(ctx, requestMetricKey{}, metric)
}

// MustParseRequestID returns the protocol request id, generating one when
// the client did not send it.
func MustParseRequestID(h http.Header) string {
	id := h.Get(constants.ProtocolRequestIDKey)
	if id == "" {
		return uuid.NewString()
	}
	return id
}
