// Package bodylimit guards inbound HTTP request bodies with a hard byte
// limit. Oversized declared lengths are rejected up front with 413; bodies
// without a declared length are wrapped so the handler's own reads fail
// with limitio.ErrLengthExceeded once the limit is crossed, and never see
// a byte beyond it.
package bodylimit

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/paulbellamy/ratecounter"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/omalloc/limitio"
	"github.com/omalloc/limitio/conf"
	"github.com/omalloc/limitio/internal/constants"
	"github.com/omalloc/limitio/metrics"
	"github.com/omalloc/limitio/middleware"
)

// DefaultMaxBytes applies when the middleware options carry no limit.
const DefaultMaxBytes = 4 * limitio.MB

var (
	_recvRate = ratecounter.NewRateCounter(time.Second)

	_guardedRequests = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "limitio",
		Subsystem: "bodylimit",
		Name:      "guarded_requests_total",
		Help:      "The total number of requests whose body was guarded",
	})
	_rejectedRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "limitio",
		Subsystem: "bodylimit",
		Name:      "rejected_requests_total",
		Help:      "The total number of requests rejected for exceeding the body limit",
	}, []string{"reason"})
	_recvRateGauge = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "limitio",
		Subsystem: "bodylimit",
		Name:      "recv_bytes_per_second",
		Help:      "Accepted request body bytes per second",
	}, func() float64 {
		return float64(_recvRate.Rate())
	})
)

func init() {
	middleware.Register("bodylimit", Middleware)
	prometheus.MustRegister(_guardedRequests, _rejectedRequests, _recvRateGauge)
}

type middlewareOption struct {
	// MaxBytes is the default body limit in bytes.
	MaxBytes int64 `json:"max_bytes"`
	// Routes maps path prefixes to limit overrides; the longest matching
	// prefix wins.
	Routes map[string]int64 `json:"routes"`
	// ExposeHeader advertises the applied limit in the response headers.
	ExposeHeader bool `json:"expose_header"`
}

func (o *middlewareOption) limitFor(path string) int64 {
	limit := o.MaxBytes
	bestLen := -1
	for prefix, override := range o.Routes {
		if strings.HasPrefix(path, prefix) && len(prefix) > bestLen {
			limit, bestLen = override, len(prefix)
		}
	}
	return limit
}

// Middleware is the bodylimit factory, registered as
// "limitio.middleware.bodylimit".
func Middleware(c *conf.Middleware) (middleware.Middleware, func(), error) {
	var opts middlewareOption
	if err := c.Unmarshal(&opts); err != nil {
		return nil, nil, err
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxBytes
	}

	logger := zap.L().Named("bodylimit")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			limit := opts.limitFor(req.URL.Path)

			req, metric := metrics.WithRequestMetric(req)
			metric.LimitBytes = limit

			if opts.ExposeHeader {
				w.Header().Set(constants.ProtocolLengthLimitKey, strconv.FormatInt(limit, 10))
			}

			// reject declared oversize before reading anything
			if req.ContentLength > limit {
				metric.Rejected = true
				_rejectedRequests.WithLabelValues("declared").Inc()
				logger.Warn("declared content length over limit",
					zap.String("request_id", metric.RequestID),
					zap.String("path", req.URL.Path),
					zap.Int64("content_length", req.ContentLength),
					zap.Int64("limit", limit))
				http.Error(w, http.StatusText(http.StatusRequestEntityTooLarge), http.StatusRequestEntityTooLarge)
				return
			}

			if req.Body != nil && req.Body != http.NoBody {
				req.Body = &guardedBody{
					ReadCloser: limitio.NewReadCloser(req.Body, limit),
					metric:     metric,
					logger:     logger,
					path:       req.URL.Path,
				}
			}

			_guardedRequests.Inc()
			next.ServeHTTP(w, req)
		})
	}, middleware.EmptyCleanup, nil
}

// guardedBody accounts delivered bytes and records the first limit
// violation observed by the handler's reads.
type guardedBody struct {
	*limitio.ReadCloser
	metric  *metrics.RequestMetric
	logger  *zap.Logger
	path    string
	tripped bool
}

func (b *guardedBody) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)
	if n > 0 {
		b.metric.BodyBytes += int64(n)
		_recvRate.Incr(int64(n))
	}
	if err != nil && !b.tripped && errors.Is(err, limitio.ErrLengthExceeded) {
		b.tripped = true
		b.metric.Rejected = true
		_rejectedRequests.WithLabelValues("exceeded").Inc()
		b.logger.Warn("request body over limit",
			zap.String("request_id", b.metric.RequestID),
			zap.String("path", b.path),
			zap.Int64("limit", b.metric.LimitBytes),
			zap.Int64("consumed", b.Consumed()))
	}
	return n, err
}
