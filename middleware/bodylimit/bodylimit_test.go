package bodylimit

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omalloc/limitio"
	"github.com/omalloc/limitio/conf"
	"github.com/omalloc/limitio/internal/constants"
	"github.com/omalloc/limitio/metrics"
)

func newMiddleware(t *testing.T, options map[string]any) func(http.Handler) http.Handler {
	t.Helper()

	mw, cleanup, err := Middleware(&conf.Middleware{Name: "bodylimit", Options: options})
	require.NoError(t, err)
	t.Cleanup(cleanup)
	return mw
}

// echoHandler drains the body and answers 413 when the limit tripped.
func echoHandler(t *testing.T) http.Handler {
	t.Helper()

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := io.ReadAll(r.Body)
		if errors.Is(err, limitio.ErrLengthExceeded) {
			http.Error(w, http.StatusText(http.StatusRequestEntityTooLarge), http.StatusRequestEntityTooLarge)
			return
		}
		require.NoError(t, err)
		_, _ = w.Write(data)
	})
}

// chunked hides the payload length so the declared-length fast path cannot
// fire.
func chunked(s string) io.Reader {
	return io.MultiReader(strings.NewReader(s))
}

func TestBodyLimitUnderLimit(t *testing.T) {
	mw := newMiddleware(t, map[string]any{"max_bytes": 10})

	req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader("hello"))
	rec := httptest.NewRecorder()
	mw(echoHandler(t)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hello", rec.Body.String())
}

func TestBodyLimitExceededWhileReading(t *testing.T) {
	mw := newMiddleware(t, map[string]any{"max_bytes": 5})

	req := httptest.NewRequest(http.MethodPost, "/upload", chunked("this payload is too long"))
	rec := httptest.NewRecorder()
	mw(echoHandler(t)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestBodyLimitDeclaredLengthFastPath(t *testing.T) {
	mw := newMiddleware(t, map[string]any{"max_bytes": 5})

	invoked := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		invoked = true
	})

	req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader("this payload is too long"))
	rec := httptest.NewRecorder()
	mw(handler).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.False(t, invoked, "handler must not run on declared oversize")
}

func TestBodyLimitRouteOverride(t *testing.T) {
	mw := newMiddleware(t, map[string]any{
		"max_bytes": 4,
		"routes":    map[string]any{"/big": 1024},
	})

	payload := strings.Repeat("x", 100)

	req := httptest.NewRequest(http.MethodPost, "/big/upload", chunked(payload))
	rec := httptest.NewRecorder()
	mw(echoHandler(t)).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, payload, rec.Body.String())

	req = httptest.NewRequest(http.MethodPost, "/small", chunked(payload))
	rec = httptest.NewRecorder()
	mw(echoHandler(t)).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestBodyLimitExposeHeader(t *testing.T) {
	mw := newMiddleware(t, map[string]any{"max_bytes": 64, "expose_header": true})

	req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader("ok"))
	rec := httptest.NewRecorder()
	mw(echoHandler(t)).ServeHTTP(rec, req)

	assert.Equal(t, "64", rec.Header().Get(constants.ProtocolLengthLimitKey))
}

func TestBodyLimitRequestMetric(t *testing.T) {
	mw := newMiddleware(t, map[string]any{"max_bytes": 1024})

	var metric *metrics.RequestMetric
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		metric = metrics.FromContext(r.Context())
	})

	req := httptest.NewRequest(http.MethodPost, "/upload", bytes.NewReader(bytes.Repeat([]byte{'x'}, 100)))
	req.Header.Set(constants.ProtocolRequestIDKey, "req-42")
	rec := httptest.NewRecorder()
	mw(handler).ServeHTTP(rec, req)

	require.NotNil(t, metric)
	assert.Equal(t, "req-42", metric.RequestID)
	assert.Equal(t, int64(1024), metric.LimitBytes)
	assert.Equal(t, int64(100), metric.BodyBytes)
	assert.False(t, metric.Rejected)
}

func TestLimitFor(t *testing.T) {
	opts := &middlewareOption{
		MaxBytes: 10,
		Routes: map[string]int64{
			"/api":        20,
			"/api/upload": 30,
		},
	}

	assert.Equal(t, int64(10), opts.limitFor("/other"))
	assert.Equal(t, int64(20), opts.limitFor("/api/list"))
	// longest prefix wins
	assert.Equal(t, int64(30), opts.limitFor("/api/upload/file"))
}
