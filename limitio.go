// Package limitio bounds the number of bytes that may ever flow through a
// reader or writer. It protects consumers of untrusted streams (request
// bodies, upload payloads) from oversized input by turning "too much data"
// into an explicit error instead of unbounded memory growth.
//
// The adapters forward bytes verbatim up to the configured limit and never
// buffer, retry, or inspect content. Each read request is capped to the
// bytes remaining under the limit, so nothing beyond the limit is ever
// pulled from the source.
package limitio

import "io"

// Byte units accepted as limits.
const (
	KB int64 = 1 << 10
	MB int64 = 1 << 20
	GB int64 = 1 << 30
)

// ReadAll drains r, delivering at most limit bytes.
//
// Input shorter than the limit is returned in full with a nil error.
// Oversized input returns the first limit bytes together with a
// *LengthError; the bytes beyond the limit are left unread in r.
func ReadAll(r io.Reader, limit int64) ([]byte, error) {
	return io.ReadAll(NewReader(r, limit))
}
