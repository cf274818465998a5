package limitio

import "io"

var _ io.Reader = (*Reader)(nil)

// Reader wraps an io.Reader and refuses to deliver more than limit bytes
// across its lifetime. Every request is capped to the bytes remaining, so
// the source is never over-read; asking for bytes once the limit has been
// reached fails with *LengthError without touching the source.
//
// A source error, end-of-data included, may arrive together with final
// bytes per the io.Reader contract and is surfaced as-is. Whatever outcome
// ends the stream first is sticky: further calls reproduce it and the
// source is not consulted again.
//
// A Reader is not safe for concurrent use; one reader owns one stream.
type Reader struct {
	r        io.Reader
	limit    int64
	consumed int64
	term     error
}

// NewReader wraps r with a hard cap of limit bytes. A limit of zero (or
// negative) means no bytes may ever be produced.
func NewReader(r io.Reader, limit int64) *Reader {
	if limit < 0 {
		limit = 0
	}
	return &Reader{r: r, limit: limit}
}

// Read implements io.Reader.
func (l *Reader) Read(p []byte) (int, error) {
	if l.term != nil {
		return 0, l.term
	}

	remaining := l.limit - l.consumed
	if remaining == 0 {
		l.term = &LengthError{Limit: l.limit, Consumed: l.consumed}
		return 0, l.term
	}
	if int64(len(p)) > remaining {
		p = p[:remaining]
	}

	n, err := l.r.Read(p)
	l.consumed += int64(n)
	if err != nil {
		l.term = err
	}
	return n, err
}

// Consumed returns the number of bytes delivered so far.
func (l *Reader) Consumed() int64 {
	return l.consumed
}

// Remaining returns the number of additional bytes before the limit is
// reached.
func (l *Reader) Remaining() int64 {
	return l.limit - l.consumed
}

var _ io.ReadCloser = (*ReadCloser)(nil)

// ReadCloser is a Reader over an io.ReadCloser, passing Close through to
// the wrapped source.
type ReadCloser struct {
	*Reader
	c io.Closer
}

// NewReadCloser wraps rc with a hard cap of limit bytes.
func NewReadCloser(rc io.ReadCloser, limit int64) *ReadCloser {
	return &ReadCloser{
		Reader: NewReader(rc, limit),
		c:      rc,
	}
}

// Close closes the wrapped source.
func (l *ReadCloser) Close() error {
	return l.c.Close()
}
