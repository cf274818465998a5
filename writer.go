package limitio

import "io"

var _ io.Writer = (*Writer)(nil)

// Writer is the write-side dual of Reader: it accepts at most limit bytes
// into the wrapped sink. A write that would cross the limit forwards the
// head that still fits, accounts it, and rejects the rest with
// *LengthError and a short count. As with Reader, the first terminal
// outcome is sticky and the sink is not touched afterwards.
type Writer struct {
	w        io.Writer
	limit    int64
	consumed int64
	term     error
}

// NewWriter wraps w with a hard cap of limit bytes. A limit of zero (or
// negative) means no bytes may ever be accepted.
func NewWriter(w io.Writer, limit int64) *Writer {
	if limit < 0 {
		limit = 0
	}
	return &Writer{w: w, limit: limit}
}

// Write implements io.Writer.
func (l *Writer) Write(p []byte) (int, error) {
	if l.term != nil {
		return 0, l.term
	}

	remaining := l.limit - l.consumed
	if int64(len(p)) <= remaining {
		n, err := l.w.Write(p)
		l.consumed += int64(n)
		if err != nil {
			l.term = err
		}
		return n, err
	}

	var n int
	if remaining > 0 {
		var err error
		n, err = l.w.Write(p[:remaining])
		l.consumed += int64(n)
		if err != nil {
			l.term = err
			return n, err
		}
	}
	l.term = &LengthError{Limit: l.limit, Consumed: l.consumed}
	return n, l.term
}

// Consumed returns the number of bytes accepted so far.
func (l *Writer) Consumed() int64 {
	return l.consumed
}

// Remaining returns the number of additional bytes before the limit is
// reached.
func (l *Writer) Remaining() int64 {
	return l.limit - l.consumed
}
