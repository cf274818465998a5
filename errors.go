package limitio

import (
	"errors"
	"fmt"
)

// ErrLengthExceeded reports an attempt to move bytes past the configured
// limit. Match it with errors.Is; the concrete *LengthError carries the
// numbers.
var ErrLengthExceeded = errors.New("length limit exceeded")

// LengthError is the terminal failure returned once a reader or writer is
// asked to go beyond its limit. Consumed is the byte count actually
// delivered before the violation, never more than Limit.
type LengthError struct {
	Limit    int64
	Consumed int64
}

func (e *LengthError) Error() string {
	return fmt.Sprintf("limitio: length limit exceeded (limit=%d consumed=%d)", e.Limit, e.Consumed)
}

func (e *LengthError) Unwrap() error {
	return ErrLengthExceeded
}
