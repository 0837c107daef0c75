package resolver

import (
	"errors"
	"fmt"

	"github.com/LongerWarrior/patternsleuth/image"
)

// ErrDeadlock is returned to the caller of Eval, and to every resolver still
// parked at the time, when the executor stalls with an empty scan queue and
// an unresolved root: nothing left could possibly make it progress.
var ErrDeadlock = errors.New("resolver: deadlock, no parked scan could resume the executor")

// ResolveError is the error type resolver bodies and primitives return.
// Cached errors are shared by pointer, so every waiter that observes a
// failed resolver observes the identical instance.
type ResolveError struct {
	msg    string
	memErr *image.MemoryAccessError
}

func (e *ResolveError) Error() string {
	if e.memErr != nil {
		return e.memErr.Error()
	}
	return e.msg
}

// Msg builds a plain assertion-failure ResolveError.
func Msg(format string, args ...any) *ResolveError {
	return &ResolveError{msg: fmt.Sprintf(format, args...)}
}

// MemoryAccessOutOfBounds wraps a failed image memory read.
func MemoryAccessOutOfBounds(err *image.MemoryAccessError) *ResolveError {
	return &ResolveError{msg: err.Error(), memErr: err}
}

// AsMemoryAccessError reports whether err is a ResolveError wrapping an
// out-of-bounds memory access, returning the wrapped error if so.
func AsMemoryAccessError(err error) (*image.MemoryAccessError, bool) {
	var re *ResolveError
	if errors.As(err, &re) && re.memErr != nil {
		return re.memErr, true
	}
	return nil, false
}
