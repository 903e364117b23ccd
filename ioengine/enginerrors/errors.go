// Package enginerrors wraps the errno values surfaced by the engine's
// opcode dispatch table with operator-facing suggestions, and defines the
// typed sentinels poll() returns per spec.md §4.4/§7.
package enginerrors

import (
	"errors"
	"fmt"
	"syscall"
)

// ErrWouldBlock is returned by Engine.Poll when its request-count or
// time budget is exhausted before the result queue drained; errors.Is
// matches syscall.EAGAIN.
var ErrWouldBlock = fmt.Errorf("ioengine: poll budget exhausted: %w", syscall.EAGAIN)

// ErrGroupFinished is returned by GroupAdd when the target group has
// already been finished and destroyed — an invariant violation per
// spec.md §7 ("adding to a finished group").
var ErrGroupFinished = errors.New("ioengine: cannot add a child to a finished group")

// ErrPoolShutdown describes an engine whose pool has been retired to zero
// workers via SetMaxParallel(0). No engine method returns it: Submit has
// no error result and queues the request even when no worker is running.
var ErrPoolShutdown = errors.New("ioengine: engine is shut down")

// WithSuggestion wraps err with a short, human-facing hint for
// operators reading engine logs, following the same shape as the
// teacher's own error-suggestion helper.
type WithSuggestion struct {
	Err        error
	Suggestion string
}

func (e *WithSuggestion) Error() string {
	return fmt.Sprintf("%v (%s)", e.Err, e.Suggestion)
}

func (e *WithSuggestion) Unwrap() error { return e.Err }

// Suggest wraps err with suggestion, or returns nil if err is nil.
func Suggest(err error, suggestion string) error {
	if err == nil {
		return nil
	}
	return &WithSuggestion{Err: err, Suggestion: suggestion}
}

// SuggestForErrno returns a canned operator suggestion for a handful of
// common filesystem errno classes, or "" if none applies.
func SuggestForErrno(errno syscall.Errno) string {
	switch errno {
	case syscall.ENOENT:
		return "check that the path exists and is spelled correctly"
	case syscall.EACCES, syscall.EPERM:
		return "check file permissions and the owning uid/gid"
	case syscall.ENOSPC:
		return "the target filesystem is out of space"
	case syscall.EMFILE, syscall.ENFILE:
		return "the process or system file descriptor limit was hit; consider lowering max_parallel"
	case syscall.EAGAIN:
		return "the poll budget was exhausted; call Poll again"
	default:
		return ""
	}
}

// FromErrno builds a Request-facing error from a captured errno,
// attaching a suggestion when one is known.
func FromErrno(op string, errno syscall.Errno) error {
	if errno == 0 {
		return nil
	}
	base := fmt.Errorf("ioengine: %s: %w", op, errno)
	if s := SuggestForErrno(errno); s != "" {
		return Suggest(base, s)
	}
	return base
}
