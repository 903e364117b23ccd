package ops

import (
	"errors"
	"syscall"

	"github.com/asyncfs/ioengine"
)

const unsupportedErrno = syscall.ENOSYS

// setErr records err on req as a POSIX errno and a -1 result, the
// convention spec.md's Result/Errno pair uses to report failure; on
// success callers set req.Result themselves and leave Errno at 0.
func setErr(req *ioengine.Request, err error) {
	if err == nil {
		return
	}
	req.Errno = int32(errnoOf(err))
	req.Result = -1
}

// errnoOf extracts the underlying syscall.Errno from a wrapped os
// error, falling back to EIO when the error carries no errno at all
// (e.g. a path that failed validation before any syscall ran).
func errnoOf(err error) syscall.Errno {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno
	}
	return syscall.EIO
}
