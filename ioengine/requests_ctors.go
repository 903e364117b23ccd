package ioengine

// This file holds one public constructor per opcode (spec.md §4.7). Each
// is an Engine method: it allocates a zero-initialized request, fills in
// the opcode-specific parameter slots package ops reads back out at
// dispatch time, marks any caller-supplied path string as owned so
// runDestroy releases it, and submits before returning — mirroring the
// original library's SEND macro (`eio_submit(req); return req`,
// `_examples/original_source/eio.c:1068` and every REQ(...)/SEND call
// site that follows it). There is no separate "default deallocator" to
// assign the way the C original does (`req->destroy = ...`): Go's
// garbage collector reclaims an owned string or buffer the moment
// runDestroy drops the Request's last reference to it, so marking a
// field owned is sufficient on its own.

// Open builds and submits an OpOpen request. path is owned.
func (e *Engine) Open(path string, flags int, mode uint32, priority int, finish FinishFunc, userData interface{}) *Request {
	r := NewRequest(OpOpen, priority, finish, userData)
	r.Ptr1 = path
	r.Int1 = flags
	r.Int2 = int(mode)
	r.setFlag(FlagPtr1Owned)
	e.Submit(r)
	return r
}

// Close builds and submits an OpClose request.
func (e *Engine) Close(fd int, priority int, finish FinishFunc, userData interface{}) *Request {
	r := NewRequest(OpClose, priority, finish, userData)
	r.Int1 = fd
	e.Submit(r)
	return r
}

// Read builds and submits an OpRead request. buf is caller-owned: the
// engine writes into it but never frees it, so Ptr1 is not marked owned.
func (e *Engine) Read(fd int, buf []byte, offset int64, priority int, finish FinishFunc, userData interface{}) *Request {
	r := NewRequest(OpRead, priority, finish, userData)
	r.Int1 = fd
	r.Ptr1 = buf
	r.Offset = offset
	r.Size = int64(len(buf))
	e.Submit(r)
	return r
}

// Write builds and submits an OpWrite request. buf is caller-owned.
func (e *Engine) Write(fd int, buf []byte, offset int64, priority int, finish FinishFunc, userData interface{}) *Request {
	r := NewRequest(OpWrite, priority, finish, userData)
	r.Int1 = fd
	r.Ptr1 = buf
	r.Offset = offset
	r.Size = int64(len(buf))
	e.Submit(r)
	return r
}

// Pread builds and submits an OpPread request (positioned read, offset
// explicit rather than the fd's current position).
func (e *Engine) Pread(fd int, buf []byte, offset int64, priority int, finish FinishFunc, userData interface{}) *Request {
	r := NewRequest(OpPread, priority, finish, userData)
	r.Int1 = fd
	r.Ptr1 = buf
	r.Offset = offset
	r.Size = int64(len(buf))
	e.Submit(r)
	return r
}

// Pwrite builds and submits an OpPwrite request.
func (e *Engine) Pwrite(fd int, buf []byte, offset int64, priority int, finish FinishFunc, userData interface{}) *Request {
	r := NewRequest(OpPwrite, priority, finish, userData)
	r.Int1 = fd
	r.Ptr1 = buf
	r.Offset = offset
	r.Size = int64(len(buf))
	e.Submit(r)
	return r
}

// Stat builds and submits an OpStat request. path is owned.
func (e *Engine) Stat(path string, priority int, finish FinishFunc, userData interface{}) *Request {
	r := NewRequest(OpStat, priority, finish, userData)
	r.Ptr1 = path
	r.setFlag(FlagPtr1Owned)
	e.Submit(r)
	return r
}

// Lstat builds and submits an OpLstat request. path is owned.
func (e *Engine) Lstat(path string, priority int, finish FinishFunc, userData interface{}) *Request {
	r := NewRequest(OpLstat, priority, finish, userData)
	r.Ptr1 = path
	r.setFlag(FlagPtr1Owned)
	e.Submit(r)
	return r
}

// Fstat builds and submits an OpFstat request.
func (e *Engine) Fstat(fd int, priority int, finish FinishFunc, userData interface{}) *Request {
	r := NewRequest(OpFstat, priority, finish, userData)
	r.Int1 = fd
	e.Submit(r)
	return r
}

// Unlink builds and submits an OpUnlink request. path is owned.
func (e *Engine) Unlink(path string, priority int, finish FinishFunc, userData interface{}) *Request {
	r := NewRequest(OpUnlink, priority, finish, userData)
	r.Ptr1 = path
	r.setFlag(FlagPtr1Owned)
	e.Submit(r)
	return r
}

// Rename builds and submits an OpRename request. Both paths are owned.
func (e *Engine) Rename(oldpath, newpath string, priority int, finish FinishFunc, userData interface{}) *Request {
	r := NewRequest(OpRename, priority, finish, userData)
	r.Ptr1 = oldpath
	r.Ptr2 = newpath
	r.setFlag(FlagPtr1Owned | FlagPtr2Owned)
	e.Submit(r)
	return r
}

// Mkdir builds and submits an OpMkdir request. path is owned.
func (e *Engine) Mkdir(path string, mode uint32, priority int, finish FinishFunc, userData interface{}) *Request {
	r := NewRequest(OpMkdir, priority, finish, userData)
	r.Ptr1 = path
	r.Int1 = int(mode)
	r.setFlag(FlagPtr1Owned)
	e.Submit(r)
	return r
}

// Rmdir builds and submits an OpRmdir request. path is owned.
func (e *Engine) Rmdir(path string, priority int, finish FinishFunc, userData interface{}) *Request {
	r := NewRequest(OpRmdir, priority, finish, userData)
	r.Ptr1 = path
	r.setFlag(FlagPtr1Owned)
	e.Submit(r)
	return r
}

// Readdir builds and submits an OpReaddir request. path is owned; Ptr2
// (the decoded entry list) is filled in by package ops and is not owned
// by the request the way an input path is.
func (e *Engine) Readdir(path string, priority int, finish FinishFunc, userData interface{}) *Request {
	r := NewRequest(OpReaddir, priority, finish, userData)
	r.Ptr1 = path
	r.setFlag(FlagPtr1Owned)
	e.Submit(r)
	return r
}

// Readlink builds and submits an OpReadlink request. path is owned.
func (e *Engine) Readlink(path string, priority int, finish FinishFunc, userData interface{}) *Request {
	r := NewRequest(OpReadlink, priority, finish, userData)
	r.Ptr1 = path
	r.setFlag(FlagPtr1Owned)
	e.Submit(r)
	return r
}

// Symlink builds and submits an OpSymlink request. Both paths are owned.
func (e *Engine) Symlink(target, linkpath string, priority int, finish FinishFunc, userData interface{}) *Request {
	r := NewRequest(OpSymlink, priority, finish, userData)
	r.Ptr1 = target
	r.Ptr2 = linkpath
	r.setFlag(FlagPtr1Owned | FlagPtr2Owned)
	e.Submit(r)
	return r
}

// Link builds and submits an OpLink request. Both paths are owned.
func (e *Engine) Link(oldpath, newpath string, priority int, finish FinishFunc, userData interface{}) *Request {
	r := NewRequest(OpLink, priority, finish, userData)
	r.Ptr1 = oldpath
	r.Ptr2 = newpath
	r.setFlag(FlagPtr1Owned | FlagPtr2Owned)
	e.Submit(r)
	return r
}

// Chmod builds and submits an OpChmod request. path is owned.
func (e *Engine) Chmod(path string, mode uint32, priority int, finish FinishFunc, userData interface{}) *Request {
	r := NewRequest(OpChmod, priority, finish, userData)
	r.Ptr1 = path
	r.Int1 = int(mode)
	r.setFlag(FlagPtr1Owned)
	e.Submit(r)
	return r
}

// Chown builds and submits an OpChown request. path is owned.
func (e *Engine) Chown(path string, uid, gid int, priority int, finish FinishFunc, userData interface{}) *Request {
	r := NewRequest(OpChown, priority, finish, userData)
	r.Ptr1 = path
	r.Int1 = uid
	r.Int2 = gid
	r.setFlag(FlagPtr1Owned)
	e.Submit(r)
	return r
}

// Truncate builds and submits an OpTruncate request. path is owned.
func (e *Engine) Truncate(path string, length int64, priority int, finish FinishFunc, userData interface{}) *Request {
	r := NewRequest(OpTruncate, priority, finish, userData)
	r.Ptr1 = path
	r.Offset = length
	r.setFlag(FlagPtr1Owned)
	e.Submit(r)
	return r
}

// Fsync builds and submits an OpFsync request.
func (e *Engine) Fsync(fd int, priority int, finish FinishFunc, userData interface{}) *Request {
	r := NewRequest(OpFsync, priority, finish, userData)
	r.Int1 = fd
	e.Submit(r)
	return r
}

// Fdatasync builds and submits an OpFdatasync request.
func (e *Engine) Fdatasync(fd int, priority int, finish FinishFunc, userData interface{}) *Request {
	r := NewRequest(OpFdatasync, priority, finish, userData)
	r.Int1 = fd
	e.Submit(r)
	return r
}

// Sendfile builds and submits an OpSendfile request.
func (e *Engine) Sendfile(outFd, inFd int, offset, count int64, priority int, finish FinishFunc, userData interface{}) *Request {
	r := NewRequest(OpSendfile, priority, finish, userData)
	r.Int1 = outFd
	r.Int2 = inFd
	r.Offset = offset
	r.Size = count
	e.Submit(r)
	return r
}

// Readahead hints the kernel page cache for [offset, offset+length) of
// path, tracking per-path sequential-access state so repeated calls widen
// the hinted window instead of re-hinting the same bytes (SPEC_FULL.md
// domain-stack supplement; dispatched in package ops). path is owned.
func (e *Engine) Readahead(path string, offset, length int64, priority int, finish FinishFunc, userData interface{}) *Request {
	r := NewRequest(OpReadahead, priority, finish, userData)
	r.Ptr1 = path
	r.Offset = offset
	r.Size = length
	r.setFlag(FlagPtr1Owned)
	e.Submit(r)
	return r
}

// Utime builds and submits an OpUtime request. path is owned.
func (e *Engine) Utime(path string, atime, mtime float64, priority int, finish FinishFunc, userData interface{}) *Request {
	r := NewRequest(OpUtime, priority, finish, userData)
	r.Ptr1 = path
	r.Sec1 = atime
	r.Sec2 = mtime
	r.setFlag(FlagPtr1Owned)
	e.Submit(r)
	return r
}

// Futime builds and submits an OpFutime request.
func (e *Engine) Futime(fd int, atime, mtime float64, priority int, finish FinishFunc, userData interface{}) *Request {
	r := NewRequest(OpFutime, priority, finish, userData)
	r.Int1 = fd
	r.Sec1 = atime
	r.Sec2 = mtime
	e.Submit(r)
	return r
}

// Custom wraps an arbitrary FeedFunc as a request, for host-defined work
// that should still flow through the engine's priority queue and Poll
// delivery rather than being run inline, and submits it.
func (e *Engine) Custom(feed FeedFunc, priority int, finish FinishFunc, userData interface{}) *Request {
	r := NewRequest(OpCustom, priority, finish, userData)
	r.Feed = feed
	e.Submit(r)
	return r
}
