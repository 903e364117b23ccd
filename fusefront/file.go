package fusefront

import (
	"time"

	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/hanwen/go-fuse/v2/fuse/nodefs"

	"github.com/asyncfs/ioengine"
	"github.com/asyncfs/ioengine/ops"
)

// EngineFile implements nodefs.File by submitting each blocking operation
// as an ioengine.Request and waiting on its own completion channel —
// blocking the calling FUSE goroutine, not the worker pool.
type EngineFile struct {
	nodefs.File
	host *Host
	fd   int
	path string
}

// NewEngineFile wraps an already-open file descriptor as a nodefs.File.
func NewEngineFile(host *Host, fd int, path string) *EngineFile {
	return &EngineFile{
		File: nodefs.NewDefaultFile(),
		host: host,
		fd:   fd,
		path: path,
	}
}

// submitAndWait calls build, which must itself submit the request (every
// opcode constructor on Engine submits on construction), and blocks until
// its Finish callback runs, returning the finished request so the caller
// can read Result/Errno/Ptr2.
func (f *EngineFile) submitAndWait(build func(finish ioengine.FinishFunc) *ioengine.Request) *ioengine.Request {
	done := make(chan struct{})
	var finished *ioengine.Request
	build(func(r *ioengine.Request) int {
		finished = r
		close(done)
		return 0
	})
	<-done
	return finished
}

func (f *EngineFile) Read(dest []byte, off int64) (fuse.ReadResult, fuse.Status) {
	req := f.submitAndWait(func(finish ioengine.FinishFunc) *ioengine.Request {
		return f.host.engine.Pread(f.fd, dest, off, 0, finish, nil)
	})
	if req.Errno != 0 {
		return nil, fuse.Status(req.Errno)
	}
	return fuse.ReadResultData(dest[:req.Result]), fuse.OK
}

func (f *EngineFile) Write(data []byte, off int64) (uint32, fuse.Status) {
	req := f.submitAndWait(func(finish ioengine.FinishFunc) *ioengine.Request {
		return f.host.engine.Pwrite(f.fd, data, off, 0, finish, nil)
	})
	if req.Errno != 0 {
		return 0, fuse.Status(req.Errno)
	}
	return uint32(req.Result), fuse.OK
}

func (f *EngineFile) Flush() fuse.Status {
	req := f.submitAndWait(func(finish ioengine.FinishFunc) *ioengine.Request {
		return f.host.engine.Fsync(f.fd, 0, finish, nil)
	})
	if req.Errno != 0 {
		return fuse.Status(req.Errno)
	}
	return fuse.OK
}

func (f *EngineFile) Fsync(flags int) fuse.Status {
	return f.Flush()
}

func (f *EngineFile) Release() {
	f.submitAndWait(func(finish ioengine.FinishFunc) *ioengine.Request {
		return f.host.engine.Close(f.fd, 0, finish, nil)
	})
}

func (f *EngineFile) Truncate(size uint64) fuse.Status {
	req := f.submitAndWait(func(finish ioengine.FinishFunc) *ioengine.Request {
		return f.host.engine.Truncate(f.path, int64(size), 0, finish, nil)
	})
	if req.Errno != 0 {
		return fuse.Status(req.Errno)
	}
	return fuse.OK
}

func (f *EngineFile) GetAttr(out *fuse.Attr) fuse.Status {
	req := f.submitAndWait(func(finish ioengine.FinishFunc) *ioengine.Request {
		return f.host.engine.Fstat(f.fd, 0, finish, nil)
	})
	if req.Errno != 0 {
		return fuse.Status(req.Errno)
	}
	st, _ := req.Ptr2.(*ops.StatResult)
	if st == nil {
		return fuse.EIO
	}
	fillAttr(out, st)
	return fuse.OK
}

func fillAttr(out *fuse.Attr, st *ops.StatResult) {
	out.Mode = st.Mode
	out.Size = uint64(st.Size)
	out.Uid = st.Uid
	out.Gid = st.Gid
	out.Nlink = uint32(st.Nlink)
	out.Ino = st.Ino
	out.SetTimes(timePtr(st.Atime), timePtr(st.Mtime), timePtr(st.Ctime))
}

func timePtr(t time.Time) *time.Time { return &t }
