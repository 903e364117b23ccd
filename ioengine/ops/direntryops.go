package ops

import (
	"os"

	"golang.org/x/sys/unix"

	"github.com/asyncfs/ioengine"
)

func (d *Dispatcher) unlink(req *ioengine.Request) {
	path, _ := req.Ptr1.(string)
	if err := unix.Unlink(path); err != nil {
		setErr(req, err)
		return
	}
	req.Result = 0
}

func (d *Dispatcher) rename(req *ioengine.Request) {
	oldpath, _ := req.Ptr1.(string)
	newpath, _ := req.Ptr2.(string)
	if err := unix.Rename(oldpath, newpath); err != nil {
		setErr(req, err)
		return
	}
	req.Result = 0
}

func (d *Dispatcher) mkdir(req *ioengine.Request) {
	path, _ := req.Ptr1.(string)
	if err := unix.Mkdir(path, uint32(req.Int1)); err != nil {
		setErr(req, err)
		return
	}
	req.Result = 0
}

func (d *Dispatcher) rmdir(req *ioengine.Request) {
	path, _ := req.Ptr1.(string)
	if err := unix.Rmdir(path); err != nil {
		setErr(req, err)
		return
	}
	req.Result = 0
}

// readdir executes OpReaddir: path in Ptr1, the resulting entry names in
// Ptr2 on success. It starts watching any directory it sees for the first
// time and consults the worker's cached *os.File, dropping it if the
// fsnotify watch flagged the directory as changed. The worker closes that
// cached handle at the end of every request, so each call in practice
// opens the directory afresh.
func (d *Dispatcher) readdir(ctx ioengine.WorkerContext, req *ioengine.Request) {
	path, _ := req.Ptr1.(string)
	d.watchDir(path)

	f, cached := ctx.CachedDir(path)
	if cached && d.dirIsStale(path) {
		f.Close()
		cached = false
	}
	if !cached {
		var err error
		f, err = os.Open(path)
		if err != nil {
			setErr(req, err)
			return
		}
		ctx.SetCachedDir(path, f)
	} else if _, err := f.Seek(0, os.SEEK_SET); err != nil {
		setErr(req, err)
		return
	}

	names, err := f.Readdirnames(-1)
	if err != nil {
		setErr(req, err)
		return
	}
	req.Ptr2 = names
	req.Result = int64(len(names))
}

func (d *Dispatcher) readlink(req *ioengine.Request) {
	path, _ := req.Ptr1.(string)
	target, err := os.Readlink(path)
	if err != nil {
		setErr(req, err)
		return
	}
	req.Ptr2 = target
	req.Result = int64(len(target))
}

func (d *Dispatcher) symlink(req *ioengine.Request) {
	target, _ := req.Ptr1.(string)
	linkpath, _ := req.Ptr2.(string)
	if err := unix.Symlink(target, linkpath); err != nil {
		setErr(req, err)
		return
	}
	req.Result = 0
}

func (d *Dispatcher) link(req *ioengine.Request) {
	oldpath, _ := req.Ptr1.(string)
	newpath, _ := req.Ptr2.(string)
	if err := unix.Link(oldpath, newpath); err != nil {
		setErr(req, err)
		return
	}
	req.Result = 0
}

func (d *Dispatcher) chmod(req *ioengine.Request) {
	path, _ := req.Ptr1.(string)
	if err := unix.Chmod(path, uint32(req.Int1)); err != nil {
		setErr(req, err)
		return
	}
	req.Result = 0
}

func (d *Dispatcher) chown(req *ioengine.Request) {
	path, _ := req.Ptr1.(string)
	if err := unix.Chown(path, req.Int1, req.Int2); err != nil {
		setErr(req, err)
		return
	}
	req.Result = 0
}

func (d *Dispatcher) truncate(req *ioengine.Request) {
	path, _ := req.Ptr1.(string)
	if err := unix.Truncate(path, req.Offset); err != nil {
		setErr(req, err)
		return
	}
	req.Result = 0
}

func (d *Dispatcher) utime(req *ioengine.Request) {
	path, _ := req.Ptr1.(string)
	tv := secondsToTimeval(req.Sec1, req.Sec2)
	if err := unix.Utimes(path, tv); err != nil {
		setErr(req, err)
		return
	}
	req.Result = 0
}

func (d *Dispatcher) futime(req *ioengine.Request) {
	tv := secondsToTimeval(req.Sec1, req.Sec2)
	if err := unix.Futimes(req.Int1, tv); err != nil {
		setErr(req, err)
		return
	}
	req.Result = 0
}

func secondsToTimeval(atime, mtime float64) []unix.Timeval {
	toTimeval := func(sec float64) unix.Timeval {
		whole := int64(sec)
		frac := sec - float64(whole)
		return unix.Timeval{Sec: whole, Usec: int64(frac * 1e6)}
	}
	return []unix.Timeval{toTimeval(atime), toTimeval(mtime)}
}
