package ops

import (
	"time"

	"golang.org/x/sys/unix"

	"github.com/asyncfs/ioengine"
)

// StatResult is the portable stat payload handlers place in a request's
// Ptr2 on success, decoupled from the platform-specific unix.Stat_t
// layout the syscall itself returns.
type StatResult struct {
	Mode  uint32
	Size  int64
	Uid   uint32
	Gid   uint32
	Nlink uint64
	Ino   uint64
	Atime time.Time
	Mtime time.Time
	Ctime time.Time
}

func statResultFrom(st *unix.Stat_t) *StatResult {
	return &StatResult{
		Mode:  st.Mode,
		Size:  st.Size,
		Uid:   st.Uid,
		Gid:   st.Gid,
		Nlink: uint64(st.Nlink),
		Ino:   st.Ino,
		Atime: time.Unix(st.Atim.Sec, st.Atim.Nsec),
		Mtime: time.Unix(st.Mtim.Sec, st.Mtim.Nsec),
		Ctime: time.Unix(st.Ctim.Sec, st.Ctim.Nsec),
	}
}

func (d *Dispatcher) stat(req *ioengine.Request, lstat bool) {
	path, _ := req.Ptr1.(string)
	var st unix.Stat_t
	var err error
	if lstat {
		err = unix.Lstat(path, &st)
	} else {
		err = unix.Stat(path, &st)
	}
	if err != nil {
		setErr(req, err)
		return
	}
	req.Ptr2 = statResultFrom(&st)
	req.Result = 0
}

func (d *Dispatcher) fstat(req *ioengine.Request) {
	var st unix.Stat_t
	if err := unix.Fstat(req.Int1, &st); err != nil {
		setErr(req, err)
		return
	}
	req.Ptr2 = statResultFrom(&st)
	req.Result = 0
}
