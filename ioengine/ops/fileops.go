package ops

import (
	"golang.org/x/sys/unix"

	"github.com/asyncfs/ioengine"
)

// open executes OpOpen: path in Ptr1, flags in Int1, mode in Int2. The
// resulting file descriptor is returned as req.Result, matching every
// other fd-bearing opcode's convention of taking an int fd in Int1.
func (d *Dispatcher) open(req *ioengine.Request) {
	path, _ := req.Ptr1.(string)
	fd, err := unix.Open(path, req.Int1, uint32(req.Int2))
	if err != nil {
		setErr(req, err)
		return
	}
	req.Result = int64(fd)
}

func (d *Dispatcher) closeFd(req *ioengine.Request) {
	if err := unix.Close(req.Int1); err != nil {
		setErr(req, err)
		return
	}
	req.Result = 0
}

// read executes OpRead/OpPread. Ptr1 holds the destination buffer; the
// byte count actually read lands in Result.
func (d *Dispatcher) read(req *ioengine.Request) {
	buf, _ := req.Ptr1.([]byte)
	n, err := unix.Pread(req.Int1, buf, req.Offset)
	if err != nil {
		setErr(req, err)
		return
	}
	req.Result = int64(n)
}

// write executes OpWrite/OpPwrite.
func (d *Dispatcher) write(req *ioengine.Request) {
	buf, _ := req.Ptr1.([]byte)
	n, err := unix.Pwrite(req.Int1, buf, req.Offset)
	if err != nil {
		setErr(req, err)
		return
	}
	req.Result = int64(n)
}

func (d *Dispatcher) fsync(req *ioengine.Request) {
	if err := unix.Fsync(req.Int1); err != nil {
		setErr(req, err)
		return
	}
	req.Result = 0
}

func (d *Dispatcher) fdatasync(req *ioengine.Request) {
	if err := unix.Fdatasync(req.Int1); err != nil {
		setErr(req, err)
		return
	}
	req.Result = 0
}

// sendfile executes OpSendfile: outFd in Int1, inFd in Int2, offset in
// Offset, byte count in Size. ctx is accepted for symmetry with the other
// handlers that need per-worker scratch state; sendfile itself needs
// none since the kernel copies the data directly.
func (d *Dispatcher) sendfile(ctx ioengine.WorkerContext, req *ioengine.Request) {
	offset := req.Offset
	n, err := unix.Sendfile(req.Int1, req.Int2, &offset, int(req.Size))
	if err != nil {
		setErr(req, err)
		return
	}
	req.Result = int64(n)
}
