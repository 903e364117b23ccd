package fusefront

import (
	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/hanwen/go-fuse/v2/fuse/nodefs"
	"github.com/hanwen/go-fuse/v2/fuse/pathfs"
	"golang.org/x/sys/unix"

	"github.com/asyncfs/ioengine"
	"github.com/asyncfs/ioengine/ops"
)

// FileSystem implements pathfs.FileSystem over an ioengine Host, routing
// every path-based callback through the engine's Submit/Poll pipeline
// exactly like EngineFile does for per-descriptor operations.
type FileSystem struct {
	pathfs.FileSystem
	host *Host
	root string
}

// NewFileSystem mounts root as the backing directory tree for the
// returned filesystem.
func NewFileSystem(host *Host, root string) *FileSystem {
	return &FileSystem{
		FileSystem: pathfs.NewDefaultFileSystem(),
		host:       host,
		root:       root,
	}
}

func (fs *FileSystem) realPath(name string) string {
	if name == "" {
		return fs.root
	}
	return fs.root + "/" + name
}

// submit calls build, which must itself submit the request (every opcode
// constructor on Engine submits on construction), and blocks until its
// Finish callback runs.
func (fs *FileSystem) submit(build func(finish ioengine.FinishFunc) *ioengine.Request) *ioengine.Request {
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

func (fs *FileSystem) GetAttr(name string, _ *fuse.Context) (*fuse.Attr, fuse.Status) {
	req := fs.submit(func(finish ioengine.FinishFunc) *ioengine.Request {
		return fs.host.engine.Lstat(fs.realPath(name), 0, finish, nil)
	})
	if req.Errno != 0 {
		return nil, fuse.Status(req.Errno)
	}
	st, _ := req.Ptr2.(*ops.StatResult)
	if st == nil {
		return nil, fuse.EIO
	}
	out := &fuse.Attr{}
	fillAttr(out, st)
	return out, fuse.OK
}

func (fs *FileSystem) OpenDir(name string, _ *fuse.Context) ([]fuse.DirEntry, fuse.Status) {
	req := fs.submit(func(finish ioengine.FinishFunc) *ioengine.Request {
		return fs.host.engine.Readdir(fs.realPath(name), 0, finish, nil)
	})
	if req.Errno != 0 {
		return nil, fuse.Status(req.Errno)
	}
	names, _ := req.Ptr2.([]string)
	entries := make([]fuse.DirEntry, 0, len(names))
	for _, n := range names {
		entries = append(entries, fuse.DirEntry{Name: n})
	}
	return entries, fuse.OK
}

func (fs *FileSystem) Open(name string, flags uint32, _ *fuse.Context) (nodefs.File, fuse.Status) {
	req := fs.submit(func(finish ioengine.FinishFunc) *ioengine.Request {
		return fs.host.engine.Open(fs.realPath(name), int(flags), 0o644, 0, finish, nil)
	})
	if req.Errno != 0 {
		return nil, fuse.Status(req.Errno)
	}
	return NewEngineFile(fs.host, int(req.Result), fs.realPath(name)), fuse.OK
}

func (fs *FileSystem) Create(name string, flags uint32, mode uint32, _ *fuse.Context) (nodefs.File, fuse.Status) {
	req := fs.submit(func(finish ioengine.FinishFunc) *ioengine.Request {
		return fs.host.engine.Open(fs.realPath(name), int(flags)|unix.O_CREAT, mode, 0, finish, nil)
	})
	if req.Errno != 0 {
		return nil, fuse.Status(req.Errno)
	}
	return NewEngineFile(fs.host, int(req.Result), fs.realPath(name)), fuse.OK
}

func (fs *FileSystem) Mkdir(name string, mode uint32, _ *fuse.Context) fuse.Status {
	req := fs.submit(func(finish ioengine.FinishFunc) *ioengine.Request {
		return fs.host.engine.Mkdir(fs.realPath(name), mode, 0, finish, nil)
	})
	return fuse.Status(req.Errno)
}

func (fs *FileSystem) Rmdir(name string, _ *fuse.Context) fuse.Status {
	req := fs.submit(func(finish ioengine.FinishFunc) *ioengine.Request {
		return fs.host.engine.Rmdir(fs.realPath(name), 0, finish, nil)
	})
	return fuse.Status(req.Errno)
}

func (fs *FileSystem) Unlink(name string, _ *fuse.Context) fuse.Status {
	req := fs.submit(func(finish ioengine.FinishFunc) *ioengine.Request {
		return fs.host.engine.Unlink(fs.realPath(name), 0, finish, nil)
	})
	return fuse.Status(req.Errno)
}

func (fs *FileSystem) Rename(oldName, newName string, _ *fuse.Context) fuse.Status {
	req := fs.submit(func(finish ioengine.FinishFunc) *ioengine.Request {
		return fs.host.engine.Rename(fs.realPath(oldName), fs.realPath(newName), 0, finish, nil)
	})
	return fuse.Status(req.Errno)
}

func (fs *FileSystem) Symlink(target, linkName string, _ *fuse.Context) fuse.Status {
	req := fs.submit(func(finish ioengine.FinishFunc) *ioengine.Request {
		return fs.host.engine.Symlink(target, fs.realPath(linkName), 0, finish, nil)
	})
	return fuse.Status(req.Errno)
}

func (fs *FileSystem) Readlink(name string, _ *fuse.Context) (string, fuse.Status) {
	req := fs.submit(func(finish ioengine.FinishFunc) *ioengine.Request {
		return fs.host.engine.Readlink(fs.realPath(name), 0, finish, nil)
	})
	if req.Errno != 0 {
		return "", fuse.Status(req.Errno)
	}
	target, _ := req.Ptr2.(string)
	return target, fuse.OK
}

func (fs *FileSystem) Chmod(name string, mode uint32, _ *fuse.Context) fuse.Status {
	req := fs.submit(func(finish ioengine.FinishFunc) *ioengine.Request {
		return fs.host.engine.Chmod(fs.realPath(name), mode, 0, finish, nil)
	})
	return fuse.Status(req.Errno)
}

func (fs *FileSystem) Chown(name string, uid, gid uint32, _ *fuse.Context) fuse.Status {
	req := fs.submit(func(finish ioengine.FinishFunc) *ioengine.Request {
		return fs.host.engine.Chown(fs.realPath(name), int(uid), int(gid), 0, finish, nil)
	})
	return fuse.Status(req.Errno)
}

func (fs *FileSystem) Truncate(name string, size uint64, _ *fuse.Context) fuse.Status {
	req := fs.submit(func(finish ioengine.FinishFunc) *ioengine.Request {
		return fs.host.engine.Truncate(fs.realPath(name), int64(size), 0, finish, nil)
	})
	return fuse.Status(req.Errno)
}
