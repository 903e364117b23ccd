// Package ops supplies the real opcode dispatch table for an
// ioengine.Engine: the ioengine core treats a Request's Opcode as opaque
// (beyond the three coordination opcodes it knows about itself), and
// package ops is where that opcode actually turns into a syscall.
package ops

import (
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/asyncfs/ioengine"
	"github.com/asyncfs/ioengine/logctx"
)

// Dispatcher holds the state opcode handlers share across requests: a
// directory-change watcher invalidating per-worker directory-handle
// caches, and sequential-access tracking for OpReadahead.
type Dispatcher struct {
	logger  *logctx.Logger
	watcher *fsnotify.Watcher

	staleMu sync.Mutex
	stale   map[string]bool // directories with a pending fsnotify event

	watchedMu sync.Mutex
	watched   map[string]bool

	patterns accessPatternTracker
}

// New builds a Dispatcher and starts its fsnotify event loop. Callers
// pass Dispatcher.Execute as ioengine.Config.Execute.
func New(logger *logctx.Logger) (*Dispatcher, error) {
	if logger == nil {
		logger = logctx.Global().WithComponent("ops")
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	d := &Dispatcher{
		logger:  logger,
		watcher: w,
		stale:   make(map[string]bool),
		watched: make(map[string]bool),
	}
	d.patterns.init()
	go d.watchLoop()
	return d, nil
}

// Close stops the fsnotify watcher. Call once the owning engine is torn
// down.
func (d *Dispatcher) Close() error {
	return d.watcher.Close()
}

func (d *Dispatcher) watchLoop() {
	for {
		select {
		case ev, ok := <-d.watcher.Events:
			if !ok {
				return
			}
			d.staleMu.Lock()
			d.stale[ev.Name] = true
			d.staleMu.Unlock()
		case err, ok := <-d.watcher.Errors:
			if !ok {
				return
			}
			d.logger.Warn("directory watcher error", map[string]interface{}{"error": err.Error()})
		}
	}
}

// watchDir starts watching dir for changes the first time it's seen, so
// later readdir calls can tell whether a worker's cached handle is stale.
func (d *Dispatcher) watchDir(dir string) {
	d.watchedMu.Lock()
	already := d.watched[dir]
	if !already {
		d.watched[dir] = true
	}
	d.watchedMu.Unlock()
	if already {
		return
	}
	if err := d.watcher.Add(dir); err != nil {
		d.logger.Debug("directory watch failed", map[string]interface{}{"dir": dir, "error": err.Error()})
	}
}

// dirIsStale reports and clears whether dir has changed since it was last
// cached by a worker.
func (d *Dispatcher) dirIsStale(dir string) bool {
	d.staleMu.Lock()
	defer d.staleMu.Unlock()
	if d.stale[dir] {
		delete(d.stale, dir)
		return true
	}
	return false
}

// Execute is the ioengine.ExecuteFunc package ops provides: it dispatches
// req to the handler for its Opcode, filling in Result/Errno, and applies
// the per-path readahead heuristic's result when relevant.
func (d *Dispatcher) Execute(ctx ioengine.WorkerContext, req *ioengine.Request) {
	switch req.Opcode {
	case ioengine.OpNop, ioengine.OpGroup:
		// No blocking work: a group coordinates children, a nop is
		// purely a round-trip through Submit/Poll.
	case ioengine.OpCustom:
		if req.Feed != nil {
			req.Feed(req)
		}
	case ioengine.OpOpen:
		d.open(req)
	case ioengine.OpClose:
		d.closeFd(req)
	case ioengine.OpRead, ioengine.OpPread:
		d.read(req)
	case ioengine.OpWrite, ioengine.OpPwrite:
		d.write(req)
	case ioengine.OpStat:
		d.stat(req, false)
	case ioengine.OpLstat:
		d.stat(req, true)
	case ioengine.OpFstat:
		d.fstat(req)
	case ioengine.OpUnlink:
		d.unlink(req)
	case ioengine.OpRename:
		d.rename(req)
	case ioengine.OpMkdir:
		d.mkdir(req)
	case ioengine.OpRmdir:
		d.rmdir(req)
	case ioengine.OpReaddir:
		d.readdir(ctx, req)
	case ioengine.OpReadlink:
		d.readlink(req)
	case ioengine.OpSymlink:
		d.symlink(req)
	case ioengine.OpLink:
		d.link(req)
	case ioengine.OpChmod:
		d.chmod(req)
	case ioengine.OpChown:
		d.chown(req)
	case ioengine.OpTruncate:
		d.truncate(req)
	case ioengine.OpFsync:
		d.fsync(req)
	case ioengine.OpFdatasync:
		d.fdatasync(req)
	case ioengine.OpSendfile:
		d.sendfile(ctx, req)
	case ioengine.OpReadahead:
		d.readahead(req)
	case ioengine.OpUtime:
		d.utime(req)
	case ioengine.OpFutime:
		d.futime(req)
	default:
		// Unknown opcode: terminal, not routed through OpGroup/OpNop —
		// an unrecognized request is a caller bug, not a no-op.
		req.Errno = int32(unsupportedErrno)
		req.Result = -1
	}
}
