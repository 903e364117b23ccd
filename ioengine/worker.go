package ioengine

import (
	"math/rand"
	"os"
	"time"
)

// idleTimeout is the base duration a worker waits for work before
// self-retiring when surplus capacity is detected (spec.md §4.2). A var,
// not a const, so tests can shrink it rather than waiting out the real
// default.
var idleTimeout = 10 * time.Second

// worker is a long-running executor goroutine standing in for spec.md's
// OS thread. It owns a lazily-allocated scratch buffer and directory
// handle, released at the end of every request to bound memory (spec.md
// §5 "resource discipline"), and sits on the engine's intrusive
// worker list between wPrev/wNext.
type worker struct {
	id    int
	owner *Engine
	req   *Request // nil when idle; set and read only by this worker

	scratch []byte   // lazy, allocated by ScratchBuf and dropped after each request
	dirFile *os.File // lazy cached directory handle
	dirPath string   // path the cached handle was opened for

	wPrev, wNext *worker
}

// releaseScratch drops the per-worker scratch buffer and any cached
// directory handle, bounding the worker's resident memory between
// requests.
func (w *worker) releaseScratch() {
	w.scratch = nil
	if w.dirFile != nil {
		w.dirFile.Close()
		w.dirFile = nil
		w.dirPath = ""
	}
}

// ScratchBuf returns the worker's scratch buffer, growing it to at least
// size bytes. Satisfies WorkerContext.
func (w *worker) ScratchBuf(size int) []byte {
	if cap(w.scratch) < size {
		w.scratch = make([]byte, size)
	}
	return w.scratch[:size]
}

// CachedDir returns the worker's cached directory handle if it was last
// opened for path. Satisfies WorkerContext.
func (w *worker) CachedDir(path string) (*os.File, bool) {
	if w.dirFile != nil && w.dirPath == path {
		return w.dirFile, true
	}
	return nil, false
}

// SetCachedDir replaces the worker's cached directory handle, closing any
// handle it's displacing. Satisfies WorkerContext.
func (w *worker) SetCachedDir(path string, f *os.File) {
	if w.dirFile != nil && w.dirFile != f {
		w.dirFile.Close()
	}
	w.dirFile = f
	w.dirPath = path
}

// run is the worker's main loop (spec.md §4.2).
func (w *worker) run(e *Engine) {
	w.owner = e
	jitter := time.Duration(rand.Int63n(int64(250 * time.Millisecond)))

	for {
		e.reqMu.Lock()
		var req *Request
		for {
			req = e.reqQ.shift()
			if req != nil {
				break
			}
			e.idle++
			deadline := idleTimeout + jitter
			woke := e.reqCond.WaitTimeout(&e.reqMu, deadline)
			if !woke {
				// Timed out waiting for work: retire only if we're
				// surplus capacity, checked *after* the timed wait,
				// still under reqMu. Both idle and started are
				// decremented here, before the lock is released, so a
				// concurrent maybeStartThread never observes a stale
				// started count (spec.md §4.2/§4.3).
				if e.idle > e.maxIdle {
					e.idle--
					e.started--
					e.reqMu.Unlock()
					w.retire()
					return
				}
				// Not surplus (idle <= maxIdle): come off idle and loop
				// back to wait again. minParallel is not consulted here
				// or above. Must decrement before looping — the top of
				// this loop increments idle again on the next empty shift.
				e.idle--
				continue
			}
			e.idle--
		}
		e.nready--
		e.reqMu.Unlock()

		if req.Opcode == OpSentinel {
			e.reqMu.Lock()
			e.started--
			e.reqMu.Unlock()
			w.retire()
			return
		}

		w.req = req
		if !req.hasFlag(FlagCancelled) && e.execute != nil {
			start := time.Now()
			e.execute(w, req)
			e.recordLatency(time.Since(start))
		}
		w.req = nil

		e.resMu.Lock()
		prior := e.resQ.push(req)
		e.npending++
		if prior == 0 && e.wantPoll != nil {
			e.wantPoll()
		}
		e.resMu.Unlock()

		w.releaseScratch()
	}
}

// retire unlinks the worker from the engine's worker list; called once,
// right before the goroutine returns, after the started/idle counters
// have already been adjusted under reqMu.
func (w *worker) retire() {
	e := w.owner
	e.wrkMu.Lock()
	w.wPrev.wNext = w.wNext
	w.wNext.wPrev = w.wPrev
	e.wrkMu.Unlock()
}
