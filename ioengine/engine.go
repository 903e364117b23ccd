// Package ioengine implements a host-controlled asynchronous filesystem
// I/O engine: a priority-queued pool of worker goroutines that execute
// blocking filesystem operations off the caller's goroutine, with results
// collected back on the host's own schedule via Poll.
package ioengine

import (
	"os"
	"sync"
	"time"

	"github.com/asyncfs/ioengine/logctx"
)

// defaults mirror spec.md §6's minimum guarantees.
const (
	defaultMinParallel = 1
	defaultMaxParallel = 16
	defaultMaxIdle     = 4
)

// WorkerContext exposes the per-worker resources an ExecuteFunc may reuse
// across requests without package ops needing access to the unexported
// worker type itself: a scratch buffer for read/write/sendfile payloads
// and a single cached directory handle for readdir-heavy workloads.
type WorkerContext interface {
	ScratchBuf(size int) []byte
	CachedDir(path string) (*os.File, bool)
	SetCachedDir(path string, f *os.File)
}

// ExecuteFunc runs a request's blocking work on a worker goroutine. The
// engine itself never interprets Opcode beyond OpSentinel/OpGroup/OpNop;
// package ops supplies the real dispatch table passed in at construction.
type ExecuteFunc func(ctx WorkerContext, req *Request)

// Engine is an async I/O engine instance: one request queue, one result
// queue, and an elastically-sized pool of workers draining the former into
// the latter. The zero value is not usable; construct with New.
type Engine struct {
	logger *logctx.Logger

	execute ExecuteFunc

	// Request side. reqMu additionally guards the worker-count tunables
	// (wanted, maxIdle) since maybeStartThread reads them alongside the
	// queue under the same lock (spec.md §5 lock order: wrklock, then
	// reqlock, then reslock — acquired independently here since
	// maybeStartThread only ever needs reqMu).
	reqMu    sync.Mutex
	reqCond  waitCond
	reqQ     reqQueue
	nreqs    int // total submitted, not yet polled to completion
	nready   int // queued, not yet picked up by a worker
	idle     int // workers currently parked in WaitTimeout
	started  int // live worker goroutines
	wanted   int // target worker count (minParallel..maxParallel)
	maxIdle  int
	minPar   int
	maxPar   int
	workerSeq int

	// Result side.
	resMu    sync.Mutex
	resQ     reqQueue
	npending int // results queued, not yet delivered by Poll

	// Worker list: intrusive doubly-linked ring with a sentinel head,
	// guarded by wrkMu. startWorkerLocked links workers in and
	// worker.retire unlinks them; nothing else walks the list.
	wrkMu sync.Mutex
	wHead worker // sentinel; wHead.wNext/wPrev chain live workers

	// Host callbacks (spec.md §3/§9): WantPoll fires on the
	// empty-to-non-empty edge of the result queue, DonePoll on the
	// reverse edge once Poll drains it.
	wantPoll func()
	donePoll func()

	maxPollReqs int
	maxPollTime int64 // nanoseconds; 0 means unbounded

	// Task-duration tracking (SPEC_FULL.md domain-stack supplement,
	// grounded on the teacher's adaptive worker-pool optimizer): an
	// exponential moving average of execute() latency, logged at Debug
	// whenever it crosses latencyWarn. 0 disables the check.
	latMu      sync.Mutex
	avgLatency time.Duration
	latencyWarn time.Duration
}

// Config seeds the tunables Engine.New needs; zero values fall back to
// spec.md §6 defaults.
type Config struct {
	MinParallel int
	MaxParallel int
	MaxIdle     int
	Logger      *logctx.Logger
	WantPoll    func()
	DonePoll    func()
	Execute     ExecuteFunc

	// LatencyWarn, if nonzero, logs at Debug whenever the moving average
	// execute() duration crosses this threshold (SPEC_FULL.md supplement).
	LatencyWarn time.Duration
}

// New builds an Engine and starts its minimum worker complement.
func New(cfg Config) *Engine {
	if cfg.MinParallel <= 0 {
		cfg.MinParallel = defaultMinParallel
	}
	if cfg.MaxParallel <= 0 {
		cfg.MaxParallel = defaultMaxParallel
	}
	if cfg.MaxParallel < cfg.MinParallel {
		cfg.MaxParallel = cfg.MinParallel
	}
	if cfg.MaxIdle <= 0 {
		cfg.MaxIdle = defaultMaxIdle
	}
	if cfg.Logger == nil {
		cfg.Logger = logctx.Global().WithComponent("ioengine")
	}

	e := &Engine{
		logger:      cfg.Logger,
		execute:     cfg.Execute,
		minPar:      cfg.MinParallel,
		maxPar:      cfg.MaxParallel,
		maxIdle:     cfg.MaxIdle,
		wanted:      cfg.MinParallel,
		wantPoll:    cfg.WantPoll,
		donePoll:    cfg.DonePoll,
		latencyWarn: cfg.LatencyWarn,
	}
	e.wHead.wNext = &e.wHead
	e.wHead.wPrev = &e.wHead

	e.reqMu.Lock()
	for i := 0; i < e.wanted; i++ {
		e.startWorkerLocked()
	}
	e.reqMu.Unlock()

	return e
}

// startWorkerLocked spawns a new worker goroutine and links it into the
// worker list. Caller must hold reqMu; startWorkerLocked takes wrkMu
// itself (wrklock nests inside reqlock per spec.md §5's reversed
// acquisition order for this one path, documented in DESIGN.md).
func (e *Engine) startWorkerLocked() {
	e.workerSeq++
	w := &worker{id: e.workerSeq, owner: e}

	e.wrkMu.Lock()
	tail := e.wHead.wPrev
	tail.wNext = w
	w.wPrev = tail
	w.wNext = &e.wHead
	e.wHead.wPrev = w
	e.wrkMu.Unlock()

	e.started++
	go w.run(e)
}

// Nreqs reports requests submitted but not yet fully polled to completion.
func (e *Engine) Nreqs() int {
	e.reqMu.Lock()
	defer e.reqMu.Unlock()
	return e.nreqs
}

// Nready reports requests queued but not yet picked up by any worker.
func (e *Engine) Nready() int {
	e.reqMu.Lock()
	defer e.reqMu.Unlock()
	return e.nready
}

// Npending reports completed requests waiting for the next Poll.
func (e *Engine) Npending() int {
	e.resMu.Lock()
	defer e.resMu.Unlock()
	return e.npending
}

// Nthreads reports the current number of live worker goroutines.
func (e *Engine) Nthreads() int {
	e.reqMu.Lock()
	defer e.reqMu.Unlock()
	return e.started
}

// recordLatency folds one execute() duration into the engine's moving
// average and logs at Debug if the average crosses latencyWarn. Uses an
// exponential moving average (alpha=1/8) rather than a full histogram,
// matching the cheap running-average the teacher's worker pool optimizer
// keeps per shard.
func (e *Engine) recordLatency(d time.Duration) {
	e.latMu.Lock()
	warn := e.latencyWarn
	if warn <= 0 {
		e.latMu.Unlock()
		return
	}
	prior := e.avgLatency
	if prior == 0 {
		e.avgLatency = d
	} else {
		e.avgLatency = prior + (d-prior)/8
	}
	avg := e.avgLatency
	e.latMu.Unlock()

	if prior <= warn && avg > warn {
		e.logger.Debug("average task latency crossed threshold", map[string]interface{}{
			"avg_ns":       avg.Nanoseconds(),
			"threshold_ns": warn.Nanoseconds(),
		})
	}
}

// SetLatencyWarn changes the moving-average threshold that triggers a
// Debug log; 0 disables the check.
func (e *Engine) SetLatencyWarn(d time.Duration) {
	e.latMu.Lock()
	e.latencyWarn = d
	e.latMu.Unlock()
}
