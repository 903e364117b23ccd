package ioengine

// maybeStartThreadLocked grows the worker pool by one when the current
// thread count can't keep up with outstanding work — spec.md §4.3's exact
// condition, `started + npending < nreqs` (the original's
// `etp_maybe_start_thread`, `_examples/original_source/eio.c:405-414,
// 0 <= started+npending-nreqs` inverted), not merely "the ready queue is
// non-empty": already-started idle workers draining the queue should not
// themselves trigger more growth. Caller must hold reqMu.
func (e *Engine) maybeStartThreadLocked() {
	if e.started >= e.wanted {
		return
	}
	e.resMu.Lock()
	pending := e.npending
	e.resMu.Unlock()
	if e.started+pending >= e.nreqs {
		return
	}
	e.startWorkerLocked()
}

// SetMinParallel raises or lowers the floor on worker count. If the new
// floor exceeds the current target, the pool grows immediately. 0 is a
// valid floor (spec.md §8: set_max_parallel(0) must eventually drive
// nthreads() to 0, which requires min_parallel to be able to reach 0 too).
func (e *Engine) SetMinParallel(n int) {
	if n < 0 {
		n = 0
	}
	e.reqMu.Lock()
	e.minPar = n
	if e.minPar > e.maxPar {
		e.maxPar = e.minPar
	}
	if e.wanted < e.minPar {
		e.wanted = e.minPar
		for e.started < e.wanted {
			e.startWorkerLocked()
		}
	}
	e.reqMu.Unlock()
}

// SetMaxParallel sets the ceiling on worker count, down to and including
// 0 (spec.md §8: after set_max_parallel(0) completes, nthreads() must
// eventually reach 0). Lowering it below the current live count sheds the
// surplus by queuing one highest-priority OpSentinel request per worker
// to retire — cooperative, since a worker mid-request finishes that
// request first (spec.md §4.3).
func (e *Engine) SetMaxParallel(n int) {
	if n < 0 {
		n = 0
	}
	e.reqMu.Lock()
	e.maxPar = n
	if e.maxPar < e.minPar {
		e.minPar = e.maxPar
	}
	if e.wanted > e.maxPar {
		excess := e.wanted - e.maxPar
		e.wanted = e.maxPar
		for i := 0; i < excess; i++ {
			sentinel := NewRequest(OpSentinel, PriMax, nil, nil)
			e.reqQ.push(sentinel)
			e.nready++
			e.reqCond.Signal()
		}
	}
	e.reqMu.Unlock()
}

// SetMaxIdle sets how many surplus idle workers are tolerated before one
// self-retires on its next idle-timeout wakeup.
func (e *Engine) SetMaxIdle(n int) {
	if n < 0 {
		n = 0
	}
	e.reqMu.Lock()
	e.maxIdle = n
	e.reqMu.Unlock()
}

// SetMaxPollReqs bounds how many results a single Poll call delivers
// before returning early (0 means unbounded).
func (e *Engine) SetMaxPollReqs(n int) {
	e.resMu.Lock()
	e.maxPollReqs = n
	e.resMu.Unlock()
}

// SetMaxPollTime bounds how long a single Poll call may run before
// returning early, in nanoseconds (0 means unbounded).
func (e *Engine) SetMaxPollTime(ns int64) {
	e.resMu.Lock()
	e.maxPollTime = ns
	e.resMu.Unlock()
}
