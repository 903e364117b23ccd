package ioengine

import (
	"time"

	"github.com/asyncfs/ioengine/enginerrors"
)

// Poll delivers completed requests on the calling goroutine. Each
// iteration first retries growing the worker pool (spec.md §4.4 step 1:
// a worker-start failure is tolerated silently per spec.md §7, so Poll
// is one of the two places — alongside Submit — that gets another
// chance at it), then for one result it runs Finish (cancelled or not)
// and Destroy, until the result queue is drained, a Finish callback
// returns nonzero ("abort" — spec.md §4.4 step 6, stopping this call
// early and leaving the rest queued), or the configured poll budget
// (SetMaxPollReqs/SetMaxPollTime) is exhausted. It returns the number of
// results it took off the result queue (a group deferred because children
// remain counts once when taken; its later finish inside a child's
// finalize is not counted again) and, if a budget cut the call short
// while a backlog remains, enginerrors.ErrWouldBlock.
func (e *Engine) Poll() (int, error) {
	e.resMu.Lock()
	maxReqs := e.maxPollReqs
	maxTime := e.maxPollTime
	e.resMu.Unlock()

	var deadline time.Time
	if maxTime > 0 {
		deadline = time.Now().Add(time.Duration(maxTime))
	}

	count := 0
	for {
		e.reqMu.Lock()
		e.maybeStartThreadLocked()
		e.reqMu.Unlock()

		e.resMu.Lock()
		req := e.resQ.shift()
		if req == nil {
			e.resMu.Unlock()
			return count, nil
		}
		e.npending--
		wentEmpty := e.resQ.empty()
		e.resMu.Unlock()

		abort := e.finalize(req)
		count++

		if wentEmpty && e.donePoll != nil {
			e.donePoll()
		}
		if abort != 0 {
			return count, nil
		}
		if maxReqs > 0 && count >= maxReqs {
			return count, e.pendingErr()
		}
		if maxTime > 0 && time.Now().After(deadline) {
			return count, e.pendingErr()
		}
	}
}

// pendingErr reports enginerrors.ErrWouldBlock if results remain queued
// behind an exhausted poll budget.
func (e *Engine) pendingErr() error {
	e.resMu.Lock()
	defer e.resMu.Unlock()
	if e.npending > 0 {
		return enginerrors.ErrWouldBlock
	}
	return nil
}

// finalize runs req's completion callbacks, unless req is a group whose
// children haven't all finished yet — in which case it marks req deferred
// and returns, letting onChildFinished call finalize again once the last
// child lands. It returns the abort code from Finish, bubbled up through
// any parent group this request is itself a child of.
func (e *Engine) finalize(req *Request) int {
	if req.Opcode == OpGroup && req.ownGroup != nil && req.ownGroup.size > 0 {
		req.setFlag(FlagDeferred)
		return 0
	}

	// Finish always runs, cancelled or not — cancellation only skips the
	// blocking work itself (worker.run gates the call to e.execute), so
	// the caller is still notified its request completed, just with
	// whatever Result/Errno a never-executed request carries.
	abort := 0
	if req.Finish != nil {
		abort = req.Finish(req)
	}
	req.runDestroy()
	req.setFlag(groupFinishedFlag)

	e.reqMu.Lock()
	e.nreqs--
	e.reqMu.Unlock()

	if req.parentGroup != nil {
		if childAbort := e.onChildFinished(req); childAbort != 0 {
			abort = childAbort
		}
	}
	return abort
}

// onChildFinished unlinks a just-finalized child from its parent group,
// tops up the feeder if one is installed, and finalizes the parent once
// its last child lands and Poll has already visited it (FlagDeferred).
func (e *Engine) onChildFinished(child *Request) int {
	gs := child.parentGroup
	if child.groupPrev != nil {
		child.groupPrev.groupNext = child.groupNext
	} else {
		gs.childHead = child.groupNext
	}
	if child.groupNext != nil {
		child.groupNext.groupPrev = child.groupPrev
	} else {
		gs.childTail = child.groupPrev
	}
	child.groupPrev = nil
	child.groupNext = nil
	gs.size--

	e.feedGroup(gs)

	if gs.size == 0 && gs.owner.hasFlag(FlagDeferred) {
		return e.finalize(gs.owner)
	}
	return 0
}
