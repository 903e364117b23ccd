package ioengine

import "github.com/asyncfs/ioengine/enginerrors"

// groupState tracks the children of a single OpGroup request: how many
// are still outstanding, an optional feeder that lazily tops up the
// outstanding count, and the doubly-linked sibling list threading through
// each child's groupPrev/groupNext (spec.md §4.5).
type groupState struct {
	owner *Request

	childHead, childTail *Request
	size                 int // children not yet finalized

	feeder FeedFunc
	limit  int // max outstanding children the feeder maintains; 0 = unbounded
}

// Grp creates a group request: a coordination point with no blocking work
// of its own, whose completion waits on every request added via GroupAdd.
// The returned request is queued for delivery immediately, the same as
// any other completed request, but Poll defers actually finishing it
// until its child count reaches zero.
func (e *Engine) Grp(priority int, finish FinishFunc, userData interface{}) *Request {
	grp := NewRequest(OpGroup, priority, finish, userData)
	grp.ownGroup = &groupState{owner: grp}

	e.reqMu.Lock()
	e.nreqs++
	e.reqMu.Unlock()

	e.resMu.Lock()
	prior := e.resQ.push(grp)
	e.npending++
	if prior == 0 && e.wantPoll != nil {
		e.wantPoll()
	}
	e.resMu.Unlock()
	return grp
}

// GroupAdd links an already-submitted child under grp (spec.md §4.7's
// constructors submit on construction, so by the time GroupAdd runs child
// is already queued — matching the original's eio_grp_add, which only
// links the sibling list and never itself calls eio_submit). It returns
// enginerrors.ErrGroupFinished if grp has already been fully finished (its
// Finish/Destroy callbacks have already run). Callers must link every
// child before the next Poll call that could deliver it, the same
// ordering constraint the original places on eio_grp_add/eio_poll.
func (e *Engine) GroupAdd(grp, child *Request) error {
	gs := grp.ownGroup
	if gs == nil || grp.hasFlag(groupFinishedFlag) {
		return enginerrors.ErrGroupFinished
	}
	child.parentGroup = gs
	if gs.childTail == nil {
		gs.childHead = child
	} else {
		gs.childTail.groupNext = child
		child.groupPrev = gs.childTail
	}
	gs.childTail = child
	gs.size++
	return nil
}

// groupFinishedFlag reuses the Flags bitset to mark a group request whose
// Finish/Destroy have already run, guarding against a late GroupAdd.
const groupFinishedFlag Flags = 1 << 30

// GroupLimit caps how many outstanding children a group's feeder keeps in
// flight at once; 0 means unbounded.
func (e *Engine) GroupLimit(grp *Request, n int) {
	if grp.ownGroup == nil {
		return
	}
	grp.ownGroup.limit = n
}

// GroupFeed installs feeder as grp's child source and immediately calls
// it until either limit outstanding children exist or feeder stops
// producing new ones (spec.md §4.5 "feeder" semantics). feeder is
// expected to call GroupAdd(grp, ...) for each child it produces, or do
// nothing once exhausted.
func (e *Engine) GroupFeed(grp *Request, feeder FeedFunc, limit int) {
	gs := grp.ownGroup
	if gs == nil {
		return
	}
	gs.feeder = feeder
	gs.limit = limit
	e.feedGroup(gs)
}

// feedGroup tops up gs's outstanding child count by repeatedly invoking
// its feeder until the limit is reached or the feeder adds nothing in a
// call, which is taken as exhaustion.
func (e *Engine) feedGroup(gs *groupState) {
	if gs.feeder == nil {
		return
	}
	for gs.limit <= 0 || gs.size < gs.limit {
		before := gs.size
		gs.feeder(gs.owner)
		if gs.size == before {
			gs.feeder = nil
			return
		}
	}
}

// GroupCancel marks grp and every request transitively beneath it as
// cancelled. Cancellation is cooperative (spec.md §4.5/§5): a worker that
// has already begun executing a request runs it to completion regardless.
func (e *Engine) GroupCancel(grp *Request) {
	grp.setFlag(FlagCancelled)
	if grp.ownGroup == nil {
		return
	}
	for child := grp.ownGroup.childHead; child != nil; child = child.groupNext {
		if child.Opcode == OpGroup {
			e.GroupCancel(child)
		} else {
			child.setFlag(FlagCancelled)
		}
	}
}
