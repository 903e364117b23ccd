package ioengine

import "sync"

// Opcode selects which blocking operation a worker executes for a Request.
// The dispatch table living in package ops maps each value onto a real
// syscall; the engine core itself treats Opcode as opaque except for
// OpSentinel (internal worker-exit signal) and OpGroup/OpNop (no-op,
// completion contingent on children/feeder).
type Opcode int

const (
	OpNop Opcode = iota
	OpCustom
	OpGroup
	OpOpen
	OpClose
	OpRead
	OpWrite
	OpPread
	OpPwrite
	OpStat
	OpLstat
	OpFstat
	OpUnlink
	OpRename
	OpMkdir
	OpRmdir
	OpReaddir
	OpReadlink
	OpSymlink
	OpLink
	OpChmod
	OpChown
	OpTruncate
	OpFsync
	OpFdatasync
	OpSendfile
	OpReadahead
	OpUtime
	OpFutime
	OpSentinel // internal: instructs a worker to exit
)

// Priority range, per spec.md §6 ("at least 4 distinct levels"). PriMin is
// the lowest priority a caller may request and PriMax the highest; values
// outside the range are clamped by NewRequest.
const (
	PriMin = -4
	PriMax = 3

	numPriorities = PriMax - PriMin + 1
)

func clampPriority(p int) int {
	if p < PriMin {
		return PriMin
	}
	if p > PriMax {
		return PriMax
	}
	return p
}

// priorityIndex remaps a clamped priority into a 0-based bucket index for
// queue storage, highest priority first.
func priorityIndex(p int) int {
	return PriMax - clampPriority(p)
}

// Flags is a bitset of per-request markers.
type Flags uint32

const (
	FlagCancelled Flags = 1 << iota
	FlagPtr1Owned
	FlagPtr2Owned
	FlagDeferred // group: poll has observed this request and is waiting on children
)

// FinishFunc runs on the host thread during Poll once a request's result is
// ready. A nonzero return aborts the current Poll call (spec.md §4.4 step 6);
// the remaining results stay queued for the next Poll.
type FinishFunc func(req *Request) int

// DestroyFunc releases any resources the request holds (path strings,
// buffers) that are not owned by the engine itself. It runs once, after
// Finish, never before.
type DestroyFunc func(req *Request)

// FeedFunc is invoked for OpCustom requests (execute the user payload) and,
// for group requests, as the feeder callback that lazily adds children.
type FeedFunc func(req *Request)

// Request is the central unit of asynchronous work: an opcode, its
// parameters, and the callbacks the host and worker exercise against it.
// Per spec.md §3, a Request is mutated only by its owning worker while
// executing, and thereafter only by the polling host goroutine, until
// Destroy runs exactly once.
type Request struct {
	Opcode   Opcode
	priority int // already clamped+stored in caller units, remapped lazily

	// Parameters. Named after the C library this engine's shape is
	// modeled on: three integer slots, a 64-bit offset/size pair, two
	// numeric slots used for seconds (utime/futime), and two opaque
	// payload slots for paths, buffers, or decoded stat results.
	Int1, Int2, Int3 int
	Offset           int64
	Size             int64
	Sec1, Sec2       float64
	Ptr1, Ptr2       interface{}

	Result  int64
	Errno   int32 // captured errno, 0 on success
	flags   Flags
	flagsMu sync.Mutex

	Finish  FinishFunc
	Destroy DestroyFunc
	Feed    FeedFunc

	UserData interface{}

	// Group linkage (spec.md §4.5). ownGroup is non-nil only when this
	// request is itself an OpGroup request: it tracks that group's own
	// children. parentGroup points at the groupState of whichever group
	// this request was added to as a child, nil if it belongs to none.
	// groupPrev/groupNext thread this request into its parent's sibling
	// list.
	ownGroup    *groupState
	parentGroup *groupState
	groupPrev   *Request
	groupNext   *Request

	// Queue linkage: singly-linked within whichever queue currently
	// holds the request.
	next *Request

	// qpriority is the 0-based bucket index the request was enqueued
	// under; recorded at push time so shift() is O(1) without having
	// to re-derive it.
	qpriority int
}

// NewRequest allocates a zero-valued request for the given opcode. The
// Engine constructor methods in requests_ctors.go build on top of this to
// fill in opcode-specific parameters before calling Engine.Submit.
func NewRequest(op Opcode, priority int, finish FinishFunc, userData interface{}) *Request {
	return &Request{
		Opcode:   op,
		priority: clampPriority(priority),
		Finish:   finish,
		UserData: userData,
	}
}

// Priority returns the request's clamped priority.
func (r *Request) Priority() int { return r.priority }

// setFlag sets f in the request's flags. Safe to call concurrently with a
// worker executing the request; cancellation is cooperative, never
// preemptive (spec.md §4.5/§5).
func (r *Request) setFlag(f Flags) {
	r.flagsMu.Lock()
	r.flags |= f
	r.flagsMu.Unlock()
}

func (r *Request) clearFlag(f Flags) {
	r.flagsMu.Lock()
	r.flags &^= f
	r.flagsMu.Unlock()
}

func (r *Request) hasFlag(f Flags) bool {
	r.flagsMu.Lock()
	defer r.flagsMu.Unlock()
	return r.flags&f != 0
}

// Cancelled reports whether the request's cancelled flag is set.
func (r *Request) Cancelled() bool { return r.hasFlag(FlagCancelled) }

// runDestroy releases owned pointer payloads and invokes Destroy. Its one
// caller, Engine.finalize, runs it once, after Finish has run.
func (r *Request) runDestroy() {
	if r.hasFlag(FlagPtr1Owned) {
		r.Ptr1 = nil
	}
	if r.hasFlag(FlagPtr2Owned) {
		r.Ptr2 = nil
	}
	if r.Destroy != nil {
		r.Destroy(r)
	}
}
