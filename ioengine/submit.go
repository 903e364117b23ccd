package ioengine

// Submit enqueues req for execution. Submit never blocks: it appends to
// the request queue, wakes one idle worker if any are parked, and grows
// the pool via maybeStartThread if there's room and a reason to (spec.md
// §4.1/§4.3).
func (e *Engine) Submit(req *Request) {
	e.reqMu.Lock()
	e.nreqs++
	e.reqQ.push(req)
	e.nready++
	e.maybeStartThreadLocked()
	e.reqCond.Signal()
	e.reqMu.Unlock()
}
