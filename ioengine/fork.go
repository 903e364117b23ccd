package ioengine

import "os/exec"

// PrepareFork acquires the engine's three locks (workers run execute
// itself without holding any of them), in the fixed order spec.md §5 specifies (wrklock, then reqlock, then
// reslock), and returns a function that releases them in reverse. A real
// fork() call made while any of those locks is held would duplicate a
// parked mutex into the child process in a state no thread there can ever
// release; Go offers no raw fork(), so this guard instead brackets
// exec.Cmd.Start() (which itself holds syscall.ForkLock internally,
// following the same discipline the Go runtime uses for ForkExec), giving
// the same guarantee for the one place this module launches a child
// process.
func (e *Engine) PrepareFork() (release func()) {
	e.wrkMu.Lock()
	e.reqMu.Lock()
	e.resMu.Lock()
	return func() {
		e.resMu.Unlock()
		e.reqMu.Unlock()
		e.wrkMu.Unlock()
	}
}

// SafeForkExec starts cmd while holding PrepareFork's lock set, so no
// worker goroutine is observed mid-mutation of engine state by the
// forked child's copy of the address space (spec.md §4.6 fork-safety).
func (e *Engine) SafeForkExec(cmd *exec.Cmd) error {
	release := e.PrepareFork()
	defer release()
	return cmd.Start()
}
