package ioengine

import (
	"sync"
	"testing"
	"time"

	"github.com/asyncfs/ioengine/enginerrors"
)

// testExecute stands in for package ops in these engine-level tests: it
// runs OpCustom's Feed callback and treats OpNop/OpGroup as pure no-ops,
// exactly what a real dispatcher does for those three opcodes.
func testExecute(_ WorkerContext, req *Request) {
	if req.Opcode == OpCustom && req.Feed != nil {
		req.Feed(req)
	}
}

func newTestEngine(t *testing.T) (*Engine, chan struct{}) {
	t.Helper()
	wake := make(chan struct{}, 1)
	e := New(Config{
		MinParallel: 2,
		MaxParallel: 4,
		Execute:     testExecute,
		WantPoll: func() {
			select {
			case wake <- struct{}{}:
			default:
			}
		},
	})
	return e, wake
}

// drain polls e until it has processed at least n requests or the
// deadline passes, failing the test on timeout.
func drain(t *testing.T, e *Engine, wake chan struct{}, want int) int {
	t.Helper()
	total := 0
	deadline := time.After(2 * time.Second)
	for total < want {
		select {
		case <-wake:
			for {
				n, _ := e.Poll()
				total += n
				if n == 0 {
					break
				}
			}
		case <-deadline:
			t.Fatalf("drain: timed out with %d/%d processed", total, want)
		}
	}
	return total
}

func TestSubmitPollCustomRoundTrip(t *testing.T) {
	e, wake := newTestEngine(t)

	var got int64
	done := make(chan struct{})
	e.Custom(func(r *Request) {
		r.Result = 42
	}, 0, func(r *Request) int {
		got = r.Result
		close(done)
		return 0
	}, nil)

	drain(t, e, wake, 1)
	<-done
	if got != 42 {
		t.Fatalf("got %d, want 42", got)
	}
}

func TestPriorityOrderingEndToEnd(t *testing.T) {
	e, wake := newTestEngine(t)

	// Block both initial workers so every submission below queues up
	// before any of it executes, making finish order purely a function
	// of priority.
	block := make(chan struct{})
	e.Custom(func(r *Request) { <-block }, PriMax, nil, nil)
	e.Custom(func(r *Request) { <-block }, PriMax, nil, nil)

	var mu sync.Mutex
	var order []int
	finishN := func(n int) FinishFunc {
		return func(r *Request) int {
			mu.Lock()
			order = append(order, n)
			mu.Unlock()
			return 0
		}
	}
	e.Custom(func(r *Request) {}, 0, finishN(0), nil)
	e.Custom(func(r *Request) {}, PriMax, finishN(1), nil)
	e.Custom(func(r *Request) {}, 2, finishN(2), nil)

	close(block)

	drain(t, e, wake, 5)

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 3 {
		t.Fatalf("order = %v, want 3 entries", order)
	}
	if order[0] != 1 || order[1] != 2 || order[2] != 0 {
		t.Fatalf("order = %v, want [1 2 0]", order)
	}
}

func TestGroupDeferredFinish(t *testing.T) {
	e, wake := newTestEngine(t)

	var mu sync.Mutex
	var childOrder []int
	groupDone := make(chan struct{})

	grp := e.Grp(0, func(r *Request) int {
		close(groupDone)
		return 0
	}, nil)

	for i := 0; i < 3; i++ {
		i := i
		child := e.Custom(func(r *Request) {}, 0, func(r *Request) int {
			mu.Lock()
			childOrder = append(childOrder, i)
			mu.Unlock()
			return 0
		}, nil)
		if err := e.GroupAdd(grp, child); err != nil {
			t.Fatalf("GroupAdd: %v", err)
		}
	}

	drain(t, e, wake, 4) // group request itself + 3 children
	select {
	case <-groupDone:
	case <-time.After(2 * time.Second):
		t.Fatal("group finish never ran")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(childOrder) != 3 {
		t.Fatalf("childOrder = %v, want 3 entries", childOrder)
	}
}

func TestGroupAddAfterFinishErrors(t *testing.T) {
	e, wake := newTestEngine(t)

	done := make(chan struct{})
	grp := e.Grp(0, func(r *Request) int {
		close(done)
		return 0
	}, nil)

	drain(t, e, wake, 1)
	<-done

	err := e.GroupAdd(grp, e.Custom(func(r *Request) {}, 0, nil, nil))
	if err != enginerrors.ErrGroupFinished {
		t.Fatalf("GroupAdd after finish: got %v, want ErrGroupFinished", err)
	}
}

func TestGroupFeederRefillsOnCompletion(t *testing.T) {
	e, wake := newTestEngine(t)

	const total = 5
	produced := 0
	var mu sync.Mutex

	done := make(chan struct{})
	grp := e.Grp(0, func(r *Request) int {
		close(done)
		return 0
	}, nil)

	e.GroupFeed(grp, func(g *Request) {
		mu.Lock()
		defer mu.Unlock()
		if produced >= total {
			return
		}
		produced++
		e.GroupAdd(g, e.Custom(func(r *Request) {}, 0, nil, nil))
	}, 2)

	drain(t, e, wake, total+1)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("group with feeder never finished")
	}

	mu.Lock()
	defer mu.Unlock()
	if produced != total {
		t.Fatalf("produced = %d, want %d", produced, total)
	}
}

func TestCancelSkipsExecutionButStillFinishes(t *testing.T) {
	e, wake := newTestEngine(t)

	executed := false
	done := make(chan struct{})
	req := NewRequest(OpCustom, 0, func(r *Request) int {
		close(done)
		return 0
	}, nil)
	req.Feed = func(r *Request) { executed = true }
	e.Cancel(req)
	e.Submit(req)

	drain(t, e, wake, 1)
	<-done
	if executed {
		t.Fatal("cancelled request's Feed ran")
	}
}

func TestGroupCancelFansOutToChildren(t *testing.T) {
	e, _ := newTestEngine(t)

	grp := e.Grp(0, nil, nil)
	child := e.Custom(func(r *Request) {}, 0, nil, nil)
	if err := e.GroupAdd(grp, child); err != nil {
		t.Fatalf("GroupAdd: %v", err)
	}
	e.GroupCancel(grp)

	if !grp.Cancelled() {
		t.Fatal("group itself not marked cancelled")
	}
	if !child.Cancelled() {
		t.Fatal("child not marked cancelled by GroupCancel")
	}
}

func TestPollBudgetReturnsWouldBlock(t *testing.T) {
	e, wake := newTestEngine(t)
	e.SetMaxPollReqs(1)

	for i := 0; i < 3; i++ {
		e.Custom(func(r *Request) {}, 0, nil, nil)
	}

	<-wake
	n, err := e.Poll()
	if n != 1 {
		t.Fatalf("first Poll processed %d, want 1", n)
	}
	if err != enginerrors.ErrWouldBlock {
		t.Fatalf("err = %v, want ErrWouldBlock", err)
	}
}

func TestIdleWorkerRetiresAboveMaxIdle(t *testing.T) {
	old := idleTimeout
	idleTimeout = 30 * time.Millisecond
	defer func() { idleTimeout = old }()

	e := New(Config{MinParallel: 3, MaxParallel: 8, MaxIdle: 1, Execute: testExecute})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if e.Nthreads() <= 2 {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("worker pool never shrank below 3: Nthreads=%d", e.Nthreads())
}

func TestRecordLatencyUpdatesMovingAverage(t *testing.T) {
	e, wake := newTestEngine(t)
	e.SetLatencyWarn(5 * time.Millisecond)

	for i := 0; i < 3; i++ {
		e.Custom(func(r *Request) { time.Sleep(10 * time.Millisecond) }, 0, nil, nil)
	}
	drain(t, e, wake, 3)

	e.latMu.Lock()
	avg := e.avgLatency
	e.latMu.Unlock()
	if avg <= 0 {
		t.Fatal("avgLatency never updated")
	}
}

func TestSetMaxParallelShrinksPool(t *testing.T) {
	e, wake := newTestEngine(t)
	e.SetMinParallel(4)
	if got := e.Nthreads(); got != 4 {
		t.Fatalf("Nthreads after raising min = %d, want 4", got)
	}

	e.SetMaxParallel(1)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && e.Nthreads() > 1 {
		select {
		case <-wake:
			e.Poll()
		case <-time.After(50 * time.Millisecond):
		}
	}
	if got := e.Nthreads(); got != 1 {
		t.Fatalf("Nthreads after SetMaxParallel(1) = %d, want 1", got)
	}
}

func TestSetMaxParallelDrainsPoolToZero(t *testing.T) {
	e, wake := newTestEngine(t)

	e.SetMaxParallel(0)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && e.Nthreads() > 0 {
		select {
		case <-wake:
			e.Poll()
		case <-time.After(50 * time.Millisecond):
		}
	}
	if got := e.Nthreads(); got != 0 {
		t.Fatalf("Nthreads after SetMaxParallel(0) = %d, want 0", got)
	}

	// Raising the ceiling alone leaves the target at zero; raising the
	// floor again must bring the pool back up from zero workers so a
	// subsequent submission still completes.
	done := make(chan struct{})
	e.SetMaxParallel(4)
	e.SetMinParallel(1)
	e.Custom(func(r *Request) {}, 0, func(r *Request) int {
		close(done)
		return 0
	}, nil)
	drain(t, e, wake, 1)
	<-done
}
