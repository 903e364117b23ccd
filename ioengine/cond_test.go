package ioengine

import (
	"sync"
	"testing"
	"time"
)

func TestWaitCondSignalWakesWaiter(t *testing.T) {
	var mu sync.Mutex
	var c waitCond

	woke := make(chan bool, 1)
	mu.Lock()
	go func() {
		mu.Lock()
		woke <- c.WaitTimeout(&mu, time.Second)
		mu.Unlock()
	}()
	mu.Unlock()

	// Give the goroutine a chance to start waiting before signaling.
	time.Sleep(20 * time.Millisecond)
	c.Signal()

	select {
	case result := <-woke:
		if !result {
			t.Fatal("WaitTimeout reported timeout, want signal")
		}
	case <-time.After(time.Second):
		t.Fatal("waiter never woke")
	}
}

func TestWaitCondTimesOut(t *testing.T) {
	var mu sync.Mutex
	mu.Lock()
	var c waitCond
	woke := c.WaitTimeout(&mu, 20*time.Millisecond)
	mu.Unlock()
	if woke {
		t.Fatal("WaitTimeout reported a signal, want timeout")
	}
}

func TestWaitCondSignalWithNoWaitersIsNoop(t *testing.T) {
	var c waitCond
	c.Signal() // must not panic
}
