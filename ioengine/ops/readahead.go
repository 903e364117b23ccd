package ops

import (
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/asyncfs/ioengine"
)

// accessPattern tracks one path's recent readahead requests so a string
// of sequential calls widens the hinted window instead of re-hinting the
// same bytes every time (SPEC_FULL.md domain-stack supplement, modeled on
// the teacher's sequential-access detection for prefetching).
type accessPattern struct {
	lastOffset   int64
	lastEnd      int64
	sequential   bool
	lastAccess   time.Time
	widenFactor  int
}

type accessPatternTracker struct {
	mu     sync.Mutex
	byPath map[string]*accessPattern

	hits        int64 // sequential accesses that widened the hint
	misses      int64 // non-sequential accesses, window reset to 1x
	hintedBytes int64 // total bytes ever passed to Fadvise
}

func (t *accessPatternTracker) init() {
	t.byPath = make(map[string]*accessPattern)
}

// ReadAheadStats is a point-in-time snapshot of the readahead heuristic's
// behavior, mirroring the hit/miss/byte counters the teacher's block cache
// exposes for its own prefetcher (SPEC_FULL.md domain-stack supplement).
type ReadAheadStats struct {
	Hits        int64
	Misses      int64
	HintedBytes int64
}

// ReadAheadStats reports the dispatcher's accumulated readahead counters.
func (d *Dispatcher) ReadAheadStats() ReadAheadStats {
	t := &d.patterns
	t.mu.Lock()
	defer t.mu.Unlock()
	return ReadAheadStats{Hits: t.hits, Misses: t.misses, HintedBytes: t.hintedBytes}
}

// patternWindow folds the new request into path's tracked pattern and
// returns the offset/length to actually hint, which may be wider than
// what was requested when the access looks sequential.
func (t *accessPatternTracker) patternWindow(path string, offset, length int64) (int64, int64) {
	const maxWiden = 8

	t.mu.Lock()
	defer t.mu.Unlock()

	p, ok := t.byPath[path]
	if !ok {
		p = &accessPattern{}
		t.byPath[path] = p
	}

	p.sequential = ok && offset == p.lastEnd && time.Since(p.lastAccess) < 2*time.Second
	if p.sequential && p.widenFactor < maxWiden {
		p.widenFactor++
		t.hits++
	} else if !p.sequential {
		p.widenFactor = 1
		t.misses++
	}

	p.lastOffset = offset
	p.lastEnd = offset + length
	p.lastAccess = time.Now()

	hinted := length * int64(p.widenFactor)
	t.hintedBytes += hinted
	return offset, hinted
}

// readahead executes OpReadahead: path in Ptr1, offset in Offset, length
// in Size.
func (d *Dispatcher) readahead(req *ioengine.Request) {
	path, _ := req.Ptr1.(string)

	fd, err := unix.Open(path, unix.O_RDONLY, 0)
	if err != nil {
		setErr(req, err)
		return
	}
	defer unix.Close(fd)

	offset, length := d.patterns.patternWindow(path, req.Offset, req.Size)
	if err := unix.Fadvise(fd, offset, length, unix.FADV_WILLNEED); err != nil {
		setErr(req, err)
		return
	}
	req.Result = 0
}
