package ops

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"golang.org/x/sys/unix"

	"github.com/asyncfs/ioengine"
)

func newTestEngine(t *testing.T) (*ioengine.Engine, chan struct{}) {
	t.Helper()
	d, err := New(nil)
	if err != nil {
		t.Fatalf("New dispatcher: %v", err)
	}
	t.Cleanup(func() { d.Close() })

	wake := make(chan struct{}, 1)
	e := ioengine.New(ioengine.Config{
		MinParallel: 2,
		MaxParallel: 4,
		Execute:     d.Execute,
		WantPoll: func() {
			select {
			case wake <- struct{}{}:
			default:
			}
		},
	})
	return e, wake
}

// submitAndWait calls build, which must itself submit the request (every
// opcode constructor on Engine submits on construction), then waits for it
// to finish.
func submitAndWait(t *testing.T, e *ioengine.Engine, wake chan struct{}, build func(ioengine.FinishFunc) *ioengine.Request) *ioengine.Request {
	t.Helper()
	done := make(chan struct{})
	var finished *ioengine.Request
	build(func(r *ioengine.Request) int {
		finished = r
		close(done)
		return 0
	})

	deadline := time.After(2 * time.Second)
	for {
		select {
		case <-wake:
			for {
				n, _ := e.Poll()
				if n == 0 {
					break
				}
			}
			select {
			case <-done:
				return finished
			default:
			}
		case <-done:
			return finished
		case <-deadline:
			t.Fatal("submitAndWait: timed out")
		}
	}
}

func TestOpenWriteReadClose(t *testing.T) {
	e, wake := newTestEngine(t)
	path := filepath.Join(t.TempDir(), "f.txt")

	openReq := submitAndWait(t, e, wake, func(f ioengine.FinishFunc) *ioengine.Request {
		return e.Open(path, os.O_RDWR|os.O_CREATE, 0o644, 0, f, nil)
	})
	if openReq.Errno != 0 {
		t.Fatalf("open errno = %d", openReq.Errno)
	}
	fd := int(openReq.Result)

	payload := []byte("hello engine")
	writeReq := submitAndWait(t, e, wake, func(f ioengine.FinishFunc) *ioengine.Request {
		return e.Write(fd, payload, 0, 0, f, nil)
	})
	if writeReq.Errno != 0 || writeReq.Result != int64(len(payload)) {
		t.Fatalf("write: errno=%d result=%d", writeReq.Errno, writeReq.Result)
	}

	buf := make([]byte, len(payload))
	readReq := submitAndWait(t, e, wake, func(f ioengine.FinishFunc) *ioengine.Request {
		return e.Read(fd, buf, 0, 0, f, nil)
	})
	if readReq.Errno != 0 || string(buf[:readReq.Result]) != string(payload) {
		t.Fatalf("read back %q, want %q (errno=%d)", buf[:readReq.Result], payload, readReq.Errno)
	}

	closeReq := submitAndWait(t, e, wake, func(f ioengine.FinishFunc) *ioengine.Request {
		return e.Close(fd, 0, f, nil)
	})
	if closeReq.Errno != 0 {
		t.Fatalf("close errno = %d", closeReq.Errno)
	}
}

func TestStatReportsSize(t *testing.T) {
	e, wake := newTestEngine(t)
	path := filepath.Join(t.TempDir(), "stat.txt")
	if err := os.WriteFile(path, []byte("1234567"), 0o644); err != nil {
		t.Fatal(err)
	}

	req := submitAndWait(t, e, wake, func(f ioengine.FinishFunc) *ioengine.Request {
		return e.Stat(path, 0, f, nil)
	})
	if req.Errno != 0 {
		t.Fatalf("stat errno = %d", req.Errno)
	}
	st, ok := req.Ptr2.(*StatResult)
	if !ok {
		t.Fatalf("Ptr2 = %T, want *StatResult", req.Ptr2)
	}
	if st.Size != 7 {
		t.Fatalf("size = %d, want 7", st.Size)
	}
}

func TestStatNonexistentReturnsENOENT(t *testing.T) {
	e, wake := newTestEngine(t)
	req := submitAndWait(t, e, wake, func(f ioengine.FinishFunc) *ioengine.Request {
		return e.Stat(filepath.Join(t.TempDir(), "missing"), 0, f, nil)
	})
	if req.Errno != int32(unix.ENOENT) {
		t.Fatalf("errno = %d, want ENOENT", req.Errno)
	}
}

func TestMkdirRmdirUnlinkRename(t *testing.T) {
	e, wake := newTestEngine(t)
	dir := t.TempDir()
	sub := filepath.Join(dir, "child")

	mk := submitAndWait(t, e, wake, func(f ioengine.FinishFunc) *ioengine.Request {
		return e.Mkdir(sub, 0o755, 0, f, nil)
	})
	if mk.Errno != 0 {
		t.Fatalf("mkdir errno = %d", mk.Errno)
	}

	file := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	renamed := filepath.Join(dir, "b.txt")
	rn := submitAndWait(t, e, wake, func(f ioengine.FinishFunc) *ioengine.Request {
		return e.Rename(file, renamed, 0, f, nil)
	})
	if rn.Errno != 0 {
		t.Fatalf("rename errno = %d", rn.Errno)
	}

	ul := submitAndWait(t, e, wake, func(f ioengine.FinishFunc) *ioengine.Request {
		return e.Unlink(renamed, 0, f, nil)
	})
	if ul.Errno != 0 {
		t.Fatalf("unlink errno = %d", ul.Errno)
	}

	rm := submitAndWait(t, e, wake, func(f ioengine.FinishFunc) *ioengine.Request {
		return e.Rmdir(sub, 0, f, nil)
	})
	if rm.Errno != 0 {
		t.Fatalf("rmdir errno = %d", rm.Errno)
	}
}

func TestReadaheadUpdatesStats(t *testing.T) {
	d, err := New(nil)
	if err != nil {
		t.Fatalf("New dispatcher: %v", err)
	}
	t.Cleanup(func() { d.Close() })

	e := ioengine.New(ioengine.Config{MinParallel: 1, MaxParallel: 1, Execute: d.Execute})
	path := filepath.Join(t.TempDir(), "ra.txt")
	if err := os.WriteFile(path, make([]byte, 4096), 0o644); err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	e.Readahead(path, 0, 512, 0, func(r *ioengine.Request) int {
		close(done)
		return 0
	}, nil)
	for {
		n, _ := e.Poll()
		if n > 0 {
			break
		}
	}
	<-done

	stats := d.ReadAheadStats()
	if stats.HintedBytes == 0 {
		t.Fatal("ReadAheadStats reports zero hinted bytes after a readahead request")
	}
}

func TestReaddirListsEntriesOnConcurrentCalls(t *testing.T) {
	e, wake := newTestEngine(t)
	dir := t.TempDir()
	for _, name := range []string{"a", "b", "c"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := submitAndWait(t, e, wake, func(f ioengine.FinishFunc) *ioengine.Request {
				return e.Readdir(dir, 0, f, nil)
			})
			if req.Errno != 0 {
				t.Errorf("readdir errno = %d", req.Errno)
				return
			}
			names, _ := req.Ptr2.([]string)
			if len(names) != 3 {
				t.Errorf("got %d entries, want 3", len(names))
			}
		}()
	}
	wg.Wait()
}
