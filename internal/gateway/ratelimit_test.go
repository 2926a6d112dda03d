package gateway

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeClock lets tests move the limiter's window boundary deterministically.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (f *fakeClock) now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeClock) advance(d time.Duration) {
	f.mu.Lock()
	f.t = f.t.Add(d)
	f.mu.Unlock()
}

func newTestLimiter(limit int, window time.Duration) (*FixedWindow, *fakeClock) {
	clk := &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 30, 0, time.UTC)}
	fw := NewFixedWindow(limit, window)
	fw.now = clk.now
	return fw, clk
}

func TestFixedWindow_CeilingWithinWindow(t *testing.T) {
	fw, _ := newTestLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		if ok, _ := fw.Allow("ip1"); !ok {
			t.Fatalf("request %d should be admitted", i)
		}
	}
	ok, retryAfter := fw.Allow("ip1")
	if ok {
		t.Fatalf("request beyond ceiling should be denied")
	}
	if retryAfter <= 0 || retryAfter > time.Minute {
		t.Fatalf("retryAfter = %v", retryAfter)
	}
}

func TestFixedWindow_ResetsAtBoundary(t *testing.T) {
	fw, clk := newTestLimiter(2, time.Minute)

	fw.Allow("ip1")
	fw.Allow("ip1")
	if ok, _ := fw.Allow("ip1"); ok {
		t.Fatalf("third request should be denied")
	}

	// The clock starts at :30 within the window; crossing the minute
	// boundary starts a fresh counter.
	clk.advance(31 * time.Second)
	if ok, _ := fw.Allow("ip1"); !ok {
		t.Fatalf("request in new window should be admitted")
	}
}

func TestFixedWindow_KeysAreIndependent(t *testing.T) {
	fw, _ := newTestLimiter(1, time.Minute)

	if ok, _ := fw.Allow("ip1"); !ok {
		t.Fatalf("ip1 first request denied")
	}
	if ok, _ := fw.Allow("ip1"); ok {
		t.Fatalf("ip1 second request admitted")
	}
	if ok, _ := fw.Allow("ip2"); !ok {
		t.Fatalf("ip2 must have its own budget")
	}
}

// Concurrent callers must never jointly exceed the ceiling: the increment is
// check-and-increment under one lock, not read-then-write.
func TestFixedWindow_ConcurrentAtomicity(t *testing.T) {
	const limit = 50
	fw, _ := newTestLimiter(limit, time.Minute)

	var admitted int64
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := fw.Allow("ip1"); ok {
				atomic.AddInt64(&admitted, 1)
			}
		}()
	}
	wg.Wait()

	if admitted != limit {
		t.Fatalf("admitted %d, want exactly %d", admitted, limit)
	}
}

func TestNewFixedWindow_CoercesInputs(t *testing.T) {
	fw := NewFixedWindow(0, 0)
	if fw.limit != 1 || fw.window != time.Minute {
		t.Fatalf("limit=%d window=%v", fw.limit, fw.window)
	}
}
