package looper

import (
	"testing"
	"time"

	"github.com/mdzio/go-lib/conc"
)

func TestRunSyncExecutesOnLoopGoroutine(t *testing.T) {
	l := New(4)
	defer l.Stop()

	var value int
	l.RunSync(func(conc.Context) { value = 42 })
	if value != 42 {
		t.Fatalf("expected RunSync to have executed before returning, got %d", value)
	}
}

func TestRunAsyncEventuallyExecutes(t *testing.T) {
	l := New(4)
	defer l.Stop()

	done := make(chan struct{})
	l.RunAsync(func(conc.Context) { close(done) })
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for RunAsync closure to execute")
	}
}

func TestOffloadRunsOffTheLoopGoroutine(t *testing.T) {
	l := New(4)
	defer l.Stop()

	loopDone := make(chan struct{})
	offloadStarted := make(chan struct{})
	offloadRelease := make(chan struct{})

	l.Offload(func(conc.Context) {
		close(offloadStarted)
		<-offloadRelease
	})
	<-offloadStarted

	// the loop goroutine must remain responsive while the offloaded task
	// is still blocked
	l.RunAsync(func(conc.Context) { close(loopDone) })
	select {
	case <-loopDone:
	case <-time.After(time.Second):
		t.Fatal("loop goroutine was blocked by an in-flight Offload task")
	}

	close(offloadRelease)
	l.BlockTillDone()
}

func TestSequentialSubmissionsDoNotInterleave(t *testing.T) {
	l := New(8)
	defer l.Stop()

	var order []int
	var results []int
	for i := 0; i < 5; i++ {
		i := i
		order = append(order, i)
		l.RunSync(func(conc.Context) { results = append(results, i) })
	}
	if len(results) != len(order) {
		t.Fatalf("expected %d results, got %d", len(order), len(results))
	}
	for i := range order {
		if results[i] != order[i] {
			t.Fatalf("expected in-order execution, got %v", results)
		}
	}
}
