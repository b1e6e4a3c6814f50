// Package looper runs submitted closures one at a time on a single loop
// goroutine, for state that only that goroutine may mutate, and offers a
// bounded pool for work that must not block it. Central creates a Looper
// and stops it on shutdown; Central's own device, entity and event maps are
// guarded by its mutex, not by the loop. It generalizes the teacher's
// conc.DaemonFunc/conc.DaemonPool usage in itf/vdevices/servant.go and
// itf/vdevices/handler.go from "one daemon per servant" to "one loop
// goroutine plus a bounded pool for work that must not block it".
package looper

import (
	"github.com/mdzio/go-lib/conc"
)

// job is a closure submitted to the loop goroutine, together with the
// channel its submitter blocks on for a synchronous reply.
type job struct {
	fn   func(conc.Context)
	done chan struct{}
}

// Looper runs submitted closures one at a time on a single goroutine,
// exactly as the teacher's servant.run does for its command channel, but
// generalized into a reusable, typed submission API instead of a
// hand-rolled switch over command structs.
type Looper struct {
	queue  chan job
	cancel func()
	pool   conc.DaemonPool
}

// New creates a Looper with the given submission queue depth and starts its
// loop goroutine.
func New(queueSize int) *Looper {
	l := &Looper{queue: make(chan job, queueSize)}
	l.cancel = conc.DaemonFunc(l.run)
	return l
}

func (l *Looper) run(ctx conc.Context) {
	for {
		select {
		case j := <-l.queue:
			j.fn(ctx)
			if j.done != nil {
				close(j.done)
			}
		case <-ctx.Done():
			return
		}
	}
}

// RunSync submits fn to the loop goroutine and blocks until it has run.
// Callers outside the loop goroutine use this for anything that touches
// state the loop owns.
func (l *Looper) RunSync(fn func(conc.Context)) {
	done := make(chan struct{})
	l.queue <- job{fn: fn, done: done}
	<-done
}

// RunAsync submits fn to the loop goroutine without waiting for it to run,
// for fire-and-forget notifications (e.g. forwarding a backend event to
// subscribers).
func (l *Looper) RunAsync(fn func(conc.Context)) {
	l.queue <- job{fn: fn}
}

// Offload runs fn on a pooled background goroutine instead of the loop
// goroutine, for work that must not block the loop (a blocking XML-RPC
// call, a cache file write). The loop goroutine stays responsive to new
// submissions while fn runs.
func (l *Looper) Offload(fn func(conc.Context)) {
	l.pool.Run(fn)
}

// BlockTillDone waits for every Offload'd task to finish. Used during
// Central shutdown, after the loop itself has been stopped, to ensure no
// background task is still touching state that is about to be torn down.
func (l *Looper) BlockTillDone() {
	l.pool.Close()
}

// Stop cancels the loop goroutine. It does not wait for in-flight Offload
// tasks; call BlockTillDone for that.
func (l *Looper) Stop() {
	l.cancel()
}
