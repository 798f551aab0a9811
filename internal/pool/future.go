package pool

import (
	"sync"
	"time"

	"github.com/candela-lang/candela/internal/runtime"
)

// FutureResult is the handle returned by Submit (future and pmap tasks).
// Any number of callers may call Get or GetWithTimeout: every Get caller
// blocks until the worker that ran the task calls complete and then sees
// the same terminal value; GetWithTimeout gives up at its deadline.
type FutureResult struct {
	mu   sync.Mutex
	cond *sync.Cond
	done bool
	val  runtime.Value
	err  error
}

func newFutureResult() *FutureResult {
	f := &FutureResult{}
	f.cond = sync.NewCond(&f.mu)
	return f
}

// AsValue wraps f as a runtime.Value. FutureResult itself cannot satisfy
// runtime.Value directly — Value's rstr method is unexported and thus
// only satisfiable by types declared in package runtime — so pool hands
// back a runtime.ForeignFuture closing over f instead, the same inversion
// Backend uses to keep runtime free of an upward dependency on pool.
func (f *FutureResult) AsValue() runtime.Value {
	return runtime.NewForeignFuture(f.Get, f.IsDone)
}

func (f *FutureResult) complete(val runtime.Value, err error) {
	f.mu.Lock()
	f.val, f.err, f.done = val, err, true
	f.mu.Unlock()
	f.cond.Broadcast()
}

// IsDone reports completion without blocking.
func (f *FutureResult) IsDone() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.done
}

// Get blocks until the future completes.
func (f *FutureResult) Get() (runtime.Value, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for !f.done {
		f.cond.Wait()
	}
	return f.val, f.err
}

// GetWithTimeout blocks until completion or the deadline, whichever is
// first; ok is false on timeout. The deadline timer only broadcasts on
// f's condvar to wake a waiter for re-evaluation — it never touches
// f.val/f.err, which stay the exclusive province of complete().
func (f *FutureResult) GetWithTimeout(d time.Duration) (val runtime.Value, err error, ok bool) {
	deadline := time.Now().Add(d)
	timer := time.AfterFunc(d, f.cond.Broadcast)
	defer timer.Stop()

	f.mu.Lock()
	defer f.mu.Unlock()
	for !f.done {
		if !time.Now().Before(deadline) {
			return nil, nil, false
		}
		f.cond.Wait()
	}
	return f.val, f.err, true
}
