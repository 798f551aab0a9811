// Package pool is candela's thread pool (spec.md §4.6): a fixed-size
// worker set that runs future/send-off bodies and drains agent action
// queues one-at-a-time per agent. The teacher (go-dws) is a
// single-threaded scripting interpreter with no worker pool of its own;
// this subsystem is new, grounded on the teacher's sync.Pool/sync/atomic
// value-pooling discipline (internal/interp/runtime/pool.go) for the
// "don't fight the GC, just reduce churn" stance, and on
// kube-state-metrics' goroutine-per-worker + mutex-guarded-state shape
// (internal/discovery/discovery.go's SafeWrite pattern, pkg/app/server.go's
// run.Group actor wiring) for the worker loop and shutdown sequencing.
package pool

import (
	"runtime"
	"sync"
	"time"

	cdruntime "github.com/candela-lang/candela/internal/runtime"
	"github.com/prometheus/client_golang/prometheus"
)

type task struct {
	th  *cdruntime.Thread
	fn  func(*cdruntime.Thread) (cdruntime.Value, error)
	fut *FutureResult
}

// Pool owns a fixed worker-goroutine set draining two queues: plain
// future/pmap tasks, and per-agent drain requests (send/send-off). Each agent is
// drained by at most one worker at a time (spec.md §5's "serialized
// mutation" guarantee for agents), enforced by Agent.Enqueue/Dequeue's
// own processing flag rather than by the pool scheduling agents onto a
// dedicated goroutine each.
type Pool struct {
	tasks      chan task
	agentWork  chan *cdruntime.Agent
	wg         sync.WaitGroup
	closeOnce  sync.Once
	closed     chan struct{}
	numWorkers int
	metrics    *metrics

	// threads records, per worker index, the *cdruntime.Thread of the
	// future task that worker last picked up (nil while it drains an
	// agent). Nothing in this package reads it back; call sites receive
	// *cdruntime.Thread directly as a parameter.
	threads sync.Map // int -> *cdruntime.Thread
}

// New builds a pool with numWorkers goroutines (0 or negative means
// runtime.NumCPU(), spec.md §4.6's stated default) and registers its
// metrics on reg. reg may be nil to skip metrics registration entirely
// (e.g. in unit tests that construct many pools).
func New(numWorkers int, reg prometheus.Registerer) *Pool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	p := &Pool{
		tasks:      make(chan task, 256),
		agentWork:  make(chan *cdruntime.Agent, 256),
		closed:     make(chan struct{}),
		numWorkers: numWorkers,
	}
	if reg != nil {
		p.metrics = newMetrics(reg)
		p.metrics.workers.Set(float64(numWorkers))
	}
	for i := 0; i < numWorkers; i++ {
		p.wg.Add(1)
		go p.runWorker(i)
	}
	return p
}

func (p *Pool) runWorker(idx int) {
	defer p.wg.Done()
	for {
		select {
		case <-p.closed:
			return
		case t := <-p.tasks:
			p.threads.Store(idx, t.th)
			start := time.Now()
			v, err := t.fn(t.th)
			if p.metrics != nil {
				p.metrics.futureLatency.Observe(time.Since(start).Seconds())
				p.metrics.queueDepth.Set(float64(len(p.tasks)))
			}
			t.fut.complete(v, err)
		case agent := <-p.agentWork:
			p.threads.Store(idx, nil)
			p.drainAgent(agent)
		}
	}
}

// drainAgent runs queued actions until Agent.Dequeue reports the queue
// empty. A new drain is requested (via Enqueue's needsDrain return) only
// on the idle-to-busy transition, so at most one worker drains a given
// agent at any moment.
func (p *Pool) drainAgent(agent *cdruntime.Agent) {
	for {
		action, empty := agent.Dequeue()
		if empty {
			return
		}
		args := append([]cdruntime.Value{agent.Deref()}, action.Args...)
		th := cdruntime.NewThread(nil)
		if action.SendThread != nil {
			th = action.SendThread.Clone()
		}
		result, err := cdruntime.CallFnVal(th, action.Fn, args)
		if err != nil && agent.ErrorHandler() != nil {
			// A handler takes over entirely: the agent neither adopts the
			// failed result nor enters :fail mode, matching agent-error's
			// "invokes the handler if any" clause.
			cdruntime.CallFnVal(th, agent.ErrorHandler(), []cdruntime.Value{agent, cdruntime.ExceptionValue(err)})
			continue
		}
		agent.ApplyResult(result, err)
		if err != nil {
			if p.metrics != nil {
				p.metrics.agentErrors.Inc()
			}
			if agent.Failure() != nil {
				// :fail mode: stop draining until restart-agent clears it.
				agent.StopDraining()
				return
			}
		}
	}
}

// Submit runs fn on a worker, cloning th so the task sees the submitting
// thread's current bindings and namespace without sharing its ActiveVM/
// MacroEvalEnv hooks (spec.md §4.5's binding-conveyance rule for
// worker-thread entry).
func (p *Pool) Submit(th *cdruntime.Thread, fn func(*cdruntime.Thread) (cdruntime.Value, error)) *FutureResult {
	fut := newFutureResult()
	var workerThread *cdruntime.Thread
	if th != nil {
		workerThread = th.Clone()
	} else {
		workerThread = cdruntime.NewThread(nil)
	}
	select {
	case p.tasks <- task{th: workerThread, fn: fn, fut: fut}:
	case <-p.closed:
		fut.complete(nil, cdruntime.NewError(cdruntime.ErrInternal, cdruntime.PhaseRuntime, -1, "pool is shut down"))
	}
	if p.metrics != nil {
		p.metrics.queueDepth.Set(float64(len(p.tasks)))
	}
	return fut
}

// SubmitAgentAction enqueues action (stamped with th as its SendThread)
// on agent and, on the idle-to-busy transition, schedules a drain.
func (p *Pool) SubmitAgentAction(th *cdruntime.Thread, agent *cdruntime.Agent, action cdruntime.AgentAction) {
	action.SendThread = th
	if agent.Enqueue(action) {
		select {
		case p.agentWork <- agent:
		case <-p.closed:
		}
	}
}

// RestartAgent clears a :fail-mode agent's error state and, if actions
// were left queued from before the failure, schedules a drain for them.
func (p *Pool) RestartAgent(agent *cdruntime.Agent, newState cdruntime.Value, clearActions bool) {
	if agent.RestartAgent(newState, clearActions) {
		select {
		case p.agentWork <- agent:
		case <-p.closed:
		}
	}
}

// PMap applies fn to each element of coll concurrently, preserving
// result order, and returns the first error encountered (others are
// still awaited so every worker completes before PMap returns).
func (p *Pool) PMap(th *cdruntime.Thread, fn cdruntime.Value, coll []cdruntime.Value) ([]cdruntime.Value, error) {
	futs := make([]*FutureResult, len(coll))
	for i, v := range coll {
		elem := v
		futs[i] = p.Submit(th, func(wth *cdruntime.Thread) (cdruntime.Value, error) {
			return cdruntime.CallFnVal(wth, fn, []cdruntime.Value{elem})
		})
	}
	out := make([]cdruntime.Value, len(coll))
	var firstErr error
	for i, f := range futs {
		v, err := f.Get()
		if err != nil && firstErr == nil {
			firstErr = err
		}
		out[i] = v
	}
	return out, firstErr
}

// Shutdown stops accepting new work and waits for in-flight tasks to
// finish; it is idempotent.
func (p *Pool) Shutdown() {
	p.closeOnce.Do(func() { close(p.closed) })
	p.wg.Wait()
}

// NumWorkers reports the pool's fixed worker count.
func (p *Pool) NumWorkers() int { return p.numWorkers }
