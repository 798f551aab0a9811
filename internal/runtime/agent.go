package runtime

import "sync"

// AgentErrorMode controls what happens to an action that returns an
// error: :continue processes subsequent actions and discards the error
// without recording it; :fail stops processing entirely until
// restart-agent clears the failure (spec.md §5).
type AgentErrorMode int

const (
	AgentErrorModeFail AgentErrorMode = iota
	AgentErrorModeContinue
)

// AgentAction is one queued (send) or (send-off) unit of work: fn is
// applied to the agent's current state plus args, and its result becomes
// the agent's new state. Processing itself lives in internal/pool, which
// owns the worker goroutines that drain an agent's queue in submission
// order.
type AgentAction struct {
	Fn   Value
	Args []Value
	// SendThread is the sender's Thread at submission time, conveyed so
	// the action runs with the sender's dynamic bindings in scope
	// (spec.md §4.5's binding-conveyance rule), not the draining worker's.
	SendThread *Thread
}

// Agent is the mutable-but-serialized reference type of spec.md §3.5: all
// mutation happens from at most one worker at a time, enforced by the
// pool via the processing flag below, never by a lock held across a call
// into CallFnVal (which may itself block on I/O).
type Agent struct {
	mu         sync.Mutex
	state      Value
	queue      []AgentAction
	processing bool
	errorMode  AgentErrorMode
	errorHandler Value // optional (fn [agent exception]); may be nil
	failure    error
	watches    map[string]func(key string, ref Value, old, new Value)
}

func NewAgent(initial Value) *Agent {
	return &Agent{state: initial, errorMode: AgentErrorModeFail}
}

func (a *Agent) Tag() ValueTag { return TagAgent }
func (a *Agent) rstr() string  { return "#<agent " + PrStr(a.Deref()) + ">" }

func (a *Agent) Deref() Value {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *Agent) SetErrorMode(mode AgentErrorMode, handler Value) {
	a.mu.Lock()
	a.errorMode = mode
	a.errorHandler = handler
	a.mu.Unlock()
}

// ErrorHandler returns the agent's (fn [agent exception]) error handler, or
// nil if none was set via SetErrorMode.
func (a *Agent) ErrorHandler() Value {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.errorHandler
}

// Failure reports the cached error from a failed action under :fail
// mode, or nil if the agent is not in a failed state.
func (a *Agent) Failure() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.failure
}

// RestartAgent clears a failed agent's error state and optionally
// replaces its state, per agent-error/restart-agent semantics. It
// reports whether a drain needs scheduling for actions left queued from
// before the failure.
func (a *Agent) RestartAgent(newState Value, clearActions bool) (needsDrain bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failure = nil
	if newState != nil {
		a.state = newState
	}
	if clearActions {
		a.queue = nil
	}
	if len(a.queue) > 0 && !a.processing {
		a.processing = true
		return true
	}
	return false
}

// Enqueue appends action to a's queue and reports whether a's worker
// needs to be (re)started: true only on the transition from idle to
// having work, so the pool schedules exactly one drain goroutine per
// agent at a time.
func (a *Agent) Enqueue(action AgentAction) (needsDrain bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.queue = append(a.queue, action)
	if a.processing || (a.failure != nil && a.errorMode == AgentErrorModeFail) {
		return false
	}
	a.processing = true
	return true
}

// StopDraining clears the processing flag without discarding queued
// actions, used when a worker stops draining early (e.g. on a :fail-mode
// error) so a later restart-agent's Enqueue can schedule a fresh drain.
func (a *Agent) StopDraining() {
	a.mu.Lock()
	a.processing = false
	a.mu.Unlock()
}

// Dequeue pops the next action, or reports empty=true and clears the
// processing flag if the queue has drained (the pool must then call
// Enqueue's return value again to know whether to restart draining).
func (a *Agent) Dequeue() (action AgentAction, empty bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.queue) == 0 {
		a.processing = false
		return AgentAction{}, true
	}
	action = a.queue[0]
	a.queue = a.queue[1:]
	return action, false
}

// ApplyResult installs the result of running one action as the agent's
// new state, or records a failure per the agent's error mode. Watches
// fire only on a successful state change. Callers with an error handler
// installed (see ErrorHandler) should invoke it instead of calling this
// on a failed action; ApplyResult itself only implements the no-handler
// fallback (record under :fail mode, otherwise drop).
func (a *Agent) ApplyResult(newState Value, err error) {
	a.mu.Lock()
	if err != nil {
		if a.errorMode == AgentErrorModeFail {
			a.failure = err
		}
		a.mu.Unlock()
		return
	}
	old := a.state
	a.state = newState
	watches := cloneWatches(a.watches)
	a.mu.Unlock()
	notifyWatches(watches, a, old, newState)
}

func (a *Agent) AddWatch(key string, fn func(key string, ref Value, old, new Value)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.watches == nil {
		a.watches = map[string]func(string, Value, Value, Value){}
	}
	a.watches[key] = fn
}

func (a *Agent) RemoveWatch(key string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.watches, key)
}
