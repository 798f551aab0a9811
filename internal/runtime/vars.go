package runtime

import (
	"sync"
	"sync/atomic"
)

// Var is a namespace-qualified cell (spec.md §3.2).
type Var struct {
	mu          sync.RWMutex
	Namespace   string
	Name        string
	root        Value
	Dynamic     bool
	Macro       bool
	Private     bool
	Const       bool
	Doc         string
	ArgListsStr string
	Pos         Position
	Meta        *HashMap
}

func NewVar(namespace, name string, root Value) *Var {
	return &Var{Namespace: namespace, Name: name, root: root}
}

func (v *Var) Tag() ValueTag { return TagVar }
func (v *Var) rstr() string  { return "#'" + v.Namespace + "/" + v.Name }

func (v *Var) Root() Value {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.root
}

func (v *Var) SetRoot(val Value) {
	v.mu.Lock()
	v.root = val
	v.mu.Unlock()
}

// BindingFrame is a linked-list node of (Var -> Value) entries (spec.md
// §3.4). Frames are pushed/popped in nested scopes via PushBindings /
// the restore token it returns.
type BindingFrame struct {
	v    *Var
	val  Value
	prev *BindingFrame
}

// Thread is the Go-idiomatic stand-in for spec.md's "per-thread state":
// Go exposes no goroutine-local storage, so rather than reach for an
// unsafe goroutine-id hack, each logical "thread" (the pipeline's caller,
// or a pool worker) owns an explicit *Thread handle that is threaded
// through the small set of core entry points named in spec.md §9
// (Dispatch.CallFnVal, Pipeline evaluation, future/agent submission) —
// not through every helper call. This keeps the "small set of per-thread
// mutable slots, saved-and-restored around their scope" contract spec.md
// asks for, expressed as an explicit parameter instead of implicit TLS.
type Thread struct {
	ID int64

	// ActiveVM is the active-VM bridge hook: when a VM is executing on
	// this Thread, it holds a back-end-opaque "invoke on the live stack"
	// handle so nested bytecode calls skip allocating a fresh VM frame.
	ActiveVM any

	// MacroEvalEnv is installed by Pipeline.EvalString for the duration
	// of one form so macro expansion can call back into the evaluator.
	MacroEvalEnv any

	LastException Value

	Frame *BindingFrame

	ApplyRestIsSeq bool

	PrintReadable  bool
	PrintLength    int // *print-length*; <0 means unbounded
	PrintLevel     int // *print-level*; <0 means unbounded
	PrintAllocator Allocator

	CurrentNS *Namespace
}

var threadCounter int64

// NewThread allocates a fresh Thread handle with a unique ID.
func NewThread(ns *Namespace) *Thread {
	return &Thread{ID: atomic.AddInt64(&threadCounter, 1), CurrentNS: ns, PrintLength: -1, PrintLevel: -1}
}

// Clone produces a thread handle that inherits the calling thread's
// binding-frame chain and current namespace (spec.md §4.5's "on
// worker-thread entry, the spawning thread's frame pointer is conveyed").
// It does not share the ActiveVM/MacroEvalEnv hooks, which are specific to
// one evaluator invocation.
func (t *Thread) Clone() *Thread {
	return &Thread{
		ID:          atomic.AddInt64(&threadCounter, 1),
		Frame:       t.Frame,
		CurrentNS:   t.CurrentNS,
		PrintLength: t.PrintLength,
		PrintLevel:  t.PrintLevel,
	}
}

// Deref resolves v on thread th: dynamic vars walk the binding-frame
// chain for the first matching entry, falling back to the root; non-
// dynamic vars always return the root (spec.md §4.5).
func (v *Var) Deref(th *Thread) Value {
	if v.Dynamic && th != nil {
		for f := th.Frame; f != nil; f = f.prev {
			if f.v == v {
				return f.val
			}
		}
	}
	return v.Root()
}

// SetThreadBinding mutates the nearest matching frame entry for v on th,
// failing if no frame binds v on this thread (spec.md §4.5).
func SetThreadBinding(th *Thread, v *Var, val Value) error {
	for f := th.Frame; f != nil; f = f.prev {
		if f.v == v {
			f.val = val
			return nil
		}
	}
	return NewError(ErrValue, PhaseRuntime, -1, ErrMsgNoRootBinding, v.Namespace+"/"+v.Name)
}

// PushBindings prepends one frame per pair onto th.Frame and returns the
// prior frame pointer; callers restore it with PopBindings (or a defer).
func PushBindings(th *Thread, pairs []struct {
	Var *Var
	Val Value
}) *BindingFrame {
	saved := th.Frame
	for _, p := range pairs {
		th.Frame = &BindingFrame{v: p.Var, val: p.Val, prev: th.Frame}
	}
	return saved
}

// PopBindings restores th.Frame to a value previously returned by
// PushBindings.
func PopBindings(th *Thread, saved *BindingFrame) {
	th.Frame = saved
}
