package runtime

import "sync"

// Namespace is a mutable, mutex-guarded symbol table mapping names to
// *Var, generalizing the teacher's case-insensitive identifier table
// (internal/interp/runtime/environment.go) to candela's case-sensitive,
// two-level (lexical + namespace) name resolution.
type Namespace struct {
	mu      sync.RWMutex
	Name    string
	vars    map[string]*Var
	aliases map[string]*Namespace // require/refer aliases
	imports map[string]*Namespace
}

func NewNamespace(name string) *Namespace {
	return &Namespace{
		Name:    name,
		vars:    map[string]*Var{},
		aliases: map[string]*Namespace{},
		imports: map[string]*Namespace{},
	}
}

// Intern returns the *Var named name in ns, creating an unbound one if
// absent.
func (ns *Namespace) Intern(name string) *Var {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	if v, ok := ns.vars[name]; ok {
		return v
	}
	v := NewVar(ns.Name, name, nil)
	ns.vars[name] = v
	return v
}

// Define interns name with an already-known root value and returns the
// *Var, overwriting any previous root.
func (ns *Namespace) Define(name string, root Value) *Var {
	v := ns.Intern(name)
	v.SetRoot(root)
	return v
}

// Lookup resolves name within ns only (no alias/import fallthrough).
func (ns *Namespace) Lookup(name string) (*Var, bool) {
	ns.mu.RLock()
	defer ns.mu.RUnlock()
	v, ok := ns.vars[name]
	return v, ok
}

func (ns *Namespace) AddAlias(alias string, target *Namespace) {
	ns.mu.Lock()
	ns.aliases[alias] = target
	ns.mu.Unlock()
}

func (ns *Namespace) AddImport(alias string, target *Namespace) {
	ns.mu.Lock()
	ns.imports[alias] = target
	ns.mu.Unlock()
}

// ResolveAlias looks up a namespace reachable from ns by alias or import
// name, for qualified symbol resolution (alias/name).
func (ns *Namespace) ResolveAlias(alias string) (*Namespace, bool) {
	ns.mu.RLock()
	defer ns.mu.RUnlock()
	if t, ok := ns.aliases[alias]; ok {
		return t, true
	}
	if t, ok := ns.imports[alias]; ok {
		return t, true
	}
	return nil, false
}

func (ns *Namespace) Names() []string {
	ns.mu.RLock()
	defer ns.mu.RUnlock()
	out := make([]string, 0, len(ns.vars))
	for n := range ns.vars {
		out = append(out, n)
	}
	return out
}

// Env owns the process-wide namespace registry and the currently-active
// namespace pointer used when a VarRef omits its namespace. One Env is
// shared by every Thread; per-thread "current namespace" is tracked on
// the Thread itself (see vars.go) so `(in-ns ...)` on one thread never
// races with another.
type Env struct {
	mu         sync.RWMutex
	namespaces map[string]*Namespace
	defaultNS  string
	coreNS     string // auto-referred into every bare lookup, Clojure's clojure.core style
}

func NewEnv(defaultNS string) *Env {
	e := &Env{namespaces: map[string]*Namespace{}, defaultNS: defaultNS}
	e.FindOrCreate(defaultNS)
	return e
}

// SetCoreNamespace names the namespace every other namespace implicitly
// refers for bare (unqualified) symbol resolution, the way every
// Clojure namespace sees clojure.core without an explicit :refer. Called
// once at boot after the core library is installed (internal/stdlib).
func (e *Env) SetCoreNamespace(name string) {
	e.mu.Lock()
	e.coreNS = name
	e.mu.Unlock()
}

func (e *Env) FindOrCreate(name string) *Namespace {
	e.mu.Lock()
	defer e.mu.Unlock()
	if ns, ok := e.namespaces[name]; ok {
		return ns
	}
	ns := NewNamespace(name)
	e.namespaces[name] = ns
	return ns
}

func (e *Env) Find(name string) (*Namespace, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ns, ok := e.namespaces[name]
	return ns, ok
}

func (e *Env) DefaultNamespace() *Namespace {
	return e.FindOrCreate(e.defaultNS)
}

// NewThread allocates a fresh Thread positioned in this Env's default
// namespace.
func (e *Env) NewThread() *Thread {
	return NewThread(e.DefaultNamespace())
}

// Resolve looks up a possibly-qualified symbol (ns/name or bare name)
// against th's current namespace, generalizing spec.md's VarRef
// resolution rule: qualified symbols resolve via alias-or-full-name,
// bare symbols resolve in the current namespace.
func (e *Env) Resolve(th *Thread, namespace, name string) (*Var, bool) {
	cur := th.CurrentNS
	if cur == nil {
		cur = e.DefaultNamespace()
	}
	if namespace == "" {
		if v, ok := cur.Lookup(name); ok {
			return v, true
		}
		e.mu.RLock()
		coreNS := e.coreNS
		e.mu.RUnlock()
		if coreNS != "" && cur.Name != coreNS {
			if core, ok := e.Find(coreNS); ok {
				return core.Lookup(name)
			}
		}
		return nil, false
	}
	if target, ok := cur.ResolveAlias(namespace); ok {
		return target.Lookup(name)
	}
	if ns, ok := e.Find(namespace); ok {
		return ns.Lookup(name)
	}
	return nil, false
}

// Frame is a lexical scope: a flat slice of (name -> Value) slots plus a
// parent link, generalizing the teacher's case-insensitive Environment
// (internal/interp/runtime/environment.go) to case-sensitive candela
// locals. One Frame is created per let/loop/fn-call; Fn.Env (see
// callables.go) is the Frame captured at closure-creation time.
type Frame struct {
	names  []string
	values []Value
	parent *Frame
}

// NewFrame creates a child frame of parent pre-sized for n locals.
func NewFrame(parent *Frame, n int) *Frame {
	return &Frame{names: make([]string, 0, n), values: make([]Value, 0, n), parent: parent}
}

// Bind appends a new local binding to f (shadowing same-named outer
// bindings, never mutating them — let/loop bodies always extend, never
// overwrite, a frame).
func (f *Frame) Bind(name string, val Value) {
	f.names = append(f.names, name)
	f.values = append(f.values, val)
}

// Set mutates an existing binding reachable from f (used by loop/recur
// to rebind loop variables in place without growing the chain).
func (f *Frame) Set(name string, val Value) bool {
	for cur := f; cur != nil; cur = cur.parent {
		for i := len(cur.names) - 1; i >= 0; i-- {
			if cur.names[i] == name {
				cur.values[i] = val
				return true
			}
		}
	}
	return false
}

// Lookup walks f and its ancestors for the nearest binding of name.
func (f *Frame) Lookup(name string) (Value, bool) {
	for cur := f; cur != nil; cur = cur.parent {
		for i := len(cur.names) - 1; i >= 0; i-- {
			if cur.names[i] == name {
				return cur.values[i], true
			}
		}
	}
	return nil, false
}

// Depth reports how many frames must be walked, from f, to find name;
// used by the analyzer to resolve ast.LocalRef.Depth ahead of time. -1
// if not found.
func (f *Frame) Depth(name string) int {
	d := 0
	for cur := f; cur != nil; cur = cur.parent {
		for i := len(cur.names) - 1; i >= 0; i-- {
			if cur.names[i] == name {
				return d
			}
		}
		d++
	}
	return -1
}
