package runtime

import (
	"regexp"

	"github.com/candela-lang/candela/internal/ast"
)

// BuiltinFn wraps a Go function as a callable candela value. Fn receives
// the calling Thread (not just an Allocator) because several builtins
// (reduce/map/filter, future/pmap/agent/send) must themselves dispatch
// through CallFnVal or submit work to the pool, both of which need a
// Thread handle; DefaultAllocator is always reachable for the builtins
// that only need heap-construction, so no separate Allocator parameter
// is threaded through.
type BuiltinFn struct {
	Name string
	Fn   func(th *Thread, args []Value) (Value, error)
}

func (b *BuiltinFn) Tag() ValueTag { return TagBuiltinFn }
func (b *BuiltinFn) rstr() string  { return "#<builtin " + b.Name + ">" }

// Fn is an interpreted closure shared by both evaluator back-ends: Clauses
// carries the arity table, Env is the captured lexical Frame. Compiled
// caches a back-end-opaque handle (set by the bytecode compiler on first
// call) so repeat calls skip recompilation; it is declared as `any` to
// avoid runtime importing the compiler/vm packages — the core must not
// depend upward on its back-ends (spec.md §4.4/§9).
type Fn struct {
	Name     string
	Clauses  []ast.FnClause
	Env      *Frame
	Compiled any
}

func NewFn(name string, clauses []ast.FnClause, env *Frame) *Fn {
	return &Fn{Name: name, Clauses: clauses, Env: env}
}

func (f *Fn) Tag() ValueTag { return TagFn }
func (f *Fn) rstr() string {
	if f.Name == "" {
		return "#<fn anonymous>"
	}
	return "#<fn " + f.Name + ">"
}

// ClauseFor selects the matching arity clause for argc args, honoring a
// variadic clause as a fallback for argc at or beyond its fixed params.
func (f *Fn) ClauseFor(argc int) (ast.FnClause, bool) {
	var variadic *ast.FnClause
	for i := range f.Clauses {
		c := &f.Clauses[i]
		if c.Variadic {
			variadic = c
			continue
		}
		if len(c.Params) == argc {
			return *c, true
		}
	}
	if variadic != nil && argc >= len(variadic.Params)-1 {
		return *variadic, true
	}
	return ast.FnClause{}, false
}

// ProtocolMethod dispatches on the type key of its first argument.
type ProtocolMethod struct {
	Name  string
	Impls map[string]Value // type key -> implementation callable
}

func NewProtocolMethod(name string) *ProtocolMethod {
	return &ProtocolMethod{Name: name, Impls: map[string]Value{}}
}

func (p *ProtocolMethod) Tag() ValueTag { return TagProtocolMethod }
func (p *ProtocolMethod) rstr() string  { return "#<protocol-method " + p.Name + ">" }

func (p *ProtocolMethod) Extend(typeKey string, impl Value) {
	p.Impls[typeKey] = impl
}

// Multimethod dispatches on the result of Dispatcher applied to call args.
type Multimethod struct {
	Name       string
	Dispatcher Value
	Methods    map[string]Value
	Default    Value // method registered under :default, may be nil
}

func NewMultimethod(name string, dispatcher Value) *Multimethod {
	return &Multimethod{Name: name, Dispatcher: dispatcher, Methods: map[string]Value{}}
}

func (m *Multimethod) Tag() ValueTag { return TagMultimethod }
func (m *Multimethod) rstr() string  { return "#<multimethod " + m.Name + ">" }

func (m *Multimethod) MethodFor(dispatchVal string) (Value, bool) {
	if impl, ok := m.Methods[dispatchVal]; ok {
		return impl, true
	}
	if m.Default != nil {
		return m.Default, true
	}
	return nil, false
}

// ForeignModule is an opaque handle to a host module exposing named
// callables, looked up by name through Resolve. CallFnVal has no case for
// it: neither calling the module with a keyword/string nor calling a
// keyword on the module resolves an export.
type ForeignModule struct {
	Name    string
	Exports map[string]Value
}

func (f *ForeignModule) Tag() ValueTag { return TagForeignModule }
func (f *ForeignModule) rstr() string  { return "#<module " + f.Name + ">" }

func (f *ForeignModule) Resolve(name string) (Value, bool) {
	v, ok := f.Exports[name]
	return v, ok
}

// ForeignFn is a directly-invocable host function handle.
type ForeignFn struct {
	Name string
	Fn   func(th *Thread, args []Value) (Value, error)
}

func (f *ForeignFn) Tag() ValueTag { return TagForeignFn }
func (f *ForeignFn) rstr() string  { return "#<foreign-fn " + f.Name + ">" }

// ForeignFuture is the candela-side handle for an async computation owned
// by an external scheduler (internal/pool's worker pool). runtime cannot
// import pool — concurrency infra sits above the core, per spec.md
// §4.4/§9's "no upward dependency" rule — so pool builds one of these by
// closing over its own concrete future type rather than handing that type
// to runtime directly; deref/await only ever see this wrapper.
type ForeignFuture struct {
	GetFn    func() (Value, error)
	IsDoneFn func() bool
}

func NewForeignFuture(get func() (Value, error), isDone func() bool) *ForeignFuture {
	return &ForeignFuture{GetFn: get, IsDoneFn: isDone}
}

func (f *ForeignFuture) Tag() ValueTag { return TagFuture }
func (f *ForeignFuture) rstr() string {
	if f.IsDoneFn() {
		return "#<future (done)>"
	}
	return "#<future (pending)>"
}

// Get blocks until the future completes, returning its terminal value.
func (f *ForeignFuture) Get() (Value, error) { return f.GetFn() }

// IsDone reports completion without blocking.
func (f *ForeignFuture) IsDone() bool { return f.IsDoneFn() }

// Regex wraps a compiled host regular expression.
type Regex struct {
	Source string
	Re     *regexp.Regexp
}

func NewRegex(source string) (*Regex, error) {
	re, err := regexp.Compile(source)
	if err != nil {
		return nil, err
	}
	return &Regex{Source: source, Re: re}, nil
}

func (r *Regex) Tag() ValueTag { return TagRegex }
func (r *Regex) rstr() string  { return "#\"" + r.Source + "\"" }

// Matcher is mutable iteration state over successive matches of a Regex
// within one string. No builtin creates one: re-find matches directly on
// the Regex.
type Matcher struct {
	Re    *Regex
	Input string
	Pos   int
}

func NewMatcher(re *Regex, input string) *Matcher {
	return &Matcher{Re: re, Input: input}
}

func (m *Matcher) Tag() ValueTag { return TagMatcher }
func (m *Matcher) rstr() string  { return "#<matcher>" }

// RawArray is an opaque typed-array foreign handle (e.g. for FFI byte
// buffers); candela's core does not interpret its contents.
type RawArray struct {
	ElemType string
	Data     any
}

func (r *RawArray) Tag() ValueTag { return TagRawArray }
func (r *RawArray) rstr() string  { return "#<raw-array " + r.ElemType + ">" }
