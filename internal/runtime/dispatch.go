package runtime

// Backend is the seam the tree-walk and bytecode-VM evaluators each
// install themselves behind, so runtime (which every other package
// imports) never imports either of them back — the vtable-based
// inversion of control spec.md §4.4/§9 calls for. Exactly one Backend
// must be installed (by Pipeline bootstrap) before any Fn is called.
type Backend interface {
	// CallClosure invokes fn's matching clause with the given args on th,
	// in fn's captured lexical Env extended with the clause's params.
	CallClosure(th *Thread, fn *Fn, args []Value) (Value, error)
}

var installedBackend Backend

// InstallBackend registers the evaluator back-end reached for interpreted
// Fn calls. Called once during bootstrap by the pipeline that wires a
// tree-walk or bytecode-VM evaluator into the runtime core.
func InstallBackend(b Backend) { installedBackend = b }

// CallFnVal is the single dispatch point every call site in every
// evaluator back-end funnels through (spec.md §4.4's call-site table):
// it accepts every callable tag plus the handful of non-fn values Clojure
// treats as callable (keywords and maps look themselves up, sets test
// membership) and returns a RuntimeError of kind ErrType for anything
// else.
func CallFnVal(th *Thread, callee Value, args []Value) (Value, error) {
	switch c := callee.(type) {
	case *BuiltinFn:
		return c.Fn(th, args)

	case *Fn:
		// spec.md §4.4's active-VM bridge: a VM already executing on this
		// thread is preferred over the globally installed backend, so a
		// nested bytecode call re-enters the same VM instance instead of
		// falling through to whatever backend CallFnVal would pick by
		// default (only relevant if more than one Backend is ever
		// installed across the process's lifetime; today there is one).
		if bridge, ok := th.ActiveVM.(Backend); ok {
			return bridge.CallClosure(th, c, args)
		}
		if installedBackend == nil {
			return nil, NewError(ErrInternal, PhaseRuntime, -1, ErrMsgBootstrapIncomplete, "no evaluator backend installed")
		}
		return installedBackend.CallClosure(th, c, args)

	case *ForeignFn:
		return c.Fn(th, args)

	case *ProtocolMethod:
		if len(args) == 0 {
			return nil, NewError(ErrArity, PhaseRuntime, -1, ErrMsgWrongArity, 0, c.Name)
		}
		impl, ok := c.Impls[typeKey(args[0])]
		if !ok {
			return nil, NewError(ErrType, PhaseRuntime, 0, "no implementation of %s for %s", c.Name, args[0].Tag())
		}
		return CallFnVal(th, impl, args)

	case *Multimethod:
		dv, err := CallFnVal(th, c.Dispatcher, args)
		if err != nil {
			return nil, err
		}
		impl, ok := c.MethodFor(PrStr(dv))
		if !ok {
			return nil, NewError(ErrType, PhaseRuntime, -1, "no method in multimethod %s for dispatch value %s", c.Name, PrStr(dv))
		}
		return CallFnVal(th, impl, args)

	case *Var:
		return CallFnVal(th, c.Deref(th), args)

	case *Keyword:
		// (:k m) and (:k m default) look k up in m.
		if len(args) == 0 || len(args) > 2 {
			return nil, NewError(ErrArity, PhaseRuntime, -1, ErrMsgWrongArity, len(args), "keyword")
		}
		v, ok := lookupIn(args[0], c)
		if !ok {
			if len(args) == 2 {
				return args[1], nil
			}
			return Nil, nil
		}
		return v, nil

	case *ArrayMap, *HashMap:
		if len(args) == 0 || len(args) > 2 {
			return nil, NewError(ErrArity, PhaseRuntime, -1, ErrMsgWrongArity, len(args), "map")
		}
		v, ok := lookupIn(c, args[0])
		if !ok {
			if len(args) == 2 {
				return args[1], nil
			}
			return Nil, nil
		}
		return v, nil

	case *HashSet:
		if len(args) != 1 {
			return nil, NewError(ErrArity, PhaseRuntime, -1, ErrMsgWrongArity, len(args), "set")
		}
		if c.Has(args[0]) {
			return args[0], nil
		}
		return Nil, nil
	}

	return nil, NewError(ErrType, PhaseRuntime, 0, ErrMsgNotCallable, PrStr(callee))
}

// lookupIn resolves key in coll, where coll is a map (keyword-as-callable
// path) or, with arguments flipped, a keyword keying into a map (map-as-
// callable path).
func lookupIn(coll, key Value) (Value, bool) {
	switch m := coll.(type) {
	case *ArrayMap:
		return m.Get(key)
	case *HashMap:
		return m.Get(key)
	}
	return nil, false
}

// typeKey names the dispatch key a ProtocolMethod implementation table is
// keyed by: the tag name, unless v is a *Keyword carrying a :type entry
// convention is out of scope for the core — tag-based dispatch is the
// baseline every protocol implementation can rely on.
func typeKey(v Value) string {
	if IsNil(v) {
		return "nil"
	}
	return v.Tag().String()
}
