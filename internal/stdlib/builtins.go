// Package stdlib installs the small builtin-function surface candela's
// core needs to drive its scenarios: arithmetic, sequence operations,
// reference types, and the thread-pool-backed concurrency primitives
// (future/pmap/agent/send/send-off/await). Builtins are registered as
// ordinary Vars in a candela.core namespace, generalizing the teacher's
// approach of exposing its runtime helpers as plain named entries in its
// interpreter's global environment rather than as compiler intrinsics.
package stdlib

import (
	"github.com/candela-lang/candela/internal/pool"
	"github.com/candela-lang/candela/internal/runtime"
)

// CoreNamespace names the namespace Install populates; every other
// namespace sees it unqualified the way clojure.core is implicitly
// referred into every Clojure namespace (see runtime.Env.SetCoreNamespace).
const CoreNamespace = "candela.core"

const coreNS = CoreNamespace

// Install registers every candela.core builtin into env, wiring the
// concurrency builtins (future/pmap/agent/send/send-off/await) to p, and
// arranges for every other namespace to see these names unqualified.
func Install(env *runtime.Env, p *pool.Pool) {
	env.SetCoreNamespace(CoreNamespace)
	ns := env.FindOrCreate(coreNS)
	reg := func(name string, fn func(th *runtime.Thread, args []runtime.Value) (runtime.Value, error)) {
		ns.Define(name, &runtime.BuiltinFn{Name: name, Fn: fn})
	}

	reg("+", arith(runtime.Add))
	reg("-", func(th *runtime.Thread, args []runtime.Value) (runtime.Value, error) {
		if len(args) == 0 {
			return nil, arityErr(0, "-")
		}
		// Clojure's unary (- x) negates, unlike (+ x)/(* x)'s identity.
		if len(args) == 1 {
			return runtime.Sub(runtime.NewInt(0), args[0], true)
		}
		acc := args[0]
		for _, v := range args[1:] {
			next, err := runtime.Sub(acc, v, true)
			if err != nil {
				return nil, err
			}
			acc = next
		}
		return acc, nil
	})
	reg("*", arith(runtime.Mul))
	reg("/", func(th *runtime.Thread, args []runtime.Value) (runtime.Value, error) {
		if len(args) == 0 {
			return nil, arityErr(0, "/")
		}
		// Clojure's unary (/ x) is (/ 1 x); variadic left-folds pairwise.
		if len(args) == 1 {
			return runtime.Div(runtime.NewInt(1), args[0])
		}
		acc := args[0]
		for _, v := range args[1:] {
			next, err := runtime.Div(acc, v)
			if err != nil {
				return nil, err
			}
			acc = next
		}
		return acc, nil
	})
	reg("mod", func(th *runtime.Thread, args []runtime.Value) (runtime.Value, error) {
		if len(args) != 2 {
			return nil, arityErr(len(args), "mod")
		}
		return runtime.Mod(args[0], args[1])
	})
	reg("rem", func(th *runtime.Thread, args []runtime.Value) (runtime.Value, error) {
		if len(args) != 2 {
			return nil, arityErr(len(args), "rem")
		}
		return runtime.Rem(args[0], args[1])
	})
	reg("<", cmp(func(c int) bool { return c < 0 }))
	reg("<=", cmp(func(c int) bool { return c <= 0 }))
	reg(">", cmp(func(c int) bool { return c > 0 }))
	reg(">=", cmp(func(c int) bool { return c >= 0 }))
	reg("=", func(th *runtime.Thread, args []runtime.Value) (runtime.Value, error) {
		if len(args) < 2 {
			return nil, arityErr(len(args), "=")
		}
		for i := 1; i < len(args); i++ {
			if !runtime.Eql(runtime.DefaultAllocator, args[i-1], args[i]) {
				return runtime.False, nil
			}
		}
		return runtime.True, nil
	})

	reg("cons", func(th *runtime.Thread, args []runtime.Value) (runtime.Value, error) {
		if len(args) != 2 {
			return nil, arityErr(len(args), "cons")
		}
		return runtime.NewCons(args[0], args[1]), nil
	})
	reg("first", func(th *runtime.Thread, args []runtime.Value) (runtime.Value, error) {
		if len(args) != 1 {
			return nil, arityErr(len(args), "first")
		}
		s, ok := args[0].(runtime.Sequential)
		if !ok {
			if runtime.IsNil(args[0]) {
				return runtime.Nil, nil
			}
			return nil, typeErr(args[0])
		}
		return s.First(runtime.DefaultAllocator), nil
	})
	reg("rest", func(th *runtime.Thread, args []runtime.Value) (runtime.Value, error) {
		if len(args) != 1 {
			return nil, arityErr(len(args), "rest")
		}
		s, ok := args[0].(runtime.Sequential)
		if !ok {
			if runtime.IsNil(args[0]) {
				return runtime.EmptyList, nil
			}
			return nil, typeErr(args[0])
		}
		rest := s.Next(runtime.DefaultAllocator)
		if runtime.IsNil(rest) {
			return runtime.EmptyList, nil
		}
		return rest, nil
	})
	reg("seq", func(th *runtime.Thread, args []runtime.Value) (runtime.Value, error) {
		if len(args) != 1 {
			return nil, arityErr(len(args), "seq")
		}
		if runtime.IsNil(args[0]) {
			return runtime.Nil, nil
		}
		s, ok := args[0].(runtime.Sequential)
		if !ok {
			return nil, typeErr(args[0])
		}
		if s.SeqEmpty() {
			return runtime.Nil, nil
		}
		return s, nil
	})
	reg("vector", func(th *runtime.Thread, args []runtime.Value) (runtime.Value, error) {
		return runtime.NewVector(args...), nil
	})

	reg("reduce", reduceBuiltin)
	reg("map", mapBuiltin)
	reg("filter", filterBuiltin)
	reg("lazy-seq", func(th *runtime.Thread, args []runtime.Value) (runtime.Value, error) {
		if len(args) != 1 {
			return nil, arityErr(len(args), "lazy-seq")
		}
		thunk := args[0]
		return runtime.NewLazyThunk(func(alloc runtime.Allocator) (runtime.Value, error) {
			return runtime.CallFnVal(th, thunk, nil)
		}), nil
	})

	reg("atom", func(th *runtime.Thread, args []runtime.Value) (runtime.Value, error) {
		if len(args) != 1 {
			return nil, arityErr(len(args), "atom")
		}
		return runtime.NewAtom(args[0]), nil
	})
	reg("reset!", func(th *runtime.Thread, args []runtime.Value) (runtime.Value, error) {
		if len(args) != 2 {
			return nil, arityErr(len(args), "reset!")
		}
		switch r := args[0].(type) {
		case *runtime.Atom:
			return r.Reset(args[1]), nil
		case *runtime.Volatile:
			return r.Reset(args[1]), nil
		}
		return nil, typeErr(args[0])
	})
	reg("swap!", func(th *runtime.Thread, args []runtime.Value) (runtime.Value, error) {
		if len(args) < 2 {
			return nil, arityErr(len(args), "swap!")
		}
		a, ok := args[0].(*runtime.Atom)
		if !ok {
			return nil, typeErr(args[0])
		}
		fn := args[1]
		extra := args[2:]
		return a.Swap(func(cur runtime.Value) (runtime.Value, error) {
			callArgs := append([]runtime.Value{cur}, extra...)
			return runtime.CallFnVal(th, fn, callArgs)
		})
	})
	reg("deref", derefBuiltin)

	reg("agent", func(th *runtime.Thread, args []runtime.Value) (runtime.Value, error) {
		if len(args) != 1 {
			return nil, arityErr(len(args), "agent")
		}
		return runtime.NewAgent(args[0]), nil
	})
	reg("send", sendBuiltin(p))
	reg("send-off", sendBuiltin(p))
	reg("future", func(th *runtime.Thread, args []runtime.Value) (runtime.Value, error) {
		if len(args) != 1 {
			return nil, arityErr(len(args), "future")
		}
		fn := args[0]
		fut := p.Submit(th, func(wth *runtime.Thread) (runtime.Value, error) {
			return runtime.CallFnVal(wth, fn, nil)
		})
		return fut.AsValue(), nil
	})
	reg("pmap", func(th *runtime.Thread, args []runtime.Value) (runtime.Value, error) {
		if len(args) != 2 {
			return nil, arityErr(len(args), "pmap")
		}
		coll, ok := runtime.ToSlice(runtime.DefaultAllocator, args[1])
		if !ok {
			return nil, typeErr(args[1])
		}
		out, err := p.PMap(th, args[0], coll)
		if err != nil {
			return nil, err
		}
		return runtime.NewList(out...), nil
	})
	reg("await", func(th *runtime.Thread, args []runtime.Value) (runtime.Value, error) {
		if len(args) != 1 {
			return nil, arityErr(len(args), "await")
		}
		fut, ok := args[0].(*runtime.ForeignFuture)
		if !ok {
			return nil, typeErr(args[0])
		}
		return fut.Get()
	})

	reg("re-find", reFindBuiltin)
}

func arityErr(n int, name string) error {
	return runtime.NewError(runtime.ErrArity, runtime.PhaseRuntime, -1, runtime.ErrMsgWrongArity, n, name)
}

func typeErr(v runtime.Value) error {
	return runtime.NewError(runtime.ErrType, runtime.PhaseRuntime, 0, runtime.ErrMsgUnexpectedType, v.Tag())
}

// arith folds a variadic numeric op left-to-right over args, matching
// Clojure's own (+ a b c ...) reduction.
func arith(op func(a, b runtime.Value, promote bool) (runtime.Value, error)) func(*runtime.Thread, []runtime.Value) (runtime.Value, error) {
	return func(th *runtime.Thread, args []runtime.Value) (runtime.Value, error) {
		if len(args) == 0 {
			return nil, arityErr(0, "arithmetic op")
		}
		acc := args[0]
		for _, v := range args[1:] {
			next, err := op(acc, v, true)
			if err != nil {
				return nil, err
			}
			acc = next
		}
		return acc, nil
	}
}

// cmp chains pairwise runtime.Compare results across a variadic arg list,
// matching Clojure's (< a b c) "strictly increasing across all pairs".
func cmp(ok func(c int) bool) func(*runtime.Thread, []runtime.Value) (runtime.Value, error) {
	return func(th *runtime.Thread, args []runtime.Value) (runtime.Value, error) {
		if len(args) < 2 {
			return nil, arityErr(len(args), "comparison")
		}
		for i := 1; i < len(args); i++ {
			c, err := runtime.Compare(args[i-1], args[i])
			if err != nil {
				return nil, err
			}
			if !ok(c) {
				return runtime.False, nil
			}
		}
		return runtime.True, nil
	}
}

func reduceBuiltin(th *runtime.Thread, args []runtime.Value) (runtime.Value, error) {
	if len(args) != 2 && len(args) != 3 {
		return nil, arityErr(len(args), "reduce")
	}
	fn := args[0]
	var acc runtime.Value
	var rest []runtime.Value
	if len(args) == 3 {
		acc = args[1]
		coll, ok := runtime.ToSlice(runtime.DefaultAllocator, args[2])
		if !ok {
			return nil, typeErr(args[2])
		}
		rest = coll
	} else {
		coll, ok := runtime.ToSlice(runtime.DefaultAllocator, args[1])
		if !ok {
			return nil, typeErr(args[1])
		}
		if len(coll) == 0 {
			return runtime.CallFnVal(th, fn, nil)
		}
		acc, rest = coll[0], coll[1:]
	}
	for _, v := range rest {
		next, err := runtime.CallFnVal(th, fn, []runtime.Value{acc, v})
		if err != nil {
			return nil, err
		}
		if r, ok := next.(*runtime.Reduced); ok {
			return r.Val, nil
		}
		acc = next
	}
	return acc, nil
}

// mapBuiltin/filterBuiltin build a descriptor-based lazy sequence over the source
// collection rather than eagerly realizing it, per spec.md §9's
// structural-metadata lazy-seq design; the Pred closure captures th so
// realization can call back into dispatch.
func mapBuiltin(th *runtime.Thread, args []runtime.Value) (runtime.Value, error) {
	if len(args) != 2 {
		return nil, arityErr(len(args), "map")
	}
	fn := args[0]
	src, ok := args[1].(runtime.Sequential)
	if !ok {
		if runtime.IsNil(args[1]) {
			return runtime.Nil, nil
		}
		return nil, typeErr(args[1])
	}
	return runtime.NewLazyMeta(&runtime.LazyDescriptor{
		Op:     "map",
		Source: src,
		Pred: func(alloc runtime.Allocator, v runtime.Value) (runtime.Value, error) {
			return runtime.CallFnVal(th, fn, []runtime.Value{v})
		},
	}), nil
}

func filterBuiltin(th *runtime.Thread, args []runtime.Value) (runtime.Value, error) {
	if len(args) != 2 {
		return nil, arityErr(len(args), "filter")
	}
	pred := args[0]
	src, ok := args[1].(runtime.Sequential)
	if !ok {
		if runtime.IsNil(args[1]) {
			return runtime.Nil, nil
		}
		return nil, typeErr(args[1])
	}
	return runtime.NewLazyMeta(&runtime.LazyDescriptor{
		Op:     "filter",
		Source: src,
		Pred: func(alloc runtime.Allocator, v runtime.Value) (runtime.Value, error) {
			return runtime.CallFnVal(th, pred, []runtime.Value{v})
		},
	}), nil
}

func derefBuiltin(th *runtime.Thread, args []runtime.Value) (runtime.Value, error) {
	if len(args) != 1 {
		return nil, arityErr(len(args), "deref")
	}
	switch r := args[0].(type) {
	case *runtime.Atom:
		return r.Deref(), nil
	case *runtime.Volatile:
		return r.Deref(), nil
	case *runtime.Agent:
		return r.Deref(), nil
	case *runtime.Delay:
		return r.Deref(runtime.DefaultAllocator)
	case *runtime.ForeignFuture:
		return r.Get()
	}
	return nil, typeErr(args[0])
}

// sendBuiltin backs both send and send-off: candela's single worker pool
// makes no distinction between a CPU-bound and blocking-I/O action queue,
// so both submit identically (spec.md §5 does not require the two-pool
// split real Clojure makes for this reason).
func sendBuiltin(p *pool.Pool) func(*runtime.Thread, []runtime.Value) (runtime.Value, error) {
	return func(th *runtime.Thread, args []runtime.Value) (runtime.Value, error) {
		if len(args) < 2 {
			return nil, arityErr(len(args), "send")
		}
		agent, ok := args[0].(*runtime.Agent)
		if !ok {
			return nil, typeErr(args[0])
		}
		p.SubmitAgentAction(th, agent, runtime.AgentAction{Fn: args[1], Args: args[2:]})
		return agent, nil
	}
}

func reFindBuiltin(th *runtime.Thread, args []runtime.Value) (runtime.Value, error) {
	if len(args) != 2 {
		return nil, arityErr(len(args), "re-find")
	}
	re, ok := args[0].(*runtime.Regex)
	if !ok {
		return nil, typeErr(args[0])
	}
	s, ok := args[1].(runtime.Str)
	if !ok {
		return nil, typeErr(args[1])
	}
	groups := re.Re.FindStringSubmatch(s.S)
	if groups == nil {
		return runtime.Nil, nil
	}
	if len(groups) == 1 {
		return runtime.NewString(groups[0]), nil
	}
	elems := make([]runtime.Value, len(groups))
	for i, g := range groups {
		elems[i] = runtime.NewString(g)
	}
	return runtime.NewVector(elems...), nil
}
