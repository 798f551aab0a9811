// Package vm executes compiler.Chunk programs over an explicit operand
// stack, generalizing the teacher's internal/bytecode.VM (a stack machine
// with a frame slice and opcode switch) to candela's runtime.Value set and
// Frame-based, name-resolved locals. VM is the second runtime.Backend
// implementation: installed alongside treewalk.Evaluator, it lets
// spec.md §4.8's compare harness run every scenario through both
// evaluation strategies and diff the results.
package vm

import (
	"github.com/candela-lang/candela/internal/ast"
	"github.com/candela-lang/candela/internal/compiler"
	"github.com/candela-lang/candela/internal/runtime"
)

// VM is the bytecode back-end. Env is needed to resolve OpVarRef instructions
// and to default OpDef's target namespace, mirroring treewalk.Evaluator's
// own Env field.
type VM struct {
	Env *runtime.Env
}

func New(env *runtime.Env) *VM {
	return &VM{Env: env}
}

// recurSignal unwinds a Chunk's execution the moment an OpRecur instruction
// runs; it is caught by whichever Run call is running a loop body (OpLoop)
// or by CallClosure's own driver loop, the same two-site trapping strategy
// treewalk uses for `loop`/`recur` versus fn-tail-position recur.
type recurSignal struct{ args []runtime.Value }

// Eval compiles and runs body as a single top-level Chunk. A recur with no
// enclosing loop or fn call is a misplaced-recur error, matching treewalk's
// behavior of never trapping a recurSignal at the outermost Eval.
func (vm *VM) Eval(th *runtime.Thread, frame *runtime.Frame, body []ast.Node) (runtime.Value, error) {
	prev := th.ActiveVM
	th.ActiveVM = vm
	defer func() { th.ActiveVM = prev }()
	chunk, err := compiler.Compile(body)
	if err != nil {
		return nil, err
	}
	v, rs, err := vm.Run(th, chunk, frame)
	if err != nil {
		return nil, err
	}
	if rs != nil {
		return nil, runtime.NewError(runtime.ErrValue, runtime.PhaseEval, -1, "recur outside of loop/fn")
	}
	return v, nil
}

// Run executes chunk's instructions against frame, returning either a
// result value, a recurSignal for the nearest enclosing catcher, or an
// error — exactly one of (value, recurSignal) is non-nil on a nil error.
func (vm *VM) Run(th *runtime.Thread, chunk *compiler.Chunk, frame *runtime.Frame) (runtime.Value, *recurSignal, error) {
	stack := make([]runtime.Value, 0, 8)
	push := func(v runtime.Value) { stack = append(stack, v) }
	pop := func() runtime.Value {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return v
	}
	popN := func(n int) []runtime.Value {
		args := make([]runtime.Value, n)
		copy(args, stack[len(stack)-n:])
		stack = stack[:len(stack)-n]
		return args
	}

	for _, instr := range chunk.Code {
		switch instr.Op {
		case compiler.OpConst:
			push(chunk.Consts[instr.A])

		case compiler.OpLocalRef:
			v, ok := frame.Lookup(instr.Str)
			if !ok {
				return nil, nil, runtime.NewError(runtime.ErrValue, runtime.PhaseEval, -1, "unable to resolve local symbol: %s", instr.Str)
			}
			push(v)

		case compiler.OpVarRef:
			v, ok := vm.Env.Resolve(th, instr.Str, instr.Str2)
			if !ok {
				return nil, nil, runtime.NewError(runtime.ErrValue, runtime.PhaseEval, -1, "unable to resolve symbol: %s", qualify(instr.Str, instr.Str2))
			}
			push(v.Deref(th))

		case compiler.OpPop:
			pop()

		case compiler.OpIf:
			test := pop()
			branch := instr.Else
			if runtime.IsTruthy(test) {
				branch = instr.Then
			}
			if branch == nil {
				push(runtime.Nil)
				break
			}
			v, rs, err := vm.Run(th, branch, frame)
			if err != nil || rs != nil {
				return nil, rs, err
			}
			push(v)

		case compiler.OpLet:
			child := runtime.NewFrame(frame, len(instr.Names))
			for i, name := range instr.Names {
				v, rs, err := vm.Run(th, instr.Inits[i], child)
				if err != nil {
					return nil, nil, err
				}
				if rs != nil {
					return nil, nil, runtime.NewError(runtime.ErrValue, runtime.PhaseEval, -1, "recur outside of loop/fn")
				}
				child.Bind(name, v)
			}
			v, rs, err := vm.Run(th, instr.Body, child)
			if err != nil || rs != nil {
				return nil, rs, err
			}
			push(v)

		case compiler.OpLoop:
			child := runtime.NewFrame(frame, len(instr.Names))
			for i, name := range instr.Names {
				v, rs, err := vm.Run(th, instr.Inits[i], child)
				if err != nil {
					return nil, nil, err
				}
				if rs != nil {
					return nil, nil, runtime.NewError(runtime.ErrValue, runtime.PhaseEval, -1, "recur outside of loop/fn")
				}
				child.Bind(name, v)
			}
			for {
				v, rs, err := vm.Run(th, instr.Body, child)
				if err != nil {
					return nil, nil, err
				}
				if rs == nil {
					push(v)
					break
				}
				if len(rs.args) != len(instr.Names) {
					return nil, nil, runtime.NewError(runtime.ErrArity, runtime.PhaseEval, -1, "recur argument count does not match loop bindings")
				}
				for i, name := range instr.Names {
					child.Set(name, rs.args[i])
				}
			}

		case compiler.OpRecur:
			return nil, &recurSignal{popN(instr.A)}, nil

		case compiler.OpMakeFn:
			push(runtime.NewFn(instr.Fn.Name, instr.Fn.Clauses, frame))

		case compiler.OpLetFn:
			child := runtime.NewFrame(frame, len(instr.Names))
			for i, fnNode := range instr.Fns {
				child.Bind(instr.Names[i], runtime.NewFn(fnNode.Name, fnNode.Clauses, child))
			}
			v, rs, err := vm.Run(th, instr.Body, child)
			if err != nil || rs != nil {
				return nil, rs, err
			}
			push(v)

		case compiler.OpCall:
			args := popN(instr.A)
			callee := pop()
			v, err := runtime.CallFnVal(th, callee, args)
			if err != nil {
				return nil, nil, runtime.AttachArgPos(err, instrArgPositions(instr.ArgPos), toPosition(instr.Pos))
			}
			push(v)

		case compiler.OpDef:
			var val runtime.Value = runtime.Nil
			if instr.HasInit {
				val = pop()
			}
			ns := th.CurrentNS
			if ns == nil {
				ns = vm.Env.DefaultNamespace()
			}
			v := ns.Define(instr.Str, val)
			v.Dynamic = instr.DefFlags.Dynamic
			v.Macro = instr.DefFlags.Macro
			v.Private = instr.DefFlags.Private
			v.Const = instr.DefFlags.Const
			push(v)

		default:
			return nil, nil, runtime.NewError(runtime.ErrInternal, runtime.PhaseEval, -1, "unknown opcode %d", instr.Op)
		}
	}

	if len(stack) == 0 {
		return runtime.Nil, nil, nil
	}
	return stack[len(stack)-1], nil, nil
}

func qualify(ns, name string) string {
	if ns == "" {
		return name
	}
	return ns + "/" + name
}

// CallClosure implements runtime.Backend: it compiles fn's matching clause
// on first call (caching the Chunk on fn.Compiled, keyed by clause index so
// a multi-arity fn compiles each arity independently) and runs it in a
// fresh Frame per invocation, rebuilding that frame on every fn-tail-
// position recur — the same fresh-frame-per-iteration strategy treewalk's
// own CallClosure uses, distinct from OpLoop's in-place rebind.
//
// It installs itself as th.ActiveVM for the call's duration (restoring the
// prior value on return, so reentry from a nested OpCall is transparent):
// dispatch.CallFnVal's *Fn case checks th.ActiveVM before falling back to
// the globally installed backend, so a bytecode call nested inside another
// bytecode call re-enters this same VM directly rather than going through
// the generic backend lookup.
func (vm *VM) CallClosure(th *runtime.Thread, fn *runtime.Fn, args []runtime.Value) (runtime.Value, error) {
	prev := th.ActiveVM
	th.ActiveVM = vm
	defer func() { th.ActiveVM = prev }()
	idx, clause, ok := clauseFor(fn, len(args))
	if !ok {
		name := fn.Name
		if name == "" {
			name = "fn"
		}
		return nil, runtime.NewError(runtime.ErrArity, runtime.PhaseEval, -1, runtime.ErrMsgWrongArity, len(args), name)
	}
	chunk, err := vm.chunkFor(fn, idx, clause)
	if err != nil {
		return nil, err
	}

	child := runtime.NewFrame(fn.Env, len(clause.Params))
	bindParamValues(child, clause, args)
	for {
		v, rs, err := vm.Run(th, chunk, child)
		if err != nil {
			return nil, err
		}
		if rs == nil {
			return v, nil
		}
		if len(rs.args) != len(clause.Params) {
			return nil, runtime.NewError(runtime.ErrArity, runtime.PhaseEval, -1, "recur argument count does not match fn params")
		}
		child = runtime.NewFrame(fn.Env, len(clause.Params))
		bindParamValues(child, clause, rs.args)
	}
}

// chunkFor returns the compiled Chunk for fn's clause idx, compiling and
// caching it on first use. fn.Compiled is declared `any` in callables.go
// precisely so runtime stays free of a dependency on compiler.Chunk.
func (vm *VM) chunkFor(fn *runtime.Fn, idx int, clause ast.FnClause) (*compiler.Chunk, error) {
	cache, _ := fn.Compiled.(map[int]*compiler.Chunk)
	if cache == nil {
		cache = map[int]*compiler.Chunk{}
	}
	if chunk, ok := cache[idx]; ok {
		return chunk, nil
	}
	chunk, err := compiler.Compile(clause.Body)
	if err != nil {
		return nil, err
	}
	cache[idx] = chunk
	fn.Compiled = cache
	return chunk, nil
}

// clauseFor selects fn's matching-arity clause along with its index,
// duplicating runtime.Fn.ClauseFor's selection rule (variadic clause as
// fallback) because that method does not expose the index the compile
// cache is keyed by.
func clauseFor(fn *runtime.Fn, argc int) (int, ast.FnClause, bool) {
	variadicIdx := -1
	for i := range fn.Clauses {
		c := fn.Clauses[i]
		if c.Variadic {
			variadicIdx = i
			continue
		}
		if len(c.Params) == argc {
			return i, c, true
		}
	}
	if variadicIdx >= 0 {
		c := fn.Clauses[variadicIdx]
		if argc >= len(c.Params)-1 {
			return variadicIdx, c, true
		}
	}
	return -1, ast.FnClause{}, false
}

func bindParamValues(frame *runtime.Frame, clause ast.FnClause, args []runtime.Value) {
	fixed := clause.Params
	if clause.Variadic {
		fixed = clause.Params[:len(clause.Params)-1]
	}
	for i, p := range fixed {
		if i < len(args) {
			frame.Bind(p, args[i])
		} else {
			frame.Bind(p, runtime.Nil)
		}
	}
	if clause.Variadic {
		restName := clause.Params[len(clause.Params)-1]
		var rest runtime.Value = runtime.Nil
		if len(args) > len(fixed) {
			rest = runtime.NewList(args[len(fixed):]...)
		}
		frame.Bind(restName, rest)
	}
}

func instrArgPositions(argPos []ast.Pos) []runtime.Position {
	pos := make([]runtime.Position, len(argPos))
	for i, p := range argPos {
		pos[i] = toPosition(p)
	}
	return pos
}

func toPosition(p ast.Pos) runtime.Position {
	return runtime.Position{File: p.File, Line: p.Line, Column: p.Column}
}
