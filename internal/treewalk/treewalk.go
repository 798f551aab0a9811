// Package treewalk is the tree-walking evaluator back-end: it implements
// runtime.Backend directly over ast.Node, generalizing the teacher's
// interp/eval.go direct-AST-execution style (no IR lowering, a big type
// switch over node kind) to candela's AST defined in internal/ast.
package treewalk

import (
	"github.com/candela-lang/candela/internal/ast"
	"github.com/candela-lang/candela/internal/runtime"
)

// Evaluator is the tree-walk back-end, installed into runtime's dispatch
// vtable via runtime.InstallBackend so CallFnVal can invoke interpreted
// closures.
type Evaluator struct {
	Env *runtime.Env
}

func New(env *runtime.Env) *Evaluator {
	return &Evaluator{Env: env}
}

// recurSignal is returned (as the error half of an (value, error) pair)
// from evaluating an ast.Recur node; the nearest enclosing loop/fn-call
// site traps it and loops instead of propagating it as a real error —
// idiomatic Go's answer to a tail-call trampoline without panics.
type recurSignal struct{ args []runtime.Value }

func (r *recurSignal) Error() string { return "recur outside of loop/fn (internal)" }

// Eval walks node under frame (the lexical scope chain), using th for
// dynamic-var and namespace resolution.
func (e *Evaluator) Eval(th *runtime.Thread, frame *runtime.Frame, node ast.Node) (runtime.Value, error) {
	switch n := node.(type) {
	case *ast.Constant:
		return n.Value.(runtime.Value), nil
	case *ast.LocalRef:
		v, ok := frame.Lookup(n.Name)
		if !ok {
			return nil, runtime.NewErrorAt(runtime.ErrValue, runtime.PhaseEval, -1, toPos(n.Position()), "unable to resolve local symbol: %s", n.Name)
		}
		return v, nil
	case *ast.VarRef:
		v, ok := e.Env.Resolve(th, n.Namespace, n.Name)
		if !ok {
			return nil, runtime.NewErrorAt(runtime.ErrValue, runtime.PhaseEval, -1, toPos(n.Position()), "unable to resolve symbol: %s", qualify(n.Namespace, n.Name))
		}
		return v.Deref(th), nil
	case *ast.If:
		test, err := e.Eval(th, frame, n.Test)
		if err != nil {
			return nil, err
		}
		if runtime.IsTruthy(test) {
			return e.Eval(th, frame, n.Then)
		}
		if n.Else == nil {
			return runtime.Nil, nil
		}
		return e.Eval(th, frame, n.Else)
	case *ast.Do:
		return e.evalBody(th, frame, n.Body)
	case *ast.Let:
		return e.evalLet(th, frame, n.Bindings, n.Body)
	case *ast.Loop:
		return e.evalLoop(th, frame, n.Bindings, n.Body)
	case *ast.Recur:
		args := make([]runtime.Value, len(n.Args))
		for i, a := range n.Args {
			v, err := e.Eval(th, frame, a)
			if err != nil {
				return nil, err
			}
			args[i] = v
		}
		return nil, &recurSignal{args}
	case *ast.Fn:
		return runtime.NewFn(n.Name, n.Clauses, frame), nil
	case *ast.LetFn:
		return e.evalLetFn(th, frame, n)
	case *ast.Def:
		return e.evalDef(th, frame, n)
	case *ast.Call:
		return e.evalCall(th, frame, n)
	default:
		return nil, runtime.NewError(runtime.ErrInternal, runtime.PhaseEval, -1, runtime.ErrMsgUnknownASTNode, node)
	}
}

func qualify(ns, name string) string {
	if ns == "" {
		return name
	}
	return ns + "/" + name
}

func toPos(p ast.Pos) runtime.Position {
	return runtime.Position{File: p.File, Line: p.Line, Column: p.Column}
}

func (e *Evaluator) evalBody(th *runtime.Thread, frame *runtime.Frame, body []ast.Node) (runtime.Value, error) {
	var result runtime.Value = runtime.Nil
	for _, n := range body {
		v, err := e.Eval(th, frame, n)
		if err != nil {
			return nil, err
		}
		result = v
	}
	return result, nil
}

func (e *Evaluator) evalLet(th *runtime.Thread, frame *runtime.Frame, bindings []ast.Binding, body []ast.Node) (runtime.Value, error) {
	child := runtime.NewFrame(frame, len(bindings))
	for _, b := range bindings {
		v, err := e.Eval(th, child, b.Init)
		if err != nil {
			return nil, err
		}
		child.Bind(b.Name, v)
	}
	return e.evalBody(th, child, body)
}

// evalLoop establishes a recur target: a Recur signal from body rebinds
// the loop locals in place and re-enters the body without growing the Go
// call stack.
func (e *Evaluator) evalLoop(th *runtime.Thread, frame *runtime.Frame, bindings []ast.Binding, body []ast.Node) (runtime.Value, error) {
	child := runtime.NewFrame(frame, len(bindings))
	for _, b := range bindings {
		v, err := e.Eval(th, child, b.Init)
		if err != nil {
			return nil, err
		}
		child.Bind(b.Name, v)
	}
	for {
		result, err := e.evalBody(th, child, body)
		if err == nil {
			return result, nil
		}
		rs, ok := err.(*recurSignal)
		if !ok {
			return nil, err
		}
		if len(rs.args) != len(bindings) {
			return nil, runtime.NewError(runtime.ErrArity, runtime.PhaseEval, -1, "recur argument count does not match loop bindings")
		}
		for i, b := range bindings {
			child.Set(b.Name, rs.args[i])
		}
	}
}

func (e *Evaluator) evalLetFn(th *runtime.Thread, frame *runtime.Frame, n *ast.LetFn) (runtime.Value, error) {
	child := runtime.NewFrame(frame, len(n.Names))
	fns := make([]*runtime.Fn, len(n.Fns))
	for i, fn := range n.Fns {
		fns[i] = runtime.NewFn(fn.Name, fn.Clauses, child)
		child.Bind(n.Names[i], fns[i])
	}
	return e.evalBody(th, child, n.Body)
}

func (e *Evaluator) evalDef(th *runtime.Thread, frame *runtime.Frame, n *ast.Def) (runtime.Value, error) {
	var val runtime.Value = runtime.Nil
	if n.Init != nil {
		v, err := e.Eval(th, frame, n.Init)
		if err != nil {
			return nil, err
		}
		val = v
	}
	ns := th.CurrentNS
	if ns == nil {
		ns = e.Env.DefaultNamespace()
	}
	v := ns.Define(n.Name, val)
	v.Dynamic = n.Flags.Dynamic
	v.Macro = n.Flags.Macro
	v.Private = n.Flags.Private
	v.Const = n.Flags.Const
	return v, nil
}

func (e *Evaluator) evalCall(th *runtime.Thread, frame *runtime.Frame, n *ast.Call) (runtime.Value, error) {
	callee, err := e.Eval(th, frame, n.Callee)
	if err != nil {
		return nil, err
	}
	args := make([]runtime.Value, len(n.Args))
	for i, a := range n.Args {
		v, err := e.Eval(th, frame, a)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	v, err := runtime.CallFnVal(th, callee, args)
	if err != nil {
		return nil, runtime.AttachArgPos(err, argPositions(n.Args), toPosition(n.Position()))
	}
	return v, nil
}

func argPositions(args []ast.Node) []runtime.Position {
	pos := make([]runtime.Position, len(args))
	for i, a := range args {
		pos[i] = toPosition(a.Position())
	}
	return pos
}

func toPosition(p ast.Pos) runtime.Position {
	return runtime.Position{File: p.File, Line: p.Line, Column: p.Column}
}

// CallClosure implements runtime.Backend: it selects the matching-arity
// clause, binds params into a fresh Frame over the closure's captured
// environment, and evaluates the body, trapping Recur signals at the
// function's own tail position (spec.md §6: "tree-walk bridge").
func (e *Evaluator) CallClosure(th *runtime.Thread, fn *runtime.Fn, args []runtime.Value) (runtime.Value, error) {
	clause, ok := fn.ClauseFor(len(args))
	if !ok {
		name := fn.Name
		if name == "" {
			name = "fn"
		}
		return nil, runtime.NewError(runtime.ErrArity, runtime.PhaseEval, -1, runtime.ErrMsgWrongArity, len(args), name)
	}
	child := runtime.NewFrame(fn.Env, len(clause.Params))
	bindParamValues(child, clause, args)
	for {
		result, err := e.evalBody(th, child, clause.Body)
		if err == nil {
			return result, nil
		}
		rs, ok := err.(*recurSignal)
		if !ok {
			return nil, err
		}
		if len(rs.args) != len(clause.Params) {
			return nil, runtime.NewError(runtime.ErrArity, runtime.PhaseEval, -1, "recur argument count does not match fn params")
		}
		child = runtime.NewFrame(fn.Env, len(clause.Params))
		bindParamValues(child, clause, rs.args)
	}
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
