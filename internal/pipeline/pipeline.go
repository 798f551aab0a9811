// Package pipeline implements spec.md §4.7/§4.8: the read→analyze→evaluate
// orchestration (Pipeline.EvalString) and the dual-backend regression
// harness (Pipeline.Compare) that runs one AST node through both the
// tree-walking evaluator and the bytecode VM and diffs the results. The
// teacher has no equivalent orchestration layer of its own (go-dws's
// cmd/dwscript wires lexer→parser→interp or lexer→parser→compiler→vm as
// two separate, non-comparing CLI paths), so this package is grounded
// directly on spec.md's own contract rather than adapted from teacher
// code.
package pipeline

import (
	"github.com/candela-lang/candela/internal/analyzer"
	"github.com/candela-lang/candela/internal/ast"
	"github.com/candela-lang/candela/internal/pool"
	"github.com/candela-lang/candela/internal/reader"
	"github.com/candela-lang/candela/internal/runtime"
	"github.com/candela-lang/candela/internal/stdlib"
	"github.com/candela-lang/candela/internal/treewalk"
	"github.com/candela-lang/candela/internal/vm"
	"github.com/google/go-cmp/cmp"
)

// Backend selects which evaluator Pipeline.EvalString drives a form
// through. Compare always runs both, regardless of this setting.
type Backend int

const (
	BackendTreeWalk Backend = iota
	BackendVM
)

// FormObserver receives each top-level form's AST and result, letting a
// REPL or `-e` mode interleave side-effectful prints with result prints
// in read order (spec.md §4.7).
type FormObserver func(node ast.Node, result runtime.Value, err error)

// Pipeline owns one Env and both evaluator back-ends; Backend picks which
// one EvalString feeds analyzed forms to. Both back-ends share the Env,
// so a `def` executed by one is visible to the other's subsequent Vars
// lookups — candela has exactly one namespace registry regardless of
// which evaluator runs a given form.
type Pipeline struct {
	Env      *runtime.Env
	Analyzer *analyzer.Analyzer
	TreeWalk *treewalk.Evaluator
	VM       *vm.VM
	Backend  Backend
}

// New builds a Pipeline over env without installing a dispatch backend or
// the stdlib — callers that need a fully bootstrapped pipeline should use
// Boot instead. New is exposed separately for tests that want to drive
// the pipeline over a bare Env.
func New(env *runtime.Env) *Pipeline {
	return &Pipeline{
		Env:      env,
		Analyzer: analyzer.New(env),
		TreeWalk: treewalk.New(env),
		VM:       vm.New(env),
		Backend:  BackendTreeWalk,
	}
}

// Boot constructs a fresh Env, installs the selected evaluator as
// runtime's dispatch backend (runtime.CallFnVal routes every interpreted
// Fn call through it), and registers the candela.core builtins against
// p's worker pool. p may be nil if the caller never needs future/pmap/
// agent/send support (e.g. a pure-expression batch run).
func Boot(backend Backend, p *pool.Pool) *Pipeline {
	env := runtime.NewEnv("user")
	pl := New(env)
	pl.Backend = backend
	switch backend {
	case BackendVM:
		runtime.InstallBackend(pl.VM)
	default:
		runtime.InstallBackend(pl.TreeWalk)
	}
	stdlib.Install(env, p)
	return pl
}

// EvalString implements spec.md §4.7's evalString(allocator, env, source):
// it installs th as its own macro-eval-env hook for the duration of the
// call, reads source one top-level form at a time, analyzes (expanding
// macros) and evaluates each in turn, and returns the last form's value.
// obs, if non-nil, is called with every top-level result in read order.
func (p *Pipeline) EvalString(th *runtime.Thread, file, source string, obs FormObserver) (runtime.Value, error) {
	prevHook := th.MacroEvalEnv
	th.MacroEvalEnv = p
	defer func() { th.MacroEvalEnv = prevHook }()

	rdr := reader.New(file, source)
	var result runtime.Value = runtime.Nil
	for {
		form, err := rdr.Read()
		if err != nil {
			if obs != nil {
				obs(nil, nil, err)
			}
			return nil, err
		}
		if form == nil {
			return result, nil
		}

		node, err := p.Analyzer.Analyze(th, nil, form)
		if err != nil {
			if obs != nil {
				obs(nil, nil, err)
			}
			return nil, err
		}

		// `in-ns` switches th.CurrentNS during analysis itself (see
		// analyzer.analyzeInNS), so by the time execution reaches here the
		// namespace view is already current for this and every later form;
		// the reader has no ns-sensitive state of its own to refresh since
		// it does not implement syntax-quote (an explicit non-goal).
		v, err := p.evalNode(th, node)
		if obs != nil {
			obs(node, v, err)
		}
		if err != nil {
			return nil, err
		}
		result = v
	}
}

func (p *Pipeline) evalNode(th *runtime.Thread, node ast.Node) (runtime.Value, error) {
	switch p.Backend {
	case BackendVM:
		return p.VM.Eval(th, nil, []ast.Node{node})
	default:
		return p.TreeWalk.Eval(th, nil, node)
	}
}

// CompareResult is spec.md §4.8's dual-backend comparison outcome.
type CompareResult struct {
	TWValue runtime.Value
	VMValue runtime.Value
	TWError error
	VMError error
	Match   bool
	// Diff holds a human-readable difference, populated only when both
	// backends succeeded but produced unequal values.
	Diff string
}

// Compare runs node through both the tree-walk evaluator and the VM and
// reports whether they agree: both succeeding with equal values, or both
// failing, count as a match; a one-sided success is always a mismatch.
// Because both back-ends actually execute node, any side effect it
// carries (a `def`, an atom `swap!`) happens twice — Compare is meant for
// the side-effect-free expression scenarios spec.md §8 exercises, not for
// comparing stateful programs.
func (p *Pipeline) Compare(th *runtime.Thread, node ast.Node) *CompareResult {
	twVal, twErr := p.TreeWalk.Eval(th, nil, node)
	vmVal, vmErr := p.VM.Eval(th, nil, []ast.Node{node})

	res := &CompareResult{TWValue: twVal, VMValue: vmVal, TWError: twErr, VMError: vmErr}
	switch {
	case twErr == nil && vmErr == nil:
		res.Match = runtime.Eql(runtime.DefaultAllocator, twVal, vmVal)
		if !res.Match {
			res.Diff = cmp.Diff(runtime.PrStr(twVal), runtime.PrStr(vmVal))
		}
	case twErr != nil && vmErr != nil:
		res.Match = true
	default:
		res.Match = false
	}
	return res
}

// CompareString parses and analyzes every top-level form in source, in
// order, comparing each one independently; it stops at the first read or
// analyze error since neither back-end can run a form that never
// produced an AST node.
func (p *Pipeline) CompareString(th *runtime.Thread, file, source string) ([]*CompareResult, error) {
	rdr := reader.New(file, source)
	var results []*CompareResult
	for {
		form, err := rdr.Read()
		if err != nil {
			return results, err
		}
		if form == nil {
			return results, nil
		}
		node, err := p.Analyzer.Analyze(th, nil, form)
		if err != nil {
			return results, err
		}
		results = append(results, p.Compare(th, node))
	}
}
