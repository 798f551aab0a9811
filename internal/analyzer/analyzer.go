// Package analyzer turns reader.Form trees into ast.Node trees, resolving
// local references against a lexical scope chain, recognizing the special
// forms named in spec.md §6 (if, do, let, loop, recur, fn, def), and
// expanding macro calls by invoking the macro Var's Fn through the
// installed dispatch vtable — generalizing the teacher's semantic-analysis
// pass (internal/interp's analyzer over the parser's AST) from a typed,
// static language's name/type resolution to Clojure's dynamic, macro-
// expanding one.
package analyzer

import (
	"github.com/candela-lang/candela/internal/ast"
	"github.com/candela-lang/candela/internal/reader"
	"github.com/candela-lang/candela/internal/runtime"
)

// Analyzer holds the shared Env used to resolve Vars and macro bindings.
type Analyzer struct {
	Env *runtime.Env
}

func New(env *runtime.Env) *Analyzer {
	return &Analyzer{Env: env}
}

// Analyze converts one top-level form into an ast.Node, expanding macros
// along the way. scope is nil at the top level.
func (a *Analyzer) Analyze(th *runtime.Thread, scope *runtime.Frame, f *reader.Form) (ast.Node, error) {
	switch v := f.Value.(type) {
	case *runtime.List:
		if v.SeqEmpty() {
			return ast.NewConstant(f.Pos, f.Value), nil
		}
		return a.analyzeCall(th, scope, f)
	case *runtime.Vector:
		return a.analyzeVectorLiteral(th, scope, f)
	case *runtime.ArrayMap, *runtime.HashMap, *runtime.HashSet:
		return ast.NewConstant(f.Pos, f.Value), nil
	case runtime.Symbol:
		return a.analyzeSymbol(f.Pos, scope, v), nil
	default:
		return ast.NewConstant(f.Pos, f.Value), nil
	}
}

func (a *Analyzer) analyzeVectorLiteral(th *runtime.Thread, scope *runtime.Frame, f *reader.Form) (ast.Node, error) {
	// A vector form is a constant collection whose elements may themselves
	// be locals (e.g. inside a fn body). If no element is a bare symbol
	// bound in scope, the whole vector is one Constant; otherwise every
	// element is analyzed and passed to a call of candela.core/vector.
	// Only top-level elements are inspected: a local nested deeper inside
	// an element (e.g. in an inner list) does not switch to the call path.
	allConst := true
	for _, it := range f.Items {
		if _, ok := it.Value.(runtime.Symbol); ok {
			if _, found := scope.Lookup(it.Value.(runtime.Symbol).Name); found {
				allConst = false
				break
			}
		}
	}
	if allConst {
		return ast.NewConstant(f.Pos, f.Value), nil
	}
	args := make([]ast.Node, len(f.Items))
	for i, it := range f.Items {
		n, err := a.Analyze(th, scope, it)
		if err != nil {
			return nil, err
		}
		args[i] = n
	}
	return ast.NewCall(f.Pos, ast.NewVarRef(f.Pos, "candela.core", "vector"), args), nil
}

func (a *Analyzer) analyzeSymbol(pos ast.Pos, scope *runtime.Frame, s runtime.Symbol) ast.Node {
	if s.Namespace == "" {
		if d := scope.Depth(s.Name); d >= 0 {
			return ast.NewLocalRef(pos, s.Name, d)
		}
	}
	return ast.NewVarRef(pos, s.Namespace, s.Name)
}

func (a *Analyzer) analyzeCall(th *runtime.Thread, scope *runtime.Frame, f *reader.Form) (ast.Node, error) {
	head := f.Items[0]
	if sym, ok := head.Value.(runtime.Symbol); ok && sym.Namespace == "" {
		if _, shadowed := scope.Lookup(sym.Name); !shadowed {
			if node, handled, err := a.analyzeSpecialForm(th, scope, sym.Name, f); handled || err != nil {
				return node, err
			}
			if expanded, did, err := a.tryExpandMacro(th, sym, f); err != nil {
				return nil, err
			} else if did {
				return a.Analyze(th, scope, expanded)
			}
		}
	}
	callee, err := a.Analyze(th, scope, head)
	if err != nil {
		return nil, err
	}
	args := make([]ast.Node, len(f.Items)-1)
	for i, it := range f.Items[1:] {
		n, err := a.Analyze(th, scope, it)
		if err != nil {
			return nil, err
		}
		args[i] = n
	}
	return ast.NewCall(f.Pos, callee, args), nil
}

// tryExpandMacro calls a macro Var's Fn with the call's own unevaluated
// arguments, feeding the result back into analysis (spec.md §4.7 step 3).
func (a *Analyzer) tryExpandMacro(th *runtime.Thread, sym runtime.Symbol, f *reader.Form) (*reader.Form, bool, error) {
	v, ok := a.Env.Resolve(th, sym.Namespace, sym.Name)
	if !ok || !v.Macro {
		return nil, false, nil
	}
	fn := v.Deref(th)
	args := make([]runtime.Value, len(f.Items)-1)
	for i, it := range f.Items[1:] {
		args[i] = it.Value
	}
	expanded, err := runtime.CallFnVal(th, fn, args)
	if err != nil {
		return nil, false, err
	}
	return &reader.Form{Pos: f.Pos, Value: expanded}, true, nil
}

func symName(f *reader.Form) (string, bool) {
	s, ok := f.Value.(runtime.Symbol)
	if !ok {
		return "", false
	}
	return s.Name, true
}

// analyzeSpecialForm recognizes quote/if/do/let/loop/recur/fn/def/defn/
// letfn/lazy-seq/in-ns by head symbol name. handled is false if name is not a special form (the
// caller should then try macro expansion or an ordinary call).
func (a *Analyzer) analyzeSpecialForm(th *runtime.Thread, scope *runtime.Frame, name string, f *reader.Form) (ast.Node, bool, error) {
	rest := f.Items[1:]
	switch name {
	case "quote":
		if len(rest) != 1 {
			return nil, true, runtime.NewErrorAt(runtime.ErrArity, runtime.PhaseAnalyze, -1, toPos(f.Pos), "quote takes exactly one form")
		}
		return ast.NewConstant(f.Pos, rest[0].Value), true, nil
	case "if":
		if len(rest) < 2 || len(rest) > 3 {
			return nil, true, runtime.NewErrorAt(runtime.ErrArity, runtime.PhaseAnalyze, -1, toPos(f.Pos), "if takes 2 or 3 forms")
		}
		test, err := a.Analyze(th, scope, rest[0])
		if err != nil {
			return nil, true, err
		}
		then, err := a.Analyze(th, scope, rest[1])
		if err != nil {
			return nil, true, err
		}
		var els ast.Node
		if len(rest) == 3 {
			els, err = a.Analyze(th, scope, rest[2])
			if err != nil {
				return nil, true, err
			}
		}
		return &ast.If{Test: test, Then: then, Else: els}, true, nil
	case "do":
		body, err := a.analyzeBody(th, scope, rest)
		if err != nil {
			return nil, true, err
		}
		return &ast.Do{Body: body}, true, nil
	case "let":
		node, err := a.analyzeLet(th, scope, f, rest, false)
		return node, true, err
	case "loop":
		node, err := a.analyzeLet(th, scope, f, rest, true)
		return node, true, err
	case "recur":
		args := make([]ast.Node, len(rest))
		for i, r := range rest {
			n, err := a.Analyze(th, scope, r)
			if err != nil {
				return nil, true, err
			}
			args[i] = n
		}
		return &ast.Recur{Args: args}, true, nil
	case "fn":
		node, err := a.analyzeFn(th, scope, f, rest)
		return node, true, err
	case "def":
		node, err := a.analyzeDef(th, scope, f, rest, ast.DefFlags{})
		return node, true, err
	case "defn":
		node, err := a.analyzeDefn(th, scope, f, rest)
		return node, true, err
	case "letfn":
		node, err := a.analyzeLetFn(th, scope, f, rest)
		return node, true, err
	case "lazy-seq":
		node, err := a.analyzeLazySeq(th, scope, f, rest)
		return node, true, err
	case "in-ns":
		node, err := a.analyzeInNS(th, f, rest)
		return node, true, err
	}
	return nil, false, nil
}

// analyzeInNS switches th's current namespace immediately, during
// analysis, rather than deferring the effect to evaluation: the pipeline
// (spec.md §4.7) reads and analyzes one top-level form at a time and
// needs every subsequent form's VarRef resolution later in this same
// form stream to see the switch right away, not after a whole form's
// evaluation completes. The reader keeps no namespace state of its own.
func (a *Analyzer) analyzeInNS(th *runtime.Thread, f *reader.Form, rest []*reader.Form) (ast.Node, error) {
	if len(rest) != 1 {
		return nil, runtime.NewErrorAt(runtime.ErrArity, runtime.PhaseAnalyze, -1, toPos(f.Pos), "in-ns takes exactly one form")
	}
	sym, ok := rest[0].Value.(runtime.Symbol)
	if !ok {
		return nil, runtime.NewErrorAt(runtime.ErrType, runtime.PhaseAnalyze, -1, toPos(f.Pos), "in-ns expects a namespace symbol")
	}
	name := sym.Name
	if sym.Namespace != "" {
		name = sym.Namespace + "." + sym.Name
	}
	ns := a.Env.FindOrCreate(name)
	th.CurrentNS = ns
	return ast.NewConstant(f.Pos, runtime.NewSymbol("", name)), nil
}

// analyzeLazySeq desugars (lazy-seq body...) into a call to the
// candela.core/lazy-seq builtin over a zero-arg thunk fn, matching real
// Clojure's own lazy-seq macro expansion.
func (a *Analyzer) analyzeLazySeq(th *runtime.Thread, scope *runtime.Frame, f *reader.Form, rest []*reader.Form) (ast.Node, error) {
	child := runtime.NewFrame(scope, 0)
	body, err := a.analyzeBody(th, child, rest)
	if err != nil {
		return nil, err
	}
	thunk := &ast.Fn{Clauses: []ast.FnClause{{Body: body}}}
	return ast.NewCall(f.Pos, ast.NewVarRef(f.Pos, "candela.core", "lazy-seq"), []ast.Node{thunk}), nil
}

func toPos(p ast.Pos) runtime.Position {
	return runtime.Position{File: p.File, Line: p.Line, Column: p.Column}
}

func (a *Analyzer) analyzeBody(th *runtime.Thread, scope *runtime.Frame, forms []*reader.Form) ([]ast.Node, error) {
	out := make([]ast.Node, len(forms))
	for i, f := range forms {
		n, err := a.Analyze(th, scope, f)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

func (a *Analyzer) analyzeLet(th *runtime.Thread, scope *runtime.Frame, f *reader.Form, rest []*reader.Form, isLoop bool) (ast.Node, error) {
	if len(rest) < 1 {
		return nil, runtime.NewErrorAt(runtime.ErrArity, runtime.PhaseAnalyze, -1, toPos(f.Pos), "let/loop requires a binding vector")
	}
	bindingForm := rest[0]
	bindingItems := bindingForm.Items
	if len(bindingItems)%2 != 0 {
		return nil, runtime.NewErrorAt(runtime.ErrValue, runtime.PhaseAnalyze, -1, toPos(bindingForm.Pos), "binding vector must have an even number of forms")
	}
	child := runtime.NewFrame(scope, len(bindingItems)/2)
	var bindings []ast.Binding
	for i := 0; i < len(bindingItems); i += 2 {
		name, ok := symName(bindingItems[i])
		if !ok {
			return nil, runtime.NewErrorAt(runtime.ErrValue, runtime.PhaseAnalyze, -1, toPos(bindingItems[i].Pos), "binding name must be a symbol")
		}
		init, err := a.Analyze(th, child, bindingItems[i+1])
		if err != nil {
			return nil, err
		}
		child.Bind(name, runtime.Nil)
		bindings = append(bindings, ast.Binding{Name: name, Init: init})
	}
	body, err := a.analyzeBody(th, child, rest[1:])
	if err != nil {
		return nil, err
	}
	if isLoop {
		return &ast.Loop{Bindings: bindings, Body: body}, nil
	}
	return &ast.Let{Bindings: bindings, Body: body}, nil
}

func (a *Analyzer) analyzeFn(th *runtime.Thread, scope *runtime.Frame, f *reader.Form, rest []*reader.Form) (ast.Node, error) {
	name := ""
	if len(rest) > 0 {
		if n, ok := symName(rest[0]); ok {
			name = n
			rest = rest[1:]
		}
	}
	var clauseForms [][]*reader.Form
	if len(rest) > 0 {
		if _, isVec := rest[0].Value.(*runtime.Vector); isVec {
			clauseForms = [][]*reader.Form{rest}
		} else {
			for _, clause := range rest {
				clauseForms = append(clauseForms, clause.Items)
			}
		}
	}
	var clauses []ast.FnClause
	for _, cf := range clauseForms {
		if len(cf) < 1 {
			return nil, runtime.NewErrorAt(runtime.ErrValue, runtime.PhaseAnalyze, -1, toPos(f.Pos), "fn clause requires a parameter vector")
		}
		params, variadic := parseParams(cf[0].Items)
		child := runtime.NewFrame(scope, len(params))
		for _, p := range params {
			child.Bind(p, runtime.Nil)
		}
		body, err := a.analyzeBody(th, child, cf[1:])
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, ast.FnClause{Params: params, Variadic: variadic, Body: body})
	}
	return &ast.Fn{Name: name, Clauses: clauses}, nil
}

func parseParams(items []*reader.Form) (params []string, variadic bool) {
	for i := 0; i < len(items); i++ {
		n, _ := symName(items[i])
		if n == "&" {
			variadic = true
			continue
		}
		params = append(params, n)
	}
	return params, variadic
}

func (a *Analyzer) analyzeDef(th *runtime.Thread, scope *runtime.Frame, f *reader.Form, rest []*reader.Form, flags ast.DefFlags) (ast.Node, error) {
	if len(rest) < 1 {
		return nil, runtime.NewErrorAt(runtime.ErrArity, runtime.PhaseAnalyze, -1, toPos(f.Pos), "def requires a name")
	}
	name, ok := symName(rest[0])
	if !ok {
		return nil, runtime.NewErrorAt(runtime.ErrValue, runtime.PhaseAnalyze, -1, toPos(rest[0].Pos), "def name must be a symbol")
	}
	var init ast.Node
	if len(rest) > 1 {
		n, err := a.Analyze(th, scope, rest[1])
		if err != nil {
			return nil, err
		}
		init = n
	}
	return &ast.Def{Name: name, Init: init, Flags: flags}, nil
}

// analyzeDefn desugars (defn name [params] body...) into a def of a fn,
// matching Clojure's own macro expansion.
func (a *Analyzer) analyzeDefn(th *runtime.Thread, scope *runtime.Frame, f *reader.Form, rest []*reader.Form) (ast.Node, error) {
	if len(rest) < 2 {
		return nil, runtime.NewErrorAt(runtime.ErrArity, runtime.PhaseAnalyze, -1, toPos(f.Pos), "defn requires a name and parameter vector")
	}
	name, ok := symName(rest[0])
	if !ok {
		return nil, runtime.NewErrorAt(runtime.ErrValue, runtime.PhaseAnalyze, -1, toPos(rest[0].Pos), "defn name must be a symbol")
	}
	fnNode, err := a.analyzeFn(th, scope, f, rest[1:])
	if err != nil {
		return nil, err
	}
	fnNode.(*ast.Fn).Name = name
	return &ast.Def{Name: name, Init: fnNode}, nil
}

func (a *Analyzer) analyzeLetFn(th *runtime.Thread, scope *runtime.Frame, f *reader.Form, rest []*reader.Form) (ast.Node, error) {
	if len(rest) < 1 {
		return nil, runtime.NewErrorAt(runtime.ErrArity, runtime.PhaseAnalyze, -1, toPos(f.Pos), "letfn requires a binding vector")
	}
	bindingForm := rest[0]
	var names []string
	for _, item := range bindingForm.Items {
		fnItems := item.Items
		if len(fnItems) < 1 {
			return nil, runtime.NewErrorAt(runtime.ErrValue, runtime.PhaseAnalyze, -1, toPos(item.Pos), "letfn binding must name a function")
		}
		name, ok := symName(fnItems[0])
		if !ok {
			return nil, runtime.NewErrorAt(runtime.ErrValue, runtime.PhaseAnalyze, -1, toPos(fnItems[0].Pos), "letfn binding name must be a symbol")
		}
		names = append(names, name)
	}
	child := runtime.NewFrame(scope, len(names))
	for _, n := range names {
		child.Bind(n, runtime.Nil)
	}
	var fns []*ast.Fn
	for i, item := range bindingForm.Items {
		fnItems := item.Items
		params, variadic := parseParams(fnItems[1].Items)
		fnChild := runtime.NewFrame(child, len(params))
		for _, p := range params {
			fnChild.Bind(p, runtime.Nil)
		}
		body, err := a.analyzeBody(th, fnChild, fnItems[2:])
		if err != nil {
			return nil, err
		}
		fns = append(fns, &ast.Fn{Name: names[i], Clauses: []ast.FnClause{{Params: params, Variadic: variadic, Body: body}}})
	}
	body, err := a.analyzeBody(th, child, rest[1:])
	if err != nil {
		return nil, err
	}
	return &ast.LetFn{Names: names, Fns: fns, Body: body}, nil
}
