package vm_test

import (
	"testing"

	"github.com/candela-lang/candela/internal/analyzer"
	"github.com/candela-lang/candela/internal/ast"
	"github.com/candela-lang/candela/internal/pool"
	"github.com/candela-lang/candela/internal/reader"
	"github.com/candela-lang/candela/internal/runtime"
	"github.com/candela-lang/candela/internal/stdlib"
	"github.com/candela-lang/candela/internal/vm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newFixture boots a real Env with candela.core installed and the VM
// registered as the active runtime.Backend, so OpCall can dispatch
// through runtime.CallFnVal exactly as cmd/candela's --backend vm does.
func newFixture(t *testing.T) (*vm.VM, *analyzer.Analyzer, *runtime.Thread) {
	t.Helper()
	env := runtime.NewEnv("user")
	p := pool.New(1, nil)
	t.Cleanup(p.Shutdown)
	stdlib.Install(env, p)
	theVM := vm.New(env)
	runtime.InstallBackend(theVM)
	return theVM, analyzer.New(env), env.NewThread()
}

func evalSrc(t *testing.T, theVM *vm.VM, an *analyzer.Analyzer, th *runtime.Thread, src string) runtime.Value {
	t.Helper()
	rdr := reader.New("<test>", src)
	var nodes []ast.Node
	for {
		form, err := rdr.Read()
		require.NoError(t, err)
		if form == nil {
			break
		}
		node, err := an.Analyze(th, nil, form)
		require.NoError(t, err)
		nodes = append(nodes, node)
	}
	v, err := theVM.Eval(th, nil, nodes)
	require.NoError(t, err)
	return v
}

func TestVMEvalConstantsAndArithmetic(t *testing.T) {
	theVM, an, th := newFixture(t)
	assert.Equal(t, runtime.NewInt(7), evalSrc(t, theVM, an, th, `(+ 3 4)`))
}

func TestVMEvalIf(t *testing.T) {
	theVM, an, th := newFixture(t)
	assert.Equal(t, runtime.NewInt(1), evalSrc(t, theVM, an, th, `(if true 1 2)`))
	assert.Equal(t, runtime.NewInt(2), evalSrc(t, theVM, an, th, `(if false 1 2)`))
	assert.Equal(t, runtime.Nil, evalSrc(t, theVM, an, th, `(if false 1)`))
}

func TestVMEvalLet(t *testing.T) {
	theVM, an, th := newFixture(t)
	assert.Equal(t, runtime.NewInt(30), evalSrc(t, theVM, an, th, `(let [x 10 y 20] (+ x y))`))
}

func TestVMEvalLoopRecurRebindsInPlace(t *testing.T) {
	theVM, an, th := newFixture(t)
	got := evalSrc(t, theVM, an, th, `
(loop [i 0 acc 1]
  (if (< i 4)
    (recur (+ i 1) (* acc 2))
    acc))`)
	assert.Equal(t, runtime.NewInt(16), got)
}

func TestVMEvalDefAndVarRef(t *testing.T) {
	theVM, an, th := newFixture(t)
	evalSrc(t, theVM, an, th, `(def x 99)`)
	assert.Equal(t, runtime.NewInt(99), evalSrc(t, theVM, an, th, `x`))
}

func TestVMCallClosureFreshFrameRecur(t *testing.T) {
	theVM, an, th := newFixture(t)
	evalSrc(t, theVM, an, th, `
(def sum-to (fn sum-to [n acc]
  (if (= n 0) acc (recur (- n 1) (+ acc n)))))`)
	got := evalSrc(t, theVM, an, th, `(sum-to 100 0)`)
	assert.Equal(t, runtime.NewInt(5050), got)
}

func TestVMCallClosureCachesCompiledChunkPerClause(t *testing.T) {
	theVM, an, th := newFixture(t)
	evalSrc(t, theVM, an, th, `(def double (fn [x] (* x 2)))`)

	v, ok := an.Env.Resolve(th, "", "double")
	require.True(t, ok)
	fn, ok := v.Deref(th).(*runtime.Fn)
	require.True(t, ok)

	assert.Equal(t, runtime.NewInt(4), mustCall(t, theVM, th, fn, runtime.NewInt(2)))
	require.NotNil(t, fn.Compiled)
	assert.Equal(t, runtime.NewInt(6), mustCall(t, theVM, th, fn, runtime.NewInt(3)))
}

func mustCall(t *testing.T, theVM *vm.VM, th *runtime.Thread, fn *runtime.Fn, args ...runtime.Value) runtime.Value {
	t.Helper()
	v, err := theVM.CallClosure(th, fn, args)
	require.NoError(t, err)
	return v
}

func TestVMCallClosureWrongArityErrors(t *testing.T) {
	theVM, an, th := newFixture(t)
	evalSrc(t, theVM, an, th, `(def needs-two (fn [a b] (+ a b)))`)

	v, ok := an.Env.Resolve(th, "", "needs-two")
	require.True(t, ok)
	fn := v.Deref(th).(*runtime.Fn)

	_, err := theVM.CallClosure(th, fn, []runtime.Value{runtime.NewInt(1)})
	assert.Error(t, err)
}
