package pipeline_test

import (
	"testing"

	"github.com/candela-lang/candela/internal/ast"
	"github.com/candela-lang/candela/internal/pipeline"
	"github.com/candela-lang/candela/internal/pool"
	"github.com/candela-lang/candela/internal/reader"
	"github.com/candela-lang/candela/internal/runtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPipeline(t *testing.T, backend pipeline.Backend) (*pipeline.Pipeline, *runtime.Thread) {
	t.Helper()
	p := pool.New(2, nil)
	t.Cleanup(p.Shutdown)
	pl := pipeline.Boot(backend, p)
	return pl, pl.Env.NewThread()
}

func TestEvalStringArithmeticAndLet(t *testing.T) {
	for _, backend := range []pipeline.Backend{pipeline.BackendTreeWalk, pipeline.BackendVM} {
		pl, th := newPipeline(t, backend)
		v, err := pl.EvalString(th, "<test>", `(let [x 2 y 3] (+ x (* y 10)))`, nil)
		require.NoError(t, err)
		assert.Equal(t, runtime.NewInt(32), v)
	}
}

func TestEvalStringDefAndVarRef(t *testing.T) {
	for _, backend := range []pipeline.Backend{pipeline.BackendTreeWalk, pipeline.BackendVM} {
		pl, th := newPipeline(t, backend)
		_, err := pl.EvalString(th, "<test>", `(def answer 42)`, nil)
		require.NoError(t, err)
		v, err := pl.EvalString(th, "<test>", `answer`, nil)
		require.NoError(t, err)
		assert.Equal(t, runtime.NewInt(42), v)
	}
}

func TestEvalStringLoopRecur(t *testing.T) {
	for _, backend := range []pipeline.Backend{pipeline.BackendTreeWalk, pipeline.BackendVM} {
		pl, th := newPipeline(t, backend)
		v, err := pl.EvalString(th, "<test>", `
(loop [i 0 acc 0]
  (if (< i 5)
    (recur (+ i 1) (+ acc i))
    acc))`, nil)
		require.NoError(t, err)
		assert.Equal(t, runtime.NewInt(10), v)
	}
}

func TestEvalStringFnCallAndRecur(t *testing.T) {
	for _, backend := range []pipeline.Backend{pipeline.BackendTreeWalk, pipeline.BackendVM} {
		pl, th := newPipeline(t, backend)
		v, err := pl.EvalString(th, "<test>", `
(def fact (fn fact [n acc]
  (if (= n 0) acc (recur (- n 1) (* acc n)))))
(fact 5 1)`, nil)
		require.NoError(t, err)
		assert.Equal(t, runtime.NewInt(120), v)
	}
}

func TestEvalStringInNSSwitchesCurrentNamespace(t *testing.T) {
	pl, th := newPipeline(t, pipeline.BackendTreeWalk)

	_, err := pl.EvalString(th, "<test>", `(in-ns other.ns) (def greeting "hi")`, nil)
	require.NoError(t, err)

	require.NotNil(t, th.CurrentNS)
	assert.Equal(t, "other.ns", th.CurrentNS.Name)

	otherNS, ok := pl.Env.Find("other.ns")
	require.True(t, ok)
	v, ok := otherNS.Lookup("greeting")
	require.True(t, ok)
	assert.Equal(t, runtime.NewString("hi"), v.Deref(th))
}

func TestEvalStringFormObserverSeesEveryTopLevelForm(t *testing.T) {
	pl, th := newPipeline(t, pipeline.BackendTreeWalk)

	var seen []runtime.Value
	obs := func(node ast.Node, result runtime.Value, err error) {
		require.NoError(t, err)
		seen = append(seen, result)
	}
	_, err := pl.EvalString(th, "<test>", `1 2 3`, obs)
	require.NoError(t, err)
	assert.Equal(t, []runtime.Value{runtime.NewInt(1), runtime.NewInt(2), runtime.NewInt(3)}, seen)
}

func TestCompareMatchesOnSideEffectFreeExpressions(t *testing.T) {
	pl, th := newPipeline(t, pipeline.BackendTreeWalk)

	results, err := pl.CompareString(th, "<test>", `(+ 1 2) (* 3 4) (if true 1 2) (let [x 5] (* x x))`)
	require.NoError(t, err)
	require.Len(t, results, 4)
	for i, r := range results {
		assert.Truef(t, r.Match, "form %d mismatched: tw=%v/%v vm=%v/%v diff=%s", i, r.TWValue, r.TWError, r.VMValue, r.VMError, r.Diff)
	}
}

// Compare genuinely runs node through both back ends (documented in
// pipeline.go), so a side-effecting node like a `swap!` is executed
// twice against the same atom and legitimately mismatches on its second
// run's return value — this is the caveat Compare's doc comment calls
// out, not a bug in either evaluator.
func TestCompareReportsMismatchOnSideEffectingNode(t *testing.T) {
	pl, th := newPipeline(t, pipeline.BackendTreeWalk)
	_, err := pl.EvalString(th, "<test>", `(def counter (atom 0))`, nil)
	require.NoError(t, err)

	form, err := reader.New("<test>", `(swap! counter (fn [x] (+ x 1)))`).Read()
	require.NoError(t, err)
	node, err := pl.Analyzer.Analyze(th, nil, form)
	require.NoError(t, err)

	res := pl.Compare(th, node)
	assert.False(t, res.Match)
	assert.Equal(t, runtime.NewInt(1), res.TWValue)
	assert.Equal(t, runtime.NewInt(2), res.VMValue)
	assert.NotEmpty(t, res.Diff)
}
