package stdlib_test

import (
	"testing"
	"time"

	"github.com/candela-lang/candela/internal/analyzer"
	"github.com/candela-lang/candela/internal/pool"
	"github.com/candela-lang/candela/internal/reader"
	"github.com/candela-lang/candela/internal/runtime"
	"github.com/candela-lang/candela/internal/stdlib"
	"github.com/candela-lang/candela/internal/treewalk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFixture(t *testing.T) (*treewalk.Evaluator, *analyzer.Analyzer, *runtime.Thread) {
	t.Helper()
	env := runtime.NewEnv("user")
	p := pool.New(2, nil)
	t.Cleanup(p.Shutdown)
	stdlib.Install(env, p)
	ev := treewalk.New(env)
	runtime.InstallBackend(ev)
	return ev, analyzer.New(env), env.NewThread()
}

func evalSrc(t *testing.T, ev *treewalk.Evaluator, an *analyzer.Analyzer, th *runtime.Thread, src string) runtime.Value {
	t.Helper()
	rdr := reader.New("<test>", src)
	var result runtime.Value = runtime.Nil
	for {
		form, err := rdr.Read()
		require.NoError(t, err)
		if form == nil {
			return result
		}
		node, err := an.Analyze(th, nil, form)
		require.NoError(t, err)
		v, err := ev.Eval(th, nil, node)
		require.NoError(t, err)
		result = v
	}
}

func TestCoreArithmeticIsVisibleUnqualified(t *testing.T) {
	ev, an, th := newFixture(t)
	assert.Equal(t, runtime.NewInt(10), evalSrc(t, ev, an, th, `(+ 1 2 3 4)`))
	assert.Equal(t, runtime.NewInt(2), evalSrc(t, ev, an, th, `(/ 10 5)`))
	assert.Equal(t, runtime.True, evalSrc(t, ev, an, th, `(= 1 1 1)`))
	assert.Equal(t, runtime.False, evalSrc(t, ev, an, th, `(= 1 1 2)`))
}

func TestCoreVisibleQualifiedToo(t *testing.T) {
	ev, an, th := newFixture(t)
	assert.Equal(t, runtime.NewInt(5), evalSrc(t, ev, an, th, `(candela.core/+ 2 3)`))
}

func TestReduceFirstRestCons(t *testing.T) {
	ev, an, th := newFixture(t)
	got := evalSrc(t, ev, an, th, `(reduce (fn [acc x] (+ acc x)) 0 (cons 1 (cons 2 (cons 3 nil))))`)
	assert.Equal(t, runtime.NewInt(6), got)
	assert.Equal(t, runtime.NewInt(1), evalSrc(t, ev, an, th, `(first (cons 1 nil))`))
}

func TestReduceOverFilterOfMap(t *testing.T) {
	ev, an, th := newFixture(t)
	got := evalSrc(t, ev, an, th, `
(reduce (fn [acc x] (+ acc x)) 0
  (filter (fn [x] (< 2 x))
    (map (fn [x] (* x x)) (cons 1 (cons 2 (cons 3 nil))))))`)
	// squares: 1 4 9; filter >2: 4 9; sum: 13
	assert.Equal(t, runtime.NewInt(13), got)
}

func TestAtomSwapAndReset(t *testing.T) {
	ev, an, th := newFixture(t)
	evalSrc(t, ev, an, th, `(def counter (atom 0))`)
	got := evalSrc(t, ev, an, th, `(swap! counter (fn [x] (+ x 1)))`)
	assert.Equal(t, runtime.NewInt(1), got)
	got = evalSrc(t, ev, an, th, `(reset! counter 100)`)
	assert.Equal(t, runtime.NewInt(100), got)
	assert.Equal(t, runtime.NewInt(100), evalSrc(t, ev, an, th, `(deref counter)`))
}

func TestAgentSendAppliesActionAsynchronously(t *testing.T) {
	ev, an, th := newFixture(t)
	evalSrc(t, ev, an, th, `(def a (agent 0))`)
	evalSrc(t, ev, an, th, `(send a (fn [x] (+ x 1)))`)

	v, ok := an.Env.Resolve(th, "", "a")
	require.True(t, ok)
	agent := v.Deref(th).(*runtime.Agent)

	deadline := time.Now().Add(2 * time.Second)
	for agent.Deref() != runtime.NewInt(1) && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	assert.Equal(t, runtime.NewInt(1), agent.Deref())
}

func TestFutureAndAwait(t *testing.T) {
	ev, an, th := newFixture(t)
	evalSrc(t, ev, an, th, `(def f (future (fn [] (+ 20 22))))`)
	assert.Equal(t, runtime.NewInt(42), evalSrc(t, ev, an, th, `(await f)`))
}
