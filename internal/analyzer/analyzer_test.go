package analyzer_test

import (
	"testing"

	"github.com/candela-lang/candela/internal/analyzer"
	"github.com/candela-lang/candela/internal/ast"
	"github.com/candela-lang/candela/internal/reader"
	"github.com/candela-lang/candela/internal/runtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func analyzeSrc(t *testing.T, an *analyzer.Analyzer, th *runtime.Thread, src string) ast.Node {
	t.Helper()
	form, err := reader.New("<test>", src).Read()
	require.NoError(t, err)
	require.NotNil(t, form)
	node, err := an.Analyze(th, nil, form)
	require.NoError(t, err)
	return node
}

func TestAnalyzeLocalVsVarRef(t *testing.T) {
	env := runtime.NewEnv("user")
	an := analyzer.New(env)
	th := env.NewThread()

	node := analyzeSrc(t, an, th, `(let [x 1] (+ x unresolved))`)
	let, ok := node.(*ast.Let)
	require.True(t, ok)
	require.Len(t, let.Body, 1)
	call, ok := let.Body[0].(*ast.Call)
	require.True(t, ok)
	require.Len(t, call.Args, 2)

	localX, ok := call.Args[0].(*ast.LocalRef)
	require.True(t, ok)
	assert.Equal(t, "x", localX.Name)

	varRef, ok := call.Args[1].(*ast.VarRef)
	require.True(t, ok)
	assert.Equal(t, "unresolved", varRef.Name)
}

func TestAnalyzeInNSCreatesAndSwitchesNamespaceImmediately(t *testing.T) {
	env := runtime.NewEnv("user")
	an := analyzer.New(env)
	th := env.NewThread()
	require.Equal(t, "user", th.CurrentNS.Name)

	analyzeSrc(t, an, th, `(in-ns my.ns)`)

	assert.Equal(t, "my.ns", th.CurrentNS.Name)
	_, ok := env.Find("my.ns")
	assert.True(t, ok)

	// A def analyzed right after in-ns yields a Def node for the name, but
	// analysis alone does not intern the var in the new namespace.
	node := analyzeSrc(t, an, th, `(def greeting "hi")`)
	def, ok := node.(*ast.Def)
	require.True(t, ok)
	assert.Equal(t, "greeting", def.Name)

	myNS, _ := env.Find("my.ns")
	_, exists := myNS.Lookup("greeting")
	assert.False(t, exists, "analysis alone must not define the var, only evaluation does")
}

func TestAnalyzeDefFlags(t *testing.T) {
	env := runtime.NewEnv("user")
	an := analyzer.New(env)
	th := env.NewThread()

	node := analyzeSrc(t, an, th, `(def x 1)`)
	def := node.(*ast.Def)
	assert.False(t, def.Flags.Dynamic)
	assert.False(t, def.Flags.Macro)
}

func TestAnalyzeFnVariadicParams(t *testing.T) {
	env := runtime.NewEnv("user")
	an := analyzer.New(env)
	th := env.NewThread()

	node := analyzeSrc(t, an, th, `(fn [a & rest] rest)`)
	fn := node.(*ast.Fn)
	require.Len(t, fn.Clauses, 1)
	assert.True(t, fn.Clauses[0].Variadic)
	assert.Equal(t, []string{"a", "rest"}, fn.Clauses[0].Params)
}

func TestAnalyzeRecurArgs(t *testing.T) {
	env := runtime.NewEnv("user")
	an := analyzer.New(env)
	th := env.NewThread()

	node := analyzeSrc(t, an, th, `(loop [i 0] (recur (+ i 1)))`)
	loop := node.(*ast.Loop)
	require.Len(t, loop.Body, 1)
	recur, ok := loop.Body[0].(*ast.Recur)
	require.True(t, ok)
	require.Len(t, recur.Args, 1)
}
