package compiler_test

import (
	"strings"
	"testing"

	"github.com/candela-lang/candela/internal/analyzer"
	"github.com/candela-lang/candela/internal/ast"
	"github.com/candela-lang/candela/internal/compiler"
	"github.com/candela-lang/candela/internal/reader"
	"github.com/candela-lang/candela/internal/runtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFixture(t *testing.T) (*analyzer.Analyzer, *runtime.Thread) {
	t.Helper()
	env := runtime.NewEnv("user")
	return analyzer.New(env), env.NewThread()
}

func analyzeAll(t *testing.T, an *analyzer.Analyzer, th *runtime.Thread, src string) []ast.Node {
	t.Helper()
	rdr := reader.New("<test>", src)
	var nodes []ast.Node
	for {
		form, err := rdr.Read()
		require.NoError(t, err)
		if form == nil {
			return nodes
		}
		node, err := an.Analyze(th, nil, form)
		require.NoError(t, err)
		nodes = append(nodes, node)
	}
}

func TestCompileConstant(t *testing.T) {
	an, th := newFixture(t)
	nodes := analyzeAll(t, an, th, `42`)
	chunk, err := compiler.Compile(nodes)
	require.NoError(t, err)
	require.Len(t, chunk.Code, 1)
	assert.Equal(t, compiler.OpConst, chunk.Code[0].Op)
	assert.Equal(t, runtime.NewInt(42), chunk.Consts[chunk.Code[0].A])
}

func TestCompileIfProducesNestedChunks(t *testing.T) {
	an, th := newFixture(t)
	nodes := analyzeAll(t, an, th, `(if true 1 2)`)
	chunk, err := compiler.Compile(nodes)
	require.NoError(t, err)

	var ifInstr *compiler.Instr
	for i := range chunk.Code {
		if chunk.Code[i].Op == compiler.OpIf {
			ifInstr = &chunk.Code[i]
		}
	}
	require.NotNil(t, ifInstr)
	require.NotNil(t, ifInstr.Then)
	require.NotNil(t, ifInstr.Else)
	assert.Equal(t, compiler.OpConst, ifInstr.Then.Code[0].Op)
	assert.Equal(t, compiler.OpConst, ifInstr.Else.Code[0].Op)
}

func TestCompileLetBindsNamesAndInits(t *testing.T) {
	an, th := newFixture(t)
	nodes := analyzeAll(t, an, th, `(let [x 1 y 2] (+ x y))`)
	chunk, err := compiler.Compile(nodes)
	require.NoError(t, err)

	require.Len(t, chunk.Code, 1)
	letInstr := chunk.Code[0]
	assert.Equal(t, compiler.OpLet, letInstr.Op)
	assert.Equal(t, []string{"x", "y"}, letInstr.Names)
	require.Len(t, letInstr.Inits, 2)
	require.NotNil(t, letInstr.Body)
}

func TestCompileBodySequencesWithPop(t *testing.T) {
	an, th := newFixture(t)
	nodes := analyzeAll(t, an, th, `1 2 3`)
	chunk, err := compiler.Compile(nodes)
	require.NoError(t, err)

	var ops []compiler.OpCode
	for _, instr := range chunk.Code {
		ops = append(ops, instr.Op)
	}
	assert.Equal(t, []compiler.OpCode{
		compiler.OpConst, compiler.OpPop,
		compiler.OpConst, compiler.OpPop,
		compiler.OpConst,
	}, ops)
}

func TestCompileEmptyBodyYieldsNilConstant(t *testing.T) {
	chunk, err := compiler.Compile(nil)
	require.NoError(t, err)
	require.Len(t, chunk.Code, 1)
	assert.Equal(t, compiler.OpConst, chunk.Code[0].Op)
	assert.Equal(t, runtime.Nil, chunk.Consts[chunk.Code[0].A])
}

func TestDisassembleRecursesIntoNestedChunks(t *testing.T) {
	an, th := newFixture(t)
	nodes := analyzeAll(t, an, th, `(if true 1 2)`)
	chunk, err := compiler.Compile(nodes)
	require.NoError(t, err)

	var buf strings.Builder
	compiler.Disassemble(&buf, "test", chunk)
	out := buf.String()
	assert.Contains(t, out, "OpIf")
	assert.Contains(t, out, "then")
	assert.Contains(t, out, "else")
}
