package ast_test

import (
	"testing"

	"github.com/candela-lang/candela/internal/ast"
	"github.com/stretchr/testify/assert"
)

func TestNewConstantCarriesPositionAndValue(t *testing.T) {
	pos := ast.Pos{File: "<test>", Line: 3, Column: 1}
	c := ast.NewConstant(pos, 42)
	assert.Equal(t, pos, c.Position())
	assert.Equal(t, 42, c.Value)
}

func TestNewLocalRefFields(t *testing.T) {
	pos := ast.Pos{File: "<test>", Line: 1, Column: 1}
	r := ast.NewLocalRef(pos, "x", 2)
	assert.Equal(t, "x", r.Name)
	assert.Equal(t, 2, r.Depth)
	assert.Equal(t, pos, r.Position())
}

func TestNewVarRefFields(t *testing.T) {
	pos := ast.Pos{File: "<test>", Line: 1, Column: 1}
	r := ast.NewVarRef(pos, "ns", "name")
	assert.Equal(t, "ns", r.Namespace)
	assert.Equal(t, "name", r.Name)
}

func TestEveryNodeKindSatisfiesNodeInterface(t *testing.T) {
	pos := ast.Pos{}
	var nodes = []ast.Node{
		ast.NewConstant(pos, nil),
		ast.NewLocalRef(pos, "x", 0),
		ast.NewVarRef(pos, "", "y"),
		&ast.If{},
		&ast.Do{},
		&ast.Let{},
		&ast.Loop{},
		&ast.Recur{},
		&ast.Fn{},
		&ast.Call{},
		&ast.Def{},
		&ast.LetFn{},
	}
	for _, n := range nodes {
		assert.NotNil(t, n)
		_ = n.Position()
	}
}

func TestDefFlagsDefaultToFalse(t *testing.T) {
	d := &ast.Def{Name: "x"}
	assert.False(t, d.Flags.Dynamic)
	assert.False(t, d.Flags.Macro)
	assert.False(t, d.Flags.Private)
	assert.False(t, d.Flags.Const)
}
