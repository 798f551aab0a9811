// Package compiler lowers the analyzer's ast.Node tree into Chunk, the flat
// instruction form internal/vm executes. It generalizes the teacher's
// internal/bytecode compiler (AST walk emitting OpCode-tagged instructions
// into a constant-pooled chunk) to candela's smaller AST and to a
// structured-operand design: most opcodes carry nested Chunks for their
// subexpressions (If/Let/Loop/LetFn) rather than absolute jump targets,
// since candela's compiler only needs to drive spec.md §8's scenarios
// through the dual-backend compare harness, not serve as a general-purpose
// instruction-set target.
package compiler

import (
	"github.com/candela-lang/candela/internal/ast"
	"github.com/candela-lang/candela/internal/runtime"
)

// OpCode tags each Instr the same way the teacher's bytecode.OpCode does,
// though candela's set is a dozen structured operations rather than the
// teacher's 100+ flat, jump-addressed ones.
type OpCode int

const (
	OpConst OpCode = iota
	OpLocalRef
	OpVarRef
	OpPop
	OpIf
	OpLet
	OpLoop
	OpRecur
	OpMakeFn
	OpLetFn
	OpCall
	OpDef
)

// Instr is one bytecode operation. Not every field is meaningful for every
// Op; the comment on each field names the Ops that use it.
type Instr struct {
	Op   OpCode
	A    int    // OpConst: const pool index. OpRecur/OpCall: argument count.
	Str  string // OpLocalRef: name. OpVarRef: namespace. OpDef: name.
	Str2 string // OpVarRef: name.

	Then, Else *Chunk // OpIf

	Names []string // OpLet/OpLoop/OpLetFn: binding/param names
	Inits []*Chunk // OpLet/OpLoop: one initializer chunk per Names entry
	Body  *Chunk   // OpLet/OpLoop/OpLetFn: body chunk

	Fn  *ast.Fn   // OpMakeFn
	Fns []*ast.Fn // OpLetFn, parallel to Names

	DefFlags ast.DefFlags // OpDef
	HasInit  bool         // OpDef: whether an init value precedes this Instr

	Pos    ast.Pos   // OpCall: the call node's own position, as a fallback anchor
	ArgPos []ast.Pos // OpCall: per-argument positions, parallel to the popped args
}

// Chunk is a compiled unit: a flat instruction sequence plus the constant
// pool its OpConst instructions index into. One Chunk compiles one
// body (a fn clause, a let/loop body, a top-level form sequence).
type Chunk struct {
	Code   []Instr
	Consts []runtime.Value
}

func (c *Chunk) addConst(v runtime.Value) int {
	c.Consts = append(c.Consts, v)
	return len(c.Consts) - 1
}

// Compile compiles body (a sequence of forms evaluated for its last value,
// Clojure's `do` semantics) into a Chunk.
func Compile(body []ast.Node) (*Chunk, error) {
	ch := &Chunk{}
	if err := compileBodyInto(ch, body); err != nil {
		return nil, err
	}
	return ch, nil
}

// compileBodyInto appends body's instructions to ch, leaving exactly one
// value on the operand stack: the last form's result, discarding every
// earlier one via OpPop. An empty body pushes nil.
func compileBodyInto(ch *Chunk, body []ast.Node) error {
	if len(body) == 0 {
		ch.Code = append(ch.Code, Instr{Op: OpConst, A: ch.addConst(runtime.Nil)})
		return nil
	}
	for i, n := range body {
		if err := compileNode(ch, n); err != nil {
			return err
		}
		if i < len(body)-1 {
			ch.Code = append(ch.Code, Instr{Op: OpPop})
		}
	}
	return nil
}

func compileNode(ch *Chunk, node ast.Node) error {
	switch n := node.(type) {
	case *ast.Constant:
		v, _ := n.Value.(runtime.Value)
		if v == nil {
			v = runtime.Nil
		}
		ch.Code = append(ch.Code, Instr{Op: OpConst, A: ch.addConst(v)})
		return nil

	case *ast.LocalRef:
		ch.Code = append(ch.Code, Instr{Op: OpLocalRef, Str: n.Name})
		return nil

	case *ast.VarRef:
		ch.Code = append(ch.Code, Instr{Op: OpVarRef, Str: n.Namespace, Str2: n.Name})
		return nil

	case *ast.If:
		if err := compileNode(ch, n.Test); err != nil {
			return err
		}
		thenCh, err := Compile([]ast.Node{n.Then})
		if err != nil {
			return err
		}
		instr := Instr{Op: OpIf, Then: thenCh}
		if n.Else != nil {
			elseCh, err := Compile([]ast.Node{n.Else})
			if err != nil {
				return err
			}
			instr.Else = elseCh
		}
		ch.Code = append(ch.Code, instr)
		return nil

	case *ast.Do:
		return compileBodyInto(ch, n.Body)

	case *ast.Let:
		names, inits, err := compileBindings(n.Bindings)
		if err != nil {
			return err
		}
		bodyCh, err := Compile(n.Body)
		if err != nil {
			return err
		}
		ch.Code = append(ch.Code, Instr{Op: OpLet, Names: names, Inits: inits, Body: bodyCh})
		return nil

	case *ast.Loop:
		names, inits, err := compileBindings(n.Bindings)
		if err != nil {
			return err
		}
		bodyCh, err := Compile(n.Body)
		if err != nil {
			return err
		}
		ch.Code = append(ch.Code, Instr{Op: OpLoop, Names: names, Inits: inits, Body: bodyCh})
		return nil

	case *ast.Recur:
		for _, a := range n.Args {
			if err := compileNode(ch, a); err != nil {
				return err
			}
		}
		ch.Code = append(ch.Code, Instr{Op: OpRecur, A: len(n.Args)})
		return nil

	case *ast.Fn:
		ch.Code = append(ch.Code, Instr{Op: OpMakeFn, Fn: n})
		return nil

	case *ast.LetFn:
		bodyCh, err := Compile(n.Body)
		if err != nil {
			return err
		}
		ch.Code = append(ch.Code, Instr{Op: OpLetFn, Names: n.Names, Fns: n.Fns, Body: bodyCh})
		return nil

	case *ast.Def:
		hasInit := n.Init != nil
		if hasInit {
			if err := compileNode(ch, n.Init); err != nil {
				return err
			}
		}
		ch.Code = append(ch.Code, Instr{Op: OpDef, Str: n.Name, DefFlags: n.Flags, HasInit: hasInit})
		return nil

	case *ast.Call:
		if err := compileNode(ch, n.Callee); err != nil {
			return err
		}
		argPos := make([]ast.Pos, len(n.Args))
		for i, a := range n.Args {
			if err := compileNode(ch, a); err != nil {
				return err
			}
			argPos[i] = a.Position()
		}
		ch.Code = append(ch.Code, Instr{Op: OpCall, A: len(n.Args), Pos: n.Position(), ArgPos: argPos})
		return nil
	}

	return runtime.NewError(runtime.ErrInternal, runtime.PhaseAnalyze, -1, runtime.ErrMsgUnknownASTNode, node)
}

func compileBindings(bindings []ast.Binding) ([]string, []*Chunk, error) {
	names := make([]string, len(bindings))
	inits := make([]*Chunk, len(bindings))
	for i, b := range bindings {
		names[i] = b.Name
		initCh, err := Compile([]ast.Node{b.Init})
		if err != nil {
			return nil, nil, err
		}
		inits[i] = initCh
	}
	return names, inits, nil
}
