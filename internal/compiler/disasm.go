package compiler

import (
	"fmt"
	"io"
	"strings"

	"github.com/candela-lang/candela/internal/runtime"
)

// String mirrors the teacher's disasm.go convention of naming each opcode
// for debug output rather than printing its bare integer value.
func (op OpCode) String() string {
	switch op {
	case OpConst:
		return "OpConst"
	case OpLocalRef:
		return "OpLocalRef"
	case OpVarRef:
		return "OpVarRef"
	case OpPop:
		return "OpPop"
	case OpIf:
		return "OpIf"
	case OpLet:
		return "OpLet"
	case OpLoop:
		return "OpLoop"
	case OpRecur:
		return "OpRecur"
	case OpMakeFn:
		return "OpMakeFn"
	case OpLetFn:
		return "OpLetFn"
	case OpCall:
		return "OpCall"
	case OpDef:
		return "OpDef"
	default:
		return fmt.Sprintf("Op(%d)", int(op))
	}
}

// Disassemble writes a human-readable listing of chunk to w, recursing
// into every nested Chunk (If branches, Let/Loop bodies and initializers)
// at increasing indentation, generalizing the teacher's
// Disassembler.Disassemble/DisassembleInstruction pair to candela's
// structured (rather than jump-addressed) instruction shape.
func Disassemble(w io.Writer, name string, chunk *Chunk) {
	disasm(w, name, chunk, 0)
}

func disasm(w io.Writer, name string, chunk *Chunk, depth int) {
	pad := strings.Repeat("  ", depth)
	fmt.Fprintf(w, "%s== %s ==\n", pad, name)
	if len(chunk.Consts) > 0 {
		fmt.Fprintf(w, "%sconstants:\n", pad)
		for i, c := range chunk.Consts {
			fmt.Fprintf(w, "%s  [%04d] %s\n", pad, i, runtime.PrStr(c))
		}
	}
	for i, instr := range chunk.Code {
		fmt.Fprintf(w, "%s%04d %s%s\n", pad, i, instr.Op, operandString(instr))
		switch instr.Op {
		case OpIf:
			if instr.Then != nil {
				disasm(w, "then", instr.Then, depth+1)
			}
			if instr.Else != nil {
				disasm(w, "else", instr.Else, depth+1)
			}
		case OpLet, OpLoop:
			for j, init := range instr.Inits {
				disasm(w, "init "+instr.Names[j], init, depth+1)
			}
			disasm(w, "body", instr.Body, depth+1)
		case OpLetFn:
			disasm(w, "body", instr.Body, depth+1)
		}
	}
}

func operandString(instr Instr) string {
	switch instr.Op {
	case OpConst:
		return fmt.Sprintf(" %d", instr.A)
	case OpLocalRef:
		return " " + instr.Str
	case OpVarRef:
		if instr.Str == "" {
			return " " + instr.Str2
		}
		return " " + instr.Str + "/" + instr.Str2
	case OpCall, OpRecur:
		return fmt.Sprintf(" argc=%d", instr.A)
	case OpDef:
		return " " + instr.Str
	case OpLet, OpLoop:
		return " (" + strings.Join(instr.Names, " ") + ")"
	case OpMakeFn:
		return " " + instr.Fn.Name
	case OpLetFn:
		return " (" + strings.Join(instr.Names, " ") + ")"
	}
	return ""
}
