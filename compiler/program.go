package compiler

import (
	"fmt"
	"strings"

	"github.com/IvyMycelia/myco/ast"
)

// Instruction is a single bytecode instruction: an opcode plus up to three
// integer operands, exactly as spec §4.2 specifies the `Program.code`
// element shape ("three integer operands"). This replaces the teacher's
// byte-packed `Instructions []byte` + `binary.BigEndian` encoding - a
// deliberate deviation from the teacher's *encoding* while keeping its
// compiler *architecture* (locals, scope depth, jump backpatching).
type Instruction struct {
	Op Opcode
	A  int
	B  int
	C  int
}

// FunctionDef is a compiled function or lambda body, stored in
// Program.Functions and referenced by the function-id operand of
// DEFINE_FUNCTION, CREATE_LAMBDA and FOR_LOOP.
type FunctionDef struct {
	Name       string
	ParamNames []string
	Code       []Instruction
}

// Program is the compiler's output per spec §4.2.
type Program struct {
	Code          []Instruction
	Constants     []any
	NumConstants  []float64
	AstRefs       []ast.Stmt
	LocalNames    []string
	Functions     []FunctionDef
	GlobalNames   []string
}

// Disassemble renders a Program as a human-readable instruction listing,
// the generalized form of informatter-nilan's ASTCompiler.DiassembleBytecode
// (which only handled the teacher's byte-packed encoding and a handful of
// opcodes) - here every instruction already carries named operands, so
// disassembly is a straight one-line-per-instruction walk rather than a
// decode pass.
func Disassemble(p *Program) string {
	var b strings.Builder
	disassembleBlock(&b, "main", p.Code, p)
	for i, fn := range p.Functions {
		b.WriteString(fmt.Sprintf("\nfunction %d (%s):\n", i, fn.Name))
		disassembleBlock(&b, fn.Name, fn.Code, p)
	}
	return b.String()
}

func disassembleBlock(b *strings.Builder, label string, code []Instruction, p *Program) {
	for i, instr := range code {
		b.WriteString(fmt.Sprintf("%04d %-20s", i, instr.Op.String()))
		switch instr.Op {
		case LOAD_CONST:
			if instr.A >= 0 && instr.A < len(p.Constants) {
				b.WriteString(fmt.Sprintf(" %d (%v)", instr.A, p.Constants[instr.A]))
			} else {
				b.WriteString(fmt.Sprintf(" %d", instr.A))
			}
		case LOAD_GLOBAL, STORE_GLOBAL, LOAD_VAR, PROPERTY_ACCESS, PROPERTY_SET,
			CALL_BUILTIN, IMPORT_LIB:
			if instr.A >= 0 && instr.A < len(p.Constants) {
				b.WriteString(fmt.Sprintf(" %d (%v)", instr.A, p.Constants[instr.A]))
			} else {
				b.WriteString(fmt.Sprintf(" %d", instr.A))
			}
			if instr.B != 0 {
				b.WriteString(fmt.Sprintf(" %d", instr.B))
			}
		default:
			if instr.A != 0 || instr.B != 0 || instr.C != 0 {
				b.WriteString(fmt.Sprintf(" a=%d b=%d c=%d", instr.A, instr.B, instr.C))
			}
		}
		b.WriteString("\n")
	}
}
