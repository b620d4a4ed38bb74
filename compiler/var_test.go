package compiler

import (
	"testing"

	"github.com/IvyMycelia/myco/lexer"
	"github.com/IvyMycelia/myco/parser"
)

func TestBlockLocalDoesNotLeakToOuterScope(t *testing.T) {
	program := compileSource(t, `
		var x = 1;
		{ var x = 2; print x; }
		print x;
	`)
	// First print reads the shadowing block-local (LOAD_LOCAL); the second
	// reads the outer global (LOAD_GLOBAL), once the block's local has been
	// popped back off by its POP(1) on scope exit.
	var sawLocalLoad, sawGlobalLoadAfterBlock bool
	seenBlockPop := false
	for _, instr := range program.Code {
		if instr.Op == LOAD_LOCAL {
			sawLocalLoad = true
		}
		if instr.Op == POP && instr.A == 1 {
			seenBlockPop = true
		}
		if seenBlockPop && instr.Op == LOAD_GLOBAL {
			sawGlobalLoadAfterBlock = true
		}
	}
	if !sawLocalLoad {
		t.Errorf("expected the block-scoped x to compile to a LOAD_LOCAL, got %v", opSequence(program.Code))
	}
	if !sawGlobalLoadAfterBlock {
		t.Errorf("expected the outer x after the block to compile to a LOAD_GLOBAL, got %v", opSequence(program.Code))
	}
}

func TestNestedBlockLocalsGetDistinctSlots(t *testing.T) {
	program := compileSource(t, `
		{
			var a = 1;
			{ var b = 2; print a + b; }
		}
	`)
	var storeSlots []int
	for _, instr := range program.Code {
		if instr.Op == STORE_LOCAL {
			storeSlots = append(storeSlots, instr.A)
		}
	}
	if len(storeSlots) != 2 || storeSlots[0] == storeSlots[1] {
		t.Errorf("expected two distinct local slots for a and b, got %v", storeSlots)
	}
}

func TestFunctionParamsGetTheirOwnFrameSlotsStartingAtZero(t *testing.T) {
	program := compileSource(t, `fn f(a, b, c) { return b; }`)
	fn := program.Functions[0]
	// `return b` should load slot 1 - b's position in the parameter list -
	// independent of whatever slot numbers are in use in the enclosing frame.
	found := false
	for _, instr := range fn.Code {
		if instr.Op == LOAD_LOCAL && instr.A == 1 {
			found = true
		}
	}
	if !found {
		t.Errorf("expected LOAD_LOCAL slot 1 for parameter b, got %v", opSequence(fn.Code))
	}
}

func TestRedeclaringAParamNameInsideTheBodyIsASemanticError(t *testing.T) {
	toks, err := lexer.New(`fn f(a) { var a = 1; }`).Scan()
	if err != nil {
		t.Fatalf("lexer.Scan() error: %v", err)
	}
	stmts, errs := parser.Make(toks).Parse()
	if len(errs) != 0 {
		t.Fatalf("unexpected parse errors: %v", errs)
	}
	_, err = Compile(stmts)
	if err == nil {
		t.Fatal("expected a SemanticError for redeclaring parameter a as a local in the body")
	}
	if _, ok := err.(SemanticError); !ok {
		t.Fatalf("expected a SemanticError, got %T", err)
	}
}
