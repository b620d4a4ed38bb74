package compiler

import (
	"testing"
)

// These tests compile larger, multi-feature programs (closer to spec §8's
// end-to-end scenarios) and check structural properties of the resulting
// Program rather than exact instruction-by-instruction sequences, which the
// narrower unit tests in compiler_test.go/var_test.go/code_test.go already
// cover.

func TestIntegrationClosureCapturesOuterBindingAtCallTime(t *testing.T) {
	program := compileSource(t, `
		var counter = 0;
		fn makeIncrementer() {
			return fn() => counter;
		}
		var inc = makeIncrementer();
	`)
	if len(program.Functions) != 2 {
		t.Fatalf("expected 2 function table entries (makeIncrementer + its lambda), got %d", len(program.Functions))
	}
	// The lambda nested inside makeIncrementer's body finishes compiling -
	// and so registers its function-table entry - before makeIncrementer's
	// own entry is appended, so it lands at index 0, not 1.
	lambda := program.Functions[0]
	if lambda.Name != "<lambda>" {
		t.Fatalf("expected function table entry 0 to be the lambda, got %+v", lambda)
	}
	foundLoadVar := false
	for _, instr := range lambda.Code {
		if instr.Op == LOAD_VAR {
			foundLoadVar = true
		}
	}
	if !foundLoadVar {
		t.Errorf("expected the lambda body to resolve the free variable 'counter' via LOAD_VAR, got %v", opSequence(lambda.Code))
	}
}

func TestIntegrationClassWithInheritanceCompilesParentReference(t *testing.T) {
	program := compileSource(t, `
		class Animal {
			var name = "";
			fn speak() { return "..."; }
		}
		class Dog : Animal {
			fn speak() { return "woof"; }
		}
	`)
	if len(program.AstRefs) != 2 {
		t.Fatalf("expected 2 class AST refs, got %d", len(program.AstRefs))
	}
	foundCreateClassWithParent := false
	for _, instr := range program.Code {
		if instr.Op == CREATE_CLASS && instr.B != -1 {
			foundCreateClassWithParent = true
		}
	}
	if !foundCreateClassWithParent {
		t.Errorf("expected a CREATE_CLASS instruction with a parent operand for Dog, got %v", opSequence(program.Code))
	}
}

func TestIntegrationForLoopOverRangeCompilesToSubProgram(t *testing.T) {
	program := compileSource(t, `
		for i in 0..10 {
			print i;
		}
	`)
	if len(program.Functions) != 1 {
		t.Fatalf("expected the for-body to compile to 1 function table entry, got %d", len(program.Functions))
	}
	body := program.Functions[0]
	if len(body.ParamNames) != 1 || body.ParamNames[0] != "i" {
		t.Errorf("expected the for-body's sole param to be the iterator 'i', got %+v", body.ParamNames)
	}
	foundForLoop := false
	for _, instr := range program.Code {
		if instr.Op == FOR_LOOP {
			foundForLoop = true
			if instr.A != 0 {
				t.Errorf("expected FOR_LOOP to reference function table index 0, got %d", instr.A)
			}
		}
	}
	if !foundForLoop {
		t.Errorf("expected a FOR_LOOP instruction, got %v", opSequence(program.Code))
	}
}

func TestIntegrationTryCatchInsideLoopPatchesBreakAcrossTry(t *testing.T) {
	program := compileSource(t, `
		while true {
			try {
				break;
			} catch (e) {
				print e;
			}
		}
	`)
	sawTryStart, sawBreak, sawLoopEnd := false, false, false
	for _, instr := range program.Code {
		switch instr.Op {
		case TRY_START:
			sawTryStart = true
		case BREAK:
			sawBreak = true
		case LOOP_END:
			sawLoopEnd = true
		}
	}
	if !sawTryStart || !sawBreak || !sawLoopEnd {
		t.Errorf("expected TRY_START, BREAK, and LOOP_END all present, got %v", opSequence(program.Code))
	}
}

func TestIntegrationNestedFunctionsEachGetOwnFunctionTableEntry(t *testing.T) {
	program := compileSource(t, `
		fn outer(x) {
			fn inner(y) {
				return y;
			}
			return inner(x);
		}
	`)
	if len(program.Functions) != 2 {
		t.Fatalf("expected 2 function table entries (outer, inner), got %d", len(program.Functions))
	}
	// inner's own compileFunctionBody call runs to completion - and so
	// registers its function-table entry - while outer's body is still being
	// compiled, so inner lands at index 0 and outer at index 1.
	names := []string{program.Functions[0].Name, program.Functions[1].Name}
	if names[0] != "inner" || names[1] != "outer" {
		t.Errorf("expected function table order [inner, outer], got %v", names)
	}
}

func TestIntegrationModuleImportWithSelectiveShowAndAlias(t *testing.T) {
	program := compileSource(t, `use collections as coll show map as transform, filter;`)
	var importInstr *Instruction
	for i := range program.Code {
		if program.Code[i].Op == IMPORT_LIB {
			importInstr = &program.Code[i]
		}
	}
	if importInstr == nil {
		t.Fatal("expected an IMPORT_LIB instruction")
	}
	if program.Constants[importInstr.A] != "collections" {
		t.Errorf("expected library name 'collections', got %v", program.Constants[importInstr.A])
	}
	if importInstr.B == -1 {
		t.Errorf("expected a module alias operand for 'as coll'")
	}
	if importInstr.C == -1 {
		t.Errorf("expected a show-list operand for the selective import")
	}
}

// The parser desugars a wildcard case into MatchStmt.Else (see parser's
// match-statement production), so the compiler never emits PATTERN_WILDCARD
// for it in practice - it only tests the non-wildcard cases, then
// unconditionally falls through to the compiled Else block.
func TestIntegrationMatchWithWildcardFallsThroughToElse(t *testing.T) {
	program := compileSource(t, `
		match 5 {
			case 1 => print "one";
			case _ => print "other";
		}
	`)
	literalTests := 0
	for _, instr := range program.Code {
		if instr.Op == PATTERN_LITERAL {
			literalTests++
		}
	}
	if literalTests != 1 {
		t.Errorf("expected exactly 1 PATTERN_LITERAL test (the '1' case only), got %d in %v", literalTests, opSequence(program.Code))
	}
	foundMatchEnd := false
	for _, instr := range program.Code {
		if instr.Op == MATCH_END {
			foundMatchEnd = true
		}
	}
	if !foundMatchEnd {
		t.Errorf("expected a MATCH_END instruction, got %v", opSequence(program.Code))
	}
}
