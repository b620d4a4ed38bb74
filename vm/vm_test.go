package vm

import (
	"bytes"
	"strings"
	"testing"

	"github.com/IvyMycelia/myco/compiler"
	"github.com/IvyMycelia/myco/lexer"
	"github.com/IvyMycelia/myco/parser"
	"github.com/IvyMycelia/myco/value"
)

// compileAndRunSource lexes, parses, and compiles source, then executes it
// against a fresh VM - used to exercise compiler+VM agreement end to end,
// as opposed to the hand-built compiler.Program literals most of this
// file's tests use.
func compileAndRunSource(t *testing.T, source string) (value.Value, string) {
	t.Helper()
	toks, err := lexer.New(source).Scan()
	if err != nil {
		t.Fatalf("lexer.Scan() error: %v", err)
	}
	stmts, errs := parser.Make(toks).Parse()
	if len(errs) != 0 {
		t.Fatalf("Parse() errors: %v", errs)
	}
	program, err := compiler.Compile(stmts)
	if err != nil {
		t.Fatalf("Compile() error: %v", err)
	}
	return runProgram(t, program)
}

func runProgram(t *testing.T, p *compiler.Program) (value.Value, string) {
	t.Helper()
	var out bytes.Buffer
	m := New(&out)
	result, err := m.Run(p)
	if err != nil {
		t.Fatalf("Run returned an error: %v", err)
	}
	return result, out.String()
}

func TestLoadConstAndHalt(t *testing.T) {
	p := &compiler.Program{
		Constants: []any{5.0},
		Code: []compiler.Instruction{
			{Op: compiler.LOAD_CONST, A: 0},
			{Op: compiler.HALT},
		},
	}
	result, _ := runProgram(t, p)
	n, ok := result.(value.Number)
	if !ok || n.Value != 5 {
		t.Errorf("got %v, want Number(5)", result)
	}
}

func TestArithmeticAdd(t *testing.T) {
	p := &compiler.Program{
		Constants: []any{2.0, 3.0},
		Code: []compiler.Instruction{
			{Op: compiler.LOAD_CONST, A: 0},
			{Op: compiler.LOAD_CONST, A: 1},
			{Op: compiler.ADD},
			{Op: compiler.HALT},
		},
	}
	result, _ := runProgram(t, p)
	n, ok := result.(value.Number)
	if !ok || n.Value != 5 {
		t.Errorf("got %v, want Number(5)", result)
	}
}

func TestGlobalStoreAndLoad(t *testing.T) {
	p := &compiler.Program{
		Constants: []any{"x", 42.0},
		Code: []compiler.Instruction{
			{Op: compiler.LOAD_CONST, A: 1},
			{Op: compiler.STORE_GLOBAL, A: 0},
			{Op: compiler.LOAD_GLOBAL, A: 0},
			{Op: compiler.HALT},
		},
	}
	result, _ := runProgram(t, p)
	n, ok := result.(value.Number)
	if !ok || n.Value != 42 {
		t.Errorf("got %v, want Number(42)", result)
	}
}

func TestPrintWritesToOut(t *testing.T) {
	p := &compiler.Program{
		Constants: []any{"hello"},
		Code: []compiler.Instruction{
			{Op: compiler.LOAD_CONST, A: 0},
			{Op: compiler.PRINT},
			{Op: compiler.HALT},
		},
	}
	_, out := runProgram(t, p)
	if strings.TrimSpace(out) != "hello" {
		t.Errorf("got output %q, want %q", out, "hello")
	}
}

func TestDivisionByZeroUncaughtReportsAndContinues(t *testing.T) {
	// Per §7, an uncaught (non-fatal) error is reported to stderr and
	// execution resumes at the next instruction with Null left on the
	// stack - it does not abort the program the way StackOverflow would.
	p := &compiler.Program{
		Constants: []any{1.0, 0.0, "done"},
		Code: []compiler.Instruction{
			{Op: compiler.LOAD_CONST, A: 0},
			{Op: compiler.LOAD_CONST, A: 1},
			{Op: compiler.DIV},
			{Op: compiler.POP},
			{Op: compiler.LOAD_CONST, A: 2},
			{Op: compiler.HALT},
		},
	}
	result, _ := runProgram(t, p)
	s, ok := result.(value.String)
	if !ok || s.Value != "done" {
		t.Errorf("got %v, want String(done)", result)
	}
}

func TestUserFunctionCallAndReturn(t *testing.T) {
	// Function body resolves its own parameter by name via LOAD_VAR, the
	// same resolution path a nested-frame read uses.
	p := &compiler.Program{
		Constants: []any{"double", 21.0, "n"},
		Functions: []compiler.FunctionDef{
			{
				Name:       "double",
				ParamNames: []string{"n"},
				Code: []compiler.Instruction{
					{Op: compiler.LOAD_VAR, A: 2},
					{Op: compiler.LOAD_VAR, A: 2},
					{Op: compiler.ADD},
					{Op: compiler.RETURN},
				},
			},
		},
		Code: []compiler.Instruction{
			{Op: compiler.DEFINE_FUNCTION, A: 0, B: 0},
			{Op: compiler.LOAD_CONST, A: 1},
			{Op: compiler.CALL_USER_FUNCTION, A: 0, B: 1},
			{Op: compiler.HALT},
		},
	}
	result, _ := runProgram(t, p)
	n, ok := result.(value.Number)
	if !ok || n.Value != 42 {
		t.Errorf("got %v, want Number(42)", result)
	}
}

func TestArrayCreateAndIndex(t *testing.T) {
	p := &compiler.Program{
		Constants: []any{10.0, 20.0, 30.0, 1.0},
		Code: []compiler.Instruction{
			{Op: compiler.LOAD_CONST, A: 0},
			{Op: compiler.LOAD_CONST, A: 1},
			{Op: compiler.LOAD_CONST, A: 2},
			{Op: compiler.CREATE_ARRAY, A: 3},
			{Op: compiler.LOAD_CONST, A: 3},
			{Op: compiler.ARRAY_GET},
			{Op: compiler.HALT},
		},
	}
	result, _ := runProgram(t, p)
	n, ok := result.(value.Number)
	if !ok || n.Value != 20 {
		t.Errorf("got %v, want Number(20)", result)
	}
}

func TestTryCatchBindsThrownValue(t *testing.T) {
	// try { throw "boom"; } catch (e) { e }
	p := &compiler.Program{
		Constants: []any{"boom", "e"},
		Code: []compiler.Instruction{
			{Op: compiler.TRY_START},
			{Op: compiler.LOAD_CONST, A: 0},
			{Op: compiler.THROW},
			{Op: compiler.TRY_END},
			{Op: compiler.JUMP, A: 7},
			{Op: compiler.CATCH, A: 1},
			{Op: compiler.LOAD_VAR, A: 1},
			{Op: compiler.HALT},
		},
	}
	result, _ := runProgram(t, p)
	s, ok := result.(value.String)
	if !ok || s.Value != "boom" {
		t.Errorf("got %v, want String(boom)", result)
	}
}

func TestForLoopOverRange(t *testing.T) {
	// for i in 0..3 { print i; } - the loop body is its own FunctionDef,
	// matching VisitForStmt's compilation strategy.
	p := &compiler.Program{
		Constants: []any{0.0, 3.0},
		Functions: []compiler.FunctionDef{
			{
				Name:       "$forBody",
				ParamNames: []string{"i"},
				Code: []compiler.Instruction{
					{Op: compiler.LOAD_VAR, A: 2},
					{Op: compiler.PRINT},
					{Op: compiler.RETURN},
				},
			},
		},
	}
	p.Constants = append(p.Constants, "i")
	p.Code = []compiler.Instruction{
		{Op: compiler.LOAD_CONST, A: 0},
		{Op: compiler.LOAD_CONST, A: 1},
		{Op: compiler.CREATE_RANGE, A: 0},
		{Op: compiler.FOR_LOOP, A: 0},
		{Op: compiler.HALT},
	}
	_, out := runProgram(t, p)
	got := strings.Fields(out)
	want := []string{"0", "1", "2"}
	if len(got) != len(want) {
		t.Fatalf("got output %q, want 3 lines", out)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

// TestSwitchLowersToMatchOpcodesAndPicksFirstMatchingCase exercises the
// `switch` keyword end to end: it should parse to the same ast.MatchStmt
// `match` produces and execute through compiler.VisitMatchStmt's existing
// PATTERN_LITERAL/MATCH_END lowering with no fallthrough between cases.
func TestSwitchLowersToMatchOpcodesAndPicksFirstMatchingCase(t *testing.T) {
	_, out := compileAndRunSource(t, `
		var x = 2;
		switch x {
			case 1 => print "one";
			case 2 => print "two";
			case _ => print "other";
		}
	`)
	if strings.TrimSpace(out) != "two" {
		t.Errorf("got output %q, want \"two\"", out)
	}
}

func TestSwitchFallsBackToWildcardCase(t *testing.T) {
	_, out := compileAndRunSource(t, `
		var x = 99;
		switch x {
			case 1 => print "one";
			case _ => print "other";
		}
	`)
	if strings.TrimSpace(out) != "other" {
		t.Errorf("got output %q, want \"other\"", out)
	}
}

// TestLogicalOrShortCircuitsAndNeverCallsRight guards against the VM's
// JUMP_IF_FALSE always popping its operand (compiler.VisitLogicalExpression
// must not assume it peeks): `true or boom()` must print "True" without
// ever calling boom, and without leaving a corrupted stack behind.
func TestLogicalOrShortCircuitsAndNeverCallsRight(t *testing.T) {
	_, out := compileAndRunSource(t, `
		fn boom() { throw "boom"; }
		print true or boom();
	`)
	if strings.TrimSpace(out) != "True" {
		t.Errorf("got output %q, want \"True\"", out)
	}
}

func TestLogicalAndShortCircuitsAndNeverCallsRight(t *testing.T) {
	_, out := compileAndRunSource(t, `
		fn boom() { throw "boom"; }
		print false and boom();
	`)
	if strings.TrimSpace(out) != "False" {
		t.Errorf("got output %q, want \"False\"", out)
	}
}

// TestLogicalOrEvaluatesRightAndCanonicalizesItsTruthiness guards the
// fall-through path: when Left is falsy, Right is evaluated and its
// truthiness (not its raw value) becomes the expression's result.
func TestLogicalOrEvaluatesRightAndCanonicalizesItsTruthiness(t *testing.T) {
	_, out := compileAndRunSource(t, `print false or 5;`)
	if strings.TrimSpace(out) != "True" {
		t.Errorf("got output %q, want \"True\" (5 is truthy)", out)
	}
}

func TestLogicalAndEvaluatesRightAndCanonicalizesItsTruthiness(t *testing.T) {
	_, out := compileAndRunSource(t, `print true and 0;`)
	if strings.TrimSpace(out) != "False" {
		t.Errorf("got output %q, want \"False\" (0 is falsy)", out)
	}
}

// TestForLoopBreakStopsIterationEarly guards against break/continue sharing
// one jump target inside a for-body's sub-program: without a distinct
// break signal, FOR_LOOP has no way to stop early and this would print
// every element instead of stopping at 3.
func TestForLoopBreakStopsIterationEarly(t *testing.T) {
	_, out := compileAndRunSource(t, `
		for i in 0..10 {
			if i == 3 { break; }
			print i;
		}
	`)
	got := strings.Fields(out)
	want := []string{"0", "1", "2"}
	if len(got) != len(want) {
		t.Fatalf("got output %q, want 3 lines (0, 1, 2)", out)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

// compileAndRunSourceExpectingError is compileAndRunSource's counterpart for
// tests that exercise the error path itself rather than treating any error
// as a test failure.
func compileAndRunSourceExpectingError(t *testing.T, source string) error {
	t.Helper()
	toks, err := lexer.New(source).Scan()
	if err != nil {
		t.Fatalf("lexer.Scan() error: %v", err)
	}
	stmts, errs := parser.Make(toks).Parse()
	if len(errs) != 0 {
		t.Fatalf("Parse() errors: %v", errs)
	}
	program, err := compiler.Compile(stmts)
	if err != nil {
		t.Fatalf("Compile() error: %v", err)
	}
	m := New(&bytes.Buffer{})
	_, err = m.Run(program)
	return err
}

func TestStackOverflowCarriesALeafToRootCallTrace(t *testing.T) {
	err := compileAndRunSourceExpectingError(t, `
		fn recurse(n) {
			return recurse(n + 1);
		}
		recurse(0);
	`)
	if err == nil {
		t.Fatal("expected unbounded recursion to return an error")
	}
	trace, ok := StackTrace(err)
	if !ok {
		t.Fatalf("expected a TracedError, got %T: %v", err, err)
	}
	if !strings.Contains(trace, "recurse") {
		t.Errorf("expected the trace to mention 'recurse', got %q", trace)
	}
	lines := strings.Count(trace, "\n")
	if lines < 2 {
		t.Errorf("expected multiple call-frame lines in the trace, got %q", trace)
	}
}

// TestForLoopContinueSkipsOneElementWithoutStopping ensures continue still
// only skips its own iteration (not fixed by the break change, but a
// regression here would mean the two got tangled together).
func TestForLoopContinueSkipsOneElementWithoutStopping(t *testing.T) {
	_, out := compileAndRunSource(t, `
		for i in 0..4 {
			if i == 1 { continue; }
			print i;
		}
	`)
	got := strings.Fields(out)
	want := []string{"0", "2", "3"}
	if len(got) != len(want) {
		t.Fatalf("got output %q, want 3 lines (0, 2, 3)", out)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d: got %q, want %q", i, got[i], want[i])
		}
	}
}
