package parser

import (
	"github.com/IvyMycelia/myco/ast"
	"github.com/IvyMycelia/myco/lexer"
	"testing"
)

func parseSource(t *testing.T, source string) []ast.Stmt {
	t.Helper()
	toks, err := lexer.New(source).Scan()
	if err != nil {
		t.Fatalf("lexer.Scan() raised an error: %v", err)
	}
	stmts, errs := Make(toks).Parse()
	if len(errs) != 0 {
		t.Fatalf("Parse() returned errors: %v", errs)
	}
	return stmts
}

func TestParseVarDeclaration(t *testing.T) {
	stmts := parseSource(t, "var x = 1 + 2;")
	if len(stmts) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(stmts))
	}
	varStmt, ok := stmts[0].(ast.VarStmt)
	if !ok {
		t.Fatalf("expected VarStmt, got %T", stmts[0])
	}
	if varStmt.Name.Lexeme != "x" {
		t.Errorf("expected name 'x', got %q", varStmt.Name.Lexeme)
	}
	if _, ok := varStmt.Initializer.(ast.Binary); !ok {
		t.Errorf("expected a Binary initializer, got %T", varStmt.Initializer)
	}
}

func TestParseIfElifElse(t *testing.T) {
	stmts := parseSource(t, `
		if x > 0 { print "pos"; }
		elif x < 0 { print "neg"; }
		else { print "zero"; }
	`)
	if len(stmts) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(stmts))
	}
	ifStmt, ok := stmts[0].(ast.IfStmt)
	if !ok {
		t.Fatalf("expected IfStmt, got %T", stmts[0])
	}
	elifStmt, ok := ifStmt.Else.(ast.IfStmt)
	if !ok {
		t.Fatalf("expected elif to desugar into a nested IfStmt, got %T", ifStmt.Else)
	}
	if elifStmt.Else == nil {
		t.Errorf("expected the elif's else branch to be present")
	}
}

func TestParseFunctionDeclaration(t *testing.T) {
	stmts := parseSource(t, `fn add(a: number, b: number) => number { return a + b; }`)
	fnStmt, ok := stmts[0].(ast.FunctionStmt)
	if !ok {
		t.Fatalf("expected FunctionStmt, got %T", stmts[0])
	}
	if fnStmt.Name.Lexeme != "add" {
		t.Errorf("expected name 'add', got %q", fnStmt.Name.Lexeme)
	}
	if len(fnStmt.Params) != 2 {
		t.Fatalf("expected 2 params, got %d", len(fnStmt.Params))
	}
	if fnStmt.ReturnType != "number" {
		t.Errorf("expected return type 'number', got %q", fnStmt.ReturnType)
	}
}

func TestParseClassWithParent(t *testing.T) {
	stmts := parseSource(t, `
		class Animal {
			var name;
			fn speak() { print self.name; }
		}
		class Dog : Animal {
			var breed;
		}
	`)
	if len(stmts) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(stmts))
	}
	dog, ok := stmts[1].(ast.ClassStmt)
	if !ok {
		t.Fatalf("expected ClassStmt, got %T", stmts[1])
	}
	if !dog.HasParent || dog.Parent.Lexeme != "Animal" {
		t.Errorf("expected Dog to inherit from Animal, got HasParent=%v Parent=%q", dog.HasParent, dog.Parent.Lexeme)
	}
}

func TestParseTryCatchFinally(t *testing.T) {
	stmts := parseSource(t, `
		try {
			throw "boom";
		} catch (e) {
			print e;
		} finally {
			print "done";
		}
	`)
	tryStmt, ok := stmts[0].(ast.TryStmt)
	if !ok {
		t.Fatalf("expected TryStmt, got %T", stmts[0])
	}
	if tryStmt.CatchName.Lexeme != "e" {
		t.Errorf("expected catch name 'e', got %q", tryStmt.CatchName.Lexeme)
	}
	if tryStmt.Finally == nil {
		t.Errorf("expected a finally block")
	}
}

func TestParseMatchStatement(t *testing.T) {
	stmts := parseSource(t, `
		match x {
			case 1 => print "one";
			case string => print "a string";
			case _ => print "other";
		}
	`)
	matchStmt, ok := stmts[0].(ast.MatchStmt)
	if !ok {
		t.Fatalf("expected MatchStmt, got %T", stmts[0])
	}
	if len(matchStmt.Cases) != 2 {
		t.Fatalf("expected 2 non-wildcard cases, got %d", len(matchStmt.Cases))
	}
	if matchStmt.Else == nil {
		t.Errorf("expected the wildcard case to populate Else")
	}
	if _, ok := matchStmt.Cases[0].Pattern.(ast.LiteralPattern); !ok {
		t.Errorf("expected case 0 to be a LiteralPattern, got %T", matchStmt.Cases[0].Pattern)
	}
	if _, ok := matchStmt.Cases[1].Pattern.(ast.TypePattern); !ok {
		t.Errorf("expected case 1 to be a TypePattern, got %T", matchStmt.Cases[1].Pattern)
	}
}

func TestParseSwitchStatement(t *testing.T) {
	stmts := parseSource(t, `
		switch x {
			case 1 => print "one";
			case 2 => print "two";
			case _ => print "other";
		}
	`)
	switchStmt, ok := stmts[0].(ast.MatchStmt)
	if !ok {
		t.Fatalf("expected switch to parse to a MatchStmt, got %T", stmts[0])
	}
	if len(switchStmt.Cases) != 2 {
		t.Fatalf("expected 2 non-wildcard cases, got %d", len(switchStmt.Cases))
	}
	if switchStmt.Else == nil {
		t.Errorf("expected the wildcard case to populate Else")
	}
	for i, c := range switchStmt.Cases {
		if _, ok := c.Pattern.(ast.LiteralPattern); !ok {
			t.Errorf("expected case %d to be a LiteralPattern, got %T", i, c.Pattern)
		}
	}
}

func TestParseSwitchRejectsTypePattern(t *testing.T) {
	toks, err := lexer.New(`
		switch x {
			case string => print "a string";
		}
	`).Scan()
	if err != nil {
		t.Fatalf("lexer.Scan() error: %v", err)
	}
	_, errs := Make(toks).Parse()
	if len(errs) == 0 {
		t.Fatal("expected a parse error for a type pattern in a switch case")
	}
}

func TestParseForLoopOverRange(t *testing.T) {
	stmts := parseSource(t, `for i in 0..10 { print i; }`)
	forStmt, ok := stmts[0].(ast.ForStmt)
	if !ok {
		t.Fatalf("expected ForStmt, got %T", stmts[0])
	}
	if forStmt.Iterator.Lexeme != "i" {
		t.Errorf("expected iterator 'i', got %q", forStmt.Iterator.Lexeme)
	}
	rangeExpr, ok := forStmt.Collection.(ast.Range)
	if !ok {
		t.Fatalf("expected a Range collection, got %T", forStmt.Collection)
	}
	if rangeExpr.Inclusive {
		t.Errorf("expected an exclusive range")
	}
}

func TestParseIndexAndMemberAssignment(t *testing.T) {
	stmts := parseSource(t, `
		arr[0] = 1;
		obj.field = 2;
	`)
	if len(stmts) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(stmts))
	}
	first := stmts[0].(ast.ExpressionStmt).Expression.(ast.Assign)
	if _, ok := first.Target.(ast.Index); !ok {
		t.Errorf("expected an Index assignment target, got %T", first.Target)
	}
	second := stmts[1].(ast.ExpressionStmt).Expression.(ast.Assign)
	if _, ok := second.Target.(ast.Member); !ok {
		t.Errorf("expected a Member assignment target, got %T", second.Target)
	}
}

func TestParseLambdaExpression(t *testing.T) {
	stmts := parseSource(t, `var square = fn(x) => x * x;`)
	varStmt := stmts[0].(ast.VarStmt)
	lambda, ok := varStmt.Initializer.(ast.Lambda)
	if !ok {
		t.Fatalf("expected a Lambda initializer, got %T", varStmt.Initializer)
	}
	if len(lambda.Params) != 1 || lambda.Params[0].Name.Lexeme != "x" {
		t.Errorf("expected a single param 'x', got %v", lambda.Params)
	}
	if len(lambda.Body) != 1 {
		t.Fatalf("expected the lambda body to desugar to a single return statement")
	}
	if _, ok := lambda.Body[0].(ast.ReturnStmt); !ok {
		t.Errorf("expected a ReturnStmt, got %T", lambda.Body[0])
	}
}

func TestParseMethodCallChain(t *testing.T) {
	stmts := parseSource(t, `list.push(1).toString();`)
	exprStmt := stmts[0].(ast.ExpressionStmt)
	outer, ok := exprStmt.Expression.(ast.MethodCall)
	if !ok {
		t.Fatalf("expected an outer MethodCall, got %T", exprStmt.Expression)
	}
	if outer.Name.Lexeme != "toString" {
		t.Errorf("expected outer call 'toString', got %q", outer.Name.Lexeme)
	}
	if _, ok := outer.Object.(ast.MethodCall); !ok {
		t.Errorf("expected the receiver to be the chained 'push' MethodCall, got %T", outer.Object)
	}
}

func TestParseUseShowStatement(t *testing.T) {
	stmts := parseSource(t, `use math show sqrt, pow as power;`)
	useStmt, ok := stmts[0].(ast.UseStmt)
	if !ok {
		t.Fatalf("expected UseStmt, got %T", stmts[0])
	}
	if useStmt.Library.Lexeme != "math" {
		t.Errorf("expected library 'math', got %q", useStmt.Library.Lexeme)
	}
	if len(useStmt.ShowNames) != 2 {
		t.Fatalf("expected 2 shown names, got %d", len(useStmt.ShowNames))
	}
	if useStmt.ShowAliases[1].Lexeme != "power" {
		t.Errorf("expected pow's alias to be 'power', got %q", useStmt.ShowAliases[1].Lexeme)
	}
}

func TestParseInvalidAssignmentTargetIsAnError(t *testing.T) {
	toks, err := lexer.New("1 + 1 = 2;").Scan()
	if err != nil {
		t.Fatalf("lexer.Scan() raised an error: %v", err)
	}
	_, errs := Make(toks).Parse()
	if len(errs) == 0 {
		t.Fatal("expected a syntax error for an invalid assignment target")
	}
}
