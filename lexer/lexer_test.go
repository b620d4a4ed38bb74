package lexer

import (
	"github.com/IvyMycelia/myco/token"
	"testing"
)

func tokenTypes(toks []token.Token) []token.TokenType {
	types := make([]token.TokenType, len(toks))
	for i, tok := range toks {
		types[i] = tok.TokenType
	}
	return types
}

func assertTypes(t *testing.T, got []token.TokenType, want []token.TokenType) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d tokens, want %d: got=%v want=%v", len(got), len(want), got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestOperatorsSuccess(t *testing.T) {
	scanner := New("==/=*+>-<!=<=>=!!")
	got, err := scanner.Scan()
	if err != nil {
		t.Fatalf("scanner.Scan() raised an error: %v", err)
	}

	want := []token.TokenType{
		token.EQUAL_EQUAL, token.DIV, token.ASSIGN, token.MULT, token.ADD,
		token.LARGER, token.SUB, token.LESS, token.NOT_EQUAL,
		token.LESS_EQUAL, token.LARGER_EQUAL, token.BANG, token.BANG,
		token.EOF,
	}
	assertTypes(t, tokenTypes(got), want)
}

func TestScanSuccess(t *testing.T) {
	scanner := New("(){}**;+!=<=")
	got, err := scanner.Scan()
	if err != nil {
		t.Fatalf("scanner.Scan() raised an error: %v", err)
	}

	want := []token.TokenType{
		token.LPA, token.RPA, token.LCUR, token.RCUR, token.POWER,
		token.SEMICOLON, token.ADD, token.NOT_EQUAL, token.LESS_EQUAL,
		token.EOF,
	}
	assertTypes(t, tokenTypes(got), want)
}

func TestScanBitwiseAndShiftOperators(t *testing.T) {
	scanner := New("& | ^ << >>")
	got, err := scanner.Scan()
	if err != nil {
		t.Fatalf("scanner.Scan() raised an error: %v", err)
	}

	want := []token.TokenType{
		token.BIT_AND, token.BIT_OR, token.BIT_XOR, token.SHL, token.SHR,
		token.EOF,
	}
	assertTypes(t, tokenTypes(got), want)
}

func TestScanRangeOperators(t *testing.T) {
	scanner := New("1..10 1..=10")
	got, err := scanner.Scan()
	if err != nil {
		t.Fatalf("scanner.Scan() raised an error: %v", err)
	}

	want := []token.TokenType{
		token.INT, token.RANGE, token.INT,
		token.INT, token.RANGE_INCLUSIVE, token.INT,
		token.EOF,
	}
	assertTypes(t, tokenTypes(got), want)
}

func TestScanArrowAndBrackets(t *testing.T) {
	scanner := New("[x] => {}")
	got, err := scanner.Scan()
	if err != nil {
		t.Fatalf("scanner.Scan() raised an error: %v", err)
	}

	want := []token.TokenType{
		token.LBRACKET, token.IDENTIFIER, token.RBRACKET, token.ARROW,
		token.LCUR, token.RCUR, token.EOF,
	}
	assertTypes(t, tokenTypes(got), want)
}

func TestScanKeywords(t *testing.T) {
	scanner := New("fn class try catch finally throw match spore case use as show export self")
	got, err := scanner.Scan()
	if err != nil {
		t.Fatalf("scanner.Scan() raised an error: %v", err)
	}

	want := []token.TokenType{
		token.FUNC, token.CLASS, token.TRY, token.CATCH, token.FINALLY,
		token.THROW, token.MATCH, token.MATCH, token.CASE, token.USE,
		token.AS, token.SHOW, token.EXPORT, token.SELF, token.EOF,
	}
	assertTypes(t, tokenTypes(got), want)
}

func TestStringLiteralEscapes(t *testing.T) {
	scanner := New(`"hello\nworld\t\"quoted\""`)
	got, err := scanner.Scan()
	if err != nil {
		t.Fatalf("scanner.Scan() raised an error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d tokens, want 2 (STRING, EOF): %v", len(got), got)
	}
	want := "hello\nworld\t\"quoted\""
	if got[0].Literal != want {
		t.Errorf("string literal = %q, want %q", got[0].Literal, want)
	}
}

func TestUnclosedStringLiteralReturnsError(t *testing.T) {
	scanner := New(`"unterminated`)
	_, err := scanner.Scan()
	if err == nil {
		t.Fatal("expected an error for an unclosed string literal")
	}
}

func TestNumberLiterals(t *testing.T) {
	scanner := New("42 3.14")
	got, err := scanner.Scan()
	if err != nil {
		t.Fatalf("scanner.Scan() raised an error: %v", err)
	}
	assertTypes(t, tokenTypes(got), []token.TokenType{token.INT, token.FLOAT, token.EOF})
	if got[0].Literal != int64(42) {
		t.Errorf("int literal = %v, want 42", got[0].Literal)
	}
	if got[1].Literal != 3.14 {
		t.Errorf("float literal = %v, want 3.14", got[1].Literal)
	}
}

func TestCommentsAreSkipped(t *testing.T) {
	scanner := New("1 + 1 # this is a comment\n")
	got, err := scanner.Scan()
	if err != nil {
		t.Fatalf("scanner.Scan() raised an error: %v", err)
	}
	assertTypes(t, tokenTypes(got), []token.TokenType{token.INT, token.ADD, token.INT, token.EOF})
}
