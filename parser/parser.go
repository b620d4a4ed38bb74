// Recursive descent parser with Pratt-style precedence climbing for expressions.
// https://en.wikipedia.org/wiki/Recursive_descent_parser

//	A Recursive descent parser is a top-down parser because it starts from the top
//
// grammar rule and works its way down in to the nested sub-experessions before reaching
// the leaves of the syntax tree (terminal rules)
package parser

import (
	"fmt"
	"github.com/IvyMycelia/myco/ast"
	"github.com/IvyMycelia/myco/token"
)

var equalityTokenTypes = []token.TokenType{
	token.NOT_EQUAL,
	token.EQUAL_EQUAL,
}

var comparisonTokenTypes = []token.TokenType{
	token.LARGER,
	token.LARGER_EQUAL,
	token.LESS,
	token.LESS_EQUAL,
}

var termTokenTypes = []token.TokenType{
	token.SUB,
	token.ADD,
}

var factorExpressionTypes = []token.TokenType{
	token.MULT,
	token.DIV,
	token.MOD,
}

var unaryExpressionTypes = []token.TokenType{
	token.BANG,
	token.SUB,

	// NOTE: not supported operands on unary expressions are included
	// So they can be parsed, but then the compiler can throw a more detailed
	// error message. This is known as "error productions"
	token.MULT,
	token.ADD,
	token.DIV,
}

// typeNames are the well-known type tags recognised by a TypePattern arm
// in a match/spore case, per spec §4.1's Value variants.
var typeNames = map[string]bool{
	"number": true, "string": true, "bool": true, "array": true,
	"map": true, "set": true, "null": true, "function": true,
	"object": true, "class": true, "module": true, "range": true,
}

type Parser struct {
	tokens   []token.Token
	position int
}

// NOTE: The parsers position is always one unit ahead of the
// current token

// Make initializes and returns a new Parser instance over the given tokens.
func Make(tokens []token.Token) *Parser {
	return &Parser{
		tokens:   tokens,
		position: 0,
	}
}

// Print prints the AST as prettified JSON to standard output.
func (parser *Parser) Print(statements []ast.Stmt) {
	_, err := PrintASTJSON(statements)
	if err != nil {
		fmt.Println("error producing AST JSON:", err)
	}
}

// PrintToFile writes the AST for the provided statements to a .json file at the given path.
func (parser *Parser) PrintToFile(statements []ast.Stmt, path string) error {
	return WriteASTJSONToFile(statements, path)
}

// peek returns the token at the parser's current position, without advancing.
func (parser *Parser) peek() token.Token {
	return parser.tokens[parser.position]
}

// peekNext returns the token one past the parser's current position.
func (parser *Parser) peekNext() token.Token {
	if parser.position+1 >= len(parser.tokens) {
		return parser.tokens[len(parser.tokens)-1]
	}
	return parser.tokens[parser.position+1]
}

// previous retrieves the token at the parser's previous position (position-1).
func (parser *Parser) previous() token.Token {
	return parser.tokens[parser.position-1]
}

// advance increments the parser's position by one unit and consumes the current token.
func (parser *Parser) advance() token.Token {
	if !parser.isFinished() {
		parser.position++
	}
	return parser.previous()
}

// isFinished determines if the parser has consumed all the tokens.
func (parser *Parser) isFinished() bool {
	tok := parser.peek()
	return tok.TokenType == token.EOF
}

// checkType determines if the provided tokenType matches the TokenType
// at the parser's current position.
func (parser *Parser) checkType(tokenType token.TokenType) bool {
	if parser.isFinished() {
		return false
	}
	tok := parser.peek()
	return tok.TokenType == tokenType
}

// isMatch determines if the TokenType at the current position matches any
// of the provided tokenTypes. If a match is found the parser advances past it.
func (parser *Parser) isMatch(tokenTypes []token.TokenType) bool {
	for i := range tokenTypes {
		tokenType := tokenTypes[i]

		if parser.checkType(tokenType) {
			parser.advance()
			return true
		}
	}
	return false
}

// Parse parses the entire token stream into a slice of Stmt (statement) nodes,
// continuing until the end of input. Errors during parsing are collected
// but parsing continues to find additional errors where possible.
func (parser *Parser) Parse() ([]ast.Stmt, []error) {
	statements := []ast.Stmt{}
	errors := []error{}

	for {
		if parser.isFinished() {
			break
		}
		statement, err := parser.declaration()
		if err != nil {
			errors = append(errors, err)
			if !parser.isFinished() {
				parser.synchronize()
			}
			continue
		}
		statements = append(statements, statement)
	}

	return statements, errors
}

// synchronize discards tokens until it reaches a position that's likely
// the start of a new statement, so a single syntax error doesn't cascade
// into a wall of spurious follow-on errors.
func (parser *Parser) synchronize() {
	parser.advance()
	for !parser.isFinished() {
		if parser.previous().TokenType == token.SEMICOLON {
			return
		}
		switch parser.peek().TokenType {
		case token.CLASS, token.FUNC, token.VAR, token.FOR, token.IF,
			token.WHILE, token.PRINT, token.RETURN, token.TRY, token.USE:
			return
		}
		parser.advance()
	}
}

// declaration parses a top-level or block-level declaration: an optional
// `export` prefix followed by a class, function, or variable declaration,
// falling back to a plain statement otherwise.
func (parser *Parser) declaration() (ast.Stmt, error) {
	exported := parser.isMatch([]token.TokenType{token.EXPORT})

	if parser.isMatch([]token.TokenType{token.CLASS}) {
		return parser.classDeclaration(exported)
	}
	if parser.isMatch([]token.TokenType{token.FUNC}) {
		return parser.functionDeclaration(exported)
	}
	if parser.isMatch([]token.TokenType{token.VAR}) {
		return parser.variableDeclaration(exported)
	}
	if exported {
		currentToken := parser.peek()
		return nil, CreateSyntaxError(currentToken.Line, currentToken.Column, "'export' must be followed by a variable, function, or class declaration")
	}
	return parser.statement()
}

// variableDeclaration parses a variable declaration statement. It expects an
// identifier token for the variable name, an optional ':' type annotation,
// and an optional '=' initializer expression.
func (parser *Parser) variableDeclaration(exported bool) (ast.Stmt, error) {
	tok, consumeError := parser.consume(token.IDENTIFIER, "Expected variable name")
	if consumeError != nil {
		return nil, consumeError
	}

	typeAnnotation := ""
	if parser.isMatch([]token.TokenType{token.COLON}) {
		typeTok, err := parser.consume(token.IDENTIFIER, "Expected type name after ':'")
		if err != nil {
			return nil, err
		}
		typeAnnotation = typeTok.Lexeme
	}

	var initialiser ast.Expression
	if parser.isMatch([]token.TokenType{token.ASSIGN}) {
		var err error
		initialiser, err = parser.expression()
		if err != nil {
			return nil, err
		}
	}

	parser.isMatch([]token.TokenType{token.SEMICOLON})

	return ast.VarStmt{
		Name:        tok,
		Type:        typeAnnotation,
		Initializer: initialiser,
		Exported:    exported,
	}, nil
}

// paramList parses a parenthesized, comma-separated parameter list with
// optional ':' type annotations, assuming the opening '(' has already been
// consumed. Consumes the closing ')'.
func (parser *Parser) paramList() ([]ast.Param, error) {
	params := []ast.Param{}
	if !parser.checkType(token.RPA) {
		for {
			name, err := parser.consume(token.IDENTIFIER, "Expected parameter name")
			if err != nil {
				return nil, err
			}
			typeAnnotation := ""
			if parser.isMatch([]token.TokenType{token.COLON}) {
				typeTok, err := parser.consume(token.IDENTIFIER, "Expected type name after ':'")
				if err != nil {
					return nil, err
				}
				typeAnnotation = typeTok.Lexeme
			}
			params = append(params, ast.Param{Name: name, Type: typeAnnotation})
			if !parser.isMatch([]token.TokenType{token.COMMA}) {
				break
			}
		}
	}
	if _, err := parser.consume(token.RPA, "Expected ')' after parameters"); err != nil {
		return nil, err
	}
	return params, nil
}

// functionDeclaration parses `fn name(params) [=> returnType] { body }`.
func (parser *Parser) functionDeclaration(exported bool) (ast.Stmt, error) {
	name, err := parser.consume(token.IDENTIFIER, "Expected function name")
	if err != nil {
		return nil, err
	}
	if _, err := parser.consume(token.LPA, "Expected '(' after function name"); err != nil {
		return nil, err
	}
	params, err := parser.paramList()
	if err != nil {
		return nil, err
	}

	returnType := ""
	if parser.isMatch([]token.TokenType{token.ARROW}) {
		typeTok, err := parser.consume(token.IDENTIFIER, "Expected return type after '=>'")
		if err != nil {
			return nil, err
		}
		returnType = typeTok.Lexeme
	}

	if _, err := parser.consume(token.LCUR, "Expected '{' before function body"); err != nil {
		return nil, err
	}
	body, err := parser.block()
	if err != nil {
		return nil, err
	}

	return ast.FunctionStmt{
		Name:       name,
		Params:     params,
		ReturnType: returnType,
		Body:       body,
		Exported:   exported,
	}, nil
}

// classDeclaration parses `class Name [: Parent] { fields and methods }`.
func (parser *Parser) classDeclaration(exported bool) (ast.Stmt, error) {
	name, err := parser.consume(token.IDENTIFIER, "Expected class name")
	if err != nil {
		return nil, err
	}

	var parent token.Token
	hasParent := false
	if parser.isMatch([]token.TokenType{token.COLON}) {
		parent, err = parser.consume(token.IDENTIFIER, "Expected parent class name after ':'")
		if err != nil {
			return nil, err
		}
		hasParent = true
	}

	if _, err := parser.consume(token.LCUR, "Expected '{' before class body"); err != nil {
		return nil, err
	}

	fields := []ast.VarStmt{}
	methods := []ast.FunctionStmt{}
	for !parser.checkType(token.RCUR) && !parser.isFinished() {
		if parser.isMatch([]token.TokenType{token.VAR}) {
			stmt, err := parser.variableDeclaration(false)
			if err != nil {
				return nil, err
			}
			fields = append(fields, stmt.(ast.VarStmt))
			continue
		}
		if parser.isMatch([]token.TokenType{token.FUNC}) {
			stmt, err := parser.functionDeclaration(false)
			if err != nil {
				return nil, err
			}
			methods = append(methods, stmt.(ast.FunctionStmt))
			continue
		}
		currentToken := parser.peek()
		return nil, CreateSyntaxError(currentToken.Line, currentToken.Column, "Expected a field or method declaration inside a class body")
	}

	if _, err := parser.consume(token.RCUR, "Expected '}' after class body"); err != nil {
		return nil, err
	}

	return ast.ClassStmt{
		Name:      name,
		Parent:    parent,
		HasParent: hasParent,
		Fields:    fields,
		Methods:   methods,
		Exported:  exported,
	}, nil
}

// statement parses a single statement.
func (parser *Parser) statement() (ast.Stmt, error) {

	if parser.isMatch([]token.TokenType{token.PRINT}) {
		return parser.printStatement()
	}

	if parser.isMatch([]token.TokenType{token.LCUR}) {
		statements, err := parser.block()
		if err != nil {
			return nil, err
		}
		return ast.BlockStmt{Statements: statements}, nil
	}

	if parser.isMatch([]token.TokenType{token.IF}) {
		return parser.ifStatement()
	}

	if parser.isMatch([]token.TokenType{token.WHILE}) {
		return parser.whileStatement()
	}

	if parser.isMatch([]token.TokenType{token.FOR}) {
		return parser.forStatement()
	}

	if parser.isMatch([]token.TokenType{token.RETURN}) {
		return parser.returnStatement()
	}

	if parser.isMatch([]token.TokenType{token.BREAK}) {
		keyword := parser.previous()
		parser.isMatch([]token.TokenType{token.SEMICOLON})
		return ast.BreakStmt{Keyword: keyword}, nil
	}

	if parser.isMatch([]token.TokenType{token.CONTINUE}) {
		keyword := parser.previous()
		parser.isMatch([]token.TokenType{token.SEMICOLON})
		return ast.ContinueStmt{Keyword: keyword}, nil
	}

	if parser.isMatch([]token.TokenType{token.TRY}) {
		return parser.tryStatement()
	}

	if parser.isMatch([]token.TokenType{token.THROW}) {
		return parser.throwStatement()
	}

	if parser.isMatch([]token.TokenType{token.MATCH}) {
		return parser.matchStatement()
	}

	if parser.isMatch([]token.TokenType{token.SWITCH}) {
		return parser.switchStatement()
	}

	if parser.isMatch([]token.TokenType{token.USE}) {
		return parser.useStatement()
	}

	return parser.expressionStatement()
}

// printStatement parses a print statement of the form
// "print <expression> [, <expression>]*".
func (parser *Parser) printStatement() (ast.Stmt, error) {
	keyword := parser.previous()
	exprs := []ast.Expression{}
	first, err := parser.expression()
	if err != nil {
		return nil, err
	}
	exprs = append(exprs, first)
	for parser.isMatch([]token.TokenType{token.COMMA}) {
		next, err := parser.expression()
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, next)
	}
	parser.isMatch([]token.TokenType{token.SEMICOLON})
	return ast.PrintStmt{Keyword: keyword, Expressions: exprs}, nil
}

// whileStatement parses a while loop statement from the token stream.
func (parser *Parser) whileStatement() (ast.Stmt, error) {
	keyword := parser.previous()
	expr, err := parser.expression()
	if err != nil {
		return nil, err
	}

	stmt, err := parser.loopBody()
	if err != nil {
		return nil, err
	}

	return ast.WhileStmt{
		Keyword:   keyword,
		Condition: expr,
		Body:      stmt,
	}, nil
}

// loopBody parses a loop body, which may be a brace-delimited block or a
// single statement.
func (parser *Parser) loopBody() (ast.Stmt, error) {
	if parser.isMatch([]token.TokenType{token.LCUR}) {
		statements, err := parser.block()
		if err != nil {
			return nil, err
		}
		return ast.BlockStmt{Statements: statements}, nil
	}
	return parser.statement()
}

// forStatement parses `for name in collection { body }`.
func (parser *Parser) forStatement() (ast.Stmt, error) {
	keyword := parser.previous()
	iterator, err := parser.consume(token.IDENTIFIER, "Expected loop variable name after 'for'")
	if err != nil {
		return nil, err
	}
	if _, err := parser.consume(token.IN, "Expected 'in' after loop variable"); err != nil {
		return nil, err
	}
	collection, err := parser.expression()
	if err != nil {
		return nil, err
	}
	body, err := parser.loopBody()
	if err != nil {
		return nil, err
	}
	return ast.ForStmt{
		Keyword:    keyword,
		Iterator:   iterator,
		Collection: collection,
		Body:       body,
	}, nil
}

// returnStatement parses `return [expression];`.
func (parser *Parser) returnStatement() (ast.Stmt, error) {
	keyword := parser.previous()
	var value ast.Expression
	if !parser.checkType(token.SEMICOLON) && !parser.checkType(token.RCUR) {
		var err error
		value, err = parser.expression()
		if err != nil {
			return nil, err
		}
	}
	parser.isMatch([]token.TokenType{token.SEMICOLON})
	return ast.ReturnStmt{Keyword: keyword, Value: value}, nil
}

// tryStatement parses `try { block } catch (name) { block } [finally { block }]`.
func (parser *Parser) tryStatement() (ast.Stmt, error) {
	keyword := parser.previous()
	if _, err := parser.consume(token.LCUR, "Expected '{' after 'try'"); err != nil {
		return nil, err
	}
	tryStatements, err := parser.block()
	if err != nil {
		return nil, err
	}

	if _, err := parser.consume(token.CATCH, "Expected 'catch' after 'try' block"); err != nil {
		return nil, err
	}
	if _, err := parser.consume(token.LPA, "Expected '(' after 'catch'"); err != nil {
		return nil, err
	}
	catchName, err := parser.consume(token.IDENTIFIER, "Expected caught error name")
	if err != nil {
		return nil, err
	}
	if _, err := parser.consume(token.RPA, "Expected ')' after catch name"); err != nil {
		return nil, err
	}
	if _, err := parser.consume(token.LCUR, "Expected '{' after 'catch (...)'"); err != nil {
		return nil, err
	}
	catchStatements, err := parser.block()
	if err != nil {
		return nil, err
	}

	var finallyStmt ast.Stmt
	if parser.isMatch([]token.TokenType{token.FINALLY}) {
		if _, err := parser.consume(token.LCUR, "Expected '{' after 'finally'"); err != nil {
			return nil, err
		}
		finallyStatements, err := parser.block()
		if err != nil {
			return nil, err
		}
		finallyStmt = ast.BlockStmt{Statements: finallyStatements}
	}

	return ast.TryStmt{
		Keyword:   keyword,
		Block:     ast.BlockStmt{Statements: tryStatements},
		CatchName: catchName,
		CatchBody: ast.BlockStmt{Statements: catchStatements},
		Finally:   finallyStmt,
	}, nil
}

// throwStatement parses `throw expression;`.
func (parser *Parser) throwStatement() (ast.Stmt, error) {
	keyword := parser.previous()
	value, err := parser.expression()
	if err != nil {
		return nil, err
	}
	parser.isMatch([]token.TokenType{token.SEMICOLON})
	return ast.ThrowStmt{Keyword: keyword, Expression: value}, nil
}

// pattern parses a single match/spore case pattern. Only wildcard, literal,
// and type-name patterns (any identifier other than `_`) are produced by the
// concrete syntax;
// the remaining Pattern AST kinds exist for a future grammar extension and
// are rejected by the compiler if ever constructed (see ast/patterns.go).
func (parser *Parser) pattern() (ast.Pattern, error) {
	tok := parser.peek()

	switch tok.TokenType {
	case token.IDENTIFIER:
		if tok.Lexeme == "_" {
			parser.advance()
			return ast.WildcardPattern{Token: tok}, nil
		}
		if typeNames[tok.Lexeme] {
			parser.advance()
			return ast.TypePattern{Token: tok, TypeName: tok.Lexeme}, nil
		}
		parser.advance()
		return ast.TypePattern{Token: tok, TypeName: tok.Lexeme}, nil
	case token.TRUE:
		parser.advance()
		return ast.LiteralPattern{Value: true}, nil
	case token.FALSE:
		parser.advance()
		return ast.LiteralPattern{Value: false}, nil
	case token.NULL:
		parser.advance()
		return ast.LiteralPattern{Value: nil}, nil
	case token.INT, token.FLOAT, token.STRING:
		parser.advance()
		return ast.LiteralPattern{Value: tok.Literal}, nil
	}

	return nil, CreateSyntaxError(tok.Line, tok.Column, "Expected a pattern in match/spore case")
}

// matchStatement parses `match expr { case pattern => stmt ... }`.
// The lexer maps both `match` and `spore` onto token.MATCH.
func (parser *Parser) matchStatement() (ast.Stmt, error) {
	keyword := parser.previous()
	scrutinee, err := parser.expression()
	if err != nil {
		return nil, err
	}
	if _, err := parser.consume(token.LCUR, "Expected '{' after match expression"); err != nil {
		return nil, err
	}

	cases := []ast.MatchCase{}
	var elseStmt ast.Stmt
	for !parser.checkType(token.RCUR) && !parser.isFinished() {
		if _, err := parser.consume(token.CASE, "Expected 'case' in match body"); err != nil {
			return nil, err
		}
		pat, err := parser.pattern()
		if err != nil {
			return nil, err
		}
		if _, err := parser.consume(token.ARROW, "Expected '=>' after match case pattern"); err != nil {
			return nil, err
		}
		body, err := parser.statement()
		if err != nil {
			return nil, err
		}
		if wc, ok := pat.(ast.WildcardPattern); ok {
			_ = wc
			elseStmt = body
			continue
		}
		cases = append(cases, ast.MatchCase{Pattern: pat, Body: body})
	}

	if _, err := parser.consume(token.RCUR, "Expected '}' after match body"); err != nil {
		return nil, err
	}

	return ast.MatchStmt{
		Keyword:    keyword,
		Expression: scrutinee,
		Cases:      cases,
		Else:       elseStmt,
	}, nil
}

// switchStatement parses `switch expr { case literal => stmt ... case _ => stmt }`
// as sugar over the same ast.MatchStmt node `match`/`spore` produce: the
// scrutinee is re-evaluated for each case and cases are compared with
// structural equality (spec §9's decision between the two documented
// switch behaviors), with no fallthrough between cases, since
// compiler.VisitMatchStmt emits an unconditional jump to the end of the
// statement after each matched case's body. Unlike match, a switch case
// pattern must be a literal or the `_` wildcard - type patterns
// (`case Number => ...`) are match's feature, not switch's, so they're
// rejected here rather than silently accepted.
func (parser *Parser) switchStatement() (ast.Stmt, error) {
	keyword := parser.previous()
	scrutinee, err := parser.expression()
	if err != nil {
		return nil, err
	}
	if _, err := parser.consume(token.LCUR, "Expected '{' after switch expression"); err != nil {
		return nil, err
	}

	cases := []ast.MatchCase{}
	var elseStmt ast.Stmt
	for !parser.checkType(token.RCUR) && !parser.isFinished() {
		if _, err := parser.consume(token.CASE, "Expected 'case' in switch body"); err != nil {
			return nil, err
		}
		pat, err := parser.pattern()
		if err != nil {
			return nil, err
		}
		switch pat.(type) {
		case ast.LiteralPattern, ast.WildcardPattern:
		default:
			tok := parser.previous()
			return nil, CreateSyntaxError(tok.Line, tok.Column, "switch cases must be a literal value or '_'")
		}
		if _, err := parser.consume(token.ARROW, "Expected '=>' after switch case pattern"); err != nil {
			return nil, err
		}
		body, err := parser.statement()
		if err != nil {
			return nil, err
		}
		if _, ok := pat.(ast.WildcardPattern); ok {
			elseStmt = body
			continue
		}
		cases = append(cases, ast.MatchCase{Pattern: pat, Body: body})
	}

	if _, err := parser.consume(token.RCUR, "Expected '}' after switch body"); err != nil {
		return nil, err
	}

	return ast.MatchStmt{
		Keyword:    keyword,
		Expression: scrutinee,
		Cases:      cases,
		Else:       elseStmt,
	}, nil
}

// useStatement parses
// `use library [as alias] [show name [as alias] (, name [as alias])*] ;`.
func (parser *Parser) useStatement() (ast.Stmt, error) {
	keyword := parser.previous()
	library, err := parser.consume(token.IDENTIFIER, "Expected a library name after 'use'")
	if err != nil {
		return nil, err
	}

	stmt := ast.UseStmt{Keyword: keyword, Library: library}

	if parser.isMatch([]token.TokenType{token.AS}) {
		alias, err := parser.consume(token.IDENTIFIER, "Expected an alias after 'as'")
		if err != nil {
			return nil, err
		}
		stmt.Alias = alias
		stmt.HasAlias = true
	}

	if parser.isMatch([]token.TokenType{token.SHOW}) {
		for {
			name, err := parser.consume(token.IDENTIFIER, "Expected an imported name")
			if err != nil {
				return nil, err
			}
			stmt.ShowNames = append(stmt.ShowNames, name)
			alias := token.Token{}
			if parser.isMatch([]token.TokenType{token.AS}) {
				alias, err = parser.consume(token.IDENTIFIER, "Expected an alias after 'as'")
				if err != nil {
					return nil, err
				}
			}
			stmt.ShowAliases = append(stmt.ShowAliases, alias)
			if !parser.isMatch([]token.TokenType{token.COMMA}) {
				break
			}
		}
	}

	parser.isMatch([]token.TokenType{token.SEMICOLON})
	return stmt, nil
}

// ifStatement parses an if/elif/else chain. `elif` is desugared into a
// nested IfStmt carried in the parent's Else field, so downstream code only
// ever has to handle a single two-way branch.
func (parser *Parser) ifStatement() (ast.Stmt, error) {
	keyword := parser.previous()

	conditionExpr, err := parser.expression()
	if err != nil {
		return nil, err
	}

	thenStmt, err := parser.loopBody()
	if err != nil {
		return nil, err
	}

	var elseStmt ast.Stmt
	if parser.isMatch([]token.TokenType{token.ELIF}) {
		nested, err := parser.ifStatement()
		if err != nil {
			return nil, err
		}
		elseStmt = nested
	} else if parser.isMatch([]token.TokenType{token.ELSE}) {
		stmt, err := parser.loopBody()
		if err != nil {
			return nil, err
		}
		elseStmt = stmt
	}

	return ast.IfStmt{
		Keyword:   keyword,
		Condition: conditionExpr,
		Then:      thenStmt,
		Else:      elseStmt,
	}, nil
}

// expressionStatement parses a statement consisting of a single expression.
func (parser *Parser) expressionStatement() (ast.Stmt, error) {
	expression, err := parser.expression()
	if err != nil {
		return nil, err
	}
	parser.isMatch([]token.TokenType{token.SEMICOLON})
	return ast.ExpressionStmt{Expression: expression}, nil
}

// block parses a block statement consisting of a list of statement AST
// nodes, assuming the opening '{' has already been consumed.
func (parser *Parser) block() ([]ast.Stmt, error) {
	statements := []ast.Stmt{}

	for !parser.checkType(token.RCUR) && !parser.isFinished() {
		stmt, err := parser.declaration()
		if err != nil {
			return nil, err
		}
		statements = append(statements, stmt)
	}

	_, err := parser.consume(token.RCUR, fmt.Sprintf("Expected '%s' after block.", token.RCUR))
	if err != nil {
		return nil, err
	}
	return statements, nil
}

// expression is the entry point for parsing expressions.
func (parser *Parser) expression() (ast.Expression, error) {
	return parser.assignment()
}

// assignment parses an assignment expression from the token stream.
//
// Steps:
//  1. Parse the left-hand side as an `or` expression. This ensures
//     assignment has lower precedence than every other operator.
//  2. If the next token is '=', the LHS must be a valid assignment target
//     (Variable, Index, or Member); anything else is a syntax error.
func (parser *Parser) assignment() (ast.Expression, error) {
	expression, err := parser.or()
	if err != nil {
		return nil, err
	}
	if parser.isMatch([]token.TokenType{token.ASSIGN}) {
		equalsToken := parser.previous()
		value, err := parser.assignment()
		if err != nil {
			return nil, err
		}
		switch expression.(type) {
		case ast.Variable, ast.Index, ast.Member:
			return ast.Assign{Target: expression, Value: value}, nil
		default:
			msg := "Invalid assignment target"
			return nil, CreateSyntaxError(equalsToken.Line, equalsToken.Column, msg)
		}
	}

	return expression, nil
}

// or parses a logical OR/XOR expression, left-associative.
func (parser *Parser) or() (ast.Expression, error) {
	expr, err := parser.and()
	if err != nil {
		return nil, err
	}

	for parser.isMatch([]token.TokenType{token.OR, token.XOR}) {
		op := parser.previous()
		rightExpr, err := parser.and()
		if err != nil {
			return nil, err
		}
		expr = ast.Logical{Left: expr, Operator: op, Right: rightExpr}
	}

	return expr, nil
}

// and parses a logical AND expression, left-associative.
func (parser *Parser) and() (ast.Expression, error) {
	expr, err := parser.equality()
	if err != nil {
		return nil, err
	}

	for parser.isMatch([]token.TokenType{token.AND}) {
		op := parser.previous()
		rightExpr, err := parser.equality()
		if err != nil {
			return nil, err
		}
		expr = ast.Logical{Left: expr, Operator: op, Right: rightExpr}
	}
	return expr, nil
}

// equality parses "==" and "!=" expressions.
func (parser *Parser) equality() (ast.Expression, error) {
	exp, err := parser.comparison()
	if err != nil {
		return nil, err
	}
	for parser.isMatch(equalityTokenTypes) {
		operator := parser.previous()
		right, err := parser.comparison()
		if err != nil {
			return nil, err
		}
		exp = ast.Binary{Left: exp, Operator: operator, Right: right}
	}
	return exp, nil
}

// comparison parses "<", "<=", ">", ">=" expressions.
func (parser *Parser) comparison() (ast.Expression, error) {
	exp, err := parser.bitwiseOr()
	if err != nil {
		return nil, err
	}
	for parser.isMatch(comparisonTokenTypes) {
		operator := parser.previous()
		right, err := parser.bitwiseOr()
		if err != nil {
			return nil, err
		}
		exp = ast.Binary{Left: exp, Operator: operator, Right: right}
	}
	return exp, nil
}

// bitwiseOr parses "|" expressions.
func (parser *Parser) bitwiseOr() (ast.Expression, error) {
	exp, err := parser.bitwiseXor()
	if err != nil {
		return nil, err
	}
	for parser.isMatch([]token.TokenType{token.BIT_OR}) {
		operator := parser.previous()
		right, err := parser.bitwiseXor()
		if err != nil {
			return nil, err
		}
		exp = ast.Binary{Left: exp, Operator: operator, Right: right}
	}
	return exp, nil
}

// bitwiseXor parses "^" expressions.
func (parser *Parser) bitwiseXor() (ast.Expression, error) {
	exp, err := parser.bitwiseAnd()
	if err != nil {
		return nil, err
	}
	for parser.isMatch([]token.TokenType{token.BIT_XOR}) {
		operator := parser.previous()
		right, err := parser.bitwiseAnd()
		if err != nil {
			return nil, err
		}
		exp = ast.Binary{Left: exp, Operator: operator, Right: right}
	}
	return exp, nil
}

// bitwiseAnd parses "&" expressions.
func (parser *Parser) bitwiseAnd() (ast.Expression, error) {
	exp, err := parser.shift()
	if err != nil {
		return nil, err
	}
	for parser.isMatch([]token.TokenType{token.BIT_AND}) {
		operator := parser.previous()
		right, err := parser.shift()
		if err != nil {
			return nil, err
		}
		exp = ast.Binary{Left: exp, Operator: operator, Right: right}
	}
	return exp, nil
}

// shift parses "<<" and ">>" expressions.
func (parser *Parser) shift() (ast.Expression, error) {
	exp, err := parser.rangeExpr()
	if err != nil {
		return nil, err
	}
	for parser.isMatch([]token.TokenType{token.SHL, token.SHR}) {
		operator := parser.previous()
		right, err := parser.rangeExpr()
		if err != nil {
			return nil, err
		}
		exp = ast.Binary{Left: exp, Operator: operator, Right: right}
	}
	return exp, nil
}

// rangeExpr parses "start..end", "start..=end", and an optional trailing
// "step s" modifier.
func (parser *Parser) rangeExpr() (ast.Expression, error) {
	exp, err := parser.term()
	if err != nil {
		return nil, err
	}
	if parser.isMatch([]token.TokenType{token.RANGE, token.RANGE_INCLUSIVE}) {
		inclusive := parser.previous().TokenType == token.RANGE_INCLUSIVE
		end, err := parser.term()
		if err != nil {
			return nil, err
		}
		var step ast.Expression
		if parser.isMatch([]token.TokenType{token.STEP}) {
			step, err = parser.term()
			if err != nil {
				return nil, err
			}
		}
		exp = ast.Range{Start: exp, End: end, Step: step, Inclusive: inclusive}
	}
	return exp, nil
}

// term parses "+" and "-" expressions.
func (parser *Parser) term() (ast.Expression, error) {
	exp, err := parser.factor()
	if err != nil {
		return nil, err
	}
	for parser.isMatch(termTokenTypes) {
		operator := parser.previous()
		right, err := parser.factor()
		if err != nil {
			return nil, err
		}
		exp = ast.Binary{Left: exp, Operator: operator, Right: right}
	}
	return exp, nil
}

// factor parses "*", "/", and "%" expressions.
func (parser *Parser) factor() (ast.Expression, error) {
	exp, err := parser.power()
	if err != nil {
		return nil, err
	}
	for parser.isMatch(factorExpressionTypes) {
		operator := parser.previous()
		right, err := parser.power()
		if err != nil {
			return nil, err
		}
		exp = ast.Binary{Left: exp, Operator: operator, Right: right}
	}
	return exp, nil
}

// power parses "**", right-associative.
func (parser *Parser) power() (ast.Expression, error) {
	exp, err := parser.unary()
	if err != nil {
		return nil, err
	}
	if parser.isMatch([]token.TokenType{token.POWER}) {
		operator := parser.previous()
		right, err := parser.power()
		if err != nil {
			return nil, err
		}
		exp = ast.Binary{Left: exp, Operator: operator, Right: right}
	}
	return exp, nil
}

// unary parses unary prefix expressions using operators "!" or "-".
func (parser *Parser) unary() (ast.Expression, error) {
	if parser.isMatch(unaryExpressionTypes) {
		operator := parser.previous()
		right, err := parser.unary()
		if err != nil {
			return nil, err
		}
		return ast.Unary{Operator: operator, Right: right}, nil
	}
	return parser.call()
}

// call parses postfix call/member/index/method-call chains attached to a
// primary expression: `foo(a, b).bar[0].baz()`.
func (parser *Parser) call() (ast.Expression, error) {
	expr, err := parser.primary()
	if err != nil {
		return nil, err
	}

	for {
		if parser.isMatch([]token.TokenType{token.LPA}) {
			expr, err = parser.finishCall(expr)
			if err != nil {
				return nil, err
			}
		} else if parser.isMatch([]token.TokenType{token.DOT}) {
			name, err := parser.consume(token.IDENTIFIER, "Expected a property or method name after '.'")
			if err != nil {
				return nil, err
			}
			if parser.checkType(token.LPA) {
				parser.advance()
				args, err := parser.argumentList()
				if err != nil {
					return nil, err
				}
				expr = ast.MethodCall{Object: expr, Name: name, Args: args}
			} else {
				expr = ast.Member{Object: expr, Name: name}
			}
		} else if parser.isMatch([]token.TokenType{token.LBRACKET}) {
			bracket := parser.previous()
			indexExpr, err := parser.expression()
			if err != nil {
				return nil, err
			}
			if _, err := parser.consume(token.RBRACKET, "Expected ']' after index expression"); err != nil {
				return nil, err
			}
			expr = ast.Index{Object: expr, Bracket: bracket, IndexOf: indexExpr}
		} else {
			break
		}
	}

	return expr, nil
}

// argumentList parses a comma-separated argument list, assuming the opening
// '(' has already been consumed. Consumes the closing ')'.
func (parser *Parser) argumentList() ([]ast.Expression, error) {
	args := []ast.Expression{}
	if !parser.checkType(token.RPA) {
		for {
			arg, err := parser.expression()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if !parser.isMatch([]token.TokenType{token.COMMA}) {
				break
			}
		}
	}
	if _, err := parser.consume(token.RPA, "Expected ')' after arguments"); err != nil {
		return nil, err
	}
	return args, nil
}

// finishCall parses the argument list of a call expression whose callee has
// already been parsed, assuming the opening '(' has already been consumed.
func (parser *Parser) finishCall(callee ast.Expression) (ast.Expression, error) {
	args, err := parser.argumentList()
	if err != nil {
		return nil, err
	}
	paren := parser.previous()
	return ast.Call{Callee: callee, Paren: paren, Args: args}, nil
}

// primary parses the most basic forms of expressions: literals, groupings,
// variables, array/map literals, and lambdas.
func (parser *Parser) primary() (ast.Expression, error) {
	if parser.isMatch([]token.TokenType{token.FALSE}) {
		return ast.Literal{Value: false}, nil
	}
	if parser.isMatch([]token.TokenType{token.NULL}) {
		return ast.Literal{Value: nil}, nil
	}
	if parser.isMatch([]token.TokenType{token.TRUE}) {
		return ast.Literal{Value: true}, nil
	}

	if parser.isMatch([]token.TokenType{token.FLOAT, token.INT, token.STRING}) {
		return ast.Literal{Value: parser.previous().Literal}, nil
	}

	if parser.isMatch([]token.TokenType{token.SELF}) {
		return ast.Variable{Name: parser.previous()}, nil
	}

	if parser.checkType(token.FUNC) && parser.peekNext().TokenType == token.LPA {
		parser.advance()
		return parser.lambda()
	}

	if parser.isMatch([]token.TokenType{token.IDENTIFIER}) {
		return ast.Variable{Name: parser.previous()}, nil
	}

	if parser.isMatch([]token.TokenType{token.LBRACKET}) {
		return parser.arrayLiteral()
	}

	if parser.isMatch([]token.TokenType{token.LCUR}) {
		return parser.mapLiteral()
	}

	if parser.isMatch([]token.TokenType{token.LPA}) {
		expr, err := parser.expression()
		if err != nil {
			return nil, err
		}
		_, consumeErr := parser.consume(token.RPA, fmt.Sprintf("expression is missing '%s'", token.RPA))
		if consumeErr != nil {
			return nil, consumeErr
		}
		return ast.Grouping{Expression: expr}, nil
	}

	currentToken := parser.peek()
	return nil, CreateSyntaxError(currentToken.Line, currentToken.Column, "Unrecognised expression.")
}

// lambda parses an anonymous function expression, assuming the `fn` keyword
// has already been consumed: `fn(params) [=> returnType] => expr` or
// `fn(params) [=> returnType] { body }`.
func (parser *Parser) lambda() (ast.Expression, error) {
	keyword := parser.previous()
	if _, err := parser.consume(token.LPA, "Expected '(' after 'fn' in a lambda expression"); err != nil {
		return nil, err
	}
	params, err := parser.paramList()
	if err != nil {
		return nil, err
	}

	returnType := ""
	if parser.checkType(token.ARROW) && parser.peekNext().TokenType == token.IDENTIFIER &&
		parser.position+2 < len(parser.tokens) &&
		(parser.tokens[parser.position+2].TokenType == token.ARROW ||
			parser.tokens[parser.position+2].TokenType == token.LCUR) {
		parser.advance()
		typeTok, err := parser.consume(token.IDENTIFIER, "Expected return type after '=>'")
		if err != nil {
			return nil, err
		}
		returnType = typeTok.Lexeme
	}

	var body []ast.Stmt
	if parser.isMatch([]token.TokenType{token.LCUR}) {
		body, err = parser.block()
		if err != nil {
			return nil, err
		}
	} else if parser.isMatch([]token.TokenType{token.ARROW}) {
		expr, err := parser.expression()
		if err != nil {
			return nil, err
		}
		body = []ast.Stmt{ast.ReturnStmt{Keyword: keyword, Value: expr}}
	} else {
		currentToken := parser.peek()
		return nil, CreateSyntaxError(currentToken.Line, currentToken.Column, "Expected '=>' or '{' to begin a lambda body")
	}

	return ast.Lambda{Keyword: keyword, Params: params, ReturnType: returnType, Body: body}, nil
}

// arrayLiteral parses an array literal, assuming the opening '[' has
// already been consumed.
func (parser *Parser) arrayLiteral() (ast.Expression, error) {
	bracket := parser.previous()
	elements := []ast.Expression{}
	if !parser.checkType(token.RBRACKET) {
		for {
			elem, err := parser.expression()
			if err != nil {
				return nil, err
			}
			elements = append(elements, elem)
			if !parser.isMatch([]token.TokenType{token.COMMA}) {
				break
			}
		}
	}
	if _, err := parser.consume(token.RBRACKET, "Expected ']' after array elements"); err != nil {
		return nil, err
	}
	return ast.ArrayLiteral{Bracket: bracket, Elements: elements}, nil
}

// mapLiteral parses a map literal, assuming the opening '{' has already
// been consumed: `{key: value, key2: value2}`.
func (parser *Parser) mapLiteral() (ast.Expression, error) {
	brace := parser.previous()
	keys := []ast.Expression{}
	values := []ast.Expression{}
	if !parser.checkType(token.RCUR) {
		for {
			key, err := parser.expression()
			if err != nil {
				return nil, err
			}
			if _, err := parser.consume(token.COLON, "Expected ':' after map key"); err != nil {
				return nil, err
			}
			value, err := parser.expression()
			if err != nil {
				return nil, err
			}
			keys = append(keys, key)
			values = append(values, value)
			if !parser.isMatch([]token.TokenType{token.COMMA}) {
				break
			}
		}
	}
	if _, err := parser.consume(token.RCUR, "Expected '}' after map entries"); err != nil {
		return nil, err
	}
	return ast.MapLiteral{Brace: brace, Keys: keys, Values: values}, nil
}

// consume advances the parser past the current token if it matches
// tokenType, otherwise returns a SyntaxError carrying errorMessage.
func (parser *Parser) consume(tokenType token.TokenType, errorMessage string) (token.Token, error) {
	if parser.checkType(tokenType) {
		return parser.advance(), nil
	}
	currentToken := parser.peek()
	return token.CreateToken(token.EOF, 0, 0), CreateSyntaxError(currentToken.Line, currentToken.Column, errorMessage)
}
