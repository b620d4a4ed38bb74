package compiler

// This file holds the expression and pattern visitor methods of Compiler:
// everything that can appear on the value stack, as opposed to compiler.go's
// statement visitors and frame/scope bookkeeping.

import (
	"fmt"

	"github.com/IvyMycelia/myco/ast"
	"github.com/IvyMycelia/myco/token"
)

func (c *Compiler) VisitBinary(b ast.Binary) any {
	b.Left.Accept(c)
	b.Right.Accept(c)
	op, ok := tokenOperator[b.Operator.TokenType]
	if !ok {
		panic(DeveloperError{Message: fmt.Sprintf("unhandled binary operator %s", b.Operator.Lexeme)})
	}
	c.emit(op)
	return nil
}

func (c *Compiler) VisitUnary(u ast.Unary) any {
	u.Right.Accept(c)
	switch u.Operator.TokenType {
	case token.SUB:
		c.emit(NEG)
	case token.BANG:
		c.emit(NOT)
	default:
		panic(DeveloperError{Message: fmt.Sprintf("unhandled unary operator %s", u.Operator.Lexeme)})
	}
	return nil
}

func (c *Compiler) VisitLiteral(l ast.Literal) any {
	c.emit(LOAD_CONST, c.addConstant(l.Value))
	return nil
}

func (c *Compiler) VisitGrouping(g ast.Grouping) any {
	g.Expression.Accept(c)
	return nil
}

// VisitVariableExpression resolves a name as a frame-local slot first; if
// this frame is a nested function/lambda/for-body and the name isn't one of
// its own locals, it falls back to LOAD_VAR, which the VM resolves by
// walking the runtime Environment chain (global scope plus whatever the
// function's closure snapshot captured) - this is how closures observe
// outer bindings per §4.1 invariant 5 without the compiler needing to model
// upvalues explicitly. At the top level, an unresolved name is a global.
func (c *Compiler) VisitVariableExpression(v ast.Variable) any {
	name := v.Name.Lexeme
	if slot := c.resolveLocal(name); slot != -1 {
		c.emit(LOAD_LOCAL, slot)
		return nil
	}
	if c.inTopFrame() {
		c.emit(LOAD_GLOBAL, c.addName(name))
		return nil
	}
	c.emit(LOAD_VAR, c.addName(name))
	return nil
}

// VisitAssignExpression compiles `target = value`. A plain-variable target
// resolves the same way reads do (local slot, else global/closure write);
// an Index target emits ARRAY_SET, a Member target emits PROPERTY_SET. None
// of the three leave a value on the stack, matching the "assignment never
// pushes" rule compileStmt relies on for omitting POP.
func (c *Compiler) VisitAssignExpression(a ast.Assign) any {
	switch target := a.Target.(type) {
	case ast.Variable:
		a.Value.Accept(c)
		name := target.Name.Lexeme
		if slot := c.resolveLocal(name); slot != -1 {
			c.emit(STORE_LOCAL, slot)
			return nil
		}
		c.emit(STORE_GLOBAL, c.addName(name))
		return nil
	case ast.Index:
		target.Object.Accept(c)
		target.IndexOf.Accept(c)
		a.Value.Accept(c)
		c.emit(ARRAY_SET)
		return nil
	case ast.Member:
		target.Object.Accept(c)
		a.Value.Accept(c)
		c.emit(PROPERTY_SET, c.addName(target.Name.Lexeme))
		return nil
	default:
		panic(DeveloperError{Message: fmt.Sprintf("unsupported assignment target %T", a.Target)})
	}
}

// VisitLogicalExpression implements short-circuiting `&&`/`||`/`xor` (§8
// property 4): the right operand's code is only reached when short-
// circuiting doesn't apply. JUMP_IF_FALSE always pops the value it tests
// (the VM has no peeking variant), so neither branch can assume the left
// operand is still on the stack after the test - each branch pushes exactly
// one boolean of its own: the short-circuit branch pushes the canonical
// result directly (spec §4.1: "return the canonical boolean of the
// last-evaluated operand's truthiness"), and the evaluated-right branch
// canonicalizes Right's value with a double NOT rather than leaving its raw
// value on the stack.
func (c *Compiler) VisitLogicalExpression(l ast.Logical) any {
	l.Left.Accept(c)
	switch l.Operator.TokenType {
	case token.OR:
		jumpIfFalse := c.emitJump(JUMP_IF_FALSE)
		c.emit(LOAD_CONST, c.addConstant(true))
		jumpEnd := c.emitJump(JUMP)
		c.patchJump(jumpIfFalse, c.here())
		l.Right.Accept(c)
		c.emit(NOT)
		c.emit(NOT)
		c.patchJump(jumpEnd, c.here())
	case token.AND:
		jumpIfFalse := c.emitJump(JUMP_IF_FALSE)
		l.Right.Accept(c)
		c.emit(NOT)
		c.emit(NOT)
		jumpEnd := c.emitJump(JUMP)
		c.patchJump(jumpIfFalse, c.here())
		c.emit(LOAD_CONST, c.addConstant(false))
		c.patchJump(jumpEnd, c.here())
	case token.XOR:
		l.Right.Accept(c)
		c.emit(XOR)
	default:
		panic(DeveloperError{Message: fmt.Sprintf("unhandled logical operator %s", l.Operator.Lexeme)})
	}
	return nil
}

func (c *Compiler) compileArgs(args []ast.Expression) {
	for _, a := range args {
		a.Accept(c)
	}
}

// VisitCall compiles a call expression. A bare identifier callee resolves
// to CALL_USER_FUNCTION (name known at compile time); any other callee
// expression (a variable holding a function/class value, a lambda result,
// etc.) compiles the callee then emits CALL_FUNCTION_VALUE, letting the VM
// decide at runtime whether it's a user function, host callable, or class
// (instantiation).
func (c *Compiler) VisitCall(call ast.Call) any {
	c.compileArgs(call.Args)
	if callee, ok := call.Callee.(ast.Variable); ok {
		c.emit(CALL_USER_FUNCTION, c.addName(callee.Name.Lexeme), len(call.Args))
		return nil
	}
	call.Callee.Accept(c)
	c.emit(CALL_FUNCTION_VALUE, len(call.Args))
	return nil
}

// VisitMethodCall compiles `obj.method(args)`. A well-known method name
// (§4.2's list) gets a direct opcode; everything else falls back to the
// generic METHOD_CALL dispatch.
func (c *Compiler) VisitMethodCall(m ast.MethodCall) any {
	m.Object.Accept(c)
	c.compileArgs(m.Args)
	if op, ok := methodOpcodes[m.Name.Lexeme]; ok {
		c.emit(op, len(m.Args))
		return nil
	}
	c.emit(METHOD_CALL, c.addName(m.Name.Lexeme), len(m.Args))
	return nil
}

func (c *Compiler) VisitMember(mem ast.Member) any {
	mem.Object.Accept(c)
	c.emit(PROPERTY_ACCESS, c.addName(mem.Name.Lexeme))
	return nil
}

func (c *Compiler) VisitIndex(idx ast.Index) any {
	idx.Object.Accept(c)
	idx.IndexOf.Accept(c)
	c.emit(ARRAY_GET)
	return nil
}

func (c *Compiler) VisitArrayLiteral(arr ast.ArrayLiteral) any {
	c.compileArgs(arr.Elements)
	c.emit(CREATE_ARRAY, len(arr.Elements))
	return nil
}

func (c *Compiler) VisitMapLiteral(m ast.MapLiteral) any {
	for i := range m.Keys {
		m.Keys[i].Accept(c)
		m.Values[i].Accept(c)
	}
	c.emit(CREATE_MAP, len(m.Keys))
	return nil
}

func (c *Compiler) VisitSetLiteral(s ast.SetLiteral) any {
	c.compileArgs(s.Elements)
	c.emit(CREATE_SET, len(s.Elements))
	return nil
}

// VisitRange compiles `start..end`, `start..=end`, and the optional
// `step s` suffix into CREATE_RANGE/CREATE_RANGE_STEP.
func (c *Compiler) VisitRange(r ast.Range) any {
	r.Start.Accept(c)
	r.End.Accept(c)
	inclusive := 0
	if r.Inclusive {
		inclusive = 1
	}
	if r.Step != nil {
		r.Step.Accept(c)
		c.emit(CREATE_RANGE_STEP, inclusive)
		return nil
	}
	c.emit(CREATE_RANGE, inclusive)
	return nil
}

// VisitLambda compiles a lambda into its own function-table entry the same
// way a named function declaration does, then emits CREATE_LAMBDA so the
// VM builds a Function value closing over the current environment, rather
// than DEFINE_FUNCTION's global-binding side effect.
func (c *Compiler) VisitLambda(l ast.Lambda) any {
	funcIdx := c.compileFunctionBody("<lambda>", l.Params, l.Body)
	c.emit(CREATE_LAMBDA, funcIdx, len(l.Params))
	return nil
}

// --- patterns ---

func (c *Compiler) VisitLiteralPattern(p ast.LiteralPattern) any {
	c.emit(LOAD_CONST, c.addConstant(p.Value))
	c.emit(PATTERN_LITERAL)
	return nil
}

func (c *Compiler) VisitWildcardPattern(p ast.WildcardPattern) any {
	c.emit(POP)
	c.emit(PATTERN_WILDCARD)
	return nil
}

func (c *Compiler) VisitTypePattern(p ast.TypePattern) any {
	c.emit(PATTERN_TYPE, c.addName(p.TypeName))
	return nil
}

// The remaining pattern kinds are defined as AST nodes (see
// ast/patterns.go) that the parser never produces; if one is constructed it
// is rejected here with a DeveloperError rather than
// silently skipped, per DESIGN.md's Open Question decision: a user gets a
// clear compile-time error instead of a silent pattern mismatch.
func (c *Compiler) reservedPattern(kind string) any {
	panic(DeveloperError{Message: fmt.Sprintf("reserved pattern kind: %s", kind)})
}

func (c *Compiler) VisitNotPattern(p ast.NotPattern) any         { return c.reservedPattern("not") }
func (c *Compiler) VisitDestructurePattern(p ast.DestructurePattern) any {
	return c.reservedPattern("destructure")
}
func (c *Compiler) VisitGuardPattern(p ast.GuardPattern) any { return c.reservedPattern("guard") }
func (c *Compiler) VisitOrPattern(p ast.OrPattern) any       { return c.reservedPattern("or") }
func (c *Compiler) VisitAndPattern(p ast.AndPattern) any     { return c.reservedPattern("and") }
func (c *Compiler) VisitRangePattern(p ast.RangePattern) any { return c.reservedPattern("range") }
func (c *Compiler) VisitRegexPattern(p ast.RegexPattern) any { return c.reservedPattern("regex") }
