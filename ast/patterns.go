// patterns.go contains the pattern AST nodes used by match/spore case arms.
// Only Literal, Wildcard, and Type patterns are fully handled by the
// compiler; the rest are defined here but never produced by the parser, and
// are rejected at compile time with a DeveloperError ("reserved pattern
// kind") if one is constructed — see
// compiler's pattern compilation and DESIGN.md's Open Question decisions.
package ast

import "github.com/IvyMycelia/myco/token"

// LiteralPattern matches a case arm when the scrutinee equals Value exactly.
type LiteralPattern struct {
	Value any
}

func (p LiteralPattern) Accept(v PatternVisitor) any {
	return v.VisitLiteralPattern(p)
}

// WildcardPattern (`_`) always matches, binding nothing.
type WildcardPattern struct {
	Token token.Token
}

func (p WildcardPattern) Accept(v PatternVisitor) any {
	return v.VisitWildcardPattern(p)
}

// TypePattern matches when the scrutinee's runtime type name equals
// TypeName (e.g. "number", "string", "array").
type TypePattern struct {
	Token    token.Token
	TypeName string
}

func (p TypePattern) Accept(v PatternVisitor) any {
	return v.VisitTypePattern(p)
}

// NotPattern matches when Inner does not match. Reserved: not produced by
// the parser, rejected by the compiler.
type NotPattern struct {
	Token token.Token
	Inner Pattern
}

func (p NotPattern) Accept(v PatternVisitor) any {
	return v.VisitNotPattern(p)
}

// DestructurePattern matches array/map shape and binds sub-patterns to
// named positions. Reserved: not produced by the parser, rejected by the
// compiler.
type DestructurePattern struct {
	Token  token.Token
	Names  []token.Token
	Fields []Pattern
}

func (p DestructurePattern) Accept(v PatternVisitor) any {
	return v.VisitDestructurePattern(p)
}

// GuardPattern matches when Inner matches and Condition evaluates truthy.
// Reserved: not produced by the parser, rejected by the compiler.
type GuardPattern struct {
	Inner     Pattern
	Condition Expression
}

func (p GuardPattern) Accept(v PatternVisitor) any {
	return v.VisitGuardPattern(p)
}

// OrPattern matches when any of Patterns matches. Reserved: not produced by
// the parser, rejected by the compiler.
type OrPattern struct {
	Patterns []Pattern
}

func (p OrPattern) Accept(v PatternVisitor) any {
	return v.VisitOrPattern(p)
}

// AndPattern matches when all of Patterns match. Reserved: not produced by
// the parser, rejected by the compiler.
type AndPattern struct {
	Patterns []Pattern
}

func (p AndPattern) Accept(v PatternVisitor) any {
	return v.VisitAndPattern(p)
}

// RangePattern matches when the scrutinee falls within [Start, End].
// Reserved: not produced by the parser, rejected by the compiler.
type RangePattern struct {
	Token token.Token
	Start Expression
	End   Expression
}

func (p RangePattern) Accept(v PatternVisitor) any {
	return v.VisitRangePattern(p)
}

// RegexPattern matches when the scrutinee (a string) matches the regular
// expression in Pattern. Reserved: not produced by the parser, rejected by
// the compiler.
type RegexPattern struct {
	Token   token.Token
	Pattern string
}

func (p RegexPattern) Accept(v PatternVisitor) any {
	return v.VisitRegexPattern(p)
}
