package compiler

import (
	"fmt"

	"github.com/IvyMycelia/myco/ast"
	"github.com/IvyMycelia/myco/token"
)

// Local mirrors informatter-nilan/compiler.Local: a frame-relative stack
// slot plus the scope depth it was declared at, used to pop locals on
// block exit and to reject redeclaration within the same scope.
type Local struct {
	name  string
	depth int
	slot  int
}

type loopContext struct {
	breakJumps    []int
	continueJumps []int
}

// frame is one independently-numbered local-slot space: the top-level
// program has one, and each compiled function/lambda/for-body gets its own,
// matching spec §4.2's "Function definitions are compiled into the
// functions table" - each entry owns its own bytecode and, by extension,
// its own locals numbering.
type frame struct {
	code       []Instruction
	locals     []Local
	scopeDepth int
	loops      []*loopContext
	isFunction bool
}

// Compiler is a visitor that compiles an AST directly to a Program,
// generalizing informatter-nilan/compiler.ASTCompiler's single-frame
// locals/scope bookkeeping into a stack of frames (one per nested
// function/lambda/for-body) so nested bodies get their own slot numbering
// without clobbering the enclosing frame's locals.
type Compiler struct {
	program *Program
	frames  []*frame
}

func New() *Compiler {
	c := &Compiler{
		program: &Program{
			Constants: []any{},
			AstRefs:   []ast.Stmt{},
		},
	}
	c.frames = []*frame{{}}
	return c
}

func (c *Compiler) cur() *frame {
	return c.frames[len(c.frames)-1]
}

func (c *Compiler) inTopFrame() bool {
	return len(c.frames) == 1
}

// Compile compiles a parsed source unit into a Program. Panics raised by
// the visitor methods (SemanticError/DeveloperError, same discipline as
// informatter-nilan's ASTCompiler.CompileAST) are recovered here and
// returned as an error.
func Compile(statements []ast.Stmt) (program *Program, err error) {
	c := New()
	defer func() {
		if r := recover(); r != nil {
			switch v := r.(type) {
			case SemanticError:
				err = v
			case DeveloperError:
				err = v
			default:
				panic(r)
			}
		}
	}()

	for _, stmt := range statements {
		c.compileStmt(stmt)
	}
	c.emit(HALT)
	c.program.Code = c.cur().code
	return c.program, nil
}

// compileStmt dispatches a statement and, per spec §4.2, emits a POP after
// any statement kind that leaves a value on the stack - every kind except
// variable declaration, assignment, loop, block, if, break/continue/return,
// use-import, try, throw, print, class/function declaration, and match.
func (c *Compiler) compileStmt(stmt ast.Stmt) {
	switch stmt.(type) {
	case ast.VarStmt, ast.BlockStmt, ast.IfStmt, ast.WhileStmt, ast.ForStmt,
		ast.FunctionStmt, ast.ReturnStmt, ast.BreakStmt, ast.ContinueStmt,
		ast.ClassStmt, ast.TryStmt, ast.ThrowStmt, ast.MatchStmt, ast.UseStmt,
		ast.PrintStmt:
		stmt.Accept(c)
		return
	}

	if exprStmt, ok := stmt.(ast.ExpressionStmt); ok {
		if _, isAssign := exprStmt.Expression.(ast.Assign); isAssign {
			exprStmt.Expression.Accept(c)
			return
		}
		exprStmt.Expression.Accept(c)
		c.emit(POP)
		return
	}

	stmt.Accept(c)
}

func (c *Compiler) emit(op Opcode, operands ...int) int {
	instr := Instruction{Op: op}
	if len(operands) > 0 {
		instr.A = operands[0]
	}
	if len(operands) > 1 {
		instr.B = operands[1]
	}
	if len(operands) > 2 {
		instr.C = operands[2]
	}
	f := c.cur()
	f.code = append(f.code, instr)
	return len(f.code) - 1
}

// emitJump emits a placeholder jump (operand -1) and returns its position
// so patchJump can later fix it up, mirroring informatter-nilan's
// emitPlaceholderJump/patchJump pair.
func (c *Compiler) emitJump(op Opcode) int {
	return c.emit(op, -1)
}

func (c *Compiler) patchJump(pos int, target int) {
	c.cur().code[pos].A = target
}

func (c *Compiler) here() int {
	return len(c.cur().code)
}

func (c *Compiler) addConstant(v any) int {
	c.program.Constants = append(c.program.Constants, v)
	return len(c.program.Constants) - 1
}

func (c *Compiler) addName(name string) int {
	return c.addConstant(name)
}

// --- scope/local management, per-frame ---

func (c *Compiler) beginScope() {
	c.cur().scopeDepth++
}

func (c *Compiler) endScope() int {
	f := c.cur()
	f.scopeDepth--
	popped := 0
	for len(f.locals) > 0 && f.locals[len(f.locals)-1].depth > f.scopeDepth {
		f.locals = f.locals[:len(f.locals)-1]
		popped++
	}
	return popped
}

func (c *Compiler) declareLocal(name string) int {
	f := c.cur()
	for i := len(f.locals) - 1; i >= 0; i-- {
		if f.locals[i].depth < f.scopeDepth {
			break
		}
		if f.locals[i].name == name {
			panic(SemanticError{Message: fmt.Sprintf("redefinition of variable '%s'", name)})
		}
	}
	slot := len(f.locals)
	f.locals = append(f.locals, Local{name: name, depth: f.scopeDepth, slot: slot})
	c.program.LocalNames = append(c.program.LocalNames, name)
	return slot
}

func (c *Compiler) resolveLocal(name string) int {
	f := c.cur()
	for i := len(f.locals) - 1; i >= 0; i-- {
		if f.locals[i].name == name {
			return f.locals[i].slot
		}
	}
	return -1
}

// --- statements ---

func (c *Compiler) VisitVarStmt(v ast.VarStmt) any {
	name := v.Name.Lexeme
	if c.inTopFrame() && c.cur().scopeDepth == 0 {
		idx := c.addName(name)
		if v.Initializer != nil {
			v.Initializer.Accept(c)
		} else {
			c.emit(LOAD_CONST, c.addConstant(nil))
		}
		c.emit(STORE_GLOBAL, idx)
		if v.Exported {
			c.program.GlobalNames = append(c.program.GlobalNames, name)
		}
		return nil
	}

	c.declareLocal(name)
	if v.Initializer != nil {
		v.Initializer.Accept(c)
	} else {
		c.emit(LOAD_CONST, c.addConstant(nil))
	}
	slot := c.cur().locals[len(c.cur().locals)-1].slot
	c.emit(STORE_LOCAL, slot)
	return nil
}

func (c *Compiler) VisitExpressionStmt(e ast.ExpressionStmt) any {
	e.Expression.Accept(c)
	return nil
}

func (c *Compiler) VisitPrintStmt(p ast.PrintStmt) any {
	for _, expr := range p.Expressions {
		expr.Accept(c)
	}
	if len(p.Expressions) == 1 {
		c.emit(PRINT)
	} else {
		c.emit(PRINT_MULTIPLE, len(p.Expressions))
	}
	return nil
}

func (c *Compiler) VisitBlockStmt(b ast.BlockStmt) any {
	c.beginScope()
	for _, stmt := range b.Statements {
		c.compileStmt(stmt)
	}
	if popped := c.endScope(); popped > 0 {
		c.emit(POP, popped)
	}
	return nil
}

func (c *Compiler) VisitIfStmt(i ast.IfStmt) any {
	i.Condition.Accept(c)
	jumpIfFalse := c.emitJump(JUMP_IF_FALSE)
	c.compileStmt(i.Then)

	if i.Else != nil {
		jumpEnd := c.emitJump(JUMP)
		c.patchJump(jumpIfFalse, c.here())
		c.compileStmt(i.Else)
		c.patchJump(jumpEnd, c.here())
	} else {
		c.patchJump(jumpIfFalse, c.here())
	}
	return nil
}

func (c *Compiler) VisitWhileStmt(w ast.WhileStmt) any {
	loopStart := c.here()
	c.emit(LOOP_START)
	c.cur().loops = append(c.cur().loops, &loopContext{})

	w.Condition.Accept(c)
	jumpIfFalse := c.emitJump(JUMP_IF_FALSE)

	c.compileStmt(w.Body)
	c.emit(JUMP, loopStart)

	loopEnd := c.here()
	c.patchJump(jumpIfFalse, loopEnd)
	c.emit(LOOP_END)

	ctx := c.cur().loops[len(c.cur().loops)-1]
	c.cur().loops = c.cur().loops[:len(c.cur().loops)-1]
	for _, pos := range ctx.breakJumps {
		c.patchJump(pos, c.here())
	}
	for _, pos := range ctx.continueJumps {
		c.patchJump(pos, loopStart)
	}
	return nil
}

// VisitForStmt compiles `for x in expr` per spec §4.2: the collection is
// evaluated once, the body is compiled as its own sub-program (frame), and
// a single FOR_LOOP instruction references it by function-table index.
func (c *Compiler) VisitForStmt(f ast.ForStmt) any {
	f.Collection.Accept(c)

	nameIdx := c.addName(f.Iterator.Lexeme)

	c.frames = append(c.frames, &frame{isFunction: true})
	c.declareLocal(f.Iterator.Lexeme)
	c.cur().loops = append(c.cur().loops, &loopContext{})
	c.compileStmt(f.Body)
	ctx := c.cur().loops[len(c.cur().loops)-1]
	bodyEnd := c.here()
	c.emit(RETURN)
	// `continue` just ends this element's call (the sub-program RETURNs
	// normally and FOR_LOOP's Go range loop advances); `break` needs to stop
	// the range loop entirely, which a plain RETURN can't signal on its own,
	// so its jump targets a separate, reachable BREAK instead - see
	// vm.VM.execute's BREAK case and FOR_LOOP's loopBreakSignal check.
	breakTarget := c.here()
	c.emit(BREAK)
	for _, pos := range ctx.breakJumps {
		c.patchJump(pos, breakTarget)
	}
	for _, pos := range ctx.continueJumps {
		c.patchJump(pos, bodyEnd)
	}
	bodyFrame := c.frames[len(c.frames)-1]
	c.frames = c.frames[:len(c.frames)-1]

	funcIdx := len(c.program.Functions)
	c.program.Functions = append(c.program.Functions, FunctionDef{
		Name:       "<for-body>",
		ParamNames: []string{f.Iterator.Lexeme},
		Code:       bodyFrame.code,
	})

	c.emit(FOR_LOOP, funcIdx, nameIdx)
	return nil
}

func (c *Compiler) VisitFunctionStmt(fn ast.FunctionStmt) any {
	funcIdx := c.compileFunctionBody(fn.Name.Lexeme, fn.Params, fn.Body)
	nameIdx := c.addName(fn.Name.Lexeme)
	c.emit(DEFINE_FUNCTION, nameIdx, funcIdx)
	if fn.Exported {
		c.program.GlobalNames = append(c.program.GlobalNames, fn.Name.Lexeme)
	}
	return nil
}

// compileFunctionBody compiles params+body into their own frame and
// registers the result in Program.Functions, returning its index.
func (c *Compiler) compileFunctionBody(name string, params []ast.Param, body []ast.Stmt) int {
	c.frames = append(c.frames, &frame{isFunction: true})
	paramNames := make([]string, len(params))
	for i, p := range params {
		paramNames[i] = p.Name.Lexeme
		c.declareLocal(p.Name.Lexeme)
	}
	for _, stmt := range body {
		c.compileStmt(stmt)
	}
	c.emit(LOAD_CONST, c.addConstant(nil))
	c.emit(RETURN)

	bodyFrame := c.frames[len(c.frames)-1]
	c.frames = c.frames[:len(c.frames)-1]

	idx := len(c.program.Functions)
	c.program.Functions = append(c.program.Functions, FunctionDef{
		Name:       name,
		ParamNames: paramNames,
		Code:       bodyFrame.code,
	})
	return idx
}

func (c *Compiler) VisitReturnStmt(r ast.ReturnStmt) any {
	if r.Value != nil {
		r.Value.Accept(c)
	} else {
		c.emit(LOAD_CONST, c.addConstant(nil))
	}
	c.emit(RETURN)
	return nil
}

func (c *Compiler) VisitBreakStmt(b ast.BreakStmt) any {
	f := c.cur()
	if len(f.loops) == 0 {
		panic(SemanticError{Message: "'break' outside of a loop"})
	}
	pos := c.emitJump(JUMP)
	ctx := f.loops[len(f.loops)-1]
	ctx.breakJumps = append(ctx.breakJumps, pos)
	c.emit(BREAK)
	return nil
}

func (c *Compiler) VisitContinueStmt(ct ast.ContinueStmt) any {
	f := c.cur()
	if len(f.loops) == 0 {
		panic(SemanticError{Message: "'continue' outside of a loop"})
	}
	pos := c.emitJump(JUMP)
	ctx := f.loops[len(f.loops)-1]
	ctx.continueJumps = append(ctx.continueJumps, pos)
	c.emit(CONTINUE)
	return nil
}

// VisitClassStmt emits CREATE_CLASS referencing the body by AST handle:
// spec §4.2 is explicit that "the body is not precompiled because field
// initializers and methods are evaluated at instantiation time against the
// instance environment" - so fields/methods stay as AST, stored in AstRefs.
func (c *Compiler) VisitClassStmt(cls ast.ClassStmt) any {
	nameIdx := c.addName(cls.Name.Lexeme)
	parentIdx := -1
	if cls.HasParent {
		parentIdx = c.addName(cls.Parent.Lexeme)
	}
	astIdx := len(c.program.AstRefs)
	c.program.AstRefs = append(c.program.AstRefs, cls)
	c.emit(CREATE_CLASS, nameIdx, parentIdx, astIdx)
	if cls.Exported {
		c.program.GlobalNames = append(c.program.GlobalNames, cls.Name.Lexeme)
	}
	return nil
}

func (c *Compiler) VisitTryStmt(t ast.TryStmt) any {
	c.emit(TRY_START)
	c.compileStmt(t.Block)
	c.emit(TRY_END)
	jumpOverCatch := c.emitJump(JUMP)

	catchNameIdx := c.addName(t.CatchName.Lexeme)
	c.emit(CATCH, catchNameIdx)
	c.compileStmt(t.CatchBody)
	c.patchJump(jumpOverCatch, c.here())

	if t.Finally != nil {
		c.compileStmt(t.Finally)
	}
	return nil
}

func (c *Compiler) VisitThrowStmt(th ast.ThrowStmt) any {
	th.Expression.Accept(c)
	c.emit(THROW)
	return nil
}

// VisitMatchStmt compiles `match`/`spore`. Since the VM has no DUP
// instruction, each case test re-evaluates the scrutinee expression, as
// spec §4.3 specifies literally.
func (c *Compiler) VisitMatchStmt(m ast.MatchStmt) any {
	var endJumps []int
	for _, matchCase := range m.Cases {
		m.Expression.Accept(c)
		matchCase.Pattern.Accept(c)
		noMatch := c.emitJump(JUMP_IF_FALSE)
		c.compileStmt(matchCase.Body)
		endJumps = append(endJumps, c.emitJump(JUMP))
		c.patchJump(noMatch, c.here())
	}
	if m.Else != nil {
		c.compileStmt(m.Else)
	}
	for _, pos := range endJumps {
		c.patchJump(pos, c.here())
	}
	c.emit(MATCH_END)
	return nil
}

// VisitUseStmt emits IMPORT_LIB per spec §4.2/§6: name, optional alias,
// optional show-list (as a constant array of names, and a parallel array
// of aliases at index+1 when any alias was given).
func (c *Compiler) VisitUseStmt(u ast.UseStmt) any {
	nameIdx := c.addName(u.Library.Lexeme)
	aliasIdx := -1
	if u.HasAlias {
		aliasIdx = c.addName(u.Alias.Lexeme)
	}
	itemsIdx := -1
	if len(u.ShowNames) > 0 {
		names := make([]any, len(u.ShowNames))
		aliases := make([]any, len(u.ShowNames))
		for i, n := range u.ShowNames {
			names[i] = n.Lexeme
			aliases[i] = u.ShowAliases[i].Lexeme
		}
		itemsIdx = c.addConstant(names)
		c.addConstant(aliases)
	}
	c.emit(IMPORT_LIB, nameIdx, aliasIdx, itemsIdx)
	return nil
}

// tokenOperator maps a binary operator token type to its opcode, shared by
// VisitBinary for both the boxed-arithmetic and comparison ops.
var tokenOperator = map[token.TokenType]Opcode{
	token.ADD: ADD, token.SUB: SUB, token.MULT: MUL, token.DIV: DIV, token.MOD: MOD,
	token.EQUAL_EQUAL: EQ, token.NOT_EQUAL: NE,
	token.LESS: LT, token.LESS_EQUAL: LE, token.LARGER: GT, token.LARGER_EQUAL: GE,
	token.BIT_AND: BIT_AND, token.BIT_OR: BIT_OR, token.BIT_XOR: BIT_XOR,
	token.SHL: SHL, token.SHR: SHR,
}
