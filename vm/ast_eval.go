package vm

import (
	"fmt"

	"github.com/IvyMycelia/myco/ast"
	"github.com/IvyMycelia/myco/token"
	"github.com/IvyMycelia/myco/value"
)

// astEvaluator is a tree-walking evaluator for class bodies: spec §4.2 is
// explicit that "the body is not precompiled because field initializers and
// methods are evaluated at instantiation time against the instance
// environment", so class field initializers and method bodies never reach
// the bytecode compiler at all - they stay as AST (stored via
// compiler.Program.AstRefs) and run here instead.
//
// This is adapted from informatter-nilan's interpreter.TreeWalkInterpreter
// (interpreter/interpreter.go): same panic/recover discipline and the same
// Visitor shape, generalized from that file's untyped `any` values and
// bare-bones operator switch to value.Value plus the full expression and
// statement surface a method body can contain (calls, member/index access,
// composite literals, loops, try/catch, match), and wired back into the VM
// for anything that crosses into compiled bytecode (calling an ordinary
// function or another instance method from inside a method body).
type astEvaluator struct {
	vm  *VM
	env *value.Environment
}

// returnSignal/breakSignal/continueSignal carry control flow out of nested
// statement execution via panic, the same mechanism the teacher's
// interpreter already uses for propagating runtime errors.
type returnSignal struct{ value value.Value }
type breakSignal struct{}
type continueSignal struct{}

// execBody runs a method/lambda-like statement list and recovers a
// returnSignal into a normal return value; falling off the end (no explicit
// `return`) yields Null, matching compileFunctionBody's implicit
// `return null;` trailer for the compiled path.
func (e *astEvaluator) execBody(stmts []ast.Stmt) (result value.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			switch sig := r.(type) {
			case returnSignal:
				result, err = sig.value, nil
			case value.RuntimeError:
				result, err = nil, sig
			case ThrownError:
				result, err = nil, sig
			default:
				panic(r)
			}
		}
	}()
	for _, s := range stmts {
		e.exec(s)
	}
	return value.NullValue, nil
}

func (e *astEvaluator) exec(stmt ast.Stmt) {
	stmt.Accept(e)
}

func (e *astEvaluator) evalExpr(expr ast.Expression) (result value.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			switch sig := r.(type) {
			case value.RuntimeError:
				result, err = nil, sig
			case ThrownError:
				result, err = nil, sig
			default:
				panic(r)
			}
		}
	}()
	return expr.Accept(e).(value.Value), nil
}

func (e *astEvaluator) eval(expr ast.Expression) value.Value {
	return expr.Accept(e).(value.Value)
}

func (e *astEvaluator) fail(code value.ErrorCode, line int32, col int, msg string) {
	panic(value.NewRuntimeError(code, line, col, msg))
}

// --- statements ---

func (e *astEvaluator) VisitExpressionStmt(s ast.ExpressionStmt) any {
	e.eval(s.Expression)
	return nil
}

func (e *astEvaluator) VisitPrintStmt(s ast.PrintStmt) any {
	parts := make([]string, len(s.Expressions))
	for i, expr := range s.Expressions {
		parts[i] = value.ToString(e.eval(expr))
	}
	out := parts[0]
	for _, p := range parts[1:] {
		out += ", " + p
	}
	fmt.Fprintln(e.vm.out, out)
	return nil
}

func (e *astEvaluator) VisitVarStmt(s ast.VarStmt) any {
	var v value.Value = value.NullValue
	if s.Initializer != nil {
		v = e.eval(s.Initializer)
	}
	e.env.Define(s.Name.Lexeme, v)
	return nil
}

func (e *astEvaluator) VisitBlockStmt(s ast.BlockStmt) any {
	previous := e.env
	e.env = value.New(previous)
	for _, stmt := range s.Statements {
		e.exec(stmt)
	}
	e.env = previous
	return nil
}

func (e *astEvaluator) VisitIfStmt(s ast.IfStmt) any {
	if value.Truthy(e.eval(s.Condition)) {
		e.exec(s.Then)
	} else if s.Else != nil {
		e.exec(s.Else)
	}
	return nil
}

func (e *astEvaluator) VisitWhileStmt(s ast.WhileStmt) any {
	for value.Truthy(e.eval(s.Condition)) {
		if e.runLoopBody(s.Body) {
			break
		}
	}
	return nil
}

func (e *astEvaluator) VisitForStmt(s ast.ForStmt) any {
	collection := e.eval(s.Collection)
	elems, err := e.vm.iterate(collection)
	if err != nil {
		panic(err)
	}
	previous := e.env
	for _, elem := range elems {
		e.env = value.New(previous)
		e.env.Define(s.Iterator.Lexeme, elem)
		if e.runLoopBody(s.Body) {
			break
		}
	}
	e.env = previous
	return nil
}

// runLoopBody executes a loop body once, recovering break/continue so the
// caller's for/while range can decide whether to keep iterating: break stops
// the loop, continue only ends the current iteration. The bytecode FOR_LOOP
// draws the same distinction through its BREAK opcode and loopBreakSignal.
func (e *astEvaluator) runLoopBody(body ast.Stmt) (stop bool) {
	defer func() {
		if r := recover(); r != nil {
			switch r.(type) {
			case breakSignal:
				stop = true
			case continueSignal:
				stop = false
			default:
				panic(r)
			}
		}
	}()
	e.exec(body)
	return false
}

// VisitFunctionStmt handles a named function declared inside a method body.
// This body never reaches compiler.Compile, so there's no FuncIndex to hand
// out - bind a treeFunction that re-enters this same evaluator instead.
func (e *astEvaluator) VisitFunctionStmt(s ast.FunctionStmt) any {
	fn := &treeFunction{def: s, closure: e.env, eval: e}
	e.env.Define(s.Name.Lexeme, fn)
	return nil
}

func (e *astEvaluator) VisitReturnStmt(s ast.ReturnStmt) any {
	var v value.Value = value.NullValue
	if s.Value != nil {
		v = e.eval(s.Value)
	}
	panic(returnSignal{value: v})
}

func (e *astEvaluator) VisitBreakStmt(s ast.BreakStmt) any {
	panic(breakSignal{})
}

func (e *astEvaluator) VisitContinueStmt(s ast.ContinueStmt) any {
	panic(continueSignal{})
}

// VisitClassStmt: a class declared inside a method body (unusual, but the
// grammar allows it) is bound the same way CREATE_CLASS does in the
// bytecode path.
func (e *astEvaluator) VisitClassStmt(s ast.ClassStmt) any {
	cls := &value.Class{Name: s.Name.Lexeme, HasParent: s.HasParent, Body: s, Env: e.env}
	if s.HasParent {
		cls.ParentName = s.Parent.Lexeme
	}
	e.env.Define(cls.Name, cls)
	return nil
}

func (e *astEvaluator) VisitTryStmt(s ast.TryStmt) any {
	func() {
		defer func() {
			if r := recover(); r != nil {
				var errVal value.Value
				switch sig := r.(type) {
				case value.RuntimeError:
					if sig.Fatal {
						panic(r)
					}
					errVal = sig.AsValue()
				case ThrownError:
					errVal = sig.Value
				default:
					panic(r)
				}
				e.env.Define(s.CatchName.Lexeme, errVal)
				e.exec(s.CatchBody)
			}
		}()
		e.exec(s.Block)
	}()
	if s.Finally != nil {
		e.exec(s.Finally)
	}
	return nil
}

func (e *astEvaluator) VisitThrowStmt(s ast.ThrowStmt) any {
	panic(ThrownError{Value: e.eval(s.Expression)})
}

func (e *astEvaluator) VisitMatchStmt(s ast.MatchStmt) any {
	scrutinee := e.eval(s.Expression)
	for _, c := range s.Cases {
		if e.matchPattern(c.Pattern, scrutinee) {
			e.exec(c.Body)
			return nil
		}
	}
	if s.Else != nil {
		e.exec(s.Else)
	}
	return nil
}

func (e *astEvaluator) matchPattern(p ast.Pattern, scrutinee value.Value) bool {
	switch pat := p.(type) {
	case ast.LiteralPattern:
		return value.Equal(scrutinee, valueFromLiteral(pat.Value))
	case ast.WildcardPattern:
		return true
	case ast.TypePattern:
		return string(scrutinee.Type()) == pat.TypeName
	default:
		e.fail(value.InternalError, 0, 0, "reserved pattern kind used in a class body")
		return false
	}
}

func (e *astEvaluator) VisitUseStmt(s ast.UseStmt) any {
	e.vm.importLibrary(e.env, s.Library.Lexeme, s.HasAlias, s.Alias.Lexeme, s.ShowNames, s.ShowAliases)
	return nil
}

// --- expressions ---

func (e *astEvaluator) VisitBinary(b ast.Binary) any {
	left := e.eval(b.Left)
	right := e.eval(b.Right)
	v, err := binaryOp(b.Operator.TokenType, left, right)
	if err != nil {
		panic(err)
	}
	return v
}

func (e *astEvaluator) VisitUnary(u ast.Unary) any {
	right := e.eval(u.Right)
	switch u.Operator.TokenType {
	case token.SUB:
		n, ok := right.(value.Number)
		if !ok {
			e.fail(value.TypeMismatch, u.Operator.Line, u.Operator.Column, "unary '-' expects a number")
		}
		return value.Number{Value: -n.Value}
	case token.BANG:
		return value.Bool{Value: !value.Truthy(right)}
	default:
		e.fail(value.InternalError, u.Operator.Line, u.Operator.Column, "unhandled unary operator "+u.Operator.Lexeme)
		return nil
	}
}

func (e *astEvaluator) VisitLiteral(l ast.Literal) any {
	return valueFromLiteral(l.Value)
}

func (e *astEvaluator) VisitGrouping(g ast.Grouping) any {
	return e.eval(g.Expression)
}

func (e *astEvaluator) VisitVariableExpression(v ast.Variable) any {
	val, ok := e.env.Get(v.Name.Lexeme)
	if !ok {
		e.fail(value.UndefinedVariable, v.Name.Line, v.Name.Column, "undefined variable: "+v.Name.Lexeme)
	}
	return val
}

func (e *astEvaluator) VisitAssignExpression(a ast.Assign) any {
	val := e.eval(a.Value)
	switch target := a.Target.(type) {
	case ast.Variable:
		e.env.Assign(target.Name.Lexeme, val)
	case ast.Index:
		obj := e.eval(target.Object)
		idx := e.eval(target.IndexOf)
		e.assignIndex(obj, idx, val, target.Bracket)
	case ast.Member:
		obj := e.eval(target.Object)
		o, ok := obj.(*value.Object)
		if !ok {
			e.fail(value.InvalidMemberAccess, target.Name.Line, target.Name.Column, "cannot set a property on a non-object")
		}
		o.Set(target.Name.Lexeme, val)
	default:
		e.fail(value.InternalError, 0, 0, fmt.Sprintf("unsupported assignment target %T", a.Target))
	}
	return val
}

func (e *astEvaluator) assignIndex(obj, idx, val value.Value, tok token.Token) {
	switch o := obj.(type) {
	case *value.Array:
		n, ok := idx.(value.Number)
		if !ok || int(n.Value) < 0 || int(n.Value) >= len(o.Elements) {
			e.fail(value.ArrayIndexOutOfBounds, tok.Line, tok.Column, "array index out of bounds")
		}
		o.Elements[int(n.Value)] = val
	case *value.Object:
		o.Set(value.ToString(idx), val)
	default:
		e.fail(value.InvalidIndexTarget, tok.Line, tok.Column, "cannot index-assign into this value")
	}
}

func (e *astEvaluator) VisitLogicalExpression(l ast.Logical) any {
	left := e.eval(l.Left)
	switch l.Operator.TokenType {
	case token.OR:
		if value.Truthy(left) {
			return value.Bool{Value: true}
		}
		return value.Bool{Value: value.Truthy(e.eval(l.Right))}
	case token.AND:
		if !value.Truthy(left) {
			return value.Bool{Value: false}
		}
		return value.Bool{Value: value.Truthy(e.eval(l.Right))}
	case token.XOR:
		right := e.eval(l.Right)
		return value.Bool{Value: value.Truthy(left) != value.Truthy(right)}
	default:
		e.fail(value.InternalError, 0, 0, "unhandled logical operator "+l.Operator.Lexeme)
		return nil
	}
}

func (e *astEvaluator) evalArgs(args []ast.Expression) []value.Value {
	out := make([]value.Value, len(args))
	for i, a := range args {
		out[i] = e.eval(a)
	}
	return out
}

func (e *astEvaluator) VisitCall(c ast.Call) any {
	args := e.evalArgs(c.Args)
	var callee value.Value
	if v, ok := c.Callee.(ast.Variable); ok {
		found, ok := e.env.Get(v.Name.Lexeme)
		if !ok {
			e.fail(value.UndefinedFunction, v.Name.Line, v.Name.Column, "undefined function: "+v.Name.Lexeme)
		}
		callee = found
	} else {
		callee = e.eval(c.Callee)
	}
	result, err := e.callValue(callee, args)
	if err != nil {
		panic(err)
	}
	return result
}

// callValue dispatches a callable Value, additionally recognising
// *treeFunction (a function declared inside a class body, see
// VisitFunctionStmt) alongside the VM's own *value.Function/*value.HostFunction/*value.Class.
func (e *astEvaluator) callValue(callee value.Value, args []value.Value) (value.Value, error) {
	if tf, ok := callee.(*treeFunction); ok {
		return tf.call(args)
	}
	return e.vm.callValue(callee, args)
}

func (e *astEvaluator) VisitMethodCall(m ast.MethodCall) any {
	obj := e.eval(m.Object)
	args := e.evalArgs(m.Args)
	if inst, ok := obj.(*value.Object); ok {
		if _, isInstance := inst.ClassName(); isInstance {
			result, err := e.vm.callInstanceMethod(inst, m.Name.Lexeme, args)
			if err != nil {
				panic(err)
			}
			return result
		}
	}
	result, err := builtinMethod(m.Name.Lexeme, obj, args)
	if err != nil {
		panic(err)
	}
	return result
}

func (e *astEvaluator) VisitMember(m ast.Member) any {
	obj := e.eval(m.Object)
	o, ok := obj.(*value.Object)
	if !ok {
		e.fail(value.InvalidMemberAccess, m.Name.Line, m.Name.Column, "cannot read a property of a non-object")
	}
	v, ok := o.Get(m.Name.Lexeme)
	if !ok {
		e.fail(value.InvalidMemberAccess, m.Name.Line, m.Name.Column, "undefined field: "+m.Name.Lexeme)
	}
	return v
}

func (e *astEvaluator) VisitIndex(idx ast.Index) any {
	obj := e.eval(idx.Object)
	i := e.eval(idx.IndexOf)
	v, err := indexValue(obj, i)
	if err != nil {
		panic(err)
	}
	return v
}

func (e *astEvaluator) VisitArrayLiteral(a ast.ArrayLiteral) any {
	return value.NewArray(e.evalArgs(a.Elements)...)
}

func (e *astEvaluator) VisitMapLiteral(m ast.MapLiteral) any {
	obj := value.NewObject()
	for i := range m.Keys {
		k := e.eval(m.Keys[i])
		v := e.eval(m.Values[i])
		obj.Set(value.ToString(k), v)
	}
	return obj
}

func (e *astEvaluator) VisitSetLiteral(s ast.SetLiteral) any {
	var out []value.Value
	for _, el := range e.evalArgs(s.Elements) {
		dup := false
		for _, seen := range out {
			if value.Equal(el, seen) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, el)
		}
	}
	return value.NewArray(out...)
}

func (e *astEvaluator) VisitRange(r ast.Range) any {
	start, ok1 := e.eval(r.Start).(value.Number)
	end, ok2 := e.eval(r.End).(value.Number)
	if !ok1 || !ok2 {
		e.fail(value.TypeMismatch, 0, 0, "range bounds must be numbers")
	}
	step := 0.0
	if r.Step != nil {
		s, ok := e.eval(r.Step).(value.Number)
		if !ok {
			e.fail(value.TypeMismatch, 0, 0, "range step must be a number")
		}
		step = s.Value
	}
	return value.Range{Start: start.Value, End: end.Value, Step: step, Inclusive: r.Inclusive}
}

func (e *astEvaluator) VisitLambda(l ast.Lambda) any {
	return &treeFunction{def: ast.FunctionStmt{Params: l.Params, Body: l.Body}, closure: e.env, eval: e}
}

// --- patterns (only reachable from VisitMatchStmt's switch above; these
// satisfy ast.PatternVisitor but matchPattern never calls Accept directly) ---

func (e *astEvaluator) VisitLiteralPattern(p ast.LiteralPattern) any     { return nil }
func (e *astEvaluator) VisitWildcardPattern(p ast.WildcardPattern) any  { return nil }
func (e *astEvaluator) VisitTypePattern(p ast.TypePattern) any          { return nil }
func (e *astEvaluator) VisitNotPattern(p ast.NotPattern) any            { return nil }
func (e *astEvaluator) VisitDestructurePattern(p ast.DestructurePattern) any {
	return nil
}
func (e *astEvaluator) VisitGuardPattern(p ast.GuardPattern) any { return nil }
func (e *astEvaluator) VisitOrPattern(p ast.OrPattern) any       { return nil }
func (e *astEvaluator) VisitAndPattern(p ast.AndPattern) any     { return nil }
func (e *astEvaluator) VisitRangePattern(p ast.RangePattern) any { return nil }
func (e *astEvaluator) VisitRegexPattern(p ast.RegexPattern) any { return nil }

// treeFunction is a closure captured by ast_eval.go rather than the
// bytecode compiler: a function or lambda declared inside a class body has
// no FuncIndex (that body never went through compiler.Compile at all), so it
// can't be represented as a plain *value.Function. It still satisfies
// value.Value so it can be stored in an Environment and passed around like
// any other callable.
type treeFunction struct {
	def     ast.FunctionStmt
	closure *value.Environment
	eval    *astEvaluator
}

func (f *treeFunction) Type() value.ValueType { return value.FUNCTION_VALUE }
func (f *treeFunction) String() string {
	name := f.def.Name.Lexeme
	if name == "" {
		name = "<lambda>"
	}
	return fmt.Sprintf("<function %s>", name)
}

func (f *treeFunction) call(args []value.Value) (value.Value, error) {
	env := value.New(f.closure)
	for i, p := range f.def.Params {
		if i < len(args) {
			env.Define(p.Name.Lexeme, args[i])
		} else {
			env.Define(p.Name.Lexeme, value.NullValue)
		}
	}
	ev := &astEvaluator{vm: f.eval.vm, env: env}
	return ev.execBody(f.def.Body)
}
