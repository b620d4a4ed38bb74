package parser

import (
	"encoding/json"
	"fmt"
	"github.com/IvyMycelia/myco/ast"
	"os"
)

const (
	colorYellow = "\033[33m"
	colorReset  = "\033[0m"
)

// astPrinter implements the Visitor interfaces and builds a
// JSON-friendly representation of the AST using maps and slices.
// Each Visit method returns an object that can be marshaled to JSON.
type astPrinter struct{}

func (p astPrinter) VisitExpressionStmt(exprStmt ast.ExpressionStmt) any {
	return map[string]any{
		"type":       "ExpressionStmt",
		"expression": exprStmt.Expression.Accept(p),
	}
}

func (p astPrinter) VisitPrintStmt(printStmt ast.PrintStmt) any {
	exprs := make([]any, 0, len(printStmt.Expressions))
	for _, e := range printStmt.Expressions {
		exprs = append(exprs, e.Accept(p))
	}
	return map[string]any{
		"type":        "PrintStmt",
		"expressions": exprs,
	}
}

func (p astPrinter) VisitVarStmt(varStmt ast.VarStmt) any {
	return map[string]any{
		"type":        "VarStmt",
		"name":        varStmt.Name.Lexeme,
		"varType":     varStmt.Type,
		"exported":    varStmt.Exported,
		"initializer": nilOrAccept(varStmt.Initializer, p),
	}
}

func (p astPrinter) VisitBlockStmt(blockStmt ast.BlockStmt) any {
	stmts := make([]any, 0, len(blockStmt.Statements))
	for _, stmt := range blockStmt.Statements {
		stmts = append(stmts, stmt.Accept(p))
	}
	return map[string]any{
		"type":       "BlockStmt",
		"statements": stmts,
	}
}

func (p astPrinter) VisitWhileStmt(stmt ast.WhileStmt) any {
	return map[string]any{
		"type":      "WhileStmt",
		"condition": stmt.Condition.Accept(p),
		"body":      stmt.Body.Accept(p),
	}
}

func (p astPrinter) VisitForStmt(stmt ast.ForStmt) any {
	return map[string]any{
		"type":       "ForStmt",
		"iterator":   stmt.Iterator.Lexeme,
		"collection": stmt.Collection.Accept(p),
		"body":       stmt.Body.Accept(p),
	}
}

func (p astPrinter) VisitIfStmt(stmt ast.IfStmt) any {
	var elseVal any
	if stmt.Else != nil {
		elseVal = stmt.Else.Accept(p)
	}
	return map[string]any{
		"type":      "IfStmt",
		"condition": stmt.Condition.Accept(p),
		"then":      stmt.Then.Accept(p),
		"else":      elseVal,
	}
}

func (p astPrinter) VisitFunctionStmt(stmt ast.FunctionStmt) any {
	body := make([]any, 0, len(stmt.Body))
	for _, s := range stmt.Body {
		body = append(body, s.Accept(p))
	}
	return map[string]any{
		"type":       "FunctionStmt",
		"name":       stmt.Name.Lexeme,
		"params":     paramNames(stmt.Params),
		"returnType": stmt.ReturnType,
		"exported":   stmt.Exported,
		"body":       body,
	}
}

func (p astPrinter) VisitReturnStmt(stmt ast.ReturnStmt) any {
	return map[string]any{
		"type":  "ReturnStmt",
		"value": nilOrAccept(stmt.Value, p),
	}
}

func (p astPrinter) VisitBreakStmt(stmt ast.BreakStmt) any {
	return map[string]any{"type": "BreakStmt"}
}

func (p astPrinter) VisitContinueStmt(stmt ast.ContinueStmt) any {
	return map[string]any{"type": "ContinueStmt"}
}

func (p astPrinter) VisitClassStmt(stmt ast.ClassStmt) any {
	fields := make([]any, 0, len(stmt.Fields))
	for _, f := range stmt.Fields {
		fields = append(fields, p.VisitVarStmt(f))
	}
	methods := make([]any, 0, len(stmt.Methods))
	for _, m := range stmt.Methods {
		methods = append(methods, p.VisitFunctionStmt(m))
	}
	parent := ""
	if stmt.HasParent {
		parent = stmt.Parent.Lexeme
	}
	return map[string]any{
		"type":     "ClassStmt",
		"name":     stmt.Name.Lexeme,
		"parent":   parent,
		"fields":   fields,
		"methods":  methods,
		"exported": stmt.Exported,
	}
}

func (p astPrinter) VisitTryStmt(stmt ast.TryStmt) any {
	var finallyVal any
	if stmt.Finally != nil {
		finallyVal = stmt.Finally.Accept(p)
	}
	return map[string]any{
		"type":      "TryStmt",
		"block":     stmt.Block.Accept(p),
		"catchName": stmt.CatchName.Lexeme,
		"catchBody": stmt.CatchBody.Accept(p),
		"finally":   finallyVal,
	}
}

func (p astPrinter) VisitThrowStmt(stmt ast.ThrowStmt) any {
	return map[string]any{
		"type":       "ThrowStmt",
		"expression": stmt.Expression.Accept(p),
	}
}

func (p astPrinter) VisitMatchStmt(stmt ast.MatchStmt) any {
	cases := make([]any, 0, len(stmt.Cases))
	for _, c := range stmt.Cases {
		cases = append(cases, map[string]any{
			"pattern": c.Pattern.Accept(p),
			"body":    c.Body.Accept(p),
		})
	}
	var elseVal any
	if stmt.Else != nil {
		elseVal = stmt.Else.Accept(p)
	}
	return map[string]any{
		"type":       "MatchStmt",
		"expression": stmt.Expression.Accept(p),
		"cases":      cases,
		"else":       elseVal,
	}
}

func (p astPrinter) VisitUseStmt(stmt ast.UseStmt) any {
	return map[string]any{
		"type":     "UseStmt",
		"library":  stmt.Library.Lexeme,
		"alias":    stmt.Alias.Lexeme,
		"hasAlias": stmt.HasAlias,
	}
}

func (p astPrinter) VisitLogicalExpression(expr ast.Logical) any {
	return map[string]any{
		"type":     "Logical",
		"operator": expr.Operator.Lexeme,
		"left":     expr.Left.Accept(p),
		"right":    expr.Right.Accept(p),
	}
}

func (p astPrinter) VisitAssignExpression(assign ast.Assign) any {
	return map[string]any{
		"type":   "Assign",
		"target": assign.Target.Accept(p),
		"value":  assign.Value.Accept(p),
	}
}

func (p astPrinter) VisitVariableExpression(variable ast.Variable) any {
	return map[string]any{
		"type": "Variable",
		"name": variable.Name.Lexeme,
	}
}

func (p astPrinter) VisitBinary(b ast.Binary) any {
	return map[string]any{
		"type":     "Binary",
		"operator": b.Operator.Lexeme,
		"left":     b.Left.Accept(p),
		"right":    b.Right.Accept(p),
	}
}

func (p astPrinter) VisitUnary(u ast.Unary) any {
	return map[string]any{
		"type":     "Unary",
		"operator": u.Operator.Lexeme,
		"right":    u.Right.Accept(p),
	}
}

func (p astPrinter) VisitLiteral(l ast.Literal) any {
	// literals are terminal values and can be used directly in JSON
	return l.Value
}

func (p astPrinter) VisitGrouping(g ast.Grouping) any {
	return map[string]any{
		"type":       "Grouping",
		"expression": g.Expression.Accept(p),
	}
}

func (p astPrinter) VisitCall(call ast.Call) any {
	args := make([]any, 0, len(call.Args))
	for _, a := range call.Args {
		args = append(args, a.Accept(p))
	}
	return map[string]any{
		"type":   "Call",
		"callee": call.Callee.Accept(p),
		"args":   args,
	}
}

func (p astPrinter) VisitMethodCall(call ast.MethodCall) any {
	args := make([]any, 0, len(call.Args))
	for _, a := range call.Args {
		args = append(args, a.Accept(p))
	}
	return map[string]any{
		"type":   "MethodCall",
		"object": call.Object.Accept(p),
		"name":   call.Name.Lexeme,
		"args":   args,
	}
}

func (p astPrinter) VisitMember(member ast.Member) any {
	return map[string]any{
		"type":   "Member",
		"object": member.Object.Accept(p),
		"name":   member.Name.Lexeme,
	}
}

func (p astPrinter) VisitIndex(index ast.Index) any {
	return map[string]any{
		"type":   "Index",
		"object": index.Object.Accept(p),
		"index":  index.IndexOf.Accept(p),
	}
}

func (p astPrinter) VisitArrayLiteral(array ast.ArrayLiteral) any {
	elems := make([]any, 0, len(array.Elements))
	for _, e := range array.Elements {
		elems = append(elems, e.Accept(p))
	}
	return map[string]any{
		"type":     "ArrayLiteral",
		"elements": elems,
	}
}

func (p astPrinter) VisitMapLiteral(m ast.MapLiteral) any {
	keys := make([]any, 0, len(m.Keys))
	values := make([]any, 0, len(m.Values))
	for _, k := range m.Keys {
		keys = append(keys, k.Accept(p))
	}
	for _, v := range m.Values {
		values = append(values, v.Accept(p))
	}
	return map[string]any{
		"type":   "MapLiteral",
		"keys":   keys,
		"values": values,
	}
}

func (p astPrinter) VisitSetLiteral(s ast.SetLiteral) any {
	elems := make([]any, 0, len(s.Elements))
	for _, e := range s.Elements {
		elems = append(elems, e.Accept(p))
	}
	return map[string]any{
		"type":     "SetLiteral",
		"elements": elems,
	}
}

func (p astPrinter) VisitRange(r ast.Range) any {
	return map[string]any{
		"type":      "Range",
		"start":     r.Start.Accept(p),
		"end":       r.End.Accept(p),
		"step":      nilOrAccept(r.Step, p),
		"inclusive": r.Inclusive,
	}
}

func (p astPrinter) VisitLambda(lambda ast.Lambda) any {
	body := make([]any, 0, len(lambda.Body))
	for _, s := range lambda.Body {
		body = append(body, s.Accept(p))
	}
	return map[string]any{
		"type":       "Lambda",
		"params":     paramNames(lambda.Params),
		"returnType": lambda.ReturnType,
		"body":       body,
	}
}

// Pattern visitor methods — used only by VisitMatchStmt above.

func (p astPrinter) VisitLiteralPattern(pat ast.LiteralPattern) any {
	return map[string]any{"type": "LiteralPattern", "value": pat.Value}
}

func (p astPrinter) VisitWildcardPattern(pat ast.WildcardPattern) any {
	return map[string]any{"type": "WildcardPattern"}
}

func (p astPrinter) VisitTypePattern(pat ast.TypePattern) any {
	return map[string]any{"type": "TypePattern", "typeName": pat.TypeName}
}

func (p astPrinter) VisitNotPattern(pat ast.NotPattern) any {
	return map[string]any{"type": "NotPattern", "inner": pat.Inner.Accept(p)}
}

func (p astPrinter) VisitDestructurePattern(pat ast.DestructurePattern) any {
	return map[string]any{"type": "DestructurePattern"}
}

func (p astPrinter) VisitGuardPattern(pat ast.GuardPattern) any {
	return map[string]any{"type": "GuardPattern", "inner": pat.Inner.Accept(p)}
}

func (p astPrinter) VisitOrPattern(pat ast.OrPattern) any {
	return map[string]any{"type": "OrPattern"}
}

func (p astPrinter) VisitAndPattern(pat ast.AndPattern) any {
	return map[string]any{"type": "AndPattern"}
}

func (p astPrinter) VisitRangePattern(pat ast.RangePattern) any {
	return map[string]any{"type": "RangePattern"}
}

func (p astPrinter) VisitRegexPattern(pat ast.RegexPattern) any {
	return map[string]any{"type": "RegexPattern", "pattern": pat.Pattern}
}

// paramNames extracts the lexeme of each parameter's name for the JSON dump.
func paramNames(params []ast.Param) []string {
	names := make([]string, 0, len(params))
	for _, param := range params {
		names = append(names, param.Name.Lexeme)
	}
	return names
}

// nilOrAccept returns nil if expr is nil, otherwise it continues
// processintg the expression and returns the result.
func nilOrAccept(expr ast.Expression, p ast.ExpressionVisitor) any {
	if expr == nil {
		return nil
	}
	return expr.Accept(p)
}

// PrintASTJSON converts a slice of statements into a prettified JSON string.
func PrintASTJSON(statements []ast.Stmt) (string, error) {
	printer := astPrinter{}
	out := make([]any, 0, len(statements))
	for _, s := range statements {
		out = append(out, s.Accept(printer))
	}
	bytes, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", err
	}

	jsonStr := string(bytes)
	fmt.Println(colorYellow + "----- AST JSON -----")
	fmt.Println(colorYellow + jsonStr)
	fmt.Println(colorYellow + "-----" + colorReset)
	fmt.Println("")
	return jsonStr, nil
}

// WriteASTJSONToFile writes the prettified AST JSON to the given file path.
func WriteASTJSONToFile(statements []ast.Stmt, path string) error {
	s, err := PrintASTJSON(statements)
	if err != nil {
		return err
	}
	fDescriptor, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating AST file: %s", err.Error())
	}

	_, error := fDescriptor.Write([]byte(s))
	if error != nil {
		return fmt.Errorf("error writing AST to file: %s", error.Error())
	}
	defer fDescriptor.Close()
	return nil
}
