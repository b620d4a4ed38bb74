package vm

import "github.com/IvyMycelia/myco/value"

// valueFromLiteral converts a raw literal payload (ast.Literal.Value /
// compiler.Program.Constants entry) into a boxed value.Value. The parser
// stores literals as plain Go `any` (int64 for integer literals, float64,
// string, bool, or nil); LOAD_CONST
// and the ast-walking evaluator's VisitLiteral both funnel through this one
// conversion so the two execution paths agree on what a literal means.
func valueFromLiteral(v any) value.Value {
	switch t := v.(type) {
	case nil:
		return value.NullValue
	case bool:
		return value.Bool{Value: t}
	case float64:
		return value.Number{Value: t}
	case int64:
		return value.Number{Value: float64(t)}
	case int:
		return value.Number{Value: float64(t)}
	case string:
		return value.String{Value: t}
	case value.Value:
		return t
	default:
		return value.NullValue
	}
}
