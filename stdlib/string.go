package stdlib

import (
	"strconv"
	"strings"

	"github.com/IvyMycelia/myco/value"
)

// stringLib builds the `string` module. Single-receiver operations (upper,
// lower, trim, split, replace) already exist as methods via
// builtinMethod/vm.go's directOpcodeMethodName table; this module covers
// the free-function operations that don't have an obvious single receiver
// (joining a list, parsing a number, repeating).
func stringLib() *value.Module {
	exports := value.NewObject()

	exports.Set("join", hostFn("string.join", func(args []value.Value, line int32, col int) (value.Value, error) {
		if len(args) != 2 {
			return nil, wrongArgCount("string.join", 2, len(args), line, col)
		}
		arr, ok := args[0].(*value.Array)
		if !ok {
			return nil, wrongType("string.join", "array", line, col)
		}
		sep, ok := args[1].(value.String)
		if !ok {
			return nil, wrongType("string.join", "string", line, col)
		}
		parts := make([]string, len(arr.Elements))
		for i, e := range arr.Elements {
			parts[i] = value.ToString(e)
		}
		return value.String{Value: strings.Join(parts, sep.Value)}, nil
	}))

	exports.Set("repeat", hostFn("string.repeat", func(args []value.Value, line int32, col int) (value.Value, error) {
		if len(args) != 2 {
			return nil, wrongArgCount("string.repeat", 2, len(args), line, col)
		}
		s, ok := args[0].(value.String)
		if !ok {
			return nil, wrongType("string.repeat", "string", line, col)
		}
		n, ok := args[1].(value.Number)
		if !ok || n.Value < 0 {
			return nil, wrongType("string.repeat", "non-negative number", line, col)
		}
		return value.String{Value: strings.Repeat(s.Value, int(n.Value))}, nil
	}))

	exports.Set("contains", hostFn("string.contains", func(args []value.Value, line int32, col int) (value.Value, error) {
		if len(args) != 2 {
			return nil, wrongArgCount("string.contains", 2, len(args), line, col)
		}
		s, ok1 := args[0].(value.String)
		sub, ok2 := args[1].(value.String)
		if !ok1 || !ok2 {
			return nil, wrongType("string.contains", "string", line, col)
		}
		return value.Bool{Value: strings.Contains(s.Value, sub.Value)}, nil
	}))

	exports.Set("toNumber", hostFn("string.toNumber", func(args []value.Value, line int32, col int) (value.Value, error) {
		if len(args) != 1 {
			return nil, wrongArgCount("string.toNumber", 1, len(args), line, col)
		}
		s, ok := args[0].(value.String)
		if !ok {
			return nil, wrongType("string.toNumber", "string", line, col)
		}
		n, err := strconv.ParseFloat(strings.TrimSpace(s.Value), 64)
		if err != nil {
			return nil, value.NewRuntimeError(value.InvalidCast, line, col, "cannot parse \""+s.Value+"\" as a number")
		}
		return value.Number{Value: n}, nil
	}))

	exports.Set("startsWith", hostFn("string.startsWith", func(args []value.Value, line int32, col int) (value.Value, error) {
		if len(args) != 2 {
			return nil, wrongArgCount("string.startsWith", 2, len(args), line, col)
		}
		s, ok1 := args[0].(value.String)
		prefix, ok2 := args[1].(value.String)
		if !ok1 || !ok2 {
			return nil, wrongType("string.startsWith", "string", line, col)
		}
		return value.Bool{Value: strings.HasPrefix(s.Value, prefix.Value)}, nil
	}))

	exports.Set("endsWith", hostFn("string.endsWith", func(args []value.Value, line int32, col int) (value.Value, error) {
		if len(args) != 2 {
			return nil, wrongArgCount("string.endsWith", 2, len(args), line, col)
		}
		s, ok1 := args[0].(value.String)
		suffix, ok2 := args[1].(value.String)
		if !ok1 || !ok2 {
			return nil, wrongType("string.endsWith", "string", line, col)
		}
		return value.Bool{Value: strings.HasSuffix(s.Value, suffix.Value)}, nil
	}))

	return &value.Module{Name: "string", Exports: exports}
}
