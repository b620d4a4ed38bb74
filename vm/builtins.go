package vm

import (
	"math"
	"strconv"
	"strings"

	"github.com/IvyMycelia/myco/value"
)

// builtinMethod implements spec §4.2's "well-known method names" - the same
// table the compiler's methodOpcodes map recognises at compile time
// (compiler/opcodes.go), but keyed by name instead of opcode so both the
// bytecode VM's direct opcodes (TO_STRING, ARRAY_PUSH, ...) and the
// ast-walking class-body evaluator's generic VisitMethodCall can share one
// implementation instead of two copies of the same switch.
func builtinMethod(name string, receiver value.Value, args []value.Value) (value.Value, error) {
	switch name {
	case "toString":
		return value.String{Value: value.ToString(receiver)}, nil
	case "type":
		return value.String{Value: string(receiver.Type())}, nil
	case "length":
		return builtinLength(receiver)
	case "isNull":
		_, ok := receiver.(value.Null)
		return value.Bool{Value: ok}, nil
	case "isBool":
		_, ok := receiver.(value.Bool)
		return value.Bool{Value: ok}, nil
	case "isNumber":
		_, ok := receiver.(value.Number)
		return value.Bool{Value: ok}, nil
	case "isString":
		_, ok := receiver.(value.String)
		return value.Bool{Value: ok}, nil
	case "isArray":
		_, ok := receiver.(*value.Array)
		return value.Bool{Value: ok}, nil

	case "upper", "lower", "trim":
		s, ok := receiver.(value.String)
		if !ok {
			return nil, wrongType(name, "string")
		}
		switch name {
		case "upper":
			return value.String{Value: strings.ToUpper(s.Value)}, nil
		case "lower":
			return value.String{Value: strings.ToLower(s.Value)}, nil
		default:
			return value.String{Value: strings.TrimSpace(s.Value)}, nil
		}
	case "split":
		s, ok := receiver.(value.String)
		if !ok {
			return nil, wrongType(name, "string")
		}
		sep := ""
		if len(args) > 0 {
			if sv, ok := args[0].(value.String); ok {
				sep = sv.Value
			}
		}
		var parts []string
		if sep == "" {
			parts = strings.Fields(s.Value)
		} else {
			parts = strings.Split(s.Value, sep)
		}
		elems := make([]value.Value, len(parts))
		for i, p := range parts {
			elems[i] = value.String{Value: p}
		}
		return value.NewArray(elems...), nil
	case "replace":
		s, ok := receiver.(value.String)
		if !ok {
			return nil, wrongType(name, "string")
		}
		if len(args) < 2 {
			return nil, wrongArgCount(name, 2, len(args))
		}
		old, ok1 := args[0].(value.String)
		nw, ok2 := args[1].(value.String)
		if !ok1 || !ok2 {
			return nil, wrongType(name, "string")
		}
		return value.String{Value: strings.ReplaceAll(s.Value, old.Value, nw.Value)}, nil

	case "abs", "sqrt", "floor", "ceil", "round", "sin", "cos", "tan":
		n, ok := receiver.(value.Number)
		if !ok {
			return nil, wrongType(name, "number")
		}
		var r float64
		switch name {
		case "abs":
			r = math.Abs(n.Value)
		case "sqrt":
			r = math.Sqrt(n.Value)
		case "floor":
			r = math.Floor(n.Value)
		case "ceil":
			r = math.Ceil(n.Value)
		case "round":
			r = math.Round(n.Value)
		case "sin":
			r = math.Sin(n.Value)
		case "cos":
			r = math.Cos(n.Value)
		case "tan":
			r = math.Tan(n.Value)
		}
		return value.Number{Value: r}, nil
	case "pow":
		n, ok := receiver.(value.Number)
		if !ok || len(args) < 1 {
			return nil, wrongArgCount(name, 1, len(args))
		}
		exp, ok := args[0].(value.Number)
		if !ok {
			return nil, wrongType(name, "number")
		}
		return value.Number{Value: math.Pow(n.Value, exp.Value)}, nil

	case "push":
		arr, ok := receiver.(*value.Array)
		if !ok {
			return nil, wrongType(name, "array")
		}
		if len(args) > 0 {
			arr.Elements = append(arr.Elements, args[0])
		}
		return value.Number{Value: float64(len(arr.Elements))}, nil
	case "pop":
		arr, ok := receiver.(*value.Array)
		if !ok {
			return nil, wrongType(name, "array")
		}
		if len(arr.Elements) == 0 {
			return nil, value.NewRuntimeError(value.ArrayIndexOutOfBounds, 0, 0, "pop on an empty array")
		}
		last := arr.Elements[len(arr.Elements)-1]
		arr.Elements = arr.Elements[:len(arr.Elements)-1]
		return last, nil
	case "contains":
		arr, ok := receiver.(*value.Array)
		if !ok || len(args) < 1 {
			return nil, wrongType(name, "array")
		}
		for _, e := range arr.Elements {
			if value.Equal(e, args[0]) {
				return value.Bool{Value: true}, nil
			}
		}
		return value.Bool{Value: false}, nil
	case "indexOf":
		arr, ok := receiver.(*value.Array)
		if !ok || len(args) < 1 {
			return nil, wrongType(name, "array")
		}
		for i, e := range arr.Elements {
			if value.Equal(e, args[0]) {
				return value.Number{Value: float64(i)}, nil
			}
		}
		return value.Number{Value: -1}, nil
	case "join":
		arr, ok := receiver.(*value.Array)
		if !ok {
			return nil, wrongType(name, "array")
		}
		sep := ""
		if len(args) > 0 {
			if sv, ok := args[0].(value.String); ok {
				sep = sv.Value
			}
		}
		parts := make([]string, len(arr.Elements))
		for i, e := range arr.Elements {
			parts[i] = value.ToString(e)
		}
		return value.String{Value: strings.Join(parts, sep)}, nil
	case "unique":
		arr, ok := receiver.(*value.Array)
		if !ok {
			return nil, wrongType(name, "array")
		}
		var out []value.Value
		for _, e := range arr.Elements {
			dup := false
			for _, seen := range out {
				if value.Equal(e, seen) {
					dup = true
					break
				}
			}
			if !dup {
				out = append(out, e)
			}
		}
		return value.NewArray(out...), nil
	case "slice":
		arr, ok := receiver.(*value.Array)
		if !ok || len(args) < 2 {
			return nil, wrongType(name, "array")
		}
		startV, ok1 := args[0].(value.Number)
		endV, ok2 := args[1].(value.Number)
		if !ok1 || !ok2 {
			return nil, wrongType(name, "number")
		}
		start, end := clampSlice(int(startV.Value), int(endV.Value), len(arr.Elements))
		out := make([]value.Value, end-start)
		copy(out, arr.Elements[start:end])
		return value.NewArray(out...), nil
	case "concat":
		arr, ok := receiver.(*value.Array)
		if !ok || len(args) < 1 {
			return nil, wrongType(name, "array")
		}
		other, ok := args[0].(*value.Array)
		if !ok {
			return nil, wrongType(name, "array")
		}
		out := make([]value.Value, 0, len(arr.Elements)+len(other.Elements))
		out = append(out, arr.Elements...)
		out = append(out, other.Elements...)
		return value.NewArray(out...), nil
	}
	return nil, value.NewRuntimeError(value.UndefinedFunction, 0, 0, "no such method: "+name)
}

func builtinLength(receiver value.Value) (value.Value, error) {
	switch t := receiver.(type) {
	case value.String:
		return value.Number{Value: float64(len(t.Value))}, nil
	case *value.Array:
		return value.Number{Value: float64(len(t.Elements))}, nil
	case *value.Object:
		return value.Number{Value: float64(len(t.Keys))}, nil
	default:
		return nil, wrongType("length", "string, array, or object")
	}
}

func clampSlice(start, end, length int) (int, int) {
	if start < 0 {
		start = 0
	}
	if end > length {
		end = length
	}
	if start > end {
		start = end
	}
	return start, end
}

func wrongType(method, want string) error {
	return value.NewRuntimeError(value.WrongArgumentType, 0, 0, method+" expects a "+want+" receiver/argument")
}

func wrongArgCount(method string, want, got int) error {
	return value.NewRuntimeError(value.WrongArgumentCount, 0, 0,
		method+" expects "+strconv.Itoa(want)+" argument(s), got "+strconv.Itoa(got))
}
