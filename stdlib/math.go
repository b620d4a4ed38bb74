package stdlib

import (
	"math"

	"github.com/IvyMycelia/myco/value"
)

// mathLib builds the `math` module's export object. Most of these names
// duplicate what the compiler's direct math opcodes already provide (abs,
// sqrt, pow, floor, ceil, round, sin, cos, tan - compiler/opcodes.go's
// methodOpcodes table) as *method calls*; this module is the `use math;`
// path instead, for code that wants `math.pi` or `math.log(x)` without a
// receiver to call a method on.
func mathLib() *value.Module {
	exports := value.NewObject()
	exports.Set("pi", value.Number{Value: math.Pi})
	exports.Set("e", value.Number{Value: math.E})
	exports.Set("infinity", value.Number{Value: math.Inf(1)})

	exports.Set("abs", hostFn("math.abs", func(args []value.Value, line int32, col int) (value.Value, error) {
		n, err := arg1Number("math.abs", args, line, col)
		if err != nil {
			return nil, err
		}
		return value.Number{Value: math.Abs(n)}, nil
	}))
	exports.Set("sqrt", hostFn("math.sqrt", func(args []value.Value, line int32, col int) (value.Value, error) {
		n, err := arg1Number("math.sqrt", args, line, col)
		if err != nil {
			return nil, err
		}
		if n < 0 {
			return nil, value.NewRuntimeError(value.InvalidCast, line, col, "math.sqrt of a negative number")
		}
		return value.Number{Value: math.Sqrt(n)}, nil
	}))
	exports.Set("pow", hostFn("math.pow", func(args []value.Value, line int32, col int) (value.Value, error) {
		if len(args) != 2 {
			return nil, wrongArgCount("math.pow", 2, len(args), line, col)
		}
		base, ok1 := args[0].(value.Number)
		exp, ok2 := args[1].(value.Number)
		if !ok1 || !ok2 {
			return nil, wrongType("math.pow", "number", line, col)
		}
		return value.Number{Value: math.Pow(base.Value, exp.Value)}, nil
	}))
	exports.Set("log", hostFn("math.log", func(args []value.Value, line int32, col int) (value.Value, error) {
		n, err := arg1Number("math.log", args, line, col)
		if err != nil {
			return nil, err
		}
		return value.Number{Value: math.Log(n)}, nil
	}))
	exports.Set("floor", hostFn("math.floor", func(args []value.Value, line int32, col int) (value.Value, error) {
		n, err := arg1Number("math.floor", args, line, col)
		if err != nil {
			return nil, err
		}
		return value.Number{Value: math.Floor(n)}, nil
	}))
	exports.Set("ceil", hostFn("math.ceil", func(args []value.Value, line int32, col int) (value.Value, error) {
		n, err := arg1Number("math.ceil", args, line, col)
		if err != nil {
			return nil, err
		}
		return value.Number{Value: math.Ceil(n)}, nil
	}))
	exports.Set("max", hostFn("math.max", func(args []value.Value, line int32, col int) (value.Value, error) {
		if len(args) != 2 {
			return nil, wrongArgCount("math.max", 2, len(args), line, col)
		}
		a, ok1 := args[0].(value.Number)
		b, ok2 := args[1].(value.Number)
		if !ok1 || !ok2 {
			return nil, wrongType("math.max", "number", line, col)
		}
		return value.Number{Value: math.Max(a.Value, b.Value)}, nil
	}))
	exports.Set("min", hostFn("math.min", func(args []value.Value, line int32, col int) (value.Value, error) {
		if len(args) != 2 {
			return nil, wrongArgCount("math.min", 2, len(args), line, col)
		}
		a, ok1 := args[0].(value.Number)
		b, ok2 := args[1].(value.Number)
		if !ok1 || !ok2 {
			return nil, wrongType("math.min", "number", line, col)
		}
		return value.Number{Value: math.Min(a.Value, b.Value)}, nil
	}))

	return &value.Module{Name: "math", Exports: exports}
}

func arg1Number(name string, args []value.Value, line int32, col int) (float64, error) {
	if len(args) != 1 {
		return 0, wrongArgCount(name, 1, len(args), line, col)
	}
	n, ok := args[0].(value.Number)
	if !ok {
		return 0, wrongType(name, "number", line, col)
	}
	return n.Value, nil
}
