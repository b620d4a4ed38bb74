package stdlib

import (
	"sort"

	"github.com/IvyMycelia/myco/value"
)

// arraysLib builds the `arrays` module: higher-order operations
// (map/filter/reduce/sort) that take a callable, which builtinMethod's
// simple value-to-value methods (push, pop, join, ...) don't cover since
// those never need to invoke back into user code.
func arraysLib(call func(fn value.Value, args []value.Value) (value.Value, error)) *value.Module {
	exports := value.NewObject()

	exports.Set("map", hostFn("arrays.map", func(args []value.Value, line int32, col int) (value.Value, error) {
		if len(args) != 2 {
			return nil, wrongArgCount("arrays.map", 2, len(args), line, col)
		}
		arr, ok := args[0].(*value.Array)
		if !ok {
			return nil, wrongType("arrays.map", "array", line, col)
		}
		out := make([]value.Value, len(arr.Elements))
		for i, e := range arr.Elements {
			v, err := call(args[1], []value.Value{e})
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return &value.Array{Elements: out}, nil
	}))

	exports.Set("filter", hostFn("arrays.filter", func(args []value.Value, line int32, col int) (value.Value, error) {
		if len(args) != 2 {
			return nil, wrongArgCount("arrays.filter", 2, len(args), line, col)
		}
		arr, ok := args[0].(*value.Array)
		if !ok {
			return nil, wrongType("arrays.filter", "array", line, col)
		}
		var out []value.Value
		for _, e := range arr.Elements {
			keep, err := call(args[1], []value.Value{e})
			if err != nil {
				return nil, err
			}
			if value.Truthy(keep) {
				out = append(out, e)
			}
		}
		return &value.Array{Elements: out}, nil
	}))

	exports.Set("reduce", hostFn("arrays.reduce", func(args []value.Value, line int32, col int) (value.Value, error) {
		if len(args) != 3 {
			return nil, wrongArgCount("arrays.reduce", 3, len(args), line, col)
		}
		arr, ok := args[0].(*value.Array)
		if !ok {
			return nil, wrongType("arrays.reduce", "array", line, col)
		}
		acc := args[2]
		for _, e := range arr.Elements {
			v, err := call(args[1], []value.Value{acc, e})
			if err != nil {
				return nil, err
			}
			acc = v
		}
		return acc, nil
	}))

	exports.Set("sort", hostFn("arrays.sort", func(args []value.Value, line int32, col int) (value.Value, error) {
		if len(args) != 1 {
			return nil, wrongArgCount("arrays.sort", 1, len(args), line, col)
		}
		arr, ok := args[0].(*value.Array)
		if !ok {
			return nil, wrongType("arrays.sort", "array", line, col)
		}
		out := make([]value.Value, len(arr.Elements))
		copy(out, arr.Elements)
		var sortErr error
		sort.SliceStable(out, func(i, j int) bool {
			if sortErr != nil {
				return false
			}
			c, err := value.Compare(out[i], out[j], line, col)
			if err != nil {
				sortErr = err
				return false
			}
			return c < 0
		})
		if sortErr != nil {
			return nil, sortErr
		}
		return &value.Array{Elements: out}, nil
	}))

	exports.Set("reverse", hostFn("arrays.reverse", func(args []value.Value, line int32, col int) (value.Value, error) {
		if len(args) != 1 {
			return nil, wrongArgCount("arrays.reverse", 1, len(args), line, col)
		}
		arr, ok := args[0].(*value.Array)
		if !ok {
			return nil, wrongType("arrays.reverse", "array", line, col)
		}
		out := make([]value.Value, len(arr.Elements))
		for i, e := range arr.Elements {
			out[len(out)-1-i] = e
		}
		return &value.Array{Elements: out}, nil
	}))

	return &value.Module{Name: "arrays", Exports: exports}
}
