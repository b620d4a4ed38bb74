package stdlib

import "github.com/IvyMycelia/myco/value"

// setsLib builds the `sets` module. Sets are represented as deduplicated
// *value.Array (CREATE_SET - see DESIGN.md); union/intersection/difference
// are the set-algebra operations that don't map onto any single-receiver
// array method.
func setsLib() *value.Module {
	exports := value.NewObject()

	exports.Set("union", hostFn("sets.union", func(args []value.Value, line int32, col int) (value.Value, error) {
		a, b, err := arg2Sets("sets.union", args, line, col)
		if err != nil {
			return nil, err
		}
		out := append([]value.Value{}, a...)
		for _, v := range b {
			if !containsValue(out, v) {
				out = append(out, v)
			}
		}
		return &value.Array{Elements: out}, nil
	}))

	exports.Set("intersection", hostFn("sets.intersection", func(args []value.Value, line int32, col int) (value.Value, error) {
		a, b, err := arg2Sets("sets.intersection", args, line, col)
		if err != nil {
			return nil, err
		}
		var out []value.Value
		for _, v := range a {
			if containsValue(b, v) {
				out = append(out, v)
			}
		}
		return &value.Array{Elements: out}, nil
	}))

	exports.Set("difference", hostFn("sets.difference", func(args []value.Value, line int32, col int) (value.Value, error) {
		a, b, err := arg2Sets("sets.difference", args, line, col)
		if err != nil {
			return nil, err
		}
		var out []value.Value
		for _, v := range a {
			if !containsValue(b, v) {
				out = append(out, v)
			}
		}
		return &value.Array{Elements: out}, nil
	}))

	return &value.Module{Name: "sets", Exports: exports}
}

func arg2Sets(name string, args []value.Value, line int32, col int) ([]value.Value, []value.Value, error) {
	if len(args) != 2 {
		return nil, nil, wrongArgCount(name, 2, len(args), line, col)
	}
	a, ok1 := args[0].(*value.Array)
	b, ok2 := args[1].(*value.Array)
	if !ok1 || !ok2 {
		return nil, nil, wrongType(name, "set (array)", line, col)
	}
	return a.Elements, b.Elements, nil
}

func containsValue(elements []value.Value, v value.Value) bool {
	for _, e := range elements {
		if value.Equal(e, v) {
			return true
		}
	}
	return false
}
