package stdlib

import "github.com/IvyMycelia/myco/value"

// mapsLib builds the `maps` module. Myco has no distinct map Value variant
// (CREATE_MAP builds a *value.Object - see DESIGN.md), so these operate on
// Objects directly: keys/values/merge/has are the free-function surface a
// string-keyed Object doesn't already get through builtinMethod.
func mapsLib() *value.Module {
	exports := value.NewObject()

	exports.Set("keys", hostFn("maps.keys", func(args []value.Value, line int32, col int) (value.Value, error) {
		obj, err := arg1Object("maps.keys", args, line, col)
		if err != nil {
			return nil, err
		}
		out := make([]value.Value, len(obj.Keys))
		for i, k := range obj.Keys {
			out[i] = value.String{Value: k}
		}
		return &value.Array{Elements: out}, nil
	}))

	exports.Set("values", hostFn("maps.values", func(args []value.Value, line int32, col int) (value.Value, error) {
		obj, err := arg1Object("maps.values", args, line, col)
		if err != nil {
			return nil, err
		}
		out := make([]value.Value, len(obj.Keys))
		for i, k := range obj.Keys {
			v, _ := obj.Get(k)
			out[i] = v
		}
		return &value.Array{Elements: out}, nil
	}))

	exports.Set("has", hostFn("maps.has", func(args []value.Value, line int32, col int) (value.Value, error) {
		if len(args) != 2 {
			return nil, wrongArgCount("maps.has", 2, len(args), line, col)
		}
		obj, ok := args[0].(*value.Object)
		if !ok {
			return nil, wrongType("maps.has", "object", line, col)
		}
		key, ok := args[1].(value.String)
		if !ok {
			return nil, wrongType("maps.has", "string key", line, col)
		}
		_, found := obj.Get(key.Value)
		return value.Bool{Value: found}, nil
	}))

	exports.Set("merge", hostFn("maps.merge", func(args []value.Value, line int32, col int) (value.Value, error) {
		if len(args) != 2 {
			return nil, wrongArgCount("maps.merge", 2, len(args), line, col)
		}
		a, ok1 := args[0].(*value.Object)
		b, ok2 := args[1].(*value.Object)
		if !ok1 || !ok2 {
			return nil, wrongType("maps.merge", "object", line, col)
		}
		out := value.NewObject()
		for _, k := range a.Keys {
			v, _ := a.Get(k)
			out.Set(k, v)
		}
		for _, k := range b.Keys {
			v, _ := b.Get(k)
			out.Set(k, v)
		}
		return out, nil
	}))

	return &value.Module{Name: "maps", Exports: exports}
}

func arg1Object(name string, args []value.Value, line int32, col int) (*value.Object, error) {
	if len(args) != 1 {
		return nil, wrongArgCount(name, 1, len(args), line, col)
	}
	obj, ok := args[0].(*value.Object)
	if !ok {
		return nil, wrongType(name, "object", line, col)
	}
	return obj, nil
}
