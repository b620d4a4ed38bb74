package stdlib

import (
	"regexp"

	"github.com/IvyMycelia/myco/value"
)

// regexpLib builds the `regexp` module over Go's stdlib regexp engine - no
// pack example wires a third-party regex library for a scripting-language
// stdlib (see DESIGN.md), and Go's RE2-based package is the ecosystem-
// standard choice here.
func regexpLib() *value.Module {
	exports := value.NewObject()

	exports.Set("test", hostFn("regexp.test", func(args []value.Value, line int32, col int) (value.Value, error) {
		re, s, err := arg2Regexp("regexp.test", args, line, col)
		if err != nil {
			return nil, err
		}
		return value.Bool{Value: re.MatchString(s)}, nil
	}))

	exports.Set("match", hostFn("regexp.match", func(args []value.Value, line int32, col int) (value.Value, error) {
		re, s, err := arg2Regexp("regexp.match", args, line, col)
		if err != nil {
			return nil, err
		}
		m := re.FindStringSubmatch(s)
		out := make([]value.Value, len(m))
		for i, g := range m {
			out[i] = value.String{Value: g}
		}
		return &value.Array{Elements: out}, nil
	}))

	exports.Set("replaceAll", hostFn("regexp.replaceAll", func(args []value.Value, line int32, col int) (value.Value, error) {
		if len(args) != 3 {
			return nil, wrongArgCount("regexp.replaceAll", 3, len(args), line, col)
		}
		pattern, ok1 := args[0].(value.String)
		s, ok2 := args[1].(value.String)
		repl, ok3 := args[2].(value.String)
		if !ok1 || !ok2 || !ok3 {
			return nil, wrongType("regexp.replaceAll", "string", line, col)
		}
		re, err := regexp.Compile(pattern.Value)
		if err != nil {
			return nil, value.NewRuntimeError(value.InvalidCast, line, col, "invalid regular expression: "+err.Error())
		}
		return value.String{Value: re.ReplaceAllString(s.Value, repl.Value)}, nil
	}))

	exports.Set("split", hostFn("regexp.split", func(args []value.Value, line int32, col int) (value.Value, error) {
		re, s, err := arg2Regexp("regexp.split", args, line, col)
		if err != nil {
			return nil, err
		}
		parts := re.Split(s, -1)
		out := make([]value.Value, len(parts))
		for i, p := range parts {
			out[i] = value.String{Value: p}
		}
		return &value.Array{Elements: out}, nil
	}))

	return &value.Module{Name: "regexp", Exports: exports}
}

func arg2Regexp(name string, args []value.Value, line int32, col int) (*regexp.Regexp, string, error) {
	if len(args) != 2 {
		return nil, "", wrongArgCount(name, 2, len(args), line, col)
	}
	pattern, ok1 := args[0].(value.String)
	s, ok2 := args[1].(value.String)
	if !ok1 || !ok2 {
		return nil, "", wrongType(name, "string", line, col)
	}
	re, err := regexp.Compile(pattern.Value)
	if err != nil {
		return nil, "", value.NewRuntimeError(value.InvalidCast, line, col, "invalid regular expression: "+err.Error())
	}
	return re, s.Value, nil
}
