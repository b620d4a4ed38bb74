package stdlib

import (
	"strings"
	"time"

	"github.com/IvyMycelia/myco/value"
)

// timeLib builds the `time` module: wall-clock reads and a millisecond
// sleep, distinct from the core `sleep` builtin (vm.go's installAsync)
// which exists specifically as an await/spawn building block - this one is
// the general-purpose "what time is it" surface a scripting stdlib usually
// carries.
func timeLib() *value.Module {
	exports := value.NewObject()

	exports.Set("now", hostFn("time.now", func(args []value.Value, line int32, col int) (value.Value, error) {
		if len(args) != 0 {
			return nil, wrongArgCount("time.now", 0, len(args), line, col)
		}
		return value.Number{Value: float64(time.Now().UnixMilli())}, nil
	}))

	exports.Set("sleep", hostFn("time.sleep", func(args []value.Value, line int32, col int) (value.Value, error) {
		if len(args) != 1 {
			return nil, wrongArgCount("time.sleep", 1, len(args), line, col)
		}
		n, ok := args[0].(value.Number)
		if !ok {
			return nil, wrongType("time.sleep", "number", line, col)
		}
		time.Sleep(time.Duration(n.Value) * time.Millisecond)
		return value.NullValue, nil
	}))

	exports.Set("format", hostFn("time.format", func(args []value.Value, line int32, col int) (value.Value, error) {
		if len(args) != 2 {
			return nil, wrongArgCount("time.format", 2, len(args), line, col)
		}
		ms, ok1 := args[0].(value.Number)
		layout, ok2 := args[1].(value.String)
		if !ok1 || !ok2 {
			return nil, wrongType("time.format", "(number, string)", line, col)
		}
		t := time.UnixMilli(int64(ms.Value)).UTC()
		return value.String{Value: t.Format(goLayout(layout.Value))}, nil
	}))

	return &value.Module{Name: "time", Exports: exports}
}

// goLayout translates a handful of common strftime-ish tokens into Go's
// reference-time layout, covering the date/time shapes the `database`
// module's record timestamps need without pulling in a full strftime
// implementation.
func goLayout(pattern string) string {
	replacer := map[string]string{
		"YYYY": "2006",
		"MM":   "01",
		"DD":   "02",
		"hh":   "15",
		"mm":   "04",
		"ss":   "05",
	}
	out := pattern
	for token, layout := range replacer {
		out = strings.ReplaceAll(out, token, layout)
	}
	return out
}
