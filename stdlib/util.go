package stdlib

import (
	"strconv"

	"github.com/IvyMycelia/myco/value"
)

// hostFn adapts a stdlib function's natural signature (args, position) into
// the HostCallable ABI (§6), dropping the interpreter-context parameter
// every module function in this package ignores - none of math/string/
// arrays/maps/sets/time/regexp needs to read globals or spawn tasks, unlike
// the core spawn/await/sleep builtins wired directly in vm.go.
func hostFn(name string, fn func(args []value.Value, line int32, column int) (value.Value, error)) *value.HostFunction {
	return &value.HostFunction{
		Name: name,
		Fn: func(ctx value.HostContext, args []value.Value, line int32, column int) (value.Value, error) {
			return fn(args, line, column)
		},
	}
}

func wrongType(name, want string, line int32, col int) error {
	return value.NewRuntimeError(value.WrongArgumentType, line, col, name+" expects a "+want+" argument")
}

func wrongArgCount(name string, want, got int, line int32, col int) error {
	return value.NewRuntimeError(value.WrongArgumentCount, line, col,
		name+" expects "+strconv.Itoa(want)+" argument(s), got "+strconv.Itoa(got))
}
