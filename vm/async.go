package vm

import (
	"time"

	"github.com/IvyMycelia/myco/value"
	"github.com/IvyMycelia/myco/vm/async"
)

// asyncWorkers is the fixed worker-pool size backing spawn/await (spec §5).
// Not user-configurable: neither Myco source nor the CLI can change it.
const asyncWorkers = 4

// installAsync registers spawn, await, and sleep as top-level host
// callables in the global environment, per spec §6's "host libraries
// register themselves during interpreter startup, installing callables into
// the global environment ... as named top-level entries."
func (vm *VM) installAsync() {
	vm.asyncPool = async.NewPool(asyncWorkers, vm.callValue)

	vm.globals.Define("spawn", &value.HostFunction{Name: "spawn", Fn: vm.spawnBuiltin})
	vm.globals.Define("await", &value.HostFunction{Name: "await", Fn: vm.awaitBuiltin})
	vm.globals.Define("sleep", &value.HostFunction{Name: "sleep", Fn: sleepBuiltin})
}

// spawnBuiltin enqueues its first argument (any callable Value) with the
// remaining arguments and immediately returns an async.Handle - user code
// never blocks on spawn itself, only on a later await of the handle it
// returns (spec §5: "no user-visible suspension points exist inside the
// main interpreter loop").
func (vm *VM) spawnBuiltin(ctx value.HostContext, args []value.Value, line int32, column int) (value.Value, error) {
	if len(args) < 1 {
		return nil, wrongArgCount("spawn", 1, len(args))
	}
	fn := args[0]
	switch fn.(type) {
	case *value.Function, *value.HostFunction, *value.Class:
	default:
		return nil, value.NewRuntimeError(value.WrongArgumentType, line, column, "spawn expects a callable first argument")
	}
	return vm.asyncPool.Spawn(fn, args[1:]), nil
}

// awaitBuiltin parks the calling (main) goroutine until the handle's task
// completes. A task that failed resolves its error as a Myco string value,
// bound the same way a catch clause would bind a thrown error, rather than
// silently swallowing it.
func (vm *VM) awaitBuiltin(ctx value.HostContext, args []value.Value, line int32, column int) (value.Value, error) {
	if len(args) != 1 {
		return nil, wrongArgCount("await", 1, len(args))
	}
	handle, ok := args[0].(async.Handle)
	if !ok {
		return nil, value.NewRuntimeError(value.WrongArgumentType, line, column, "await expects a value returned by spawn")
	}
	result, errValue := async.Resolve(handle)
	if errValue != nil {
		return nil, ThrownError{Value: errValue}
	}
	return result, nil
}

// sleepBuiltin blocks the calling goroutine for the given number of
// milliseconds. Spec §5 names no core cancellation/timeout support ("a host
// callable may itself implement a timeout by wrapping a blocking call");
// sleep has no timeout of its own, and the `-timeout` CLI flag does not use
// it: cmd/myco's runWithTimeout races the whole run against a timer.
func sleepBuiltin(ctx value.HostContext, args []value.Value, line int32, column int) (value.Value, error) {
	if len(args) != 1 {
		return nil, wrongArgCount("sleep", 1, len(args))
	}
	n, ok := args[0].(value.Number)
	if !ok {
		return nil, value.NewRuntimeError(value.WrongArgumentType, line, column, "sleep expects a numeric millisecond count")
	}
	time.Sleep(time.Duration(n.Value) * time.Millisecond)
	return value.NullValue, nil
}
