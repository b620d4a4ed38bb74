// Package stdlib implements the host-provided callables spec §6 describes
// ("host libraries register themselves during interpreter startup,
// installing callables into the global environment"): math, string,
// arrays, maps, sets, time, regexp, and database modules, each built as a
// *value.Module exporting an Object of *value.HostFunction entries,
// resolved at `use name;` time through the VM's library registry.
package stdlib

import "github.com/IvyMycelia/myco/value"

// Caller lets higher-order modules (arrays.map/filter/reduce) invoke a
// user-supplied function value the same way the VM's own call opcodes
// would. cmd/myco passes the VM's own exported Call method here, so this
// package never needs to import vm (which in turn imports stdlib to
// register these modules) - the same decoupling value.HostContext gives
// ordinary host callables.
type Caller func(fn value.Value, args []value.Value) (value.Value, error)

// Math, String, Maps, Sets, Time, Regexp, and Database are each a
// vm.LibraryFactory (func() *value.Module) by shape, registered directly:
// `vm.RegisterLibrary("math", stdlib.Math)`.
func Math() *value.Module     { return mathLib() }
func String() *value.Module   { return stringLib() }
func Maps() *value.Module     { return mapsLib() }
func Sets() *value.Module     { return setsLib() }
func Time() *value.Module     { return timeLib() }
func Regexp() *value.Module   { return regexpLib() }
func Database() *value.Module { return databaseLib() }

// Arrays needs a Caller for its higher-order functions (map/filter/reduce),
// so it returns a factory closure instead of being one directly.
func Arrays(call Caller) func() *value.Module {
	return func() *value.Module { return arraysLib(call) }
}
