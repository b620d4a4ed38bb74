package vm

import (
	"errors"
	"fmt"
	"strings"

	"github.com/IvyMycelia/myco/value"
)

// InternalError marks a VM bug rather than a Myco-level runtime error
// (unknown opcode, stack underflow): conditions that should never occur for
// bytecode produced by compiler.Compile, mirroring the teacher's own
// "NOTE: This should only happen in development mode" comment on its
// unknown-opcode branch. User-visible Myco errors instead flow as
// value.RuntimeError (§7), returned as plain Go errors from Run/execute.
type InternalError struct {
	Message string
}

func (e InternalError) Error() string {
	return fmt.Sprintf("🤖 Myco VM internal error: %s", e.Message)
}

// ThrownError wraps a `throw expr;` value so a catch clause can bind the
// exact thrown Value (an Object, a String, whatever the user threw) instead
// of only ever seeing a stringified value.RuntimeError. value.RuntimeError
// still flows as a plain Go error for VM-detected faults (division by zero,
// undefined variable, ...); ThrownError is specifically for user-initiated
// THROW.
type ThrownError struct {
	Value value.Value
}

func (e ThrownError) Error() string {
	return fmt.Sprintf("💥 thrown: %s", e.Value.String())
}

// loopBreakSignal is how a `break` inside a `for x in expr` body unwinds
// out of the body's own sub-program call: FOR_LOOP's native Go range loop
// has no other way to observe "stop iterating entirely" as distinct from
// "this body invocation is done, advance to the next element" (which is
// just an ordinary RETURN). BREAK emits this instead of returning a value,
// and FOR_LOOP recognizes it as a normal early exit rather than a runtime
// fault - it never reaches Run's caller.
type loopBreakSignal struct{}

func (loopBreakSignal) Error() string { return "break" }

// CallFrame records one live user-function call, leaf at the end, for the
// stack trace spec §7 requires ("a linked call-frame list; each frame
// carries function name ... walked leaf-to-root for display"). Line/column
// aren't tracked here: compiler.Instruction carries no source position (see
// DESIGN.md), so a frame names only the function being executed.
type CallFrame struct {
	FunctionName string
}

// TracedError wraps the first error raised inside a user-function call with
// the call-frame stack captured at that point, so an uncaught error can
// report leaf-to-root call context without threading frame bookkeeping
// through execute's many recursive callers. callFunction wraps only once -
// an error that already carries a trace is passed through unchanged as it
// unwinds back out through enclosing calls.
type TracedError struct {
	Err    error
	Frames []CallFrame
}

func (t TracedError) Error() string { return t.Err.Error() }
func (t TracedError) Unwrap() error { return t.Err }

// Trace renders the captured call frames leaf-to-root, one per line.
func (t TracedError) Trace() string {
	var b strings.Builder
	for i := len(t.Frames) - 1; i >= 0; i-- {
		fmt.Fprintf(&b, "  at %s\n", t.Frames[i].FunctionName)
	}
	return b.String()
}

// StackTrace extracts a leaf-to-root call trace from an error returned by
// Run, if raising it crossed at least one user-function call boundary
// uncaught.
func StackTrace(err error) (string, bool) {
	var traced TracedError
	if !errors.As(err, &traced) {
		return "", false
	}
	return traced.Trace(), true
}

// errorValue recovers the Value a catch clause should bind from any error
// the VM's try/catch machinery might see: the raw thrown Value for a
// ThrownError, or the rendered message for a value.RuntimeError (§3's
// "Error{message, code}" - most errors flow via interpreter error state
// rather than as values, so converting to a String here is how they become
// bindable inside a catch block). errors.As unwraps a TracedError first, so
// a caught error binds the same value whether or not it crossed a function
// call boundary on its way to the catch.
func errorValue(err error) value.Value {
	var thrown ThrownError
	if errors.As(err, &thrown) {
		return thrown.Value
	}
	var rte value.RuntimeError
	if errors.As(err, &rte) {
		return rte.AsValue()
	}
	return value.String{Value: err.Error()}
}
