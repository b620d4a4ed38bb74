// Package value implements Myco's tagged-union runtime Value (spec §3/§4.1):
// Null, Bool, Number, String, Range, Array, Object, Function, Class, Module,
// and the host-callable escape hatch. Each variant is a concrete struct
// implementing the Value interface rather than a boxed `any` union, so a
// type switch on the concrete type replaces a manual tag check.
package value

import (
	"fmt"

	"github.com/IvyMycelia/myco/ast"
)

// ValueType names a Value's runtime tag, used by GET_TYPE and by error
// messages that need to name a type without a full Inspect dump.
type ValueType string

const (
	NULL_VALUE     ValueType = "null"
	BOOL_VALUE     ValueType = "bool"
	NUMBER_VALUE   ValueType = "number"
	STRING_VALUE   ValueType = "string"
	RANGE_VALUE    ValueType = "range"
	ARRAY_VALUE    ValueType = "array"
	OBJECT_VALUE   ValueType = "object"
	FUNCTION_VALUE ValueType = "function"
	CLASS_VALUE    ValueType = "class"
	MODULE_VALUE   ValueType = "module"
)

// Value is satisfied by every Myco runtime value. Type reports the variant's
// tag (§4.1's "every Value has exactly one tag"); String renders the
// to_string(v) representation spec §4.1 defines per variant.
type Value interface {
	Type() ValueType
	String() string
}

// Null is Myco's absence-of-value. The zero Null{} is the canonical instance;
// NullValue is provided so callers don't need to construct one by hand.
type Null struct{}

var NullValue = Null{}

func (Null) Type() ValueType { return NULL_VALUE }
func (Null) String() string  { return "Null" }

type Bool struct {
	Value bool
}

func (b Bool) Type() ValueType { return BOOL_VALUE }
func (b Bool) String() string {
	if b.Value {
		return "True"
	}
	return "False"
}

// Number is Myco's sole numeric type (§3): integer-ness is a display-time
// distinction, not a separate tag.
type Number struct {
	Value float64
}

func (n Number) Type() ValueType { return NUMBER_VALUE }
func (n Number) String() string {
	if n.Value == float64(int64(n.Value)) {
		return fmt.Sprintf("%d", int64(n.Value))
	}
	return fmt.Sprintf("%.6f", n.Value)
}

// IsInt reports whether n has no fractional part, used by callers that
// need the integer/float distinction (e.g. array indexing).
func (n Number) IsInt() bool {
	return n.Value == float64(int64(n.Value))
}

// String holds owned UTF-8 bytes; escape sequences are resolved by the
// lexer at scan time, so by the time a value.String exists its contents are
// already the final runtime bytes (§3).
type String struct {
	Value string
}

func (s String) Type() ValueType { return STRING_VALUE }
func (s String) String() string  { return s.Value }

// Range is half-open by default (§3): iteration yields start, start+step,
// ... while < end, or <= end when Inclusive.
type Range struct {
	Start     float64
	End       float64
	Step      float64
	Inclusive bool
}

func (r Range) Type() ValueType { return RANGE_VALUE }
func (r Range) String() string {
	op := ".."
	if r.Inclusive {
		op = "..="
	}
	return fmt.Sprintf("%s%s%s", Number{r.Start}.String(), op, Number{r.End}.String())
}

// Count returns the number of iterations for `for i in r` per §8 property 7:
// exactly n for 0..n, ceil((end-start)/step) with an explicit step.
func (r Range) Count() int {
	step := r.Step
	if step == 0 {
		step = 1
	}
	span := r.End - r.Start
	if r.Inclusive {
		span += sign(step)
	}
	if (step > 0 && span <= 0) || (step < 0 && span >= 0) {
		return 0
	}
	count := span / step
	n := int(count)
	if float64(n) < count {
		n++
	}
	return n
}

func sign(f float64) float64 {
	if f < 0 {
		return -1
	}
	return 1
}

// Array is an ordered, zero-indexed, growable sequence (§3). The backing
// slice is owned by the Array; mutation methods used by ARRAY_SET/push/pop
// operate in place.
type Array struct {
	Elements []Value
}

func NewArray(elements ...Value) *Array {
	return &Array{Elements: elements}
}

func (a *Array) Type() ValueType { return ARRAY_VALUE }
func (a *Array) String() string {
	parts := make([]string, len(a.Elements))
	for i, e := range a.Elements {
		parts[i] = inspect(e)
	}
	return "[" + joinComma(parts) + "]"
}

// inspect renders an element the way it would appear nested inside an
// array/object literal: strings keep no special quoting today, matching
// §4.1's to_string rule that strings print verbatim at every nesting level.
func inspect(v Value) string {
	if v == nil {
		return "Null"
	}
	return v.String()
}

func joinComma(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ", "
		}
		out += p
	}
	return out
}

// Object is an insertion-order-preserving string-keyed map (§3); it is also
// the representation of class instances, which carry the reserved key
// __class_name__ naming their class.
type Object struct {
	Keys   []string
	Values map[string]Value
}

const ClassNameKey = "__class_name__"

func NewObject() *Object {
	return &Object{Values: make(map[string]Value)}
}

func (o *Object) Type() ValueType { return OBJECT_VALUE }

func (o *Object) String() string {
	if cn, ok := o.Values[ClassNameKey]; ok {
		return fmt.Sprintf("<%s instance>", cn.String())
	}
	parts := make([]string, 0, len(o.Keys))
	for _, k := range o.Keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, inspect(o.Values[k])))
	}
	return "{" + joinComma(parts) + "}"
}

// Set inserts or overwrites key, preserving first-insertion order.
func (o *Object) Set(key string, v Value) {
	if _, exists := o.Values[key]; !exists {
		o.Keys = append(o.Keys, key)
	}
	o.Values[key] = v
}

func (o *Object) Get(key string) (Value, bool) {
	v, ok := o.Values[key]
	return v, ok
}

// ClassName reports the class name of an instance, if any.
func (o *Object) ClassName() (string, bool) {
	v, ok := o.Values[ClassNameKey]
	if !ok {
		return "", false
	}
	s, ok := v.(String)
	return s.Value, ok
}

// Function is a user-defined Myco function or lambda value. Since Myco
// compiles to bytecode before it runs, a Function doesn't carry its body AST
// or parameter list directly (the VM's compiler.Program.Functions table
// already owns that, keyed by FuncIndex) - it carries just enough to find
// its compiled body again and to re-enter it with the right closure: the
// function-table index and the environment captured at definition time
// (§4.1 invariant 5). Keeping Function decoupled from the compiler package's
// Instruction type this way means value has no import-cycle risk against
// compiler.
type Function struct {
	Name      string
	FuncIndex int
	Closure   *Environment
	IsMethod  bool
}

func (f *Function) Type() ValueType { return FUNCTION_VALUE }
func (f *Function) String() string {
	name := f.Name
	if name == "" {
		name = "<lambda>"
	}
	return fmt.Sprintf("<function %s>", name)
}

// HostFunction is an opaque handle to a native Go function registered by a
// stdlib module (§6's "host callable ABI"). It satisfies Value so it can be
// stored in the environment and passed around like any other function.
type HostFunction struct {
	Name string
	Fn   HostCallable
}

// HostCallable is the native-function ABI: interpreter context, positional
// args, and the call-site position for diagnostics.
type HostCallable func(ctx HostContext, args []Value, line int32, column int) (Value, error)

// HostContext is the slice of interpreter state a host callable is allowed
// to touch - enough to run async primitives and emit output without
// depending on the vm package (which in turn depends on value).
type HostContext interface {
	Globals() *Environment
}

func (h *HostFunction) Type() ValueType { return FUNCTION_VALUE }
func (h *HostFunction) String() string  { return fmt.Sprintf("<built-in function %s>", h.Name) }

// Class carries its body AST uncompiled (§4.2: "the body is not precompiled
// because field initializers and methods are evaluated at instantiation
// time against the instance environment").
type Class struct {
	Name       string
	ParentName string
	HasParent  bool
	Body       ast.ClassStmt
	Env        *Environment
}

func (c *Class) Type() ValueType { return CLASS_VALUE }
func (c *Class) String() string  { return fmt.Sprintf("<class %s>", c.Name) }

// Module is the result of `use lib [as alias]`: a name plus its exports
// object, which the VM binds under the alias or the library's own name.
type Module struct {
	Name    string
	Exports *Object
}

func (m *Module) Type() ValueType { return MODULE_VALUE }
func (m *Module) String() string  { return fmt.Sprintf("<module %s>", m.Name) }
