package value

import (
	"errors"
	"strings"
)

// Truthy implements §4.1's truthy(v): Null->false, Bool->self, Number->v!=0,
// String->length>0, every other composite type->true.
func Truthy(v Value) bool {
	switch t := v.(type) {
	case Null:
		return false
	case Bool:
		return t.Value
	case Number:
		return t.Value != 0
	case String:
		return len(t.Value) > 0
	case nil:
		return false
	default:
		return true
	}
}

// Equal implements §4.1's equal(a,b): structural for scalars/strings,
// element-wise for arrays/objects, identity for functions and classes.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		_, aNull := a.(Null)
		_, bNull := b.(Null)
		return (a == nil || aNull) && (b == nil || bNull)
	}
	switch av := a.(type) {
	case Null:
		_, ok := b.(Null)
		return ok
	case Bool:
		bv, ok := b.(Bool)
		return ok && av.Value == bv.Value
	case Number:
		bv, ok := b.(Number)
		return ok && av.Value == bv.Value
	case String:
		bv, ok := b.(String)
		return ok && av.Value == bv.Value
	case Range:
		bv, ok := b.(Range)
		return ok && av == bv
	case *Array:
		bv, ok := b.(*Array)
		if !ok || len(av.Elements) != len(bv.Elements) {
			return false
		}
		for i := range av.Elements {
			if !Equal(av.Elements[i], bv.Elements[i]) {
				return false
			}
		}
		return true
	case *Object:
		bv, ok := b.(*Object)
		if !ok || len(av.Keys) != len(bv.Keys) {
			return false
		}
		for _, k := range av.Keys {
			bval, ok := bv.Get(k)
			if !ok || !Equal(av.Values[k], bval) {
				return false
			}
		}
		return true
	case *Function:
		bv, ok := b.(*Function)
		return ok && av == bv
	case *HostFunction:
		bv, ok := b.(*HostFunction)
		return ok && av == bv
	case *Class:
		bv, ok := b.(*Class)
		return ok && av == bv
	case *Module:
		bv, ok := b.(*Module)
		return ok && av == bv
	default:
		return false
	}
}

// ToString implements §4.1's to_string(v) dispatch. Most variants already
// satisfy fmt.Stringer directly via their String() method; ToString exists
// as the single named entry point the compiler's TO_STRING opcode calls.
func ToString(v Value) string {
	if v == nil {
		return "Null"
	}
	return v.String()
}

// Clone performs the deep copy §4.1 invariant 3 requires: array and object
// elements are owned recursively, so cloning duplicates them rather than
// sharing the backing storage. Functions and classes clone by identity
// (copying the pointer), matching their by-identity equality rule.
func Clone(v Value) Value {
	switch t := v.(type) {
	case *Array:
		elems := make([]Value, len(t.Elements))
		for i, e := range t.Elements {
			elems[i] = Clone(e)
		}
		return &Array{Elements: elems}
	case *Object:
		clone := NewObject()
		for _, k := range t.Keys {
			clone.Set(k, Clone(t.Values[k]))
		}
		return clone
	default:
		return v
	}
}

// Add implements §4.1's overloaded `+`: numeric addition, string
// concatenation, or array element-wise concat (append when the right side
// is a scalar).
func Add(a, b Value, line int32, column int) (Value, error) {
	switch av := a.(type) {
	case Number:
		bv, ok := b.(Number)
		if !ok {
			return nil, typeMismatch("+", a, b, line, column)
		}
		return Number{av.Value + bv.Value}, nil
	case String:
		return String{av.Value + ToString(b)}, nil
	case *Array:
		if bv, ok := b.(*Array); ok {
			out := make([]Value, 0, len(av.Elements)+len(bv.Elements))
			out = append(out, av.Elements...)
			out = append(out, bv.Elements...)
			return &Array{Elements: out}, nil
		}
		out := make([]Value, 0, len(av.Elements)+1)
		out = append(out, av.Elements...)
		out = append(out, b)
		return &Array{Elements: out}, nil
	default:
		return nil, typeMismatch("+", a, b, line, column)
	}
}

func numericBinOp(op string, a, b Value, line int32, column int, f func(x, y float64) (float64, error)) (Value, error) {
	av, aok := a.(Number)
	bv, bok := b.(Number)
	if !aok || !bok {
		return nil, typeMismatch(op, a, b, line, column)
	}
	r, err := f(av.Value, bv.Value)
	if err != nil {
		return nil, NewRuntimeError(DivisionByZero, line, column, err.Error())
	}
	return Number{r}, nil
}

func Sub(a, b Value, line int32, column int) (Value, error) {
	return numericBinOp("-", a, b, line, column, func(x, y float64) (float64, error) { return x - y, nil })
}

func Mul(a, b Value, line int32, column int) (Value, error) {
	return numericBinOp("*", a, b, line, column, func(x, y float64) (float64, error) { return x * y, nil })
}

func Div(a, b Value, line int32, column int) (Value, error) {
	return numericBinOp("/", a, b, line, column, func(x, y float64) (float64, error) {
		if y == 0 {
			return 0, divisionByZero()
		}
		return x / y, nil
	})
}

func Mod(a, b Value, line int32, column int) (Value, error) {
	return numericBinOp("%", a, b, line, column, func(x, y float64) (float64, error) {
		if y == 0 {
			return 0, divisionByZero()
		}
		r := x - y*float64(int64(x/y))
		return r, nil
	})
}

func divisionByZero() error { return errors.New("division by zero") }

func typeMismatch(op string, a, b Value, line int32, column int) error {
	return NewRuntimeError(TypeMismatch, line, column,
		"mismatched operand types for '"+op+"': "+string(typeOf(a))+" vs "+string(typeOf(b)))
}

func typeOf(v Value) ValueType {
	if v == nil {
		return NULL_VALUE
	}
	return v.Type()
}

// Compare implements §4.1's `< <= > >=`: two Numbers, or two Strings
// (lexicographic). Returns -1/0/1 the way strings.Compare does.
func Compare(a, b Value, line int32, column int) (int, error) {
	switch av := a.(type) {
	case Number:
		bv, ok := b.(Number)
		if !ok {
			return 0, typeMismatch("compare", a, b, line, column)
		}
		switch {
		case av.Value < bv.Value:
			return -1, nil
		case av.Value > bv.Value:
			return 1, nil
		default:
			return 0, nil
		}
	case String:
		bv, ok := b.(String)
		if !ok {
			return 0, typeMismatch("compare", a, b, line, column)
		}
		return strings.Compare(av.Value, bv.Value), nil
	default:
		return 0, typeMismatch("compare", a, b, line, column)
	}
}
