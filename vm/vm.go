package vm

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/IvyMycelia/myco/ast"
	"github.com/IvyMycelia/myco/compiler"
	"github.com/IvyMycelia/myco/token"
	"github.com/IvyMycelia/myco/value"
	"github.com/IvyMycelia/myco/vm/async"
)

// maxCallDepth bounds recursive user-function calls (§7's StackOverflow).
// Spec §7 names the error but not a number; 1024 is a deliberately generous
// round bound chosen so ordinary recursive Myco programs never hit it while
// still catching runaway recursion before the Go call stack itself gives
// out - see DESIGN.md.
const maxCallDepth = 1024

// LibraryFactory builds a fresh stdlib module for IMPORT_LIB (§6). Modules
// are registered by name via VM.RegisterLibrary; a stdlib package populates
// this table, not the VM itself.
type LibraryFactory func() *value.Module

// tryFrame records where to resume on an error inside a TRY_START/TRY_END
// span: the CATCH opcode's instruction index, and the value stack depth to
// unwind back to before pushing the caught error value.
type tryFrame struct {
	catchIP  int
	stackLen int
}

// VM is the bytecode interpreter for a compiled Program (§4.3). Generalized
// from informatter-nilan/vm.VM's single byte-packed Run loop into a
// recursive, typed-Value dispatcher: function calls, method calls, and each
// for-loop iteration each recurse into execute with their own code slice and
// Environment, letting Go's own call stack stand in for an explicit VM call-
// frame stack (§9's simplification note).
type VM struct {
	globals   *value.Environment
	program   *compiler.Program
	out       io.Writer
	libraries map[string]LibraryFactory
	callDepth int
	callStack []CallFrame
	asyncPool *async.Pool
}

// New creates a VM that writes PRINT output to out and starts its spawn/
// await worker pool (§5).
func New(out io.Writer) *VM {
	if out == nil {
		out = os.Stdout
	}
	vm := &VM{
		globals:   value.New(nil),
		out:       out,
		libraries: map[string]LibraryFactory{},
	}
	vm.installAsync()
	return vm
}

// Globals satisfies value.HostContext so host callables (stdlib functions)
// can read/write global bindings without the value package depending on vm.
func (vm *VM) Globals() *value.Environment { return vm.globals }

// RegisterLibrary makes a stdlib module available to `use name ...;`.
func (vm *VM) RegisterLibrary(name string, factory LibraryFactory) {
	vm.libraries[name] = factory
}

// Call invokes any callable Value exactly as CALL_FUNCTION_VALUE would -
// the exported entry point a stdlib module (a separate package, to avoid
// vm importing stdlib and stdlib importing vm) uses for higher-order
// functions like arrays.map that need to call back into user code.
func (vm *VM) Call(fn value.Value, args []value.Value) (value.Value, error) {
	return vm.callValue(fn, args)
}

// Run executes a compiled Program's top-level code against the VM's global
// environment, returning whatever value HALT leaves on the stack (Null if
// nothing was left).
func (vm *VM) Run(program *compiler.Program) (value.Value, error) {
	vm.program = program
	return vm.execute(program.Code, vm.globals)
}

// execute runs one code slice (the top-level program, a function body, a
// for-body, ...) against env until it hits HALT, RETURN, or runs off the end
// of the slice. Errors that aren't Fatal are resolved internally (caught by
// an active try/catch, or reported to stderr and execution continues per
// §7's "report and continue" policy) - execute only returns a non-nil error
// for a Fatal condition (StackOverflow/OutOfMemory) or an uncaught THROW
// that reaches the very end of the slice unhandled.
func (vm *VM) execute(code []compiler.Instruction, env *value.Environment) (value.Value, error) {
	var stack Stack
	var tryStack []tryFrame
	ip := 0

	for ip < len(code) {
		instr := code[ip]
		advance := true
		var stepErr error

		switch instr.Op {
		case compiler.LOAD_CONST:
			stack.Push(valueFromLiteral(vm.program.Constants[instr.A]))
		case compiler.LOAD_LOCAL:
			// The compiler's local "slots" are a scope-tracking device at
			// compile time only; at runtime every frame's locals live in the
			// same Environment as everything else in that call, so reading
			// a local slot and reading a frame-scoped name are the same
			// operation here - resolved by name via LocalNames.
			name := vm.localName(instr.A)
			v, ok := env.Get(name)
			if !ok {
				stepErr = value.NewRuntimeError(value.UndefinedVariable, 0, 0, "undefined local: "+name)
			} else {
				stack.Push(v)
			}
		case compiler.STORE_LOCAL:
			name := vm.localName(instr.A)
			v, _ := stack.Pop()
			env.Define(name, v)
		case compiler.LOAD_GLOBAL:
			name := vm.program.Constants[instr.A].(string)
			v, ok := vm.globals.Get(name)
			if !ok {
				stepErr = value.NewRuntimeError(value.UndefinedVariable, 0, 0, "undefined variable: "+name)
			} else {
				stack.Push(v)
			}
		case compiler.STORE_GLOBAL:
			name := vm.program.Constants[instr.A].(string)
			v, _ := stack.Pop()
			vm.globals.Define(name, v)
		case compiler.LOAD_VAR:
			name := vm.program.Constants[instr.A].(string)
			v, ok := env.Get(name)
			if !ok {
				stepErr = value.NewRuntimeError(value.UndefinedVariable, 0, 0, "undefined variable: "+name)
			} else {
				stack.Push(v)
			}
		case compiler.POP:
			n := instr.A
			if n == 0 {
				n = 1
			}
			for i := 0; i < n; i++ {
				stack.Pop()
			}

		case compiler.ADD, compiler.SUB, compiler.MUL, compiler.DIV, compiler.MOD:
			b, _ := stack.Pop()
			a, _ := stack.Pop()
			var res value.Value
			switch instr.Op {
			case compiler.ADD:
				res, stepErr = value.Add(a, b, 0, 0)
			case compiler.SUB:
				res, stepErr = value.Sub(a, b, 0, 0)
			case compiler.MUL:
				res, stepErr = value.Mul(a, b, 0, 0)
			case compiler.DIV:
				res, stepErr = value.Div(a, b, 0, 0)
			case compiler.MOD:
				res, stepErr = value.Mod(a, b, 0, 0)
			}
			if stepErr == nil {
				stack.Push(res)
			}
		case compiler.EQ, compiler.NE:
			b, _ := stack.Pop()
			a, _ := stack.Pop()
			eq := value.Equal(a, b)
			if instr.Op == compiler.NE {
				eq = !eq
			}
			stack.Push(value.Bool{Value: eq})
		case compiler.LT, compiler.LE, compiler.GT, compiler.GE:
			b, _ := stack.Pop()
			a, _ := stack.Pop()
			cmp, err := value.Compare(a, b, 0, 0)
			if err != nil {
				stepErr = err
			} else {
				var r bool
				switch instr.Op {
				case compiler.LT:
					r = cmp < 0
				case compiler.LE:
					r = cmp <= 0
				case compiler.GT:
					r = cmp > 0
				case compiler.GE:
					r = cmp >= 0
				}
				stack.Push(value.Bool{Value: r})
			}
		case compiler.AND, compiler.OR, compiler.XOR:
			b, _ := stack.Pop()
			a, _ := stack.Pop()
			var r bool
			switch instr.Op {
			case compiler.AND:
				r = value.Truthy(a) && value.Truthy(b)
			case compiler.OR:
				r = value.Truthy(a) || value.Truthy(b)
			case compiler.XOR:
				r = value.Truthy(a) != value.Truthy(b)
			}
			stack.Push(value.Bool{Value: r})
		case compiler.NOT:
			a, _ := stack.Pop()
			stack.Push(value.Bool{Value: !value.Truthy(a)})
		case compiler.NEG:
			a, _ := stack.Pop()
			n, ok := a.(value.Number)
			if !ok {
				stepErr = value.NewRuntimeError(value.TypeMismatch, 0, 0, "unary '-' expects a number")
			} else {
				stack.Push(value.Number{Value: -n.Value})
			}
		case compiler.BIT_AND, compiler.BIT_OR, compiler.BIT_XOR, compiler.SHL, compiler.SHR:
			b, _ := stack.Pop()
			a, _ := stack.Pop()
			an, aok := a.(value.Number)
			bn, bok := b.(value.Number)
			if !aok || !bok {
				stepErr = value.NewRuntimeError(value.TypeMismatch, 0, 0, "bitwise operators expect numbers")
			} else {
				ai, bi := int64(an.Value), int64(bn.Value)
				var r int64
				switch instr.Op {
				case compiler.BIT_AND:
					r = ai & bi
				case compiler.BIT_OR:
					r = ai | bi
				case compiler.BIT_XOR:
					r = ai ^ bi
				case compiler.SHL:
					r = ai << uint(bi)
				case compiler.SHR:
					r = ai >> uint(bi)
				}
				stack.Push(value.Number{Value: float64(r)})
			}

		// Numeric fast-path: never emitted by the current compiler (see
		// DESIGN.md's Open Question decision), but implemented here for
		// completeness since spec §9 says they "should be preserved" - they
		// operate on the same boxed Value stack as their ordinary
		// counterparts rather than a separate unboxed lane, since no
		// numeric-type-inference pass exists to justify one.
		case compiler.LOAD_NUM:
			stack.Push(value.Number{Value: vm.program.NumConstants[instr.A]})
		case compiler.ADD_NUM, compiler.SUB_NUM, compiler.MUL_NUM, compiler.DIV_NUM:
			b, _ := stack.Pop()
			a, _ := stack.Pop()
			an, aok := a.(value.Number)
			bn, bok := b.(value.Number)
			if !aok || !bok {
				stepErr = value.NewRuntimeError(value.TypeMismatch, 0, 0, "numeric fast-path op on non-number")
			} else {
				var r float64
				switch instr.Op {
				case compiler.ADD_NUM:
					r = an.Value + bn.Value
				case compiler.SUB_NUM:
					r = an.Value - bn.Value
				case compiler.MUL_NUM:
					r = an.Value * bn.Value
				case compiler.DIV_NUM:
					if bn.Value == 0 {
						stepErr = value.NewRuntimeError(value.DivisionByZero, 0, 0, "division by zero")
						break
					}
					r = an.Value / bn.Value
				}
				if stepErr == nil {
					stack.Push(value.Number{Value: r})
				}
			}
		case compiler.LT_NUM, compiler.LE_NUM, compiler.GT_NUM, compiler.GE_NUM:
			b, _ := stack.Pop()
			a, _ := stack.Pop()
			an, aok := a.(value.Number)
			bn, bok := b.(value.Number)
			if !aok || !bok {
				stepErr = value.NewRuntimeError(value.TypeMismatch, 0, 0, "numeric fast-path op on non-number")
			} else {
				var r bool
				switch instr.Op {
				case compiler.LT_NUM:
					r = an.Value < bn.Value
				case compiler.LE_NUM:
					r = an.Value <= bn.Value
				case compiler.GT_NUM:
					r = an.Value > bn.Value
				case compiler.GE_NUM:
					r = an.Value >= bn.Value
				}
				stack.Push(value.Bool{Value: r})
			}
		case compiler.VALUE_TO_NUM, compiler.NUM_TO_VALUE:
			// Both lanes share one representation, so these are no-ops.

		case compiler.JUMP:
			ip = instr.A
			advance = false
		case compiler.JUMP_IF_FALSE:
			v, _ := stack.Pop()
			if !value.Truthy(v) {
				ip = instr.A
				advance = false
			}
		case compiler.LOOP_START, compiler.LOOP_END, compiler.CONTINUE:
			// In a while-loop, CONTINUE is only reachable as dead code after
			// its preceding unconditional JUMP (see compiler.VisitBreakStmt) -
			// the compiler already bakes the real control-flow transfer into
			// that jump's target. In a for-loop body, continueJumps target
			// the body's own implicit RETURN directly, never this opcode
			// either. LOOP_START/LOOP_END are pure markers.
		case compiler.BREAK:
			// Dead code after its preceding JUMP inside a while-loop (same
			// reasoning as CONTINUE above), but for-loop bodies patch
			// breakJumps to a real, reachable BREAK placed after the body's
			// RETURN (see compiler.VisitForStmt) - reaching it here means a
			// for-loop body hit `break` and FOR_LOOP's range loop needs to
			// stop entirely, not just finish this element.
			return nil, loopBreakSignal{}
		case compiler.RETURN:
			v, _ := stack.Pop()
			return v, nil
		case compiler.HALT:
			v, ok := stack.Pop()
			if !ok {
				v = value.NullValue
			}
			return v, nil

		case compiler.CREATE_ARRAY:
			n := instr.A
			elems := make([]value.Value, n)
			for i := n - 1; i >= 0; i-- {
				elems[i], _ = stack.Pop()
			}
			stack.Push(value.NewArray(elems...))
		case compiler.CREATE_MAP, compiler.CREATE_OBJECT:
			n := instr.A
			obj := value.NewObject()
			pairs := make([][2]value.Value, n)
			for i := n - 1; i >= 0; i-- {
				v, _ := stack.Pop()
				k, _ := stack.Pop()
				pairs[i] = [2]value.Value{k, v}
			}
			for _, kv := range pairs {
				obj.Set(value.ToString(kv[0]), kv[1])
			}
			stack.Push(obj)
		case compiler.CREATE_SET:
			n := instr.A
			raw := make([]value.Value, n)
			for i := n - 1; i >= 0; i-- {
				raw[i], _ = stack.Pop()
			}
			var out []value.Value
			for _, v := range raw {
				dup := false
				for _, seen := range out {
					if value.Equal(v, seen) {
						dup = true
						break
					}
				}
				if !dup {
					out = append(out, v)
				}
			}
			stack.Push(value.NewArray(out...))
		case compiler.CREATE_RANGE:
			end, _ := stack.Pop()
			start, _ := stack.Pop()
			sv, sok := start.(value.Number)
			ev, eok := end.(value.Number)
			if !sok || !eok {
				stepErr = value.NewRuntimeError(value.TypeMismatch, 0, 0, "range bounds must be numbers")
			} else {
				stack.Push(value.Range{Start: sv.Value, End: ev.Value, Inclusive: instr.A != 0})
			}
		case compiler.CREATE_RANGE_STEP:
			step, _ := stack.Pop()
			end, _ := stack.Pop()
			start, _ := stack.Pop()
			sv, sok := start.(value.Number)
			ev, eok := end.(value.Number)
			stv, stok := step.(value.Number)
			if !sok || !eok || !stok {
				stepErr = value.NewRuntimeError(value.TypeMismatch, 0, 0, "range bounds/step must be numbers")
			} else {
				stack.Push(value.Range{Start: sv.Value, End: ev.Value, Step: stv.Value, Inclusive: instr.A != 0})
			}
		case compiler.CREATE_LAMBDA:
			stack.Push(&value.Function{Name: "<lambda>", FuncIndex: instr.A, Closure: env})
		case compiler.CREATE_CLASS:
			name := vm.program.Constants[instr.A].(string)
			classStmt := vm.program.AstRefs[instr.C].(ast.ClassStmt)
			cls := &value.Class{Name: name, Env: env, Body: classStmt}
			if instr.B != -1 {
				cls.HasParent = true
				cls.ParentName = vm.program.Constants[instr.B].(string)
			}
			env.Define(name, cls)

		case compiler.ARRAY_GET:
			idx, _ := stack.Pop()
			obj, _ := stack.Pop()
			v, err := indexValue(obj, idx)
			if err != nil {
				stepErr = err
			} else {
				stack.Push(v)
			}
		case compiler.ARRAY_SET:
			val, _ := stack.Pop()
			idx, _ := stack.Pop()
			obj, _ := stack.Pop()
			stepErr = setIndexValue(obj, idx, val)
		case compiler.PROPERTY_ACCESS:
			name := vm.program.Constants[instr.A].(string)
			obj, _ := stack.Pop()
			o, ok := obj.(*value.Object)
			if !ok {
				stepErr = value.NewRuntimeError(value.InvalidMemberAccess, 0, 0, "cannot read a property of a non-object")
			} else if v, ok := o.Get(name); ok {
				stack.Push(v)
			} else {
				stepErr = value.NewRuntimeError(value.InvalidMemberAccess, 0, 0, "undefined field: "+name)
			}
		case compiler.PROPERTY_SET:
			name := vm.program.Constants[instr.A].(string)
			val, _ := stack.Pop()
			obj, _ := stack.Pop()
			o, ok := obj.(*value.Object)
			if !ok {
				stepErr = value.NewRuntimeError(value.InvalidMemberAccess, 0, 0, "cannot set a property on a non-object")
			} else {
				o.Set(name, val)
			}
		case compiler.METHOD_CALL:
			name := vm.program.Constants[instr.A].(string)
			argc := instr.B
			args := make([]value.Value, argc)
			for i := argc - 1; i >= 0; i-- {
				args[i], _ = stack.Pop()
			}
			receiver, _ := stack.Pop()
			var result value.Value
			var err error
			if inst, ok := receiver.(*value.Object); ok {
				if _, isInstance := inst.ClassName(); isInstance {
					result, err = vm.callInstanceMethod(inst, name, args)
				} else {
					result, err = builtinMethod(name, receiver, args)
				}
			} else {
				result, err = builtinMethod(name, receiver, args)
			}
			if err != nil {
				stepErr = err
			} else {
				stack.Push(result)
			}

		case compiler.TO_STRING, compiler.GET_TYPE, compiler.GET_LENGTH,
			compiler.IS_NULL, compiler.IS_BOOL, compiler.IS_NUMBER, compiler.IS_STRING, compiler.IS_ARRAY,
			compiler.STRING_UPPER, compiler.STRING_LOWER, compiler.STRING_TRIM, compiler.STRING_SPLIT, compiler.STRING_REPLACE,
			compiler.MATH_ABS, compiler.MATH_SQRT, compiler.MATH_POW, compiler.MATH_FLOOR, compiler.MATH_CEIL,
			compiler.MATH_ROUND, compiler.MATH_SIN, compiler.MATH_COS, compiler.MATH_TAN,
			compiler.ARRAY_PUSH, compiler.ARRAY_POP, compiler.ARRAY_CONTAINS, compiler.ARRAY_INDEXOF,
			compiler.ARRAY_JOIN, compiler.ARRAY_UNIQUE, compiler.ARRAY_SLICE, compiler.ARRAY_CONCAT:
			argc := instr.A
			args := make([]value.Value, argc)
			for i := argc - 1; i >= 0; i-- {
				args[i], _ = stack.Pop()
			}
			receiver, _ := stack.Pop()
			result, err := builtinMethod(directOpcodeMethodName[instr.Op], receiver, args)
			if err != nil {
				stepErr = err
			} else {
				stack.Push(result)
			}

		case compiler.CALL_BUILTIN, compiler.CALL_USER_FUNCTION:
			name := vm.program.Constants[instr.A].(string)
			argc := instr.B
			args := make([]value.Value, argc)
			for i := argc - 1; i >= 0; i-- {
				args[i], _ = stack.Pop()
			}
			callee, ok := env.Get(name)
			if !ok {
				callee, ok = vm.globals.Get(name)
			}
			if !ok {
				stepErr = value.NewRuntimeError(value.UndefinedFunction, 0, 0, "undefined function: "+name)
			} else {
				var result value.Value
				var err error
				result, err = vm.callValue(callee, args)
				if err != nil {
					stepErr = err
				} else {
					stack.Push(result)
				}
			}
		case compiler.CALL_FUNCTION_VALUE:
			argc := instr.A
			callee, _ := stack.Pop()
			args := make([]value.Value, argc)
			for i := argc - 1; i >= 0; i-- {
				args[i], _ = stack.Pop()
			}
			result, err := vm.callValue(callee, args)
			if err != nil {
				stepErr = err
			} else {
				stack.Push(result)
			}
		case compiler.DEFINE_FUNCTION:
			name := vm.program.Constants[instr.A].(string)
			env.Define(name, &value.Function{Name: name, FuncIndex: instr.B, Closure: env})
		case compiler.INSTANTIATE_CLASS:
			name := vm.program.Constants[instr.A].(string)
			argc := instr.B
			args := make([]value.Value, argc)
			for i := argc - 1; i >= 0; i-- {
				args[i], _ = stack.Pop()
			}
			classVal, ok := env.Get(name)
			if !ok {
				stepErr = value.NewRuntimeError(value.UndefinedVariable, 0, 0, "undefined class: "+name)
			} else if cls, ok := classVal.(*value.Class); !ok {
				stepErr = value.NewRuntimeError(value.TypeMismatch, 0, 0, name+" is not a class")
			} else {
				result, err := vm.instantiate(cls, args)
				if err != nil {
					stepErr = err
				} else {
					stack.Push(result)
				}
			}

		case compiler.TRY_START:
			catchIP, err := matchingCatch(code, ip)
			if err != nil {
				return nil, err
			}
			tryStack = append(tryStack, tryFrame{catchIP: catchIP, stackLen: len(stack)})
		case compiler.TRY_END:
			if len(tryStack) > 0 {
				tryStack = tryStack[:len(tryStack)-1]
			}
		case compiler.CATCH:
			name := vm.program.Constants[instr.A].(string)
			v, _ := stack.Pop()
			env.Define(name, v)
		case compiler.THROW:
			v, _ := stack.Pop()
			stepErr = ThrownError{Value: v}

		case compiler.MATCH_PATTERN, compiler.MATCH_END:
			// MATCH_PATTERN is reserved (the compiler's per-case lowering
			// never emits a single multi-way dispatch instruction - see
			// VisitMatchStmt); MATCH_END is a pure end-of-statement marker.
		case compiler.PATTERN_LITERAL:
			pattern, _ := stack.Pop()
			scrutinee, _ := stack.Pop()
			stack.Push(value.Bool{Value: value.Equal(scrutinee, pattern)})
		case compiler.PATTERN_WILDCARD:
			stack.Push(value.Bool{Value: true})
		case compiler.PATTERN_TYPE:
			typeName := vm.program.Constants[instr.A].(string)
			scrutinee, _ := stack.Pop()
			stack.Push(value.Bool{Value: string(scrutinee.Type()) == typeName})

		case compiler.FOR_LOOP:
			collection, _ := stack.Pop()
			elems, err := vm.iterate(collection)
			if err != nil {
				stepErr = err
			} else {
				fn := vm.program.Functions[instr.A]
				for _, elem := range elems {
					iterEnv := value.New(env)
					iterEnv.Define(fn.ParamNames[0], elem)
					if _, err := vm.execute(fn.Code, iterEnv); err != nil {
						if _, isBreak := err.(loopBreakSignal); !isBreak {
							stepErr = err
						}
						break
					}
				}
			}

		case compiler.IMPORT_LIB:
			name := vm.program.Constants[instr.A].(string)
			alias := name
			hasAlias := instr.B != -1
			if hasAlias {
				alias = vm.program.Constants[instr.B].(string)
			}
			var showNames, showAliases []string
			if instr.C != -1 {
				names := vm.program.Constants[instr.C].([]any)
				aliases := vm.program.Constants[instr.C+1].([]any)
				for i := range names {
					showNames = append(showNames, names[i].(string))
					showAliases = append(showAliases, aliases[i].(string))
				}
			}
			stepErr = vm.importLibraryRaw(env, name, alias, showNames, showAliases)

		case compiler.PRINT:
			v, _ := stack.Pop()
			fmt.Fprintln(vm.out, value.ToString(v))
		case compiler.PRINT_MULTIPLE:
			n := instr.A
			parts := make([]string, n)
			for i := n - 1; i >= 0; i-- {
				v, _ := stack.Pop()
				parts[i] = value.ToString(v)
			}
			fmt.Fprintln(vm.out, strings.Join(parts, ", "))

		case compiler.EVAL_AST:
			// Reserved: CREATE_CLASS stores its body directly in AstRefs and
			// the VM reads it there (vm.classBody) rather than through a
			// dedicated bytecode instruction - never emitted by the compiler.

		default:
			return nil, InternalError{Message: fmt.Sprintf("unknown opcode %s at ip %d", instr.Op, ip)}
		}

		if stepErr != nil {
			nextIP, propagate := vm.resolveError(stepErr, &stack, &tryStack, ip)
			if propagate != nil {
				return nil, propagate
			}
			ip = nextIP
			continue
		}

		if advance {
			ip++
		}
	}

	return value.NullValue, nil
}

// resolveError implements §7's error-handling policy for one failed
// instruction: a Fatal error (StackOverflow/OutOfMemory) always propagates;
// otherwise an active try/catch frame gets the error (stack unwound, value
// bound, ip redirected to CATCH); with no active frame the error is reported
// to stderr and execution continues at the next instruction; either way the
// int it returns is where the caller's ip should resume next.
func (vm *VM) resolveError(err error, stack *Stack, tryStack *[]tryFrame, ip int) (int, error) {
	var rte value.RuntimeError
	if errors.As(err, &rte) && rte.Fatal {
		return 0, err
	}
	if n := len(*tryStack); n > 0 {
		frame := (*tryStack)[n-1]
		*tryStack = (*tryStack)[:n-1]
		*stack = (*stack)[:frame.stackLen]
		stack.Push(errorValue(err))
		return frame.catchIP, nil
	}
	fmt.Fprintln(os.Stderr, err)
	stack.Push(value.NullValue)
	return ip + 1, nil
}

// matchingCatch forward-scans from a TRY_START instruction to find its
// CATCH opcode, accounting for nested try statements. VisitTryStmt always
// emits TRY_START, <block>, TRY_END, JUMP, CATCH in that order, so the
// target is exactly two instructions past the matching TRY_END.
func matchingCatch(code []compiler.Instruction, tryStartIP int) (int, error) {
	depth := 0
	for i := tryStartIP + 1; i < len(code); i++ {
		switch code[i].Op {
		case compiler.TRY_START:
			depth++
		case compiler.TRY_END:
			if depth == 0 {
				if i+2 >= len(code) || code[i+2].Op != compiler.CATCH {
					return 0, InternalError{Message: "malformed try/catch: CATCH not found after TRY_END"}
				}
				return i + 2, nil
			}
			depth--
		}
	}
	return 0, InternalError{Message: "unterminated try block"}
}

// localName resolves a compile-time local slot index back to its source
// name via Program.LocalNames, the same table compiler.declareLocal appends
// to - see the LOAD_LOCAL/STORE_LOCAL comment in execute for why this design
// stores locals by name in the call's Environment rather than a numbered
// slot array.
func (vm *VM) localName(slot int) string {
	if slot >= 0 && slot < len(vm.program.LocalNames) {
		return vm.program.LocalNames[slot]
	}
	return fmt.Sprintf("$local%d", slot)
}

// callValue dispatches any callable Value: a compiled user function, a host
// callable registered by a stdlib module, or a class (called like
// `ClassName(args)`, which instantiates it - spec §8's
// `print B().get()` scenario).
func (vm *VM) callValue(callee value.Value, args []value.Value) (value.Value, error) {
	switch fn := callee.(type) {
	case *value.Function:
		return vm.callFunction(fn, args)
	case *value.HostFunction:
		return fn.Fn(vm, args, 0, 0)
	case *value.Class:
		return vm.instantiate(fn, args)
	default:
		name := "value"
		if callee != nil {
			name = string(callee.Type())
		}
		return nil, value.NewRuntimeError(value.InvalidFunctionCall, 0, 0, "cannot call a "+name)
	}
}

func (vm *VM) callFunction(fn *value.Function, args []value.Value) (value.Value, error) {
	if vm.callDepth >= maxCallDepth {
		return nil, value.NewRuntimeError(value.StackOverflow, 0, 0, "call stack exceeded")
	}
	if fn.FuncIndex < 0 || fn.FuncIndex >= len(vm.program.Functions) {
		return nil, InternalError{Message: fmt.Sprintf("invalid function index %d", fn.FuncIndex)}
	}
	def := vm.program.Functions[fn.FuncIndex]
	callEnv := value.New(fn.Closure)
	for i, pname := range def.ParamNames {
		if i < len(args) {
			callEnv.Define(pname, args[i])
		} else {
			callEnv.Define(pname, value.NullValue)
		}
	}
	frameName := fn.Name
	if frameName == "" {
		frameName = "<anonymous>"
	}
	vm.callStack = append(vm.callStack, CallFrame{FunctionName: frameName})
	vm.callDepth++
	result, err := vm.execute(def.Code, callEnv)
	vm.callDepth--
	if err != nil {
		var traced TracedError
		if !errors.As(err, &traced) {
			frames := make([]CallFrame, len(vm.callStack))
			copy(frames, vm.callStack)
			err = TracedError{Err: err, Frames: frames}
		}
	}
	vm.callStack = vm.callStack[:len(vm.callStack)-1]
	return result, err
}

// iterate expands a collection Value into the elements a FOR_LOOP (or
// ast_eval's VisitForStmt) should bind the iterator to in turn (§8 property
// 7 for ranges; arrays, strings, and objects generalize the same "yield each
// element" rule - objects yield their keys, matching common for-in
// convention).
func (vm *VM) iterate(v value.Value) ([]value.Value, error) {
	switch t := v.(type) {
	case value.Range:
		n := t.Count()
		step := t.Step
		if step == 0 {
			step = 1
		}
		out := make([]value.Value, n)
		for i := 0; i < n; i++ {
			out[i] = value.Number{Value: t.Start + float64(i)*step}
		}
		return out, nil
	case *value.Array:
		return t.Elements, nil
	case value.String:
		out := make([]value.Value, 0, len(t.Value))
		for _, r := range t.Value {
			out = append(out, value.String{Value: string(r)})
		}
		return out, nil
	case *value.Object:
		out := make([]value.Value, len(t.Keys))
		for i, k := range t.Keys {
			out[i] = value.String{Value: k}
		}
		return out, nil
	default:
		return nil, value.NewRuntimeError(value.TypeMismatch, 0, 0, "value is not iterable")
	}
}

func (vm *VM) importLibraryRaw(env *value.Environment, name, alias string, showNames, showAliases []string) error {
	factory, ok := vm.libraries[name]
	if !ok {
		return value.NewRuntimeError(value.ModuleNotFound, 0, 0, "no such library: "+name)
	}
	mod := factory()
	env.Define(alias, mod)
	for i, shown := range showNames {
		v, ok := mod.Exports.Get(shown)
		if !ok {
			return value.NewRuntimeError(value.ModuleNotFound, 0, 0, "library "+name+" has no export "+shown)
		}
		env.Define(showAliases[i], v)
	}
	return nil
}

// importLibrary is the token-based entry point ast_eval.go's VisitUseStmt
// calls (class bodies keep the raw AST, not compiled constant-pool indices).
func (vm *VM) importLibrary(env *value.Environment, name string, hasAlias bool, alias string, showTokens, aliasTokens []token.Token) {
	a := name
	if hasAlias {
		a = alias
	}
	names := make([]string, len(showTokens))
	aliases := make([]string, len(showTokens))
	for i, t := range showTokens {
		names[i] = t.Lexeme
		aliases[i] = aliasTokens[i].Lexeme
	}
	if err := vm.importLibraryRaw(env, name, a, names, aliases); err != nil {
		panic(err)
	}
}

// directOpcodeMethodName maps each of the compiler's "well-known method"
// direct opcodes (compiler/opcodes.go's methodOpcodes table) back to the
// method name builtinMethod dispatches on, so the bytecode path and
// ast_eval.go's generic method-call path share one implementation.
var directOpcodeMethodName = map[compiler.Opcode]string{
	compiler.TO_STRING: "toString", compiler.GET_TYPE: "type", compiler.GET_LENGTH: "length",
	compiler.IS_NULL: "isNull", compiler.IS_BOOL: "isBool", compiler.IS_NUMBER: "isNumber",
	compiler.IS_STRING: "isString", compiler.IS_ARRAY: "isArray",
	compiler.STRING_UPPER: "upper", compiler.STRING_LOWER: "lower", compiler.STRING_TRIM: "trim",
	compiler.STRING_SPLIT: "split", compiler.STRING_REPLACE: "replace",
	compiler.MATH_ABS: "abs", compiler.MATH_SQRT: "sqrt", compiler.MATH_POW: "pow",
	compiler.MATH_FLOOR: "floor", compiler.MATH_CEIL: "ceil", compiler.MATH_ROUND: "round",
	compiler.MATH_SIN: "sin", compiler.MATH_COS: "cos", compiler.MATH_TAN: "tan",
	compiler.ARRAY_PUSH: "push", compiler.ARRAY_POP: "pop", compiler.ARRAY_CONTAINS: "contains",
	compiler.ARRAY_INDEXOF: "indexOf", compiler.ARRAY_JOIN: "join", compiler.ARRAY_UNIQUE: "unique",
	compiler.ARRAY_SLICE: "slice", compiler.ARRAY_CONCAT: "concat",
}

// indexValue implements Object[idx]/Array[idx]/String[idx] reads for both
// the bytecode ARRAY_GET opcode and ast_eval.go's VisitIndex.
func indexValue(obj, idx value.Value) (value.Value, error) {
	switch o := obj.(type) {
	case *value.Array:
		n, ok := idx.(value.Number)
		if !ok {
			return nil, value.NewRuntimeError(value.InvalidIndexType, 0, 0, "array index must be a number")
		}
		i := int(n.Value)
		if i < 0 || i >= len(o.Elements) {
			return nil, value.NewRuntimeError(value.ArrayIndexOutOfBounds, 0, 0, "array index out of bounds")
		}
		return o.Elements[i], nil
	case *value.Object:
		v, ok := o.Get(value.ToString(idx))
		if !ok {
			return value.NullValue, nil
		}
		return v, nil
	case value.String:
		n, ok := idx.(value.Number)
		if !ok {
			return nil, value.NewRuntimeError(value.InvalidIndexType, 0, 0, "string index must be a number")
		}
		runes := []rune(o.Value)
		i := int(n.Value)
		if i < 0 || i >= len(runes) {
			return nil, value.NewRuntimeError(value.ArrayIndexOutOfBounds, 0, 0, "string index out of bounds")
		}
		return value.String{Value: string(runes[i])}, nil
	default:
		return nil, value.NewRuntimeError(value.InvalidIndexTarget, 0, 0, "value is not indexable")
	}
}

func setIndexValue(obj, idx, val value.Value) error {
	switch o := obj.(type) {
	case *value.Array:
		n, ok := idx.(value.Number)
		if !ok {
			return value.NewRuntimeError(value.InvalidIndexType, 0, 0, "array index must be a number")
		}
		i := int(n.Value)
		if i < 0 || i >= len(o.Elements) {
			return value.NewRuntimeError(value.ArrayIndexOutOfBounds, 0, 0, "array index out of bounds")
		}
		o.Elements[i] = val
		return nil
	case *value.Object:
		o.Set(value.ToString(idx), val)
		return nil
	default:
		return value.NewRuntimeError(value.InvalidIndexTarget, 0, 0, "value is not indexable")
	}
}

// binaryOp implements §4.1's overloaded binary operators for ast_eval.go,
// which works from token.TokenType (the AST's own operator representation)
// rather than the bytecode's Opcode - see compiler.tokenOperator for the
// compile-time equivalent of this mapping.
func binaryOp(op token.TokenType, a, b value.Value) (value.Value, error) {
	switch op {
	case token.ADD:
		return value.Add(a, b, 0, 0)
	case token.SUB:
		return value.Sub(a, b, 0, 0)
	case token.MULT:
		return value.Mul(a, b, 0, 0)
	case token.DIV:
		return value.Div(a, b, 0, 0)
	case token.MOD:
		return value.Mod(a, b, 0, 0)
	case token.EQUAL_EQUAL:
		return value.Bool{Value: value.Equal(a, b)}, nil
	case token.NOT_EQUAL:
		return value.Bool{Value: !value.Equal(a, b)}, nil
	case token.LESS, token.LESS_EQUAL, token.LARGER, token.LARGER_EQUAL:
		cmp, err := value.Compare(a, b, 0, 0)
		if err != nil {
			return nil, err
		}
		switch op {
		case token.LESS:
			return value.Bool{Value: cmp < 0}, nil
		case token.LESS_EQUAL:
			return value.Bool{Value: cmp <= 0}, nil
		case token.LARGER:
			return value.Bool{Value: cmp > 0}, nil
		default:
			return value.Bool{Value: cmp >= 0}, nil
		}
	case token.BIT_AND, token.BIT_OR, token.BIT_XOR, token.SHL, token.SHR:
		an, aok := a.(value.Number)
		bn, bok := b.(value.Number)
		if !aok || !bok {
			return nil, value.NewRuntimeError(value.TypeMismatch, 0, 0, "bitwise operators expect numbers")
		}
		ai, bi := int64(an.Value), int64(bn.Value)
		var r int64
		switch op {
		case token.BIT_AND:
			r = ai & bi
		case token.BIT_OR:
			r = ai | bi
		case token.BIT_XOR:
			r = ai ^ bi
		case token.SHL:
			r = ai << uint(bi)
		case token.SHR:
			r = ai >> uint(bi)
		}
		return value.Number{Value: float64(r)}, nil
	default:
		return nil, value.NewRuntimeError(value.InternalError, 0, 0, "unhandled binary operator")
	}
}
