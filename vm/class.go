package vm

import (
	"fmt"

	"github.com/IvyMycelia/myco/ast"
	"github.com/IvyMycelia/myco/value"
)

// classChain walks from the root ancestor down to cls itself following
// ParentName, used so field initializers run base-first: spec's class
// example (`class A { let x=1 }; class B(A) { let y=2 }`) needs A's fields
// set before B's so B's own initializers can already see self.x if they
// wanted to.
//
// Parent lookup goes through vm.globals rather than the class's own
// defining Env: classes are, in practice, always declared at module scope,
// so this is a deliberate simplification rather than a general upvalue walk
// - see DESIGN.md.
func (vm *VM) classChain(cls *value.Class) ([]*value.Class, error) {
	var chain []*value.Class
	cur := cls
	for {
		chain = append([]*value.Class{cur}, chain...)
		if !cur.HasParent {
			return chain, nil
		}
		parentVal, ok := vm.globals.Get(cur.ParentName)
		if !ok {
			return nil, value.NewRuntimeError(value.UndefinedVariable, 0, 0,
				"undefined parent class: "+cur.ParentName)
		}
		parent, ok := parentVal.(*value.Class)
		if !ok {
			return nil, value.NewRuntimeError(value.TypeMismatch, 0, 0,
				cur.ParentName+" is not a class")
		}
		cur = parent
	}
}

// findMethod looks up name on cls, then each ancestor in turn (nearest
// first), returning both the method AST and the class that defines it (its
// Env is what the method body closes over).
func (vm *VM) findMethod(cls *value.Class, name string) (ast.FunctionStmt, *value.Class, bool) {
	for cur := cls; ; {
		for _, m := range cur.Body.Methods {
			if m.Name.Lexeme == name {
				return m, cur, true
			}
		}
		if !cur.HasParent {
			return ast.FunctionStmt{}, nil, false
		}
		parentVal, ok := vm.globals.Get(cur.ParentName)
		if !ok {
			return ast.FunctionStmt{}, nil, false
		}
		parent, ok := parentVal.(*value.Class)
		if !ok {
			return ast.FunctionStmt{}, nil, false
		}
		cur = parent
	}
}

// instantiate builds a class instance: field initializers run base-class
// first against an environment with `self` already bound (§8's concrete
// scenario: `fn get(){return self.x}` reads a field set by an ancestor's
// initializer), then an `init` method - if any class in the chain defines
// one - runs with the constructor arguments. Per spec §4.2, none of this is
// precompiled bytecode: it's evaluated by ast_eval.go directly against the
// instance environment.
func (vm *VM) instantiate(cls *value.Class, args []value.Value) (value.Value, error) {
	chain, err := vm.classChain(cls)
	if err != nil {
		return nil, err
	}
	instance := value.NewObject()
	instance.Set(value.ClassNameKey, value.String{Value: cls.Name})

	for _, ancestor := range chain {
		env := value.New(ancestor.Env)
		env.Define("self", instance)
		ev := &astEvaluator{vm: vm, env: env}
		for _, field := range ancestor.Body.Fields {
			var v value.Value = value.NullValue
			if field.Initializer != nil {
				v, err = ev.evalExpr(field.Initializer)
				if err != nil {
					return nil, err
				}
			}
			instance.Set(field.Name.Lexeme, v)
		}
	}

	if method, defCls, ok := vm.findMethod(cls, "init"); ok {
		if _, err := vm.callMethod(defCls, method, instance, args); err != nil {
			return nil, err
		}
	} else if len(args) > 0 {
		return nil, value.NewRuntimeError(value.WrongArgumentCount, 0, 0,
			fmt.Sprintf("%s takes no constructor arguments (no 'init' method defined)", cls.Name))
	}
	return instance, nil
}

// callMethod runs a resolved method body against a fresh environment scoped
// to the instance: `self` plus the call's arguments, closing over defCls.Env
// (the environment the class was declared in) rather than the instance's
// own pseudo-scope, matching ordinary lexical closure behaviour for methods.
func (vm *VM) callMethod(defCls *value.Class, method ast.FunctionStmt, instance *value.Object, args []value.Value) (value.Value, error) {
	env := value.New(defCls.Env)
	env.Define("self", instance)
	for i, p := range method.Params {
		if i < len(args) {
			env.Define(p.Name.Lexeme, args[i])
		} else {
			env.Define(p.Name.Lexeme, value.NullValue)
		}
	}
	ev := &astEvaluator{vm: vm, env: env}
	return ev.execBody(method.Body)
}

// callInstanceMethod is the entry point used by both METHOD_CALL (bytecode)
// and the ast-walking evaluator's VisitMethodCall: resolve name against the
// instance's class chain and run it.
func (vm *VM) callInstanceMethod(instance *value.Object, name string, args []value.Value) (value.Value, error) {
	className, ok := instance.ClassName()
	if !ok {
		return nil, value.NewRuntimeError(value.InvalidMemberAccess, 0, 0, "not a class instance")
	}
	classVal, ok := vm.globals.Get(className)
	if !ok {
		return nil, value.NewRuntimeError(value.UndefinedVariable, 0, 0, "undefined class: "+className)
	}
	cls, ok := classVal.(*value.Class)
	if !ok {
		return nil, value.NewRuntimeError(value.TypeMismatch, 0, 0, className+" is not a class")
	}
	method, defCls, ok := vm.findMethod(cls, name)
	if !ok {
		return nil, value.NewRuntimeError(value.UndefinedFunction, 0, 0,
			"undefined method "+name+" on "+className)
	}
	return vm.callMethod(defCls, method, instance, args)
}
