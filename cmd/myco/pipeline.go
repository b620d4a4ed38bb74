package main

import (
	"fmt"
	"os"
	"time"

	"github.com/IvyMycelia/myco/compiler"
	"github.com/IvyMycelia/myco/lexer"
	"github.com/IvyMycelia/myco/parser"
	"github.com/IvyMycelia/myco/stdlib"
	"github.com/IvyMycelia/myco/value"
	"github.com/IvyMycelia/myco/vm"
)

// newVM builds a VM with every stdlib module wired in - the single place
// run and repl both go through, so registering a new module only
// needs to happen once.
func newVM() *vm.VM {
	m := vm.New(os.Stdout)
	m.RegisterLibrary("math", stdlib.Math)
	m.RegisterLibrary("string", stdlib.String)
	m.RegisterLibrary("arrays", stdlib.Arrays(m.Call))
	m.RegisterLibrary("maps", stdlib.Maps)
	m.RegisterLibrary("sets", stdlib.Sets)
	m.RegisterLibrary("time", stdlib.Time)
	m.RegisterLibrary("regexp", stdlib.Regexp)
	m.RegisterLibrary("database", stdlib.Database)
	return m
}

// runOptions controls how compileAndRun reports and bounds execution -
// populated from run's -timeout/-show-trace flags (the repl subcommand
// uses the zero value: no deadline, no trace printing).
type runOptions struct {
	timeout   time.Duration
	showTrace bool
}

// compileAndRun lexes, parses, compiles, and executes source against m,
// printing any stage's errors to stderr. Returns false if any stage failed.
func compileAndRun(m *vm.VM, source string) bool {
	return compileAndRunWithOptions(m, source, runOptions{})
}

func compileAndRunWithOptions(m *vm.VM, source string, opts runOptions) bool {
	lex := lexer.New(source)
	tokens, err := lex.Scan()
	if err != nil {
		fmt.Fprintf(os.Stderr, "💥 lexing error: %v\n", err)
		return false
	}

	p := parser.Make(tokens)
	statements, parseErrs := p.Parse()
	if len(parseErrs) > 0 {
		for _, e := range parseErrs {
			fmt.Fprintln(os.Stderr, e)
		}
		return false
	}

	program, err := compiler.Compile(statements)
	if err != nil {
		fmt.Fprintf(os.Stderr, "💥 compile error: %v\n", err)
		return false
	}

	if err := runWithTimeout(m, program, opts.timeout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if opts.showTrace {
			if trace, ok := vm.StackTrace(err); ok {
				fmt.Fprint(os.Stderr, trace)
			}
		}
		return false
	}
	return true
}

// runWithTimeout runs program on m directly when timeout is zero (the
// common case: no -timeout flag given). Otherwise it races m.Run against a
// timer on a separate goroutine, matching spec §7's named Timeout error kind
// - the VM itself has no cooperative cancellation point mid-instruction, so
// a timed-out run's goroutine is abandoned rather than killed; m is not
// reused afterward in that case.
func runWithTimeout(m *vm.VM, program *compiler.Program, timeout time.Duration) error {
	if timeout <= 0 {
		_, err := m.Run(program)
		return err
	}

	done := make(chan error, 1)
	go func() {
		_, err := m.Run(program)
		done <- err
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		return value.NewRuntimeError(value.Timeout, 0, 0, fmt.Sprintf("execution exceeded %s", timeout))
	}
}
