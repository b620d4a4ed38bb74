package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/subcommands"
)

// runCmd executes a Myco source file, generalized from informatter-nilan's
// cmd_run_compiled.go onto the Program/VM.Run API.
type runCmd struct {
	timeout   time.Duration
	showTrace bool
}

func (*runCmd) Name() string     { return "run" }
func (*runCmd) Synopsis() string { return "Execute a Myco source file" }
func (*runCmd) Usage() string {
	return `run <file>:
  Execute Myco source code from a file.
`
}
func (cmd *runCmd) SetFlags(f *flag.FlagSet) {
	f.DurationVar(&cmd.timeout, "timeout", 0, "abort execution after the given duration (0 disables the deadline)")
	f.BoolVar(&cmd.showTrace, "show-trace", false, "print a leaf-to-root call trace on an uncaught error")
}

func (cmd *runCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	args := f.Args()
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "💥 file not provided\n")
		return subcommands.ExitUsageError
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "💥 failed to read file: %v\n", err)
		return subcommands.ExitFailure
	}

	m := newVM()
	opts := runOptions{timeout: cmd.timeout, showTrace: cmd.showTrace}
	if !compileAndRunWithOptions(m, string(data), opts) {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
