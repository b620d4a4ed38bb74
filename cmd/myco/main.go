// Command myco is the Myco language CLI: run/repl/emit subcommands built
// on github.com/google/subcommands, generalized from informatter-nilan's
// flat cmd_run.go/cmd_repl_compiled.go/cmd_emit_bytecode.go files into one
// binary under cmd/myco (see DESIGN.md).
package main

import (
	"context"
	"flag"
	"os"

	"github.com/google/subcommands"
)

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")
	subcommands.Register(&runCmd{}, "")
	subcommands.Register(&replCmd{}, "")
	subcommands.Register(&emitCmd{}, "")

	flag.Parse()
	ctx := context.Background()
	os.Exit(int(subcommands.Execute(ctx)))
}
