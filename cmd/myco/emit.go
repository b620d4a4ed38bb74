package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/subcommands"

	"github.com/IvyMycelia/myco/compiler"
	"github.com/IvyMycelia/myco/lexer"
	"github.com/IvyMycelia/myco/parser"
)

// emitCmd compiles a source file and writes diagnostics about it,
// generalized from informatter-nilan's cmd_emit_bytecode.go onto the
// Program/Instruction representation - compiler.Disassemble replaces the
// teacher's byte-packed DiassembleBytecode, and parser.WriteASTJSONToFile
// is reused as-is for -dumpAST.
type emitCmd struct {
	disassemble bool
	dumpAST     bool
}

func (*emitCmd) Name() string     { return "emit" }
func (*emitCmd) Synopsis() string { return "Compile a source file and print its bytecode/AST" }
func (*emitCmd) Usage() string {
	return `emit <file>:
  Compile Myco source and print diagnostics about it.
`
}

func (cmd *emitCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&cmd.disassemble, "disassemble", true, "print the disassembled bytecode")
	f.BoolVar(&cmd.dumpAST, "dumpAST", false, "write the parsed AST as JSON to <file>.ast.json")
}

func (cmd *emitCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	args := f.Args()
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "💥 file not provided\n")
		return subcommands.ExitUsageError
	}
	path := args[0]

	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "💥 failed to read file: %v\n", err)
		return subcommands.ExitFailure
	}

	lex := lexer.New(string(data))
	tokens, err := lex.Scan()
	if err != nil {
		fmt.Fprintf(os.Stderr, "💥 lexing error: %v\n", err)
		return subcommands.ExitFailure
	}

	p := parser.Make(tokens)
	statements, parseErrs := p.Parse()
	if len(parseErrs) > 0 {
		for _, e := range parseErrs {
			fmt.Fprintln(os.Stderr, e)
		}
		return subcommands.ExitFailure
	}

	if cmd.dumpAST {
		base := strings.TrimSuffix(path, ".myco")
		if err := parser.WriteASTJSONToFile(statements, base+".ast.json"); err != nil {
			fmt.Fprintf(os.Stderr, "💥 dump AST error: %v\n", err)
			return subcommands.ExitFailure
		}
	}

	program, err := compiler.Compile(statements)
	if err != nil {
		fmt.Fprintf(os.Stderr, "💥 compile error: %v\n", err)
		return subcommands.ExitFailure
	}

	if cmd.disassemble {
		fmt.Println(compiler.Disassemble(program))
	}

	return subcommands.ExitSuccess
}
