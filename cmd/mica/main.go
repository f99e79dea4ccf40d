package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"mica/internal/errors"
	"mica/internal/pipeline"
	"mica/repl"
)

const usage = `mica - small language toolchain

Usage: mica [flags] [file]

Flags:
  --ast        Use the AST interpreter backend
  --bytecode   Use the bytecode interpreter backend (default)
  --dump       Dump the representation for the active backend and exit
  -h, --help   Show this help

With no file, mica starts an interactive session.`

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	useAST := false
	useBytecode := false
	dump := false
	var files []string

	for _, arg := range args {
		switch arg {
		case "--ast":
			useAST = true
		case "--bytecode":
			useBytecode = true
		case "--dump":
			dump = true
		case "-h", "--help":
			fmt.Println(usage)
			return 0
		default:
			if len(arg) > 1 && arg[0] == '-' {
				fmt.Fprintf(os.Stderr, "error: unknown flag '%s'\n", arg)
				return 1
			}
			files = append(files, arg)
		}
	}

	if useAST && useBytecode {
		fmt.Fprintln(os.Stderr, "error: --ast and --bytecode are mutually exclusive")
		return 1
	}
	if len(files) > 1 {
		fmt.Fprintln(os.Stderr, "error: at most one input file may be given")
		return 1
	}

	backend := pipeline.Bytecode
	if useAST {
		backend = pipeline.AST
	}

	if len(files) == 0 {
		if dump {
			fmt.Fprintln(os.Stderr, "error: --dump requires an input file")
			return 1
		}
		repl.Start(os.Stdin, os.Stdout, backend)
		return 0
	}

	source, err := os.ReadFile(files[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to open file: %s\n", files[0])
		return 1
	}

	if dump {
		text, diags, err := pipeline.Dump(string(source), backend)
		if len(diags) > 0 {
			printDiagnostics(files[0], string(source), diags)
			return 1
		}
		if err != nil {
			color.Red("error: %s", err)
			return 1
		}
		fmt.Print(text)
		return 0
	}

	value, diags, err := pipeline.Run(string(source), backend)
	if len(diags) > 0 {
		printDiagnostics(files[0], string(source), diags)
		return 1
	}
	if err != nil {
		color.Red("error: %s", err)
		return 1
	}
	fmt.Println(value)
	return 0
}

func printDiagnostics(filename, source string, diags []errors.Diagnostic) {
	reporter := errors.NewReporter(filename, source)
	if !isatty.IsTerminal(os.Stderr.Fd()) {
		reporter.DisableColor()
	}
	fmt.Fprint(os.Stderr, reporter.FormatAll(diags))
}
