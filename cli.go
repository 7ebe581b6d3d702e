package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

func showUsage() {
	fmt.Fprintf(os.Stderr, `porc - compiles Portuguese-keyword programs to x86-64 assembly

Usage:
    porc <command> [arguments]

Commands:
    build <file>    Compile a tree file to an assembly (.s) file
    check <file>    Build symbol tables and type-check a tree file
    asm <tree>      Compile an inline tree and print the assembly
    help            Show this help message

Examples:
    porc build -o soma.s soma.tree
    porc check soma.tree
    porc asm '(program (func main [] [(print "oi")]))'

Use "porc <command> -h" for more information about a command.
`)
}

// verboseLog returns where -v progress lines go.
func verboseLog(verbose bool) io.Writer {
	if verbose {
		return os.Stderr
	}
	return nil
}

func buildCommand(args []string) {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	output := fs.String("o", "", "Output file path (default: <filename>.s)")
	verbose := fs.Bool("v", false, "Show verbose compilation details")
	align := fs.Bool("align", false, "Round stack reservations up to 16 bytes")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: porc build [-o output] [-v] [-align] <file>\n")
		fmt.Fprintf(os.Stderr, "Compile a tree file to x86-64 assembly\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if fs.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Error: expected exactly one file argument\n")
		fs.Usage()
		os.Exit(1)
	}

	filename := fs.Arg(0)

	outputFile := *output
	if outputFile == "" {
		outputFile = strings.TrimSuffix(filename, filepath.Ext(filename)) + ".s"
	}

	opts := Options{AlignFrames: *align, Log: verboseLog(*verbose)}
	opts.logf("Compiling %s to %s...", filename, outputFile)

	source, err := os.ReadFile(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file %s: %v\n", filename, err)
		os.Exit(1)
	}

	asm, err := CompileTree(string(source), opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	// Only a successful compile touches the output file.
	if err := os.WriteFile(outputFile, []byte(asm), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing assembly file %s: %v\n", outputFile, err)
		os.Exit(1)
	}

	fmt.Printf("Generated %s (%d bytes)\n", outputFile, len(asm))
}

func checkCommand(args []string) {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	verbose := fs.Bool("v", false, "Show verbose checking details")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: porc check [-v] <file>\n")
		fmt.Fprintf(os.Stderr, "Build symbol tables and type-check a tree file\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if fs.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Error: expected exactly one file argument\n")
		fs.Usage()
		os.Exit(1)
	}

	filename := fs.Arg(0)
	opts := Options{Log: verboseLog(*verbose)}
	opts.logf("Checking %s...", filename)

	source, err := os.ReadFile(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file %s: %v\n", filename, err)
		os.Exit(1)
	}

	program, err := LoadTree(string(source))
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	c, err := Analyze(program, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	fmt.Printf("%s: no errors found\n", filename)

	if *verbose {
		fmt.Printf("AST: %s\n", ToSExpr(program))
		for _, unit := range c.Functions {
			fmt.Printf("%s\n", SymbolsSExpr(unit))
		}
	}
}

func asmCommand(args []string) {
	fs := flag.NewFlagSet("asm", flag.ExitOnError)
	align := fs.Bool("align", false, "Round stack reservations up to 16 bytes")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: porc asm [-align] <tree>\n")
		fmt.Fprintf(os.Stderr, "Compile an inline tree and print the assembly\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if fs.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Error: expected exactly one tree argument\n")
		fs.Usage()
		os.Exit(1)
	}

	asm, err := CompileTree(fs.Arg(0), Options{AlignFrames: *align})
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	fmt.Print(asm)
}

func main() {
	if len(os.Args) < 2 {
		showUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "build":
		buildCommand(args)
	case "check":
		checkCommand(args)
	case "asm":
		asmCommand(args)
	case "help", "-h", "--help":
		showUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		showUsage()
		os.Exit(1)
	}
}
