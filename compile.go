package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/porlang/porc/sexy"
)

// Options carries settings from the command line into the pipeline.
type Options struct {
	// AlignFrames rounds each stack reservation up to a multiple of 16.
	// Slot offsets are unaffected.
	AlignFrames bool

	// Log receives progress lines when non-nil.
	Log io.Writer
}

func (o Options) logf(format string, args ...any) {
	if o.Log != nil {
		fmt.Fprintf(o.Log, format+"\n", args...)
	}
}

// FunctionUnit is one analyzed function with its frame layout.
type FunctionUnit struct {
	Node   *ASTNode
	Locals *SymbolTable
}

// Compilation is the result of analysis: the global signature table and one
// unit per function, in program order.
type Compilation struct {
	Program   *ASTNode
	Globals   *SymbolTable
	Functions []FunctionUnit
}

// Analyze runs scope building and semantic analysis. The first error stops
// everything.
func Analyze(program *ASTNode, opts Options) (*Compilation, error) {
	global, err := BuildGlobalTable(program)
	if err != nil {
		return nil, err
	}
	opts.logf("Defined %d function(s)", global.Len())

	c := &Compilation{Program: program, Globals: global}
	for _, fn := range program.Children {
		local, err := BuildLocalTable(fn, global)
		if err != nil {
			return nil, err
		}
		if err := CheckFunction(fn, local, global); err != nil {
			return nil, err
		}
		opts.logf("Checked %s: %d local(s), %d byte frame", fn.FunctionName(), local.Len(), local.FrameSize())
		c.Functions = append(c.Functions, FunctionUnit{Node: fn, Locals: local})
	}
	return c, nil
}

// Generate emits the assembly of an analyzed program.
func (c *Compilation) Generate(opts Options) string {
	labels := NewLabels()
	cg := NewCodeGen(labels, opts.AlignFrames)
	cg.EmitText()
	for i, unit := range c.Functions {
		if i > 0 {
			cg.buf.WriteByte('\n')
		}
		cg.EmitFunction(unit.Node, unit.Locals, c.Globals)
	}
	cg.buf.WriteByte('\n')
	cg.EmitRodata()
	opts.logf("Interned %d literal(s)", len(labels.Literals()))
	return cg.String()
}

// Compile analyzes program and, only if every function passes, generates
// its assembly.
func Compile(program *ASTNode, opts Options) (string, error) {
	c, err := Analyze(program, opts)
	if err != nil {
		return "", err
	}
	return c.Generate(opts), nil
}

// CompileTree loads a tree file and compiles it.
func CompileTree(src string, opts Options) (string, error) {
	program, err := LoadTree(src)
	if err != nil {
		return "", err
	}
	return Compile(program, opts)
}

// SymbolsSExpr lists a function's frame as (symbols NAME (VAR TYPE OFFSET)...).
func SymbolsSExpr(unit FunctionUnit) string {
	items := []*sexy.Node{sexy.NewSymbol("symbols"), sexy.NewSymbol(unit.Node.FunctionName())}
	for _, sym := range unit.Locals.Symbols() {
		items = append(items, sexy.NewList([]*sexy.Node{
			sexy.NewSymbol(sym.Name),
			sexy.NewSymbol(string(sym.Type)),
			sexy.NewNumber(strconv.Itoa(sym.Offset)),
		}))
	}
	return sexy.NewList(items).String()
}
