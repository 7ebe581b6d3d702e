package main

// Symbol is one declared name: a parameter or local (with a frame offset)
// or a function (with its signature).
type Symbol struct {
	Name string
	Type Type
	Line int

	// Params and locals only: signed displacement from %rbp.
	Offset    int
	HasOffset bool

	// Functions only.
	ParamTypes []Type
	ReturnType Type
}

// SymbolTable is a flat, insertion-ordered set of symbols for one scope:
// either a single function's params and locals, or the program's function
// signatures. Tables never chain to an outer table.
type SymbolTable struct {
	symbols []*Symbol
	index   map[string]int
}

// NewSymbolTable creates a new empty symbol table
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{index: make(map[string]int)}
}

// Define adds sym under name. Redefining a name fails with a
// RedeclarationError that cites the first declaration.
func (st *SymbolTable) Define(name string, sym *Symbol) error {
	if i, ok := st.index[name]; ok {
		prev := st.symbols[i]
		err := newError(ErrRedeclaration, sym.Line, "Symbol '%s' already declared at line %d", name, prev.Line)
		err.PrevLine = prev.Line
		return err
	}
	st.index[name] = len(st.symbols)
	st.symbols = append(st.symbols, sym)
	return nil
}

// Lookup finds name in this table only.
func (st *SymbolTable) Lookup(name string) (*Symbol, error) {
	i, ok := st.index[name]
	if !ok {
		return nil, newError(ErrSymbolNotFound, 0, "Symbol '%s' not found", name)
	}
	return st.symbols[i], nil
}

// Symbols returns the symbols in definition order.
func (st *SymbolTable) Symbols() []*Symbol {
	return st.symbols
}

func (st *SymbolTable) Len() int {
	return len(st.symbols)
}

// Last returns the most recently defined symbol, or nil for an empty table.
func (st *SymbolTable) Last() *Symbol {
	if len(st.symbols) == 0 {
		return nil
	}
	return st.symbols[len(st.symbols)-1]
}

// FrameSize is the number of bytes the function's locals occupy below %rbp.
// Offsets only ever decrease, so the last symbol holds the deepest slot.
func (st *SymbolTable) FrameSize() int {
	last := st.Last()
	if last == nil || !last.HasOffset {
		return 0
	}
	return -last.Offset
}

// DefineVariable defines a param or local of type t at the next free slot.
func (st *SymbolTable) DefineVariable(name string, t Type, line int) (*Symbol, error) {
	sym := &Symbol{
		Name:      name,
		Type:      t,
		Line:      line,
		Offset:    CalculateOffset(st.symbols, t),
		HasOffset: true,
	}
	if err := st.Define(name, sym); err != nil {
		return nil, err
	}
	return sym, nil
}

// CalculateOffset bumps the frame down by the size of t from the lowest
// offset assigned so far. No padding or alignment is inserted.
func CalculateOffset(existing []*Symbol, t Type) int {
	lowest := 0
	for _, sym := range existing {
		if sym.HasOffset && sym.Offset < lowest {
			lowest = sym.Offset
		}
	}
	return lowest - t.Size()
}
