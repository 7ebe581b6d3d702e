package main

import (
	"errors"
	"testing"

	"github.com/nalgeon/be"
)

// analyzeSource loads src and runs scope building and semantic analysis.
func analyzeSource(t *testing.T, src string) (*Compilation, error) {
	t.Helper()
	return Analyze(mustLoad(t, src), Options{})
}

// exprType analyzes a program and returns the type of the expression
// printed by its first statement.
func exprType(t *testing.T, decls, expr string) (Type, error) {
	t.Helper()
	program := mustLoad(t, "(program (func main [] ["+decls+" (print "+expr+")]))")
	global, err := BuildGlobalTable(program)
	be.Err(t, err, nil)
	fn := program.Children[0]
	local, err := BuildLocalTable(fn, global)
	be.Err(t, err, nil)
	a := &Analyzer{fn: fn, local: local, global: global}
	stmts := fn.Body().Statements()
	return a.typeOf(stmts[len(stmts)-1].Expr())
}

func TestTypeOfExpressions(t *testing.T) {
	decls := "(decl inteiro i) (decl real r) (decl logico b) (decl caracter c)"
	tests := []struct {
		expr     string
		expected Type
	}{
		{"42", TypeInteger},
		{"3.14", TypeReal},
		{"1E5", TypeReal},
		{`"oi"`, TypeChar},
		{"verdadeiro", TypeBoolean},
		{"c", TypeChar},
		{`(binary "+" i i)`, TypeInteger},
		{`(binary "*" i r)`, TypeReal},
		{`(binary "/" r 2)`, TypeReal},
		{`(binary "-" r r)`, TypeReal},
		{`(logical "&&" b (relational "<" i 3))`, TypeBoolean},
		{`(relational "==" r i)`, TypeBoolean},
		{`(unary "-" r)`, TypeReal},
		{`(unary "!" b)`, TypeBoolean},
	}

	for _, test := range tests {
		t.Run(test.expr, func(t *testing.T) {
			got, err := exprType(t, decls, test.expr)
			be.Err(t, err, nil)
			be.Equal(t, test.expected, got)
		})
	}
}

func TestTypeOfErrors(t *testing.T) {
	decls := "(decl inteiro i) (decl logico b) (decl caracter c)"
	tests := []struct {
		expr     string
		expected string
	}{
		{`(binary "+" b 1)`, "Operator '+' requires numeric operands, but got 'logico' and 'inteiro'"},
		{`(binary "-" i c)`, "Operator '-' requires numeric operands, but got 'inteiro' and 'caracter'"},
		{`(logical "&&" b i)`, "Operator '&&' requires 'logico' operands, but got 'logico' and 'inteiro'"},
		{`(unary "-" b)`, "Operator '-' requires a numeric operand, but got 'logico'"},
		{`(unary "!" i)`, "Operator '!' requires a 'logico' operand, but got 'inteiro'"},
	}

	for _, test := range tests {
		t.Run(test.expr, func(t *testing.T) {
			_, err := exprType(t, decls, test.expr)
			be.Err(t, err, ErrTypeMismatch)
			be.Err(t, err, test.expected)
		})
	}
}

func TestTypeOfUnknownIdentifier(t *testing.T) {
	_, err := exprType(t, "", "nada")
	be.Err(t, err, ErrSymbolNotFound)
	be.Err(t, err, "Symbol 'nada' not found")
}

func TestRelationalOperandsAreNotCrossChecked(t *testing.T) {
	// Comparing unrelated types is accepted and yields logico.
	got, err := exprType(t, "(decl logico b)", `(relational "<" b "texto")`)
	be.Err(t, err, nil)
	be.Equal(t, TypeBoolean, got)
}

func TestAssignmentRequiresExactType(t *testing.T) {
	_, err := analyzeSource(t, `
(program
  (func main [] [(decl inteiro x) (assign ^{line: 3} x verdadeiro)]))`)
	be.Err(t, err, ErrTypeMismatch)
	be.Equal(t, "[Line 3]: TypeMismatchError: Symbol [x] expected type 'inteiro' but got type 'logico' instead", err.Error())

	// No promotion on assignment, even though arithmetic promotes.
	_, err = analyzeSource(t, `(program (func main [] [(decl real r) (assign r 1)]))`)
	be.Err(t, err, ErrTypeMismatch)

	_, err = analyzeSource(t, `(program (func main [] [(decl real r) (assign r (binary "+" 1 0.5))]))`)
	be.Err(t, err, nil)
}

func TestDeclarationOrderVisibility(t *testing.T) {
	// The frame is complete before statements are checked, so an assignment
	// may name a local declared further down.
	_, err := analyzeSource(t, `
(program
  (func main [] [(assign x 1) (decl inteiro x)]))`)
	be.Err(t, err, nil)

	// An initializer is checked while the frame is still being laid out.
	_, err = analyzeSource(t, `
(program
  (func main [] [(decl inteiro ^{line: 2} (init y x)) (decl inteiro x)]))`)
	be.Err(t, err, ErrSymbolNotFound)
	be.Equal(t, "[Line 2]: SymbolNotFound: Symbol 'x' not found", err.Error())
}

func TestCallValidation(t *testing.T) {
	const soma = `(func soma inteiro [(param inteiro a) (param inteiro b)] [(return (binary "+" a b))])`

	t.Run("ok", func(t *testing.T) {
		_, err := analyzeSource(t, "(program "+soma+` (func main [] [(decl inteiro r) (assign r (call soma [1 2]))]))`)
		be.Err(t, err, nil)
	})

	t.Run("too many arguments", func(t *testing.T) {
		_, err := analyzeSource(t, "(program "+soma+` (func main [] [(call ^{line: 4} soma [1 2 3])]))`)
		be.Err(t, err, ErrParamCount)
		be.Equal(t, "[Line 4]: ParamCountError: Function 'soma' expects 2 argument(s), but got 3", err.Error())
	})

	t.Run("too few arguments", func(t *testing.T) {
		_, err := analyzeSource(t, "(program "+soma+` (func main [] [(call soma [1])]))`)
		be.Err(t, err, ErrParamCount)
		be.Err(t, err, "expects 2 argument(s), but got 1")
	})

	t.Run("second argument mismatched", func(t *testing.T) {
		_, err := analyzeSource(t, "(program "+soma+` (func main [] [(call soma [1 verdadeiro])]))`)
		be.Err(t, err, ErrTypeMismatch)
		be.Err(t, err, "Argument 2 of 'soma' expected type 'inteiro' but got type 'logico' instead")
	})

	t.Run("first mismatch wins", func(t *testing.T) {
		_, err := analyzeSource(t, "(program "+soma+` (func main [] [(call soma [1.5 verdadeiro])]))`)
		be.Err(t, err, "Argument 1 of 'soma'")
	})

	t.Run("arguments are typed before arity", func(t *testing.T) {
		_, err := analyzeSource(t, "(program "+soma+` (func main [] [(call soma [x])]))`)
		be.Err(t, err, ErrSymbolNotFound)
	})

	t.Run("unknown function", func(t *testing.T) {
		_, err := analyzeSource(t, `(program (func main [] [(call ^{line: 7} nada [])]))`)
		be.Equal(t, "[Line 7]: SymbolNotFound: Symbol 'nada' not found", err.Error())
	})

	t.Run("function names are not variables", func(t *testing.T) {
		_, err := analyzeSource(t, "(program "+soma+` (func main [] [(print soma)]))`)
		be.Err(t, err, ErrSymbolNotFound)
	})

	t.Run("void call has no value", func(t *testing.T) {
		_, err := analyzeSource(t, `(program (func nada [] []) (func main [] [(decl inteiro x) (assign x (call nada))]))`)
		be.Err(t, err, "expected type 'inteiro' but got type 'vazio' instead")
	})
}

func TestConditionsMustBeBoolean(t *testing.T) {
	tests := []struct {
		name     string
		stmt     string
		expected string
	}{
		{"if", `(if ^{line: 2} i [])`, "[Line 2]: TypeMismatchError: Condition of 'se' must be of type 'logico', but got 'inteiro' instead"},
		{"while", `(while ^{line: 3} 1.5 [])`, "[Line 3]: TypeMismatchError: Condition of 'enquanto' must be of type 'logico', but got 'real' instead"},
		{"for", `(for ^{line: 4} (assign i 0) i (increment "++" i) [])`, "[Line 4]: TypeMismatchError: Condition of 'para' must be of type 'logico', but got 'inteiro' instead"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := analyzeSource(t, "(program (func main [] [(decl inteiro i) "+test.stmt+"]))")
			be.True(t, err != nil)
			be.Equal(t, test.expected, err.Error())
		})
	}
}

func TestForClauses(t *testing.T) {
	tests := []struct {
		name     string
		stmt     string
		expected error
	}{
		{"valid with increment", `(for (assign i 0) (relational "<" i 3) (increment "++" i) [])`, nil},
		{"valid with assignment step", `(for (assign i 0) (relational "<" i 3) (assign i (binary "+" i 2)) [])`, nil},
		{"init is an increment", `(for (increment "++" i) (relational "<" i 3) (increment "++" i) [])`, ErrInvalidForLoop},
		{"init is a call", `(for (call main) (relational "<" i 3) (increment "++" i) [])`, ErrInvalidForLoop},
		{"step is a print", `(for (assign i 0) (relational "<" i 3) (print i) [])`, ErrInvalidForLoop},
		{"init mistyped", `(for (assign i 0.5) (relational "<" i 3) (increment "++" i) [])`, ErrTypeMismatch},
		{"body checked", `(for (assign i 0) (relational "<" i 3) (increment "++" i) [(assign i falso)])`, ErrTypeMismatch},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := analyzeSource(t, "(program (func main [] [(decl inteiro i) "+test.stmt+"]))")
			be.Err(t, err, test.expected)
		})
	}
}

func TestIncrementRequiresInteger(t *testing.T) {
	_, err := analyzeSource(t, `(program (func main [] [(decl inteiro i) (increment "--" i)]))`)
	be.Err(t, err, nil)

	_, err = analyzeSource(t, `(program (func main [] [(decl caracter c) (increment "++" c)]))`)
	be.Err(t, err, "Increment operation only allowed on 'inteiro' type, but got 'caracter' instead")

	_, err = analyzeSource(t, `(program (func main [] [(increment "++" i)]))`)
	be.Err(t, err, ErrSymbolNotFound)
}

func TestReadAndPrint(t *testing.T) {
	_, err := analyzeSource(t, `(program (func main [] [(decl real r) (read r) (print r) (print "fim")]))`)
	be.Err(t, err, nil)

	_, err = analyzeSource(t, `(program (func main [] [(read ^{line: 2} r)]))`)
	be.Err(t, err, "[Line 2]: SymbolNotFound: Symbol 'r' not found")

	_, err = analyzeSource(t, `(program (func main [] [(print (binary "+" "a" 1))]))`)
	be.Err(t, err, ErrTypeMismatch)
}

func TestReturnTypes(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		expected any
	}{
		{"matching", `(program (func f real [] [(return 2.5)]))`, nil},
		{"mismatch", `(program (func f real [] [(return ^{line: 2} 2)]))`, "[Line 2]: TypeMismatchError: Function 'f' returns 'real' but got 'inteiro' instead"},
		{"bare return in typed function", `(program (func f logico [] [(return ^{line: 3})]))`, "[Line 3]: TypeMismatchError: Function 'f' must return a value of type 'logico'"},
		{"bare return in void function", `(program (func f [] [(return)]))`, nil},
		{"value from void function", `(program (func f [] [(return 1)]))`, nil},
		{"nested return checked", `(program (func f inteiro [(param logico p)] [(if p [(return falso)]) (return 1)]))`, ErrTypeMismatch},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := analyzeSource(t, test.src)
			be.Err(t, err, test.expected)
		})
	}
}

func TestFirstErrorStopsAnalysis(t *testing.T) {
	_, err := analyzeSource(t, `
(program
  (func a [] [(assign ^{line: 2} x 1) (assign ^{line: 3} y 1)])
  (func b [] [(assign ^{line: 5} z 1)]))`)

	var ce *CompileError
	be.True(t, errors.As(err, &ce))
	be.Equal(t, 2, ce.Line)
	be.Equal(t, "Symbol 'x' not found", ce.Message())
	be.True(t, errors.Is(err, ErrSymbolNotFound))
}
