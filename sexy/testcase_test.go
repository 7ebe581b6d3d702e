package sexy

import (
	"strings"
	"testing"

	"github.com/nalgeon/be"
)

const fence = "```"

func TestExtractTestCases_BasicTest(t *testing.T) {
	markdown := `# Frames

## Test: two integer params
` + fence + `por-tree
(program (func soma inteiro [(param inteiro a) (param inteiro b)] [(return (binary "+" a b))]))
` + fence + `
` + fence + `asm
movslq -4(%rbp), %rax
` + fence + `

## Test: redeclared local
` + fence + `por-tree
(program (func main [] [(decl inteiro x) (decl real x)]))
` + fence + `
` + fence + `compile-error
[Line 0]: RedeclarationError: Symbol 'x' already declared at line 0
` + fence

	testCases, err := ExtractTestCases(markdown)
	be.Err(t, err, nil)
	be.Equal(t, len(testCases), 2)

	tc1 := testCases[0]
	be.Equal(t, tc1.Name, "two integer params")
	be.Equal(t, tc1.InputType, InputTypePorTree)
	be.True(t, strings.HasPrefix(tc1.Input, "(program (func soma"))
	be.Equal(t, len(tc1.Assertions), 1)
	be.Equal(t, tc1.Assertions[0].Type, AssertionTypeAsm)
	be.Equal(t, tc1.Assertions[0].Content, "movslq -4(%rbp), %rax")
	be.True(t, tc1.Assertions[0].ParsedSexy == nil)

	tc2 := testCases[1]
	be.Equal(t, tc2.Name, "redeclared local")
	be.Equal(t, tc2.Assertions[0].Type, AssertionTypeCompileError)
}

func TestExtractTestCases_SymbolsAssertionIsParsed(t *testing.T) {
	markdown := `## Test: symbols
` + fence + `por-tree
(program (func main [] [(decl inteiro x)]))
` + fence + `
` + fence + `symbols
(symbols main (x inteiro -4))
` + fence

	testCases, err := ExtractTestCases(markdown)
	be.Err(t, err, nil)
	be.Equal(t, len(testCases), 1)

	assertion := testCases[0].Assertions[0]
	be.Equal(t, assertion.Type, AssertionTypeSymbols)
	be.True(t, assertion.ParsedSexy != nil)
	be.Equal(t, assertion.ParsedSexy.String(), "(symbols main (x inteiro -4))")
}

func TestExtractTestCases_MultipleAssertions(t *testing.T) {
	markdown := `## Test: multiple assertions
` + fence + `por-tree
(program (func main [] [(print "oi") (print "oi")]))
` + fence + `
` + fence + `asm
leaq string_1(%rip), %rdi
` + fence + `
` + fence + `asm
string_1:
.string "oi"
` + fence

	testCases, err := ExtractTestCases(markdown)
	be.Err(t, err, nil)
	be.Equal(t, len(testCases[0].Assertions), 2)
	be.Equal(t, testCases[0].Assertions[1].Content, "string_1:\n.string \"oi\"")
}

func TestExtractTestCases_EmptyFile(t *testing.T) {
	testCases, err := ExtractTestCases("")
	be.Err(t, err, nil)
	be.Equal(t, len(testCases), 0)
}

func TestExtractTestCases_NoTestCases(t *testing.T) {
	markdown := `# Some document

This is just regular markdown content.

## Regular heading

No test cases here.`

	testCases, err := ExtractTestCases(markdown)
	be.Err(t, err, nil)
	be.Equal(t, len(testCases), 0)
}

func TestExtractTestCases_AllowFencesWithoutLanguage(t *testing.T) {
	markdown := `# Notes

` + fence + `
funcao soma(inteiro a, inteiro b) { retorne a + b; }
` + fence + `

## Test: with prose fence
` + fence + `
escreva("oi");
` + fence + `
` + fence + `por-tree
(program (func main [] [(print "oi")]))
` + fence + `
` + fence + `asm
call syscall_print
` + fence

	testCases, err := ExtractTestCases(markdown)
	be.Err(t, err, nil)
	be.Equal(t, len(testCases), 1)
	be.Equal(t, len(testCases[0].Assertions), 1)
}

func TestExtractTestCases_Errors(t *testing.T) {
	tests := []struct {
		name     string
		markdown string
		expected string
	}{
		{
			"input fence outside test",
			"# Doc\n\n" + fence + "por-tree\n(program)\n" + fence + "\n",
			"por-tree fence found outside of test case",
		},
		{
			"unknown fence outside test",
			"# Doc\n\n" + fence + "go\nfunc main() {}\n" + fence + "\n",
			"unknown fence language 'go' found outside of test case",
		},
		{
			"unknown fence inside test",
			"## Test: x\n" + fence + "por-tree\n(program)\n" + fence + "\n" + fence + "wat\n(module)\n" + fence + "\n",
			"unknown fence language 'wat' in test 'x'",
		},
		{
			"missing input",
			"## Test: x\n" + fence + "asm\nret\n" + fence + "\n",
			"test 'x' has no input fence",
		},
		{
			"missing assertion",
			"## Test: x\n" + fence + "por-tree\n(program)\n" + fence + "\n",
			"test 'x' has no assertion fences",
		},
		{
			"multiple inputs",
			"## Test: x\n" + fence + "por-tree\n(program)\n" + fence + "\n" + fence + "por-tree\n(program)\n" + fence + "\n",
			"multiple input fences found in test 'x'",
		},
		{
			"invalid symbols assertion",
			"## Test: x\n" + fence + "por-tree\n(program)\n" + fence + "\n" + fence + "symbols\n(unclosed\n" + fence + "\n",
			"failed to parse symbols assertion in test 'x'",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := ExtractTestCases(test.markdown)
			be.Err(t, err, test.expected)
		})
	}
}

func TestExtractTestCases_ErrorInSecondTest(t *testing.T) {
	markdown := "## Test: ok\n" + fence + "por-tree\n(program)\n" + fence + "\n" + fence + "asm\nret\n" + fence + "\n\n" +
		"## Test: broken\n" + fence + "asm\nret\n" + fence + "\n"

	_, err := ExtractTestCases(markdown)
	be.Err(t, err, "test 'broken' has no input fence")
}

func TestExtractTestCases_LineNumberAccuracy(t *testing.T) {
	markdown := "# Doc\n\n\n\n" + fence + "asm\nret\n" + fence + "\n"

	_, err := ExtractTestCases(markdown)
	be.Err(t, err, "line 6:")
}
