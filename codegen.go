package main

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// System V integer argument registers, by operand width.
var (
	argRegisters64 = [...]string{"%rdi", "%rsi", "%rdx", "%rcx", "%r8", "%r9"}
	argRegisters32 = [...]string{"%edi", "%esi", "%edx", "%ecx", "%r8d", "%r9d"}
	argRegisters8  = [...]string{"%dil", "%sil", "%dl", "%cl", "%r8b", "%r9b"}
)

const (
	syscallPrint = "syscall_print"
	syscallRead  = "syscall_read"
)

// CodeGen emits x86-64 AT&T assembly. Every expression leaves its value in
// %rax; %rcx holds the right operand of a binary operation.
type CodeGen struct {
	buf         bytes.Buffer
	labels      *Labels
	alignFrames bool

	// Set per function by EmitFunction.
	fn    *ASTNode
	local *SymbolTable
	types *Analyzer
}

func NewCodeGen(labels *Labels, alignFrames bool) *CodeGen {
	return &CodeGen{labels: labels, alignFrames: alignFrames}
}

// String returns everything emitted so far.
func (cg *CodeGen) String() string {
	return cg.buf.String()
}

func (cg *CodeGen) ins(format string, args ...any) {
	cg.buf.WriteString("    ")
	fmt.Fprintf(&cg.buf, format, args...)
	cg.buf.WriteByte('\n')
}

func (cg *CodeGen) label(name string) {
	cg.buf.WriteString(name)
	cg.buf.WriteString(":\n")
}

// EmitText opens the text section.
func (cg *CodeGen) EmitText() {
	cg.ins(".text")
}

// EmitFunction emits the code of one analyzed function.
func (cg *CodeGen) EmitFunction(fn *ASTNode, local, global *SymbolTable) {
	cg.fn = fn
	cg.local = local
	cg.types = &Analyzer{fn: fn, local: local, global: global}

	name := fn.FunctionName()
	cg.ins(".globl %s", name)
	cg.label(name)
	cg.ins("pushq %%rbp")
	cg.ins("movq %%rsp, %%rbp")
	if size := cg.frameSize(); size > 0 {
		cg.ins("subq $%d, %%rsp", size)
	}
	cg.emitParamSpill()

	stmts := fn.Body().Statements()
	for _, stmt := range stmts {
		cg.EmitStatement(stmt)
	}
	if len(stmts) == 0 || stmts[len(stmts)-1].Kind != NodeReturn {
		cg.emitEpilogue()
	}
}

// EmitRodata emits the read-only section with every interned literal.
func (cg *CodeGen) EmitRodata() {
	cg.ins(".section .rodata")
	for _, lit := range cg.labels.Literals() {
		cg.label(lit.Label)
		switch lit.Category {
		case LabelString:
			cg.ins(".string %s", quoteAsmString(lit.Payload))
		case LabelFloat:
			cg.ins(".double %s", lit.Payload)
		case LabelInt:
			cg.ins(".quad %s", lit.Payload)
		default:
			panic(fmt.Sprintf("literal %s has no data directive", lit.Label))
		}
	}
}

func (cg *CodeGen) frameSize() int {
	size := cg.local.FrameSize()
	if cg.alignFrames {
		size = (size + 15) &^ 15
	}
	return size
}

// emitParamSpill copies incoming arguments into their frame slots. The
// first six arrive in registers, the rest above the return address.
func (cg *CodeGen) emitParamSpill() {
	for i, param := range cg.fn.Params() {
		sym := cg.symbol(param.ParamName())
		if i < len(argRegisters64) {
			cg.ins("%s %s, %d(%%rbp)", storeOp(sym.Type), argRegister(i, sym.Type), sym.Offset)
			continue
		}
		cg.ins("movq %d(%%rbp), %%rax", 16+8*(i-len(argRegisters64)))
		cg.emitStore(sym)
	}
}

func (cg *CodeGen) emitEpilogue() {
	cg.ins("leave")
	cg.ins("ret")
}

func (cg *CodeGen) symbol(name string) *Symbol {
	sym, err := cg.local.Lookup(name)
	if err != nil {
		panic(fmt.Sprintf("function %s: %v", cg.fn.FunctionName(), err))
	}
	return sym
}

// EmitStatement generates assembly for one statement.
func (cg *CodeGen) EmitStatement(node *ASTNode) {
	switch node.Kind {
	case NodeDeclaration:
		for _, item := range node.DeclItems() {
			if item.Init != nil {
				cg.emitAssign(cg.symbol(item.Ident.Value), item.Init)
			}
		}

	case NodeAssign:
		cg.emitAssign(cg.symbol(node.Target().Value), node.Expr())

	case NodeIncrement:
		sym := cg.symbol(node.Target().Value)
		cg.emitLoad(sym)
		if node.Operator() == "--" {
			cg.ins("subq $1, %%rax")
		} else {
			cg.ins("addq $1, %%rax")
		}
		cg.emitStore(sym)

	case NodeIf:
		cg.emitIf(node)

	case NodeWhile:
		top := cg.labels.New(LabelWhile)
		end := cg.labels.New(LabelEndWhile)
		cg.label(top)
		cg.emitTest(node.Condition(), end)
		cg.emitBlock(node.Body())
		cg.ins("jmp %s", top)
		cg.label(end)

	case NodeFor:
		top := cg.labels.New(LabelFor)
		end := cg.labels.New(LabelEndFor)
		cg.EmitStatement(node.ForInit())
		cg.label(top)
		cg.emitTest(node.ForCond(), end)
		cg.emitBlock(node.Body())
		cg.EmitStatement(node.ForStep())
		cg.ins("jmp %s", top)
		cg.label(end)

	case NodeCall:
		cg.emitCall(node)

	case NodeRead:
		sym := cg.symbol(node.Target().Value)
		cg.ins("leaq %d(%%rbp), %%rdi", sym.Offset)
		cg.ins("call %s", syscallRead)

	case NodePrint:
		expr := node.Expr()
		if expr.Kind == NodeString {
			cg.ins("leaq %s(%%rip), %%rdi", cg.labels.Intern(LabelString, expr.Value))
		} else {
			cg.EmitExpression(expr)
			cg.ins("movq %%rax, %%rdi")
		}
		cg.ins("call %s", syscallPrint)

	case NodeReturn:
		if expr := node.Expr(); expr != nil {
			cg.EmitExpression(expr)
		}
		cg.emitEpilogue()

	default:
		panic(fmt.Sprintf("EmitStatement: unhandled node kind %s", node.Kind))
	}
}

func (cg *CodeGen) emitBlock(block *ASTNode) {
	for _, stmt := range block.Statements() {
		cg.EmitStatement(stmt)
	}
}

func (cg *CodeGen) emitIf(node *ASTNode) {
	els := node.Else()
	var elseLabel string
	if els != nil {
		elseLabel = cg.labels.New(LabelElse)
	}
	end := cg.labels.New(LabelEndIf)

	if els == nil {
		cg.emitTest(node.Condition(), end)
		cg.emitBlock(node.Then())
		cg.label(end)
		return
	}
	cg.emitTest(node.Condition(), elseLabel)
	cg.emitBlock(node.Then())
	cg.ins("jmp %s", end)
	cg.label(elseLabel)
	cg.emitBlock(els)
	cg.label(end)
}

// emitTest jumps to target when cond evaluates to zero.
func (cg *CodeGen) emitTest(cond *ASTNode, target string) {
	cg.EmitExpression(cond)
	cg.ins("cmpq $0, %%rax")
	cg.ins("je %s", target)
}

// emitAssign stores expr into the slot of sym. Integer and boolean literals
// are stored as immediates.
func (cg *CodeGen) emitAssign(sym *Symbol, expr *ASTNode) {
	switch expr.Kind {
	case NodeNumber:
		if v, ok := immediate(expr.Value); ok {
			cg.ins("%s $%d, %d(%%rbp)", storeOp(sym.Type), v, sym.Offset)
			return
		}
	case NodeBoolean:
		cg.ins("%s $%d, %d(%%rbp)", storeOp(sym.Type), boolValue(expr.Value), sym.Offset)
		return
	}
	cg.EmitExpression(expr)
	cg.emitStore(sym)
}

func (cg *CodeGen) emitLoad(sym *Symbol) {
	switch sym.Type.Size() {
	case 4:
		cg.ins("movslq %d(%%rbp), %%rax", sym.Offset)
	case 8:
		cg.ins("movq %d(%%rbp), %%rax", sym.Offset)
	case 1:
		cg.ins("movzbq %d(%%rbp), %%rax", sym.Offset)
	}
}

func (cg *CodeGen) emitStore(sym *Symbol) {
	switch sym.Type.Size() {
	case 4:
		cg.ins("movl %%eax, %d(%%rbp)", sym.Offset)
	case 8:
		cg.ins("movq %%rax, %d(%%rbp)", sym.Offset)
	case 1:
		cg.ins("movb %%al, %d(%%rbp)", sym.Offset)
	}
}

// EmitExpression generates assembly leaving the value of node in %rax.
// Reals travel through %rax as their IEEE-754 bit pattern.
func (cg *CodeGen) EmitExpression(node *ASTNode) {
	switch node.Kind {
	case NodeNumber:
		cg.emitNumber(node.Value)

	case NodeString:
		cg.ins("leaq %s(%%rip), %%rax", cg.labels.Intern(LabelString, node.Value))

	case NodeBoolean:
		cg.ins("movq $%d, %%rax", boolValue(node.Value))

	case NodeIdent:
		cg.emitLoad(cg.symbol(node.Value))

	case NodeBinary:
		cg.emitBinary(node)

	case NodeLogical:
		cg.emitOperands(node, false)
		switch node.Operator() {
		case "&&":
			cg.ins("andq %%rcx, %%rax")
		case "||":
			cg.ins("orq %%rcx, %%rax")
		default:
			panic("Unsupported logical operator: " + node.Operator())
		}

	case NodeRelational:
		cg.emitRelational(node)

	case NodeUnary:
		cg.EmitExpression(node.Expr())
		switch node.Operator() {
		case "-":
			if cg.types.mustTypeOf(node) == TypeReal {
				cg.ins("btcq $63, %%rax")
			} else {
				cg.ins("negq %%rax")
				cg.ins("movslq %%eax, %%rax")
			}
		case "!":
			cg.ins("xorq $1, %%rax")
		default:
			panic("Unsupported unary operator: " + node.Operator())
		}

	case NodeCall:
		cg.emitCall(node)

	default:
		panic(fmt.Sprintf("EmitExpression: unhandled node kind %s", node.Kind))
	}
}

func (cg *CodeGen) emitNumber(text string) {
	if NumberLiteralType(text) == TypeReal {
		cg.ins("movq %s(%%rip), %%rax", cg.labels.Intern(LabelFloat, realPayload(text)))
		return
	}
	if v, ok := immediate(text); ok {
		cg.ins("movq $%d, %%rax", v)
		return
	}
	v, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		panic(fmt.Sprintf("integer literal %q out of range", text))
	}
	cg.ins("movq %s(%%rip), %%rax", cg.labels.Intern(LabelInt, strconv.FormatInt(v, 10)))
}

// emitOperands leaves the left operand in %rax and the right one in %rcx.
// With toReal set, inteiro operands are converted to double bits.
func (cg *CodeGen) emitOperands(node *ASTNode, toReal bool) {
	cg.EmitExpression(node.Left())
	if toReal && cg.types.mustTypeOf(node.Left()) == TypeInteger {
		cg.emitIntToReal()
	}
	cg.ins("pushq %%rax")
	cg.EmitExpression(node.Right())
	if toReal && cg.types.mustTypeOf(node.Right()) == TypeInteger {
		cg.emitIntToReal()
	}
	cg.ins("movq %%rax, %%rcx")
	cg.ins("popq %%rax")
}

func (cg *CodeGen) emitIntToReal() {
	cg.ins("cvtsi2sdq %%rax, %%xmm0")
	cg.ins("movq %%xmm0, %%rax")
}

func (cg *CodeGen) emitBinary(node *ASTNode) {
	op := node.Operator()
	if cg.types.mustTypeOf(node) == TypeReal {
		cg.emitOperands(node, true)
		cg.ins("movq %%rax, %%xmm0")
		cg.ins("movq %%rcx, %%xmm1")
		cg.ins("%s %%xmm1, %%xmm0", realArithOp(op))
		cg.ins("movq %%xmm0, %%rax")
		return
	}

	cg.emitOperands(node, false)
	switch op {
	case "+":
		cg.ins("addq %%rcx, %%rax")
	case "-":
		cg.ins("subq %%rcx, %%rax")
	case "*":
		cg.ins("imulq %%rcx, %%rax")
	case "/":
		cg.ins("cqo")
		cg.ins("idivq %%rcx")
	default:
		panic("Unsupported binary operator: " + op)
	}
	// inteiro is 32 bits wide in registers too.
	cg.ins("movslq %%eax, %%rax")
}

func realArithOp(op string) string {
	switch op {
	case "+":
		return "addsd"
	case "-":
		return "subsd"
	case "*":
		return "mulsd"
	case "/":
		return "divsd"
	default:
		panic("Unsupported binary operator: " + op)
	}
}

func (cg *CodeGen) emitRelational(node *ASTNode) {
	op := node.Operator()
	left := cg.types.mustTypeOf(node.Left())
	right := cg.types.mustTypeOf(node.Right())
	if left == TypeReal || right == TypeReal {
		cg.emitOperands(node, true)
		cg.ins("movq %%rax, %%xmm0")
		cg.ins("movq %%rcx, %%xmm1")
		cg.emitRealCompare(op)
	} else {
		cg.emitOperands(node, false)
		cg.ins("cmpq %%rcx, %%rax")
		cg.ins("%s %%al", intSetOp(op))
	}
	cg.ins("movzbq %%al, %%rax")
}

func intSetOp(op string) string {
	switch op {
	case "==":
		return "sete"
	case "!=":
		return "setne"
	case "<":
		return "setl"
	case "<=":
		return "setle"
	case ">":
		return "setg"
	case ">=":
		return "setge"
	default:
		panic("Unsupported relational operator: " + op)
	}
}

// emitRealCompare compares %xmm0 with %xmm1 into %al. ucomisd reports an
// unordered result (a NaN operand) as ZF=PF=CF=1, so every comparison must
// come out false there except "!=".
func (cg *CodeGen) emitRealCompare(op string) {
	switch op {
	case "==":
		cg.ins("ucomisd %%xmm1, %%xmm0")
		cg.ins("sete %%al")
		cg.ins("setnp %%cl")
		cg.ins("andb %%cl, %%al")
	case "!=":
		cg.ins("ucomisd %%xmm1, %%xmm0")
		cg.ins("setne %%al")
		cg.ins("setp %%cl")
		cg.ins("orb %%cl, %%al")
	case "<":
		cg.ins("ucomisd %%xmm0, %%xmm1")
		cg.ins("seta %%al")
	case "<=":
		cg.ins("ucomisd %%xmm0, %%xmm1")
		cg.ins("setae %%al")
	case ">":
		cg.ins("ucomisd %%xmm1, %%xmm0")
		cg.ins("seta %%al")
	case ">=":
		cg.ins("ucomisd %%xmm1, %%xmm0")
		cg.ins("setae %%al")
	default:
		panic("Unsupported relational operator: " + op)
	}
}

// emitCall evaluates every argument onto the stack first, so a nested call
// cannot clobber registers already loaded for this one. Arguments past the
// sixth are then re-pushed in reverse so the seventh ends up at (%rsp).
func (cg *CodeGen) emitCall(node *ASTNode) {
	args := node.Args()
	n := len(args)
	for _, arg := range args {
		cg.EmitExpression(arg)
		cg.ins("pushq %%rax")
	}

	extra := max(n-len(argRegisters64), 0)
	for i := n - 1; i >= len(argRegisters64); i-- {
		cg.ins("pushq %d(%%rsp)", 16*(n-1-i))
	}
	for r := 0; r < min(n, len(argRegisters64)); r++ {
		cg.ins("movq %d(%%rsp), %s", 8*(n-1-r)+8*extra, argRegisters64[r])
	}

	cg.ins("call %s", node.Callee())
	if n > 0 {
		cg.ins("addq $%d, %%rsp", 8*(n+extra))
	}
}

func storeOp(t Type) string {
	switch t.Size() {
	case 4:
		return "movl"
	case 8:
		return "movq"
	default:
		return "movb"
	}
}

func argRegister(i int, t Type) string {
	switch t.Size() {
	case 4:
		return argRegisters32[i]
	case 8:
		return argRegisters64[i]
	default:
		return argRegisters8[i]
	}
}

// immediate parses an integer literal that fits a sign-extended imm32.
func immediate(text string) (int64, bool) {
	if NumberLiteralType(text) != TypeInteger {
		return 0, false
	}
	v, err := strconv.ParseInt(text, 10, 64)
	if err != nil || v < math.MinInt32 || v > math.MaxInt32 {
		return 0, false
	}
	return v, true
}

// realPayload normalizes a real literal so equal values share one label.
func realPayload(text string) string {
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		panic(fmt.Sprintf("real literal %q: %v", text, err))
	}
	s := strconv.FormatFloat(v, 'g', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

func boolValue(text string) int {
	if text == trueKeyword {
		return 1
	}
	return 0
}

// quoteAsmString renders s as a GAS string literal.
func quoteAsmString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\\':
			b.WriteString(`\\`)
		case c == '"':
			b.WriteString(`\"`)
		case c == '\n':
			b.WriteString(`\n`)
		case c == '\t':
			b.WriteString(`\t`)
		case c < 0x20 || c == 0x7f:
			fmt.Fprintf(&b, "\\%03o", c)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte('"')
	return b.String()
}
