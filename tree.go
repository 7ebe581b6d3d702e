package main

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/porlang/porc/sexy"
	"golang.org/x/text/unicode/norm"
)

// LoadTree reads a tree file and builds the program it describes. Every
// node shape is validated here, so later stages may index children freely.
func LoadTree(src string) (*ASTNode, error) {
	doc, err := sexy.Parse(src)
	if err != nil {
		return nil, fmt.Errorf("tree: %w", err)
	}
	if doc.Head() != "program" {
		return nil, shapeError(doc, "expected (program ...) at top level")
	}
	line, err := nodeLine(doc, 1)
	if err != nil {
		return nil, err
	}
	program := &ASTNode{Kind: NodeProgram, Line: line}
	for _, item := range doc.Items[1:] {
		fn, err := loadFunction(item, line)
		if err != nil {
			return nil, err
		}
		program.Children = append(program.Children, fn)
	}
	return program, nil
}

func shapeError(n *sexy.Node, format string, args ...any) error {
	return fmt.Errorf("tree: line %d: %s", n.Line, fmt.Sprintf(format, args...))
}

// nodeLine returns the source line carried in ^{line: N}, or inherited.
func nodeLine(n *sexy.Node, inherited int) (int, error) {
	meta := n.Meta("line")
	if meta == nil {
		return inherited, nil
	}
	if meta.Type != sexy.NodeNumber {
		return 0, shapeError(n, "line metadata must be a number, got %s", meta)
	}
	line, err := strconv.Atoi(meta.Text)
	if err != nil || line < 1 {
		return 0, shapeError(n, "invalid line metadata %s", meta.Text)
	}
	return line, nil
}

// symbolName normalizes identifiers to NFC so precomposed and decomposed
// spellings of the same accented name resolve to one symbol.
func symbolName(n *sexy.Node, what string) (string, error) {
	if n.Type != sexy.NodeSymbol {
		return "", shapeError(n, "expected %s name, got %s", what, n)
	}
	return norm.NFC.String(n.Text), nil
}

func leaf(kind NodeKind, value string, line int) *ASTNode {
	return &ASTNode{Kind: kind, Value: value, Line: line}
}

func loadType(n *sexy.Node, line int, allowVoid bool) (*ASTNode, error) {
	if n.Type != sexy.NodeSymbol {
		return nil, shapeError(n, "expected type, got %s", n)
	}
	t := Type(n.Text)
	if !t.IsVariableType() && !(allowVoid && t == TypeVoid) {
		return nil, shapeError(n, "unknown type %q", n.Text)
	}
	return leaf(NodeType, string(t), line), nil
}

func loadOperator(n *sexy.Node, line int, allowed ...string) (*ASTNode, error) {
	if n.Type != sexy.NodeString {
		return nil, shapeError(n, "operator must be a string, got %s", n)
	}
	for _, op := range allowed {
		if n.Text == op {
			return leaf(NodeOperator, op, line), nil
		}
	}
	return nil, shapeError(n, "unsupported operator %q, expected one of %s", n.Text, strings.Join(allowed, " "))
}

func arity(n *sexy.Node, lo, hi int) error {
	args := len(n.Items) - 1
	if args < lo || args > hi {
		if lo == hi {
			return shapeError(n, "(%s) takes %d operand(s), got %d", n.Head(), lo, args)
		}
		return shapeError(n, "(%s) takes %d to %d operands, got %d", n.Head(), lo, hi, args)
	}
	return nil
}

func loadFunction(n *sexy.Node, inherited int) (*ASTNode, error) {
	if n.Head() != "func" {
		return nil, shapeError(n, "expected (func ...), got %s", n)
	}
	if err := arity(n, 3, 4); err != nil {
		return nil, err
	}
	line, err := nodeLine(n, inherited)
	if err != nil {
		return nil, err
	}
	fnName, err := symbolName(n.Items[1], "function")
	if err != nil {
		return nil, err
	}

	rest := n.Items[2:]
	retType := leaf(NodeType, string(TypeVoid), line)
	if len(rest) == 3 {
		if retType, err = loadType(rest[0], line, true); err != nil {
			return nil, err
		}
		rest = rest[1:]
	}

	fn := &ASTNode{Kind: NodeFunction, Value: fnName, Line: line, Children: []*ASTNode{retType}}
	if rest[0].Type != sexy.NodeArray {
		return nil, shapeError(rest[0], "expected [param...] list, got %s", rest[0])
	}
	for _, item := range rest[0].Items {
		param, err := loadParam(item, line)
		if err != nil {
			return nil, err
		}
		fn.Children = append(fn.Children, param)
	}

	body, err := loadBlock(rest[1], line)
	if err != nil {
		return nil, err
	}
	fn.Children = append(fn.Children, body)
	return fn, nil
}

func loadParam(n *sexy.Node, inherited int) (*ASTNode, error) {
	if n.Head() != "param" {
		return nil, shapeError(n, "expected (param TYPE NAME), got %s", n)
	}
	if err := arity(n, 2, 2); err != nil {
		return nil, err
	}
	line, err := nodeLine(n, inherited)
	if err != nil {
		return nil, err
	}
	t, err := loadType(n.Items[1], line, false)
	if err != nil {
		return nil, err
	}
	ident, err := loadIdent(n.Items[2], line)
	if err != nil {
		return nil, err
	}
	return &ASTNode{Kind: NodeParam, Line: line, Children: []*ASTNode{t, ident}}, nil
}

func loadIdent(n *sexy.Node, line int) (*ASTNode, error) {
	s, err := symbolName(n, "variable")
	if err != nil {
		return nil, err
	}
	if s == trueKeyword || s == falseKeyword {
		return nil, shapeError(n, "%s is a literal, not a variable", s)
	}
	return leaf(NodeIdent, s, line), nil
}

func loadBlock(n *sexy.Node, line int) (*ASTNode, error) {
	if n.Type != sexy.NodeArray {
		return nil, shapeError(n, "expected [statement...] block, got %s", n)
	}
	block := &ASTNode{Kind: NodeCommands, Line: line}
	for _, item := range n.Items {
		stmt, err := loadStatement(item, line)
		if err != nil {
			return nil, err
		}
		block.Children = append(block.Children, stmt)
	}
	return block, nil
}

func loadStatement(n *sexy.Node, inherited int) (*ASTNode, error) {
	if n.Type != sexy.NodeList {
		return nil, shapeError(n, "expected statement, got %s", n)
	}
	line, err := nodeLine(n, inherited)
	if err != nil {
		return nil, err
	}

	switch n.Head() {
	case "decl":
		return loadDeclaration(n, line)

	case "assign":
		if err := arity(n, 2, 2); err != nil {
			return nil, err
		}
		ident, err := loadIdent(n.Items[1], line)
		if err != nil {
			return nil, err
		}
		expr, err := loadExpr(n.Items[2], line)
		if err != nil {
			return nil, err
		}
		return &ASTNode{Kind: NodeAssign, Line: line, Children: []*ASTNode{ident, leaf(NodeOperator, "=", line), expr}}, nil

	case "increment":
		if err := arity(n, 2, 2); err != nil {
			return nil, err
		}
		op, err := loadOperator(n.Items[1], line, "++", "--")
		if err != nil {
			return nil, err
		}
		ident, err := loadIdent(n.Items[2], line)
		if err != nil {
			return nil, err
		}
		return &ASTNode{Kind: NodeIncrement, Line: line, Children: []*ASTNode{ident, op}}, nil

	case "call":
		return loadCall(n, line)

	case "if":
		if err := arity(n, 2, 3); err != nil {
			return nil, err
		}
		node := &ASTNode{Kind: NodeIf, Line: line}
		cond, err := loadExpr(n.Items[1], line)
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, cond)
		for _, item := range n.Items[2:] {
			block, err := loadBlock(item, line)
			if err != nil {
				return nil, err
			}
			node.Children = append(node.Children, block)
		}
		return node, nil

	case "while":
		if err := arity(n, 2, 2); err != nil {
			return nil, err
		}
		cond, err := loadExpr(n.Items[1], line)
		if err != nil {
			return nil, err
		}
		body, err := loadBlock(n.Items[2], line)
		if err != nil {
			return nil, err
		}
		return &ASTNode{Kind: NodeWhile, Line: line, Children: []*ASTNode{cond, body}}, nil

	case "for":
		if err := arity(n, 4, 4); err != nil {
			return nil, err
		}
		init, err := loadStatement(n.Items[1], line)
		if err != nil {
			return nil, err
		}
		cond, err := loadExpr(n.Items[2], line)
		if err != nil {
			return nil, err
		}
		step, err := loadStatement(n.Items[3], line)
		if err != nil {
			return nil, err
		}
		body, err := loadBlock(n.Items[4], line)
		if err != nil {
			return nil, err
		}
		return &ASTNode{Kind: NodeFor, Line: line, Children: []*ASTNode{init, cond, step, body}}, nil

	case "read":
		if err := arity(n, 1, 1); err != nil {
			return nil, err
		}
		ident, err := loadIdent(n.Items[1], line)
		if err != nil {
			return nil, err
		}
		return &ASTNode{Kind: NodeRead, Line: line, Children: []*ASTNode{ident}}, nil

	case "print":
		if err := arity(n, 1, 1); err != nil {
			return nil, err
		}
		expr, err := loadExpr(n.Items[1], line)
		if err != nil {
			return nil, err
		}
		return &ASTNode{Kind: NodePrint, Line: line, Children: []*ASTNode{expr}}, nil

	case "return":
		if err := arity(n, 0, 1); err != nil {
			return nil, err
		}
		node := &ASTNode{Kind: NodeReturn, Line: line}
		if len(n.Items) == 2 {
			expr, err := loadExpr(n.Items[1], line)
			if err != nil {
				return nil, err
			}
			node.Children = append(node.Children, expr)
		}
		return node, nil
	}
	return nil, shapeError(n, "unknown statement %s", n)
}

// loadDeclaration builds the right-recursive declarations chain, so
// (decl inteiro a (init b 1)) nests b's entry inside a's.
func loadDeclaration(n *sexy.Node, line int) (*ASTNode, error) {
	if len(n.Items) < 3 {
		return nil, shapeError(n, "(decl) needs a type and at least one name")
	}
	t, err := loadType(n.Items[1], line, false)
	if err != nil {
		return nil, err
	}

	var chain *ASTNode
	for i := len(n.Items) - 1; i >= 2; i-- {
		item := n.Items[i]
		entry := &ASTNode{Kind: NodeDeclarations, Line: line}
		switch {
		case item.Type == sexy.NodeSymbol:
			ident, err := loadIdent(item, line)
			if err != nil {
				return nil, err
			}
			entry.Children = append(entry.Children, ident)

		case item.Head() == "init":
			if err := arity(item, 2, 2); err != nil {
				return nil, err
			}
			itemLine, err := nodeLine(item, line)
			if err != nil {
				return nil, err
			}
			entry.Line = itemLine
			ident, err := loadIdent(item.Items[1], itemLine)
			if err != nil {
				return nil, err
			}
			init, err := loadExpr(item.Items[2], itemLine)
			if err != nil {
				return nil, err
			}
			entry.Children = append(entry.Children, ident, init)

		default:
			return nil, shapeError(item, "expected NAME or (init NAME EXPR), got %s", item)
		}
		if chain != nil {
			entry.Children = append(entry.Children, chain)
		}
		chain = entry
	}
	return &ASTNode{Kind: NodeDeclaration, Line: line, Children: []*ASTNode{t, chain}}, nil
}

func loadCall(n *sexy.Node, line int) (*ASTNode, error) {
	if err := arity(n, 1, 2); err != nil {
		return nil, err
	}
	callee, err := symbolName(n.Items[1], "function")
	if err != nil {
		return nil, err
	}
	call := &ASTNode{Kind: NodeCall, Line: line, Children: []*ASTNode{leaf(NodeIdent, callee, line)}}
	if len(n.Items) == 3 {
		args := n.Items[2]
		if args.Type != sexy.NodeArray {
			return nil, shapeError(args, "expected [argument...] list, got %s", args)
		}
		for _, item := range args.Items {
			arg, err := loadExpr(item, line)
			if err != nil {
				return nil, err
			}
			call.Children = append(call.Children, arg)
		}
	}
	return call, nil
}

var (
	arithmeticOperators = []string{"+", "-", "*", "/"}
	logicalOperators    = []string{"&&", "||"}
	relationalOperators = []string{"<", "<=", ">", ">=", "==", "!="}
	unaryOperators      = []string{"-", "!"}
)

func loadExpr(n *sexy.Node, inherited int) (*ASTNode, error) {
	switch n.Type {
	case sexy.NodeSymbol:
		s := norm.NFC.String(n.Text)
		if s == trueKeyword || s == falseKeyword {
			return leaf(NodeBoolean, s, inherited), nil
		}
		return leaf(NodeIdent, s, inherited), nil

	case sexy.NodeNumber:
		if err := checkNumber(n); err != nil {
			return nil, err
		}
		return leaf(NodeNumber, n.Text, inherited), nil

	case sexy.NodeString:
		return leaf(NodeString, n.Text, inherited), nil

	case sexy.NodeList:
		line, err := nodeLine(n, inherited)
		if err != nil {
			return nil, err
		}
		switch n.Head() {
		case "binary":
			return loadOperation(n, line, NodeBinary, arithmeticOperators)
		case "logical":
			return loadOperation(n, line, NodeLogical, logicalOperators)
		case "relational":
			return loadOperation(n, line, NodeRelational, relationalOperators)
		case "unary":
			if err := arity(n, 2, 2); err != nil {
				return nil, err
			}
			op, err := loadOperator(n.Items[1], line, unaryOperators...)
			if err != nil {
				return nil, err
			}
			operand, err := loadExpr(n.Items[2], line)
			if err != nil {
				return nil, err
			}
			return &ASTNode{Kind: NodeUnary, Line: line, Children: []*ASTNode{op, operand}}, nil
		case "call":
			return loadCall(n, line)
		}
	}
	return nil, shapeError(n, "expected expression, got %s", n)
}

func loadOperation(n *sexy.Node, line int, kind NodeKind, operators []string) (*ASTNode, error) {
	if err := arity(n, 3, 3); err != nil {
		return nil, err
	}
	op, err := loadOperator(n.Items[1], line, operators...)
	if err != nil {
		return nil, err
	}
	left, err := loadExpr(n.Items[2], line)
	if err != nil {
		return nil, err
	}
	right, err := loadExpr(n.Items[3], line)
	if err != nil {
		return nil, err
	}
	return &ASTNode{Kind: kind, Line: line, Children: []*ASTNode{left, op, right}}, nil
}

// checkNumber rejects literals the code generator could not represent.
func checkNumber(n *sexy.Node) error {
	if !IsNumberLiteral(n.Text) {
		return shapeError(n, "malformed number literal %s", n.Text)
	}
	if NumberLiteralType(n.Text) == TypeInteger {
		if _, err := strconv.ParseInt(n.Text, 10, 64); err != nil {
			return shapeError(n, "integer literal %s out of range", n.Text)
		}
		return nil
	}
	v, err := strconv.ParseFloat(n.Text, 64)
	if err != nil || math.IsInf(v, 0) {
		return shapeError(n, "real literal %s out of range", n.Text)
	}
	return nil
}

// ToSExpr renders a program back into tree-file form, with line metadata on
// functions and statements.
func ToSExpr(node *ASTNode) string {
	switch node.Kind {
	case NodeProgram:
		result := "(program"
		for _, fn := range node.Children {
			result += "\n  " + ToSExpr(fn)
		}
		return result + ")"
	case NodeFunction:
		result := fmt.Sprintf("(func %s %s ^{line: %d} [", node.Value, node.ReturnType(), node.Line)
		for i, param := range node.Params() {
			if i > 0 {
				result += " "
			}
			result += ToSExpr(param)
		}
		return result + "] " + ToSExpr(node.Body()) + ")"
	case NodeParam:
		return fmt.Sprintf("(param %s %s)", node.ParamType(), node.ParamName())
	case NodeCommands:
		var parts []string
		for _, stmt := range node.Children {
			parts = append(parts, ToSExpr(stmt))
		}
		return "[" + strings.Join(parts, " ") + "]"
	case NodeDeclaration:
		result := fmt.Sprintf("(decl %s ^{line: %d}", node.DeclType(), node.Line)
		for _, item := range node.DeclItems() {
			if item.Init == nil {
				result += " " + item.Ident.Value
			} else {
				result += " (init " + item.Ident.Value + " " + ToSExpr(item.Init) + ")"
			}
		}
		return result + ")"
	case NodeIdent, NodeBoolean, NodeNumber:
		return node.Value
	case NodeString:
		return sexy.NewString(node.Value).String()
	case NodeBinary:
		return operationSExpr("binary", node)
	case NodeLogical:
		return operationSExpr("logical", node)
	case NodeRelational:
		return operationSExpr("relational", node)
	case NodeUnary:
		return fmt.Sprintf("(unary %q %s)", node.Operator(), ToSExpr(node.Expr()))
	case NodeAssign:
		return fmt.Sprintf("(assign ^{line: %d} %s %s)", node.Line, node.Target().Value, ToSExpr(node.Expr()))
	case NodeIncrement:
		return fmt.Sprintf("(increment ^{line: %d} %q %s)", node.Line, node.Operator(), node.Target().Value)
	case NodeCall:
		var args []string
		for _, arg := range node.Args() {
			args = append(args, ToSExpr(arg))
		}
		return fmt.Sprintf("(call ^{line: %d} %s [%s])", node.Line, node.Callee(), strings.Join(args, " "))
	case NodeIf:
		result := fmt.Sprintf("(if ^{line: %d} %s %s", node.Line, ToSExpr(node.Condition()), ToSExpr(node.Then()))
		if els := node.Else(); els != nil {
			result += " " + ToSExpr(els)
		}
		return result + ")"
	case NodeWhile:
		return fmt.Sprintf("(while ^{line: %d} %s %s)", node.Line, ToSExpr(node.Condition()), ToSExpr(node.Body()))
	case NodeFor:
		return fmt.Sprintf("(for ^{line: %d} %s %s %s %s)", node.Line,
			ToSExpr(node.ForInit()), ToSExpr(node.ForCond()), ToSExpr(node.ForStep()), ToSExpr(node.Body()))
	case NodeRead:
		return fmt.Sprintf("(read ^{line: %d} %s)", node.Line, node.Target().Value)
	case NodePrint:
		return fmt.Sprintf("(print ^{line: %d} %s)", node.Line, ToSExpr(node.Expr()))
	case NodeReturn:
		if expr := node.Expr(); expr != nil {
			return fmt.Sprintf("(return ^{line: %d} %s)", node.Line, ToSExpr(expr))
		}
		return fmt.Sprintf("(return ^{line: %d})", node.Line)
	}
	panic(fmt.Sprintf("ToSExpr: unhandled node kind %s", node.Kind))
}

func operationSExpr(head string, node *ASTNode) string {
	return fmt.Sprintf("(%s %q %s %s)", head, node.Operator(), ToSExpr(node.Left()), ToSExpr(node.Right()))
}
