package main

import "fmt"

// NodeKind represents different types of AST nodes
type NodeKind string

const (
	NodeProgram      NodeKind = "program"
	NodeFunction     NodeKind = "function"
	NodeParam        NodeKind = "param"
	NodeCommands     NodeKind = "commands"
	NodeDeclaration  NodeKind = "declaration"
	NodeDeclarations NodeKind = "declarations"
	NodeIdent        NodeKind = "identifier"
	NodeNumber       NodeKind = "number"
	NodeString       NodeKind = "string"
	NodeBoolean      NodeKind = "boolean"
	NodeBinary       NodeKind = "binary_expression"
	NodeLogical      NodeKind = "logical_expression"
	NodeRelational   NodeKind = "relational_expression"
	NodeUnary        NodeKind = "unary_expression"
	NodeAssign       NodeKind = "assignment_expression"
	NodeIncrement    NodeKind = "increment_expression"
	NodeCall         NodeKind = "call_function_expression"
	NodeIf           NodeKind = "if"
	NodeWhile        NodeKind = "while"
	NodeFor          NodeKind = "for"
	NodeRead         NodeKind = "read"
	NodePrint        NodeKind = "print"
	NodeReturn       NodeKind = "return_expression"
	NodeType         NodeKind = "type"
	NodeOperator     NodeKind = "operator"
)

// ASTNode represents a node in the Abstract Syntax Tree.
//
// Shapes by kind:
//
//	function:     Value=name; Children = type, param..., commands
//	param:        type, identifier
//	declaration:  type, declarations
//	declarations: identifier, [initializer], [declarations]
//	binary/logical/relational: left, operator, right
//	unary:        operator, operand
//	assignment:   identifier, operator, expression
//	increment:    identifier, operator
//	call:         identifier, argument...
//	if:           condition, commands, [commands]
//	while:        condition, commands
//	for:          init, condition, step, commands
//	read:         identifier
//	print:        expression
//	return:       [expression]
type ASTNode struct {
	Kind     NodeKind
	Children []*ASTNode
	// identifier, number, string, boolean, type, operator; function name
	Value string
	Line  int
}

func (n *ASTNode) String() string {
	if n.Value != "" {
		return fmt.Sprintf("%s(%s)", n.Kind, n.Value)
	}
	return string(n.Kind)
}

// FunctionName returns the name of a function node.
func (n *ASTNode) FunctionName() string {
	return n.Value
}

// ReturnType returns the declared return type of a function node.
func (n *ASTNode) ReturnType() Type {
	return Type(n.Children[0].Value)
}

// Params returns the param nodes of a function node, in declaration order.
func (n *ASTNode) Params() []*ASTNode {
	return n.Children[1 : len(n.Children)-1]
}

// Body returns the commands node of a function, while or for node.
func (n *ASTNode) Body() *ASTNode {
	return n.Children[len(n.Children)-1]
}

// Operator returns the operator text of an operator-bearing node.
func (n *ASTNode) Operator() string {
	switch n.Kind {
	case NodeUnary:
		return n.Children[0].Value
	case NodeBinary, NodeLogical, NodeRelational, NodeAssign, NodeIncrement:
		return n.Children[1].Value
	}
	panic(fmt.Sprintf("node %s has no operator", n))
}

// Left and Right return the operands of binary-shaped expressions.
func (n *ASTNode) Left() *ASTNode  { return n.Children[0] }
func (n *ASTNode) Right() *ASTNode { return n.Children[2] }

// Target returns the identifier an assignment, increment, read or param binds.
func (n *ASTNode) Target() *ASTNode {
	if n.Kind == NodeParam {
		return n.Children[1]
	}
	return n.Children[0]
}

// Expr returns the value expression of an assignment, print or return node,
// or nil for a bare return.
func (n *ASTNode) Expr() *ASTNode {
	switch n.Kind {
	case NodeAssign:
		return n.Children[2]
	case NodeUnary:
		return n.Children[1]
	case NodePrint:
		return n.Children[0]
	case NodeReturn:
		if len(n.Children) == 0 {
			return nil
		}
		return n.Children[0]
	}
	panic(fmt.Sprintf("node %s has no value expression", n))
}

// Callee and Args split a call node.
func (n *ASTNode) Callee() string   { return n.Children[0].Value }
func (n *ASTNode) Args() []*ASTNode { return n.Children[1:] }

func (n *ASTNode) Condition() *ASTNode { return n.Children[0] }
func (n *ASTNode) Then() *ASTNode      { return n.Children[1] }

func (n *ASTNode) ForInit() *ASTNode { return n.Children[0] }
func (n *ASTNode) ForCond() *ASTNode { return n.Children[1] }
func (n *ASTNode) ForStep() *ASTNode { return n.Children[2] }

func (n *ASTNode) DeclType() Type     { return Type(n.Children[0].Value) }
func (n *ASTNode) DeclList() *ASTNode { return n.Children[1] }

func (n *ASTNode) ParamType() Type   { return Type(n.Children[0].Value) }
func (n *ASTNode) ParamName() string { return n.Children[1].Value }

func (n *ASTNode) Statements() []*ASTNode { return n.Children }

func (n *ASTNode) IsLiteral() bool {
	return n.Kind == NodeNumber || n.Kind == NodeString || n.Kind == NodeBoolean
}

// Else returns the else block of an if node, or nil.
func (n *ASTNode) Else() *ASTNode {
	if len(n.Children) == 3 {
		return n.Children[2]
	}
	return nil
}

// DeclItem is one identifier of a declaration with its optional initializer.
type DeclItem struct {
	Ident *ASTNode
	Init  *ASTNode
}

// DeclItems flattens the right-recursive declarations chain of a
// declaration node.
func (n *ASTNode) DeclItems() []DeclItem {
	var items []DeclItem
	for list := n.DeclList(); list != nil; {
		item := DeclItem{Ident: list.Children[0]}
		var next *ASTNode
		for _, child := range list.Children[1:] {
			if child.Kind == NodeDeclarations {
				next = child
			} else {
				item.Init = child
			}
		}
		items = append(items, item)
		list = next
	}
	return items
}

// WalkStatements calls fn for every statement, descending into the bodies of
// if, while and for, in source order.
func WalkStatements(stmts []*ASTNode, fn func(*ASTNode)) {
	for _, stmt := range stmts {
		fn(stmt)
		switch stmt.Kind {
		case NodeIf:
			WalkStatements(stmt.Then().Statements(), fn)
			if els := stmt.Else(); els != nil {
				WalkStatements(els.Statements(), fn)
			}
		case NodeWhile, NodeFor:
			WalkStatements(stmt.Body().Statements(), fn)
		}
	}
}
