package main

import "fmt"

// Analyzer type-checks one function body against its local table and the
// program's global table.
type Analyzer struct {
	fn     *ASTNode
	local  *SymbolTable
	global *SymbolTable
}

// CheckFunction analyzes every statement of fn. The first violation is
// returned and nothing else is examined.
func CheckFunction(fn *ASTNode, local, global *SymbolTable) error {
	a := &Analyzer{fn: fn, local: local, global: global}
	return a.checkBlock(fn.Body())
}

func (a *Analyzer) checkBlock(block *ASTNode) error {
	for _, stmt := range block.Statements() {
		if err := a.checkStatement(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (a *Analyzer) checkStatement(node *ASTNode) error {
	switch node.Kind {
	case NodeDeclaration:
		// Initializers were checked while the local table was built.
		return nil

	case NodeAssign:
		declared, err := a.lookupVariable(node.Target())
		if err != nil {
			return err
		}
		exprType, err := a.typeOf(node.Expr())
		if err != nil {
			return err
		}
		if exprType != declared.Type {
			return newError(ErrTypeMismatch, node.Line,
				"Symbol [%s] expected type '%s' but got type '%s' instead", declared.Name, declared.Type, exprType)
		}
		return nil

	case NodeIncrement:
		declared, err := a.lookupVariable(node.Target())
		if err != nil {
			return err
		}
		if declared.Type != TypeInteger {
			return newError(ErrTypeMismatch, node.Line,
				"Increment operation only allowed on '%s' type, but got '%s' instead", TypeInteger, declared.Type)
		}
		return nil

	case NodeIf:
		if err := a.checkCondition(node.Condition(), "se"); err != nil {
			return err
		}
		if err := a.checkBlock(node.Then()); err != nil {
			return err
		}
		if els := node.Else(); els != nil {
			return a.checkBlock(els)
		}
		return nil

	case NodeWhile:
		if err := a.checkCondition(node.Condition(), "enquanto"); err != nil {
			return err
		}
		return a.checkBlock(node.Body())

	case NodeFor:
		return a.checkFor(node)

	case NodeCall:
		_, err := a.typeOf(node)
		return err

	case NodeRead:
		_, err := a.lookupVariable(node.Target())
		return err

	case NodePrint:
		_, err := a.typeOf(node.Expr())
		return err

	case NodeReturn:
		return a.checkReturn(node)
	}
	panic(fmt.Sprintf("checkStatement: unhandled node kind %s", node.Kind))
}

func (a *Analyzer) checkCondition(cond *ASTNode, keyword string) error {
	condType, err := a.typeOf(cond)
	if err != nil {
		return err
	}
	if condType != TypeBoolean {
		return newError(ErrTypeMismatch, cond.Line,
			"Condition of '%s' must be of type '%s', but got '%s' instead", keyword, TypeBoolean, condType)
	}
	return nil
}

func (a *Analyzer) checkFor(node *ASTNode) error {
	init := node.ForInit()
	if init.Kind != NodeAssign {
		return newError(ErrInvalidForLoop, init.Line, "Invalid initialization expression in [para] loop")
	}
	if err := a.checkStatement(init); err != nil {
		return err
	}

	if err := a.checkCondition(node.ForCond(), "para"); err != nil {
		return err
	}

	step := node.ForStep()
	if step.Kind != NodeIncrement && step.Kind != NodeAssign {
		return newError(ErrInvalidForLoop, step.Line, "Invalid step expression in [para] loop")
	}
	if err := a.checkStatement(step); err != nil {
		return err
	}

	return a.checkBlock(node.Body())
}

func (a *Analyzer) checkReturn(node *ASTNode) error {
	want := a.fn.ReturnType()
	expr := node.Expr()
	if expr == nil {
		if want != TypeVoid {
			return newError(ErrTypeMismatch, node.Line,
				"Function '%s' must return a value of type '%s'", a.fn.FunctionName(), want)
		}
		return nil
	}
	got, err := a.typeOf(expr)
	if err != nil {
		return err
	}
	if want != TypeVoid && got != want {
		return newError(ErrTypeMismatch, node.Line,
			"Function '%s' returns '%s' but got '%s' instead", a.fn.FunctionName(), want, got)
	}
	return nil
}

func (a *Analyzer) lookupVariable(ident *ASTNode) (*Symbol, error) {
	sym, err := a.local.Lookup(ident.Value)
	if err != nil {
		return nil, atLine(err, ident.Line)
	}
	return sym, nil
}

func (a *Analyzer) lookupFunction(ident *ASTNode) (*Symbol, error) {
	sym, err := a.global.Lookup(ident.Value)
	if err != nil {
		return nil, atLine(err, ident.Line)
	}
	return sym, nil
}

// typeOf evaluates the static type of an expression.
func (a *Analyzer) typeOf(node *ASTNode) (Type, error) {
	switch node.Kind {
	case NodeNumber:
		return NumberLiteralType(node.Value), nil

	case NodeString:
		return TypeChar, nil

	case NodeBoolean:
		return TypeBoolean, nil

	case NodeIdent:
		sym, err := a.lookupVariable(node)
		if err != nil {
			return "", err
		}
		return sym.Type, nil

	case NodeBinary:
		left, right, err := a.operandTypes(node)
		if err != nil {
			return "", err
		}
		if !left.IsNumeric() || !right.IsNumeric() {
			return "", newError(ErrTypeMismatch, node.Line,
				"Operator '%s' requires numeric operands, but got '%s' and '%s'", node.Operator(), left, right)
		}
		if left == TypeReal || right == TypeReal {
			return TypeReal, nil
		}
		return TypeInteger, nil

	case NodeLogical:
		left, right, err := a.operandTypes(node)
		if err != nil {
			return "", err
		}
		if left != TypeBoolean || right != TypeBoolean {
			return "", newError(ErrTypeMismatch, node.Line,
				"Operator '%s' requires '%s' operands, but got '%s' and '%s'", node.Operator(), TypeBoolean, left, right)
		}
		return TypeBoolean, nil

	case NodeRelational:
		// Operand types are evaluated but never compared with each other.
		if _, _, err := a.operandTypes(node); err != nil {
			return "", err
		}
		return TypeBoolean, nil

	case NodeUnary:
		operand, err := a.typeOf(node.Expr())
		if err != nil {
			return "", err
		}
		switch node.Operator() {
		case "-":
			if !operand.IsNumeric() {
				return "", newError(ErrTypeMismatch, node.Line,
					"Operator '-' requires a numeric operand, but got '%s'", operand)
			}
		case "!":
			if operand != TypeBoolean {
				return "", newError(ErrTypeMismatch, node.Line,
					"Operator '!' requires a '%s' operand, but got '%s'", TypeBoolean, operand)
			}
		}
		return operand, nil

	case NodeCall:
		return a.typeOfCall(node)
	}
	panic(fmt.Sprintf("typeOf: unhandled node kind %s", node.Kind))
}

func (a *Analyzer) operandTypes(node *ASTNode) (Type, Type, error) {
	left, err := a.typeOf(node.Left())
	if err != nil {
		return "", "", err
	}
	right, err := a.typeOf(node.Right())
	if err != nil {
		return "", "", err
	}
	return left, right, nil
}

func (a *Analyzer) typeOfCall(node *ASTNode) (Type, error) {
	callee, err := a.lookupFunction(node.Children[0])
	if err != nil {
		return "", err
	}

	args := node.Args()
	argTypes := make([]Type, 0, len(args))
	for _, arg := range args {
		t, err := a.typeOf(arg)
		if err != nil {
			return "", err
		}
		argTypes = append(argTypes, t)
	}

	if len(argTypes) != len(callee.ParamTypes) {
		return "", newError(ErrParamCount, node.Line,
			"Function '%s' expects %d argument(s), but got %d", callee.Name, len(callee.ParamTypes), len(argTypes))
	}
	for i, want := range callee.ParamTypes {
		if argTypes[i] != want {
			return "", newError(ErrTypeMismatch, node.Line,
				"Argument %d of '%s' expected type '%s' but got type '%s' instead", i+1, callee.Name, want, argTypes[i])
		}
	}
	return callee.ReturnType, nil
}

// mustTypeOf is typeOf for trees that already passed analysis.
func (a *Analyzer) mustTypeOf(node *ASTNode) Type {
	t, err := a.typeOf(node)
	if err != nil {
		panic(fmt.Sprintf("expression at line %d was not analyzed: %v", node.Line, err))
	}
	return t
}
