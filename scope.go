package main

// BuildGlobalTable defines one funcao symbol per function of the program,
// keyed by function name and carrying its parameter types.
func BuildGlobalTable(program *ASTNode) (*SymbolTable, error) {
	global := NewSymbolTable()
	for _, fn := range program.Children {
		params := fn.Params()
		paramTypes := make([]Type, 0, len(params))
		for _, param := range params {
			paramTypes = append(paramTypes, param.ParamType())
		}
		sym := &Symbol{
			Name:       fn.FunctionName(),
			Type:       TypeFunction,
			Line:       fn.Line,
			ParamTypes: paramTypes,
			ReturnType: fn.ReturnType(),
		}
		if err := global.Define(fn.FunctionName(), sym); err != nil {
			return nil, err
		}
	}
	return global, nil
}

// BuildLocalTable lays out the frame of fn: its params in order, then every
// declared local in source order. Locals declared inside if, while and for
// bodies land in the same flat table.
func BuildLocalTable(fn *ASTNode, global *SymbolTable) (*SymbolTable, error) {
	local := NewSymbolTable()
	for _, param := range fn.Params() {
		if _, err := local.DefineVariable(param.ParamName(), param.ParamType(), param.Line); err != nil {
			return nil, err
		}
	}

	a := &Analyzer{fn: fn, local: local, global: global}
	var err error
	WalkStatements(fn.Body().Statements(), func(stmt *ASTNode) {
		if err != nil || stmt.Kind != NodeDeclaration {
			return
		}
		err = a.defineDeclaration(stmt)
	})
	if err != nil {
		return nil, err
	}
	return local, nil
}

// defineDeclaration defines each identifier of a declaration statement. An
// inline initializer is typed against the symbols defined so far and must
// match the declared type exactly.
func (a *Analyzer) defineDeclaration(decl *ASTNode) error {
	declType := decl.DeclType()
	for _, item := range decl.DeclItems() {
		if item.Init != nil {
			initType, err := a.typeOf(item.Init)
			if err != nil {
				return err
			}
			if initType != declType {
				return newError(ErrTypeMismatch, item.Ident.Line,
					"Symbol [%s] declared as '%s' but initialized with '%s'", item.Ident.Value, declType, initType)
			}
		}
		if _, err := a.local.DefineVariable(item.Ident.Value, declType, item.Ident.Line); err != nil {
			return err
		}
	}
	return nil
}
