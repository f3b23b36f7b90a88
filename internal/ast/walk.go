package ast

// Walk traverses the AST starting from node, calling fn for each node.
// If fn returns false, Walk stops traversing that branch.
func Walk(node Node, fn func(Node) bool) {
	if node == nil || !fn(node) {
		return
	}

	switch n := node.(type) {
	case *Program:
		for _, decl := range n.Decls {
			Walk(decl, fn)
		}
		for _, stmt := range n.Stmts {
			Walk(stmt, fn)
		}

	case *FnDecl:
		Walk(n.Name, fn)
		for _, param := range n.Params {
			Walk(param, fn)
		}
		if n.ReturnType != nil {
			Walk(n.ReturnType, fn)
		}
		Walk(n.Body, fn)

	case *Param:
		Walk(n.Name, fn)
		if n.Type != nil {
			Walk(n.Type, fn)
		}

	case *StructDecl:
		Walk(n.Name, fn)
		for _, field := range n.Fields {
			Walk(field, fn)
		}

	case *FieldDef:
		Walk(n.Name, fn)
		Walk(n.Type, fn)

	case *EnumDecl:
		Walk(n.Name, fn)
		for _, variant := range n.Variants {
			Walk(variant, fn)
		}

	case *VariantDef:
		Walk(n.Name, fn)
		for _, payload := range n.Payload {
			Walk(payload, fn)
		}

	case *BlockExpr:
		for _, stmt := range n.Stmts {
			Walk(stmt, fn)
		}
		if n.Tail != nil {
			Walk(n.Tail, fn)
		}

	case *LetStmt:
		Walk(n.Name, fn)
		if n.Type != nil {
			Walk(n.Type, fn)
		}
		Walk(n.Value, fn)

	case *ReturnStmt:
		if n.Value != nil {
			Walk(n.Value, fn)
		}

	case *ExprStmt:
		Walk(n.Expr, fn)

	case *WhileStmt:
		Walk(n.Cond, fn)
		Walk(n.Body, fn)

	case *ForStmt:
		Walk(n.Var, fn)
		Walk(n.Iter, fn)
		Walk(n.Body, fn)

	case *FStringLit:
		for _, part := range n.Parts {
			if part.Expr != nil {
				Walk(part.Expr, fn)
			}
		}

	case *ArrayLit:
		for _, elem := range n.Elems {
			Walk(elem, fn)
		}

	case *PrefixExpr:
		Walk(n.Expr, fn)

	case *InfixExpr:
		Walk(n.Left, fn)
		Walk(n.Right, fn)

	case *AssignExpr:
		Walk(n.Target, fn)
		Walk(n.Value, fn)

	case *CallExpr:
		Walk(n.Callee, fn)
		for _, arg := range n.Args {
			Walk(arg, fn)
		}

	case *IndexExpr:
		Walk(n.Target, fn)
		Walk(n.Index, fn)

	case *FieldExpr:
		Walk(n.Target, fn)
		Walk(n.Field, fn)

	case *LambdaExpr:
		for _, param := range n.Params {
			Walk(param, fn)
		}
		Walk(n.Body, fn)

	case *IfExpr:
		Walk(n.Cond, fn)
		Walk(n.Then, fn)
		if n.Else != nil {
			Walk(n.Else, fn)
		}

	case *MatchExpr:
		Walk(n.Scrutinee, fn)
		for _, arm := range n.Arms {
			Walk(arm.Pattern, fn)
			if arm.Guard != nil {
				Walk(arm.Guard, fn)
			}
			Walk(arm.Body, fn)
		}

	case *StructLit:
		Walk(n.Name, fn)
		for _, field := range n.Fields {
			Walk(field.Name, fn)
			Walk(field.Value, fn)
		}

	case *VariantExpr:
		if n.Enum != nil {
			Walk(n.Enum, fn)
		}
		Walk(n.Variant, fn)

	case *RangeExpr:
		Walk(n.Low, fn)
		Walk(n.High, fn)

	case *PatternBinding:
		Walk(n.Name, fn)

	case *PatternLiteral:
		Walk(n.Lit, fn)

	case *PatternVariant:
		if n.Enum != nil {
			Walk(n.Enum, fn)
		}
		Walk(n.Variant, fn)
		for _, elem := range n.Elems {
			Walk(elem, fn)
		}

	case *FnType:
		for _, param := range n.Params {
			Walk(param, fn)
		}
		if n.Return != nil {
			Walk(n.Return, fn)
		}

	case *ArrayType:
		Walk(n.Elem, fn)
	}
}
