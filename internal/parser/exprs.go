package parser

import (
	"unicode"

	"github.com/rill-lang/rill/internal/ast"
	"github.com/rill-lang/rill/internal/lexer"
)

func (p *Parser) peekPrecedence() int {
	if prec, ok := precedences[p.peekTok.Type]; ok {
		return prec
	}
	return precedenceLowest
}

// parseExpression is the Pratt core: consume a prefix form, then fold in
// infix operators while their precedence binds tighter than the caller's.
func (p *Parser) parseExpression(precedence int) ast.Expr {
	prefix := p.prefixFns[p.curTok.Type]
	if prefix == nil {
		p.reportError("unexpected token '"+p.curTok.Raw+"' in expression", p.curTok.Span)
		return nil
	}

	left := prefix()

	for left != nil && precedence < p.peekPrecedence() {
		infix := p.infixFns[p.peekTok.Type]
		if infix == nil {
			return left
		}
		p.nextToken()
		left = infix(left)
	}

	return left
}

// withNoStructLit parses a loop/conditional head where `{` must open the
// body rather than a struct literal.
func (p *Parser) withNoStructLit(parse func() ast.Expr) ast.Expr {
	saved := p.noStructLit
	p.noStructLit = true
	expr := parse()
	p.noStructLit = saved
	return expr
}

func (p *Parser) parseIdentOrStructLit() ast.Expr {
	ident := ast.NewIdent(p.curTok.Value, p.curTok.Span)

	// `Point { ... }` is a struct literal only when the name is a type name
	// (capitalized) and struct literals are admissible here. Inside an
	// if/while/for/match head the `{` always opens the body.
	if p.peekTok.Type == lexer.LBRACE && !p.noStructLit && isTypeName(ident.Name) {
		return p.parseStructLit(ident)
	}

	return ident
}

func isTypeName(name string) bool {
	for _, r := range name {
		return unicode.IsUpper(r)
	}
	return false
}

func (p *Parser) parseStructLit(name *ast.Ident) ast.Expr {
	start := name.Span()

	p.nextToken() // move to '{'

	var fields []*ast.FieldInit
	for p.peekTok.Type != lexer.RBRACE {
		if !p.expect(lexer.IDENT) {
			return nil
		}
		fieldName := ast.NewIdent(p.curTok.Value, p.curTok.Span)

		if !p.expect(lexer.COLON) {
			return nil
		}

		p.nextToken() // move to value start
		value := p.parseExpression(precedenceLowest)
		if value == nil {
			return nil
		}

		fields = append(fields, ast.NewFieldInit(fieldName, value, mergeSpan(fieldName.Span(), value.Span())))

		if p.peekTok.Type == lexer.COMMA {
			p.nextToken()
			continue
		}
		break
	}

	if !p.expect(lexer.RBRACE) {
		return nil
	}

	return ast.NewStructLit(name, fields, mergeSpan(start, p.curTok.Span))
}

func (p *Parser) parseIntegerLiteral() ast.Expr {
	return ast.NewIntegerLit(p.curTok.Value, p.curTok.Span)
}

func (p *Parser) parseFloatLiteral() ast.Expr {
	return ast.NewFloatLit(p.curTok.Value, p.curTok.Span)
}

func (p *Parser) parseStringLiteral() ast.Expr {
	return ast.NewStringLit(p.curTok.Value, p.curTok.Span)
}

func (p *Parser) parseBoolLiteral() ast.Expr {
	return ast.NewBoolLit(p.curTok.Type == lexer.TRUE, p.curTok.Span)
}

func (p *Parser) parsePrefixExpr() ast.Expr {
	op := p.curTok.Type
	start := p.curTok.Span

	p.nextToken()

	operand := p.parseExpression(precedencePrefix)
	if operand == nil {
		return nil
	}

	return ast.NewPrefixExpr(op, operand, mergeSpan(start, operand.Span()))
}

func (p *Parser) parseInfixExpr(left ast.Expr) ast.Expr {
	op := p.curTok.Type
	precedence := precedences[op]

	p.nextToken()

	right := p.parseExpression(precedence)
	if right == nil {
		return nil
	}

	return ast.NewInfixExpr(op, left, right, mergeSpan(left.Span(), right.Span()))
}

func (p *Parser) parseAssignExpr(left ast.Expr) ast.Expr {
	switch left.(type) {
	case *ast.Ident, *ast.FieldExpr, *ast.IndexExpr:
	default:
		p.reportError("invalid assignment target", left.Span())
	}

	p.nextToken()

	// Assignment is right-associative.
	value := p.parseExpression(precedenceAssign - 1)
	if value == nil {
		return nil
	}

	return ast.NewAssignExpr(left, value, mergeSpan(left.Span(), value.Span()))
}

// parsePipelineExpr desugars `x |> f` into `f(x)` and `x |> f(a)` into
// `f(x, a)` at parse time. The pipeline has no runtime semantics beyond
// call restructuring, so no pipeline node reaches the AST.
func (p *Parser) parsePipelineExpr(left ast.Expr) ast.Expr {
	opSpan := p.curTok.Span

	p.nextToken()

	right := p.parseExpression(precedencePipeline)
	if right == nil {
		return nil
	}

	span := mergeSpan(left.Span(), right.Span())

	if call, ok := right.(*ast.CallExpr); ok {
		args := make([]ast.Expr, 0, len(call.Args)+1)
		args = append(args, left)
		args = append(args, call.Args...)
		return ast.NewCallExpr(call.Callee, args, span)
	}

	switch right.(type) {
	case *ast.Ident, *ast.FieldExpr, *ast.LambdaExpr, *ast.VariantExpr:
		return ast.NewCallExpr(right, []ast.Expr{left}, span)
	}

	p.reportError("pipeline target must be callable", opSpan)
	return ast.NewBadExpr(span)
}

func (p *Parser) parseGroupedExpr() ast.Expr {
	start := p.curTok.Span

	if p.peekTok.Type == lexer.RPAREN {
		p.nextToken()
		return ast.NewUnitLit(mergeSpan(start, p.curTok.Span))
	}

	p.nextToken()

	expr := p.parseExpression(precedenceLowest)
	if expr == nil {
		return nil
	}

	if !p.expect(lexer.RPAREN) {
		return nil
	}

	// Grouping parens contribute no AST node; the sub-expression stands in
	// for the group. Re-parsing a fully parenthesized print therefore
	// reproduces the original tree.
	return expr
}

func (p *Parser) parseArrayLiteral() ast.Expr {
	start := p.curTok.Span

	var elems []ast.Expr
	for p.peekTok.Type != lexer.RBRACKET {
		p.nextToken()

		elem := p.parseExpression(precedenceLowest)
		if elem == nil {
			return nil
		}
		elems = append(elems, elem)

		if p.peekTok.Type == lexer.COMMA {
			p.nextToken()
			continue
		}
		break
	}

	if !p.expect(lexer.RBRACKET) {
		return nil
	}

	return ast.NewArrayLit(elems, mergeSpan(start, p.curTok.Span))
}

func (p *Parser) parseCallExpr(callee ast.Expr) ast.Expr {
	var args []ast.Expr
	for p.peekTok.Type != lexer.RPAREN {
		p.nextToken()

		arg := p.parseExpression(precedenceLowest)
		if arg == nil {
			return nil
		}
		args = append(args, arg)

		if p.peekTok.Type == lexer.COMMA {
			p.nextToken()
			continue
		}
		break
	}

	if !p.expect(lexer.RPAREN) {
		return nil
	}

	return ast.NewCallExpr(callee, args, mergeSpan(callee.Span(), p.curTok.Span))
}

func (p *Parser) parseIndexExpr(target ast.Expr) ast.Expr {
	p.nextToken()

	index := p.parseExpression(precedenceLowest)
	if index == nil {
		return nil
	}

	if !p.expect(lexer.RBRACKET) {
		return nil
	}

	return ast.NewIndexExpr(target, index, mergeSpan(target.Span(), p.curTok.Span))
}

func (p *Parser) parseFieldExpr(target ast.Expr) ast.Expr {
	if !p.expect(lexer.IDENT) {
		return nil
	}

	field := ast.NewIdent(p.curTok.Value, p.curTok.Span)

	return ast.NewFieldExpr(target, field, mergeSpan(target.Span(), field.Span()))
}

func (p *Parser) parseVariantExpr(left ast.Expr) ast.Expr {
	enum, ok := left.(*ast.Ident)
	if !ok {
		p.reportError("expected enum name before '::'", left.Span())
		return nil
	}

	if !p.expect(lexer.IDENT) {
		return nil
	}

	variant := ast.NewIdent(p.curTok.Value, p.curTok.Span)

	return ast.NewVariantExpr(enum, variant, mergeSpan(enum.Span(), variant.Span()))
}

// parseLambdaExpr parses |x, y| body.
func (p *Parser) parseLambdaExpr() ast.Expr {
	start := p.curTok.Span

	var params []*ast.Ident
	for p.peekTok.Type != lexer.PIPE {
		if !p.expect(lexer.IDENT) {
			return nil
		}
		params = append(params, ast.NewIdent(p.curTok.Value, p.curTok.Span))

		if p.peekTok.Type == lexer.COMMA {
			p.nextToken()
			continue
		}
		break
	}

	if !p.expect(lexer.PIPE) {
		return nil
	}

	p.nextToken() // move to body start

	body := p.parseExpression(precedenceLowest)
	if body == nil {
		return nil
	}

	return ast.NewLambdaExpr(params, body, mergeSpan(start, body.Span()))
}

// parseEmptyLambdaExpr handles `|| body`: the lexer reads the empty
// parameter list as a single OR token.
func (p *Parser) parseEmptyLambdaExpr() ast.Expr {
	start := p.curTok.Span

	p.nextToken() // move to body start

	body := p.parseExpression(precedenceLowest)
	if body == nil {
		return nil
	}

	return ast.NewLambdaExpr(nil, body, mergeSpan(start, body.Span()))
}

func (p *Parser) parseIfExpr() ast.Expr {
	start := p.curTok.Span

	p.nextToken() // move to condition start

	cond := p.withNoStructLit(func() ast.Expr {
		return p.parseExpression(precedenceLowest)
	})
	if cond == nil {
		return nil
	}

	if !p.expect(lexer.LBRACE) {
		return nil
	}

	then := p.parseBlockExpr()
	if then == nil {
		return nil
	}

	var els ast.Expr
	if p.peekTok.Type == lexer.ELSE {
		p.nextToken() // move to 'else'
		p.nextToken() // move past 'else'

		switch p.curTok.Type {
		case lexer.IF:
			els = p.parseIfExpr()
		case lexer.LBRACE:
			els = p.parseBlockExpr()
		default:
			p.reportError("expected '{' or 'if' after 'else'", p.curTok.Span)
			return nil
		}
		if els == nil {
			return nil
		}
	}

	span := mergeSpan(start, then.Span())
	if els != nil {
		span = mergeSpan(span, els.Span())
	}

	return ast.NewIfExpr(cond, then, els, span)
}

func (p *Parser) parseBlockLiteral() ast.Expr {
	block := p.parseBlockExpr()
	if block == nil {
		return nil
	}
	return block
}
