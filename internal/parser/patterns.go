package parser

import (
	"github.com/rill-lang/rill/internal/ast"
	"github.com/rill-lang/rill/internal/lexer"
)

// parseMatchExpr parses match scrutinee { pattern [if guard] => body, ... }.
func (p *Parser) parseMatchExpr() ast.Expr {
	start := p.curTok.Span

	p.nextToken() // move to scrutinee start

	scrutinee := p.withNoStructLit(func() ast.Expr {
		return p.parseExpression(precedenceLowest)
	})
	if scrutinee == nil {
		return nil
	}

	if !p.expect(lexer.LBRACE) {
		return nil
	}

	var arms []*ast.MatchArm
	for p.peekTok.Type != lexer.RBRACE && p.peekTok.Type != lexer.EOF {
		p.nextToken() // move to pattern start

		pattern := p.parsePattern()
		if pattern == nil {
			return nil
		}

		var guard ast.Expr
		if p.peekTok.Type == lexer.IF {
			p.nextToken() // move to 'if'
			p.nextToken() // move to guard start
			guard = p.parseExpression(precedenceLowest)
			if guard == nil {
				return nil
			}
		}

		if !p.expect(lexer.FATARROW) {
			return nil
		}

		p.nextToken() // move to body start

		body := p.parseExpression(precedenceLowest)
		if body == nil {
			return nil
		}

		arms = append(arms, ast.NewMatchArm(pattern, guard, body,
			mergeSpan(pattern.Span(), body.Span())))

		if p.peekTok.Type == lexer.COMMA {
			p.nextToken()
			continue
		}
		break
	}

	if !p.expect(lexer.RBRACE) {
		return nil
	}

	return ast.NewMatchExpr(scrutinee, arms, mergeSpan(start, p.curTok.Span))
}

// parsePattern parses one match pattern. Capitalized identifiers are
// variant patterns (optionally qualified with Enum::); lowercase
// identifiers bind; `_` is the wildcard; literals match by equality.
func (p *Parser) parsePattern() ast.Pattern {
	switch p.curTok.Type {
	case lexer.IDENT:
		return p.parseIdentPattern()

	case lexer.INT:
		lit := ast.NewIntegerLit(p.curTok.Value, p.curTok.Span)
		return ast.NewPatternLiteral(lit, lit.Span())

	case lexer.MINUS:
		start := p.curTok.Span
		if !p.expect(lexer.INT) {
			return nil
		}
		lit := ast.NewIntegerLit("-"+p.curTok.Value, mergeSpan(start, p.curTok.Span))
		return ast.NewPatternLiteral(lit, lit.Span())

	case lexer.TRUE, lexer.FALSE:
		lit := ast.NewBoolLit(p.curTok.Type == lexer.TRUE, p.curTok.Span)
		return ast.NewPatternLiteral(lit, lit.Span())

	case lexer.STRING:
		lit := ast.NewStringLit(p.curTok.Value, p.curTok.Span)
		return ast.NewPatternLiteral(lit, lit.Span())

	default:
		p.reportError("expected pattern", p.curTok.Span)
		return nil
	}
}

func (p *Parser) parseIdentPattern() ast.Pattern {
	name := ast.NewIdent(p.curTok.Value, p.curTok.Span)

	if name.Name == "_" {
		return ast.NewPatternWild(name.Span())
	}

	var enum *ast.Ident
	variant := name
	span := name.Span()

	if p.peekTok.Type == lexer.DOUBLE_COLON {
		p.nextToken() // move to '::'
		if !p.expect(lexer.IDENT) {
			return nil
		}
		enum = name
		variant = ast.NewIdent(p.curTok.Value, p.curTok.Span)
		span = mergeSpan(span, variant.Span())
	}

	isVariant := enum != nil || isTypeName(variant.Name) || p.peekTok.Type == lexer.LPAREN

	if !isVariant {
		return ast.NewPatternBinding(name, name.Span())
	}

	var elems []ast.Pattern
	if p.peekTok.Type == lexer.LPAREN {
		p.nextToken() // move to '('
		for p.peekTok.Type != lexer.RPAREN {
			p.nextToken() // move to sub-pattern start
			elem := p.parsePattern()
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
		if !p.expect(lexer.RPAREN) {
			return nil
		}
		span = mergeSpan(span, p.curTok.Span)
	}

	return ast.NewPatternVariant(enum, variant, elems, span)
}
