package parser

import (
	"github.com/rill-lang/rill/internal/ast"
	"github.com/rill-lang/rill/internal/lexer"
)

func (p *Parser) parseDecl() ast.Decl {
	switch p.curTok.Type {
	case lexer.FN:
		return p.parseFnDecl()
	case lexer.STRUCT:
		return p.parseStructDecl()
	case lexer.ENUM:
		return p.parseEnumDecl()
	default:
		p.reportError("expected declaration", p.curTok.Span)
		return nil
	}
}

// parseFnDecl parses fn name(a: T, b: U) -> R { ... }. On return curTok is
// the token after the closing brace.
func (p *Parser) parseFnDecl() ast.Decl {
	start := p.curTok.Span

	if !p.expect(lexer.IDENT) {
		return nil
	}
	name := ast.NewIdent(p.curTok.Value, p.curTok.Span)

	if !p.expect(lexer.LPAREN) {
		return nil
	}

	var params []*ast.Param
	for p.peekTok.Type != lexer.RPAREN {
		if !p.expect(lexer.IDENT) {
			return nil
		}
		paramName := ast.NewIdent(p.curTok.Value, p.curTok.Span)

		if !p.expect(lexer.COLON) {
			return nil
		}

		p.nextToken() // move to type start
		paramType := p.parseType()
		if paramType == nil {
			return nil
		}

		params = append(params, ast.NewParam(paramName, paramType,
			mergeSpan(paramName.Span(), paramType.Span())))

		if p.peekTok.Type == lexer.COMMA {
			p.nextToken()
			continue
		}
		break
	}

	if !p.expect(lexer.RPAREN) {
		return nil
	}

	var returnType ast.TypeExpr
	if p.peekTok.Type == lexer.ARROW {
		p.nextToken() // move to '->'
		p.nextToken() // move to return type start
		returnType = p.parseType()
		if returnType == nil {
			return nil
		}
	}

	if !p.expect(lexer.LBRACE) {
		return nil
	}

	body := p.parseBlockExpr()
	if body == nil {
		return nil
	}
	p.nextToken() // move past '}'

	return ast.NewFnDecl(name, params, returnType, body, mergeSpan(start, body.Span()))
}

// parseStructDecl parses struct Name { field: Type, ... }.
func (p *Parser) parseStructDecl() ast.Decl {
	start := p.curTok.Span

	if !p.expect(lexer.IDENT) {
		return nil
	}
	name := ast.NewIdent(p.curTok.Value, p.curTok.Span)

	if !p.expect(lexer.LBRACE) {
		return nil
	}

	var fields []*ast.FieldDef
	for p.peekTok.Type != lexer.RBRACE {
		if !p.expect(lexer.IDENT) {
			return nil
		}
		fieldName := ast.NewIdent(p.curTok.Value, p.curTok.Span)

		if !p.expect(lexer.COLON) {
			return nil
		}

		p.nextToken() // move to type start
		fieldType := p.parseType()
		if fieldType == nil {
			return nil
		}

		fields = append(fields, ast.NewFieldDef(fieldName, fieldType,
			mergeSpan(fieldName.Span(), fieldType.Span())))

		if p.peekTok.Type == lexer.COMMA {
			p.nextToken()
			continue
		}
		break
	}

	if !p.expect(lexer.RBRACE) {
		return nil
	}
	span := mergeSpan(start, p.curTok.Span)
	p.nextToken()

	return ast.NewStructDecl(name, fields, span)
}

// parseEnumDecl parses enum Name { Variant(Type, ...), Unit, ... }.
func (p *Parser) parseEnumDecl() ast.Decl {
	start := p.curTok.Span

	if !p.expect(lexer.IDENT) {
		return nil
	}
	name := ast.NewIdent(p.curTok.Value, p.curTok.Span)

	if !p.expect(lexer.LBRACE) {
		return nil
	}

	var variants []*ast.VariantDef
	for p.peekTok.Type != lexer.RBRACE {
		if !p.expect(lexer.IDENT) {
			return nil
		}
		variantName := ast.NewIdent(p.curTok.Value, p.curTok.Span)
		variantSpan := variantName.Span()

		var payload []ast.TypeExpr
		if p.peekTok.Type == lexer.LPAREN {
			p.nextToken() // move to '('
			for p.peekTok.Type != lexer.RPAREN {
				p.nextToken() // move to type start
				payloadType := p.parseType()
				if payloadType == nil {
					return nil
				}
				payload = append(payload, payloadType)

				if p.peekTok.Type == lexer.COMMA {
					p.nextToken()
					continue
				}
				break
			}
			if !p.expect(lexer.RPAREN) {
				return nil
			}
			variantSpan = mergeSpan(variantSpan, p.curTok.Span)
		}

		variants = append(variants, ast.NewVariantDef(variantName, payload, variantSpan))

		if p.peekTok.Type == lexer.COMMA {
			p.nextToken()
			continue
		}
		break
	}

	if !p.expect(lexer.RBRACE) {
		return nil
	}
	span := mergeSpan(start, p.curTok.Span)
	p.nextToken()

	return ast.NewEnumDecl(name, variants, span)
}

// parseType parses a type annotation: a named type, [Elem], or
// fn(T, U) -> R. On return curTok is the last token of the type.
func (p *Parser) parseType() ast.TypeExpr {
	switch p.curTok.Type {
	case lexer.IDENT:
		name := ast.NewIdent(p.curTok.Value, p.curTok.Span)
		return ast.NewNamedType(name, name.Span())

	case lexer.LBRACKET:
		start := p.curTok.Span
		p.nextToken() // move to element type start
		elem := p.parseType()
		if elem == nil {
			return nil
		}
		if !p.expect(lexer.RBRACKET) {
			return nil
		}
		return ast.NewArrayType(elem, mergeSpan(start, p.curTok.Span))

	case lexer.FN:
		return p.parseFnType()

	case lexer.LPAREN:
		// () is the unit type annotation.
		start := p.curTok.Span
		if !p.expect(lexer.RPAREN) {
			return nil
		}
		return ast.NewNamedType(ast.NewIdent("Unit", start), mergeSpan(start, p.curTok.Span))

	default:
		p.reportError("expected type expression", p.curTok.Span)
		return nil
	}
}

func (p *Parser) parseFnType() ast.TypeExpr {
	start := p.curTok.Span

	if !p.expect(lexer.LPAREN) {
		return nil
	}

	var params []ast.TypeExpr
	for p.peekTok.Type != lexer.RPAREN {
		p.nextToken() // move to param type start
		param := p.parseType()
		if param == nil {
			return nil
		}
		params = append(params, param)

		if p.peekTok.Type == lexer.COMMA {
			p.nextToken()
			continue
		}
		break
	}

	if !p.expect(lexer.RPAREN) {
		return nil
	}

	var ret ast.TypeExpr
	if p.peekTok.Type == lexer.ARROW {
		p.nextToken() // move to '->'
		p.nextToken() // move to return type start
		ret = p.parseType()
		if ret == nil {
			return nil
		}
	}

	return ast.NewFnType(params, ret, mergeSpan(start, p.curTok.Span))
}
