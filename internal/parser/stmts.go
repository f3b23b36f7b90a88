package parser

import (
	"github.com/rill-lang/rill/internal/ast"
	"github.com/rill-lang/rill/internal/lexer"
)

// parseStmtOrTail parses one statement. On entry curTok is the statement's
// first token; on a successful statement return, curTok is the first token
// after it (including any terminating semicolon). A non-nil tail means the
// statement position held a trailing expression without a semicolon, legal
// only right before end (RBRACE inside blocks, EOF at top level).
func (p *Parser) parseStmtOrTail(end lexer.TokenType) (ast.Stmt, ast.Expr) {
	switch p.curTok.Type {
	case lexer.LET:
		return p.parseLetStmt(), nil
	case lexer.RETURN:
		return p.parseReturnStmt(), nil
	case lexer.WHILE:
		return p.parseWhileStmt(), nil
	case lexer.FOR:
		return p.parseForStmt(), nil
	case lexer.BREAK:
		stmt := ast.NewBreakStmt(p.curTok.Span)
		if !p.expect(lexer.SEMICOLON) {
			return nil, nil
		}
		p.nextToken()
		return stmt, nil
	case lexer.CONTINUE:
		stmt := ast.NewContinueStmt(p.curTok.Span)
		if !p.expect(lexer.SEMICOLON) {
			return nil, nil
		}
		p.nextToken()
		return stmt, nil
	default:
		return p.parseExprStmtOrTail(end)
	}
}

func (p *Parser) parseLetStmt() ast.Stmt {
	start := p.curTok.Span

	mutable := false
	if p.peekTok.Type == lexer.MUT {
		mutable = true
		p.nextToken()
	}

	if !p.expect(lexer.IDENT) {
		return nil
	}
	name := ast.NewIdent(p.curTok.Value, p.curTok.Span)

	var typ ast.TypeExpr
	if p.peekTok.Type == lexer.COLON {
		p.nextToken() // move to ':'
		p.nextToken() // move to type start
		typ = p.parseType()
		if typ == nil {
			return nil
		}
	}

	if !p.expect(lexer.ASSIGN) {
		return nil
	}

	p.nextToken() // move to value start

	value := p.parseExpression(precedenceLowest)
	if value == nil {
		return nil
	}

	if !p.expect(lexer.SEMICOLON) {
		return nil
	}
	span := mergeSpan(start, p.curTok.Span)
	p.nextToken()

	return ast.NewLetStmt(mutable, name, typ, value, span)
}

func (p *Parser) parseReturnStmt() ast.Stmt {
	start := p.curTok.Span

	if p.peekTok.Type == lexer.SEMICOLON {
		p.nextToken() // move to ';'
		span := mergeSpan(start, p.curTok.Span)
		p.nextToken()
		return ast.NewReturnStmt(nil, span)
	}

	p.nextToken() // move to value start

	value := p.parseExpression(precedenceLowest)
	if value == nil {
		return nil
	}

	if !p.expect(lexer.SEMICOLON) {
		return nil
	}
	span := mergeSpan(start, p.curTok.Span)
	p.nextToken()

	return ast.NewReturnStmt(value, span)
}

func (p *Parser) parseWhileStmt() ast.Stmt {
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

	body := p.parseBlockExpr()
	if body == nil {
		return nil
	}
	p.nextToken() // move past '}'

	return ast.NewWhileStmt(cond, body, mergeSpan(start, body.Span()))
}

func (p *Parser) parseForStmt() ast.Stmt {
	start := p.curTok.Span

	if !p.expect(lexer.IDENT) {
		return nil
	}
	loopVar := ast.NewIdent(p.curTok.Value, p.curTok.Span)

	if !p.expect(lexer.IN) {
		return nil
	}

	p.nextToken() // move to iterable start

	iter := p.withNoStructLit(func() ast.Expr {
		low := p.parseExpression(precedenceLowest)
		if low == nil {
			return nil
		}
		// `a..b` ranges are for-loop sugar, so the parser only admits them
		// here rather than in the general expression grammar.
		if p.peekTok.Type == lexer.DOTDOT {
			p.nextToken() // move to '..'
			p.nextToken() // move to high start
			high := p.parseExpression(precedenceLowest)
			if high == nil {
				return nil
			}
			return ast.NewRangeExpr(low, high, mergeSpan(low.Span(), high.Span()))
		}
		return low
	})
	if iter == nil {
		return nil
	}

	if !p.expect(lexer.LBRACE) {
		return nil
	}

	body := p.parseBlockExpr()
	if body == nil {
		return nil
	}
	p.nextToken() // move past '}'

	return ast.NewForStmt(loopVar, iter, body, mergeSpan(start, body.Span()))
}

// parseExprStmtOrTail parses an expression in statement position. With a
// trailing semicolon it is an ExprStmt; without one, it must sit directly
// before end and becomes the block (or program) tail.
func (p *Parser) parseExprStmtOrTail(end lexer.TokenType) (ast.Stmt, ast.Expr) {
	start := p.curTok.Span

	expr := p.parseExpression(precedenceLowest)
	if expr == nil {
		return nil, nil
	}

	if p.peekTok.Type == lexer.SEMICOLON {
		p.nextToken() // move to ';'
		span := mergeSpan(start, p.curTok.Span)
		p.nextToken()
		return ast.NewExprStmt(expr, span), nil
	}

	if p.peekTok.Type == end {
		p.nextToken() // land on the closer; the caller owns it
		return nil, expr
	}

	// Block-like expressions stand alone as statements without a
	// semicolon, so `if x { ... }` can precede further statements.
	if isBlockLike(expr) {
		span := mergeSpan(start, p.curTok.Span)
		p.nextToken() // move past the closing '}'
		return ast.NewExprStmt(expr, span), nil
	}

	p.reportError("expected ';' after expression", p.peekTok.Span)
	return nil, nil
}

func isBlockLike(expr ast.Expr) bool {
	switch expr.(type) {
	case *ast.IfExpr, *ast.MatchExpr, *ast.BlockExpr:
		return true
	default:
		return false
	}
}

// parseBlockExpr parses { stmts... [tail] }. On entry curTok is '{'; on
// return curTok is the matching '}'.
func (p *Parser) parseBlockExpr() *ast.BlockExpr {
	start := p.curTok.Span

	if p.curTok.Type != lexer.LBRACE {
		p.reportError("expected '{' to start block", p.curTok.Span)
		return nil
	}

	block := ast.NewBlockExpr(nil, nil, start)

	p.nextToken()

	for p.curTok.Type != lexer.RBRACE && p.curTok.Type != lexer.EOF {
		prevTok := p.curTok

		stmt, tail := p.parseStmtOrTail(lexer.RBRACE)
		if stmt != nil {
			block.Stmts = append(block.Stmts, stmt)
			continue
		}
		if tail != nil {
			block.Tail = tail
			break
		}

		if p.curTok.Type == lexer.RBRACE || p.curTok.Type == lexer.EOF {
			break
		}
		p.recoverStmt(prevTok)
	}

	if p.curTok.Type != lexer.RBRACE {
		p.reportError("expected '}' to close block", p.curTok.Span)
		return block
	}

	block.SetSpan(mergeSpan(start, p.curTok.Span))

	return block
}
