package parser

import (
	"github.com/rill-lang/rill/internal/ast"
	"github.com/rill-lang/rill/internal/diag"
	"github.com/rill-lang/rill/internal/lexer"
)

type (
	prefixParseFn func() ast.Expr
	infixParseFn  func(ast.Expr) ast.Expr
)

type Option func(*options)

type options struct {
	filename string
}

// WithFilename configures the parser to attribute all emitted spans to the
// provided filename.
func WithFilename(name string) Option {
	return func(o *options) {
		o.filename = name
	}
}

// Operator precedence, loosest binding first. The table below is total:
// every infix token appears exactly once and equal levels associate left.
const (
	precedenceLowest = iota
	precedenceAssign
	precedencePipeline
	precedenceOr
	precedenceAnd
	precedenceEquality
	precedenceComparison
	precedenceSum
	precedenceProduct
	precedencePrefix
	precedencePostfix
)

var precedences = map[lexer.TokenType]int{
	lexer.ASSIGN:       precedenceAssign,
	lexer.PIPELINE:     precedencePipeline,
	lexer.OR:           precedenceOr,
	lexer.AND:          precedenceAnd,
	lexer.EQ:           precedenceEquality,
	lexer.NOT_EQ:       precedenceEquality,
	lexer.LT:           precedenceComparison,
	lexer.LE:           precedenceComparison,
	lexer.GT:           precedenceComparison,
	lexer.GE:           precedenceComparison,
	lexer.PLUS:         precedenceSum,
	lexer.MINUS:        precedenceSum,
	lexer.ASTERISK:     precedenceProduct,
	lexer.SLASH:        precedenceProduct,
	lexer.PERCENT:      precedenceProduct,
	lexer.LPAREN:       precedencePostfix,
	lexer.LBRACKET:     precedencePostfix,
	lexer.DOT:          precedencePostfix,
	lexer.DOUBLE_COLON: precedencePostfix,
}

// Parser implements a Pratt-style recursive descent parser for Rill.
// Invariants:
//   - Lookahead: curTok always reflects the token currently under
//     examination; peekTok mirrors the next token pulled from the lexer. The
//     pair forms the parser's sole lookahead window and is only mutated via
//     nextToken.
//   - Diagnostics: errors is an append-only accumulator of recoverable
//     diagnostics. Callers consult Diagnostics() after ParseProgram.
//   - Recovery: a malformed statement never aborts the parse. recoverStmt
//     skips to the next statement boundary and parsing resumes, so a single
//     pass collects every syntax error in the input.
type Parser struct {
	lx      *lexer.Lexer
	curTok  lexer.Token
	peekTok lexer.Token

	errors []diag.Diagnostic

	filename string

	prefixFns map[lexer.TokenType]prefixParseFn
	infixFns  map[lexer.TokenType]infixParseFn

	// noStructLit suppresses `Ident { ... }` struct literals while parsing
	// if/while/for/match heads, where `{` opens the body instead.
	noStructLit bool
}

// New returns a parser initialised with the provided source input.
func New(input string, opts ...Option) *Parser {
	cfg := options{}
	for _, opt := range opts {
		opt(&cfg)
	}

	p := &Parser{
		lx:        lexer.New(input),
		prefixFns: make(map[lexer.TokenType]prefixParseFn),
		infixFns:  make(map[lexer.TokenType]infixParseFn),
		filename:  cfg.filename,
	}

	if cfg.filename != "" {
		p.lx.SetFilename(cfg.filename)
	}

	p.registerPrefix(lexer.IDENT, p.parseIdentOrStructLit)
	p.registerPrefix(lexer.INT, p.parseIntegerLiteral)
	p.registerPrefix(lexer.FLOAT, p.parseFloatLiteral)
	p.registerPrefix(lexer.STRING, p.parseStringLiteral)
	p.registerPrefix(lexer.FSTRING, p.parseFStringLiteral)
	p.registerPrefix(lexer.TRUE, p.parseBoolLiteral)
	p.registerPrefix(lexer.FALSE, p.parseBoolLiteral)
	p.registerPrefix(lexer.MINUS, p.parsePrefixExpr)
	p.registerPrefix(lexer.BANG, p.parsePrefixExpr)
	p.registerPrefix(lexer.LPAREN, p.parseGroupedExpr)
	p.registerPrefix(lexer.LBRACKET, p.parseArrayLiteral)
	p.registerPrefix(lexer.LBRACE, p.parseBlockLiteral)
	p.registerPrefix(lexer.IF, p.parseIfExpr)
	p.registerPrefix(lexer.MATCH, p.parseMatchExpr)
	p.registerPrefix(lexer.PIPE, p.parseLambdaExpr)
	p.registerPrefix(lexer.OR, p.parseEmptyLambdaExpr)

	p.registerInfix(lexer.ASSIGN, p.parseAssignExpr)
	p.registerInfix(lexer.PIPELINE, p.parsePipelineExpr)
	p.registerInfix(lexer.PLUS, p.parseInfixExpr)
	p.registerInfix(lexer.MINUS, p.parseInfixExpr)
	p.registerInfix(lexer.ASTERISK, p.parseInfixExpr)
	p.registerInfix(lexer.SLASH, p.parseInfixExpr)
	p.registerInfix(lexer.PERCENT, p.parseInfixExpr)
	p.registerInfix(lexer.AND, p.parseInfixExpr)
	p.registerInfix(lexer.OR, p.parseInfixExpr)
	p.registerInfix(lexer.EQ, p.parseInfixExpr)
	p.registerInfix(lexer.NOT_EQ, p.parseInfixExpr)
	p.registerInfix(lexer.LT, p.parseInfixExpr)
	p.registerInfix(lexer.LE, p.parseInfixExpr)
	p.registerInfix(lexer.GT, p.parseInfixExpr)
	p.registerInfix(lexer.GE, p.parseInfixExpr)
	p.registerInfix(lexer.LPAREN, p.parseCallExpr)
	p.registerInfix(lexer.LBRACKET, p.parseIndexExpr)
	p.registerInfix(lexer.DOT, p.parseFieldExpr)
	p.registerInfix(lexer.DOUBLE_COLON, p.parseVariantExpr)

	// Seed curTok/peekTok.
	p.nextToken()
	p.nextToken()

	return p
}

// Diagnostics returns all recoverable parse errors that were encountered,
// including lexical errors, in source order.
func (p *Parser) Diagnostics() []diag.Diagnostic {
	var ds []diag.Diagnostic
	for _, lexErr := range p.lx.Errors {
		ds = append(ds, lexErr.ToDiagnostic())
	}
	ds = append(ds, p.errors...)
	return ds
}

// ParseProgram parses a full compilation unit and returns its AST together
// with every diagnostic collected along the way. The AST is always non-nil;
// malformed regions are represented by error placeholders.
func (p *Parser) ParseProgram() (*ast.Program, []diag.Diagnostic) {
	prog := ast.NewProgram(p.curTok.Span)

	for p.curTok.Type != lexer.EOF {
		prevTok := p.curTok

		if isDeclStart(p.curTok.Type) {
			decl := p.parseDecl()
			if decl != nil {
				prog.Decls = append(prog.Decls, decl)
				prog.SetSpan(mergeSpan(prog.Span(), decl.Span()))
				continue
			}
		} else {
			stmt, tail := p.parseStmtOrTail(lexer.EOF)
			if stmt != nil {
				prog.Stmts = append(prog.Stmts, stmt)
				prog.SetSpan(mergeSpan(prog.Span(), stmt.Span()))
				continue
			}
			if tail != nil {
				// Final expression without a semicolon: the program result.
				prog.Stmts = append(prog.Stmts, ast.NewExprStmt(tail, tail.Span()))
				prog.SetSpan(mergeSpan(prog.Span(), tail.Span()))
				continue
			}
		}

		if p.curTok.Type == lexer.EOF {
			break
		}
		p.recoverStmt(prevTok)
	}

	prog.SetSpan(mergeSpan(prog.Span(), p.curTok.Span))

	return prog, p.Diagnostics()
}

// nextToken advances the parser's token window.
// Contract: after calling nextToken, curTok == old(peekTok). The lexer is
// only queried from this hop to keep lookahead bookkeeping centralized.
func (p *Parser) nextToken() {
	p.curTok = p.peekTok
	p.peekTok = p.lx.NextToken()
}

// expect asserts that the peek token matches the provided type. On success
// it promotes peekTok into curTok; expect never rewinds.
func (p *Parser) expect(tt lexer.TokenType) bool {
	if p.peekTok.Type == tt {
		p.nextToken()
		return true
	}

	p.reportError("expected '"+string(tt)+"'", p.peekTok.Span)
	return false
}

func (p *Parser) reportError(msg string, span lexer.Span) {
	p.reportErrorCode(diag.CodeParseUnexpectedToken, msg, span)
}

func (p *Parser) reportErrorCode(code diag.Code, msg string, span lexer.Span) {
	if span.Filename == "" && p.filename != "" {
		span.Filename = p.filename
	}
	p.errors = append(p.errors, diag.Diagnostic{
		Stage:    diag.StageParser,
		Severity: diag.SeverityError,
		Code:     code,
		Message:  msg,
		Span: diag.Span{
			Filename: span.Filename,
			Line:     span.Line,
			Column:   span.Column,
			Start:    span.Start,
			End:      span.End,
		},
	})
}

func (p *Parser) registerPrefix(tokenType lexer.TokenType, fn prefixParseFn) {
	p.prefixFns[tokenType] = fn
}

func (p *Parser) registerInfix(tokenType lexer.TokenType, fn infixParseFn) {
	p.infixFns[tokenType] = fn
}

func sameTokenPosition(a, b lexer.Token) bool {
	return a.Type == b.Type && a.Span.Start == b.Span.Start && a.Span.End == b.Span.End
}

func isDeclStart(tt lexer.TokenType) bool {
	switch tt {
	case lexer.FN, lexer.STRUCT, lexer.ENUM:
		return true
	default:
		return false
	}
}

// recoverStmt skips tokens until the next statement boundary: a semicolon
// (consumed), a closing brace, or something that can start a declaration or
// statement. It always makes progress relative to prev.
func (p *Parser) recoverStmt(prev lexer.Token) {
	if p.curTok.Type == lexer.EOF {
		return
	}

	if sameTokenPosition(p.curTok, prev) {
		p.nextToken()
	}

	for p.curTok.Type != lexer.EOF {
		switch p.curTok.Type {
		case lexer.SEMICOLON:
			p.nextToken()
			return
		case lexer.RBRACE:
			return
		default:
			if isDeclStart(p.curTok.Type) || isStmtStart(p.curTok.Type) {
				return
			}
		}

		p.nextToken()
	}
}

func isStmtStart(tt lexer.TokenType) bool {
	switch tt {
	case lexer.LET, lexer.RETURN, lexer.WHILE, lexer.FOR, lexer.BREAK, lexer.CONTINUE:
		return true
	default:
		return false
	}
}

// mergeSpan assumes start.End <= end.End and returns a span covering both.
// Spans are half-open; callers pass the earliest start span first to keep
// AST node spans monotonic.
func mergeSpan(start, end lexer.Span) lexer.Span {
	span := start

	if span.Filename == "" {
		span.Filename = end.Filename
	}

	if span.Line == 0 && end.Line != 0 {
		span.Line = end.Line
		span.Column = end.Column
		span.Start = end.Start
	}

	if end.End > span.End {
		span.End = end.End
	}

	return span
}
