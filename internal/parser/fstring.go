package parser

import (
	"strings"

	"github.com/rill-lang/rill/internal/ast"
	"github.com/rill-lang/rill/internal/diag"
	"github.com/rill-lang/rill/internal/lexer"
)

// parseFStringLiteral splits an f-string token into literal text and
// embedded expression parts. Each `{...}` fragment is handed to a fresh
// sub-parser; `{{` and `}}` escape literal braces. The interpolation itself
// carries no AST operator: lowering turns the parts into StringConcat and
// ToString, and every backend sees only those.
func (p *Parser) parseFStringLiteral() ast.Expr {
	tokSpan := p.curTok.Span
	body := p.curTok.Value

	var parts []ast.FStringPart
	var text strings.Builder

	flush := func() {
		if text.Len() > 0 {
			parts = append(parts, ast.FStringPart{Text: text.String()})
			text.Reset()
		}
	}

	runes := []rune(body)
	for i := 0; i < len(runes); i++ {
		ch := runes[i]

		switch {
		case ch == '{' && i+1 < len(runes) && runes[i+1] == '{':
			text.WriteRune('{')
			i++

		case ch == '}' && i+1 < len(runes) && runes[i+1] == '}':
			text.WriteRune('}')
			i++

		case ch == '{':
			end, ok := findInterpolationEnd(runes, i+1)
			if !ok {
				p.reportErrorCode(diag.CodeParseBadInterpolation,
					"unterminated '{' in f-string", tokSpan)
				return ast.NewBadExpr(tokSpan)
			}

			fragment := string(runes[i+1 : end])
			expr := p.parseInterpolatedExpr(fragment, tokSpan)
			if expr == nil {
				return ast.NewBadExpr(tokSpan)
			}

			flush()
			parts = append(parts, ast.FStringPart{Expr: expr})
			i = end

		case ch == '}':
			p.reportErrorCode(diag.CodeParseBadInterpolation,
				"unmatched '}' in f-string", tokSpan)
			return ast.NewBadExpr(tokSpan)

		default:
			text.WriteRune(ch)
		}
	}
	flush()

	return ast.NewFStringLit(parts, tokSpan)
}

// findInterpolationEnd returns the index of the '}' closing the
// interpolation opened just before start, honoring nested braces.
func findInterpolationEnd(runes []rune, start int) (int, bool) {
	depth := 1
	for i := start; i < len(runes); i++ {
		switch runes[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

// parseInterpolatedExpr parses one `{...}` fragment with a sub-parser and
// folds its diagnostics into the enclosing parse, attributed to the
// f-string's span.
func (p *Parser) parseInterpolatedExpr(fragment string, tokSpan lexer.Span) ast.Expr {
	if strings.TrimSpace(fragment) == "" {
		p.reportErrorCode(diag.CodeParseBadInterpolation,
			"empty interpolation in f-string", tokSpan)
		return nil
	}

	sub := New(fragment)
	expr := sub.parseExpression(precedenceLowest)

	if sub.peekTok.Type != lexer.EOF {
		sub.reportError("unexpected trailing tokens in interpolation", sub.peekTok.Span)
	}

	for _, d := range sub.Diagnostics() {
		d.Span = diag.Span{
			Filename: tokSpan.Filename,
			Line:     tokSpan.Line,
			Column:   tokSpan.Column,
			Start:    tokSpan.Start,
			End:      tokSpan.End,
		}
		d.Message = d.Message + " (in f-string interpolation)"
		p.errors = append(p.errors, d)
	}

	if expr == nil || diag.HasErrors(sub.Diagnostics()) {
		return nil
	}

	return expr
}
