package lexer

import (
	"strconv"
	"unicode"
	"unicode/utf8"

	"github.com/rill-lang/rill/internal/diag"
)

type ErrorKind int

const (
	ErrUnterminatedString ErrorKind = iota
	ErrUnterminatedBlockComment
	ErrIllegalRune
	ErrInvalidUTF8
)

// Error captures a lexical error with location context. The lexer never
// aborts: errors accumulate and an ILLEGAL token is emitted in place of the
// offending input so the parser can keep going.
type Error struct {
	Kind    ErrorKind
	Message string
	Span    Span
}

func (k ErrorKind) diagnosticCode() diag.Code {
	switch k {
	case ErrUnterminatedString:
		return diag.CodeLexUnterminatedString
	case ErrUnterminatedBlockComment:
		return diag.CodeLexUnterminatedBlockComment
	case ErrIllegalRune:
		return diag.CodeLexIllegalRune
	case ErrInvalidUTF8:
		return diag.CodeLexInvalidUTF8
	default:
		return diag.Code("LEX_UNKNOWN_ERROR")
	}
}

// ToDiagnostic converts a lexer error into a shared diagnostic structure.
func (e Error) ToDiagnostic() diag.Diagnostic {
	return diag.Diagnostic{
		Stage:    diag.StageLexer,
		Severity: diag.SeverityError,
		Code:     e.Kind.diagnosticCode(),
		Message:  e.Message,
		Span: diag.Span{
			Filename: e.Span.Filename,
			Line:     e.Span.Line,
			Column:   e.Span.Column,
			Start:    e.Span.Start,
			End:      e.Span.End,
		},
	}
}

// Lexer represents the lexer state
type Lexer struct {
	input    []rune
	pos      int  // index of the current rune
	ch       rune // current rune (0 = EOF)
	line     int  // current line number (1-based)
	column   int  // current column number (1-based)
	filename string

	Errors []Error
}

func (l *Lexer) addError(kind ErrorKind, msg string, span Span) {
	span.Filename = l.filename
	l.Errors = append(l.Errors, Error{
		Kind:    kind,
		Message: msg,
		Span:    span,
	})
}

// New creates a new lexer for the given input
func New(input string) *Lexer {
	l := &Lexer{
		input:  []rune(input),
		pos:    -1, // start before first rune
		ch:     0,
		line:   1,
		column: 0, // will be 1 after first read()
	}
	l.read() // move to first character
	return l
}

// SetFilename attributes all subsequent spans to the given filename.
func (l *Lexer) SetFilename(name string) {
	l.filename = name
}

// Tokenize drains the lexer and returns every token up to and including EOF.
func (l *Lexer) Tokenize() []Token {
	var toks []Token
	for {
		tok := l.NextToken()
		toks = append(toks, tok)
		if tok.Type == EOF {
			return toks
		}
	}
}

// read advances the lexer to the next character. Line/column always reflect
// the position of the character at pos; tracking is incremental, the input
// is never rescanned.
func (l *Lexer) read() {
	l.pos++
	prevPos := l.pos - 1
	inputLen := len(l.input)

	if l.pos >= inputLen {
		// Moved past the last rune; normalize position to virtual EOF.
		if prevPos >= 0 && prevPos < inputLen {
			if l.input[prevPos] == '\n' {
				l.line++
				l.column = 1
			} else {
				l.column++
			}
		} else if prevPos < 0 {
			l.column = 1
		}
		l.ch = 0 // EOF
		return
	}

	l.ch = l.input[l.pos]

	if prevPos >= 0 && prevPos < inputLen && l.input[prevPos] == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
}

// peek returns the next character without advancing
func (l *Lexer) peek() rune {
	if l.pos+1 >= len(l.input) {
		return 0
	}
	return l.input[l.pos+1]
}

// currentSpanStart returns the current position for span tracking
func (l *Lexer) currentSpanStart() (line, column, pos int) {
	return l.line, l.column, l.pos
}

// makeToken creates a token with span information
func (l *Lexer) makeToken(tokType TokenType, startLine, startColumn, startPos, endPos int, raw, value string) Token {
	return Token{
		Type:  tokType,
		Raw:   raw,
		Value: value,
		Span: Span{
			Filename: l.filename,
			Line:     startLine,
			Column:   startColumn,
			Start:    startPos,
			End:      endPos,
		},
	}
}

// operator emits a single- or double-rune operator token. If the rune
// following the current one equals second, the two-rune form wins.
func (l *Lexer) operator(single TokenType, second rune, double TokenType) Token {
	startLine, startColumn, startPos := l.currentSpanStart()
	if second != 0 && l.peek() == second {
		raw := string(l.ch) + string(second)
		l.read()
		l.read()
		return l.makeToken(double, startLine, startColumn, startPos, l.pos, raw, raw)
	}
	raw := string(l.ch)
	l.read()
	return l.makeToken(single, startLine, startColumn, startPos, l.pos, raw, raw)
}

func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
		l.read()
	}
}

func (l *Lexer) skipLineComment() {
	for l.ch != '\n' && l.ch != '\r' && l.ch != 0 {
		l.read()
	}
}

// skipBlockComment skips a nestable block comment. The depth counter is the
// only state: unterminated comments surface as an accumulated error, not an
// abort, so pathological nesting cannot wedge the lexer.
func (l *Lexer) skipBlockComment(startLine, startColumn, startPos int) {
	depth := 1
	for depth > 0 {
		if l.ch == 0 {
			l.addError(
				ErrUnterminatedBlockComment,
				"unterminated block comment",
				Span{Line: startLine, Column: startColumn, Start: startPos, End: l.pos},
			)
			return
		}
		if l.ch == '/' && l.peek() == '*' {
			l.read()
			l.read()
			depth++
		} else if l.ch == '*' && l.peek() == '/' {
			l.read()
			l.read()
			depth--
		} else {
			l.read()
		}
	}
}

// readIdentifier reads an identifier or keyword
func (l *Lexer) readIdentifier() string {
	start := l.pos
	for isLetter(l.ch) || isDigit(l.ch) {
		l.read()
	}
	return string(l.input[start:l.pos])
}

// readNumber reads a number literal (decimal, hex 0x..., binary 0b..., float)
func (l *Lexer) readNumber() (string, TokenType) {
	start := l.pos
	l.read()

	// Check for hex (0x) or binary (0b) prefix
	if start == l.pos-1 && l.input[start] == '0' {
		switch l.ch {
		case 'x', 'X':
			l.read()
			for isHexDigit(l.ch) || l.ch == '_' {
				l.read()
			}
			return string(l.input[start:l.pos]), INT
		case 'b', 'B':
			l.read()
			for l.ch == '0' || l.ch == '1' || l.ch == '_' {
				l.read()
			}
			return string(l.input[start:l.pos]), INT
		}
	}

	for isDigit(l.ch) || l.ch == '_' {
		l.read()
	}

	isFloat := false

	// A decimal point only belongs to the number when a digit follows;
	// `0..n` must stay INT DOTDOT INT.
	if l.ch == '.' && isDigit(l.peek()) {
		isFloat = true
		l.read()
		for isDigit(l.ch) || l.ch == '_' {
			l.read()
		}
	}

	if l.ch == 'e' || l.ch == 'E' {
		isFloat = true
		l.read()
		if l.ch == '+' || l.ch == '-' {
			l.read()
		}
		for isDigit(l.ch) || l.ch == '_' {
			l.read()
		}
	}

	if isFloat {
		return string(l.input[start:l.pos]), FLOAT
	}
	return string(l.input[start:l.pos]), INT
}

// NextToken returns the next token from the input
func (l *Lexer) NextToken() Token {
	for {
		l.skipWhitespace()

		switch l.ch {
		case 0:
			startLine, startColumn, startPos := l.currentSpanStart()
			if startColumn == 0 {
				startColumn = 1
			}
			return l.makeToken(EOF, startLine, startColumn, startPos, startPos, "", "")

		case '=':
			startLine, startColumn, startPos := l.currentSpanStart()
			switch l.peek() {
			case '=':
				l.read()
				l.read()
				return l.makeToken(EQ, startLine, startColumn, startPos, l.pos, "==", "==")
			case '>':
				l.read()
				l.read()
				return l.makeToken(FATARROW, startLine, startColumn, startPos, l.pos, "=>", "=>")
			default:
				l.read()
				return l.makeToken(ASSIGN, startLine, startColumn, startPos, l.pos, "=", "=")
			}

		case '+':
			return l.operator(PLUS, 0, "")

		case '-':
			return l.operator(MINUS, '>', ARROW)

		case '!':
			return l.operator(BANG, '=', NOT_EQ)

		case '*':
			return l.operator(ASTERISK, 0, "")

		case '%':
			return l.operator(PERCENT, 0, "")

		case '/':
			startLine, startColumn, startPos := l.currentSpanStart()
			switch l.peek() {
			case '/':
				l.read()
				l.read()
				l.skipLineComment()
				continue
			case '*':
				l.read()
				l.read()
				l.skipBlockComment(startLine, startColumn, startPos)
				continue
			default:
				l.read()
				return l.makeToken(SLASH, startLine, startColumn, startPos, l.pos, "/", "/")
			}

		case '<':
			return l.operator(LT, '=', LE)

		case '>':
			return l.operator(GT, '=', GE)

		case '&':
			startLine, startColumn, startPos := l.currentSpanStart()
			if l.peek() == '&' {
				l.read()
				l.read()
				return l.makeToken(AND, startLine, startColumn, startPos, l.pos, "&&", "&&")
			}
			return l.illegalToken()

		case '|':
			startLine, startColumn, startPos := l.currentSpanStart()
			switch l.peek() {
			case '|':
				l.read()
				l.read()
				return l.makeToken(OR, startLine, startColumn, startPos, l.pos, "||", "||")
			case '>':
				l.read()
				l.read()
				return l.makeToken(PIPELINE, startLine, startColumn, startPos, l.pos, "|>", "|>")
			default:
				l.read()
				return l.makeToken(PIPE, startLine, startColumn, startPos, l.pos, "|", "|")
			}

		case ';':
			return l.operator(SEMICOLON, 0, "")

		case ',':
			return l.operator(COMMA, 0, "")

		case ':':
			return l.operator(COLON, ':', DOUBLE_COLON)

		case '.':
			return l.operator(DOT, '.', DOTDOT)

		case '"':
			startLine, startColumn, startPos := l.currentSpanStart()
			raw, value, terminated := l.readString(startLine, startColumn, startPos)
			if !terminated {
				return l.makeToken(ILLEGAL, startLine, startColumn, startPos, l.pos, raw, raw)
			}
			return l.makeToken(STRING, startLine, startColumn, startPos, l.pos, raw, value)

		case '(':
			return l.operator(LPAREN, 0, "")
		case ')':
			return l.operator(RPAREN, 0, "")
		case '{':
			return l.operator(LBRACE, 0, "")
		case '}':
			return l.operator(RBRACE, 0, "")
		case '[':
			return l.operator(LBRACKET, 0, "")
		case ']':
			return l.operator(RBRACKET, 0, "")

		default:
			if l.ch == utf8.RuneError {
				startLine, startColumn, startPos := l.currentSpanStart()
				raw := string(l.ch)
				l.read()
				tok := l.makeToken(ILLEGAL, startLine, startColumn, startPos, l.pos, raw, raw)
				l.addError(ErrInvalidUTF8, "malformed UTF-8 in source", tok.Span)
				return tok
			}
			if l.ch == 'f' && l.peek() == '"' {
				startLine, startColumn, startPos := l.currentSpanStart()
				l.read() // consume 'f'
				raw, value, terminated := l.readString(startLine, startColumn, startPos)
				raw = "f" + raw
				if !terminated {
					return l.makeToken(ILLEGAL, startLine, startColumn, startPos, l.pos, raw, raw)
				}
				return l.makeToken(FSTRING, startLine, startColumn, startPos, l.pos, raw, value)
			}
			if isLetter(l.ch) {
				startLine, startColumn, startPos := l.currentSpanStart()
				literal := l.readIdentifier()
				tokType := LookupIdent(literal)
				return l.makeToken(tokType, startLine, startColumn, startPos, l.pos, literal, literal)
			}
			if isDigit(l.ch) {
				startLine, startColumn, startPos := l.currentSpanStart()
				literal, tokType := l.readNumber()
				return l.makeToken(tokType, startLine, startColumn, startPos, l.pos, literal, literal)
			}
			return l.illegalToken()
		}
	}
}

func (l *Lexer) illegalToken() Token {
	startLine, startColumn, startPos := l.currentSpanStart()
	raw := string(l.ch)
	l.read()
	tok := l.makeToken(ILLEGAL, startLine, startColumn, startPos, l.pos, raw, raw)
	l.addError(
		ErrIllegalRune,
		"illegal character "+strconv.Quote(raw),
		tok.Span,
	)
	return tok
}

func isLetter(ch rune) bool {
	return unicode.IsLetter(ch) || ch == '_'
}

func isDigit(ch rune) bool {
	// Numeric literals are restricted to ASCII digits.
	return ch >= '0' && ch <= '9'
}

func isHexDigit(ch rune) bool {
	return (ch >= '0' && ch <= '9') ||
		(ch >= 'a' && ch <= 'f') ||
		(ch >= 'A' && ch <= 'F')
}

// readString reads a string literal body starting at the opening quote,
// handling escape sequences. Returns the raw text (with escapes), the
// decoded value, and whether the closing quote was found. Interpolation
// braces inside f-strings pass through untouched; the parser splits them.
func (l *Lexer) readString(startLine, startColumn, startPos int) (raw string, value string, terminated bool) {
	var rawRunes []rune
	var decodedRunes []rune

	rawRunes = append(rawRunes, '"')
	l.read() // skip opening quote

	for {
		if l.ch == 0 {
			l.addError(
				ErrUnterminatedString,
				"unterminated string literal",
				Span{Line: startLine, Column: startColumn, Start: startPos, End: l.pos},
			)
			break
		}
		if l.ch == '"' {
			rawRunes = append(rawRunes, '"')
			l.read() // consume closing quote
			return string(rawRunes), string(decodedRunes), true
		}
		if l.ch == '\n' || l.ch == '\r' {
			l.addError(
				ErrUnterminatedString,
				"newline in string literal",
				Span{Line: startLine, Column: startColumn, Start: startPos, End: l.pos},
			)
			break
		}
		if l.ch == '\\' {
			rawRunes = append(rawRunes, '\\')
			l.read()
			if l.ch != 0 {
				rawRunes = append(rawRunes, l.ch)
				switch l.ch {
				case 'n':
					decodedRunes = append(decodedRunes, '\n')
				case 't':
					decodedRunes = append(decodedRunes, '\t')
				case 'r':
					decodedRunes = append(decodedRunes, '\r')
				case '\\':
					decodedRunes = append(decodedRunes, '\\')
				case '"':
					decodedRunes = append(decodedRunes, '"')
				default:
					decodedRunes = append(decodedRunes, '\\', l.ch)
				}
				l.read()
			}
			continue
		}
		rawRunes = append(rawRunes, l.ch)
		decodedRunes = append(decodedRunes, l.ch)
		l.read()
	}

	return string(rawRunes), string(decodedRunes), false
}
