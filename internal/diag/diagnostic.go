package diag

import "fmt"

// Stage identifies which compiler phase produced the diagnostic.
type Stage string

const (
	StageLexer     Stage = "lexer"
	StageParser    Stage = "parser"
	StageTypeCheck Stage = "typecheck"
	StageCodegen   Stage = "codegen"
)

// Severity captures how impactful the diagnostic is.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityNote    Severity = "note"
)

// Code is a stable identifier for a diagnostic.
type Code string

const (
	// Lexer errors
	CodeLexUnterminatedString       Code = "LEX_UNTERMINATED_STRING"
	CodeLexUnterminatedBlockComment Code = "LEX_UNTERMINATED_BLOCK_COMMENT"
	CodeLexIllegalRune              Code = "LEX_ILLEGAL_RUNE"
	CodeLexInvalidUTF8              Code = "LEX_INVALID_UTF8"

	// Parser errors
	CodeParseUnexpectedToken Code = "PARSE_UNEXPECTED_TOKEN"
	CodeParseBadInterpolation Code = "PARSE_BAD_INTERPOLATION"

	// Type checker errors
	CodeTypeUndefinedIdentifier Code = "TYPE_UNDEFINED_IDENTIFIER"
	CodeTypeMismatch            Code = "TYPE_MISMATCH"
	CodeTypeInfiniteType        Code = "TYPE_INFINITE_TYPE"
	CodeTypeArityMismatch       Code = "TYPE_ARITY_MISMATCH"
	CodeTypeNotAFunction        Code = "TYPE_NOT_A_FUNCTION"
	CodeTypeUnknownField        Code = "TYPE_UNKNOWN_FIELD"
	CodeTypeMissingField        Code = "TYPE_MISSING_FIELD"
	CodeTypeUnknownVariant      Code = "TYPE_UNKNOWN_VARIANT"
	CodeTypeInvalidPattern      Code = "TYPE_INVALID_PATTERN"
	CodeTypeNonExhaustiveMatch  Code = "TYPE_NON_EXHAUSTIVE_MATCH"
	CodeTypeImmutableAssign     Code = "TYPE_IMMUTABLE_ASSIGN"
	CodeTypeInvalidOperation    Code = "TYPE_INVALID_OPERATION"
	CodeTypeDuplicateDecl       Code = "TYPE_DUPLICATE_DECL"

	// Backend errors
	CodeGenUnsupportedConstruct Code = "CODEGEN_UNSUPPORTED_CONSTRUCT"
	CodeWasmUnsupportedType     Code = "WASM_UNSUPPORTED_TYPE"
)

// Span represents a location in source code.
type Span struct {
	Filename string
	Line     int
	Column   int
	Start    int
	End      int
}

// String returns a human-readable representation of the span.
func (s Span) String() string {
	if s.Filename != "" {
		return fmt.Sprintf("%s:%d:%d", s.Filename, s.Line, s.Column)
	}
	return fmt.Sprintf("%d:%d", s.Line, s.Column)
}

// IsValid returns true if the span has valid location information.
func (s Span) IsValid() bool {
	return s.Line > 0 && s.Column > 0
}

// Len returns the number of source runes the span covers.
func (s Span) Len() int {
	if s.End > s.Start {
		return s.End - s.Start
	}
	return 0
}

// Diagnostic is a compiler diagnostic surfaced to end-users. Diagnostics are
// collected per pass, never returned one at a time.
type Diagnostic struct {
	Stage      Stage
	Severity   Severity
	Code       Code
	Message    string
	Span       Span
	Suggestion string   // Optional suggestion for fixing the error
	Notes      []string // Additional notes to display
}

// WithSuggestion returns a new diagnostic with the given suggestion.
func (d Diagnostic) WithSuggestion(suggestion string) Diagnostic {
	d.Suggestion = suggestion
	return d
}

// WithNote adds a note to the diagnostic.
func (d Diagnostic) WithNote(note string) Diagnostic {
	d.Notes = append(d.Notes, note)
	return d
}

// HasErrors reports whether any diagnostic in the batch is an error.
func HasErrors(ds []Diagnostic) bool {
	for _, d := range ds {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}
