package diag

import (
	"bytes"
	"strings"
	"testing"
)

func TestFormatHeaderAndLocation(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(&buf)
	f.AddSource("demo.rill", "let x = 1 + true;\n")

	f.Format(Diagnostic{
		Stage:    StageTypeCheck,
		Severity: SeverityError,
		Code:     CodeTypeMismatch,
		Message:  "cannot add Int and Bool",
		Span:     Span{Filename: "demo.rill", Line: 1, Column: 9, Start: 8, End: 16},
	})

	out := buf.String()
	if !strings.Contains(out, "error[TYPE_MISMATCH]: cannot add Int and Bool") {
		t.Fatalf("header missing: %q", out)
	}
	if !strings.Contains(out, "--> demo.rill:1:9") {
		t.Fatalf("location missing: %q", out)
	}
}

func TestFormatSnippetCaret(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(&buf)
	f.AddSource("", "print(1 / 0);")

	f.Format(Diagnostic{
		Severity: SeverityWarning,
		Message:  "division by constant zero",
		Span:     Span{Line: 1, Column: 7, Start: 6, End: 11},
	})

	out := buf.String()
	if !strings.Contains(out, " 1 | print(1 / 0);") {
		t.Fatalf("source line missing: %q", out)
	}
	// Caret sits under `1 / 0`, five runes wide.
	if !strings.Contains(out, "   |       ^^^^^") {
		t.Fatalf("caret underline wrong: %q", out)
	}
}

func TestFormatNotesAndSuggestion(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(&buf)

	d := Diagnostic{
		Severity: SeverityError,
		Message:  "unknown variant Circl",
		Code:     CodeTypeUnknownVariant,
	}
	d = d.WithNote("enum Shape has variants Circle, Rect, Dot")
	d = d.WithSuggestion("did you mean Circle?")

	f.Format(d)

	out := buf.String()
	if !strings.Contains(out, "= note: enum Shape has variants") {
		t.Fatalf("note missing: %q", out)
	}
	if !strings.Contains(out, "help: did you mean Circle?") {
		t.Fatalf("suggestion missing: %q", out)
	}
}

func TestFormatWithoutSourceSkipsSnippet(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(&buf)

	f.Format(Diagnostic{
		Severity: SeverityError,
		Message:  "oops",
		Span:     Span{Filename: "missing.rill", Line: 3, Column: 1},
	})

	out := buf.String()
	if !strings.Contains(out, "--> missing.rill:3:1") {
		t.Fatalf("location missing: %q", out)
	}
	if strings.Contains(out, "|") {
		t.Fatalf("no snippet should render without source: %q", out)
	}
}

func TestFormatAllKeepsOrder(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(&buf)

	f.FormatAll([]Diagnostic{
		{Severity: SeverityError, Message: "first"},
		{Severity: SeverityWarning, Message: "second"},
	})

	out := buf.String()
	if strings.Index(out, "first") > strings.Index(out, "second") {
		t.Fatalf("diagnostics out of order: %q", out)
	}
}

func TestHasErrors(t *testing.T) {
	if HasErrors([]Diagnostic{{Severity: SeverityWarning}}) {
		t.Fatal("warnings alone are not errors")
	}
	if !HasErrors([]Diagnostic{{Severity: SeverityWarning}, {Severity: SeverityError}}) {
		t.Fatal("an error anywhere in the batch counts")
	}
}

func TestSpanString(t *testing.T) {
	if got := (Span{Filename: "a.rill", Line: 2, Column: 5}).String(); got != "a.rill:2:5" {
		t.Fatalf("got %q", got)
	}
	if got := (Span{Line: 2, Column: 5}).String(); got != "2:5" {
		t.Fatalf("got %q", got)
	}
}
