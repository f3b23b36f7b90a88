package diag

import (
	"fmt"
	"io"
	"strings"
)

// Formatter renders diagnostics with source snippets and caret underlines.
// The core never touches the filesystem: callers hand over the source text
// they already loaded.
type Formatter struct {
	w       io.Writer
	sources map[string]string // filename -> source text
}

// NewFormatter creates a formatter writing to w.
func NewFormatter(w io.Writer) *Formatter {
	return &Formatter{
		w:       w,
		sources: make(map[string]string),
	}
}

// AddSource registers source text for a filename so spans can be rendered
// with the offending line. The empty filename is the anonymous buffer.
func (f *Formatter) AddSource(filename, src string) {
	f.sources[filename] = src
}

// FormatAll renders a batch of diagnostics in order.
func (f *Formatter) FormatAll(ds []Diagnostic) {
	for _, d := range ds {
		f.Format(d)
	}
}

// Format renders a single diagnostic.
func (f *Formatter) Format(d Diagnostic) {
	severity := string(d.Severity)
	if severity == "" {
		severity = string(SeverityError)
	}

	if d.Code != "" {
		fmt.Fprintf(f.w, "%s[%s]: %s\n", severity, d.Code, d.Message)
	} else {
		fmt.Fprintf(f.w, "%s: %s\n", severity, d.Message)
	}

	if d.Span.IsValid() {
		fmt.Fprintf(f.w, "  --> %s\n", d.Span.String())
		f.printSnippet(d.Span)
	}

	for _, note := range d.Notes {
		fmt.Fprintf(f.w, "  = note: %s\n", note)
	}
	if d.Suggestion != "" {
		fmt.Fprintf(f.w, "help: %s\n", d.Suggestion)
	}
}

// printSnippet prints the source line a span points at with a caret
// underline covering the span's width.
func (f *Formatter) printSnippet(span Span) {
	src, ok := f.sources[span.Filename]
	if !ok {
		return
	}

	lines := strings.Split(src, "\n")
	if span.Line < 1 || span.Line > len(lines) {
		return
	}
	line := lines[span.Line-1]

	width := len(fmt.Sprintf("%d", span.Line))
	fmt.Fprintf(f.w, " %*d | %s\n", width, span.Line, line)

	caretStart := span.Column - 1
	if caretStart < 0 {
		caretStart = 0
	}
	if caretStart > len(line) {
		caretStart = len(line)
	}
	caretLen := span.Len()
	if caretLen < 1 {
		caretLen = 1
	}
	if caretStart+caretLen > len(line)+1 {
		caretLen = len(line) + 1 - caretStart
		if caretLen < 1 {
			caretLen = 1
		}
	}
	fmt.Fprintf(f.w, " %s | %s%s\n",
		strings.Repeat(" ", width),
		strings.Repeat(" ", caretStart),
		strings.Repeat("^", caretLen))
}
