package compiler_test

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/rill-lang/rill/internal/compiler"
	"github.com/rill-lang/rill/internal/diag"
)

// docExample is one fenced ```rill block pulled out of a Markdown file,
// tagged with the nearest heading above it for the test name.
type docExample struct {
	Heading string
	Source  string
}

// extractExamples walks a Markdown document and collects every fenced
// code block whose language is "rill".
func extractExamples(markdown []byte) []docExample {
	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(markdown))

	var examples []docExample
	heading := ""

	_ = ast.Walk(doc, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch n := node.(type) {
		case *ast.Heading:
			var buf bytes.Buffer
			for i := 0; i < n.Lines().Len(); i++ {
				seg := n.Lines().At(i)
				buf.Write(seg.Value(markdown))
			}
			heading = buf.String()

		case *ast.FencedCodeBlock:
			if string(n.Language(markdown)) != "rill" {
				return ast.WalkContinue, nil
			}
			var buf bytes.Buffer
			for i := 0; i < n.Lines().Len(); i++ {
				seg := n.Lines().At(i)
				buf.Write(seg.Value(markdown))
			}
			examples = append(examples, docExample{Heading: heading, Source: buf.String()})
		}
		return ast.WalkContinue, nil
	})

	return examples
}

// TestDocsExamplesRun compiles and evaluates every rill code block in
// docs/. The tour stays honest: an example that stops compiling fails
// the suite.
func TestDocsExamplesRun(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("..", "..", "docs", "*.md"))
	require.NoError(t, err)
	require.NotEmpty(t, paths, "no docs found")

	total := 0
	for _, path := range paths {
		markdown, err := os.ReadFile(path)
		require.NoError(t, err)

		examples := extractExamples(markdown)
		total += len(examples)

		for i, ex := range examples {
			name := fmt.Sprintf("%s/%d_%s", filepath.Base(path), i, ex.Heading)
			t.Run(name, func(t *testing.T) {
				var out bytes.Buffer
				_, ds, err := compiler.Run(ex.Source, &out)
				assert.False(t, diag.HasErrors(ds), "diagnostics: %v", ds)
				assert.NoError(t, err)
			})
		}
	}

	assert.True(t, total >= 10, "expected the tour to carry real coverage, got %d examples", total)
}

func TestDocsExtractionIgnoresOtherLanguages(t *testing.T) {
	markdown := []byte("# One\n```rill\nprint(1);\n```\n```sh\nrill run x.rill\n```\n")

	examples := extractExamples(markdown)

	require.Len(t, examples, 1)
	assert.Equal(t, "One", examples[0].Heading)
	assert.Equal(t, "print(1);\n", examples[0].Source)
}
