package parser

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/rill-lang/rill/internal/ast"
	"github.com/rill-lang/rill/internal/diag"
)

// FileResult holds the parse output for one source file.
type FileResult struct {
	Filename    string
	Program     *ast.Program
	Diagnostics []diag.Diagnostic
}

// ParseFiles parses independent source files concurrently. Parsing shares
// no state between files, so each gets its own parser; results come back in
// input order. Type inference stays sequential downstream; only the parse
// is embarrassingly parallel.
func ParseFiles(ctx context.Context, sources map[string]string) ([]FileResult, error) {
	names := make([]string, 0, len(sources))
	for name := range sources {
		names = append(names, name)
	}

	results := make([]FileResult, len(names))

	g, ctx := errgroup.WithContext(ctx)
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			p := New(sources[name], WithFilename(name))
			prog, ds := p.ParseProgram()
			results[i] = FileResult{
				Filename:    name,
				Program:     prog,
				Diagnostics: ds,
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}
