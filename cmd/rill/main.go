// Command rill drives the compiler: evaluate a program, emit it as Go
// source, emit it as a WebAssembly binary, or just check it.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rill-lang/rill/internal/compiler"
	"github.com/rill-lang/rill/internal/diag"
	"github.com/rill-lang/rill/internal/interp"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "rill:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "rill",
		Short:         "Rill language toolchain",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(runCmd(), checkCmd(), buildCmd(), wasmCmd())
	return cmd
}

// readSource loads the program and remembers the filename for diagnostics.
func readSource(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// report prints diagnostics with source snippets and returns an error when
// any of them is fatal.
func report(path, source string, ds []diag.Diagnostic) error {
	if len(ds) == 0 {
		return nil
	}
	f := diag.NewFormatter(os.Stderr)
	f.AddSource(path, source)
	f.FormatAll(ds)
	if diag.HasErrors(ds) {
		return fmt.Errorf("%s did not compile", path)
	}
	return nil
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <file>",
		Short: "Compile and evaluate a program",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := readSource(args[0])
			if err != nil {
				return err
			}
			value, ds, err := compiler.Run(source, cmd.OutOrStdout())
			if reportErr := report(args[0], source, ds); reportErr != nil {
				return reportErr
			}
			if err != nil {
				return err
			}
			if value.Kind != interp.KindUnit {
				fmt.Fprintln(cmd.OutOrStdout(), value.Render())
			}
			return nil
		},
	}
}

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <file>",
		Short: "Parse and type-check without running",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := readSource(args[0])
			if err != nil {
				return err
			}
			_, ds := compiler.Compile(source)
			return report(args[0], source, ds)
		},
	}
}

func buildCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "build <file>",
		Short: "Compile to a standalone Go program",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := readSource(args[0])
			if err != nil {
				return err
			}
			goSrc, ds, err := compiler.EmitGo(source)
			if reportErr := report(args[0], source, ds); reportErr != nil {
				return reportErr
			}
			if err != nil {
				return err
			}
			if output == "" {
				fmt.Fprint(cmd.OutOrStdout(), goSrc)
				return nil
			}
			return os.WriteFile(output, []byte(goSrc), 0o644)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write generated Go to a file instead of stdout")
	return cmd
}

func wasmCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "wasm <file>",
		Short: "Compile to a WebAssembly binary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := readSource(args[0])
			if err != nil {
				return err
			}
			b, ds, err := compiler.EmitWASM(source)
			if reportErr := report(args[0], source, ds); reportErr != nil {
				return reportErr
			}
			if err != nil {
				return err
			}
			if output == "" {
				output = "out.wasm"
			}
			return os.WriteFile(output, b, 0o644)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output path (default out.wasm)")
	return cmd
}
