// Command wasm-roundtrip decodes WebAssembly modules into the IR,
// optionally collects unreachable entities, and encodes them again.
package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-ir/ir"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		p       params
		verbose bool
	)
	cmd := &cobra.Command{
		Use:     "wasm-roundtrip [flags] <file.wasm>...",
		Short:   "Decode, optionally collect, and re-encode WebAssembly modules",
		Version: ir.Version,
		Example: `  # Round trip a module next to itself (app.roundtrip.wasm)
  wasm-roundtrip app.wasm

  # Drop unreachable code and check the result compiles
  wasm-roundtrip -gc -check -o app.min.wasm app.wasm`,
		Args:          cobra.MinimumNArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := newLogger(verbose)
			if err != nil {
				return fmt.Errorf("logger: %w", err)
			}
			defer func() { _ = log.Sync() }()
			ir.SetLogger(log)

			p.inputs = args
			p.stdout = cmd.OutOrStdout()
			p.styled = isTerminal(os.Stdout) && p.stdout == os.Stdout
			results, err := run(cmd.Context(), p)
			if len(results) > 0 {
				printSummary(p.stdout, results, p.styled)
			}
			return err
		},
	}

	f := cmd.Flags()
	f.StringVarP(&p.output, "output", "o", "", "output path (single input only)")
	f.BoolVar(&p.gc, "gc", false, "remove unreachable functions, globals and segments")
	f.BoolVar(&p.check, "check", false, "compile every output with wazero")
	f.IntVarP(&p.jobs, "jobs", "j", runtime.NumCPU(), "files processed concurrently")
	f.BoolVarP(&verbose, "verbose", "v", false, "development logging at debug level")
	f.BoolVar(&p.dwarf, "dwarf", false, "keep .debug_* sections")
	f.BoolVar(&p.names, "names", true, "emit a name section")
	f.BoolVar(&p.synthetic, "synthetic-names", false, "name anonymous functions, locals and globals")
	f.BoolVar(&p.strict, "strict", true, "reject modules that fail strict validation")
	f.BoolVar(&p.producers, "producers", true, "record this tool in the producers section")
	f.BoolVar(&p.stable, "stable", false, "reject features that are not yet standardized")
	f.BoolVar(&p.transform, "transform", false, "compute the code offset transform")
	return cmd
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	cfg.Encoding = "console"
	return cfg.Build()
}
