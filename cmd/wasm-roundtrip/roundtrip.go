package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tetratelabs/wazero"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wippyai/wasm-ir/ir"
	"github.com/wippyai/wasm-ir/passes/gc"
)

// params holds the flags of one invocation so run can be tested without
// a cobra command.
type params struct {
	stdout io.Writer
	inputs []string
	output string
	jobs   int

	gc        bool
	check     bool
	dwarf     bool
	names     bool
	synthetic bool
	strict    bool
	producers bool
	stable    bool
	transform bool
	styled    bool
}

func (p params) config() ir.Config {
	return ir.NewConfig().
		WithDWARF(p.dwarf).
		WithNameSection(p.names).
		WithSyntheticNames(p.synthetic).
		WithStrictValidate(p.strict).
		WithProducersSection(p.producers).
		WithOnlyStableFeatures(p.stable).
		WithCodeTransform(p.transform)
}

type result struct {
	input   string
	output  string
	inSize  int
	outSize int
	removed gc.Stats
	offsets int
}

// outputPath returns where the re-encoded input goes.
func (p params) outputPath(input string) string {
	if p.output != "" {
		return p.output
	}
	ext := filepath.Ext(input)
	return strings.TrimSuffix(input, ext) + ".roundtrip" + ext
}

func run(ctx context.Context, p params) ([]result, error) {
	if p.output != "" && len(p.inputs) > 1 {
		return nil, fmt.Errorf("-o needs a single input, got %d", len(p.inputs))
	}
	var compiler wazero.Runtime
	if p.check {
		compiler = wazero.NewRuntime(ctx)
		defer compiler.Close(ctx)
	}

	results := make([]result, len(p.inputs))
	g, ctx := errgroup.WithContext(ctx)
	if p.jobs > 0 {
		g.SetLimit(p.jobs)
	}
	cfg := p.config()
	for i, input := range p.inputs {
		g.Go(func() error {
			res, err := roundTrip(ctx, cfg, compiler, input, p.outputPath(input), p.gc)
			if err != nil {
				return fmt.Errorf("%s: %w", input, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// roundTrip handles one file. Each call owns its Module.
func roundTrip(ctx context.Context, cfg ir.Config, compiler wazero.Runtime, input, output string, collect bool) (result, error) {
	res := result{input: input, output: output}
	data, err := os.ReadFile(input)
	if err != nil {
		return res, fmt.Errorf("read: %w", err)
	}
	res.inSize = len(data)

	m, err := cfg.Parse(data)
	if err != nil {
		return res, err
	}
	if collect {
		if res.removed, err = gc.Run(m); err != nil {
			return res, fmt.Errorf("gc: %w", err)
		}
	}

	out, transform := m.EmitWithTransform()
	res.outSize = len(out)
	if !transform.Empty() {
		res.offsets = len(transform.Instructions)
	}
	if err := os.WriteFile(output, out, 0o644); err != nil {
		return res, fmt.Errorf("write: %w", err)
	}
	ir.Logger().Debug("round trip",
		zap.String("input", input),
		zap.String("output", output),
		zap.Int("in", res.inSize),
		zap.Int("out", res.outSize))

	if compiler != nil {
		compiled, err := compiler.CompileModule(ctx, out)
		if err != nil {
			return res, fmt.Errorf("check: %w", err)
		}
		if err := compiled.Close(ctx); err != nil {
			return res, fmt.Errorf("check: %w", err)
		}
	}
	return res, nil
}
