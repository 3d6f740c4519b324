package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wippyai/wasm-ir/ir"
)

// answerWasm exports "answer" returning 42 and carries an unused function.
var answerWasm = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	0x01, 0x05, 0x01, 0x60, 0x00, 0x01, 0x7f, // () -> i32
	0x03, 0x03, 0x02, 0x00, 0x00, // two functions
	0x07, 0x0a, 0x01, 0x06, 'a', 'n', 's', 'w', 'e', 'r', 0x00, 0x00,
	0x0a, 0x0b, 0x02,
	0x04, 0x00, 0x41, 0x2a, 0x0b, // i32.const 42
	0x04, 0x00, 0x41, 0x07, 0x0b, // i32.const 7
}

func writeInput(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func baseParams(inputs ...string) params {
	return params{inputs: inputs, jobs: 2, names: true, strict: true}
}

func TestRunRoundTrip(t *testing.T) {
	in := writeInput(t, "answer.wasm", answerWasm)
	p := baseParams(in)
	p.check = true

	results, err := run(context.Background(), p)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	want := strings.TrimSuffix(in, ".wasm") + ".roundtrip.wasm"
	if results[0].output != want {
		t.Errorf("output = %q, want %q", results[0].output, want)
	}
	out, err := os.ReadFile(want)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out, answerWasm) {
		t.Errorf("round trip changed bytes:\n got %x\nwant %x", out, answerWasm)
	}
}

func TestRunCollectsGarbage(t *testing.T) {
	in := writeInput(t, "answer.wasm", answerWasm)
	p := baseParams(in)
	p.gc = true
	p.check = true
	p.output = filepath.Join(filepath.Dir(in), "min.wasm")

	results, err := run(context.Background(), p)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if results[0].removed.Funcs != 1 {
		t.Errorf("removed %+v, want one function", results[0].removed)
	}
	m, err := ir.ParseFile(p.output)
	if err != nil {
		t.Fatal(err)
	}
	if m.Funcs.Len() != 1 {
		t.Errorf("functions = %d, want 1", m.Funcs.Len())
	}
}

func TestRunManyFiles(t *testing.T) {
	var inputs []string
	for _, name := range []string{"a.wasm", "b.wasm", "c.wasm"} {
		inputs = append(inputs, writeInput(t, name, answerWasm))
	}
	p := baseParams(inputs...)
	p.transform = true

	results, err := run(context.Background(), p)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	for i, r := range results {
		if r.input != inputs[i] {
			t.Errorf("result %d is for %s", i, r.input)
		}
		if r.offsets == 0 {
			t.Errorf("%s: no code offsets recorded", r.input)
		}
	}
}

func TestRunErrors(t *testing.T) {
	good := writeInput(t, "good.wasm", answerWasm)
	bad := writeInput(t, "bad.wasm", []byte("not wasm"))

	tests := []struct {
		name string
		p    params
		want string
	}{
		{
			name: "output with many inputs",
			p:    func() params { p := baseParams(good, good); p.output = "x.wasm"; return p }(),
			want: "single input",
		},
		{
			name: "invalid module",
			p:    baseParams(good, bad),
			want: bad,
		},
		{
			name: "missing file",
			p:    baseParams(filepath.Join(t.TempDir(), "missing.wasm")),
			want: "read",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(context.Background(), tt.p)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestCommandPrintsSummary(t *testing.T) {
	in := writeInput(t, "answer.wasm", answerWasm)
	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--gc", "--producers=false", in})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	got := out.String()
	if !strings.Contains(got, in) || !strings.Contains(got, "gc:") {
		t.Errorf("summary:\n%s", got)
	}
	if strings.Contains(got, "\x1b[") {
		t.Error("summary styled although not a terminal")
	}
}
