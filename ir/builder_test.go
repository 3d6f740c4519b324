package ir

import (
	"testing"

	"github.com/wippyai/wasm-ir/wasm"
)

func TestFinishUsesCallerArgs(t *testing.T) {
	m := NewModule(quietConfig())
	b := NewFunctionBuilder(m, []wasm.ValType{wasm.ValI32, wasm.ValI64}, nil)
	x, y := m.Locals.Add(wasm.ValI32), m.Locals.Add(wasm.ValI64)
	before := m.Locals.Len()
	f := b.Finish([]LocalID{x, y})

	lf, ok := m.Funcs.Get(f).Local()
	if !ok {
		t.Fatal("not a local function")
	}
	if len(lf.Args) != 2 || lf.Args[0] != x || lf.Args[1] != y {
		t.Errorf("args = %v, want [%s %s]", lf.Args, x, y)
	}
	if m.Locals.Len() != before {
		t.Error("builder allocated locals of its own")
	}
}

func TestFinishRejectsMismatchedArgs(t *testing.T) {
	tests := []struct {
		name string
		args func(m *Module) []LocalID
	}{
		{"missing argument", func(*Module) []LocalID { return nil }},
		{"wrong type", func(m *Module) []LocalID { return []LocalID{m.Locals.Add(wasm.ValF32)} }},
		{"extra argument", func(m *Module) []LocalID {
			return []LocalID{m.Locals.Add(wasm.ValI32), m.Locals.Add(wasm.ValI32)}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewModule(quietConfig())
			b := NewFunctionBuilder(m, i32, nil)
			args := tt.args(m)
			defer func() {
				if recover() == nil {
					t.Error("expected panic")
				}
			}()
			b.Finish(args)
		})
	}
}
