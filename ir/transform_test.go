package ir

import (
	"testing"

	"github.com/wippyai/wasm-ir/wasm"
)

type checkTransform struct {
	calls     int
	transform *CodeTransform
}

func (c *checkTransform) Name() string { return "check-code-transform" }
func (c *checkTransform) Data() []byte { return nil }

func (c *checkTransform) ApplyCodeTransform(t *CodeTransform) {
	c.calls++
	c.transform = t
}

// constModule builds a module exporting f, which returns 1337.
func constModule(t *testing.T, cfg Config) []byte {
	t.Helper()
	m := NewModule(cfg)
	b := NewFunctionBuilder(m, nil, []wasm.ValType{wasm.ValI32})
	f := b.Finish(nil, b.I32Const(1337))
	m.Exports.AddFunc("f", f)
	return m.Emit()
}

func TestCodeTransformShiftsByInsertedBytes(t *testing.T) {
	input := constModule(t, quietConfig())

	m := mustParse(t, quietConfig().WithCodeTransform(true), input)
	check := &checkTransform{}
	m.Customs.Add(check)

	for _, lf := range m.Funcs.LocalFuncs() {
		b := lf.BuilderMut()
		drop := b.Drop(b.I32Const(0))
		lf.EntryBlock().InsertExpr(0, drop)
	}
	out, transform := m.EmitWithTransform()

	if check.calls != 1 {
		t.Fatalf("ApplyCodeTransform called %d times, want 1", check.calls)
	}
	if check.transform != transform || transform.Empty() {
		t.Fatal("hook did not receive a non-empty transform")
	}

	// i32.const 0 (2 bytes) + drop (1 byte)
	const inserted = 3
	n := 0
	for in, outOff := range transform.All() {
		if outOff != in+inserted {
			t.Errorf("input %#x mapped to %#x, want %#x", in, outOff, in+inserted)
		}
		n++
	}
	// i32.const 1337 and the function's end
	if n != 2 {
		t.Errorf("recorded %d instructions, want 2", n)
	}

	if len(transform.Functions) != 1 {
		t.Fatalf("function ranges = %d", len(transform.Functions))
	}
	fr := transform.Functions[0]
	if fr.OutputEnd-fr.OutputStart != fr.InputEnd-fr.InputStart+inserted {
		t.Errorf("function range %+v not grown by %d", fr, inserted)
	}

	// The mapped position points at i32.const in the output.
	in := transform.Instructions[0].Input
	addr, ok := transform.MapAddress(transform.InputCodeStart + in)
	if !ok || out[addr] != wasm.OpI32Const {
		t.Errorf("MapAddress = %d, %v; byte %#x", addr, ok, out[addr])
	}
}

func TestCodeTransformMonotonic(t *testing.T) {
	m := mustParse(t, quietConfig().WithCodeTransform(true), loopModule(t))
	_, transform := m.EmitWithTransform()
	if transform.Empty() {
		t.Fatal("empty transform")
	}
	prev := -1
	for in, out := range transform.All() {
		if out <= prev {
			t.Errorf("output offsets not increasing at input %#x", in)
		}
		if in != out {
			t.Errorf("unmodified module moved %#x to %#x", in, out)
		}
		prev = out
	}
	if out, ok := transform.Map(transform.Instructions[1].Input); !ok || out != transform.Instructions[1].Output {
		t.Errorf("Map = %d, %v", out, ok)
	}
}

func TestNoTransformWithoutFlagOrCode(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		data    []byte
		addFunc bool
	}{
		{"flag unset", quietConfig(), answerWasm, false},
		{"no code", quietConfig().WithCodeTransform(true), header, false},
		{"no input code, function added", quietConfig().WithCodeTransform(true), header, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := mustParse(t, tt.cfg, tt.data)
			if tt.addFunc {
				b := NewFunctionBuilder(m, nil, nil)
				b.Finish(nil, b.Nop())
			}
			check := &checkTransform{}
			m.Customs.Add(check)
			if _, transform := m.EmitWithTransform(); transform != nil {
				t.Errorf("unexpected transform %+v", transform)
			}
			if check.calls != 0 {
				t.Errorf("hook called %d times", check.calls)
			}
		})
	}
}

func TestNoTransformForBuiltModule(t *testing.T) {
	m := NewModule(quietConfig().WithCodeTransform(true))
	b := NewFunctionBuilder(m, nil, nil)
	b.Finish(nil, b.Nop())
	if _, transform := m.EmitWithTransform(); transform != nil {
		t.Error("module that was not parsed produced a transform")
	}
}
