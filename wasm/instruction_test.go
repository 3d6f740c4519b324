package wasm_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wippyai/wasm-ir/wasm"
)

func lane(b byte) *byte { return &b }

func TestInstructionRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		instr wasm.Instruction
	}{
		{"unreachable", wasm.Instruction{Opcode: wasm.OpUnreachable}},
		{"block void", wasm.Instruction{Opcode: wasm.OpBlock, Imm: wasm.BlockImm{Type: wasm.BlockTypeVoid}}},
		{"loop i32", wasm.Instruction{Opcode: wasm.OpLoop, Imm: wasm.BlockImm{Type: wasm.BlockTypeI32}}},
		{"if typeidx", wasm.Instruction{Opcode: wasm.OpIf, Imm: wasm.BlockImm{Type: 300}}},
		{"br_table", wasm.Instruction{Opcode: wasm.OpBrTable, Imm: wasm.BrTableImm{Labels: []uint32{0, 1, 2}, Default: 3}}},
		{"call", wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: 42}}},
		{"return_call_indirect", wasm.Instruction{Opcode: wasm.OpReturnCallIndirect, Imm: wasm.CallIndirectImm{TypeIdx: 2, TableIdx: 1}}},
		{"local.tee", wasm.Instruction{Opcode: wasm.OpLocalTee, Imm: wasm.LocalImm{LocalIdx: 200}}},
		{"global.set", wasm.Instruction{Opcode: wasm.OpGlobalSet, Imm: wasm.GlobalImm{GlobalIdx: 1}}},
		{"i64.load multi-memory", wasm.Instruction{Opcode: wasm.OpI64Load, Imm: wasm.MemoryImm{Align: 3, Offset: 1 << 33, MemIdx: 2}}},
		{"memory.grow", wasm.Instruction{Opcode: wasm.OpMemoryGrow, Imm: wasm.MemoryIdxImm{}}},
		{"i32.const min", wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: -2147483648}}},
		{"i64.const", wasm.Instruction{Opcode: wasm.OpI64Const, Imm: wasm.I64Imm{Value: -1 << 60}}},
		{"f32.const nan", wasm.Instruction{Opcode: wasm.OpF32Const, Imm: wasm.F32Imm{Bits: 0x7fa00001}}},
		{"f64.const", wasm.Instruction{Opcode: wasm.OpF64Const, Imm: wasm.F64Imm{Bits: 0x400921fb54442d18}}},
		{"ref.null extern", wasm.Instruction{Opcode: wasm.OpRefNull, Imm: wasm.RefNullImm{HeapType: wasm.HeapTypeExtern}}},
		{"ref.func", wasm.Instruction{Opcode: wasm.OpRefFunc, Imm: wasm.RefFuncImm{FuncIdx: 7}}},
		{"select typed", wasm.Instruction{Opcode: wasm.OpSelectType, Imm: wasm.SelectTypeImm{Types: []wasm.ValType{wasm.ValI64}}}},
		{"memory.init", wasm.Instruction{Opcode: wasm.OpPrefixMisc, Imm: wasm.MiscImm{SubOpcode: wasm.MiscMemoryInit, Operands: []uint32{3, 0}}}},
		{"i32.trunc_sat", wasm.Instruction{Opcode: wasm.OpPrefixMisc, Imm: wasm.MiscImm{SubOpcode: wasm.MiscI32TruncSatF32S}}},
		{"v128.const", wasm.Instruction{Opcode: wasm.OpPrefixSIMD, Imm: wasm.SIMDImm{SubOpcode: wasm.SimdV128Const, V128Bytes: bytes.Repeat([]byte{0xab}, 16)}}},
		{"v128.load8_lane", wasm.Instruction{Opcode: wasm.OpPrefixSIMD, Imm: wasm.SIMDImm{SubOpcode: wasm.SimdV128Load8Lane, MemArg: &wasm.MemoryImm{}, LaneIdx: lane(15)}}},
		{"relaxed swizzle", wasm.Instruction{Opcode: wasm.OpPrefixSIMD, Imm: wasm.SIMDImm{SubOpcode: wasm.SimdRelaxedFirst}}},
		{"atomic rmw", wasm.Instruction{Opcode: wasm.OpPrefixAtomic, Imm: wasm.AtomicImm{SubOpcode: wasm.AtomicI32RmwAdd, MemArg: &wasm.MemoryImm{Align: 2}}}},
		{"atomic fence", wasm.Instruction{Opcode: wasm.OpPrefixAtomic, Imm: wasm.AtomicImm{SubOpcode: wasm.AtomicFence}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded := wasm.EncodeInstructions([]wasm.Instruction{tt.instr})
			decoded, err := wasm.DecodeInstructions(encoded)
			if err != nil {
				t.Fatalf("DecodeInstructions: %v", err)
			}
			if len(decoded) != 1 {
				t.Fatalf("decoded %d instructions, want 1", len(decoded))
			}
			if diff := cmp.Diff(tt.instr, decoded[0]); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
			if again := wasm.EncodeInstructions(decoded); !bytes.Equal(again, encoded) {
				t.Errorf("re-encode = %x, want %x", again, encoded)
			}
		})
	}
}

func TestReadInstructionErrors(t *testing.T) {
	tests := []struct {
		name string
		code []byte
		want error
	}{
		{"unknown", []byte{0x27}, wasm.ErrUnknownOpcode},
		{"gc prefix", []byte{wasm.OpPrefixGC, 0x00}, wasm.ErrUnsupportedOpcode},
		{"try_table", []byte{wasm.OpTryTable, 0x40, 0x00}, wasm.ErrUnsupportedOpcode},
		{"unknown misc", []byte{wasm.OpPrefixMisc, 0x20}, wasm.ErrUnknownOpcode},
		{"typed ref.null", []byte{wasm.OpRefNull, 0x00}, wasm.ErrUnsupportedOpcode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := wasm.DecodeInstructions(tt.code)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestNaturalAlignment(t *testing.T) {
	tests := []struct {
		instr wasm.Instruction
		want  uint32
	}{
		{wasm.Instruction{Opcode: wasm.OpI32Load8U, Imm: wasm.MemoryImm{}}, 0},
		{wasm.Instruction{Opcode: wasm.OpI64Store16, Imm: wasm.MemoryImm{}}, 1},
		{wasm.Instruction{Opcode: wasm.OpF32Load, Imm: wasm.MemoryImm{}}, 2},
		{wasm.Instruction{Opcode: wasm.OpI64Load, Imm: wasm.MemoryImm{}}, 3},
		{wasm.Instruction{Opcode: wasm.OpPrefixSIMD, Imm: wasm.SIMDImm{SubOpcode: wasm.SimdV128Load, MemArg: &wasm.MemoryImm{}}}, 4},
		{wasm.Instruction{Opcode: wasm.OpPrefixAtomic, Imm: wasm.AtomicImm{SubOpcode: wasm.AtomicI64Rmw32CmpxchgU, MemArg: &wasm.MemoryImm{}}}, 2},
		{wasm.Instruction{Opcode: wasm.OpPrefixAtomic, Imm: wasm.AtomicImm{SubOpcode: wasm.AtomicI64Store8, MemArg: &wasm.MemoryImm{}}}, 0},
	}
	for _, tt := range tests {
		got, ok := wasm.NaturalAlignment(&tt.instr)
		if !ok || got != tt.want {
			t.Errorf("NaturalAlignment(0x%02x %+v) = %d, %v; want %d", tt.instr.Opcode, tt.instr.Imm, got, ok, tt.want)
		}
	}

	if _, ok := wasm.NaturalAlignment(&wasm.Instruction{Opcode: wasm.OpNop}); ok {
		t.Error("nop should not have an alignment")
	}
}

func TestBlockValType(t *testing.T) {
	for _, v := range []wasm.ValType{wasm.ValI32, wasm.ValI64, wasm.ValF32, wasm.ValF64, wasm.ValV128, wasm.ValFuncRef, wasm.ValExtern} {
		bt := wasm.BlockTypeFor(v)
		got, ok := wasm.BlockValType(bt)
		if !ok || got != v {
			t.Errorf("BlockValType(BlockTypeFor(%s)) = %s, %v", v, got, ok)
		}
	}
	if _, ok := wasm.BlockValType(wasm.BlockTypeVoid); ok {
		t.Error("void has no value type")
	}
	if wasm.BlockTypeFor(wasm.ValI32) != wasm.BlockTypeI32 {
		t.Error("BlockTypeFor(i32) mismatch")
	}
}

func TestSectionOrder(t *testing.T) {
	if wasm.SectionOrder(wasm.SectionDataCount) >= wasm.SectionOrder(wasm.SectionCode) {
		t.Error("data count must precede code")
	}
	if wasm.SectionOrder(wasm.SectionElement) >= wasm.SectionOrder(wasm.SectionDataCount) {
		t.Error("element must precede data count")
	}
	if wasm.SectionOrder(wasm.SectionCustom) != 0 {
		t.Error("custom sections have no canonical order")
	}
}
