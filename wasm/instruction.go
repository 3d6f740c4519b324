package wasm

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

var (
	// ErrUnknownOpcode is returned for bytes that are not an opcode.
	ErrUnknownOpcode = errors.New("unknown opcode")

	// ErrUnsupportedOpcode is returned for opcodes of proposals the IR
	// does not model (GC, exception handling, typed function references).
	ErrUnsupportedOpcode = errors.New("unsupported opcode")
)

// Instruction represents a decoded instruction
type Instruction struct {
	Imm    any
	Opcode byte
}

// BlockImm holds the block type for block, loop and if.
type BlockImm struct {
	Type int64 // s33: BlockTypeVoid, a negative value type, or a type index
}

// BranchImm holds the label index for br and br_if instructions.
type BranchImm struct {
	LabelIdx uint32
}

// BrTableImm holds the label table for br_table instruction.
type BrTableImm struct {
	Labels  []uint32
	Default uint32
}

// CallImm holds the function index for call and return_call.
type CallImm struct {
	FuncIdx uint32
}

// CallIndirectImm holds type and table indices for call_indirect instruction.
type CallIndirectImm struct {
	TypeIdx  uint32
	TableIdx uint32
}

// LocalImm holds the local index for local.get, local.set, local.tee.
type LocalImm struct {
	LocalIdx uint32
}

// GlobalImm holds the global index for global.get and global.set.
type GlobalImm struct {
	GlobalIdx uint32
}

// MemoryImm holds memory access parameters for load and store instructions.
type MemoryImm struct {
	Offset uint64
	Align  uint32
	MemIdx uint32
}

// MemoryIdxImm holds memory index for memory.size, memory.grow
type MemoryIdxImm struct {
	MemIdx uint32
}

// I32Imm holds the constant value for i32.const instruction.
type I32Imm struct {
	Value int32
}

// I64Imm holds the constant value for i64.const instruction.
type I64Imm struct {
	Value int64
}

// F32Imm holds the raw bits of an f32.const.
type F32Imm struct {
	Bits uint32
}

// F64Imm holds the raw bits of an f64.const.
type F64Imm struct {
	Bits uint64
}

// MiscImm holds the sub-opcode and immediates for 0xFC prefix instructions
type MiscImm struct {
	Operands  []uint32
	SubOpcode uint32
}

// TableImm holds table index for table.get/table.set
type TableImm struct {
	TableIdx uint32
}

// RefNullImm holds the heap type for ref.null
type RefNullImm struct {
	HeapType int64
}

// RefFuncImm holds the function index for ref.func
type RefFuncImm struct {
	FuncIdx uint32
}

// SelectTypeImm holds value types for typed select
type SelectTypeImm struct {
	Types []ValType
}

// SIMDImm holds SIMD instruction immediates
type SIMDImm struct {
	MemArg    *MemoryImm
	LaneIdx   *byte
	V128Bytes []byte
	SubOpcode uint32
}

// AtomicImm holds atomic instruction immediates
type AtomicImm struct {
	MemArg    *MemoryImm
	SubOpcode uint32
}

// DecodeInstructions decodes a sequence of instructions from raw bytes
func DecodeInstructions(code []byte) ([]Instruction, error) {
	r := bytes.NewReader(code)
	instrs := make([]Instruction, 0, len(code)/2)
	for r.Len() > 0 {
		instr, err := ReadInstruction(r)
		if err != nil {
			return nil, err
		}
		instrs = append(instrs, instr)
	}
	return instrs, nil
}

// ReadInstruction decodes one instruction, opcode and immediates.
func ReadInstruction(r io.ByteReader) (Instruction, error) {
	op, err := r.ReadByte()
	if err != nil {
		return Instruction{}, err
	}
	instr := Instruction{Opcode: op}

	switch op {
	case OpBlock, OpLoop, OpIf:
		bt, err := ReadLEB128s33(r)
		if err != nil {
			return instr, err
		}
		instr.Imm = BlockImm{Type: bt}

	case OpBr, OpBrIf:
		idx, err := ReadLEB128u(r)
		if err != nil {
			return instr, err
		}
		instr.Imm = BranchImm{LabelIdx: idx}

	case OpBrTable:
		count, err := ReadLEB128u(r)
		if err != nil {
			return instr, err
		}
		labels := make([]uint32, 0, min(count, 1024))
		for i := uint32(0); i < count; i++ {
			l, err := ReadLEB128u(r)
			if err != nil {
				return instr, err
			}
			labels = append(labels, l)
		}
		def, err := ReadLEB128u(r)
		if err != nil {
			return instr, err
		}
		instr.Imm = BrTableImm{Labels: labels, Default: def}

	case OpCall, OpReturnCall:
		idx, err := ReadLEB128u(r)
		if err != nil {
			return instr, err
		}
		instr.Imm = CallImm{FuncIdx: idx}

	case OpCallIndirect, OpReturnCallIndirect:
		typeIdx, err := ReadLEB128u(r)
		if err != nil {
			return instr, err
		}
		tableIdx, err := ReadLEB128u(r)
		if err != nil {
			return instr, err
		}
		instr.Imm = CallIndirectImm{TypeIdx: typeIdx, TableIdx: tableIdx}

	case OpLocalGet, OpLocalSet, OpLocalTee:
		idx, err := ReadLEB128u(r)
		if err != nil {
			return instr, err
		}
		instr.Imm = LocalImm{LocalIdx: idx}

	case OpGlobalGet, OpGlobalSet:
		idx, err := ReadLEB128u(r)
		if err != nil {
			return instr, err
		}
		instr.Imm = GlobalImm{GlobalIdx: idx}

	case OpTableGet, OpTableSet:
		idx, err := ReadLEB128u(r)
		if err != nil {
			return instr, err
		}
		instr.Imm = TableImm{TableIdx: idx}

	case OpI32Load, OpI64Load, OpF32Load, OpF64Load,
		OpI32Load8S, OpI32Load8U, OpI32Load16S, OpI32Load16U,
		OpI64Load8S, OpI64Load8U, OpI64Load16S, OpI64Load16U, OpI64Load32S, OpI64Load32U,
		OpI32Store, OpI64Store, OpF32Store, OpF64Store,
		OpI32Store8, OpI32Store16, OpI64Store8, OpI64Store16, OpI64Store32:
		memImm, err := readMemArg(r)
		if err != nil {
			return instr, err
		}
		instr.Imm = memImm

	case OpMemorySize, OpMemoryGrow:
		memIdx, err := ReadLEB128u(r)
		if err != nil {
			return instr, err
		}
		instr.Imm = MemoryIdxImm{MemIdx: memIdx}

	case OpI32Const:
		val, err := ReadLEB128s(r)
		if err != nil {
			return instr, err
		}
		instr.Imm = I32Imm{Value: val}

	case OpI64Const:
		val, err := ReadLEB128s64(r)
		if err != nil {
			return instr, err
		}
		instr.Imm = I64Imm{Value: val}

	case OpF32Const:
		bits, err := ReadF32Bits(r)
		if err != nil {
			return instr, err
		}
		instr.Imm = F32Imm{Bits: bits}

	case OpF64Const:
		bits, err := ReadF64Bits(r)
		if err != nil {
			return instr, err
		}
		instr.Imm = F64Imm{Bits: bits}

	case OpRefNull:
		heapType, err := ReadLEB128s33(r)
		if err != nil {
			return instr, err
		}
		if heapType != HeapTypeFunc && heapType != HeapTypeExtern {
			return instr, fmt.Errorf("%w: ref.null heap type %d", ErrUnsupportedOpcode, heapType)
		}
		instr.Imm = RefNullImm{HeapType: heapType}

	case OpRefFunc:
		funcIdx, err := ReadLEB128u(r)
		if err != nil {
			return instr, err
		}
		instr.Imm = RefFuncImm{FuncIdx: funcIdx}

	case OpSelectType:
		count, err := ReadLEB128u(r)
		if err != nil {
			return instr, err
		}
		types := make([]ValType, 0, min(count, 16))
		for i := uint32(0); i < count; i++ {
			t, err := r.ReadByte()
			if err != nil {
				return instr, err
			}
			if !ValType(t).Valid() {
				return instr, fmt.Errorf("%w: select type 0x%02x", ErrUnsupportedOpcode, t)
			}
			types = append(types, ValType(t))
		}
		instr.Imm = SelectTypeImm{Types: types}

	case OpUnreachable, OpNop, OpElse, OpEnd, OpReturn, OpDrop, OpSelect, OpRefIsNull,
		OpI32Eqz, OpI32Eq, OpI32Ne, OpI32LtS, OpI32LtU, OpI32GtS, OpI32GtU,
		OpI32LeS, OpI32LeU, OpI32GeS, OpI32GeU,
		OpI64Eqz, OpI64Eq, OpI64Ne, OpI64LtS, OpI64LtU, OpI64GtS, OpI64GtU,
		OpI64LeS, OpI64LeU, OpI64GeS, OpI64GeU,
		OpF32Eq, OpF32Ne, OpF32Lt, OpF32Gt, OpF32Le, OpF32Ge,
		OpF64Eq, OpF64Ne, OpF64Lt, OpF64Gt, OpF64Le, OpF64Ge,
		OpI32Clz, OpI32Ctz, OpI32Popcnt, OpI32Add, OpI32Sub, OpI32Mul,
		OpI32DivS, OpI32DivU, OpI32RemS, OpI32RemU, OpI32And, OpI32Or, OpI32Xor,
		OpI32Shl, OpI32ShrS, OpI32ShrU, OpI32Rotl, OpI32Rotr,
		OpI64Clz, OpI64Ctz, OpI64Popcnt, OpI64Add, OpI64Sub, OpI64Mul,
		OpI64DivS, OpI64DivU, OpI64RemS, OpI64RemU, OpI64And, OpI64Or, OpI64Xor,
		OpI64Shl, OpI64ShrS, OpI64ShrU, OpI64Rotl, OpI64Rotr,
		OpF32Abs, OpF32Neg, OpF32Ceil, OpF32Floor, OpF32Trunc, OpF32Nearest, OpF32Sqrt,
		OpF32Add, OpF32Sub, OpF32Mul, OpF32Div, OpF32Min, OpF32Max, OpF32Copysign,
		OpF64Abs, OpF64Neg, OpF64Ceil, OpF64Floor, OpF64Trunc, OpF64Nearest, OpF64Sqrt,
		OpF64Add, OpF64Sub, OpF64Mul, OpF64Div, OpF64Min, OpF64Max, OpF64Copysign,
		OpI32WrapI64, OpI32TruncF32S, OpI32TruncF32U, OpI32TruncF64S, OpI32TruncF64U,
		OpI64ExtendI32S, OpI64ExtendI32U, OpI64TruncF32S, OpI64TruncF32U,
		OpI64TruncF64S, OpI64TruncF64U,
		OpF32ConvertI32S, OpF32ConvertI32U, OpF32ConvertI64S, OpF32ConvertI64U, OpF32DemoteF64,
		OpF64ConvertI32S, OpF64ConvertI32U, OpF64ConvertI64S, OpF64ConvertI64U, OpF64PromoteF32,
		OpI32ReinterpretF32, OpI64ReinterpretF64, OpF32ReinterpretI32, OpF64ReinterpretI64,
		OpI32Extend8S, OpI32Extend16S, OpI64Extend8S, OpI64Extend16S, OpI64Extend32S:
		// No immediate

	case OpPrefixMisc:
		imm, err := decodeMiscImmediate(r)
		if err != nil {
			return instr, err
		}
		instr.Imm = imm

	case OpPrefixSIMD:
		imm, err := decodeSIMDImmediate(r)
		if err != nil {
			return instr, err
		}
		instr.Imm = imm

	case OpPrefixAtomic:
		imm, err := decodeAtomicImmediate(r)
		if err != nil {
			return instr, err
		}
		instr.Imm = imm

	case OpTry, OpThrow, OpTryTable, 0x07, 0x09, 0x0A, 0x18, 0x19,
		OpCallRef, 0x15, 0xD3, 0xD4, 0xD5, 0xD6, OpPrefixGC:
		return instr, fmt.Errorf("%w: 0x%02x", ErrUnsupportedOpcode, op)

	default:
		return instr, fmt.Errorf("%w: 0x%02x", ErrUnknownOpcode, op)
	}

	return instr, nil
}

func decodeMiscImmediate(r io.ByteReader) (MiscImm, error) {
	subOp, err := ReadLEB128u(r)
	if err != nil {
		return MiscImm{}, err
	}
	imm := MiscImm{SubOpcode: subOp}

	var n int
	switch subOp {
	case MiscI32TruncSatF32S, MiscI32TruncSatF32U,
		MiscI32TruncSatF64S, MiscI32TruncSatF64U,
		MiscI64TruncSatF32S, MiscI64TruncSatF32U,
		MiscI64TruncSatF64S, MiscI64TruncSatF64U:
		n = 0
	case MiscDataDrop, MiscMemoryFill, MiscElemDrop,
		MiscTableGrow, MiscTableSize, MiscTableFill, MiscMemoryDiscard:
		n = 1
	case MiscMemoryInit, MiscMemoryCopy, MiscTableInit, MiscTableCopy:
		n = 2
	default:
		return imm, fmt.Errorf("%w: 0xfc 0x%02x", ErrUnknownOpcode, subOp)
	}
	for range n {
		v, err := ReadLEB128u(r)
		if err != nil {
			return imm, err
		}
		imm.Operands = append(imm.Operands, v)
	}
	return imm, nil
}

func decodeSIMDImmediate(r io.ByteReader) (SIMDImm, error) {
	subOp, err := ReadLEB128u(r)
	if err != nil {
		return SIMDImm{}, err
	}

	imm := SIMDImm{SubOpcode: subOp}

	switch {
	case subOp <= SimdV128Load64Splat || subOp == SimdV128Store,
		subOp == SimdV128Load32Zero || subOp == SimdV128Load64Zero:
		memArg, err := readMemArg(r)
		if err != nil {
			return SIMDImm{}, err
		}
		imm.MemArg = &memArg

	case subOp == SimdV128Const, subOp == SimdI8x16Shuffle:
		raw := make([]byte, 16)
		for i := range raw {
			b, err := r.ReadByte()
			if err != nil {
				return SIMDImm{}, err
			}
			raw[i] = b
		}
		imm.V128Bytes = raw

	case subOp >= SimdI8x16ExtractLaneS && subOp <= SimdF64x2ReplaceLane:
		b, err := r.ReadByte()
		if err != nil {
			return SIMDImm{}, err
		}
		imm.LaneIdx = &b

	case subOp >= SimdV128Load8Lane && subOp <= SimdV128Store64Lane:
		memArg, err := readMemArg(r)
		if err != nil {
			return SIMDImm{}, err
		}
		imm.MemArg = &memArg
		b, err := r.ReadByte()
		if err != nil {
			return SIMDImm{}, err
		}
		imm.LaneIdx = &b

	case subOp <= SimdMaxStable, subOp >= SimdRelaxedFirst && subOp <= SimdRelaxedLast:
		// No immediates

	default:
		return imm, fmt.Errorf("%w: 0xfd 0x%02x", ErrUnknownOpcode, subOp)
	}

	return imm, nil
}

func decodeAtomicImmediate(r io.ByteReader) (AtomicImm, error) {
	subOp, err := ReadLEB128u(r)
	if err != nil {
		return AtomicImm{}, err
	}

	imm := AtomicImm{SubOpcode: subOp}

	switch {
	case subOp == AtomicFence:
		// atomic.fence has a single reserved byte
		if _, err := r.ReadByte(); err != nil {
			return AtomicImm{}, err
		}
	case subOp <= AtomicWait64, subOp >= AtomicI32Load && subOp <= AtomicI64Rmw32CmpxchgU:
		memArg, err := readMemArg(r)
		if err != nil {
			return AtomicImm{}, err
		}
		imm.MemArg = &memArg
	default:
		return imm, fmt.Errorf("%w: 0xfe 0x%02x", ErrUnknownOpcode, subOp)
	}

	return imm, nil
}

// EncodeInstructionTo writes a single instruction to the provided buffer.
func EncodeInstructionTo(buf *bytes.Buffer, instr *Instruction) {
	buf.WriteByte(instr.Opcode)

	switch instr.Opcode {
	case OpBlock, OpLoop, OpIf:
		imm := instr.Imm.(BlockImm)
		WriteLEB128s64(buf, imm.Type)

	case OpBr, OpBrIf:
		imm := instr.Imm.(BranchImm)
		WriteLEB128u(buf, imm.LabelIdx)

	case OpBrTable:
		imm := instr.Imm.(BrTableImm)
		WriteLEB128u64(buf, uint64(len(imm.Labels)))
		for _, l := range imm.Labels {
			WriteLEB128u(buf, l)
		}
		WriteLEB128u(buf, imm.Default)

	case OpCall, OpReturnCall:
		imm := instr.Imm.(CallImm)
		WriteLEB128u(buf, imm.FuncIdx)

	case OpCallIndirect, OpReturnCallIndirect:
		imm := instr.Imm.(CallIndirectImm)
		WriteLEB128u(buf, imm.TypeIdx)
		WriteLEB128u(buf, imm.TableIdx)

	case OpLocalGet, OpLocalSet, OpLocalTee:
		imm := instr.Imm.(LocalImm)
		WriteLEB128u(buf, imm.LocalIdx)

	case OpGlobalGet, OpGlobalSet:
		imm := instr.Imm.(GlobalImm)
		WriteLEB128u(buf, imm.GlobalIdx)

	case OpTableGet, OpTableSet:
		imm := instr.Imm.(TableImm)
		WriteLEB128u(buf, imm.TableIdx)

	case OpI32Load, OpI64Load, OpF32Load, OpF64Load,
		OpI32Load8S, OpI32Load8U, OpI32Load16S, OpI32Load16U,
		OpI64Load8S, OpI64Load8U, OpI64Load16S, OpI64Load16U, OpI64Load32S, OpI64Load32U,
		OpI32Store, OpI64Store, OpF32Store, OpF64Store,
		OpI32Store8, OpI32Store16, OpI64Store8, OpI64Store16, OpI64Store32:
		writeMemArg(buf, instr.Imm.(MemoryImm))

	case OpMemorySize, OpMemoryGrow:
		imm := instr.Imm.(MemoryIdxImm)
		WriteLEB128u(buf, imm.MemIdx)

	case OpI32Const:
		WriteLEB128s(buf, instr.Imm.(I32Imm).Value)

	case OpI64Const:
		WriteLEB128s64(buf, instr.Imm.(I64Imm).Value)

	case OpF32Const:
		WriteF32Bits(buf, instr.Imm.(F32Imm).Bits)

	case OpF64Const:
		WriteF64Bits(buf, instr.Imm.(F64Imm).Bits)

	case OpRefNull:
		WriteLEB128s64(buf, instr.Imm.(RefNullImm).HeapType)

	case OpRefFunc:
		WriteLEB128u(buf, instr.Imm.(RefFuncImm).FuncIdx)

	case OpSelectType:
		imm := instr.Imm.(SelectTypeImm)
		WriteLEB128u64(buf, uint64(len(imm.Types)))
		for _, t := range imm.Types {
			buf.WriteByte(byte(t))
		}

	case OpPrefixMisc:
		imm := instr.Imm.(MiscImm)
		WriteLEB128u(buf, imm.SubOpcode)
		for _, v := range imm.Operands {
			WriteLEB128u(buf, v)
		}

	case OpPrefixSIMD:
		imm := instr.Imm.(SIMDImm)
		WriteLEB128u(buf, imm.SubOpcode)
		if imm.MemArg != nil {
			writeMemArg(buf, *imm.MemArg)
		}
		if len(imm.V128Bytes) > 0 {
			buf.Write(imm.V128Bytes)
		}
		if imm.LaneIdx != nil {
			buf.WriteByte(*imm.LaneIdx)
		}

	case OpPrefixAtomic:
		imm := instr.Imm.(AtomicImm)
		WriteLEB128u(buf, imm.SubOpcode)
		if imm.SubOpcode == AtomicFence {
			buf.WriteByte(0)
		} else if imm.MemArg != nil {
			writeMemArg(buf, *imm.MemArg)
		}
	}
}

// EncodeInstructions encodes instructions to bytes
func EncodeInstructions(instrs []Instruction) []byte {
	var buf bytes.Buffer
	buf.Grow(len(instrs) * 3)
	for i := range instrs {
		EncodeInstructionTo(&buf, &instrs[i])
	}
	return buf.Bytes()
}

// Multi-memory memarg bit flag
const memArgMultiMemBit = 0x40

// readMemArg reads a memarg with multi-memory support.
// If bit 6 of align is set, a separate memidx LEB128 follows.
func readMemArg(r io.ByteReader) (MemoryImm, error) {
	alignRaw, err := ReadLEB128u(r)
	if err != nil {
		return MemoryImm{}, err
	}

	var memIdx uint32
	if alignRaw&memArgMultiMemBit != 0 {
		memIdx, err = ReadLEB128u(r)
		if err != nil {
			return MemoryImm{}, err
		}
	}

	offset, err := ReadLEB128u64(r)
	if err != nil {
		return MemoryImm{}, err
	}

	return MemoryImm{
		Align:  alignRaw &^ memArgMultiMemBit,
		Offset: offset,
		MemIdx: memIdx,
	}, nil
}

// writeMemArg writes a memarg with multi-memory support.
func writeMemArg(buf *bytes.Buffer, imm MemoryImm) {
	alignRaw := imm.Align
	if imm.MemIdx != 0 {
		alignRaw |= memArgMultiMemBit
	}
	WriteLEB128u(buf, alignRaw)
	if imm.MemIdx != 0 {
		WriteLEB128u(buf, imm.MemIdx)
	}
	WriteLEB128u64(buf, imm.Offset)
}
