package wasm

// NaturalAlignment returns log2 of the access width of a memory
// instruction. ok is false for instructions that do not access memory
// through a memarg.
func NaturalAlignment(instr *Instruction) (align uint32, ok bool) {
	switch instr.Opcode {
	case OpI32Load8S, OpI32Load8U, OpI64Load8S, OpI64Load8U, OpI32Store8, OpI64Store8:
		return 0, true
	case OpI32Load16S, OpI32Load16U, OpI64Load16S, OpI64Load16U, OpI32Store16, OpI64Store16:
		return 1, true
	case OpI32Load, OpF32Load, OpI64Load32S, OpI64Load32U, OpI32Store, OpF32Store, OpI64Store32:
		return 2, true
	case OpI64Load, OpF64Load, OpI64Store, OpF64Store:
		return 3, true
	case OpPrefixSIMD:
		imm, _ := instr.Imm.(SIMDImm)
		if imm.MemArg == nil {
			return 0, false
		}
		return simdAlignment(imm.SubOpcode), true
	case OpPrefixAtomic:
		imm, _ := instr.Imm.(AtomicImm)
		if imm.MemArg == nil {
			return 0, false
		}
		return atomicAlignment(imm.SubOpcode), true
	}
	return 0, false
}

func simdAlignment(sub uint32) uint32 {
	switch sub {
	case SimdV128Load, SimdV128Store:
		return 4
	case SimdV128Load8x8S, SimdV128Load8x8U, SimdV128Load16x4S, SimdV128Load16x4U,
		SimdV128Load32x2S, SimdV128Load32x2U, SimdV128Load64Splat,
		SimdV128Load64Lane, SimdV128Store64Lane, SimdV128Load64Zero:
		return 3
	case SimdV128Load32Splat, SimdV128Load32Lane, SimdV128Store32Lane, SimdV128Load32Zero:
		return 2
	case SimdV128Load16Splat, SimdV128Load16Lane, SimdV128Store16Lane:
		return 1
	default:
		return 0
	}
}

// rmwWidths is the access width pattern repeated by each group of seven
// atomic read-modify-write opcodes starting at AtomicI32RmwAdd.
var rmwWidths = [7]uint32{2, 3, 0, 1, 0, 1, 2}

func atomicAlignment(sub uint32) uint32 {
	switch sub {
	case AtomicNotify, AtomicWait32:
		return 2
	case AtomicWait64:
		return 3
	}
	if sub >= AtomicI32Load && sub <= AtomicI64Store32 {
		return rmwWidths[(sub-AtomicI32Load)%7]
	}
	if sub >= AtomicI32RmwAdd && sub <= AtomicI64Rmw32CmpxchgU {
		return rmwWidths[(sub-AtomicI32RmwAdd)%7]
	}
	return 0
}

// MemoryIndices returns the memory indices an instruction refers to.
func MemoryIndices(instr *Instruction) []uint32 {
	switch imm := instr.Imm.(type) {
	case MemoryImm:
		return []uint32{imm.MemIdx}
	case MemoryIdxImm:
		return []uint32{imm.MemIdx}
	case SIMDImm:
		if imm.MemArg != nil {
			return []uint32{imm.MemArg.MemIdx}
		}
	case AtomicImm:
		if imm.MemArg != nil {
			return []uint32{imm.MemArg.MemIdx}
		}
	case MiscImm:
		switch imm.SubOpcode {
		case MiscMemoryInit:
			return imm.Operands[1:2]
		case MiscMemoryCopy:
			return imm.Operands[:2]
		case MiscMemoryFill, MiscMemoryDiscard:
			return imm.Operands[:1]
		}
	}
	return nil
}

// IsConstant reports whether op may appear in a constant expression.
// extended admits the integer arithmetic of the extended-const proposal.
func IsConstant(instr *Instruction, extended bool) bool {
	switch instr.Opcode {
	case OpI32Const, OpI64Const, OpF32Const, OpF64Const,
		OpRefNull, OpRefFunc, OpGlobalGet, OpEnd:
		return true
	case OpI32Add, OpI32Sub, OpI32Mul, OpI64Add, OpI64Sub, OpI64Mul:
		return extended
	case OpPrefixSIMD:
		imm, _ := instr.Imm.(SIMDImm)
		return imm.SubOpcode == SimdV128Const
	}
	return false
}

// IsExtendedConstant reports whether instr is arithmetic permitted only
// by the extended-const proposal.
func IsExtendedConstant(instr *Instruction) bool {
	switch instr.Opcode {
	case OpI32Add, OpI32Sub, OpI32Mul, OpI64Add, OpI64Sub, OpI64Mul:
		return true
	}
	return false
}

// IsRelaxedSIMD reports whether instr belongs to the relaxed-SIMD proposal.
func IsRelaxedSIMD(instr *Instruction) bool {
	if instr.Opcode != OpPrefixSIMD {
		return false
	}
	imm, _ := instr.Imm.(SIMDImm)
	return imm.SubOpcode >= SimdRelaxedFirst && imm.SubOpcode <= SimdRelaxedLast
}
