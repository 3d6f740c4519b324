package ir

import (
	werrors "github.com/wippyai/wasm-ir/errors"
	"github.com/wippyai/wasm-ir/wasm"
)

func strictErr(offset int, format string, args ...any) error {
	return werrors.New(werrors.PhaseValidate, werrors.KindStrict).
		Offset(offset).Detail(format, args...).Build()
}

func unstableErr(offset int, format string, args ...any) error {
	return werrors.New(werrors.PhaseValidate, werrors.KindUnsupported).
		Offset(offset).Detail(format, args...).Build()
}

func (d *decoder) checkLimits(l Limits, memory bool, offset int) error {
	if memory && l.Is64 && d.cfg.OnlyStableFeatures {
		return unstableErr(offset, "64-bit memory")
	}
	if !d.cfg.StrictValidate() {
		return nil
	}
	if l.Max != nil && *l.Max < l.Min {
		return strictErr(offset, "minimum %d exceeds maximum %d", l.Min, *l.Max)
	}
	if !memory {
		return nil
	}
	pages := wasm.MemoryMaxPages32
	if l.Is64 {
		pages = wasm.MemoryMaxPages64
	}
	if l.Min > pages || (l.Max != nil && *l.Max > pages) {
		return strictErr(offset, "memory size must be at most %d pages", pages)
	}
	if l.Shared && l.Max == nil {
		return strictErr(offset, "shared memory must have a maximum size")
	}
	return nil
}

func (d *decoder) checkConstInstr(in *Instr, offset int) error {
	if d.cfg.OnlyStableFeatures && wasm.IsExtendedConstant(&in.Instruction) {
		return unstableErr(offset, "extended constant expression")
	}
	if !d.cfg.StrictValidate() {
		return nil
	}
	if !wasm.IsConstant(&in.Instruction, true) {
		return strictErr(offset, "opcode %#02x is not allowed in a constant expression", in.Opcode)
	}
	if in.Opcode == wasm.OpGlobalGet && !d.m.Globals.Get(in.Global).IsImport() {
		return strictErr(offset, "constant expression may only read imported globals")
	}
	return nil
}

// checkInstr validates one body instruction. depth is the number of
// enclosing labels, including the function itself.
func (d *decoder) checkInstr(in *Instr, depth int, offset int) error {
	if d.cfg.OnlyStableFeatures {
		if err := checkStable(in, offset); err != nil {
			return err
		}
	}
	if !d.cfg.StrictValidate() {
		return nil
	}

	switch imm := in.Imm.(type) {
	case wasm.BranchImm:
		if int(imm.LabelIdx) >= depth {
			return strictErr(offset, "branch depth %d exceeds label stack %d", imm.LabelIdx, depth)
		}
	case wasm.BrTableImm:
		for _, l := range imm.Labels {
			if int(l) >= depth {
				return strictErr(offset, "branch depth %d exceeds label stack %d", l, depth)
			}
		}
		if int(imm.Default) >= depth {
			return strictErr(offset, "branch depth %d exceeds label stack %d", imm.Default, depth)
		}
	case wasm.MiscImm:
		if (imm.SubOpcode == wasm.MiscMemoryInit || imm.SubOpcode == wasm.MiscDataDrop) && !d.m.dataCount {
			return strictErr(offset, "memory.init and data.drop require a data count section")
		}
	}

	if natural, ok := wasm.NaturalAlignment(&in.Instruction); ok {
		align := memArg(in).Align
		if align > natural {
			return strictErr(offset, "alignment 2^%d exceeds natural alignment 2^%d", align, natural)
		}
		if in.Opcode == wasm.OpPrefixAtomic {
			if align != natural {
				return strictErr(offset, "atomic alignment must be 2^%d, found 2^%d", natural, align)
			}
			if !d.m.Memories.Get(in.Memory).Limits.Shared {
				return strictErr(offset, "atomic access requires a shared memory")
			}
		}
	}
	return nil
}

func checkStable(in *Instr, offset int) error {
	if wasm.IsRelaxedSIMD(&in.Instruction) {
		return unstableErr(offset, "relaxed SIMD instruction")
	}
	if imm, ok := in.Imm.(wasm.MiscImm); ok && imm.SubOpcode == wasm.MiscMemoryDiscard {
		return unstableErr(offset, "memory.discard")
	}
	return nil
}

func memArg(in *Instr) wasm.MemoryImm {
	switch imm := in.Imm.(type) {
	case wasm.MemoryImm:
		return imm
	case wasm.SIMDImm:
		if imm.MemArg != nil {
			return *imm.MemArg
		}
	case wasm.AtomicImm:
		if imm.MemArg != nil {
			return *imm.MemArg
		}
	}
	return wasm.MemoryImm{}
}

func (d *decoder) checkModule() error {
	if d.cfg.OnlyStableFeatures && len(d.memories) > 1 {
		return werrors.New(werrors.PhaseValidate, werrors.KindUnsupported).
			Section("memory").Detail("multiple memories").Found("%d", len(d.memories)).Build()
	}
	return nil
}
