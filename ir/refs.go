package ir

import (
	"fmt"

	werrors "github.com/wippyai/wasm-ir/errors"
	"github.com/wippyai/wasm-ir/wasm"
)

// lookup maps a binary index to the ID at that position of an index space.
func lookup[T any](space string, ids []ID[T], idx uint32, offset int) (ID[T], error) {
	if uint64(idx) >= uint64(len(ids)) {
		return ID[T]{}, werrors.New(werrors.PhaseDecode, werrors.KindOutOfBounds).
			Offset(offset).Detail("%s index %d out of bounds (length %d)", space, idx, len(ids)).
			Value(idx).Build()
	}
	return ids[idx], nil
}

// resolve sets the ID fields of in from the indices in its immediate.
// Data indices are resolved once the data section has been read.
func (d *decoder) resolve(in *Instr, locals []LocalID, offset int) error {
	var err error
	switch imm := in.Imm.(type) {
	case wasm.CallImm:
		in.Func, err = lookup("function", d.funcs, imm.FuncIdx, offset)
	case wasm.RefFuncImm:
		in.Func, err = lookup("function", d.funcs, imm.FuncIdx, offset)
	case wasm.CallIndirectImm:
		if in.Type, err = lookup("type", d.types, imm.TypeIdx, offset); err == nil {
			in.Table, err = lookup("table", d.tables, imm.TableIdx, offset)
		}
	case wasm.LocalImm:
		in.Local, err = lookup("local", locals, imm.LocalIdx, offset)
	case wasm.GlobalImm:
		in.Global, err = lookup("global", d.globals, imm.GlobalIdx, offset)
	case wasm.TableImm:
		in.Table, err = lookup("table", d.tables, imm.TableIdx, offset)
	case wasm.MemoryImm:
		in.Memory, err = lookup("memory", d.memories, imm.MemIdx, offset)
	case wasm.MemoryIdxImm:
		in.Memory, err = lookup("memory", d.memories, imm.MemIdx, offset)
	case wasm.SIMDImm:
		if imm.MemArg != nil {
			in.Memory, err = lookup("memory", d.memories, imm.MemArg.MemIdx, offset)
		}
	case wasm.AtomicImm:
		if imm.MemArg != nil {
			in.Memory, err = lookup("memory", d.memories, imm.MemArg.MemIdx, offset)
		}
	case wasm.MiscImm:
		err = d.resolveMisc(in, imm, offset)
	}
	return err
}

func (d *decoder) resolveMisc(in *Instr, imm wasm.MiscImm, offset int) error {
	ops := imm.Operands
	var err error
	switch imm.SubOpcode {
	case wasm.MiscMemoryInit:
		d.pendingData = append(d.pendingData, dataRef{instr: in, index: ops[0], offset: offset})
		in.Memory, err = lookup("memory", d.memories, ops[1], offset)
	case wasm.MiscDataDrop:
		d.pendingData = append(d.pendingData, dataRef{instr: in, index: ops[0], offset: offset})
	case wasm.MiscMemoryCopy:
		if in.Memory, err = lookup("memory", d.memories, ops[0], offset); err == nil {
			in.Memory2, err = lookup("memory", d.memories, ops[1], offset)
		}
	case wasm.MiscMemoryFill, wasm.MiscMemoryDiscard:
		in.Memory, err = lookup("memory", d.memories, ops[0], offset)
	case wasm.MiscTableInit:
		if in.Elem, err = lookup("element", d.elements, ops[0], offset); err == nil {
			in.Table, err = lookup("table", d.tables, ops[1], offset)
		}
	case wasm.MiscElemDrop:
		in.Elem, err = lookup("element", d.elements, ops[0], offset)
	case wasm.MiscTableCopy:
		if in.Table, err = lookup("table", d.tables, ops[0], offset); err == nil {
			in.Table2, err = lookup("table", d.tables, ops[1], offset)
		}
	case wasm.MiscTableGrow, wasm.MiscTableSize, wasm.MiscTableFill:
		in.Table, err = lookup("table", d.tables, ops[0], offset)
	}
	return err
}

// lower returns in's instruction with every index immediate recomputed
// from its IDs. It panics if an ID does not belong to the module.
func (ix *IndexSpace) lower(in *Instr, locals map[LocalID]uint32) wasm.Instruction {
	out := in.Instruction
	switch imm := out.Imm.(type) {
	case wasm.CallImm:
		imm.FuncIdx = ix.mustFunc(in.Func)
		out.Imm = imm
	case wasm.RefFuncImm:
		imm.FuncIdx = ix.mustFunc(in.Func)
		out.Imm = imm
	case wasm.CallIndirectImm:
		imm.TypeIdx = ix.mustType(in.Type)
		imm.TableIdx = ix.mustTable(in.Table)
		out.Imm = imm
	case wasm.LocalImm:
		idx, ok := locals[in.Local]
		if !ok {
			panic(fmt.Sprintf("ir: local %s is not declared in this function", in.Local))
		}
		imm.LocalIdx = idx
		out.Imm = imm
	case wasm.GlobalImm:
		imm.GlobalIdx = ix.mustGlobal(in.Global)
		out.Imm = imm
	case wasm.TableImm:
		imm.TableIdx = ix.mustTable(in.Table)
		out.Imm = imm
	case wasm.MemoryImm:
		imm.MemIdx = ix.mustMemory(in.Memory)
		out.Imm = imm
	case wasm.MemoryIdxImm:
		imm.MemIdx = ix.mustMemory(in.Memory)
		out.Imm = imm
	case wasm.SIMDImm:
		if imm.MemArg != nil {
			arg := *imm.MemArg
			arg.MemIdx = ix.mustMemory(in.Memory)
			imm.MemArg = &arg
			out.Imm = imm
		}
	case wasm.AtomicImm:
		if imm.MemArg != nil {
			arg := *imm.MemArg
			arg.MemIdx = ix.mustMemory(in.Memory)
			imm.MemArg = &arg
			out.Imm = imm
		}
	case wasm.MiscImm:
		out.Imm = ix.lowerMisc(in, imm)
	}
	return out
}

func (ix *IndexSpace) lowerMisc(in *Instr, imm wasm.MiscImm) wasm.MiscImm {
	var ops []uint32
	switch imm.SubOpcode {
	case wasm.MiscMemoryInit:
		ops = []uint32{ix.mustData(in.Data), ix.mustMemory(in.Memory)}
	case wasm.MiscDataDrop:
		ops = []uint32{ix.mustData(in.Data)}
	case wasm.MiscMemoryCopy:
		ops = []uint32{ix.mustMemory(in.Memory), ix.mustMemory(in.Memory2)}
	case wasm.MiscMemoryFill, wasm.MiscMemoryDiscard:
		ops = []uint32{ix.mustMemory(in.Memory)}
	case wasm.MiscTableInit:
		ops = []uint32{ix.mustElement(in.Elem), ix.mustTable(in.Table)}
	case wasm.MiscElemDrop:
		ops = []uint32{ix.mustElement(in.Elem)}
	case wasm.MiscTableCopy:
		ops = []uint32{ix.mustTable(in.Table), ix.mustTable(in.Table2)}
	case wasm.MiscTableGrow, wasm.MiscTableSize, wasm.MiscTableFill:
		ops = []uint32{ix.mustTable(in.Table)}
	default:
		return imm
	}
	return wasm.MiscImm{SubOpcode: imm.SubOpcode, Operands: ops}
}
