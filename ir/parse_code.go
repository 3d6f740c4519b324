package ir

import (
	"fortio.org/safecast"

	werrors "github.com/wippyai/wasm-ir/errors"
	wbin "github.com/wippyai/wasm-ir/internal/binary"
	"github.com/wippyai/wasm-ir/wasm"
)

// maxLocals bounds the locals of one function.
const maxLocals = 50000

// frame is an open block while a body is decoded. For an if, block is
// the arm currently being filled.
type frame struct {
	block  *Block
	ifElse *IfElse
	alt    *Block
}

func (d *decoder) codeSection(r *wbin.Reader) error {
	d.codeStart = r.Offset()
	d.m.inputCodeStart = d.codeStart
	count, err := r.ReadU32()
	if err != nil {
		return err
	}
	d.m.hadCode = count > 0
	if int(count) != len(d.localFuncs) {
		return werrors.New(werrors.PhaseDecode, werrors.KindInvalidData).
			Offset(d.codeStart).Detail("function and code section have inconsistent lengths").
			Expected("%d bodies", len(d.localFuncs)).Found("%d", count).Build()
	}
	for _, id := range d.localFuncs {
		size, err := r.ReadU32()
		if err != nil {
			return err
		}
		body, err := r.Sub(int(size))
		if err != nil {
			return err
		}
		if err := d.body(id, body); err != nil {
			return err
		}
		d.bodies++
	}
	return nil
}

func (d *decoder) body(id FuncID, r *wbin.Reader) error {
	f := d.m.Funcs.Get(id)
	lf, _ := f.Local()
	lf.inputStart = r.Offset() - d.codeStart
	lf.inputEnd = lf.inputStart + r.Len()

	ty := d.m.Types.Get(f.Type)
	locals := make([]LocalID, 0, len(ty.Params))
	for _, p := range ty.Params {
		l := d.m.Locals.Add(p)
		lf.Args = append(lf.Args, l)
		locals = append(locals, l)
	}

	groups, err := r.ReadU32()
	if err != nil {
		return err
	}
	total := uint64(len(ty.Params))
	for range groups {
		start := r.Offset()
		n, err := r.ReadU32()
		if err != nil {
			return err
		}
		t, err := d.valType(r)
		if err != nil {
			return err
		}
		total += uint64(n)
		if total > maxLocals {
			return werrors.New(werrors.PhaseDecode, werrors.KindInvalidData).
				Offset(start).Detail("too many locals").Expected("at most %d", maxLocals).Found("%d", total).Build()
		}
		for range n {
			l := d.m.Locals.Add(t)
			lf.Locals = append(lf.Locals, l)
			locals = append(locals, l)
		}
	}
	d.localsOf[id] = locals
	return d.instructions(lf, f.Type, locals, r)
}

func (d *decoder) instructions(lf *LocalFunction, ty TypeID, locals []LocalID, r *wbin.Reader) error {
	entry := newBlock(BlockEntry, BlockType{Func: ty})
	entry.offset = r.Offset() - d.codeStart
	lf.entry = lf.alloc(entry)
	stack := []frame{{block: entry}}

	var tc *typeChecker
	if d.cfg.StrictValidate() {
		tc = newTypeChecker(d.m, ty)
	}

	for len(stack) > 0 {
		abs := r.Offset()
		off := abs - d.codeStart
		if r.EOF() {
			return werrors.Truncated(abs, "function body")
		}
		in, err := r.ReadInstruction()
		if err != nil {
			return err
		}
		top := &stack[len(stack)-1]
		if tc != nil {
			tc.at(abs)
		}

		switch in.Opcode {
		case wasm.OpBlock, wasm.OpLoop:
			bt, err := d.blockType(in, abs)
			if err != nil {
				return err
			}
			kind := BlockPlain
			if in.Opcode == wasm.OpLoop {
				kind = BlockLoop
			}
			if tc != nil {
				if err := tc.enter(in.Opcode, bt); err != nil {
					return err
				}
			}
			b := newBlock(kind, bt)
			b.offset = off
			top.block.Append(lf.alloc(b))
			stack = append(stack, frame{block: b})

		case wasm.OpIf:
			bt, err := d.blockType(in, abs)
			if err != nil {
				return err
			}
			if tc != nil {
				if err := tc.enter(in.Opcode, bt); err != nil {
					return err
				}
			}
			cons, alt := newBlock(BlockArm, bt), newBlock(BlockArm, bt)
			ie := &IfElse{
				Type:        bt,
				Consequent:  lf.alloc(cons),
				Alternative: lf.alloc(alt),
				offset:      off,
				elseOffset:  -1,
				endOffset:   -1,
			}
			top.block.Append(lf.alloc(ie))
			stack = append(stack, frame{block: cons, ifElse: ie, alt: alt})

		case wasm.OpElse:
			if top.ifElse == nil || top.block == top.alt {
				return werrors.New(werrors.PhaseDecode, werrors.KindInvalidData).
					Offset(abs).Detail("else without matching if").Build()
			}
			if tc != nil {
				if err := tc.elseArm(); err != nil {
					return err
				}
			}
			top.ifElse.elseOffset = off
			top.block = top.alt

		case wasm.OpEnd:
			if tc != nil {
				if err := tc.exit(); err != nil {
					return err
				}
			}
			if top.ifElse != nil {
				top.ifElse.endOffset = off
			} else {
				top.block.endOffset = off
			}
			stack = stack[:len(stack)-1]

		default:
			instr := &Instr{Instruction: in, offset: off}
			if err := d.resolve(instr, locals, abs); err != nil {
				return err
			}
			if err := d.checkInstr(instr, len(stack), abs); err != nil {
				return err
			}
			if tc != nil {
				if err := tc.instr(instr); err != nil {
					return err
				}
			}
			top.block.Append(lf.alloc(instr))
		}
	}
	return r.Finish("code")
}

func (d *decoder) blockType(in wasm.Instruction, abs int) (BlockType, error) {
	bt := in.Imm.(wasm.BlockImm).Type
	switch {
	case bt == wasm.BlockTypeVoid:
		return BlockType{}, nil
	case bt >= 0:
		idx, err := safecast.Conv[uint32](bt)
		if err != nil {
			return BlockType{}, werrors.New(werrors.PhaseDecode, werrors.KindOutOfBounds).
				Offset(abs).Detail("block type index %d", bt).Cause(err).Build()
		}
		ty, err := lookup("type", d.types, idx, abs)
		return BlockType{Func: ty}, err
	}
	v, ok := wasm.BlockValType(bt)
	if !ok {
		return BlockType{}, werrors.New(werrors.PhaseDecode, werrors.KindInvalidData).
			Offset(abs).Expected("block type").Found("%d", bt).Build()
	}
	return BlockType{Value: v}, nil
}
