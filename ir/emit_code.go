package ir

import (
	"fmt"

	wbin "github.com/wippyai/wasm-ir/internal/binary"
	"github.com/wippyai/wasm-ir/wasm"
)

func (e *encoder) codeSection() *wbin.Writer {
	funcs := e.localFuncs()
	if len(funcs) == 0 {
		return nil
	}
	// Offsets only mean something against an input code section.
	record := e.cfg.PreserveCodeTransform && e.m.parsed && e.m.hadCode
	if record {
		e.transform = &CodeTransform{InputCodeStart: e.m.inputCodeStart}
	}

	w := wbin.NewWriter()
	w.WriteLen(len(funcs))
	for _, id := range funcs {
		f := e.m.Funcs.Get(id)
		lf, _ := f.Local()
		fe := &funcEncoder{
			e:      e,
			lf:     lf,
			w:      wbin.NewWriter(),
			record: record,
			seen:   make(map[ExprID]struct{}),
		}
		fe.encode(f)
		body := fe.w.Bytes()
		base := w.Len() + wasm.SizeLEB128u(uint64(len(body)))
		w.WriteSized(body)
		if !record {
			continue
		}
		for _, p := range fe.pairs {
			e.transform.Instructions = append(e.transform.Instructions, OffsetPair{Input: p.Input, Output: p.Output + base})
		}
		e.transform.Functions = append(e.transform.Functions, FunctionRange{
			Func:        id,
			InputStart:  lf.inputStart,
			InputEnd:    lf.inputEnd,
			OutputStart: base,
			OutputEnd:   base + len(body),
		})
	}
	return w
}

// funcEncoder writes one function body. Offsets in pairs are relative
// to the start of the body.
type funcEncoder struct {
	e      *encoder
	lf     *LocalFunction
	w      *wbin.Writer
	locals map[LocalID]uint32
	pairs  []OffsetPair
	record bool
	seen   map[ExprID]struct{}
}

func (fe *funcEncoder) encode(f *Function) {
	order := fe.localOrder()
	fe.e.localOrder[f.id] = order
	fe.locals = make(map[LocalID]uint32, len(order))
	for i, l := range order {
		fe.locals[l] = uint32(i)
	}
	fe.writeLocalDecls(order[len(fe.lf.Args):])

	entry := fe.lf.EntryBlock()
	fe.seen[fe.lf.entry] = struct{}{}
	fe.exprs(entry.Exprs)
	fe.mark(entry.endOffset)
	fe.w.Byte(wasm.OpEnd)
}

// localOrder returns the function's locals in index order: arguments,
// declared locals, then locals the body uses without declaring them.
func (fe *funcEncoder) localOrder() []LocalID {
	order := make([]LocalID, 0, len(fe.lf.Args)+len(fe.lf.Locals))
	known := make(map[LocalID]bool)
	for _, l := range append(append([]LocalID(nil), fe.lf.Args...), fe.lf.Locals...) {
		if !known[l] {
			known[l] = true
			order = append(order, l)
		}
	}
	fe.lf.Walk(func(_ ExprID, x Expr) bool {
		if in, ok := x.(*Instr); ok {
			if _, isLocal := in.Imm.(wasm.LocalImm); isLocal && !known[in.Local] {
				known[in.Local] = true
				order = append(order, in.Local)
			}
		}
		return true
	})
	return order
}

// writeLocalDecls groups consecutive locals of the same type.
func (fe *funcEncoder) writeLocalDecls(locals []LocalID) {
	type group struct {
		n uint32
		t wasm.ValType
	}
	var groups []group
	for _, l := range locals {
		t := fe.e.m.Locals.Get(l).Type
		if n := len(groups); n > 0 && groups[n-1].t == t {
			groups[n-1].n++
			continue
		}
		groups = append(groups, group{n: 1, t: t})
	}
	fe.w.WriteLen(len(groups))
	for _, g := range groups {
		fe.w.WriteU32(g.n)
		fe.w.Byte(byte(g.t))
	}
}

func (fe *funcEncoder) mark(input int) {
	if fe.record && input >= 0 {
		fe.pairs = append(fe.pairs, OffsetPair{Input: input, Output: fe.w.Len()})
	}
}

func (fe *funcEncoder) exprs(ids []ExprID) {
	for _, id := range ids {
		fe.expr(id)
	}
}

func (fe *funcEncoder) expr(id ExprID) {
	if _, dup := fe.seen[id]; dup {
		panic(fmt.Sprintf("ir: expression %s is used more than once", id))
	}
	fe.seen[id] = struct{}{}

	switch x := fe.lf.Expr(id).(type) {
	case *Instr:
		fe.exprs(x.Operands)
		fe.mark(x.offset)
		in := fe.e.ix.lower(x, fe.locals)
		if imm, ok := in.Imm.(wasm.MiscImm); ok &&
			(imm.SubOpcode == wasm.MiscMemoryInit || imm.SubOpcode == wasm.MiscDataDrop) {
			fe.e.usesData = true
		}
		wasm.EncodeInstructionTo(fe.w.Buffer(), &in)
	case *Block:
		switch x.Kind {
		case BlockPlain, BlockLoop:
			op := wasm.OpBlock
			if x.Kind == BlockLoop {
				op = wasm.OpLoop
			}
			fe.mark(x.offset)
			fe.blockStart(op, x.Type)
			fe.exprs(x.Exprs)
			fe.mark(x.endOffset)
			fe.w.Byte(wasm.OpEnd)
		default:
			panic(fmt.Sprintf("ir: %s block %s cannot be nested", x.Kind, id))
		}
	case *IfElse:
		fe.exprs(x.Operands)
		fe.mark(x.offset)
		fe.blockStart(wasm.OpIf, x.Type)
		fe.arm(x.Consequent)
		if alt := fe.lf.Block(x.Alternative); len(alt.Exprs) > 0 || x.elseOffset >= 0 {
			fe.mark(x.elseOffset)
			fe.w.Byte(wasm.OpElse)
			fe.arm(x.Alternative)
		} else {
			fe.seen[x.Alternative] = struct{}{}
		}
		fe.mark(x.endOffset)
		fe.w.Byte(wasm.OpEnd)
	}
}

func (fe *funcEncoder) arm(id ExprID) {
	if _, dup := fe.seen[id]; dup {
		panic(fmt.Sprintf("ir: expression %s is used more than once", id))
	}
	fe.seen[id] = struct{}{}
	fe.exprs(fe.lf.Block(id).Exprs)
}

func (fe *funcEncoder) blockStart(op byte, bt BlockType) {
	var t int64
	switch {
	case bt.Func.Valid():
		t = int64(fe.e.ix.mustType(bt.Func))
	case bt.Value == 0:
		t = wasm.BlockTypeVoid
	default:
		t = wasm.BlockTypeFor(bt.Value)
	}
	in := wasm.Instruction{Opcode: op, Imm: wasm.BlockImm{Type: t}}
	wasm.EncodeInstructionTo(fe.w.Buffer(), &in)
}
