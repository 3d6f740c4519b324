package ir

import (
	"fmt"
	"math"

	"github.com/wippyai/wasm-ir/wasm"
)

// InstrSeqBuilder allocates new expressions in a LocalFunction. Every
// method returns a fresh ExprID that the caller places in a block.
type InstrSeqBuilder struct {
	fn *LocalFunction
	m  *Module
}

// Function returns the function the builder allocates into.
func (b *InstrSeqBuilder) Function() *LocalFunction { return b.fn }

func (b *InstrSeqBuilder) instr(op byte, imm any, operands ...ExprID) *Instr {
	return NewInstr(wasm.Instruction{Opcode: op, Imm: imm}, operands...)
}

func (b *InstrSeqBuilder) add(in *Instr) ExprID {
	return b.fn.alloc(in)
}

// Instr allocates an arbitrary instruction. in must not be used
// elsewhere, and its offset is discarded.
func (b *InstrSeqBuilder) Instr(in *Instr) ExprID {
	in.offset = -1
	return b.add(in)
}

// I32Const produces an i32 constant.
func (b *InstrSeqBuilder) I32Const(v int32) ExprID {
	return b.add(b.instr(wasm.OpI32Const, wasm.I32Imm{Value: v}))
}

// I64Const produces an i64 constant.
func (b *InstrSeqBuilder) I64Const(v int64) ExprID {
	return b.add(b.instr(wasm.OpI64Const, wasm.I64Imm{Value: v}))
}

// F32Const produces an f32 constant.
func (b *InstrSeqBuilder) F32Const(v float32) ExprID {
	return b.add(b.instr(wasm.OpF32Const, wasm.F32Imm{Bits: math.Float32bits(v)}))
}

// F64Const produces an f64 constant.
func (b *InstrSeqBuilder) F64Const(v float64) ExprID {
	return b.add(b.instr(wasm.OpF64Const, wasm.F64Imm{Bits: math.Float64bits(v)}))
}

// Drop discards the value of operand.
func (b *InstrSeqBuilder) Drop(operand ExprID) ExprID {
	return b.add(b.instr(wasm.OpDrop, nil, operand))
}

// Nop does nothing.
func (b *InstrSeqBuilder) Nop() ExprID {
	return b.add(b.instr(wasm.OpNop, nil))
}

// Unreachable traps.
func (b *InstrSeqBuilder) Unreachable() ExprID {
	return b.add(b.instr(wasm.OpUnreachable, nil))
}

// Return returns the values produced by operands.
func (b *InstrSeqBuilder) Return(operands ...ExprID) ExprID {
	return b.add(b.instr(wasm.OpReturn, nil, operands...))
}

// Unop applies a unary numeric opcode, such as i32.eqz.
func (b *InstrSeqBuilder) Unop(op byte, operand ExprID) ExprID {
	return b.add(b.instr(op, nil, operand))
}

// Binop applies a binary numeric opcode, such as i32.add.
func (b *InstrSeqBuilder) Binop(op byte, lhs, rhs ExprID) ExprID {
	return b.add(b.instr(op, nil, lhs, rhs))
}

// LocalGet reads l.
func (b *InstrSeqBuilder) LocalGet(l LocalID) ExprID {
	in := b.instr(wasm.OpLocalGet, wasm.LocalImm{})
	in.Local = l
	return b.add(in)
}

// LocalSet writes value to l.
func (b *InstrSeqBuilder) LocalSet(l LocalID, value ExprID) ExprID {
	in := b.instr(wasm.OpLocalSet, wasm.LocalImm{}, value)
	in.Local = l
	return b.add(in)
}

// LocalTee writes value to l and produces it.
func (b *InstrSeqBuilder) LocalTee(l LocalID, value ExprID) ExprID {
	in := b.instr(wasm.OpLocalTee, wasm.LocalImm{}, value)
	in.Local = l
	return b.add(in)
}

// GlobalGet reads g.
func (b *InstrSeqBuilder) GlobalGet(g GlobalID) ExprID {
	in := b.instr(wasm.OpGlobalGet, wasm.GlobalImm{})
	in.Global = g
	return b.add(in)
}

// GlobalSet writes value to g.
func (b *InstrSeqBuilder) GlobalSet(g GlobalID, value ExprID) ExprID {
	in := b.instr(wasm.OpGlobalSet, wasm.GlobalImm{}, value)
	in.Global = g
	return b.add(in)
}

// Call calls f with args.
func (b *InstrSeqBuilder) Call(f FuncID, args ...ExprID) ExprID {
	in := b.instr(wasm.OpCall, wasm.CallImm{}, args...)
	in.Func = f
	return b.add(in)
}

// Select produces a if cond is non-zero and c otherwise.
func (b *InstrSeqBuilder) Select(a, c, cond ExprID) ExprID {
	return b.add(b.instr(wasm.OpSelect, nil, a, c, cond))
}

// Br branches to the label depth levels out.
func (b *InstrSeqBuilder) Br(depth uint32, operands ...ExprID) ExprID {
	return b.add(b.instr(wasm.OpBr, wasm.BranchImm{LabelIdx: depth}, operands...))
}

// BrIf branches when the last operand is non-zero.
func (b *InstrSeqBuilder) BrIf(depth uint32, operands ...ExprID) ExprID {
	return b.add(b.instr(wasm.OpBrIf, wasm.BranchImm{LabelIdx: depth}, operands...))
}

// Block produces a block of the given type holding exprs.
func (b *InstrSeqBuilder) Block(ty BlockType, exprs ...ExprID) ExprID {
	blk := newBlock(BlockPlain, ty)
	blk.Exprs = exprs
	return b.fn.alloc(blk)
}

// Loop produces a loop of the given type holding exprs.
func (b *InstrSeqBuilder) Loop(ty BlockType, exprs ...ExprID) ExprID {
	blk := newBlock(BlockLoop, ty)
	blk.Exprs = exprs
	return b.fn.alloc(blk)
}

// IfElse produces a conditional on cond.
func (b *InstrSeqBuilder) IfElse(ty BlockType, cond ExprID, consequent, alternative []ExprID) ExprID {
	cons, alt := newBlock(BlockArm, ty), newBlock(BlockArm, ty)
	cons.Exprs, alt.Exprs = consequent, alternative
	return b.fn.alloc(&IfElse{
		Type:        ty,
		Operands:    []ExprID{cond},
		Consequent:  b.fn.alloc(cons),
		Alternative: b.fn.alloc(alt),
		offset:      -1,
		elseOffset:  -1,
		endOffset:   -1,
	})
}

func (b *InstrSeqBuilder) memArg(op byte, offset uint64) wasm.MemoryImm {
	align, ok := wasm.NaturalAlignment(&wasm.Instruction{Opcode: op})
	if !ok {
		panic(fmt.Sprintf("ir: opcode %#02x is not a load or store", op))
	}
	return wasm.MemoryImm{Offset: offset, Align: align}
}

// Load reads from mem at addr+offset with natural alignment.
func (b *InstrSeqBuilder) Load(mem MemoryID, op byte, offset uint64, addr ExprID) ExprID {
	in := b.instr(op, b.memArg(op, offset), addr)
	in.Memory = mem
	return b.add(in)
}

// Store writes value to mem at addr+offset with natural alignment.
func (b *InstrSeqBuilder) Store(mem MemoryID, op byte, offset uint64, addr, value ExprID) ExprID {
	in := b.instr(op, b.memArg(op, offset), addr, value)
	in.Memory = mem
	return b.add(in)
}

// MemorySize produces the size of mem in pages.
func (b *InstrSeqBuilder) MemorySize(mem MemoryID) ExprID {
	in := b.instr(wasm.OpMemorySize, wasm.MemoryIdxImm{})
	in.Memory = mem
	return b.add(in)
}

// MemoryGrow grows mem by delta pages.
func (b *InstrSeqBuilder) MemoryGrow(mem MemoryID, delta ExprID) ExprID {
	in := b.instr(wasm.OpMemoryGrow, wasm.MemoryIdxImm{}, delta)
	in.Memory = mem
	return b.add(in)
}

// RefFunc produces a reference to f.
func (b *InstrSeqBuilder) RefFunc(f FuncID) ExprID {
	in := b.instr(wasm.OpRefFunc, wasm.RefFuncImm{})
	in.Func = f
	return b.add(in)
}

// FunctionBuilder constructs a new local function.
type FunctionBuilder struct {
	InstrSeqBuilder
	ty   TypeID
	name string
}

// NewFunctionBuilder starts a function of type params -> results in m.
func NewFunctionBuilder(m *Module, params, results []wasm.ValType) *FunctionBuilder {
	ty := m.Types.Add(params, results)
	lf := newLocalFunction(m)
	lf.entry = lf.alloc(newBlock(BlockEntry, BlockType{Func: ty}))
	return &FunctionBuilder{InstrSeqBuilder: InstrSeqBuilder{fn: lf, m: m}, ty: ty}
}

// Name sets the function name.
func (b *FunctionBuilder) Name(name string) *FunctionBuilder {
	b.name = name
	return b
}

// Local declares a local of type t.
func (b *FunctionBuilder) Local(t wasm.ValType) LocalID {
	l := b.m.Locals.Add(t)
	b.fn.Locals = append(b.fn.Locals, l)
	return l
}

// Finish adds the function to the module. args are the parameter
// locals and must match the parameter types; body fills the entry block.
func (b *FunctionBuilder) Finish(args []LocalID, body ...ExprID) FuncID {
	params := b.m.Types.Params(b.ty)
	if len(args) != len(params) {
		panic(fmt.Sprintf("ir: function takes %d parameters, got %d argument locals", len(params), len(args)))
	}
	for i, l := range args {
		if t := b.m.Locals.Get(l).Type; t != params[i] {
			panic(fmt.Sprintf("ir: argument %d is %s, parameter is %s", i, t, params[i]))
		}
	}
	b.fn.Args = args
	b.fn.EntryBlock().Append(body...)
	return b.m.Funcs.add(&Function{Type: b.ty, Name: b.name, Kind: b.fn})
}
