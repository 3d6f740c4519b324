package ir

import (
	"fmt"
	"slices"

	"github.com/wippyai/wasm-ir/wasm"
)

// ExprID identifies an expression within one LocalFunction.
type ExprID = ID[Expr]

// Expr is a node of a function body: *Instr, *Block or *IfElse.
type Expr interface {
	exprNode()
}

// Instr is any instruction other than block, loop and if. Entity
// references are held as IDs; the index fields inside Imm are rewritten
// on emit. Operands are emitted before the instruction itself.
type Instr struct {
	wasm.Instruction

	Operands []ExprID

	Func    FuncID
	Type    TypeID
	Local   LocalID
	Global  GlobalID
	Table   TableID
	Table2  TableID // source table of table.copy
	Memory  MemoryID
	Memory2 MemoryID // source memory of memory.copy
	Data    DataID
	Elem    ElementID

	offset int
}

func (*Instr) exprNode() {}

// NewInstr wraps a raw instruction. The caller sets the ID fields that
// the opcode refers to.
func NewInstr(in wasm.Instruction, operands ...ExprID) *Instr {
	return &Instr{Instruction: in, Operands: operands, offset: -1}
}

// Offset returns the instruction's position in the input code section,
// or -1 if it was not decoded.
func (i *Instr) Offset() int { return i.offset }

// BlockKind distinguishes the roles a Block plays.
type BlockKind uint8

const (
	BlockEntry BlockKind = iota
	BlockPlain
	BlockLoop
	BlockArm // consequent or alternative of an IfElse
)

func (k BlockKind) String() string {
	switch k {
	case BlockEntry:
		return "entry"
	case BlockPlain:
		return "block"
	case BlockLoop:
		return "loop"
	case BlockArm:
		return "arm"
	}
	return fmt.Sprintf("blockkind(%d)", uint8(k))
}

// BlockType is the signature of a block. Func, when valid, names a
// multi-value type; otherwise Value is the single result, or zero for
// none.
type BlockType struct {
	Func  TypeID
	Value wasm.ValType
}

// Block is a sequence of expressions.
type Block struct {
	Exprs []ExprID
	Type  BlockType
	Kind  BlockKind

	offset, endOffset int
}

func (*Block) exprNode() {}

func newBlock(kind BlockKind, ty BlockType) *Block {
	return &Block{Kind: kind, Type: ty, offset: -1, endOffset: -1}
}

// Append adds ids to the end of the block.
func (b *Block) Append(ids ...ExprID) {
	b.Exprs = append(b.Exprs, ids...)
}

// InsertExpr inserts id at position i.
func (b *Block) InsertExpr(i int, id ExprID) {
	b.Exprs = slices.Insert(b.Exprs, i, id)
}

// RemoveExpr removes and returns the expression at position i.
func (b *Block) RemoveExpr(i int) ExprID {
	id := b.Exprs[i]
	b.Exprs = slices.Delete(b.Exprs, i, i+1)
	return id
}

// IfElse is a conditional. Operands produce the block inputs followed by
// the condition. Both arms are Blocks of kind BlockArm; the else keyword
// is emitted only when Alternative is non-empty.
type IfElse struct {
	Operands    []ExprID
	Type        BlockType
	Consequent  ExprID
	Alternative ExprID

	offset, elseOffset, endOffset int
}

func (*IfElse) exprNode() {}

// ConstExpr is a constant expression, as used by global initializers and
// segment offsets. Its instructions carry no operands and no end.
type ConstExpr []Instr

// I32Const returns the constant expression i32.const v.
func I32Const(v int32) ConstExpr {
	return ConstExpr{*NewInstr(wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: v}})}
}

// I64Const returns the constant expression i64.const v.
func I64Const(v int64) ConstExpr {
	return ConstExpr{*NewInstr(wasm.Instruction{Opcode: wasm.OpI64Const, Imm: wasm.I64Imm{Value: v}})}
}

// GlobalGet returns the constant expression global.get g.
func GlobalGet(g GlobalID) ConstExpr {
	in := NewInstr(wasm.Instruction{Opcode: wasm.OpGlobalGet, Imm: wasm.GlobalImm{}})
	in.Global = g
	return ConstExpr{*in}
}

// RefFunc returns the constant expression ref.func f.
func RefFunc(f FuncID) ConstExpr {
	in := NewInstr(wasm.Instruction{Opcode: wasm.OpRefFunc, Imm: wasm.RefFuncImm{}})
	in.Func = f
	return ConstExpr{*in}
}

// RefNull returns the constant expression ref.null t.
func RefNull(t wasm.ValType) ConstExpr {
	return ConstExpr{*NewInstr(wasm.Instruction{Opcode: wasm.OpRefNull, Imm: wasm.RefNullImm{HeapType: wasm.BlockTypeFor(t)}})}
}

// Value returns the integer of a single i32.const or i64.const.
func (c ConstExpr) Value() (int64, bool) {
	if len(c) != 1 {
		return 0, false
	}
	switch imm := c[0].Imm.(type) {
	case wasm.I32Imm:
		return int64(imm.Value), true
	case wasm.I64Imm:
		return imm.Value, true
	}
	return 0, false
}
