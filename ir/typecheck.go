package ir

import (
	"fmt"

	werrors "github.com/wippyai/wasm-ir/errors"
	"github.com/wippyai/wasm-ir/wasm"
)

// operandUnknown is a stack slot produced after unreachable code. It
// matches any expected type.
const operandUnknown wasm.ValType = 0

// control is an open block on the checker's label stack.
type control struct {
	opcode      byte
	params      []wasm.ValType
	results     []wasm.ValType
	height      int
	unreachable bool
}

// labelTypes returns what a branch to c must carry.
func (c *control) labelTypes() []wasm.ValType {
	if c.opcode == wasm.OpLoop {
		return c.params
	}
	return c.results
}

// typeChecker tracks operand types through one function body while it
// is decoded.
type typeChecker struct {
	m      *Module
	vals   []wasm.ValType
	ctrls  []control
	offset int
}

func newTypeChecker(m *Module, ty TypeID) *typeChecker {
	c := &typeChecker{m: m}
	c.pushControl(wasm.OpBlock, nil, m.Types.Get(ty).Results)
	return c
}

// at sets the input offset reported by errors.
func (c *typeChecker) at(offset int) { c.offset = offset }

func (c *typeChecker) mismatch(expected, found string) error {
	err := werrors.TypeMismatch(werrors.PhaseValidate, expected, found)
	err.Section = "code"
	err.Offset = c.offset
	err.HasOffset = true
	return err
}

func (c *typeChecker) push(t wasm.ValType) {
	c.vals = append(c.vals, t)
}

func (c *typeChecker) pushAll(ts []wasm.ValType) {
	c.vals = append(c.vals, ts...)
}

func (c *typeChecker) pop() (wasm.ValType, error) {
	top := &c.ctrls[len(c.ctrls)-1]
	if len(c.vals) == top.height {
		if top.unreachable {
			return operandUnknown, nil
		}
		return 0, c.mismatch("operand", "empty stack")
	}
	t := c.vals[len(c.vals)-1]
	c.vals = c.vals[:len(c.vals)-1]
	return t, nil
}

func (c *typeChecker) popExpect(want wasm.ValType) (wasm.ValType, error) {
	got, err := c.pop()
	if err != nil {
		return 0, c.mismatch(want.String(), "empty stack")
	}
	if got != want && got != operandUnknown && want != operandUnknown {
		return 0, c.mismatch(want.String(), got.String())
	}
	return got, nil
}

func (c *typeChecker) popAll(ts []wasm.ValType) error {
	for i := len(ts) - 1; i >= 0; i-- {
		if _, err := c.popExpect(ts[i]); err != nil {
			return err
		}
	}
	return nil
}

// apply pops params and pushes results.
func (c *typeChecker) apply(params []wasm.ValType, results ...wasm.ValType) error {
	if err := c.popAll(params); err != nil {
		return err
	}
	c.pushAll(results)
	return nil
}

func (c *typeChecker) pushControl(op byte, params, results []wasm.ValType) {
	c.ctrls = append(c.ctrls, control{opcode: op, params: params, results: results, height: len(c.vals)})
	c.pushAll(params)
}

func (c *typeChecker) popControl() (control, error) {
	top := c.ctrls[len(c.ctrls)-1]
	if err := c.popAll(top.results); err != nil {
		return top, err
	}
	if extra := len(c.vals) - top.height; extra != 0 {
		return top, c.mismatch(fmt.Sprintf("%d results at end of block", len(top.results)),
			fmt.Sprintf("%d extra values", extra))
	}
	c.ctrls = c.ctrls[:len(c.ctrls)-1]
	return top, nil
}

func (c *typeChecker) setUnreachable() {
	top := &c.ctrls[len(c.ctrls)-1]
	c.vals = c.vals[:top.height]
	top.unreachable = true
}

func (c *typeChecker) label(depth uint32) (*control, error) {
	if int(depth) >= len(c.ctrls) {
		return nil, strictErr(c.offset, "branch depth %d exceeds label stack %d", depth, len(c.ctrls))
	}
	return &c.ctrls[len(c.ctrls)-1-int(depth)], nil
}

func (c *typeChecker) blockSig(bt BlockType) (params, results []wasm.ValType) {
	if bt.Func.Valid() {
		ty := c.m.Types.Get(bt.Func)
		return ty.Params, ty.Results
	}
	if bt.Value != 0 {
		return nil, []wasm.ValType{bt.Value}
	}
	return nil, nil
}

// enter opens a block, loop or if.
func (c *typeChecker) enter(op byte, bt BlockType) error {
	if op == wasm.OpIf {
		if _, err := c.popExpect(wasm.ValI32); err != nil {
			return err
		}
	}
	params, results := c.blockSig(bt)
	if err := c.popAll(params); err != nil {
		return err
	}
	c.pushControl(op, params, results)
	return nil
}

// elseArm closes the consequent of an if and opens its alternative.
func (c *typeChecker) elseArm() error {
	top, err := c.popControl()
	if err != nil {
		return err
	}
	c.pushControl(wasm.OpElse, top.params, top.results)
	return nil
}

// exit closes the innermost block. Closing the function frame leaves
// the checker empty.
func (c *typeChecker) exit() error {
	top, err := c.popControl()
	if err != nil {
		return err
	}
	if top.opcode == wasm.OpIf && !sameTypes(top.params, top.results) {
		return c.mismatch("else arm for if with differing params and results", "no else")
	}
	if len(c.ctrls) > 0 {
		c.pushAll(top.results)
	}
	return nil
}

func sameTypes(a, b []wasm.ValType) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// addrType is the index type of a memory.
func (c *typeChecker) addrType(mem MemoryID) wasm.ValType {
	if c.m.Memories.Get(mem).Limits.Is64 {
		return wasm.ValI64
	}
	return wasm.ValI32
}

// instr checks a non-structured instruction.
func (c *typeChecker) instr(in *Instr) error {
	op := in.Opcode
	switch {
	case op >= wasm.OpI32Eqz && op <= wasm.OpI64Extend32S:
		return c.numeric(op)
	case op >= wasm.OpI32Load && op <= wasm.OpI64Store32:
		return c.memory(in)
	}

	switch op {
	case wasm.OpUnreachable:
		c.setUnreachable()
	case wasm.OpNop:
	case wasm.OpBr:
		l, err := c.label(in.Imm.(wasm.BranchImm).LabelIdx)
		if err != nil {
			return err
		}
		if err := c.popAll(l.labelTypes()); err != nil {
			return err
		}
		c.setUnreachable()
	case wasm.OpBrIf:
		if _, err := c.popExpect(wasm.ValI32); err != nil {
			return err
		}
		l, err := c.label(in.Imm.(wasm.BranchImm).LabelIdx)
		if err != nil {
			return err
		}
		return c.apply(l.labelTypes(), l.labelTypes()...)
	case wasm.OpBrTable:
		return c.brTable(in.Imm.(wasm.BrTableImm))
	case wasm.OpReturn:
		if err := c.popAll(c.ctrls[0].results); err != nil {
			return err
		}
		c.setUnreachable()
	case wasm.OpCall:
		ty := c.m.Types.Get(c.m.Funcs.Get(in.Func).Type)
		return c.apply(ty.Params, ty.Results...)
	case wasm.OpCallIndirect:
		if err := c.funcTable(in.Table); err != nil {
			return err
		}
		if _, err := c.popExpect(wasm.ValI32); err != nil {
			return err
		}
		ty := c.m.Types.Get(in.Type)
		return c.apply(ty.Params, ty.Results...)
	case wasm.OpReturnCall:
		return c.tailCall(c.m.Types.Get(c.m.Funcs.Get(in.Func).Type))
	case wasm.OpReturnCallIndirect:
		if err := c.funcTable(in.Table); err != nil {
			return err
		}
		if _, err := c.popExpect(wasm.ValI32); err != nil {
			return err
		}
		return c.tailCall(c.m.Types.Get(in.Type))
	case wasm.OpDrop:
		_, err := c.pop()
		return err
	case wasm.OpSelect:
		return c.selectUntyped()
	case wasm.OpSelectType:
		types := in.Imm.(wasm.SelectTypeImm).Types
		if len(types) != 1 {
			return c.mismatch("one select type", fmt.Sprintf("%d", len(types)))
		}
		return c.apply([]wasm.ValType{types[0], types[0], wasm.ValI32}, types[0])
	case wasm.OpLocalGet:
		c.push(c.m.Locals.Get(in.Local).Type)
	case wasm.OpLocalSet:
		_, err := c.popExpect(c.m.Locals.Get(in.Local).Type)
		return err
	case wasm.OpLocalTee:
		t := c.m.Locals.Get(in.Local).Type
		return c.apply([]wasm.ValType{t}, t)
	case wasm.OpGlobalGet:
		c.push(c.m.Globals.Get(in.Global).Type)
	case wasm.OpGlobalSet:
		g := c.m.Globals.Get(in.Global)
		if !g.Mutable {
			return strictErr(c.offset, "global.set of immutable global")
		}
		_, err := c.popExpect(g.Type)
		return err
	case wasm.OpTableGet:
		return c.apply([]wasm.ValType{wasm.ValI32}, c.m.Tables.Get(in.Table).Type)
	case wasm.OpTableSet:
		return c.apply([]wasm.ValType{wasm.ValI32, c.m.Tables.Get(in.Table).Type})
	case wasm.OpMemorySize:
		c.push(c.addrType(in.Memory))
	case wasm.OpMemoryGrow:
		a := c.addrType(in.Memory)
		return c.apply([]wasm.ValType{a}, a)
	case wasm.OpI32Const:
		c.push(wasm.ValI32)
	case wasm.OpI64Const:
		c.push(wasm.ValI64)
	case wasm.OpF32Const:
		c.push(wasm.ValF32)
	case wasm.OpF64Const:
		c.push(wasm.ValF64)
	case wasm.OpRefNull:
		c.push(wasm.ValType(in.Imm.(wasm.RefNullImm).HeapType + 0x80))
	case wasm.OpRefIsNull:
		t, err := c.pop()
		if err != nil {
			return err
		}
		if t != operandUnknown && !t.IsRef() {
			return c.mismatch("reference", t.String())
		}
		c.push(wasm.ValI32)
	case wasm.OpRefFunc:
		c.push(wasm.ValFuncRef)
	case wasm.OpPrefixMisc:
		return c.misc(in)
	case wasm.OpPrefixSIMD:
		return c.simd(in)
	case wasm.OpPrefixAtomic:
		return c.atomic(in)
	}
	return nil
}

func (c *typeChecker) brTable(imm wasm.BrTableImm) error {
	if _, err := c.popExpect(wasm.ValI32); err != nil {
		return err
	}
	def, err := c.label(imm.Default)
	if err != nil {
		return err
	}
	arity := len(def.labelTypes())
	for _, depth := range imm.Labels {
		l, err := c.label(depth)
		if err != nil {
			return err
		}
		if len(l.labelTypes()) != arity {
			return c.mismatch(fmt.Sprintf("%d branch values", arity), fmt.Sprintf("%d", len(l.labelTypes())))
		}
		// Each target checks the same operands, so pop and restore.
		saved := append([]wasm.ValType(nil), c.vals...)
		if err := c.popAll(l.labelTypes()); err != nil {
			return err
		}
		c.vals = saved
	}
	if err := c.popAll(def.labelTypes()); err != nil {
		return err
	}
	c.setUnreachable()
	return nil
}

func (c *typeChecker) tailCall(ty *Type) error {
	if !sameTypes(ty.Results, c.ctrls[0].results) {
		return c.mismatch(fmt.Sprint(c.ctrls[0].results), fmt.Sprint(ty.Results))
	}
	if err := c.popAll(ty.Params); err != nil {
		return err
	}
	c.setUnreachable()
	return nil
}

func (c *typeChecker) funcTable(t TableID) error {
	if got := c.m.Tables.Get(t).Type; got != wasm.ValFuncRef {
		return c.mismatch("funcref table", got.String())
	}
	return nil
}

func (c *typeChecker) selectUntyped() error {
	if _, err := c.popExpect(wasm.ValI32); err != nil {
		return err
	}
	a, err := c.pop()
	if err != nil {
		return err
	}
	b, err := c.pop()
	if err != nil {
		return err
	}
	for _, t := range []wasm.ValType{a, b} {
		if t != operandUnknown && !t.IsNumeric() {
			return c.mismatch("numeric operand for select", t.String())
		}
	}
	if a != b && a != operandUnknown && b != operandUnknown {
		return c.mismatch(a.String(), b.String())
	}
	if a == operandUnknown {
		a = b
	}
	c.push(a)
	return nil
}

var conversions = map[byte][2]wasm.ValType{
	wasm.OpI32WrapI64:        {wasm.ValI64, wasm.ValI32},
	wasm.OpI32TruncF32S:      {wasm.ValF32, wasm.ValI32},
	wasm.OpI32TruncF32U:      {wasm.ValF32, wasm.ValI32},
	wasm.OpI32TruncF64S:      {wasm.ValF64, wasm.ValI32},
	wasm.OpI32TruncF64U:      {wasm.ValF64, wasm.ValI32},
	wasm.OpI64ExtendI32S:     {wasm.ValI32, wasm.ValI64},
	wasm.OpI64ExtendI32U:     {wasm.ValI32, wasm.ValI64},
	wasm.OpI64TruncF32S:      {wasm.ValF32, wasm.ValI64},
	wasm.OpI64TruncF32U:      {wasm.ValF32, wasm.ValI64},
	wasm.OpI64TruncF64S:      {wasm.ValF64, wasm.ValI64},
	wasm.OpI64TruncF64U:      {wasm.ValF64, wasm.ValI64},
	wasm.OpF32ConvertI32S:    {wasm.ValI32, wasm.ValF32},
	wasm.OpF32ConvertI32U:    {wasm.ValI32, wasm.ValF32},
	wasm.OpF32ConvertI64S:    {wasm.ValI64, wasm.ValF32},
	wasm.OpF32ConvertI64U:    {wasm.ValI64, wasm.ValF32},
	wasm.OpF32DemoteF64:      {wasm.ValF64, wasm.ValF32},
	wasm.OpF64ConvertI32S:    {wasm.ValI32, wasm.ValF64},
	wasm.OpF64ConvertI32U:    {wasm.ValI32, wasm.ValF64},
	wasm.OpF64ConvertI64S:    {wasm.ValI64, wasm.ValF64},
	wasm.OpF64ConvertI64U:    {wasm.ValI64, wasm.ValF64},
	wasm.OpF64PromoteF32:     {wasm.ValF32, wasm.ValF64},
	wasm.OpI32ReinterpretF32: {wasm.ValF32, wasm.ValI32},
	wasm.OpI64ReinterpretF64: {wasm.ValF64, wasm.ValI64},
	wasm.OpF32ReinterpretI32: {wasm.ValI32, wasm.ValF32},
	wasm.OpF64ReinterpretI64: {wasm.ValI64, wasm.ValF64},
}

// numeric checks the single-byte arithmetic, comparison and conversion
// opcodes.
func (c *typeChecker) numeric(op byte) error {
	unop := func(t, r wasm.ValType) error { return c.apply([]wasm.ValType{t}, r) }
	binop := func(t, r wasm.ValType) error { return c.apply([]wasm.ValType{t, t}, r) }

	switch {
	case op == wasm.OpI32Eqz:
		return unop(wasm.ValI32, wasm.ValI32)
	case op <= wasm.OpI32GeU:
		return binop(wasm.ValI32, wasm.ValI32)
	case op == wasm.OpI64Eqz:
		return unop(wasm.ValI64, wasm.ValI32)
	case op <= wasm.OpI64GeU:
		return binop(wasm.ValI64, wasm.ValI32)
	case op <= wasm.OpF32Ge:
		return binop(wasm.ValF32, wasm.ValI32)
	case op <= wasm.OpF64Ge:
		return binop(wasm.ValF64, wasm.ValI32)
	case op <= wasm.OpI32Popcnt:
		return unop(wasm.ValI32, wasm.ValI32)
	case op <= wasm.OpI32Rotr:
		return binop(wasm.ValI32, wasm.ValI32)
	case op <= wasm.OpI64Popcnt:
		return unop(wasm.ValI64, wasm.ValI64)
	case op <= wasm.OpI64Rotr:
		return binop(wasm.ValI64, wasm.ValI64)
	case op <= wasm.OpF32Sqrt:
		return unop(wasm.ValF32, wasm.ValF32)
	case op <= wasm.OpF32Copysign:
		return binop(wasm.ValF32, wasm.ValF32)
	case op <= wasm.OpF64Sqrt:
		return unop(wasm.ValF64, wasm.ValF64)
	case op <= wasm.OpF64Copysign:
		return binop(wasm.ValF64, wasm.ValF64)
	case op <= wasm.OpF64ReinterpretI64:
		conv := conversions[op]
		return unop(conv[0], conv[1])
	case op <= wasm.OpI32Extend16S:
		return unop(wasm.ValI32, wasm.ValI32)
	default:
		return unop(wasm.ValI64, wasm.ValI64)
	}
}

// memory checks the plain loads and stores.
func (c *typeChecker) memory(in *Instr) error {
	addr := c.addrType(in.Memory)
	var t wasm.ValType
	switch in.Opcode {
	case wasm.OpI32Load, wasm.OpI32Load8S, wasm.OpI32Load8U, wasm.OpI32Load16S, wasm.OpI32Load16U,
		wasm.OpI32Store, wasm.OpI32Store8, wasm.OpI32Store16:
		t = wasm.ValI32
	case wasm.OpF32Load, wasm.OpF32Store:
		t = wasm.ValF32
	case wasm.OpF64Load, wasm.OpF64Store:
		t = wasm.ValF64
	default:
		t = wasm.ValI64
	}
	if in.Opcode >= wasm.OpI32Store {
		return c.apply([]wasm.ValType{addr, t})
	}
	return c.apply([]wasm.ValType{addr}, t)
}

func (c *typeChecker) misc(in *Instr) error {
	imm := in.Imm.(wasm.MiscImm)
	i32 := wasm.ValI32
	switch sub := imm.SubOpcode; sub {
	case wasm.MiscI32TruncSatF32S, wasm.MiscI32TruncSatF32U:
		return c.apply([]wasm.ValType{wasm.ValF32}, i32)
	case wasm.MiscI32TruncSatF64S, wasm.MiscI32TruncSatF64U:
		return c.apply([]wasm.ValType{wasm.ValF64}, i32)
	case wasm.MiscI64TruncSatF32S, wasm.MiscI64TruncSatF32U:
		return c.apply([]wasm.ValType{wasm.ValF32}, wasm.ValI64)
	case wasm.MiscI64TruncSatF64S, wasm.MiscI64TruncSatF64U:
		return c.apply([]wasm.ValType{wasm.ValF64}, wasm.ValI64)
	case wasm.MiscMemoryInit:
		return c.apply([]wasm.ValType{c.addrType(in.Memory), i32, i32})
	case wasm.MiscDataDrop, wasm.MiscElemDrop:
		return nil
	case wasm.MiscMemoryCopy:
		dst, src := c.addrType(in.Memory), c.addrType(in.Memory2)
		n := i32
		if dst == wasm.ValI64 && src == wasm.ValI64 {
			n = wasm.ValI64
		}
		return c.apply([]wasm.ValType{dst, src, n})
	case wasm.MiscMemoryFill:
		a := c.addrType(in.Memory)
		return c.apply([]wasm.ValType{a, i32, a})
	case wasm.MiscMemoryDiscard:
		a := c.addrType(in.Memory)
		return c.apply([]wasm.ValType{a, a})
	case wasm.MiscTableInit:
		et, tt := c.m.Elements.Get(in.Elem).Type, c.m.Tables.Get(in.Table).Type
		if et != tt {
			return c.mismatch(tt.String()+" segment", et.String())
		}
		return c.apply([]wasm.ValType{i32, i32, i32})
	case wasm.MiscTableCopy:
		dst, src := c.m.Tables.Get(in.Table).Type, c.m.Tables.Get(in.Table2).Type
		if dst != src {
			return c.mismatch(dst.String()+" table", src.String())
		}
		return c.apply([]wasm.ValType{i32, i32, i32})
	case wasm.MiscTableGrow:
		return c.apply([]wasm.ValType{c.m.Tables.Get(in.Table).Type, i32}, i32)
	case wasm.MiscTableSize:
		c.push(i32)
		return nil
	case wasm.MiscTableFill:
		return c.apply([]wasm.ValType{i32, c.m.Tables.Get(in.Table).Type, i32})
	default:
		return strictErr(c.offset, "unknown 0xfc opcode %#x", sub)
	}
}

// atomicType is the operand width of the loads, stores and
// read-modify-write groups, which repeat the same seven-opcode pattern.
var atomicType = [7]wasm.ValType{
	wasm.ValI32, wasm.ValI64, wasm.ValI32, wasm.ValI32, wasm.ValI64, wasm.ValI64, wasm.ValI64,
}

func (c *typeChecker) atomic(in *Instr) error {
	sub := in.Imm.(wasm.AtomicImm).SubOpcode
	if sub == wasm.AtomicFence {
		return nil
	}
	addr := c.addrType(in.Memory)
	i32, i64 := wasm.ValI32, wasm.ValI64
	switch {
	case sub == wasm.AtomicNotify:
		return c.apply([]wasm.ValType{addr, i32}, i32)
	case sub == wasm.AtomicWait32:
		return c.apply([]wasm.ValType{addr, i32, i64}, i32)
	case sub == wasm.AtomicWait64:
		return c.apply([]wasm.ValType{addr, i64, i64}, i32)
	case sub <= wasm.AtomicI64Load32U:
		return c.apply([]wasm.ValType{addr}, atomicType[sub-wasm.AtomicI32Load])
	case sub <= wasm.AtomicI64Store32:
		return c.apply([]wasm.ValType{addr, atomicType[sub-wasm.AtomicI32Store]})
	case sub < wasm.AtomicI32RmwCmpxchg:
		t := atomicType[(sub-wasm.AtomicI32RmwAdd)%7]
		return c.apply([]wasm.ValType{addr, t}, t)
	default:
		t := atomicType[sub-wasm.AtomicI32RmwCmpxchg]
		return c.apply([]wasm.ValType{addr, t, t}, t)
	}
}

// simdShape classifies vector opcodes by stack effect.
type simdShape uint8

const (
	simdInvalid simdShape = iota
	simdUnary             // v128 -> v128
	simdBinary            // v128 v128 -> v128
	simdTernary           // v128 v128 v128 -> v128
	simdTest              // v128 -> i32
	simdShift             // v128 i32 -> v128
)

// simdShapes covers the sub-opcodes from i8x16.eq onward that carry no
// immediates, including the relaxed range.
var simdShapes = func() map[uint32]simdShape {
	shapes := make(map[uint32]simdShape)
	span := func(first, last uint32, s simdShape) {
		for op := first; op <= last; op++ {
			shapes[op] = s
		}
	}
	span(0x23, 0x4c, simdBinary) // comparisons
	shapes[0x4d] = simdUnary     // v128.not
	span(0x4e, 0x51, simdBinary)
	shapes[0x52] = simdTernary // v128.bitselect
	shapes[0x53] = simdTest    // v128.any_true
	span(0x5e, 0x62, simdUnary)
	span(0x63, 0x64, simdTest)
	span(0x65, 0x66, simdBinary)
	span(0x67, 0x6a, simdUnary)
	span(0x6b, 0x6d, simdShift)
	span(0x6e, 0x73, simdBinary)
	span(0x74, 0x75, simdUnary)
	span(0x76, 0x79, simdBinary)
	shapes[0x7a] = simdUnary
	shapes[0x7b] = simdBinary
	span(0x7c, 0x81, simdUnary)
	shapes[0x82] = simdBinary
	span(0x83, 0x84, simdTest)
	span(0x85, 0x86, simdBinary)
	span(0x87, 0x8a, simdUnary)
	span(0x8b, 0x8d, simdShift)
	span(0x8e, 0x93, simdBinary)
	shapes[0x94] = simdUnary
	span(0x95, 0x99, simdBinary)
	span(0x9b, 0x9f, simdBinary)
	span(0xa0, 0xa1, simdUnary)
	span(0xa3, 0xa4, simdTest)
	span(0xa7, 0xaa, simdUnary)
	span(0xab, 0xad, simdShift)
	shapes[0xae] = simdBinary
	shapes[0xb1] = simdBinary
	span(0xb5, 0xba, simdBinary)
	span(0xbc, 0xbf, simdBinary)
	span(0xc0, 0xc1, simdUnary)
	span(0xc3, 0xc4, simdTest)
	span(0xc7, 0xca, simdUnary)
	span(0xcb, 0xcd, simdShift)
	shapes[0xce] = simdBinary
	shapes[0xd1] = simdBinary
	span(0xd5, 0xdf, simdBinary)
	span(0xe0, 0xe1, simdUnary)
	shapes[0xe3] = simdUnary
	span(0xe4, 0xeb, simdBinary)
	span(0xec, 0xed, simdUnary)
	shapes[0xef] = simdUnary
	span(0xf0, 0xf7, simdBinary)
	span(0xf8, 0xff, simdUnary)
	shapes[0x100] = simdBinary // relaxed swizzle
	span(0x101, 0x104, simdUnary)
	span(0x105, 0x10c, simdTernary)
	span(0x10d, 0x112, simdBinary)
	shapes[0x113] = simdTernary
	return shapes
}()

// laneTypes is the scalar type of each shape's lanes, indexed from
// i8x16.splat.
var laneTypes = [6]wasm.ValType{
	wasm.ValI32, wasm.ValI32, wasm.ValI32, wasm.ValI64, wasm.ValF32, wasm.ValF64,
}

func (c *typeChecker) simd(in *Instr) error {
	imm := in.Imm.(wasm.SIMDImm)
	sub := imm.SubOpcode
	v128 := wasm.ValV128
	vec := []wasm.ValType{v128}

	if imm.MemArg != nil {
		addr := c.addrType(in.Memory)
		switch {
		case sub == wasm.SimdV128Store:
			return c.apply([]wasm.ValType{addr, v128})
		case sub >= wasm.SimdV128Load8Lane && sub <= wasm.SimdV128Load64Lane:
			return c.apply([]wasm.ValType{addr, v128}, v128)
		case sub >= wasm.SimdV128Store8Lane && sub <= wasm.SimdV128Store64Lane:
			return c.apply([]wasm.ValType{addr, v128})
		default:
			return c.apply([]wasm.ValType{addr}, v128)
		}
	}

	switch {
	case sub == wasm.SimdV128Const:
		c.push(v128)
		return nil
	case sub == wasm.SimdI8x16Shuffle, sub == 0x0e: // shuffle, swizzle
		return c.apply([]wasm.ValType{v128, v128}, v128)
	case sub >= 0x0f && sub <= 0x14: // splats
		return c.apply([]wasm.ValType{laneTypes[sub-0x0f]}, v128)
	case sub >= wasm.SimdI8x16ExtractLaneS && sub <= wasm.SimdF64x2ReplaceLane:
		return c.lane(sub)
	}

	switch simdShapes[sub] {
	case simdUnary:
		return c.apply(vec, v128)
	case simdBinary:
		return c.apply([]wasm.ValType{v128, v128}, v128)
	case simdTernary:
		return c.apply([]wasm.ValType{v128, v128, v128}, v128)
	case simdTest:
		return c.apply(vec, wasm.ValI32)
	case simdShift:
		return c.apply([]wasm.ValType{v128, wasm.ValI32}, v128)
	}
	return strictErr(c.offset, "unknown 0xfd opcode %#x", sub)
}

// lane checks extract_lane and replace_lane, 0x15 through 0x22.
func (c *typeChecker) lane(sub uint32) error {
	var t wasm.ValType
	replace := false
	switch sub {
	case 0x15, 0x16, 0x18, 0x19, 0x1b:
		t = wasm.ValI32
	case 0x17, 0x1a, 0x1c:
		t, replace = wasm.ValI32, true
	case 0x1d:
		t = wasm.ValI64
	case 0x1e:
		t, replace = wasm.ValI64, true
	case 0x1f:
		t = wasm.ValF32
	case 0x20:
		t, replace = wasm.ValF32, true
	case 0x21:
		t = wasm.ValF64
	default:
		t, replace = wasm.ValF64, true
	}
	if replace {
		return c.apply([]wasm.ValType{wasm.ValV128, t}, wasm.ValV128)
	}
	return c.apply([]wasm.ValType{wasm.ValV128}, t)
}
