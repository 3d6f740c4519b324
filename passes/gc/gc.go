// Package gc removes module entities that nothing reachable refers to.
//
// Roots are exports, the start function, and active element and data
// segments. From the roots the pass follows function bodies, constant
// expressions and segment contents until nothing new is reached, then
// deletes every unreached function, import, global, table, memory, type,
// element segment and data segment. Declared element segments are
// trimmed to the functions that survive.
package gc

import (
	"github.com/bits-and-blooms/bitset"
	"go.uber.org/zap"

	werrors "github.com/wippyai/wasm-ir/errors"
	"github.com/wippyai/wasm-ir/ir"
	"github.com/wippyai/wasm-ir/wasm"
)

// Stats counts what Run deleted.
type Stats struct {
	Funcs    int
	Imports  int
	Globals  int
	Tables   int
	Memories int
	Types    int
	Elements int
	Data     int
	Locals   int
}

// Total returns the number of deleted entities, locals excluded.
func (s Stats) Total() int {
	return s.Funcs + s.Globals + s.Tables + s.Memories + s.Types + s.Elements + s.Data
}

type marker struct {
	m *ir.Module

	funcs    bitset.BitSet
	globals  bitset.BitSet
	tables   bitset.BitSet
	memories bitset.BitSet
	types    bitset.BitSet
	elems    bitset.BitSet
	data     bitset.BitSet

	queue []ir.FuncID
	err   error
}

type arena[T any] interface {
	Contains(ir.ID[T]) bool
}

// visit marks id in set and reports whether it was newly marked. An id
// that is not live in its arena records an error.
func visit[T any](mk *marker, set *bitset.BitSet, a arena[T], id ir.ID[T], space string) bool {
	if !id.Valid() {
		return false
	}
	if !a.Contains(id) {
		if mk.err == nil {
			mk.err = werrors.New(werrors.PhaseValidate, werrors.KindNotFound).
				Detail("reachable code refers to %s %s which is not in the module", space, id).
				Build()
		}
		return false
	}
	i := uint(id.Index())
	if set.Test(i) {
		return false
	}
	set.Set(i)
	return true
}

// Run deletes everything in m that is unreachable from its roots. It
// fails without modifying m if reachable code refers to a deleted or
// foreign entity.
func Run(m *ir.Module) (Stats, error) {
	mk := &marker{m: m}
	mk.roots()
	for len(mk.queue) > 0 {
		f := mk.queue[len(mk.queue)-1]
		mk.queue = mk.queue[:len(mk.queue)-1]
		mk.body(f)
	}
	if mk.err != nil {
		return Stats{}, mk.err
	}
	stats := mk.sweep()
	ir.Logger().Debug("gc finished",
		zap.Int("funcs", stats.Funcs),
		zap.Int("imports", stats.Imports),
		zap.Int("globals", stats.Globals),
		zap.Int("types", stats.Types),
		zap.Int("locals", stats.Locals))
	return stats, nil
}

func (mk *marker) roots() {
	m := mk.m
	for _, exp := range m.Exports.All() {
		switch exp.Kind {
		case wasm.KindFunc:
			mk.fn(exp.Func)
		case wasm.KindTable:
			mk.table(exp.Table)
		case wasm.KindMemory:
			mk.memory(exp.Memory)
		case wasm.KindGlobal:
			mk.global(exp.Global)
		}
	}
	mk.fn(m.Start)
	for id, e := range m.Elements.All() {
		if e.Mode == ir.ElementActive {
			mk.elem(id)
		}
	}
	for id, d := range m.Data.All() {
		if !d.Passive {
			mk.segment(id)
		}
	}
}

func (mk *marker) fn(id ir.FuncID) {
	if !visit(mk, &mk.funcs, &mk.m.Funcs, id, "function") {
		return
	}
	f := mk.m.Funcs.Get(id)
	mk.ty(f.Type)
	if _, ok := f.Local(); ok {
		mk.queue = append(mk.queue, id)
	}
}

func (mk *marker) ty(id ir.TypeID) {
	visit(mk, &mk.types, &mk.m.Types, id, "type")
}

func (mk *marker) table(id ir.TableID) {
	visit(mk, &mk.tables, &mk.m.Tables, id, "table")
}

func (mk *marker) memory(id ir.MemoryID) {
	visit(mk, &mk.memories, &mk.m.Memories, id, "memory")
}

func (mk *marker) global(id ir.GlobalID) {
	if visit(mk, &mk.globals, &mk.m.Globals, id, "global") {
		mk.constExpr(mk.m.Globals.Get(id).Init)
	}
}

func (mk *marker) elem(id ir.ElementID) {
	if !visit(mk, &mk.elems, &mk.m.Elements, id, "element segment") {
		return
	}
	e := mk.m.Elements.Get(id)
	if e.Mode == ir.ElementActive {
		mk.table(e.Table)
		mk.constExpr(e.Offset)
	}
	for _, f := range e.Funcs {
		mk.fn(f)
	}
	for _, expr := range e.Exprs {
		mk.constExpr(expr)
	}
}

func (mk *marker) segment(id ir.DataID) {
	if !visit(mk, &mk.data, &mk.m.Data, id, "data segment") {
		return
	}
	d := mk.m.Data.Get(id)
	if !d.Passive {
		mk.memory(d.Memory)
		mk.constExpr(d.Offset)
	}
}

func (mk *marker) constExpr(expr ir.ConstExpr) {
	for i := range expr {
		mk.instr(&expr[i])
	}
}

func (mk *marker) instr(in *ir.Instr) {
	mk.fn(in.Func)
	mk.ty(in.Type)
	mk.global(in.Global)
	mk.table(in.Table)
	mk.table(in.Table2)
	mk.memory(in.Memory)
	mk.memory(in.Memory2)
	mk.segment(in.Data)
	mk.elem(in.Elem)
}

func (mk *marker) body(id ir.FuncID) {
	lf, _ := mk.m.Funcs.Get(id).Local()
	lf.Walk(func(_ ir.ExprID, e ir.Expr) bool {
		switch e := e.(type) {
		case *ir.Instr:
			mk.instr(e)
		case *ir.Block:
			mk.ty(e.Type.Func)
		case *ir.IfElse:
			mk.ty(e.Type.Func)
		}
		return true
	})
}

func (mk *marker) sweep() Stats {
	var s Stats
	m := mk.m
	live := func(set *bitset.BitSet, index uint32) bool { return set.Test(uint(index)) }

	for _, e := range m.Elements.All() {
		if e.Mode != ir.ElementDeclared {
			continue
		}
		funcs := e.Funcs[:0]
		for _, f := range e.Funcs {
			if live(&mk.funcs, f.Index()) {
				funcs = append(funcs, f)
			}
		}
		e.Funcs = funcs
		exprs := e.Exprs[:0]
		for _, expr := range e.Exprs {
			if refersToLive(expr, &mk.funcs) {
				exprs = append(exprs, expr)
			}
		}
		e.Exprs = exprs
	}
	for id, e := range m.Elements.All() {
		declared := e.Mode == ir.ElementDeclared && e.Len() > 0
		if !declared && !live(&mk.elems, id.Index()) {
			m.Elements.Delete(id)
			s.Elements++
		}
	}
	for id, d := range m.Data.All() {
		if !live(&mk.data, id.Index()) && d.Passive {
			m.Data.Delete(id)
			s.Data++
		}
	}

	shared := localsOf(m, &mk.funcs)
	for id, f := range m.Funcs.All() {
		if live(&mk.funcs, id.Index()) {
			continue
		}
		s.Funcs++
		switch kind := f.Kind.(type) {
		case *ir.ImportedFunction:
			m.DeleteImport(kind.Import)
			s.Imports++
		case *ir.LocalFunction:
			s.Locals += deleteLocals(m, kind, &shared)
			m.Funcs.Delete(id)
		}
	}
	for id, g := range m.Globals.All() {
		if live(&mk.globals, id.Index()) {
			continue
		}
		s.Globals++
		if g.IsImport() {
			m.DeleteImport(g.Import)
			s.Imports++
			continue
		}
		m.Globals.Delete(id)
	}
	for id, t := range m.Tables.All() {
		if live(&mk.tables, id.Index()) {
			continue
		}
		s.Tables++
		if t.IsImport() {
			m.DeleteImport(t.Import)
			s.Imports++
			continue
		}
		m.Tables.Delete(id)
	}
	for id, mem := range m.Memories.All() {
		if live(&mk.memories, id.Index()) {
			continue
		}
		s.Memories++
		if mem.IsImport() {
			m.DeleteImport(mem.Import)
			s.Imports++
			continue
		}
		m.Memories.Delete(id)
	}
	for id := range m.Types.All() {
		if !live(&mk.types, id.Index()) {
			m.Types.Delete(id)
			s.Types++
		}
	}
	return s
}

func refersToLive(expr ir.ConstExpr, funcs *bitset.BitSet) bool {
	for _, in := range expr {
		if in.Func.Valid() && !funcs.Test(uint(in.Func.Index())) {
			return false
		}
	}
	return true
}

// localsOf returns the locals that the surviving local functions
// declare or use.
func localsOf(m *ir.Module, funcs *bitset.BitSet) bitset.BitSet {
	var used bitset.BitSet
	mark := func(id ir.LocalID) {
		if id.Valid() {
			used.Set(uint(id.Index()))
		}
	}
	for f, lf := range m.Funcs.LocalFuncs() {
		if !funcs.Test(uint(f.ID().Index())) {
			continue
		}
		for _, l := range lf.Args {
			mark(l)
		}
		for _, l := range lf.Locals {
			mark(l)
		}
		lf.Walk(func(_ ir.ExprID, e ir.Expr) bool {
			if in, ok := e.(*ir.Instr); ok {
				mark(in.Local)
			}
			return true
		})
	}
	return used
}

// deleteLocals removes the locals of lf that no surviving function
// shares and returns how many were deleted.
func deleteLocals(m *ir.Module, lf *ir.LocalFunction, shared *bitset.BitSet) int {
	var owned bitset.BitSet
	n := 0
	drop := func(id ir.LocalID) {
		if !id.Valid() || owned.Test(uint(id.Index())) || shared.Test(uint(id.Index())) || !m.Locals.Contains(id) {
			return
		}
		owned.Set(uint(id.Index()))
		m.Locals.Delete(id)
		n++
	}
	for _, l := range lf.Args {
		drop(l)
	}
	for _, l := range lf.Locals {
		drop(l)
	}
	lf.Walk(func(_ ir.ExprID, e ir.Expr) bool {
		if in, ok := e.(*ir.Instr); ok {
			drop(in.Local)
		}
		return true
	})
	return n
}
