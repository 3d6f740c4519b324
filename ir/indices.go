package ir

import (
	"fmt"

	"github.com/wippyai/wasm-ir/wasm"
)

type indexMap[T any] struct {
	ids   []ID[T]
	index map[ID[T]]uint32
}

func (im *indexMap[T]) push(id ID[T]) {
	if im.index == nil {
		im.index = make(map[ID[T]]uint32)
	}
	im.index[id] = uint32(len(im.ids))
	im.ids = append(im.ids, id)
}

func (im *indexMap[T]) get(id ID[T]) (uint32, bool) {
	idx, ok := im.index[id]
	return idx, ok
}

func (im *indexMap[T]) must(space string, id ID[T]) uint32 {
	idx, ok := im.index[id]
	if !ok {
		panic(fmt.Sprintf("ir: %s %s is not part of the module", space, id))
	}
	return idx
}

// IndexSpace is the binary index assignment for a module's current
// contents. Imported entities come first, in import order, followed by
// local ones in arena order. It is invalidated by any mutation.
type IndexSpace struct {
	types    indexMap[Type]
	funcs    indexMap[Function]
	tables   indexMap[Table]
	memories indexMap[Memory]
	globals  indexMap[Global]
	elements indexMap[Element]
	data     indexMap[Data]

	importedFuncs, importedTables, importedMemories, importedGlobals int
}

// Indices computes the index space of m.
func (m *Module) Indices() *IndexSpace {
	ix := &IndexSpace{}
	for id := range m.Types.All() {
		ix.types.push(id)
	}
	for _, imp := range m.Imports.All() {
		switch imp.Kind {
		case wasm.KindFunc:
			ix.funcs.push(imp.Func)
		case wasm.KindTable:
			ix.tables.push(imp.Table)
		case wasm.KindMemory:
			ix.memories.push(imp.Memory)
		case wasm.KindGlobal:
			ix.globals.push(imp.Global)
		}
	}
	ix.importedFuncs = len(ix.funcs.ids)
	ix.importedTables = len(ix.tables.ids)
	ix.importedMemories = len(ix.memories.ids)
	ix.importedGlobals = len(ix.globals.ids)

	for id, f := range m.Funcs.All() {
		if !f.IsImport() {
			ix.funcs.push(id)
		}
	}
	for id, t := range m.Tables.All() {
		if !t.IsImport() {
			ix.tables.push(id)
		}
	}
	for id, mem := range m.Memories.All() {
		if !mem.IsImport() {
			ix.memories.push(id)
		}
	}
	for id, g := range m.Globals.All() {
		if !g.IsImport() {
			ix.globals.push(id)
		}
	}
	for id := range m.Elements.All() {
		ix.elements.push(id)
	}
	for id := range m.Data.All() {
		ix.data.push(id)
	}
	return ix
}

// Type returns the index of a type.
func (ix *IndexSpace) Type(id TypeID) (uint32, bool) { return ix.types.get(id) }

// Func returns the index of a function.
func (ix *IndexSpace) Func(id FuncID) (uint32, bool) { return ix.funcs.get(id) }

// Table returns the index of a table.
func (ix *IndexSpace) Table(id TableID) (uint32, bool) { return ix.tables.get(id) }

// Memory returns the index of a memory.
func (ix *IndexSpace) Memory(id MemoryID) (uint32, bool) { return ix.memories.get(id) }

// Global returns the index of a global.
func (ix *IndexSpace) Global(id GlobalID) (uint32, bool) { return ix.globals.get(id) }

// Element returns the index of an element segment.
func (ix *IndexSpace) Element(id ElementID) (uint32, bool) { return ix.elements.get(id) }

// Data returns the index of a data segment.
func (ix *IndexSpace) Data(id DataID) (uint32, bool) { return ix.data.get(id) }

// FuncAt returns the function at a binary index.
func (ix *IndexSpace) FuncAt(idx uint32) (FuncID, bool) {
	if int(idx) >= len(ix.funcs.ids) {
		return FuncID{}, false
	}
	return ix.funcs.ids[idx], true
}

func (ix *IndexSpace) mustType(id TypeID) uint32       { return ix.types.must("type", id) }
func (ix *IndexSpace) mustFunc(id FuncID) uint32       { return ix.funcs.must("function", id) }
func (ix *IndexSpace) mustTable(id TableID) uint32     { return ix.tables.must("table", id) }
func (ix *IndexSpace) mustMemory(id MemoryID) uint32   { return ix.memories.must("memory", id) }
func (ix *IndexSpace) mustGlobal(id GlobalID) uint32   { return ix.globals.must("global", id) }
func (ix *IndexSpace) mustElement(id ElementID) uint32 { return ix.elements.must("element", id) }
func (ix *IndexSpace) mustData(id DataID) uint32       { return ix.data.must("data", id) }
