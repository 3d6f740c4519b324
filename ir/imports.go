package ir

import "github.com/wippyai/wasm-ir/wasm"

// ImportID identifies an import.
type ImportID = ID[Import]

// Import is an entry of the import section. Kind selects which of the
// entity IDs is set.
type Import struct {
	Module string
	Name   string
	Func   FuncID
	Table  TableID
	Memory MemoryID
	Global GlobalID
	Kind   byte
	id     ImportID
}

// ID returns the import's identifier.
func (i *Import) ID() ImportID { return i.id }

// Imports is the arena of imports, in import-section order.
type Imports struct {
	Arena[Import]
}

func (is *Imports) add(module, name string, kind byte) *Import {
	imp := &Import{Module: module, Name: name, Kind: kind}
	imp.id = is.Alloc(imp)
	return imp
}

// Find returns the first import with this module and name.
func (is *Imports) Find(module, name string) (ImportID, bool) {
	for id, imp := range is.All() {
		if imp.Module == module && imp.Name == name {
			return id, true
		}
	}
	return ImportID{}, false
}

// AddImportFunc imports a function of type ty.
func (m *Module) AddImportFunc(module, name string, ty TypeID) (FuncID, ImportID) {
	imp := m.Imports.add(module, name, wasm.KindFunc)
	f := &Function{Type: ty, Kind: &ImportedFunction{Import: imp.id}}
	imp.Func = m.Funcs.add(f)
	return imp.Func, imp.id
}

// AddImportMemory imports a memory.
func (m *Module) AddImportMemory(module, name string, limits Limits) (MemoryID, ImportID) {
	imp := m.Imports.add(module, name, wasm.KindMemory)
	mem := &Memory{Limits: limits, Import: imp.id}
	imp.Memory = m.Memories.add(mem)
	return imp.Memory, imp.id
}

// AddImportTable imports a table of elemType references.
func (m *Module) AddImportTable(module, name string, elemType wasm.ValType, limits Limits) (TableID, ImportID) {
	imp := m.Imports.add(module, name, wasm.KindTable)
	t := &Table{Type: elemType, Limits: limits, Import: imp.id}
	imp.Table = m.Tables.add(t)
	return imp.Table, imp.id
}

// AddImportGlobal imports a global.
func (m *Module) AddImportGlobal(module, name string, ty wasm.ValType, mutable bool) (GlobalID, ImportID) {
	imp := m.Imports.add(module, name, wasm.KindGlobal)
	g := &Global{Type: ty, Mutable: mutable, Import: imp.id}
	imp.Global = m.Globals.add(g)
	return imp.Global, imp.id
}

// DeleteImport removes an import together with the entity it declares.
func (m *Module) DeleteImport(id ImportID) {
	imp := m.Imports.Get(id)
	switch imp.Kind {
	case wasm.KindFunc:
		m.Funcs.Delete(imp.Func)
	case wasm.KindTable:
		m.Tables.Delete(imp.Table)
	case wasm.KindMemory:
		m.Memories.Delete(imp.Memory)
	case wasm.KindGlobal:
		m.Globals.Delete(imp.Global)
	}
	m.Imports.Delete(id)
}
