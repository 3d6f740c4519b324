package ir

import "github.com/wippyai/wasm-ir/wasm"

// GlobalID identifies a global.
type GlobalID = ID[Global]

// Global is an imported or locally defined global.
type Global struct {
	Name string
	// Init is the initializer of a local global. It is empty for imports.
	Init    ConstExpr
	Import  ImportID
	Type    wasm.ValType
	Mutable bool
	id      GlobalID
}

// ID returns the global's identifier.
func (g *Global) ID() GlobalID { return g.id }

// IsImport reports whether g is imported.
func (g *Global) IsImport() bool { return g.Import.Valid() }

// Globals is the arena of globals.
type Globals struct {
	Arena[Global]
}

func (gs *Globals) add(g *Global) GlobalID {
	g.id = gs.Alloc(g)
	return g.id
}

// AddLocal defines a global initialized by init.
func (gs *Globals) AddLocal(t wasm.ValType, mutable bool, init ConstExpr) GlobalID {
	return gs.add(&Global{Type: t, Mutable: mutable, Init: init})
}
