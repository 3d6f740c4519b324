package ir

import "github.com/wippyai/wasm-ir/wasm"

// LocalID identifies a local variable.
type LocalID = ID[Local]

// Local is a function parameter or local variable.
type Local struct {
	Name string
	Type wasm.ValType
	id   LocalID
}

// ID returns the local's identifier.
func (l *Local) ID() LocalID { return l.id }

// Locals is the module-wide arena of locals.
type Locals struct {
	Arena[Local]
}

// Add creates a local of type t.
func (ls *Locals) Add(t wasm.ValType) LocalID {
	l := &Local{Type: t}
	l.id = ls.Alloc(l)
	return l.id
}
