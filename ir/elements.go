package ir

import "github.com/wippyai/wasm-ir/wasm"

// ElementID identifies an element segment.
type ElementID = ID[Element]

// ElementMode says when a segment's references are used.
type ElementMode uint8

const (
	ElementActive ElementMode = iota
	ElementPassive
	ElementDeclared
)

func (m ElementMode) String() string {
	switch m {
	case ElementActive:
		return "active"
	case ElementPassive:
		return "passive"
	case ElementDeclared:
		return "declared"
	}
	return "unknown"
}

// Element is an element segment. Items are Funcs unless Expressions is
// set, in which case they are Exprs.
type Element struct {
	Name   string
	Funcs  []FuncID
	Exprs  []ConstExpr
	Offset ConstExpr
	Table  TableID
	Mode   ElementMode
	Type   wasm.ValType
	// Expressions selects the expression encoding of the items.
	Expressions bool

	explicitTable bool
	id            ElementID
}

// ID returns the segment's identifier.
func (e *Element) ID() ElementID { return e.id }

// Len returns the number of items.
func (e *Element) Len() int {
	if e.Expressions {
		return len(e.Exprs)
	}
	return len(e.Funcs)
}

// Elements is the arena of element segments.
type Elements struct {
	Arena[Element]
}

func (es *Elements) add(e *Element) ElementID {
	e.id = es.Alloc(e)
	return e.id
}

// AddActive creates a funcref segment written into table at offset.
func (es *Elements) AddActive(table TableID, offset ConstExpr, funcs []FuncID) ElementID {
	return es.add(&Element{Mode: ElementActive, Table: table, Offset: offset, Type: wasm.ValFuncRef, Funcs: funcs})
}

// AddPassive creates a passive funcref segment.
func (es *Elements) AddPassive(funcs []FuncID) ElementID {
	return es.add(&Element{Mode: ElementPassive, Type: wasm.ValFuncRef, Funcs: funcs})
}

// AddDeclared creates a declarative segment, which only makes funcs
// referenceable by ref.func.
func (es *Elements) AddDeclared(funcs []FuncID) ElementID {
	return es.add(&Element{Mode: ElementDeclared, Type: wasm.ValFuncRef, Funcs: funcs})
}
