package ir

import "github.com/wippyai/wasm-ir/wasm"

// Limits bounds the size of a memory (in pages) or table (in elements).
type Limits struct {
	Max    *uint64
	Min    uint64
	Shared bool
	Is64   bool
}

// NewLimits returns limits with a minimum and an optional maximum.
func NewLimits(min uint64, max ...uint64) Limits {
	l := Limits{Min: min}
	if len(max) > 0 {
		v := max[0]
		l.Max = &v
	}
	return l
}

func (l Limits) flags() byte {
	var f byte
	if l.Max != nil {
		f |= wasm.LimitsHasMax
	}
	if l.Shared {
		f |= wasm.LimitsShared
	}
	if l.Is64 {
		f |= wasm.LimitsMemory64
	}
	return f
}

// MemoryID identifies a memory.
type MemoryID = ID[Memory]

// Memory is an imported or locally defined linear memory.
type Memory struct {
	Name   string
	Limits Limits
	Import ImportID
	id     MemoryID
}

// ID returns the memory's identifier.
func (m *Memory) ID() MemoryID { return m.id }

// IsImport reports whether the memory is imported.
func (m *Memory) IsImport() bool { return m.Import.Valid() }

// Memories is the arena of memories.
type Memories struct {
	Arena[Memory]
}

func (ms *Memories) add(mem *Memory) MemoryID {
	mem.id = ms.Alloc(mem)
	return mem.id
}

// AddLocal defines a memory.
func (ms *Memories) AddLocal(limits Limits) MemoryID {
	return ms.add(&Memory{Limits: limits})
}

// TableID identifies a table.
type TableID = ID[Table]

// Table is an imported or locally defined table of references.
type Table struct {
	Name   string
	Limits Limits
	Import ImportID
	Type   wasm.ValType
	id     TableID
}

// ID returns the table's identifier.
func (t *Table) ID() TableID { return t.id }

// IsImport reports whether the table is imported.
func (t *Table) IsImport() bool { return t.Import.Valid() }

// Tables is the arena of tables.
type Tables struct {
	Arena[Table]
}

func (ts *Tables) add(t *Table) TableID {
	t.id = ts.Alloc(t)
	return t.id
}

// AddLocal defines a table of elemType references.
func (ts *Tables) AddLocal(elemType wasm.ValType, limits Limits) TableID {
	return ts.add(&Table{Type: elemType, Limits: limits})
}
