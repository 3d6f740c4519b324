package ir

import "github.com/wippyai/wasm-ir/wasm"

// ExportID identifies an export.
type ExportID = ID[Export]

// Export makes an entity visible to the host. Kind selects which of the
// entity IDs is set.
type Export struct {
	Name   string
	Func   FuncID
	Table  TableID
	Memory MemoryID
	Global GlobalID
	Kind   byte
	id     ExportID
}

// ID returns the export's identifier.
func (e *Export) ID() ExportID { return e.id }

// Exports is the arena of exports.
type Exports struct {
	Arena[Export]
}

func (es *Exports) add(e *Export) ExportID {
	e.id = es.Alloc(e)
	return e.id
}

// AddFunc exports f as name.
func (es *Exports) AddFunc(name string, f FuncID) ExportID {
	return es.add(&Export{Name: name, Kind: wasm.KindFunc, Func: f})
}

// AddTable exports t as name.
func (es *Exports) AddTable(name string, t TableID) ExportID {
	return es.add(&Export{Name: name, Kind: wasm.KindTable, Table: t})
}

// AddMemory exports mem as name.
func (es *Exports) AddMemory(name string, mem MemoryID) ExportID {
	return es.add(&Export{Name: name, Kind: wasm.KindMemory, Memory: mem})
}

// AddGlobal exports g as name.
func (es *Exports) AddGlobal(name string, g GlobalID) ExportID {
	return es.add(&Export{Name: name, Kind: wasm.KindGlobal, Global: g})
}

// ByName returns the export with this name.
func (es *Exports) ByName(name string) (ExportID, bool) {
	for id, e := range es.All() {
		if e.Name == name {
			return id, true
		}
	}
	return ExportID{}, false
}

// FuncByName returns the function exported as name.
func (es *Exports) FuncByName(name string) (FuncID, bool) {
	id, ok := es.ByName(name)
	if !ok {
		return FuncID{}, false
	}
	e := es.Get(id)
	return e.Func, e.Kind == wasm.KindFunc
}
