package ir

import (
	"fmt"
	"os"
)

// Module is the in-memory form of a WebAssembly module. Every entity
// lives in an arena and refers to others by ID; binary indices exist
// only in the encoded form.
type Module struct {
	Types    Types
	Imports  Imports
	Funcs    Funcs
	Tables   Tables
	Memories Memories
	Globals  Globals
	Locals   Locals
	Exports  Exports
	Data     DataSegments
	Elements Elements

	// Customs holds custom sections that have no dedicated field.
	Customs CustomSections

	// Producers is the parsed producers section.
	Producers Producers

	// Debug holds the .debug_* sections, emitted only with GenerateDWARF.
	Debug []*RawCustomSection

	// Start is the start function, if any.
	Start FuncID

	// Name is the module name from the name section.
	Name string

	// labelNames and extraNames carry name subsections that have no
	// field on the entities they describe.
	labelNames map[FuncID][]nameAssoc
	extraNames []rawSubsection

	config         Config
	parsed         bool
	hadCode        bool
	dataCount      bool
	inputCodeStart int
}

// NewModule returns an empty module that emits according to cfg.
func NewModule(cfg Config) *Module {
	return &Module{config: cfg}
}

// Config returns a copy of the module's configuration.
func (m *Module) Config() Config { return m.config }

// SetConfig replaces the configuration used by later emits.
func (m *Module) SetConfig(cfg Config) { m.config = cfg }

// Emit encodes the module. It panics if the IR violates an invariant,
// such as an expression referring to a deleted entity.
func (m *Module) Emit() []byte {
	out, _ := m.EmitWithTransform()
	return out
}

// EmitWithTransform encodes the module and also returns the code
// transform computed for it, which is nil unless PreserveCodeTransform
// is set and the module was decoded with code.
func (m *Module) EmitWithTransform() ([]byte, *CodeTransform) {
	e := newEncoder(m)
	out := e.emit()
	return out, e.transform
}

// EmitFile encodes the module and writes it to path.
func (m *Module) EmitFile(path string) error {
	if err := os.WriteFile(path, m.Emit(), 0o644); err != nil {
		return fmt.Errorf("emit %s: %w", path, err)
	}
	return nil
}

// FuncType returns the type of f.
func (m *Module) FuncType(f FuncID) *Type {
	return m.Types.Get(m.Funcs.Get(f).Type)
}
