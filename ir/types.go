package ir

import (
	"slices"
	"strings"

	"github.com/wippyai/wasm-ir/wasm"
)

// TypeID identifies a function type.
type TypeID = ID[Type]

// Type is a function signature.
type Type struct {
	Name    string
	Params  []wasm.ValType
	Results []wasm.ValType
	id      TypeID
}

// ID returns the type's identifier.
func (t *Type) ID() TypeID { return t.id }

// Is reports whether t has exactly the given signature.
func (t *Type) Is(params, results []wasm.ValType) bool {
	return slices.Equal(t.Params, params) && slices.Equal(t.Results, results)
}

func (t *Type) String() string {
	var b strings.Builder
	b.WriteByte('(')
	for i, p := range t.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.String())
	}
	b.WriteString(") -> (")
	for i, r := range t.Results {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(r.String())
	}
	b.WriteByte(')')
	return b.String()
}

// Types is the arena of function types.
type Types struct {
	Arena[Type]
}

// Add returns the ID of a type with this signature, creating it if no
// live type matches.
func (ts *Types) Add(params, results []wasm.ValType) TypeID {
	if id, ok := ts.Find(params, results); ok {
		return id
	}
	return ts.insert(params, results)
}

// Find returns the first live type with this signature.
func (ts *Types) Find(params, results []wasm.ValType) (TypeID, bool) {
	for id, t := range ts.All() {
		if t.Is(params, results) {
			return id, true
		}
	}
	return TypeID{}, false
}

// insert adds a type without deduplication, keeping decoded type
// sections intact.
func (ts *Types) insert(params, results []wasm.ValType) TypeID {
	t := &Type{Params: slices.Clone(params), Results: slices.Clone(results)}
	t.id = ts.Alloc(t)
	return t.id
}

// Params returns the parameter types of id.
func (ts *Types) Params(id TypeID) []wasm.ValType { return ts.Get(id).Params }

// Results returns the result types of id.
func (ts *Types) Results(id TypeID) []wasm.ValType { return ts.Get(id).Results }
