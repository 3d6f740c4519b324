package ir

import (
	"iter"
	"slices"
)

// CustomSection is a custom section owned by the module. Data is called
// when the module is emitted, after any code transform was applied.
type CustomSection interface {
	Name() string
	Data() []byte
}

// CodeTransformer is implemented by custom sections that track code
// offsets. ApplyCodeTransform is called once per emit, after the code
// section has been written and before Data.
type CodeTransformer interface {
	ApplyCodeTransform(*CodeTransform)
}

// RawCustomSection is a custom section kept as opaque bytes.
type RawCustomSection struct {
	SectionName string
	Payload     []byte

	// after is the canonical order of the standard section this one
	// followed in the input; placed is false when it trailed the module.
	after  int
	placed bool
}

// NewRawCustomSection returns an unplaced raw section.
func NewRawCustomSection(name string, payload []byte) *RawCustomSection {
	return &RawCustomSection{SectionName: name, Payload: payload}
}

// Name returns the section name.
func (r *RawCustomSection) Name() string { return r.SectionName }

// Data returns the section payload.
func (r *RawCustomSection) Data() []byte { return r.Payload }

// CustomSectionID identifies a registry entry.
type CustomSectionID = ID[CustomSection]

// CustomSections is the registry of custom sections, kept in insertion
// order. Names may repeat.
type CustomSections struct {
	arena  Arena[CustomSection]
	byName map[string][]CustomSectionID
}

// Add registers cs and returns its ID.
func (cs *CustomSections) Add(s CustomSection) CustomSectionID {
	id := cs.arena.Alloc(&s)
	if cs.byName == nil {
		cs.byName = make(map[string][]CustomSectionID)
	}
	name := s.Name()
	cs.byName[name] = append(cs.byName[name], id)
	return id
}

// Get returns the section for id. It panics on a deleted or foreign ID.
func (cs *CustomSections) Get(id CustomSectionID) CustomSection {
	return *cs.arena.Get(id)
}

// Lookup returns the section for id, or false if it was deleted.
func (cs *CustomSections) Lookup(id CustomSectionID) (CustomSection, bool) {
	if !cs.arena.Contains(id) {
		return nil, false
	}
	return *cs.arena.Get(id), true
}

// Delete removes id from the registry and returns the section.
func (cs *CustomSections) Delete(id CustomSectionID) CustomSection {
	s := *cs.arena.Get(id)
	cs.arena.Delete(id)
	name := s.Name()
	ids := slices.DeleteFunc(cs.byName[name], func(other CustomSectionID) bool { return other == id })
	if len(ids) == 0 {
		delete(cs.byName, name)
	} else {
		cs.byName[name] = ids
	}
	return s
}

// ByName returns the first section registered under name.
func (cs *CustomSections) ByName(name string) (CustomSectionID, bool) {
	ids := cs.byName[name]
	if len(ids) == 0 {
		return CustomSectionID{}, false
	}
	return ids[0], true
}

// RemoveRaw removes the first section named name and returns its bytes.
// A typed section is converted by taking its Data.
func (cs *CustomSections) RemoveRaw(name string) (*RawCustomSection, bool) {
	id, ok := cs.ByName(name)
	if !ok {
		return nil, false
	}
	s := cs.Delete(id)
	if raw, ok := s.(*RawCustomSection); ok {
		return raw, true
	}
	return &RawCustomSection{SectionName: name, Payload: s.Data()}, true
}

// All iterates the registry in insertion order.
func (cs *CustomSections) All() iter.Seq2[CustomSectionID, CustomSection] {
	return func(yield func(CustomSectionID, CustomSection) bool) {
		for id, s := range cs.arena.All() {
			if !yield(id, *s) {
				return
			}
		}
	}
}

// Len returns the number of registered sections.
func (cs *CustomSections) Len() int { return cs.arena.Len() }

// GetAs returns the section for id if it has type T.
func GetAs[T CustomSection](cs *CustomSections, id CustomSectionID) (T, bool) {
	s, ok := cs.Lookup(id)
	if !ok {
		var zero T
		return zero, false
	}
	t, ok := s.(T)
	return t, ok
}

// FindAs returns the first section of type T.
func FindAs[T CustomSection](cs *CustomSections) (CustomSectionID, T, bool) {
	for id, s := range cs.All() {
		if t, ok := s.(T); ok {
			return id, t, true
		}
	}
	var zero T
	return CustomSectionID{}, zero, false
}
