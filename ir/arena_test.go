package ir

import (
	"slices"
	"testing"
)

type item struct{ v int }

func TestArenaAllocGet(t *testing.T) {
	var a Arena[item]
	one := a.Alloc(&item{1})
	two := a.Alloc(&item{2})

	if !one.Valid() || !two.Valid() {
		t.Fatal("allocated IDs must be valid")
	}
	if one == two {
		t.Fatal("IDs must be distinct")
	}
	if got := a.Get(two).v; got != 2 {
		t.Errorf("Get = %d, want 2", got)
	}
	if a.Len() != 2 {
		t.Errorf("Len = %d, want 2", a.Len())
	}
}

func TestArenaDeleteKeepsOtherIDs(t *testing.T) {
	var a Arena[item]
	ids := []ID[item]{a.Alloc(&item{0}), a.Alloc(&item{1}), a.Alloc(&item{2})}
	a.Delete(ids[1])
	a.Delete(ids[1])

	if a.Len() != 2 {
		t.Fatalf("Len = %d, want 2", a.Len())
	}
	if a.Contains(ids[1]) {
		t.Error("deleted ID still contained")
	}
	if _, ok := a.Lookup(ids[1]); ok {
		t.Error("Lookup found deleted item")
	}
	if got := a.Get(ids[2]).v; got != 2 {
		t.Errorf("surviving item = %d, want 2", got)
	}

	next := a.Alloc(&item{3})
	if next.Index() != 3 {
		t.Errorf("slot reused: index %d", next.Index())
	}

	var order []int
	for _, it := range a.All() {
		order = append(order, it.v)
	}
	if !slices.Equal(order, []int{0, 2, 3}) {
		t.Errorf("All order = %v", order)
	}
}

func TestArenaPanics(t *testing.T) {
	var a, b Arena[item]
	id := a.Alloc(&item{})
	b.Alloc(&item{})

	tests := []struct {
		name string
		fn   func()
	}{
		{"zero id", func() { a.Get(ID[item]{}) }},
		{"foreign id", func() { b.Get(id) }},
		{"deleted id", func() {
			gone := a.Alloc(&item{})
			a.Delete(gone)
			a.Get(gone)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Error("expected panic")
				}
			}()
			tt.fn()
		})
	}
}

func TestIDsFromDifferentModules(t *testing.T) {
	m1 := NewModule(NewConfig())
	m2 := NewModule(NewConfig())
	ty := m1.Types.Add(nil, nil)
	m2.Types.Add(nil, nil)

	if m2.Types.Contains(ty) {
		t.Fatal("type from another module must not be contained")
	}
	defer func() {
		if recover() == nil {
			t.Error("expected panic for foreign ID")
		}
	}()
	m2.Types.Get(ty)
}
