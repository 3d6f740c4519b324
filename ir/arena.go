package ir

import (
	"fmt"
	"iter"
	"sync/atomic"

	"fortio.org/safecast"
)

// arenaSerial hands out a process-unique serial to every arena so an ID
// can be checked against the arena it is used with.
var arenaSerial atomic.Uint32

// ID is a typed handle into an Arena. The zero ID refers to nothing.
type ID[T any] struct {
	arena uint32
	index uint32
}

// Valid reports whether id refers to an arena slot.
func (id ID[T]) Valid() bool {
	return id.arena != 0
}

// Index returns the arena slot of id. It is not a binary-format index.
func (id ID[T]) Index() uint32 {
	return id.index
}

func (id ID[T]) String() string {
	if !id.Valid() {
		return "id(none)"
	}
	return fmt.Sprintf("id(%d:%d)", id.arena, id.index)
}

// Arena is an append-only store. Deleting leaves a tombstone so slots are
// never reused and surviving IDs stay valid.
type Arena[T any] struct {
	items  []*T
	serial uint32
	live   int
}

func (a *Arena[T]) init() {
	if a.serial == 0 {
		a.serial = arenaSerial.Add(1)
	}
}

// Alloc stores item and returns its new ID.
func (a *Arena[T]) Alloc(item *T) ID[T] {
	a.init()
	slot, err := safecast.Conv[uint32](len(a.items))
	if err != nil {
		panic(fmt.Errorf("arena slot overflow: %w", err))
	}
	a.items = append(a.items, item)
	a.live++
	return ID[T]{arena: a.serial, index: slot}
}

func (a *Arena[T]) check(id ID[T]) {
	if !id.Valid() {
		panic("ir: use of zero ID")
	}
	if id.arena != a.serial {
		panic(fmt.Sprintf("ir: %s belongs to a different arena", id))
	}
}

// Get returns the item for id. It panics if id is zero, belongs to another
// arena, or was deleted.
func (a *Arena[T]) Get(id ID[T]) *T {
	a.check(id)
	item := a.items[id.index]
	if item == nil {
		panic(fmt.Sprintf("ir: %s was deleted", id))
	}
	return item
}

// Lookup returns the item for id, or false if it was deleted.
// It panics if id belongs to another arena.
func (a *Arena[T]) Lookup(id ID[T]) (*T, bool) {
	a.check(id)
	item := a.items[id.index]
	return item, item != nil
}

// Contains reports whether id is a live item of this arena.
func (a *Arena[T]) Contains(id ID[T]) bool {
	return id.Valid() && id.arena == a.serial && int(id.index) < len(a.items) && a.items[id.index] != nil
}

// Delete tombstones id. Deleting twice is a no-op.
func (a *Arena[T]) Delete(id ID[T]) {
	a.check(id)
	if a.items[id.index] != nil {
		a.items[id.index] = nil
		a.live--
	}
}

// Len returns the number of live items.
func (a *Arena[T]) Len() int {
	return a.live
}

// All iterates live items in insertion order.
func (a *Arena[T]) All() iter.Seq2[ID[T], *T] {
	return func(yield func(ID[T], *T) bool) {
		for i, item := range a.items {
			if item == nil {
				continue
			}
			if !yield(ID[T]{arena: a.serial, index: uint32(i)}, item) {
				return
			}
		}
	}
}
