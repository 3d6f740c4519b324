package ir

import (
	"fmt"
	"slices"

	"go.uber.org/zap"

	werrors "github.com/wippyai/wasm-ir/errors"
	wbin "github.com/wippyai/wasm-ir/internal/binary"
)

const nameSectionName = "name"

// Name section subsection ids.
const (
	nameModule   byte = 0
	nameFunction byte = 1
	nameLocal    byte = 2
	nameLabel    byte = 3
	nameType     byte = 4
	nameTable    byte = 5
	nameMemory   byte = 6
	nameGlobal   byte = 7
	nameElem     byte = 8
	nameData     byte = 9
)

type nameAssoc struct {
	index uint32
	name  string
}

type funcLocalNames struct {
	fn    uint32
	names []nameAssoc
}

// rawSubsection is a name subsection the IR does not model. It is
// carried through unchanged.
type rawSubsection struct {
	id   byte
	data []byte
}

type nameSection struct {
	module *string
	maps   map[byte][]nameAssoc
	locals []funcLocalNames
	labels []funcLocalNames
	extra  []rawSubsection
}

func parseNameSection(data []byte) (*nameSection, error) {
	r := wbin.NewReader(data)
	ns := &nameSection{maps: make(map[byte][]nameAssoc)}
	last := -1
	for !r.EOF() {
		start := r.Offset()
		id, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		size, err := r.ReadU32()
		if err != nil {
			return nil, err
		}
		sub, err := r.Sub(int(size))
		if err != nil {
			return nil, err
		}
		if int(id) <= last {
			return nil, werrors.New(werrors.PhaseDecode, werrors.KindInvalidData).
				Offset(start).Detail("name subsection %d out of order", id).Build()
		}
		last = int(id)

		switch id {
		case nameModule:
			name, err := sub.ReadName()
			if err != nil {
				return nil, err
			}
			ns.module = &name
		case nameLocal:
			if ns.locals, err = readIndirectNameMap(sub); err != nil {
				return nil, err
			}
		case nameLabel:
			if ns.labels, err = readIndirectNameMap(sub); err != nil {
				return nil, err
			}
		case nameFunction, nameType, nameTable, nameMemory, nameGlobal, nameElem, nameData:
			names, err := readNameMap(sub)
			if err != nil {
				return nil, err
			}
			ns.maps[id] = names
		default:
			Logger().Debug("keeping unknown name subsection", zap.Uint8("id", id))
			ns.extra = append(ns.extra, rawSubsection{id: id, data: slices.Clone(sub.ReadRemaining())})
		}
		if err := sub.Finish(nameSectionName); err != nil {
			return nil, err
		}
	}
	return ns, nil
}

// readIndirectNameMap reads a map from function index to a name map, as
// used by the local and label subsections.
func readIndirectNameMap(r *wbin.Reader) ([]funcLocalNames, error) {
	count, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	var out []funcLocalNames
	for range count {
		fn, err := r.ReadU32()
		if err != nil {
			return nil, err
		}
		names, err := readNameMap(r)
		if err != nil {
			return nil, err
		}
		out = append(out, funcLocalNames{fn: fn, names: names})
	}
	return out, nil
}

func readNameMap(r *wbin.Reader) ([]nameAssoc, error) {
	count, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	out := make([]nameAssoc, 0, min(int(count), r.Len()))
	for range count {
		idx, err := r.ReadU32()
		if err != nil {
			return nil, err
		}
		name, err := r.ReadName()
		if err != nil {
			return nil, err
		}
		out = append(out, nameAssoc{index: idx, name: name})
	}
	return out, nil
}

// applyNames resolves every entry before assigning any, so a name
// section with a bad index leaves the module untouched.
func (d *decoder) applyNames(payload []byte) error {
	ns, err := parseNameSection(payload)
	if err != nil {
		return err
	}
	off := d.names.offset
	var assign []func()

	for id, names := range ns.maps {
		for _, n := range names {
			var fn func()
			switch id {
			case nameFunction:
				fn, err = bindName(d.m.Funcs.Get, "function", d.funcs, n, off, func(f *Function, s string) { f.Name = s })
			case nameType:
				fn, err = bindName(d.m.Types.Get, "type", d.types, n, off, func(t *Type, s string) { t.Name = s })
			case nameTable:
				fn, err = bindName(d.m.Tables.Get, "table", d.tables, n, off, func(t *Table, s string) { t.Name = s })
			case nameMemory:
				fn, err = bindName(d.m.Memories.Get, "memory", d.memories, n, off, func(m *Memory, s string) { m.Name = s })
			case nameGlobal:
				fn, err = bindName(d.m.Globals.Get, "global", d.globals, n, off, func(g *Global, s string) { g.Name = s })
			case nameElem:
				fn, err = bindName(d.m.Elements.Get, "element", d.elements, n, off, func(e *Element, s string) { e.Name = s })
			case nameData:
				fn, err = bindName(d.m.Data.Get, "data", d.data, n, off, func(seg *Data, s string) { seg.Name = s })
			}
			if err != nil {
				return err
			}
			assign = append(assign, fn)
		}
	}
	for _, fl := range ns.locals {
		f, err := lookup("function", d.funcs, fl.fn, off)
		if err != nil {
			return err
		}
		locals := d.localsOf[f]
		for _, n := range fl.names {
			fn, err := bindName(d.m.Locals.Get, "local", locals, n, off, func(l *Local, s string) { l.Name = s })
			if err != nil {
				return err
			}
			assign = append(assign, fn)
		}
	}

	labels := make(map[FuncID][]nameAssoc, len(ns.labels))
	for _, fl := range ns.labels {
		f, err := lookup("function", d.funcs, fl.fn, off)
		if err != nil {
			return err
		}
		labels[f] = fl.names
	}

	for _, fn := range assign {
		fn()
	}
	if ns.module != nil {
		d.m.Name = *ns.module
	}
	if len(labels) > 0 {
		d.m.labelNames = labels
	}
	d.m.extraNames = ns.extra
	return nil
}

func bindName[T any](get func(ID[T]) *T, space string, ids []ID[T], n nameAssoc, off int, set func(*T, string)) (func(), error) {
	id, err := lookup(space, ids, n.index, off)
	if err != nil {
		return nil, err
	}
	return func() { set(get(id), n.name) }, nil
}

func (d *decoder) syntheticNames() {
	for i, id := range d.funcs {
		f := d.m.Funcs.Get(id)
		if f.Name != "" {
			continue
		}
		if imported, ok := f.Kind.(*ImportedFunction); ok {
			imp := d.m.Imports.Get(imported.Import)
			f.Name = imp.Module + "." + imp.Name
		} else {
			f.Name = fmt.Sprintf("f%d", i)
		}
	}
	for _, id := range d.localFuncs {
		args := len(d.m.Funcs.Get(id).Kind.(*LocalFunction).Args)
		for i, l := range d.localsOf[id] {
			local := d.m.Locals.Get(l)
			if local.Name != "" {
				continue
			}
			if i < args {
				local.Name = fmt.Sprintf("arg%d", i)
			} else {
				local.Name = fmt.Sprintf("l%d", i)
			}
		}
	}
	for i, id := range d.globals {
		if g := d.m.Globals.Get(id); g.Name == "" {
			g.Name = fmt.Sprintf("g%d", i)
		}
	}
}

// encodeNames returns the name section payload, or nil if nothing is
// named.
func (e *encoder) encodeNames() []byte {
	w := wbin.NewWriter()
	m, ix := e.m, e.ix
	if m.Name != "" {
		sub := wbin.NewWriter()
		sub.WriteName(m.Name)
		writeSubsection(w, nameModule, sub)
	}
	writeNameMap(w, nameFunction, ix.funcs.ids, func(id FuncID) string { return m.Funcs.Get(id).Name })

	writeIndirectNameMap(w, nameLocal, ix.funcs.ids, func(id FuncID) []nameAssoc {
		var names []nameAssoc
		for i, l := range e.localOrder[id] {
			if n := m.Locals.Get(l).Name; n != "" {
				names = append(names, nameAssoc{index: uint32(i), name: n})
			}
		}
		return names
	})
	writeIndirectNameMap(w, nameLabel, ix.funcs.ids, func(id FuncID) []nameAssoc {
		return m.labelNames[id]
	})

	writeNameMap(w, nameType, ix.types.ids, func(id TypeID) string { return m.Types.Get(id).Name })
	writeNameMap(w, nameTable, ix.tables.ids, func(id TableID) string { return m.Tables.Get(id).Name })
	writeNameMap(w, nameMemory, ix.memories.ids, func(id MemoryID) string { return m.Memories.Get(id).Name })
	writeNameMap(w, nameGlobal, ix.globals.ids, func(id GlobalID) string { return m.Globals.Get(id).Name })
	writeNameMap(w, nameElem, ix.elements.ids, func(id ElementID) string { return m.Elements.Get(id).Name })
	writeNameMap(w, nameData, ix.data.ids, func(id DataID) string { return m.Data.Get(id).Name })
	for _, raw := range m.extraNames {
		w.Byte(raw.id)
		w.WriteSized(raw.data)
	}

	if w.Len() == 0 {
		return nil
	}
	return w.Bytes()
}

func writeNameMap[T any](w *wbin.Writer, id byte, ids []ID[T], name func(ID[T]) string) {
	var names []nameAssoc
	for i, x := range ids {
		if n := name(x); n != "" {
			names = append(names, nameAssoc{index: uint32(i), name: n})
		}
	}
	if len(names) == 0 {
		return
	}
	sub := wbin.NewWriter()
	writeAssocs(sub, names)
	writeSubsection(w, id, sub)
}

func writeIndirectNameMap(w *wbin.Writer, id byte, funcs []FuncID, names func(FuncID) []nameAssoc) {
	body := wbin.NewWriter()
	count := 0
	for idx, f := range funcs {
		inner := names(f)
		if len(inner) == 0 {
			continue
		}
		count++
		body.WriteU32(uint32(idx))
		writeAssocs(body, inner)
	}
	if count == 0 {
		return
	}
	sub := wbin.NewWriter()
	sub.WriteLen(count)
	sub.WriteBytes(body.Bytes())
	writeSubsection(w, id, sub)
}

func writeAssocs(w *wbin.Writer, names []nameAssoc) {
	w.WriteLen(len(names))
	for _, n := range names {
		w.WriteU32(n.index)
		w.WriteName(n.name)
	}
}

func writeSubsection(w *wbin.Writer, id byte, sub *wbin.Writer) {
	w.Byte(id)
	w.WriteSized(sub.Bytes())
}
