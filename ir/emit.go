package ir

import (
	"go.uber.org/zap"

	wbin "github.com/wippyai/wasm-ir/internal/binary"
	"github.com/wippyai/wasm-ir/wasm"
)

const processedByName = "wasm-ir"

type encoder struct {
	m   *Module
	cfg Config
	ix  *IndexSpace
	log *zap.Logger

	localOrder  map[FuncID][]LocalID
	usesData    bool
	transform   *CodeTransform
	codePayload *wbin.Writer

	placedAt map[int][]CustomSectionID
	placed   map[CustomSectionID]bool
}

func newEncoder(m *Module) *encoder {
	e := &encoder{
		m:          m,
		cfg:        m.config,
		ix:         m.Indices(),
		log:        Logger(),
		localOrder: make(map[FuncID][]LocalID),
		placedAt:   make(map[int][]CustomSectionID),
		placed:     make(map[CustomSectionID]bool),
	}
	for id, s := range m.Customs.All() {
		if raw, ok := s.(*RawCustomSection); ok && raw.placed {
			e.placedAt[raw.after] = append(e.placedAt[raw.after], id)
			e.placed[id] = true
		}
	}
	return e
}

type sectionPayload struct {
	id      byte
	payload *wbin.Writer
}

// emit builds every standard section first so that code transform hooks
// run before any custom section is asked for its bytes.
func (e *encoder) emit() []byte {
	e.codePayload = e.codeSection()
	sections := []sectionPayload{
		{wasm.SectionType, e.typeSection()},
		{wasm.SectionImport, e.importSection()},
		{wasm.SectionFunction, e.functionSection()},
		{wasm.SectionTable, e.tableSection()},
		{wasm.SectionMemory, e.memorySection()},
		{wasm.SectionTag, nil},
		{wasm.SectionGlobal, e.globalSection()},
		{wasm.SectionExport, e.exportSection()},
		{wasm.SectionStart, e.startSection()},
		{wasm.SectionElement, e.elementSection()},
		{wasm.SectionDataCount, e.dataCountSection()},
		{wasm.SectionCode, e.codePayload},
		{wasm.SectionData, e.dataSection()},
	}
	e.applyTransform()

	out := wbin.NewWriter()
	out.WriteBytes([]byte{0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00})
	e.flushPlaced(out, 0)
	for _, s := range sections {
		if s.payload != nil {
			writeSection(out, s.id, s.payload.Bytes())
			if s.id == wasm.SectionCode && e.transform != nil {
				e.transform.OutputCodeStart = out.Len() - s.payload.Len()
			}
		}
		e.flushPlaced(out, wasm.SectionOrder(s.id))
	}
	e.trailingCustoms(out)
	return out.Bytes()
}

func (e *encoder) applyTransform() {
	if e.transform == nil {
		return
	}
	e.log.Debug("code transform computed",
		zap.Int("instructions", len(e.transform.Instructions)),
		zap.Int("functions", len(e.transform.Functions)))
	for _, s := range e.m.Customs.All() {
		if ct, ok := s.(CodeTransformer); ok {
			ct.ApplyCodeTransform(e.transform)
		}
	}
}

func writeSection(out *wbin.Writer, id byte, payload []byte) {
	out.Byte(id)
	out.WriteSized(payload)
}

func writeCustom(out *wbin.Writer, name string, data []byte) {
	w := wbin.NewWriter()
	w.WriteName(name)
	w.WriteBytes(data)
	writeSection(out, wasm.SectionCustom, w.Bytes())
}

func (e *encoder) flushPlaced(out *wbin.Writer, after int) {
	for _, id := range e.placedAt[after] {
		s := e.m.Customs.Get(id)
		writeCustom(out, s.Name(), s.Data())
	}
}

func (e *encoder) trailingCustoms(out *wbin.Writer) {
	m := e.m
	if _, raw := m.Customs.ByName(nameSectionName); e.cfg.NameSection() && !raw {
		if names := e.encodeNames(); names != nil {
			writeCustom(out, nameSectionName, names)
		}
	}
	if _, raw := m.Customs.ByName(producersSectionName); !raw {
		p := m.Producers.clone()
		if e.cfg.ProducersSection() {
			p.AddProcessedBy(processedByName, Version)
		}
		if !p.Empty() {
			w := wbin.NewWriter()
			p.encode(w)
			writeCustom(out, producersSectionName, w.Bytes())
		}
	}
	if e.cfg.GenerateDWARF {
		for _, d := range m.Debug {
			writeCustom(out, d.Name(), d.Data())
		}
	} else if len(m.Debug) > 0 {
		e.log.Debug("omitting debug sections", zap.Int("count", len(m.Debug)))
	}
	for id, s := range m.Customs.All() {
		if !e.placed[id] {
			writeCustom(out, s.Name(), s.Data())
		}
	}
}

func vec[T any](w *wbin.Writer, items []T, each func(T)) {
	w.WriteLen(len(items))
	for _, it := range items {
		each(it)
	}
}

func writeValTypes(w *wbin.Writer, types []wasm.ValType) {
	vec(w, types, func(t wasm.ValType) { w.Byte(byte(t)) })
}

func writeLimits(w *wbin.Writer, l Limits) {
	w.Byte(l.flags())
	w.WriteU64(l.Min)
	if l.Max != nil {
		w.WriteU64(*l.Max)
	}
}

func (e *encoder) writeConstExpr(w *wbin.Writer, c ConstExpr) {
	for i := range c {
		in := e.ix.lower(&c[i], nil)
		wasm.EncodeInstructionTo(w.Buffer(), &in)
	}
	w.Byte(wasm.OpEnd)
}

func (e *encoder) typeSection() *wbin.Writer {
	ids := e.ix.types.ids
	if len(ids) == 0 {
		return nil
	}
	w := wbin.NewWriter()
	vec(w, ids, func(id TypeID) {
		t := e.m.Types.Get(id)
		w.Byte(wasm.FuncTypeByte)
		writeValTypes(w, t.Params)
		writeValTypes(w, t.Results)
	})
	return w
}

func (e *encoder) importSection() *wbin.Writer {
	if e.m.Imports.Len() == 0 {
		return nil
	}
	w := wbin.NewWriter()
	w.WriteLen(e.m.Imports.Len())
	for _, imp := range e.m.Imports.All() {
		w.WriteName(imp.Module)
		w.WriteName(imp.Name)
		w.Byte(imp.Kind)
		switch imp.Kind {
		case wasm.KindFunc:
			w.WriteU32(e.ix.mustType(e.m.Funcs.Get(imp.Func).Type))
		case wasm.KindTable:
			t := e.m.Tables.Get(imp.Table)
			w.Byte(byte(t.Type))
			writeLimits(w, t.Limits)
		case wasm.KindMemory:
			writeLimits(w, e.m.Memories.Get(imp.Memory).Limits)
		case wasm.KindGlobal:
			g := e.m.Globals.Get(imp.Global)
			w.Byte(byte(g.Type))
			w.Byte(boolByte(g.Mutable))
		}
	}
	return w
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

func (e *encoder) localFuncs() []FuncID {
	return e.ix.funcs.ids[e.ix.importedFuncs:]
}

func (e *encoder) functionSection() *wbin.Writer {
	funcs := e.localFuncs()
	if len(funcs) == 0 {
		return nil
	}
	w := wbin.NewWriter()
	vec(w, funcs, func(id FuncID) { w.WriteU32(e.ix.mustType(e.m.Funcs.Get(id).Type)) })
	return w
}

func (e *encoder) tableSection() *wbin.Writer {
	tables := e.ix.tables.ids[e.ix.importedTables:]
	if len(tables) == 0 {
		return nil
	}
	w := wbin.NewWriter()
	vec(w, tables, func(id TableID) {
		t := e.m.Tables.Get(id)
		w.Byte(byte(t.Type))
		writeLimits(w, t.Limits)
	})
	return w
}

func (e *encoder) memorySection() *wbin.Writer {
	mems := e.ix.memories.ids[e.ix.importedMemories:]
	if len(mems) == 0 {
		return nil
	}
	w := wbin.NewWriter()
	vec(w, mems, func(id MemoryID) { writeLimits(w, e.m.Memories.Get(id).Limits) })
	return w
}

func (e *encoder) globalSection() *wbin.Writer {
	globals := e.ix.globals.ids[e.ix.importedGlobals:]
	if len(globals) == 0 {
		return nil
	}
	w := wbin.NewWriter()
	vec(w, globals, func(id GlobalID) {
		g := e.m.Globals.Get(id)
		w.Byte(byte(g.Type))
		w.Byte(boolByte(g.Mutable))
		e.writeConstExpr(w, g.Init)
	})
	return w
}

func (e *encoder) exportSection() *wbin.Writer {
	if e.m.Exports.Len() == 0 {
		return nil
	}
	w := wbin.NewWriter()
	w.WriteLen(e.m.Exports.Len())
	for _, exp := range e.m.Exports.All() {
		w.WriteName(exp.Name)
		w.Byte(exp.Kind)
		switch exp.Kind {
		case wasm.KindFunc:
			w.WriteU32(e.ix.mustFunc(exp.Func))
		case wasm.KindTable:
			w.WriteU32(e.ix.mustTable(exp.Table))
		case wasm.KindMemory:
			w.WriteU32(e.ix.mustMemory(exp.Memory))
		case wasm.KindGlobal:
			w.WriteU32(e.ix.mustGlobal(exp.Global))
		}
	}
	return w
}

func (e *encoder) startSection() *wbin.Writer {
	if !e.m.Start.Valid() {
		return nil
	}
	w := wbin.NewWriter()
	w.WriteU32(e.ix.mustFunc(e.m.Start))
	return w
}

func (e *encoder) elementSection() *wbin.Writer {
	ids := e.ix.elements.ids
	if len(ids) == 0 {
		return nil
	}
	w := wbin.NewWriter()
	vec(w, ids, func(id ElementID) { e.writeElement(w, e.m.Elements.Get(id)) })
	return w
}

func (e *encoder) writeElement(w *wbin.Writer, el *Element) {
	var flags uint32
	if el.Expressions {
		flags |= 4
	}
	var table uint32
	switch el.Mode {
	case ElementActive:
		table = e.ix.mustTable(el.Table)
		if table != 0 || el.explicitTable {
			flags |= 2
		}
	case ElementPassive:
		flags |= 1
	case ElementDeclared:
		flags |= 3
	}
	w.WriteU32(flags)
	if el.Mode == ElementActive {
		if flags&2 != 0 {
			w.WriteU32(table)
		}
		e.writeConstExpr(w, el.Offset)
	}
	if flags&3 != 0 {
		if el.Expressions {
			w.Byte(byte(el.Type))
		} else {
			w.Byte(0x00)
		}
	}
	if el.Expressions {
		vec(w, el.Exprs, func(c ConstExpr) { e.writeConstExpr(w, c) })
		return
	}
	vec(w, el.Funcs, func(f FuncID) { w.WriteU32(e.ix.mustFunc(f)) })
}

func (e *encoder) dataCountSection() *wbin.Writer {
	if !e.m.dataCount && !e.usesData {
		return nil
	}
	w := wbin.NewWriter()
	w.WriteLen(len(e.ix.data.ids))
	return w
}

func (e *encoder) dataSection() *wbin.Writer {
	ids := e.ix.data.ids
	if len(ids) == 0 {
		return nil
	}
	w := wbin.NewWriter()
	vec(w, ids, func(id DataID) {
		seg := e.m.Data.Get(id)
		switch {
		case seg.Passive:
			w.WriteU32(1)
		default:
			mem := e.ix.mustMemory(seg.Memory)
			if mem != 0 || seg.explicitMemory {
				w.WriteU32(2)
				w.WriteU32(mem)
			} else {
				w.WriteU32(0)
			}
			e.writeConstExpr(w, seg.Offset)
		}
		w.WriteSized(seg.Value)
	})
	return w
}
