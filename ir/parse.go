package ir

import (
	"encoding/binary"
	"strings"

	"go.uber.org/zap"

	werrors "github.com/wippyai/wasm-ir/errors"
	wbin "github.com/wippyai/wasm-ir/internal/binary"
	"github.com/wippyai/wasm-ir/wasm"
)

// componentVersion is the version/layer word of a component binary.
const componentVersion uint32 = 0x0001000d

// decoder holds the index spaces of a module while it is decoded.
type decoder struct {
	m   *Module
	cfg Config
	log *zap.Logger

	types    []TypeID
	funcs    []FuncID
	tables   []TableID
	memories []MemoryID
	globals  []GlobalID
	elements []ElementID
	data     []DataID

	importedGlobals int
	localFuncs      []FuncID
	bodies          int
	localsOf        map[FuncID][]LocalID
	exportNames     map[string]struct{}

	dataCount   int
	pendingData []dataRef
	codeStart   int
	lastOrder   int
	raws        []*RawCustomSection
	names       *pendingNames
}

type dataRef struct {
	instr  *Instr
	index  uint32
	offset int
}

type pendingNames struct {
	payload []byte
	offset  int
	id      CustomSectionID
}

func (m *Module) parse(data []byte) error {
	d := &decoder{
		m:           m,
		cfg:         m.config,
		log:         Logger(),
		localsOf:    make(map[FuncID][]LocalID),
		exportNames: make(map[string]struct{}),
		dataCount:   -1,
	}
	if err := d.decode(data); err != nil {
		return err
	}
	m.parsed = true
	return nil
}

func (d *decoder) decode(data []byte) error {
	r := wbin.NewReader(data)
	if err := d.header(r); err != nil {
		return err
	}
	for !r.EOF() {
		start := r.Offset()
		id, err := r.ReadByte()
		if err != nil {
			return err
		}
		size, err := r.ReadU32()
		if err != nil {
			return err
		}
		if int(size) > r.Len() {
			return werrors.SectionLength(wasm.SectionName(id), start, int(size), r.Len())
		}
		payload, err := r.Sub(int(size))
		if err != nil {
			return err
		}
		if err := d.section(id, payload); err != nil {
			return werrors.InSection(err, wasm.SectionName(id))
		}
	}
	return d.finish()
}

func (d *decoder) header(r *wbin.Reader) error {
	head, err := r.ReadBytes(8)
	if err != nil {
		return werrors.Truncated(r.Offset(), "module header")
	}
	magic := binary.LittleEndian.Uint32(head[:4])
	version := binary.LittleEndian.Uint32(head[4:])
	if magic != wasm.Magic {
		return werrors.New(werrors.PhaseDecode, werrors.KindInvalidData).
			Offset(0).Expected("magic %#08x", wasm.Magic).Found("%#08x", magic).Build()
	}
	if version == componentVersion {
		return werrors.Unsupported(werrors.PhaseDecode, "component binaries")
	}
	if version != wasm.Version {
		return werrors.New(werrors.PhaseDecode, werrors.KindInvalidData).
			Offset(4).Expected("version %d", wasm.Version).Found("%d", version).Build()
	}
	return nil
}

func (d *decoder) section(id byte, r *wbin.Reader) error {
	if id == wasm.SectionCustom {
		return d.custom(r)
	}
	if id == wasm.SectionTag {
		return werrors.Unsupported(werrors.PhaseDecode, "exception handling tags")
	}
	order := wasm.SectionOrder(id)
	if order == 0 {
		return werrors.New(werrors.PhaseDecode, werrors.KindInvalidData).
			Offset(r.Offset()-1).Detail("unknown section id %d", id).Build()
	}
	if order <= d.lastOrder {
		return werrors.New(werrors.PhaseDecode, werrors.KindInvalidData).
			Offset(r.Offset()).Detail("section out of order or repeated").Build()
	}
	d.lastOrder = order

	var err error
	switch id {
	case wasm.SectionType:
		err = d.typeSection(r)
	case wasm.SectionImport:
		err = d.importSection(r)
	case wasm.SectionFunction:
		err = d.functionSection(r)
	case wasm.SectionTable:
		err = d.tableSection(r)
	case wasm.SectionMemory:
		err = d.memorySection(r)
	case wasm.SectionGlobal:
		err = d.globalSection(r)
	case wasm.SectionExport:
		err = d.exportSection(r)
	case wasm.SectionStart:
		err = d.startSection(r)
	case wasm.SectionElement:
		err = d.elementSection(r)
	case wasm.SectionDataCount:
		err = d.dataCountSection(r)
	case wasm.SectionCode:
		err = d.codeSection(r)
	case wasm.SectionData:
		err = d.dataSection(r)
	}
	if err != nil {
		return err
	}
	return r.Finish(wasm.SectionName(id))
}

func (d *decoder) custom(r *wbin.Reader) error {
	start := r.Offset()
	name, err := r.ReadName()
	if err != nil {
		return err
	}
	payload := r.ReadRemaining()

	switch {
	case name == nameSectionName:
		raw := d.addRaw(name, payload)
		d.names = &pendingNames{payload: payload, offset: start, id: raw}
	case name == producersSectionName:
		p, err := parseProducers(payload)
		if err != nil {
			d.log.Warn("keeping unparseable producers section", zap.Error(err))
			d.addRaw(name, payload)
			return nil
		}
		for _, f := range p.Fields {
			for _, v := range f.Values {
				d.m.Producers.Add(f.Name, v.Name, v.Version)
			}
		}
	case strings.HasPrefix(name, ".debug_"):
		if !d.cfg.GenerateDWARF {
			d.log.Debug("dropping debug section", zap.String("name", name), zap.Int("size", len(payload)))
			return nil
		}
		d.m.Debug = append(d.m.Debug, NewRawCustomSection(name, payload))
	default:
		d.log.Debug("keeping custom section", zap.String("name", name), zap.Int("size", len(payload)))
		d.addRaw(name, payload)
	}
	return nil
}

func (d *decoder) addRaw(name string, payload []byte) CustomSectionID {
	raw := &RawCustomSection{SectionName: name, Payload: payload, after: d.lastOrder, placed: true}
	d.raws = append(d.raws, raw)
	return d.m.Customs.Add(raw)
}

func (d *decoder) valType(r *wbin.Reader) (wasm.ValType, error) {
	start := r.Offset()
	b, err := r.ReadByte()
	if err != nil {
		return 0, err
	}
	v := wasm.ValType(b)
	switch {
	case v.Valid():
		return v, nil
	case v == wasm.ValRef || v == wasm.ValRefNull:
		return 0, werrors.New(werrors.PhaseDecode, werrors.KindUnsupported).
			Offset(start).Detail("typed reference %s", v).Build()
	}
	return 0, werrors.New(werrors.PhaseDecode, werrors.KindInvalidData).
		Offset(start).Expected("value type").Found("%#02x", b).Build()
}

func (d *decoder) refType(r *wbin.Reader) (wasm.ValType, error) {
	start := r.Offset()
	v, err := d.valType(r)
	if err != nil {
		return 0, err
	}
	if !v.IsRef() {
		return 0, werrors.New(werrors.PhaseDecode, werrors.KindInvalidData).
			Offset(start).Expected("reference type").Found("%s", v).Build()
	}
	return v, nil
}

func (d *decoder) valTypes(r *wbin.Reader) ([]wasm.ValType, error) {
	n, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	out := make([]wasm.ValType, 0, min(int(n), r.Len()))
	for range n {
		v, err := d.valType(r)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (d *decoder) typeSection(r *wbin.Reader) error {
	count, err := r.ReadU32()
	if err != nil {
		return err
	}
	for range count {
		start := r.Offset()
		form, err := r.ReadByte()
		if err != nil {
			return err
		}
		if form != wasm.FuncTypeByte {
			kind := werrors.KindInvalidData
			if form >= 0x4E && form <= 0x5F {
				kind = werrors.KindUnsupported
			}
			return werrors.New(werrors.PhaseDecode, kind).
				Offset(start).Expected("function type %#02x", wasm.FuncTypeByte).Found("%#02x", form).Build()
		}
		params, err := d.valTypes(r)
		if err != nil {
			return err
		}
		results, err := d.valTypes(r)
		if err != nil {
			return err
		}
		d.types = append(d.types, d.m.Types.insert(params, results))
	}
	return nil
}

func (d *decoder) importSection(r *wbin.Reader) error {
	count, err := r.ReadU32()
	if err != nil {
		return err
	}
	for range count {
		module, err := r.ReadName()
		if err != nil {
			return err
		}
		name, err := r.ReadName()
		if err != nil {
			return err
		}
		start := r.Offset()
		kind, err := r.ReadByte()
		if err != nil {
			return err
		}
		switch kind {
		case wasm.KindFunc:
			idx, err := r.ReadU32()
			if err != nil {
				return err
			}
			ty, err := lookup("type", d.types, idx, start)
			if err != nil {
				return err
			}
			f, _ := d.m.AddImportFunc(module, name, ty)
			d.funcs = append(d.funcs, f)
		case wasm.KindTable:
			elem, err := d.refType(r)
			if err != nil {
				return err
			}
			limits, err := d.limits(r, false)
			if err != nil {
				return err
			}
			t, _ := d.m.AddImportTable(module, name, elem, limits)
			d.tables = append(d.tables, t)
		case wasm.KindMemory:
			limits, err := d.limits(r, true)
			if err != nil {
				return err
			}
			mem, _ := d.m.AddImportMemory(module, name, limits)
			d.memories = append(d.memories, mem)
		case wasm.KindGlobal:
			ty, mutable, err := d.globalType(r)
			if err != nil {
				return err
			}
			g, _ := d.m.AddImportGlobal(module, name, ty, mutable)
			d.globals = append(d.globals, g)
			d.importedGlobals++
		case wasm.KindTag:
			return werrors.New(werrors.PhaseDecode, werrors.KindUnsupported).
				Offset(start).Detail("tag import %s.%s", module, name).Build()
		default:
			return werrors.New(werrors.PhaseDecode, werrors.KindInvalidData).
				Offset(start).Expected("import kind").Found("%#02x", kind).Build()
		}
	}
	return nil
}

func (d *decoder) functionSection(r *wbin.Reader) error {
	count, err := r.ReadU32()
	if err != nil {
		return err
	}
	for range count {
		start := r.Offset()
		idx, err := r.ReadU32()
		if err != nil {
			return err
		}
		ty, err := lookup("type", d.types, idx, start)
		if err != nil {
			return err
		}
		id := d.m.Funcs.add(&Function{Type: ty, Kind: newLocalFunction(d.m)})
		d.funcs = append(d.funcs, id)
		d.localFuncs = append(d.localFuncs, id)
	}
	return nil
}

func (d *decoder) tableSection(r *wbin.Reader) error {
	count, err := r.ReadU32()
	if err != nil {
		return err
	}
	for range count {
		start := r.Offset()
		if b, err := r.PeekByte(); err == nil && b == 0x40 {
			return werrors.New(werrors.PhaseDecode, werrors.KindUnsupported).
				Offset(start).Detail("table with initializer expression").Build()
		}
		elem, err := d.refType(r)
		if err != nil {
			return err
		}
		limits, err := d.limits(r, false)
		if err != nil {
			return err
		}
		d.tables = append(d.tables, d.m.Tables.AddLocal(elem, limits))
	}
	return nil
}

func (d *decoder) memorySection(r *wbin.Reader) error {
	count, err := r.ReadU32()
	if err != nil {
		return err
	}
	for range count {
		limits, err := d.limits(r, true)
		if err != nil {
			return err
		}
		d.memories = append(d.memories, d.m.Memories.AddLocal(limits))
	}
	return nil
}

func (d *decoder) limits(r *wbin.Reader, memory bool) (Limits, error) {
	start := r.Offset()
	flags, err := r.ReadByte()
	if err != nil {
		return Limits{}, err
	}
	valid := wasm.LimitsHasMax | wasm.LimitsMemory64
	if memory {
		valid |= wasm.LimitsShared
	}
	if flags&^valid != 0 {
		return Limits{}, werrors.New(werrors.PhaseDecode, werrors.KindInvalidData).
			Offset(start).Detail("invalid limits flags %#02x", flags).Build()
	}
	l := Limits{
		Shared: flags&wasm.LimitsShared != 0,
		Is64:   flags&wasm.LimitsMemory64 != 0,
	}
	read := func() (uint64, error) {
		if l.Is64 {
			return r.ReadU64()
		}
		v, err := r.ReadU32()
		return uint64(v), err
	}
	if l.Min, err = read(); err != nil {
		return l, err
	}
	if flags&wasm.LimitsHasMax != 0 {
		max, err := read()
		if err != nil {
			return l, err
		}
		l.Max = &max
	}
	if err := d.checkLimits(l, memory, start); err != nil {
		return l, err
	}
	return l, nil
}

func (d *decoder) globalType(r *wbin.Reader) (wasm.ValType, bool, error) {
	ty, err := d.valType(r)
	if err != nil {
		return 0, false, err
	}
	start := r.Offset()
	mut, err := r.ReadByte()
	if err != nil {
		return 0, false, err
	}
	if mut > 1 {
		return 0, false, werrors.New(werrors.PhaseDecode, werrors.KindInvalidData).
			Offset(start).Expected("mutability 0 or 1").Found("%#02x", mut).Build()
	}
	return ty, mut == 1, nil
}

func (d *decoder) globalSection(r *wbin.Reader) error {
	count, err := r.ReadU32()
	if err != nil {
		return err
	}
	for range count {
		ty, mutable, err := d.globalType(r)
		if err != nil {
			return err
		}
		init, err := d.constExpr(r)
		if err != nil {
			return err
		}
		d.globals = append(d.globals, d.m.Globals.AddLocal(ty, mutable, init))
	}
	return nil
}

// constExpr reads instructions up to and including end.
func (d *decoder) constExpr(r *wbin.Reader) (ConstExpr, error) {
	var out ConstExpr
	for {
		start := r.Offset()
		in, err := r.ReadInstruction()
		if err != nil {
			return nil, err
		}
		if in.Opcode == wasm.OpEnd {
			return out, nil
		}
		instr := Instr{Instruction: in, offset: -1}
		if err := d.resolve(&instr, nil, start); err != nil {
			return nil, err
		}
		if err := d.checkConstInstr(&instr, start); err != nil {
			return nil, err
		}
		out = append(out, instr)
	}
}

func (d *decoder) exportSection(r *wbin.Reader) error {
	count, err := r.ReadU32()
	if err != nil {
		return err
	}
	for range count {
		start := r.Offset()
		name, err := r.ReadName()
		if err != nil {
			return err
		}
		kind, err := r.ReadByte()
		if err != nil {
			return err
		}
		idx, err := r.ReadU32()
		if err != nil {
			return err
		}
		if d.cfg.StrictValidate() {
			if _, dup := d.exportNames[name]; dup {
				return strictErr(start, "duplicate export name %q", name)
			}
			d.exportNames[name] = struct{}{}
		}
		e := &Export{Name: name, Kind: kind}
		switch kind {
		case wasm.KindFunc:
			e.Func, err = lookup("function", d.funcs, idx, start)
		case wasm.KindTable:
			e.Table, err = lookup("table", d.tables, idx, start)
		case wasm.KindMemory:
			e.Memory, err = lookup("memory", d.memories, idx, start)
		case wasm.KindGlobal:
			e.Global, err = lookup("global", d.globals, idx, start)
		case wasm.KindTag:
			err = werrors.New(werrors.PhaseDecode, werrors.KindUnsupported).
				Offset(start).Detail("tag export %q", name).Build()
		default:
			err = werrors.New(werrors.PhaseDecode, werrors.KindInvalidData).
				Offset(start).Expected("export kind").Found("%#02x", kind).Build()
		}
		if err != nil {
			return err
		}
		d.m.Exports.add(e)
	}
	return nil
}

func (d *decoder) startSection(r *wbin.Reader) error {
	start := r.Offset()
	idx, err := r.ReadU32()
	if err != nil {
		return err
	}
	f, err := lookup("function", d.funcs, idx, start)
	if err != nil {
		return err
	}
	if d.cfg.StrictValidate() {
		ty := d.m.FuncType(f)
		if len(ty.Params) != 0 || len(ty.Results) != 0 {
			return strictErr(start, "start function must have type () -> (), found %s", ty)
		}
	}
	d.m.Start = f
	return nil
}

func (d *decoder) elementSection(r *wbin.Reader) error {
	count, err := r.ReadU32()
	if err != nil {
		return err
	}
	for range count {
		start := r.Offset()
		flags, err := r.ReadU32()
		if err != nil {
			return err
		}
		if flags > 7 {
			return werrors.New(werrors.PhaseDecode, werrors.KindInvalidData).
				Offset(start).Detail("invalid element segment flags %d", flags).Build()
		}
		e := &Element{Type: wasm.ValFuncRef, Expressions: flags&4 != 0}
		switch {
		case flags&1 == 0:
			e.Mode = ElementActive
		case flags&2 == 0:
			e.Mode = ElementPassive
		default:
			e.Mode = ElementDeclared
		}
		if e.Mode == ElementActive {
			tableIdx := uint32(0)
			if flags&2 != 0 {
				e.explicitTable = true
				if tableIdx, err = r.ReadU32(); err != nil {
					return err
				}
			}
			if e.Table, err = lookup("table", d.tables, tableIdx, start); err != nil {
				return err
			}
			if e.Offset, err = d.constExpr(r); err != nil {
				return err
			}
		}
		if flags&3 != 0 {
			if e.Expressions {
				if e.Type, err = d.refType(r); err != nil {
					return err
				}
			} else if err := d.elemKind(r); err != nil {
				return err
			}
		}
		if err := d.elementItems(r, e); err != nil {
			return err
		}
		d.elements = append(d.elements, d.m.Elements.add(e))
	}
	return nil
}

func (d *decoder) elemKind(r *wbin.Reader) error {
	start := r.Offset()
	kind, err := r.ReadByte()
	if err != nil {
		return err
	}
	if kind != 0 && d.cfg.StrictValidate() {
		return strictErr(start, "element kind must be funcref (0x00), found %#02x", kind)
	}
	return nil
}

func (d *decoder) elementItems(r *wbin.Reader, e *Element) error {
	n, err := r.ReadU32()
	if err != nil {
		return err
	}
	for range n {
		start := r.Offset()
		if e.Expressions {
			expr, err := d.constExpr(r)
			if err != nil {
				return err
			}
			e.Exprs = append(e.Exprs, expr)
			continue
		}
		idx, err := r.ReadU32()
		if err != nil {
			return err
		}
		f, err := lookup("function", d.funcs, idx, start)
		if err != nil {
			return err
		}
		e.Funcs = append(e.Funcs, f)
	}
	return nil
}

func (d *decoder) dataCountSection(r *wbin.Reader) error {
	n, err := r.ReadU32()
	if err != nil {
		return err
	}
	d.dataCount = int(n)
	d.m.dataCount = true
	return nil
}

func (d *decoder) dataSection(r *wbin.Reader) error {
	start := r.Offset()
	count, err := r.ReadU32()
	if err != nil {
		return err
	}
	if d.dataCount >= 0 && int(count) != d.dataCount {
		return werrors.New(werrors.PhaseDecode, werrors.KindInvalidData).
			Offset(start).Detail("data count mismatch").
			Expected("%d segments", d.dataCount).Found("%d", count).Build()
	}
	for range count {
		start := r.Offset()
		flags, err := r.ReadU32()
		if err != nil {
			return err
		}
		seg := &Data{}
		switch flags {
		case 0, 2:
			memIdx := uint32(0)
			if flags == 2 {
				seg.explicitMemory = true
				if memIdx, err = r.ReadU32(); err != nil {
					return err
				}
			}
			if seg.Memory, err = lookup("memory", d.memories, memIdx, start); err != nil {
				return err
			}
			if seg.Offset, err = d.constExpr(r); err != nil {
				return err
			}
		case 1:
			seg.Passive = true
		default:
			return werrors.New(werrors.PhaseDecode, werrors.KindInvalidData).
				Offset(start).Detail("invalid data segment flags %d", flags).Build()
		}
		n, err := r.ReadU32()
		if err != nil {
			return err
		}
		if seg.Value, err = r.ReadBytes(int(n)); err != nil {
			return err
		}
		d.data = append(d.data, d.m.Data.add(seg))
	}
	return nil
}

func (d *decoder) finish() error {
	if d.bodies != len(d.localFuncs) {
		return werrors.New(werrors.PhaseDecode, werrors.KindInvalidData).
			Section("code").Detail("function and code section have inconsistent lengths").
			Expected("%d bodies", len(d.localFuncs)).Found("%d", d.bodies).Build()
	}
	if d.dataCount >= 0 && len(d.data) != d.dataCount {
		return werrors.New(werrors.PhaseDecode, werrors.KindInvalidData).
			Section("datacount").Detail("data count mismatch").
			Expected("%d segments", d.dataCount).Found("%d", len(d.data)).Build()
	}
	for _, ref := range d.pendingData {
		id, err := lookup("data", d.data, ref.index, ref.offset)
		if err != nil {
			return werrors.InSection(err, "code")
		}
		ref.instr.Data = id
	}
	if err := d.checkModule(); err != nil {
		return err
	}

	// Custom sections that no standard section follows trail the module.
	for _, raw := range d.raws {
		if raw.after == d.lastOrder {
			raw.placed = false
		}
	}

	if d.names != nil {
		if err := d.applyNames(d.names.payload); err != nil {
			d.log.Warn("keeping unparseable name section", zap.Error(err))
		} else {
			d.m.Customs.Delete(d.names.id)
		}
	}
	if d.cfg.GenerateSyntheticNames {
		d.syntheticNames()
	}
	return nil
}
