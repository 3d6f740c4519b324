package ir

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	wbin "github.com/wippyai/wasm-ir/internal/binary"
	"github.com/wippyai/wasm-ir/wasm"
)

func observeLogs(t *testing.T, level zapcore.Level) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(level)
	SetLogger(zap.New(core))
	t.Cleanup(func() { SetLogger(zap.NewNop()) })
	return logs
}

func TestNameSectionRoundTrip(t *testing.T) {
	m := NewModule(quietConfig())
	m.Name = "demo"
	ty := m.Types.Add(i32, i32)
	m.Types.Get(ty).Name = "unary"
	mem := m.Memories.AddLocal(NewLimits(1))
	m.Memories.Get(mem).Name = "heap"
	g := m.Globals.AddLocal(wasm.ValI32, false, I32Const(3))
	m.Globals.Get(g).Name = "three"
	seg := m.Data.AddPassive([]byte{1})
	m.Data.Get(seg).Name = "blob"

	b := NewFunctionBuilder(m, i32, i32).Name("inc")
	arg := m.Locals.Add(wasm.ValI32)
	m.Locals.Get(arg).Name = "x"
	tmp := b.Local(wasm.ValI32)
	m.Locals.Get(tmp).Name = "tmp"
	f := b.Finish([]LocalID{arg},
		b.LocalSet(tmp, b.Binop(wasm.OpI32Add, b.LocalGet(arg), b.GlobalGet(g))),
		b.LocalGet(tmp))
	elem := m.Elements.AddDeclared([]FuncID{f})
	m.Elements.Get(elem).Name = "refs"

	out := m.Emit()
	p := mustParse(t, quietConfig(), out)

	if p.Name != "demo" {
		t.Errorf("module name = %q", p.Name)
	}
	got := map[string]string{}
	for _, ty := range p.Types.All() {
		got["type"] = ty.Name
	}
	for _, fn := range p.Funcs.All() {
		got["func"] = fn.Name
		lf, _ := fn.Local()
		got["arg"] = p.Locals.Get(lf.Args[0]).Name
		got["local"] = p.Locals.Get(lf.Locals[0]).Name
	}
	for _, mem := range p.Memories.All() {
		got["memory"] = mem.Name
	}
	for _, g := range p.Globals.All() {
		got["global"] = g.Name
	}
	for _, d := range p.Data.All() {
		got["data"] = d.Name
	}
	for _, e := range p.Elements.All() {
		got["elem"] = e.Name
	}
	want := map[string]string{
		"type": "unary", "func": "inc", "arg": "x", "local": "tmp",
		"memory": "heap", "global": "three", "data": "blob", "elem": "refs",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("names (-want +got):\n%s", diff)
	}
	if _, ok := p.Customs.ByName("name"); ok {
		t.Error("parsed name section must not stay in the registry")
	}
	if again := p.Emit(); !bytes.Equal(out, again) {
		t.Error("name section changed on round trip")
	}
}

func TestNameSectionDisabled(t *testing.T) {
	m := NewModule(quietConfig().WithNameSection(false))
	b := NewFunctionBuilder(m, nil, nil).Name("quiet")
	b.Finish(nil)
	p := mustParse(t, quietConfig(), m.Emit())
	if _, ok := p.Funcs.ByName("quiet"); ok {
		t.Error("name emitted although disabled")
	}
}

func TestSyntheticNames(t *testing.T) {
	data := buildModule(
		section(1, 0x01, 0x60, 0x01, 0x7f, 0x00), // (i32) -> ()
		section(2, 0x01, 0x03, 'e', 'n', 'v', 0x03, 'l', 'o', 'g', 0x00, 0x00),
		section(3, 0x01, 0x00),
		section(6, 0x01, 0x7f, 0x00, 0x41, 0x00, 0x0b),
		code(0x01, 0x01, 0x7f, 0x0b),
	)
	m := mustParse(t, quietConfig().WithSyntheticNames(true), data)

	var funcs []string
	for _, f := range m.Funcs.All() {
		funcs = append(funcs, f.Name)
	}
	if diff := cmp.Diff([]string{"env.log", "f1"}, funcs); diff != "" {
		t.Errorf("function names (-want +got):\n%s", diff)
	}
	for f, lf := range m.Funcs.LocalFuncs() {
		if got := m.Locals.Get(lf.Args[0]).Name; got != "arg0" {
			t.Errorf("%s arg = %q", f.Name, got)
		}
		if got := m.Locals.Get(lf.Locals[0]).Name; got != "l1" {
			t.Errorf("%s local = %q", f.Name, got)
		}
	}
	for _, g := range m.Globals.All() {
		if g.Name != "g0" {
			t.Errorf("global name = %q", g.Name)
		}
	}
}

func TestBadNameSectionKeptRaw(t *testing.T) {
	logs := observeLogs(t, zapcore.WarnLevel)

	w := wbin.NewWriter()
	w.Byte(nameFunction)
	w.WriteSized([]byte{0x01, 0x09, 0x01, 'x'}) // function 9 does not exist
	data := buildModule(answerWasm[8:], customSection("name", w.Bytes()))

	m := mustParse(t, quietConfig(), data)
	if _, ok := m.Customs.ByName("name"); !ok {
		t.Fatal("bad name section not kept")
	}
	if logs.FilterMessage("keeping unparseable name section").Len() != 1 {
		t.Errorf("warnings: %v", logs.All())
	}
	if out := m.Emit(); !bytes.Equal(out, data) {
		t.Errorf("raw name section not emitted verbatim:\n got %x\nwant %x", out, data)
	}
}

func TestNameSectionKeepsUnmodeledSubsections(t *testing.T) {
	w := wbin.NewWriter()
	fn := wbin.NewWriter()
	writeAssocs(fn, []nameAssoc{{index: 0, name: "answer"}})
	writeSubsection(w, nameFunction, fn)
	labels := wbin.NewWriter()
	labels.WriteU32(1)
	labels.WriteU32(0)
	writeAssocs(labels, []nameAssoc{{index: 0, name: "L"}})
	writeSubsection(w, nameLabel, labels)
	future := wbin.NewWriter()
	future.WriteBytes([]byte{0xca, 0xfe})
	writeSubsection(w, 12, future)
	data := buildModule(answerWasm[8:], customSection("name", w.Bytes()))

	m := mustParse(t, quietConfig(), data)
	if _, ok := m.Customs.ByName("name"); ok {
		t.Error("name section left in the registry")
	}
	answer, ok := m.Funcs.ByName("answer")
	if !ok {
		t.Fatal("function name not applied")
	}
	if len(m.labelNames[answer]) != 1 {
		t.Errorf("label names = %v", m.labelNames)
	}
	if out := m.Emit(); !bytes.Equal(out, data) {
		t.Fatalf("name section changed:\n got %x\nwant %x", out, data)
	}

	// An import shifts the function index; the label names follow it.
	m.AddImportFunc("env", "first", m.Types.Add(nil, nil))
	again := mustParse(t, quietConfig(), m.Emit())
	moved, ok := again.Funcs.ByName("answer")
	if !ok {
		t.Fatal("function name lost after reindexing")
	}
	if diff := cmp.Diff([]nameAssoc{{index: 0, name: "L"}}, again.labelNames[moved], cmp.AllowUnexported(nameAssoc{})); diff != "" {
		t.Errorf("label names (-want +got):\n%s", diff)
	}
	if len(again.extraNames) != 1 || again.extraNames[0].id != 12 {
		t.Errorf("unknown subsections = %v", again.extraNames)
	}
}

func TestProducersSection(t *testing.T) {
	var p Producers
	p.AddLanguage("Go", "1.25")
	p.AddProcessedBy("tool", "1")
	w := wbin.NewWriter()
	p.encode(w)
	data := buildModule(answerWasm[8:], customSection("producers", w.Bytes()))

	m := mustParse(t, NewConfig(), data)
	if diff := cmp.Diff(p, m.Producers); diff != "" {
		t.Fatalf("producers (-want +got):\n%s", diff)
	}

	again := mustParse(t, NewConfig(), m.Emit())
	want := p.clone()
	want.AddProcessedBy(processedByName, Version)
	if diff := cmp.Diff(want, again.Producers); diff != "" {
		t.Errorf("emitted producers (-want +got):\n%s", diff)
	}

	quiet := mustParse(t, quietConfig(), data)
	back := mustParse(t, quietConfig(), quiet.Emit())
	if diff := cmp.Diff(p, back.Producers); diff != "" {
		t.Errorf("producers without processed-by (-want +got):\n%s", diff)
	}
}

func TestBadProducersSectionKeptRaw(t *testing.T) {
	logs := observeLogs(t, zapcore.WarnLevel)
	data := buildModule(answerWasm[8:], customSection("producers", []byte{0x05}))
	m := mustParse(t, NewConfig(), data)
	if _, ok := m.Customs.ByName("producers"); !ok {
		t.Fatal("bad producers section not kept")
	}
	if logs.Len() != 1 {
		t.Errorf("warnings: %v", logs.All())
	}
	if out := m.Emit(); !bytes.Equal(out, data) {
		t.Error("raw producers section not emitted verbatim")
	}
}

func TestDebugSections(t *testing.T) {
	logs := observeLogs(t, zapcore.DebugLevel)
	data := buildModule(answerWasm[8:], customSection(".debug_info", []byte{1, 2, 3}))

	dropped := mustParse(t, quietConfig(), data)
	if len(dropped.Debug) != 0 {
		t.Error("debug section kept without GenerateDWARF")
	}
	if logs.FilterMessage("dropping debug section").Len() != 1 {
		t.Errorf("logs: %v", logs.All())
	}

	kept := mustParse(t, quietConfig().WithDWARF(true), data)
	if len(kept.Debug) != 1 || kept.Debug[0].Name() != ".debug_info" {
		t.Fatalf("debug sections = %v", kept.Debug)
	}
	if out := kept.Emit(); !bytes.Equal(out, data) {
		t.Error("debug section not emitted verbatim")
	}
	kept.SetConfig(quietConfig())
	if out := kept.Emit(); !bytes.Equal(out, answerWasm) {
		t.Error("debug section emitted without GenerateDWARF")
	}
}
