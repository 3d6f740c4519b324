package gc_test

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/tetratelabs/wazero"

	werrors "github.com/wippyai/wasm-ir/errors"
	"github.com/wippyai/wasm-ir/ir"
	"github.com/wippyai/wasm-ir/passes/gc"
	"github.com/wippyai/wasm-ir/wasm"
)

var i32 = []wasm.ValType{wasm.ValI32}

type fixture struct {
	m        *ir.Module
	keep     ir.FuncID
	helper   ir.FuncID
	target   ir.FuncID
	dead     ir.FuncID
	declared ir.ElementID
	used     ir.DataID
	unused   ir.DataID
}

// newFixture builds a module where "keep" is exported and reaches helper,
// target, the env.used import, one global and one passive data segment.
// Everything else is garbage.
func newFixture() fixture {
	m := ir.NewModule(ir.NewConfig().WithProducersSection(false))
	var fx fixture
	fx.m = m

	used, _ := m.AddImportFunc("env", "used", m.Types.Add(i32, nil))
	unusedImport, _ := m.AddImportFunc("env", "unused", m.Types.Add(nil, nil))
	m.Funcs.Get(used).Name = "used"
	m.Memories.AddLocal(ir.NewLimits(1))
	live := m.Globals.AddLocal(wasm.ValI32, false, ir.I32Const(5))
	m.Globals.AddLocal(wasm.ValI64, true, ir.I64Const(0))
	fx.used = m.Data.AddPassive([]byte("used"))
	fx.unused = m.Data.AddPassive([]byte("unused"))

	tb := ir.NewFunctionBuilder(m, nil, nil).Name("target")
	fx.target = tb.Finish(nil)

	hb := ir.NewFunctionBuilder(m, nil, i32).Name("helper")
	fx.helper = hb.Finish(nil, hb.GlobalGet(live))

	db := ir.NewFunctionBuilder(m, []wasm.ValType{wasm.ValI64}, nil).Name("dead")
	arg := m.Locals.Add(wasm.ValI64)
	tmp := db.Local(wasm.ValI32)
	fx.dead = db.Finish([]ir.LocalID{arg},
		db.Call(unusedImport),
		db.LocalSet(tmp, db.I32Const(1)))

	kb := ir.NewFunctionBuilder(m, nil, nil).Name("keep")
	drop := ir.NewInstr(wasm.Instruction{
		Opcode: wasm.OpPrefixMisc,
		Imm:    wasm.MiscImm{SubOpcode: wasm.MiscDataDrop, Operands: []uint32{0}},
	})
	drop.Data = fx.used
	fx.keep = kb.Finish(nil,
		kb.Call(used, kb.Call(fx.helper)),
		kb.Drop(kb.RefFunc(fx.target)),
		kb.Instr(drop))
	m.Exports.AddFunc("keep", fx.keep)

	fx.declared = m.Elements.AddDeclared([]ir.FuncID{fx.target, fx.dead})
	return fx
}

func funcNames(m *ir.Module) []string {
	var names []string
	for _, f := range m.Funcs.All() {
		names = append(names, f.Name)
	}
	slices.Sort(names)
	return names
}

func TestRun(t *testing.T) {
	fx := newFixture()
	m := fx.m

	stats, err := gc.Run(m)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := gc.Stats{
		Funcs:    2, // dead and env.unused
		Imports:  1,
		Globals:  1,
		Memories: 1,
		Types:    1, // (i64) -> ()
		Data:     1,
		Locals:   2,
	}
	if diff := cmp.Diff(want, stats); diff != "" {
		t.Errorf("stats (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"helper", "keep", "target", "used"}, funcNames(m)); diff != "" {
		t.Errorf("surviving functions (-want +got):\n%s", diff)
	}
	if m.Imports.Len() != 1 {
		t.Errorf("imports = %d, want 1", m.Imports.Len())
	}
	if !m.Data.Contains(fx.used) || m.Data.Contains(fx.unused) {
		t.Error("passive data not swept by use")
	}
	if got := m.Elements.Get(fx.declared).Funcs; !slices.Equal(got, []ir.FuncID{fx.target}) {
		t.Errorf("declared element = %v, want only target", got)
	}
	if m.Funcs.Contains(fx.dead) {
		t.Error("dead function survived")
	}
}

func TestRunOutputIsValid(t *testing.T) {
	fx := newFixture()
	if _, err := gc.Run(fx.m); err != nil {
		t.Fatalf("Run: %v", err)
	}
	out := fx.m.Emit()

	back, err := ir.Parse(out)
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	if diff := cmp.Diff(funcNames(fx.m), funcNames(back)); diff != "" {
		t.Errorf("functions after reparse (-want +got):\n%s", diff)
	}

	ctx := context.Background()
	r := wazero.NewRuntime(ctx)
	defer r.Close(ctx)
	if _, err := r.CompileModule(ctx, out); err != nil {
		t.Fatalf("wazero rejects collected module: %v", err)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	fx := newFixture()
	if _, err := gc.Run(fx.m); err != nil {
		t.Fatal(err)
	}
	first := fx.m.Emit()
	stats, err := gc.Run(fx.m)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Total() != 0 || stats.Imports != 0 || stats.Locals != 0 {
		t.Errorf("second run deleted %+v", stats)
	}
	if diff := cmp.Diff(first, fx.m.Emit()); diff != "" {
		t.Errorf("second run changed output (-first +second):\n%s", diff)
	}
}

func TestRunKeepsActiveSegments(t *testing.T) {
	m := ir.NewModule(ir.NewConfig())
	mem := m.Memories.AddLocal(ir.NewLimits(1))
	table := m.Tables.AddLocal(wasm.ValFuncRef, ir.NewLimits(1))
	m.Data.AddActive(mem, ir.I32Const(0), []byte{1})
	b := ir.NewFunctionBuilder(m, nil, nil).Name("slot")
	slot := b.Finish(nil)
	m.Elements.AddActive(table, ir.I32Const(0), []ir.FuncID{slot})

	stats, err := gc.Run(m)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Total() != 0 {
		t.Errorf("active segments lost entities: %+v", stats)
	}
}

func TestRunRejectsDanglingReference(t *testing.T) {
	fx := newFixture()
	fx.m.Funcs.Delete(fx.helper)
	before := fx.m.Funcs.Len()

	_, err := gc.Run(fx.m)
	if !errors.Is(err, werrors.New(werrors.PhaseValidate, werrors.KindNotFound).Build()) {
		t.Fatalf("err = %v, want validate/not_found", err)
	}
	if fx.m.Funcs.Len() != before {
		t.Error("failed run modified the module")
	}
}

func TestRunKeepsLocalsSharedWithLiveFunctions(t *testing.T) {
	m := ir.NewModule(ir.NewConfig().WithProducersSection(false))
	shared := m.Locals.Add(wasm.ValI32)

	lb := ir.NewFunctionBuilder(m, nil, nil).Name("live")
	lb.Function().Locals = append(lb.Function().Locals, shared)
	live := lb.Finish(nil, lb.LocalSet(shared, lb.I32Const(1)))
	m.Exports.AddFunc("live", live)

	db := ir.NewFunctionBuilder(m, nil, nil).Name("dead")
	db.Function().Locals = append(db.Function().Locals, shared)
	own := db.Local(wasm.ValI64)
	db.Finish(nil, db.LocalSet(shared, db.I32Const(2)), db.LocalSet(own, db.I64Const(3)))

	stats, err := gc.Run(m)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Funcs != 1 || stats.Locals != 1 {
		t.Errorf("stats = %+v, want one function and one local", stats)
	}
	if !m.Locals.Contains(shared) {
		t.Fatal("local still used by live was deleted")
	}
	if m.Locals.Contains(own) {
		t.Error("local owned by dead survived")
	}
	if _, err := ir.Parse(m.Emit()); err != nil {
		t.Fatalf("reparse: %v", err)
	}
}
