package ir

import (
	"errors"
	"path/filepath"
	"testing"

	werrors "github.com/wippyai/wasm-ir/errors"
)

func TestConfigDefaults(t *testing.T) {
	cfg := NewConfig()
	if cfg.GenerateDWARF || cfg.GenerateSyntheticNames || cfg.OnlyStableFeatures || cfg.PreserveCodeTransform {
		t.Errorf("unexpected option on by default: %+v", cfg)
	}
	if !cfg.StrictValidate() || !cfg.NameSection() || !cfg.ProducersSection() {
		t.Errorf("expected strict, name and producers on by default: %+v", cfg)
	}
}

func TestConfigSettersCopy(t *testing.T) {
	base := NewConfig()
	changed := base.
		WithDWARF(true).
		WithNameSection(false).
		WithSyntheticNames(true).
		WithStrictValidate(false).
		WithProducersSection(false).
		WithOnlyStableFeatures(true).
		WithCodeTransform(true)

	if base != NewConfig() {
		t.Error("setters modified the receiver")
	}
	if !changed.GenerateDWARF || changed.NameSection() || !changed.GenerateSyntheticNames ||
		changed.StrictValidate() || changed.ProducersSection() || !changed.OnlyStableFeatures ||
		!changed.PreserveCodeTransform {
		t.Errorf("setters not applied: %+v", changed)
	}
}

func TestModuleKeepsConfigCopy(t *testing.T) {
	cfg := NewConfig()
	m := NewModule(cfg)
	cfg = cfg.WithStrictValidate(false)
	if !m.Config().StrictValidate() {
		t.Error("module config changed with caller's copy")
	}
}

func TestParseFileMissing(t *testing.T) {
	_, err := ParseFile(filepath.Join(t.TempDir(), "missing.wasm"))
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, werrors.New(werrors.PhaseLoad, werrors.KindNotFound).Build()) {
		t.Errorf("error = %v, want load/not_found", err)
	}
}

func TestParseFileUnreadable(t *testing.T) {
	_, err := ParseFile(t.TempDir())
	if err == nil {
		t.Fatal("expected error reading a directory")
	}
	if !errors.Is(err, werrors.New(werrors.PhaseLoad, werrors.KindIO).Build()) {
		t.Errorf("error = %v, want load/io", err)
	}
	if errors.Is(err, werrors.New(werrors.PhaseLoad, werrors.KindNotFound).Build()) {
		t.Error("directory reported as missing")
	}
}

func TestParseFileAndEmitFile(t *testing.T) {
	dir := t.TempDir()
	m := mustParse(t, quietConfig(), answerWasm)
	path := filepath.Join(dir, "answer.wasm")
	if err := m.EmitFile(path); err != nil {
		t.Fatal(err)
	}
	again, err := quietConfig().ParseFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := again.Exports.FuncByName("answer"); !ok {
		t.Error("export lost through file round trip")
	}
}
