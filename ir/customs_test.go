package ir

import (
	"bytes"
	"fmt"
	"slices"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// helloSection is a typed custom section with text "Hello, <who>!".
type helloSection struct {
	who string
}

func parseHello(data []byte) (*helloSection, bool) {
	s := string(data)
	if !strings.HasPrefix(s, "Hello, ") || !strings.HasSuffix(s, "!") {
		return nil, false
	}
	return &helloSection{who: s[len("Hello, ") : len(s)-1]}, true
}

func (h *helloSection) Name() string { return "hello" }
func (h *helloSection) Data() []byte { return fmt.Appendf(nil, "Hello, %s!", h.who) }

func TestUnknownCustomSectionRoundTrip(t *testing.T) {
	cfg := quietConfig()
	m := NewModule(cfg)

	world := &helloSection{who: "World"}
	id := m.Customs.Add(world)
	if got, ok := GetAs[*helloSection](&m.Customs, id); !ok || got != world {
		t.Fatalf("GetAs = %v, %v", got, ok)
	}

	var listed [][]byte
	for _, s := range m.Customs.All() {
		listed = append(listed, s.Data())
	}
	if diff := cmp.Diff([][]byte{world.Data()}, listed); diff != "" {
		t.Fatalf("registry contents (-want +got):\n%s", diff)
	}

	wasm := m.Emit()
	m2 := mustParse(t, cfg, wasm)

	raw, ok := m2.Customs.RemoveRaw("hello")
	if !ok {
		t.Fatal("hello section not found after parse")
	}
	if !bytes.Equal(raw.Data(), world.Data()) {
		t.Fatalf("raw data = %q, want %q", raw.Data(), world.Data())
	}

	parsed, ok := parseHello(raw.Data())
	if !ok {
		t.Fatal("raw data does not parse as hello")
	}
	m2.Customs.Add(parsed)

	if again := m2.Emit(); !bytes.Equal(wasm, again) {
		t.Errorf("re-emitted module differs:\n got %x\nwant %x", again, wasm)
	}
}

func TestCustomSectionsRegistry(t *testing.T) {
	var cs CustomSections
	a := cs.Add(NewRawCustomSection("a", []byte{1}))
	b := cs.Add(&helloSection{who: "b"})
	a2 := cs.Add(NewRawCustomSection("a", []byte{2}))

	if cs.Len() != 3 {
		t.Fatalf("Len = %d", cs.Len())
	}
	if id, ok := cs.ByName("a"); !ok || id != a {
		t.Errorf("ByName(a) = %v, %v", id, ok)
	}

	cs.Delete(a)
	if id, ok := cs.ByName("a"); !ok || id != a2 {
		t.Errorf("ByName(a) after delete = %v, want second entry", id)
	}
	if _, ok := cs.Lookup(a); ok {
		t.Error("deleted entry still present")
	}

	raw, ok := cs.RemoveRaw("hello")
	if !ok || string(raw.Data()) != "Hello, b!" {
		t.Errorf("RemoveRaw(hello) = %q, %v", raw.Data(), ok)
	}
	if _, ok := cs.Lookup(b); ok {
		t.Error("typed section still present after RemoveRaw")
	}
	if _, ok := cs.RemoveRaw("missing"); ok {
		t.Error("RemoveRaw of missing name succeeded")
	}

	if _, _, ok := FindAs[*helloSection](&cs); ok {
		t.Error("FindAs found removed section")
	}
	if _, raw, ok := FindAs[*RawCustomSection](&cs); !ok || raw.Data()[0] != 2 {
		t.Error("FindAs did not find remaining raw section")
	}
}

func customNames(t *testing.T, data []byte) []string {
	t.Helper()
	var names []string
	m := mustParse(t, quietConfig().WithNameSection(false), data)
	for _, s := range m.Customs.All() {
		names = append(names, s.Name())
	}
	return names
}

func TestCustomSectionsEmitInRegistryOrder(t *testing.T) {
	m := NewModule(quietConfig())
	for _, name := range []string{"zeta", "alpha", "mid", "alpha"} {
		m.Customs.Add(NewRawCustomSection(name, []byte(name)))
	}
	got := customNames(t, m.Emit())
	if diff := cmp.Diff([]string{"zeta", "alpha", "mid", "alpha"}, got); diff != "" {
		t.Errorf("custom section order (-want +got):\n%s", diff)
	}
}

func TestCustomSectionPlacementPreserved(t *testing.T) {
	data := buildModule(
		customSection("first", []byte{1}),
		section(1, 0x01, 0x60, 0x00, 0x00), // type: () -> ()
		customSection("after-type", []byte{2}),
		section(3, 0x01, 0x00), // func: 1 of type 0
		section(10, 0x01, 0x02, 0x00, 0x0b), // code: empty body
		customSection("trailing", []byte{3}),
	)
	m := mustParse(t, quietConfig(), data)
	out := m.Emit()
	if !bytes.Equal(out, data) {
		t.Fatalf("placement not preserved:\n got %x\nwant %x", out, data)
	}

	// A section added later trails the module.
	m.Customs.Add(NewRawCustomSection("added", nil))
	got := customNames(t, m.Emit())
	want := []string{"first", "after-type", "trailing", "added"}
	if !slices.Equal(got, want) {
		t.Errorf("names = %v, want %v", got, want)
	}
}
