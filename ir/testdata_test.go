package ir

import (
	"bytes"
	"testing"

	wbin "github.com/wippyai/wasm-ir/internal/binary"
)

var header = []byte{
	0x00, 0x61, 0x73, 0x6d, // magic
	0x01, 0x00, 0x00, 0x00, // version
}

// answerWasm exports "answer" returning 42.
var answerWasm = []byte{
	0x00, 0x61, 0x73, 0x6d, // magic
	0x01, 0x00, 0x00, 0x00, // version
	0x01, 0x05, 0x01, 0x60, 0x00, 0x01, 0x7f, // type section: () -> i32
	0x03, 0x02, 0x01, 0x00, // func section: 1 func of type 0
	0x07, 0x0a, 0x01, 0x06, 'a', 'n', 's', 'w', 'e', 'r', 0x00, 0x00, // export "answer"
	0x0a, 0x06, 0x01, 0x04, 0x00, 0x41, 0x2a, 0x0b, // code: i32.const 42
}

// buildModule assembles a module from (id, payload) sections.
func buildModule(sections ...[]byte) []byte {
	var buf bytes.Buffer
	buf.Write(header)
	for _, s := range sections {
		buf.Write(s)
	}
	return buf.Bytes()
}

func section(id byte, payload ...byte) []byte {
	w := wbin.NewWriter()
	w.Byte(id)
	w.WriteSized(payload)
	return w.Bytes()
}

func customSection(name string, data []byte) []byte {
	w := wbin.NewWriter()
	w.WriteName(name)
	w.WriteBytes(data)
	return section(0, w.Bytes()...)
}

func mustParse(t *testing.T, cfg Config, data []byte) *Module {
	t.Helper()
	m, err := cfg.Parse(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return m
}

// quietConfig does not add producers, so output depends only on input.
func quietConfig() Config {
	return NewConfig().WithProducersSection(false)
}
