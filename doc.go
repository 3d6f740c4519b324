// Package wasmir is a WebAssembly module transformation toolkit.
//
// A binary module is decoded into an arena-based intermediate
// representation, mutated in place, and encoded again. Custom sections
// the toolkit does not understand survive the round trip byte for byte,
// and sections that track code offsets are told where every instruction
// moved.
//
// # Architecture Overview
//
//	wasmir/
//	├── ir/              Module, arenas, decoder, encoder, builder, custom sections
//	├── passes/gc/       Removes entities unreachable from the module roots
//	├── wasm/            Binary format primitives: opcodes, types, LEB128, instructions
//	├── errors/          Structured error types for decode and encode failures
//	├── internal/binary/ Byte reader and writer with absolute offsets
//	└── cmd/wasm-roundtrip/  Decode, collect and re-encode modules from the shell
//
// # Quick Start
//
//	m, err := ir.ParseFile("app.wasm")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if _, err := gc.Run(m); err != nil {
//	    log.Fatal(err)
//	}
//	if err := m.EmitFile("app.min.wasm"); err != nil {
//	    log.Fatal(err)
//	}
//
// # Offset Tracking
//
// With Config.WithCodeTransform, the encoder records where each decoded
// instruction lands in the new code section and hands the mapping to
// every registered custom section implementing ir.CodeTransformer before
// that section's bytes are produced.
//
// # Thread Safety
//
// A Module is not safe for concurrent use. Work on several modules in
// parallel by giving each goroutine its own Module.
package wasmir
