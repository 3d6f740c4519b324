// Package wasm holds the binary-format primitives shared by the IR decoder
// and encoder: section and opcode constants, value types, LEB128 helpers
// and the instruction codec.
//
// Instructions are decoded one at a time so callers can track byte offsets:
//
//	instr, err := wasm.ReadInstruction(r)
//
// and encoded back with:
//
//	wasm.EncodeInstructionTo(&buf, &instr)
//
// Float immediates are kept as raw bits so NaN payloads round-trip
// unchanged. Opcodes of the GC, exception-handling and typed
// function-reference proposals decode to ErrUnsupportedOpcode.
package wasm
