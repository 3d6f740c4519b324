// Package errors provides structured error types for the wasm-ir library.
//
// Errors are categorized by Phase (decode, encode, validate, load) and Kind.
// The Error type carries the section, the absolute input offset, what was
// expected versus what was found, and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseDecode, errors.KindOutOfBounds).
//		Section("code").
//		Offset(0x2a).
//		Expected("function index < %d", n).
//		Found("%d", idx).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.Truncated(off, "section size")
//	err := errors.Strict("start function must have type [] -> []")
//
// All errors implement the standard error interface and support errors.Is/As.
// errors.Is matches on Phase and Kind only.
package errors
