// Package ir decodes WebAssembly binary modules into a mutable
// intermediate representation and encodes them back.
//
// A Module stores every entity (types, functions, locals, globals,
// tables, memories, segments, exports) in a typed Arena and refers to
// other entities by ID. IDs are stable across mutation: deleting an item
// leaves a tombstone and inserting never renumbers. Binary indices are
// recomputed by Emit.
//
// Function bodies are expression trees. A LocalFunction owns an arena of
// Expr nodes (*Instr, *Block, *IfElse); blocks hold ordered ExprID lists
// that can be edited in place:
//
//	m, err := ir.NewConfig().WithCodeTransform(true).Parse(data)
//	for _, lf := range m.Funcs.LocalFuncs() {
//		b := lf.BuilderMut()
//		lf.EntryBlock().InsertExpr(0, b.Drop(b.I32Const(0)))
//	}
//	out := m.Emit()
//
// Custom sections the library does not interpret are kept in
// Module.Customs. Sections implementing CodeTransformer receive a
// CodeTransform mapping input instruction offsets to output offsets when
// PreserveCodeTransform is set.
//
// A Module must not be mutated concurrently. Independent modules can be
// processed in parallel.
package ir
