package ir

import (
	"fmt"
	"iter"
)

// FuncID identifies a function.
type FuncID = ID[Function]

// Function is an imported or locally defined function.
type Function struct {
	Kind FunctionKind
	Name string
	Type TypeID
	id   FuncID
}

// FunctionKind is *ImportedFunction or *LocalFunction.
type FunctionKind interface {
	functionKind()
}

// ImportedFunction is a function provided by the host.
type ImportedFunction struct {
	Import ImportID
}

func (*ImportedFunction) functionKind() {}

// ID returns the function's identifier.
func (f *Function) ID() FuncID { return f.id }

// Local returns the body of a locally defined function.
func (f *Function) Local() (*LocalFunction, bool) {
	lf, ok := f.Kind.(*LocalFunction)
	return lf, ok
}

// IsImport reports whether f is imported.
func (f *Function) IsImport() bool {
	_, ok := f.Kind.(*ImportedFunction)
	return ok
}

// Funcs is the arena of functions.
type Funcs struct {
	Arena[Function]
}

func (fs *Funcs) add(f *Function) FuncID {
	f.id = fs.Alloc(f)
	return f.id
}

// ByName returns the first function with this name.
func (fs *Funcs) ByName(name string) (FuncID, bool) {
	for id, f := range fs.All() {
		if f.Name == name {
			return id, true
		}
	}
	return FuncID{}, false
}

// LocalFuncs iterates the locally defined functions.
func (fs *Funcs) LocalFuncs() iter.Seq2[*Function, *LocalFunction] {
	return func(yield func(*Function, *LocalFunction) bool) {
		for _, f := range fs.All() {
			if lf, ok := f.Local(); ok {
				if !yield(f, lf) {
					return
				}
			}
		}
	}
}

// LocalFunction is a function with a body. The body is a tree of
// expressions stored in the function's own arena; Entry is the
// outermost block.
type LocalFunction struct {
	// Args are the parameter locals, one per parameter of the type.
	Args []LocalID

	// Locals are the declared locals in declaration order. Locals used
	// by the body but missing here are declared on emit.
	Locals []LocalID

	exprs Arena[Expr]
	entry ExprID
	m     *Module

	// Input range of the body inside the code section payload, or -1.
	inputStart, inputEnd int
}

func (*LocalFunction) functionKind() {}

func newLocalFunction(m *Module) *LocalFunction {
	return &LocalFunction{m: m, inputStart: -1, inputEnd: -1}
}

func (lf *LocalFunction) alloc(e Expr) ExprID {
	return lf.exprs.Alloc(&e)
}

// Entry returns the ID of the function's outermost block.
func (lf *LocalFunction) Entry() ExprID { return lf.entry }

// Expr returns the expression for id.
func (lf *LocalFunction) Expr(id ExprID) Expr { return *lf.exprs.Get(id) }

// Block returns the block for id. It panics if id is not a block.
func (lf *LocalFunction) Block(id ExprID) *Block {
	b, ok := lf.Expr(id).(*Block)
	if !ok {
		panic(fmt.Sprintf("ir: %s is %T, not a block", id, lf.Expr(id)))
	}
	return b
}

// EntryBlock returns the function's outermost block.
func (lf *LocalFunction) EntryBlock() *Block { return lf.Block(lf.entry) }

// Size returns the number of live expressions in the body.
func (lf *LocalFunction) Size() int { return lf.exprs.Len() }

// BuilderMut returns a builder that allocates into this function, so new
// expressions can be spliced into its blocks.
func (lf *LocalFunction) BuilderMut() *InstrSeqBuilder {
	return &InstrSeqBuilder{fn: lf, m: lf.m}
}

// Walk visits the body in pre-order: an expression, then its operands,
// then nested blocks. Returning false from fn skips the children.
func (lf *LocalFunction) Walk(fn func(ExprID, Expr) bool) {
	lf.walk(lf.entry, fn)
}

func (lf *LocalFunction) walk(id ExprID, fn func(ExprID, Expr) bool) {
	e := lf.Expr(id)
	if !fn(id, e) {
		return
	}
	switch e := e.(type) {
	case *Instr:
		for _, op := range e.Operands {
			lf.walk(op, fn)
		}
	case *Block:
		for _, child := range e.Exprs {
			lf.walk(child, fn)
		}
	case *IfElse:
		for _, op := range e.Operands {
			lf.walk(op, fn)
		}
		lf.walk(e.Consequent, fn)
		lf.walk(e.Alternative, fn)
	}
}
