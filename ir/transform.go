package ir

import (
	"iter"
	"sort"
)

// OffsetPair maps an instruction's input position to its output
// position. Both are relative to the start of the code section payload.
type OffsetPair struct {
	Input  int
	Output int
}

// FunctionRange is the extent of one function body in input and output.
// Input is [-1, -1) for functions that were not decoded.
type FunctionRange struct {
	Func        FuncID
	InputStart  int
	InputEnd    int
	OutputStart int
	OutputEnd   int
}

// CodeTransform records where decoded instructions moved to on emit.
type CodeTransform struct {
	// Instructions are in output order. Output offsets increase strictly.
	Instructions []OffsetPair

	// Functions are the body ranges in output order.
	Functions []FunctionRange

	// InputCodeStart and OutputCodeStart are the absolute file offsets of
	// the code section payload in the input and output.
	InputCodeStart  int
	OutputCodeStart int
}

// Empty reports whether no instruction offsets were recorded.
func (t *CodeTransform) Empty() bool {
	return t == nil || len(t.Instructions) == 0
}

// All iterates the recorded pairs as (input, output).
func (t *CodeTransform) All() iter.Seq2[int, int] {
	return func(yield func(int, int) bool) {
		if t == nil {
			return
		}
		for _, p := range t.Instructions {
			if !yield(p.Input, p.Output) {
				return
			}
		}
	}
}

// Map returns the output offset of the instruction that started at input.
func (t *CodeTransform) Map(input int) (int, bool) {
	if t == nil {
		return 0, false
	}
	idx := t.byInput()
	i := sort.Search(len(idx), func(i int) bool { return t.Instructions[idx[i]].Input >= input })
	if i < len(idx) && t.Instructions[idx[i]].Input == input {
		return t.Instructions[idx[i]].Output, true
	}
	return 0, false
}

// MapAddress maps an absolute input file offset to an absolute output
// file offset.
func (t *CodeTransform) MapAddress(addr int) (int, bool) {
	if t == nil {
		return 0, false
	}
	out, ok := t.Map(addr - t.InputCodeStart)
	if !ok {
		return 0, false
	}
	return out + t.OutputCodeStart, true
}

// Function returns the range of f.
func (t *CodeTransform) Function(f FuncID) (FunctionRange, bool) {
	if t == nil {
		return FunctionRange{}, false
	}
	for _, r := range t.Functions {
		if r.Func == f {
			return r, true
		}
	}
	return FunctionRange{}, false
}

// byInput returns pair positions sorted by input offset. Pairs are in
// output order, which differs from input order once bodies are reordered.
func (t *CodeTransform) byInput() []int {
	idx := make([]int, len(t.Instructions))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return t.Instructions[idx[a]].Input < t.Instructions[idx[b]].Input
	})
	return idx
}
