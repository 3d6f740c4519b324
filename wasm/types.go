package wasm

import "fmt"

// ValType represents a value type.
type ValType byte

func (v ValType) String() string {
	switch v {
	case ValI32:
		return "i32"
	case ValI64:
		return "i64"
	case ValF32:
		return "f32"
	case ValF64:
		return "f64"
	case ValV128:
		return "v128"
	case ValFuncRef:
		return "funcref"
	case ValExtern:
		return "externref"
	case ValRefNull:
		return "ref null"
	case ValRef:
		return "ref"
	default:
		return fmt.Sprintf("valtype(0x%02x)", byte(v))
	}
}

// IsNumeric reports whether v is one of the number or vector types.
func (v ValType) IsNumeric() bool {
	switch v {
	case ValI32, ValI64, ValF32, ValF64, ValV128:
		return true
	}
	return false
}

// IsRef reports whether v is an abstract reference type.
func (v ValType) IsRef() bool {
	return v == ValFuncRef || v == ValExtern
}

// Valid reports whether v is a value type the IR can represent.
func (v ValType) Valid() bool {
	return v.IsNumeric() || v.IsRef()
}

// BlockTypeFor returns the single-result block type encoding for v.
func BlockTypeFor(v ValType) int64 {
	// Value type bytes are 0x6F..0x7F and decode as negative s7 values.
	return int64(v) - 0x80
}

// BlockValType converts a negative block type back to its value type.
// It returns false for the void type and for type indices.
func BlockValType(bt int64) (ValType, bool) {
	if bt >= 0 || bt == BlockTypeVoid {
		return 0, false
	}
	v := ValType(bt + 0x80)
	return v, v.Valid()
}

// SectionName returns the canonical name of a section id.
func SectionName(id byte) string {
	switch id {
	case SectionCustom:
		return "custom"
	case SectionType:
		return "type"
	case SectionImport:
		return "import"
	case SectionFunction:
		return "function"
	case SectionTable:
		return "table"
	case SectionMemory:
		return "memory"
	case SectionGlobal:
		return "global"
	case SectionExport:
		return "export"
	case SectionStart:
		return "start"
	case SectionElement:
		return "element"
	case SectionCode:
		return "code"
	case SectionData:
		return "data"
	case SectionDataCount:
		return "datacount"
	case SectionTag:
		return "tag"
	default:
		return fmt.Sprintf("section(%d)", id)
	}
}

// SectionOrder returns the canonical position of a non-custom section,
// or 0 for custom and unknown ids.
func SectionOrder(id byte) int {
	switch id {
	case SectionType:
		return 1
	case SectionImport:
		return 2
	case SectionFunction:
		return 3
	case SectionTable:
		return 4
	case SectionMemory:
		return 5
	case SectionTag:
		return 6
	case SectionGlobal:
		return 7
	case SectionExport:
		return 8
	case SectionStart:
		return 9
	case SectionElement:
		return 10
	case SectionDataCount:
		return 11
	case SectionCode:
		return 12
	case SectionData:
		return 13
	default:
		return 0
	}
}
