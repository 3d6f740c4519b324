package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseDecode   Phase = "decode"   // binary to IR
	PhaseEncode   Phase = "encode"   // IR to binary
	PhaseValidate Phase = "validate" // strict and feature checks
	PhaseLoad     Phase = "load"     // file and config loading
)

// Kind categorizes the error
type Kind string

const (
	KindTruncated     Kind = "truncated"
	KindInvalidLEB128 Kind = "invalid_leb128"
	KindSectionLength Kind = "section_length"
	KindOutOfBounds   Kind = "out_of_bounds"
	KindTypeMismatch  Kind = "type_mismatch"
	KindStrict        Kind = "strict"
	KindUnsupported   Kind = "unsupported"
	KindInvalidData   Kind = "invalid_data"
	KindInvalidUTF8   Kind = "invalid_utf8"
	KindNotFound      Kind = "not_found"
	KindIO            Kind = "io"
)

// Error is the structured error type used throughout the library
type Error struct {
	Value     any
	Cause     error
	Phase     Phase
	Kind      Kind
	Section   string
	Expected  string
	Found     string
	Detail    string
	Offset    int
	HasOffset bool
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Section != "" {
		b.WriteString(" in ")
		b.WriteString(e.Section)
		b.WriteString(" section")
	}
	if e.HasOffset {
		fmt.Fprintf(&b, " at offset 0x%x", e.Offset)
	}

	if e.Expected != "" || e.Found != "" {
		b.WriteString(": ")
		switch {
		case e.Expected != "" && e.Found != "":
			b.WriteString("expected ")
			b.WriteString(e.Expected)
			b.WriteString(", found ")
			b.WriteString(e.Found)
		case e.Expected != "":
			b.WriteString("expected ")
			b.WriteString(e.Expected)
		default:
			b.WriteString("found ")
			b.WriteString(e.Found)
		}
	}

	if e.Detail != "" {
		if e.Expected != "" || e.Found != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Section sets the section the error refers to
func (b *Builder) Section(name string) *Builder {
	b.err.Section = name
	return b
}

// Offset sets the absolute byte offset in the input
func (b *Builder) Offset(off int) *Builder {
	b.err.Offset = off
	b.err.HasOffset = true
	return b
}

// Expected sets what the decoder expected to see
func (b *Builder) Expected(format string, args ...any) *Builder {
	b.err.Expected = sprintf(format, args)
	return b
}

// Found sets what the decoder actually saw
func (b *Builder) Found(format string, args ...any) *Builder {
	b.err.Found = sprintf(format, args)
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	b.err.Detail = sprintf(msg, args)
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

func sprintf(format string, args []any) string {
	if len(args) > 0 {
		return fmt.Sprintf(format, args...)
	}
	return format
}

// Convenience constructors for common error patterns

// Truncated reports input that ended before a complete item was read
func Truncated(offset int, what string) *Error {
	return &Error{
		Phase:     PhaseDecode,
		Kind:      KindTruncated,
		Offset:    offset,
		HasOffset: true,
		Detail:    fmt.Sprintf("unexpected end of input reading %s", what),
	}
}

// InvalidLEB128 reports a malformed or overlong variable-length integer
func InvalidLEB128(offset int, cause error) *Error {
	return &Error{
		Phase:     PhaseDecode,
		Kind:      KindInvalidLEB128,
		Offset:    offset,
		HasOffset: true,
		Cause:     cause,
	}
}

// SectionLength reports a payload whose declared size does not match its contents
func SectionLength(section string, offset int, expected, found int) *Error {
	return &Error{
		Phase:     PhaseDecode,
		Kind:      KindSectionLength,
		Section:   section,
		Offset:    offset,
		HasOffset: true,
		Expected:  fmt.Sprintf("%d bytes", expected),
		Found:     fmt.Sprintf("%d bytes", found),
	}
}

// OutOfBounds creates an out of bounds index error
func OutOfBounds(phase Phase, space string, index, length int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Detail: fmt.Sprintf("%s index %d out of bounds (length %d)", space, index, length),
		Value:  index,
	}
}

// TypeMismatch creates a type mismatch error
func TypeMismatch(phase Phase, expected, found string) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindTypeMismatch,
		Expected: expected,
		Found:    found,
	}
}

// Strict creates a strict validation violation
func Strict(detail string, args ...any) *Error {
	return &Error{
		Phase:  PhaseValidate,
		Kind:   KindStrict,
		Detail: sprintf(detail, args),
	}
}

// Unsupported creates an unsupported construct error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// InvalidUTF8 creates an invalid UTF-8 error
func InvalidUTF8(offset int, data []byte) *Error {
	preview := data
	if len(preview) > 32 {
		preview = preview[:32]
	}
	return &Error{
		Phase:     PhaseDecode,
		Kind:      KindInvalidUTF8,
		Offset:    offset,
		HasOffset: true,
		Detail:    fmt.Sprintf("invalid UTF-8 sequence: %x", preview),
	}
}

// InvalidData creates an invalid data error
func InvalidData(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Detail: detail,
	}
}

// NotFound reports an absent item, used by custom section readers
// that do not recognize their input
func NotFound(what string) *Error {
	return &Error{
		Phase:  PhaseDecode,
		Kind:   KindNotFound,
		Detail: what,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// InSection returns err with its section set, when err is an *Error
// with no section yet. Other errors are returned unchanged.
func InSection(err error, section string) error {
	if e, ok := err.(*Error); ok && e.Section == "" {
		e.Section = section
	}
	return err
}
