package ir

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	werrors "github.com/wippyai/wasm-ir/errors"
)

// Config controls parsing and emission. The zero value holds the
// defaults: name and producers sections on, strict validation on, and
// every other option off.
//
// Config is a value type. The With methods return modified copies, and a
// Module keeps its own copy, so a Config handed to Parse or NewModule
// cannot change underneath it.
type Config struct {
	// GenerateDWARF emits .debug_* custom sections on encode. They are
	// dropped otherwise.
	GenerateDWARF bool

	// GenerateSyntheticNames names anonymous functions, locals and
	// globals during decode.
	GenerateSyntheticNames bool

	// SkipStrictValidate disables the expensive decode-time checks.
	SkipStrictValidate bool

	// SkipProducersSection stops the encoder from adding this library to
	// the producers section.
	SkipProducersSection bool

	// SkipNameSection stops the encoder from emitting the name section.
	SkipNameSection bool

	// OnlyStableFeatures rejects constructs that are not part of a
	// finalized version of the format.
	OnlyStableFeatures bool

	// PreserveCodeTransform records instruction offsets during encode and
	// hands them to custom sections that implement CodeTransformer.
	PreserveCodeTransform bool
}

// NewConfig returns the default configuration.
func NewConfig() Config {
	return Config{}
}

// WithDWARF sets whether debug sections are emitted.
func (c Config) WithDWARF(on bool) Config {
	c.GenerateDWARF = on
	return c
}

// WithNameSection sets whether the name section is emitted.
func (c Config) WithNameSection(on bool) Config {
	c.SkipNameSection = !on
	return c
}

// WithSyntheticNames sets whether anonymous items get generated names.
func (c Config) WithSyntheticNames(on bool) Config {
	c.GenerateSyntheticNames = on
	return c
}

// WithStrictValidate sets whether strict validation runs during decode.
func (c Config) WithStrictValidate(on bool) Config {
	c.SkipStrictValidate = !on
	return c
}

// WithProducersSection sets whether this library is recorded in the
// producers section.
func (c Config) WithProducersSection(on bool) Config {
	c.SkipProducersSection = !on
	return c
}

// WithOnlyStableFeatures sets whether unfinished proposals are rejected.
func (c Config) WithOnlyStableFeatures(on bool) Config {
	c.OnlyStableFeatures = on
	return c
}

// WithCodeTransform sets whether the encoder records a CodeTransform.
func (c Config) WithCodeTransform(on bool) Config {
	c.PreserveCodeTransform = on
	return c
}

// StrictValidate reports whether strict validation is enabled.
func (c Config) StrictValidate() bool { return !c.SkipStrictValidate }

// NameSection reports whether the name section is emitted.
func (c Config) NameSection() bool { return !c.SkipNameSection }

// ProducersSection reports whether this library is added to producers.
func (c Config) ProducersSection() bool { return !c.SkipProducersSection }

// Parse decodes an in-memory binary module using this configuration.
func (c Config) Parse(data []byte) (*Module, error) {
	m := NewModule(c)
	if err := m.parse(data); err != nil {
		return nil, fmt.Errorf("parse module: %w", err)
	}
	return m, nil
}

// ParseFile reads and decodes the binary module at path.
func (c Config) ParseFile(path string) (*Module, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		kind := werrors.KindIO
		if errors.Is(err, fs.ErrNotExist) {
			kind = werrors.KindNotFound
		}
		return nil, werrors.New(werrors.PhaseLoad, kind).
			Detail("read %s", path).Cause(err).Build()
	}
	m, err := c.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Parse decodes data with the default configuration.
func Parse(data []byte) (*Module, error) {
	return NewConfig().Parse(data)
}

// ParseFile decodes the file at path with the default configuration.
func ParseFile(path string) (*Module, error) {
	return NewConfig().ParseFile(path)
}
