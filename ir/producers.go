package ir

import (
	"slices"

	"github.com/wippyai/wasm-ir/internal/binary"
)

// Version is recorded in the processed-by field of emitted modules.
const Version = "0.1.0"

const producersSectionName = "producers"

// Producers fields defined by the tool-conventions.
const (
	ProducerLanguage    = "language"
	ProducerProcessedBy = "processed-by"
	ProducerSDK         = "sdk"
)

// Producers is the content of the producers custom section.
type Producers struct {
	Fields []ProducerField
}

// ProducerField is one field, such as "language", with its values.
type ProducerField struct {
	Name   string
	Values []ProducerValue
}

// ProducerValue is a tool name and version.
type ProducerValue struct {
	Name    string
	Version string
}

// Add records name at version under field, replacing an existing
// version of the same name.
func (p *Producers) Add(field, name, version string) {
	i := slices.IndexFunc(p.Fields, func(f ProducerField) bool { return f.Name == field })
	if i < 0 {
		p.Fields = append(p.Fields, ProducerField{Name: field})
		i = len(p.Fields) - 1
	}
	f := &p.Fields[i]
	j := slices.IndexFunc(f.Values, func(v ProducerValue) bool { return v.Name == name })
	if j < 0 {
		f.Values = append(f.Values, ProducerValue{Name: name, Version: version})
		return
	}
	f.Values[j].Version = version
}

// AddLanguage records a source language.
func (p *Producers) AddLanguage(name, version string) { p.Add(ProducerLanguage, name, version) }

// AddProcessedBy records a tool that processed the module.
func (p *Producers) AddProcessedBy(name, version string) { p.Add(ProducerProcessedBy, name, version) }

// AddSDK records an SDK.
func (p *Producers) AddSDK(name, version string) { p.Add(ProducerSDK, name, version) }

// Empty reports whether there is nothing to emit.
func (p *Producers) Empty() bool {
	for _, f := range p.Fields {
		if len(f.Values) > 0 {
			return false
		}
	}
	return true
}

// Clear removes every field.
func (p *Producers) Clear() { p.Fields = nil }

func (p *Producers) clone() Producers {
	out := Producers{Fields: make([]ProducerField, len(p.Fields))}
	for i, f := range p.Fields {
		out.Fields[i] = ProducerField{Name: f.Name, Values: slices.Clone(f.Values)}
	}
	return out
}

func parseProducers(data []byte) (Producers, error) {
	r := binary.NewReader(data)
	var p Producers
	count, err := r.ReadU32()
	if err != nil {
		return p, err
	}
	for range count {
		name, err := r.ReadName()
		if err != nil {
			return p, err
		}
		n, err := r.ReadU32()
		if err != nil {
			return p, err
		}
		field := ProducerField{Name: name}
		for range n {
			var v ProducerValue
			if v.Name, err = r.ReadName(); err != nil {
				return p, err
			}
			if v.Version, err = r.ReadName(); err != nil {
				return p, err
			}
			field.Values = append(field.Values, v)
		}
		p.Fields = append(p.Fields, field)
	}
	return p, r.Finish(producersSectionName)
}

func (p *Producers) encode(w *binary.Writer) {
	var fields []ProducerField
	for _, f := range p.Fields {
		if len(f.Values) > 0 {
			fields = append(fields, f)
		}
	}
	w.WriteLen(len(fields))
	for _, f := range fields {
		w.WriteName(f.Name)
		w.WriteLen(len(f.Values))
		for _, v := range f.Values {
			w.WriteName(v.Name)
			w.WriteName(v.Version)
		}
	}
}
