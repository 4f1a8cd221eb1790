package packet

import (
	"encoding/binary"
	"fmt"
)

// wireOrder joins the read and append halves of the stdlib byte order
// interfaces. binary.BigEndian and binary.LittleEndian satisfy both.
type wireOrder interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

// FieldSpec is one static entry in a protocol's schema.
type FieldSpec struct {
	Name    string
	Format  Format
	Default Value // None means the field starts inactive
	Flags   Flags
}

// Schema is the ordered field table of one protocol type. It is built once
// at definition time, validated, and immutable afterwards; instances share
// it without locking. Field order determines on-wire byte order.
type Schema struct {
	fields    []FieldSpec
	index     map[string]int
	order     wireOrder
	fixedLen  int
	typeField int
	handlers  map[uint64]Protocol
	srcField  string
	dstField  string
}

// NewSchema validates specs and derives the lookup tables. Rules: names are
// unique, at most one field carries FlagTypeField, and FlagAutoUpdate
// requires a fixed-width format with an active default.
func NewSchema(specs ...FieldSpec) (*Schema, error) {
	s := &Schema{
		fields:    specs,
		index:     make(map[string]int, len(specs)),
		order:     binary.BigEndian,
		typeField: -1,
		handlers:  make(map[uint64]Protocol),
	}
	for i, f := range specs {
		if f.Name == "" {
			return nil, fmt.Errorf("strix: schema field %d has no name", i)
		}
		if _, dup := s.index[f.Name]; dup {
			return nil, fmt.Errorf("strix: duplicate schema field %q", f.Name)
		}
		s.index[f.Name] = i

		if f.Flags.Has(FlagTypeField) {
			if s.typeField >= 0 {
				return nil, fmt.Errorf("strix: schema has more than one type field (%q and %q)",
					specs[s.typeField].Name, f.Name)
			}
			s.typeField = i
		}
		if f.Flags.Has(FlagAutoUpdate) {
			if !f.Format.FixedWidth() {
				return nil, fmt.Errorf("strix: auto-update field %q must have a fixed-width format", f.Name)
			}
			if f.Default.IsNone() {
				return nil, fmt.Errorf("strix: auto-update field %q cannot start inactive", f.Name)
			}
		}
		if f.Format.kind == FmtList && !f.Default.IsNone() {
			return nil, fmt.Errorf("strix: list field %q takes no default", f.Name)
		}
		s.fixedLen += specWidth(f)
	}
	return s, nil
}

// MustSchema is NewSchema for definition-time tables, panicking on invalid
// specs the way a malformed protocol definition should fail at startup.
func MustSchema(specs ...FieldSpec) *Schema {
	s, err := NewSchema(specs...)
	if err != nil {
		panic(err)
	}
	return s
}

// specWidth is the nominal wire width of a spec with its default value.
func specWidth(f FieldSpec) int {
	switch f.Format.kind {
	case FmtUint, FmtBytes:
		if f.Default.IsNone() {
			return 0
		}
		return f.Format.size
	case FmtDynamic:
		return len(f.Default.Bytes())
	}
	// list fields are empty until dissected
	return 0
}

// LittleEndian switches the schema's byte order from the big-endian default.
// Definition-time only.
func (s *Schema) LittleEndian() *Schema {
	s.order = binary.LittleEndian
	return s
}

// AddressPair declares the two address-like fields used by the default
// direction check and address reversal. Definition-time only.
func (s *Schema) AddressPair(src, dst string) *Schema {
	if _, ok := s.index[src]; !ok {
		panic(fmt.Sprintf("strix: address field %q not in schema", src))
	}
	if _, ok := s.index[dst]; !ok {
		panic(fmt.Sprintf("strix: address field %q not in schema", dst))
	}
	s.srcField, s.dstField = src, dst
	return s
}

// Handle registers the upper-layer protocol constructed when the type field
// decodes to disc. Definition-time only.
func (s *Schema) Handle(disc uint64, upper Protocol) *Schema {
	if s.typeField < 0 {
		panic("strix: schema has no type field, cannot register handlers")
	}
	s.handlers[disc] = upper
	return s
}

// ByteOrder returns the wire byte order of all integer fields.
func (s *Schema) ByteOrder() binary.ByteOrder { return s.order }

// FixedLen returns the nominal header length: every default-active field at
// its default width. The effective length of an instance may differ once
// fields are toggled or dynamic content added.
func (s *Schema) FixedLen() int { return s.fixedLen }

// TypeField returns the name of the discriminator field, or "".
func (s *Schema) TypeField() string {
	if s.typeField < 0 {
		return ""
	}
	return s.fields[s.typeField].Name
}

// Upper returns the protocol registered for a discriminator value.
func (s *Schema) Upper(disc uint64) (Protocol, bool) {
	p, ok := s.handlers[disc]
	return p, ok
}

// Fields returns the ordered specs. Callers must not mutate.
func (s *Schema) Fields() []FieldSpec { return s.fields }
