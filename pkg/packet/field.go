package packet

import (
	"bytes"
	"fmt"
)

// FormatKind discriminates the encoding families a header field can use.
type FormatKind uint8

const (
	// FmtUint is a fixed-width unsigned integer (1, 2, 4 or 8 bytes).
	FmtUint FormatKind = iota
	// FmtBytes is a fixed-width byte string.
	FmtBytes
	// FmtDynamic is a variable-length byte string whose on-wire width is the
	// length of its current value.
	FmtDynamic
	// FmtList is a TriggerList field holding a variable header region.
	FmtList
)

// Format is the binary encoding tag of one header field.
type Format struct {
	kind FormatKind
	size int
}

// Fixed-width integer formats.
var (
	U8  = Format{kind: FmtUint, size: 1}
	U16 = Format{kind: FmtUint, size: 2}
	U32 = Format{kind: FmtUint, size: 4}
	U64 = Format{kind: FmtUint, size: 8}
)

// Dynamic marks a variable-length byte-string field. Toggling or resizing
// such fields forces a header re-layout, so prefer fixed formats.
var Dynamic = Format{kind: FmtDynamic}

// List marks a TriggerList field.
var List = Format{kind: FmtList}

// Bytes returns a fixed-width byte-string format of n bytes.
func Bytes(n int) Format {
	if n <= 0 {
		panic(fmt.Sprintf("strix: invalid byte format width %d", n))
	}
	return Format{kind: FmtBytes, size: n}
}

// Kind returns the encoding family.
func (f Format) Kind() FormatKind { return f.kind }

// FixedWidth reports whether the format occupies a schema-time-known number
// of bytes. Only fixed-width fields may carry FlagAutoUpdate.
func (f Format) FixedWidth() bool {
	return f.kind == FmtUint || f.kind == FmtBytes
}

// Width returns the wire width of a fixed format, 0 otherwise.
func (f Format) Width() int {
	if f.FixedWidth() {
		return f.size
	}
	return 0
}

// Flags carries per-field schema flags.
type Flags uint8

const (
	// FlagTypeField marks the field whose decoded value selects the next
	// layer's protocol. At most one per schema.
	FlagTypeField Flags = 1 << iota
	// FlagAutoUpdate marks a field recomputed by the protocol's update hook
	// before serialization (lengths, checksums).
	FlagAutoUpdate
)

// Has reports whether all bits in want are set.
func (f Flags) Has(want Flags) bool { return f&want == want }

// valueKind tags the variant held by a Value.
type valueKind uint8

const (
	valNone valueKind = iota
	valUint
	valBytes
	valList
)

// Value is the tagged variant stored in a header field. The zero Value is
// the absent sentinel: assigning it deactivates the field, which then
// contributes no bytes on the wire.
type Value struct {
	kind valueKind
	n    uint64
	b    []byte
	list *TriggerList
}

// None is the absent sentinel.
var None = Value{}

// Uint wraps an unsigned integer field value.
func Uint(v uint64) Value { return Value{kind: valUint, n: v} }

// Raw wraps a byte-string field value.
func Raw(b []byte) Value { return Value{kind: valBytes, b: b} }

func listValue(l *TriggerList) Value { return Value{kind: valList, list: l} }

// IsNone reports whether v is the absent sentinel.
func (v Value) IsNone() bool { return v.kind == valNone }

// Uint returns the integer payload, 0 for non-integer values.
func (v Value) Uint() uint64 { return v.n }

// Bytes returns the byte-string payload, nil for non-byte values.
func (v Value) Bytes() []byte { return v.b }

// List returns the TriggerList payload, nil for non-list values.
func (v Value) List() *TriggerList { return v.list }

// Equal compares two values for the non-default representation check.
// TriggerList values compare by identity.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case valUint:
		return v.n == o.n
	case valBytes:
		return bytes.Equal(v.b, o.b)
	case valList:
		return v.list == o.list
	}
	return true
}

func (v Value) String() string {
	switch v.kind {
	case valUint:
		return fmt.Sprintf("0x%x", v.n)
	case valBytes:
		return fmt.Sprintf("%q", v.b)
	case valList:
		return v.list.String()
	}
	return "none"
}
