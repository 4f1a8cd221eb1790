package packet

import (
	"errors"
	"fmt"
	"strings"
)

// Direction classifies the relation between two same-type packets. It is a
// bitmask: packets with equal source and destination match both ways.
type Direction uint8

const (
	// DirUnknown means the protocols could not classify the pair.
	DirUnknown Direction = 0
	// DirSame means addresses match in forward order.
	DirSame Direction = 1 << 0
	// DirReverse means addresses match swapped.
	DirReverse Direction = 1 << 1
)

// Fields assigns initial values by name when constructing a packet.
type Fields map[string]Value

// Packet is one decoded or constructed header+body unit: the live values of
// the protocol's header fields, an optional body (raw bytes or exactly one
// nested Packet), a changed flag driving lazy re-serialization, and the
// cross-layer callback slot. Not safe for concurrent mutation; a packet tree
// has exactly one logical owner at a time.
type Packet struct {
	proto  Protocol
	fields []fieldState
	extra  map[string]int // instance-level field names, AddField only

	hdrLen   int
	layoutOK bool

	changed bool
	packed  bool // serialized (or parsed) at least once

	payload []byte
	bodySet bool // dissection hook attached a body explicitly
	upper   *Packet

	callback Callback

	// onChange notifies the structure holding this packet (a lower layer or
	// a TriggerList element slot) so mutations propagate to the outermost
	// owner's changed flag.
	onChange func()
}

// newPacket builds an instance with per-field deep copies of the schema
// defaults so mutable byte-string defaults are never aliased across packets.
func newPacket(proto Protocol) *Packet {
	schema := proto.Schema()
	p := &Packet{
		proto:  proto,
		fields: make([]fieldState, len(schema.fields)),
	}
	for i, spec := range schema.fields {
		st := fieldState{spec: spec, auActive: spec.Flags.Has(FlagAutoUpdate)}
		switch {
		case spec.Format.kind == FmtList:
			l := NewTriggerList()
			l.onChange = p.listChanged
			st.val = listValue(l)
		case spec.Default.kind == valBytes:
			b := make([]byte, len(spec.Default.Bytes()))
			copy(b, spec.Default.Bytes())
			st.val = Raw(b)
		default:
			st.val = spec.Default
		}
		p.fields[i] = st
	}
	return p
}

// New constructs a packet from field assignments. Fields not supplied keep
// the schema default; the body starts as an empty raw buffer. The instance
// reports unchanged until the first mutation.
func New(proto Protocol, fields Fields) (*Packet, error) {
	p := newPacket(proto)
	for name, v := range fields {
		if err := p.Set(name, v); err != nil {
			return nil, err
		}
	}
	p.changed = false
	return p, nil
}

// MustNew is New for static test fixtures and definition-time packets.
func MustNew(proto Protocol, fields Fields) *Packet {
	p, err := New(proto, fields)
	if err != nil {
		panic(err)
	}
	return p
}

// Parse dissects buf into a packet of the given protocol. If the protocol
// implements Dissector that hook runs first and may reshape the header and
// attach the body; otherwise exactly the fixed header is decoded and the
// rest becomes the raw payload. A failed parse returns *UnpackError (check
// errors.Is ErrNeedData for short buffers) and the packet must be discarded.
func Parse(proto Protocol, buf []byte) (*Packet, error) {
	p := newPacket(proto)

	if d, ok := proto.(Dissector); ok {
		if err := d.Dissect(p, buf); err != nil {
			return nil, &UnpackError{Proto: proto.Name(), Err: err}
		}
	}
	n, err := p.decodeHeader(buf)
	if err != nil {
		return nil, &UnpackError{Proto: proto.Name(), Err: err}
	}
	if !p.bodySet {
		rest := make([]byte, len(buf)-n)
		copy(rest, buf[n:])
		p.payload = rest
	}
	p.changed = false
	p.packed = true
	return p, nil
}

// Proto returns the protocol this packet was built from.
func (p *Packet) Proto() Protocol { return p.proto }

func (p *Packet) markChanged() {
	p.changed = true
	if p.onChange != nil {
		p.onChange()
	}
}

// listChanged is the TriggerList mutation hook: element changes can resize
// the header region, so the cached layout goes with the changed flag.
func (p *Packet) listChanged() {
	p.changed = true
	p.layoutOK = false
	if p.onChange != nil {
		p.onChange()
	}
}

// Changed reports pending mutations anywhere in this packet or its nested
// body chain.
func (p *Packet) Changed() bool {
	if p.changed {
		return true
	}
	if p.upper != nil {
		return p.upper.Changed()
	}
	return false
}

// Get returns the current value of a field, None for inactive ones.
func (p *Packet) Get(name string) (Value, error) {
	i := p.fieldIndex(name)
	if i < 0 {
		return None, fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	return p.fields[i].val, nil
}

// Uint is Get for integer fields, returning 0 for unknown or inactive
// fields. Protocol code uses it after the schema has guaranteed the field.
func (p *Packet) Uint(name string) uint64 {
	v, _ := p.Get(name)
	return v.Uint()
}

// Bytes is Get for byte-string fields, nil for unknown or inactive fields.
func (p *Packet) Bytes(name string) []byte {
	v, _ := p.Get(name)
	return v.Bytes()
}

// Set updates a field and marks the packet changed. Assigning None
// deactivates the field (it leaves the wire format); assigning a concrete
// value to an inactive field reactivates it. Either transition, and any
// write to a variable-width field, invalidates the cached header layout.
// TriggerList fields are mutated through TriggerList, not Set.
func (p *Packet) Set(name string, v Value) error {
	i := p.fieldIndex(name)
	if i < 0 {
		return fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	f := &p.fields[i]
	if f.spec.Format.kind == FmtList {
		return fmt.Errorf("strix: field %q is a TriggerList, mutate it via TriggerList()", name)
	}
	if v.kind == valList {
		return fmt.Errorf("strix: field %q cannot hold a TriggerList", name)
	}
	wasActive := f.active()
	f.val = v
	p.markChanged()
	if wasActive != f.active() || !f.spec.Format.FixedWidth() {
		p.layoutOK = false
	}
	return nil
}

// TriggerList returns the list held by a FmtList field.
func (p *Packet) TriggerList(name string) (*TriggerList, error) {
	i := p.fieldIndex(name)
	if i < 0 {
		return nil, fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	f := &p.fields[i]
	if f.spec.Format.kind != FmtList {
		return nil, fmt.Errorf("strix: field %q is not a TriggerList", name)
	}
	return f.val.List(), nil
}

// InitTriggerList hands a header byte extent and its element parser to a
// FmtList field during dissection. Elements stay unparsed until first
// accessed; decode accounts the extent to the header length.
func (p *Packet) InitTriggerList(name string, raw []byte, parse ParseFunc) error {
	l, err := p.TriggerList(name)
	if err != nil {
		return err
	}
	l.init(raw, parse)
	p.layoutOK = false
	return nil
}

// AutoUpdateActive reports the per-field auto-update gate.
func (p *Packet) AutoUpdateActive(name string) bool {
	i := p.fieldIndex(name)
	if i < 0 {
		return false
	}
	return p.fields[i].auActive
}

// SetAutoUpdateActive toggles the per-field auto-update gate. With the gate
// off the field freezes at its last explicitly assigned value no matter what
// else mutates.
func (p *Packet) SetAutoUpdateActive(name string, active bool) error {
	i := p.fieldIndex(name)
	if i < 0 {
		return fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	p.fields[i].auActive = active
	return nil
}

// Len returns the current total wire length: header plus body, recursively.
func (p *Packet) Len() (int, error) {
	n, err := p.HeaderLen()
	if err != nil {
		return 0, err
	}
	if p.upper != nil {
		un, err := p.upper.Len()
		if err != nil {
			return 0, err
		}
		return n + un, nil
	}
	return n + len(p.payload), nil
}

// Bin serializes header plus body with auto-update enabled: if the packet
// has pending changes (or was never serialized) the protocol's update hook
// runs first. The changed flag is cleared on success.
func (p *Packet) Bin() ([]byte, error) { return p.bin(true) }

// BinNoUpdate serializes without running the update hook, keeping every
// field at its current value.
func (p *Packet) BinNoUpdate() ([]byte, error) { return p.bin(false) }

func (p *Packet) bin(updateAuto bool) ([]byte, error) {
	if updateAuto && (p.Changed() || !p.packed) {
		if u, ok := p.proto.(Updater); ok {
			u.UpdateFields(p)
		}
	}
	wire, err := p.PackHeader()
	if err != nil {
		return nil, err
	}
	if p.upper != nil {
		body, err := p.upper.bin(updateAuto)
		if err != nil {
			return nil, err
		}
		wire = append(wire, body...)
	} else {
		wire = append(wire, p.payload...)
	}
	if t, ok := p.proto.(Trailer); ok {
		wire = t.Trailer(p, wire)
	}
	p.changed = false
	p.packed = true
	return wire, nil
}

// BodyBytes returns the packed body: the raw payload as-is, or the nested
// packet serialized with auto-update. Update hooks use it for checksums over
// header+payload spans.
func (p *Packet) BodyBytes() ([]byte, error) {
	if p.upper != nil {
		return p.upper.bin(true)
	}
	return p.payload, nil
}

// String lists only fields whose value differs from the schema default,
// plus the body if non-empty. Debug representation, not a wire contract.
func (p *Packet) String() string {
	var parts []string
	for i := range p.fields {
		f := &p.fields[i]
		if f.spec.Format.kind == FmtList {
			if l := f.val.List(); l != nil && !l.empty() {
				parts = append(parts, fmt.Sprintf("%s=%s", f.spec.Name, l))
			}
			continue
		}
		if !f.val.Equal(f.spec.Default) {
			parts = append(parts, fmt.Sprintf("%s=%s", f.spec.Name, f.val))
		}
	}
	switch {
	case p.upper != nil:
		parts = append(parts, fmt.Sprintf("body=%s", p.upper))
	case len(p.payload) > 0:
		parts = append(parts, fmt.Sprintf("data=%q", p.payload))
	}
	return fmt.Sprintf("%s(%s)", p.proto.Name(), strings.Join(parts, ", "))
}

// Related reports whether two same-layer packets belong to the same flow.
// Policy: raw data is compatible with anything; if either side has no
// nested body the packets are considered related at this depth. Protocols
// add concrete local checks via Relater; the core recurses into nested
// bodies after a positive local result.
func (p *Packet) Related(other *Packet) bool {
	if other == nil {
		return false
	}
	if r, ok := p.proto.(Relater); ok && !r.Related(p, other) {
		return false
	}
	if p.upper == nil || other.upper == nil {
		return true
	}
	return p.upper.Related(other.upper)
}

// Direction classifies other against p as DirSame, DirReverse (possibly
// both) or DirUnknown. The default compares the schema's declared address
// pair; protocols with richer addressing implement Directioner.
func (p *Packet) Direction(other *Packet) Direction {
	if d, ok := p.proto.(Directioner); ok {
		return d.Direction(p, other)
	}
	schema := p.proto.Schema()
	if schema.srcField == "" {
		return DirUnknown
	}
	src, _ := p.Get(schema.srcField)
	dst, _ := p.Get(schema.dstField)
	osrc, _ := other.Get(schema.srcField)
	odst, _ := other.Get(schema.dstField)

	var dir Direction
	if src.Equal(osrc) && dst.Equal(odst) {
		dir |= DirSame
	}
	if src.Equal(odst) && dst.Equal(osrc) {
		dir |= DirReverse
	}
	return dir
}

// ReverseAddress swaps the source and destination addresses in place, using
// the protocol's AddressReverser or the schema's declared pair.
func (p *Packet) ReverseAddress() {
	if ar, ok := p.proto.(AddressReverser); ok {
		ar.ReverseAddress(p)
		return
	}
	schema := p.proto.Schema()
	if schema.srcField == "" {
		return
	}
	src, _ := p.Get(schema.srcField)
	dst, _ := p.Get(schema.dstField)
	p.Set(schema.srcField, dst) //nolint:errcheck // fields verified at definition time
	p.Set(schema.dstField, src) //nolint:errcheck
}

// IsNeedData reports whether err is a short-buffer unpack failure that a
// streaming caller may retry with more bytes.
func IsNeedData(err error) bool { return errors.Is(err, ErrNeedData) }
