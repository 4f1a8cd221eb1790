package packet

import (
	"fmt"
	"strings"
)

// ElementKind discriminates TriggerList element variants.
type ElementKind uint8

const (
	// ElemRaw is an opaque byte span packed as-is.
	ElemRaw ElementKind = iota
	// ElemKV is a key/value pair packed as type byte, length byte, value.
	ElemKV
	// ElemPacket is a nested packet packed via its own serialization.
	ElemPacket
)

// Element is one entry of a TriggerList.
type Element struct {
	kind ElementKind
	raw  []byte
	key  byte
	val  []byte
	pkt  *Packet
}

// RawElem wraps an opaque byte span.
func RawElem(b []byte) Element { return Element{kind: ElemRaw, raw: b} }

// KVElem wraps a key/value pair.
func KVElem(key byte, val []byte) Element { return Element{kind: ElemKV, key: key, val: val} }

// PacketElem wraps a nested packet.
func PacketElem(p *Packet) Element { return Element{kind: ElemPacket, pkt: p} }

// Kind returns the element variant.
func (e Element) Kind() ElementKind { return e.kind }

// Raw returns the byte span of an ElemRaw element.
func (e Element) Raw() []byte { return e.raw }

// KV returns the key and value of an ElemKV element.
func (e Element) KV() (byte, []byte) { return e.key, e.val }

// Packet returns the nested packet of an ElemPacket element.
func (e Element) Packet() *Packet { return e.pkt }

func (e Element) pack(out []byte) ([]byte, error) {
	switch e.kind {
	case ElemRaw:
		return append(out, e.raw...), nil
	case ElemKV:
		if len(e.val) > 0xff {
			return nil, fmt.Errorf("strix: KV element value too long (%d bytes)", len(e.val))
		}
		out = append(out, e.key, byte(len(e.val)))
		return append(out, e.val...), nil
	case ElemPacket:
		b, err := e.pkt.Bin()
		if err != nil {
			return nil, err
		}
		return append(out, b...), nil
	}
	return out, nil
}

func (e Element) packedLen() (int, error) {
	switch e.kind {
	case ElemRaw:
		return len(e.raw), nil
	case ElemKV:
		return 2 + len(e.val), nil
	case ElemPacket:
		return e.pkt.Len()
	}
	return 0, nil
}

func (e Element) String() string {
	switch e.kind {
	case ElemRaw:
		return fmt.Sprintf("%q", e.raw)
	case ElemKV:
		return fmt.Sprintf("%d:%q", e.key, e.val)
	case ElemPacket:
		return e.pkt.String()
	}
	return "?"
}

// ParseFunc splits a raw TriggerList byte extent into elements. Supplied per
// protocol; called at most once, on first access.
type ParseFunc func(buf []byte) ([]Element, error)

// TriggerList is an ordered, lazily parsed and lazily repacked container for
// a variable-length header region such as an options block. The raw byte
// extent handed over at dissection time is kept verbatim until the list is
// first read or mutated; an unmodified list repacks its original bytes.
type TriggerList struct {
	raw   []byte
	parse ParseFunc

	elems []Element
	ready bool
	dirty bool

	onChange func()
}

// NewTriggerList builds an already-materialized list from elements, for
// constructed packets.
func NewTriggerList(elems ...Element) *TriggerList {
	l := &TriggerList{elems: elems, ready: true, dirty: len(elems) > 0}
	l.adopt(elems)
	return l
}

// adopt wires element packets to the list's change notification so mutating
// a nested element marks the owning packet changed.
func (l *TriggerList) adopt(elems []Element) {
	for _, e := range elems {
		if e.kind == ElemPacket && e.pkt != nil {
			e.pkt.onChange = l.changed
		}
	}
}

// orphan disconnects a removed or replaced element packet.
func orphan(e Element) {
	if e.kind == ElemPacket && e.pkt != nil {
		e.pkt.onChange = nil
	}
}

// init binds the unparsed byte extent. Called through Packet.InitTriggerList.
func (l *TriggerList) init(raw []byte, parse ParseFunc) {
	b := make([]byte, len(raw))
	copy(b, raw)
	l.raw = b
	l.parse = parse
	l.elems = nil
	l.ready = false
	l.dirty = false
}

func (l *TriggerList) materialize() error {
	if l.ready {
		return nil
	}
	if l.parse == nil {
		l.elems = nil
	} else {
		elems, err := l.parse(l.raw)
		if err != nil {
			return err
		}
		l.elems = elems
		l.adopt(elems)
	}
	l.ready = true
	return nil
}

func (l *TriggerList) empty() bool {
	if !l.ready {
		return len(l.raw) == 0
	}
	return len(l.elems) == 0
}

func (l *TriggerList) changed() {
	l.dirty = true
	if l.onChange != nil {
		l.onChange()
	}
}

// Elements materializes and returns the ordered element sequence. Callers
// must not mutate the returned slice; use Append, Replace and Remove.
func (l *TriggerList) Elements() ([]Element, error) {
	if err := l.materialize(); err != nil {
		return nil, err
	}
	return l.elems, nil
}

// Len materializes and returns the element count.
func (l *TriggerList) Len() (int, error) {
	elems, err := l.Elements()
	if err != nil {
		return 0, err
	}
	return len(elems), nil
}

// Append adds elements at the end and marks the list and its owner changed.
func (l *TriggerList) Append(elems ...Element) error {
	if err := l.materialize(); err != nil {
		return err
	}
	l.elems = append(l.elems, elems...)
	l.adopt(elems)
	l.changed()
	return nil
}

// Replace swaps the element at index i.
func (l *TriggerList) Replace(i int, e Element) error {
	if err := l.materialize(); err != nil {
		return err
	}
	if i < 0 || i >= len(l.elems) {
		return fmt.Errorf("strix: TriggerList index %d out of range", i)
	}
	orphan(l.elems[i])
	l.elems[i] = e
	l.adopt([]Element{e})
	l.changed()
	return nil
}

// Remove deletes the element at index i.
func (l *TriggerList) Remove(i int) error {
	if err := l.materialize(); err != nil {
		return err
	}
	if i < 0 || i >= len(l.elems) {
		return fmt.Errorf("strix: TriggerList index %d out of range", i)
	}
	orphan(l.elems[i])
	l.elems = append(l.elems[:i], l.elems[i+1:]...)
	l.changed()
	return nil
}

// Pack flattens the list to bytes. An unparsed, unmodified list returns its
// original extent so a pure re-serialization stays byte-exact without ever
// running the parser.
func (l *TriggerList) Pack() ([]byte, error) {
	if !l.ready {
		out := make([]byte, len(l.raw))
		copy(out, l.raw)
		return out, nil
	}
	var out []byte
	for _, e := range l.elems {
		var err error
		out, err = e.pack(out)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// PackedLen returns the total packed length, the sum of each element's
// packed length.
func (l *TriggerList) PackedLen() (int, error) {
	if !l.ready {
		return len(l.raw), nil
	}
	total := 0
	for _, e := range l.elems {
		n, err := e.packedLen()
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

func (l *TriggerList) String() string {
	if !l.ready {
		return fmt.Sprintf("[%d raw bytes]", len(l.raw))
	}
	parts := make([]string, len(l.elems))
	for i, e := range l.elems {
		parts[i] = e.String()
	}
	return "[" + strings.Join(parts, " ") + "]"
}
