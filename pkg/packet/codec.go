package packet

import (
	"fmt"
	"math"
)

// fieldState is the per-instance copy of one header field: the spec (schema
// entry or a dynamically appended one) plus the live value and the
// auto-update gate.
type fieldState struct {
	spec     FieldSpec
	val      Value
	auActive bool
}

func (f *fieldState) active() bool { return !f.val.IsNone() }

// wireWidth is the current on-wire width of the field.
func (f *fieldState) wireWidth() (int, error) {
	if !f.active() {
		return 0, nil
	}
	switch f.spec.Format.kind {
	case FmtUint, FmtBytes:
		return f.spec.Format.size, nil
	case FmtDynamic:
		return len(f.val.Bytes()), nil
	case FmtList:
		return f.val.List().PackedLen()
	}
	return 0, nil
}

// HeaderLen returns the length in bytes of the currently active header:
// fixed fields at their declared width, dynamic fields at their value
// length, TriggerList fields at their packed length. The result is cached
// and recomputed only after a layout-affecting mutation; toggling optional
// fields repeatedly is the documented cost to avoid.
func (p *Packet) HeaderLen() (int, error) {
	if p.layoutOK {
		return p.hdrLen, nil
	}
	total := 0
	for i := range p.fields {
		w, err := p.fields[i].wireWidth()
		if err != nil {
			return 0, err
		}
		total += w
	}
	p.hdrLen = total
	p.layoutOK = true
	return total, nil
}

// decodeHeader unpacks every active field from buf in schema-plus-appended
// order and returns the number of bytes consumed. Inactive fields consume
// zero bytes and keep their value. TriggerList fields skip the extent they
// were initialized with by the dissection hook; their elements stay lazy.
func (p *Packet) decodeHeader(buf []byte) (int, error) {
	need, err := p.HeaderLen()
	if err != nil {
		return 0, err
	}
	if len(buf) < need {
		return 0, fmt.Errorf("header needs %d bytes, have %d: %w", need, len(buf), ErrNeedData)
	}

	order := p.proto.Schema().ByteOrder()
	off := 0
	for i := range p.fields {
		f := &p.fields[i]
		if !f.active() {
			continue
		}
		switch f.spec.Format.kind {
		case FmtUint:
			w := f.spec.Format.size
			var v uint64
			switch w {
			case 1:
				v = uint64(buf[off])
			case 2:
				v = uint64(order.Uint16(buf[off : off+2]))
			case 4:
				v = uint64(order.Uint32(buf[off : off+4]))
			case 8:
				v = order.Uint64(buf[off : off+8])
			}
			f.val = Uint(v)
			off += w
		case FmtBytes:
			w := f.spec.Format.size
			b := make([]byte, w)
			copy(b, buf[off:off+w])
			f.val = Raw(b)
			off += w
		case FmtDynamic:
			w := len(f.val.Bytes())
			b := make([]byte, w)
			copy(b, buf[off:off+w])
			f.val = Raw(b)
			off += w
		case FmtList:
			w, err := f.val.List().PackedLen()
			if err != nil {
				return 0, err
			}
			off += w
		}
	}
	return off, nil
}

// PackHeader encodes the currently active header fields to a fresh byte
// slice. It does not run the update hook and does not clear the changed
// flag; Bin does both.
func (p *Packet) PackHeader() ([]byte, error) {
	n, err := p.HeaderLen()
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, n)
	order := p.proto.Schema().order

	for i := range p.fields {
		f := &p.fields[i]
		if !f.active() {
			continue
		}
		switch f.spec.Format.kind {
		case FmtUint:
			if f.val.kind != valUint {
				return nil, &PackError{Proto: p.proto.Name(), Field: f.spec.Name,
					Err: fmt.Errorf("value %s does not fit integer format", f.val)}
			}
			w := f.spec.Format.size
			v := f.val.Uint()
			if w < 8 && v > math.MaxUint64>>(64-8*w) {
				return nil, &PackError{Proto: p.proto.Name(), Field: f.spec.Name,
					Err: fmt.Errorf("value 0x%x exceeds %d-byte field", v, w)}
			}
			switch w {
			case 1:
				out = append(out, byte(v))
			case 2:
				out = order.AppendUint16(out, uint16(v))
			case 4:
				out = order.AppendUint32(out, uint32(v))
			case 8:
				out = order.AppendUint64(out, v)
			}
		case FmtBytes:
			if f.val.kind != valBytes {
				return nil, &PackError{Proto: p.proto.Name(), Field: f.spec.Name,
					Err: fmt.Errorf("value %s does not fit byte format", f.val)}
			}
			if len(f.val.Bytes()) != f.spec.Format.size {
				return nil, &PackError{Proto: p.proto.Name(), Field: f.spec.Name,
					Err: fmt.Errorf("%d-byte value in %d-byte field", len(f.val.Bytes()), f.spec.Format.size)}
			}
			out = append(out, f.val.Bytes()...)
		case FmtDynamic:
			if f.val.kind != valBytes {
				return nil, &PackError{Proto: p.proto.Name(), Field: f.spec.Name,
					Err: fmt.Errorf("value %s does not fit dynamic format", f.val)}
			}
			out = append(out, f.val.Bytes()...)
		case FmtList:
			b, err := f.val.List().Pack()
			if err != nil {
				return nil, &PackError{Proto: p.proto.Name(), Field: f.spec.Name, Err: err}
			}
			out = append(out, b...)
		}
	}
	return out, nil
}

// AddField registers a new dynamic field at the instance level, after the
// schema's fields and any previously added ones. The shared schema is not
// touched. Used for headers whose shape depends on decoded content. List
// fields start as a fresh empty TriggerList and take no initial value.
func (p *Packet) AddField(name string, format Format, val Value) error {
	if p.fieldIndex(name) >= 0 {
		return fmt.Errorf("strix: field %q already present", name)
	}
	if format.kind == FmtList {
		if !val.IsNone() {
			return fmt.Errorf("strix: list field %q takes no initial value", name)
		}
		l := NewTriggerList()
		l.onChange = p.listChanged
		val = listValue(l)
	}
	if p.extra == nil {
		p.extra = make(map[string]int, 1)
	}
	p.extra[name] = len(p.fields)
	p.fields = append(p.fields, fieldState{
		spec:     FieldSpec{Name: name, Format: format, Default: val},
		val:      val,
		auActive: true,
	})
	p.markChanged()
	p.layoutOK = false
	return nil
}

// fieldIndex resolves a field name against the schema table plus any
// instance-level additions. Returns -1 when unknown.
func (p *Packet) fieldIndex(name string) int {
	if i, ok := p.proto.Schema().index[name]; ok {
		return i
	}
	if i, ok := p.extra[name]; ok {
		return i
	}
	return -1
}
