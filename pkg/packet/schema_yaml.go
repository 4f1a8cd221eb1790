package packet

import (
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// schemaDoc is the YAML shape of a protocol descriptor:
//
//	name: newprotocol
//	byte_order: big          # or little, default big
//	address_pair: [src, dst] # optional
//	fields:
//	  - name: type
//	    format: u8
//	    default: 0x12
//	    flags: [typefield]
//	  - name: src
//	    format: bytes:4
//	    default_hex: ffffffff
//	  - name: vlan
//	    format: u16          # no default: starts inactive
//	  - name: hlen
//	    format: u16
//	    default: 0
//	    flags: [autoupdate]
//	  - name: options
//	    format: list
type schemaDoc struct {
	Name        string     `yaml:"name"`
	ByteOrder   string     `yaml:"byte_order"`
	AddressPair []string   `yaml:"address_pair"`
	Fields      []fieldDoc `yaml:"fields"`
}

type fieldDoc struct {
	Name       string   `yaml:"name"`
	Format     string   `yaml:"format"`
	Default    *uint64  `yaml:"default"`
	DefaultHex string   `yaml:"default_hex"`
	Flags      []string `yaml:"flags"`
}

// LoadSchema reads a YAML protocol descriptor and returns a hook-less
// protocol for it. Prototyping aid: real protocols with dissection or
// update hooks are written in Go against the Protocol interfaces.
func LoadSchema(r io.Reader) (*Generic, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("strix: read schema descriptor: %w", err)
	}
	var doc schemaDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("strix: parse schema descriptor: %w", err)
	}
	if doc.Name == "" {
		return nil, fmt.Errorf("strix: schema descriptor has no name")
	}

	specs := make([]FieldSpec, 0, len(doc.Fields))
	for _, fd := range doc.Fields {
		spec, err := fd.spec()
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	schema, err := NewSchema(specs...)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(doc.ByteOrder) {
	case "", "big":
	case "little":
		schema.LittleEndian()
	default:
		return nil, fmt.Errorf("strix: unsupported byte order %q", doc.ByteOrder)
	}
	if len(doc.AddressPair) > 0 {
		if len(doc.AddressPair) != 2 {
			return nil, fmt.Errorf("strix: address_pair wants exactly two fields")
		}
		schema.AddressPair(doc.AddressPair[0], doc.AddressPair[1])
	}
	return NewGeneric(doc.Name, schema), nil
}

func (fd fieldDoc) spec() (FieldSpec, error) {
	format, err := parseFormat(fd.Format)
	if err != nil {
		return FieldSpec{}, fmt.Errorf("strix: field %q: %w", fd.Name, err)
	}

	val := None
	switch {
	case fd.DefaultHex != "":
		b, err := hex.DecodeString(fd.DefaultHex)
		if err != nil {
			return FieldSpec{}, fmt.Errorf("strix: field %q: bad default_hex: %w", fd.Name, err)
		}
		val = Raw(b)
	case fd.Default != nil:
		val = Uint(*fd.Default)
	}

	var flags Flags
	for _, fl := range fd.Flags {
		switch strings.ToLower(fl) {
		case "typefield":
			flags |= FlagTypeField
		case "autoupdate":
			flags |= FlagAutoUpdate
		default:
			return FieldSpec{}, fmt.Errorf("strix: field %q: unknown flag %q", fd.Name, fl)
		}
	}
	return FieldSpec{Name: fd.Name, Format: format, Default: val, Flags: flags}, nil
}

func parseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "u8":
		return U8, nil
	case "u16":
		return U16, nil
	case "u32":
		return U32, nil
	case "u64":
		return U64, nil
	case "dynamic":
		return Dynamic, nil
	case "list":
		return List, nil
	}
	if rest, ok := strings.CutPrefix(strings.ToLower(s), "bytes:"); ok {
		n, err := strconv.Atoi(rest)
		if err != nil || n <= 0 {
			return Format{}, fmt.Errorf("bad byte width %q", rest)
		}
		return Bytes(n), nil
	}
	return Format{}, fmt.Errorf("unknown format %q", s)
}
