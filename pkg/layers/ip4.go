package layers

import (
	"fmt"

	"firestige.xyz/strix/pkg/packet"
	"firestige.xyz/strix/pkg/packet/checksum"
)

const ipv4HeaderMinLen = 20

// CallbackPseudoHeader is the cross-layer callback id IPv4 serves to its
// transport layer: 10 bytes of src, dst, zero, protocol. The transport
// appends its own segment length to complete the checksum pseudo-header.
const CallbackPseudoHeader = "ip4.pseudoheader"

var ipv4Schema = packet.MustSchema(
	packet.FieldSpec{Name: "v_hl", Format: packet.U8, Default: packet.Uint(0x45),
		Flags: packet.FlagAutoUpdate},
	packet.FieldSpec{Name: "tos", Format: packet.U8, Default: packet.Uint(0)},
	packet.FieldSpec{Name: "len", Format: packet.U16, Default: packet.Uint(ipv4HeaderMinLen),
		Flags: packet.FlagAutoUpdate},
	packet.FieldSpec{Name: "id", Format: packet.U16, Default: packet.Uint(0)},
	packet.FieldSpec{Name: "off", Format: packet.U16, Default: packet.Uint(0)},
	packet.FieldSpec{Name: "ttl", Format: packet.U8, Default: packet.Uint(64)},
	packet.FieldSpec{Name: "p", Format: packet.U8, Default: packet.Uint(0),
		Flags: packet.FlagTypeField},
	packet.FieldSpec{Name: "sum", Format: packet.U16, Default: packet.Uint(0),
		Flags: packet.FlagAutoUpdate},
	packet.FieldSpec{Name: "src", Format: packet.Bytes(4), Default: packet.Raw([]byte{0, 0, 0, 0})},
	packet.FieldSpec{Name: "dst", Format: packet.Bytes(4), Default: packet.Raw([]byte{0, 0, 0, 0})},
	packet.FieldSpec{Name: "opts", Format: packet.List},
).AddressPair("src", "dst")

// IPv4 is the Internet Protocol version 4.
var IPv4 packet.Protocol = ipv4Proto{}

type ipv4Proto struct{}

func (ipv4Proto) Name() string           { return "IPv4" }
func (ipv4Proto) Schema() *packet.Schema { return ipv4Schema }

func (ipv4Proto) Dissect(p *packet.Packet, buf []byte) error {
	if len(buf) < ipv4HeaderMinLen {
		return fmt.Errorf("buffer shorter than IPv4 header: %w", packet.ErrNeedData)
	}
	if buf[0]>>4 != 4 {
		return fmt.Errorf("not an IPv4 header (version %d)", buf[0]>>4)
	}
	hlen := int(buf[0]&0x0f) * 4
	if hlen < ipv4HeaderMinLen {
		return fmt.Errorf("IPv4 header length %d below minimum", hlen)
	}
	if len(buf) < hlen {
		return fmt.Errorf("truncated IPv4 options: %w", packet.ErrNeedData)
	}
	if hlen > ipv4HeaderMinLen {
		if err := p.InitTriggerList("opts", buf[ipv4HeaderMinLen:hlen], ParseIPv4Options); err != nil {
			return err
		}
	}
	p.DispatchUpper(uint64(buf[9]), buf[hlen:])
	return nil
}

// UpdateFields recomputes v_hl, total length and header checksum. The
// checksum runs last, over the otherwise final header with sum zeroed.
func (ipv4Proto) UpdateFields(p *packet.Packet) {
	if p.AutoUpdateActive("v_hl") {
		if hlen, err := p.HeaderLen(); err == nil {
			p.Set("v_hl", packet.Uint(4<<4|uint64(hlen/4))) //nolint:errcheck
		}
	}
	if p.AutoUpdateActive("len") {
		if total, err := p.Len(); err == nil {
			p.Set("len", packet.Uint(uint64(total))) //nolint:errcheck
		}
	}
	if p.AutoUpdateActive("sum") {
		p.Set("sum", packet.Uint(0)) //nolint:errcheck
		hdr, err := p.PackHeader()
		if err != nil {
			return
		}
		p.Set("sum", packet.Uint(uint64(checksum.Sum(hdr)))) //nolint:errcheck
	}
}

// UpperAttached installs the pseudo-header callback on the transport layer.
// The closure reads the current addresses at call time, so later address
// rewrites stay visible to the upper layer's checksum.
func (ipv4Proto) UpperAttached(p, upper *packet.Packet) {
	upper.SetCallback(func(id string) ([]byte, error) {
		if id != CallbackPseudoHeader {
			return nil, fmt.Errorf("%w: %q", packet.ErrUnknownCallback, id)
		}
		ph := make([]byte, 0, 10)
		ph = append(ph, p.Bytes("src")...)
		ph = append(ph, p.Bytes("dst")...)
		ph = append(ph, 0, byte(p.Uint("p")))
		return ph, nil
	})
}

// ParseIPv4Options splits an IPv4 options block into one element per
// option: single-byte spans for EOL and NOP, whole TLV spans otherwise.
// Spans are kept raw so re-serialization is byte-exact.
func ParseIPv4Options(buf []byte) ([]packet.Element, error) {
	var elems []packet.Element
	off := 0
	for off < len(buf) {
		switch t := buf[off]; t {
		case 0, 1: // EOL, NOP
			elems = append(elems, packet.RawElem(buf[off:off+1]))
			off++
		default:
			if off+1 >= len(buf) {
				return nil, fmt.Errorf("strix: truncated IPv4 option 0x%02x", t)
			}
			olen := int(buf[off+1])
			if olen < 2 || off+olen > len(buf) {
				return nil, fmt.Errorf("strix: bad IPv4 option length %d", olen)
			}
			elems = append(elems, packet.RawElem(buf[off:off+olen]))
			off += olen
		}
	}
	return elems, nil
}
