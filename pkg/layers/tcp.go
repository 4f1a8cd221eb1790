package layers

import (
	"fmt"

	"firestige.xyz/strix/pkg/packet"
	"firestige.xyz/strix/pkg/packet/checksum"
)

const tcpHeaderMinLen = 20

var tcpSchema = packet.MustSchema(
	packet.FieldSpec{Name: "sport", Format: packet.U16, Default: packet.Uint(0)},
	packet.FieldSpec{Name: "dport", Format: packet.U16, Default: packet.Uint(0)},
	packet.FieldSpec{Name: "seq", Format: packet.U32, Default: packet.Uint(0)},
	packet.FieldSpec{Name: "ack", Format: packet.U32, Default: packet.Uint(0)},
	packet.FieldSpec{Name: "off_x2", Format: packet.U8, Default: packet.Uint(0x50),
		Flags: packet.FlagAutoUpdate},
	packet.FieldSpec{Name: "flags", Format: packet.U8, Default: packet.Uint(0x02)},
	packet.FieldSpec{Name: "win", Format: packet.U16, Default: packet.Uint(0xffff)},
	packet.FieldSpec{Name: "sum", Format: packet.U16, Default: packet.Uint(0),
		Flags: packet.FlagAutoUpdate},
	packet.FieldSpec{Name: "urp", Format: packet.U16, Default: packet.Uint(0)},
	packet.FieldSpec{Name: "opts", Format: packet.List},
).AddressPair("sport", "dport")

// TCP is the Transmission Control Protocol.
var TCP packet.Protocol = tcpProto{}

type tcpProto struct{}

func (tcpProto) Name() string           { return "TCP" }
func (tcpProto) Schema() *packet.Schema { return tcpSchema }

func (tcpProto) Dissect(p *packet.Packet, buf []byte) error {
	if len(buf) < tcpHeaderMinLen {
		return fmt.Errorf("buffer shorter than TCP header: %w", packet.ErrNeedData)
	}
	off := int(buf[12]>>4) * 4
	if off < tcpHeaderMinLen {
		return fmt.Errorf("TCP data offset %d below minimum", off)
	}
	if len(buf) < off {
		return fmt.Errorf("truncated TCP options: %w", packet.ErrNeedData)
	}
	if off > tcpHeaderMinLen {
		if err := p.InitTriggerList("opts", buf[tcpHeaderMinLen:off], ParseTCPOptions); err != nil {
			return err
		}
	}
	// everything past the header is application data, no dispatch
	return nil
}

// UpdateFields recomputes the data offset and the checksum over the
// pseudo-header obtained from the layer below. Without a lower layer the
// checksum keeps its last value.
func (tcpProto) UpdateFields(p *packet.Packet) {
	hlen, err := p.HeaderLen()
	if err != nil {
		return
	}
	if p.AutoUpdateActive("off_x2") {
		p.Set("off_x2", packet.Uint(uint64(hlen/4)<<4|p.Uint("off_x2")&0x0f)) //nolint:errcheck
	}
	if p.AutoUpdateActive("sum") {
		ph, err := p.Call(CallbackPseudoHeader)
		if err != nil {
			return
		}
		p.Set("sum", packet.Uint(0)) //nolint:errcheck
		hdr, err := p.PackHeader()
		if err != nil {
			return
		}
		body, err := p.BodyBytes()
		if err != nil {
			return
		}
		seglen := len(hdr) + len(body)
		s := checksum.Add(0, ph)
		s = checksum.Add(s, []byte{byte(seglen >> 8), byte(seglen)})
		s = checksum.Add(s, hdr)
		s = checksum.Add(s, body)
		p.Set("sum", packet.Uint(uint64(checksum.Finish(s)))) //nolint:errcheck
	}
}

// ParseTCPOptions splits a TCP options block into one raw span per option:
// single bytes for EOL and NOP, whole TLV spans otherwise.
func ParseTCPOptions(buf []byte) ([]packet.Element, error) {
	var elems []packet.Element
	off := 0
	for off < len(buf) {
		switch t := buf[off]; t {
		case 0, 1: // EOL, NOP
			elems = append(elems, packet.RawElem(buf[off:off+1]))
			off++
		default:
			if off+1 >= len(buf) {
				return nil, fmt.Errorf("strix: truncated TCP option 0x%02x", t)
			}
			olen := int(buf[off+1])
			if olen < 2 || off+olen > len(buf) {
				return nil, fmt.Errorf("strix: bad TCP option length %d", olen)
			}
			elems = append(elems, packet.RawElem(buf[off:off+olen]))
			off += olen
		}
	}
	return elems, nil
}
