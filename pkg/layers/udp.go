package layers

import (
	"firestige.xyz/strix/pkg/packet"
	"firestige.xyz/strix/pkg/packet/checksum"
)

const udpHeaderLen = 8

// udpSchema needs no dissection hook: the header is fixed, so the codec's
// default fixed-header-plus-raw-payload behavior applies.
var udpSchema = packet.MustSchema(
	packet.FieldSpec{Name: "sport", Format: packet.U16, Default: packet.Uint(0)},
	packet.FieldSpec{Name: "dport", Format: packet.U16, Default: packet.Uint(0)},
	packet.FieldSpec{Name: "ulen", Format: packet.U16, Default: packet.Uint(udpHeaderLen),
		Flags: packet.FlagAutoUpdate},
	packet.FieldSpec{Name: "sum", Format: packet.U16, Default: packet.Uint(0),
		Flags: packet.FlagAutoUpdate},
).AddressPair("sport", "dport")

// UDP is the User Datagram Protocol.
var UDP packet.Protocol = udpProto{}

type udpProto struct{}

func (udpProto) Name() string           { return "UDP" }
func (udpProto) Schema() *packet.Schema { return udpSchema }

func (udpProto) UpdateFields(p *packet.Packet) {
	if p.AutoUpdateActive("ulen") {
		if total, err := p.Len(); err == nil {
			p.Set("ulen", packet.Uint(uint64(total))) //nolint:errcheck
		}
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
		dlen := len(hdr) + len(body)
		s := checksum.Add(0, ph)
		s = checksum.Add(s, []byte{byte(dlen >> 8), byte(dlen)})
		s = checksum.Add(s, hdr)
		s = checksum.Add(s, body)
		sum := checksum.Finish(s)
		if sum == 0 {
			sum = 0xffff // zero is reserved for "no checksum"
		}
		p.Set("sum", packet.Uint(uint64(sum))) //nolint:errcheck
	}
}
