package layers

import (
	"encoding/binary"
	"fmt"

	"firestige.xyz/strix/pkg/packet"
)

const (
	ethernetHeaderLen = 14
	vlanTagLen        = 4
)

var broadcast = []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

// ethernetSchema models one optional 802.1Q tag as the inactive vlan field:
// it joins the wire format only when dissection sees a tagged frame or the
// caller activates it.
var ethernetSchema = packet.MustSchema(
	packet.FieldSpec{Name: "dst", Format: packet.Bytes(6), Default: packet.Raw(broadcast)},
	packet.FieldSpec{Name: "src", Format: packet.Bytes(6), Default: packet.Raw(broadcast)},
	packet.FieldSpec{Name: "vlan", Format: packet.Bytes(4)},
	packet.FieldSpec{Name: "type", Format: packet.U16, Default: packet.Uint(EtherTypeIPv4),
		Flags: packet.FlagTypeField},
).AddressPair("src", "dst")

// Ethernet is the IEEE 802.3 frame protocol.
var Ethernet packet.Protocol = ethernetProto{}

type ethernetProto struct{}

func (ethernetProto) Name() string           { return "Ethernet" }
func (ethernetProto) Schema() *packet.Schema { return ethernetSchema }

// Dissect activates the vlan field for tagged frames and hands the rest to
// the protocol selected by the EtherType.
func (ethernetProto) Dissect(p *packet.Packet, buf []byte) error {
	if len(buf) < ethernetHeaderLen {
		return fmt.Errorf("frame shorter than ethernet header: %w", packet.ErrNeedData)
	}
	etherType := binary.BigEndian.Uint16(buf[12:14])
	hlen := ethernetHeaderLen
	if etherType == EtherTypeVLAN || etherType == EtherTypeQinQ {
		if len(buf) < ethernetHeaderLen+vlanTagLen {
			return fmt.Errorf("truncated vlan tag: %w", packet.ErrNeedData)
		}
		// placeholder value; decode fills in the tag bytes
		if err := p.Set("vlan", packet.Raw(make([]byte, vlanTagLen))); err != nil {
			return err
		}
		etherType = binary.BigEndian.Uint16(buf[16:18])
		hlen += vlanTagLen
	}
	p.DispatchUpper(uint64(etherType), buf[hlen:])
	return nil
}
