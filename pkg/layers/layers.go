// Package layers bundles reference protocol definitions (Ethernet, IPv4,
// TCP, UDP) on top of the generic packet codec. They double as working
// examples of the extension points: optional fields, TriggerList options,
// discriminator dispatch, auto-update hooks and the cross-layer checksum
// callback.
package layers

import (
	"fmt"
	"net"
	"net/netip"

	"firestige.xyz/strix/pkg/packet"
)

// EtherType values.
const (
	EtherTypeIPv4 = 0x0800
	EtherTypeIPv6 = 0x86DD
	EtherTypeVLAN = 0x8100
	EtherTypeQinQ = 0x88A8
)

// IP protocol numbers.
const (
	IPProtoTCP = 6
	IPProtoUDP = 17
)

func init() {
	ethernetSchema.Handle(EtherTypeIPv4, IPv4)
	ipv4Schema.Handle(IPProtoTCP, TCP).Handle(IPProtoUDP, UDP)
}

// MACString formats a 6-byte address field as aa:bb:cc:dd:ee:ff.
func MACString(p *packet.Packet, field string) string {
	b := p.Bytes(field)
	if len(b) != 6 {
		return ""
	}
	return net.HardwareAddr(b).String()
}

// IPString formats a 4- or 16-byte address field in its canonical text form.
func IPString(p *packet.Packet, field string) string {
	addr, ok := netip.AddrFromSlice(p.Bytes(field))
	if !ok {
		return ""
	}
	return addr.String()
}

// SetIP assigns an address field from its text form.
func SetIP(p *packet.Packet, field, s string) error {
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return fmt.Errorf("strix: bad address %q: %w", s, err)
	}
	b := addr.AsSlice()
	return p.Set(field, packet.Raw(b))
}
