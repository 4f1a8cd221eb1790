package layers_test

import (
	"bytes"
	"testing"

	"firestige.xyz/strix/pkg/layers"
	"firestige.xyz/strix/pkg/packet"
)

// ethUDPFrame is a full Ethernet/IPv4/UDP frame with a 4-byte payload.
var ethUDPFrame = []byte{
	// Ethernet
	0x00, 0x11, 0x22, 0x33, 0x44, 0x55, // dst
	0x66, 0x77, 0x88, 0x99, 0xaa, 0xbb, // src
	0x08, 0x00, // IPv4
	// IPv4
	0x45, 0x00, 0x00, 0x20, // v_hl, tos, len=32
	0x00, 0x01, 0x00, 0x00, // id, off
	0x40, 0x11, 0x00, 0x00, // ttl, UDP, sum
	0x0a, 0x00, 0x00, 0x01, // 10.0.0.1
	0x0a, 0x00, 0x00, 0x02, // 10.0.0.2
	// UDP
	0x13, 0x88, 0x13, 0x89, // 5000 -> 5001
	0x00, 0x0c, 0x00, 0x00, // len=12, sum
	0xde, 0xad, 0xbe, 0xef, // payload
}

func TestDissectEthernetIPv4UDP(t *testing.T) {
	p, err := packet.Parse(layers.Ethernet, ethUDPFrame)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if got := layers.MACString(p, "src"); got != "66:77:88:99:aa:bb" {
		t.Errorf("Expected src MAC 66:77:88:99:aa:bb, got %s", got)
	}

	ip := p.Upper()
	if ip == nil || ip.Proto().Name() != "IPv4" {
		t.Fatalf("Expected IPv4 body, got %v", ip)
	}
	if got := layers.IPString(ip, "src"); got != "10.0.0.1" {
		t.Errorf("Expected src 10.0.0.1, got %s", got)
	}
	if got := ip.Uint("ttl"); got != 0x40 {
		t.Errorf("Expected ttl 64, got %d", got)
	}

	udp := ip.Upper()
	if udp == nil || udp.Proto().Name() != "UDP" {
		t.Fatalf("Expected UDP body, got %v", udp)
	}
	if udp.Uint("sport") != 5000 || udp.Uint("dport") != 5001 {
		t.Errorf("Expected ports 5000->5001, got %d->%d", udp.Uint("sport"), udp.Uint("dport"))
	}
	if !bytes.Equal(udp.Payload(), []byte{0xde, 0xad, 0xbe, 0xef}) {
		t.Errorf("Expected 4-byte payload, got %x", udp.Payload())
	}

	// unchanged chain re-serializes byte-exact
	out, err := p.Bin()
	if err != nil {
		t.Fatalf("Bin failed: %v", err)
	}
	if !bytes.Equal(out, ethUDPFrame) {
		t.Errorf("Round trip drifted:\nwant %x\ngot  %x", ethUDPFrame, out)
	}
}

func TestDissectVLANTaggedFrame(t *testing.T) {
	frame := []byte{
		0x00, 0x11, 0x22, 0x33, 0x44, 0x55,
		0x66, 0x77, 0x88, 0x99, 0xaa, 0xbb,
		0x81, 0x00, 0x00, 0x64, // 802.1Q tag, VLAN 100
		0x12, 0x34, // unknown upper type
		0xca, 0xfe,
	}
	p, err := packet.Parse(layers.Ethernet, frame)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if got := p.Bytes("vlan"); !bytes.Equal(got, []byte{0x81, 0x00, 0x00, 0x64}) {
		t.Errorf("Expected vlan tag bytes, got %x", got)
	}
	if got := p.Uint("type"); got != 0x1234 {
		t.Errorf("Expected type 0x1234, got 0x%x", got)
	}
	if p.Upper() != nil {
		t.Error("Unknown EtherType must keep a raw body")
	}
	if !bytes.Equal(p.Payload(), []byte{0xca, 0xfe}) {
		t.Errorf("Expected raw payload cafe, got %x", p.Payload())
	}

	out, err := p.Bin()
	if err != nil {
		t.Fatalf("Bin failed: %v", err)
	}
	if !bytes.Equal(out, frame) {
		t.Errorf("Round trip drifted: %x", out)
	}
}

func TestUntaggedFrameHasNoVLANBytes(t *testing.T) {
	p, err := packet.Parse(layers.Ethernet, ethUDPFrame)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if v, _ := p.Get("vlan"); !v.IsNone() {
		t.Error("vlan field must stay inactive for untagged frames")
	}
	n, err := p.HeaderLen()
	if err != nil {
		t.Fatalf("HeaderLen failed: %v", err)
	}
	if n != 14 {
		t.Errorf("Expected 14-byte header, got %d", n)
	}
}

func TestEthernetTooShort(t *testing.T) {
	_, err := packet.Parse(layers.Ethernet, []byte{0x00, 0x01})
	if !packet.IsNeedData(err) {
		t.Errorf("Expected NeedData, got %v", err)
	}
}

func TestEthernetDirection(t *testing.T) {
	mk := func(src, dst byte) *packet.Packet {
		return packet.MustNew(layers.Ethernet, packet.Fields{
			"src": packet.Raw([]byte{src, 0, 0, 0, 0, 1}),
			"dst": packet.Raw([]byte{dst, 0, 0, 0, 0, 2}),
		})
	}
	a := mk(1, 2)
	rev := packet.MustNew(layers.Ethernet, packet.Fields{
		"src": packet.Raw([]byte{2, 0, 0, 0, 0, 2}),
		"dst": packet.Raw([]byte{1, 0, 0, 0, 0, 1}),
	})
	if got := a.Direction(mk(1, 2)); got != packet.DirSame {
		t.Errorf("Expected DirSame, got %v", got)
	}
	if got := a.Direction(rev); got != packet.DirReverse {
		t.Errorf("Expected DirReverse, got %v", got)
	}
}
