package layers_test

import (
	"bytes"
	"testing"

	"firestige.xyz/strix/pkg/layers"
	"firestige.xyz/strix/pkg/packet"
	"firestige.xyz/strix/pkg/packet/checksum"
)

func TestTCPChecksumOverPseudoHeader(t *testing.T) {
	ip := packet.MustNew(layers.IPv4, packet.Fields{
		"p": packet.Uint(layers.IPProtoTCP),
	})
	if err := layers.SetIP(ip, "src", "10.0.0.1"); err != nil {
		t.Fatalf("SetIP failed: %v", err)
	}
	if err := layers.SetIP(ip, "dst", "10.0.0.2"); err != nil {
		t.Fatalf("SetIP failed: %v", err)
	}
	tcp := packet.MustNew(layers.TCP, packet.Fields{
		"sport": packet.Uint(4321),
		"dport": packet.Uint(80),
		"seq":   packet.Uint(1),
	})
	if err := tcp.SetPayload([]byte("hello")); err != nil {
		t.Fatalf("SetPayload failed: %v", err)
	}
	ip.SetUpper(tcp)

	out, err := ip.Bin()
	if err != nil {
		t.Fatalf("Bin failed: %v", err)
	}
	seg := out[20:]
	if got := uint16(seg[16])<<8 | uint16(seg[17]); got != 0x46d7 {
		t.Errorf("Expected TCP checksum 0x46d7, got 0x%04x", got)
	}

	// a correct transport checksum leaves a zero residue over the
	// pseudo-header, segment length and segment
	ph := append(append([]byte{}, out[12:20]...), 0, layers.IPProtoTCP)
	s := checksum.Add(0, ph)
	s = checksum.Add(s, []byte{byte(len(seg) >> 8), byte(len(seg))})
	s = checksum.Add(s, seg)
	if got := checksum.Finish(s); got != 0 {
		t.Errorf("Checksum does not verify, residue 0x%04x", got)
	}
}

func TestTCPChecksumKeptWithoutLowerLayer(t *testing.T) {
	tcp := packet.MustNew(layers.TCP, packet.Fields{
		"sum": packet.Uint(0x1234),
	})
	out, err := tcp.Bin()
	if err != nil {
		t.Fatalf("Bin failed: %v", err)
	}
	// no pseudo-header source, the stored value survives serialization
	if got := uint16(out[16])<<8 | uint16(out[17]); got != 0x1234 {
		t.Errorf("Expected checksum 0x1234, got 0x%04x", got)
	}
	if out[12] != 0x50 {
		t.Errorf("Expected data offset byte 0x50, got 0x%02x", out[12])
	}
}

func TestTCPOptionsDissect(t *testing.T) {
	seg := []byte{
		0x10, 0xe1, 0x00, 0x50, // 4321 -> 80
		0x00, 0x00, 0x00, 0x01,
		0x00, 0x00, 0x00, 0x00,
		0x60, 0x18, 0x01, 0x00, // offset 6 words, PSH|ACK, win 256
		0x00, 0x00, 0x00, 0x00,
		0x01, 0x01, 0x01, 0x00, // NOP NOP NOP EOL
		0x68, 0x69, // "hi"
	}
	tcp, err := packet.Parse(layers.TCP, seg)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	n, err := tcp.HeaderLen()
	if err != nil {
		t.Fatalf("HeaderLen failed: %v", err)
	}
	if n != 24 {
		t.Errorf("Expected 24-byte header, got %d", n)
	}
	if !bytes.Equal(tcp.Payload(), []byte("hi")) {
		t.Errorf("Expected payload %q, got %q", "hi", tcp.Payload())
	}
	opts, err := tcp.TriggerList("opts")
	if err != nil {
		t.Fatalf("TriggerList failed: %v", err)
	}
	elems, err := opts.Elements()
	if err != nil {
		t.Fatalf("Elements failed: %v", err)
	}
	if len(elems) != 4 {
		t.Fatalf("Expected 4 option elements, got %d", len(elems))
	}

	out, err := tcp.Bin()
	if err != nil {
		t.Fatalf("Bin failed: %v", err)
	}
	if !bytes.Equal(out, seg) {
		t.Errorf("Round trip drifted:\nwant %x\ngot  %x", seg, out)
	}
}

func TestTCPGrowingOptionsUpdatesDataOffset(t *testing.T) {
	tcp := packet.MustNew(layers.TCP, nil)
	opts, err := tcp.TriggerList("opts")
	if err != nil {
		t.Fatalf("TriggerList failed: %v", err)
	}
	// MSS option plus padding, 8 bytes
	if err := opts.Append(packet.RawElem([]byte{0x02, 0x04, 0x05, 0xb4, 0x01, 0x01, 0x01, 0x00})); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	out, err := tcp.Bin()
	if err != nil {
		t.Fatalf("Bin failed: %v", err)
	}
	if len(out) != 28 {
		t.Fatalf("Expected 28 bytes, got %d", len(out))
	}
	if out[12]>>4 != 7 {
		t.Errorf("Expected data offset 7 words, got %d", out[12]>>4)
	}
}

func TestTCPDirectionByPorts(t *testing.T) {
	mk := func(sport, dport uint64) *packet.Packet {
		return packet.MustNew(layers.TCP, packet.Fields{
			"sport": packet.Uint(sport),
			"dport": packet.Uint(dport),
		})
	}
	a := mk(4321, 80)
	if d := a.Direction(mk(4321, 80)); d&packet.DirSame == 0 {
		t.Errorf("Expected same direction, got %v", d)
	}
	if d := a.Direction(mk(80, 4321)); d&packet.DirReverse == 0 {
		t.Errorf("Expected reverse direction, got %v", d)
	}
	if d := a.Direction(mk(80, 8080)); d != packet.DirUnknown {
		t.Errorf("Expected unknown direction, got %v", d)
	}
}
