package checksum

import "testing"

func TestSumKnownIPv4Header(t *testing.T) {
	// RFC 1071 example header, checksum field zeroed
	hdr := []byte{
		0x45, 0x00, 0x00, 0x3c,
		0x1c, 0x46, 0x40, 0x00,
		0x40, 0x06, 0x00, 0x00, // checksum zeroed
		0xac, 0x10, 0x0a, 0x63,
		0xac, 0x10, 0x0a, 0x0c,
	}
	if got := Sum(hdr); got != 0xb1e6 {
		t.Errorf("Expected checksum 0xb1e6, got 0x%04x", got)
	}

	// a header carrying its correct checksum sums to zero
	hdr[10], hdr[11] = 0xb1, 0xe6
	if got := Sum(hdr); got != 0 {
		t.Errorf("Expected verification sum 0, got 0x%04x", got)
	}
}

func TestAddSpansEqualSingleSum(t *testing.T) {
	buf := []byte{0x12, 0x34, 0x56, 0x78, 0x9a, 0xbc}
	whole := Sum(buf)

	s := Add(0, buf[:2])
	s = Add(s, buf[2:])
	if got := Finish(s); got != whole {
		t.Errorf("Split accumulation 0x%04x != whole 0x%04x", got, whole)
	}
}

func TestOddLengthPadding(t *testing.T) {
	// trailing odd byte is padded with a zero low byte
	if got, want := Sum([]byte{0xff}), Finish(uint32(0xff00)); got != want {
		t.Errorf("Expected 0x%04x, got 0x%04x", want, got)
	}
}

func TestFinishFoldsCarries(t *testing.T) {
	if got := Finish(0x1fffe); got != ^uint16(0xffff) {
		t.Errorf("Expected folded 0x0000, got 0x%04x", got)
	}
	if got := Finish(0); got != 0xffff {
		t.Errorf("Expected 0xffff for empty sum, got 0x%04x", got)
	}
}
