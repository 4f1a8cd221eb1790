// Package checksum implements the Internet one's-complement checksum
// (RFC 1071) as an accumulator: update hooks feed byte spans into Add and
// fold the result with Finish.
package checksum

// Add folds buf into the running accumulator sum. Spans may be fed in any
// split as long as each starts at an even offset of the overall message; an
// odd-length final span is zero-padded.
func Add(sum uint32, buf []byte) uint32 {
	n := len(buf) &^ 1
	for i := 0; i < n; i += 2 {
		sum += uint32(buf[i])<<8 | uint32(buf[i+1])
	}
	if len(buf)&1 != 0 {
		sum += uint32(buf[len(buf)-1]) << 8
	}
	return sum
}

// Finish folds the carries and returns the complemented 16-bit checksum.
func Finish(sum uint32) uint16 {
	for sum > 0xffff {
		sum = (sum >> 16) + (sum & 0xffff)
	}
	return ^uint16(sum)
}

// Sum returns the checksum of a single span.
func Sum(buf []byte) uint16 {
	return Finish(Add(0, buf))
}
