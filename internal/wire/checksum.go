package wire

// Sum adds b to the running one's-complement sum acc, reading b as a
// sequence of big-endian 16-bit words. An odd trailing byte is the high
// byte of a word whose low byte is zero. The carry is folded back after
// every addition, so the result always fits in 16 bits.
//
// Chained calls must pass even-length spans for every span but the last.
func Sum(acc uint32, b []byte) uint32 {
	n := len(b)
	for i := 0; i+1 < n; i += 2 {
		acc += uint32(b[i])<<8 | uint32(b[i+1])
		acc = fold(acc)
	}
	if n&1 != 0 {
		acc += uint32(b[n-1]) << 8
		acc = fold(acc)
	}
	return acc
}

func fold(acc uint32) uint32 {
	for acc > 0xffff {
		acc = acc&0xffff + acc>>16
	}
	return acc
}

// Fold finishes a running sum into the checksum value (its one's complement).
func Fold(acc uint32) uint16 {
	return ^uint16(fold(acc))
}

// Checksum computes the RFC 1071 Internet checksum of b.
func Checksum(b []byte) uint16 {
	return Fold(Sum(0, b))
}

// Valid reports whether b, which includes its own checksum field, passes
// the verification identity: the folded sum is all ones and therefore the
// recomputed checksum is zero.
func Valid(b []byte) bool {
	return Checksum(b) == 0
}
