// Package wire holds the byte-level helpers shared by every layer decoder:
// big-endian field reads, mask-and-shift bit-field extraction and the
// Internet checksum.
//
// None of the functions retain a reference to the slice they are given.
// Reads assume the caller has already checked the buffer length.
package wire

import "encoding/binary"

// U16 returns the big-endian 16-bit value at b[off:off+2].
func U16(b []byte, off int) uint16 {
	return binary.BigEndian.Uint16(b[off : off+2])
}

// U32 returns the big-endian 32-bit value at b[off:off+4].
func U32(b []byte, off int) uint32 {
	return binary.BigEndian.Uint32(b[off : off+4])
}

// Bits8 extracts a width-bit field whose least significant bit sits at
// position shift of v.
func Bits8(v uint8, shift, width uint) uint8 {
	return (v >> shift) & (1<<width - 1)
}

// Bits16 is Bits8 for 16-bit words.
func Bits16(v uint16, shift, width uint) uint16 {
	return (v >> shift) & (1<<width - 1)
}

// MAC copies the 6-byte hardware address at b[off:off+6].
func MAC(b []byte, off int) [6]byte {
	var a [6]byte
	copy(a[:], b[off:off+6])
	return a
}

// IPv4 copies the 4-byte protocol address at b[off:off+4].
func IPv4(b []byte, off int) [4]byte {
	var a [4]byte
	copy(a[:], b[off:off+4])
	return a
}

// Clone returns an owned copy of b. An empty span yields an empty,
// non-nil slice.
func Clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
