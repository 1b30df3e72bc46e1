package decoder_test

import (
	"encoding/binary"

	"protoscope/internal/wire"
)

var (
	macA = [6]byte{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff}
	macB = [6]byte{0x11, 0x22, 0x33, 0x44, 0x55, 0x66}
	ipA  = [4]byte{10, 0, 0, 1}
	ipB  = [4]byte{10, 0, 0, 2}
)

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func ethHeader(dst, src [6]byte, etherType uint16) []byte {
	b := make([]byte, 14)
	copy(b[0:6], dst[:])
	copy(b[6:12], src[:])
	binary.BigEndian.PutUint16(b[12:14], etherType)
	return b
}

func arpBody(op uint16, sha [6]byte, spa [4]byte, tha [6]byte, tpa [4]byte) []byte {
	b := make([]byte, 28)
	binary.BigEndian.PutUint16(b[0:2], 1)
	binary.BigEndian.PutUint16(b[2:4], 0x0800)
	b[4], b[5] = 6, 4
	binary.BigEndian.PutUint16(b[6:8], op)
	copy(b[8:14], sha[:])
	copy(b[14:18], spa[:])
	copy(b[18:24], tha[:])
	copy(b[24:28], tpa[:])
	return b
}

// ipv4Header builds a header with a correct checksum. options must be a
// multiple of 4 bytes long.
func ipv4Header(proto uint8, totalLen uint16, src, dst [4]byte, options []byte) []byte {
	hlen := 20 + len(options)
	b := make([]byte, hlen)
	b[0] = 4<<4 | uint8(hlen/4)
	b[1] = 0xb8 // DSCP 46 (EF), ECN 0
	binary.BigEndian.PutUint16(b[2:4], totalLen)
	binary.BigEndian.PutUint16(b[4:6], 0x1c46)
	binary.BigEndian.PutUint16(b[6:8], 0x4000) // DF
	b[8] = 64
	b[9] = proto
	copy(b[12:16], src[:])
	copy(b[16:20], dst[:])
	copy(b[20:], options)
	binary.BigEndian.PutUint16(b[10:12], wire.Checksum(b))
	return b
}

// tcpHeader builds a header whose data offset covers options. The
// checksum field is left zero; see sealTCP.
func tcpHeader(srcPort, dstPort uint16, flags uint16, options []byte) []byte {
	hlen := 20 + len(options)
	b := make([]byte, hlen)
	binary.BigEndian.PutUint16(b[0:2], srcPort)
	binary.BigEndian.PutUint16(b[2:4], dstPort)
	binary.BigEndian.PutUint32(b[4:8], 0x01020304)
	binary.BigEndian.PutUint32(b[8:12], 0xa0b0c0d0)
	binary.BigEndian.PutUint16(b[12:14], uint16(hlen/4)<<12|flags&0x1ff)
	binary.BigEndian.PutUint16(b[14:16], 65535)
	binary.BigEndian.PutUint16(b[18:20], 7)
	copy(b[20:], options)
	return b
}

// sealTCP writes the pseudo-header checksum into seg.
func sealTCP(seg []byte, src, dst [4]byte) []byte {
	seg[16], seg[17] = 0, 0
	pseudo := make([]byte, 12)
	copy(pseudo[0:4], src[:])
	copy(pseudo[4:8], dst[:])
	pseudo[9] = 6
	binary.BigEndian.PutUint16(pseudo[10:12], uint16(len(seg)))
	binary.BigEndian.PutUint16(seg[16:18], wire.Fold(wire.Sum(wire.Sum(0, pseudo), seg)))
	return seg
}
