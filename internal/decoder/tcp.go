package decoder

import "protoscope/internal/wire"

// ParseTCP decodes a TCP segment. src and dst are the enclosing IPv4
// addresses; they feed the pseudo-header used to verify the checksum over
// the whole of b.
func ParseTCP(b []byte, src, dst IPv4Addr) (TCPSegment, error) {
	return parseTCP(b, src, dst, len(b))
}

// parseTCP verifies the checksum over b[:sumLen] only. The decoded fields
// and payload always cover all of b.
func parseTCP(b []byte, src, dst IPv4Addr, sumLen int) (TCPSegment, error) {
	if len(b) < TCPMinHeaderLen {
		return TCPSegment{}, decodeErr(LayerTCP, ErrTooShort, TCPMinHeaderLen, len(b))
	}

	// byte 12-13: data offset(4) reserved(3) NS(1) | CWR ECE URG ACK PSH RST SYN FIN
	ctl := wire.U16(b, 12)
	off := uint8(wire.Bits16(ctl, 12, 4))
	hlen := int(off) * 4
	if len(b) < hlen {
		return TCPSegment{}, decodeErr(LayerTCP, ErrHeaderLengthExceedsPacket, hlen, len(b))
	}
	if hlen < TCPMinHeaderLen {
		return TCPSegment{}, decodeErr(LayerTCP, ErrBadHeaderLength, TCPMinHeaderLen, hlen)
	}

	return TCPSegment{
		SourcePort:      wire.U16(b, 0),
		DestinationPort: wire.U16(b, 2),
		SequenceNumber:  wire.U32(b, 4),
		AckNumber:       wire.U32(b, 8),
		DataOffset:      off,
		Reserved:        uint8(wire.Bits16(ctl, 9, 3)),
		ControlFlags:    TCPFlags(wire.Bits16(ctl, 0, 9)),
		WindowSize:      wire.U16(b, 14),
		Checksum:        wire.U16(b, 16),
		UrgentPointer:   wire.U16(b, 18),
		OptionalData:    wire.Clone(b[TCPMinHeaderLen:hlen]),
		Payload:         Unknown(wire.Clone(b[hlen:])),
		ChecksumValid:   tcpChecksumValid(b[:sumLen], src, dst),
	}, nil
}

// tcpChecksumValid sums the RFC 793 pseudo-header followed by the segment.
// A segment longer than the 16-bit length field can express never validates.
func tcpChecksumValid(seg []byte, src, dst IPv4Addr) bool {
	if len(seg) > 0xffff {
		return false
	}
	var pseudo [12]byte
	copy(pseudo[0:4], src[:])
	copy(pseudo[4:8], dst[:])
	pseudo[9] = ProtocolTCP
	pseudo[10] = byte(len(seg) >> 8)
	pseudo[11] = byte(len(seg))
	return wire.Fold(wire.Sum(wire.Sum(0, pseudo[:]), seg)) == 0
}
