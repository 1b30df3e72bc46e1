package decoder

import "protoscope/internal/wire"

// ParseIPv4 decodes an IPv4 header with options, verifies its header
// checksum and dispatches everything after the header by protocol number.
//
// The payload is never trimmed. When TotalLength is consistent with the
// buffer it only bounds the span the TCP checksum covers, so link-layer
// padding after a short datagram does not fail verification.
func ParseIPv4(b []byte) (IPv4Packet, error) {
	if len(b) < IPv4MinHeaderLen {
		return IPv4Packet{}, decodeErr(LayerIPv4, ErrTooShort, IPv4MinHeaderLen, len(b))
	}

	ihl := wire.Bits8(b[0], 0, 4)
	hlen := int(ihl) * 4
	if len(b) < hlen {
		return IPv4Packet{}, decodeErr(LayerIPv4, ErrHeaderLengthExceedsPacket, hlen, len(b))
	}
	if hlen < IPv4MinHeaderLen {
		return IPv4Packet{}, decodeErr(LayerIPv4, ErrBadHeaderLength, IPv4MinHeaderLen, hlen)
	}

	flagsFrag := wire.U16(b, 6)
	p := IPv4Packet{
		Version:        wire.Bits8(b[0], 4, 4),
		IHL:            ihl,
		DSCP:           wire.Bits8(b[1], 2, 6),
		ECN:            wire.Bits8(b[1], 0, 2),
		TotalLength:    wire.U16(b, 2),
		Identification: wire.U16(b, 4),
		Flags:          uint8(wire.Bits16(flagsFrag, 13, 3)),
		FragmentOffset: wire.Bits16(flagsFrag, 0, 13),
		TTL:            b[8],
		Protocol:       b[9],
		HeaderChecksum: wire.U16(b, 10),
		HeaderLength:   uint8(hlen),
		Source:         wire.IPv4(b, 12),
		Destination:    wire.IPv4(b, 16),
		Options:        wire.Clone(b[IPv4MinHeaderLen:hlen]),
		ChecksumValid:  wire.Valid(b[:hlen]),
	}

	rest := b[hlen:]
	segLen := len(rest)
	if tl := int(p.TotalLength); tl >= hlen && tl <= len(b) {
		segLen = tl - hlen
	}

	switch p.Protocol {
	case ProtocolTCP:
		seg, err := parseTCP(rest, p.Source, p.Destination, segLen)
		if err != nil {
			return IPv4Packet{}, err
		}
		p.Payload = seg
	default:
		p.Payload = Unknown(wire.Clone(rest))
	}
	return p, nil
}
