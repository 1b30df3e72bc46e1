package decoder

import "protoscope/internal/wire"

// ParseARP decodes the 28-byte ARP body used for IPv4 over Ethernet.
// Bytes beyond the first 28 are ignored.
func ParseARP(b []byte) (ARPPacket, error) {
	if len(b) < ARPLen {
		return ARPPacket{}, decodeErr(LayerARP, ErrTooShort, ARPLen, len(b))
	}
	return ARPPacket{
		HardwareType: wire.U16(b, 0),
		ProtocolType: wire.U16(b, 2),
		HardwareSize: b[4],
		ProtocolSize: b[5],
		Opcode:       wire.U16(b, 6),
		SenderMAC:    wire.MAC(b, 8),
		SenderIP:     wire.IPv4(b, 14),
		TargetMAC:    wire.MAC(b, 18),
		TargetIP:     wire.IPv4(b, 24),
	}, nil
}
