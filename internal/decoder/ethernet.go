package decoder

import "protoscope/internal/wire"

// ParseEthernet decodes an Ethernet II frame. This is the entry point for
// every captured buffer.
func ParseEthernet(b []byte) (EthernetFrame, error) {
	if len(b) < EthernetHeaderLen {
		return EthernetFrame{}, decodeErr(LayerEthernet, ErrTooShort, EthernetHeaderLen, len(b))
	}

	frame := EthernetFrame{
		Destination: wire.MAC(b, 0),
		Source:      wire.MAC(b, 6),
		EtherType:   wire.U16(b, 12),
	}

	rest := b[EthernetHeaderLen:]
	switch frame.EtherType {
	case EtherTypeARP:
		arp, err := ParseARP(rest)
		if err != nil {
			return EthernetFrame{}, err
		}
		frame.Payload = arp
	case EtherTypeIPv4:
		ip, err := ParseIPv4(rest)
		if err != nil {
			return EthernetFrame{}, err
		}
		frame.Payload = ip
	default:
		frame.Payload = Unknown(wire.Clone(rest))
	}
	return frame, nil
}
