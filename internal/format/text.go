// Package format renders decoded frames as deterministic multi-line text.
package format

import (
	"fmt"
	"strings"

	"protoscope/internal/decoder"
)

// Frame renders an Ethernet frame and every layer beneath it.
func Frame(f decoder.EthernetFrame) string {
	var sb strings.Builder
	writeFrame(&sb, f)
	return sb.String()
}

// ARP renders an ARP packet.
func ARP(p decoder.ARPPacket) string {
	var sb strings.Builder
	writeARP(&sb, p)
	return sb.String()
}

// IPv4 renders an IPv4 packet and its payload.
func IPv4(p decoder.IPv4Packet) string {
	var sb strings.Builder
	writeIPv4(&sb, p)
	return sb.String()
}

// TCP renders a TCP segment and its payload.
func TCP(s decoder.TCPSegment) string {
	var sb strings.Builder
	writeTCP(&sb, s)
	return sb.String()
}

// Payload renders any payload variant.
func Payload(p any) string {
	var sb strings.Builder
	writePayload(&sb, p)
	return sb.String()
}

func writeFrame(sb *strings.Builder, f decoder.EthernetFrame) {
	sb.WriteString("Ethernet Frame:\n")
	field(sb, "Destination", f.Destination.String())
	field(sb, "Source", f.Source.String())
	field(sb, "Ethertype", fmt.Sprintf("%d (0x%04x) %s", f.EtherType, f.EtherType, EtherTypeName(f.EtherType)))
	writePayload(sb, f.Payload)
}

func writeARP(sb *strings.Builder, p decoder.ARPPacket) {
	sb.WriteString("ARP Packet:\n")
	field(sb, "Hardware Type", fmt.Sprintf("%d (0x%04x)", p.HardwareType, p.HardwareType))
	field(sb, "Protocol Type", fmt.Sprintf("%d (0x%04x)", p.ProtocolType, p.ProtocolType))
	field(sb, "Hardware Size", fmt.Sprintf("%d", p.HardwareSize))
	field(sb, "Protocol Size", fmt.Sprintf("%d", p.ProtocolSize))
	field(sb, "Opcode", fmt.Sprintf("%d (%s)", p.Opcode, OpcodeName(p.Opcode)))
	field(sb, "Sender MAC", p.SenderMAC.String())
	field(sb, "Sender IP", p.SenderIP.String())
	field(sb, "Target MAC", p.TargetMAC.String())
	field(sb, "Target IP", p.TargetIP.String())
}

func writeIPv4(sb *strings.Builder, p decoder.IPv4Packet) {
	sb.WriteString("IPv4 Packet:\n")
	field(sb, "Version", fmt.Sprintf("%d", p.Version))
	field(sb, "IHL", fmt.Sprintf("%d", p.IHL))
	field(sb, "Header Length", fmt.Sprintf("%d bytes", p.HeaderLength))
	field(sb, "DSCP", fmt.Sprintf("%d", p.DSCP))
	field(sb, "ECN", fmt.Sprintf("%d", p.ECN))
	field(sb, "Total Length", fmt.Sprintf("%d (0x%04x)", p.TotalLength, p.TotalLength))
	field(sb, "Identification", fmt.Sprintf("%d (0x%04x)", p.Identification, p.Identification))
	field(sb, "Flags", fmt.Sprintf("0x%x %s", p.Flags, IPv4FlagNames(p.Flags)))
	field(sb, "Fragment Offset", fmt.Sprintf("%d", p.FragmentOffset))
	field(sb, "TTL", fmt.Sprintf("%d", p.TTL))
	field(sb, "Protocol", fmt.Sprintf("%d %s", p.Protocol, ProtocolName(p.Protocol)))
	field(sb, "Header Checksum", fmt.Sprintf("0x%04x (%s)", p.HeaderChecksum, validity(p.ChecksumValid)))
	field(sb, "Source IP", p.Source.String())
	field(sb, "Destination IP", p.Destination.String())
	field(sb, "Options", Hex(p.Options))
	writePayload(sb, p.Payload)
}

func writeTCP(sb *strings.Builder, s decoder.TCPSegment) {
	sb.WriteString("TCP Segment:\n")
	field(sb, "Source Port", fmt.Sprintf("%d (0x%04x)", s.SourcePort, s.SourcePort))
	field(sb, "Destination Port", fmt.Sprintf("%d (0x%04x)", s.DestinationPort, s.DestinationPort))
	field(sb, "Sequence Number", fmt.Sprintf("%d (0x%08x)", s.SequenceNumber, s.SequenceNumber))
	field(sb, "Acknowledgment Number", fmt.Sprintf("%d (0x%08x)", s.AckNumber, s.AckNumber))
	field(sb, "Data Offset", fmt.Sprintf("%d (%d bytes)", s.DataOffset, int(s.DataOffset)*4))
	field(sb, "Reserved", fmt.Sprintf("0x%x", s.Reserved))
	field(sb, "Control Flags", fmt.Sprintf("0x%03x [%s]", uint16(s.ControlFlags), TCPFlagNames(s.ControlFlags)))
	field(sb, "Window Size", fmt.Sprintf("%d (0x%04x)", s.WindowSize, s.WindowSize))
	field(sb, "Checksum", fmt.Sprintf("%d (0x%04x) (%s)", s.Checksum, s.Checksum, validity(s.ChecksumValid)))
	field(sb, "Urgent Pointer", fmt.Sprintf("%d (0x%04x)", s.UrgentPointer, s.UrgentPointer))
	field(sb, "Optional Data", Hex(s.OptionalData))
	writePayload(sb, s.Payload)
}

func writePayload(sb *strings.Builder, p any) {
	switch v := p.(type) {
	case decoder.ARPPacket:
		writeARP(sb, v)
	case decoder.IPv4Packet:
		writeIPv4(sb, v)
	case decoder.TCPSegment:
		writeTCP(sb, v)
	case decoder.Unknown:
		field(sb, "Unknown Payload", fmt.Sprintf("%d bytes: %s", len(v), Hex(v)))
	case nil:
		field(sb, "Payload", "none")
	default:
		field(sb, "Payload", fmt.Sprintf("unsupported %T", v))
	}
}

func field(sb *strings.Builder, name, value string) {
	fmt.Fprintf(sb, "  %-22s %s\n", name+":", value)
}

func validity(ok bool) string {
	if ok {
		return "valid"
	}
	return "invalid"
}

// Hex renders b as space-separated lowercase hex octets.
func Hex(b []byte) string {
	var sb strings.Builder
	for i, c := range b {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%02x", c)
	}
	return sb.String()
}
