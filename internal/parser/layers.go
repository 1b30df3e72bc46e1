package parser

import (
	"fmt"

	"protoscope/internal/decoder"
	"protoscope/internal/format"
	"protoscope/internal/models"
)

func extractLayers(f decoder.EthernetFrame) []models.LayerDetail {
	result := []models.LayerDetail{parseEthernet(f)}
	switch p := f.Payload.(type) {
	case decoder.ARPPacket:
		result = append(result, parseARP(p))
	case decoder.IPv4Packet:
		result = append(result, parseIPv4(p))
		switch q := p.Payload.(type) {
		case decoder.TCPSegment:
			result = append(result, parseTCP(q))
			if u, ok := q.Payload.(decoder.Unknown); ok && len(u) > 0 {
				result = append(result, parseData(u))
			}
		case decoder.Unknown:
			result = append(result, parseData(q))
		}
	case decoder.Unknown:
		result = append(result, parseData(p))
	}
	return result
}

func parseEthernet(eth decoder.EthernetFrame) models.LayerDetail {
	return models.LayerDetail{
		Name: "Ethernet II",
		Fields: []models.LayerField{
			{Name: "Destination", Value: eth.Destination.String()},
			{Name: "Source", Value: eth.Source.String()},
			{Name: "Type", Value: fmt.Sprintf("%s (0x%04x)", format.EtherTypeName(eth.EtherType), eth.EtherType)},
		},
	}
}

func parseARP(arp decoder.ARPPacket) models.LayerDetail {
	return models.LayerDetail{
		Name: "ARP",
		Fields: []models.LayerField{
			{Name: "Hardware Type", Value: fmt.Sprintf("%d", arp.HardwareType)},
			{Name: "Protocol Type", Value: fmt.Sprintf("0x%04x", arp.ProtocolType)},
			{Name: "Hardware Size", Value: fmt.Sprintf("%d", arp.HardwareSize)},
			{Name: "Protocol Size", Value: fmt.Sprintf("%d", arp.ProtocolSize)},
			{Name: "Operation", Value: fmt.Sprintf("%s (%d)", format.OpcodeName(arp.Opcode), arp.Opcode)},
			{Name: "Sender MAC", Value: arp.SenderMAC.String()},
			{Name: "Sender IP", Value: arp.SenderIP.String()},
			{Name: "Target MAC", Value: arp.TargetMAC.String()},
			{Name: "Target IP", Value: arp.TargetIP.String()},
		},
	}
}

func parseIPv4(ip decoder.IPv4Packet) models.LayerDetail {
	fields := []models.LayerField{
		{Name: "Version", Value: fmt.Sprintf("%d", ip.Version)},
		{Name: "Header Length", Value: fmt.Sprintf("%d bytes (%d)", ip.HeaderLength, ip.IHL)},
		{Name: "DSCP", Value: fmt.Sprintf("%d", ip.DSCP)},
		{Name: "ECN", Value: fmt.Sprintf("%d", ip.ECN)},
		{Name: "Total Length", Value: fmt.Sprintf("%d", ip.TotalLength)},
		{Name: "Identification", Value: fmt.Sprintf("0x%04x (%d)", ip.Identification, ip.Identification)},
		{Name: "Flags", Value: fmt.Sprintf("0x%x %s", ip.Flags, format.IPv4FlagNames(ip.Flags))},
		{Name: "Fragment Offset", Value: fmt.Sprintf("%d", ip.FragmentOffset)},
		{Name: "TTL", Value: fmt.Sprintf("%d", ip.TTL)},
		{Name: "Protocol", Value: fmt.Sprintf("%s (%d)", format.ProtocolName(ip.Protocol), ip.Protocol)},
		{Name: "Checksum", Value: checksumValue(ip.HeaderChecksum, ip.ChecksumValid)},
		{Name: "Source", Value: ip.Source.String()},
		{Name: "Destination", Value: ip.Destination.String()},
	}
	if len(ip.Options) > 0 {
		fields = append(fields, models.LayerField{Name: "Options", Value: fmt.Sprintf("%d bytes: %s", len(ip.Options), format.Hex(ip.Options))})
	}
	return models.LayerDetail{Name: "IPv4", Fields: fields}
}

func parseTCP(tcp decoder.TCPSegment) models.LayerDetail {
	flags := models.LayerField{
		Name:  "Flags",
		Value: fmt.Sprintf("0x%03x [%s]", uint16(tcp.ControlFlags), format.TCPFlagNames(tcp.ControlFlags)),
	}
	for _, fl := range format.TCPFlagOrder {
		flags.Children = append(flags.Children, models.LayerField{
			Name:  fl.Name,
			Value: boolToStr(tcp.ControlFlags.Has(fl.Flag), "Set", "Not set"),
		})
	}

	fields := []models.LayerField{
		{Name: "Source Port", Value: fmt.Sprintf("%d", tcp.SourcePort)},
		{Name: "Destination Port", Value: fmt.Sprintf("%d", tcp.DestinationPort)},
		{Name: "Sequence Number", Value: fmt.Sprintf("%d", tcp.SequenceNumber)},
		{Name: "Acknowledgment Number", Value: fmt.Sprintf("%d", tcp.AckNumber)},
		{Name: "Data Offset", Value: fmt.Sprintf("%d bytes (%d)", int(tcp.DataOffset)*4, tcp.DataOffset)},
		{Name: "Reserved", Value: fmt.Sprintf("%d", tcp.Reserved)},
		flags,
		{Name: "Window Size", Value: fmt.Sprintf("%d", tcp.WindowSize)},
		{Name: "Checksum", Value: checksumValue(tcp.Checksum, tcp.ChecksumValid)},
		{Name: "Urgent Pointer", Value: fmt.Sprintf("%d", tcp.UrgentPointer)},
	}
	if len(tcp.OptionalData) > 0 {
		fields = append(fields, models.LayerField{Name: "Options", Value: fmt.Sprintf("%d bytes: %s", len(tcp.OptionalData), format.Hex(tcp.OptionalData))})
	}
	return models.LayerDetail{Name: "TCP", Fields: fields}
}

func parseData(data decoder.Unknown) models.LayerDetail {
	return models.LayerDetail{
		Name: "Data",
		Fields: []models.LayerField{
			{Name: "Length", Value: fmt.Sprintf("%d bytes", len(data))},
		},
	}
}

func checksumValue(sum uint16, valid bool) string {
	return fmt.Sprintf("0x%04x [%s]", sum, boolToStr(valid, "correct", "incorrect"))
}

func boolToStr(b bool, t, f string) string {
	if b {
		return t
	}
	return f
}

// summarize determines the highest-level protocol and builds address/info strings.
func summarize(f decoder.EthernetFrame) (protocol, src, dst, info string) {
	protocol = format.EtherTypeName(f.EtherType)
	src = f.Source.String()
	dst = f.Destination.String()

	switch p := f.Payload.(type) {
	case decoder.ARPPacket:
		protocol = "ARP"
		src = p.SenderIP.String()
		dst = p.TargetIP.String()
		switch p.Opcode {
		case decoder.ARPRequest:
			info = fmt.Sprintf("Who has %s? Tell %s", p.TargetIP, p.SenderIP)
		case decoder.ARPReply:
			info = fmt.Sprintf("%s is at %s", p.SenderIP, p.SenderMAC)
		default:
			info = fmt.Sprintf("Opcode %d", p.Opcode)
		}

	case decoder.IPv4Packet:
		src = p.Source.String()
		dst = p.Destination.String()
		if seg, ok := p.Payload.(decoder.TCPSegment); ok {
			protocol = "TCP"
			src = fmt.Sprintf("%s:%d", src, seg.SourcePort)
			dst = fmt.Sprintf("%s:%d", dst, seg.DestinationPort)
			payloadLen := 0
			if u, ok := seg.Payload.(decoder.Unknown); ok {
				payloadLen = len(u)
			}
			info = fmt.Sprintf("%d -> %d [%s] Seq=%d Ack=%d Win=%d Len=%d",
				seg.SourcePort, seg.DestinationPort, format.TCPFlagNames(seg.ControlFlags),
				seg.SequenceNumber, seg.AckNumber, seg.WindowSize, payloadLen)
			if !seg.ChecksumValid {
				info += " [bad checksum]"
			}
			break
		}
		protocol = format.ProtocolName(p.Protocol)
		if protocol == "Unknown" {
			protocol = fmt.Sprintf("IPv4 proto %d", p.Protocol)
		}
		if p.FragmentOffset != 0 {
			info = fmt.Sprintf("Fragment offset=%d id=0x%04x", int(p.FragmentOffset)*8, p.Identification)
		} else {
			info = fmt.Sprintf("Protocol %d, %d bytes", p.Protocol, p.TotalLength)
		}
		if !p.ChecksumValid {
			info += " [bad header checksum]"
		}

	default:
		info = fmt.Sprintf("EtherType 0x%04x", f.EtherType)
	}
	return
}
