package format

import (
	"strings"

	"protoscope/internal/decoder"
)

// EtherTypeName returns a short protocol name, or "Unknown".
func EtherTypeName(t uint16) string {
	switch t {
	case decoder.EtherTypeIPv4:
		return "IPv4"
	case decoder.EtherTypeARP:
		return "ARP"
	case 0x86dd:
		return "IPv6"
	case 0x8100:
		return "802.1Q"
	case 0x0842:
		return "Wake-on-LAN"
	case 0x8892:
		return "PROFINET"
	default:
		return "Unknown"
	}
}

// ProtocolName names an IPv4 protocol number.
func ProtocolName(p uint8) string {
	switch p {
	case 1:
		return "ICMP"
	case decoder.ProtocolTCP:
		return "TCP"
	case 17:
		return "UDP"
	default:
		return "Unknown"
	}
}

// OpcodeName names an ARP opcode.
func OpcodeName(op uint16) string {
	switch op {
	case decoder.ARPRequest:
		return "Request"
	case decoder.ARPReply:
		return "Reply"
	default:
		return "Unknown"
	}
}

// FlagName pairs a TCP control bit with its mnemonic.
type FlagName struct {
	Flag decoder.TCPFlags
	Name string
}

// TCPFlagOrder lists the TCP control bits, most significant first.
var TCPFlagOrder = []FlagName{
	{decoder.TCPFlagNS, "NS"},
	{decoder.TCPFlagCWR, "CWR"},
	{decoder.TCPFlagECE, "ECE"},
	{decoder.TCPFlagURG, "URG"},
	{decoder.TCPFlagACK, "ACK"},
	{decoder.TCPFlagPSH, "PSH"},
	{decoder.TCPFlagRST, "RST"},
	{decoder.TCPFlagSYN, "SYN"},
	{decoder.TCPFlagFIN, "FIN"},
}

// TCPFlagNames lists the set control bits, most significant first.
func TCPFlagNames(f decoder.TCPFlags) string {
	var parts []string
	for _, fl := range TCPFlagOrder {
		if f.Has(fl.Flag) {
			parts = append(parts, fl.Name)
		}
	}
	return strings.Join(parts, ", ")
}

// IPv4FlagNames lists DF and MF when set.
func IPv4FlagNames(f uint8) string {
	var parts []string
	if f&decoder.IPv4Reserved != 0 {
		parts = append(parts, "Reserved")
	}
	if f&decoder.IPv4DontFragment != 0 {
		parts = append(parts, "DF")
	}
	if f&decoder.IPv4MoreFragments != 0 {
		parts = append(parts, "MF")
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
