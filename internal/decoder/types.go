// Package decoder interprets raw Ethernet frames layer by layer: Ethernet,
// then ARP or IPv4, then TCP. Every Parse function is pure. Results own
// their data and never alias the input buffer, and a failed inner layer
// fails the whole call rather than returning a partial value.
package decoder

import (
	"net"
	"net/netip"
)

// EtherType values dispatched by ParseEthernet.
const (
	EtherTypeIPv4 uint16 = 0x0800
	EtherTypeARP  uint16 = 0x0806
)

// ProtocolTCP is the IPv4 protocol number dispatched to ParseTCP.
const ProtocolTCP uint8 = 6

// Fixed header sizes.
const (
	EthernetHeaderLen = 14
	ARPLen            = 28
	IPv4MinHeaderLen  = 20
	TCPMinHeaderLen   = 20
)

// MAC is a 6-byte hardware address.
type MAC [6]byte

func (m MAC) String() string { return net.HardwareAddr(m[:]).String() }

// IPv4Addr is a 4-byte protocol address.
type IPv4Addr [4]byte

func (a IPv4Addr) String() string { return netip.AddrFrom4(a).String() }

// EthernetPayload is one of ARPPacket, IPv4Packet or Unknown.
type EthernetPayload interface {
	ethernetPayload()
}

// IPPayload is one of TCPSegment or Unknown.
type IPPayload interface {
	ipPayload()
}

// TCPPayload is always Unknown; application protocols are not decoded.
type TCPPayload interface {
	tcpPayload()
}

// Unknown carries bytes that were not interpreted further, copied verbatim.
type Unknown []byte

func (Unknown) ethernetPayload() {}
func (Unknown) ipPayload()       {}
func (Unknown) tcpPayload()      {}

// EthernetFrame is a decoded Ethernet II header and its payload.
type EthernetFrame struct {
	Destination MAC
	Source      MAC
	EtherType   uint16
	Payload     EthernetPayload
}

// ARPPacket is a fixed 28-byte ARP body.
type ARPPacket struct {
	HardwareType uint16
	ProtocolType uint16
	HardwareSize uint8
	ProtocolSize uint8
	Opcode       uint16
	SenderMAC    MAC
	SenderIP     IPv4Addr
	TargetMAC    MAC
	TargetIP     IPv4Addr
}

func (ARPPacket) ethernetPayload() {}

// ARP opcodes.
const (
	ARPRequest uint16 = 1
	ARPReply   uint16 = 2
)

// IPv4Packet is a decoded IPv4 header, its options and its payload.
type IPv4Packet struct {
	Version        uint8
	IHL            uint8
	DSCP           uint8
	ECN            uint8
	TotalLength    uint16
	Identification uint16
	Flags          uint8  // 3 bits: reserved, DF, MF
	FragmentOffset uint16 // 13 bits, in 8-byte units
	TTL            uint8
	Protocol       uint8
	HeaderChecksum uint16
	HeaderLength   uint8 // IHL * 4
	Source         IPv4Addr
	Destination    IPv4Addr
	Options        []byte
	// ChecksumValid is false for a corrupt header; that is not a decode error.
	ChecksumValid bool
	Payload       IPPayload
}

func (IPv4Packet) ethernetPayload() {}

// IPv4 flag bits as stored in IPv4Packet.Flags.
const (
	IPv4MoreFragments uint8 = 1 << iota
	IPv4DontFragment
	IPv4Reserved
)

// TCPFlags holds the 9 TCP control bits: NS followed by the 8 standard flags.
type TCPFlags uint16

const (
	TCPFlagFIN TCPFlags = 1 << iota
	TCPFlagSYN
	TCPFlagRST
	TCPFlagPSH
	TCPFlagACK
	TCPFlagURG
	TCPFlagECE
	TCPFlagCWR
	TCPFlagNS
)

// Has reports whether every bit in f is set.
func (t TCPFlags) Has(f TCPFlags) bool { return t&f == f }

// TCPSegment is a decoded TCP header, its options and its payload.
type TCPSegment struct {
	SourcePort      uint16
	DestinationPort uint16
	SequenceNumber  uint32
	AckNumber       uint32
	DataOffset      uint8 // header length in 32-bit words
	Reserved        uint8
	ControlFlags    TCPFlags
	WindowSize      uint16
	Checksum        uint16
	UrgentPointer   uint16
	OptionalData    []byte
	Payload         TCPPayload
	// ChecksumValid is the pseudo-header checksum result over the segment.
	ChecksumValid bool
}

func (TCPSegment) ipPayload() {}
