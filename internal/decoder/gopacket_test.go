package decoder_test

import (
	"net"
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"protoscope/internal/decoder"
)

// Frames built by gopacket's serializer give an independent reference for
// field placement and for both checksums.

func serialize(t *testing.T, ls ...gopacket.SerializableLayer) []byte {
	t.Helper()
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	require.NoError(t, gopacket.SerializeLayers(buf, opts, ls...))
	return buf.Bytes()
}

func TestAgainstGopacketTCP(t *testing.T) {
	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr(macB[:]),
		DstMAC:       net.HardwareAddr(macA[:]),
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version:  4,
		TOS:      0x2b,
		Id:       4242,
		Flags:    layers.IPv4DontFragment,
		TTL:      57,
		Protocol: layers.IPProtocolTCP,
		SrcIP:    net.IP{192, 168, 1, 10},
		DstIP:    net.IP{93, 184, 216, 34},
	}
	tcp := &layers.TCP{
		SrcPort: 51514,
		DstPort: 443,
		Seq:     3000000000,
		Ack:     123456,
		SYN:     true,
		ACK:     true,
		ECE:     true,
		Window:  29200,
		Urgent:  0,
		Options: []layers.TCPOption{
			{OptionType: layers.TCPOptionKindMSS, OptionLength: 4, OptionData: []byte{0x05, 0xb4}},
		},
	}
	require.NoError(t, tcp.SetNetworkLayerForChecksum(ip))
	data := serialize(t, eth, ip, tcp, gopacket.Payload("GET / HTTP/1.1\r\n\r\n"))

	frame, err := decoder.ParseEthernet(data)
	require.NoError(t, err)
	assert.Equal(t, decoder.EtherTypeIPv4, frame.EtherType)
	assert.Equal(t, "aa:bb:cc:dd:ee:ff", frame.Destination.String())

	p := frame.Payload.(decoder.IPv4Packet)
	ref := gopacket.NewPacket(data, layers.LayerTypeEthernet, gopacket.Default)
	rip := ref.Layer(layers.LayerTypeIPv4).(*layers.IPv4)
	assert.Equal(t, rip.IHL, p.IHL)
	assert.Equal(t, rip.TOS>>2, p.DSCP)
	assert.Equal(t, rip.TOS&0x3, p.ECN)
	assert.Equal(t, rip.Length, p.TotalLength)
	assert.Equal(t, rip.Id, p.Identification)
	assert.Equal(t, uint8(rip.Flags), p.Flags)
	assert.Equal(t, rip.FragOffset, p.FragmentOffset)
	assert.Equal(t, rip.TTL, p.TTL)
	assert.Equal(t, rip.Checksum, p.HeaderChecksum)
	assert.Equal(t, "192.168.1.10", p.Source.String())
	assert.Equal(t, "93.184.216.34", p.Destination.String())
	assert.True(t, p.ChecksumValid)

	seg := p.Payload.(decoder.TCPSegment)
	rtcp := ref.Layer(layers.LayerTypeTCP).(*layers.TCP)
	assert.Equal(t, uint16(rtcp.SrcPort), seg.SourcePort)
	assert.Equal(t, uint16(rtcp.DstPort), seg.DestinationPort)
	assert.Equal(t, rtcp.Seq, seg.SequenceNumber)
	assert.Equal(t, rtcp.Ack, seg.AckNumber)
	assert.Equal(t, rtcp.DataOffset, seg.DataOffset)
	assert.Equal(t, rtcp.Window, seg.WindowSize)
	assert.Equal(t, rtcp.Checksum, seg.Checksum)
	assert.Equal(t, decoder.TCPFlagSYN|decoder.TCPFlagACK|decoder.TCPFlagECE, seg.ControlFlags)
	assert.Equal(t, []byte{2, 4, 0x05, 0xb4}, seg.OptionalData)
	assert.Equal(t, decoder.Unknown("GET / HTTP/1.1\r\n\r\n"), seg.Payload)
	assert.True(t, seg.ChecksumValid)
}

func TestAgainstGopacketPaddedFrame(t *testing.T) {
	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr(macB[:]),
		DstMAC:       net.HardwareAddr(macA[:]),
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolTCP,
		SrcIP:    net.IP(ipA[:]),
		DstIP:    net.IP(ipB[:]),
	}
	tcp := &layers.TCP{SrcPort: 1234, DstPort: 80, RST: true}
	require.NoError(t, tcp.SetNetworkLayerForChecksum(ip))

	// 54 bytes of headers are padded to the 60-byte Ethernet minimum.
	data := serialize(t, eth, ip, tcp)
	require.Len(t, data, 60)

	frame, err := decoder.ParseEthernet(data)
	require.NoError(t, err)
	p := frame.Payload.(decoder.IPv4Packet)
	seg := p.Payload.(decoder.TCPSegment)
	assert.Equal(t, decoder.Unknown(data[54:]), seg.Payload)
	assert.Len(t, seg.Payload, 6)
	assert.True(t, seg.ChecksumValid)
	assert.True(t, seg.ControlFlags.Has(decoder.TCPFlagRST))
}

func TestAgainstGopacketARP(t *testing.T) {
	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr(macB[:]),
		DstMAC:       layers.EthernetBroadcast,
		EthernetType: layers.EthernetTypeARP,
	}
	arp := &layers.ARP{
		AddrType:          layers.LinkTypeEthernet,
		Protocol:          layers.EthernetTypeIPv4,
		HwAddressSize:     6,
		ProtAddressSize:   4,
		Operation:         layers.ARPRequest,
		SourceHwAddress:   macB[:],
		SourceProtAddress: ipA[:],
		DstHwAddress:      make([]byte, 6),
		DstProtAddress:    ipB[:],
	}
	data := serialize(t, eth, arp)

	frame, err := decoder.ParseEthernet(data)
	require.NoError(t, err)
	assert.Equal(t, "ff:ff:ff:ff:ff:ff", frame.Destination.String())

	got := frame.Payload.(decoder.ARPPacket)
	assert.Equal(t, decoder.ARPPacket{
		HardwareType: 1,
		ProtocolType: 0x0800,
		HardwareSize: 6,
		ProtocolSize: 4,
		Opcode:       decoder.ARPRequest,
		SenderMAC:    macB,
		SenderIP:     ipA,
		TargetIP:     ipB,
	}, got)
}

func TestAgainstGopacketUDPStaysUnknown(t *testing.T) {
	ip := &layers.IPv4{
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    net.IP(ipA[:]),
		DstIP:    net.IP(ipB[:]),
	}
	udp := &layers.UDP{SrcPort: 5353, DstPort: 53}
	require.NoError(t, udp.SetNetworkLayerForChecksum(ip))
	data := serialize(t, ip, udp, gopacket.Payload{0xca, 0xfe})

	p, err := decoder.ParseIPv4(data)
	require.NoError(t, err)
	assert.Equal(t, uint8(17), p.Protocol)
	assert.Equal(t, decoder.Unknown(data[20:]), p.Payload)
	assert.Len(t, p.Payload, 10)
}
