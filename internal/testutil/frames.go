// Package testutil builds well-formed frames with gopacket's serializer.
package testutil

import (
	"net"
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/require"
)

var (
	ClientMAC = net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x01}
	ServerMAC = net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x02}
	ClientIP  = net.IP{10, 0, 0, 1}
	ServerIP  = net.IP{10, 0, 0, 2}
)

func serialize(t testing.TB, ls ...gopacket.SerializableLayer) []byte {
	t.Helper()
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	require.NoError(t, gopacket.SerializeLayers(buf, opts, ls...))
	return buf.Bytes()
}

func ipv4(proto layers.IPProtocol) *layers.IPv4 {
	return &layers.IPv4{
		Version:  4,
		Id:       0x1c46,
		Flags:    layers.IPv4DontFragment,
		TTL:      64,
		Protocol: proto,
		SrcIP:    ClientIP,
		DstIP:    ServerIP,
	}
}

func ethernet(t layers.EthernetType) *layers.Ethernet {
	return &layers.Ethernet{SrcMAC: ClientMAC, DstMAC: ServerMAC, EthernetType: t}
}

// TCPFrame returns a PSH/ACK segment from 10.0.0.1:51514 to 10.0.0.2:80
// carrying payload.
func TCPFrame(t testing.TB, payload []byte) []byte {
	ip := ipv4(layers.IPProtocolTCP)
	tcp := &layers.TCP{
		SrcPort: 51514,
		DstPort: 80,
		Seq:     1000,
		Ack:     2000,
		PSH:     true,
		ACK:     true,
		Window:  502,
	}
	require.NoError(t, tcp.SetNetworkLayerForChecksum(ip))
	return serialize(t, ethernet(layers.EthernetTypeIPv4), ip, tcp, gopacket.Payload(payload))
}

// UDPFrame returns a datagram from 10.0.0.1:5353 to 10.0.0.2:53.
func UDPFrame(t testing.TB, payload []byte) []byte {
	ip := ipv4(layers.IPProtocolUDP)
	udp := &layers.UDP{SrcPort: 5353, DstPort: 53}
	require.NoError(t, udp.SetNetworkLayerForChecksum(ip))
	return serialize(t, ethernet(layers.EthernetTypeIPv4), ip, udp, gopacket.Payload(payload))
}

// ARPRequest returns "who has 10.0.0.2, tell 10.0.0.1".
func ARPRequest(t testing.TB) []byte {
	arp := &layers.ARP{
		AddrType:          layers.LinkTypeEthernet,
		Protocol:          layers.EthernetTypeIPv4,
		HwAddressSize:     6,
		ProtAddressSize:   4,
		Operation:         layers.ARPRequest,
		SourceHwAddress:   ClientMAC,
		SourceProtAddress: ClientIP,
		DstHwAddress:      net.HardwareAddr{0, 0, 0, 0, 0, 0},
		DstProtAddress:    ServerIP,
	}
	eth := ethernet(layers.EthernetTypeARP)
	eth.DstMAC = net.HardwareAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}
	return serialize(t, eth, arp)
}

// Truncated returns a frame too short to hold an Ethernet header.
func Truncated() []byte {
	return []byte{0x02, 0x00, 0x00, 0x00, 0x00}
}
