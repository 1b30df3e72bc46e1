package parser

import (
	"errors"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"protoscope/internal/decoder"
	"protoscope/internal/models"
	"protoscope/internal/testutil"
)

var stamp = time.Date(2024, 5, 1, 12, 0, 1, 500000000, time.UTC)

func ci(data []byte) gopacket.CaptureInfo {
	return gopacket.CaptureInfo{Timestamp: stamp, CaptureLength: len(data), Length: len(data)}
}

func layerNames(ls []models.LayerDetail) []string {
	var names []string
	for _, l := range ls {
		names = append(names, l.Name)
	}
	return names
}

func fieldValue(t *testing.T, l models.LayerDetail, name string) string {
	t.Helper()
	for _, f := range l.Fields {
		if f.Name == name {
			return f.Value
		}
	}
	t.Fatalf("layer %s has no field %q", l.Name, name)
	return ""
}

func TestParseTCP(t *testing.T) {
	data := testutil.TCPFrame(t, []byte("GET / HTTP/1.1\r\n\r\n"))
	pkt := Decode(7, data, ci(data))
	require.NoError(t, pkt.Err)

	info := Parse(pkt, time.Time{})
	assert.Equal(t, 7, info.Number)
	assert.Equal(t, "TCP", info.Protocol)
	assert.Equal(t, "10.0.0.1:51514", info.SrcAddr)
	assert.Equal(t, "10.0.0.2:80", info.DstAddr)
	assert.Equal(t, "51514 -> 80 [ACK, PSH] Seq=1000 Ack=2000 Win=502 Len=18", info.Info)
	assert.Equal(t, "12:00:01.500000", info.Timestamp)
	assert.Equal(t, len(data), info.Length)
	assert.Nil(t, info.Failure)
	require.Len(t, info.Checksums, 2)
	assert.Equal(t, "ipv4", info.Checksums[0].Layer)
	assert.True(t, info.Checksums[0].Valid)
	assert.Equal(t, "tcp", info.Checksums[1].Layer)
	assert.Equal(t, pkt.Frame.Payload.(decoder.IPv4Packet).Payload.(decoder.TCPSegment).Checksum, info.Checksums[1].Value)
	assert.True(t, info.Checksums[1].Valid)

	require.Equal(t, []string{"Ethernet II", "IPv4", "TCP", "Data"}, layerNames(info.Layers))
	assert.Equal(t, "IPv4 (0x0800)", fieldValue(t, info.Layers[0], "Type"))
	assert.Contains(t, fieldValue(t, info.Layers[1], "Checksum"), "[correct]")
	assert.Equal(t, "0x2 [DF]", fieldValue(t, info.Layers[1], "Flags"))
	assert.Contains(t, fieldValue(t, info.Layers[2], "Checksum"), "[correct]")

	var flags models.LayerField
	for _, f := range info.Layers[2].Fields {
		if f.Name == "Flags" {
			flags = f
		}
	}
	require.Len(t, flags.Children, 9)
	assert.Equal(t, models.LayerField{Name: "ACK", Value: "Set"}, flags.Children[4])
	assert.Equal(t, models.LayerField{Name: "SYN", Value: "Not set"}, flags.Children[7])
}

func TestParseARP(t *testing.T) {
	data := testutil.ARPRequest(t)
	info := Parse(Decode(1, data, ci(data)), time.Time{})

	assert.Equal(t, "ARP", info.Protocol)
	assert.Equal(t, "10.0.0.1", info.SrcAddr)
	assert.Equal(t, "10.0.0.2", info.DstAddr)
	assert.Equal(t, "Who has 10.0.0.2? Tell 10.0.0.1", info.Info)
	require.Equal(t, []string{"Ethernet II", "ARP"}, layerNames(info.Layers))
	assert.Equal(t, "Request (1)", fieldValue(t, info.Layers[1], "Operation"))
}

func TestParseUDPStopsAtIPv4(t *testing.T) {
	data := testutil.UDPFrame(t, []byte{1, 2, 3, 4})
	info := Parse(Decode(1, data, ci(data)), time.Time{})

	assert.Equal(t, "UDP", info.Protocol)
	assert.Equal(t, "10.0.0.1", info.SrcAddr)
	assert.Equal(t, []string{"Ethernet II", "IPv4", "Data"}, layerNames(info.Layers))
}

func TestParseMalformed(t *testing.T) {
	data := testutil.Truncated()
	pkt := Decode(3, data, ci(data))

	var de *decoder.DecodeError
	require.True(t, errors.As(pkt.Err, &de))
	assert.ErrorIs(t, pkt.Err, decoder.ErrTooShort)

	info := Parse(pkt, time.Time{})
	assert.Equal(t, "Malformed", info.Protocol)
	assert.Equal(t, &models.DecodeFailure{
		Layer:   "ethernet",
		Reason:  "too_short",
		Need:    14,
		Have:    5,
		Message: pkt.Err.Error(),
	}, info.Failure)
	assert.Equal(t, 5, info.Captured)
	assert.Nil(t, info.Checksums)
	assert.Nil(t, info.Layers)
	assert.Equal(t, "0200000000", info.RawHex)
	assert.NotEmpty(t, info.HexDump)
}

func TestParseReportsBadTCPChecksum(t *testing.T) {
	data := testutil.TCPFrame(t, []byte("payload"))
	data[len(data)-1] ^= 0xff

	info := Parse(Decode(1, data, ci(data)), time.Time{})
	require.Len(t, info.Checksums, 2)
	assert.True(t, info.Checksums[0].Valid)
	assert.False(t, info.Checksums[1].Valid)
	assert.Contains(t, info.Info, "[bad checksum]")
}

func TestParseARPHasNoChecksums(t *testing.T) {
	data := testutil.ARPRequest(t)
	assert.Nil(t, Parse(Decode(1, data, ci(data)), time.Time{}).Checksums)
}

func TestParseRelativeTimestamp(t *testing.T) {
	data := testutil.ARPRequest(t)
	info := Parse(Decode(1, data, ci(data)), stamp.Add(-1500*time.Millisecond))
	assert.Equal(t, "1.500000", info.Timestamp)
}

func TestInnermost(t *testing.T) {
	tcp := Decode(1, testutil.TCPFrame(t, nil), gopacket.CaptureInfo{})
	require.NoError(t, tcp.Err)
	assert.IsType(t, decoder.TCPSegment{}, Innermost(tcp.Frame))

	udp := Decode(1, testutil.UDPFrame(t, nil), gopacket.CaptureInfo{})
	assert.IsType(t, decoder.IPv4Packet{}, Innermost(udp.Frame))

	arp := Decode(1, testutil.ARPRequest(t), gopacket.CaptureInfo{})
	assert.IsType(t, decoder.ARPPacket{}, Innermost(arp.Frame))
}

func TestHexDump(t *testing.T) {
	assert.Equal(t, "0000  61 62 63                                          |abc|\n", HexDump([]byte("abc")))
	assert.Equal(t, "", HexDump(nil))

	rows := HexDump(make([]byte, 17))
	assert.Contains(t, rows, "\n0010  00 ")
}
