// Package parser turns raw frames into decoded packets and the display
// model sent to websocket clients.
package parser

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/gopacket"

	"protoscope/internal/decoder"
	"protoscope/internal/models"
)

// Packet is one frame read from a source and the result of decoding it.
// Err is a *decoder.DecodeError when the frame is malformed.
type Packet struct {
	Number int
	CI     gopacket.CaptureInfo
	Data   []byte
	Frame  decoder.EthernetFrame
	Err    error
}

// Decode runs the layered decoder over data.
func Decode(number int, data []byte, ci gopacket.CaptureInfo) Packet {
	frame, err := decoder.ParseEthernet(data)
	return Packet{Number: number, CI: ci, Data: data, Frame: frame, Err: err}
}

// Parse converts a decoded packet into a PacketInfo. Timestamps are
// relative to startTime unless it is zero.
func Parse(pkt Packet, startTime time.Time) models.PacketInfo {
	info := models.PacketInfo{
		Number:   pkt.Number,
		Length:   pkt.CI.Length,
		Captured: len(pkt.Data),
	}
	if info.Length == 0 {
		info.Length = info.Captured
	}

	ts := pkt.CI.Timestamp
	if startTime.IsZero() {
		info.Timestamp = ts.Format("15:04:05.000000")
	} else {
		info.Timestamp = fmt.Sprintf("%.6f", ts.Sub(startTime).Seconds())
	}

	if pkt.Err != nil {
		info.Protocol = "Malformed"
		info.Info = pkt.Err.Error()
		info.Failure = failure(pkt.Err)
	} else {
		info.Layers = extractLayers(pkt.Frame)
		info.Checksums = checksums(pkt.Frame)
		info.Protocol, info.SrcAddr, info.DstAddr, info.Info = summarize(pkt.Frame)
	}

	if len(pkt.Data) > 0 {
		info.HexDump = HexDump(pkt.Data)
		info.RawHex = formatRawHex(pkt.Data)
	}
	return info
}

func failure(err error) *models.DecodeFailure {
	f := &models.DecodeFailure{Layer: "unknown", Reason: "other", Message: err.Error()}
	var de *decoder.DecodeError
	if errors.As(err, &de) {
		f.Layer = string(de.Layer)
		f.Reason = de.Reason()
		f.Need, f.Have = de.Need, de.Have
	}
	return f
}

// checksums lists the IPv4 header and TCP verdicts, outermost first.
func checksums(f decoder.EthernetFrame) []models.ChecksumStatus {
	ip, ok := f.Payload.(decoder.IPv4Packet)
	if !ok {
		return nil
	}
	out := []models.ChecksumStatus{{Layer: "ipv4", Value: ip.HeaderChecksum, Valid: ip.ChecksumValid}}
	if seg, ok := ip.Payload.(decoder.TCPSegment); ok {
		out = append(out, models.ChecksumStatus{Layer: "tcp", Value: seg.Checksum, Valid: seg.ChecksumValid})
	}
	return out
}

// Innermost returns the deepest decoded layer of f: a decoder.ARPPacket,
// decoder.IPv4Packet, decoder.TCPSegment or decoder.Unknown.
func Innermost(f decoder.EthernetFrame) any {
	switch p := f.Payload.(type) {
	case decoder.IPv4Packet:
		if seg, ok := p.Payload.(decoder.TCPSegment); ok {
			return seg
		}
		return p
	default:
		return p
	}
}

// HexDump renders data as offset, hex and ASCII columns, 16 bytes a row.
func HexDump(data []byte) string {
	var sb strings.Builder
	for offset := 0; offset < len(data); offset += 16 {
		fmt.Fprintf(&sb, "%04x  ", offset)

		end := offset + 16
		if end > len(data) {
			end = len(data)
		}
		for i := offset; i < offset+16; i++ {
			if i < end {
				fmt.Fprintf(&sb, "%02x ", data[i])
			} else {
				sb.WriteString("   ")
			}
			if i == offset+7 {
				sb.WriteByte(' ')
			}
		}
		sb.WriteString(" |")

		for i := offset; i < end; i++ {
			b := data[i]
			if b >= 0x20 && b <= 0x7e {
				sb.WriteByte(b)
			} else {
				sb.WriteByte('.')
			}
		}
		sb.WriteString("|\n")
	}
	return sb.String()
}

func formatRawHex(data []byte) string {
	var sb strings.Builder
	for _, b := range data {
		fmt.Fprintf(&sb, "%02x", b)
	}
	return sb.String()
}
