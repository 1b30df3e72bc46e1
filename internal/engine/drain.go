package engine

import (
	"context"
	"errors"
	"fmt"
	"io"

	log "github.com/sirupsen/logrus"

	"protoscope/internal/capture"
	"protoscope/internal/decoder"
	"protoscope/internal/metrics"
	"protoscope/internal/parser"
)

// ErrStop may be returned by a Handler to end Drain without an error.
var ErrStop = errors.New("stop draining")

// Handler receives every frame read by Drain, decoded or not.
type Handler func(pkt parser.Packet) error

// Drain reads src until it is exhausted, ctx is done or handle fails,
// decoding each frame and passing it to handle. Malformed frames are
// logged and counted but do not stop the loop. kind labels the source
// in metrics. Drain returns the number of frames read.
func Drain(ctx context.Context, src capture.Source, kind string, handle Handler) (int, error) {
	n := 0
	for {
		data, ci, err := src.ReadFrame(ctx)
		if err == io.EOF {
			return n, nil
		}
		if err != nil {
			return n, err
		}
		n++

		pkt := parser.Decode(n, data, ci)
		observe(kind, pkt)

		if err := handle(pkt); err != nil {
			if errors.Is(err, ErrStop) {
				return n, nil
			}
			return n, fmt.Errorf("handle frame %d: %w", n, err)
		}
	}
}

func observe(kind string, pkt parser.Packet) {
	metrics.FramesTotal.WithLabelValues(kind).Inc()

	if pkt.Err != nil {
		layer, reason := failureLabels(pkt.Err)
		metrics.DecodeFailuresTotal.WithLabelValues(layer, reason).Inc()
		log.WithFields(log.Fields{
			"source": kind,
			"frame":  pkt.Number,
			"length": len(pkt.Data),
		}).Debugf("malformed frame: %v", pkt.Err)
		return
	}

	switch p := parser.Innermost(pkt.Frame).(type) {
	case decoder.ARPPacket:
		metrics.PayloadsTotal.WithLabelValues("arp").Inc()
	case decoder.TCPSegment:
		metrics.PayloadsTotal.WithLabelValues("tcp").Inc()
		if !p.ChecksumValid {
			metrics.ChecksumMismatchTotal.WithLabelValues("tcp").Inc()
		}
	case decoder.IPv4Packet:
		metrics.PayloadsTotal.WithLabelValues("ipv4").Inc()
	default:
		metrics.PayloadsTotal.WithLabelValues("unknown").Inc()
	}
	if ip, ok := pkt.Frame.Payload.(decoder.IPv4Packet); ok && !ip.ChecksumValid {
		metrics.ChecksumMismatchTotal.WithLabelValues("ipv4").Inc()
	}
}

func failureLabels(err error) (layer, reason string) {
	var de *decoder.DecodeError
	if errors.As(err, &de) {
		return string(de.Layer), de.Reason()
	}
	return "unknown", "other"
}
