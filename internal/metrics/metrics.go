// Package metrics implements Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// FramesTotal counts frames read from a capture source
	FramesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "protoscope_frames_total",
			Help: "Total number of frames read from capture sources",
		},
		[]string{"source"},
	)

	// DecodeFailuresTotal counts frames rejected by the decoder
	DecodeFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "protoscope_decode_failures_total",
			Help: "Total number of frames that failed to decode",
		},
		[]string{"layer", "reason"},
	)

	// PayloadsTotal counts decoded payloads by innermost kind
	PayloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "protoscope_payloads_total",
			Help: "Total number of decoded frames by innermost payload kind",
		},
		[]string{"kind"},
	)

	// ChecksumMismatchTotal counts headers whose checksum did not verify
	ChecksumMismatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "protoscope_checksum_mismatch_total",
			Help: "Total number of decoded headers with an invalid checksum",
		},
		[]string{"layer"},
	)

	// CaptureDropped mirrors the libpcap drop counter of a live capture
	CaptureDropped = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "protoscope_capture_dropped",
			Help: "Frames dropped by the kernel or libpcap during the current live capture",
		},
		[]string{"interface"},
	)
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
