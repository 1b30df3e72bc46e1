package decoder

import (
	"errors"
	"fmt"
)

var (
	// ErrTooShort means the buffer is smaller than the layer's fixed header.
	ErrTooShort = errors.New("buffer shorter than fixed header")
	// ErrHeaderLengthExceedsPacket means a length field inside the header
	// (IPv4 IHL, TCP data offset) claims more bytes than the buffer holds.
	ErrHeaderLengthExceedsPacket = errors.New("declared header length exceeds packet")
	// ErrBadHeaderLength means a declared header length is smaller than
	// the fixed header it must contain.
	ErrBadHeaderLength = errors.New("declared header length below minimum")
)

// Layer names a protocol layer in decode errors and metrics.
type Layer string

const (
	LayerEthernet Layer = "ethernet"
	LayerARP      Layer = "arp"
	LayerIPv4     Layer = "ipv4"
	LayerTCP      Layer = "tcp"
)

// DecodeError reports which layer failed and why. Err is one of the
// package sentinels.
type DecodeError struct {
	Layer Layer
	Err   error
	Need  int
	Have  int
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: %v (need %d bytes, have %d)", e.Layer, e.Err, e.Need, e.Have)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Reason is a short snake_case name for Err, suitable as a metric label.
func (e *DecodeError) Reason() string {
	switch {
	case errors.Is(e.Err, ErrTooShort):
		return "too_short"
	case errors.Is(e.Err, ErrHeaderLengthExceedsPacket):
		return "header_length_exceeds_packet"
	case errors.Is(e.Err, ErrBadHeaderLength):
		return "bad_header_length"
	default:
		return "other"
	}
}

func decodeErr(layer Layer, err error, need, have int) error {
	return &DecodeError{Layer: layer, Err: err, Need: need, Have: have}
}
