// Package live opens libpcap captures on network interfaces.
package live

import (
	"context"
	"fmt"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"

	"protoscope/internal/capture"
	"protoscope/internal/config"
	"protoscope/internal/models"
)

const (
	DefaultSnapLen = 65535
	DefaultTimeout = 100 * time.Millisecond
)

// Capture is a live capture session. It implements capture.Source.
type Capture struct {
	handle *pcap.Handle
	iface  string
}

// ListInterfaces returns all available capture interfaces.
func ListInterfaces() ([]models.InterfaceInfo, error) {
	devs, err := pcap.FindAllDevs()
	if err != nil {
		return nil, fmt.Errorf("list interfaces: %w", err)
	}
	var out []models.InterfaceInfo
	for _, d := range devs {
		info := models.InterfaceInfo{
			Name:        d.Name,
			Description: d.Description,
		}
		for _, addr := range d.Addresses {
			info.Addresses = append(info.Addresses, addr.IP.String())
		}
		out = append(out, info)
	}
	return out, nil
}

// Open starts a live capture described by cfg.
func Open(cfg config.CaptureConfig) (*Capture, error) {
	if cfg.Interface == "" {
		return nil, fmt.Errorf("open live capture: no interface given")
	}
	snapLen := cfg.SnapLen
	if snapLen <= 0 {
		snapLen = DefaultSnapLen
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	handle, err := pcap.OpenLive(cfg.Interface, int32(snapLen), cfg.Promiscuous, timeout)
	if err != nil {
		return nil, fmt.Errorf("open live capture on %s: %w", cfg.Interface, err)
	}
	if lt := handle.LinkType(); lt != layers.LinkTypeEthernet {
		handle.Close()
		return nil, fmt.Errorf("interface %s has link type %s: %w", cfg.Interface, lt, capture.ErrUnsupportedLinkType)
	}
	if cfg.BPFFilter != "" {
		if err := handle.SetBPFFilter(cfg.BPFFilter); err != nil {
			handle.Close()
			return nil, fmt.Errorf("set BPF filter %q: %w", cfg.BPFFilter, err)
		}
	}
	return &Capture{handle: handle, iface: cfg.Interface}, nil
}

// ReadFrame blocks until a frame arrives or ctx is done. The read timeout
// of the handle bounds how long a cancellation can go unnoticed.
func (c *Capture) ReadFrame(ctx context.Context) ([]byte, gopacket.CaptureInfo, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, gopacket.CaptureInfo{}, err
		}
		data, ci, err := c.handle.ReadPacketData()
		switch err {
		case nil:
			return data, ci, nil
		case pcap.NextErrorTimeoutExpired:
			continue
		default:
			return nil, ci, fmt.Errorf("read frame on %s: %w", c.iface, err)
		}
	}
}

// Interface returns the interface name.
func (c *Capture) Interface() string {
	return c.iface
}

// Stats returns capture statistics.
func (c *Capture) Stats() (received, dropped int, err error) {
	stats, err := c.handle.Stats()
	if err != nil {
		return 0, 0, err
	}
	return stats.PacketsReceived, stats.PacketsDropped, nil
}

// Close stops the capture.
func (c *Capture) Close() error {
	if c.handle != nil {
		c.handle.Close()
	}
	return nil
}

// Opener adapts this package to engine.Capturer.
type Opener struct{}

// ListInterfaces implements engine.Capturer.
func (Opener) ListInterfaces() ([]models.InterfaceInfo, error) { return ListInterfaces() }

// Open implements engine.Capturer.
func (Opener) Open(cfg config.CaptureConfig) (capture.Source, error) {
	c, err := Open(cfg)
	if err != nil {
		return nil, err
	}
	return c, nil
}
