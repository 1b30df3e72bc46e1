// Package engine drives capture sources through the decoder and
// broadcasts the results to websocket clients.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"protoscope/internal/capture"
	"protoscope/internal/config"
	"protoscope/internal/metrics"
	"protoscope/internal/models"
	"protoscope/internal/parser"
)

const (
	paceBatch = 200
	paceDelay = 5 * time.Millisecond
)

var statsInterval = time.Second

// Client represents a connected WebSocket client that receives packets.
type Client interface {
	SendMessage(msg models.WSMessage) error
}

// Capturer opens live capture sources.
type Capturer interface {
	ListInterfaces() ([]models.InterfaceInfo, error)
	Open(cfg config.CaptureConfig) (capture.Source, error)
}

type statser interface {
	Stats() (received, dropped int, err error)
}

// Engine manages capture sessions and broadcasts packets to clients.
type Engine struct {
	capturer Capturer
	defaults config.CaptureConfig

	mu        sync.Mutex
	clients   map[Client]bool
	capturing bool
	iface     string
	cancel    context.CancelFunc
	done      chan struct{}
	pktCount  int
	errCount  int
	dropped   int
}

// New creates a new Engine. defaults fill in whatever a
// StartCaptureRequest leaves unset.
func New(capturer Capturer, defaults config.CaptureConfig) *Engine {
	return &Engine{
		capturer: capturer,
		defaults: defaults,
		clients:  make(map[Client]bool),
	}
}

// RegisterClient adds a client to receive packet broadcasts.
func (e *Engine) RegisterClient(c Client) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.clients[c] = true
}

// UnregisterClient removes a client.
func (e *Engine) UnregisterClient(c Client) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.clients, c)
}

// GetInterfaces returns available network interfaces.
func (e *Engine) GetInterfaces() ([]models.InterfaceInfo, error) {
	return e.capturer.ListInterfaces()
}

// Capturing reports whether a live capture is running.
func (e *Engine) Capturing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.capturing
}

// Stats returns counters for the current or most recent session.
func (e *Engine) Stats() models.CaptureStats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return models.CaptureStats{
		PacketCount:   e.pktCount,
		DecodeErrors:  e.errCount,
		DroppedCount:  e.dropped,
		InterfaceName: e.iface,
	}
}

// StartCapture begins a live capture on the given interface.
func (e *Engine) StartCapture(req models.StartCaptureRequest) error {
	cfg := e.defaults
	if req.Interface != "" {
		cfg.Interface = req.Interface
	}
	if req.BPFFilter != "" {
		cfg.BPFFilter = req.BPFFilter
	}
	if req.SnapLen > 0 {
		cfg.SnapLen = req.SnapLen
	}

	if err := e.checkIdle(); err != nil {
		return err
	}

	src, err := e.capturer.Open(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	e.mu.Lock()
	if e.capturing {
		running := e.iface
		e.mu.Unlock()
		cancel()
		src.Close()
		return fmt.Errorf("capture already running on %s", running)
	}
	e.capturing = true
	e.iface = cfg.Interface
	e.cancel = cancel
	e.done = done
	e.pktCount, e.errCount, e.dropped = 0, 0, 0
	e.mu.Unlock()

	log.WithFields(log.Fields{"interface": cfg.Interface, "filter": cfg.BPFFilter}).Info("capture started")
	payload, _ := json.Marshal(map[string]string{"interfaceName": cfg.Interface})
	e.broadcast(models.WSMessage{Type: models.TypeCaptureStarted, Payload: payload})

	go e.run(ctx, src, cfg.Interface, done)
	return nil
}

func (e *Engine) checkIdle() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.capturing {
		return fmt.Errorf("capture already running on %s", e.iface)
	}
	return nil
}

// StopCapture stops the active capture and waits for its loop to exit.
func (e *Engine) StopCapture() {
	e.mu.Lock()
	if !e.capturing {
		e.mu.Unlock()
		return
	}
	e.capturing = false
	cancel, done := e.cancel, e.done
	e.mu.Unlock()

	// Clients hear about the stop before the source finishes closing.
	e.broadcast(models.WSMessage{Type: models.TypeCaptureStopped})
	cancel()
	<-done
}

func (e *Engine) run(ctx context.Context, src capture.Source, iface string, done chan struct{}) {
	defer close(done)
	defer src.Close()

	start := time.Now()
	loopCtx, stopStats := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(loopCtx)

	g.Go(func() error {
		defer stopStats()
		_, err := Drain(gctx, src, "live", func(pkt parser.Packet) error {
			e.count(pkt)
			e.emit(parser.Parse(pkt, start))
			return nil
		})
		return err
	})
	if st, ok := src.(statser); ok {
		g.Go(func() error {
			return e.pollStats(gctx, st, iface)
		})
	}

	err := g.Wait()
	metrics.CaptureDropped.DeleteLabelValues(iface)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).WithField("interface", iface).Error("capture failed")
		e.sendError(fmt.Sprintf("capture on %s failed: %v", iface, err))
	}

	// The source ended on its own; StopCapture already handled its own stop.
	e.mu.Lock()
	ended := e.capturing && e.done == done
	if ended {
		e.capturing = false
	}
	stats := models.CaptureStats{PacketCount: e.pktCount, DecodeErrors: e.errCount, DroppedCount: e.dropped, InterfaceName: iface}
	e.mu.Unlock()

	log.WithFields(log.Fields{"interface": iface, "packets": stats.PacketCount, "malformed": stats.DecodeErrors}).Info("capture finished")
	if ended {
		e.broadcast(models.WSMessage{Type: models.TypeCaptureStopped})
	}
}

func (e *Engine) pollStats(ctx context.Context, st statser, iface string) error {
	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		_, dropped, err := st.Stats()
		if err != nil {
			log.WithError(err).Warn("capture stats unavailable")
			continue
		}
		metrics.CaptureDropped.WithLabelValues(iface).Set(float64(dropped))

		e.mu.Lock()
		e.dropped = dropped
		stats := models.CaptureStats{PacketCount: e.pktCount, DecodeErrors: e.errCount, DroppedCount: dropped, InterfaceName: iface}
		e.mu.Unlock()

		payload, _ := json.Marshal(stats)
		e.broadcast(models.WSMessage{Type: models.TypeCaptureStats, Payload: payload})
	}
}

// LoadPcapFile reads a pcap or pcapng file and streams its packets to all
// clients with pacing.
func (e *Engine) LoadPcapFile(ctx context.Context, path string) error {
	reader, err := capture.OpenFile(path)
	if err != nil {
		return err
	}
	defer reader.Close()
	return e.load(ctx, reader)
}

// LoadPcap is LoadPcapFile for an already open stream, such as an upload.
func (e *Engine) LoadPcap(ctx context.Context, r io.Reader, name string) error {
	reader, err := capture.NewReader(r, name)
	if err != nil {
		return err
	}
	return e.load(ctx, reader)
}

func (e *Engine) load(ctx context.Context, reader *capture.FileReader) error {
	name := reader.Name()
	e.mu.Lock()
	e.pktCount, e.errCount, e.dropped = 0, 0, 0
	e.iface = ""
	e.mu.Unlock()

	var firstTS time.Time
	n, err := Drain(ctx, reader, "file", func(pkt parser.Packet) error {
		if firstTS.IsZero() {
			firstTS = pkt.CI.Timestamp
		}
		e.count(pkt)
		e.emit(parser.Parse(pkt, firstTS))

		// Yield every batch so clients can keep up.
		if pkt.Number%paceBatch == 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(paceDelay):
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("load %s: %w", name, err)
	}

	stats := e.Stats()
	log.WithFields(log.Fields{"file": name, "packets": n, "malformed": stats.DecodeErrors}).Info("capture file loaded")
	payload, _ := json.Marshal(stats)
	e.broadcast(models.WSMessage{Type: models.TypeFileLoaded, Payload: payload})
	return nil
}

func (e *Engine) count(pkt parser.Packet) {
	e.mu.Lock()
	e.pktCount++
	if pkt.Err != nil {
		e.errCount++
	}
	e.mu.Unlock()
}

func (e *Engine) emit(info models.PacketInfo) {
	payload, err := json.Marshal(info)
	if err != nil {
		log.WithError(err).Error("marshal packet")
		return
	}
	e.broadcast(models.WSMessage{Type: models.TypePacket, Payload: payload})
}

func (e *Engine) sendError(message string) {
	payload, _ := json.Marshal(models.ErrorPayload{Message: message})
	e.broadcast(models.WSMessage{Type: models.TypeError, Payload: payload})
}

func (e *Engine) broadcast(msg models.WSMessage) {
	e.mu.Lock()
	clients := make([]Client, 0, len(e.clients))
	for c := range e.clients {
		clients = append(clients, c)
	}
	e.mu.Unlock()

	for _, c := range clients {
		if err := c.SendMessage(msg); err != nil {
			log.WithError(err).Debug("send to client failed")
		}
	}
}
