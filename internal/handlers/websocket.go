package handlers

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"protoscope/internal/engine"
	"protoscope/internal/models"
)

const (
	writeWait  = 5 * time.Second
	sendBuffer = 512 // packets are dropped when full
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WSClient wraps a WebSocket connection and implements engine.Client.
type WSClient struct {
	conn   *websocket.Conn
	eng    *engine.Engine
	sendCh chan models.WSMessage
	done   chan struct{}

	mu     sync.Mutex
	closed bool
}

// NewWSClient creates a WSClient and registers it with the engine.
func NewWSClient(conn *websocket.Conn, eng *engine.Engine) *WSClient {
	c := &WSClient{
		conn:   conn,
		eng:    eng,
		sendCh: make(chan models.WSMessage, sendBuffer),
		done:   make(chan struct{}),
	}
	eng.RegisterClient(c)
	go c.writeLoop()
	return c
}

// SendMessage queues a message for async delivery. It never blocks: packets
// are dropped when the buffer is full, control messages evict a queued one.
func (c *WSClient) SendMessage(msg models.WSMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}

	select {
	case c.sendCh <- msg:
		return nil
	default:
	}
	if msg.Type == models.TypePacket {
		return nil
	}
	select {
	case <-c.sendCh:
	default:
	}
	select {
	case c.sendCh <- msg:
	default:
	}
	return nil
}

// writeLoop drains the send channel and writes to the WebSocket.
func (c *WSClient) writeLoop() {
	defer c.conn.Close()
	for {
		select {
		case msg, ok := <-c.sendCh:
			if !ok {
				return
			}
			if err := c.write(msg); err != nil {
				return
			}

			// Flush whatever queued up meanwhile in one burst.
			n := len(c.sendCh)
			for i := 0; i < n; i++ {
				msg, ok = <-c.sendCh
				if !ok {
					return
				}
				if err := c.write(msg); err != nil {
					return
				}
			}
		case <-c.done:
			return
		}
	}
}

func (c *WSClient) write(msg models.WSMessage) error {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteJSON(msg); err != nil {
		log.WithError(err).Debug("websocket write failed")
		return err
	}
	return nil
}

// ReadLoop reads messages from the client and dispatches commands.
func (c *WSClient) ReadLoop() {
	defer func() {
		c.eng.UnregisterClient(c)
		c.mu.Lock()
		c.closed = true
		close(c.done)
		close(c.sendCh)
		c.mu.Unlock()
	}()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.WithError(err).Debug("websocket closed")
			}
			return
		}
		var msg models.WSMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.sendError("invalid message format")
			continue
		}
		c.handleCommand(msg)
	}
}

func (c *WSClient) handleCommand(msg models.WSMessage) {
	switch msg.Type {
	case models.CmdGetInterfaces:
		ifaces, err := c.eng.GetInterfaces()
		if err != nil {
			c.sendError("failed to list interfaces: " + err.Error())
			return
		}
		payload, _ := json.Marshal(ifaces)
		c.SendMessage(models.WSMessage{Type: models.TypeInterfaces, Payload: payload})

	case models.CmdStartCapture:
		var req models.StartCaptureRequest
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			c.sendError("invalid start_capture payload")
			return
		}
		if err := c.eng.StartCapture(req); err != nil {
			log.WithError(err).WithField("interface", req.Interface).Warn("start capture")
			c.sendError("capture failed: " + err.Error())
			return
		}

	case models.CmdStopCapture:
		c.eng.StopCapture()

	default:
		c.sendError("unknown command: " + msg.Type)
	}
}

func (c *WSClient) sendError(message string) {
	payload, _ := json.Marshal(models.ErrorPayload{Message: message})
	c.SendMessage(models.WSMessage{Type: models.TypeError, Payload: payload})
}

// HandleWebSocket is the HTTP handler for WebSocket upgrades.
func HandleWebSocket(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.WithError(err).Warn("websocket upgrade")
			return
		}
		log.WithField("remote", r.RemoteAddr).Debug("websocket client connected")
		client := NewWSClient(conn, eng)
		client.ReadLoop()
	}
}
