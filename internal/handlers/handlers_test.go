package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"protoscope/internal/capture"
	"protoscope/internal/config"
	"protoscope/internal/engine"
	"protoscope/internal/models"
	"protoscope/internal/testutil"
)

type stubCapturer struct{}

func (stubCapturer) ListInterfaces() ([]models.InterfaceInfo, error) {
	return []models.InterfaceInfo{{Name: "eth0", Description: "test"}}, nil
}

func (stubCapturer) Open(cfg config.CaptureConfig) (capture.Source, error) {
	return nil, errors.New("no capture in tests")
}

func newServer(t *testing.T) (*httptest.Server, *engine.Engine) {
	t.Helper()
	eng := engine.New(stubCapturer{}, config.CaptureConfig{})
	mux := http.NewServeMux()
	RegisterRoutes(mux, eng, config.ServeConfig{MaxUploadSize: 1 << 20})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, eng
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func roundTrip(t *testing.T, conn *websocket.Conn, msg models.WSMessage) models.WSMessage {
	t.Helper()
	require.NoError(t, conn.WriteJSON(msg))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var reply models.WSMessage
	require.NoError(t, conn.ReadJSON(&reply))
	return reply
}

func TestWebSocketCommands(t *testing.T) {
	srv, _ := newServer(t)
	conn := dial(t, srv)

	reply := roundTrip(t, conn, models.WSMessage{Type: "bogus"})
	assert.Equal(t, models.TypeError, reply.Type)
	var e models.ErrorPayload
	require.NoError(t, json.Unmarshal(reply.Payload, &e))
	assert.Equal(t, "unknown command: bogus", e.Message)

	reply = roundTrip(t, conn, models.WSMessage{Type: models.CmdGetInterfaces})
	assert.Equal(t, models.TypeInterfaces, reply.Type)
	var ifaces []models.InterfaceInfo
	require.NoError(t, json.Unmarshal(reply.Payload, &ifaces))
	require.Len(t, ifaces, 1)
	assert.Equal(t, "eth0", ifaces[0].Name)

	reply = roundTrip(t, conn, models.WSMessage{Type: models.CmdStartCapture, Payload: json.RawMessage(`{"interface":"eth0"}`)})
	assert.Equal(t, models.TypeError, reply.Type)
	require.NoError(t, json.Unmarshal(reply.Payload, &e))
	assert.Equal(t, "capture failed: no capture in tests", e.Message)

	reply = roundTrip(t, conn, models.WSMessage{Type: models.CmdStartCapture, Payload: json.RawMessage(`[1]`)})
	assert.Equal(t, models.TypeError, reply.Type)
}

func TestWebSocketInvalidJSON(t *testing.T) {
	srv, _ := newServer(t)
	conn := dial(t, srv)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{")))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var reply models.WSMessage
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, models.TypeError, reply.Type)
}

func pcapBytes(t *testing.T, frames ...[]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := pcapgo.NewWriter(&buf)
	require.NoError(t, w.WriteFileHeader(65535, layers.LinkTypeEthernet))
	for _, f := range frames {
		ci := gopacket.CaptureInfo{Timestamp: time.Unix(1700000000, 0), CaptureLength: len(f), Length: len(f)}
		require.NoError(t, w.WritePacket(ci, f))
	}
	return buf.Bytes()
}

func upload(t *testing.T, srv *httptest.Server, content []byte) *http.Response {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "trace.pcap")
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, err := http.Post(srv.URL+"/api/upload", mw.FormDataContentType(), &body)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestUploadStreamsPackets(t *testing.T) {
	srv, _ := newServer(t)
	conn := dial(t, srv)

	// The client is registered once it has answered a command.
	roundTrip(t, conn, models.WSMessage{Type: models.CmdGetInterfaces})

	resp := upload(t, srv, pcapBytes(t, testutil.ARPRequest(t), testutil.Truncated()))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var stats models.CaptureStats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	assert.Equal(t, 2, stats.PacketCount)
	assert.Equal(t, 1, stats.DecodeErrors)

	var types []string
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for len(types) < 3 {
		var msg models.WSMessage
		require.NoError(t, conn.ReadJSON(&msg))
		types = append(types, msg.Type)
	}
	assert.Equal(t, []string{models.TypePacket, models.TypePacket, models.TypeFileLoaded}, types)
}

func TestUploadRejectsGarbage(t *testing.T) {
	srv, _ := newServer(t)
	resp := upload(t, srv, []byte("definitely not pcap"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err := http.Get(srv.URL + "/api/upload")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestDecodeEndpoint(t *testing.T) {
	srv, _ := newServer(t)

	resp, err := http.Post(srv.URL+"/api/decode", "application/octet-stream", bytes.NewReader(testutil.ARPRequest(t)))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var info models.PacketInfo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&info))
	assert.Equal(t, "ARP", info.Protocol)

	resp2, err := http.Post(srv.URL+"/api/decode?format=text", "application/octet-stream", bytes.NewReader(testutil.ARPRequest(t)))
	require.NoError(t, err)
	defer resp2.Body.Close()
	text, err := io.ReadAll(resp2.Body)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(text), "Ethernet Frame:\n"))
	assert.Contains(t, string(text), "ARP Packet:")

	resp3, err := http.Post(srv.URL+"/api/decode", "application/octet-stream", bytes.NewReader(testutil.Truncated()))
	require.NoError(t, err)
	defer resp3.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp3.StatusCode)
	require.NoError(t, json.NewDecoder(resp3.Body).Decode(&info))
	assert.Equal(t, "Malformed", info.Protocol)
}

func TestInfoEndpoints(t *testing.T) {
	srv, _ := newServer(t)

	for path, want := range map[string]int{
		"/api/interfaces": http.StatusOK,
		"/api/stats":      http.StatusOK,
		"/healthz":        http.StatusOK,
		"/metrics":        http.StatusOK,
	} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err, path)
		resp.Body.Close()
		assert.Equal(t, want, resp.StatusCode, path)
	}
}
