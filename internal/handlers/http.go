// Package handlers exposes the engine over HTTP and WebSocket.
package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/gopacket"
	log "github.com/sirupsen/logrus"

	"protoscope/internal/config"
	"protoscope/internal/engine"
	"protoscope/internal/format"
	"protoscope/internal/metrics"
	"protoscope/internal/parser"
)

// maxFrameSize bounds a single frame posted to /api/decode.
const maxFrameSize = 256 << 10

// RegisterRoutes sets up all HTTP routes on the given mux.
func RegisterRoutes(mux *http.ServeMux, eng *engine.Engine, cfg config.ServeConfig) {
	mux.HandleFunc("/ws", HandleWebSocket(eng))
	mux.HandleFunc("/api/upload", handleUpload(eng, cfg.MaxUploadSize))
	mux.HandleFunc("/api/decode", handleDecode)
	mux.HandleFunc("/api/interfaces", handleInterfaces(eng))
	mux.HandleFunc("/api/stats", handleStats(eng))
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
}

func handleUpload(eng *engine.Engine, maxUploadSize int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST only", http.StatusMethodNotAllowed)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
		if err := r.ParseMultipartForm(maxUploadSize); err != nil {
			http.Error(w, fmt.Sprintf("File too large (max %d bytes)", maxUploadSize), http.StatusBadRequest)
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "Missing file", http.StatusBadRequest)
			return
		}
		defer file.Close()

		// Stop any active capture before loading file
		eng.StopCapture()

		if err := eng.LoadPcap(r.Context(), file, header.Filename); err != nil {
			log.WithError(err).WithField("file", header.Filename).Warn("upload rejected")
			http.Error(w, "Failed to read pcap: "+err.Error(), http.StatusBadRequest)
			return
		}

		writeJSON(w, http.StatusOK, eng.Stats())
	}
}

// handleDecode decodes one raw frame from the request body. The reply is
// the JSON display model, or the text rendering with ?format=text.
// Malformed frames are answered with 422.
func handleDecode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxFrameSize))
	if err != nil {
		http.Error(w, "Frame too large", http.StatusRequestEntityTooLarge)
		return
	}

	ci := gopacket.CaptureInfo{Timestamp: time.Now(), CaptureLength: len(data), Length: len(data)}
	pkt := parser.Decode(1, data, ci)
	status := http.StatusOK
	if pkt.Err != nil {
		status = http.StatusUnprocessableEntity
	}

	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(status)
		if pkt.Err != nil {
			fmt.Fprintln(w, pkt.Err)
			return
		}
		io.WriteString(w, format.Frame(pkt.Frame))
		return
	}
	writeJSON(w, status, parser.Parse(pkt, time.Time{}))
}

func handleInterfaces(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ifaces, err := eng.GetInterfaces()
		if err != nil {
			http.Error(w, "Failed to list interfaces: "+err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, ifaces)
	}
}

func handleStats(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, eng.Stats())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Debug("write response")
	}
}
