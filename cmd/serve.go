package cmd

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"protoscope/internal/capture"
	"protoscope/internal/config"
	"protoscope/internal/engine"
	"protoscope/internal/handlers"
	"protoscope/internal/models"
)

const shutdownTimeout = 5 * time.Second

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Stream decoded frames to browsers over websocket",
	Long: `Run an HTTP server exposing:
  /ws              websocket: live capture control and decoded frames
  /api/upload      POST a pcap or pcapng file to decode
  /api/decode      POST one raw frame, get its decoded layers back
  /api/interfaces  capture interfaces
  /api/stats       counters of the current session
  /metrics         Prometheus metrics`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("addr") {
			cfg.Serve.Addr = serveAddr
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		var c engine.Capturer = unavailableCapturer{}
		if capturer != nil {
			c = capturer
		}

		ln, err := net.Listen("tcp", cfg.Serve.Addr)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runServe(ctx, ln, engine.New(c, cfg.Capture), cfg.Serve)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default :8080)")
}

// runServe serves on ln until ctx is done, then shuts down gracefully.
func runServe(ctx context.Context, ln net.Listener, eng *engine.Engine, sc config.ServeConfig) error {
	mux := http.NewServeMux()
	handlers.RegisterRoutes(mux, eng, sc)
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logrus.WithField("addr", ln.Addr().String()).Info("protoscope listening")
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		eng.StopCapture()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logrus.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

type unavailableCapturer struct{}

func (unavailableCapturer) ListInterfaces() ([]models.InterfaceInfo, error) {
	return nil, errNoLiveCapture
}

func (unavailableCapturer) Open(config.CaptureConfig) (capture.Source, error) {
	return nil, errNoLiveCapture
}
