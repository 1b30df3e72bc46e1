// Package cmd implements the protoscope command line using cobra.
package cmd

import (
	"errors"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"protoscope/internal/config"
	"protoscope/internal/engine"
	"protoscope/internal/log"
)

var (
	// Global flags
	configFile string
	logLevel   string

	cfg      *config.Config
	capturer engine.Capturer
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "protoscope",
	Short: "Decode Ethernet, ARP, IPv4 and TCP headers from captures",
	Long: `protoscope decodes raw Ethernet frames layer by layer: Ethernet II,
then ARP or IPv4, then TCP. It verifies IPv4 header and TCP checksums and
keeps every payload it does not interpret as raw bytes.

Frames come from pcap/pcapng files, live interfaces, or browser uploads
when running as a websocket server.`,
	Version:           "0.1.0",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

// Execute adds all child commands to the root command and runs it.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logrus.WithError(err).Error("protoscope failed")
		os.Exit(1)
	}
}

// SetCapturer installs the live capture backend used by capture and serve.
func SetCapturer(c engine.Capturer) {
	capturer = c
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"config file path (yaml, json or toml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"log level override (debug, info, warn, error)")

	rootCmd.AddCommand(decodeCmd)
	rootCmd.AddCommand(captureCmd)
	rootCmd.AddCommand(interfacesCmd)
	rootCmd.AddCommand(serveCmd)
}

func setup(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load(configFile)
	if err != nil {
		return err
	}
	if logLevel != "" {
		loaded.Log.Level = logLevel
	}
	if err := loaded.Validate(); err != nil {
		return err
	}
	if err := log.Init(nil, loaded.Log); err != nil {
		return err
	}
	cfg = loaded
	return nil
}

var errNoLiveCapture = errors.New("live capture is not available in this build")

func requireCapturer() (engine.Capturer, error) {
	if capturer == nil {
		return nil, errNoLiveCapture
	}
	return capturer, nil
}
