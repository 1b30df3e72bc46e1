package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"protoscope/internal/engine"
)

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Decode frames from a live interface",
	Long: `Capture frames on a network interface and print each decoded layer
until interrupted or the frame count is reached.

Examples:
  protoscope capture -i eth0
  protoscope capture -i eth0 -f "tcp port 443" -c 20`,
	RunE: func(cmd *cobra.Command, args []string) error {
		applyOutputFlags(cmd)
		if cmd.Flags().Changed("interface") {
			cfg.Capture.Interface = captureIface
		}
		if cmd.Flags().Changed("filter") {
			cfg.Capture.BPFFilter = captureFilter
		}
		if cmd.Flags().Changed("snaplen") {
			cfg.Capture.SnapLen = captureSnapLen
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		c, err := requireCapturer()
		if err != nil {
			return err
		}
		src, err := c.Open(cfg.Capture)
		if err != nil {
			return err
		}
		defer src.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		logrus.WithFields(logrus.Fields{
			"interface": cfg.Capture.Interface,
			"filter":    cfg.Capture.BPFFilter,
		}).Info("capture started")
		n, err := runDecode(ctx, src, "live", cfg.Output, cmd.OutOrStdout())
		logrus.WithField("frames", n).Info("capture finished")
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

var interfacesCmd = &cobra.Command{
	Use:   "interfaces",
	Short: "List interfaces available for live capture",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireCapturer()
		if err != nil {
			return err
		}
		return runInterfaces(c, cmd.OutOrStdout())
	},
}

var (
	captureIface   string
	captureFilter  string
	captureSnapLen int
)

func init() {
	captureCmd.Flags().StringVarP(&captureIface, "interface", "i", "", "interface to capture on")
	captureCmd.Flags().StringVarP(&captureFilter, "filter", "f", "", "BPF filter expression")
	captureCmd.Flags().IntVar(&captureSnapLen, "snaplen", 0, "bytes captured per frame")
}

func runInterfaces(c engine.Capturer, w io.Writer) error {
	ifaces, err := c.ListInterfaces()
	if err != nil {
		return err
	}
	for _, i := range ifaces {
		fmt.Fprintf(w, "%s", i.Name)
		if i.Description != "" {
			fmt.Fprintf(w, " (%s)", i.Description)
		}
		for _, a := range i.Addresses {
			fmt.Fprintf(w, " %s", a)
		}
		fmt.Fprintln(w)
	}
	return nil
}
