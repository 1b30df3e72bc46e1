package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"protoscope/internal/capture"
	"protoscope/internal/config"
	"protoscope/internal/engine"
	"protoscope/internal/format"
	"protoscope/internal/parser"
)

var decodeCmd = &cobra.Command{
	Use:   "decode <file>",
	Short: "Decode every frame of a pcap or pcapng file",
	Long: `Decode every frame of a pcap or pcapng file and print each layer.

Malformed frames are reported inline and do not stop the run.

Examples:
  protoscope decode trace.pcap
  protoscope decode -c 10 --hex trace.pcapng`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		applyOutputFlags(cmd)
		src, err := capture.OpenFile(args[0])
		if err != nil {
			return err
		}
		defer src.Close()

		n, err := runDecode(cmd.Context(), src, "file", cfg.Output, cmd.OutOrStdout())
		logrus.WithFields(logrus.Fields{"file": args[0], "frames": n}).Info("decode finished")
		return err
	},
}

var (
	hexDump    bool
	frameCount int
)

func init() {
	for _, c := range []*cobra.Command{decodeCmd, captureCmd} {
		c.Flags().BoolVar(&hexDump, "hex", false, "print a hex dump of every frame")
		c.Flags().IntVarP(&frameCount, "count", "c", 0, "stop after this many frames (0 means no limit)")
	}
}

func applyOutputFlags(cmd *cobra.Command) {
	if cmd.Flags().Changed("hex") {
		cfg.Output.HexDump = hexDump
	}
	if cmd.Flags().Changed("count") {
		cfg.Output.Count = frameCount
	}
}

// runDecode prints every frame of src to w and returns how many were read.
func runDecode(ctx context.Context, src capture.Source, kind string, out config.OutputConfig, w io.Writer) (int, error) {
	return engine.Drain(ctx, src, kind, func(pkt parser.Packet) error {
		writePacket(w, pkt, out.HexDump)
		if out.Count > 0 && pkt.Number >= out.Count {
			return engine.ErrStop
		}
		return nil
	})
}

func writePacket(w io.Writer, pkt parser.Packet, hex bool) {
	fmt.Fprintf(w, "Frame %d: %d bytes captured (%d on wire) at %s\n",
		pkt.Number, len(pkt.Data), pkt.CI.Length, pkt.CI.Timestamp.UTC().Format(time.RFC3339Nano))
	if pkt.Err != nil {
		fmt.Fprintf(w, "  malformed: %v\n", pkt.Err)
	} else {
		io.WriteString(w, format.Frame(pkt.Frame))
	}
	if hex {
		io.WriteString(w, parser.HexDump(pkt.Data))
	}
	fmt.Fprintln(w)
}
