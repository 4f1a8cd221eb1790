package cmd

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/google/gopacket/pcapgo"
	"github.com/spf13/cobra"

	"firestige.xyz/strix/internal/config"
	"firestige.xyz/strix/internal/log"
	"firestige.xyz/strix/internal/metrics"
	"firestige.xyz/strix/pkg/layers"
	"firestige.xyz/strix/pkg/packet"
)

var (
	hexFrame   string
	maxPackets int
)

var dissectCmd = &cobra.Command{
	Use:   "dissect [pcap-file]",
	Short: "Dissect captured frames and print their decoded representation",
	Long: `
Dissect frames through the bundled Ethernet/IPv4/TCP/UDP layers.

Examples:
  strix dissect capture.pcap                # replay a capture file
  strix dissect capture.pcap -c strix.yml   # with config (log, metrics, limits)
  strix dissect --hex 001122...             # a single hex-encoded frame
`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFile)
		if err != nil {
			return err
		}
		if err := log.Init(cfg.Log); err != nil {
			return err
		}
		if maxPackets > 0 {
			cfg.Dissect.MaxPackets = maxPackets
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()
		if cfg.Metrics.Enabled {
			srv := metrics.NewServer(cfg.Metrics.Listen, cfg.Metrics.Path)
			if err := srv.Start(ctx); err != nil {
				return err
			}
		}

		if hexFrame != "" {
			frame, err := hex.DecodeString(strings.TrimPrefix(hexFrame, "0x"))
			if err != nil {
				return fmt.Errorf("bad hex frame: %w", err)
			}
			dissectFrame(cmd.OutOrStdout(), frame, cfg.Dissect)
			return nil
		}
		if len(args) == 0 {
			return fmt.Errorf("need a pcap file or --hex frame")
		}
		return dissectFile(cmd.OutOrStdout(), args[0], cfg.Dissect)
	},
}

func init() {
	dissectCmd.Flags().StringVar(&hexFrame, "hex", "", "single hex-encoded frame instead of a pcap file")
	dissectCmd.Flags().IntVarP(&maxPackets, "max", "n", 0, "stop after this many packets (0 = all)")
	rootCmd.AddCommand(dissectCmd)
}

func dissectFile(w io.Writer, path string, cfg config.DissectConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open capture: %w", err)
	}
	defer f.Close()

	r, err := pcapgo.NewReader(f)
	if err != nil {
		return fmt.Errorf("read capture: %w", err)
	}
	if r.LinkType() != 1 { // LINKTYPE_ETHERNET
		slog.Warn("capture link type is not ethernet, dissection may fail", "linktype", r.LinkType())
	}

	count := 0
	for {
		data, _, err := r.ReadPacketData()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("read frame %d: %w", count, err)
		}
		dissectFrame(w, data, cfg)
		count++
		if cfg.MaxPackets > 0 && count >= cfg.MaxPackets {
			break
		}
	}
	slog.Info("capture done", "packets", count)
	return nil
}

func dissectFrame(w io.Writer, frame []byte, cfg config.DissectConfig) {
	if cfg.SnapLen > 0 && len(frame) > cfg.SnapLen {
		frame = frame[:cfg.SnapLen]
	}
	metrics.PacketsTotal.Inc()
	metrics.BytesTotal.Add(float64(len(frame)))

	p, err := packet.Parse(layers.Ethernet, frame)
	if err != nil {
		kind := "malformed"
		if packet.IsNeedData(err) {
			kind = "need_data"
		}
		metrics.DecodeErrorsTotal.WithLabelValues(kind).Inc()
		slog.Warn("dissection failed", "error", err)
		return
	}
	for l := p; l != nil; l = l.Upper() {
		metrics.LayersTotal.WithLabelValues(l.Proto().Name()).Inc()
	}
	fmt.Fprintln(w, p)
}
