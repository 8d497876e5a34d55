package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gameobs/photometer/internal/log"
	"github.com/gameobs/photometer/internal/source"
)

// replayCmd meters a previously captured pcap file.
var replayCmd = &cobra.Command{
	Use:   "replay [file]",
	Short: "Meter traffic from a pcap capture file",
	Long: `Replay a pcap file through the full pipeline.

Timestamps come from the capture file, so session boundaries and rate
windows reproduce exactly what a live run would have shown.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		path := ""
		if len(args) > 0 {
			path = args[0]
		}
		if err := runReplay(path); err != nil {
			exitWithError("replay failed", err)
		}
	},
}

func runReplay(path string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if path == "" {
		path = cfg.Capture.PcapFile
	}
	if path == "" {
		return fmt.Errorf("no capture file: pass a path or set capture.pcap_file")
	}

	src, err := source.OpenPcap(path, cfg.Capture.BPF)
	if err != nil {
		return err
	}
	log.GetLogger().WithField("file", path).Info("replay started")
	return runEngine(cfg, src, false)
}
