package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gameobs/photometer/internal/log"
	"github.com/gameobs/photometer/internal/source"
)

// runCmd captures live traffic from a network interface.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Meter live traffic from a network interface",
	Long: `Capture game traffic from a network interface in promiscuous mode
and aggregate it until interrupted.

The interface comes from the --iface flag or capture.interface in the
config file. Session timers run on wall-clock time so idle fights close
even when no packets arrive.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runLive(); err != nil {
			exitWithError("run failed", err)
		}
	},
}

var ifaceFlag string

func init() {
	runCmd.Flags().StringVarP(&ifaceFlag, "iface", "i", "", "network interface to capture from")
}

func runLive() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	iface := ifaceFlag
	if iface == "" {
		iface = cfg.Capture.Interface
	}
	if iface == "" {
		return fmt.Errorf("no capture interface: set --iface or capture.interface")
	}

	src, err := source.OpenLive(iface, cfg.Capture.SnapLen, cfg.Capture.BPF)
	if err != nil {
		return err
	}
	log.GetLogger().WithField("iface", iface).Info("live capture started")
	return runEngine(cfg, src, true)
}
