// Package cmd implements CLI commands using cobra framework.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
	selfName   string
	modeFlag   string
	sortFlag   string
	exportPath string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "photometer",
	Short: "Photometer - passive combat meter for reliable-UDP game traffic",
	Long: `Photometer observes game traffic on the local machine and aggregates
damage and healing for the local player's party, without touching the
game client.

It captures UDP datagrams (live or from a pcap file), reassembles the
reliable-transport fragments, decodes the typed parameter tables inside,
and feeds the resulting events through identity tracking and session
management into ranked per-actor views.

Sessions can follow fights (battle mode), map changes (zone mode), or
manual start/stop. Snapshots export as JSON.`,
	Version: "0.1.0",
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "",
		"config file path")
	rootCmd.PersistentFlags().StringVar(&selfName, "self", "",
		"local player name to seed identity tracking")
	rootCmd.PersistentFlags().StringVar(&modeFlag, "mode", "",
		"session mode: battle, zone or manual")
	rootCmd.PersistentFlags().StringVar(&sortFlag, "sort", "damage",
		"actor ranking column: damage, heal, dps or hps")
	rootCmd.PersistentFlags().StringVarP(&exportPath, "export", "o", "",
		"write the final snapshot as JSON to this file (- for stdout)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(replayCmd)
}

// exitWithError prints error message and exits with code 1
func exitWithError(msg string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", msg)
	}
	os.Exit(1)
}
