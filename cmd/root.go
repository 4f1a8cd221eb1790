// Package cmd implements CLI commands using cobra framework.
package cmd

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "strix",
	Short: "Strix - layered packet header codec",
	Long: `Strix is a declarative codec for layered binary protocol headers.
Protocols are described once as an ordered field schema; strix handles
dissection, field mutation, change tracking and byte-exact re-serialization,
with protocols nested by body composition (ethernet / ip / tcp).

The CLI replays capture files or single hex-encoded frames through the
bundled reference layers and prints the decoded representation.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path")
}
