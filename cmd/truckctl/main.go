package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
	version = "dev" // Will be set by build flags
)

var rootCmd = &cobra.Command{
	Use:   "truckctl",
	Short: "Controller and command-line interface for an autonomous mine haul truck",
	Long: `truckctl runs and operates the embedded controller for an autonomous mine
haul truck: a fixed set of periodic tasks sharing one vehicle state, driven
by local or remote commands, publishing telemetry and an append-only trip
log.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(routeCmd)
	rootCmd.AddCommand(statusCmd)
}

// Commands are defined in separate files:
// - runCmd in run.go
// - sendCmd in send.go
// - routeCmd in route.go
// - statusCmd in status.go
// - estopCmd in estop.go (self-registers in its own init)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
