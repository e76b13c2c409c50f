package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jihwankim/haultruck/pkg/emergency"
)

var estopCmd = &cobra.Command{
	Use:   "estop <stop-file-path>",
	Args:  cobra.ExactArgs(1),
	Short: "Write or clear the emergency stop file a truckctl run process polls for",
	Long: `Writes the stop file at the given path, which a running truckctl run
process started with --stop-file at the same path notices on its next poll
and turns into a local EMERGENCY_STOP. Pass --clear to remove it instead,
letting a subsequent run start untripped.`,
	RunE: runEstop,
}

func init() {
	estopCmd.Flags().Bool("clear", false, "remove the stop file instead of creating it")
	rootCmd.AddCommand(estopCmd)
}

func runEstop(cmd *cobra.Command, args []string) error {
	path := args[0]
	clear, _ := cmd.Flags().GetBool("clear")

	watcher := emergency.New(nil, emergency.Config{StopFile: path})

	if clear {
		if err := watcher.RemoveStopFile(); err != nil {
			return fmt.Errorf("clear stop file: %w", err)
		}
		fmt.Printf("cleared stop file %s\n", path)
		return nil
	}

	if err := watcher.CreateStopFile(); err != nil {
		return fmt.Errorf("create stop file: %w", err)
	}
	fmt.Printf("wrote stop file %s\n", path)
	return nil
}
