package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jihwankim/haultruck/pkg/bus"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Args:  cobra.NoArgs,
	Short: "Print a truck's most recent published state",
	Long:  `Subscribes to the truck's state topic and prints the next state publication received.`,
	RunE:  printStatus,
}

func init() {
	statusCmd.Flags().Uint64("truck-id", 1, "truck identifier")
	statusCmd.Flags().String("format", "text", "output format (text, json)")
	statusCmd.Flags().Duration("timeout", 5*time.Second, "how long to wait for a state publication")
}

func printStatus(cmd *cobra.Command, args []string) error {
	truckID, _ := cmd.Flags().GetUint64("truck-id")
	format, _ := cmd.Flags().GetString("format")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	client, err := bus.Connect(cfg.MQTT.BrokerURL, cfg.MQTT.ClientID+"-status", truckID, cfg.MQTT.QoS)
	if err != nil {
		return fmt.Errorf("connect mqtt: %w", err)
	}
	defer client.Close()

	received := make(chan bus.StatePayload, 1)
	if err := client.SubscribeState(func(p bus.StatePayload, err error) {
		if err != nil {
			return
		}
		select {
		case received <- p:
		default:
		}
	}); err != nil {
		return fmt.Errorf("subscribe state: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	select {
	case p := <-received:
		return printStatePayload(p, format)
	case <-ctx.Done():
		return fmt.Errorf("no state received from truck %d within %s", truckID, timeout)
	}
}

func printStatePayload(p bus.StatePayload, format string) error {
	if format == "json" {
		data, err := json.MarshalIndent(p, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal state: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	fmt.Printf("truck %d: %s / %s\n", p.TruckID, p.Mode, p.Status)
	fmt.Printf("  pose:        x=%.2f y=%.2f theta=%.3f\n", p.X, p.Y, p.Theta)
	fmt.Printf("  velocity:    %.2f\n", p.Velocity)
	fmt.Printf("  temperature: %.1f\n", p.Temperature)
	if p.ElectricalFault || p.HydraulicFault {
		fmt.Printf("  faults:      electrical=%v hydraulic=%v\n", p.ElectricalFault, p.HydraulicFault)
	}
	return nil
}
