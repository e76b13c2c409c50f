package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jihwankim/haultruck/pkg/bus"
	"github.com/jihwankim/haultruck/pkg/route"
)

var routeCmd = &cobra.Command{
	Use:   "route <file.yaml>",
	Args:  cobra.ExactArgs(1),
	Short: "Publish a waypoint list to a running truck over MQTT",
	Long:  `Loads a waypoint list YAML file and publishes it to the truck's route topic.`,
	RunE:  sendRoute,
}

func init() {
	routeCmd.Flags().Uint64("truck-id", 1, "truck identifier")
}

func sendRoute(cmd *cobra.Command, args []string) error {
	waypoints, err := route.Load(args[0])
	if err != nil {
		return fmt.Errorf("load route: %w", err)
	}

	truckID, _ := cmd.Flags().GetUint64("truck-id")

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	client, err := bus.Connect(cfg.MQTT.BrokerURL, cfg.MQTT.ClientID+"-route", truckID, cfg.MQTT.QoS)
	if err != nil {
		return fmt.Errorf("connect mqtt: %w", err)
	}
	defer client.Close()

	payload := bus.RoutePayload{Waypoints: make([][2]float64, len(waypoints))}
	for i, wp := range waypoints {
		payload.Waypoints[i] = [2]float64{wp.X, wp.Y}
	}

	if err := client.PublishRoute(payload); err != nil {
		return fmt.Errorf("publish route: %w", err)
	}

	fmt.Printf("sent %d waypoints to truck %d\n", len(waypoints), truckID)
	return nil
}
