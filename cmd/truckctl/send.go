package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jihwankim/haultruck/pkg/bus"
	"github.com/jihwankim/haultruck/pkg/command"
	"github.com/jihwankim/haultruck/pkg/localctl"
)

var sendCmd = &cobra.Command{
	Use:   "send <command>",
	Args:  cobra.ExactArgs(1),
	Short: "Send a command to a running truck",
	Long: `By default, delivers one command (e.g. ENABLE_AUTOMATIC, ACCELERATE,
RESET_FAULT) over the local Unix domain socket of a truckctl run process on
this machine, tagged as a local command. Pass --remote to publish it over
MQTT instead, tagged as a remote command and subject to Command Logic's
fault/emergency arbitration (spec.md §4.8).`,
	RunE: sendCommand,
}

func init() {
	sendCmd.Flags().Uint64("truck-id", 1, "truck identifier")
	sendCmd.Flags().Float64("value", 0, "command magnitude, for ACCELERATE/BRAKE/STEER_*")
	sendCmd.Flags().Bool("has-value", false, "attach --value to the payload even if it is zero")
	sendCmd.Flags().Bool("remote", false, "publish over MQTT instead of the local socket")
	sendCmd.Flags().String("local-socket", "", "local command socket path (default localctl.DefaultSocketPath(truck-id))")
}

func sendCommand(cmd *cobra.Command, args []string) error {
	name := args[0]
	if _, ok := command.ParseType(name); !ok {
		return fmt.Errorf("unknown command %q", name)
	}

	truckID, _ := cmd.Flags().GetUint64("truck-id")
	value, _ := cmd.Flags().GetFloat64("value")
	hasValue, _ := cmd.Flags().GetBool("has-value")
	remote, _ := cmd.Flags().GetBool("remote")
	localSocket, _ := cmd.Flags().GetString("local-socket")

	var valuePtr *float64
	if hasValue || value != 0 {
		valuePtr = &value
	}

	if remote {
		return sendRemote(truckID, name, valuePtr)
	}

	if localSocket == "" {
		localSocket = localctl.DefaultSocketPath(truckID)
	}
	if err := localctl.Send(localSocket, localctl.Frame{Type: name, Value: valuePtr}, 5*time.Second); err != nil {
		return fmt.Errorf("send local command: %w", err)
	}

	fmt.Printf("sent %s to truck %d (local)\n", name, truckID)
	return nil
}

func sendRemote(truckID uint64, name string, value *float64) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	client, err := bus.Connect(cfg.MQTT.BrokerURL, cfg.MQTT.ClientID+"-send", truckID, cfg.MQTT.QoS)
	if err != nil {
		return fmt.Errorf("connect mqtt: %w", err)
	}
	defer client.Close()

	payload := bus.CommandPayload{Type: name, Value: value}
	if err := client.PublishCommand(payload); err != nil {
		return fmt.Errorf("publish command: %w", err)
	}

	fmt.Printf("sent %s to truck %d (remote)\n", name, truckID)
	return nil
}
