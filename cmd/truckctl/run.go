package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jihwankim/haultruck/internal/simulator"
	"github.com/jihwankim/haultruck/pkg/emergency"
	"github.com/jihwankim/haultruck/pkg/localctl"
	"github.com/jihwankim/haultruck/pkg/logging"
	"github.com/jihwankim/haultruck/pkg/route"
	"github.com/jihwankim/haultruck/pkg/truck"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Args:  cobra.NoArgs,
	Short: "Run the truck controller",
	Long:  `Starts every periodic task against a simulated sensor source until interrupted.`,
	RunE:  runController,
}

func init() {
	runCmd.Flags().Uint64("truck-id", 1, "truck identifier")
	runCmd.Flags().Float64("x", 0, "initial x position")
	runCmd.Flags().Float64("y", 0, "initial y position")
	runCmd.Flags().Float64("theta", 0, "initial heading, radians")
	runCmd.Flags().String("route", "", "waypoint list YAML file to load at startup")
	runCmd.Flags().Bool("mqtt", false, "publish state and accept remote commands over MQTT")
	runCmd.Flags().Bool("telemetry", false, "serve Prometheus metrics")
	runCmd.Flags().Int64("seed", 1, "simulator noise seed")
	runCmd.Flags().Bool("noise", true, "enable simulated sensor noise")
	runCmd.Flags().String("stop-file", "", "path to poll for an emergency-stop request (disabled if empty)")
	runCmd.Flags().String("local-socket", "", "local command socket path (default localctl.DefaultSocketPath(truck-id))")
}

func runController(cmd *cobra.Command, args []string) error {
	truckID, _ := cmd.Flags().GetUint64("truck-id")
	x, _ := cmd.Flags().GetFloat64("x")
	y, _ := cmd.Flags().GetFloat64("y")
	theta, _ := cmd.Flags().GetFloat64("theta")
	routePath, _ := cmd.Flags().GetString("route")
	enableMQTT, _ := cmd.Flags().GetBool("mqtt")
	enableTel, _ := cmd.Flags().GetBool("telemetry")
	seed, _ := cmd.Flags().GetInt64("seed")
	enableNoise, _ := cmd.Flags().GetBool("noise")
	stopFile, _ := cmd.Flags().GetString("stop-file")
	localSocket, _ := cmd.Flags().GetString("local-socket")

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logLevel := logging.LevelInfo
	if verbose {
		logLevel = logging.LevelDebug
	}
	logFormat := logging.Format(cfg.Framework.LogFormat)
	log := logging.New(logging.Config{Level: logLevel, Format: logFormat})
	logging.InitGlobal(logging.Config{Level: logLevel, Format: logFormat})

	log.Info("truckctl starting", "version", version, "truck_id", truckID)

	dynParams := simulator.Parameters{
		MaxVelocity:        cfg.Vehicle.MaxVelocity,
		MaxAngularVelocity: cfg.Vehicle.MaxAngularVelocity,
		TauVelocity:        cfg.Vehicle.TauVelocity,
		TauAngular:         cfg.Vehicle.TauAngular,
		Period:             cfg.Timing.Simulation,
	}
	noise := simulator.NewChannelNoise(seed, map[string]float64{
		"position_x":  cfg.Noise.PositionX,
		"position_y":  cfg.Noise.PositionY,
		"theta":       cfg.Noise.Theta,
		"velocity":    cfg.Noise.Velocity,
		"temperature": cfg.Noise.Temperature,
	})

	// ctrlRef lets the simulator read back whatever actuator values
	// Navigation Control most recently wrote, closing the control loop
	// without the simulator depending on *truck.Controller directly.
	var ctrlRef *truck.Controller
	reader := simulator.New(dynParams, x, y, theta, noise, enableNoise, func() (float64, float64) {
		if ctrlRef == nil {
			return 0, 0
		}
		snap := ctrlRef.State()
		return snap.AccelerationCmd, snap.SteeringCmd
	})

	if localSocket == "" {
		localSocket = localctl.DefaultSocketPath(truckID)
	}
	ctrl, err := truck.New(cfg, log, truck.Options{
		TruckID:         truckID,
		InitialX:        x,
		InitialY:        y,
		InitialTheta:    theta,
		Reader:          reader,
		EnableMQTT:      enableMQTT,
		EnableTel:       enableTel,
		LocalSocketPath: localSocket,
	})
	if err != nil {
		return fmt.Errorf("build controller: %w", err)
	}
	ctrlRef = ctrl

	if routePath != "" {
		waypoints, err := route.Load(routePath)
		if err != nil {
			return fmt.Errorf("load route: %w", err)
		}
		ctrl.SetRoute(waypoints)
		log.Info("route loaded", "file", routePath, "waypoints", len(waypoints))
	}

	watcher := emergency.New(ctrl.Queue(), emergency.Config{StopFile: stopFile})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	watcher.Start(ctx)

	if err := ctrl.Run(ctx); err != nil {
		return fmt.Errorf("controller stopped: %w", err)
	}

	log.Info("truckctl shut down cleanly")
	return nil
}
