// Package truck wires every periodic task, the shared coordination
// primitives, and the optional MQTT/telemetry ports into one runnable
// controller, grounded on the teacher's orchestrator: a single owner
// that starts a fixed set of concurrent workers under one
// cancellation and one error group (spec.md §5's "seven periodic
// tasks plus possible I/O goroutines, coordinated through shared state
// rather than message passing").
package truck

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jihwankim/haultruck/pkg/bus"
	"github.com/jihwankim/haultruck/pkg/command"
	"github.com/jihwankim/haultruck/pkg/config"
	"github.com/jihwankim/haultruck/pkg/control"
	"github.com/jihwankim/haultruck/pkg/localctl"
	"github.com/jihwankim/haultruck/pkg/logentry"
	"github.com/jihwankim/haultruck/pkg/logging"
	"github.com/jihwankim/haultruck/pkg/sensordata"
	"github.com/jihwankim/haultruck/pkg/syncutil"
	"github.com/jihwankim/haultruck/pkg/tasks"
	"github.com/jihwankim/haultruck/pkg/telemetry"
	"github.com/jihwankim/haultruck/pkg/vehicle"
)

// Controller owns one truck's full set of periodic tasks and the
// coordination primitives they share.
type Controller struct {
	cfg    *config.Config
	log    *logging.Logger
	shared *syncutil.SharedState
	events *syncutil.EventBus
	queue  *command.Queue
	buffer *syncutil.RingBuffer[sensordata.Filtered]
	sink   *logentry.Sink

	mqtt      *bus.Client
	telemetry *telemetry.Exporter
	local     *localctl.Server

	sensorProcessing *tasks.SensorProcessing
	faultMonitoring  *tasks.FaultMonitoring
	commandLogic     *tasks.CommandLogic
	navigation       *tasks.NavigationControl
	routePlanner     *tasks.RoutePlanner
	collision        *tasks.CollisionAvoidance
	dataCollector    *tasks.DataCollector
}

// Options bundles everything a Controller needs beyond cfg: the sensor
// source and, optionally, an MQTT broker to publish state to / accept
// remote commands from.
type Options struct {
	TruckID      uint64
	InitialX     float64
	InitialY     float64
	InitialTheta float64
	Reader       sensordata.Reader
	EnableMQTT   bool
	EnableTel    bool

	// LocalSocketPath is the Unix domain socket `truckctl send` (without
	// --remote) delivers commands on. Defaults to
	// localctl.DefaultSocketPath(TruckID) when empty.
	LocalSocketPath string
}

// New constructs a fully wired Controller. It does not start any task —
// call Run for that.
func New(cfg *config.Config, log *logging.Logger, opts Options) (*Controller, error) {
	shared := syncutil.NewSharedState(opts.TruckID, opts.InitialX, opts.InitialY, opts.InitialTheta)
	eventBus := syncutil.NewEventBus()
	queue := command.NewQueue(64)
	buffer := syncutil.NewRingBuffer[sensordata.Filtered](cfg.Buffer.Size)

	sink, err := logentry.NewSink(cfg.Log.Dir, opts.TruckID)
	if err != nil {
		return nil, fmt.Errorf("open log sink: %w", err)
	}

	c := &Controller{
		cfg:    cfg,
		log:    log,
		shared: shared,
		events: eventBus,
		queue:  queue,
		buffer: buffer,
		sink:   sink,

		sensorProcessing: tasks.NewSensorProcessing(opts.Reader, buffer, cfg.Filter.Order),
		faultMonitoring:  tasks.NewFaultMonitoring(opts.Reader, eventBus, cfg.Fault.TemperatureThreshold),
		commandLogic:     tasks.NewCommandLogic(shared, queue, eventBus, log.WithField("task", "command_logic")),
		navigation: tasks.NewNavigationControl(shared, eventBus,
			control.NewPID(cfg.PID.Velocity.Kp, cfg.PID.Velocity.Ki, cfg.PID.Velocity.Kd, false),
			control.NewPID(cfg.PID.Angular.Kp, cfg.PID.Angular.Ki, cfg.PID.Angular.Kd, true)),
		routePlanner: tasks.NewRoutePlanner(shared, eventBus, cfg.Route.WaypointThreshold, 4),
		collision:    tasks.NewCollisionAvoidance(shared, cfg.Avoidance.SafetyDistance, cfg.Avoidance.WarningDistance),
	}

	if opts.EnableTel {
		c.telemetry = telemetry.New(opts.TruckID)
	}
	c.dataCollector = tasks.NewDataCollector(shared, eventBus, sink, log.WithField("task", "data_collector"), c.telemetryExporter())

	if opts.EnableMQTT {
		client, err := bus.Connect(cfg.MQTT.BrokerURL, cfg.MQTT.ClientID, opts.TruckID, cfg.MQTT.QoS)
		if err != nil {
			return nil, fmt.Errorf("connect mqtt: %w", err)
		}
		c.mqtt = client
		if err := c.wireRemoteCommands(); err != nil {
			return nil, fmt.Errorf("subscribe remote commands: %w", err)
		}
	}

	socketPath := opts.LocalSocketPath
	if socketPath == "" {
		socketPath = localctl.DefaultSocketPath(opts.TruckID)
	}
	local, err := localctl.Listen(socketPath, queue)
	if err != nil {
		return nil, fmt.Errorf("listen on local command socket: %w", err)
	}
	c.local = local

	return c, nil
}

// telemetryExporter adapts c.telemetry to tasks.PublishEntry, returning
// nil (an untyped nil interface) when telemetry is disabled.
func (c *Controller) telemetryExporter() tasks.PublishEntry {
	if c.telemetry == nil {
		return nil
	}
	return c.telemetry
}

// wireRemoteCommands subscribes to the MQTT command/setpoint/route
// topics and forwards them onto the local queue, shared setpoints, and
// route planner respectively. Commands arriving this way are tagged
// command.SourceRemote: they crossed the network, so Command Logic's
// fault/emergency arbitration (spec.md §4.8) applies to them. Setpoints
// and routes do not pass through Command Logic and are applied whatever
// the current status.
func (c *Controller) wireRemoteCommands() error {
	if err := c.mqtt.SubscribeCommands(func(p bus.CommandPayload, err error) {
		if err != nil {
			c.log.Warn("dropped malformed remote command", "error", err)
			return
		}
		t, ok := command.ParseType(p.Type)
		if !ok {
			c.log.Warn("dropped unknown remote command type", "type", p.Type)
			return
		}
		if p.Value != nil {
			c.queue.Push(command.NewWithValue(t, *p.Value, command.SourceRemote))
		} else {
			c.queue.Push(command.New(t, command.SourceRemote))
		}
	}); err != nil {
		return err
	}

	if err := c.mqtt.SubscribeSetpoints(func(p bus.SetpointPayload, err error) {
		if err != nil {
			c.log.Warn("dropped malformed remote setpoint", "error", err)
			return
		}
		velocity, angular := p.Velocity, p.Angular
		c.shared.SetSetpoints(&velocity, &angular)
	}); err != nil {
		return err
	}

	return c.mqtt.SubscribeRoutes(func(p bus.RoutePayload, err error) {
		if err != nil {
			c.log.Warn("dropped malformed remote route", "error", err)
			return
		}
		waypoints := make([]tasks.Waypoint, len(p.Waypoints))
		for i, w := range p.Waypoints {
			waypoints[i] = tasks.Waypoint{X: w[0], Y: w[1]}
		}
		c.SetRoute(waypoints)
	})
}

// SetRoute pushes a new waypoint list onto the route planner.
func (c *Controller) SetRoute(waypoints []tasks.Waypoint) {
	c.routePlanner.SetRoute(waypoints)
}

// PushCommand enqueues a command directly, for in-process callers that
// do not go through the Unix socket. (The emergency watcher is handed
// Queue() instead.)
func (c *Controller) PushCommand(cmd command.Command) {
	c.queue.Push(cmd)
}

// Queue returns the command queue Command Logic drains every tick, so
// in-process producers (the emergency watcher) can push onto the same
// queue `truckctl send`'s local socket feeds.
func (c *Controller) Queue() *command.Queue {
	return c.queue
}

// State returns a snapshot of the current vehicle state.
func (c *Controller) State() vehicle.State {
	return c.shared.Snapshot()
}

// Run starts every periodic task and the optional telemetry/MQTT
// publishing loops, blocking until ctx is cancelled or a task returns a
// fatal error. Individual tick failures are swallowed by tasks.Run and
// never reach this errgroup: only a task goroutine exiting entirely
// (which none of the seven do under normal operation) stops the group.
func (c *Controller) Run(ctx context.Context) error {
	periods := c.cfg.Timing.Periods()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		tasks.Run(gctx, "sensor_processing", periods["sensor_processing"], c.log, c.sensorProcessing.Tick)
		return nil
	})
	g.Go(func() error {
		tasks.Run(gctx, "fault_monitoring", periods["fault_monitoring"], c.log, c.faultMonitoring.Tick)
		return nil
	})
	g.Go(func() error {
		tasks.Run(gctx, "command_logic", periods["command_logic"], c.log, c.commandLogic.Tick)
		return nil
	})
	g.Go(func() error {
		tasks.Run(gctx, "control", periods["control"], c.log, c.navigation.Tick)
		return nil
	})
	g.Go(func() error {
		tasks.Run(gctx, "route_planning", periods["route_planning"], c.log, c.routePlanner.Tick)
		return nil
	})
	g.Go(func() error {
		tasks.Run(gctx, "collision_avoidance", periods["collision_avoidance"], c.log, c.collision.Tick)
		return nil
	})
	g.Go(func() error {
		tasks.Run(gctx, "data_collection", periods["data_collection"], c.log, c.dataCollector.Tick)
		return nil
	})

	if c.telemetry != nil {
		g.Go(func() error {
			return c.telemetry.Serve(gctx, c.cfg.Telemetry.ListenAddr)
		})
	}
	if c.mqtt != nil {
		g.Go(func() error {
			c.publishStateLoop(gctx, periods["interface_update"])
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		c.local.Close()
		return nil
	})
	g.Go(func() error {
		if err := c.local.Serve(); err != nil && gctx.Err() == nil {
			return fmt.Errorf("local command socket: %w", err)
		}
		return nil
	})

	err := g.Wait()
	if c.mqtt != nil {
		c.mqtt.Close()
	}
	if closeErr := c.sink.Close(); closeErr != nil && err == nil {
		err = fmt.Errorf("close log sink: %w", closeErr)
	}
	return err
}

// publishStateLoop periodically publishes the full vehicle state over
// MQTT, independent of the seven control-loop tasks.
func (c *Controller) publishStateLoop(ctx context.Context, period time.Duration) {
	tick := func(ctx context.Context) error {
		snap := c.shared.Snapshot()
		return c.mqtt.PublishState(bus.StatePayload{
			TruckID:         snap.TruckID,
			X:               snap.X,
			Y:               snap.Y,
			Theta:           snap.Theta,
			Velocity:        snap.Velocity,
			Mode:            snap.Mode.String(),
			Status:          snap.Status.String(),
			Temperature:     snap.Temperature,
			ElectricalFault: snap.ElectricalFault,
			HydraulicFault:  snap.HydraulicFault,
		})
	}
	tasks.Run(ctx, "mqtt_publish", period, c.log, tick)
}
