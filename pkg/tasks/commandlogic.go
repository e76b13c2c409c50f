package tasks

import (
	"context"

	"github.com/jihwankim/haultruck/pkg/command"
	"github.com/jihwankim/haultruck/pkg/logging"
	"github.com/jihwankim/haultruck/pkg/syncutil"
	"github.com/jihwankim/haultruck/pkg/vehicle"
)

// CommandLogic is the sole writer of mode, status, and the fault bits,
// and (in manual mode) of the actuator commands. It drains the command
// queue every tick and drives the state machine in spec.md §4.8's
// transition table; it also drains the fault-monitoring events and
// latches FAULT status, since Fault Monitoring itself never mutates
// Vehicle State.
type CommandLogic struct {
	shared *syncutil.SharedState
	queue  *command.Queue
	bus    *syncutil.EventBus
	log    *logging.Logger
}

// NewCommandLogic constructs the task.
func NewCommandLogic(shared *syncutil.SharedState, queue *command.Queue, bus *syncutil.EventBus, log *logging.Logger) *CommandLogic {
	return &CommandLogic{shared: shared, queue: queue, bus: bus, log: log}
}

// Tick drains pending fault events, then pending commands, applying
// each against the current state in order.
func (c *CommandLogic) Tick(ctx context.Context) error {
	c.drainFaultEvents()

	for _, cmd := range c.queue.Drain() {
		c.apply(cmd)
	}
	return nil
}

func (c *CommandLogic) drainFaultEvents() {
	for _, t := range []syncutil.EventType{
		syncutil.EventTemperatureFault,
		syncutil.EventElectricalFault,
		syncutil.EventHydraulicFault,
	} {
		if ev, ok := c.bus.TryPop(t); ok {
			c.latchFault(t, ev)
		}
	}
	for {
		ev, ok := c.bus.TryPop(syncutil.EventFaultCleared)
		if !ok {
			break
		}
		c.clearLatchedFault(ev)
	}
}

func (c *CommandLogic) latchFault(t syncutil.EventType, ev syncutil.Event) {
	snap := c.shared.Snapshot()
	if snap.Status == vehicle.StatusEmergency {
		return
	}

	upd := syncutil.FaultUpdate{}
	switch t {
	case syncutil.EventTemperatureFault:
		if temp, ok := ev.Payload.(float64); ok {
			upd.Temperature = &temp
		}
	case syncutil.EventElectricalFault:
		on := true
		upd.Electrical = &on
	case syncutil.EventHydraulicFault:
		on := true
		upd.Hydraulic = &on
	}
	c.shared.SetFaults(upd)
	c.shared.SetStatus(vehicle.StatusFault)
	zero := 0.0
	c.shared.UpdateActuators(zero, zero)
	c.shared.SetSetpoints(&zero, &zero)
	c.log.Warn("fault latched", "event", t.String())
}

func (c *CommandLogic) clearLatchedFault(ev syncutil.Event) {
	payload, _ := ev.Payload.(ClearedPayload)
	switch payload.Kind {
	case "temperature":
		zero := 0.0
		c.shared.SetFaults(syncutil.FaultUpdate{Temperature: &zero})
	case "electrical":
		off := false
		c.shared.SetFaults(syncutil.FaultUpdate{Electrical: &off})
	case "hydraulic":
		off := false
		c.shared.SetFaults(syncutil.FaultUpdate{Hydraulic: &off})
	}
	c.log.Info("fault sensor cleared", "kind", payload.Kind)
}

func (c *CommandLogic) apply(cmd command.Command) {
	snap := c.shared.Snapshot()

	if cmd.Source == command.SourceRemote && (snap.Status == vehicle.StatusFault || snap.Status == vehicle.StatusEmergency) {
		if cmd.Type != command.ResetFault && cmd.Type != command.ResetEmergency {
			c.log.Info("command rejected: remote commands blocked while not operational", "command", cmd.Type.String(), "status", snap.Status.String())
			return
		}
	}

	switch cmd.Type {
	case command.EmergencyStop:
		zero := 0.0
		c.shared.UpdateActuators(zero, zero)
		c.shared.SetSetpoints(&zero, &zero)
		emergency := true
		c.shared.SetFaults(syncutil.FaultUpdate{Emergency: &emergency})
		c.bus.Emit(syncutil.EventEmergencyStop, nil)

	case command.ResetEmergency:
		if snap.Status != vehicle.StatusEmergency {
			c.log.Info("command rejected: RESET_EMERGENCY outside EMERGENCY", "status", snap.Status.String())
			return
		}
		off := false
		c.shared.SetFaults(syncutil.FaultUpdate{Emergency: &off})
		c.shared.SetMode(vehicle.ModeManualLocal)
		c.shared.SetStatus(vehicle.StatusStopped)
		c.bus.Emit(syncutil.EventEmergencyReset, nil)

	case command.ResetFault:
		if snap.Status != vehicle.StatusFault {
			c.log.Info("command rejected: RESET_FAULT outside FAULT", "status", snap.Status.String())
			return
		}
		off := false
		c.shared.SetFaults(syncutil.FaultUpdate{Electrical: &off, Hydraulic: &off})
		c.shared.SetMode(vehicle.ModeManualLocal)
		c.shared.SetStatus(vehicle.StatusStopped)
		c.bus.Emit(syncutil.EventFaultCleared, ClearedPayload{Kind: "command"})

	case command.EnableAutomatic:
		if snap.Mode != vehicle.ModeManualLocal {
			return
		}
		if snap.HasFault() {
			c.log.Info("command rejected: ENABLE_AUTOMATIC while has_fault", "truck_id", snap.TruckID)
			return
		}
		c.shared.SetMode(vehicle.ModeAutomaticRemote)
		c.shared.SetStatus(vehicle.StatusRunning)
		c.bus.Emit(syncutil.EventModeChanged, vehicle.ModeAutomaticRemote.String())

	case command.DisableAutomatic:
		if snap.Mode != vehicle.ModeAutomaticRemote {
			return
		}
		c.shared.SetMode(vehicle.ModeManualLocal)
		c.bus.Emit(syncutil.EventModeChanged, vehicle.ModeManualLocal.String())

	case command.Accelerate, command.Brake, command.MoveForward, command.MoveBackward:
		// Caller supplies a signed Value (e.g. BRAKE carries a negative
		// magnitude); adjustActuator applies it as an absolute clamp.
		c.adjustActuator(snap, cmd, true)
	case command.SteerLeft, command.SteerRight, command.TurnLeft, command.TurnRight:
		c.adjustActuator(snap, cmd, false)
	case command.Stop:
		if snap.Mode != vehicle.ModeManualLocal || snap.HasFault() {
			return
		}
		c.shared.UpdateActuators(0, 0)

	default:
		c.log.Warn("command rejected: unknown type", "command", int(cmd.Type))
	}
}

// adjustActuator applies an absolute, clamped adjustment to acceleration
// (accelerating=true) or steering (accelerating=false), per spec.md §9's
// resolved Open Question that ACCELERATE/BRAKE/STEER_* are absolute
// values, not increments.
func (c *CommandLogic) adjustActuator(snap vehicle.State, cmd command.Command, accelerating bool) {
	if snap.Mode != vehicle.ModeManualLocal || snap.HasFault() {
		return
	}
	value := 0.0
	if cmd.HasValue {
		value = cmd.Value
	}
	if accelerating {
		c.shared.UpdateActuators(value, snap.SteeringCmd)
	} else {
		c.shared.UpdateActuators(snap.AccelerationCmd, value)
	}
}
