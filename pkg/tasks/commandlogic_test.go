package tasks

import (
	"context"
	"io"
	"testing"

	"github.com/jihwankim/haultruck/pkg/command"
	"github.com/jihwankim/haultruck/pkg/logging"
	"github.com/jihwankim/haultruck/pkg/syncutil"
	"github.com/jihwankim/haultruck/pkg/vehicle"
)

func silentLogger() *logging.Logger {
	return logging.New(logging.Config{Output: io.Discard})
}

func TestCommandLogicEnableDisableAutomatic(t *testing.T) {
	shared := syncutil.NewSharedState(1, 0, 0, 0)
	queue := command.NewQueue(8)
	bus := syncutil.NewEventBus()
	cl := NewCommandLogic(shared, queue, bus, silentLogger())

	queue.Push(command.New(command.EnableAutomatic, command.SourceLocal))
	if err := cl.Tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}
	snap := shared.Snapshot()
	if snap.Mode != vehicle.ModeAutomaticRemote {
		t.Fatalf("mode = %v, want AUTOMATIC_REMOTE", snap.Mode)
	}
	if snap.Status != vehicle.StatusRunning {
		t.Fatalf("status = %v, want RUNNING", snap.Status)
	}
	if _, ok := bus.TryPop(syncutil.EventModeChanged); !ok {
		t.Error("expected MODE_CHANGED event")
	}

	queue.Push(command.New(command.DisableAutomatic, command.SourceLocal))
	if err := cl.Tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if shared.Snapshot().Mode != vehicle.ModeManualLocal {
		t.Error("expected mode back to MANUAL_LOCAL")
	}
}

func TestCommandLogicEnableAutomaticRejectedWithFault(t *testing.T) {
	shared := syncutil.NewSharedState(1, 0, 0, 0)
	queue := command.NewQueue(8)
	bus := syncutil.NewEventBus()
	cl := NewCommandLogic(shared, queue, bus, silentLogger())

	on := true
	shared.SetFaults(syncutil.FaultUpdate{Electrical: &on})

	queue.Push(command.New(command.EnableAutomatic, command.SourceLocal))
	if err := cl.Tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if shared.Snapshot().Mode != vehicle.ModeManualLocal {
		t.Error("ENABLE_AUTOMATIC should be rejected while has_fault")
	}
}

func TestCommandLogicFaultLatchAndReset(t *testing.T) {
	shared := syncutil.NewSharedState(1, 0, 0, 0)
	queue := command.NewQueue(8)
	bus := syncutil.NewEventBus()
	cl := NewCommandLogic(shared, queue, bus, silentLogger())

	bus.Emit(syncutil.EventElectricalFault, nil)
	if err := cl.Tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}
	snap := shared.Snapshot()
	if snap.Status != vehicle.StatusFault {
		t.Fatalf("status = %v, want FAULT", snap.Status)
	}
	if !snap.ElectricalFault {
		t.Error("expected ElectricalFault latched true")
	}

	// Remote commands other than RESET_FAULT/RESET_EMERGENCY are rejected
	// while in FAULT.
	queue.Push(command.New(command.EnableAutomatic, command.SourceRemote))
	if err := cl.Tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if shared.Snapshot().Status != vehicle.StatusFault {
		t.Error("status should remain FAULT after rejected remote command")
	}

	queue.Push(command.New(command.ResetFault, command.SourceRemote))
	if err := cl.Tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}
	snap = shared.Snapshot()
	if snap.Status != vehicle.StatusStopped {
		t.Fatalf("status = %v, want STOPPED after RESET_FAULT", snap.Status)
	}
	if snap.ElectricalFault {
		t.Error("expected ElectricalFault cleared after RESET_FAULT")
	}
	if _, ok := bus.TryPop(syncutil.EventFaultCleared); !ok {
		t.Error("expected FAULT_CLEARED emitted by RESET_FAULT")
	}
}

func TestCommandLogicEmergencyStopAndReset(t *testing.T) {
	shared := syncutil.NewSharedState(1, 0, 0, 0)
	queue := command.NewQueue(8)
	bus := syncutil.NewEventBus()
	cl := NewCommandLogic(shared, queue, bus, silentLogger())

	shared.UpdateActuators(0.5, -0.5)
	queue.Push(command.New(command.EmergencyStop, command.SourceLocal))
	if err := cl.Tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}
	snap := shared.Snapshot()
	if snap.Status != vehicle.StatusEmergency {
		t.Fatalf("status = %v, want EMERGENCY", snap.Status)
	}
	if snap.AccelerationCmd != 0 || snap.SteeringCmd != 0 {
		t.Error("expected actuators zeroed on EMERGENCY_STOP")
	}
	if _, ok := bus.TryPop(syncutil.EventEmergencyStop); !ok {
		t.Error("expected EMERGENCY_STOP event")
	}

	queue.Push(command.New(command.ResetEmergency, command.SourceLocal))
	if err := cl.Tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}
	snap = shared.Snapshot()
	if snap.Status != vehicle.StatusStopped {
		t.Fatalf("status = %v, want STOPPED after RESET_EMERGENCY", snap.Status)
	}
	if snap.EmergencyStop {
		t.Error("expected EmergencyStop flag cleared")
	}
}

func TestCommandLogicManualActuatorAdjust(t *testing.T) {
	shared := syncutil.NewSharedState(1, 0, 0, 0)
	queue := command.NewQueue(8)
	bus := syncutil.NewEventBus()
	cl := NewCommandLogic(shared, queue, bus, silentLogger())

	queue.Push(command.NewWithValue(command.Accelerate, 0.7, command.SourceLocal))
	queue.Push(command.NewWithValue(command.Brake, -0.5, command.SourceLocal))
	if err := cl.Tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if got, want := shared.Snapshot().AccelerationCmd, -0.5; got != want {
		t.Errorf("AccelerationCmd = %v, want %v (last writer wins)", got, want)
	}

	queue.Push(command.NewWithValue(command.SteerLeft, -0.3, command.SourceLocal))
	if err := cl.Tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if got, want := shared.Snapshot().SteeringCmd, -0.3; got != want {
		t.Errorf("SteeringCmd = %v, want %v", got, want)
	}
}

func TestCommandLogicRejectsActuatorAdjustWhileAutomatic(t *testing.T) {
	shared := syncutil.NewSharedState(1, 0, 0, 0)
	queue := command.NewQueue(8)
	bus := syncutil.NewEventBus()
	cl := NewCommandLogic(shared, queue, bus, silentLogger())
	shared.SetMode(vehicle.ModeAutomaticRemote)

	queue.Push(command.NewWithValue(command.Accelerate, 0.9, command.SourceLocal))
	if err := cl.Tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if shared.Snapshot().AccelerationCmd != 0 {
		t.Error("manual actuator command should be a no-op while AUTOMATIC_REMOTE")
	}
}
