package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/jihwankim/haultruck/pkg/logentry"
	"github.com/jihwankim/haultruck/pkg/logging"
	"github.com/jihwankim/haultruck/pkg/syncutil"
	"github.com/jihwankim/haultruck/pkg/vehicle"
)

// PublishEntry is implemented by anything downstream (telemetry) that the
// Data Collector forwards each tick's state snapshot to, and notifies once
// per appended Log Entry (the entry itself is not passed along). Observe
// runs every tick regardless of whether any other transport
// (MQTT) is enabled, so telemetry gauges update independent of the bus.
type PublishEntry interface {
	Observe(vehicle.State)
	RecordLogEntry()
}

// DataCollector snapshots state, consumes pending mode/emergency/target
// events to derive an event description, appends a Log Entry to the
// sink, and publishes the state snapshot downstream (spec.md §4.12). Sink failures are
// logged and retried the next tick; they never block the controller.
type DataCollector struct {
	shared *syncutil.SharedState
	bus    *syncutil.EventBus
	sink   *logentry.Sink
	log    *logging.Logger
	export PublishEntry
}

// NewDataCollector constructs the task. export may be nil if telemetry
// is not wired.
func NewDataCollector(shared *syncutil.SharedState, bus *syncutil.EventBus, sink *logentry.Sink, log *logging.Logger, export PublishEntry) *DataCollector {
	return &DataCollector{shared: shared, bus: bus, sink: sink, log: log, export: export}
}

// Tick builds and persists one Log Entry.
func (d *DataCollector) Tick(ctx context.Context) error {
	snap := d.shared.Snapshot()

	if d.export != nil {
		d.export.Observe(snap)
	}

	entry := logentry.Entry{
		Timestamp:       time.Now(),
		TruckID:         snap.TruckID,
		Status:          snap.Status.String(),
		Mode:            snap.Mode.String(),
		PositionX:       snap.X,
		PositionY:       snap.Y,
		Theta:           snap.Theta,
		Velocity:        snap.Velocity,
		Temperature:     snap.Temperature,
		ElectricalFault: snap.ElectricalFault,
		HydraulicFault:  snap.HydraulicFault,
		EventDesc:       d.describeEvent(),
	}

	if err := d.sink.Append(entry); err != nil {
		d.log.Warn("log entry append failed, will retry next tick", "error", err)
		return fmt.Errorf("append log entry: %w", err)
	}

	if d.export != nil {
		d.export.RecordLogEntry()
	}
	return nil
}

func (d *DataCollector) describeEvent() string {
	if ev, ok := d.bus.TryPop(syncutil.EventModeChanged); ok {
		return fmt.Sprintf("mode changed to %v", ev.Payload)
	}
	if _, ok := d.bus.TryPop(syncutil.EventEmergencyStop); ok {
		return "emergency stop triggered"
	}
	if _, ok := d.bus.TryPop(syncutil.EventEmergencyReset); ok {
		return "emergency reset"
	}
	if _, ok := d.bus.TryPop(syncutil.EventTargetReached); ok {
		return "target reached"
	}
	return "Status normal"
}
