package tasks

import (
	"context"
	"fmt"

	"github.com/jihwankim/haultruck/pkg/sensordata"
	"github.com/jihwankim/haultruck/pkg/syncutil"
)

// FaultMonitoring reads the raw fault sensors every tick and emits edge-
// triggered events when a fault condition starts or clears (spec.md
// §4.7/§4.12). It never mutates Vehicle State itself — Command Logic is
// the sole writer of the fault bits (see SPEC_FULL.md's resolved Open
// Question).
type FaultMonitoring struct {
	reader     sensordata.Reader
	bus        *syncutil.EventBus
	tempThresh float64

	prevTemp bool
	prevElec bool
	prevHydr bool
}

// NewFaultMonitoring constructs the task with the configured critical
// temperature threshold.
func NewFaultMonitoring(reader sensordata.Reader, bus *syncutil.EventBus, tempThreshold float64) *FaultMonitoring {
	return &FaultMonitoring{reader: reader, bus: bus, tempThresh: tempThreshold}
}

// ClearedPayload is the event payload for FAULT_CLEARED events.
type ClearedPayload struct {
	Kind string
}

// Tick reads sensors once and emits edge-triggered fault/clear events.
func (f *FaultMonitoring) Tick(ctx context.Context) error {
	sample, err := f.reader.Read()
	if err != nil {
		return fmt.Errorf("read sensor sample: %w", err)
	}

	tempFault := sample.Temperature > f.tempThresh
	if tempFault && !f.prevTemp {
		f.bus.Emit(syncutil.EventTemperatureFault, sample.Temperature)
	} else if !tempFault && f.prevTemp {
		f.bus.Emit(syncutil.EventFaultCleared, ClearedPayload{Kind: "temperature"})
	}
	f.prevTemp = tempFault

	if sample.ElectricalFault && !f.prevElec {
		f.bus.Emit(syncutil.EventElectricalFault, nil)
	} else if !sample.ElectricalFault && f.prevElec {
		f.bus.Emit(syncutil.EventFaultCleared, ClearedPayload{Kind: "electrical"})
	}
	f.prevElec = sample.ElectricalFault

	if sample.HydraulicFault && !f.prevHydr {
		f.bus.Emit(syncutil.EventHydraulicFault, nil)
	} else if !sample.HydraulicFault && f.prevHydr {
		f.bus.Emit(syncutil.EventFaultCleared, ClearedPayload{Kind: "hydraulic"})
	}
	f.prevHydr = sample.HydraulicFault

	return nil
}
