package tasks

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/jihwankim/haultruck/pkg/logentry"
	"github.com/jihwankim/haultruck/pkg/syncutil"
	"github.com/jihwankim/haultruck/pkg/vehicle"
)

type countingExporter struct{ n int }

func (c *countingExporter) Observe(vehicle.State) {}

func (c *countingExporter) RecordLogEntry() { c.n++ }

func TestDataCollectorAppendsEntryAndDescribesEvent(t *testing.T) {
	dir := t.TempDir()
	sink, err := logentry.NewSink(dir, 7)
	if err != nil {
		t.Fatalf("new sink: %v", err)
	}
	defer sink.Close()

	shared := syncutil.NewSharedState(7, 1, 2, 0)
	bus := syncutil.NewEventBus()
	bus.Emit(syncutil.EventModeChanged, vehicle.ModeAutomaticRemote.String())
	exporter := &countingExporter{}
	dc := NewDataCollector(shared, bus, sink, silentLogger(), exporter)

	if err := dc.Tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if exporter.n != 1 {
		t.Errorf("expected exporter to be notified once, got %d", exporter.n)
	}

	contents, err := os.ReadFile(sink.Path())
	if err != nil {
		t.Fatalf("read sink file: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(contents)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header + 1 entry, got %d lines", len(lines))
	}
	if !strings.Contains(lines[1], "mode changed to AUTOMATIC_REMOTE") {
		t.Errorf("entry line = %q, missing mode-changed description", lines[1])
	}
}

func TestDataCollectorDefaultsToStatusNormal(t *testing.T) {
	dir := t.TempDir()
	sink, err := logentry.NewSink(dir, 9)
	if err != nil {
		t.Fatalf("new sink: %v", err)
	}
	defer sink.Close()

	shared := syncutil.NewSharedState(9, 0, 0, 0)
	bus := syncutil.NewEventBus()
	dc := NewDataCollector(shared, bus, sink, silentLogger(), nil)

	if err := dc.Tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}
	contents, _ := os.ReadFile(sink.Path())
	if !strings.Contains(string(contents), "Status normal") {
		t.Error("expected default event description 'Status normal'")
	}
}
