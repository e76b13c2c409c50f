package tasks

import (
	"context"
	"math"
	"testing"

	"github.com/jihwankim/haultruck/pkg/syncutil"
	"github.com/jihwankim/haultruck/pkg/vehicle"
)

func TestRoutePlannerAdvancesThroughWaypoints(t *testing.T) {
	shared := syncutil.NewSharedState(1, 0, 0, 0)
	bus := syncutil.NewEventBus()
	shared.SetMode(vehicle.ModeAutomaticRemote)
	rp := NewRoutePlanner(shared, bus, 1.0, 4)

	rp.SetRoute([]Waypoint{{X: 10, Y: 0}, {X: 10, Y: 10}})
	if err := rp.Tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if _, ok := bus.TryPop(syncutil.EventNewRoute); !ok {
		t.Error("expected NEW_ROUTE event")
	}
	snap := shared.Snapshot()
	if snap.AngularSetpoint != 0 {
		t.Errorf("AngularSetpoint = %v, want 0 (target due east)", snap.AngularSetpoint)
	}

	// Arrive at the first waypoint: the planner advances to (10, 10),
	// which lies due north of the truck.
	shared.UpdatePose(10, 0, 0, 0)
	if err := rp.Tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}
	snap = shared.Snapshot()
	if math.Abs(snap.AngularSetpoint-math.Pi/2) > 1e-9 {
		t.Errorf("AngularSetpoint = %v, want pi/2 (second waypoint due north)", snap.AngularSetpoint)
	}
	if snap.TargetX == nil || snap.TargetY == nil || *snap.TargetX != 10 || *snap.TargetY != 10 {
		t.Errorf("target = (%v, %v), want (10, 10)", snap.TargetX, snap.TargetY)
	}
}

func TestRoutePlannerWaypointExactlyAtThresholdIsReached(t *testing.T) {
	shared := syncutil.NewSharedState(1, 9.0, 0, 0)
	bus := syncutil.NewEventBus()
	shared.SetMode(vehicle.ModeAutomaticRemote)
	rp := NewRoutePlanner(shared, bus, 1.0, 4)

	rp.SetRoute([]Waypoint{{X: 10, Y: 0}})
	if err := rp.Tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if _, ok := bus.TryPop(syncutil.EventTargetReached); !ok {
		t.Fatal("waypoint exactly at waypoint_threshold distance should be treated as reached")
	}
}

func TestRoutePlannerEmitsTargetReachedAtRouteEnd(t *testing.T) {
	shared := syncutil.NewSharedState(1, 10, 0, 0)
	bus := syncutil.NewEventBus()
	shared.SetMode(vehicle.ModeAutomaticRemote)
	rp := NewRoutePlanner(shared, bus, 1.0, 4)

	rp.SetRoute([]Waypoint{{X: 10, Y: 0}})
	rp.Tick(context.Background())
	bus.Clear(syncutil.EventNewRoute)

	if err := rp.Tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if _, ok := bus.TryPop(syncutil.EventTargetReached); !ok {
		t.Fatal("expected TARGET_REACHED once the sole waypoint is reached")
	}
	snap := shared.Snapshot()
	if snap.VelocitySetpoint != 0 {
		t.Errorf("VelocitySetpoint = %v, want 0 after route exhausted", snap.VelocitySetpoint)
	}
	if snap.TargetX != nil {
		t.Error("expected target cleared after route exhausted")
	}
}

func TestRoutePlannerVelocitySetpointClamped(t *testing.T) {
	shared := syncutil.NewSharedState(1, 0, 0, 0)
	bus := syncutil.NewEventBus()
	shared.SetMode(vehicle.ModeAutomaticRemote)
	rp := NewRoutePlanner(shared, bus, 1.0, 4)

	rp.SetRoute([]Waypoint{{X: 100, Y: 0}})
	if err := rp.Tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if got, want := shared.Snapshot().VelocitySetpoint, 5.0; got != want {
		t.Errorf("VelocitySetpoint = %v, want clamped to %v", got, want)
	}
}

func TestRoutePlannerIgnoresRouteWhileManual(t *testing.T) {
	shared := syncutil.NewSharedState(1, 0, 0, 0)
	bus := syncutil.NewEventBus()
	rp := NewRoutePlanner(shared, bus, 1.0, 4)

	rp.SetRoute([]Waypoint{{X: 10, Y: 0}})
	if err := rp.Tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if shared.Snapshot().VelocitySetpoint != 0 {
		t.Error("route planner should not drive setpoints while MANUAL_LOCAL")
	}
}

func TestHypotMatchesMath(t *testing.T) {
	if got, want := hypot(3, 4), math.Hypot(3, 4); got != want {
		t.Errorf("hypot(3,4) = %v, want %v", got, want)
	}
}
