package tasks

import (
	"context"
	"math"

	"github.com/jihwankim/haultruck/pkg/syncutil"
	"github.com/jihwankim/haultruck/pkg/vehicle"
)

// CollisionAvoidance watches the peer cache for trucks ahead and, when
// automatic, slows or stops the truck to avoid them, overriding Route
// Planner's setpoints at 5x its frequency with the default periods
// (100 ms vs 500 ms) so overrides are reasserted before the next planner
// tick (spec.md §4.11).
type CollisionAvoidance struct {
	shared          *syncutil.SharedState
	safetyDistance  float64
	warningDistance float64

	active bool
}

// NewCollisionAvoidance constructs the task with its safety/warning
// distance thresholds.
func NewCollisionAvoidance(shared *syncutil.SharedState, safetyDistance, warningDistance float64) *CollisionAvoidance {
	return &CollisionAvoidance{shared: shared, safetyDistance: safetyDistance, warningDistance: warningDistance}
}

// Tick runs one avoidance check.
func (c *CollisionAvoidance) Tick(ctx context.Context) error {
	if !c.shared.IsAutomatic() {
		c.active = false
		return nil
	}

	snap := c.shared.Snapshot()
	peers := c.shared.Peers()

	closestDist := math.Inf(1)
	var closest vehicle.Peer
	found := false

	for _, p := range peers {
		dx, dy := p.X-snap.X, p.Y-snap.Y
		d := math.Hypot(dx, dy)
		bearing := vehicle.WrapAngle(math.Atan2(dy, dx) - snap.Theta)
		if math.Abs(bearing) >= math.Pi/4 || d >= 2*c.warningDistance {
			continue
		}
		if d < closestDist {
			closestDist = d
			closest = p
			found = true
		}
	}

	if !found {
		c.active = false
		return nil
	}

	switch {
	case closestDist < c.safetyDistance:
		c.active = true
		zero := 0.0
		c.shared.SetSetpoints(&zero, nil)

	case closestDist < c.warningDistance:
		c.active = true
		factor := clampRange((closestDist-c.safetyDistance)/(c.warningDistance-c.safetyDistance), 0.3, 1.0)
		reduced := snap.VelocitySetpoint * factor

		dx, dy := closest.X-snap.X, closest.Y-snap.Y
		angleToOther := math.Atan2(dy, dx)
		cross := math.Sin(vehicle.WrapAngle(angleToOther - snap.Theta))
		offset := math.Pi / 6
		var avoidAngle float64
		if cross >= 0 {
			avoidAngle = vehicle.WrapAngle(snap.Theta - offset)
		} else {
			avoidAngle = vehicle.WrapAngle(snap.Theta + offset)
		}
		c.shared.SetSetpoints(&reduced, &avoidAngle)

	default:
		c.active = false
	}

	return nil
}

// Active reports whether avoidance is currently overriding setpoints.
func (c *CollisionAvoidance) Active() bool { return c.active }
