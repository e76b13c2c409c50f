package tasks

import (
	"context"
	"time"

	"github.com/jihwankim/haultruck/pkg/control"
	"github.com/jihwankim/haultruck/pkg/syncutil"
	"github.com/jihwankim/haultruck/pkg/vehicle"
)

// NavigationControl runs the velocity and heading PID loops, performs
// bumpless transfer on the manual/automatic edge, and mirrors
// measurements into the setpoints while manual so that a later
// automatic transition starts from zero error (spec.md §4.9).
type NavigationControl struct {
	shared   *syncutil.SharedState
	bus      *syncutil.EventBus
	velocity *control.PID
	heading  *control.PID

	prevAutomatic bool
	lastTick      time.Time
}

// NewNavigationControl constructs the task with its two PID loops.
func NewNavigationControl(shared *syncutil.SharedState, bus *syncutil.EventBus, velocity, heading *control.PID) *NavigationControl {
	return &NavigationControl{shared: shared, bus: bus, velocity: velocity, heading: heading}
}

// Tick performs one control step.
func (n *NavigationControl) Tick(ctx context.Context) error {
	now := time.Now()
	dt := 0.0
	if !n.lastTick.IsZero() {
		dt = now.Sub(n.lastTick).Seconds()
	}
	n.lastTick = now

	if _, ok := n.bus.TryPop(syncutil.EventEmergencyStop); ok {
		n.velocity.Disable()
		n.heading.Disable()
		n.shared.UpdateActuators(0, 0)
	}

	snap := n.shared.Snapshot()

	automatic := snap.IsAutomatic()
	if automatic && !n.prevAutomatic {
		n.velocity.Enable(snap.AccelerationCmd)
		n.heading.Enable(snap.SteeringCmd)
	} else if !automatic && n.prevAutomatic {
		n.velocity.Disable()
		n.heading.Disable()
	}
	n.prevAutomatic = automatic

	switch {
	case snap.Status == vehicle.StatusEmergency || snap.HasFault():
		n.shared.UpdateActuators(0, 0)
	case automatic:
		if dt <= 0 {
			return nil
		}
		accel := n.velocity.Update(snap.VelocitySetpoint, snap.Velocity, dt)
		steer := n.heading.Update(snap.AngularSetpoint, snap.Theta, dt)
		n.shared.UpdateActuators(accel, steer)
	default:
		v, theta := snap.Velocity, snap.Theta
		n.shared.SetSetpoints(&v, &theta)
	}

	return nil
}
