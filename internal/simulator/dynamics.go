// Package simulator is the reference sensordata.Reader: it integrates a
// first-order-inertia unicycle model driven by the last commanded
// actuators, adds per-channel Gaussian sensor noise, and derives a
// synthetic temperature from speed and throttle, mirroring the original
// prototype's simulation harness (spec.md §6's "simulated sensor
// source").
package simulator

import (
	"math"
	"sync"

	"github.com/jihwankim/haultruck/pkg/vehicle"
)

// Parameters are the physical constants of the unicycle model.
type Parameters struct {
	MaxVelocity        float64
	MaxAngularVelocity float64
	TauVelocity        float64
	TauAngular         float64
	Period             float64
}

// Dynamics integrates the vehicle's pose one step at a time from
// commanded acceleration/steering, using a first-order inertia filter
// so velocity and angular velocity approach their target smoothly
// rather than jumping.
type Dynamics struct {
	mu     sync.Mutex
	params Parameters

	x, y, theta     float64
	velocity        float64
	angularVelocity float64
}

// NewDynamics constructs the model at the given initial pose.
func NewDynamics(params Parameters, x, y, theta float64) *Dynamics {
	return &Dynamics{params: params, x: x, y: y, theta: vehicle.WrapAngle(theta)}
}

// Step advances the model by one period under the given commands and
// returns the resulting pose and velocity.
func (d *Dynamics) Step(accelCmd, steerCmd float64) (x, y, theta, velocity float64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	accelCmd = vehicle.ClampActuator(accelCmd)
	steerCmd = vehicle.ClampActuator(steerCmd)

	dt := d.params.Period
	targetVelocity := accelCmd * d.params.MaxVelocity
	targetAngular := steerCmd * d.params.MaxAngularVelocity

	d.velocity += (targetVelocity - d.velocity) * dt / d.params.TauVelocity
	d.angularVelocity += (targetAngular - d.angularVelocity) * dt / d.params.TauAngular

	d.x += d.velocity * math.Cos(d.theta) * dt
	d.y += d.velocity * math.Sin(d.theta) * dt
	d.theta = vehicle.WrapAngle(d.theta + d.angularVelocity*dt)

	return d.x, d.y, d.theta, d.velocity
}

// SetPosition overrides the current pose, e.g. to seed a scenario.
func (d *Dynamics) SetPosition(x, y, theta float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.x, d.y, d.theta = x, y, vehicle.WrapAngle(theta)
}

// EmergencyStop zeroes velocity and angular velocity immediately,
// without touching position.
func (d *Dynamics) EmergencyStop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.velocity = 0
	d.angularVelocity = 0
}
