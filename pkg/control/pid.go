// Package control implements the velocity and heading PID controllers
// described in spec.md §4.5: clamp-strategy anti-windup and bumpless
// transfer on re-enable.
package control

import "github.com/jihwankim/haultruck/pkg/vehicle"

// PID is a single-axis proportional-integral-derivative controller with
// output clamped to [-1, 1] and integral anti-windup via clamping: the
// integral term stops accumulating once the unclamped output would
// already saturate in the same direction as the error.
type PID struct {
	kp, ki, kd float64

	enabled   bool
	integral  float64
	prevError float64
	hasPrev   bool
	wrapAngle bool
}

// NewPID constructs a controller with the given gains. When wrapAngle is
// true, errors are normalized into [-π, π] before use — set this for the
// heading controller, leave it false for the velocity controller.
func NewPID(kp, ki, kd float64, wrapAngle bool) *PID {
	return &PID{kp: kp, ki: ki, kd: kd, wrapAngle: wrapAngle}
}

// Enable arms the controller with bumpless transfer: it seeds internal
// state so that the very next Update computes an output continuous with
// lastOutput, the actuator value that was in effect under manual control.
// Update's first call has err=0 and derivative=0 under mirrored setpoints,
// so its output is entirely ki*p.integral — the integral is seeded as
// lastOutput/ki (not lastOutput) so that product comes out to lastOutput.
// A zero ki can't reconstruct any lastOutput through the integral term at
// all, so the seed is left at zero in that case.
func (p *PID) Enable(lastOutput float64) {
	p.enabled = true
	if p.ki != 0 {
		p.integral = clamp(lastOutput) / p.ki
	} else {
		p.integral = 0
	}
	p.prevError = 0
	p.hasPrev = false
}

// Disable stops the controller. Update on a disabled controller always
// returns 0 without touching internal state, so a later Enable still
// transfers bumplessly from whatever lastOutput it's given.
func (p *PID) Disable() {
	p.enabled = false
}

// Enabled reports whether the controller is currently armed.
func (p *PID) Enabled() bool { return p.enabled }

// Update computes one control step given the setpoint, the current
// measurement, and the elapsed time since the previous call, and
// returns the clamped actuator command.
func (p *PID) Update(setpoint, measurement, dt float64) float64 {
	if !p.enabled || dt <= 0 {
		return 0
	}

	err := setpoint - measurement
	if p.wrapAngle {
		err = vehicle.WrapAngle(err)
	}

	derivative := 0.0
	if p.hasPrev {
		derivative = (err - p.prevError) / dt
	}
	p.prevError = err
	p.hasPrev = true

	candidateIntegral := p.integral + err*dt
	unclamped := p.kp*err + p.ki*candidateIntegral + p.kd*derivative
	output := clamp(unclamped)

	// Anti-windup: only accept the new integral if doing so didn't push
	// the output past saturation, or if it's pulling back toward zero.
	if output == unclamped || sameSign(err, -p.integral) {
		p.integral = candidateIntegral
	}

	return output
}

func clamp(v float64) float64 {
	if v > 1.0 {
		return 1.0
	}
	if v < -1.0 {
		return -1.0
	}
	return v
}

func sameSign(a, b float64) bool {
	return (a > 0 && b > 0) || (a < 0 && b < 0)
}
