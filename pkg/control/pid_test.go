package control

import (
	"math"
	"testing"
)

func TestPIDDisabledReturnsZero(t *testing.T) {
	p := NewPID(1, 0, 0, false)
	if out := p.Update(10, 0, 0.1); out != 0 {
		t.Fatalf("expected 0 from disabled controller, got %v", out)
	}
}

func TestPIDBumplessTransfer(t *testing.T) {
	p := NewPID(0, 1, 0, false)
	p.Enable(0.42)
	// With error 0 and no proportional/derivative gain, the first output
	// should equal the seeded integral: the last manual actuator command.
	out := p.Update(5, 5, 0.1)
	if math.Abs(out-0.42) > 1e-9 {
		t.Fatalf("expected bumpless output 0.42, got %v", out)
	}
}

func TestPIDOutputClamped(t *testing.T) {
	p := NewPID(10, 0, 0, false)
	p.Enable(0)
	out := p.Update(100, 0, 0.1)
	if out != 1.0 {
		t.Fatalf("expected clamp to 1.0, got %v", out)
	}
}

func TestPIDHeadingWrapsError(t *testing.T) {
	p := NewPID(1, 0, 0, true)
	p.Enable(0)
	// Setpoint and measurement on opposite sides of the +/-pi branch cut;
	// the wrapped error should be small, not near 2*pi.
	out := p.Update(-3.13, 3.13, 0.1)
	if math.Abs(out) > 0.1 {
		t.Fatalf("expected small output from wrapped near-zero error, got %v", out)
	}
}

func TestPIDBumplessTransferWithDefaultVelocityGains(t *testing.T) {
	// Gains match config.Default()'s velocity PID (spec.md §6): Kp=0.5,
	// Ki=0.1, Kd=0.05. At the bumpless-transfer instant Navigation Control
	// mirrors setpoint=measurement while manual (err=0) and this is the
	// controller's first Update call (derivative=0), so the entire output
	// comes from ki*integral; Enable must seed integral as lastOutput/ki
	// so that product is exactly lastOutput.
	p := NewPID(0.5, 0.1, 0.05, false)
	p.Enable(0.4)
	out := p.Update(5, 5, 0.1)
	if math.Abs(out-0.4) > 1e-9 {
		t.Fatalf("expected first automatic-mode output to equal seeded 0.4 exactly, got %v", out)
	}
}

func TestPIDDisableThenEnablePreservesBumplessSeed(t *testing.T) {
	p := NewPID(0, 1, 0, false)
	p.Enable(0.2)
	p.Update(5, 5, 0.1)
	p.Disable()
	if out := p.Update(5, 0, 0.1); out != 0 {
		t.Fatalf("expected 0 while disabled, got %v", out)
	}
	p.Enable(0.7)
	out := p.Update(5, 5, 0.1)
	if math.Abs(out-0.7) > 1e-9 {
		t.Fatalf("expected re-enable to seed 0.7, got %v", out)
	}
}
