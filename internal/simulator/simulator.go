package simulator

import (
	"sync"
	"time"

	"github.com/jihwankim/haultruck/pkg/sensordata"
)

// Simulator is the reference sensordata.Reader backing the controller
// when no physical truck is attached: it feeds the last commanded
// actuators through Dynamics, derives a synthetic temperature, adds
// per-channel noise, and lets tests/CLIs inject electrical/hydraulic
// faults directly.
type Simulator struct {
	mu       sync.Mutex
	dynamics *Dynamics
	noise    *ChannelNoise
	noiseOn  bool
	actuator func() (accel, steer float64)

	electricalFault bool
	hydraulicFault  bool
}

// New constructs a Simulator. actuator is called once per Read to fetch
// the currently commanded acceleration/steering pair (typically
// *syncutil.SharedState.Snapshot, adapted by the caller).
func New(params Parameters, x, y, theta float64, noise *ChannelNoise, enableNoise bool, actuator func() (accel, steer float64)) *Simulator {
	return &Simulator{
		dynamics: NewDynamics(params, x, y, theta),
		noise:    noise,
		noiseOn:  enableNoise,
		actuator: actuator,
	}
}

// Read advances the simulation by one step and returns the resulting
// (possibly noisy) sensor sample.
func (s *Simulator) Read() (sensordata.Sample, error) {
	accel, steer := s.actuator()
	x, y, theta, velocity := s.dynamics.Step(accel, steer)

	temperature := 25.0 + absf(velocity)*2.0 + absf(accel)*5.0

	if s.noiseOn {
		x = s.noise.Add("position_x", x)
		y = s.noise.Add("position_y", y)
		theta = s.noise.Add("theta", theta)
		velocity = s.noise.Add("velocity", velocity)
		temperature = s.noise.Add("temperature", temperature)
	}

	s.mu.Lock()
	elec, hydr := s.electricalFault, s.hydraulicFault
	s.mu.Unlock()

	return sensordata.Sample{
		PositionX:       x,
		PositionY:       y,
		Theta:           theta,
		Velocity:        velocity,
		Temperature:     temperature,
		ElectricalFault: elec,
		HydraulicFault:  hydr,
		Timestamp:       time.Now(),
	}, nil
}

// InjectElectricalFault sets or clears the simulated electrical fault sensor.
func (s *Simulator) InjectElectricalFault(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.electricalFault = on
}

// InjectHydraulicFault sets or clears the simulated hydraulic fault sensor.
func (s *Simulator) InjectHydraulicFault(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hydraulicFault = on
}

// EmergencyStop halts the underlying dynamics model immediately.
func (s *Simulator) EmergencyStop() {
	s.dynamics.EmergencyStop()
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
