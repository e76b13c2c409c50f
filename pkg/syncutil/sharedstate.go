// Package syncutil holds the coarse-grained, mutex-protected coordination
// primitives shared by every periodic task: the Vehicle State container,
// the circular sensor buffer, and the broadcast event bus.
package syncutil

import (
	"sync"
	"time"

	"github.com/jihwankim/haultruck/pkg/vehicle"
)

// SharedState is a thread-safe container for a single truck's Vehicle
// State and its peer-position cache. Every accessor holds the mutex for
// the duration of one field-group update or read and never suspends
// while holding it, per spec.md §4.1.
type SharedState struct {
	mu    sync.Mutex
	state vehicle.State
	peers map[uint64]vehicle.Peer
}

// NewSharedState creates the state container for one truck, booted at the
// given initial pose.
func NewSharedState(truckID uint64, x, y, theta float64) *SharedState {
	return &SharedState{
		state: vehicle.New(truckID, x, y, theta),
		peers: make(map[uint64]vehicle.Peer),
	}
}

// Snapshot returns a deep copy of the current Vehicle State. The caller
// may examine it freely without holding any lock.
func (s *SharedState) Snapshot() vehicle.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// UpdatePose writes the measured pose. Sensor Processing does not call
// it (it writes only the circular buffer), and Navigation Control's
// manual-mode mirroring goes through SetSetpoints; tests call it to seed
// state.
func (s *SharedState) UpdatePose(x, y, theta, velocity float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.X = x
	s.state.Y = y
	s.state.Theta = vehicle.WrapAngle(theta)
	s.state.Velocity = velocity
}

// UpdateActuators writes the commanded acceleration and steering,
// clamping both to [-1, 1].
func (s *SharedState) UpdateActuators(accel, steer float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.AccelerationCmd = vehicle.ClampActuator(accel)
	s.state.SteeringCmd = vehicle.ClampActuator(steer)
}

// SetMode sets the operation mode. Command Logic is the sole caller in
// the wired controller.
func (s *SharedState) SetMode(m vehicle.OperationMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Mode = m
}

// SetStatus sets the vehicle status.
func (s *SharedState) SetStatus(st vehicle.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Status = st
}

// SetSetpoints writes velocity and/or angular setpoints. A nil pointer
// leaves the corresponding field unchanged.
func (s *SharedState) SetSetpoints(velocity, angular *float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if velocity != nil {
		s.state.VelocitySetpoint = *velocity
	}
	if angular != nil {
		s.state.AngularSetpoint = vehicle.WrapAngle(*angular)
	}
}

// SetTarget writes target coordinates used for telemetry. A nil pointer
// leaves the corresponding field unchanged.
func (s *SharedState) SetTarget(x, y *float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if x != nil {
		s.state.TargetX = x
	}
	if y != nil {
		s.state.TargetY = y
	}
}

// ClearTarget resets target coordinates to unset (used once a route completes).
func (s *SharedState) ClearTarget() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.TargetX = nil
	s.state.TargetY = nil
}

// FaultUpdate groups the optional fault fields SetFaults can change.
type FaultUpdate struct {
	Temperature *float64
	Electrical  *bool
	Hydraulic   *bool
	Emergency   *bool
}

// SetFaults writes the subset of fault-related fields that are non-nil in
// upd. Command Logic is the sole writer of these bits (spec.md §9's
// resolved Open Question).
func (s *SharedState) SetFaults(upd FaultUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if upd.Temperature != nil {
		s.state.Temperature = *upd.Temperature
	}
	if upd.Electrical != nil {
		s.state.ElectricalFault = *upd.Electrical
	}
	if upd.Hydraulic != nil {
		s.state.HydraulicFault = *upd.Hydraulic
	}
	if upd.Emergency != nil {
		s.state.EmergencyStop = *upd.Emergency
		if *upd.Emergency {
			s.state.Status = vehicle.StatusEmergency
		}
	}
}

// IsAutomatic reports whether the vehicle is in AUTOMATIC_REMOTE mode.
func (s *SharedState) IsAutomatic() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.IsAutomatic()
}

// IsManual reports whether the vehicle is in MANUAL_LOCAL mode.
func (s *SharedState) IsManual() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.IsManual()
}

// HasFault reports the vehicle's current fault predicate.
func (s *SharedState) HasFault() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.HasFault()
}

// UpdatePeer records or refreshes a peer truck's last-known pose.
func (s *SharedState) UpdatePeer(id uint64, x, y, theta float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.peers[id] = vehicle.Peer{TruckID: id, X: x, Y: y, Theta: theta, LastUpdate: time.Now()}
}

// Peers atomically evicts stale entries (older than vehicle.PeerStaleAfter)
// and returns a snapshot of what remains.
func (s *SharedState) Peers() map[uint64]vehicle.Peer {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, p := range s.peers {
		if p.Stale(now) {
			delete(s.peers, id)
		}
	}
	out := make(map[uint64]vehicle.Peer, len(s.peers))
	for id, p := range s.peers {
		out[id] = p
	}
	return out
}

// RemovePeer drops a peer's cache entry immediately.
func (s *SharedState) RemovePeer(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.peers, id)
}
