package syncutil

import (
	"testing"
	"time"

	"github.com/jihwankim/haultruck/pkg/vehicle"
)

func TestSharedStateSnapshotIsolation(t *testing.T) {
	s := NewSharedState(1, 0, 0, 0)
	s.UpdatePose(10, 20, 0, 5)

	snap := s.Snapshot()
	s.UpdatePose(99, 99, 0, 99)

	if snap.X != 10 || snap.Y != 20 {
		t.Fatalf("snapshot was not isolated from later writes: got x=%v y=%v", snap.X, snap.Y)
	}
}

func TestUpdateActuatorsClamps(t *testing.T) {
	s := NewSharedState(1, 0, 0, 0)
	s.UpdateActuators(5.0, -5.0)
	snap := s.Snapshot()
	if snap.AccelerationCmd != 1.0 || snap.SteeringCmd != -1.0 {
		t.Fatalf("actuator clamp failed: got accel=%v steer=%v", snap.AccelerationCmd, snap.SteeringCmd)
	}
}

func TestSetFaultsEmergencyForcesStatus(t *testing.T) {
	s := NewSharedState(1, 0, 0, 0)
	s.SetStatus(vehicle.StatusRunning)
	emergency := true
	s.SetFaults(FaultUpdate{Emergency: &emergency})

	snap := s.Snapshot()
	if snap.Status != vehicle.StatusEmergency {
		t.Fatalf("expected status EMERGENCY, got %v", snap.Status)
	}
	if !snap.EmergencyStop {
		t.Fatal("expected EmergencyStop to be true")
	}
}

func TestPeerEviction(t *testing.T) {
	s := NewSharedState(1, 0, 0, 0)
	s.UpdatePeer(2, 1, 2, 0)
	s.peers[2] = vehicle.Peer{
		TruckID:    2,
		LastUpdate: time.Now().Add(-2 * vehicle.PeerStaleAfter),
	}

	peers := s.Peers()
	if _, ok := peers[2]; ok {
		t.Fatal("expected stale peer to be evicted")
	}
}

func TestRemovePeer(t *testing.T) {
	s := NewSharedState(1, 0, 0, 0)
	s.UpdatePeer(7, 1, 1, 0)
	s.RemovePeer(7)
	if _, ok := s.Peers()[7]; ok {
		t.Fatal("expected removed peer to be gone")
	}
}
