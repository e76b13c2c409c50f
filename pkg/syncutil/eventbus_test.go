package syncutil

import (
	"testing"
	"time"
)

func TestEventBusEmitWait(t *testing.T) {
	b := NewEventBus()
	b.Emit(EventTemperatureFault, "overheat")

	ev, ok := b.Wait(EventTemperatureFault, time.Second)
	if !ok {
		t.Fatal("expected an event")
	}
	if ev.Payload != "overheat" {
		t.Fatalf("unexpected payload: %v", ev.Payload)
	}
}

func TestEventBusWaitTimeout(t *testing.T) {
	b := NewEventBus()
	_, ok := b.Wait(EventEmergencyStop, 20*time.Millisecond)
	if ok {
		t.Fatal("expected timeout, got an event")
	}
}

func TestEventBusBlockingWaitWokenByEmit(t *testing.T) {
	b := NewEventBus()
	result := make(chan bool, 1)

	go func() {
		_, ok := b.Wait(EventTargetReached, 2*time.Second)
		result <- ok
	}()

	time.Sleep(20 * time.Millisecond)
	b.Emit(EventTargetReached, 3)

	select {
	case ok := <-result:
		if !ok {
			t.Fatal("expected Wait to succeed after Emit")
		}
	case <-time.After(time.Second):
		t.Fatal("Wait did not wake after Emit")
	}
}

func TestEventBusShutdownWakesWaiters(t *testing.T) {
	b := NewEventBus()
	result := make(chan bool, 1)

	go func() {
		_, ok := b.Wait(EventModeChanged, 2*time.Second)
		result <- ok
	}()

	time.Sleep(20 * time.Millisecond)
	b.Shutdown()

	select {
	case ok := <-result:
		if ok {
			t.Fatal("expected Wait to return ok=false after Shutdown")
		}
	case <-time.After(time.Second):
		t.Fatal("Wait did not wake after Shutdown")
	}
}

func TestEventBusCheckAndClear(t *testing.T) {
	b := NewEventBus()
	if b.Check(EventTemperatureFault) {
		t.Fatal("expected no pending fault event")
	}
	b.Emit(EventTemperatureFault, nil)
	if !b.Check(EventTemperatureFault) {
		t.Fatal("expected a pending fault event")
	}
	b.Clear(EventTemperatureFault)
	if b.Check(EventTemperatureFault) {
		t.Fatal("expected Clear to drop pending events")
	}
}
