package syncutil

import (
	"sync"
	"time"
)

// EventType names one of the broadcast conditions tasks wait on, per
// spec.md §4.6-§4.12's event vocabulary.
type EventType int

const (
	EventTemperatureFault EventType = iota
	EventElectricalFault
	EventHydraulicFault
	EventFaultCleared
	EventEmergencyStop
	EventEmergencyReset
	EventModeChanged
	EventTargetReached
	EventNewRoute
)

func (e EventType) String() string {
	switch e {
	case EventTemperatureFault:
		return "TEMPERATURE_FAULT"
	case EventElectricalFault:
		return "ELECTRICAL_FAULT"
	case EventHydraulicFault:
		return "HYDRAULIC_FAULT"
	case EventFaultCleared:
		return "FAULT_CLEARED"
	case EventEmergencyStop:
		return "EMERGENCY_STOP"
	case EventEmergencyReset:
		return "EMERGENCY_RESET"
	case EventModeChanged:
		return "MODE_CHANGED"
	case EventTargetReached:
		return "TARGET_REACHED"
	case EventNewRoute:
		return "NEW_ROUTE"
	default:
		return "UNKNOWN_EVENT"
	}
}

// Event is one entry emitted onto the bus.
type Event struct {
	Type    EventType
	Payload any
	At      time.Time
}

// EventBus is a broadcast, multi-consumer event queue: every event type
// has its own FIFO, Emit wakes every goroutine blocked in Wait regardless
// of which type it's waiting for, and each waiter independently drains
// the queue for the type it cares about. This mirrors the condition
// variable used by the original prototype's event manager, expressed
// with sync.Cond instead of an explicit wait/notify loop.
type EventBus struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queues map[EventType][]Event
	closed bool
}

// NewEventBus constructs an empty bus.
func NewEventBus() *EventBus {
	b := &EventBus{queues: make(map[EventType][]Event)}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Emit appends an event to its type's queue and wakes every waiter.
func (b *EventBus) Emit(t EventType, payload any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.queues[t] = append(b.queues[t], Event{Type: t, Payload: payload, At: time.Now()})
	b.cond.Broadcast()
}

// Wait blocks until an event of type t is queued, the bus is shut down,
// or timeout elapses (zero means wait forever). It returns the oldest
// queued event of that type and ok=true, or ok=false on timeout/shutdown.
func (b *EventBus) Wait(t EventType, timeout time.Duration) (Event, bool) {
	done := make(chan struct{})
	var timedOut bool
	if timeout > 0 {
		timer := time.AfterFunc(timeout, func() {
			timedOut = true
			b.mu.Lock()
			b.cond.Broadcast()
			b.mu.Unlock()
		})
		defer timer.Stop()
	}
	defer close(done)

	b.mu.Lock()
	defer b.mu.Unlock()
	for {
		if q := b.queues[t]; len(q) > 0 {
			ev := q[0]
			b.queues[t] = q[1:]
			return ev, true
		}
		if b.closed {
			return Event{}, false
		}
		if timedOut {
			return Event{}, false
		}
		b.cond.Wait()
	}
}

// Check performs a non-blocking poll: it reports whether an event of
// type t is pending without consuming it.
func (b *EventBus) Check(t EventType) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queues[t]) > 0
}

// TryPop performs a non-blocking pop: it returns the oldest pending
// event of type t and ok=true, or ok=false if none is queued.
func (b *EventBus) TryPop(t EventType) (Event, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	q := b.queues[t]
	if len(q) == 0 {
		return Event{}, false
	}
	ev := q[0]
	b.queues[t] = q[1:]
	return ev, true
}

// Clear discards every pending event of type t.
func (b *EventBus) Clear(t EventType) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.queues, t)
}

// Shutdown marks the bus closed and wakes every blocked waiter, which
// then returns ok=false. Safe to call more than once.
func (b *EventBus) Shutdown() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.cond.Broadcast()
}
