package tasks

import (
	"context"
	"math"

	"github.com/jihwankim/haultruck/pkg/syncutil"
)

// Waypoint is one 2-D coordinate on a route.
type Waypoint struct {
	X, Y float64
}

// RoutePlanner consumes waypoint lists and steers the truck toward the
// current target by writing velocity/angular setpoints, advancing
// through the route as each waypoint threshold is crossed (spec.md
// §4.10). Collision Avoidance overrides these setpoints at a higher
// frequency; "last writer wins" is intentional (spec.md §5).
type RoutePlanner struct {
	shared            *syncutil.SharedState
	bus               *syncutil.EventBus
	routeQueue        chan []Waypoint
	waypointThreshold float64

	route      []Waypoint
	currentIdx int
}

// NewRoutePlanner constructs the task. routeQueueCapacity bounds how
// many pending route replacements may queue up before the oldest is
// dropped.
func NewRoutePlanner(shared *syncutil.SharedState, bus *syncutil.EventBus, waypointThreshold float64, routeQueueCapacity int) *RoutePlanner {
	if routeQueueCapacity < 1 {
		routeQueueCapacity = 1
	}
	return &RoutePlanner{
		shared:            shared,
		bus:               bus,
		routeQueue:        make(chan []Waypoint, routeQueueCapacity),
		waypointThreshold: waypointThreshold,
	}
}

// SetRoute replaces the current route, dropping the oldest queued
// replacement if the queue is full.
func (r *RoutePlanner) SetRoute(waypoints []Waypoint) {
	for {
		select {
		case r.routeQueue <- waypoints:
			return
		default:
			select {
			case <-r.routeQueue:
			default:
			}
		}
	}
}

// Tick consumes any pending route replacement and, if automatic and a
// route is active, advances toward the current waypoint.
func (r *RoutePlanner) Tick(ctx context.Context) error {
	select {
	case newRoute := <-r.routeQueue:
		r.route = newRoute
		r.currentIdx = 0
		r.bus.Emit(syncutil.EventNewRoute, len(newRoute))
	default:
	}

	if len(r.route) == 0 || !r.shared.IsAutomatic() {
		return nil
	}

	snap := r.shared.Snapshot()
	target := r.route[r.currentIdx]
	d := hypot(target.X-snap.X, target.Y-snap.Y)

	if d <= r.waypointThreshold {
		r.currentIdx++
		if r.currentIdx >= len(r.route) {
			zero := 0.0
			r.shared.SetSetpoints(&zero, nil)
			r.shared.ClearTarget()
			r.bus.Emit(syncutil.EventTargetReached, nil)
			r.route = nil
			return nil
		}
		target = r.route[r.currentIdx]
		d = hypot(target.X-snap.X, target.Y-snap.Y)
	}

	angular := math.Atan2(target.Y-snap.Y, target.X-snap.X)
	velocity := clampRange(d*0.5, 0.5, 5.0)

	r.shared.SetSetpoints(&velocity, &angular)
	r.shared.SetTarget(&target.X, &target.Y)
	return nil
}

func hypot(dx, dy float64) float64 {
	return math.Hypot(dx, dy)
}

func clampRange(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
