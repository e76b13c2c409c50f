// Package tasks implements the seven periodic control-loop tasks that
// make up the truck's embedded controller (spec.md §4.4-4.12), plus the
// shared periodic-loop harness they run on.
package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/jihwankim/haultruck/pkg/logging"
)

// Tick is one task iteration's body. A returned error is logged and
// never stops the loop — per spec.md §7, a single iteration's failure
// must never fail the process.
type Tick func(ctx context.Context) error

// Run executes tick once per period until ctx is cancelled. Each
// iteration is wrapped so that a panic is recovered and logged rather
// than crashing the task, matching the try/catch-equivalent loop shape
// spec.md §9 describes.
func Run(ctx context.Context, name string, period time.Duration, log *logging.Logger, tick Tick) {
	log.Info("task started", "task", name, "period", period)
	defer log.Info("task finished", "task", name)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		start := time.Now()
		runTick(ctx, name, log, tick)

		elapsed := time.Since(start)
		sleep := period - elapsed
		if sleep > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(sleep):
			}
		}
	}
}

func runTick(ctx context.Context, name string, log *logging.Logger, tick Tick) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("task iteration panicked", "task", name, "recovered", fmt.Sprint(r))
		}
	}()
	if err := tick(ctx); err != nil {
		log.Error("task iteration failed", "task", name, "error", err)
	}
}
