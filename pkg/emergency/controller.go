// Package emergency watches for an external stop request (a signal or a
// stop file) and pushes a local EMERGENCY_STOP command onto the truck's
// command queue, independent of Command Logic's normal producers
// (spec.md §4.14).
package emergency

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jihwankim/haultruck/pkg/command"
)

// Watcher observes SIGINT/SIGTERM and an optional stop file and turns
// either into a single EMERGENCY_STOP push onto a command queue.
type Watcher struct {
	queue          *command.Queue
	stopFile       string
	pollInterval   time.Duration
	signalHandlers bool

	mutex    sync.Mutex
	tripped  bool
	trippedC chan struct{}
}

// Config configures a Watcher.
type Config struct {
	// StopFile is the path polled for emergency stop. Empty disables the
	// stop-file check entirely rather than falling back to a default
	// path, since a stray leftover file from a previous run would
	// otherwise trip the next one immediately.
	StopFile string

	// PollInterval is how often the stop file is checked.
	PollInterval time.Duration

	// EnableSignalHandlers enables SIGINT/SIGTERM handling.
	EnableSignalHandlers bool
}

// New constructs a Watcher that pushes EMERGENCY_STOP onto queue when
// tripped.
func New(queue *command.Queue, cfg Config) *Watcher {
	if cfg.PollInterval == 0 {
		cfg.PollInterval = time.Second
	}
	return &Watcher{
		queue:          queue,
		stopFile:       cfg.StopFile,
		pollInterval:   cfg.PollInterval,
		signalHandlers: cfg.EnableSignalHandlers,
		trippedC:       make(chan struct{}),
	}
}

// Start begins monitoring in background goroutines until ctx is done or
// a trip condition fires, whichever comes first.
func (w *Watcher) Start(ctx context.Context) {
	if w.stopFile != "" {
		go w.watchStopFile(ctx)
	}
	if w.signalHandlers {
		go w.watchSignals(ctx)
	}
}

func (w *Watcher) watchStopFile(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := os.Stat(w.stopFile); err == nil {
				w.trip(fmt.Sprintf("stop file detected: %s", w.stopFile))
				return
			}
		}
	}
}

func (w *Watcher) watchSignals(ctx context.Context) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case <-ctx.Done():
	case sig := <-sigCh:
		w.trip(fmt.Sprintf("signal: %v", sig))
	}
}

// trip pushes the local EMERGENCY_STOP command exactly once.
func (w *Watcher) trip(reason string) {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	if w.tripped {
		return
	}
	w.tripped = true
	close(w.trippedC)
	w.queue.Push(command.New(command.EmergencyStop, command.SourceLocal))
	_ = reason // not logged or stored; Tripped() only signals that a trip happened
}

// Tripped returns a channel that closes the moment Watcher pushes its
// EMERGENCY_STOP command.
func (w *Watcher) Tripped() <-chan struct{} {
	return w.trippedC
}

// CreateStopFile writes the configured stop file, letting an operator
// trigger emergency stop without sending a signal (used by `truckctl
// estop`).
func (w *Watcher) CreateStopFile() error {
	if w.stopFile == "" {
		return fmt.Errorf("no stop file configured")
	}
	f, err := os.Create(w.stopFile)
	if err != nil {
		return fmt.Errorf("create stop file: %w", err)
	}
	defer f.Close()
	_, err = fmt.Fprintf(f, "emergency stop requested at %s\n", time.Now().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("write stop file: %w", err)
	}
	return nil
}

// RemoveStopFile clears the stop file so the next run starts untripped.
func (w *Watcher) RemoveStopFile() error {
	if w.stopFile == "" {
		return nil
	}
	if err := os.Remove(w.stopFile); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove stop file: %w", err)
	}
	return nil
}
