package localctl

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/jihwankim/haultruck/pkg/command"
)

func TestSendDeliversLocalCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "truck.sock")
	queue := command.NewQueue(4)

	server, err := Listen(path, queue)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer server.Close()
	go server.Serve()

	if err := Send(path, Frame{Type: "RESET_FAULT"}, time.Second); err != nil {
		t.Fatalf("send: %v", err)
	}

	cmd, ok := queue.Pop(time.Second)
	if !ok {
		t.Fatal("expected a command to be queued")
	}
	if cmd.Type != command.ResetFault {
		t.Errorf("Type = %v, want RESET_FAULT", cmd.Type)
	}
	if cmd.Source != command.SourceLocal {
		t.Errorf("Source = %v, want local", cmd.Source)
	}
}

func TestSendWithValueDeliversMagnitude(t *testing.T) {
	path := filepath.Join(t.TempDir(), "truck.sock")
	queue := command.NewQueue(4)

	server, err := Listen(path, queue)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer server.Close()
	go server.Serve()

	value := -0.5
	if err := Send(path, Frame{Type: "BRAKE", Value: &value}, time.Second); err != nil {
		t.Fatalf("send: %v", err)
	}

	cmd, ok := queue.Pop(time.Second)
	if !ok {
		t.Fatal("expected a command to be queued")
	}
	if !cmd.HasValue || cmd.Value != -0.5 {
		t.Errorf("Value = %v (HasValue=%v), want -0.5", cmd.Value, cmd.HasValue)
	}
}

func TestSendWithoutListenerFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nobody-home.sock")
	if err := Send(path, Frame{Type: "STOP"}, 100*time.Millisecond); err == nil {
		t.Fatal("expected an error dialing a socket nobody is listening on")
	}
}

func TestUnknownCommandIsRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "truck.sock")
	queue := command.NewQueue(4)

	server, err := Listen(path, queue)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer server.Close()
	go server.Serve()

	if err := Send(path, Frame{Type: "NOT_A_COMMAND"}, time.Second); err == nil {
		t.Fatal("expected an error for an unrecognized command type")
	}
	if _, ok := queue.Pop(50 * time.Millisecond); ok {
		t.Error("expected nothing queued for an unknown command")
	}
}
