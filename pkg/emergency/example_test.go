package emergency_test

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jihwankim/haultruck/pkg/command"
	"github.com/jihwankim/haultruck/pkg/emergency"
)

// Example demonstrates wiring a Watcher to a truck's command queue.
func Example() {
	queue := command.NewQueue(4)
	stopFile := "/tmp/haultruck-emergency-stop-test"
	os.Remove(stopFile)

	watcher := emergency.New(queue, emergency.Config{
		StopFile:     stopFile,
		PollInterval: 50 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	watcher.Start(ctx)

	fmt.Println("watcher started, monitoring for emergency stop")

	if err := watcher.CreateStopFile(); err != nil {
		fmt.Println("create stop file failed:", err)
	}

	select {
	case <-watcher.Tripped():
		fmt.Println("emergency stop detected")
	case <-time.After(2 * time.Second):
		fmt.Println("no emergency stop triggered (timeout)")
	}

	cmd, ok := queue.Pop(0)
	fmt.Println("queued command:", ok, cmd.Type)

	watcher.RemoveStopFile()

	// Output:
	// watcher started, monitoring for emergency stop
	// emergency stop detected
	// queued command: true EMERGENCY_STOP
}
