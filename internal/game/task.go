package game

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"
)

// TaskName identifies one of the machine's long-running tasks.
type TaskName string

const (
	TaskListener       TaskName = "listener"
	TaskInitiator      TaskName = "initiator"
	TaskMessageHandler TaskName = "message-handler"
	TaskNavigation     TaskName = "navigation"
)

// stopTimeout bounds how long a stop waits for a task to return.
const stopTimeout = 5 * time.Second

// task is a handle on one goroutine with its own cancellation.
type task struct {
	name   TaskName
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

func startTask(parent context.Context, name TaskName, run func(ctx context.Context) error) *task {
	ctx, cancel := context.WithCancel(parent)
	t := &task{name: name, cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(t.done)
		t.err = run(ctx)
		if t.err != nil && !errors.Is(t.err, context.Canceled) {
			log.Printf("GAME: task %s ended: %v", name, t.err)
		}
	}()
	return t
}

func (t *task) running() bool {
	select {
	case <-t.done:
		return false
	default:
		return true
	}
}

// stop cancels the task and waits for it. Cancellation is the expected outcome and
// is not reported; any other error the task returned is.
func (t *task) stop(timeout time.Duration) error {
	t.cancel()
	select {
	case <-t.done:
	case <-time.After(timeout):
		return fmt.Errorf("task %s did not stop within %s", t.name, timeout)
	}
	if t.err != nil && !errors.Is(t.err, context.Canceled) {
		return fmt.Errorf("task %s: %w", t.name, t.err)
	}
	return nil
}
