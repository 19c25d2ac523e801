package pipeline

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

// ErrTaskDone is returned when queueing onto a cancelled or ended task.
var ErrTaskDone = errors.New("pipeline: task is done")

// defaultQueueSize bounds the frame queue. Audio chunks dominate the
// traffic; 256 frames is several seconds of speech.
const defaultQueueSize = 256

// Task is the frame queue feeding one pipeline run.
type Task struct {
	// ID identifies the task in logs.
	ID string

	frames chan Frame
	done   chan struct{}
	once   sync.Once
}

// NewTask creates a task with the default queue size.
func NewTask() *Task {
	return &Task{
		ID:     uuid.NewString(),
		frames: make(chan Frame, defaultQueueSize),
		done:   make(chan struct{}),
	}
}

// QueueFrame enqueues a frame for processing.
func (t *Task) QueueFrame(f Frame) error {
	select {
	case <-t.done:
		return ErrTaskDone
	default:
	}

	select {
	case t.frames <- f:
		return nil
	case <-t.done:
		return ErrTaskDone
	}
}

// QueueFrames enqueues frames in order, stopping at the first failure.
func (t *Task) QueueFrames(frames ...Frame) error {
	for _, f := range frames {
		if err := t.QueueFrame(f); err != nil {
			return err
		}
	}
	return nil
}

// Cancel aborts the task. Pending frames are dropped. Idempotent.
func (t *Task) Cancel() {
	t.once.Do(func() { close(t.done) })
}

// Done reports whether the task has been cancelled.
func (t *Task) Done() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}
