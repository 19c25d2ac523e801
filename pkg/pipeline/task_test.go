package pipeline

import (
	"errors"
	"testing"
)

func TestTaskQueueAndCancel(t *testing.T) {
	task := NewTask()
	if task.ID == "" {
		t.Error("task ID should be set")
	}
	if task.Done() {
		t.Error("new task should not be done")
	}

	if err := task.QueueFrame(TextFrame{Text: "hi", Final: true}); err != nil {
		t.Fatalf("QueueFrame: %v", err)
	}

	task.Cancel()
	task.Cancel() // idempotent

	if !task.Done() {
		t.Error("cancelled task should be done")
	}
	if err := task.QueueFrame(TextFrame{}); !errors.Is(err, ErrTaskDone) {
		t.Errorf("QueueFrame after Cancel = %v, want ErrTaskDone", err)
	}
}

func TestTaskQueueFramesStopsOnFailure(t *testing.T) {
	task := NewTask()
	task.Cancel()

	err := task.QueueFrames(TextFrame{}, EndFrame{})
	if !errors.Is(err, ErrTaskDone) {
		t.Errorf("QueueFrames = %v, want ErrTaskDone", err)
	}
}
