package sched

import (
	"errors"
	"fmt"

	"github.com/NetPo4ki/go-cosched/timerq"
)

var (
	// ErrInvalidArgument reports malformed input such as a negative delay.
	ErrInvalidArgument = timerq.ErrInvalidArgument

	// ErrDeadlock is returned by Run when the root task can never make
	// progress, and by Join when the join would close a cycle.
	ErrDeadlock = errors.New("sched: deadlock")

	// ErrCancelled is observed by joiners of a cancelled task.
	ErrCancelled = errors.New("sched: task cancelled")

	// ErrRunning is returned when Run is called on a scheduler that is running
	// or already ran, or when Close is called from inside Run.
	ErrRunning = errors.New("sched: scheduler already started")

	// ErrClosed is returned by Run after Close.
	ErrClosed = errors.New("sched: scheduler closed")

	// ErrNotFuture is returned by Resolve and Reject for tasks that were not
	// created with NewFuture.
	ErrNotFuture = errors.New("sched: not a future")

	// ErrAlreadyDone is returned when settling a future twice.
	ErrAlreadyDone = errors.New("sched: task already terminal")

	errGoexit = errors.New("runtime.Goexit called")
)

// TaskError is the failure recorded on a task whose work returned an error
// or panicked.
type TaskError struct {
	ID       uint64
	Err      error
	Panicked bool
}

func (e *TaskError) Error() string {
	if e.Panicked {
		return fmt.Sprintf("sched: task %d panicked: %v", e.ID, e.Err)
	}
	return fmt.Sprintf("sched: task %d failed: %v", e.ID, e.Err)
}

func (e *TaskError) Unwrap() error { return e.Err }
