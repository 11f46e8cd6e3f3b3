package sched

import (
	"context"
	"time"
)

// Observer receives lifecycle events. Hooks run on the scheduler's logical
// thread and must not call back into the scheduler.
type Observer interface {
	RunStarted(ctx context.Context)
	RunFinished(ctx context.Context, elapsed time.Duration, err error)
	TaskSpawned(ctx context.Context, id uint64)
	TaskStarted(ctx context.Context, id uint64)
	TaskSuspended(ctx context.Context, id uint64, reason Reason)
	TaskFinished(ctx context.Context, ev TaskEvent)
	ClockAdvanced(ctx context.Context, now time.Duration)
}

// TaskEvent describes a task that reached a terminal state.
type TaskEvent struct {
	ID       uint64
	State    State
	Elapsed  time.Duration
	Err      error
	Started  bool
	Panicked bool
	// Discarded is set for tasks cancelled by teardown.
	Discarded bool
}

func (t *Task) event() TaskEvent {
	return TaskEvent{
		ID:        t.id,
		State:     t.state,
		Elapsed:   t.doneAt - t.spawnedAt,
		Err:       t.err,
		Started:   t.started,
		Panicked:  t.panicked,
		Discarded: t.discarded,
	}
}

type multiObserver []Observer

// MultiObserver fans every hook out to each non-nil observer, in order.
func MultiObserver(obs ...Observer) Observer {
	var m multiObserver
	for _, o := range obs {
		if o != nil {
			m = append(m, o)
		}
	}
	if len(m) == 1 {
		return m[0]
	}
	return m
}

func (m multiObserver) RunStarted(ctx context.Context) {
	for _, o := range m {
		o.RunStarted(ctx)
	}
}

func (m multiObserver) RunFinished(ctx context.Context, elapsed time.Duration, err error) {
	for _, o := range m {
		o.RunFinished(ctx, elapsed, err)
	}
}

func (m multiObserver) TaskSpawned(ctx context.Context, id uint64) {
	for _, o := range m {
		o.TaskSpawned(ctx, id)
	}
}

func (m multiObserver) TaskStarted(ctx context.Context, id uint64) {
	for _, o := range m {
		o.TaskStarted(ctx, id)
	}
}

func (m multiObserver) TaskSuspended(ctx context.Context, id uint64, reason Reason) {
	for _, o := range m {
		o.TaskSuspended(ctx, id, reason)
	}
}

func (m multiObserver) TaskFinished(ctx context.Context, ev TaskEvent) {
	for _, o := range m {
		o.TaskFinished(ctx, ev)
	}
}

func (m multiObserver) ClockAdvanced(ctx context.Context, now time.Duration) {
	for _, o := range m {
		o.ClockAdvanced(ctx, now)
	}
}
