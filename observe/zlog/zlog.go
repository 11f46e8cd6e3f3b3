package zlog

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/NetPo4ki/go-cosched/sched"
)

// Observer writes scheduler lifecycle events to a zerolog.Logger.
type Observer struct {
	log zerolog.Logger
}

var _ sched.Observer = (*Observer)(nil)

// New returns an observer logging to l.
func New(l zerolog.Logger) *Observer { return &Observer{log: l} }

// Nop returns an observer that discards everything.
func Nop() *Observer { return New(zerolog.Nop()) }

func (o *Observer) RunStarted(context.Context) {
	o.log.Debug().Str("event", "run_started").Send()
}

func (o *Observer) RunFinished(_ context.Context, elapsed time.Duration, err error) {
	ev := o.log.Debug()
	if err != nil {
		ev = o.log.Error().Err(err)
	}
	ev.Str("event", "run_finished").Dur("elapsed", elapsed).Send()
}

func (o *Observer) TaskSpawned(_ context.Context, id uint64) {
	o.log.Debug().Str("event", "task_spawned").Uint64("task", id).Send()
}

func (o *Observer) TaskStarted(_ context.Context, id uint64) {
	o.log.Trace().Str("event", "task_started").Uint64("task", id).Send()
}

func (o *Observer) TaskSuspended(_ context.Context, id uint64, reason sched.Reason) {
	o.log.Trace().Str("event", "task_suspended").Uint64("task", id).Stringer("reason", reason).Send()
}

func (o *Observer) TaskFinished(_ context.Context, ev sched.TaskEvent) {
	e := o.log.Debug()
	if ev.State == sched.Failed {
		e = o.log.Error()
	}
	if ev.Err != nil {
		e = e.Err(ev.Err)
	}
	e.Str("event", "task_finished").
		Uint64("task", ev.ID).
		Stringer("state", ev.State).
		Dur("elapsed", ev.Elapsed).
		Bool("panicked", ev.Panicked).
		Bool("discarded", ev.Discarded).
		Send()
}

func (o *Observer) ClockAdvanced(_ context.Context, now time.Duration) {
	o.log.Trace().Str("event", "clock_advanced").Dur("now", now).Send()
}
