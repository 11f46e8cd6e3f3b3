package sched

import (
	"errors"
	"fmt"
	"runtime"
	"time"
)

// Co is the view a running task has of its scheduler. It is only valid
// inside the Func it was passed to.
type Co struct {
	t *Task
}

// Task returns the task running this work.
func (co *Co) Task() *Task { return co.t }

func (co *Co) Scheduler() *Scheduler { return co.t.s }

func (co *Co) Now() time.Duration { return co.t.s.clock.Now() }

// Spawn creates a task without running it; see Scheduler.Spawn.
func (co *Co) Spawn(fn Func) *Task { return co.t.s.Spawn(fn) }

func (co *Co) NewFuture() *Task { return co.t.s.NewFuture() }

func (co *Co) Cancel(t *Task) { co.t.s.Cancel(t) }

func (co *Co) Resolve(f *Task, v any) error { return co.t.s.Resolve(f, v) }

func (co *Co) Reject(f *Task, err error) error { return co.t.s.Reject(f, err) }

// Sleep suspends the task for d. A zero d yields for one scheduling pass
// without time elapsing.
func (co *Co) Sleep(d time.Duration) error {
	co.mustCurrent("Sleep")
	if d < 0 {
		return fmt.Errorf("%w: negative delay %v", ErrInvalidArgument, d)
	}
	co.checkpoint()
	t, s := co.t, co.t.s
	if d == 0 {
		s.runq = append(s.runq, t)
		co.suspend(ReasonYield)
		return nil
	}
	id, err := s.timers.Schedule(t, d)
	if err != nil {
		return err
	}
	t.timer = id
	co.suspend(ReasonSleep)
	t.timer = 0
	return nil
}

// Yield is Sleep(0).
func (co *Co) Yield() { _ = co.Sleep(0) }

// Join suspends the task until target is terminal and returns its outcome.
// Joining a terminal task returns at once. A join that would make a task
// wait on itself, directly or through other joins, fails with ErrDeadlock.
func (co *Co) Join(target *Task) (any, error) {
	co.mustCurrent("Join")
	t := co.t
	if target == nil || target.s != t.s {
		return nil, fmt.Errorf("%w: join on a task of another scheduler", ErrInvalidArgument)
	}
	co.checkpoint()
	if target.state.Terminal() {
		target.observed = true
		return target.outcome()
	}
	if waitsOn(target, t) {
		return nil, fmt.Errorf("%w: task %d joining task %d closes a cycle", ErrDeadlock, t.id, target.id)
	}
	target.joiners = append(target.joiners, t)
	t.waitingOn = target
	co.suspend(ReasonJoin)
	v, err := t.wakeVal, t.wakeErr
	t.wakeVal, t.wakeErr = nil, nil
	return v, err
}

// JoinAll joins every spawned task other than the caller, in spawn order,
// including tasks spawned while it waits. Futures and tasks already waiting
// on the caller are skipped. It returns the first failure; cancellations
// are not failures.
func (co *Co) JoinAll() error {
	t := co.t
	joined := map[*Task]bool{t: true}
	var first error
	for {
		progress := false
		for _, x := range t.s.Tasks() {
			if joined[x] || x.future || waitsOn(x, t) {
				continue
			}
			joined[x] = true
			progress = true
			if _, err := co.Join(x); err != nil && first == nil && !errors.Is(err, ErrCancelled) {
				first = err
			}
		}
		if !progress {
			return first
		}
	}
}

// Await joins t and asserts its result to T.
func Await[T any](co *Co, t *Task) (T, error) {
	var zero T
	v, err := co.Join(t)
	if err != nil {
		return zero, err
	}
	if v == nil {
		return zero, nil
	}
	r, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%w: task %d returned %T, not %T", ErrInvalidArgument, t.id, v, zero)
	}
	return r, nil
}

// waitsOn reports whether from is to, or transitively joined on it.
func waitsOn(from, to *Task) bool {
	for x := from; x != nil; x = x.waitingOn {
		if x == to {
			return true
		}
	}
	return false
}

func (co *Co) mustCurrent(op string) {
	if co.t.s.current != co.t {
		panic("sched: " + op + " called outside the task's own work")
	}
}

// checkpoint applies a cancellation requested while the task was running.
func (co *Co) checkpoint() {
	t := co.t
	if t.unwinding {
		runtime.Goexit()
	}
	if !t.cancelReq {
		return
	}
	t.s.settle(t, Cancelled, nil, fmt.Errorf("%w: task %d", ErrCancelled, t.id))
	t.unwinding = true
	runtime.Goexit()
}

func (co *Co) suspend(r Reason) {
	t, s := co.t, co.t.s
	t.state = Suspended
	if s.obs != nil {
		s.obs.TaskSuspended(s.ctx, t.id, r)
	}
	t.park()
}
