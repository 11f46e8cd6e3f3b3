package sched

import (
	"fmt"
	"runtime"
	"time"

	"github.com/NetPo4ki/go-cosched/timerq"
)

// Func is a unit of cooperative work. It runs on the scheduler only between
// suspension points reached through co.
type Func func(co *Co) (any, error)

// State is the lifecycle state of a task.
//
//	Created → Running → (Suspended → Running)* → Completed | Failed | Cancelled
//
// Futures go from Created straight to a terminal state.
type State int32

const (
	Created State = iota
	Running
	Suspended
	Completed
	Failed
	Cancelled
)

func (s State) String() string {
	switch s {
	case Created:
		return "created"
	case Running:
		return "running"
	case Suspended:
		return "suspended"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	case Cancelled:
		return "cancelled"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// Terminal reports whether s is Completed, Failed or Cancelled.
func (s State) Terminal() bool { return s >= Completed }

// Reason says why a task suspended.
type Reason int

const (
	ReasonSleep Reason = iota
	ReasonYield
	ReasonJoin
)

func (r Reason) String() string {
	switch r {
	case ReasonSleep:
		return "sleep"
	case ReasonYield:
		return "yield"
	case ReasonJoin:
		return "join"
	}
	return fmt.Sprintf("Reason(%d)", int(r))
}

type signal uint8

const (
	sigResume signal = iota
	sigUnwind
)

// Task is a handle on one unit of work owned by a Scheduler. Its accessors
// follow the scheduler's threading rule: call them before Run, from inside a
// task, or after Run returns.
type Task struct {
	id     uint64
	s      *Scheduler
	fn     Func
	future bool

	state    State
	result   any
	err      error
	panicked bool
	// observed is set once the outcome was handed to a joiner or a caller.
	observed bool

	joiners   []*Task
	waitingOn *Task
	timer     timerq.ID
	cancelReq bool
	live      bool
	discarded bool

	started   bool
	exited    bool
	unwinding bool
	resume    chan signal

	wakeVal any
	wakeErr error

	spawnedAt time.Duration
	doneAt    time.Duration
}

func (t *Task) ID() uint64 { return t.id }

func (t *Task) State() State { return t.state }

// Done reports whether the task reached a terminal state.
func (t *Task) Done() bool { return t.state.Terminal() }

// Discarded reports whether the task was cancelled by scheduler teardown
// rather than by a Cancel call.
func (t *Task) Discarded() bool { return t.discarded }

// Result returns the outcome of a terminal task. ok is false while the task
// is still pending. Reading a failure this way counts as observing it.
func (t *Task) Result() (v any, err error, ok bool) {
	if !t.state.Terminal() {
		return nil, nil, false
	}
	t.observed = true
	v, err = t.outcome()
	return v, err, true
}

// Elapsed is the scheduler time between spawn and the terminal transition,
// or up to now for a pending task.
func (t *Task) Elapsed() time.Duration {
	if t.state.Terminal() {
		return t.doneAt - t.spawnedAt
	}
	return t.s.clock.Now() - t.spawnedAt
}

func (t *Task) String() string {
	return fmt.Sprintf("task %d (%s)", t.id, t.state)
}

func (t *Task) outcome() (any, error) {
	return t.result, t.err
}

// main is the body of the goroutine backing a started task. It only runs
// while the task holds the baton and hands it back on exit.
func (t *Task) main() {
	s := t.s
	co := &Co{t: t}
	var (
		v        any
		err      error
		returned bool
	)
	defer func() {
		r := recover()
		switch {
		case t.unwinding:
		case r != nil:
			s.fail(t, fmt.Errorf("%v", r), true, r)
		case !returned:
			s.fail(t, errGoexit, false, nil)
		case err != nil:
			s.fail(t, err, false, nil)
		default:
			s.settle(t, Completed, v, nil)
		}
		t.exited = true
		s.yield <- struct{}{}
	}()
	v, err = t.fn(co)
	returned = true
}

// park hands the baton back to the loop and blocks until the task is
// resumed. A task told to unwind exits through runtime.Goexit so that its
// deferred calls run and no recover in user code can stop it.
func (t *Task) park() {
	t.s.yield <- struct{}{}
	if sig := <-t.resume; sig == sigUnwind {
		t.unwinding = true
		runtime.Goexit()
	}
}
