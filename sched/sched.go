package sched

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/NetPo4ki/go-cosched/timerq"
)

// Option configures a Scheduler.
type Option func(*Options)

type Options struct {
	PanicAsError bool
	Observer     Observer
	// MaxLive caps started, unfinished spawned tasks; zero means no cap.
	MaxLive int
	// Clock is the time source; nil selects a VirtualClock.
	Clock  Clock
	Logger zerolog.Logger
	// KeepAlive keeps the loop running after the root task finished.
	KeepAlive bool
}

func defaultOptions() Options { return Options{PanicAsError: true, Logger: zerolog.Nop()} }

func WithPanicAsError(v bool) Option { return func(o *Options) { o.PanicAsError = v } }

func WithObserver(obs Observer) Option { return func(o *Options) { o.Observer = obs } }

// WithMaxLive bounds the number of spawned tasks that have started and not
// yet finished. The root task is not counted.
func WithMaxLive(n int) Option { return func(o *Options) { o.MaxLive = n } }

// WithClock sets the time source. NewWallClock makes sleeps take real time.
func WithClock(c Clock) Option { return func(o *Options) { o.Clock = c } }

func WithLogger(l zerolog.Logger) Option { return func(o *Options) { o.Logger = l } }

// WithKeepAlive makes Run keep driving the other tasks after the root task
// finished, until nothing is runnable and no timer is pending.
func WithKeepAlive(v bool) Option { return func(o *Options) { o.KeepAlive = v } }

// Scheduler runs tasks cooperatively: exactly one task executes at a time,
// and control only changes hands at suspension points.
//
// A Scheduler is not safe for concurrent use. Its methods may be called
// before Run, from inside tasks it runs, or after Run returns. Independent
// schedulers may run in parallel.
type Scheduler struct {
	id     string
	opts   Options
	obs    Observer
	log    zerolog.Logger
	clock  Clock
	timers *timerq.Queue[*Task]
	lim    *admission
	ctx    context.Context

	tasks   []*Task
	runq    []*Task
	unwindq []*Task
	nextID  uint64
	current *Task
	root    *Task
	yield   chan struct{}

	running  bool
	ran      bool
	closed   bool
	closeErr error

	repanic   any
	repanicOK bool
}

// New returns an idle scheduler. Nothing runs until Run.
func New(optFns ...Option) *Scheduler {
	s := &Scheduler{
		id:    uuid.NewString(),
		opts:  defaultOptions(),
		ctx:   context.Background(),
		yield: make(chan struct{}),
	}
	for _, fn := range optFns {
		fn(&s.opts)
	}
	s.obs = s.opts.Observer
	s.clock = s.opts.Clock
	if s.clock == nil {
		s.clock = NewVirtualClock()
	}
	s.log = s.opts.Logger.With().Str("sched", s.id).Logger()
	s.timers = timerq.New[*Task](s.clock.Now)
	s.lim = newAdmission(s.opts.MaxLive)
	return s
}

// ID is the scheduler's unique instance identifier.
func (s *Scheduler) ID() string { return s.id }

// Now is the scheduler's current time.
func (s *Scheduler) Now() time.Duration { return s.clock.Now() }

// Tasks returns the task table in spawn order.
func (s *Scheduler) Tasks() []*Task {
	out := make([]*Task, len(s.tasks))
	copy(out, s.tasks)
	return out
}

// Spawn registers fn as a new task in state Created and queues it. It never
// runs fn and never suspends the caller.
func (s *Scheduler) Spawn(fn Func) *Task {
	if fn == nil {
		fn = func(*Co) (any, error) { return nil, nil }
	}
	t := s.newTask(fn)
	s.runq = append(s.runq, t)
	return t
}

// NewFuture returns a task without work. It is never run; it becomes
// terminal through Resolve, Reject or Cancel.
func (s *Scheduler) NewFuture() *Task {
	t := s.newTask(nil)
	t.future = true
	return t
}

// Resolve completes future f with v and wakes its joiners.
func (s *Scheduler) Resolve(f *Task, v any) error {
	if err := s.checkFuture(f); err != nil {
		return err
	}
	s.settle(f, Completed, v, nil)
	return nil
}

// Reject fails future f with err and wakes its joiners.
func (s *Scheduler) Reject(f *Task, err error) error {
	if err == nil {
		return fmt.Errorf("%w: reject with nil error", ErrInvalidArgument)
	}
	if err := s.checkFuture(f); err != nil {
		return err
	}
	s.settle(f, Failed, nil, &TaskError{ID: f.id, Err: err})
	return nil
}

// Cancel cancels t. A created or suspended task becomes Cancelled at once
// and its pending timer or join is dropped. Cancelling the running task
// takes effect at its next suspension point. Terminal tasks are left alone.
func (s *Scheduler) Cancel(t *Task) {
	if t == nil || t.s != s || t.state.Terminal() {
		return
	}
	if t == s.current {
		t.cancelReq = true
		return
	}
	s.detach(t)
	s.settle(t, Cancelled, nil, fmt.Errorf("%w: task %d", ErrCancelled, t.id))
	if t.started && !t.exited {
		s.unwindq = append(s.unwindq, t)
	}
}

// Close discards the scheduler. It reports, and returns joined together,
// the failures of tasks whose outcome nobody observed. Close is idempotent.
func (s *Scheduler) Close() error {
	if s.running {
		return ErrRunning
	}
	if s.closed {
		return s.closeErr
	}
	s.closed = true
	s.teardown()
	var errs []error
	for _, t := range s.tasks {
		if t.state != Failed || t.observed {
			continue
		}
		s.log.Error().Err(t.err).Uint64("task", t.id).Msg("task failure was never joined")
		errs = append(errs, t.err)
	}
	s.closeErr = errors.Join(errs...)
	return s.closeErr
}

// Run creates a scheduler, runs fn as its root task and closes it. When the
// root succeeds, failures no task joined are returned instead of being lost.
func Run(ctx context.Context, fn Func, optFns ...Option) (any, error) {
	s := New(optFns...)
	v, err := s.Run(ctx, fn)
	if cerr := s.Close(); err == nil && cerr != nil {
		return v, cerr
	}
	return v, err
}

func (s *Scheduler) newTask(fn Func) *Task {
	s.nextID++
	t := &Task{
		id:        s.nextID,
		s:         s,
		fn:        fn,
		state:     Created,
		spawnedAt: s.clock.Now(),
	}
	s.tasks = append(s.tasks, t)
	s.log.Debug().Uint64("task", t.id).Msg("spawned")
	if s.obs != nil {
		s.obs.TaskSpawned(s.ctx, t.id)
	}
	return t
}

func (s *Scheduler) checkFuture(f *Task) error {
	if f == nil || f.s != s || !f.future {
		return ErrNotFuture
	}
	if f.state.Terminal() {
		return fmt.Errorf("%w: future %d is %s", ErrAlreadyDone, f.id, f.state)
	}
	return nil
}

// detach drops whatever t is suspended on.
func (s *Scheduler) detach(t *Task) {
	if t.timer != 0 {
		s.timers.Cancel(t.timer)
		t.timer = 0
	}
	if w := t.waitingOn; w != nil {
		for i, j := range w.joiners {
			if j == t {
				w.joiners = append(w.joiners[:i], w.joiners[i+1:]...)
				break
			}
		}
		t.waitingOn = nil
	}
}

// settle records the terminal outcome of t and makes every joiner runnable,
// in join order, carrying that outcome.
func (s *Scheduler) settle(t *Task, st State, v any, err error) {
	t.state = st
	t.result = v
	t.err = err
	t.doneAt = s.clock.Now()
	for _, j := range t.joiners {
		j.waitingOn = nil
		j.wakeVal, j.wakeErr = v, err
		s.runq = append(s.runq, j)
		t.observed = true
	}
	t.joiners = nil
	if t.live {
		t.live = false
		s.runq = append(s.runq, s.lim.release()...)
	}

	ev := s.log.Debug()
	if err != nil {
		ev = ev.Err(err)
	}
	ev.Uint64("task", t.id).Stringer("state", st).Dur("elapsed", t.doneAt-t.spawnedAt).Msg("finished")
	if s.obs != nil {
		s.obs.TaskFinished(s.ctx, t.event())
	}
}

func (s *Scheduler) fail(t *Task, cause error, panicked bool, value any) {
	t.panicked = panicked
	if panicked && !s.opts.PanicAsError && !s.repanicOK {
		s.repanic, s.repanicOK = value, true
	}
	s.settle(t, Failed, nil, &TaskError{ID: t.id, Err: cause, Panicked: panicked})
}
