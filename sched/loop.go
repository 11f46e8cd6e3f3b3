package sched

import (
	"context"
	"errors"
	"fmt"
)

var errStalled = errors.New("sched: nothing runnable")

// Run runs fn as the root task and drives every task until the root is
// terminal. It returns the root's result, its failure, ErrDeadlock when the
// root can never finish, or ctx.Err() when ctx is done first. Tasks still
// pending afterwards are discarded. A scheduler runs once.
func (s *Scheduler) Run(ctx context.Context, fn Func) (any, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	switch {
	case s.closed:
		return nil, ErrClosed
	case s.running || s.ran:
		return nil, ErrRunning
	}
	if fn == nil {
		fn = func(*Co) (any, error) { return nil, nil }
	}
	s.running = true
	s.ctx = ctx
	start := s.clock.Now()
	if s.obs != nil {
		s.obs.RunStarted(ctx)
	}

	root := s.newTask(fn)
	s.root = root
	s.runq = append(s.runq, root)

	v, err := s.runRoot(ctx)
	s.teardown()
	s.running = false
	s.ran = true
	s.ctx = context.Background()

	elapsed := s.clock.Now() - start
	s.log.Debug().Err(err).Dur("elapsed", elapsed).Msg("run finished")
	if s.obs != nil {
		s.obs.RunFinished(ctx, elapsed, err)
	}
	if s.repanicOK {
		panic(s.repanic)
	}
	return v, err
}

func (s *Scheduler) runRoot(ctx context.Context) (any, error) {
	root := s.root
	err := s.drive(ctx, func() bool { return root.state.Terminal() })
	switch {
	case errors.Is(err, errStalled):
		return nil, fmt.Errorf("%w: root task %d is %s with %d task(s) blocked",
			ErrDeadlock, root.id, root.state, s.blocked())
	case err != nil:
		return nil, err
	}
	if s.opts.KeepAlive {
		if err := s.drive(ctx, func() bool { return false }); err != nil && !errors.Is(err, errStalled) {
			return nil, err
		}
	}
	root.observed = true
	return root.outcome()
}

// drive runs the scheduling loop until done reports true. It returns
// errStalled when no task is runnable and no timer is pending.
func (s *Scheduler) drive(ctx context.Context, done func() bool) error {
	for !done() {
		if s.repanicOK {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		s.runq = append(s.runq, s.timers.PopReady(s.clock.Now())...)
		if t := s.next(); t != nil {
			s.step(t)
			s.unwindParked()
			continue
		}
		when, ok := s.timers.NextDeadline()
		if !ok {
			return errStalled
		}
		if err := s.clock.AdvanceTo(ctx, when); err != nil {
			return err
		}
		s.log.Debug().Dur("now", s.clock.Now()).Msg("clock advanced")
		if s.obs != nil {
			s.obs.ClockAdvanced(ctx, s.clock.Now())
		}
	}
	return nil
}

// next pops the first runnable task. Stale entries of terminal tasks are
// dropped, and first steps beyond the admission limit are deferred.
func (s *Scheduler) next() *Task {
	for len(s.runq) > 0 {
		t := s.runq[0]
		s.runq[0] = nil
		s.runq = s.runq[1:]
		if t.state.Terminal() {
			continue
		}
		if !t.started && !s.lim.admit(t) {
			continue
		}
		return t
	}
	return nil
}

// step hands the baton to t and waits until t suspends or finishes.
func (s *Scheduler) step(t *Task) {
	s.current = t
	t.state = Running
	if !t.started {
		t.started = true
		t.resume = make(chan signal)
		if s.obs != nil {
			s.obs.TaskStarted(s.ctx, t.id)
		}
		go t.main()
	} else {
		t.resume <- sigResume
	}
	<-s.yield
	s.current = nil
}

// unwindParked lets every cancelled task that is still parked run its
// deferred calls and exit.
func (s *Scheduler) unwindParked() {
	for len(s.unwindq) > 0 {
		t := s.unwindq[0]
		s.unwindq[0] = nil
		s.unwindq = s.unwindq[1:]
		if t.exited {
			continue
		}
		s.current = t
		t.resume <- sigUnwind
		<-s.yield
		s.current = nil
	}
}

// teardown discards every pending task. Unwinding may spawn new tasks, so
// it repeats until nothing is left.
func (s *Scheduler) teardown() {
	for {
		n := 0
		for _, t := range s.tasks {
			if t.state.Terminal() {
				continue
			}
			n++
			s.detach(t)
			t.joiners = nil
			t.state = Cancelled
			t.err = fmt.Errorf("%w: task %d discarded", ErrCancelled, t.id)
			t.discarded = true
			t.doneAt = s.clock.Now()
			t.live = false
			if t.started && !t.exited {
				s.unwindq = append(s.unwindq, t)
			}
			if s.obs != nil {
				s.obs.TaskFinished(s.ctx, t.event())
			}
		}
		if n > 0 {
			s.log.Debug().Int("tasks", n).Msg("discarded pending tasks")
		}
		if len(s.unwindq) == 0 {
			break
		}
		s.unwindParked()
	}
	s.runq = nil
	if s.lim != nil {
		s.lim.pending = nil
		s.lim.live = 0
	}
}

// blocked counts non-terminal tasks other than the root.
func (s *Scheduler) blocked() int {
	n := 0
	for _, t := range s.tasks {
		if t != s.root && !t.state.Terminal() {
			n++
		}
	}
	return n
}
