// Package errgroup provides an adapter that mimics golang.org/x/sync/errgroup
// semantics on top of the cooperative scheduler. Functions passed to Go run
// as sibling tasks; the first failure cancels the others and is what Wait
// returns.
package errgroup

import (
	"errors"
	"fmt"

	"github.com/NetPo4ki/go-cosched/sched"
)

// Group is an errgroup-like collection of tasks owned by one running task.
// Go, TryGo and Wait must be called from the owner's work.
type Group struct {
	co    *sched.Co
	tasks []*sched.Task
	err   error
	limit int
}

// New creates a Group owned by the task running co.
func New(co *sched.Co) *Group {
	return &Group{co: co}
}

// SetLimit bounds the number of unfinished tasks in the group. A negative
// value removes the limit.
func (g *Group) SetLimit(n int) {
	if n < 0 {
		n = 0
	}
	g.limit = n
}

// Go spawns f as a new task. With a limit set, Go suspends the owner until
// a slot frees up. After the first failure, Go spawns nothing.
func (g *Group) Go(f func(co *sched.Co) error) {
	for g.limit > 0 && g.err == nil {
		t := g.oldestActive()
		if t == nil || g.active() < g.limit {
			break
		}
		if _, err := g.co.Join(t); err != nil {
			g.record(err, nil)
		}
	}
	g.spawn(f)
}

// TryGo spawns f only if the group is below its limit and has not failed.
func (g *Group) TryGo(f func(co *sched.Co) error) bool {
	if g.err != nil || (g.limit > 0 && g.active() >= g.limit) {
		return false
	}
	g.spawn(f)
	return true
}

// Wait joins every task in the group, including tasks added meanwhile, and
// returns the first failure. Siblings are cancelled by the failing task
// itself, so the join order does not delay cancellation. Cancellations
// caused by that failure are not reported.
func (g *Group) Wait() error {
	for i := 0; i < len(g.tasks); i++ {
		if _, err := g.co.Join(g.tasks[i]); err != nil {
			g.record(err, nil)
		}
	}
	return g.err
}

func (g *Group) spawn(f func(co *sched.Co) error) {
	if f == nil || g.err != nil {
		return
	}
	g.tasks = append(g.tasks, g.co.Spawn(func(co *sched.Co) (any, error) {
		self := co.Task()
		defer func() {
			// A cancelled task exits through runtime.Goexit, where recover
			// returns nil.
			if r := recover(); r != nil {
				g.record(&sched.TaskError{ID: self.ID(), Err: fmt.Errorf("%v", r), Panicked: true}, self)
				panic(r)
			}
		}()
		err := f(co)
		if err != nil {
			g.record(err, self)
		}
		return nil, err
	}))
}

// record keeps err as the group failure unless one is already set.
// Cancellations are never a group failure.
func (g *Group) record(err error, self *sched.Task) {
	if g.err != nil || errors.Is(err, sched.ErrCancelled) {
		return
	}
	g.err = err
	g.cancelOthers(self)
}

func (g *Group) cancelOthers(self *sched.Task) {
	for _, t := range g.tasks {
		if t != self {
			g.co.Cancel(t)
		}
	}
}

func (g *Group) active() int {
	n := 0
	for _, t := range g.tasks {
		if !t.Done() {
			n++
		}
	}
	return n
}

func (g *Group) oldestActive() *sched.Task {
	for _, t := range g.tasks {
		if !t.Done() {
			return t
		}
	}
	return nil
}
