// Package demo holds the demonstration programs run by cmd/cosched. Each
// program is the root task of its own scheduler; time is counted in units so
// that the same program runs in virtual time under test and in wall time
// from the command line.
package demo

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/NetPo4ki/go-cosched/sched"
)

// Env configures a demo run.
type Env struct {
	// Unit is the duration of one demo second.
	Unit time.Duration
	// Out receives the program's output.
	Out io.Writer
	// JoinAll makes the counters demo join every counter, not just the last.
	JoinAll bool
}

func (e Env) units(n int) time.Duration {
	u := e.Unit
	if u <= 0 {
		u = time.Second
	}
	return time.Duration(n) * u
}

func (e Env) printf(format string, args ...any) {
	if e.Out != nil {
		fmt.Fprintf(e.Out, format, args...)
	}
}

// Demo is a named demonstration program.
type Demo struct {
	Name  string
	Usage string
	Main  func(env Env) sched.Func
}

var registry = map[string]Demo{}

func register(d Demo) { registry[d.Name] = d }

// Lookup finds a demo by name.
func Lookup(name string) (Demo, bool) {
	d, ok := registry[name]
	return d, ok
}

// All returns every demo sorted by name.
func All() []Demo {
	out := make([]Demo, 0, len(registry))
	for _, d := range registry {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Run runs d as the root task of a fresh scheduler built from opts and
// returns the scheduler time it took. Failures nobody joined are returned
// when the program itself succeeded.
func Run(ctx context.Context, d Demo, env Env, opts ...sched.Option) (time.Duration, error) {
	s := sched.New(opts...)
	start := s.Now()
	_, err := s.Run(ctx, d.Main(env))
	elapsed := s.Now() - start
	if cerr := s.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return elapsed, fmt.Errorf("demo %s: %w", d.Name, err)
	}
	return elapsed, nil
}

// fetch sleeps for n units and returns data, announcing the end as count i.
func fetch(env Env, i, n int, data []int) sched.Func {
	return func(co *sched.Co) (any, error) {
		if err := co.Sleep(env.units(n)); err != nil {
			return nil, err
		}
		env.printf("End of - count %d\n", i)
		return data, nil
	}
}

func executedIn(env Env, co *sched.Co, start time.Duration) {
	env.printf("Function executed in %.4fs\n", (co.Now() - start).Seconds())
}
