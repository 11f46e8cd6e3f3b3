// Package sched provides a cooperative task scheduler. A Scheduler runs
// many suspendable tasks on a single logical thread: one task executes at a
// time and control changes hands only when a task sleeps, yields or joins.
// Time comes from a Clock, virtual by default, so runs are deterministic.
//
// Tasks are created with Spawn, which never runs them right away, and
// joined with Co.Join. Spawning every task before joining lets their sleeps
// overlap; joining each task right after spawning it runs them one after
// another:
//
//	s := sched.New()
//	v, err := s.Run(ctx, func(co *sched.Co) (any, error) {
//		a := co.Spawn(fetch(9 * time.Second))
//		b := co.Spawn(fetch(10 * time.Second))
//		if _, err := co.Join(b); err != nil {
//			return nil, err
//		}
//		return co.Join(a)
//	})
//	// s.Now() == 10s
//
// Run returns once the root task is terminal. Tasks still pending at that
// point are discarded unless WithKeepAlive is set or the root calls
// Co.JoinAll. Failures nobody joined are reported by Close.
package sched
