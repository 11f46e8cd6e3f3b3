package demo

import "github.com/NetPo4ki/go-cosched/sched"

func init() {
	register(Demo{
		Name:  "deadlock",
		Usage: "join a task that waits on a future nobody resolves",
		Main:  deadlockMain,
	})
}

func deadlockMain(env Env) sched.Func {
	return func(co *sched.Co) (any, error) {
		f := co.NewFuture()
		waiter := co.Spawn(func(co *sched.Co) (any, error) {
			env.printf("waiting on future %d\n", f.ID())
			return co.Join(f)
		})
		return co.Join(waiter)
	}
}
