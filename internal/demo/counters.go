package demo

import "github.com/NetPo4ki/go-cosched/sched"

func init() {
	register(Demo{
		Name:  "counters",
		Usage: "run three countdowns concurrently and join the third (or all of them)",
		Main:  countersMain,
	})
}

func counter(env Env, i, n, period int) sched.Func {
	return func(co *sched.Co) (any, error) {
		for ; n != 0; n-- {
			env.printf("counter %d: %d\n", i, n)
			if err := co.Sleep(env.units(period)); err != nil {
				return nil, err
			}
		}
		env.printf("End of - count %d\n", i)
		return nil, nil
	}
}

func countersMain(env Env) sched.Func {
	return func(co *sched.Co) (any, error) {
		co.Spawn(counter(env, 1, 10, 1))
		co.Spawn(counter(env, 2, 5, 3))
		task3 := co.Spawn(counter(env, 3, 3, 5))
		if env.JoinAll {
			return nil, co.JoinAll()
		}
		_, err := co.Join(task3)
		return nil, err
	}
}
