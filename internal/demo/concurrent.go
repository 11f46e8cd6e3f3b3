package demo

import "github.com/NetPo4ki/go-cosched/sched"

func init() {
	register(Demo{
		Name:  "concurrent",
		Usage: "spawn three fetches, then join them in reverse order (max 10 units)",
		Main:  concurrentMain,
	})
}

func concurrentMain(env Env) sched.Func {
	return func(co *sched.Co) (any, error) {
		start := co.Now()
		t1 := co.Spawn(fetch(env, 1, 9, fetchData[0]))
		t2 := co.Spawn(fetch(env, 2, 10, fetchData[1]))
		t3 := co.Spawn(fetch(env, 3, 8, fetchData[2]))

		var out [][]int
		for _, t := range []*sched.Task{t3, t2, t1} {
			v, err := sched.Await[[]int](co, t)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		for _, v := range out {
			env.printf("%v\n", v)
		}
		executedIn(env, co, start)
		return out, nil
	}
}
