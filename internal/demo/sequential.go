package demo

import "github.com/NetPo4ki/go-cosched/sched"

func init() {
	register(Demo{
		Name:  "sequential",
		Usage: "await three fetches one after the other (9+10+8 units)",
		Main:  sequentialMain,
	})
}

func sequentialMain(env Env) sched.Func {
	return func(co *sched.Co) (any, error) {
		start := co.Now()
		var out [][]int
		for i, n := range []int{9, 10, 8} {
			v, err := fetch(env, i+1, n, fetchData[i])(co)
			if err != nil {
				return nil, err
			}
			out = append(out, v.([]int))
		}
		executedIn(env, co, start)
		return out, nil
	}
}

var fetchData = [][]int{
	{1, 2, 3, 4, 5},
	{6, 7, 8, 9},
	{10, 11, 12, 13},
}
