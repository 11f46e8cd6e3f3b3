package demo

import "github.com/NetPo4ki/go-cosched/sched"

func init() {
	register(Demo{
		Name:  "wait",
		Usage: "sleep in the root task while a spawned task and a future complete",
		Main:  waitMain,
	})
}

func waitForSeconds(co *sched.Co, env Env, n int) (any, error) {
	env.printf("Waiting for %d seconds...\n", n)
	if err := co.Sleep(env.units(n)); err != nil {
		return nil, err
	}
	env.printf("Done waiting!\n")
	return nil, nil
}

// anotherTask returns a future it resolves after two units of work.
func anotherTask(co *sched.Co, env Env) (*sched.Task, error) {
	f := co.NewFuture()
	if err := co.Sleep(env.units(2)); err != nil {
		return nil, err
	}
	if err := co.Resolve(f, "Result from another_task"); err != nil {
		return nil, err
	}
	return f, nil
}

func getData(env Env) sched.Func {
	return func(co *sched.Co) (any, error) {
		env.printf("Get Data Started....\n")
		if err := co.Sleep(env.units(2)); err != nil {
			return nil, err
		}
		return []int{2, 3, 4, 5, 6}, nil
	}
}

func waitMain(env Env) sched.Func {
	return func(co *sched.Co) (any, error) {
		task := co.Spawn(getData(env))
		data, err := waitForSeconds(co, env, 3)
		if err != nil {
			return nil, err
		}
		f, err := anotherTask(co, env)
		if err != nil {
			return nil, err
		}
		result, err := co.Join(f)
		if err != nil {
			return nil, err
		}
		got, err := sched.Await[[]int](co, task)
		if err != nil {
			return nil, err
		}
		env.printf("Get data: %v\n", got)
		env.printf("Result of wait_for_seconds: %v\n", data)
		env.printf("Result of another_task: %v\n", result)
		return result, nil
	}
}
