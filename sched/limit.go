package sched

// admission bounds how many spawned tasks may be live, that is started and
// not yet terminal. Tasks refused at their first step wait FIFO in pending.
type admission struct {
	max     int
	live    int
	pending []*Task
}

func newAdmission(n int) *admission {
	if n <= 0 {
		return nil
	}
	return &admission{max: n}
}

// admit reports whether t may take its first step now. A nil admission
// admits everything.
func (a *admission) admit(t *Task) bool {
	if a == nil || t == t.s.root {
		return true
	}
	if a.live >= a.max {
		a.pending = append(a.pending, t)
		return false
	}
	a.live++
	t.live = true
	return true
}

// release frees one slot and returns the pending tasks to queue again.
func (a *admission) release() []*Task {
	if a == nil {
		return nil
	}
	a.live--
	for len(a.pending) > 0 {
		t := a.pending[0]
		a.pending[0] = nil
		a.pending = a.pending[1:]
		if !t.state.Terminal() {
			return []*Task{t}
		}
	}
	return nil
}
