package sched

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMaxLiveBound(t *testing.T) {
	t.Parallel()
	const N = 2
	const M = 5
	s := New(WithMaxLive(N))
	var cur, maxSeen int
	_, err := s.Run(context.Background(), func(co *Co) (any, error) {
		for i := 0; i < M; i++ {
			co.Spawn(func(co *Co) (any, error) {
				cur++
				if cur > maxSeen {
					maxSeen = cur
				}
				defer func() { cur-- }()
				return nil, co.Sleep(time.Second)
			})
		}
		return nil, co.JoinAll()
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if maxSeen != N {
		t.Fatalf("observed %d live tasks, want %d", maxSeen, N)
	}
	if s.Now() != 3*time.Second {
		t.Fatalf("expected 3s for %d tasks in batches of %d, got %v", M, N, s.Now())
	}
}

func TestMaxLiveExemptsRoot(t *testing.T) {
	t.Parallel()
	v, err := Run(context.Background(), func(co *Co) (any, error) {
		return co.Join(co.Spawn(sleeper(time.Second, "child")))
	}, WithMaxLive(1))
	if err != nil || v != "child" {
		t.Fatalf("unexpected outcome (%v, %v)", v, err)
	}
}

func TestMaxLiveStarvationIsDeadlock(t *testing.T) {
	t.Parallel()
	s := New(WithMaxLive(1))
	var b *Task
	_, err := s.Run(context.Background(), func(co *Co) (any, error) {
		a := co.Spawn(func(co *Co) (any, error) { return co.Join(b) })
		b = co.Spawn(nil)
		return co.Join(a)
	})
	if !errors.Is(err, ErrDeadlock) {
		t.Fatalf("expected ErrDeadlock, got %v", err)
	}
	if b.State() != Cancelled || !b.Discarded() {
		t.Fatalf("expected pending task discarded, got %v", b)
	}
}

func TestCancelPendingAdmission(t *testing.T) {
	t.Parallel()
	ran := false
	_, err := Run(context.Background(), func(co *Co) (any, error) {
		first := co.Spawn(sleeper(time.Second, nil))
		second := co.Spawn(func(*Co) (any, error) { ran = true; return nil, nil })
		co.Yield()
		if second.State() != Created {
			t.Errorf("expected second waiting for admission, got %v", second)
		}
		co.Cancel(second)
		_, err := co.Join(first)
		return nil, err
	}, WithMaxLive(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ran {
		t.Fatal("cancelled pending task must not run")
	}
}
