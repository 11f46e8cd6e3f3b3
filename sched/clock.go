package sched

import (
	"context"
	"time"
)

// Clock is the time source of a scheduler. Times are offsets from the
// clock's origin. AdvanceTo is only called by the scheduler loop when every
// task is suspended.
type Clock interface {
	Now() time.Duration
	AdvanceTo(ctx context.Context, t time.Duration) error
}

// VirtualClock jumps straight to the next deadline. Runs are deterministic
// and take no wall time.
type VirtualClock struct {
	now time.Duration
}

func NewVirtualClock() *VirtualClock { return &VirtualClock{} }

func (c *VirtualClock) Now() time.Duration { return c.now }

func (c *VirtualClock) AdvanceTo(ctx context.Context, t time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if t > c.now {
		c.now = t
	}
	return nil
}

// WallClock measures real elapsed time since it was created and really waits
// in AdvanceTo.
type WallClock struct {
	origin time.Time
}

func NewWallClock() *WallClock { return &WallClock{origin: time.Now()} }

func (c *WallClock) Now() time.Duration { return time.Since(c.origin) }

func (c *WallClock) AdvanceTo(ctx context.Context, t time.Duration) error {
	d := t - c.Now()
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
