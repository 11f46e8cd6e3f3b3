package timerq

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNow struct{ t time.Duration }

func (f *fakeNow) now() time.Duration { return f.t }

func TestScheduleOrdersByWakeTime(t *testing.T) {
	t.Parallel()
	clk := &fakeNow{}
	q := New[string](clk.now)

	for _, c := range []struct {
		name  string
		delay time.Duration
	}{{"c", 3 * time.Second}, {"a", time.Second}, {"b", 2 * time.Second}} {
		_, err := q.Schedule(c.name, c.delay)
		require.NoError(t, err)
	}

	d, ok := q.NextDeadline()
	require.True(t, ok)
	assert.Equal(t, time.Second, d)
	assert.Equal(t, []string{"a", "b", "c"}, q.PopReady(10*time.Second))
	assert.Zero(t, q.Len())
}

func TestTiesFireInRegistrationOrder(t *testing.T) {
	t.Parallel()
	q := New[int]((&fakeNow{}).now)
	for i := 0; i < 50; i++ {
		_, err := q.Schedule(i, 5*time.Second)
		require.NoError(t, err)
	}
	got := q.PopReady(5 * time.Second)
	require.Len(t, got, 50)
	for i, v := range got {
		assert.Equal(t, i, v)
	}
}

func TestPopReadyOnlyDueEntries(t *testing.T) {
	t.Parallel()
	clk := &fakeNow{t: 10 * time.Second}
	q := New[string](clk.now)
	_, _ = q.Schedule("soon", time.Second)
	_, _ = q.Schedule("later", 5*time.Second)

	assert.Empty(t, q.PopReady(10*time.Second))
	assert.Equal(t, []string{"soon"}, q.PopReady(11*time.Second))
	d, ok := q.NextDeadline()
	require.True(t, ok)
	assert.Equal(t, 15*time.Second, d)
}

func TestZeroDelayIsReadyNow(t *testing.T) {
	t.Parallel()
	clk := &fakeNow{t: 2 * time.Second}
	q := New[string](clk.now)
	_, err := q.Schedule("now", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"now"}, q.PopReady(clk.t))
}

func TestHugeDelaySaturates(t *testing.T) {
	t.Parallel()
	clk := &fakeNow{t: time.Second}
	q := New[string](clk.now)
	_, err := q.Schedule("never", math.MaxInt64)
	require.NoError(t, err)
	_, err = q.Schedule("soon", time.Second)
	require.NoError(t, err)

	assert.Empty(t, q.PopReady(clk.t))
	assert.Equal(t, []string{"soon"}, q.PopReady(2*time.Second))
	d, ok := q.NextDeadline()
	require.True(t, ok)
	assert.Equal(t, time.Duration(math.MaxInt64), d)
}

func TestNegativeDelayRejected(t *testing.T) {
	t.Parallel()
	q := New[string]((&fakeNow{}).now)
	id, err := q.Schedule("x", -time.Nanosecond)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidArgument))
	assert.Zero(t, id)
	assert.Zero(t, q.Len())
}

func TestCancel(t *testing.T) {
	t.Parallel()
	q := New[string]((&fakeNow{}).now)
	a, _ := q.Schedule("a", time.Second)
	b, _ := q.Schedule("b", 2*time.Second)
	c, _ := q.Schedule("c", 3*time.Second)

	assert.True(t, q.Cancel(b))
	assert.False(t, q.Cancel(b), "second cancel is a no-op")
	assert.Equal(t, []string{"a", "c"}, q.PopReady(time.Hour))
	assert.False(t, q.Cancel(a), "fired entries cannot be cancelled")
	assert.False(t, q.Cancel(c))
	assert.False(t, q.Cancel(ID(999)))

	_, ok := q.NextDeadline()
	assert.False(t, ok)
}

func TestCancelHeadMovesDeadline(t *testing.T) {
	t.Parallel()
	q := New[string]((&fakeNow{}).now)
	head, _ := q.Schedule("head", time.Second)
	_, _ = q.Schedule("tail", 4*time.Second)
	require.True(t, q.Cancel(head))
	d, ok := q.NextDeadline()
	require.True(t, ok)
	assert.Equal(t, 4*time.Second, d)
}
