package prom

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NetPo4ki/go-cosched/sched"
)

func TestMetricsFollowRun(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New("test", reg, Options{})
	require.NoError(t, err)

	boom := errors.New("boom")
	_, err = sched.Run(context.Background(), func(co *sched.Co) (any, error) {
		a := co.Spawn(func(co *sched.Co) (any, error) {
			return nil, co.Sleep(2 * time.Second)
		})
		b := co.Spawn(func(co *sched.Co) (any, error) {
			if err := co.Sleep(time.Second); err != nil {
				return nil, err
			}
			return nil, boom
		})
		if _, err := co.Join(a); err != nil {
			return nil, err
		}
		_, err := co.Join(b)
		return nil, err
	}, sched.WithObserver(m))
	require.ErrorIs(t, err, boom)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.tasksSpawned))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.tasksStarted))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.activeTasks))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.tasksFinished.WithLabelValues("completed")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.tasksFinished.WithLabelValues("failed")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.suspensions.WithLabelValues("sleep")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.suspensions.WithLabelValues("join")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runsFailed))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.clockAdvances))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.clockSeconds))
}

func TestActiveTasksIgnoresUnstarted(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New("", reg, Options{})
	require.NoError(t, err)

	_, err = sched.Run(context.Background(), func(co *sched.Co) (any, error) {
		co.Cancel(co.Spawn(nil))
		co.Spawn(func(co *sched.Co) (any, error) {
			return nil, co.Sleep(time.Hour)
		})
		co.Yield()
		return nil, nil
	}, sched.WithObserver(m))
	require.NoError(t, err)

	assert.Equal(t, 0.0, testutil.ToFloat64(m.activeTasks))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.tasksStarted))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.tasksFinished.WithLabelValues("cancelled")))
}

func TestPanicCounted(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New("test", reg, Options{})
	require.NoError(t, err)

	_, err = sched.Run(context.Background(), func(*sched.Co) (any, error) {
		panic("kaboom")
	}, sched.WithObserver(m))

	var te *sched.TaskError
	require.ErrorAs(t, err, &te)
	assert.True(t, te.Panicked)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.tasksPanicked))
}

func TestNewReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m1, err := New("test", reg, Options{})
	require.NoError(t, err)
	m2, err := New("test", reg, Options{})
	require.NoError(t, err)

	m1.TaskSpawned(context.Background(), 1)
	m2.TaskSpawned(context.Background(), 1)
	assert.Equal(t, 2.0, testutil.ToFloat64(m1.tasksSpawned))
	assert.Same(t, m1.tasksFinished, m2.tasksFinished)

	n, err := testutil.GatherAndCount(reg, "test_tasks_spawned_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestConstLabels(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New("test", reg, Options{ConstLabels: prometheus.Labels{"sched": "demo"}})
	require.NoError(t, err)
	m.ClockAdvanced(context.Background(), 1500*time.Millisecond)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	var found bool
	for _, mf := range mfs {
		if mf.GetName() != "test_clock_seconds" {
			continue
		}
		found = true
		lp := mf.GetMetric()[0].GetLabel()
		require.Len(t, lp, 1)
		assert.Equal(t, "sched", lp[0].GetName())
		assert.Equal(t, "demo", lp[0].GetValue())
		assert.Equal(t, 1.5, mf.GetMetric()[0].GetGauge().GetValue())
	}
	assert.True(t, found)
}
