// Package prom exports scheduler lifecycle events as Prometheus metrics.
// Metrics implements sched.Observer.
package prom

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/NetPo4ki/go-cosched/sched"
)

// Options controls collector configuration.
type Options struct {
	// ConstLabels are attached to every collector, e.g. a scheduler ID.
	ConstLabels prometheus.Labels
	// DurationBuckets for task and run durations, in scheduler seconds.
	DurationBuckets []float64
}

// Metrics maintains counters, gauges and histograms fed by sched.Observer hooks.
type Metrics struct {
	// tasks
	activeTasks   prometheus.Gauge
	tasksSpawned  prometheus.Counter
	tasksStarted  prometheus.Counter
	tasksFinished *prometheus.CounterVec
	tasksPanicked prometheus.Counter
	suspensions   *prometheus.CounterVec
	taskDuration  *prometheus.HistogramVec

	// runs
	runs          prometheus.Counter
	runsFailed    prometheus.Counter
	runDuration   prometheus.Histogram
	clockAdvances prometheus.Counter
	clockSeconds  prometheus.Gauge
}

var _ sched.Observer = (*Metrics)(nil)

// New creates and registers the collectors under namespace. Collectors
// already registered with reg are reused, so several schedulers may share
// one Metrics or create their own against the same registry.
func New(namespace string, reg prometheus.Registerer, opts Options) (*Metrics, error) {
	if namespace == "" {
		namespace = "cosched"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	buckets := opts.DurationBuckets
	if len(buckets) == 0 {
		buckets = prometheus.ExponentialBuckets(0.001, 4, 10)
	}
	cl := opts.ConstLabels

	m := &Metrics{
		activeTasks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "active_tasks", ConstLabels: cl,
			Help: "Tasks started and not yet finished.",
		}),
		tasksSpawned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "tasks_spawned_total", ConstLabels: cl,
			Help: "Tasks created, including root tasks and futures.",
		}),
		tasksStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "tasks_started_total", ConstLabels: cl,
			Help: "Tasks that took their first step.",
		}),
		tasksFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "tasks_finished_total", ConstLabels: cl,
			Help: "Tasks that reached a terminal state, by state.",
		}, []string{"state"}),
		tasksPanicked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "tasks_panicked_total", ConstLabels: cl,
			Help: "Tasks whose work panicked.",
		}),
		suspensions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "task_suspensions_total", ConstLabels: cl,
			Help: "Suspension points reached, by reason.",
		}, []string{"reason"}),
		taskDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "task_duration_seconds", ConstLabels: cl,
			Help:    "Scheduler time from spawn to terminal state.",
			Buckets: buckets,
		}, []string{"state"}),
		runs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "runs_total", ConstLabels: cl,
			Help: "Completed Run calls.",
		}),
		runsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "runs_failed_total", ConstLabels: cl,
			Help: "Run calls that returned an error.",
		}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "run_duration_seconds", ConstLabels: cl,
			Help:    "Scheduler time spent in Run.",
			Buckets: buckets,
		}),
		clockAdvances: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "clock_advances_total", ConstLabels: cl,
			Help: "Times the loop idled until the next timer deadline.",
		}),
		clockSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "clock_seconds", ConstLabels: cl,
			Help: "Scheduler time after the last clock advance.",
		}),
	}

	var err error
	if m.activeTasks, err = registerCollector(reg, m.activeTasks); err != nil {
		return nil, err
	}
	if m.tasksSpawned, err = registerCollector(reg, m.tasksSpawned); err != nil {
		return nil, err
	}
	if m.tasksStarted, err = registerCollector(reg, m.tasksStarted); err != nil {
		return nil, err
	}
	if m.tasksFinished, err = registerCollector(reg, m.tasksFinished); err != nil {
		return nil, err
	}
	if m.tasksPanicked, err = registerCollector(reg, m.tasksPanicked); err != nil {
		return nil, err
	}
	if m.suspensions, err = registerCollector(reg, m.suspensions); err != nil {
		return nil, err
	}
	if m.taskDuration, err = registerCollector(reg, m.taskDuration); err != nil {
		return nil, err
	}
	if m.runs, err = registerCollector(reg, m.runs); err != nil {
		return nil, err
	}
	if m.runsFailed, err = registerCollector(reg, m.runsFailed); err != nil {
		return nil, err
	}
	if m.runDuration, err = registerCollector(reg, m.runDuration); err != nil {
		return nil, err
	}
	if m.clockAdvances, err = registerCollector(reg, m.clockAdvances); err != nil {
		return nil, err
	}
	if m.clockSeconds, err = registerCollector(reg, m.clockSeconds); err != nil {
		return nil, err
	}
	return m, nil
}

// RunStarted is a no-op; runs are counted when they finish.
func (m *Metrics) RunStarted(_ context.Context) {}

// RunFinished counts the run and observes its duration.
func (m *Metrics) RunFinished(_ context.Context, elapsed time.Duration, err error) {
	m.runs.Inc()
	if err != nil {
		m.runsFailed.Inc()
	}
	m.runDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) TaskSpawned(_ context.Context, _ uint64) {
	m.tasksSpawned.Inc()
}

func (m *Metrics) TaskStarted(_ context.Context, _ uint64) {
	m.tasksStarted.Inc()
	m.activeTasks.Inc()
}

func (m *Metrics) TaskSuspended(_ context.Context, _ uint64, reason sched.Reason) {
	m.suspensions.WithLabelValues(reason.String()).Inc()
}

// TaskFinished records the terminal state. Only started tasks leave the
// active gauge; tasks cancelled before their first step never entered it.
func (m *Metrics) TaskFinished(_ context.Context, ev sched.TaskEvent) {
	state := ev.State.String()
	m.tasksFinished.WithLabelValues(state).Inc()
	m.taskDuration.WithLabelValues(state).Observe(ev.Elapsed.Seconds())
	if ev.Started {
		m.activeTasks.Dec()
	}
	if ev.Panicked {
		m.tasksPanicked.Inc()
	}
}

func (m *Metrics) ClockAdvanced(_ context.Context, now time.Duration) {
	m.clockAdvances.Inc()
	m.clockSeconds.Set(now.Seconds())
}

func registerCollector[T prometheus.Collector](reg prometheus.Registerer, collector T) (T, error) {
	err := reg.Register(collector)
	if err == nil {
		return collector, nil
	}

	var alreadyRegisteredErr prometheus.AlreadyRegisteredError
	if errors.As(err, &alreadyRegisteredErr) {
		existing, ok := alreadyRegisteredErr.ExistingCollector.(T)
		if !ok {
			return collector, fmt.Errorf("collector type mismatch for %T", collector)
		}
		return existing, nil
	}

	return collector, err
}
