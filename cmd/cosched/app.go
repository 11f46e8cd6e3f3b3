package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/rs/zerolog"
	"github.com/urfave/cli"
	"golang.org/x/sync/errgroup"

	"github.com/NetPo4ki/go-cosched/internal/demo"
	"github.com/NetPo4ki/go-cosched/observe/prom"
	"github.com/NetPo4ki/go-cosched/observe/zlog"
	"github.com/NetPo4ki/go-cosched/sched"
)

type runner struct {
	cfg    config
	stdout io.Writer
	stderr io.Writer
	log    zerolog.Logger
	reg    *prometheus.Registry
}

func newApp(stdout, stderr io.Writer) *cli.App {
	r := &runner{stdout: stdout, stderr: stderr}

	app := cli.NewApp()
	app.Name = "cosched"
	app.HelpName = "cosched"
	app.Usage = "run cooperative scheduling demos"
	app.UsageText = "cosched [global options] <command>"
	app.Version = version
	app.Writer = stdout
	app.ErrWriter = stderr
	app.Flags = r.cfg.globalFlags()
	app.Before = r.setup

	for _, d := range demo.All() {
		cmd := cli.Command{
			Name:   d.Name,
			Usage:  d.Usage,
			Action: func(*cli.Context) error { return r.runOne(d) },
		}
		if d.Name == "counters" {
			cmd.Flags = r.cfg.countersFlags()
		}
		app.Commands = append(app.Commands, cmd)
	}
	app.Commands = append(app.Commands, cli.Command{
		Name:   "all",
		Usage:  "run every demo except deadlock in parallel, each on its own scheduler",
		Action: func(*cli.Context) error { return r.runAll() },
	})
	return app
}

func (r *runner) setup(*cli.Context) error {
	level := zerolog.InfoLevel
	if r.cfg.verbose {
		level = zerolog.DebugLevel
	}
	cw := zerolog.ConsoleWriter{
		Out:        zerolog.SyncWriter(r.stderr),
		TimeFormat: time.TimeOnly,
		NoColor:    !isTerminal(r.stderr),
	}
	r.log = zerolog.New(cw).
		Level(level).
		With().Timestamp().Logger()
	r.reg = prometheus.NewRegistry()
	return nil
}

func (r *runner) options(name string) ([]sched.Option, error) {
	l := r.log.With().Str("demo", name).Logger()
	opts := []sched.Option{sched.WithLogger(l)}
	if r.cfg.realtime {
		opts = append(opts, sched.WithClock(sched.NewWallClock()))
	}

	var observers []sched.Observer
	if r.cfg.verbose {
		observers = append(observers, zlog.New(l))
	}
	if r.cfg.metrics {
		m, err := prom.New("cosched", r.reg, prom.Options{
			ConstLabels: prometheus.Labels{"demo": name},
		})
		if err != nil {
			return nil, fmt.Errorf("metrics: %w", err)
		}
		observers = append(observers, m)
	}
	if len(observers) > 0 {
		opts = append(opts, sched.WithObserver(sched.MultiObserver(observers...)))
	}
	return opts, nil
}

func (r *runner) env(out io.Writer) demo.Env {
	return demo.Env{Unit: r.cfg.unit, Out: out, JoinAll: r.cfg.joinAll}
}

func (r *runner) run(ctx context.Context, d demo.Demo, out io.Writer) error {
	opts, err := r.options(d.Name)
	if err != nil {
		return err
	}
	elapsed, err := demo.Run(ctx, d, r.env(out), opts...)
	if err != nil {
		return err
	}
	r.log.Info().Str("demo", d.Name).Dur("elapsed", elapsed).Msg("demo finished")
	return nil
}

func (r *runner) runOne(d demo.Demo) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	err := r.run(ctx, d, r.stdout)
	if merr := r.dumpMetrics(); err == nil {
		err = merr
	}
	return err
}

func (r *runner) runAll() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var demos []demo.Demo
	for _, d := range demo.All() {
		if d.Name != "deadlock" {
			demos = append(demos, d)
		}
	}
	outs := make([]bytes.Buffer, len(demos))
	g, gctx := errgroup.WithContext(ctx)
	for i, d := range demos {
		g.Go(func() error { return r.run(gctx, d, &outs[i]) })
	}
	err := g.Wait()
	for i, d := range demos {
		fmt.Fprintf(r.stdout, "== %s ==\n", d.Name)
		_, _ = outs[i].WriteTo(r.stdout)
	}
	if merr := r.dumpMetrics(); err == nil {
		err = merr
	}
	return err
}

func (r *runner) dumpMetrics() error {
	if !r.cfg.metrics {
		return nil
	}
	mfs, err := r.reg.Gather()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	for _, mf := range mfs {
		if _, err := expfmt.MetricFamilyToText(r.stderr, mf); err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
	}
	return nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}
