package main

import (
	"time"

	"github.com/urfave/cli"
)

type config struct {
	realtime bool
	unit     time.Duration
	verbose  bool
	metrics  bool
	joinAll  bool
}

func (c *config) globalFlags() []cli.Flag {
	return []cli.Flag{
		cli.BoolFlag{
			Name:        "realtime, r",
			Usage:       "sleep in wall-clock time instead of virtual time",
			EnvVar:      "COSCHED_REALTIME",
			Destination: &c.realtime,
		},
		cli.DurationFlag{
			Name:        "unit, u",
			Usage:       "duration of one demo second",
			EnvVar:      "COSCHED_UNIT",
			Value:       time.Second,
			Destination: &c.unit,
		},
		cli.BoolFlag{
			Name:        "verbose",
			Usage:       "log scheduler events to stderr",
			EnvVar:      "COSCHED_VERBOSE",
			Destination: &c.verbose,
		},
		cli.BoolFlag{
			Name:        "metrics, m",
			Usage:       "print Prometheus metrics of the run to stderr",
			Destination: &c.metrics,
		},
	}
}

func (c *config) countersFlags() []cli.Flag {
	return []cli.Flag{
		cli.BoolFlag{
			Name:        "join-all, a",
			Usage:       "join every counter instead of only the third",
			Destination: &c.joinAll,
		},
	}
}
