package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/1pkg/gowait"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

const usage = "Usage: gowait <seconds>"

func main() {
	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		os.Exit(1)
	}
}

func newApp(out io.Writer) *cli.App {
	app := cli.NewApp()
	app.Name = "gowait"
	app.Usage = "block for the provided amount of seconds and compare waiting strategies"
	app.ArgsUsage = "<seconds>"
	app.Writer = out
	app.HideVersion = true
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "verbose",
			Usage: "enable verbose logging",
		},
	}
	app.Before = func(cctx *cli.Context) error {
		logrus.SetOutput(os.Stderr)
		logrus.SetLevel(logrus.WarnLevel)
		if cctx.GlobalBool("verbose") {
			logrus.SetLevel(logrus.DebugLevel)
		}
		return nil
	}
	app.Action = func(cctx *cli.Context) error {
		return wait(cctx, out)
	}
	app.Commands = []cli.Command{
		{
			Name:  "strategies",
			Usage: "list all built in waiting strategies",
			Action: func(cctx *cli.Context) error {
				return strategies(out)
			},
		},
		{
			Name:  "bench",
			Usage: "measure waiting strategies accuracy and CPU cost",
			Flags: []cli.Flag{
				cli.DurationFlag{
					Name:  "duration",
					Usage: "wait duration per single run",
					Value: time.Second,
				},
				cli.IntFlag{
					Name:  "runs",
					Usage: "amount of runs per strategy",
					Value: 3,
				},
				cli.StringSliceFlag{
					Name:  "strategy",
					Usage: "strategy to bench, repeatable, all by default",
				},
				cli.StringFlag{
					Name:  "rabbit",
					Usage: "rabbitmq url to publish the report to",
				},
				cli.StringFlag{
					Name:  "kafka",
					Usage: "kafka url to publish the report to",
				},
				cli.StringFlag{
					Name:  "queue",
					Usage: "queue or topic name for report publishing",
					Value: "gowait_reports",
				},
				cli.DurationFlag{
					Name:  "pace",
					Usage: "delay before each report publish",
				},
				cli.StringFlag{
					Name:  "store",
					Usage: "badger path to store the report baseline at",
				},
			},
			Action: func(cctx *cli.Context) error {
				return bench(cctx, out)
			},
		},
	}
	return app
}

func wait(cctx *cli.Context, out io.Writer) error {
	if cctx.NArg() != 1 {
		fmt.Fprintln(out, usage)
		return fmt.Errorf("gowait expects exactly one argument, got %d", cctx.NArg())
	}
	arg := cctx.Args().First()
	seconds, err := strconv.Atoi(arg)
	if err != nil || seconds < 0 {
		fmt.Fprintln(out, usage)
		return fmt.Errorf("gowait can't parse seconds argument %q", arg)
	}
	fmt.Fprintf(out, "Waiting for %d seconds...\n", seconds)
	logrus.WithField("seconds", seconds).Debug("gowait wait has been started")
	if err := gowait.Delay(context.Background(), seconds); err != nil {
		return err
	}
	fmt.Fprintln(out, "Done!")
	return nil
}

func strategies(out io.Writer) error {
	names := make([]string, 0)
	for name := range gowait.Strategies() {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintln(out, name)
	}
	return nil
}

func bench(cctx *cli.Context, out io.Writer) error {
	all := gowait.Strategies()
	if picked := cctx.StringSlice("strategy"); len(picked) > 0 {
		filtered := make(map[string]gowait.NewWaiter, len(picked))
		for _, name := range picked {
			factory, ok := all[name]
			if !ok {
				return fmt.Errorf("gowait doesn't know strategy %q", name)
			}
			filtered[name] = factory
		}
		all = filtered
	}
	dur, runs := cctx.Duration("duration"), cctx.Int("runs")
	logrus.WithFields(logrus.Fields{
		"strategies": len(all),
		"duration":   dur,
		"runs":       runs,
	}).Debug("gowait bench has been started")
	reports, err := gowait.NewBench(all, dur, runs).Run(context.Background())
	if err != nil {
		return err
	}
	render(out, reports)
	data, err := gowait.DefaultMarshaler.MarshalReports(context.Background(), reports)
	if err != nil {
		return err
	}
	if err := publish(cctx, data); err != nil {
		return err
	}
	return store(cctx, reports, data)
}

func render(out io.Writer, reports []gowait.Report) {
	fmt.Fprintf(
		out,
		"%-8s %12s %12s %12s %12s %12s %10s %10s %10s\n",
		"strategy", "mean", "stddev", "min", "max", "p99", "accuracy", "cpu user", "cpu sys",
	)
	for _, report := range reports {
		fmt.Fprintf(
			out,
			"%-8s %12s %12s %12s %12s %12s %9.3f%% %9.3fs %9.3fs\n",
			report.Strategy,
			report.Mean,
			report.Stddev,
			report.Min,
			report.Max,
			report.P99,
			report.Accuracy,
			report.CPUUser,
			report.CPUSystem,
		)
	}
}

func publish(cctx *cli.Context, data []byte) error {
	queue := cctx.String("queue")
	reporters := make([]gowait.Reporter, 0, 2)
	if url := cctx.String("rabbit"); url != "" {
		reporters = append(reporters, gowait.NewReporterRabbit(url, queue, 3))
	}
	if url := cctx.String("kafka"); url != "" {
		reporters = append(reporters, gowait.NewReporterKafka(url, queue, 3))
	}
	pace := cctx.Duration("pace")
	for _, reporter := range reporters {
		if pace > 0 {
			reporter = gowait.NewReporterPaced(reporter, gowait.NewWaiterSleep(), pace)
		}
		if err := reporter.Report(context.Background(), data); err != nil {
			return err
		}
		logrus.WithField("queue", queue).Debug("gowait report has been published")
	}
	return nil
}

func store(cctx *cli.Context, reports []gowait.Report, data []byte) error {
	path := cctx.String("store")
	if path == "" {
		return nil
	}
	storage := gowait.NewStorageBadger(path, "gowait_baseline")
	defer storage.Close()
	ctx := context.Background()
	if baseline, err := storage.Get(ctx); err == nil {
		compare(reports, baseline)
	}
	if err := storage.Set(ctx, data); err != nil {
		return err
	}
	logrus.WithField("path", path).Debug("gowait baseline has been stored")
	return nil
}

func compare(reports []gowait.Report, baseline []byte) {
	previous, err := gowait.DefaultUnmarshaler.UnmarshalReports(context.Background(), baseline)
	if err != nil {
		logrus.WithError(err).Warn("gowait can't unmarshal stored baseline")
		return
	}
	means := make(map[string]time.Duration, len(previous))
	for _, report := range previous {
		means[report.Strategy] = report.Mean
	}
	for _, report := range reports {
		if mean, ok := means[report.Strategy]; ok {
			logrus.WithFields(logrus.Fields{
				"strategy": report.Strategy,
				"mean":     report.Mean,
				"baseline": mean,
				"delta":    report.Mean - mean,
			}).Info("gowait baseline comparison")
		}
	}
}
