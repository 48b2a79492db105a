// Command gamestar loads a game catalog JSON document into a star-schema
// warehouse.
//
// Usage:
//
//	gamestar -config pipeline.yaml [-v] [-validate] [-metrics-backend none|datadog]
//
// Exit codes: 0 when every table loaded, 1 when the run failed or any table
// failed to load, 2 for usage and configuration errors.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"gamestar/internal/config"
	"gamestar/internal/logging"
	"gamestar/internal/metrics"
	"gamestar/internal/metrics/datadog"
	"gamestar/internal/multitable"

	// register all backends with the storage factory.
	// config specifies which to use but we need to build in support for all of them.
	_ "gamestar/internal/storage/all"
)

// runner is the part of *multitable.Runner the command drives.
type runner interface {
	Run(ctx context.Context, cfg config.Pipeline) (multitable.Result, error)
}

// metricsSettings is what initMetrics needs from config and flags.
type metricsSettings struct {
	Backend    string
	Job        string
	RunID      string
	Tags       []string
	FlushEvery time.Duration
}

// appDeps are external seams for testability.
type appDeps struct {
	loadDotEnv  func() error
	loadConfig  func(path string) (config.Pipeline, error)
	newRunID    func() string
	newRunner   func(logger *logging.Logger, runID string) runner
	initMetrics func(ctx context.Context, m metricsSettings, logger *logging.Logger) (func(), error)
}

func defaultDeps() appDeps {
	return appDeps{
		loadDotEnv: loadDotEnv,
		loadConfig: config.Load,
		newRunID:   uuid.NewString,
		newRunner: func(logger *logging.Logger, runID string) runner {
			r := multitable.NewDefaultRunner(logger)
			r.NewRunID = func() string { return runID }
			return r
		},
		initMetrics: initMetrics,
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := runMain(ctx, os.Args[1:], os.Stdout, os.Stderr, defaultDeps())
	stop()
	os.Exit(code)
}

func runMain(ctx context.Context, args []string, stdout, stderr io.Writer, d appDeps) int {
	fset := flag.NewFlagSet("gamestar", flag.ContinueOnError)
	fset.SetOutput(stderr)

	var (
		cfgPath        string
		metricsBackend string
		validate       bool
		verbose        bool
	)
	fset.StringVar(&cfgPath, "config", "", "pipeline config path (YAML or JSON)")
	fset.StringVar(&metricsBackend, "metrics-backend", "", "metrics backend to use (none, datadog); overrides metrics.backend")
	fset.BoolVar(&validate, "validate", false, "validate the configuration and exit")
	fset.BoolVar(&verbose, "v", false, "enable verbose logs")

	if err := fset.Parse(args); err != nil {
		return 2
	}
	if strings.TrimSpace(cfgPath) == "" {
		fmt.Fprintln(stderr, "usage: gamestar -config path/to/pipeline.yaml [-v] [-validate] [-metrics-backend none|datadog]")
		return 2
	}

	if err := d.loadDotEnv(); err != nil {
		fmt.Fprintf(stderr, "load .env: %v\n", err)
		return 2
	}

	cfg, err := d.loadConfig(cfgPath)
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 2
	}
	if metricsBackend != "" {
		cfg.Metrics.Backend = metricsBackend
	}

	issues := config.Validate(cfg)
	for _, iss := range issues {
		fmt.Fprintln(stderr, iss.String())
	}
	if config.HasErrors(issues) {
		fmt.Fprintf(stderr, "configuration is invalid: %s\n", cfgPath)
		return 2
	}
	if validate {
		fmt.Fprintf(stdout, "configuration is valid: %s\n", cfgPath)
		return 0
	}

	runID := d.newRunID()
	logger := logging.New(stderr, verbose).With("job", cfg.Job)

	cleanup, err := d.initMetrics(ctx, metricsSettings{
		Backend:    cfg.Metrics.Backend,
		Job:        cfg.Job,
		RunID:      runID,
		Tags:       cfg.Metrics.Tags,
		FlushEvery: cfg.Metrics.FlushEvery,
	}, logger)
	if err != nil {
		fmt.Fprintf(stderr, "init metrics: %v\n", err)
		return 1
	}
	defer cleanup()

	start := time.Now()
	res, err := d.newRunner(logger, runID).Run(ctx, cfg)
	if err != nil {
		fmt.Fprintf(stderr, "run: %v\n", err)
		return 1
	}
	if err := res.Report.Err(); err != nil {
		fmt.Fprintf(stderr, "load: %d of %d tables failed:\n%v\n", len(res.Report.Failed()), len(res.Report.Results), err)
		return 1
	}

	logger.Debugf("completed run=%s records=%d rows=%d in %s", res.RunID, res.Records, res.Report.Rows(), time.Since(start).Truncate(time.Millisecond))
	fmt.Fprintf(stdout, "ok run=%s records=%d tables=%d rows=%d\n", res.RunID, res.Records, len(res.Report.Results), res.Report.Rows())
	return 0
}

// loadDotEnv loads ./.env when present. A missing file is not an error.
func loadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// metricsBackend is the minimal interface used by this command to manage a
// metrics backend.
type metricsBackend interface {
	metrics.Backend
	Close() error
}

// Seams for initMetrics tests.
var (
	newDatadogBackend = func(ctx context.Context, opts datadog.Options) (metricsBackend, error) {
		return datadog.NewBackend(ctx, opts)
	}
	setMetricsBackend = metrics.SetBackend
)

// initMetrics wires the selected backend into the metrics package. The
// returned cleanup is never nil; for datadog it stops the flush loop, submits
// the tail of the buffer and restores the nop backend.
func initMetrics(ctx context.Context, m metricsSettings, logger *logging.Logger) (func(), error) {
	switch m.Backend {
	case "", "none":
		logger.Debugf("metrics: disabled (backend=%q)", m.Backend)
		return func() {}, nil

	case "datadog":
		b, err := newDatadogBackend(ctx, datadog.Options{
			JobName:    m.Job,
			RunID:      m.RunID,
			Tags:       m.Tags,
			FlushEvery: m.FlushEvery,
		})
		if err != nil {
			return func() {}, err
		}
		logger.Printf("metrics: backend=datadog job_name=%s run=%s tags=%v", m.Job, m.RunID, m.Tags)
		setMetricsBackend(b)
		return func() {
			if err := b.Close(); err != nil {
				logger.Errorf("metrics: datadog close/flush error: %v", err)
			}
			setMetricsBackend(nil)
		}, nil

	default:
		return func() {}, fmt.Errorf("unknown metrics backend %q", m.Backend)
	}
}
