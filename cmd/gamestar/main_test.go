package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"gamestar/internal/config"
	"gamestar/internal/logging"
	"gamestar/internal/metrics"
	"gamestar/internal/metrics/datadog"
	"gamestar/internal/multitable"
)

// fakeRunner returns a canned result and records the config it received.
type fakeRunner struct {
	res     multitable.Result
	err     error
	calls   atomic.Int64
	lastCfg config.Pipeline
}

func (r *fakeRunner) Run(ctx context.Context, cfg config.Pipeline) (multitable.Result, error) {
	r.calls.Add(1)
	r.lastCfg = cfg
	return r.res, r.err
}

type fakeMetricsBackend struct {
	closeErr error
	closed   atomic.Int64
}

func (b *fakeMetricsBackend) IncCounter(string, float64, metrics.Labels)       {}
func (b *fakeMetricsBackend) ObserveHistogram(string, float64, metrics.Labels) {}
func (b *fakeMetricsBackend) Close() error {
	b.closed.Add(1)
	return b.closeErr
}

func validConfig() config.Pipeline {
	return config.Pipeline{
		Job:     "job1",
		Source:  config.Source{Kind: "file", File: config.FileSource{Path: "games.json"}},
		Storage: config.Storage{Kind: "sqlite", DB: config.DB{DSN: "file.db"}},
		Metrics: config.Metrics{Backend: "none"},
	}
}

func okResult() multitable.Result {
	return multitable.Result{
		RunID:   "run-1",
		Records: 3,
		Report: multitable.Report{Results: []multitable.TableResult{
			{Table: "fact_game", Rows: 3},
			{Table: "dim_support", Rows: 2},
		}},
	}
}

// failingDeps returns deps whose every seam fails the test when called.
func failingDeps(t *testing.T) appDeps {
	return appDeps{
		loadDotEnv: func() error { t.Fatalf("loadDotEnv must not be called"); return nil },
		loadConfig: func(string) (config.Pipeline, error) {
			t.Fatalf("loadConfig must not be called")
			return config.Pipeline{}, nil
		},
		newRunID: func() string { t.Fatalf("newRunID must not be called"); return "" },
		newRunner: func(*logging.Logger, string) runner {
			t.Fatalf("newRunner must not be called")
			return nil
		},
		initMetrics: func(context.Context, metricsSettings, *logging.Logger) (func(), error) {
			t.Fatalf("initMetrics must not be called")
			return nil, nil
		},
	}
}

func TestRunMain_UsageErrors(t *testing.T) {
	tests := []struct {
		name          string
		args          []string
		wantStderrSub string
	}{
		{name: "missing_config_flag", args: []string{}, wantStderrSub: "usage: gamestar -config"},
		{name: "empty_config_value", args: []string{"-config", "   "}, wantStderrSub: "usage: gamestar -config"},
		{name: "unknown_flag", args: []string{"-nope"}, wantStderrSub: "flag provided but not defined"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			code := runMain(context.Background(), tc.args, &stdout, &stderr, failingDeps(t))
			if code != 2 {
				t.Fatalf("exit code=%d, want 2; stderr=%q", code, stderr.String())
			}
			if !strings.Contains(stderr.String(), tc.wantStderrSub) {
				t.Fatalf("stderr=%q, want contains %q", stderr.String(), tc.wantStderrSub)
			}
			if stdout.Len() != 0 {
				t.Fatalf("stdout=%q, want empty", stdout.String())
			}
		})
	}
}

func TestRunMain_Flow(t *testing.T) {
	tests := []struct {
		name             string
		dotEnvErr        error
		loadErr          error
		mutate           func(*config.Pipeline)
		args             []string
		initErr          error
		res              multitable.Result
		runErr           error
		wantCode         int
		wantStderrSub    string
		wantStdoutSub    string
		wantRunnerCalls  int64
		wantCleanupCalls int64
	}{
		{
			name:          "dotenv_error",
			dotEnvErr:     errors.New("bad line"),
			wantCode:      2,
			wantStderrSub: "load .env: bad line",
		},
		{
			name:          "config_load_error",
			loadErr:       errors.New("read config cfg.yaml: missing"),
			wantCode:      2,
			wantStderrSub: "read config cfg.yaml",
		},
		{
			name:          "invalid_config",
			mutate:        func(p *config.Pipeline) { p.Storage.Kind = "oracle" },
			wantCode:      2,
			wantStderrSub: "configuration is invalid",
		},
		{
			name:          "validate_only",
			args:          []string{"-validate"},
			wantCode:      0,
			wantStdoutSub: "configuration is valid: cfg.yaml",
		},
		{
			name:          "metrics_flag_overrides_and_is_validated",
			args:          []string{"-metrics-backend", "statsd"},
			wantCode:      2,
			wantStderrSub: `must be none or datadog, got "statsd"`,
		},
		{
			name:          "init_metrics_error",
			initErr:       errors.New("metrics unavailable"),
			wantCode:      1,
			wantStderrSub: "init metrics: metrics unavailable",
		},
		{
			name:             "run_error_runs_cleanup",
			runErr:           errors.New("source: record \"1\": bad"),
			wantCode:         1,
			wantStderrSub:    "run: source: record",
			wantRunnerCalls:  1,
			wantCleanupCalls: 1,
		},
		{
			name: "table_failure_exits_1",
			res: multitable.Result{Report: multitable.Report{Results: []multitable.TableResult{
				{Table: "dim_support", Err: errors.New("load dim_support: boom")},
				{Table: "fact_game", Rows: 3},
			}}},
			wantCode:         1,
			wantStderrSub:    "load: 1 of 2 tables failed",
			wantRunnerCalls:  1,
			wantCleanupCalls: 1,
		},
		{
			name:             "success",
			res:              okResult(),
			wantCode:         0,
			wantStdoutSub:    "ok run=run-1 records=3 tables=2 rows=5",
			wantRunnerCalls:  1,
			wantCleanupCalls: 1,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			fr := &fakeRunner{res: tc.res, err: tc.runErr}
			var cleanupCalls atomic.Int64
			var gotSettings metricsSettings

			d := appDeps{
				loadDotEnv: func() error { return tc.dotEnvErr },
				loadConfig: func(path string) (config.Pipeline, error) {
					if path != "cfg.yaml" {
						t.Fatalf("loadConfig path=%q, want cfg.yaml", path)
					}
					cfg := validConfig()
					if tc.mutate != nil {
						tc.mutate(&cfg)
					}
					return cfg, tc.loadErr
				},
				newRunID: func() string { return "run-1" },
				newRunner: func(logger *logging.Logger, runID string) runner {
					if runID != "run-1" {
						t.Fatalf("runID=%q, want run-1", runID)
					}
					return fr
				},
				initMetrics: func(ctx context.Context, m metricsSettings, logger *logging.Logger) (func(), error) {
					gotSettings = m
					if tc.initErr != nil {
						return func() {}, tc.initErr
					}
					return func() { cleanupCalls.Add(1) }, nil
				},
			}

			args := append([]string{"-config", "cfg.yaml"}, tc.args...)
			code := runMain(context.Background(), args, &stdout, &stderr, d)

			if code != tc.wantCode {
				t.Fatalf("exit code=%d, want %d; stderr=%q", code, tc.wantCode, stderr.String())
			}
			if tc.wantStderrSub != "" && !strings.Contains(stderr.String(), tc.wantStderrSub) {
				t.Fatalf("stderr=%q, want contains %q", stderr.String(), tc.wantStderrSub)
			}
			if tc.wantStdoutSub != "" && !strings.Contains(stdout.String(), tc.wantStdoutSub) {
				t.Fatalf("stdout=%q, want contains %q", stdout.String(), tc.wantStdoutSub)
			}
			if got := fr.calls.Load(); got != tc.wantRunnerCalls {
				t.Fatalf("runner calls=%d, want %d", got, tc.wantRunnerCalls)
			}
			if got := cleanupCalls.Load(); got != tc.wantCleanupCalls {
				t.Fatalf("cleanup calls=%d, want %d", got, tc.wantCleanupCalls)
			}
			if tc.wantRunnerCalls > 0 && (gotSettings.Job != "job1" || gotSettings.RunID != "run-1") {
				t.Fatalf("metrics settings=%+v", gotSettings)
			}
		})
	}
}

func TestInitMetrics_None(t *testing.T) {
	oldSet := setMetricsBackend
	defer func() { setMetricsBackend = oldSet }()
	setMetricsBackend = func(metrics.Backend) {
		t.Fatalf("setMetricsBackend must not be called for none")
	}

	for _, name := range []string{"", "none"} {
		cleanup, err := initMetrics(context.Background(), metricsSettings{Backend: name}, logging.New(io.Discard, false))
		if err != nil {
			t.Fatalf("initMetrics(%q) err=%v", name, err)
		}
		cleanup()
	}
}

func TestInitMetrics_Unknown(t *testing.T) {
	cleanup, err := initMetrics(context.Background(), metricsSettings{Backend: "statsd"}, logging.New(io.Discard, false))
	if err == nil || cleanup == nil {
		t.Fatalf("initMetrics(statsd) err=%v cleanup!=nil=%v, want error and non-nil cleanup", err, cleanup != nil)
	}
}

func TestInitMetrics_Datadog_WiresBackendAndCloses(t *testing.T) {
	b := &fakeMetricsBackend{closeErr: errors.New("flush failed")}
	var (
		gotOpts datadog.Options
		sets    []metrics.Backend
	)

	oldNew, oldSet := newDatadogBackend, setMetricsBackend
	defer func() { newDatadogBackend, setMetricsBackend = oldNew, oldSet }()

	newDatadogBackend = func(ctx context.Context, opts datadog.Options) (metricsBackend, error) {
		gotOpts = opts
		return b, nil
	}
	setMetricsBackend = func(mb metrics.Backend) { sets = append(sets, mb) }

	var logs bytes.Buffer
	cleanup, err := initMetrics(context.Background(), metricsSettings{
		Backend: "datadog",
		Job:     "job1",
		RunID:   "run-1",
		Tags:    []string{"env:test"},
	}, logging.New(&logs, false))
	if err != nil {
		t.Fatalf("initMetrics err=%v", err)
	}
	if gotOpts.JobName != "job1" || gotOpts.RunID != "run-1" || len(gotOpts.Tags) != 1 {
		t.Fatalf("datadog options=%+v", gotOpts)
	}

	cleanup()
	if b.closed.Load() != 1 {
		t.Fatalf("Close calls=%d, want 1", b.closed.Load())
	}
	if len(sets) != 2 || sets[0] != metrics.Backend(b) || sets[1] != nil {
		t.Fatalf("setMetricsBackend calls=%v, want [backend nil]", sets)
	}
	if !strings.Contains(logs.String(), "datadog close/flush error: flush failed") {
		t.Fatalf("close error not logged: %q", logs.String())
	}
}

func TestInitMetrics_DatadogError(t *testing.T) {
	oldNew := newDatadogBackend
	defer func() { newDatadogBackend = oldNew }()
	newDatadogBackend = func(context.Context, datadog.Options) (metricsBackend, error) {
		return nil, errors.New("no api key")
	}

	if _, err := initMetrics(context.Background(), metricsSettings{Backend: "datadog"}, logging.New(io.Discard, false)); err == nil {
		t.Fatalf("initMetrics err=nil, want error")
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}

	if err := loadDotEnv(); err != nil {
		t.Fatalf("loadDotEnv() without .env err=%v", err)
	}

	t.Setenv("GAMESTAR_DOTENV_TEST", "")
	if err := os.Unsetenv("GAMESTAR_DOTENV_TEST"); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("GAMESTAR_DOTENV_TEST=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := loadDotEnv(); err != nil {
		t.Fatalf("loadDotEnv() err=%v", err)
	}
	if got := os.Getenv("GAMESTAR_DOTENV_TEST"); got != "from-file" {
		t.Fatalf("GAMESTAR_DOTENV_TEST=%q, want from-file", got)
	}
}

// TestRunMain_EndToEndSQLite drives the real config loader, runner and SQLite
// backend from a YAML file.
func TestRunMain_EndToEndSQLite(t *testing.T) {
	dir := t.TempDir()
	doc := `{"1": {"name": "Solo", "release_date": "Jan 5, 2020", "windows": true,
	  "supported_languages": ["English"], "developers": ["Dev"], "tags": {"Indie": 4}}}`
	if err := os.WriteFile(filepath.Join(dir, "games.json"), []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg := "job: e2e\n" +
		"source:\n  kind: file\n  file:\n    path: " + filepath.Join(dir, "games.json") + "\n" +
		"storage:\n  kind: sqlite\n  db:\n    dsn: " + filepath.Join(dir, "w.db") + "\n    auto_create_tables: true\n"
	cfgPath := filepath.Join(dir, "pipeline.yaml")
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o600); err != nil {
		t.Fatal(err)
	}

	d := defaultDeps()
	d.loadDotEnv = func() error { return nil }

	var stdout, stderr bytes.Buffer
	code := runMain(context.Background(), []string{"-config", cfgPath}, &stdout, &stderr, d)
	if code != 0 {
		t.Fatalf("exit code=%d; stderr=%s", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "ok run=") || !strings.Contains(stdout.String(), "records=1 tables=19") {
		t.Fatalf("stdout=%q", stdout.String())
	}
	if !strings.Contains(stderr.String(), "stage=load table=fact_game strategy=rows status=ok rows=1") {
		t.Fatalf("stderr missing fact_game load line: %s", stderr.String())
	}
}
