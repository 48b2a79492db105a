// Package multitable loads the in-memory star schema into a warehouse.
//
// BuildPlan turns a finished transform.Session into one LoadTask per table,
// in dependency order. Loader writes each task with a single CopyRows call and
// isolates failures per table: a table that fails is reported and the rest
// are still attempted. There is no retry and no rollback.
package multitable

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gamestar/internal/metrics"
	"gamestar/internal/storage"
)

// Logger is the minimal logging interface used by the loader and runner.
// *log.Logger and *logging.Logger satisfy it.
type Logger interface {
	Printf(format string, v ...any)
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func logfOf(l Logger) func(format string, v ...any) {
	if l == nil {
		return log.New(discardWriter{}, "", 0).Printf
	}
	return l.Printf
}

func durMS(start time.Time) time.Duration { return time.Since(start).Truncate(time.Millisecond) }

// Strategy selects how a task's rows are produced before streaming.
type Strategy int

const (
	// StrategySequential emits the keys 1..Count as single-column rows.
	StrategySequential Strategy = iota
	// StrategyRows streams Rows after exact-duplicate elimination.
	StrategyRows
	// StrategyKeyed streams one row per distinct key; the key is column 0.
	StrategyKeyed
)

func (s Strategy) String() string {
	switch s {
	case StrategySequential:
		return "sequential"
	case StrategyRows:
		return "rows"
	case StrategyKeyed:
		return "keyed"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

// LoadTask is one destination table and the rows to write into it.
type LoadTask struct {
	Table    string
	Columns  []string
	Strategy Strategy

	// Count is the number of keys for StrategySequential.
	Count int

	// Rows holds the values for StrategyRows and StrategyKeyed, one slice per
	// row in Columns order.
	Rows [][]any
}

// rows materializes what the task streams.
func (t LoadTask) rows() [][]any {
	switch t.Strategy {
	case StrategySequential:
		out := make([][]any, t.Count)
		for i := range out {
			out[i] = []any{int64(i + 1)}
		}
		return out
	case StrategyKeyed:
		return DedupeByKey(t.Rows, 0)
	default:
		return DedupeRows(t.Rows)
	}
}

// TableResult is the outcome of one task.
type TableResult struct {
	Table    string
	Strategy Strategy
	Rows     int64
	Duration time.Duration
	Err      error
}

func (r TableResult) OK() bool { return r.Err == nil }

// Report collects the results of a Load call in task order.
type Report struct {
	Results []TableResult
}

// Failed returns the results whose table did not load.
func (r Report) Failed() []TableResult {
	var out []TableResult
	for _, res := range r.Results {
		if res.Err != nil {
			out = append(out, res)
		}
	}
	return out
}

// Err joins every table error, or returns nil when all tables loaded.
func (r Report) Err() error {
	var errs []error
	for _, res := range r.Failed() {
		errs = append(errs, res.Err)
	}
	return errors.Join(errs...)
}

// Rows is the total number of rows written across all tables.
func (r Report) Rows() int64 {
	var n int64
	for _, res := range r.Results {
		n += res.Rows
	}
	return n
}

// Loader writes tasks through a storage.MultiRepository.
type Loader struct {
	Repo   storage.MultiRepository
	Logger Logger
}

// Load attempts every task in order. It never stops early on a table error;
// failures are returned in the Report. A canceled ctx fails the remaining
// tasks without calling the repository.
func (l *Loader) Load(ctx context.Context, tasks []LoadTask) Report {
	logf := logfOf(l.Logger)
	rep := Report{Results: make([]TableResult, 0, len(tasks))}

	for _, task := range tasks {
		res := l.loadOne(ctx, task)
		rep.Results = append(rep.Results, res)

		if res.Err != nil {
			logf("stage=load table=%s strategy=%s status=error duration=%s err=%v", task.Table, task.Strategy, res.Duration, res.Err)
			continue
		}
		logf("stage=load table=%s strategy=%s status=ok rows=%d duration=%s", task.Table, task.Strategy, res.Rows, res.Duration)
	}
	return rep
}

func (l *Loader) loadOne(ctx context.Context, task LoadTask) TableResult {
	start := time.Now()
	res := TableResult{Table: task.Table, Strategy: task.Strategy}

	fail := func(err error) TableResult {
		res.Err = fmt.Errorf("load %s: %w", task.Table, err)
		res.Duration = durMS(start)
		metrics.RecordStep("load_table", start, res.Err)
		return res
	}

	if l.Repo == nil {
		return fail(errors.New("loader: Repo is required"))
	}
	if err := ctx.Err(); err != nil {
		return fail(err)
	}
	if len(task.Columns) == 0 {
		return fail(errors.New("no columns"))
	}

	n, err := l.Repo.CopyRows(ctx, task.Table, task.Columns, task.rows())
	if err != nil {
		return fail(err)
	}

	res.Rows = n
	res.Duration = durMS(start)
	metrics.RecordStep("load_table", start, nil)
	_, local := storage.SplitQualifiedName(task.Table)
	metrics.IncCounter(metrics.TableRowsTotal, float64(n), metrics.Labels{"table": local})
	return res
}
