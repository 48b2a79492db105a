package multitable

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"gamestar/internal/config"
	"gamestar/internal/metrics"
	"gamestar/internal/source"
	"gamestar/internal/storage"
	"gamestar/internal/transform"
)

// Runner executes one extract → transform → load run.
//
// The function fields are seams; NewDefaultRunner fills them with the real
// source opener and storage factory.
type Runner struct {
	NewMultiRepo func(ctx context.Context, cfg storage.MultiConfig) (storage.MultiRepository, error)
	OpenSource   func(ctx context.Context, src config.Source) (io.ReadCloser, error)
	NewRunID     func() string
	Logger       Logger
}

func NewDefaultRunner(logger Logger) *Runner {
	return &Runner{
		NewMultiRepo: storage.NewMulti,
		OpenSource:   source.Open,
		NewRunID:     func() string { return uuid.NewString() },
		Logger:       logger,
	}
}

// Result summarizes a run. Report is empty when the run failed before loading.
type Result struct {
	RunID   string
	Records int
	Stats   transform.Stats
	Report  Report
}

// Run reads the whole catalog into a transform.Session and loads it.
//
// Errors:
//   - invalid configuration, an unreadable source, malformed input, a failed
//     storage connection or DDL are returned and nothing is loaded.
//   - table load failures are not returned; they are in Result.Report.
func (r *Runner) Run(ctx context.Context, cfg config.Pipeline) (Result, error) {
	logf := logfOf(r.Logger)
	res := Result{RunID: r.runID()}

	if issues := config.Validate(cfg); config.HasErrors(issues) {
		var errs []error
		for _, iss := range issues {
			if iss.Severity == config.SeverityError {
				errs = append(errs, errors.New(iss.String()))
			}
		}
		return res, fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}

	logf("stage=start run=%s job=%s source=%s storage=%s", res.RunID, cfg.Job, source.Describe(cfg.Source), cfg.Storage.Kind)

	session, n, err := r.extractTransform(ctx, cfg, logf)
	res.Records = n
	if err != nil {
		return res, err
	}
	res.Stats = session.Stats()

	rep, err := r.load(ctx, cfg, session, logf)
	res.Report = rep
	return res, err
}

func (r *Runner) runID() string {
	if r.NewRunID == nil {
		return uuid.NewString()
	}
	return r.NewRunID()
}

func (r *Runner) extractTransform(ctx context.Context, cfg config.Pipeline, logf func(string, ...any)) (*transform.Session, int, error) {
	open := r.OpenSource
	if open == nil {
		open = source.Open
	}

	extractStart := time.Now()
	rc, err := open(ctx, cfg.Source)
	metrics.RecordStep("extract", extractStart, err)
	if err != nil {
		return nil, 0, err
	}
	defer rc.Close()
	logf("stage=extract ok source=%s duration=%s", source.Describe(cfg.Source), durMS(extractStart))

	transformStart := time.Now()
	session := transform.NewSession()
	every := cfg.Runtime.ProgressEvery

	n, err := source.StreamRecords(ctx, rc, func(rec source.Record) error {
		if err := session.Add(rec); err != nil {
			return err
		}
		if every > 0 {
			if seen := len(session.Facts()); seen%every == 0 {
				logf("stage=transform progress records=%d", seen)
			}
		}
		return nil
	})
	metrics.RecordStep("transform", transformStart, err)
	metrics.IncCounter(metrics.RecordsTotal, float64(n), metrics.Labels{"kind": "read"})
	if err != nil {
		return nil, n, err
	}

	st := session.Stats()
	logf("stage=transform ok records=%d facts=%d duration=%s", n, st.Facts, durMS(transformStart))
	if cfg.Runtime.DebugTimings {
		logf("stage=transform groups language=%d developer=%d publisher=%d category=%d genre=%d tag=%d dates=%d support=%d",
			st.LanguageGroups, st.DeveloperGroups, st.PublisherGroups, st.CategoryGroups, st.GenreGroups, st.TagGroups,
			st.Dates, st.SupportCombos)
		logf("stage=transform children packages=%d sub_packages=%d movies=%d screenshots=%d",
			st.Packages, st.SubPackages, st.Movies, st.Screenshots)
	}
	return session, n, nil
}

func (r *Runner) load(ctx context.Context, cfg config.Pipeline, session *transform.Session, logf func(string, ...any)) (Report, error) {
	newRepo := r.NewMultiRepo
	if newRepo == nil {
		newRepo = storage.NewMulti
	}

	loadStart := time.Now()
	repo, err := newRepo(ctx, storage.MultiConfig{Kind: cfg.Storage.Kind, DSN: cfg.Storage.DB.DSN})
	if err != nil {
		metrics.RecordStep("load", loadStart, err)
		return Report{}, fmt.Errorf("storage %s: %w", cfg.Storage.Kind, err)
	}
	defer repo.Close()

	if cfg.Storage.DB.AutoCreateTables {
		ddlStart := time.Now()
		err := repo.EnsureTables(ctx, Warehouse(cfg.Storage.DB.Schema, true))
		metrics.RecordStep("ddl", ddlStart, err)
		if err != nil {
			return Report{}, fmt.Errorf("ensure tables: %w", err)
		}
		logf("stage=ddl ok duration=%s", durMS(ddlStart))
	}

	loader := &Loader{Repo: repo, Logger: r.Logger}
	rep := loader.Load(ctx, BuildPlan(session, cfg.Storage.DB.Schema))
	metrics.RecordStep("load", loadStart, rep.Err())

	status := "ok"
	if len(rep.Failed()) > 0 {
		status = "partial"
	}
	logf("stage=load %s tables=%d failed=%d rows=%d duration=%s", status, len(rep.Results), len(rep.Failed()), rep.Rows(), durMS(loadStart))
	return rep, nil
}
