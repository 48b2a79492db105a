package config

import (
	"fmt"
	"strings"
)

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one validation finding, addressed by its config path.
type Issue struct {
	Severity Severity
	Path     string
	Message  string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s: %s", i.Severity, i.Path, i.Message)
}

var storageKinds = map[string]bool{"postgres": true, "mssql": true, "sqlite": true}

// Validate reports every problem in p rather than stopping at the first one.
func Validate(p Pipeline) []Issue {
	var issues []Issue
	add := func(sev Severity, path, format string, a ...any) {
		issues = append(issues, Issue{Severity: sev, Path: path, Message: fmt.Sprintf(format, a...)})
	}

	switch p.Source.Kind {
	case "file":
		if strings.TrimSpace(p.Source.File.Path) == "" {
			add(SeverityError, "source.file.path", "required when source.kind=file")
		}
	case "s3":
		if p.Source.S3.Bucket == "" {
			add(SeverityError, "source.s3.bucket", "required when source.kind=s3")
		}
		if p.Source.S3.Key == "" {
			add(SeverityError, "source.s3.key", "required when source.kind=s3")
		}
		if p.Source.S3.Region == "" {
			add(SeverityWarning, "source.s3.region", "empty; falling back to the AWS default region chain")
		}
	default:
		add(SeverityError, "source.kind", "must be file or s3, got %q", p.Source.Kind)
	}

	if !storageKinds[p.Storage.Kind] {
		add(SeverityError, "storage.kind", "must be postgres, mssql or sqlite, got %q", p.Storage.Kind)
	}
	if strings.TrimSpace(p.Storage.DB.DSN) == "" {
		add(SeverityError, "storage.db.dsn", "required")
	}
	if strings.Contains(p.Storage.DB.Schema, ".") {
		add(SeverityError, "storage.db.schema", "must be a bare schema name, got %q", p.Storage.DB.Schema)
	}
	if p.Storage.Kind == "sqlite" && p.Storage.DB.Schema != "" {
		add(SeverityWarning, "storage.db.schema", "ignored by sqlite")
	}

	if p.Runtime.ProgressEvery < 0 {
		add(SeverityError, "runtime.progress_every", "must be >= 0")
	}

	switch p.Metrics.Backend {
	case "", "none", "datadog":
	default:
		add(SeverityError, "metrics.backend", "must be none or datadog, got %q", p.Metrics.Backend)
	}

	return issues
}

// HasErrors reports whether any issue is an error.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}
