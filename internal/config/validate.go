package config

// This file adds a lightweight linter/validator for Config values. It
// performs static checks and returns a list of issues (errors and warnings)
// that callers can surface in a CLI or tests.

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"dbaccess/internal/source/csv"
	"dbaccess/internal/storage"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a finding worth surfacing that does not block
	// execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding.
//
// Path is a dotted path into the config (e.g. "backend.kind",
// "ingest.jobs[1].file"). Message is human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
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

var (
	logLevels = map[string]struct{}{
		"debug": {}, "info": {}, "warn": {}, "error": {},
	}
	metricsBackends = map[string]struct{}{
		"": {}, "none": {}, "prometheus": {}, "datadog": {},
	}
)

// Validate performs static validation of cfg. It does not mutate cfg and
// does no I/O; callers decide whether warnings are fatal.
func Validate(cfg Config) []Issue {
	var issues []Issue
	issues = append(issues, validateBackend(cfg.Backend)...)
	issues = append(issues, validateLog(cfg.Log)...)
	issues = append(issues, validateMetrics(cfg.Metrics)...)
	issues = append(issues, validateIngest(cfg.Ingest)...)
	return issues
}

func validateBackend(b Backend) []Issue {
	var issues []Issue

	if strings.TrimSpace(b.Kind) == "" {
		return append(issues, Issue{
			Severity: SeverityError,
			Path:     "backend.kind",
			Message:  fmt.Sprintf("backend.kind must not be empty; one of %v", storage.Kinds),
		})
	}
	kind, err := storage.ParseKind(b.Kind)
	if err != nil {
		return append(issues, Issue{
			Severity: SeverityError,
			Path:     "backend.kind",
			Message:  err.Error(),
		})
	}

	if strings.TrimSpace(b.Database) == "" {
		msg := "database name must not be empty"
		if kind == storage.KindSQLite {
			msg = "sqlite requires backend.database to be the database file path"
		}
		issues = append(issues, Issue{Severity: SeverityError, Path: "backend.database", Message: msg})
	}

	if !kind.NeedsServer() {
		if b.Host != "" || b.User != "" || b.Port != 0 {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     "backend",
				Message:  "sqlite ignores host, user, password and port",
			})
		}
		return issues
	}

	if strings.TrimSpace(b.Host) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "backend.host",
			Message:  fmt.Sprintf("%s requires a host", kind),
		})
	}
	if b.Port < 0 || b.Port > 65535 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "backend.port",
			Message:  fmt.Sprintf("port %d out of range; use 0 for the default %d", b.Port, kind.DefaultPort()),
		})
	}
	if strings.TrimSpace(b.User) == "" {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "backend.user",
			Message:  "no user set; the driver default applies",
		})
	}
	return issues
}

func validateLog(l Log) []Issue {
	if _, ok := logLevels[strings.ToLower(l.Level)]; ok || l.Level == "" {
		return nil
	}
	return []Issue{{
		Severity: SeverityError,
		Path:     "log.level",
		Message:  fmt.Sprintf("unknown log level %q; use debug, info, warn or error", l.Level),
	}}
}

func validateMetrics(m Metrics) []Issue {
	var issues []Issue

	b := strings.ToLower(m.Backend)
	if _, ok := metricsBackends[b]; !ok {
		return append(issues, Issue{
			Severity: SeverityError,
			Path:     "metrics.backend",
			Message:  fmt.Sprintf("unknown metrics backend %q; use none, prometheus or datadog", m.Backend),
		})
	}
	switch b {
	case "prometheus":
		if strings.TrimSpace(m.PushgatewayURL) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "metrics.pushgateway_url",
				Message:  "prometheus metrics require a Pushgateway URL",
			})
		}
		if strings.TrimSpace(m.Job) == "" {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     "metrics.job",
				Message:  "empty job; the default job name is used",
			})
		}
	case "datadog":
		if strings.TrimSpace(m.DatadogAddr) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "metrics.datadog_addr",
				Message:  "datadog metrics require a DogStatsD address, e.g. 127.0.0.1:8125",
			})
		}
	}
	return issues
}

func validateIngest(in Ingest) []Issue {
	var issues []Issue

	if in.Concurrency < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "ingest.concurrency",
			Message:  "concurrency must be >= 0",
		})
	}
	if in.ProgressEvery < 0 {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "ingest.progress_every",
			Message:  "negative progress_every disables progress logging",
		})
	}
	if in.HTTP.MaxRetries < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "ingest.http.max_retries",
			Message:  "max_retries must be >= 0",
		})
	}
	if in.HTTP.Timeout < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "ingest.http.timeout",
			Message:  "timeout must not be negative",
		})
	}
	if in.HTTP.InsecureSkipVerify {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "ingest.http.insecure_skip_verify",
			Message:  "TLS certificates of download hosts are not verified",
		})
	}

	tables := make(map[string]int, len(in.Jobs))
	for i, j := range in.Jobs {
		base := fmt.Sprintf("ingest.jobs[%d]", i)
		if strings.TrimSpace(j.Table) == "" {
			issues = append(issues, Issue{Severity: SeverityError, Path: base + ".table", Message: "table must not be empty"})
		} else if prev, dup := tables[j.Table]; dup {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     base + ".table",
				Message:  fmt.Sprintf("table %s is also loaded by jobs[%d]; concurrent runs interleave rows", j.Table, prev),
			})
		} else {
			tables[j.Table] = i
		}
		if strings.TrimSpace(j.File) == "" {
			issues = append(issues, Issue{Severity: SeverityError, Path: base + ".file", Message: "file must not be empty"})
		}
		if n := utf8.RuneCountInString(j.CSV.Comma); n > 1 {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     base + ".csv.comma",
				Message:  fmt.Sprintf("comma must be a single character, got %q", j.CSV.Comma),
			})
		}
		if !csv.SupportedEncoding(j.CSV.Encoding) {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     base + ".csv.encoding",
				Message:  fmt.Sprintf("unsupported encoding %q", j.CSV.Encoding),
			})
		}
	}
	return issues
}
