// Package audit checks PSWS data trees for the consistency assumptions the
// extraction pipeline relies on: one row encoding per file, complete rows,
// ascending timestamps, and file names that agree with their contents.
package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/couchcryptid/psws-hapi/internal/domain"
	"github.com/couchcryptid/psws-hapi/internal/observability"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// Severity grades a finding. Errors fail an audit; warnings do not.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Check names.
const (
	CheckFormat     = "format_purity"
	CheckFieldCount = "field_count"
	CheckDecode     = "decode"
	CheckMonotonic  = "monotonic_time"
	CheckDateMatch  = "date_match"
	CheckFileName   = "file_name"
	CheckEmpty      = "empty_file"
	CheckCrossFile  = "cross_file_order"
	CheckRead       = "read"
)

// Finding is one consistency violation.
type Finding struct {
	RunID    string   `json:"run_id"`
	Severity Severity `json:"severity"`
	Check    string   `json:"check"`
	Dataset  string   `json:"dataset"`
	File     string   `json:"file"`
	Line     int      `json:"line,omitempty"`
	Content  string   `json:"content,omitempty"`
	Message  string   `json:"message"`
}

// FileSummary describes one audited container file.
type FileSummary struct {
	Dataset string
	File    string
	Format  domain.Format
	Lines   int
	Records int
	First   time.Time
	Last    time.Time

	FirstLine    int    // line of the first record
	FirstContent string // raw text of the first record
}

// Report is the result of one audit run.
type Report struct {
	RunID       string
	GeneratedAt time.Time
	Type        domain.DatasetType
	Datasets    []string
	Files       []FileSummary
	Findings    []Finding
}

// Count returns the number of findings with severity s.
func (r *Report) Count(s Severity) int {
	n := 0
	for _, f := range r.Findings {
		if f.Severity == s {
			n++
		}
	}
	return n
}

// Passed reports whether the run produced no error findings.
func (r *Report) Passed() bool { return r.Count(SeverityError) == 0 }

// ByCheck groups findings by check name, preserving order within each group.
func (r *Report) ByCheck() map[string][]Finding {
	out := make(map[string][]Finding)
	for _, f := range r.Findings {
		out[f.Check] = append(out[f.Check], f)
	}
	return out
}

// Tree lists the stations and container files of a data tree.
type Tree interface {
	Stations(t domain.DatasetType) ([]string, error)
	All(ds domain.Dataset) ([]domain.ContainerFile, error)
}

// OpenFunc opens the line stream of a container file.
type OpenFunc func(f domain.ContainerFile, t domain.DatasetType) (domain.LineStream, error)

// Sink receives the findings of a completed run.
type Sink interface {
	Publish(ctx context.Context, findings []Finding) error
}

// Validator walks a data tree and reports consistency findings.
type Validator struct {
	tree    Tree
	open    OpenFunc
	clock   clockwork.Clock
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewValidator creates a Validator. The clock stamps each report.
func NewValidator(tree Tree, open OpenFunc, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Validator {
	return &Validator{tree: tree, open: open, clock: clock, logger: logger, metrics: metrics}
}

// Run audits every station that has data of type t.
func (v *Validator) Run(ctx context.Context, t domain.DatasetType) (*Report, error) {
	if !t.Known() {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownDatasetType, t)
	}
	stations, err := v.tree.Stations(t)
	if err != nil {
		return nil, fmt.Errorf("list stations: %w", err)
	}
	ids := make([]string, len(stations))
	for i, s := range stations {
		ids[i] = s + "/" + string(t)
	}
	return v.RunDatasets(ctx, t, ids...)
}

// RunDatasets audits the named datasets, all of which must be of type t.
func (v *Validator) RunDatasets(ctx context.Context, t domain.DatasetType, ids ...string) (*Report, error) {
	rep := &Report{
		RunID:       uuid.NewString(),
		GeneratedAt: v.clock.Now().UTC(),
		Type:        t,
	}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		ds, err := domain.ParseDatasetID(id)
		if err != nil {
			return rep, err
		}
		if ds.Type != t {
			return rep, fmt.Errorf("%w: dataset %s is not of type %s", domain.ErrUnknownDatasetType, id, t)
		}
		if err := v.auditDataset(ctx, rep, ds); err != nil {
			return rep, err
		}
	}

	for _, f := range rep.Findings {
		v.metrics.AuditFindings.WithLabelValues(string(f.Severity), f.Check).Inc()
	}
	v.logger.Info("audit complete",
		"run_id", rep.RunID,
		"type", t,
		"datasets", len(rep.Datasets),
		"files", len(rep.Files),
		"errors", rep.Count(SeverityError),
		"warnings", rep.Count(SeverityWarning),
	)
	return rep, nil
}

func (v *Validator) auditDataset(ctx context.Context, rep *Report, ds domain.Dataset) error {
	files, err := v.tree.All(ds)
	if err != nil {
		return fmt.Errorf("list %s: %w", ds.ID, err)
	}
	rep.Datasets = append(rep.Datasets, ds.ID)
	v.logger.Debug("auditing dataset", "dataset", ds.ID, "files", len(files))

	var prev *FileSummary
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		sum, findings := v.auditFile(ds, f)
		v.metrics.AuditFiles.Inc()
		rep.Files = append(rep.Files, sum)

		if prev != nil && !sum.First.IsZero() && !prev.Last.IsZero() && sum.First.Before(prev.Last) {
			findings = append(findings, Finding{
				Severity: SeverityWarning,
				Check:    CheckCrossFile,
				Line:     sum.FirstLine,
				Content:  sum.FirstContent,
				Message: fmt.Sprintf("first record %s precedes last record %s of %s",
					domain.FormatTimestamp(sum.First), domain.FormatTimestamp(prev.Last), prev.File),
			})
		}
		for i := range findings {
			findings[i].RunID = rep.RunID
			findings[i].Dataset = ds.ID
			findings[i].File = f.Name
		}
		rep.Findings = append(rep.Findings, findings...)

		if !sum.Last.IsZero() {
			last := sum
			prev = &last
		}
	}
	return nil
}

// auditFile checks a single container file. Monotonicity violations are
// reported per line and do not end the file; decode errors do.
func (v *Validator) auditFile(ds domain.Dataset, f domain.ContainerFile) (FileSummary, []Finding) {
	sum := FileSummary{Dataset: ds.ID, File: f.Name}
	var findings []Finding

	if f.DateCode == "" {
		findings = append(findings, errorf(CheckFileName, 0, "", "no date code in file name"))
	}
	if ds.Type == domain.TypeMag && !strings.HasPrefix(f.Name, "OBS") {
		findings = append(findings, errorf(CheckFileName, 0, "", "mag container name does not start with OBS"))
	}

	lines, err := v.open(f, ds.Type)
	if err != nil {
		return sum, append(findings, errorf(CheckRead, 0, "", "open: %v", err))
	}
	defer func() {
		if err := lines.Close(); err != nil {
			v.logger.Warn("close container file failed", "file", f.Path, "error", err)
		}
	}()

	outcome := domain.DecodeFile(lines, ds.Type, func(line int, raw string, r domain.Record) bool {
		if sum.First.IsZero() {
			sum.First = r.Time
			sum.FirstLine = line
			sum.FirstContent = raw
			if f.DateCode != "" {
				if got := r.Time.UTC().Format(domain.DateLayout); got != f.DateCode {
					findings = append(findings, errorf(CheckDateMatch, line, raw,
						"first record is dated %s, file name says %s", got, f.DateCode))
				}
			}
		} else if r.Time.Before(sum.Last) {
			findings = append(findings, errorf(CheckMonotonic, line, raw,
				"timestamp %s precedes previous %s", domain.FormatTimestamp(r.Time), domain.FormatTimestamp(sum.Last)))
		}
		sum.Last = r.Time
		return true
	})
	sum.Format = outcome.Format
	sum.Lines = outcome.Lines
	sum.Records = outcome.Records

	if outcome.Err != nil {
		findings = append(findings, decodeFinding(outcome.Err))
	}
	return sum, findings
}

func decodeFinding(err error) Finding {
	check := CheckDecode
	switch {
	case errors.Is(err, domain.ErrInconsistentRowFormat):
		check = CheckFormat
	case errors.Is(err, domain.ErrFieldCountMismatch):
		check = CheckFieldCount
	case errors.Is(err, domain.ErrEmptyContainerFile):
		check = CheckEmpty
	}
	var de *domain.DecodeError
	if errors.As(err, &de) {
		return errorf(check, de.Line, de.Content, "%s", de.Error())
	}
	return errorf(CheckRead, 0, "", "%v", err)
}

func errorf(check string, line int, content, format string, args ...any) Finding {
	return Finding{
		Severity: SeverityError,
		Check:    check,
		Line:     line,
		Content:  content,
		Message:  fmt.Sprintf(format, args...),
	}
}
