package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/couchcryptid/psws-hapi/internal/domain"
	"github.com/couchcryptid/psws-hapi/internal/observability"
)

// FileSelector resolves a dataset and window to container files in read order.
type FileSelector interface {
	Select(ds domain.Dataset, w domain.Window) ([]domain.ContainerFile, error)
}

// OpenFunc opens the line stream of a container file.
type OpenFunc func(f domain.ContainerFile, t domain.DatasetType) (domain.LineStream, error)

// Request is one data request as received from a caller.
type Request struct {
	DatasetID  string
	Start      string
	Stop       string
	Parameters string // comma-separated; empty selects all groups
}

// Plan is a validated request with its container files resolved.
type Plan struct {
	Dataset    domain.Dataset
	Window     domain.Window
	Projection domain.Projection
	Files      []domain.ContainerFile
}

// FileFailure records a container file that was abandoned during decoding.
type FileFailure struct {
	File string
	Line int
	Kind string
	Err  error
}

// Summary reports what a Stream call did.
type Summary struct {
	Files    int
	Records  int
	Failures []FileFailure
}

// Extractor runs the select-read-decode-filter-project pipeline for data
// requests. It holds no per-request state and is safe for concurrent use.
type Extractor struct {
	selector FileSelector
	open     OpenFunc
	logger   *slog.Logger
	metrics  *observability.Metrics
	workers  int
}

// New creates an Extractor. workers bounds how many container files are
// decoded ahead of the writer; values below 1 are treated as 1.
func New(sel FileSelector, open OpenFunc, logger *slog.Logger, metrics *observability.Metrics, workers int) *Extractor {
	if workers < 1 {
		workers = 1
	}
	return &Extractor{
		selector: sel,
		open:     open,
		logger:   logger,
		metrics:  metrics,
		workers:  workers,
	}
}

// Prepare validates a request and selects its container files. Every error
// returned here is a setup error: nothing has been written yet.
func (e *Extractor) Prepare(req Request) (*Plan, error) {
	ds, err := domain.ParseDatasetID(req.DatasetID)
	if err != nil {
		e.metrics.Requests.WithLabelValues("unknown", "setup_error").Inc()
		return nil, err
	}
	plan, err := e.prepare(ds, req)
	if err != nil {
		e.metrics.Requests.WithLabelValues(string(ds.Type), "setup_error").Inc()
		return nil, err
	}
	return plan, nil
}

func (e *Extractor) prepare(ds domain.Dataset, req Request) (*Plan, error) {
	w, err := domain.NewWindow(req.Start, req.Stop)
	if err != nil {
		return nil, err
	}
	proj, err := domain.ParseParameters(ds.Type, req.Parameters)
	if err != nil {
		return nil, err
	}
	files, err := e.selector.Select(ds, w)
	if err != nil {
		return nil, err
	}
	return &Plan{Dataset: ds, Window: w, Projection: proj, Files: files}, nil
}

// Extract prepares and streams a request in one call.
func (e *Extractor) Extract(ctx context.Context, req Request, w io.Writer) (Summary, error) {
	plan, err := e.Prepare(req)
	if err != nil {
		return Summary{}, err
	}
	return e.Stream(ctx, plan, w)
}

type fileResult struct {
	file    domain.ContainerFile
	rows    []byte
	records int
	outcome domain.FileOutcome
	err     error
}

// Stream writes the CSV rows of every record in the plan's window to w, in
// file order. A file that fails to decode is logged, counted, and
// contributes no rows; the remaining files are still processed. Rows
// decoded before the failing line are dropped with the rest of the file,
// even though domain.DecodeFile still hands them to its visitor. Callers
// that want the readable prefix of a broken file must decode it
// themselves. Stream returns an error only when the context is cancelled
// or w fails.
func (e *Extractor) Stream(ctx context.Context, plan *Plan, w io.Writer) (Summary, error) {
	start := time.Now()
	typ := string(plan.Dataset.Type)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]chan fileResult, len(plan.Files))
	for i := range results {
		results[i] = make(chan fileResult, 1)
	}
	sem := make(chan struct{}, e.workers)

	go func() {
		for i, f := range plan.Files {
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return
			}
			go func() {
				results[i] <- e.decodeFile(ctx, plan, f)
			}()
		}
	}()

	var sum Summary
	for i := range plan.Files {
		var res fileResult
		select {
		case res = <-results[i]:
		case <-ctx.Done():
			e.metrics.Requests.WithLabelValues(typ, "aborted").Inc()
			return sum, ctx.Err()
		}
		<-sem
		sum.Files++

		if failure, failed := e.failure(plan, res); failed {
			sum.Failures = append(sum.Failures, failure)
			e.metrics.FilesRead.WithLabelValues(typ, "failed").Inc()
			continue
		}
		e.metrics.FilesRead.WithLabelValues(typ, "ok").Inc()

		if ctx.Err() != nil {
			e.metrics.Requests.WithLabelValues(typ, "aborted").Inc()
			return sum, ctx.Err()
		}
		if len(res.rows) > 0 {
			if _, err := w.Write(res.rows); err != nil {
				e.metrics.Requests.WithLabelValues(typ, "aborted").Inc()
				return sum, fmt.Errorf("write rows: %w", err)
			}
		}
		sum.Records += res.records
		e.metrics.RecordsEmitted.Add(float64(res.records))
	}

	outcome := "ok"
	if sum.Records == 0 {
		outcome = "empty"
	}
	e.metrics.Requests.WithLabelValues(typ, outcome).Inc()
	e.metrics.RequestDuration.Observe(time.Since(start).Seconds())

	e.logger.Info("data request complete",
		"dataset", plan.Dataset.ID,
		"start", domain.FormatTimestamp(plan.Window.Start),
		"stop", domain.FormatTimestamp(plan.Window.Stop),
		"files", sum.Files,
		"failed_files", len(sum.Failures),
		"records", sum.Records,
		"duration", time.Since(start),
	)
	return sum, nil
}

// decodeFile decodes one container file into CSV rows for the window. Rows
// stop at the first record at or after the window's stop.
func (e *Extractor) decodeFile(ctx context.Context, plan *Plan, f domain.ContainerFile) fileResult {
	res := fileResult{file: f}
	lines, err := e.open(f, plan.Dataset.Type)
	if err != nil {
		res.err = err
		return res
	}
	defer func() {
		if err := lines.Close(); err != nil {
			e.logger.Warn("close container file failed", "file", f.Path, "error", err)
		}
	}()

	res.outcome = domain.DecodeFile(lines, plan.Dataset.Type, func(_ int, _ string, r domain.Record) bool {
		if ctx.Err() != nil {
			return false
		}
		if r.Time.Before(plan.Window.Start) {
			return true
		}
		if !plan.Window.Contains(r.Time) {
			return false
		}
		res.rows = plan.Projection.AppendCSV(res.rows, r)
		res.records++
		return true
	})
	return res
}

// failure reports whether a file result failed, logging it with file and
// line context.
func (e *Extractor) failure(plan *Plan, res fileResult) (FileFailure, bool) {
	err := res.err
	if err == nil {
		err = res.outcome.Err
	}
	if err == nil {
		return FileFailure{}, false
	}

	f := FileFailure{File: res.file.Name, Kind: domain.KindName(err), Err: err}
	attrs := []any{
		"dataset", plan.Dataset.ID,
		"file", res.file.Path,
		"kind", f.Kind,
		"error", err,
	}
	var de *domain.DecodeError
	if errors.As(err, &de) {
		f.Line = de.Line
		attrs = append(attrs, "line", de.Line, "content", truncate(de.Content, 200))
	}
	e.metrics.DecodeErrors.WithLabelValues(f.Kind).Inc()
	e.logger.Warn("container file skipped", attrs...)
	return f, true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
