// Command audit checks a PSWS data tree for the consistency assumptions the
// HAPI server relies on and prints a phase-by-phase PASS/FAIL report.
//
// Usage:
//
//	go run ./cmd/audit [-type mag,doppler] [-dataset S000028/mag] [-publish]
//
// The data root comes from PSWS_DATA_DIR. When AUDIT_LOG_FILE is set the
// report is also appended to that file, rotated by age. With -publish and
// AUDIT_KAFKA_BROKERS set, every finding is published to AUDIT_KAFKA_TOPIC.
// The exit status is 1 when any error finding is reported.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/couchcryptid/psws-hapi/internal/adapter/filestore"
	"github.com/couchcryptid/psws-hapi/internal/adapter/kafka"
	"github.com/couchcryptid/psws-hapi/internal/audit"
	"github.com/couchcryptid/psws-hapi/internal/config"
	"github.com/couchcryptid/psws-hapi/internal/domain"
	"github.com/couchcryptid/psws-hapi/internal/observability"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"gopkg.in/natefinch/lumberjack.v2"
)

var metrics = observability.NewMetrics()

// phase tracks pass/fail for one consistency check.
type phase struct {
	name     string
	errors   []string
	warnings []string
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

var phases = []struct{ name, check string }{
	{"Phase 1: Format purity", audit.CheckFormat},
	{"Phase 2: Row field counts", audit.CheckFieldCount},
	{"Phase 3: Row decoding", audit.CheckDecode},
	{"Phase 4: Monotonic timestamps", audit.CheckMonotonic},
	{"Phase 5: File date matches records", audit.CheckDateMatch},
	{"Phase 6: Container file names", audit.CheckFileName},
	{"Phase 7: Non-empty containers", audit.CheckEmpty},
	{"Phase 8: Cross-file ordering", audit.CheckCrossFile},
	{"Phase 9: Readable containers", audit.CheckRead},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("audit", flag.ContinueOnError)
	fs.SetOutput(stderr)
	types := fs.String("type", "mag,doppler", "comma-separated dataset types to audit")
	dataset := fs.String("dataset", "", "audit only this dataset id, e.g. S000028/mag")
	publish := fs.Bool("publish", false, "publish findings to AUDIT_KAFKA_TOPIC")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "FATAL: config: %v\n", err)
		return 1
	}
	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	clock := clockwork.NewRealClock()

	out := stdout
	if cfg.AuditLogFile != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.AuditLogFile,
			MaxSize:    10, // megabytes
			MaxAge:     cfg.AuditLogMaxAge,
			MaxBackups: 10,
			Compress:   true,
		}
		defer rotator.Close()
		out = io.MultiWriter(stdout, rotator)
	}

	selector := filestore.NewSelector(cfg.DataDir, logger)
	validator := audit.NewValidator(selector, filestore.OpenStream, clock, logger, metrics)

	var reports []*audit.Report
	if *dataset != "" {
		ds, err := domain.ParseDatasetID(*dataset)
		if err != nil {
			fmt.Fprintf(stderr, "FATAL: %v\n", err)
			return 1
		}
		rep, err := validator.RunDatasets(ctx, ds.Type, ds.ID)
		if err != nil {
			fmt.Fprintf(stderr, "FATAL: audit %s: %v\n", ds.ID, err)
			return 1
		}
		reports = append(reports, rep)
	} else {
		for _, t := range strings.Split(*types, ",") {
			rep, err := validator.Run(ctx, domain.DatasetType(strings.TrimSpace(t)))
			if err != nil {
				fmt.Fprintf(stderr, "FATAL: audit %s: %v\n", t, err)
				return 1
			}
			reports = append(reports, rep)
		}
	}

	passed := true
	for _, rep := range reports {
		if !printReport(out, rep) {
			passed = false
		}
	}

	if *publish {
		if err := publishFindings(ctx, cfg, clock, logger, stderr, reports); err != nil {
			fmt.Fprintf(stderr, "FATAL: %v\n", err)
			return 1
		}
	}

	if passed {
		fmt.Fprintln(out, "\nAll audits passed.")
		return 0
	}
	fmt.Fprintln(out, "\nAudit FAILED.")
	return 1
}

// printReport writes one report and reports whether it passed.
func printReport(w io.Writer, rep *audit.Report) bool {
	fmt.Fprintf(w, "=== PSWS %s archive audit (%s) ===\n", rep.Type, domain.FormatTimestamp(rep.GeneratedAt))
	fmt.Fprintf(w, "run %s\n\n", rep.RunID)

	byCheck := rep.ByCheck()
	results := make([]*phase, len(phases))
	for i, ph := range phases {
		p := &phase{name: ph.name}
		for _, f := range byCheck[ph.check] {
			line := describe(f)
			if f.Severity == audit.SeverityWarning {
				p.warnings = append(p.warnings, line)
			} else {
				p.errors = append(p.errors, line)
			}
		}
		results[i] = p
	}

	for _, p := range results {
		status := "PASS"
		switch {
		case !p.passed():
			status = fmt.Sprintf("FAIL (%d errors)", len(p.errors))
		case len(p.warnings) > 0:
			status = fmt.Sprintf("PASS (%d warnings)", len(p.warnings))
		}
		fmt.Fprintf(w, "  %-42s %s\n", p.name, status)
	}

	records := 0
	for _, f := range rep.Files {
		records += f.Records
	}
	fmt.Fprintf(w, "\nDatasets: %d, files: %d, records: %d\n", len(rep.Datasets), len(rep.Files), records)

	for _, p := range results {
		if len(p.errors) == 0 && len(p.warnings) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(w, "  [%d] %s\n", i+1, e)
		}
		for i, e := range p.warnings {
			fmt.Fprintf(w, "  [w%d] %s\n", i+1, e)
		}
	}
	fmt.Fprintln(w)
	return rep.Passed()
}

func describe(f audit.Finding) string {
	var b strings.Builder
	b.WriteString(f.Dataset)
	b.WriteString(" ")
	b.WriteString(f.File)
	if f.Line > 0 {
		fmt.Fprintf(&b, ":%d", f.Line)
	}
	b.WriteString(": ")
	b.WriteString(f.Message)
	if f.Content != "" {
		c := f.Content
		if len(c) > 120 {
			c = c[:120] + "..."
		}
		fmt.Fprintf(&b, " [%s]", c)
	}
	return b.String()
}

func publishFindings(ctx context.Context, cfg *config.Config, clock clockwork.Clock, logger *slog.Logger, stderr io.Writer, reports []*audit.Report) error {
	if len(cfg.AuditKafkaBrokers) == 0 {
		fmt.Fprintln(stderr, "WARNING: publish requested but AUDIT_KAFKA_BROKERS is empty")
		return nil
	}
	var findings []audit.Finding
	for _, rep := range reports {
		findings = append(findings, rep.Findings...)
	}

	writer := kafka.NewFindingWriter(cfg.AuditKafkaBrokers, cfg.AuditKafkaTopic, clock, logger)
	defer func() {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}()
	if err := writer.Publish(ctx, findings); err != nil {
		return fmt.Errorf("publish findings: %w", err)
	}
	return nil
}
