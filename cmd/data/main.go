// Command data writes the CSV rows of one dataset and time window to stdout.
//
// Usage:
//
//	data <dataset> <start> <stop> [parameters]
//
// For example:
//
//	data S000028/mag 2025-10-21T00:00:00Z 2025-10-22T00:00:00Z Field_Vector,Tm
//
// Logs go to stderr since stdout carries the CSV. The exit status is 1 when the request is invalid and 0
// otherwise, including when no records fall in the window.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/psws-hapi/internal/adapter/filestore"
	"github.com/couchcryptid/psws-hapi/internal/config"
	"github.com/couchcryptid/psws-hapi/internal/observability"
	"github.com/couchcryptid/psws-hapi/internal/pipeline"
	"github.com/joho/godotenv"
)

const usage = "usage: data <dataset> <start> <stop> [parameters]"

var metrics = observability.NewMetrics()

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) < 3 || len(args) > 4 {
		fmt.Fprintln(stderr, usage)
		return 1
	}
	req := pipeline.Request{DatasetID: args[0], Start: args[1], Stop: args[2]}
	if len(args) == 4 {
		req.Parameters = args[3]
	}

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return 1
	}

	logger := newStderrLogger(stderr, cfg.LogLevel, cfg.LogFormat)
	selector := filestore.NewSelector(cfg.DataDir, logger)
	extractor := pipeline.New(selector, filestore.OpenStream, logger, metrics, cfg.DecodeWorkers)

	plan, err := extractor.Prepare(req)
	if err != nil {
		logger.Error("invalid request", "dataset", req.DatasetID, "error", err)
		return 1
	}

	out := bufio.NewWriter(stdout)
	if _, err := extractor.Stream(ctx, plan, out); err != nil {
		logger.Error("data stream failed", "dataset", req.DatasetID, "error", err)
		return 1
	}
	if err := out.Flush(); err != nil {
		logger.Error("flush output", "error", err)
		return 1
	}
	return 0
}

// newStderrLogger mirrors the service logger but writes to w. An unknown
// level falls back to info.
func newStderrLogger(w io.Writer, level, format string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
