// Command batch runs the insights engine over one or more venue workbooks in
// parallel and writes one <venue>.insights.json per input.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"

	"booking-insights-go/internal/config"
	"booking-insights-go/internal/logger"
	"booking-insights-go/internal/pipeline"
	"booking-insights-go/internal/processor"
	"booking-insights-go/internal/types"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New().WithError(err).Fatal("failed to load config")
	}

	outDir := flag.String("out", ".", "directory for <venue>.insights.json files")
	workers := flag.Int("workers", cfg.BatchWorkers, "workbooks processed in parallel")
	asOf := flag.String("as-of", "", "run date YYYY-MM-DD (default: now)")
	flag.Parse()

	log := logger.NewWithOptions(logger.Options{Environment: cfg.Environment, Level: cfg.LogLevel}).Component("batch")

	paths := flag.Args()
	if len(paths) == 0 {
		fmt.Fprintln(os.Stderr, "usage: batch [-out DIR] [-workers N] [-as-of YYYY-MM-DD] venue.xlsx ...")
		os.Exit(2)
	}
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		log.WithError(err).Fatal("failed to create output directory")
	}

	generatedAt, err := runDate(*asOf, time.Now())
	if err != nil {
		log.WithError(err).Fatal("invalid -as-of")
	}
	opts := pipeline.Options{GeneratedAt: generatedAt}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	bar := progressbar.Default(int64(len(paths)), "workbooks")
	proc := processor.New(log)
	results, err := proc.RunBatch(ctx, paths, *workers, opts, func(processor.Result) {
		_ = bar.Add(1)
	})
	if err != nil {
		log.WithError(err).Error("batch interrupted")
	}

	failed := 0
	for _, res := range results {
		if res.Source == "" {
			continue // never started
		}
		if res.Error != "" {
			failed++
			log.WithField("path", res.Source).WithField("error", res.Error).Warn("workbook failed")
			continue
		}
		out := filepath.Join(*outDir, venueName(res.Source)+".insights.json")
		if err := writeJSON(out, res); err != nil {
			failed++
			log.WithError(err).WithField("path", out).Error("failed to write insights")
			continue
		}
		log.WithField("path", out).Info("insights written")
	}

	if failed > 0 || err != nil {
		os.Exit(1)
	}
}

// runDate parses -as-of, falling back to now in UTC when it is empty.
func runDate(asOf string, now time.Time) (time.Time, error) {
	if asOf == "" {
		return now.UTC(), nil
	}
	return time.Parse(types.DateLayout, asOf)
}

func venueName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
