package processor

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"booking-insights-go/internal/dataset"
	"booking-insights-go/internal/logger"
	"booking-insights-go/internal/pipeline"
	"booking-insights-go/internal/types"
)

// Result is the envelope returned for one engine invocation.
type Result struct {
	RunID      string           `json:"run_id"`
	Source     string           `json:"source,omitempty"`
	Report     *types.Report    `json:"report,omitempty"`
	Summary    *dataset.Summary `json:"dataset_summary,omitempty"`
	DurationMs int64            `json:"duration_ms"`
	Error      string           `json:"error,omitempty"`
}

type Processor struct {
	log *logger.Logger
}

func New(log *logger.Logger) *Processor {
	if log == nil {
		log = logger.New()
	}
	return &Processor{log: log.Component("processor")}
}

// Process runs the engine over datasets that are already in memory.
func (p *Processor) Process(ds types.Datasets, opts pipeline.Options) Result {
	start := time.Now()
	res := Result{RunID: uuid.New().String()}
	log := p.log.WithField("run_id", res.RunID)
	log.WithField("bookings", len(ds.Bookings)).Info("engine run started")

	report, err := run(ds, opts)
	res.DurationMs = time.Since(start).Milliseconds()
	if err != nil {
		res.Error = err.Error()
		log.WithField("error", res.Error).Error("engine run failed")
		return res
	}
	res.Report = &report

	log.WithFields(logrus.Fields{
		"duration_ms":     res.DurationMs,
		"recommendations": report.Prescriptive.Recommendations.Len(),
	}).Info("engine run finished")
	return res
}

// ProcessWorkbook loads one venue workbook and runs the engine over it. The
// returned error is also recorded in the envelope.
func (p *Processor) ProcessWorkbook(path string, opts pipeline.Options) (Result, error) {
	start := time.Now()
	ds, stats, err := dataset.LoadWorkbook(path)
	if err != nil {
		res := Result{
			RunID:      uuid.New().String(),
			Source:     path,
			DurationMs: time.Since(start).Milliseconds(),
			Error:      fmt.Sprintf("dataset load error: %v", err),
		}
		p.log.WithError(err).WithFields(logrus.Fields{"run_id": res.RunID, "path": path}).Error("workbook load failed")
		return res, err
	}
	if len(stats.Ignored) > 0 {
		p.log.WithFields(logrus.Fields{"path": path, "sheets": stats.Ignored}).Debug("ignored workbook sheets")
	}

	summary := dataset.Summarize(ds)
	dataset.LogSummary(p.log, path, summary)

	res := p.Process(ds, opts)
	res.Source = path
	res.Summary = &summary
	res.DurationMs = time.Since(start).Milliseconds()
	if res.Error != "" {
		return res, fmt.Errorf("process %s: %s", path, res.Error)
	}
	return res, nil
}

// RunBatch processes each workbook independently with at most workers
// running at once. A failing workbook is reported in its Result and does not
// stop the others; only context cancellation aborts the batch. Results keep
// the order of paths. onDone, when set, is called from the worker goroutines.
func (p *Processor) RunBatch(ctx context.Context, paths []string, workers int, opts pipeline.Options, onDone func(Result)) ([]Result, error) {
	if workers < 1 {
		workers = 1
	}
	if opts.GeneratedAt.IsZero() {
		opts.GeneratedAt = time.Now().UTC()
	}

	results := make([]Result, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, _ := p.ProcessWorkbook(path, opts)
			results[i] = res
			if onDone != nil {
				onDone(res)
			}
			return nil
		})
	}

	err := g.Wait()
	failed := 0
	for _, r := range results {
		if r.Error != "" {
			failed++
		}
	}
	p.log.WithFields(logrus.Fields{
		"workbooks": len(paths),
		"failed":    failed,
		"workers":   workers,
	}).Info("batch finished")
	return results, err
}

func run(ds types.Datasets, opts pipeline.Options) (report types.Report, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("engine panic: %v", r)
		}
	}()
	return pipeline.Run(ds, opts), nil
}
