package processor

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"booking-insights-go/internal/logger"
	"booking-insights-go/internal/pipeline"
	"booking-insights-go/internal/types"
)

var runDate = time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)

func venueWorkbook(t *testing.T, name string) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	require.NoError(t, f.SetSheetName("Sheet1", "Bookings"))
	rows := [][]any{
		{"ID", "Date", "Channel", "Adults", "Revenue", "Activity ID"},
		{"b1", "2025-06-02", "Online", 2, 100, "er"},
		{"b2", "2025-06-10", "Phone", 4, 220, "ax"},
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		values := r
		require.NoError(t, f.SetSheetRow("Bookings", cell, &values))
	}
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestProcess(t *testing.T) {
	p := New(logger.Discard())
	ds := types.Datasets{Bookings: []types.Booking{{ID: "b1", Date: runDate.AddDate(0, 0, -3), Revenue: 50, Adults: 1}}}

	res := p.Process(ds, pipeline.Options{GeneratedAt: runDate})

	_, err := uuid.Parse(res.RunID)
	assert.NoError(t, err)
	assert.Empty(t, res.Error)
	require.NotNil(t, res.Report)
	assert.Equal(t, runDate, res.Report.GeneratedAt)
	assert.GreaterOrEqual(t, res.DurationMs, int64(0))
}

func TestProcess_RunIDsDiffer(t *testing.T) {
	p := New(logger.Discard())
	a := p.Process(types.Datasets{}, pipeline.Options{GeneratedAt: runDate})
	b := p.Process(types.Datasets{}, pipeline.Options{GeneratedAt: runDate})

	assert.NotEqual(t, a.RunID, b.RunID)
	assert.Equal(t, a.Report, b.Report)
}

func TestProcessWorkbook(t *testing.T) {
	p := New(logger.Discard())
	path := venueWorkbook(t, "downtown.xlsx")

	res, err := p.ProcessWorkbook(path, pipeline.Options{GeneratedAt: runDate})
	require.NoError(t, err)

	assert.Equal(t, path, res.Source)
	require.NotNil(t, res.Summary)
	assert.Equal(t, 2, res.Summary.Records[types.SourceBookings])
	require.NotNil(t, res.Report)
	assert.Equal(t, "2025-06-02", res.Report.DataPeriod.StartDate)
	assert.Equal(t, "2025-06-10", res.Report.DataPeriod.EndDate)
}

func TestProcessWorkbook_MissingFile(t *testing.T) {
	p := New(logger.Discard())

	res, err := p.ProcessWorkbook(filepath.Join(t.TempDir(), "gone.xlsx"), pipeline.Options{GeneratedAt: runDate})
	assert.Error(t, err)
	assert.Contains(t, res.Error, "dataset load error")
	assert.Nil(t, res.Report)
	assert.NotEmpty(t, res.RunID)
}

func TestRunBatch(t *testing.T) {
	p := New(logger.Discard())
	paths := []string{
		venueWorkbook(t, "a.xlsx"),
		filepath.Join(t.TempDir(), "missing.xlsx"),
		venueWorkbook(t, "c.xlsx"),
	}

	var mu sync.Mutex
	done := 0
	results, err := p.RunBatch(context.Background(), paths, 2, pipeline.Options{GeneratedAt: runDate}, func(Result) {
		mu.Lock()
		done++
		mu.Unlock()
	})
	require.NoError(t, err)

	assert.Equal(t, 3, done)
	require.Len(t, results, 3)
	for i, r := range results {
		assert.Equal(t, paths[i], r.Source)
	}
	assert.Empty(t, results[0].Error)
	assert.NotEmpty(t, results[1].Error)
	assert.Empty(t, results[2].Error)
	assert.Equal(t, results[0].Report.Derived, results[2].Report.Derived)
}

func TestRunBatch_Cancelled(t *testing.T) {
	p := New(logger.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.RunBatch(ctx, []string{venueWorkbook(t, "a.xlsx")}, 1, pipeline.Options{GeneratedAt: runDate}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
