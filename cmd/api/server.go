package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"booking-insights-go/internal/logger"
	"booking-insights-go/internal/pipeline"
	"booking-insights-go/internal/processor"
	"booking-insights-go/internal/types"
)

const maxBodyBytes = 32 << 20

// fetchFunc loads every dataset for a window from a live source.
type fetchFunc func(ctx context.Context, w types.Window) (types.Datasets, error)

type server struct {
	log          *logger.Logger
	proc         *processor.Processor
	workbookPath string
	live         fetchFunc
	now          func() time.Time
}

type insightsRequest struct {
	Datasets    types.Datasets `json:"datasets"`
	GeneratedAt *time.Time     `json:"generated_at,omitempty"`
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("POST /insights", s.handleInsights)
	mux.HandleFunc("GET /insights/workbook", s.handleWorkbook)
	mux.HandleFunc("GET /insights/live", s.handleLive)
	return mux
}

func (s *server) options() pipeline.Options {
	if s.now != nil {
		return pipeline.Options{GeneratedAt: s.now()}
	}
	return pipeline.Options{}
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.log.WithRequest(r).Debug("health check")
	fmt.Fprint(w, "ok")
}

func (s *server) handleInsights(w http.ResponseWriter, r *http.Request) {
	reqLog := s.log.WithRequest(r).WithField("handler", "insights")

	var req insightsRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		reqLog.WithField("error", err.Error()).Warn("invalid request body")
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	opts := s.options()
	if req.GeneratedAt != nil {
		opts.GeneratedAt = req.GeneratedAt.UTC()
	}
	res := s.proc.Process(req.Datasets, opts)
	reqLog.WithField("run_id", res.RunID).WithField("duration_ms", res.DurationMs).Info("insights generated")
	s.writeResult(w, reqLog, res)
}

func (s *server) handleWorkbook(w http.ResponseWriter, r *http.Request) {
	reqLog := s.log.WithRequest(r).WithField("handler", "workbook")
	if s.workbookPath == "" {
		http.Error(w, "no workbook configured", http.StatusServiceUnavailable)
		return
	}

	res, err := s.proc.ProcessWorkbook(s.workbookPath, s.options())
	if err != nil {
		reqLog.WithField("error", err.Error()).Warn("workbook run failed")
	}
	s.writeResult(w, reqLog, res)
}

func (s *server) handleLive(w http.ResponseWriter, r *http.Request) {
	reqLog := s.log.WithRequest(r).WithField("handler", "live")
	if s.live == nil {
		http.Error(w, "no live source configured", http.StatusServiceUnavailable)
		return
	}

	win, err := parseWindow(r)
	if err != nil {
		reqLog.WithField("error", err.Error()).Warn("bad window")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ds, err := s.live(r.Context(), win)
	if err != nil {
		reqLog.WithField("error", err.Error()).Error("live fetch failed")
		http.Error(w, "live fetch failed: "+err.Error(), http.StatusBadGateway)
		return
	}
	res := s.proc.Process(ds, s.options())
	reqLog.WithField("run_id", res.RunID).Info("live insights generated")
	s.writeResult(w, reqLog, res)
}

// parseWindow reads start/end and the optional compare_start/compare_end
// pair, all as YYYY-MM-DD.
func parseWindow(r *http.Request) (types.Window, error) {
	q := r.URL.Query()
	var w types.Window
	var err error

	if w.Start, err = parseDate(q.Get("start"), "start"); err != nil {
		return w, err
	}
	if w.End, err = parseDate(q.Get("end"), "end"); err != nil {
		return w, err
	}
	if w.End.Before(w.Start) {
		return w, fmt.Errorf("end %s is before start %s", q.Get("end"), q.Get("start"))
	}

	cs, ce := q.Get("compare_start"), q.Get("compare_end")
	if cs == "" && ce == "" {
		return w, nil
	}
	if w.CompareStart, err = parseDate(cs, "compare_start"); err != nil {
		return w, err
	}
	if w.CompareEnd, err = parseDate(ce, "compare_end"); err != nil {
		return w, err
	}
	if w.CompareEnd.Before(w.CompareStart) {
		return w, fmt.Errorf("compare_end %s is before compare_start %s", ce, cs)
	}
	return w, nil
}

func parseDate(v, name string) (time.Time, error) {
	if v == "" {
		return time.Time{}, fmt.Errorf("missing %s", name)
	}
	t, err := time.Parse(types.DateLayout, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s %q: want YYYY-MM-DD", name, v)
	}
	return t, nil
}

func (s *server) writeResult(w http.ResponseWriter, log *logrus.Entry, res processor.Result) {
	w.Header().Set("Content-Type", "application/json")
	if res.Error != "" {
		w.WriteHeader(http.StatusInternalServerError)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		log.WithField("error", err.Error()).Error("failed to write response")
	}
}
