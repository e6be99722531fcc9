package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"booking-insights-go/internal/bookingapi"
	"booking-insights-go/internal/config"
	"booking-insights-go/internal/dataset"
	"booking-insights-go/internal/logger"
	"booking-insights-go/internal/processor"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New().WithError(err).Fatal("failed to load config")
	}

	log := logger.NewWithOptions(logger.Options{Environment: cfg.Environment, Level: cfg.LogLevel})
	log.WithField("service", "booking-insights-go").Info("starting service")

	// summarize the local workbook up front so a bad file shows in the logs
	if _, err := os.Stat(cfg.DatasetPath); err == nil {
		ds, _, err := dataset.LoadWorkbook(cfg.DatasetPath)
		if err != nil {
			log.WithError(err).WithField("dataset_path", cfg.DatasetPath).Warn("workbook not usable")
		} else {
			dataset.LogSummary(log, cfg.DatasetPath, dataset.Summarize(ds))
		}
	} else {
		log.WithField("dataset_path", cfg.DatasetPath).Info("no local workbook; /insights/workbook disabled")
	}

	srv := &server{
		log:          log,
		proc:         processor.New(log),
		workbookPath: cfg.DatasetPath,
	}

	switch {
	case cfg.BookingAPIURL != "":
		client, err := bookingapi.New(bookingapi.Options{
			BaseURL:  cfg.BookingAPIURL,
			APIKey:   cfg.BookingAPIKey,
			Timeout:  cfg.BookingAPITimeout,
			MaxRetry: cfg.BookingAPIMaxRetry,
			Logger:   log,
		})
		if err != nil {
			log.WithError(err).Fatal("failed to create booking api client")
		}
		srv.live = client.FetchDatasets
		log.WithField("booking_api", cfg.BookingAPIURL).Info("live source: booking api")
	case cfg.MySQLDSN != "":
		src, err := dataset.OpenMySQL(cfg.MySQLDSN, log)
		if err != nil {
			log.WithError(err).Fatal("failed to open mysql")
		}
		defer src.Close()
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := src.Ping(pingCtx); err != nil {
			log.WithError(err).Warn("mysql ping failed")
		}
		cancel()
		srv.live = src.Load
		log.Info("live source: mysql")
	default:
		log.Info("no live source configured; /insights/live disabled")
	}

	httpSrv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      srv.routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("shutdown incomplete")
		}
	}()

	log.WithField("addr", httpSrv.Addr).Info("listening")
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Fatal("server terminated")
	}
	log.Info("server stopped")
}
