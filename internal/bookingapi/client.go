// Package bookingapi fetches the engine's input datasets from the booking
// platform's HTTP API.
package bookingapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"booking-insights-go/internal/logger"
	"booking-insights-go/internal/types"
)

const (
	defaultTimeout       = 12 * time.Second
	defaultMaxRetry      = 45 * time.Second
	retryInitialInterval = 250 * time.Millisecond
	futureHorizonDays    = 90
)

type Options struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	MaxRetry   time.Duration // total time spent retrying one dataset
	HTTPClient *http.Client
	Logger     *logger.Logger
}

type Client struct {
	baseURL  string
	apiKey   string
	http     *http.Client
	maxRetry time.Duration
	log      *logger.Logger
}

func New(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.BaseURL) == "" {
		return nil, errors.New("booking api base url not set")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MaxRetry <= 0 {
		opts.MaxRetry = defaultMaxRetry
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}
	if opts.Logger == nil {
		opts.Logger = logger.New()
	}
	return &Client{
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		apiKey:   opts.APIKey,
		http:     opts.HTTPClient,
		maxRetry: opts.MaxRetry,
		log:      opts.Logger.Component("bookingapi"),
	}, nil
}

// FetchDatasets downloads every dataset for the window. It returns only after
// all requests have completed; the first failure cancels the rest.
func (c *Client) FetchDatasets(ctx context.Context, w types.Window) (types.Datasets, error) {
	var ds types.Datasets
	g, ctx := errgroup.WithContext(ctx)

	get := func(name string, start, end time.Time, target any) {
		g.Go(func() error {
			if err := c.fetch(ctx, name, start, end, target); err != nil {
				return fmt.Errorf("fetch %s: %w", name, err)
			}
			return nil
		})
	}

	get(types.SourceTransactions, w.Start, w.End, &ds.Transactions)
	get(types.SourceItemizedRevenue, w.Start, w.End, &ds.ItemizedRevenue)
	get(types.SourceBookings, w.Start, w.End, &ds.Bookings)
	get(types.SourcePayments, w.Start, w.End, &ds.Payments)
	get(types.SourceInventoryItems, w.Start, w.End, &ds.InventoryItems)
	get(types.SourceAvailability, w.Start, w.End, &ds.AvailabilityInstances)
	get(types.SourceCustomers, w.Start, w.End, &ds.Customers)
	get(types.SourceVouchers, w.Start, w.End, &ds.Vouchers)
	get(types.SourceFutureBookings, w.End.AddDate(0, 0, 1), w.End.AddDate(0, 0, futureHorizonDays), &ds.FutureBookings)

	var prev types.PeriodData
	if w.HasComparison() {
		get(types.SourceTransactions, w.CompareStart, w.CompareEnd, &prev.Transactions)
		get(types.SourceBookings, w.CompareStart, w.CompareEnd, &prev.Bookings)
		get(types.SourcePayments, w.CompareStart, w.CompareEnd, &prev.Payments)
	}

	if err := g.Wait(); err != nil {
		c.log.WithError(err).Error("dataset fetch failed")
		return types.Datasets{}, err
	}
	if w.HasComparison() {
		ds.Previous = &prev
	}

	c.log.WithFields(logrus.Fields{
		"bookings":     len(ds.Bookings),
		"transactions": len(ds.Transactions),
		"comparison":   ds.Previous != nil,
	}).Info("datasets fetched")
	return ds, nil
}

func (c *Client) fetch(ctx context.Context, name string, start, end time.Time, target any) error {
	u, err := url.Parse(c.baseURL + "/" + name)
	if err != nil {
		return err
	}
	q := u.Query()
	q.Set("start", start.Format(types.DateLayout))
	q.Set("end", end.Format(types.DateLayout))
	u.RawQuery = q.Encode()
	return c.doJSON(ctx, u.String(), target)
}

// doJSON retries transport failures and 5xx responses with exponential
// backoff. 4xx responses and undecodable bodies fail immediately.
func (c *Client) doJSON(ctx context.Context, endpoint string, target any) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = retryInitialInterval
	bo.MaxElapsedTime = c.maxRetry

	attempt := 0
	op := func() error {
		attempt++
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Accept", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			c.log.WithError(err).WithField("attempt", attempt).Warn("request failed")
			return err
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			c.log.WithError(err).WithField("attempt", attempt).Warn("response body read failed")
			return fmt.Errorf("read body: %w", err)
		}

		switch {
		case resp.StatusCode >= 500:
			c.log.WithFields(logrus.Fields{"status": resp.StatusCode, "attempt": attempt}).Warn("server error")
			return fmt.Errorf("server error: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		case resp.StatusCode >= 400:
			return backoff.Permanent(fmt.Errorf("request rejected: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
		}
		if err := json.Unmarshal(body, target); err != nil {
			return backoff.Permanent(fmt.Errorf("json decode error: %w", err))
		}
		return nil
	}

	return backoff.Retry(op, backoff.WithContext(bo, ctx))
}
