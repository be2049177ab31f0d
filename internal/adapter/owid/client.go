// Package owid fetches the Our World in Data CO2 dataset and converts it to a
// domain.RawDataset.
package owid

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/emissions-globe-service/internal/config"
	"github.com/couchcryptid/emissions-globe-service/internal/domain"
	"github.com/couchcryptid/emissions-globe-service/internal/observability"
)

const (
	formatCSV  = "csv"
	formatJSON = "json"
)

// Client implements domain.RawSource by downloading the OWID CSV, falling back
// to the JSON mirrors in order.
type Client struct {
	httpClient *http.Client
	csvURL     string
	jsonURLs   []string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates an OWID client for the configured source URLs.
func NewClient(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.FetchTimeout,
		},
		csvURL:   cfg.CSVURL,
		jsonURLs: cfg.JSONURLs,
		metrics:  metrics,
		logger:   logger,
	}
}

// FetchRaw downloads the dataset once. Each source is tried a single time;
// the error of the last attempt is returned when all of them fail.
func (c *Client) FetchRaw(ctx context.Context) (domain.RawDataset, error) {
	var lastErr error

	if c.csvURL != "" {
		raw, err := c.fetch(ctx, c.csvURL, formatCSV, parseCSV)
		if err == nil {
			return raw, nil
		}
		c.logger.Warn("csv source failed, trying json mirrors", "url", c.csvURL, "error", err)
		lastErr = err
	}

	for _, u := range c.jsonURLs {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("fetch owid dataset: %w", ctx.Err())
		}
		raw, err := c.fetch(ctx, u, formatJSON, decodeJSON)
		if err == nil {
			return raw, nil
		}
		c.logger.Warn("json source failed", "url", u, "error", err)
		lastErr = err
	}

	if lastErr == nil {
		lastErr = errors.New("no source urls configured")
	}
	return nil, fmt.Errorf("fetch owid dataset: %w", lastErr)
}

func (c *Client) fetch(ctx context.Context, u, format string, parse func(io.Reader) (domain.RawDataset, error)) (domain.RawDataset, error) {
	start := time.Now()
	raw, err := c.download(ctx, u, parse)
	c.metrics.FetchDuration.WithLabelValues(format).Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.SourceFetches.WithLabelValues(format, "error").Inc()
		return nil, err
	}
	c.metrics.SourceFetches.WithLabelValues(format, "success").Inc()
	c.logger.Info("owid dataset downloaded", "format", format, "regions", len(raw))
	return raw, nil
}

func (c *Client) download(ctx context.Context, u string, parse func(io.Reader) (domain.RawDataset, error)) (domain.RawDataset, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("owid source error: status %d: %s", resp.StatusCode, body)
	}

	raw, err := parse(resp.Body)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("owid source %s: no regions", u)
	}
	return raw, nil
}
