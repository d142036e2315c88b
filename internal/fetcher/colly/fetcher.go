// Package collyfetcher implements the static fetch mode using gocolly.
package collyfetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/eventlens/crawler/internal/ingest"
)

// Config controls collector behavior.
type Config struct {
	UserAgent string
	Timeout   time.Duration
}

// Fetcher implements ingest.Fetcher for pages that need no script
// execution. Each Fetch clones the base collector so requests stay
// independent.
type Fetcher struct {
	cfg           Config
	baseCollector *colly.Collector
}

// New builds a Fetcher.
func New(cfg Config) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	c := colly.NewCollector(colly.Async(false))
	c.IgnoreRobotsTxt = true
	return &Fetcher{
		cfg:           cfg,
		baseCollector: c,
	}
}

// Fetch executes a single HTTP GET using Colly and returns the body plus
// the final resolved URL after redirects.
func (f *Fetcher) Fetch(ctx context.Context, request ingest.FetchRequest) (ingest.FetchResult, error) {
	collector := f.baseCollector.Clone()
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	collector.SetRequestTimeout(f.cfg.Timeout)

	var (
		result   ingest.FetchResult
		fetchErr error
		start    = time.Now()
	)

	collector.OnResponse(func(r *colly.Response) {
		result = ingest.FetchResult{
			FinalURL:   r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Content:    string(r.Body),
			Duration:   time.Since(start),
		}
	})
	collector.OnError(func(r *colly.Response, err error) {
		status := 0
		if r != nil {
			status = r.StatusCode
		}
		fetchErr = fmt.Errorf("static fetch %q (status %d): %w", request.URL, status, err)
	})

	visitErr := collector.Visit(request.URL)
	collector.Wait()

	if err := ctx.Err(); err != nil {
		return ingest.FetchResult{}, err
	}
	// OnError carries the response status; prefer it over Visit's bare error.
	if fetchErr != nil {
		return ingest.FetchResult{}, fetchErr
	}
	if visitErr != nil {
		return ingest.FetchResult{}, fmt.Errorf("visit %q: %w", request.URL, visitErr)
	}
	if result.FinalURL == "" {
		return ingest.FetchResult{}, errors.New("no response received")
	}
	if result.StatusCode >= http.StatusBadRequest {
		return ingest.FetchResult{}, fmt.Errorf("static fetch %q: status %d", request.URL, result.StatusCode)
	}
	return result, nil
}
