// Package fetcher wraps page fetching with bounded retries and
// bot-detection classification.
package fetcher

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/eventlens/crawler/internal/ingest"
	"github.com/eventlens/crawler/internal/metrics"
)

// DefaultMaxRetries bounds fetch attempts when no override is configured.
const DefaultMaxRetries = 3

// Sleeper waits for the given duration or until the context ends.
type Sleeper func(ctx context.Context, d time.Duration) error

// RetryController executes fetches with exponential backoff. A bot-detected
// attempt is recorded like any other failure and the remaining budget is
// still spent: the blocking service may release between attempts, so the
// controller never short-circuits.
type RetryController struct {
	fetcher    ingest.Fetcher
	classifier BotClassifier
	maxRetries int
	sleep      Sleeper
	logger     *zap.Logger
}

// Option customizes a RetryController.
type Option func(*RetryController)

// WithMaxRetries overrides the attempt budget.
func WithMaxRetries(n int) Option {
	return func(c *RetryController) {
		if n > 0 {
			c.maxRetries = n
		}
	}
}

// WithSleeper replaces the backoff sleep, primarily for tests.
func WithSleeper(s Sleeper) Option {
	return func(c *RetryController) {
		if s != nil {
			c.sleep = s
		}
	}
}

// WithClassifier replaces the bot-detection classifier.
func WithClassifier(cl BotClassifier) Option {
	return func(c *RetryController) {
		if cl != nil {
			c.classifier = cl
		}
	}
}

// NewRetryController builds a controller around the given fetcher.
func NewRetryController(fetcher ingest.Fetcher, logger *zap.Logger, opts ...Option) *RetryController {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &RetryController{
		fetcher:    fetcher,
		classifier: DefaultClassifier(),
		maxRetries: DefaultMaxRetries,
		sleep:      contextSleep,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch runs up to maxRetries attempts, backing off 2^attempt seconds
// between them. On exhaustion the last observed error is returned, prefixed
// with the attempt count; a *ingest.BotDetectionError stays reachable via
// errors.As through the wrap.
func (c *RetryController) Fetch(ctx context.Context, req ingest.FetchRequest) (ingest.FetchResult, error) {
	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			if err := c.sleep(ctx, backoff(attempt-1)); err != nil {
				return ingest.FetchResult{}, fmt.Errorf("backoff wait: %w", err)
			}
		}

		result, err := c.fetcher.Fetch(ctx, req)
		if err != nil {
			lastErr = err
			metrics.ObserveFetchAttempt("transient")
			c.logger.Warn("fetch attempt failed",
				zap.String("job_id", req.JobID),
				zap.String("url", req.URL),
				zap.Int("attempt", attempt+1),
				zap.Int("max_retries", c.maxRetries),
				zap.Error(err),
			)
			continue
		}

		if botErr := c.classifier.Classify(req.URL, result); botErr != nil {
			lastErr = botErr
			metrics.ObserveFetchAttempt("bot_detected")
			c.logger.Warn("bot detection signal",
				zap.String("job_id", req.JobID),
				zap.String("url", req.URL),
				zap.String("final_url", result.FinalURL),
				zap.Int("attempt", attempt+1),
				zap.Error(botErr),
			)
			continue
		}

		metrics.ObserveFetchAttempt("success")
		c.logger.Info("fetch succeeded",
			zap.String("job_id", req.JobID),
			zap.String("url", req.URL),
			zap.Int("attempt", attempt+1),
			zap.Int("content_length", len(result.Content)),
		)
		return result, nil
	}

	return ingest.FetchResult{}, fmt.Errorf("fetch failed after %d attempts: %w", c.maxRetries, lastErr)
}

// backoff returns 2^attempt seconds, attempt counted from 0. No jitter.
func backoff(attempt int) time.Duration {
	return time.Duration(1<<uint(attempt)) * time.Second
}

func contextSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
