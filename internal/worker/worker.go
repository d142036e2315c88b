// Package worker implements the crawl job execution loop.
package worker

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/eventlens/crawler/internal/confidence"
	"github.com/eventlens/crawler/internal/hash/sha256"
	"github.com/eventlens/crawler/internal/ingest"
	"github.com/eventlens/crawler/internal/metrics"
)

// DefaultRawContentMaxChars caps the raw-content snapshot stored on the
// job row. Larger content is truncated, not rejected.
const DefaultRawContentMaxChars = 50000

// Extractor validates model output into an ingest.Extraction.
type Extractor interface {
	Extract(ctx context.Context, content string, schema map[string]any, hints string) (ingest.Extraction, error)
}

// Config controls Worker behavior.
type Config struct {
	RawContentMaxChars int
	ContentType        string
	BlobPrefix         string
}

// Worker consumes queue items and drives each job through
// pending -> processing -> completed|failed. Jobs share no mutable state
// and run strictly sequentially inside one worker.
type Worker struct {
	queue      ingest.Queue
	websites   ingest.WebsiteStore
	structures ingest.StructureStore
	jobs       ingest.JobStore
	events     ingest.EventStore
	fetcher    ingest.Fetcher
	extractor  Extractor
	blobStore  ingest.BlobStore
	idGen      ingest.IDGenerator
	clock      ingest.Clock
	cfg        Config
	logger     *zap.Logger
}

// New constructs a Worker. The fetcher is expected to be retry-wrapped;
// blobStore may be nil to disable raw-content archiving.
func New(
	queue ingest.Queue,
	websites ingest.WebsiteStore,
	structures ingest.StructureStore,
	jobs ingest.JobStore,
	events ingest.EventStore,
	fetcher ingest.Fetcher,
	extractor Extractor,
	blobStore ingest.BlobStore,
	idGen ingest.IDGenerator,
	clock ingest.Clock,
	cfg Config,
	logger *zap.Logger,
) *Worker {
	if cfg.RawContentMaxChars <= 0 {
		cfg.RawContentMaxChars = DefaultRawContentMaxChars
	}
	if cfg.ContentType == "" {
		cfg.ContentType = "text/html; charset=utf-8"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		queue:      queue,
		websites:   websites,
		structures: structures,
		jobs:       jobs,
		events:     events,
		fetcher:    fetcher,
		extractor:  extractor,
		blobStore:  blobStore,
		idGen:      idGen,
		clock:      clock,
		cfg:        cfg,
		logger:     logger,
	}
}

// Run blocks, consuming queue items until the context finishes.
func (w *Worker) Run(ctx context.Context) {
	for {
		item, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Error("queue dequeue failed", zap.Error(err))
			continue
		}
		w.processJob(ctx, item)
	}
}

// processJob persists the processing transition before any external call,
// then funnels every error from the job body through one boundary into the
// failed state. Partial progress (the raw-content snapshot) survives a
// later failure.
func (w *Worker) processJob(ctx context.Context, item ingest.QueueItem) {
	if err := w.jobs.MarkProcessing(ctx, item.JobID); err != nil {
		w.logger.Error("mark processing failed", zap.String("job_id", item.JobID), zap.Error(err))
		return
	}

	if err := w.runJob(ctx, item); err != nil {
		w.logger.Warn("job failed",
			zap.String("job_id", item.JobID),
			zap.String("url", item.URL),
			zap.Error(err),
		)
		if markErr := w.jobs.MarkFailed(ctx, item.JobID, err.Error(), w.clock.Now()); markErr != nil {
			w.logger.Error("mark failed errored", zap.String("job_id", item.JobID), zap.Error(markErr))
		}
		metrics.ObserveJob(string(ingest.JobStatusFailed))
		return
	}
	metrics.ObserveJob(string(ingest.JobStatusCompleted))
}

func (w *Worker) runJob(ctx context.Context, item ingest.QueueItem) error {
	website, err := w.websites.GetWebsite(ctx, item.WebsiteID)
	if err != nil {
		return fmt.Errorf("website %s: %w", item.WebsiteID, err)
	}

	structure, err := w.structures.GetActiveStructure(ctx)
	if err != nil {
		return err
	}

	result, err := w.fetcher.Fetch(ctx, ingest.FetchRequest{
		JobID: item.JobID,
		URL:   item.URL,
		Mode:  item.Mode,
	})
	if err != nil {
		return err
	}

	// Snapshot before extraction so diagnostic content is available even
	// if the model call fails.
	snapshot := result.Content
	if len(snapshot) > w.cfg.RawContentMaxChars {
		snapshot = snapshot[:w.cfg.RawContentMaxChars]
	}
	if err := w.jobs.SaveRawContent(ctx, item.JobID, snapshot); err != nil {
		return fmt.Errorf("save raw content: %w", err)
	}
	w.archiveContent(ctx, item.JobID, result.Content)

	extraction, err := w.extractor.Extract(ctx, result.Content, structure.Fields, website.Notes)
	if err != nil {
		return err
	}

	overall := confidence.Aggregate(extraction.FieldConfidences)

	eventID, err := w.idGen.NewID()
	if err != nil {
		return fmt.Errorf("generate event id: %w", err)
	}
	event := ingest.Event{
		ID:                eventID,
		CrawlJobID:        item.JobID,
		WebsiteID:         website.ID,
		EventData:         extraction.EventData,
		OverallConfidence: overall,
		FieldConfidences:  extraction.FieldConfidences,
		AINotes:           extraction.Notes,
		SourceURL:         item.URL,
		ReviewStatus:      ingest.ReviewStatusPending,
		CreatedAt:         w.clock.Now(),
	}
	if err := w.events.CreateEvent(ctx, event); err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	metrics.ObserveConfidence(overall)

	if err := w.jobs.MarkCompleted(ctx, item.JobID, w.clock.Now()); err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}

	w.logger.Info("job completed",
		zap.String("job_id", item.JobID),
		zap.String("event_id", eventID),
		zap.Float64("overall_confidence", overall),
	)
	return nil
}

// archiveContent writes the full body to the blob store. The archive is a
// side channel: a failure here logs a warning and never fails the job.
func (w *Worker) archiveContent(ctx context.Context, jobID, content string) {
	if w.blobStore == nil || content == "" {
		return
	}
	path := w.blobPath(jobID)
	uri, err := w.blobStore.PutObject(ctx, path, w.cfg.ContentType, strings.NewReader(content))
	if err != nil {
		w.logger.Warn("archive raw content failed", zap.String("job_id", jobID), zap.Error(err))
		return
	}
	w.logger.Debug("raw content archived",
		zap.String("job_id", jobID),
		zap.String("blob_uri", uri),
		zap.String("content_sha256", sha256.Digest([]byte(content))),
	)
}

func (w *Worker) blobPath(jobID string) string {
	prefix := strings.Trim(w.cfg.BlobPrefix, "/")
	if prefix == "" {
		return fmt.Sprintf("%s.html", jobID)
	}
	return fmt.Sprintf("%s/%s.html", prefix, jobID)
}
