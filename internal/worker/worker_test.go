package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eventlens/crawler/internal/ingest"
	storagememory "github.com/eventlens/crawler/internal/storage/memory"
	"github.com/eventlens/crawler/internal/store/memory"
)

type fakeFetcher struct {
	result ingest.FetchResult
	err    error
	calls  int
}

func (f *fakeFetcher) Fetch(_ context.Context, _ ingest.FetchRequest) (ingest.FetchResult, error) {
	f.calls++
	if f.err != nil {
		return ingest.FetchResult{}, f.err
	}
	return f.result, nil
}

type fakeExtractor struct {
	extraction ingest.Extraction
	err        error
	gotContent string
	gotHints   string
}

func (f *fakeExtractor) Extract(_ context.Context, content string, _ map[string]any, hints string) (ingest.Extraction, error) {
	f.gotContent = content
	f.gotHints = hints
	if f.err != nil {
		return ingest.Extraction{}, f.err
	}
	return f.extraction, nil
}

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

type seqIDGen struct {
	n int
}

func (g *seqIDGen) NewID() (string, error) {
	g.n++
	return fmt.Sprintf("id-%d", g.n), nil
}

type failingBlobStore struct{}

func (failingBlobStore) PutObject(context.Context, string, string, io.Reader) (string, error) {
	return "", errors.New("bucket unavailable")
}

type harness struct {
	websites   *memory.WebsiteStore
	structures *memory.StructureStore
	jobs       *memory.JobStore
	events     *memory.EventStore
	blobs      *storagememory.BlobStore
	fetcher    *fakeFetcher
	extractor  *fakeExtractor
	worker     *Worker
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	h := &harness{
		websites:   memory.NewWebsiteStore(),
		structures: memory.NewStructureStore(),
		jobs:       memory.NewJobStore(),
		events:     memory.NewEventStore(),
		blobs:      storagememory.NewBlobStore(),
		fetcher: &fakeFetcher{result: ingest.FetchResult{
			FinalURL:   "https://example.com/events",
			StatusCode: 200,
			Content:    "<html><body>Winter Gala, Jan 10</body></html>",
		}},
		extractor: &fakeExtractor{extraction: ingest.Extraction{
			EventData:        map[string]any{"title": "Winter Gala", "date": "2026-01-10"},
			FieldConfidences: map[string]any{"title": 95.0, "date": 60.0},
			Notes:            "date inferred from header",
		}},
	}
	h.worker = New(
		nil, // queue unused when driving processJob directly
		h.websites, h.structures, h.jobs, h.events,
		h.fetcher, h.extractor, h.blobs,
		&seqIDGen{}, fixedClock{now: time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)},
		cfg, zap.NewNop(),
	)
	return h
}

func (h *harness) seed(t *testing.T) ingest.QueueItem {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, h.websites.CreateWebsite(ctx, ingest.Website{
		ID:      "site-1",
		Name:    "Example Events",
		BaseURL: "https://example.com",
		Notes:   "listings are under /events",
		Active:  true,
	}))
	_, err := h.structures.CreateStructure(ctx, "struct-1", map[string]any{
		"title": "string",
		"date":  "string",
	}, time.Now())
	require.NoError(t, err)
	require.NoError(t, h.jobs.CreateJob(ctx, ingest.Job{
		ID:         "job-1",
		WebsiteID:  "site-1",
		URL:        "https://example.com/events",
		RenderMode: ingest.RenderModeStatic,
		Status:     ingest.JobStatusPending,
	}))
	return ingest.QueueItem{
		JobID:     "job-1",
		WebsiteID: "site-1",
		URL:       "https://example.com/events",
		Mode:      ingest.RenderModeStatic,
	}
}

func TestProcessJob_Success(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{BlobPrefix: "raw"})
	item := h.seed(t)
	ctx := context.Background()

	h.worker.processJob(ctx, item)

	job, err := h.jobs.GetJob(ctx, "job-1")
	require.NoError(t, err)
	require.Equal(t, ingest.JobStatusCompleted, job.Status)
	require.Empty(t, job.Error)
	require.NotNil(t, job.CompletedAt)
	require.Equal(t, h.fetcher.result.Content, job.RawContent)

	evList, err := h.events.ListEvents(ctx, ingest.EventFilter{})
	require.NoError(t, err)
	require.Len(t, evList, 1)
	event := evList[0]
	require.Equal(t, "job-1", event.CrawlJobID)
	require.Equal(t, "site-1", event.WebsiteID)
	require.Equal(t, ingest.ReviewStatusPending, event.ReviewStatus)
	require.InDelta(t, 77.5, event.OverallConfidence, 0.001)
	require.Equal(t, "Winter Gala", event.EventData["title"])
	require.Equal(t, "date inferred from header", event.AINotes)
	require.Equal(t, "https://example.com/events", event.SourceURL)

	require.Equal(t, "listings are under /events", h.extractor.gotHints)

	_, ok := h.blobs.Object("raw/job-1.html")
	require.True(t, ok)
}

func TestProcessJob_UnknownWebsite(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{})
	item := h.seed(t)
	item.WebsiteID = "missing"
	ctx := context.Background()

	h.worker.processJob(ctx, item)

	job, err := h.jobs.GetJob(ctx, "job-1")
	require.NoError(t, err)
	require.Equal(t, ingest.JobStatusFailed, job.Status)
	require.Contains(t, job.Error, "website missing")
	require.NotNil(t, job.CompletedAt)

	evList, err := h.events.ListEvents(ctx, ingest.EventFilter{})
	require.NoError(t, err)
	require.Empty(t, evList)
}

func TestProcessJob_NoActiveStructure(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{})
	ctx := context.Background()
	require.NoError(t, h.websites.CreateWebsite(ctx, ingest.Website{ID: "site-1", Name: "Example", BaseURL: "https://example.com", Active: true}))
	require.NoError(t, h.jobs.CreateJob(ctx, ingest.Job{ID: "job-1", WebsiteID: "site-1", URL: "https://example.com", Status: ingest.JobStatusPending}))

	h.worker.processJob(ctx, ingest.QueueItem{JobID: "job-1", WebsiteID: "site-1", URL: "https://example.com"})

	job, err := h.jobs.GetJob(ctx, "job-1")
	require.NoError(t, err)
	require.Equal(t, ingest.JobStatusFailed, job.Status)
	require.Contains(t, job.Error, "no active event structure")
}

func TestProcessJob_FetchFailure(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{})
	item := h.seed(t)
	h.fetcher.err = fmt.Errorf("fetch failed after 3 attempts: %w", errors.New("connection refused"))
	ctx := context.Background()

	h.worker.processJob(ctx, item)

	job, err := h.jobs.GetJob(ctx, "job-1")
	require.NoError(t, err)
	require.Equal(t, ingest.JobStatusFailed, job.Status)
	require.Contains(t, job.Error, "fetch failed after 3 attempts")
	require.Empty(t, job.RawContent)
}

func TestProcessJob_BotDetectionFailure(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{})
	item := h.seed(t)
	h.fetcher.err = fmt.Errorf("fetch failed after 3 attempts: %w", &ingest.BotDetectionError{
		URL:    "https://example.com/events",
		Marker: "cloudflare",
	})
	ctx := context.Background()

	h.worker.processJob(ctx, item)

	job, err := h.jobs.GetJob(ctx, "job-1")
	require.NoError(t, err)
	require.Equal(t, ingest.JobStatusFailed, job.Status)
	require.Contains(t, job.Error, "bot detection")

	evList, err := h.events.ListEvents(ctx, ingest.EventFilter{})
	require.NoError(t, err)
	require.Empty(t, evList)
}

func TestProcessJob_ExtractionFailureKeepsSnapshot(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{})
	item := h.seed(t)
	h.extractor.err = fmt.Errorf("extraction failed: %w", errors.New("model returned malformed JSON"))
	ctx := context.Background()

	h.worker.processJob(ctx, item)

	job, err := h.jobs.GetJob(ctx, "job-1")
	require.NoError(t, err)
	require.Equal(t, ingest.JobStatusFailed, job.Status)
	require.Contains(t, job.Error, "extraction failed")
	// Snapshot persisted before the extraction call is retained for
	// diagnosis.
	require.Equal(t, h.fetcher.result.Content, job.RawContent)
}

func TestProcessJob_TruncatesSnapshot(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{RawContentMaxChars: 10})
	item := h.seed(t)
	h.fetcher.result.Content = strings.Repeat("a", 40)
	ctx := context.Background()

	h.worker.processJob(ctx, item)

	job, err := h.jobs.GetJob(ctx, "job-1")
	require.NoError(t, err)
	require.Equal(t, ingest.JobStatusCompleted, job.Status)
	require.Equal(t, strings.Repeat("a", 10), job.RawContent)

	// Extraction sees the full body, not the truncated snapshot.
	require.Equal(t, strings.Repeat("a", 40), h.extractor.gotContent)
}

func TestProcessJob_ArchiveFailureIsNonFatal(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{})
	item := h.seed(t)
	h.worker.blobStore = failingBlobStore{}
	ctx := context.Background()

	h.worker.processJob(ctx, item)

	job, err := h.jobs.GetJob(ctx, "job-1")
	require.NoError(t, err)
	require.Equal(t, ingest.JobStatusCompleted, job.Status)
}

func TestProcessJob_NilBlobStoreDisablesArchiving(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{})
	item := h.seed(t)
	h.worker.blobStore = nil
	ctx := context.Background()

	h.worker.processJob(ctx, item)

	job, err := h.jobs.GetJob(ctx, "job-1")
	require.NoError(t, err)
	require.Equal(t, ingest.JobStatusCompleted, job.Status)
}
