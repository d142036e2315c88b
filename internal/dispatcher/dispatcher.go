// Package dispatcher manages worker fan-out over the crawl job queue.
package dispatcher

import (
	"context"
	"fmt"
	"sync"

	"github.com/eventlens/crawler/internal/ingest"
	"github.com/eventlens/crawler/internal/worker"
)

// Dispatcher fans out queued crawl jobs to a pool of workers.
type Dispatcher struct {
	queue   ingest.Queue
	workers []*worker.Worker
}

// New creates a Dispatcher.
func New(queue ingest.Queue, workers []*worker.Worker) *Dispatcher {
	return &Dispatcher{
		queue:   queue,
		workers: workers,
	}
}

// Run starts all workers and blocks until the context finishes.
func (d *Dispatcher) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, w := range d.workers {
		wg.Add(1)
		go func(wk *worker.Worker) {
			defer wg.Done()
			wk.Run(ctx)
		}(w)
	}
	<-ctx.Done()
	wg.Wait()
}

// Enqueue proxies to the underlying queue.
func (d *Dispatcher) Enqueue(ctx context.Context, item ingest.QueueItem) error {
	if err := d.queue.Enqueue(ctx, item); err != nil {
		return fmt.Errorf("queue enqueue: %w", err)
	}
	return nil
}
