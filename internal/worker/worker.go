// Package worker implements the ingestion execution loop.
package worker

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/quillhaven/novelingest/internal/executor"
	"github.com/quillhaven/novelingest/internal/ingest"
)

// Worker consumes queue items and hands each one to the executor.
type Worker struct {
	queue  ingest.Queue
	exec   *executor.Executor
	logger *zap.Logger
}

// New constructs a Worker.
func New(queue ingest.Queue, exec *executor.Executor, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{queue: queue, exec: exec, logger: logger}
}

// Run blocks, consuming queue items until the context finishes. A
// failed job never stops the loop; only infrastructure errors are
// logged and the loop keeps going.
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
		w.logger.Debug("dequeued job", zap.String("job_id", item.JobID))
		if err := w.exec.Execute(ctx, item); err != nil {
			w.logger.Error("job execution error",
				zap.String("job_id", item.JobID), zap.Error(err))
		}
	}
}

// Dispatcher fans out queue work to a pool of workers.
type Dispatcher struct {
	workers []*Worker
}

// NewDispatcher builds n workers over the same queue and executor.
func NewDispatcher(n int, queue ingest.Queue, exec *executor.Executor, logger *zap.Logger) *Dispatcher {
	if n < 1 {
		n = 1
	}
	workers := make([]*Worker, 0, n)
	for i := 0; i < n; i++ {
		workers = append(workers, New(queue, exec, logger))
	}
	return &Dispatcher{workers: workers}
}

// Run starts all workers and blocks until the context finishes.
func (d *Dispatcher) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, w := range d.workers {
		wg.Add(1)
		go func(wk *Worker) {
			defer wg.Done()
			wk.Run(ctx)
		}(w)
	}
	<-ctx.Done()
	wg.Wait()
}
