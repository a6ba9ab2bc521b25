package batch

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/joseph-ayodele/keyword-estimator/constants"
)

var ErrQueueClosed = errors.New("queue is shutting down")

// Job is one document waiting to be valued.
type Job struct {
	Path        string
	SubmittedAt time.Time
}

// Queue feeds jobs to a fixed pool of workers that run them through a
// Processor. Results are handed to the OnResult callback.
type Queue struct {
	proc     *Processor
	logger   *slog.Logger
	workers  int
	onResult func(FileResult)

	ctx    context.Context
	cancel context.CancelFunc
	ch     chan Job
	wg     sync.WaitGroup
	once   sync.Once

	mu     sync.Mutex
	closed bool
}

type QueueOption func(*Queue)

func WithWorkers(n int) QueueOption {
	return func(q *Queue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func WithQueueSize(n int) QueueOption {
	return func(q *Queue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}

func WithResultHandler(fn func(FileResult)) QueueOption {
	return func(q *Queue) { q.onResult = fn }
}

func NewQueue(proc *Processor, logger *slog.Logger, opts ...QueueOption) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		proc:    proc,
		logger:  logger,
		workers: 2,
		ctx:     ctx,
		cancel:  cancel,
		ch:      make(chan Job, 64),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *Queue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Debug("batch.worker.started", "worker_id", workerID)
				for job := range q.ch {
					res := q.proc.ProcessFile(q.ctx, job.Path)
					q.logger.Info("batch.job.done",
						"worker_id", workerID,
						"path", job.Path,
						"outcome", res.Outcome,
						"status", res.Outcome.Status(),
						"waited_ms", time.Since(job.SubmittedAt).Milliseconds(),
					)
					if q.onResult != nil {
						q.onResult(res)
					}
				}
				q.logger.Debug("batch.worker.stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

// Enqueue blocks while the queue is full, until ctx is done.
func (q *Queue) Enqueue(ctx context.Context, path string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}
	job := Job{Path: path, SubmittedAt: time.Now()}
	select {
	case q.ch <- job:
		q.logger.Debug("batch.job.queued", "path", path, "status", constants.RunStatusQueued)
		return nil
	default:
	}
	q.logger.Warn("batch.queue.full", "path", path)
	select {
	case q.ch <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops accepting jobs and waits for queued ones to finish. When
// ctx ends first, running calculations are cancelled.
func (q *Queue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("batch.queue.shutdown_interrupted")
		q.cancel()
		<-done
	case <-done:
		q.logger.Info("batch.queue.drained")
	}
	q.cancel()
}
