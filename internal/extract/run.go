package extract

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/keyword-estimator/internal/common"
)

// EventBuffer bounds the progress events a Run holds for a slow consumer.
const EventBuffer = 32

// Run is one extraction executing on its own goroutine. The caller observes
// it through Events and Done and never shares state with the worker.
type Run struct {
	id     string
	cancel context.CancelFunc
	events chan ProgressEvent
	done   chan struct{}

	mu       sync.Mutex
	result   Result
	finished bool
}

// Start launches an extraction of path on a dedicated goroutine.
func Start(ctx context.Context, p *Pipeline, path string) *Run {
	id := uuid.NewString()
	ctx, cancel := context.WithCancel(common.WithRunID(ctx, id))
	r := &Run{
		id:     id,
		cancel: cancel,
		events: make(chan ProgressEvent, EventBuffer),
		done:   make(chan struct{}),
	}
	go r.work(ctx, p, path)
	return r
}

func (r *Run) work(ctx context.Context, p *Pipeline, path string) {
	defer r.cancel()
	res := p.Extract(ctx, path, r.publish)

	close(r.events)
	r.mu.Lock()
	r.result = res
	r.finished = true
	r.mu.Unlock()
	close(r.done)
}

// publish never blocks the worker: when the buffer is full the oldest
// undelivered event is dropped.
func (r *Run) publish(ev ProgressEvent) {
	for {
		select {
		case r.events <- ev:
			return
		default:
		}
		select {
		case <-r.events:
		default:
		}
	}
}

// ID is the run identifier attached to the run's log lines.
func (r *Run) ID() string { return r.id }

// Events yields progress in order and is closed before Done.
func (r *Run) Events() <-chan ProgressEvent { return r.events }

// Done is closed once the terminal result is available.
func (r *Run) Done() <-chan struct{} { return r.done }

// Cancel requests cooperative cancellation. It does not block and may be
// called any number of times.
func (r *Run) Cancel() { r.cancel() }

// Result returns the terminal result and true once Done is closed, and the
// zero Result and false before that.
func (r *Run) Result() (Result, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.result, r.finished
}

// Wait blocks until the run finishes and returns its result.
func (r *Run) Wait() Result {
	<-r.done
	res, _ := r.Result()
	return res
}
