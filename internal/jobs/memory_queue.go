package jobs

import (
	"context"
	"log/slog"
	"sync"
)

// MemoryQueue is an in-process Enqueuer drained by a pool of workers.
type MemoryQueue struct {
	mu      sync.RWMutex
	closed  bool
	ch      chan []byte
	done    chan struct{}
	once    sync.Once
	workers int
	logger  *slog.Logger
}

func NewMemoryQueue(buffer, workers int, logger *slog.Logger) *MemoryQueue {
	if buffer <= 0 {
		buffer = 64
	}
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MemoryQueue{
		ch:      make(chan []byte, buffer),
		done:    make(chan struct{}),
		workers: workers,
		logger:  logger,
	}
}

func (q *MemoryQueue) Enqueue(ctx context.Context, _ string, payload []byte) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.ch <- payload:
		return nil
	case <-q.done:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run starts the workers and blocks until the queue is closed and drained or
// ctx is done.
func (q *MemoryQueue) Run(ctx context.Context, h Handler) {
	var wg sync.WaitGroup
	for i := 0; i < q.workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			q.work(ctx, id, h)
		}(i)
	}
	wg.Wait()
}

func (q *MemoryQueue) work(ctx context.Context, id int, h Handler) {
	for {
		select {
		case <-ctx.Done():
			return
		case payload, ok := <-q.ch:
			if !ok {
				return
			}
			q.handle(ctx, id, payload, h)
		}
	}
}

func (q *MemoryQueue) handle(ctx context.Context, worker int, payload []byte, h Handler) {
	job, err := Decode(payload)
	if err != nil {
		q.logger.ErrorContext(ctx, "dropping checkout job", "worker", worker, "error", err)
		return
	}
	if err := h(ctx, job); err != nil {
		q.logger.ErrorContext(ctx, "checkout job failed", "worker", worker, "basket_id", job.BasketID, "error", err)
	}
}

// Close stops intake; workers finish what is already queued. Enqueue calls
// blocked on a full queue return ErrQueueClosed.
func (q *MemoryQueue) Close() {
	// wake blocked senders before waiting for them to release the read lock
	q.once.Do(func() { close(q.done) })

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.ch)
}

func (q *MemoryQueue) Len() int {
	return len(q.ch)
}
