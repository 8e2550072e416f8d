package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"travel-marketplace/internal/models"

	"github.com/rs/zerolog"
)

var (
	ErrQueueFull   = errors.New("notification queue is full")
	ErrQueueClosed = errors.New("notification queue is closed")
)

type job struct {
	ctx context.Context
	n   *models.Notification
}

// Queue hands notifications to a fixed pool of workers so callers never wait
// on a slow channel. Dispatch only enqueues; a full queue drops the
// notification and reports ErrQueueFull.
type Queue struct {
	next    Dispatcher
	jobs    chan job
	timeout time.Duration
	logger  zerolog.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewQueue(next Dispatcher, workers, size int, timeout time.Duration, logger zerolog.Logger) *Queue {
	if workers < 1 {
		workers = 1
	}
	if size < 1 {
		size = 1
	}
	q := &Queue{
		next:    next,
		jobs:    make(chan job, size),
		timeout: timeout,
		logger:  logger,
	}
	q.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go q.work()
	}
	return q
}

func (q *Queue) Dispatch(ctx context.Context, n *models.Notification) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.jobs <- job{ctx: context.WithoutCancel(ctx), n: n}:
		return nil
	default:
		return ErrQueueFull
	}
}

func (q *Queue) work() {
	defer q.wg.Done()
	for j := range q.jobs {
		ctx, cancel := j.ctx, context.CancelFunc(func() {})
		if q.timeout > 0 {
			ctx, cancel = context.WithTimeout(j.ctx, q.timeout)
		}
		if err := q.next.Dispatch(ctx, j.n); err != nil {
			q.logger.Warn().Err(err).
				Str("notification_id", j.n.ID).
				Str("user_id", j.n.UserID).
				Msg("Notification delivery failed")
		}
		cancel()
	}
}

// Close stops accepting notifications and waits for the queued ones to be
// delivered, or for ctx to end.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
