package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/erazemk/odvoz/internal/model"
)

// DefaultQueueSize is the queue capacity used when none is configured.
const DefaultQueueSize = 256

// deliveryTimeout bounds a single sink write.
const deliveryTimeout = 5 * time.Second

// Queue buffers notifications and writes them to a Sink from a single worker
// goroutine. Enqueue never blocks.
type Queue struct {
	sink Sink
	ch   chan model.Notification
	done chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewQueue starts a queue delivering to sink. A non-positive size selects
// DefaultQueueSize.
func NewQueue(sink Sink, size int) *Queue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	q := &Queue{
		sink: sink,
		ch:   make(chan model.Notification, size),
		done: make(chan struct{}),
	}
	go q.run()
	return q
}

// Enqueue schedules n for delivery. It reports false, after logging, when the
// queue is full or closed.
func (q *Queue) Enqueue(n model.Notification) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		slog.Warn("notification dropped, queue closed", "recipient", n.Recipient().ID)
		return false
	}

	select {
	case q.ch <- n:
		return true
	default:
		slog.Warn("notification dropped, queue full", "recipient", n.Recipient().ID)
		return false
	}
}

// Close stops accepting notifications and waits until the queued ones have
// been delivered or ctx is done.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.ch)
	}
	q.mu.Unlock()

	select {
	case <-q.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Queue) run() {
	defer close(q.done)

	for n := range q.ch {
		q.deliver(n)
	}
}

func (q *Queue) deliver(n model.Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
	defer cancel()

	if err := q.sink.Append(ctx, &n); err != nil {
		r := n.Recipient()
		slog.Error("failed to deliver notification",
			"recipient", r.ID, "receiver", r.IsReceiver, "error", err)
	}
}
