// Package telemetry provides a background event queue so per-turn
// bookkeeping never runs inline on the request path.
package telemetry

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// defaultBufferSize is the event channel capacity. Events beyond capacity
// are dropped rather than blocking a turn.
const defaultBufferSize = 256

// Event is one recorded pipeline occurrence.
type Event struct {
	// Name identifies the event (e.g. "turn_processed", "validator_error").
	Name string

	// UserID is the user the event concerns.
	UserID string

	// Fields carries event-specific values.
	Fields map[string]interface{}

	// At is when the event was recorded.
	At time.Time
}

// Queue consumes events on a worker goroutine and logs them.
//
// Emit never blocks: when the buffer is full, the event is dropped and the
// drop counted. Close drains remaining events before returning.
type Queue struct {
	logger *zap.Logger
	events chan Event

	mu      sync.Mutex
	dropped int
	closed  bool

	done chan struct{}
}

// QueueOption configures a Queue.
type QueueOption func(*Queue)

// WithBufferSize overrides the event buffer capacity.
func WithBufferSize(n int) QueueOption {
	return func(q *Queue) {
		if n > 0 {
			q.events = make(chan Event, n)
		}
	}
}

// NewQueue creates a queue and starts its worker.
//
// A nil logger disables log output while keeping the queue functional.
func NewQueue(logger *zap.Logger, opts ...QueueOption) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	q := &Queue{
		logger: logger,
		events: make(chan Event, defaultBufferSize),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(q)
	}

	go q.run()
	return q
}

// Emit records an event without blocking the caller.
func (q *Queue) Emit(event Event) {
	if event.At.IsZero() {
		event.At = time.Now()
	}

	// The send happens under the mutex so Close cannot close the channel
	// between the closed check and the send.
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}

	select {
	case q.events <- event:
	default:
		q.dropped++
	}
}

// Dropped returns how many events were discarded due to a full buffer.
func (q *Queue) Dropped() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

// Close stops accepting events, drains the buffer, and waits for the
// worker to finish.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()

	close(q.events)
	<-q.done
}

// run consumes events until the channel is closed.
func (q *Queue) run() {
	defer close(q.done)
	for event := range q.events {
		fields := []zap.Field{
			zap.String("user_id", event.UserID),
			zap.Time("at", event.At),
		}
		for key, value := range event.Fields {
			fields = append(fields, zap.Any(key, value))
		}
		q.logger.Info(event.Name, fields...)
	}
}
