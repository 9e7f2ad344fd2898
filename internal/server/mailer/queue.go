package mailer

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/learnhub/internal/logging"
)

// shutdownDrainTimeout bounds the final drain after the worker is cancelled.
const shutdownDrainTimeout = 10 * time.Second

// Item is one queued e-mail. Payload is the code or link the template shows.
type Item struct {
	Kind     Kind
	Email    string
	Name     string
	Payload  string
	attempts int
}

// Sender delivers a rendered message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Queue is an unbounded in-process FIFO of outbound e-mail. Enqueue never
// blocks on delivery; Run drains the queue on a fixed interval.
type Queue struct {
	mu    sync.Mutex
	items []Item

	sender      Sender
	logger      logging.Logger
	interval    time.Duration
	maxAttempts int
}

// NewQueue builds a queue. maxAttempts below 1 is treated as 1, meaning a
// failed item is dropped right away.
func NewQueue(sender Sender, logger logging.Logger, interval time.Duration, maxAttempts int) *Queue {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Queue{
		sender:      sender,
		logger:      logger.With("module", "mailer"),
		interval:    interval,
		maxAttempts: maxAttempts,
	}
}

// Enqueue appends an e-mail to the queue.
func (q *Queue) Enqueue(kind Kind, email, name, payload string) {
	q.mu.Lock()
	q.items = append(q.items, Item{Kind: kind, Email: email, Name: name, Payload: payload})
	q.mu.Unlock()
}

// Len returns the number of pending items.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *Queue) take() []Item {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.items
	q.items = nil
	return items
}

func (q *Queue) requeue(item Item) {
	q.mu.Lock()
	q.items = append(q.items, item)
	q.mu.Unlock()
}

// Run drains the queue every interval until ctx is cancelled, then makes one
// last bounded drain so accepted mail is not silently lost on shutdown.
func (q *Queue) Run(ctx context.Context) {
	ticker := time.NewTicker(q.interval)
	defer ticker.Stop()

	q.logger.Info(ctx, "mail worker started", "interval", q.interval.String())

	for {
		select {
		case <-ctx.Done():
			drainCtx, cancel := context.WithTimeout(context.Background(), shutdownDrainTimeout)
			q.Drain(drainCtx)
			cancel()
			q.logger.Info(drainCtx, "mail worker stopped", "pending", q.Len())
			return
		case <-ticker.C:
			q.Drain(ctx)
		}
	}
}

// Drain delivers the items queued at call time, one at a time. Items that
// fail are requeued at the tail until maxAttempts is reached, then dropped.
func (q *Queue) Drain(ctx context.Context) {
	items := q.take()

	for i, item := range items {
		if ctx.Err() != nil {
			for _, rest := range items[i:] {
				q.requeue(rest)
			}
			return
		}
		q.deliver(ctx, item)
	}
}

func (q *Queue) deliver(ctx context.Context, item Item) {
	msg, err := Render(item)
	if err != nil {
		q.logger.Error(ctx, "mail render failed, dropping", "kind", item.Kind.String(), "to", item.Email, "error", err)
		return
	}

	if err := q.sender.Send(ctx, msg); err != nil {
		item.attempts++
		if item.attempts < q.maxAttempts {
			q.logger.Warn(ctx, "mail delivery failed, requeued",
				"kind", item.Kind.String(), "to", item.Email, "attempt", item.attempts, "error", err)
			q.requeue(item)
			return
		}
		q.logger.Error(ctx, "mail delivery failed, dropping",
			"kind", item.Kind.String(), "to", item.Email, "attempts", item.attempts, "error", err)
		return
	}

	q.logger.Debug(ctx, "mail delivered", "kind", item.Kind.String(), "to", item.Email)
}
