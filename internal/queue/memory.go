package queue

import (
	"context"
	"strconv"
	"sync"
	"time"
)

// Delivery is one received message with its redelivery bookkeeping.
type Delivery struct {
	Message      Message
	Receipt      string
	ReceiveCount int
}

// MemoryQueue is an in-process queue with SQS-like visibility semantics for
// local development and tests. A received message stays invisible for the
// visibility timeout; if it is not deleted in time it becomes receivable
// again with an incremented receive count.
type MemoryQueue struct {
	mu         sync.Mutex
	visibility time.Duration
	now        func() time.Time
	nextID     int
	items      []*memoryItem
	wake       chan struct{}
}

type memoryItem struct {
	msg          Message
	receipt      string
	receiveCount int
	invisibleTil time.Time
	deleted      bool
}

// NewMemoryQueue constructs a queue with the given visibility timeout.
func NewMemoryQueue(visibility time.Duration) *MemoryQueue {
	if visibility <= 0 {
		visibility = 30 * time.Second
	}
	return &MemoryQueue{
		visibility: visibility,
		now:        time.Now,
		wake:       make(chan struct{}, 1),
	}
}

// Send enqueues a message.
func (q *MemoryQueue) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	q.mu.Lock()
	q.nextID++
	q.items = append(q.items, &memoryItem{
		msg:     msg,
		receipt: "m-" + strconv.Itoa(q.nextID),
	})
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return nil
}

// Receive blocks until a message is available or the context is done.
func (q *MemoryQueue) Receive(ctx context.Context) (Delivery, error) {
	for {
		if d, ok := q.tryReceive(); ok {
			return d, nil
		}
		select {
		case <-ctx.Done():
			return Delivery{}, ctx.Err()
		case <-q.wake:
		case <-time.After(50 * time.Millisecond):
		}
	}
}

func (q *MemoryQueue) tryReceive() (Delivery, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	now := q.now()
	for _, item := range q.items {
		if item.deleted || now.Before(item.invisibleTil) {
			continue
		}
		item.receiveCount++
		item.invisibleTil = now.Add(q.visibility)
		return Delivery{
			Message:      item.msg,
			Receipt:      item.receipt,
			ReceiveCount: item.receiveCount,
		}, true
	}
	return Delivery{}, false
}

// Delete acknowledges a delivery so it is never redelivered.
func (q *MemoryQueue) Delete(ctx context.Context, receipt string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, item := range q.items {
		if item.receipt == receipt {
			item.deleted = true
			return nil
		}
	}
	return nil
}

// Pending reports how many messages are not yet deleted.
func (q *MemoryQueue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for _, item := range q.items {
		if !item.deleted {
			n++
		}
	}
	return n
}

var _ Client = (*MemoryQueue)(nil)
