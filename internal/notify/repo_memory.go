package notify

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is an in-memory Repo for local development and tests.
type MemoryRepo struct {
	mu    sync.Mutex
	items map[string]Notification
}

// NewMemoryRepo constructs an empty in-memory repo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{items: make(map[string]Notification)}
}

func (r *MemoryRepo) Create(ctx context.Context, n Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[n.ID] = n
	return nil
}

func (r *MemoryRepo) ListByUser(ctx context.Context, userID string, limit int) ([]Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}

	r.mu.Lock()
	var out []Notification
	for _, n := range r.items {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepo) MarkRead(ctx context.Context, userID, notificationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.items[notificationID]
	if !ok || n.UserID != userID {
		return nil
	}
	n.Read = true
	r.items[notificationID] = n
	return nil
}

func (r *MemoryRepo) DeleteAllForUser(ctx context.Context, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	deleted := 0
	for id, n := range r.items {
		if n.UserID == userID {
			delete(r.items, id)
			deleted++
		}
	}
	return deleted, nil
}

var _ Repo = (*MemoryRepo)(nil)
