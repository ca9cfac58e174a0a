package quota

import (
	"context"
	"sync"
)

type memoryStore struct {
	mu      sync.Mutex
	rows    map[string]*Quota
	freeCap int
}

func newMemoryStore(freeCap int) *memoryStore {
	return &memoryStore{rows: make(map[string]*Quota), freeCap: freeCap}
}

func (s *memoryStore) ensureLocked(userID string) *Quota {
	q, ok := s.rows[userID]
	if !ok {
		q = &Quota{UserID: userID, Plan: PlanFree, Used: 0, Cap: s.freeCap}
		s.rows[userID] = q
	}
	return q
}

func (s *memoryStore) Get(ctx context.Context, userID string) (Quota, error) {
	if err := ctx.Err(); err != nil {
		return Quota{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.ensureLocked(userID), nil
}

func (s *memoryStore) Admit(ctx context.Context, userID string) (Quota, error) {
	if err := ctx.Err(); err != nil {
		return Quota{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	q := s.ensureLocked(userID)
	if q.Plan != PlanPro {
		if q.Used >= q.Cap {
			return Quota{}, ErrQuotaExceeded
		}
		q.Used++
	}
	return *q, nil
}

func (s *memoryStore) SetPlan(ctx context.Context, userID, plan string) (Quota, error) {
	if err := ctx.Err(); err != nil {
		return Quota{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	q := s.ensureLocked(userID)
	q.Plan = plan
	return *q, nil
}

func (s *memoryStore) Reset(ctx context.Context, userID string) (Quota, error) {
	if err := ctx.Err(); err != nil {
		return Quota{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	q := s.ensureLocked(userID)
	q.Used = 0
	return *q, nil
}
