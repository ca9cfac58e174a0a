package quota

import "context"

type store interface {
	Get(ctx context.Context, userID string) (Quota, error)
	Admit(ctx context.Context, userID string) (Quota, error)
	SetPlan(ctx context.Context, userID, plan string) (Quota, error)
	Reset(ctx context.Context, userID string) (Quota, error)
}

// Service is the entitlement gate: it decides whether a user may submit a
// new analysis and consumes a free-tier credit at admission time.
type Service struct {
	store store
}

// NewService constructs a Service with an in-memory store.
func NewService(freeCap int) *Service {
	return &Service{store: newMemoryStore(freeCap)}
}

// NewPostgresService constructs a Service backed by Postgres.
func NewPostgresService(pgStore store) *Service {
	return &Service{store: pgStore}
}

// Get returns the current quota for a user, initializing defaults if absent.
func (s *Service) Get(ctx context.Context, userID string) (Quota, error) {
	return s.store.Get(ctx, userID)
}

// Admit allows the submission and charges one credit, atomically with
// respect to concurrent submissions from the same user. Pro users are always
// admitted and never charged. Returns ErrQuotaExceeded on denial; the counter
// is untouched in that case.
func (s *Service) Admit(ctx context.Context, userID string) (Quota, error) {
	return s.store.Admit(ctx, userID)
}

// SetPlan records a plan change pushed by the billing collaborator. The
// usage counter is never decremented here; only the tier changes.
func (s *Service) SetPlan(ctx context.Context, userID, plan string) (Quota, error) {
	if plan != PlanPro {
		plan = PlanFree
	}
	return s.store.SetPlan(ctx, userID, plan)
}

// Reset zeroes the usage counter. Dev-only surface.
func (s *Service) Reset(ctx context.Context, userID string) (Quota, error) {
	return s.store.Reset(ctx, userID)
}
