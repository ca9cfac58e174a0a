package documents

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory Repo for local development and tests.
type MemoryRepo struct {
	mu   sync.Mutex
	docs map[string]Document
}

// NewMemoryRepo constructs an empty in-memory repo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{docs: make(map[string]Document)}
}

func (r *MemoryRepo) Create(ctx context.Context, doc Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if doc.Status == "" {
		doc.Status = StatusQueued
	}
	r.docs[doc.ID] = doc
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, documentID string) (Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[documentID]
	if !ok {
		return Document{}, ErrNotFound
	}
	return doc, nil
}

func (r *MemoryRepo) GetForUser(ctx context.Context, userID, documentID string) (Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[documentID]
	if !ok || doc.UserID != userID {
		return Document{}, ErrNotFound
	}
	return doc, nil
}

func (r *MemoryRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Document, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	r.mu.Lock()
	var all []Document
	for _, doc := range r.docs {
		if doc.UserID == userID {
			all = append(all, doc)
		}
	}
	r.mu.Unlock()

	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})

	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (r *MemoryRepo) Claim(ctx context.Context, documentID string, attempt int, startedAt time.Time) (Document, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[documentID]
	if !ok {
		return Document{}, false, ErrNotFound
	}
	if doc.Terminal() {
		return doc, false, nil
	}
	doc.Status = StatusProcessing
	if attempt > doc.Attempts {
		doc.Attempts = attempt
	}
	if doc.StartedAt == nil {
		t := startedAt
		doc.StartedAt = &t
	}
	r.docs[documentID] = doc
	return doc, true, nil
}

func (r *MemoryRepo) UpdateExtraction(ctx context.Context, documentID, extractedTextKey string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[documentID]
	if !ok {
		return ErrNotFound
	}
	doc.ExtractedTextKey = extractedTextKey
	doc.StorageKey = ""
	r.docs[documentID] = doc
	return nil
}

func (r *MemoryRepo) ClearExtractedTextKey(ctx context.Context, documentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[documentID]
	if !ok {
		return ErrNotFound
	}
	doc.ExtractedTextKey = ""
	r.docs[documentID] = doc
	return nil
}

func (r *MemoryRepo) MarkCompleted(ctx context.Context, documentID string, result AnalysisResult, completedAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[documentID]
	if !ok {
		return false, ErrNotFound
	}
	if doc.Terminal() {
		return false, nil
	}
	doc.Status = StatusCompleted
	doc.TruncatedText = result.TruncatedText
	doc.Summary = result.Summary
	doc.RiskScore = result.RiskScore
	doc.Verdict = result.Verdict
	doc.PositiveKeywords = emptyIfNil(result.PositiveKeywords)
	doc.NegativeKeywords = emptyIfNil(result.NegativeKeywords)
	doc.StrategicAdvice = result.StrategicAdvice
	t := completedAt
	doc.CompletedAt = &t
	r.docs[documentID] = doc
	return true, nil
}

func (r *MemoryRepo) MarkFailed(ctx context.Context, documentID, code, message string, completedAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[documentID]
	if !ok {
		return false, ErrNotFound
	}
	if doc.Terminal() {
		return false, nil
	}
	doc.Status = StatusFailed
	doc.ErrorCode = code
	doc.ErrorMessage = message
	t := completedAt
	doc.CompletedAt = &t
	r.docs[documentID] = doc
	return true, nil
}

func (r *MemoryRepo) DeleteAllForUser(ctx context.Context, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	deleted := 0
	for id, doc := range r.docs {
		if doc.UserID == userID {
			delete(r.docs, id)
			deleted++
		}
	}
	return deleted, nil
}

var _ Repo = (*MemoryRepo)(nil)
