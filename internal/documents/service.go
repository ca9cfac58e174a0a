package documents

import (
	"context"
	"errors"
	"time"
)

// Service contains read-side business logic for documents. Submission and
// processing live in the analysis package.
type Service struct {
	Repo Repo
}

// Get returns a document scoped to its owner.
func (s *Service) Get(ctx context.Context, userID, documentID string) (Document, error) {
	if userID == "" || documentID == "" {
		return Document{}, ErrInvalidInput
	}
	return s.Repo.GetForUser(ctx, userID, documentID)
}

// List returns the user's documents ordered newest-first.
func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]Document, error) {
	if userID == "" {
		return nil, ErrInvalidInput
	}
	return s.Repo.ListByUser(ctx, userID, limit, offset)
}

// DeleteAllForUser removes every document for a user. Callers own the cleanup
// of associated stored objects.
func (s *Service) DeleteAllForUser(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, ErrInvalidInput
	}
	return s.Repo.DeleteAllForUser(ctx, userID)
}

// WaitForResult polls until the document reaches a terminal state or the
// context expires. Intended for local development and tests where the caller
// wants synchronous semantics over the async pipeline.
func (s *Service) WaitForResult(ctx context.Context, userID, documentID string, interval time.Duration) (Document, error) {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		doc, err := s.Repo.GetForUser(ctx, userID, documentID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return Document{}, err
		}
		if err == nil && doc.Terminal() {
			return doc, nil
		}
		select {
		case <-ctx.Done():
			return Document{}, ctx.Err()
		case <-ticker.C:
		}
	}
}
