package notify

import (
	"context"
	"time"

	"github.com/google/uuid"

	"lexscan-backend/internal/shared/telemetry"
)

// Service emits and reads user notifications. Delivery failures are logged
// and swallowed so a notification problem never fails the job that caused it.
type Service struct {
	Repo Repo
	now  func() time.Time
}

// NewService constructs a notification service over a repo.
func NewService(repo Repo) *Service {
	return &Service{Repo: repo, now: time.Now}
}

// Success emits a success notification.
func (s *Service) Success(ctx context.Context, userID, title, message, link string) {
	s.emit(ctx, userID, TypeSuccess, title, message, link)
}

// Error emits an error notification.
func (s *Service) Error(ctx context.Context, userID, title, message, link string) {
	s.emit(ctx, userID, TypeError, title, message, link)
}

func (s *Service) emit(ctx context.Context, userID, kind, title, message, link string) {
	n := Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      kind,
		Title:     title,
		Message:   message,
		Link:      link,
		CreatedAt: s.now().UTC(),
	}
	if err := s.Repo.Create(ctx, n); err != nil {
		telemetry.Error("notify.create_failed", map[string]any{
			"user_id": userID,
			"type":    kind,
			"title":   title,
			"error":   err.Error(),
		})
	}
}

// List returns the user's notifications, newest first.
func (s *Service) List(ctx context.Context, userID string, limit int) ([]Notification, error) {
	return s.Repo.ListByUser(ctx, userID, limit)
}

// MarkRead flags one notification as read.
func (s *Service) MarkRead(ctx context.Context, userID, notificationID string) error {
	return s.Repo.MarkRead(ctx, userID, notificationID)
}

// DeleteAllForUser is the account-deletion cascade hook.
func (s *Service) DeleteAllForUser(ctx context.Context, userID string) (int, error) {
	return s.Repo.DeleteAllForUser(ctx, userID)
}
