package notify

import "context"

// Repo defines persistence operations for notifications.
type Repo interface {
	Create(ctx context.Context, n Notification) error
	ListByUser(ctx context.Context, userID string, limit int) ([]Notification, error)
	MarkRead(ctx context.Context, userID, notificationID string) error
	DeleteAllForUser(ctx context.Context, userID string) (int, error)
}
