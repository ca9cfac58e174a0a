package documents

import (
	"context"
	"time"
)

// Repo defines persistence operations for documents.
//
// Completed and failed rows are immutable: MarkCompleted and MarkFailed only
// transition from a live status and report whether they did, which makes the
// worker's side effects idempotent under queue redelivery.
type Repo interface {
	Create(ctx context.Context, doc Document) error
	GetByID(ctx context.Context, documentID string) (Document, error)
	GetForUser(ctx context.Context, userID, documentID string) (Document, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Document, error)

	// Claim transitions a live document to processing for exactly one worker
	// and records the delivery attempt. It returns false when the document
	// already reached a terminal state.
	Claim(ctx context.Context, documentID string, attempt int, startedAt time.Time) (Document, bool, error)

	// UpdateExtraction stores the derived text key and clears the transient
	// upload key after the raw bytes were removed.
	UpdateExtraction(ctx context.Context, documentID, extractedTextKey string) error
	// ClearExtractedTextKey removes the derived-text reference once the
	// object is deleted at terminal state.
	ClearExtractedTextKey(ctx context.Context, documentID string) error

	MarkCompleted(ctx context.Context, documentID string, result AnalysisResult, completedAt time.Time) (bool, error)
	MarkFailed(ctx context.Context, documentID, code, message string, completedAt time.Time) (bool, error)

	// DeleteAllForUser is the account-deletion cascade hook.
	DeleteAllForUser(ctx context.Context, userID string) (int, error)
}
