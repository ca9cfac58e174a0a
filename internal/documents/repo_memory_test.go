package documents

import (
	"context"
	"errors"
	"testing"
	"time"
)

func seedDoc(t *testing.T, repo Repo, id, userID string, createdAt time.Time) {
	t.Helper()
	err := repo.Create(context.Background(), Document{
		ID:         id,
		UserID:     userID,
		FileName:   id + ".pdf",
		MimeType:   "application/pdf",
		SizeBytes:  100,
		StorageKey: "k/" + id,
		Status:     StatusQueued,
		CreatedAt:  createdAt,
	})
	if err != nil {
		t.Fatalf("create %s: %v", id, err)
	}
}

func TestMemoryListNewestFirst(t *testing.T) {
	repo := NewMemoryRepo()
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	seedDoc(t, repo, "d1", "u1", base)
	seedDoc(t, repo, "d2", "u1", base.Add(time.Minute))
	seedDoc(t, repo, "d3", "u1", base.Add(2*time.Minute))
	seedDoc(t, repo, "other", "u2", base.Add(3*time.Minute))

	docs, err := repo.ListByUser(context.Background(), "u1", 10, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(docs) != 3 {
		t.Fatalf("expected 3 docs, got %d", len(docs))
	}
	if docs[0].ID != "d3" || docs[1].ID != "d2" || docs[2].ID != "d1" {
		t.Fatalf("expected newest-first order, got %s %s %s", docs[0].ID, docs[1].ID, docs[2].ID)
	}
}

func TestMemoryGetForUserScopes(t *testing.T) {
	repo := NewMemoryRepo()
	seedDoc(t, repo, "d1", "u1", time.Now())

	if _, err := repo.GetForUser(context.Background(), "u2", "d1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for another user, got %v", err)
	}
	if _, err := repo.GetForUser(context.Background(), "u1", "d1"); err != nil {
		t.Fatalf("owner get: %v", err)
	}
}

func TestMemoryClaimAndTerminalGuard(t *testing.T) {
	repo := NewMemoryRepo()
	seedDoc(t, repo, "d1", "u1", time.Now())
	ctx := context.Background()

	doc, claimed, err := repo.Claim(ctx, "d1", 1, time.Now())
	if err != nil || !claimed {
		t.Fatalf("claim: claimed=%v err=%v", claimed, err)
	}
	if doc.Status != StatusProcessing || doc.Attempts != 1 {
		t.Fatalf("unexpected claimed doc: %+v", doc)
	}

	// Re-claim of a processing doc (redelivery) is allowed.
	doc, claimed, err = repo.Claim(ctx, "d1", 2, time.Now())
	if err != nil || !claimed {
		t.Fatalf("re-claim: claimed=%v err=%v", claimed, err)
	}
	if doc.Attempts != 2 {
		t.Fatalf("expected attempts 2, got %d", doc.Attempts)
	}

	updated, err := repo.MarkCompleted(ctx, "d1", AnalysisResult{Summary: "s", RiskScore: 10, Verdict: "favorable"}, time.Now())
	if err != nil || !updated {
		t.Fatalf("mark completed: updated=%v err=%v", updated, err)
	}

	// Terminal rows cannot be claimed or rewritten.
	_, claimed, err = repo.Claim(ctx, "d1", 3, time.Now())
	if err != nil || claimed {
		t.Fatalf("claim after terminal: claimed=%v err=%v", claimed, err)
	}
	updated, err = repo.MarkCompleted(ctx, "d1", AnalysisResult{Summary: "other"}, time.Now())
	if err != nil || updated {
		t.Fatalf("second completion must be a no-op, updated=%v err=%v", updated, err)
	}
	updated, err = repo.MarkFailed(ctx, "d1", ErrorCodeInternal, "late failure", time.Now())
	if err != nil || updated {
		t.Fatalf("failure after completion must be a no-op, updated=%v err=%v", updated, err)
	}

	doc, err = repo.GetByID(ctx, "d1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if doc.Status != StatusCompleted || doc.Summary != "s" {
		t.Fatalf("terminal result must be immutable: %+v", doc)
	}
}

func TestMemoryUpdateExtractionClearsUpload(t *testing.T) {
	repo := NewMemoryRepo()
	seedDoc(t, repo, "d1", "u1", time.Now())
	ctx := context.Background()

	if err := repo.UpdateExtraction(ctx, "d1", "k/d1.extracted.txt"); err != nil {
		t.Fatalf("update extraction: %v", err)
	}
	doc, _ := repo.GetByID(ctx, "d1")
	if doc.StorageKey != "" || doc.ExtractedTextKey != "k/d1.extracted.txt" {
		t.Fatalf("unexpected keys: %+v", doc)
	}

	if err := repo.ClearExtractedTextKey(ctx, "d1"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	doc, _ = repo.GetByID(ctx, "d1")
	if doc.ExtractedTextKey != "" {
		t.Fatalf("extracted key should be cleared")
	}
}

func TestMemoryDeleteAllForUser(t *testing.T) {
	repo := NewMemoryRepo()
	seedDoc(t, repo, "d1", "u1", time.Now())
	seedDoc(t, repo, "d2", "u1", time.Now())
	seedDoc(t, repo, "d3", "u2", time.Now())

	deleted, err := repo.DeleteAllForUser(context.Background(), "u1")
	if err != nil {
		t.Fatalf("delete all: %v", err)
	}
	if deleted != 2 {
		t.Fatalf("expected 2 deleted, got %d", deleted)
	}
	if docs, _ := repo.ListByUser(context.Background(), "u2", 10, 0); len(docs) != 1 {
		t.Fatalf("other user's docs must survive")
	}
}
