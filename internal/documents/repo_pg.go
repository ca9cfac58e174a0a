package documents

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const documentColumns = `
id, user_id, file_name, mime_type, size_bytes, storage_key, extracted_text_key,
status, attempts, truncated_text, summary, risk_score, verdict,
keywords_positive, keywords_negative, strategic_advice,
error_code, error_message, created_at, started_at, completed_at`

// Create inserts a new queued document.
func (r *PGRepo) Create(ctx context.Context, doc Document) error {
	const query = `
INSERT INTO documents (
    id, user_id, file_name, mime_type, size_bytes, storage_key,
    status, attempts, risk_score, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, $9)`

	status := doc.Status
	if status == "" {
		status = StatusQueued
	}

	var storageKey sql.NullString
	if doc.StorageKey != "" {
		storageKey = sql.NullString{String: doc.StorageKey, Valid: true}
	}

	_, err := r.DB.ExecContext(
		ctx,
		query,
		doc.ID,
		doc.UserID,
		doc.FileName,
		doc.MimeType,
		doc.SizeBytes,
		storageKey,
		status,
		doc.Attempts,
		doc.CreatedAt,
	)
	return err
}

// GetByID fetches a document by ID regardless of owner (worker path).
func (r *PGRepo) GetByID(ctx context.Context, documentID string) (Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1 LIMIT 1`
	return r.queryOne(ctx, query, documentID)
}

// GetForUser fetches a document scoped to its owner (HTTP path).
func (r *PGRepo) GetForUser(ctx context.Context, userID, documentID string) (Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE user_id = $1 AND id = $2 LIMIT 1`
	return r.queryOne(ctx, query, userID, documentID)
}

// ListByUser lists documents ordered newest-first.
func (r *PGRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Document, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	query := `SELECT ` + documentColumns + `
FROM documents
WHERE user_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3`

	rows, err := r.DB.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

// Claim moves a live document to processing. The status guard makes the
// transition single-winner under concurrent deliveries of the same job.
func (r *PGRepo) Claim(ctx context.Context, documentID string, attempt int, startedAt time.Time) (Document, bool, error) {
	query := `
UPDATE documents
SET status = $2, attempts = GREATEST(attempts, $3), started_at = COALESCE(started_at, $4)
WHERE id = $1 AND status IN ($5, $6)
RETURNING ` + documentColumns

	doc, err := r.queryOne(ctx, query, documentID, StatusProcessing, attempt, startedAt, StatusQueued, StatusProcessing)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Either unknown or already terminal; disambiguate for the caller.
			existing, getErr := r.GetByID(ctx, documentID)
			if getErr != nil {
				return Document{}, false, getErr
			}
			return existing, false, nil
		}
		return Document{}, false, err
	}
	return doc, true, nil
}

// UpdateExtraction records the derived text object and drops the transient
// upload reference.
func (r *PGRepo) UpdateExtraction(ctx context.Context, documentID, extractedTextKey string) error {
	const query = `
UPDATE documents
SET extracted_text_key = $2, storage_key = NULL
WHERE id = $1`
	_, err := r.DB.ExecContext(ctx, query, documentID, extractedTextKey)
	return err
}

// ClearExtractedTextKey drops the derived text reference.
func (r *PGRepo) ClearExtractedTextKey(ctx context.Context, documentID string) error {
	const query = `UPDATE documents SET extracted_text_key = NULL WHERE id = $1`
	_, err := r.DB.ExecContext(ctx, query, documentID)
	return err
}

// MarkCompleted writes the analysis result. Terminal rows are immutable, so
// the guard also makes the write idempotent under redelivery.
func (r *PGRepo) MarkCompleted(ctx context.Context, documentID string, result AnalysisResult, completedAt time.Time) (bool, error) {
	positive, err := json.Marshal(emptyIfNil(result.PositiveKeywords))
	if err != nil {
		return false, fmt.Errorf("marshal positive keywords: %w", err)
	}
	negative, err := json.Marshal(emptyIfNil(result.NegativeKeywords))
	if err != nil {
		return false, fmt.Errorf("marshal negative keywords: %w", err)
	}

	const query = `
UPDATE documents
SET status = $2, truncated_text = $3, summary = $4, risk_score = $5,
    verdict = $6, keywords_positive = $7, keywords_negative = $8,
    strategic_advice = $9, completed_at = $10
WHERE id = $1 AND status IN ($11, $12)`

	res, err := r.DB.ExecContext(ctx, query,
		documentID,
		StatusCompleted,
		result.TruncatedText,
		result.Summary,
		result.RiskScore,
		result.Verdict,
		positive,
		negative,
		result.StrategicAdvice,
		completedAt,
		StatusQueued,
		StatusProcessing,
	)
	if err != nil {
		return false, err
	}
	updated, _ := res.RowsAffected()
	return updated > 0, nil
}

// MarkFailed records a terminal failure with a user-facing reason.
func (r *PGRepo) MarkFailed(ctx context.Context, documentID, code, message string, completedAt time.Time) (bool, error) {
	const query = `
UPDATE documents
SET status = $2, error_code = $3, error_message = $4, completed_at = $5
WHERE id = $1 AND status IN ($6, $7)`

	res, err := r.DB.ExecContext(ctx, query,
		documentID, StatusFailed, code, message, completedAt,
		StatusQueued, StatusProcessing,
	)
	if err != nil {
		return false, err
	}
	updated, _ := res.RowsAffected()
	return updated > 0, nil
}

// DeleteAllForUser removes every document for a user (account deletion cascade).
func (r *PGRepo) DeleteAllForUser(ctx context.Context, userID string) (int, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM documents WHERE user_id = $1`, userID)
	if err != nil {
		return 0, err
	}
	deleted, _ := res.RowsAffected()
	return int(deleted), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *PGRepo) queryOne(ctx context.Context, query string, args ...any) (Document, error) {
	doc, err := scanDocument(r.DB.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	return doc, nil
}

func scanDocument(row rowScanner) (Document, error) {
	var doc Document
	var storageKey, extractedKey sql.NullString
	var truncated, summary, verdict, advice sql.NullString
	var errorCode, errorMessage sql.NullString
	var positive, negative []byte
	var startedAt, completedAt sql.NullTime

	if err := row.Scan(
		&doc.ID,
		&doc.UserID,
		&doc.FileName,
		&doc.MimeType,
		&doc.SizeBytes,
		&storageKey,
		&extractedKey,
		&doc.Status,
		&doc.Attempts,
		&truncated,
		&summary,
		&doc.RiskScore,
		&verdict,
		&positive,
		&negative,
		&advice,
		&errorCode,
		&errorMessage,
		&doc.CreatedAt,
		&startedAt,
		&completedAt,
	); err != nil {
		return Document{}, err
	}

	doc.StorageKey = storageKey.String
	doc.ExtractedTextKey = extractedKey.String
	doc.TruncatedText = truncated.String
	doc.Summary = summary.String
	doc.Verdict = verdict.String
	doc.StrategicAdvice = advice.String
	doc.ErrorCode = errorCode.String
	doc.ErrorMessage = errorMessage.String
	if len(positive) > 0 {
		if err := json.Unmarshal(positive, &doc.PositiveKeywords); err != nil {
			return Document{}, fmt.Errorf("unmarshal positive keywords: %w", err)
		}
	}
	if len(negative) > 0 {
		if err := json.Unmarshal(negative, &doc.NegativeKeywords); err != nil {
			return Document{}, fmt.Errorf("unmarshal negative keywords: %w", err)
		}
	}
	if startedAt.Valid {
		doc.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		doc.CompletedAt = &completedAt.Time
	}
	return doc, nil
}

func emptyIfNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}

var _ Repo = (*PGRepo)(nil)
