package analysis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"lexscan-backend/internal/ai"
	"lexscan-backend/internal/documents"
	"lexscan-backend/internal/extract"
	"lexscan-backend/internal/notify"
	"lexscan-backend/internal/queue"
	"lexscan-backend/internal/quota"
	"lexscan-backend/internal/shared/metrics"
	"lexscan-backend/internal/shared/storage/object"
	"lexscan-backend/internal/shared/telemetry"
)

const messageVersion = 1

// Service owns the analysis pipeline: admission on the HTTP side and job
// processing on the worker side.
type Service struct {
	Docs   documents.Repo
	Store  object.ObjectStore
	Engine *ai.Engine
	Quota  *quota.Service
	Queue  queue.Client
	Notify *notify.Service

	MaxUploadBytes int64
	MaxAttempts    int

	now func() time.Time
}

// NewService wires the pipeline dependencies.
func NewService(docs documents.Repo, store object.ObjectStore, engine *ai.Engine, quotaSvc *quota.Service, q queue.Client, notifier *notify.Service, maxUploadBytes int64, maxAttempts int) *Service {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &Service{
		Docs:           docs,
		Store:          store,
		Engine:         engine,
		Quota:          quotaSvc,
		Queue:          q,
		Notify:         notifier,
		MaxUploadBytes: maxUploadBytes,
		MaxAttempts:    maxAttempts,
		now:            time.Now,
	}
}

// Submit admits a new analysis: charges the entitlement, persists the upload,
// records the queued document, and enqueues the job.
//
// Ordering matters: the size cap rejects before any credit is spent, and the
// quota charge happens before the upload is stored so a denied user never
// leaves bytes behind.
func (s *Service) Submit(ctx context.Context, userID, plan, fileName string, size int64, r io.Reader) (documents.Document, error) {
	if userID == "" || strings.TrimSpace(fileName) == "" {
		return documents.Document{}, ErrInvalidInput
	}
	if s.MaxUploadBytes > 0 && size > s.MaxUploadBytes {
		return documents.Document{}, fmt.Errorf("%w: %d bytes", ErrFileTooLarge, size)
	}

	if _, err := s.Quota.SetPlan(ctx, userID, plan); err != nil {
		return documents.Document{}, err
	}
	q, err := s.Quota.Admit(ctx, userID)
	if err != nil {
		if errors.Is(err, quota.ErrQuotaExceeded) {
			metrics.IncQuotaDenied()
		}
		return documents.Document{}, err
	}

	storageKey, storedSize, mimeType, err := s.Store.Save(ctx, userID, fileName, r)
	if err != nil {
		// The credit is already spent; record a visible failed row so the
		// charge never disappears without a trace in the user's history.
		failed := documents.Document{
			ID:        uuid.NewString(),
			UserID:    userID,
			FileName:  fileName,
			SizeBytes: size,
			Status:    documents.StatusQueued,
			CreatedAt: s.now().UTC(),
		}
		telemetry.Error("analysis.store_failed", map[string]any{
			"request_id":  requestIDFromContext(ctx),
			"user_id":     userID,
			"document_id": failed.ID,
			"error":       err.Error(),
		})
		if createErr := s.Docs.Create(ctx, failed); createErr != nil {
			telemetry.Error("analysis.store_failed_record_error", map[string]any{
				"document_id": failed.ID,
				"error":       createErr.Error(),
			})
		} else if _, markErr := s.Docs.MarkFailed(ctx, failed.ID, documents.ErrorCodeInternal, "failed to store upload", s.now().UTC()); markErr != nil {
			telemetry.Error("analysis.mark_failed_error", map[string]any{
				"document_id": failed.ID,
				"error":       markErr.Error(),
			})
		}
		return documents.Document{}, fmt.Errorf("store upload: %w", err)
	}

	doc := documents.Document{
		ID:         uuid.NewString(),
		UserID:     userID,
		FileName:   fileName,
		MimeType:   mimeType,
		SizeBytes:  storedSize,
		StorageKey: storageKey,
		Status:     documents.StatusQueued,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.Docs.Create(ctx, doc); err != nil {
		s.deleteObject(ctx, storageKey)
		return documents.Document{}, err
	}

	msg := queue.Message{
		DocumentID: doc.ID,
		RequestID:  requestIDFromContext(ctx),
		EnqueuedAt: doc.CreatedAt.Format(time.RFC3339),
		Version:    messageVersion,
	}
	if err := s.Queue.Send(ctx, msg); err != nil {
		// The credit stays spent; marking the row failed keeps the history
		// honest and the transient object gets removed.
		telemetry.Error("analysis.enqueue_failed", map[string]any{
			"request_id":  msg.RequestID,
			"user_id":     userID,
			"document_id": doc.ID,
			"error":       err.Error(),
		})
		if _, markErr := s.Docs.MarkFailed(ctx, doc.ID, documents.ErrorCodeInternal, "failed to queue analysis", s.now().UTC()); markErr != nil {
			telemetry.Error("analysis.mark_failed_error", map[string]any{
				"document_id": doc.ID,
				"error":       markErr.Error(),
			})
		}
		s.deleteObject(ctx, storageKey)
		return documents.Document{}, fmt.Errorf("%w: %v", ErrEnqueue, err)
	}

	telemetry.Info("analysis.submitted", map[string]any{
		"request_id":  msg.RequestID,
		"user_id":     userID,
		"document_id": doc.ID,
		"plan":        q.Plan,
		"size_bytes":  storedSize,
		"mime_type":   mimeType,
	})
	return doc, nil
}

// Process runs one delivery of an analysis job. A nil return means the
// message may be deleted; a non-nil return leaves it on the queue for the
// visibility timeout to redeliver.
func (s *Service) Process(ctx context.Context, documentID string, receiveCount int) error {
	if receiveCount < 1 {
		receiveCount = 1
	}

	doc, claimed, err := s.Docs.Claim(ctx, documentID, receiveCount, s.now().UTC())
	if err != nil {
		if errors.Is(err, documents.ErrNotFound) {
			telemetry.Error("analysis.unknown_document", map[string]any{"document_id": documentID})
			return nil
		}
		return fmt.Errorf("claim document %s: %w", documentID, err)
	}
	if !claimed {
		// Redelivery after a terminal write: side effects already happened.
		telemetry.Info("analysis.already_terminal", map[string]any{
			"document_id": documentID,
			"status":      doc.Status,
		})
		metrics.IncJobsRedelivered()
		s.cleanupDerived(ctx, doc)
		return nil
	}

	metrics.IncAnalysisStarted()
	started := time.Now()
	telemetry.Info("analysis.status", map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"user_id":           doc.UserID,
		"document_id":       doc.ID,
		"status":            documents.StatusProcessing,
		"attempt":           receiveCount,
		"status_transition": "queued->processing",
	})

	text, err := s.loadText(ctx, &doc)
	if err != nil {
		code, terminal := classifyExtractError(err)
		if !terminal {
			return fmt.Errorf("load text document %s: %w", doc.ID, err)
		}
		s.fail(ctx, doc, code, err)
		metrics.ObserveAnalysisDurationMs(float64(time.Since(started).Milliseconds()))
		return nil
	}

	result, err := s.Engine.Analyze(ctx, text, doc.FileName)
	if err != nil {
		if ai.Transient(err) && receiveCount < s.MaxAttempts {
			telemetry.Info("analysis.retry_scheduled", map[string]any{
				"document_id": doc.ID,
				"attempt":     receiveCount,
				"error":       err.Error(),
			})
			return fmt.Errorf("analyze document %s attempt %d: %w", doc.ID, receiveCount, err)
		}
		s.fail(ctx, doc, documents.ErrorCodeAllProvidersExhausted, err)
		metrics.ObserveAnalysisDurationMs(float64(time.Since(started).Milliseconds()))
		return nil
	}

	completed := documents.AnalysisResult{
		TruncatedText:    truncate(text, documents.TruncatedTextLimit),
		Summary:          result.Summary,
		RiskScore:        result.RiskScore,
		Verdict:          result.Verdict,
		PositiveKeywords: result.Keywords.Positive,
		NegativeKeywords: result.Keywords.Negative,
		StrategicAdvice:  result.StrategicAdvice,
	}
	updated, err := s.Docs.MarkCompleted(ctx, doc.ID, completed, s.now().UTC())
	if err != nil {
		return fmt.Errorf("mark completed document %s: %w", doc.ID, err)
	}
	if updated {
		metrics.IncAnalysisCompleted()
		metrics.ObserveAnalysisDurationMs(float64(time.Since(started).Milliseconds()))
		telemetry.Info("analysis.completed", map[string]any{
			"request_id":  requestIDFromContext(ctx),
			"user_id":     doc.UserID,
			"document_id": doc.ID,
			"risk_score":  result.RiskScore,
			"verdict":     result.Verdict,
		})
		s.Notify.Success(ctx, doc.UserID,
			"Analysis complete",
			fmt.Sprintf("Your analysis of %q is ready.", doc.FileName),
			"/documents/"+doc.ID,
		)
	} else {
		metrics.IncJobsRedelivered()
	}
	s.cleanupDerived(ctx, doc)
	return nil
}

// loadText returns the document text, extracting it on the first delivery and
// reusing the derived object afterwards. The raw upload is deleted as soon as
// its text is safely stored.
func (s *Service) loadText(ctx context.Context, doc *documents.Document) (string, error) {
	if doc.ExtractedTextKey != "" {
		body, err := s.Store.Open(ctx, doc.ExtractedTextKey)
		if err != nil {
			return "", fmt.Errorf("open extracted text key=%s: %w", doc.ExtractedTextKey, err)
		}
		defer body.Close()
		raw, err := io.ReadAll(body)
		if err != nil {
			return "", fmt.Errorf("read extracted text key=%s: %w", doc.ExtractedTextKey, err)
		}
		return string(raw), nil
	}

	if doc.StorageKey == "" {
		return "", fmt.Errorf("document %s has no stored content", doc.ID)
	}

	text, err := extract.FromStore(ctx, s.Store, doc.StorageKey, doc.MimeType, doc.FileName)
	if err != nil {
		if errors.Is(err, extract.ErrUnsupportedFormat) || errors.Is(err, extract.ErrCorruptFile) {
			// Same bytes, same failure: the upload is useless now.
			s.deleteObject(ctx, doc.StorageKey)
		}
		return "", err
	}

	extractedKey := doc.StorageKey + ".extracted.txt"
	if _, err := s.Store.SaveWithKey(ctx, extractedKey, "text/plain; charset=utf-8", strings.NewReader(text)); err != nil {
		return "", fmt.Errorf("save extracted text key=%s: %w", extractedKey, err)
	}
	if err := s.Docs.UpdateExtraction(ctx, doc.ID, extractedKey); err != nil {
		return "", fmt.Errorf("record extraction document %s: %w", doc.ID, err)
	}
	s.deleteObject(ctx, doc.StorageKey)
	doc.ExtractedTextKey = extractedKey
	doc.StorageKey = ""
	return text, nil
}

func (s *Service) fail(ctx context.Context, doc documents.Document, code string, cause error) {
	updated, err := s.Docs.MarkFailed(ctx, doc.ID, code, userFacingMessage(code), s.now().UTC())
	if err != nil {
		telemetry.Error("analysis.mark_failed_error", map[string]any{
			"document_id": doc.ID,
			"code":        code,
			"error":       err.Error(),
		})
		return
	}
	if updated {
		metrics.IncAnalysisFailed()
		telemetry.Error("analysis.failed", map[string]any{
			"request_id":  requestIDFromContext(ctx),
			"user_id":     doc.UserID,
			"document_id": doc.ID,
			"code":        code,
			"error":       cause.Error(),
		})
		s.Notify.Error(ctx, doc.UserID,
			"Analysis failed",
			fmt.Sprintf("We could not analyze %q. %s", doc.FileName, userFacingMessage(code)),
			"/documents/"+doc.ID,
		)
	} else {
		metrics.IncJobsRedelivered()
	}
	s.cleanupDerived(ctx, doc)
}

// cleanupDerived removes the derived text object once the job is terminal.
func (s *Service) cleanupDerived(ctx context.Context, doc documents.Document) {
	if doc.ExtractedTextKey == "" {
		return
	}
	s.deleteObject(ctx, doc.ExtractedTextKey)
	if err := s.Docs.ClearExtractedTextKey(ctx, doc.ID); err != nil {
		telemetry.Error("analysis.clear_extracted_key_failed", map[string]any{
			"document_id": doc.ID,
			"error":       err.Error(),
		})
	}
}

func (s *Service) deleteObject(ctx context.Context, storageKey string) {
	if storageKey == "" {
		return
	}
	if err := s.Store.Delete(ctx, storageKey); err != nil {
		telemetry.Error("analysis.object_delete_failed", map[string]any{
			"storage_key": storageKey,
			"error":       err.Error(),
		})
	}
}

func classifyExtractError(err error) (code string, terminal bool) {
	switch {
	case errors.Is(err, extract.ErrUnsupportedFormat):
		return documents.ErrorCodeUnsupportedFormat, true
	case errors.Is(err, extract.ErrCorruptFile):
		return documents.ErrorCodeCorruptFile, true
	default:
		// Storage or bookkeeping fault; let redelivery retry it.
		return documents.ErrorCodeInternal, false
	}
}

func userFacingMessage(code string) string {
	switch code {
	case documents.ErrorCodeUnsupportedFormat:
		return "The file format is not supported. Upload a PDF or plain text file."
	case documents.ErrorCodeCorruptFile:
		return "The file could not be read. It may be corrupt or password protected."
	case documents.ErrorCodeAllProvidersExhausted:
		return "The analysis service is temporarily unavailable. Please try again later."
	default:
		return "An internal error occurred."
	}
}

func truncate(text string, limit int) string {
	if limit <= 0 || len(text) <= limit {
		return text
	}
	return text[:limit]
}
