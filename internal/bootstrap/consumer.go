package bootstrap

import (
	"context"
	"errors"

	"lexscan-backend/internal/queue"
	"lexscan-backend/internal/shared/metrics"
	"lexscan-backend/internal/shared/telemetry"
	"lexscan-backend/internal/workerproc"
)

// RunMemoryConsumer drains the in-process queue until the context is done.
// Dev mode runs this inside the API process so submissions flow through the
// same pipeline the worker runs in production.
func RunMemoryConsumer(ctx context.Context, app *App) {
	if app == nil || app.MemoryQueue == nil {
		return
	}
	for {
		delivery, err := app.MemoryQueue.Receive(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			continue
		}
		metrics.IncJobsReceived()

		body, encodeErr := queue.EncodeMessage(delivery.Message)
		if encodeErr != nil {
			telemetry.Error("consumer.encode_failed", map[string]any{"error": encodeErr.Error()})
			_ = app.MemoryQueue.Delete(ctx, delivery.Receipt)
			continue
		}

		if err := workerproc.HandleMessage(ctx, app.AnalysisService, string(body), delivery.ReceiveCount); err != nil {
			if workerproc.Unrecoverable(err) {
				telemetry.Error("consumer.unrecoverable", map[string]any{"error": err.Error()})
				metrics.IncJobsDeletedUnrecoverable()
				_ = app.MemoryQueue.Delete(ctx, delivery.Receipt)
				continue
			}
			telemetry.Error("consumer.process_failed", map[string]any{
				"document_id": delivery.Message.DocumentID,
				"attempt":     delivery.ReceiveCount,
				"error":       err.Error(),
			})
			metrics.IncJobsFailed()
			// Not deleted; the visibility timeout redelivers it.
			continue
		}

		_ = app.MemoryQueue.Delete(ctx, delivery.Receipt)
		metrics.IncJobsCompleted()
	}
}
