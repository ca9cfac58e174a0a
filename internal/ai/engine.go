package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"lexscan-backend/internal/shared/metrics"
	"lexscan-backend/internal/shared/telemetry"
)

// ErrAllProvidersExhausted is returned when every candidate backend failed.
// The last underlying provider error is wrapped for diagnostics.
var ErrAllProvidersExhausted = errors.New("all providers exhausted")

// Engine invokes an ordered list of candidate backends until one answers.
// Ordering is configuration, not code: provider deprecations and outages are
// handled by reordering the candidate list.
type Engine struct {
	Providers []Provider
	// CharBudget truncates document text before prompting. Zero disables.
	CharBudget int
	// Timeout bounds each provider invocation. Zero disables.
	Timeout time.Duration
}

// Analyze runs the fallback chain over the normalized document text.
// A provider failure advances to the next candidate; a provider success with
// malformed output degrades to a schema-valid result instead of failing.
func (e *Engine) Analyze(ctx context.Context, text, fileName string) (Result, error) {
	if len(e.Providers) == 0 {
		return Result{}, fmt.Errorf("%w: no candidates configured", ErrAllProvidersExhausted)
	}

	prompt := BuildPrompt(text, fileName, e.CharBudget)

	var lastErr error
	for i, provider := range e.Providers {
		raw, err := e.invoke(ctx, provider, prompt)
		if err != nil {
			lastErr = err
			telemetry.Info("ai.provider_failed", map[string]any{
				"provider": provider.Name(),
				"position": i,
				"error":    err.Error(),
			})
			if i < len(e.Providers)-1 {
				metrics.IncProviderFallback()
			}
			if ctx.Err() != nil {
				break
			}
			continue
		}

		result, degraded := ParseResult(raw)
		if degraded {
			metrics.IncAnalysisDegraded()
			telemetry.Info("ai.result_degraded", map[string]any{
				"provider": provider.Name(),
				"raw_len":  len(raw),
			})
		}
		return result, nil
	}

	return Result{}, fmt.Errorf("%w: %w", ErrAllProvidersExhausted, lastErr)
}

func (e *Engine) invoke(ctx context.Context, provider Provider, prompt string) (string, error) {
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}
	return provider.Invoke(ctx, prompt)
}

// Transient reports whether a provider error is worth redelivering the job
// for. Exhaustion on timeouts or connection faults is transient; anything
// that looks like a request or validation problem is not.
func Transient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "http status 5") || strings.Contains(msg, "server_error") {
		return true
	}
	if strings.Contains(msg, "timeout") {
		return true
	}
	if strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection closed") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "tls handshake timeout") ||
		strings.Contains(msg, "eof") {
		return true
	}
	return false
}
