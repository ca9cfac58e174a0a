package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

var (
	analysisStartedTotal   atomic.Uint64
	analysisCompletedTotal atomic.Uint64
	analysisFailedTotal    atomic.Uint64
	analysisDegradedTotal  atomic.Uint64

	jobsReceivedTotal             atomic.Uint64
	jobsCompletedTotal            atomic.Uint64
	jobsFailedTotal               atomic.Uint64
	jobsRedeliveredTotal          atomic.Uint64
	jobsDeletedUnrecoverableTotal atomic.Uint64

	providerFallbacksTotal  atomic.Uint64
	rateLimitThrottledTotal atomic.Uint64
	quotaDeniedTotal        atomic.Uint64

	analysisDuration = newHistogram([]float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000})
)

// IncAnalysisStarted increments the started counter.
func IncAnalysisStarted() { analysisStartedTotal.Add(1) }

// IncAnalysisCompleted increments the completed counter.
func IncAnalysisCompleted() { analysisCompletedTotal.Add(1) }

// IncAnalysisFailed increments the failed counter.
func IncAnalysisFailed() { analysisFailedTotal.Add(1) }

// IncAnalysisDegraded increments the degraded-result counter.
func IncAnalysisDegraded() { analysisDegradedTotal.Add(1) }

// IncJobsReceived increments the queue-messages-received counter.
func IncJobsReceived() { jobsReceivedTotal.Add(1) }

// IncJobsCompleted increments the queue-messages-completed counter.
func IncJobsCompleted() { jobsCompletedTotal.Add(1) }

// IncJobsFailed increments the queue-messages-failed counter.
func IncJobsFailed() { jobsFailedTotal.Add(1) }

// IncJobsRedelivered increments the redelivered-message counter.
func IncJobsRedelivered() { jobsRedeliveredTotal.Add(1) }

// IncJobsDeletedUnrecoverable increments the unrecoverable-deletion counter.
func IncJobsDeletedUnrecoverable() { jobsDeletedUnrecoverableTotal.Add(1) }

// IncProviderFallback increments the provider fallback counter.
func IncProviderFallback() { providerFallbacksTotal.Add(1) }

// IncRateLimitThrottled increments the throttled-request counter.
func IncRateLimitThrottled() { rateLimitThrottledTotal.Add(1) }

// IncQuotaDenied increments the quota-denied counter.
func IncQuotaDenied() { quotaDeniedTotal.Add(1) }

// ObserveAnalysisDurationMs records an analysis duration in milliseconds.
func ObserveAnalysisDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	analysisDuration.Observe(value)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "analysis_started_total", "Total analyses started", analysisStartedTotal.Load())
	writeCounter(&buf, "analysis_completed_total", "Total analyses completed", analysisCompletedTotal.Load())
	writeCounter(&buf, "analysis_failed_total", "Total analyses failed", analysisFailedTotal.Load())
	writeCounter(&buf, "analysis_degraded_total", "Total analyses completed with a degraded result", analysisDegradedTotal.Load())
	writeCounter(&buf, "analysis_jobs_received_total", "Total queue messages received", jobsReceivedTotal.Load())
	writeCounter(&buf, "analysis_jobs_completed_total", "Total queue messages completed", jobsCompletedTotal.Load())
	writeCounter(&buf, "analysis_jobs_failed_total", "Total queue messages failed", jobsFailedTotal.Load())
	writeCounter(&buf, "analysis_jobs_redelivered_total", "Total queue messages redelivered", jobsRedeliveredTotal.Load())
	writeCounter(&buf, "analysis_jobs_deleted_unrecoverable_total", "Total malformed queue messages deleted", jobsDeletedUnrecoverableTotal.Load())
	writeCounter(&buf, "ai_provider_fallbacks_total", "Total provider fallback advances", providerFallbacksTotal.Load())
	writeCounter(&buf, "rate_limit_throttled_total", "Total throttled requests", rateLimitThrottledTotal.Load())
	writeCounter(&buf, "quota_denied_total", "Total quota-denied submissions", quotaDeniedTotal.Load())
	writeHistogram(&buf, "analysis_duration_ms", "Analysis duration in milliseconds", analysisDuration.Snapshot())
	return buf.String()
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

type histogram struct {
	mu      sync.Mutex
	bounds  []float64
	buckets []uint64
	count   uint64
	sum     float64
}

type histogramSnapshot struct {
	bounds  []float64
	buckets []uint64
	count   uint64
	sum     float64
}

func newHistogram(bounds []float64) *histogram {
	sorted := append([]float64(nil), bounds...)
	sort.Float64s(sorted)
	return &histogram{
		bounds:  sorted,
		buckets: make([]uint64, len(sorted)),
	}
}

func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, bound := range h.bounds {
		if value <= bound {
			h.buckets[i]++
		}
	}
	h.count++
	h.sum += value
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return histogramSnapshot{
		bounds:  append([]float64(nil), h.bounds...),
		buckets: append([]uint64(nil), h.buckets...),
		count:   h.count,
		sum:     h.sum,
	}
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	for i, bound := range snap.bounds {
		fmt.Fprintf(buf, "%s_bucket{le=%q} %d\n", name, strconv.FormatFloat(bound, 'f', -1, 64), snap.buckets[i])
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %g\n", name, snap.sum)
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}
