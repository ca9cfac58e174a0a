package documents

import "time"

// Job/document statuses. A Document row is both the analysis job and, once
// completed, the immutable analysis result.
const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Error codes persisted on failed documents.
const (
	ErrorCodeUnsupportedFormat     = "UNSUPPORTED_FORMAT"
	ErrorCodeCorruptFile           = "CORRUPT_FILE"
	ErrorCodeAllProvidersExhausted = "ALL_PROVIDERS_EXHAUSTED"
	ErrorCodeInternal              = "INTERNAL_ERROR"
)

// TruncatedTextLimit bounds how much of the original text is stored.
const TruncatedTextLimit = 5000

// Document represents one submitted analysis: its job lifecycle and, on
// completion, the structured result.
type Document struct {
	ID        string `json:"id"`
	UserID    string `json:"userId"`
	FileName  string `json:"fileName"`
	MimeType  string `json:"mimeType"`
	SizeBytes int64  `json:"sizeBytes"`

	// Transient storage of the raw upload; cleared once extraction ran.
	StorageKey string `json:"-"`
	// Derived plain text object, kept until the job reaches a terminal state.
	ExtractedTextKey string `json:"-"`

	Status   string `json:"status"`
	Attempts int    `json:"attempts"`

	TruncatedText    string   `json:"truncatedText,omitempty"`
	Summary          string   `json:"summary,omitempty"`
	RiskScore        int      `json:"riskScore"`
	Verdict          string   `json:"verdict,omitempty"`
	PositiveKeywords []string `json:"positiveKeywords,omitempty"`
	NegativeKeywords []string `json:"negativeKeywords,omitempty"`
	StrategicAdvice  string   `json:"strategicAdvice,omitempty"`

	ErrorCode    string `json:"errorCode,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`

	CreatedAt   time.Time  `json:"createdAt"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// Terminal reports whether the document reached an immutable state.
func (d Document) Terminal() bool {
	return d.Status == StatusCompleted || d.Status == StatusFailed
}

// AnalysisResult is the completed payload written exactly once per job.
type AnalysisResult struct {
	TruncatedText    string
	Summary          string
	RiskScore        int
	Verdict          string
	PositiveKeywords []string
	NegativeKeywords []string
	StrategicAdvice  string
}
