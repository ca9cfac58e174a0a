package documents

import "time"

// ListItem is the compact representation returned by the history listing.
type ListItem struct {
	DocumentID  string     `json:"documentId"`
	FileName    string     `json:"fileName"`
	MimeType    string     `json:"mimeType"`
	SizeBytes   int64      `json:"sizeBytes"`
	Status      string     `json:"status"`
	RiskScore   int        `json:"riskScore"`
	Verdict     string     `json:"verdict,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// DetailResponse is the full outward-facing representation of a document.
type DetailResponse struct {
	DocumentID string `json:"documentId"`
	FileName   string `json:"fileName"`
	MimeType   string `json:"mimeType"`
	SizeBytes  int64  `json:"sizeBytes"`
	Status     string `json:"status"`
	Attempts   int    `json:"attempts"`

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

func toListItem(doc Document) ListItem {
	return ListItem{
		DocumentID:  doc.ID,
		FileName:    doc.FileName,
		MimeType:    doc.MimeType,
		SizeBytes:   doc.SizeBytes,
		Status:      doc.Status,
		RiskScore:   doc.RiskScore,
		Verdict:     doc.Verdict,
		CreatedAt:   doc.CreatedAt,
		CompletedAt: doc.CompletedAt,
	}
}

func toDetail(doc Document) DetailResponse {
	return DetailResponse{
		DocumentID:       doc.ID,
		FileName:         doc.FileName,
		MimeType:         doc.MimeType,
		SizeBytes:        doc.SizeBytes,
		Status:           doc.Status,
		Attempts:         doc.Attempts,
		TruncatedText:    doc.TruncatedText,
		Summary:          doc.Summary,
		RiskScore:        doc.RiskScore,
		Verdict:          doc.Verdict,
		PositiveKeywords: doc.PositiveKeywords,
		NegativeKeywords: doc.NegativeKeywords,
		StrategicAdvice:  doc.StrategicAdvice,
		ErrorCode:        doc.ErrorCode,
		ErrorMessage:     doc.ErrorMessage,
		CreatedAt:        doc.CreatedAt,
		StartedAt:        doc.StartedAt,
		CompletedAt:      doc.CompletedAt,
	}
}
