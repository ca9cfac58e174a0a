package ai

import (
	"encoding/json"
	"strings"
)

// Verdict labels.
const (
	VerdictFavorable   = "favorable"
	VerdictUnfavorable = "unfavorable"
	VerdictNeutral     = "neutral"
)

const (
	degradedRiskScore     = 50
	degradedSummaryPrefix = 600
)

// Result is the fixed analysis schema produced by the engine.
type Result struct {
	Summary         string   `json:"summary"`
	RiskScore       int      `json:"riskScore"`
	Verdict         string   `json:"verdict"`
	Keywords        Keywords `json:"keywords"`
	StrategicAdvice string   `json:"strategicAdvice"`
}

// Keywords holds positive and negative term signals.
type Keywords struct {
	Positive []string `json:"positive"`
	Negative []string `json:"negative"`
}

// ParseResult decodes a raw model response into the fixed schema. Model
// output is untrusted: surrounding code fences are stripped before a strict
// decode, and when the payload still is not valid JSON a degraded but
// schema-valid result is substituted so a malformed response never fails
// the job. The second return reports whether the result is degraded.
func ParseResult(raw string) (Result, bool) {
	cleaned := StripCodeFences(raw)

	var res Result
	if err := json.Unmarshal([]byte(cleaned), &res); err != nil || strings.TrimSpace(res.Summary) == "" {
		return degradedResult(raw), true
	}
	return normalizeResult(res), false
}

func degradedResult(raw string) Result {
	summary := strings.TrimSpace(StripCodeFences(raw))
	if summary == "" {
		summary = "Analysis completed, but the response could not be interpreted."
	}
	if len(summary) > degradedSummaryPrefix {
		summary = summary[:degradedSummaryPrefix]
	}
	return Result{
		Summary:   summary,
		RiskScore: degradedRiskScore,
		Verdict:   VerdictNeutral,
		Keywords:  Keywords{Positive: []string{}, Negative: []string{}},
	}
}

func normalizeResult(res Result) Result {
	if res.RiskScore < 0 {
		res.RiskScore = 0
	}
	if res.RiskScore > 100 {
		res.RiskScore = 100
	}
	switch strings.ToLower(strings.TrimSpace(res.Verdict)) {
	case VerdictFavorable:
		res.Verdict = VerdictFavorable
	case VerdictUnfavorable:
		res.Verdict = VerdictUnfavorable
	default:
		res.Verdict = VerdictNeutral
	}
	if res.Keywords.Positive == nil {
		res.Keywords.Positive = []string{}
	}
	if res.Keywords.Negative == nil {
		res.Keywords.Negative = []string{}
	}
	res.Summary = strings.TrimSpace(res.Summary)
	res.StrategicAdvice = strings.TrimSpace(res.StrategicAdvice)
	return res
}

// StripCodeFences removes a surrounding markdown code fence, with or without
// a language tag, returning the inner payload.
func StripCodeFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 {
		// Drop a language tag such as "json" on the fence line.
		first := strings.TrimSpace(s[:idx])
		if len(first) <= 10 && !strings.ContainsAny(first, "{}[]") {
			s = s[idx+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
