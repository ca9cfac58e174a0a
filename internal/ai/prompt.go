package ai

import (
	"fmt"
	"strings"
)

// BuildPrompt renders the analysis prompt with the document text truncated
// to charBudget characters, bounding provider cost and latency.
func BuildPrompt(text, fileName string, charBudget int) string {
	if charBudget > 0 && len(text) > charBudget {
		text = text[:charBudget]
	}

	var b strings.Builder
	b.WriteString("You are a senior legal analyst. Analyze the following legal document and respond with a single JSON object, no prose, no markdown fences.\n\n")
	b.WriteString("Required JSON schema:\n")
	b.WriteString(`{
  "summary": "concise summary of the document",
  "riskScore": 0,
  "verdict": "favorable" | "unfavorable" | "neutral",
  "keywords": {
    "positive": ["terms favorable to the client"],
    "negative": ["terms unfavorable or risky"]
  },
  "strategicAdvice": "practical next steps"
}`)
	b.WriteString("\n\nriskScore is an integer from 0 (no risk) to 100 (severe risk).\n")
	fmt.Fprintf(&b, "\nDocument (%s):\n---\n%s\n---\n", fileName, text)
	return b.String()
}
