package ai

import (
	"strings"
	"testing"
)

func TestBuildPromptTruncatesToBudget(t *testing.T) {
	text := strings.Repeat("a", 20000)
	prompt := BuildPrompt(text, "big.txt", 15000)

	if strings.Contains(prompt, strings.Repeat("a", 15001)) {
		t.Fatalf("document text should be truncated to the budget")
	}
	if !strings.Contains(prompt, strings.Repeat("a", 15000)) {
		t.Fatalf("truncated text should still be present")
	}
}

func TestBuildPromptZeroBudgetKeepsText(t *testing.T) {
	text := strings.Repeat("b", 1000)
	prompt := BuildPrompt(text, "a.txt", 0)
	if !strings.Contains(prompt, text) {
		t.Fatalf("zero budget must not truncate")
	}
}

func TestBuildPromptNamesSchemaFields(t *testing.T) {
	prompt := BuildPrompt("text", "contract.pdf", 100)
	for _, field := range []string{"summary", "riskScore", "verdict", "keywords", "positive", "negative", "strategicAdvice"} {
		if !strings.Contains(prompt, field) {
			t.Fatalf("prompt missing schema field %q", field)
		}
	}
	if !strings.Contains(prompt, "contract.pdf") {
		t.Fatalf("prompt should name the file")
	}
}
