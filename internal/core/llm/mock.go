package llm

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	mockBulletLimit  = 3
	mockBulletLength = 80
)

// mockGenerator produces a deterministic briefing from the prompt itself.
// It is used with LLM_API_KEY=mock to exercise the whole pipeline offline.
type mockGenerator struct{}

// NewMock creates a Generator that never calls a remote API.
func NewMock() Generator {
	return mockGenerator{}
}

func (mockGenerator) Generate(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var sb strings.Builder

	sb.WriteString("🔥 **주요 내용**\n")

	count := 0

	for _, line := range contentLines(req.Prompt) {
		if count == mockBulletLimit {
			break
		}

		sb.WriteString(fmt.Sprintf("• %s\n", truncateRunes(line, mockBulletLength)))

		count++
	}

	if count == 0 {
		sb.WriteString("• 새로운 내용 없음\n")
	}

	return strings.TrimSpace(sb.String()), nil
}

// contentLines returns the non-empty lines after the prompt's last
// "label:" marker line, which is where the payload begins.
func contentLines(prompt string) []string {
	lines := strings.Split(prompt, "\n")

	start := 0

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasSuffix(trimmed, ":") && !strings.Contains(trimmed, " ") {
			start = i + 1
		}
	}

	var out []string

	for _, line := range lines[start:] {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			out = append(out, trimmed)
		}
	}

	return out
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}

	return string([]rune(s)[:limit]) + "..."
}
