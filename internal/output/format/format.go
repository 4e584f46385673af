// Package format renders reports as Telegram HTML messages.
package format

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/lueurxax/channel-snapshot-bot/internal/core/domain"
	"github.com/lueurxax/channel-snapshot-bot/internal/platform/htmlutils"
)

const (
	SeparatorLine = "━━━━━━━━━━━━━━━━━━"
	DateLayout    = "2006-01-02"

	// LinksHeading introduces the verified link list of a report.
	LinksHeading = "🔗 원문 링크"

	headerTitle    = "🗞️ <b>Morning Snapshot</b>"
	headerSubtitle = "최근 24시간 채널 요약입니다."
	footerText     = "☀️ 좋은 하루 보내세요."
)

var (
	trailingSpaceRegex = regexp.MustCompile(`[ \t]+\n`)
	blankRunsRegex     = regexp.MustCompile(`\n{3,}`)
)

// Format renders a report: the label between separator lines, the body,
// then the verified links under LinksHeading. Markdown emphasis in the body
// becomes HTML, anything the Telegram HTML parser would reject is
// neutralized, and runs of blank lines collapse to one. Links are only
// entity-escaped so they reach the reader exactly as collected.
func Format(report domain.Report) string {
	var sb strings.Builder

	sb.WriteString(SeparatorLine)
	sb.WriteString("\n<b>")
	sb.WriteString(html.EscapeString(strings.TrimSpace(report.Label)))
	sb.WriteString("</b>\n")
	sb.WriteString(SeparatorLine)
	sb.WriteString("\n\n")
	sb.WriteString(htmlutils.MarkdownToHTML(strings.TrimSpace(report.Body)))

	text := Clean(sb.String())
	if len(report.Links) == 0 {
		return text
	}

	sb.Reset()
	sb.WriteString(text)
	sb.WriteString("\n\n")
	sb.WriteString(LinksHeading)

	for _, link := range report.Links {
		sb.WriteString("\n• ")
		sb.WriteString(html.EscapeString(link))
	}

	return sb.String()
}

// Clean sanitizes text for Telegram HTML and collapses blank line runs.
func Clean(text string) string {
	text = htmlutils.SanitizeHTML(text)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = trailingSpaceRegex.ReplaceAllString(text, "\n")
	text = blankRunsRegex.ReplaceAllString(text, "\n\n")

	return strings.TrimSpace(text)
}

// Header is the message that opens a scheduled delivery.
func Header(date time.Time) string {
	return fmt.Sprintf("%s • %s\n%s", headerTitle, date.Format(DateLayout), headerSubtitle)
}

// Footer is the message that closes a scheduled delivery.
func Footer() string {
	return footerText
}
