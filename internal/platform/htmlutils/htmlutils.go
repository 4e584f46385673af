// Package htmlutils provides HTML processing utilities for Telegram messages.
//
// The package handles:
//   - UTF-16 length calculation (Telegram's native encoding)
//   - Tag sanitization against the Telegram allow-list
//   - Markdown emphasis conversion for generated text
//   - Re-balancing tags across message chunks
package htmlutils

import (
	"html"
	"regexp"
	"strings"
	"unicode/utf16"
)

// UTF16Len returns the number of UTF-16 code units needed to encode the string.
// Telegram counts message length in UTF-16 code units, not Unicode code points.
// Characters outside the BMP (emoji, etc.) require surrogate pairs (2 code units).
func UTF16Len(s string) int {
	return len(utf16.Encode([]rune(s)))
}

// UTF16Offset returns the byte offset of the longest prefix of s that fits
// in maxUnits UTF-16 code units. The offset always falls on a rune boundary.
func UTF16Offset(s string, maxUnits int) int {
	units := 0

	for i, r := range s {
		runeUnits := 1
		if r > 0xFFFF {
			runeUnits = 2 // Surrogate pair needed
		}

		if units+runeUnits > maxUnits {
			return i
		}

		units += runeUnits
	}

	return len(s)
}

const emptyAnchorTag = "<a>"

var tagRegex = regexp.MustCompile(`<(/?)([a-zA-Z0-9-]+)([^>]*)>`)
var hrefRegex = regexp.MustCompile(`(?i)\s*href\s*=\s*["']([^"']*)["']`)

var (
	mdBoldStars      = regexp.MustCompile(`\*\*([^*\n]+?)\*\*`)
	mdBoldUnderscore = regexp.MustCompile(`__([^_\n]+?)__`)
	mdHeading        = regexp.MustCompile(`(?m)^#{1,6}\s+(.+?)\s*#*$`)
)

// textEscaper escapes the three characters Telegram HTML requires.
var textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

var allowedTags = map[string]bool{
	"b":          true,
	"i":          true,
	"u":          true,
	"s":          true,
	"code":       true,
	"pre":        true,
	"a":          true,
	"blockquote": true,
	"tg-spoiler": true,
}

// dangerousProtocols lists URL protocols that should be stripped
var dangerousProtocols = []string{
	"javascript:",
	"vbscript:",
	"data:",
}

// MarkdownToHTML converts the Markdown emphasis a text generator tends to
// emit into Telegram HTML: **x** and __x__ become bold, headings become bold
// lines. Literal <, > and & are escaped first, so the result only contains
// tags produced here.
func MarkdownToHTML(text string) string {
	text = textEscaper.Replace(text)
	text = mdHeading.ReplaceAllString(text, "<b>$1</b>")
	text = mdBoldStars.ReplaceAllString(text, "<b>$1</b>")
	text = mdBoldUnderscore.ReplaceAllString(text, "<b>$1</b>")

	return text
}

// SanitizeHTML ensures only Telegram-supported HTML tags are kept and text is properly escaped.
// For <a> tags, only safe href attributes are preserved. All other tags have attributes stripped.
// Unclosed tags are automatically closed at the end to prevent HTML parse errors.
func SanitizeHTML(text string) string {
	var sb strings.Builder

	var openTags []string

	indices := tagRegex.FindAllStringIndex(text, -1)
	lastPos := 0

	for _, idx := range indices {
		if idx[0] > lastPos {
			sb.WriteString(escapeText(text[lastPos:idx[0]]))
		}

		openTags = processHTMLTag(&sb, text[idx[0]:idx[1]], openTags)
		lastPos = idx[1]
	}

	if lastPos < len(text) {
		sb.WriteString(escapeText(text[lastPos:]))
	}

	closeTags(&sb, openTags)

	return sb.String()
}

// escapeText escapes bare markup characters while leaving existing entities intact.
func escapeText(s string) string {
	return textEscaper.Replace(html.UnescapeString(s))
}

// processHTMLTag processes a single HTML tag and updates the open tags stack.
func processHTMLTag(sb *strings.Builder, tag string, openTags []string) []string {
	matches := tagRegex.FindStringSubmatch(tag)
	if len(matches) < 3 {
		return openTags
	}

	isClosing := matches[1] == "/"
	tagName := strings.ToLower(matches[2])

	if !allowedTags[tagName] {
		return openTags
	}

	if isClosing {
		idx := findLastOpenTag(openTags, tagName)
		if idx < 0 {
			return openTags
		}

		closeTags(sb, openTags[idx:])

		return openTags[:idx]
	}

	if tagName == "a" {
		sb.WriteString(sanitizeAnchorTag(tag))
	} else {
		sb.WriteString("<" + tagName + ">")
	}

	return append(openTags, tagName)
}

// closeTags closes the given tags in reverse order.
func closeTags(sb *strings.Builder, openTags []string) {
	for i := len(openTags) - 1; i >= 0; i-- {
		sb.WriteString("</" + openTags[i] + ">")
	}
}

// findLastOpenTag finds the last occurrence of a tag name in the open tags stack.
func findLastOpenTag(openTags []string, tagName string) int {
	for i := len(openTags) - 1; i >= 0; i-- {
		if openTags[i] == tagName {
			return i
		}
	}

	return -1
}

// sanitizeAnchorTag sanitizes an <a> tag to only include safe href
func sanitizeAnchorTag(tag string) string {
	hrefMatch := hrefRegex.FindStringSubmatch(tag)
	if hrefMatch == nil {
		return emptyAnchorTag
	}

	href := html.UnescapeString(hrefMatch[1])
	hrefLower := strings.ToLower(strings.TrimSpace(href))

	for _, proto := range dangerousProtocols {
		if strings.HasPrefix(hrefLower, proto) {
			return emptyAnchorTag
		}
	}

	return `<a href="` + html.EscapeString(href) + `">`
}

// StripHTMLTags removes all HTML tags from text, keeping only the content.
func StripHTMLTags(text string) string {
	result := tagRegex.ReplaceAllString(text, "")
	result = html.UnescapeString(result)

	return strings.TrimSpace(result)
}

// BalanceChunks makes every chunk well-formed on its own: tags still open at
// the end of a chunk are closed there and reopened at the start of the next.
// A tag split in the middle by a hard cut is dropped, and so is its now
// unmatched closing tag.
func BalanceChunks(chunks []string) []string {
	out := make([]string, 0, len(chunks))

	var carry []string

	for _, chunk := range chunks {
		text := strings.Join(carry, "") + trimBrokenTags(chunk)

		out = append(out, SanitizeHTML(text))
		carry = updateOpenTags(text, nil)
	}

	return out
}

// trimBrokenTags removes a partial tag at either end of a chunk.
func trimBrokenTags(chunk string) string {
	if open := strings.LastIndexByte(chunk, '<'); open >= 0 && !strings.Contains(chunk[open:], ">") {
		chunk = chunk[:open]
	}

	if closeIdx := strings.IndexByte(chunk, '>'); closeIdx >= 0 {
		if open := strings.IndexByte(chunk, '<'); open < 0 || open > closeIdx {
			chunk = chunk[closeIdx+1:]
		}
	}

	return chunk
}

// GetTagName returns the element name of a full tag such as <a href="...">.
func GetTagName(fullTag string) string {
	tag := strings.Trim(fullTag, "<>")

	parts := strings.Fields(tag)
	if len(parts) > 0 {
		return strings.ToLower(strings.TrimPrefix(parts[0], "/"))
	}

	return ""
}

func updateOpenTags(text string, openTags []string) []string {
	stack := append([]string(nil), openTags...)

	for _, match := range tagRegex.FindAllStringSubmatch(text, -1) {
		tagName := strings.ToLower(match[2])
		if !allowedTags[tagName] {
			continue
		}

		if match[1] != "/" {
			stack = append(stack, match[0])
			continue
		}

		for i := len(stack) - 1; i >= 0; i-- {
			if GetTagName(stack[i]) == tagName {
				stack = stack[:i]
				break
			}
		}
	}

	return stack
}
