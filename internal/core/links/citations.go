package links

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	bulletPrefixRegex = regexp.MustCompile(`^(?:\d+[.)]|\[\d+\])\s*`)
	bareURLRegex      = regexp.MustCompile(`^<?https?://\S+?>?$`)
	mdLinkOnlyRegex   = regexp.MustCompile(`^\[[^\]]*\]\(https?://[^)\s]+\)$`)
	mdLinkRegex       = regexp.MustCompile(`\[[^\]]*\]\(https?://[^)\s]+\)`)
	blankRunsRegex    = regexp.MustCompile(`\n{3,}`)
)

// citationHeadings are normalized headings that introduce a list of sources.
var citationHeadings = toSet(
	"출처", "참고", "참조", "참고 자료", "참고자료", "참고 링크", "관련 링크",
	"링크", "원문", "원문 링크",
	"source", "sources", "reference", "references",
	"link", "links", "citation", "citations",
)

func toSet(values ...string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}

	return set
}

// StripCitations removes every citation section from generated text,
// together with every line that is nothing but a URL. A citation section
// is a recognized heading followed, ignoring blank lines, by lines that
// carry a link; it ends at the first line without one. URLs inside prose
// are left alone. Applying StripCitations to its own output is a no-op.
func StripCitations(text string) string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	kept := make([]string, 0, len(lines))

	for i := 0; i < len(lines); i++ {
		line := lines[i]

		if end, ok := citationSectionEnd(lines, i); ok {
			i = end - 1
			continue
		}

		if isBareURLLine(line) {
			continue
		}

		kept = append(kept, strings.TrimRightFunc(line, unicode.IsSpace))
	}

	out := strings.Join(kept, "\n")
	out = blankRunsRegex.ReplaceAllString(out, "\n\n")

	return strings.TrimSpace(out)
}

// citationSectionEnd reports whether lines[start] opens a citation section
// and returns the index just past it.
func citationSectionEnd(lines []string, start int) (int, bool) {
	heading, inlineEntry := classifyHeading(lines[start])
	if !heading {
		return 0, false
	}

	hasEntry := inlineEntry
	end := start + 1

	for end < len(lines) {
		line := lines[end]

		switch {
		case strings.TrimSpace(line) == "":
		case isCitationEntry(line):
			hasEntry = true
		default:
			if !hasEntry {
				return 0, false
			}

			return end, true
		}

		end++
	}

	return end, hasEntry
}

// classifyHeading reports whether line is a citation heading, and whether
// the heading line itself carries an entry ("출처: https://...").
func classifyHeading(line string) (heading, inlineEntry bool) {
	if citationHeadings[normalizeHeading(line)] {
		return true, false
	}

	for _, sep := range []string{":", "："} {
		left, right, found := strings.Cut(line, sep)
		if !found {
			continue
		}

		if citationHeadings[normalizeHeading(left)] && isCitationEntry(right) {
			return true, true
		}
	}

	return false, false
}

// normalizeHeading keeps letters, digits and single spaces, lowercased.
func normalizeHeading(line string) string {
	var sb strings.Builder

	space := false

	for _, r := range strings.TrimSpace(line) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if space && sb.Len() > 0 {
				sb.WriteByte(' ')
			}

			space = false

			sb.WriteRune(unicode.ToLower(r))
		case unicode.IsSpace(r):
			space = true
		}
	}

	return sb.String()
}

// isCitationEntry reports whether line carries a link.
func isCitationEntry(line string) bool {
	return urlRegex.MatchString(line) || mdLinkRegex.MatchString(line)
}

// isBareURLLine reports whether line holds a single URL or markdown link,
// optionally preceded by a bullet, number or decoration.
func isBareURLLine(line string) bool {
	rest := strings.TrimLeftFunc(line, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '[' && r != '<'
	})
	rest = bulletPrefixRegex.ReplaceAllString(rest, "")
	rest = strings.TrimSpace(rest)

	if rest == "" {
		return false
	}

	return bareURLRegex.MatchString(rest) || mdLinkOnlyRegex.MatchString(rest)
}
