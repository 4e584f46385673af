package delivery

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/lueurxax/channel-snapshot-bot/internal/platform/htmlutils"
)

// Split cuts text into chunks of at most limit UTF-16 code units. A chunk
// ends at the last newline inside the window, else at the last space. When
// neither exists, or the cut would leave the chunk shorter than
// minFraction of the limit, the chunk is cut hard at the limit.
// Whitespace at each cut point is trimmed.
func Split(text string, limit int, minFraction float64) []string {
	if limit <= 0 {
		return nil
	}

	minUnits := int(minFraction * float64(limit))

	var chunks []string

	remaining := strings.TrimSpace(text)

	for remaining != "" {
		if htmlutils.UTF16Len(remaining) <= limit {
			chunks = append(chunks, remaining)
			break
		}

		cut := cutPoint(remaining, limit, minUnits)

		if chunk := strings.TrimRightFunc(remaining[:cut], unicode.IsSpace); chunk != "" {
			chunks = append(chunks, chunk)
		}

		remaining = strings.TrimLeftFunc(remaining[cut:], unicode.IsSpace)
	}

	return chunks
}

// cutPoint returns the byte offset at which to cut s.
func cutPoint(s string, limit, minUnits int) int {
	window := htmlutils.UTF16Offset(s, limit)
	if window == 0 {
		// A single rune wider than the limit still has to go somewhere.
		_, size := utf8.DecodeRuneInString(s)
		return size
	}

	cut := strings.LastIndexByte(s[:window], '\n')
	if cut <= 0 {
		cut = strings.LastIndexByte(s[:window], ' ')
	}

	if cut <= 0 || htmlutils.UTF16Len(s[:cut]) < minUnits {
		return avoidSplitEntity(s, window)
	}

	return cut
}

// entityRegex matches an HTML character reference at the start of a string.
var entityRegex = regexp.MustCompile(`^&(?:[a-zA-Z][a-zA-Z0-9]*|#[0-9]+|#[xX][0-9a-fA-F]+);`)

// avoidSplitEntity moves a hard cut back to the start of a character
// reference that the cut would otherwise break in two.
func avoidSplitEntity(s string, cut int) int {
	amp := strings.LastIndexByte(s[:cut], '&')
	if amp <= 0 || strings.IndexByte(s[amp:cut], ';') >= 0 {
		return cut
	}

	if loc := entityRegex.FindStringIndex(s[amp:]); loc != nil && amp+loc[1] > cut {
		return amp
	}

	return cut
}
