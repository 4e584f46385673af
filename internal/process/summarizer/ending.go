package summarizer

import (
	"strings"
	"unicode"
)

const closingSentence = "👉 향후 흐름을 지켜볼 필요가 있다."

// danglingEndings are trailing words and particles that leave a Korean
// sentence unfinished.
var danglingEndings = []string{
	"그리고", "하지만", "그러나", "또한", "따라서", "반면", "특히", "및",
	"하며", "하고", "이며", "으며", "지만", "는데", "으나", "하여", "해서",
	"으로", "에서", "에게", "→", ",", "·",
}

// ensureCompleteEnding appends a closing sentence when text ends in a
// dangling connective.
func ensureCompleteEnding(text string) string {
	trimmed := strings.TrimRightFunc(text, unicode.IsSpace)
	if trimmed == "" || !endsDangling(trimmed) {
		return text
	}

	return trimmed + "\n" + closingSentence
}

func endsDangling(text string) bool {
	text = strings.TrimRight(text, "*_")

	for _, ending := range danglingEndings {
		if strings.HasSuffix(text, ending) {
			return true
		}
	}

	return false
}
