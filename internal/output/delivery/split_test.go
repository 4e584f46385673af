package delivery

import (
	"math/rand"
	"strings"
	"testing"
	"unicode"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/channel-snapshot-bot/internal/platform/htmlutils"
)

// assertRejoins checks that chunks appear in text in order, separated only
// by whitespace.
func assertRejoins(t *testing.T, text string, chunks []string) []int {
	t.Helper()

	ends := make([]int, 0, len(chunks))
	pos := 0

	for i, chunk := range chunks {
		for pos < len(text) {
			r, size := utf8.DecodeRuneInString(text[pos:])
			if !unicode.IsSpace(r) {
				break
			}

			pos += size
		}

		require.Truef(t, strings.HasPrefix(text[pos:], chunk), "chunk %d does not continue the text at %d", i, pos)

		pos += len(chunk)
		ends = append(ends, pos)
	}

	assert.Empty(t, strings.TrimSpace(text[pos:]), "text left over after the last chunk")

	return ends
}

func TestSplitNineThousandCharacters(t *testing.T) {
	line := strings.Repeat("x", 99) + "\n"
	text := strings.Repeat(line, 90)
	require.Len(t, text, 9000)

	chunks := Split(text, 4000, 0.6)
	require.Len(t, chunks, 3)

	ends := assertRejoins(t, text, chunks)

	for i, chunk := range chunks[:2] {
		assert.LessOrEqual(t, htmlutils.UTF16Len(chunk), 4000)
		assert.GreaterOrEqual(t, len(chunk), 2400, "chunk %d cut before 60%% of the window", i)
		assert.Equal(t, byte('\n'), text[ends[i]], "chunk %d does not end at a newline", i)
	}
}

func TestSplitShortTextIsOneChunk(t *testing.T) {
	chunks := Split("  짧은 메시지\n둘째 줄  ", 4000, 0.6)
	assert.Equal(t, []string{"짧은 메시지\n둘째 줄"}, chunks)

	assert.Empty(t, Split(" \n ", 4000, 0.6))
}

func TestSplitPrefersNewlineThenSpace(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		limit int
		want  []string
	}{
		{
			name:  "newline inside window",
			text:  "aaaa bbbb\ncccc dddd",
			limit: 14,
			want:  []string{"aaaa bbbb", "cccc dddd"},
		},
		{
			name:  "space when no newline",
			text:  "aaaa bbbb cccc dddd",
			limit: 12,
			want:  []string{"aaaa bbbb", "cccc dddd"},
		},
		{
			name:  "hard cut without separators",
			text:  "abcdefghijklmnop",
			limit: 5,
			want:  []string{"abcde", "fghij", "klmno", "p"},
		},
		{
			name:  "hard cut when separator is too early",
			text:  "ab cdefghijklmnop",
			limit: 10,
			want:  []string{"ab cdefghi", "jklmnop"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Split(tt.text, tt.limit, 0.6)
			assert.Equal(t, tt.want, got)
			assertRejoins(t, tt.text, got)
		})
	}
}

func TestSplitKeepsEntitiesWhole(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{name: "named entity at the edge", text: "aaaa&amp;bbbb", want: []string{"aaaa", "&amp;bb", "bb"}},
		{name: "numeric entity at the edge", text: "aaaaa&#39;bbb", want: []string{"aaaaa", "&#39;bb", "b"}},
		{name: "bare ampersand", text: "aaaa&bcdefg", want: []string{"aaaa&bc", "defg"}},
		{name: "entity inside window", text: "a&lt;bcdefgh", want: []string{"a&lt;bc", "defgh"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Split(tt.text, 7, 0.6)
			assert.Equal(t, tt.want, got)
			assertRejoins(t, tt.text, got)
		})
	}
}

func TestSplitCountsUTF16Units(t *testing.T) {
	text := strings.Repeat("🔥", 10)

	chunks := Split(text, 5, 0.6)

	require.Len(t, chunks, 5)

	for _, chunk := range chunks {
		assert.Equal(t, 4, htmlutils.UTF16Len(chunk))
	}

	assertRejoins(t, text, chunks)
}

func TestSplitProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	alphabet := []rune("가나다 abc\n\n 🔥.,")

	for round := 0; round < 200; round++ {
		n := rng.Intn(3000)

		var sb strings.Builder
		for i := 0; i < n; i++ {
			sb.WriteRune(alphabet[rng.Intn(len(alphabet))])
		}

		text := sb.String()
		limit := 20 + rng.Intn(500)

		chunks := Split(text, limit, 0.6)

		for _, chunk := range chunks {
			require.LessOrEqual(t, htmlutils.UTF16Len(chunk), limit)
			require.NotEmpty(t, chunk)
		}

		if trimmed := strings.TrimSpace(text); trimmed != "" && htmlutils.UTF16Len(trimmed) <= limit {
			require.Len(t, chunks, 1)
		}

		assertRejoins(t, text, chunks)
	}
}
