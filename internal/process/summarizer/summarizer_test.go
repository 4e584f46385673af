package summarizer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/channel-snapshot-bot/internal/core/domain"
	apperrors "github.com/lueurxax/channel-snapshot-bot/internal/core/errors"
	"github.com/lueurxax/channel-snapshot-bot/internal/core/llm"
)

const testChannel = "bottomupquant"

func defaultOptions() Options {
	return Options{MaxItems: 100, MaxLinks: 10}
}

func newSummarizer(gen llm.GeneratorFunc) *Summarizer {
	logger := zerolog.Nop()

	return New(gen, &logger)
}

func fixed(text string) llm.GeneratorFunc {
	return func(context.Context, llm.Request) (string, error) {
		return text, nil
	}
}

func tgGroup(n int) domain.SourceGroup {
	group := domain.SourceGroup{Key: domain.SourceKey{Kind: domain.KindTelegram, ID: testChannel}}

	for i := n; i >= 1; i-- {
		group.Items = append(group.Items, domain.Item{
			SourceID:  testChannel,
			Kind:      domain.KindTelegram,
			Text:      fmt.Sprintf("메시지 %d", i),
			Link:      fmt.Sprintf("https://t.me/%s/%d", testChannel, i),
			Timestamp: time.Date(2026, 3, 2, 0, i, 0, 0, time.UTC),
		})
	}

	return group
}

func TestSummarizeInlineURLNotInLinks(t *testing.T) {
	generated := "🔥 **반도체**\n• 자세한 내용은 https://hallucinated.example.com/report 참고\n\n출처:\n- https://t.me/bottomupquant/999"

	group := tgGroup(2)

	report, err := newSummarizer(fixed(generated)).Summarize(context.Background(), group, defaultOptions())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"https://t.me/bottomupquant/2",
		"https://t.me/bottomupquant/1",
	}, report.Links)
	assert.NotContains(t, report.Links, "https://hallucinated.example.com/report")
	assert.NotContains(t, report.Body, "https://t.me/bottomupquant/999")
	assert.Contains(t, report.Body, "https://hallucinated.example.com/report")
	assert.Equal(t, group.Key, report.Key)
}

func TestSummarizeLinksComeFromItemsOnly(t *testing.T) {
	group := tgGroup(15)
	group.Items = append(group.Items,
		domain.Item{SourceID: testChannel, Kind: domain.KindTelegram, Text: "중복", Link: "https://t.me/bottomupquant/15"},
		domain.Item{SourceID: testChannel, Kind: domain.KindTelegram, Text: "외부", Link: "https://example.com/not-a-permalink"},
	)

	report, err := newSummarizer(fixed("• 요약")).Summarize(context.Background(), group, defaultOptions())
	require.NoError(t, err)

	require.Len(t, report.Links, 10)

	inputs := make(map[string]bool)
	for _, item := range group.Items {
		inputs[item.Link] = true
	}

	seen := make(map[string]bool)
	for _, link := range report.Links {
		assert.True(t, inputs[link], link)
		assert.False(t, seen[link], "duplicate %s", link)
		seen[link] = true
	}

	assert.Equal(t, "https://t.me/bottomupquant/15", report.Links[0])
}

func TestSummarizeCapsPayload(t *testing.T) {
	var prompt string

	gen := func(_ context.Context, req llm.Request) (string, error) {
		prompt = req.Prompt
		return "• 요약", nil
	}

	opts := defaultOptions()
	opts.MaxItems = 3
	opts.Model = "gpt-5-mini"

	_, err := newSummarizer(gen).Summarize(context.Background(), tgGroup(5), opts)
	require.NoError(t, err)

	assert.Contains(t, prompt, "메시지 5\n\n메시지 4\n\n메시지 3")
	assert.NotContains(t, prompt, "메시지 2")
	assert.True(t, strings.HasPrefix(prompt, telegramIntro))
}

func TestSummarizeBlogPrompt(t *testing.T) {
	var req llm.Request

	gen := func(_ context.Context, r llm.Request) (string, error) {
		req = r
		return "• 요약", nil
	}

	group := domain.SourceGroup{
		Key:   domain.SourceKey{Kind: domain.KindBlog, ID: "ranto28"},
		Items: []domain.Item{{SourceID: "ranto28", Kind: domain.KindBlog, Text: "제목\n요약", Link: "https://blog.naver.com/ranto28/1"}},
	}

	report, err := newSummarizer(gen).Summarize(context.Background(), group, defaultOptions())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(req.Prompt, blogIntro))
	assert.Equal(t, taskSourceSummary, req.Task)
	assert.Equal(t, []string{"https://blog.naver.com/ranto28/1"}, report.Links)
}

func TestSummarizeCompactKeepsLinks(t *testing.T) {
	long := strings.Repeat("가", 1500)

	opts := defaultOptions()
	opts.CompactLimit = 1000

	report, err := newSummarizer(fixed(long)).Summarize(context.Background(), tgGroup(2), opts)
	require.NoError(t, err)

	assert.Equal(t, 1000, utf8.RuneCountInString(report.Body))
	assert.Equal(t, []string{"https://t.me/bottomupquant/2", "https://t.me/bottomupquant/1"}, report.Links)
}

func TestSummarizeGenerationFailure(t *testing.T) {
	gen := func(context.Context, llm.Request) (string, error) {
		return "", errors.New("upstream 500")
	}

	_, err := newSummarizer(gen).Summarize(context.Background(), tgGroup(1), defaultOptions())
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrGeneration)
	assert.Equal(t, apperrors.KindGeneration, apperrors.Kind(err))
}

func TestSummarizeEmptyGeneration(t *testing.T) {
	_, err := newSummarizer(fixed("  \n ")).Summarize(context.Background(), tgGroup(1), defaultOptions())
	assert.ErrorIs(t, err, apperrors.ErrEmptyResponse)
	assert.ErrorIs(t, err, apperrors.ErrGeneration)
}

func TestSummarizeCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	gen := func(ctx context.Context, _ llm.Request) (string, error) {
		cancel()
		return "", ctx.Err()
	}

	_, err := newSummarizer(gen).Summarize(ctx, tgGroup(1), defaultOptions())
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, apperrors.ErrGeneration)
}

func TestSummarizeGroupWithoutText(t *testing.T) {
	group := domain.SourceGroup{
		Key:   domain.SourceKey{Kind: domain.KindTelegram, ID: testChannel},
		Items: []domain.Item{{SourceID: testChannel, Kind: domain.KindTelegram, Text: "  "}},
	}

	_, err := newSummarizer(fixed("x")).Summarize(context.Background(), group, defaultOptions())
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestSummarizeEnsureCompleteEnding(t *testing.T) {
	opts := defaultOptions()
	opts.EnsureCompleteEnding = true

	report, err := newSummarizer(fixed("• 금리는 동결됐지만")).Summarize(context.Background(), tgGroup(1), opts)
	require.NoError(t, err)
	assert.Equal(t, "• 금리는 동결됐지만\n"+closingSentence, report.Body)

	report, err = newSummarizer(fixed("• 금리는 동결됐다.")).Summarize(context.Background(), tgGroup(1), opts)
	require.NoError(t, err)
	assert.Equal(t, "• 금리는 동결됐다.", report.Body)
}

func TestSnapshot(t *testing.T) {
	var req llm.Request

	gen := func(_ context.Context, r llm.Request) (string, error) {
		req = r
		return "**오늘의 결론**\n본문\n\nReferences\nhttps://x.example.com", nil
	}

	groups := domain.Groups{
		tgGroup(2),
		{
			Key:   domain.SourceKey{Kind: domain.KindBlog, ID: "ranto28"},
			Items: []domain.Item{{SourceID: "ranto28", Kind: domain.KindBlog, Text: "블로그", Link: "https://blog.naver.com/ranto28/1"}},
		},
	}

	opts := defaultOptions()
	opts.Model = "gpt-5.2"
	opts.MaxItems = 200

	report, err := newSummarizer(gen).Snapshot(context.Background(), groups, opts)
	require.NoError(t, err)

	assert.Equal(t, taskSnapshot, req.Task)
	assert.Equal(t, "gpt-5.2", req.Model)
	assert.Contains(t, req.Prompt, "너는 투자 전략가다.")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(req.Prompt), "블로그"))

	assert.Equal(t, SnapshotID, report.Key.ID)
	assert.Equal(t, "**오늘의 결론**\n본문", report.Body)
	assert.Equal(t, []string{
		"https://t.me/bottomupquant/2",
		"https://t.me/bottomupquant/1",
		"https://blog.naver.com/ranto28/1",
	}, report.Links)
}
