package links

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lueurxax/channel-snapshot-bot/internal/core/domain"
)

func TestIsTelegramPermalink(t *testing.T) {
	tests := []struct {
		link string
		want bool
	}{
		{"https://t.me/hanaglobalbottomup/1234", true},
		{"https://t.me/c/1700000000/55", true},
		{"https://t.me/abc/1", false},
		{"http://t.me/hanaglobalbottomup/1234", false},
		{"https://t.me/hanaglobalbottomup", false},
		{"https://t.me/hanaglobalbottomup/12/extra", false},
		{"https://example.com/hanaglobalbottomup/1", false},
		{"", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, IsTelegramPermalink(tt.link), tt.link)
	}
}

func TestIsWebURL(t *testing.T) {
	tests := []struct {
		link string
		want bool
	}{
		{"https://blog.naver.com/ranto28/223000000000", true},
		{"http://example.com", true},
		{"ftp://example.com/file", false},
		{"https://", false},
		{"/relative/path", false},
		{"https://exa mple.com", false},
		{"javascript:alert(1)", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, IsWebURL(tt.link), tt.link)
	}
}

func TestDefaultAllowlistIsPerKind(t *testing.T) {
	blogLink := "https://blog.naver.com/ranto28/1"
	tgLink := "https://t.me/bottomupquant/7"

	assert.True(t, DefaultAllowlist(domain.KindBlog, blogLink))
	assert.False(t, DefaultAllowlist(domain.KindTelegram, blogLink))
	assert.True(t, DefaultAllowlist(domain.KindTelegram, tgLink))
	assert.False(t, DefaultAllowlist(domain.SourceKind("rss"), blogLink))
}

func TestTelegramPermalink(t *testing.T) {
	assert.Equal(t, "https://t.me/bottomupquant/42", TelegramPermalink("@bottomupquant", 42))
	assert.Empty(t, TelegramPermalink("", 42))
	assert.Empty(t, TelegramPermalink("bottomupquant", 0))
	assert.True(t, IsTelegramPermalink(TelegramPermalink("bottomupquant", 42)))
}

func TestCollect(t *testing.T) {
	items := []domain.Item{
		{Kind: domain.KindTelegram, Link: "https://t.me/chan_one/3"},
		{Kind: domain.KindTelegram, Link: ""},
		{Kind: domain.KindTelegram, Link: "https://evil.example.com/x"},
		{Kind: domain.KindTelegram, Link: "https://t.me/chan_one/1"},
		{Kind: domain.KindTelegram, Link: "https://t.me/chan_one/3"},
		{Kind: domain.KindTelegram, Link: "https://t.me/chan_one/2"},
	}

	got := Collect(items, nil, 10)
	assert.Equal(t, []string{
		"https://t.me/chan_one/3",
		"https://t.me/chan_one/1",
		"https://t.me/chan_one/2",
	}, got)

	assert.Equal(t, []string{"https://t.me/chan_one/3", "https://t.me/chan_one/1"}, Collect(items, nil, 2))
	assert.Nil(t, Collect(items, nil, 0))
}

func TestCollectCustomAllowlist(t *testing.T) {
	items := []domain.Item{
		{Kind: domain.KindBlog, Link: "https://blog.naver.com/a/1"},
		{Kind: domain.KindBlog, Link: "https://other.example.com/a/1"},
	}

	onlyNaver := func(_ domain.SourceKind, link string) bool {
		return IsWebURL(link) && strings.HasPrefix(link, "https://blog.naver.com/")
	}

	assert.Equal(t, []string{"https://blog.naver.com/a/1"}, Collect(items, onlyNaver, 10))
}

func TestCollectSkipsBlankLinks(t *testing.T) {
	items := []domain.Item{
		{Kind: domain.KindBlog, Link: "  "},
		{Kind: domain.KindBlog, Link: "https://blog.naver.com/a/1"},
	}

	allowAll := func(domain.SourceKind, string) bool { return true }

	assert.Equal(t, []string{"https://blog.naver.com/a/1"}, Collect(items, allowAll, 10))
}

func TestExtractURLs(t *testing.T) {
	text := "see https://a.example.com/x. and (https://b.example.com/y) too"
	assert.Equal(t, []string{"https://a.example.com/x", "https://b.example.com/y"}, ExtractURLs(text))
}
