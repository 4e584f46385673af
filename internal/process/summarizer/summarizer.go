// Package summarizer turns a source's items into a report. Generated text
// is untrusted: citation sections are stripped from it and the link list
// is rebuilt from the collected items.
package summarizer

import (
	"context"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/lueurxax/channel-snapshot-bot/internal/core/domain"
	apperrors "github.com/lueurxax/channel-snapshot-bot/internal/core/errors"
	"github.com/lueurxax/channel-snapshot-bot/internal/core/links"
	"github.com/lueurxax/channel-snapshot-bot/internal/core/llm"
	"github.com/lueurxax/channel-snapshot-bot/internal/platform/observability"
)

const (
	taskSourceSummary = "source_summary"
	taskSnapshot      = "snapshot"

	// SnapshotID is the source id of the cross-source snapshot report.
	SnapshotID = "snapshot"
)

// Options controls a single Summarize or Snapshot call.
type Options struct {
	Model    string
	MaxItems int
	MaxLinks int
	// CompactLimit truncates the body to this many characters before the
	// link list is attached. Zero keeps the full body.
	CompactLimit         int
	EnsureCompleteEnding bool
	Allowlist            links.Allowlist
}

type Summarizer struct {
	generator llm.Generator
	logger    *zerolog.Logger
}

func New(generator llm.Generator, logger *zerolog.Logger) *Summarizer {
	return &Summarizer{generator: generator, logger: logger}
}

// Summarize writes the report for one source group.
func (s *Summarizer) Summarize(ctx context.Context, group domain.SourceGroup, opts Options) (domain.Report, error) {
	payload, used := joinTexts(group.Items, opts.MaxItems)
	if payload == "" {
		return domain.Report{}, fmt.Errorf("%w: %s has no text", apperrors.ErrInvalidInput, group.Key)
	}

	if used < group.Len() {
		s.logger.Debug().
			Str("source", group.Key.String()).
			Int("items", group.Len()).
			Int("used", used).
			Msg("Truncated source payload")
	}

	body, err := s.generate(ctx, llm.Request{
		Task:   taskSourceSummary,
		Model:  opts.Model,
		Prompt: buildSourcePrompt(group.Key.Kind, payload),
	})
	if err != nil {
		return domain.Report{}, fmt.Errorf("summarize %s: %w", group.Key, err)
	}

	return s.reconcile(group.Key, body, group.Items, opts), nil
}

// Snapshot writes a single market narrative across every group.
func (s *Summarizer) Snapshot(ctx context.Context, groups domain.Groups, opts Options) (domain.Report, error) {
	items := groups.AllItems()

	payload, _ := joinTexts(items, opts.MaxItems)
	if payload == "" {
		return domain.Report{}, fmt.Errorf("%w: snapshot has no text", apperrors.ErrInvalidInput)
	}

	body, err := s.generate(ctx, llm.Request{
		Task:   taskSnapshot,
		Model:  opts.Model,
		Prompt: buildSnapshotPrompt(payload),
	})
	if err != nil {
		return domain.Report{}, fmt.Errorf("snapshot: %w", err)
	}

	key := domain.SourceKey{Kind: domain.KindTelegram, ID: SnapshotID}

	return s.reconcile(key, body, items, opts), nil
}

func (s *Summarizer) generate(ctx context.Context, req llm.Request) (string, error) {
	text, err := s.generator.Generate(ctx, req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("generation interrupted: %w", ctxErr)
		}

		return "", fmt.Errorf("%w: %w", apperrors.ErrGeneration, err)
	}

	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: %w", apperrors.ErrGeneration, apperrors.ErrEmptyResponse)
	}

	return text, nil
}

// reconcile strips generated citations from body and attaches links
// collected from items.
func (s *Summarizer) reconcile(key domain.SourceKey, body string, items []domain.Item, opts Options) domain.Report {
	body = links.StripCitations(body)

	verified := links.Collect(items, opts.Allowlist, opts.MaxLinks)

	if discarded := countUnverified(body, verified); discarded > 0 {
		observability.GeneratedLinksDiscarded.Add(float64(discarded))
		s.logger.Debug().
			Str("source", key.String()).
			Int("urls", discarded).
			Msg("Generated text carries URLs outside the verified list")
	}

	if opts.EnsureCompleteEnding {
		body = ensureCompleteEnding(body)
	}

	if opts.CompactLimit > 0 {
		body = truncateRunes(body, opts.CompactLimit)
	}

	return domain.Report{
		Key:   key,
		Body:  body,
		Links: verified,
	}
}

// countUnverified counts URLs left inline in body that are not in verified.
func countUnverified(body string, verified []string) int {
	known := make(map[string]bool, len(verified))
	for _, link := range verified {
		known[link] = true
	}

	count := 0

	for _, u := range links.ExtractURLs(body) {
		if !known[u] {
			count++
		}
	}

	return count
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}

	return strings.TrimRightFunc(string([]rune(s)[:limit]), unicode.IsSpace)
}
