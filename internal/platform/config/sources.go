package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lueurxax/channel-snapshot-bot/internal/core/domain"
	apperrors "github.com/lueurxax/channel-snapshot-bot/internal/core/errors"
)

const labelFallbackPrefix = "📡 "

// Sources is the static catalogue of channels and blogs to summarize.
type Sources struct {
	Telegram []domain.Source `yaml:"telegram"`
	Blogs    []domain.Source `yaml:"blogs"`

	labels map[domain.SourceKey]string
}

// DefaultSources returns the built-in catalogue.
func DefaultSources() *Sources {
	s := &Sources{
		Telegram: []domain.Source{
			{ID: "chunjonghyun", Label: "📡 전종현의 인사이트"},
			{ID: "The_MariTimes", Label: "🌍 Polaristimes"},
			{ID: "cahier_de_market", Label: "📊 카이에 de Market"},
			{ID: "Macrojunglemicrolens", Label: "🌴 Macro Jungle"},
			{ID: "kkkontemp", Label: "📘 KK Kontemp"},
			{ID: "aetherjapanresearch", Label: "🧭 에테르 리서치"},
			{ID: "mistergray_11", Label: "💾 회색인간"},
			{ID: "defence_24", Label: "🛡 우주방산 AI로봇 아카이브"},
			{ID: "misaengofficial", Label: "📖 미생과 완생"},
			{ID: "rafikiresearch", Label: "🧠 라피키 리서치"},
			{ID: "ivy77788", Label: "📊 플렉서블 리서치"},
			{ID: "samsung_macro", Label: "📈 삼성리서치 매크로"},
			{ID: "Joorini34", Label: "📊 Granit34 투자스토리"},
		},
		Blogs: []domain.Source{
			{ID: "ranto28", Label: "📝 메르"},
			{ID: "hardark", Label: "📝 Hardark"},
			{ID: "chcmg2022", Label: "📝 너쟁이"},
			{ID: "rudghks669", Label: "📝 환"},
			{ID: "kckh3333", Label: "📝 구로동 최선생"},
			{ID: "tmdejr1267", Label: "📝 Seung"},
			{ID: "kk_kontemp", Label: "📝 KK"},
			{ID: "skel7800", Label: "📝 Yellow Green"},
			{ID: "polarisforblog", Label: "📝 Polaristimes"},
			{ID: "chunjonghyun", Label: "📝 전종현 블로그"},
			{ID: "tosoha1", Label: "📝 농구천재"},
		},
	}

	s.index()

	return s
}

// LoadSources reads the catalogue from a YAML file, or returns the
// built-in catalogue when path is empty.
func LoadSources(path string) (*Sources, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultSources(), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading sources file %s: %w", path, err)
	}

	return ParseSources(raw)
}

// ParseSources decodes a YAML catalogue.
func ParseSources(raw []byte) (*Sources, error) {
	s := &Sources{}
	if err := yaml.Unmarshal(raw, s); err != nil {
		return nil, fmt.Errorf("parsing sources: %w", err)
	}

	s.index()

	if err := s.Validate(); err != nil {
		return nil, err
	}

	return s, nil
}

// Validate rejects empty identifiers and duplicates within a kind.
func (s *Sources) Validate() error {
	if len(s.Telegram) == 0 && len(s.Blogs) == 0 {
		return fmt.Errorf("%w: no sources configured", apperrors.ErrInvalidInput)
	}

	seen := make(map[domain.SourceKey]bool)

	for _, src := range s.All() {
		if strings.TrimSpace(src.ID) == "" {
			return fmt.Errorf("%w: empty %s source id", apperrors.ErrInvalidInput, src.Kind)
		}

		if seen[src.Key()] {
			return fmt.Errorf("%w: duplicate source %s", apperrors.ErrInvalidInput, src.Key())
		}

		seen[src.Key()] = true
	}

	return nil
}

// All returns every source, Telegram channels first.
func (s *Sources) All() []domain.Source {
	all := make([]domain.Source, 0, len(s.Telegram)+len(s.Blogs))
	all = append(all, s.Telegram...)
	all = append(all, s.Blogs...)

	return all
}

// Label returns the display label of a source, falling back to the id.
func (s *Sources) Label(key domain.SourceKey) string {
	if label, ok := s.labels[key]; ok && label != "" {
		return label
	}

	return labelFallbackPrefix + key.ID
}

// TelegramIDs returns the configured channel usernames.
func (s *Sources) TelegramIDs() []string {
	ids := make([]string, 0, len(s.Telegram))
	for _, src := range s.Telegram {
		ids = append(ids, src.ID)
	}

	return ids
}

func (s *Sources) index() {
	for i := range s.Telegram {
		s.Telegram[i].Kind = domain.KindTelegram
		s.Telegram[i].ID = strings.TrimPrefix(strings.TrimSpace(s.Telegram[i].ID), "@")
	}

	for i := range s.Blogs {
		s.Blogs[i].Kind = domain.KindBlog
		s.Blogs[i].ID = strings.TrimSpace(s.Blogs[i].ID)
	}

	s.labels = make(map[domain.SourceKey]string, len(s.Telegram)+len(s.Blogs))
	for _, src := range s.All() {
		s.labels[src.Key()] = strings.TrimSpace(src.Label)
	}
}
