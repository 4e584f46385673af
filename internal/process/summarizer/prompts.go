package summarizer

import (
	"fmt"
	"strings"

	"github.com/lueurxax/channel-snapshot-bot/internal/core/domain"
)

const (
	telegramIntro = "아래는 텔레그램 채널의 최근 24시간 메시지다."
	blogIntro     = "아래는 블로그의 최근 24시간 글이다."
	payloadSep    = "\n\n"
)

const sourceSummaryTemplate = `%s

직관적인 브리핑 구조로 정리하라.

형식:

🔥 **핵심 테마 1**
• bullet 3~4개

📉 **핵심 테마 2**
• bullet 2~4개

📌 **기타 포인트**
• bullet 2~3개

조건:
- 채널 특성 설명 금지
- 문단형 서술 금지
- 구조 중심
- 800~1200자
- 이모지는 섹션 제목에만 사용
- 뉴스 나열 금지, 공통 주제로 묶기
- 링크, 출처 목록 작성 금지

메시지:
%s
`

const snapshotTemplate = `너는 투자 전략가다.

아래는 지난 24시간 텔레그램 뉴스다.

단순 요약이 아니라,
'오늘 시장이 어떻게 움직이고 있는지'
내러티브 중심 전략 리포트를 작성하라.

구성:

1. 오늘의 한 줄 결론
2. 핵심 테마 3~5개 (각 테마는:
   - 무슨 일이 일어났는지
   - 왜 중요한지
   - 어떤 섹터/종목에 영향인지
   - 시장 반응)
3. 섹터 간 연결 구조
4. 리스크 요인
5. 내일 체크포인트

조건:
- 한국어
- 나열 금지 (서술형 중심)
- 중요도 높은 내용 위주
- 불확실한 것은 명확히 불확실하다고 표현
- 과장 금지
- 총 900~1200자 이내.
- 각 테마는 5~6줄 이내.
- 문단을 짧게 유지.
- 각 테마 마지막에 '→ 그래서 무엇을 볼 것인가' 한 줄로 정리하라.
- 각 테마 제목은 강한 문장형으로 작성하라.
- 숫자는 핵심 5~6개만 남기고 나머지는 제거하라.
- 주요 문장은 **볼드**
- 섹션 앞에는 이모지 사용
- 문단은 3줄 이하
- 각 테마는 짧은 bullet 구조
- 마지막 줄에 👉 행동 포인트 추가

뉴스:
%s
`

// buildSourcePrompt renders the per-source briefing prompt.
func buildSourcePrompt(kind domain.SourceKind, payload string) string {
	intro := telegramIntro
	if kind == domain.KindBlog {
		intro = blogIntro
	}

	return fmt.Sprintf(sourceSummaryTemplate, intro, payload)
}

func buildSnapshotPrompt(payload string) string {
	return fmt.Sprintf(snapshotTemplate, payload)
}

// joinTexts concatenates the text of the first limit items with blank
// lines between them. Items past the limit are dropped in collector
// order, which is not a recency guarantee.
func joinTexts(items []domain.Item, limit int) (string, int) {
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}

	parts := make([]string, 0, len(items))
	for _, item := range items {
		if text := strings.TrimSpace(item.Text); text != "" {
			parts = append(parts, text)
		}
	}

	return strings.Join(parts, payloadSep), len(items)
}
