package generator

import (
	"encoding/base64"
	"fmt"

	"github.com/zcheck/blogpipe/internal/post"
	"google.golang.org/genai"
)

const postPromptTemplate = `당신은 한국 인테리어 리모델링 정보 블로그 "집첵"의 콘텐츠 에디터입니다.
다음 주제로 SEO 최적화된 블로그 포스트를 작성해주세요.

주제: %s

반드시 JSON으로만 응답하세요 (마크다운 코드블록 없이 순수 JSON).
- slug: 영문 소문자와 하이픈만, 최대 5단어
- title: 한글 제목 35-45자, 숫자 포함 권장
- category: "%s" 또는 "%s" 중 하나
- meta_description: 150자 이내 요약문 (검색 스니펫용)
- tags: 5개 이상의 한글 태그 배열 ("인테리어", "리모델링" 포함)
- body_sections: 본문 섹션 배열. type은 heading, subheading, text, list, checklist, tip, warning, step, highlight, table, keypoints 중 하나
  - 첫 섹션은 도입부 text
  - keypoints 섹션 1개 (points: title, desc 3-5개)
  - heading 다음에는 text 섹션이 이어지도록
  - tip 또는 warning 섹션 1개 이상
  - 강조는 **굵게**, 형광펜은 ==표시== 만 사용, HTML 태그 금지
  - 본문 전체 %d자 이상
  - 집첵 견적서 분석 서비스(zcheck.co.kr)를 자연스럽게 1회 언급
- instagram_caption: 이모지 활용, 해시태그 7개 이상, 줄바꿈 포함
- threads_chain: 3-5개의 스레드 (각 500자 이내, 마지막은 blog.zcheck.co.kr 링크를 포함한 CTA)

작성 규칙:
- 인테리어 실용 정보 중심, 초보자도 이해하기 쉽게
- 과장 광고나 근거 없는 수치 금지`

// PostPrompt builds the text generation prompt for keyword.
func PostPrompt(keyword string) string {
	return fmt.Sprintf(postPromptTemplate, keyword, post.CategoryInfo, post.CategoryPrevention, 1200)
}

func str(desc string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeString, Description: desc}
}

func strList(desc string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeArray, Description: desc, Items: &genai.Schema{Type: genai.TypeString}}
}

var sectionSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"type": {
			Type: genai.TypeString,
			Enum: []string{
				post.SectionHeading, post.SectionSubheading, post.SectionText, post.SectionList,
				post.SectionChecklist, post.SectionTip, post.SectionWarning, post.SectionStep,
				post.SectionHighlight, post.SectionTable, post.SectionKeypoints,
			},
		},
		"content": str("text, heading, highlight, tip and warning body"),
		"title":   str("tip, warning and keypoints title"),
		"emoji":   str("optional callout emoji"),
		"items":   strList("list, checklist and step entries"),
		"headers": strList("table header cells"),
		"rows": {
			Type:  genai.TypeArray,
			Items: &genai.Schema{Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
		},
		"points": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"title": str(""),
					"desc":  str(""),
				},
				Required: []string{"title", "desc"},
			},
		},
	},
	Required: []string{"type"},
}

var postSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"slug":              str("lowercase hyphenated english slug"),
		"title":             str("korean title"),
		"category":          str("post category"),
		"meta_description":  str("search snippet summary"),
		"tags":              strList("korean tags"),
		"body_sections":     {Type: genai.TypeArray, Items: sectionSchema},
		"instagram_caption": str("instagram caption with hashtags"),
		"threads_chain":     strList("threads posts in reply order"),
	},
	Required:         []string{"slug", "title", "category", "meta_description", "tags", "body_sections"},
	PropertyOrdering: []string{"slug", "title", "category", "meta_description", "tags", "body_sections", "instagram_caption", "threads_chain"},
}

func encodeBase64(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}
