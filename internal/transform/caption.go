package transform

import (
	"fmt"
	"strings"

	"github.com/zcheck/blogpipe/internal/post"
)

const (
	CaptionLimit     = 2200
	captionLeadChars = 120
	captionItemChars = 200
	maxPostTags      = 6
	maxHashtags      = 8
)

var brandTags = []string{"집첵", "인테리어"}

const (
	captionCTAPrevention = "업체가 제시한 견적이 적정한지 궁금하다면\n프로필 링크에서 확인해 보세요."
	captionCTADefault    = "꼼꼼하게 확인하는 게\n결국 수백만 원을 아끼는 방법이에요."
)

// InstagramCaption returns the authored caption when present (adding hashtags if it has none),
// otherwise a caption built from the body. TextLen of the result never exceeds CaptionLimit.
func InstagramCaption(p *post.Post) string {
	tags := Hashtags(p.Tags)
	if c := strings.TrimSpace(p.InstagramCaption); c != "" {
		if !strings.Contains(c, "#") && tags != "" {
			c += "\n\n" + tags
		}
		return TruncateText(c, CaptionLimit)
	}

	lines := []string{strings.TrimSpace(p.Title), ""}
	if lead := KeyLines(leadText(p.BodySections), captionLeadChars); lead != "" {
		lines = append(lines, lead, "")
	}
	if points := DetectPoints(p.BodySections); len(points) > 0 {
		lines = append(lines, "---")
		for i, pt := range points {
			lines = append(lines, fmt.Sprintf("%d. %s", i+1, pt.Title))
			if d := captionDetail(pt); d != "" {
				lines = append(lines, d)
			}
			lines = append(lines, "")
		}
		lines = append(lines, "---", "")
	}

	footer := captionCTA(p.Category)
	if tags != "" {
		footer += "\n\n" + tags
	}
	body := strings.Join(lines, "\n")
	budget := CaptionLimit - TextLen(footer) - 1
	if TextLen(body) > budget {
		body = TruncateWords(body, budget-1) + "\n"
	}
	return TruncateText(body+"\n"+footer, CaptionLimit)
}

func captionDetail(pt Point) string {
	if pt.Text != "" {
		if d := KeyLines(pt.Text, captionItemChars); d != "" {
			return d
		}
	}
	return TruncateWords(pt.Desc, captionItemChars)
}

func captionCTA(c post.Category) string {
	if c.IsPrevention() {
		return captionCTAPrevention
	}
	return captionCTADefault
}

// Hashtags builds the trailing tag line: up to six post tags plus the brand tags,
// deduplicated, at most eight, whitespace removed.
func Hashtags(tags []string) string {
	if len(tags) > maxPostTags {
		tags = tags[:maxPostTags]
	}
	all := append(append([]string{}, tags...), brandTags...)
	seen := make(map[string]struct{}, len(all))
	out := make([]string, 0, maxHashtags)
	for _, t := range all {
		t = strings.Join(strings.Fields(strings.TrimLeft(strings.TrimSpace(t), "#")), "")
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, "#"+t)
		if len(out) == maxHashtags {
			break
		}
	}
	return strings.Join(out, " ")
}
