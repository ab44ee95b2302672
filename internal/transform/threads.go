package transform

import (
	"fmt"
	"strings"

	"github.com/zcheck/blogpipe/internal/post"
)

// ThreadsLimit is the per-entry length limit of a Threads post, in TextLen units.
const ThreadsLimit = 500

const (
	threadsCTAPrevention = "비슷한 경험 있어?\n\n인테리어 피해사례 공유해줘.\n다른 사람들이 같은 피해 안 당하게."
	threadsCTADefault    = "도움이 됐으면 인테리어 업체 경험도 후기로 남겨줘.\n다른 사람들 업체 고를 때 큰 도움이 되거든."
)

// ThreadsChain returns the authored chain when present, otherwise an intro entry,
// one entry per titled point, one per callout, and a closing call to action.
// TextLen of a derived entry never exceeds ThreadsLimit.
func ThreadsChain(p *post.Post, postURL string) []string {
	if len(p.ThreadsChain) > 0 {
		return append([]string(nil), p.ThreadsChain...)
	}

	chain := []string{threadsIntro(p, postURL)}
	n := 0
	for _, pt := range DetectPoints(p.BodySections) {
		if pt.Untitled {
			continue
		}
		n++
		chain = append(chain, SplitEntry(pointEntry(n, pt))...)
	}
	for _, s := range p.BodySections {
		if s.Type != post.SectionCallout || (s.Title == "" && s.Content == "") {
			continue
		}
		entry := strings.TrimSpace(orDefault(s.Emoji, calloutEmoji) + " " + StripMarkers(s.Title))
		if c := strings.TrimSpace(StripMarkers(s.Content)); c != "" {
			entry += "\n\n" + c
		}
		chain = append(chain, SplitEntry(Informal(entry))...)
	}
	return append(chain, fitWithSuffix(threadsCTA(p.Category), "\n\n전체 글: "+postURL, ThreadsLimit))
}

func threadsIntro(p *post.Post, postURL string) string {
	title := strings.TrimSpace(p.Title)
	desc := Informal(strings.TrimSuffix(strings.TrimSpace(p.Excerpt), ellipsis))
	head := title
	if desc != "" {
		head += "\n\n" + desc
	}
	suffix := "\n\n" + postURL
	if TextLen(head)+TextLen(suffix) <= ThreadsLimit {
		return head + suffix
	}

	avail := ThreadsLimit - TextLen(suffix) - TextLen(title) - 2
	if desc != "" && avail > len(ellipsis) {
		return title + "\n\n" + TruncateWords(desc, avail) + suffix
	}
	return fitWithSuffix(title, suffix, ThreadsLimit)
}

func pointEntry(n int, pt Point) string {
	if pt.Desc != "" {
		return fmt.Sprintf("%d. %s\n   → %s", n, pt.Title, Informal(pt.Desc))
	}
	entry := fmt.Sprintf("%d. %s", n, pt.Title)
	if line := KeyLine(pt.Text); line != "" {
		entry += "\n" + Informal(line)
	}
	return entry
}

func threadsCTA(c post.Category) string {
	if c.IsPrevention() {
		return threadsCTAPrevention
	}
	return threadsCTADefault
}

// fitWithSuffix keeps suffix intact and shortens head so the whole stays within limit.
func fitWithSuffix(head, suffix string, limit int) string {
	if TextLen(head)+TextLen(suffix) <= limit {
		return head + suffix
	}
	if TextLen(suffix) >= limit {
		return TruncateText(strings.TrimSpace(suffix), limit)
	}
	return TruncateWords(head, limit-TextLen(suffix)) + suffix
}

// SplitEntry returns s unchanged when it fits, otherwise two entries split at the line or
// word boundary nearest the middle. Each half is capped at ThreadsLimit.
func SplitEntry(s string) []string {
	if TextLen(s) <= ThreadsLimit {
		return []string{s}
	}
	r := []rune(s)
	at := nearestBoundary(r)
	var out []string
	for _, part := range []string{string(r[:at]), string(r[at:])} {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, TruncateWords(part, ThreadsLimit))
		}
	}
	return out
}

func nearestBoundary(r []rune) int {
	mid := len(r) / 2
	for _, sep := range []rune{'\n', ' '} {
		best := -1
		for i, c := range r {
			if c != sep || i == 0 {
				continue
			}
			if best < 0 || abs(i-mid) < abs(best-mid) {
				best = i
			}
		}
		if best > 0 {
			return best
		}
	}
	return mid
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
