package transform

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/zcheck/blogpipe/internal/post"
)

const ellipsis = "..."

var (
	paragraphSplit = regexp.MustCompile(`\n\s*\n`)
	leadingOrdinal = regexp.MustCompile(`^\d+[.)]\s*`)
	boldTitle      = regexp.MustCompile(`\*\*(.+?)\*\*`)
	emphasisMarker = regexp.MustCompile(`\*\*|==`)
)

// Point is one content point detected in a body, shared by the caption and chain derivers.
type Point struct {
	Title string
	Desc  string
	Text  string
	// Untitled is set when neither a heading nor a bold phrase named the point and
	// Title is the positional "포인트 N".
	Untitled bool
}

// DetectPoints returns the keypoints of the first keypoints section when present,
// otherwise one point per text section after the lead. A point is titled by the heading
// before it, else its first bold phrase, else "포인트 N".
func DetectPoints(sections []post.Section) []Point {
	texts := bodyTexts(sections)
	for _, s := range sections {
		if s.Type != post.SectionKeypoints || len(s.Points) == 0 {
			continue
		}
		out := make([]Point, 0, len(s.Points))
		for i, kp := range s.Points {
			pt := Point{Title: CleanHeading(kp.Title), Desc: strings.TrimSpace(kp.Desc)}
			if i < len(texts) {
				pt.Text = texts[i]
			}
			out = append(out, pt)
		}
		return out
	}

	var out []Point
	current := ""
	lead := true
	for _, s := range sections {
		switch s.Type {
		case post.SectionHeading, post.SectionSubheading:
			current = CleanHeading(s.Content)
		case post.SectionText:
			if strings.TrimSpace(s.Content) == "" {
				continue
			}
			if lead {
				lead, current = false, ""
				continue
			}
			pt := Point{Title: current, Text: s.Content}
			if pt.Title == "" {
				if m := boldTitle.FindStringSubmatch(s.Content); m != nil {
					pt.Title = CleanHeading(m[1])
				}
			}
			if pt.Title == "" {
				pt.Title, pt.Untitled = fmt.Sprintf("포인트 %d", len(out)+1), true
			}
			out = append(out, pt)
			current = ""
		}
	}
	return out
}

// bodyTexts lists text section contents after the lead paragraph.
func bodyTexts(sections []post.Section) []string {
	var out []string
	first := true
	for _, s := range sections {
		if s.Type != post.SectionText || strings.TrimSpace(s.Content) == "" {
			continue
		}
		if first {
			first = false
			continue
		}
		out = append(out, s.Content)
	}
	return out
}

func leadText(sections []post.Section) string {
	for _, s := range sections {
		if s.Type == post.SectionText && strings.TrimSpace(s.Content) != "" {
			return s.Content
		}
	}
	return ""
}

// CleanHeading drops a leading ordinal and emphasis markers.
func CleanHeading(s string) string {
	s = StripMarkers(strings.TrimSpace(s))
	return strings.TrimSpace(leadingOrdinal.ReplaceAllString(s, ""))
}

// StripMarkers removes ** and == emphasis markers.
func StripMarkers(s string) string {
	return emphasisMarker.ReplaceAllString(s, "")
}

// KeyLines takes whole paragraphs while they fit in max characters; when even the first
// paragraph is too long it is cut at a word boundary.
func KeyLines(text string, max int) string {
	var paras []string
	for _, p := range paragraphSplit.Split(StripMarkers(text), -1) {
		p = strings.Join(strings.Fields(p), " ")
		if p != "" {
			paras = append(paras, p)
		}
	}
	if len(paras) == 0 {
		return ""
	}
	result := ""
	for _, p := range paras {
		next := p
		if result != "" {
			next = result + "\n" + p
		}
		if TextLen(next) > max {
			break
		}
		result = next
	}
	if result == "" {
		result = TruncateWords(paras[0], max)
	}
	return result
}

// KeyLine picks the emphasized line of a text, or its first three lines, capped at 300 characters.
func KeyLine(text string) string {
	var lines []string
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	if len(lines) == 0 {
		return ""
	}
	for _, l := range lines {
		if emphasisMarker.MatchString(l) {
			return TruncateWords(StripMarkers(l), 300)
		}
	}
	if len(lines) > 3 {
		lines = lines[:3]
	}
	return TruncateWords(StripMarkers(strings.Join(lines, "\n")), 300)
}

// TruncateWords shortens s to at most max units (see TextLen), ending with an ellipsis.
// The cut falls on the last whitespace before the limit; only a single word longer than
// the whole budget is cut inside the word.
func TruncateWords(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if TextLen(s) <= max {
		return s
	}
	if max <= len(ellipsis) {
		return TruncateText(s, max)
	}
	cut := TruncateText(s, max-len(ellipsis))
	if rest := s[len(cut):]; !startsWithSpace(rest) {
		if i := strings.LastIndexAny(cut, " \n\t"); i > 0 {
			cut = cut[:i]
		}
	}
	if trimmed := strings.TrimRight(cut, " \n\t,."); trimmed != "" {
		cut = trimmed
	}
	return cut + ellipsis
}

// TruncateText cuts s to at most max units without splitting a rune.
func TruncateText(s string, max int) string {
	if max <= 0 {
		return ""
	}
	n := 0
	for i, r := range s {
		w := utf16.RuneLen(r)
		if w < 0 {
			w = 1
		}
		if n+w > max {
			return s[:i]
		}
		n += w
	}
	return s
}

// TextLen counts s in UTF-16 code units, the unit Instagram and Threads apply their
// length limits in. Characters outside the BMP, such as most emoji, count twice.
func TextLen(s string) int {
	n := 0
	for _, r := range s {
		if w := utf16.RuneLen(r); w > 0 {
			n += w
		} else {
			n++
		}
	}
	return n
}

func startsWithSpace(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return r == ' ' || r == '\n' || r == '\t'
}
