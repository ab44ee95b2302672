// Package transform turns structured post bodies into HTML and per-channel social text.
// Every function here is pure: the same input always yields the same output.
package transform

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/zcheck/blogpipe/internal/post"
)

var (
	escaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
	boldPat = regexp.MustCompile(`\*\*(.+?)\*\*`)
	markPat = regexp.MustCompile(`==(.+?)==`)
)

const (
	checkGlyph       = "✅"
	calloutEmoji     = "💡"
	tipEmoji         = "💡"
	tipDefaultTitle  = "알아두세요"
	warnEmoji        = "⚠️"
	warnDefaultTitle = "주의"
)

// Escape replaces the four HTML-significant characters.
func Escape(s string) string {
	return escaper.Replace(s)
}

// Inline escapes s and then converts **bold** and ==mark== spans.
// Escaping runs first so source angle brackets never become markup.
func Inline(s string) string {
	s = escaper.Replace(s)
	s = boldPat.ReplaceAllString(s, "<strong>$1</strong>")
	return markPat.ReplaceAllString(s, "<mark>$1</mark>")
}

func inlineBreaks(s string) string {
	return strings.ReplaceAll(Inline(strings.TrimSpace(s)), "\n", "<br>")
}

// RenderBodyHTML renders sections in order, one fragment per line.
// Unknown types and sections missing their required fields render nothing.
func RenderBodyHTML(sections []post.Section) string {
	var lines []string
	for _, s := range sections {
		lines = append(lines, renderSection(s)...)
	}
	return strings.Join(lines, "\n")
}

func renderSection(s post.Section) []string {
	switch s.Type {
	case post.SectionHeading:
		return heading("h2", s.Content)
	case post.SectionSubheading:
		return heading("h3", s.Content)
	case post.SectionText:
		return paragraphs(s.Content)
	case post.SectionList:
		return list(`<ul>`, "", s.Items)
	case post.SectionChecklist:
		return list(`<ul class="checklist">`, checkGlyph+" ", s.Items)
	case post.SectionImage:
		return image(s)
	case post.SectionCallout:
		return callout("callout", orDefault(s.Emoji, calloutEmoji), s.Title, s.Content)
	case post.SectionTip:
		return callout("callout tip", orDefault(s.Emoji, tipEmoji), orDefault(s.Title, tipDefaultTitle), s.Content)
	case post.SectionWarning:
		return callout("callout warning", orDefault(s.Emoji, warnEmoji), orDefault(s.Title, warnDefaultTitle), s.Content)
	case post.SectionHighlight:
		return highlight(s)
	case post.SectionStep:
		return steps(s)
	case post.SectionTable:
		return table(s)
	case post.SectionKeypoints:
		return keypoints(s)
	}
	return nil
}

func heading(tag, content string) []string {
	if strings.TrimSpace(content) == "" {
		return nil
	}
	return []string{fmt.Sprintf("<%s>%s</%s>", tag, Inline(strings.TrimSpace(content)), tag)}
}

func paragraphs(content string) []string {
	var out []string
	for _, p := range strings.Split(content, "\n\n") {
		if p = strings.TrimSpace(p); p == "" {
			continue
		}
		out = append(out, "<p>"+inlineBreaks(p)+"</p>")
	}
	return out
}

func list(open, prefix string, items []string) []string {
	if len(items) == 0 {
		return nil
	}
	out := []string{open}
	for _, it := range items {
		out = append(out, "<li>"+prefix+Inline(strings.TrimSpace(it))+"</li>")
	}
	return append(out, "</ul>")
}

func image(s post.Section) []string {
	if s.Src == "" {
		return nil
	}
	out := []string{"<figure>", fmt.Sprintf(`<img src="%s" alt="%s" loading="lazy">`, Escape(s.Src), Escape(s.Alt))}
	if s.Caption != "" {
		out = append(out, "<figcaption>"+Inline(s.Caption)+"</figcaption>")
	}
	return append(out, "</figure>")
}

func callout(class, emoji, title, content string) []string {
	if title == "" && content == "" {
		return nil
	}
	out := []string{fmt.Sprintf(`<div class="%s">`, class)}
	head := `<span class="callout-emoji">` + Escape(emoji) + `</span>`
	if title != "" {
		head += ` <strong class="callout-title">` + Inline(strings.TrimSpace(title)) + `</strong>`
	}
	out = append(out, head)
	if content != "" {
		out = append(out, "<p>"+inlineBreaks(content)+"</p>")
	}
	return append(out, "</div>")
}

func highlight(s post.Section) []string {
	if s.Content == "" {
		return nil
	}
	out := []string{`<div class="highlight">`}
	if s.Title != "" {
		out = append(out, "<strong>"+Inline(s.Title)+"</strong>")
	}
	out = append(out, "<p>"+inlineBreaks(s.Content)+"</p>")
	return append(out, "</div>")
}

func steps(s post.Section) []string {
	items := s.Items
	if len(items) == 0 && s.Content != "" {
		items = []string{s.Content}
	}
	if len(items) == 0 {
		return nil
	}
	out := []string{`<div class="steps">`}
	if s.Title != "" {
		out = append(out, `<p class="steps-title">`+Inline(s.Title)+`</p>`)
	}
	out = append(out, "<ol>")
	for i, it := range items {
		out = append(out, fmt.Sprintf(`<li><span class="step-number">%d</span> %s</li>`, i+1, inlineBreaks(it)))
	}
	return append(out, "</ol>", "</div>")
}

func table(s post.Section) []string {
	if len(s.Headers) == 0 && len(s.Rows) == 0 {
		return nil
	}
	out := []string{`<div class="table-wrap">`, "<table>"}
	if len(s.Headers) > 0 {
		var b strings.Builder
		b.WriteString("<thead><tr>")
		for _, h := range s.Headers {
			b.WriteString("<th>" + Inline(h) + "</th>")
		}
		b.WriteString("</tr></thead>")
		out = append(out, b.String())
	}
	if len(s.Rows) > 0 {
		out = append(out, "<tbody>")
		for _, row := range s.Rows {
			var b strings.Builder
			b.WriteString("<tr>")
			for _, cell := range row {
				b.WriteString("<td>" + Inline(cell) + "</td>")
			}
			b.WriteString("</tr>")
			out = append(out, b.String())
		}
		out = append(out, "</tbody>")
	}
	return append(out, "</table>", "</div>")
}

func keypoints(s post.Section) []string {
	if len(s.Points) == 0 {
		return nil
	}
	out := []string{`<div class="keypoints">`}
	if s.Title != "" {
		out = append(out, `<p class="keypoints-title">`+Inline(s.Title)+`</p>`)
	}
	out = append(out, "<ol>")
	for i, p := range s.Points {
		line := fmt.Sprintf(`<li><span class="keypoint-number">%d</span> <strong>%s</strong>`, i+1, Inline(p.Title))
		if p.Desc != "" {
			line += " " + Inline(p.Desc)
		}
		out = append(out, line+"</li>")
	}
	return append(out, "</ol>", "</div>")
}

func orDefault(v, d string) string {
	if strings.TrimSpace(v) == "" {
		return d
	}
	return v
}
