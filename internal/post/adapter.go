package post

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/zcheck/blogpipe/pkg/logger"
	"go.uber.org/zap"
)

// KST is the zone used for dates shown to readers and for published markers.
var KST = time.FixedZone("KST", 9*60*60)

const (
	DefaultAuthor     = "집첵 에디터"
	readCharsPerMin   = 500
	minReadTimeMinute = 3
)

var (
	codeFence = regexp.MustCompile("(?s)^\\s*```(?:json)?\\s*(.*?)\\s*```\\s*$")
	htmlTag   = regexp.MustCompile(`<[^>]+>`)
)

// rawPost accepts every field spelling the generators, local files and the remote store have used.
type rawPost struct {
	Slug             string          `json:"slug"`
	Title            string          `json:"title"`
	Category         string          `json:"category"`
	MetaDescription  string          `json:"meta_description"`
	Excerpt          string          `json:"excerpt"`
	Keywords         json.RawMessage `json:"keywords"`
	Tags             json.RawMessage `json:"tags"`
	Author           string          `json:"author"`
	ReadTime         string          `json:"read_time"`
	PublishedAt      string          `json:"published_at"`
	PublishedDate    string          `json:"published_date"`
	Published        *bool           `json:"published"`
	HeroImage        string          `json:"hero_image"`
	HeroImageURL     string          `json:"hero_image_url"`
	ThumbnailURL     string          `json:"thumbnail_url"`
	HeroImageLocal   string          `json:"hero_image_local"`
	ContentHTML      string          `json:"content_html"`
	Content          string          `json:"content"`
	BodySections     Sections        `json:"body_sections"`
	InstagramCaption string          `json:"instagram_caption"`
	ThreadsChain     []string        `json:"threads_chain"`
	UpdatedAt        string          `json:"updated_at"`
}

// Decode normalizes one JSON document from any upstream into a Post tagged with src.
func Decode(b []byte, src Source) (*Post, error) {
	var raw rawPost
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("decode post: %w", err)
	}
	p := &Post{
		Slug:             strings.TrimSpace(raw.Slug),
		Title:            strings.TrimSpace(raw.Title),
		Category:         NormalizeCategory(raw.Category),
		Excerpt:          firstNonEmpty(raw.MetaDescription, raw.Excerpt),
		Keywords:         strings.Join(stringList(raw.Keywords), ", "),
		Tags:             stringList(raw.Tags),
		Author:           firstNonEmpty(raw.Author, DefaultAuthor),
		ReadTime:         raw.ReadTime,
		Published:        raw.Published == nil || *raw.Published,
		HeroImage:        firstNonEmpty(raw.HeroImage, raw.HeroImageURL, raw.ThumbnailURL),
		HeroImageLocal:   raw.HeroImageLocal,
		ContentHTML:      firstNonEmpty(raw.ContentHTML, raw.Content),
		BodySections:     raw.BodySections,
		InstagramCaption: raw.InstagramCaption,
		ThreadsChain:     nonEmpty(raw.ThreadsChain),
		Source:           src,
	}
	p.PublishedAt = ParseTime(firstNonEmpty(raw.PublishedAt, raw.PublishedDate))
	p.UpdatedAt = ParseTime(raw.UpdatedAt)
	if p.ReadTime == "" {
		p.ReadTime = ReadTime(p)
	}
	return p, nil
}

// FromGenerated parses the text payload returned by the generation service.
// A surrounding markdown code fence is tolerated.
func FromGenerated(text string) (*Post, error) {
	if m := codeFence.FindStringSubmatch(text); m != nil {
		text = m[1]
	}
	p, err := Decode([]byte(text), SourceGenerated)
	if err != nil {
		return nil, err
	}
	p.Published = true
	return p, nil
}

// LoadLocalDir reads every *.json post under dir, skipping unpublished ones.
// Files that cannot be read or decoded are logged and skipped. A missing directory yields no posts.
func LoadLocalDir(dir string) ([]*Post, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	out := make([]*Post, 0, len(names))
	for _, name := range names {
		b, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			logger.L().Warn("skipping unreadable post file", zap.String("file", name), zap.Error(err))
			continue
		}
		p, err := Decode(b, SourceLocal)
		if err != nil {
			logger.L().Warn("skipping malformed post file", zap.String("file", name), zap.Error(err))
			continue
		}
		if !p.Published {
			continue
		}
		if p.Slug == "" {
			p.Slug = strings.TrimSuffix(name, ".json")
		}
		out = append(out, p)
	}
	return out, nil
}

// ParseTime accepts RFC3339 and the date formats found in stored posts. Unparseable input is the zero time.
func ParseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02", "2006.01.02", "2006. 1. 2."} {
		if t, err := time.ParseInLocation(layout, s, KST); err == nil {
			return t
		}
	}
	return time.Time{}
}

// PlainText returns the reader-visible text of the body.
func PlainText(p *Post) string {
	if len(p.BodySections) == 0 {
		return strings.TrimSpace(htmlTag.ReplaceAllString(p.ContentHTML, " "))
	}
	var b strings.Builder
	add := func(s string) {
		if s = strings.TrimSpace(s); s != "" {
			b.WriteString(s)
			b.WriteByte('\n')
		}
	}
	for _, s := range p.BodySections {
		add(s.Title)
		add(s.Content)
		for _, it := range s.Items {
			add(it)
		}
		for _, pt := range s.Points {
			add(pt.Title)
			add(pt.Desc)
		}
		for _, row := range s.Rows {
			add(strings.Join(row, " "))
		}
	}
	return b.String()
}

// ReadTime estimates reading minutes as "N분".
func ReadTime(p *Post) string {
	n := utf8.RuneCountInString(PlainText(p))
	mins := int(math.Ceil(float64(n) / readCharsPerMin))
	if mins < minReadTimeMinute {
		mins = minReadTimeMinute
	}
	return fmt.Sprintf("%d분", mins)
}

func stringList(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil
		}
		list = strings.Split(s, ",")
	}
	return nonEmpty(list)
}

func nonEmpty(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
