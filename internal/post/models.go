package post

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"
)

var (
	ErrInvalidSlug        = errors.New("invalid slug")
	ErrMalformedSections  = errors.New("body_sections must be a list of section records")
	slugPattern           = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
	preventionCategoryPat = regexp.MustCompile(`피해|사기|예방`)
)

// Category is the closed set of post categories.
type Category string

const (
	CategoryInfo       Category = "정보 및 참고사항"
	CategoryPrevention Category = "피해예방"
)

// NormalizeCategory maps free-form category text onto the closed enum.
func NormalizeCategory(s string) Category {
	if preventionCategoryPat.MatchString(s) {
		return CategoryPrevention
	}
	return CategoryInfo
}

// IsPrevention reports whether the category selects the prevention/fraud call-to-action.
func (c Category) IsPrevention() bool {
	return preventionCategoryPat.MatchString(string(c))
}

// Source records where a post was loaded from. It is not persisted.
type Source int

const (
	SourceUnknown Source = iota
	SourceLocal
	SourceRemote
	SourceGenerated
)

// Section types.
const (
	SectionHeading    = "heading"
	SectionSubheading = "subheading"
	SectionText       = "text"
	SectionList       = "list"
	SectionImage      = "image"
	SectionChecklist  = "checklist"
	SectionTip        = "tip"
	SectionWarning    = "warning"
	SectionStep       = "step"
	SectionHighlight  = "highlight"
	SectionTable      = "table"
	SectionKeypoints  = "keypoints"
	SectionCallout    = "callout"
)

// KeyPoint is one entry of a keypoints section.
type KeyPoint struct {
	Title string `json:"title" bson:"title"`
	Desc  string `json:"desc" bson:"desc"`
}

// Section is one tagged block of a structured body. Fields not used by Type stay empty.
type Section struct {
	Type    string     `json:"type" bson:"type"`
	Content string     `json:"content,omitempty" bson:"content,omitempty"`
	Title   string     `json:"title,omitempty" bson:"title,omitempty"`
	Emoji   string     `json:"emoji,omitempty" bson:"emoji,omitempty"`
	Items   []string   `json:"items,omitempty" bson:"items,omitempty"`
	Headers []string   `json:"headers,omitempty" bson:"headers,omitempty"`
	Rows    [][]string `json:"rows,omitempty" bson:"rows,omitempty"`
	Points  []KeyPoint `json:"points,omitempty" bson:"points,omitempty"`
	Src     string     `json:"src,omitempty" bson:"src,omitempty"`
	Alt     string     `json:"alt,omitempty" bson:"alt,omitempty"`
	Caption string     `json:"caption,omitempty" bson:"caption,omitempty"`
}

// Sections decodes leniently: the value must be a JSON array of objects, but an object whose
// fields have the wrong shape is dropped instead of failing the whole document.
type Sections []Section

func (s *Sections) UnmarshalJSON(b []byte) error {
	trimmed := bytes.TrimSpace(b)
	if bytes.Equal(trimmed, []byte("null")) {
		*s = nil
		return nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedSections, err)
	}
	out := make(Sections, 0, len(raw))
	for i, r := range raw {
		r = bytes.TrimSpace(r)
		if len(r) == 0 || r[0] != '{' {
			return fmt.Errorf("%w: element %d is not an object", ErrMalformedSections, i)
		}
		var sec Section
		if err := json.Unmarshal(r, &sec); err != nil {
			continue
		}
		out = append(out, sec)
	}
	*s = out
	return nil
}

// Post is the canonical post document shared by every store and publisher.
type Post struct {
	Slug             string    `json:"slug" bson:"slug"`
	Title            string    `json:"title" bson:"title"`
	Category         Category  `json:"category" bson:"category"`
	Excerpt          string    `json:"meta_description" bson:"meta_description"`
	Keywords         string    `json:"keywords,omitempty" bson:"keywords,omitempty"`
	Tags             []string  `json:"tags" bson:"tags"`
	Author           string    `json:"author,omitempty" bson:"author,omitempty"`
	ReadTime         string    `json:"read_time,omitempty" bson:"read_time,omitempty"`
	PublishedAt      time.Time `json:"published_at" bson:"published_at"`
	Published        bool      `json:"published" bson:"published"`
	HeroImage        string    `json:"hero_image,omitempty" bson:"hero_image,omitempty"`
	HeroImageLocal   string    `json:"hero_image_local,omitempty" bson:"hero_image_local,omitempty"`
	ContentHTML      string    `json:"content_html,omitempty" bson:"content_html,omitempty"`
	BodySections     Sections  `json:"body_sections,omitempty" bson:"body_sections,omitempty"`
	InstagramCaption string    `json:"instagram_caption,omitempty" bson:"instagram_caption,omitempty"`
	ThreadsChain     []string  `json:"threads_chain,omitempty" bson:"threads_chain,omitempty"`
	UpdatedAt        time.Time `json:"updated_at" bson:"updated_at"`

	Source Source `json:"-" bson:"-"`
}

// ValidSlug reports whether s is a lowercase hyphenated identifier.
func ValidSlug(s string) bool {
	return slugPattern.MatchString(s)
}

// Validate checks the fields every store requires.
func (p *Post) Validate() error {
	if !ValidSlug(p.Slug) {
		return fmt.Errorf("%w: %q", ErrInvalidSlug, p.Slug)
	}
	if p.Title == "" {
		return errors.New("title is required")
	}
	return nil
}
