// Package site renders the static blog: one page per post, the index, sitemap.xml and robots.txt.
package site

import (
	"context"
	"embed"
	"encoding/xml"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/zcheck/blogpipe/internal/post"
	"github.com/zcheck/blogpipe/internal/transform"
	"github.com/zcheck/blogpipe/pkg/logger"
	"github.com/zcheck/blogpipe/pkg/metrics"
	"go.uber.org/zap"
)

const (
	DefaultCategory = "인테리어 가이드"
	sitemapNS       = "http://www.sitemaps.org/schemas/sitemap/0.9"
)

//go:embed templates/*.html
var defaultTemplates embed.FS

type Config struct {
	SiteURL   string
	DistDir   string
	PublicDir string
	// TemplateDir overrides the embedded post.html and index.html when set.
	TemplateDir string
}

// Result summarizes one build.
type Result struct {
	Pages  int `json:"pages"`
	Images int `json:"images"`
}

type Builder struct {
	cfg      Config
	postTmpl *template.Template
	index    *template.Template
	policy   *bluemonday.Policy
	now      func() time.Time
}

func NewBuilder(cfg Config) (*Builder, error) {
	if cfg.SiteURL == "" {
		cfg.SiteURL = post.DefaultSiteURL
	}
	cfg.SiteURL = strings.TrimRight(cfg.SiteURL, "/")
	if cfg.DistDir == "" {
		cfg.DistDir = "dist"
	}

	var src fs.FS = defaultTemplates
	dir := "templates"
	if cfg.TemplateDir != "" {
		src, dir = os.DirFS(cfg.TemplateDir), "."
	}
	postTmpl, err := template.ParseFS(src, filepath.ToSlash(filepath.Join(dir, "post.html")))
	if err != nil {
		return nil, fmt.Errorf("parse post template: %w", err)
	}
	index, err := template.ParseFS(src, filepath.ToSlash(filepath.Join(dir, "index.html")))
	if err != nil {
		return nil, fmt.Errorf("parse index template: %w", err)
	}
	return &Builder{cfg: cfg, postTmpl: postTmpl, index: index, policy: bluemonday.UGCPolicy(), now: time.Now}, nil
}

type page struct {
	Slug         string
	URL          string
	Title        string
	Description  string
	Keywords     string
	Category     string
	Author       string
	ReadTime     string
	HeroImage    string
	OGImage      string
	PublishedISO string
	DateDisplay  string
	DateShort    string
	LastMod      string
	Tags         []string
	Body         template.HTML
}

// Build replaces DistDir with a fresh render of posts.
func (b *Builder) Build(ctx context.Context, posts []*post.Post) (*Result, error) {
	if err := os.RemoveAll(b.cfg.DistDir); err != nil {
		return nil, fmt.Errorf("clean dist: %w", err)
	}
	if err := os.MkdirAll(b.cfg.DistDir, 0o755); err != nil {
		return nil, err
	}
	if b.cfg.PublicDir != "" {
		if err := copyDir(b.cfg.PublicDir, b.cfg.DistDir); err != nil {
			return nil, fmt.Errorf("copy public: %w", err)
		}
	}

	res := &Result{}
	pages := make([]page, 0, len(posts))
	for _, p := range posts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !post.ValidSlug(p.Slug) {
			logger.L().Warn("skipping post with invalid slug", zap.String("slug", p.Slug))
			continue
		}
		pg, copied, err := b.writePost(p)
		if err != nil {
			return nil, fmt.Errorf("post %s: %w", p.Slug, err)
		}
		if copied {
			res.Images++
		}
		pages = append(pages, pg)
		res.Pages++
		metrics.SitePagesWritten.Inc()
	}

	if err := b.writeIndex(pages); err != nil {
		return nil, err
	}
	if err := b.writeSitemap(pages); err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(b.cfg.DistDir, "robots.txt"), []byte(Robots(b.cfg.SiteURL)), 0o644); err != nil {
		return nil, err
	}
	logger.L().Info("site built", zap.Int("pages", res.Pages), zap.Int("images", res.Images), zap.String("dist", b.cfg.DistDir))
	return res, nil
}

func (b *Builder) writePost(p *post.Post) (page, bool, error) {
	pg := b.pageFor(p)
	copied := false
	if p.HeroImageLocal != "" {
		ok, err := b.copyHero(p)
		if err != nil {
			return pg, false, err
		}
		if ok {
			copied = true
			pg.HeroImage = "/images/" + p.Slug + ".png"
			pg.OGImage = post.AbsoluteURL(b.cfg.SiteURL, pg.HeroImage)
		}
	}

	dir := filepath.Join(b.cfg.DistDir, p.Slug)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return pg, copied, err
	}
	f, err := os.Create(filepath.Join(dir, "index.html"))
	if err != nil {
		return pg, copied, err
	}
	defer f.Close()
	if err := b.postTmpl.Execute(f, pg); err != nil {
		return pg, copied, fmt.Errorf("render: %w", err)
	}
	return pg, copied, nil
}

func (b *Builder) pageFor(p *post.Post) page {
	at := p.PublishedAt
	if at.IsZero() {
		at = b.now()
	}
	kst := at.In(post.KST)

	category := string(p.Category)
	if category == "" {
		category = DefaultCategory
	}
	keywords := p.Keywords
	if keywords == "" {
		keywords = strings.Join(p.Tags, ", ")
	}
	description := p.Excerpt
	if description == "" {
		description = p.Title
	}

	pg := page{
		Slug:         p.Slug,
		URL:          post.URL(b.cfg.SiteURL, p.Slug),
		Title:        p.Title,
		Description:  description,
		Keywords:     keywords,
		Category:     category,
		Author:       p.Author,
		ReadTime:     p.ReadTime,
		HeroImage:    p.HeroImage,
		PublishedISO: at.UTC().Format(time.RFC3339),
		DateDisplay:  DateDisplay(at),
		DateShort:    kst.Format("2006.01.02"),
		LastMod:      kst.Format("2006-01-02"),
		Tags:         p.Tags,
		Body:         b.body(p),
	}
	if p.HeroImage != "" {
		pg.OGImage = post.AbsoluteURL(b.cfg.SiteURL, p.HeroImage)
	}
	return pg
}

// body renders structured sections for local posts. Remote posts with stored HTML keep
// that HTML, sanitized, even when sections are also present.
func (b *Builder) body(p *post.Post) template.HTML {
	if p.Source == post.SourceRemote && p.ContentHTML != "" {
		return template.HTML(b.policy.Sanitize(p.ContentHTML))
	}
	if len(p.BodySections) > 0 {
		return template.HTML(transform.RenderBodyHTML(p.BodySections))
	}
	return template.HTML(b.policy.Sanitize(p.ContentHTML))
}

func (b *Builder) copyHero(p *post.Post) (bool, error) {
	src, err := os.Open(p.HeroImageLocal)
	if err != nil {
		if os.IsNotExist(err) {
			logger.L().Warn("hero image missing", zap.String("slug", p.Slug), zap.String("path", p.HeroImageLocal))
			return false, nil
		}
		return false, err
	}
	defer src.Close()

	dir := filepath.Join(b.cfg.DistDir, "images")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, err
	}
	if err := copyFile(src, filepath.Join(dir, p.Slug+".png")); err != nil {
		return false, err
	}
	return true, nil
}

type indexPage struct {
	SiteURL string
	Posts   []page
}

func (b *Builder) writeIndex(pages []page) error {
	f, err := os.Create(filepath.Join(b.cfg.DistDir, "index.html"))
	if err != nil {
		return err
	}
	defer f.Close()
	if err := b.index.Execute(f, indexPage{SiteURL: b.cfg.SiteURL, Posts: pages}); err != nil {
		return fmt.Errorf("render index: %w", err)
	}
	return nil
}

type urlset struct {
	XMLName xml.Name     `xml:"urlset"`
	Xmlns   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc      string `xml:"loc"`
	LastMod  string `xml:"lastmod,omitempty"`
	Priority string `xml:"priority,omitempty"`
}

func (b *Builder) writeSitemap(pages []page) error {
	f, err := os.Create(filepath.Join(b.cfg.DistDir, "sitemap.xml"))
	if err != nil {
		return err
	}
	defer f.Close()
	return encodeSitemap(f, b.cfg.SiteURL, pages)
}

// encodeSitemap lists the home page at priority 1.0 followed by every page with its lastmod date.
func encodeSitemap(w io.Writer, siteURL string, pages []page) error {
	set := urlset{Xmlns: sitemapNS, URLs: []sitemapURL{{Loc: siteURL + "/", Priority: "1.0"}}}
	for _, pg := range pages {
		set.URLs = append(set.URLs, sitemapURL{Loc: pg.URL, LastMod: pg.LastMod})
	}
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(set); err != nil {
		return fmt.Errorf("encode sitemap: %w", err)
	}
	return nil
}

// Robots allows everything and points crawlers at the sitemap.
func Robots(siteURL string) string {
	return "User-agent: *\nAllow: /\nSitemap: " + strings.TrimRight(siteURL, "/") + "/sitemap.xml\n"
}

// DateDisplay formats t in KST as "YYYY년 M월 D일".
func DateDisplay(t time.Time) string {
	k := t.In(post.KST)
	return fmt.Sprintf("%d년 %d월 %d일", k.Year(), int(k.Month()), k.Day())
}

func copyDir(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == src {
				return filepath.SkipDir
			}
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		in, err := os.Open(path)
		if err != nil {
			return err
		}
		defer in.Close()
		return copyFile(in, target)
	})
}

func copyFile(src io.Reader, dst string) error {
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
