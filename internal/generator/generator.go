// Package generator produces post documents and hero images with the Gemini API.
package generator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/zcheck/blogpipe/internal/post"
	"github.com/zcheck/blogpipe/internal/topics"
	"github.com/zcheck/blogpipe/pkg/httpx"
	"github.com/zcheck/blogpipe/pkg/logger"
	"github.com/zcheck/blogpipe/pkg/metrics"
	"github.com/zcheck/blogpipe/pkg/retry"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

const (
	DefaultTextModel  = "gemini-2.5-flash"
	DefaultImageModel = "gemini-2.5-flash-image"
	defaultImageMIME  = "image/png"
	serviceName       = "gemini"
)

var (
	ErrEmptyResponse = errors.New("generation response has no content")
	ErrNoImage       = errors.New("generation response has no inline image")

	nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)
)

type Config struct {
	APIKey  string
	BaseURL string

	TextModel  string
	ImageModel string

	Temperature      float32
	RetryTemperature float32
	MaxOutputTokens  int32
	MinBodyChars     int

	HTTPClient *http.Client
}

// Image is one generated image, base64 encoded.
type Image struct {
	Base64   string
	MIMEType string
}

type Generator struct {
	client *genai.Client
	cfg    Config
	now    func() time.Time
}

// New fails with httpx.ErrMissingCredential when no API key is configured.
func New(ctx context.Context, cfg Config) (*Generator, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("gemini api key: %w", httpx.ErrMissingCredential)
	}
	if cfg.TextModel == "" {
		cfg.TextModel = DefaultTextModel
	}
	if cfg.ImageModel == "" {
		cfg.ImageModel = DefaultImageModel
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.85
	}
	if cfg.RetryTemperature == 0 {
		cfg.RetryTemperature = 1.0
	}
	if cfg.MaxOutputTokens == 0 {
		cfg.MaxOutputTokens = 8192
	}
	if cfg.MinBodyChars == 0 {
		cfg.MinBodyChars = 1200
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  cfg.HTTPClient,
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.BaseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Generator{client: client, cfg: cfg, now: time.Now}, nil
}

// GeneratePost writes a post for the topic. A body shorter than MinBodyChars is retried
// once at RetryTemperature; the second result is accepted whatever its length.
func (g *Generator) GeneratePost(ctx context.Context, topic topics.Topic) (*post.Post, error) {
	prompt := PostPrompt(topic.Keyword)
	p, err := retry.Until(ctx, retry.Policy{MaxAttempts: 2},
		func(ctx context.Context, attempt int) (*post.Post, error) {
			temp := g.cfg.Temperature
			if attempt > 1 {
				temp = g.cfg.RetryTemperature
				logger.L().Info("generated body too short, retrying",
					zap.String("keyword", topic.Keyword), zap.Float32("temperature", temp))
			}
			return g.generateOnce(ctx, prompt, temp)
		},
		func(p *post.Post) bool { return BodyLength(p) >= g.cfg.MinBodyChars },
	)
	if err != nil {
		return nil, err
	}

	p.Slug = g.fixSlug(topic, p.Slug)
	if p.PublishedAt.IsZero() {
		p.PublishedAt = g.now()
	}
	return p, nil
}

func (g *Generator) generateOnce(ctx context.Context, prompt string, temp float32) (*post.Post, error) {
	metrics.GenerationAttempts.WithLabelValues("text").Inc()
	resp, err := g.client.Models.GenerateContent(ctx, g.cfg.TextModel,
		[]*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)},
		&genai.GenerateContentConfig{
			Temperature:      genai.Ptr(temp),
			MaxOutputTokens:  g.cfg.MaxOutputTokens,
			ResponseMIMEType: "application/json",
			ResponseSchema:   postSchema,
		})
	if err != nil {
		return nil, upstreamError(err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return nil, ErrEmptyResponse
	}
	return post.FromGenerated(text)
}

// GenerateImage returns the first inline image of the response.
func (g *Generator) GenerateImage(ctx context.Context, prompt string) (*Image, error) {
	metrics.GenerationAttempts.WithLabelValues("image").Inc()
	resp, err := g.client.Models.GenerateContent(ctx, g.cfg.ImageModel,
		[]*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)},
		&genai.GenerateContentConfig{
			ResponseModalities: []string{string(genai.ModalityImage), string(genai.ModalityText)},
		})
	if err != nil {
		return nil, upstreamError(err)
	}
	for _, c := range resp.Candidates {
		if c == nil || c.Content == nil {
			continue
		}
		for _, part := range c.Content.Parts {
			if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
				continue
			}
			mime := part.InlineData.MIMEType
			if mime == "" {
				mime = defaultImageMIME
			}
			return &Image{Base64: encodeBase64(part.InlineData.Data), MIMEType: mime}, nil
		}
	}
	return nil, ErrNoImage
}

// BodyLength counts the reader-visible characters of the body.
func BodyLength(p *post.Post) int {
	if p == nil {
		return 0
	}
	return utf8.RuneCountInString(strings.TrimSpace(post.PlainText(p)))
}

// fixSlug prefers the topic's preassigned slug, then the generated one cleaned up,
// then a dated fallback.
func (g *Generator) fixSlug(topic topics.Topic, generated string) string {
	if post.ValidSlug(topic.Slug) {
		return topic.Slug
	}
	if s := Slugify(generated); s != "" {
		return s
	}
	return "post-" + g.now().In(post.KST).Format("20060102-150405")
}

// Slugify lowercases s and collapses every run of non [a-z0-9] characters into one hyphen.
func Slugify(s string) string {
	s = nonSlugChars.ReplaceAllString(strings.ToLower(s), "-")
	return strings.Trim(s, "-")
}

func upstreamError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &httpx.APIError{Service: serviceName, StatusCode: apiErr.Code, Body: apiErr.Message}
	}
	return fmt.Errorf("%s request: %w", serviceName, err)
}
