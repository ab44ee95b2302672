package generator

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/zcheck/blogpipe/internal/topics"
	"github.com/zcheck/blogpipe/pkg/httpx"
)

type geminiStub struct {
	mu     sync.Mutex
	temps  []float64
	paths  []string
	handle func(n int, w http.ResponseWriter)
}

func (s *geminiStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body struct {
		GenerationConfig struct {
			Temperature *float64 `json:"temperature"`
		} `json:"generationConfig"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	s.mu.Lock()
	s.paths = append(s.paths, r.URL.Path)
	if body.GenerationConfig.Temperature != nil {
		s.temps = append(s.temps, *body.GenerationConfig.Temperature)
	}
	n := len(s.paths)
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	s.handle(n, w)
}

func textResponse(t *testing.T, doc map[string]any) []byte {
	t.Helper()
	inner, err := json.Marshal(doc)
	require.NoError(t, err)
	out, err := json.Marshal(map[string]any{
		"candidates": []any{map[string]any{
			"content": map[string]any{"role": "model", "parts": []any{map[string]any{"text": string(inner)}}},
		}},
	})
	require.NoError(t, err)
	return out
}

func postDoc(slug string, bodyChars int) map[string]any {
	return map[string]any{
		"slug":             slug,
		"title":            "욕실 리모델링 체크리스트 7가지",
		"category":         "정보",
		"meta_description": "요약",
		"tags":             []string{"인테리어", "욕실"},
		"body_sections": []any{
			map[string]any{"type": "text", "content": strings.Repeat("가", bodyChars)},
		},
	}
}

func newTestGenerator(t *testing.T, stub *geminiStub) *Generator {
	t.Helper()
	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)

	g, err := New(context.Background(), Config{APIKey: "test-key", BaseURL: srv.URL, HTTPClient: srv.Client()})
	require.NoError(t, err)
	g.now = func() time.Time { return time.Date(2025, 3, 4, 1, 2, 3, 0, time.UTC) }
	return g
}

func TestNew_RequiresAPIKey(t *testing.T) {
	_, err := New(context.Background(), Config{})
	require.ErrorIs(t, err, httpx.ErrMissingCredential)
}

func TestGeneratePost_RetriesShortBodyOnceAtHigherTemperature(t *testing.T) {
	stub := &geminiStub{}
	stub.handle = func(n int, w http.ResponseWriter) {
		chars := 100
		if n > 1 {
			chars = 1500
		}
		_, _ = w.Write(textResponse(t, postDoc("bathroom-checklist", chars)))
	}
	g := newTestGenerator(t, stub)

	p, err := g.GeneratePost(context.Background(), topics.Topic{Keyword: "욕실 리모델링"})
	require.NoError(t, err)
	require.Equal(t, "bathroom-checklist", p.Slug)
	require.Equal(t, 1500, BodyLength(p))
	require.True(t, p.Published)

	require.Len(t, stub.temps, 2)
	require.InDelta(t, 0.85, stub.temps[0], 0.001)
	require.InDelta(t, 1.0, stub.temps[1], 0.001)
	require.True(t, strings.HasSuffix(stub.paths[0], "/models/gemini-2.5-flash:generateContent"), stub.paths[0])
}

func TestGeneratePost_AcceptsShortBodyAfterRetry(t *testing.T) {
	stub := &geminiStub{handle: func(_ int, w http.ResponseWriter) {
		_, _ = w.Write(textResponse(t, postDoc("Short Post!", 10)))
	}}
	g := newTestGenerator(t, stub)

	p, err := g.GeneratePost(context.Background(), topics.Topic{Keyword: "짧은 글"})
	require.NoError(t, err)
	require.Len(t, stub.paths, 2)
	require.Equal(t, "short-post", p.Slug)
}

func TestGeneratePost_TopicSlugWins(t *testing.T) {
	stub := &geminiStub{handle: func(_ int, w http.ResponseWriter) {
		_, _ = w.Write(textResponse(t, postDoc("whatever", 2000)))
	}}
	g := newTestGenerator(t, stub)

	p, err := g.GeneratePost(context.Background(), topics.Topic{Keyword: "타일", Slug: "tile-installation-cost"})
	require.NoError(t, err)
	require.Equal(t, "tile-installation-cost", p.Slug)
	require.Len(t, stub.paths, 1)
}

func TestGeneratePost_UpstreamErrorCarriesStatus(t *testing.T) {
	stub := &geminiStub{handle: func(_ int, w http.ResponseWriter) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"code":429,"message":"quota exceeded","status":"RESOURCE_EXHAUSTED"}}`))
	}}
	g := newTestGenerator(t, stub)

	_, err := g.GeneratePost(context.Background(), topics.Topic{Keyword: "x"})
	var apiErr *httpx.APIError
	require.True(t, errors.As(err, &apiErr), err)
	require.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	require.Contains(t, apiErr.Body, "quota exceeded")
	require.Len(t, stub.paths, 1)
}

func TestGenerateImage_ReturnsFirstInlineImage(t *testing.T) {
	raw := []byte{0x89, 'P', 'N', 'G'}
	stub := &geminiStub{handle: func(_ int, w http.ResponseWriter) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []any{map[string]any{
				"content": map[string]any{"role": "model", "parts": []any{
					map[string]any{"text": "here you go"},
					map[string]any{"inlineData": map[string]any{"mimeType": "image/jpeg", "data": base64.StdEncoding.EncodeToString(raw)}},
				}},
			}},
		})
	}}
	g := newTestGenerator(t, stub)

	img, err := g.GenerateImage(context.Background(), "밝은 거실")
	require.NoError(t, err)
	require.Equal(t, "image/jpeg", img.MIMEType)
	require.Equal(t, base64.StdEncoding.EncodeToString(raw), img.Base64)
	require.True(t, strings.HasSuffix(stub.paths[0], "/models/gemini-2.5-flash-image:generateContent"))
}

func TestGenerateImage_NoInlineData(t *testing.T) {
	stub := &geminiStub{handle: func(_ int, w http.ResponseWriter) {
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"sorry"}]}}]}`))
	}}
	g := newTestGenerator(t, stub)

	_, err := g.GenerateImage(context.Background(), "prompt")
	require.ErrorIs(t, err, ErrNoImage)
}

func TestSlugify(t *testing.T) {
	require.Equal(t, "kitchen-remodel-2025", Slugify("  Kitchen Remodel -- 2025! "))
	require.Equal(t, "", Slugify("주방"))
}

func TestFixSlug_DatedFallback(t *testing.T) {
	g := &Generator{now: func() time.Time { return time.Date(2025, 3, 4, 1, 2, 3, 0, time.UTC) }}
	require.Equal(t, "post-20250304-100203", g.fixSlug(topics.Topic{}, "주방"))
}
