package site

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/zcheck/blogpipe/internal/post"
	"github.com/zcheck/blogpipe/pkg/httpx"
	"github.com/zcheck/blogpipe/pkg/logger"
	"go.uber.org/zap"
)

// RemoteSource reads published posts from the content store API.
type RemoteSource struct {
	baseURL string
	client  *resty.Client
}

func NewRemoteSource(baseURL string, client *http.Client) *RemoteSource {
	return &RemoteSource{baseURL: strings.TrimRight(baseURL, "/"), client: httpx.NewClient(client, 30*time.Second)}
}

// Posts fetches GET {base}/api/posts. The body may be a bare array or {"posts": [...]}.
// Records that fail to decode are logged and skipped.
func (r *RemoteSource) Posts(ctx context.Context) ([]*post.Post, error) {
	resp, err := httpx.Do(r.client.R().SetContext(ctx), "content store", http.MethodGet, r.baseURL+"/api/posts")
	if err != nil {
		return nil, err
	}

	var records []json.RawMessage
	if trimmed := bytes.TrimSpace(resp.Body()); len(trimmed) > 0 && trimmed[0] == '{' {
		var wrapped struct {
			Posts []json.RawMessage `json:"posts"`
		}
		if err := json.Unmarshal(trimmed, &wrapped); err != nil {
			return nil, fmt.Errorf("decode content store response: %w", err)
		}
		records = wrapped.Posts
	} else if len(trimmed) > 0 {
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, fmt.Errorf("decode content store response: %w", err)
		}
	}

	out := make([]*post.Post, 0, len(records))
	for i, rec := range records {
		p, err := post.Decode(rec, post.SourceRemote)
		if err != nil {
			logger.L().Warn("skipping remote post", zap.Int("index", i), zap.Error(err))
			continue
		}
		if !p.Published || p.Slug == "" {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// LoadAll merges the local content directory with the remote store. Local posts win on slug.
// remote may be nil.
func LoadAll(ctx context.Context, contentDir string, remote *RemoteSource) ([]*post.Post, error) {
	local, err := post.LoadLocalDir(contentDir)
	if err != nil {
		return nil, fmt.Errorf("load local posts: %w", err)
	}
	var fromRemote []*post.Post
	if remote != nil {
		fromRemote, err = remote.Posts(ctx)
		if err != nil {
			return nil, fmt.Errorf("load remote posts: %w", err)
		}
	}
	return post.Merge(local, fromRemote), nil
}
