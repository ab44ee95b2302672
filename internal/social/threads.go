package social

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/zcheck/blogpipe/pkg/httpx"
	"github.com/zcheck/blogpipe/pkg/retry"
	"golang.org/x/time/rate"
)

const DefaultThreadsAPI = "https://graph.threads.net/v1.0"

type ThreadsConfig struct {
	AccessToken string
	UserID      string
	APIBase     string
	// PublishDelay separates creating an entry from publishing it.
	PublishDelay time.Duration
	// ReplyGap separates publishing one entry from creating the next.
	ReplyGap   time.Duration
	HTTPClient *http.Client
}

// Threads publishes a chain of text posts, each a reply to the one before.
type Threads struct {
	cfg    ThreadsConfig
	client *resty.Client
}

func NewThreads(cfg ThreadsConfig) (*Threads, error) {
	if cfg.AccessToken == "" || cfg.UserID == "" {
		return nil, fmt.Errorf("threads: %w", httpx.ErrMissingCredential)
	}
	if cfg.APIBase == "" {
		cfg.APIBase = DefaultThreadsAPI
	}
	cfg.APIBase = strings.TrimRight(cfg.APIBase, "/")
	return &Threads{cfg: cfg, client: httpx.NewClient(cfg.HTTPClient, 30*time.Second)}, nil
}

type threadsCreate struct {
	MediaType string `json:"media_type"`
	Text      string `json:"text"`
	ReplyToID string `json:"reply_to_id,omitempty"`
}

type threadsPublish struct {
	CreationID string `json:"creation_id"`
}

// PublishChain posts chain in order and returns the id of the root post.
// A failure part way leaves the already published entries in place.
func (c *Threads) PublishChain(ctx context.Context, chain []string) (string, error) {
	if len(chain) == 0 {
		return "", errors.New("threads chain is empty")
	}
	// one create per PublishDelay+ReplyGap keeps the gap after each publish
	spacing := rate.NewLimiter(rate.Every(c.cfg.PublishDelay+c.cfg.ReplyGap), 1)

	var rootID, lastID string
	for i, text := range chain {
		if err := spacing.Wait(ctx); err != nil {
			return rootID, err
		}
		creationID, err := c.call(ctx, "/"+c.cfg.UserID+"/threads", threadsCreate{MediaType: "TEXT", Text: text, ReplyToID: lastID})
		if err != nil {
			return rootID, fmt.Errorf("create entry %d: %w", i, err)
		}
		if err := retry.Sleep(ctx, c.cfg.PublishDelay); err != nil {
			return rootID, err
		}
		id, err := c.call(ctx, "/"+c.cfg.UserID+"/threads_publish", threadsPublish{CreationID: creationID})
		if err != nil {
			return rootID, fmt.Errorf("publish entry %d: %w", i, err)
		}
		if i == 0 {
			rootID = id
		}
		lastID = id
	}
	return rootID, nil
}

func (c *Threads) call(ctx context.Context, path string, body any) (string, error) {
	req := c.client.R().SetContext(ctx).SetAuthToken(c.cfg.AccessToken).SetBody(body)
	resp, err := doGraph(req, ChannelThreads, http.MethodPost, c.cfg.APIBase+path)
	if err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", errors.New("threads response has no id")
	}
	return resp.ID, nil
}
