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
)

const (
	DefaultInstagramAPI = "https://graph.facebook.com/v21.0"

	statusFinished = "FINISHED"
	statusError    = "ERROR"
)

type InstagramConfig struct {
	AccessToken  string
	UserID       string
	APIBase      string
	PollAttempts int
	PollInterval time.Duration
	HTTPClient   *http.Client
}

// Instagram publishes single-image posts: create a container, wait for it to
// finish processing, then publish it.
type Instagram struct {
	cfg    InstagramConfig
	client *resty.Client
}

func NewInstagram(cfg InstagramConfig) (*Instagram, error) {
	if cfg.AccessToken == "" || cfg.UserID == "" {
		return nil, fmt.Errorf("instagram: %w", httpx.ErrMissingCredential)
	}
	if cfg.APIBase == "" {
		cfg.APIBase = DefaultInstagramAPI
	}
	cfg.APIBase = strings.TrimRight(cfg.APIBase, "/")
	if cfg.PollAttempts < 1 {
		cfg.PollAttempts = 12
	}
	return &Instagram{cfg: cfg, client: httpx.NewClient(cfg.HTTPClient, 30*time.Second)}, nil
}

// Publish posts imageURL with caption and returns the media id.
func (c *Instagram) Publish(ctx context.Context, imageURL, caption string) (string, error) {
	container, err := c.post(ctx, "/"+c.cfg.UserID+"/media", map[string]string{
		"image_url": imageURL,
		"caption":   caption,
	})
	if err != nil {
		return "", fmt.Errorf("create container: %w", err)
	}
	if err := c.waitFinished(ctx, container); err != nil {
		return "", err
	}
	id, err := c.post(ctx, "/"+c.cfg.UserID+"/media_publish", map[string]string{"creation_id": container})
	if err != nil {
		return "", fmt.Errorf("publish container: %w", err)
	}
	return id, nil
}

func (c *Instagram) waitFinished(ctx context.Context, containerID string) error {
	status, err := retry.Until(ctx, retry.Policy{MaxAttempts: c.cfg.PollAttempts, Delay: c.cfg.PollInterval},
		func(ctx context.Context, _ int) (string, error) {
			return c.status(ctx, containerID)
		},
		func(s string) bool { return s == statusFinished || s == statusError },
	)
	switch {
	case err != nil:
		return fmt.Errorf("poll container status: %w", err)
	case status == statusError:
		return ErrProcessingFailed
	case status != statusFinished:
		return fmt.Errorf("%w after %d checks (last status %q)", ErrProcessingTimeout, c.cfg.PollAttempts, status)
	}
	return nil
}

func (c *Instagram) status(ctx context.Context, containerID string) (string, error) {
	req := c.client.R().
		SetContext(ctx).
		SetQueryParam("fields", "status_code").
		SetQueryParam("access_token", c.cfg.AccessToken)
	resp, err := doGraph(req, ChannelInstagram, http.MethodGet, c.cfg.APIBase+"/"+containerID)
	if err != nil {
		return "", err
	}
	return resp.StatusCode, nil
}

func (c *Instagram) post(ctx context.Context, path string, form map[string]string) (string, error) {
	form["access_token"] = c.cfg.AccessToken
	req := c.client.R().SetContext(ctx).SetFormData(form)
	resp, err := doGraph(req, ChannelInstagram, http.MethodPost, c.cfg.APIBase+path)
	if err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", errors.New("instagram response has no id")
	}
	return resp.ID, nil
}
