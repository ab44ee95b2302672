// Package deploy triggers a rebuild of the static site host through its deploy webhook.
package deploy

import (
	"context"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/zcheck/blogpipe/pkg/httpx"
)

// Triggered is returned when the hook accepted the request without a job id.
const Triggered = "triggered"

type Hook struct {
	url    string
	client *resty.Client
}

// NewHook returns nil for an empty url; a nil Hook skips every trigger.
func NewHook(url string, client *http.Client) *Hook {
	if url == "" {
		return nil
	}
	return &Hook{url: url, client: httpx.NewClient(client, 30*time.Second)}
}

type hookResponse struct {
	Job struct {
		ID string `json:"id"`
	} `json:"job"`
}

// Trigger POSTs with no body and returns the job id. ok is false when no hook is configured.
func (h *Hook) Trigger(ctx context.Context) (id string, ok bool, err error) {
	if h == nil {
		return "", false, nil
	}
	var out hookResponse
	req := h.client.R().SetContext(ctx).SetResult(&out)
	if _, err := httpx.Do(req, "deploy hook", http.MethodPost, h.url); err != nil {
		return "", true, err
	}
	if out.Job.ID == "" {
		return Triggered, true, nil
	}
	return out.Job.ID, true, nil
}
