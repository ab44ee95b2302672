// Package social publishes posts to Instagram and Threads through their graph APIs.
package social

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-resty/resty/v2"
	"github.com/zcheck/blogpipe/pkg/httpx"
)

const (
	ChannelInstagram = "instagram"
	ChannelThreads   = "threads"

	ReasonNotConfigured = "not configured"
	ReasonNoImage       = "no image url"
	ReasonNoChain       = "no threads chain"
)

var (
	ErrProcessingTimeout = errors.New("media container did not finish processing")
	ErrProcessingFailed  = errors.New("media container processing failed")
)

// Result is the outcome of one channel. A skipped channel has Success false and a Reason.
type Result struct {
	Channel string `json:"channel"`
	Success bool   `json:"success"`
	ID      string `json:"id,omitempty"`
	Reason  string `json:"reason,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (r Result) Skipped() bool {
	return !r.Success && r.Reason != "" && r.Error == ""
}

type graphError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    int    `json:"code"`
}

type graphResponse struct {
	ID         string      `json:"id"`
	StatusCode string      `json:"status_code"`
	Error      *graphError `json:"error"`
}

// doGraph runs req and decodes the graph envelope. An "error" object in a 2xx body
// is reported the same way as a non-2xx status.
func doGraph(req *resty.Request, service, method, url string) (*graphResponse, error) {
	var out graphResponse
	if _, err := httpx.Do(req.SetResult(&out).ForceContentType("application/json"), service, method, url); err != nil {
		return nil, err
	}
	if out.Error != nil {
		body, _ := json.Marshal(out.Error)
		return nil, &httpx.APIError{Service: service, StatusCode: http.StatusOK, Body: string(body)}
	}
	return &out, nil
}
