// Package httpx holds the resty client setup and error mapping shared by the outbound API clients.
package httpx

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/zcheck/blogpipe/pkg/logger"
)

// ErrMissingCredential is returned by client constructors before any network call.
var ErrMissingCredential = errors.New("missing credential")

// APIError is returned for any non-2xx upstream response.
type APIError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s returned status %d: %s", e.Service, e.StatusCode, e.Body)
}

// NewClient wraps hc in a resty client. A nil hc gets a fresh transport with timeout.
func NewClient(hc *http.Client, timeout time.Duration) *resty.Client {
	var c *resty.Client
	if hc != nil {
		c = resty.NewWithClient(hc)
	} else {
		c = resty.New().SetTimeout(timeout)
	}
	return c.SetLogger(logger.L().Sugar())
}

// Do executes req against url. Transport failures are wrapped with the service name and
// non-2xx responses become *APIError built from the status and raw body.
// A Result set on req is decoded by resty when the response is JSON.
func Do(req *resty.Request, service, method, url string) (*resty.Response, error) {
	resp, err := req.Execute(method, url)
	if err != nil {
		return resp, fmt.Errorf("%s request: %w", service, err)
	}
	if !resp.IsSuccess() {
		return resp, &APIError{Service: service, StatusCode: resp.StatusCode(), Body: string(resp.Body())}
	}
	return resp, nil
}
