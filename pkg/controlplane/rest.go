package controlplane

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
)

// Endpoint describes one management endpoint
type Endpoint struct {
	Address  string
	Username string
	Password string

	// SkipTLSVerify disables certificate verification. Lab clusters ship
	// self-signed management certificates.
	SkipTLSVerify bool
}

// restClient is the shared JSON-over-HTTPS transport for all three control
// planes. It holds no session state; every request is independent.
type restClient struct {
	endpoint Endpoint
	http     *http.Client
}

func newRESTClient(ep Endpoint, timeout time.Duration) *restClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	transport := &http.Transport{}
	if ep.SkipTLSVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return &restClient{
		endpoint: ep,
		http: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

// verify confirms the endpoint answers before any state-changing call is
// attempted, retrying transient dial failures with exponential backoff.
func (c *restClient) verify(ctx context.Context) error {
	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 4), ctx)
	return backoff.Retry(func() error {
		return c.do(ctx, http.MethodGet, "/api/v1/cluster", nil, nil)
	}, bo)
}

func (c *restClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	u, err := url.JoinPath("https://"+c.endpoint.Address, path)
	if err != nil {
		return errors.Wrap(err, "build request url")
	}

	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "encode request body")
		}
		payload = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, payload)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.SetBasicAuth(c.endpoint.Username, c.endpoint.Password)

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(ErrConnection, "%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return errors.Wrapf(ErrNotFound, "%s %s", method, path)
	case resp.StatusCode == http.StatusConflict:
		return errors.Wrapf(ErrAlreadyExists, "%s %s", method, path)
	case resp.StatusCode >= 400:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, snippet)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return errors.Wrapf(err, "decode %s %s response", method, path)
		}
	}
	return nil
}
