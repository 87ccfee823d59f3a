package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/kizuna/pkg/domain/interfaces"
	"github.com/secmon-lab/kizuna/pkg/domain/model/auth"
	"github.com/secmon-lab/kizuna/pkg/utils/logging"
	"github.com/secmon-lab/kizuna/pkg/utils/safe"
)

var (
	// ErrInvalidCredentials is returned when the backend rejects a login ID/password pair
	ErrInvalidCredentials = auth.ErrInvalidCredentials
	// ErrUnauthorized is returned when the bearer token is rejected
	ErrUnauthorized = goerr.New("unauthorized")
	// ErrNotFound is returned when the requested resource does not exist
	ErrNotFound = goerr.New("resource not found")
	// ErrUnexpectedStatus is returned for any other non-2xx response
	ErrUnexpectedStatus = goerr.New("unexpected response status")
)

const (
	defaultTimeout  = 15 * time.Second
	defaultRetryMax = 3
	maxErrorBody    = 4096
)

// Client is the REST client of the kizuna backend. Every call carries the bearer
// token currently held by the credential store.
type Client struct {
	baseURL     *url.URL
	http        *retryablehttp.Client
	credentials interfaces.CredentialStore
}

var _ interfaces.Backend = &Client{}

type Option func(*Client)

// WithRetryMax sets the maximum number of retries for transient failures
func WithRetryMax(n int) Option {
	return func(c *Client) {
		c.http.RetryMax = n
	}
}

// WithRetryWait sets the backoff range between retries
func WithRetryWait(min, max time.Duration) Option {
	return func(c *Client) {
		c.http.RetryWaitMin = min
		c.http.RetryWaitMax = max
	}
}

// WithTimeout sets the timeout of a single HTTP attempt
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http.HTTPClient.Timeout = d
	}
}

// WithHTTPClient replaces the underlying transport client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http.HTTPClient = hc
	}
}

func New(baseURL string, credentials interfaces.CredentialStore, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, goerr.New("API base URL is required")
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, goerr.Wrap(err, "invalid API base URL", goerr.V("baseURL", baseURL))
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, goerr.New("API base URL must be http or https", goerr.V("baseURL", baseURL))
	}
	if credentials == nil {
		return nil, goerr.New("credential store is required")
	}

	hc := retryablehttp.NewClient()
	hc.RetryMax = defaultRetryMax
	hc.HTTPClient.Timeout = defaultTimeout
	hc.Logger = logging.Default()

	c := &Client{
		baseURL:     u,
		http:        hc,
		credentials: credentials,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = c.baseURL.Path + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// bearer returns the stored token, or "" when no session exists
func (c *Client) bearer(ctx context.Context) (string, error) {
	record, err := c.credentials.Read(ctx)
	if err != nil {
		return "", goerr.Wrap(err, "failed to read credential record")
	}
	if record == nil {
		return "", nil
	}
	return record.Token, nil
}

// requestOption overrides how a request is authorized. Passing any option skips
// the stored bearer token.
type requestOption func(*retryablehttp.Request)

func anonymous() requestOption {
	return func(*retryablehttp.Request) {}
}

func withToken(token string) requestOption {
	return func(req *retryablehttp.Request) {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

// do sends a request and decodes a JSON response into out (when non-nil)
func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any, opts ...requestOption) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return goerr.Wrap(err, "failed to encode request body", goerr.V("path", path))
		}
		body = bytes.NewReader(raw)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.endpoint(path, query), body)
	if err != nil {
		return goerr.Wrap(err, "failed to build request", goerr.V("path", path))
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if len(opts) == 0 {
		token, err := c.bearer(ctx)
		if err != nil {
			return err
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	for _, opt := range opts {
		opt(req)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return goerr.Wrap(err, "request failed", goerr.V("method", method), goerr.V("path", path))
	}
	defer safe.Close(ctx, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return statusError(resp.StatusCode, method, path, msg)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return goerr.Wrap(err, "failed to decode response", goerr.V("method", method), goerr.V("path", path))
	}
	return nil
}

func statusError(code int, method, path string, body []byte) error {
	values := []goerr.Option{
		goerr.V("status", code),
		goerr.V("method", method),
		goerr.V("path", path),
		goerr.V("body", string(body)),
	}

	switch code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return goerr.Wrap(ErrUnauthorized, "backend rejected the request", values...)
	case http.StatusNotFound:
		return goerr.Wrap(ErrNotFound, "backend returned not found", values...)
	default:
		return goerr.Wrap(ErrUnexpectedStatus, "backend returned an error", values...)
	}
}
