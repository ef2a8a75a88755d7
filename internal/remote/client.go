// Package remote is the HTTP client of the journal backend. It implements the
// wrapped-key mirror used by the e2e package and the entry/grant calls used
// by the journal application.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/and161185/journal-keeper/internal/errs"
)

// StatusError is a non-2xx response without a sentinel mapping.
type StatusError struct {
	Code int
	Msg  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("remote: status %d: %s", e.Code, e.Msg)
}

// Client talks to the backend with bearer auth. It does not retry unless
// WithRetries is given.
type Client struct {
	base  *url.URL
	token string
	hc    *retryablehttp.Client
	log   *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger used for request retries.
func WithLogger(l *zap.Logger) Option { return func(c *Client) { c.log = l } }

// WithRetries sets the retry budget and backoff bounds.
func WithRetries(n int, minWait, maxWait time.Duration) Option {
	return func(c *Client) {
		c.hc.RetryMax = n
		c.hc.RetryWaitMin = minWait
		c.hc.RetryWaitMax = maxWait
	}
}

// WithTimeout sets the per-attempt timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.hc.HTTPClient.Timeout = d }
}

// New constructs a client for baseURL. token may be empty for public calls.
func New(baseURL, token string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: bad api url %q", errs.ErrValidation, baseURL)
	}
	hc := retryablehttp.NewClient()
	hc.RetryMax = 0
	hc.CheckRetry = checkRetry
	hc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	c := &Client{base: u, token: token, hc: hc, log: zap.NewNop()}
	for _, o := range opts {
		o(c)
	}
	hc.Logger = leveled{c.log.Sugar()}
	return c, nil
}

// checkRetry never retries a rate-limit answer; the limiter would only extend the block.
func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if resp != nil && resp.StatusCode == http.StatusTooManyRequests {
		return false, nil
	}
	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}

func (c *Client) endpoint(path string) string {
	return c.base.String() + path
}

// do sends one request. in is JSON-encoded unless it is a []byte; out, when
// non-nil, receives the decoded JSON body.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body []byte
	switch v := in.(type) {
	case nil:
	case []byte:
		body = v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		body = b
	}

	var rb any
	if body != nil {
		rb = bytes.NewReader(body)
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.endpoint(path), rb)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return statusErr(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if raw, ok := out.(*[]byte); ok {
		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		*raw = b
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// statusErr maps a response status back to the sentinel the server started from.
func statusErr(resp *http.Response) error {
	var e struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&e)

	var base error
	switch resp.StatusCode {
	case http.StatusBadRequest:
		base = errs.ErrValidation
	case http.StatusUnauthorized, http.StatusForbidden:
		base = errs.ErrUnauthorized
	case http.StatusNotFound:
		base = errs.ErrNotFound
	case http.StatusConflict:
		base = errs.ErrAlreadyExists
	case http.StatusTooManyRequests:
		base = errs.ErrRateLimited
	default:
		return &StatusError{Code: resp.StatusCode, Msg: e.Error}
	}
	if e.Error == "" {
		return base
	}
	return fmt.Errorf("%w: %s", base, e.Error)
}

// IsTransient reports whether err is worth retrying later.
func IsTransient(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code >= 500
	}
	return false
}

type leveled struct{ s *zap.SugaredLogger }

func (l leveled) Error(msg string, kv ...any) { l.s.Errorw(msg, kv...) }
func (l leveled) Info(msg string, kv ...any)  { l.s.Debugw(msg, kv...) }
func (l leveled) Debug(msg string, kv ...any) { l.s.Debugw(msg, kv...) }
func (l leveled) Warn(msg string, kv ...any)  { l.s.Warnw(msg, kv...) }
