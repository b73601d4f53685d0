package messenger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
)

// Client calls the Graph API with a page access token.
type Client struct {
	baseURL string
	token   string
	http    *fasthttp.Client

	defaultTimeout time.Duration
	retryMax       int
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.defaultTimeout = d }
}

func WithMaxConnsPerHost(n int) Option {
	return func(c *Client) { c.http.MaxConnsPerHost = n }
}

// WithRetry bounds attempts for idempotent reads. Sends are never retried.
func WithRetry(max int) Option {
	return func(c *Client) { c.retryMax = max }
}

func NewClient(baseURL, accessToken string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		token:          strings.TrimSpace(accessToken),
		http:           &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 64},
		defaultTimeout: 10 * time.Second,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SendText posts a text message to recipientID through the Send API.
func (c *Client) SendText(ctx context.Context, recipientID, text string) error {
	if strings.TrimSpace(recipientID) == "" {
		return errors.New("recipient id required")
	}
	req := SendRequest{Recipient: Party{ID: recipientID}, Message: SendMessage{Text: text}}
	var resp SendResponse
	return c.doJSON(ctx, fasthttp.MethodPost, "/me/messages", nil, req, &resp, false)
}

// Me returns the page the token belongs to.
func (c *Client) Me(ctx context.Context) (*PageInfo, error) {
	var p PageInfo
	q := url.Values{"fields": {"id,name"}}
	if err := c.doJSON(ctx, fasthttp.MethodGet, "/me", q, nil, &p, true); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, in any, out any, retry bool) error {
	if c.token == "" {
		return errors.New("page access token not configured")
	}
	if query == nil {
		query = url.Values{}
	}
	query.Set("access_token", c.token)

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(method)
	req.SetRequestURI(c.baseURL + path + "?" + query.Encode())
	req.Header.SetContentType("application/json")

	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		req.SetBody(payload)
	}

	attempts := 1
	if retry && c.retryMax > 1 {
		attempts = c.retryMax
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx))
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			if attempt == attempts {
				return lastErr
			}
			if sleepErr := sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return lastErr
			}
			continue
		}

		status := resp.StatusCode()
		if status < 200 || status >= 300 {
			apiErr := decodeAPIError(status, resp.Body())
			if attempt == attempts || !shouldRetryStatus(status) {
				return apiErr
			}
			lastErr = apiErr
			if sleepErr := sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return lastErr
			}
			continue
		}

		if out != nil {
			if err := json.Unmarshal(resp.Body(), out); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
		}
		return nil
	}

	if lastErr == nil {
		lastErr = errors.New("unknown error")
	}
	return lastErr
}

func decodeAPIError(status int, body []byte) *APIError {
	var env struct {
		Error *APIError `json:"error"`
	}
	if err := json.Unmarshal(body, &env); err == nil && env.Error != nil {
		env.Error.Status = status
		return env.Error
	}
	return &APIError{Status: status, Message: truncate(string(body), 512)}
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(c.defaultTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	base := 100 * time.Millisecond
	return time.Duration(1<<uint(attempt-1)) * base // 100ms, 200ms ...
}

func shouldRetryStatus(code int) bool {
	switch code {
	case 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
