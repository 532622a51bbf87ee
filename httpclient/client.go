package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/kbukum/diarlive/resilience"
	"github.com/kbukum/diarlive/sse"
)

// maxErrorBody bounds how much of an error response is kept.
const maxErrorBody = 4096

// Client is an HTTP client with optional retry and circuit breaking.
type Client struct {
	http    *http.Client
	stream  *http.Client
	cfg     Config
	breaker *resilience.Breaker
}

// New validates cfg and creates a client.
func New(cfg Config) (*Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	c := &Client{
		http: &http.Client{Transport: transport, Timeout: cfg.Timeout},
		// Streams live as long as their context; no client timeout.
		stream: &http.Client{Transport: transport},
		cfg:    cfg,
	}
	if cfg.Breaker != nil {
		c.breaker = resilience.NewBreaker(*cfg.Breaker)
	}
	return c, nil
}

// Do sends req and reads the whole response. Non-2xx statuses come back
// as *Error together with the response.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	if c.cfg.Retry != nil {
		return resilience.Retry(ctx, *c.cfg.Retry, func() (*Response, error) {
			return c.doOnce(ctx, req)
		})
	}
	return c.doOnce(ctx, req)
}

// DoStream sends req and returns the open response. Event-stream bodies
// get an sse.Reader. Streams bypass retry and the breaker.
func (c *Client) DoStream(ctx context.Context, req Request) (*StreamResponse, error) {
	httpReq, err := c.build(ctx, req)
	if err != nil {
		return nil, err
	}
	resp, err := c.stream.Do(httpReq)
	if err != nil {
		return nil, transportError(ctx, err)
	}
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		_ = resp.Body.Close()
		return nil, ClassifyStatusCode(resp.StatusCode, body)
	}

	out := &StreamResponse{StatusCode: resp.StatusCode, Headers: flatten(resp.Header), raw: resp}
	if strings.Contains(resp.Header.Get("Content-Type"), "text/event-stream") {
		out.SSE = sse.NewReader(resp.Body)
	} else {
		out.Body = resp.Body
	}
	return out, nil
}

// BreakerState is the breaker position, closed when no breaker is set.
func (c *Client) BreakerState() resilience.BreakerState {
	if c.breaker == nil {
		return resilience.BreakerClosed
	}
	return c.breaker.State()
}

func (c *Client) doOnce(ctx context.Context, req Request) (*Response, error) {
	if c.breaker == nil {
		return c.execute(ctx, req)
	}
	var resp *Response
	var callErr error
	err := c.breaker.Execute(func() error {
		resp, callErr = c.execute(ctx, req)
		// Rejections such as 4xx mean the peer is healthy.
		if callErr != nil && !IsRetryable(callErr) {
			return nil
		}
		return callErr
	})
	if err != nil {
		return resp, err
	}
	return resp, callErr
}

func (c *Client) execute(ctx context.Context, req Request) (*Response, error) {
	httpReq, err := c.build(ctx, req)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, transportError(ctx, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewConnectionError(fmt.Errorf("read response body: %w", err))
	}
	out := &Response{StatusCode: resp.StatusCode, Headers: flatten(resp.Header), Body: body}
	if classified := ClassifyStatusCode(resp.StatusCode, body); classified != nil {
		return out, classified
	}
	return out, nil
}

func (c *Client) build(ctx context.Context, req Request) (*http.Request, error) {
	url := req.Path
	if c.cfg.BaseURL != "" && !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = strings.TrimRight(c.cfg.BaseURL, "/") + "/" + strings.TrimLeft(url, "/")
	}
	body, contentType, err := encodeBody(req.Body)
	if err != nil {
		return nil, NewValidationError(fmt.Sprintf("encode body: %v", err))
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, url, body)
	if err != nil {
		return nil, NewValidationError(fmt.Sprintf("create request: %v", err))
	}
	if len(req.Query) > 0 {
		q := httpReq.URL.Query()
		for k, v := range req.Query {
			q.Set(k, v)
		}
		httpReq.URL.RawQuery = q.Encode()
	}
	for k, v := range c.cfg.Headers {
		httpReq.Header.Set(k, v)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if body != nil && contentType != "" && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if c.cfg.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}
	return httpReq, nil
}

func transportError(ctx context.Context, err error) *Error {
	var netErr net.Error
	if ctx.Err() != nil || (stderrors.As(err, &netErr) && netErr.Timeout()) {
		return NewTimeoutError(err)
	}
	return NewConnectionError(err)
}

func encodeBody(body any) (io.Reader, string, error) {
	switch v := body.(type) {
	case nil:
		return nil, "", nil
	case io.Reader:
		return v, "", nil
	case []byte:
		return bytes.NewReader(v), "", nil
	case string:
		return strings.NewReader(v), "text/plain", nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, "", err
		}
		return bytes.NewReader(data), "application/json", nil
	}
}

func flatten(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}
