// Package upstream talks to the llama-server OpenAI-compatible API.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"inferd/pkg/types"
)

// ChatPath is the llama-server chat completions endpoint.
const ChatPath = "/v1/chat/completions"

// maxErrorBody bounds how much of an upstream error body is kept.
const maxErrorBody = 64 << 10

// Client forwards chat requests to a llama-server instance.
type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
}

// New constructs a client. timeout bounds a whole request including the body
// read; zero disables it.
func New(baseURL string, timeout time.Duration) *Client {
	tr := &http.Transport{
		Proxy: nil,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   32,
		IdleConnTimeout:       90 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	// Timeout=0: deadlines come from the request context.
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		timeout:    timeout,
		httpClient: &http.Client{Transport: tr, Timeout: 0},
	}
}

// BaseURL returns the backend base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// Response is a successful upstream response. Close must be called; it also
// releases the request deadline.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       io.ReadCloser
}

func (r *Response) Close() error { return r.Body.Close() }

// ChatCompletion posts req and returns the upstream response when its status
// is 2xx. Transport failures yield a request error, other statuses a status
// error carrying the upstream body.
func (c *Client) ChatCompletion(ctx context.Context, req types.UpstreamChatRequest) (*Response, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode upstream request: %w", err)
	}
	cancel := context.CancelFunc(func() {})
	if c.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
	}
	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+ChatPath, bytes.NewReader(payload))
	if err != nil {
		cancel()
		return nil, requestError{err: err}
	}
	hreq.Header.Set("Content-Type", "application/json")
	if req.Stream {
		hreq.Header.Set("Accept", "text/event-stream")
	}
	resp, err := c.httpClient.Do(hreq)
	if err != nil {
		cancel()
		return nil, requestError{err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		_ = resp.Body.Close()
		cancel()
		return nil, statusError{status: resp.StatusCode, body: strings.TrimSpace(string(body))}
	}
	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       cancelOnClose{ReadCloser: resp.Body, cancel: cancel},
	}, nil
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}
