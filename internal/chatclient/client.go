// Package chatclient talks to the chat endpoint: it posts the user's message
// and classifies what comes back.
package chatclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const defaultPath = "/api/chat"

// ErrUnexpectedResponse is returned when the endpoint answers with JSON that
// carries neither a reply nor an error.
var ErrUnexpectedResponse = errors.New("chatclient: unexpected response")

// ApplicationError is an error message supplied by the endpoint itself.
type ApplicationError struct {
	Message string
}

func (e *ApplicationError) Error() string {
	return "chatclient: endpoint error: " + e.Message
}

// TransportError covers requests that never completed and bodies that were
// not JSON.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("chatclient: transport: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

type chatRequest struct {
	Message string `json:"message"`
}

// chatResponse uses pointers so a present-but-empty field is told apart from
// an absent one.
type chatResponse struct {
	Reply *string `json:"reply"`
	Error *string `json:"error"`
}

// Client posts widget messages to the chat endpoint.
type Client struct {
	url        string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*clientOptions)

type clientOptions struct {
	path       string
	httpClient *http.Client
}

// WithHTTPClient sets the HTTP client. The default has no timeout; requests
// are bounded by the caller's context.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(o *clientOptions) {
		o.httpClient = httpClient
	}
}

// WithPath sets the endpoint path. Defaults to /api/chat.
func WithPath(path string) Option {
	return func(o *clientOptions) {
		o.path = strings.TrimSpace(path)
	}
}

// New creates a Client for the endpoint rooted at baseURL. An empty baseURL
// keeps requests relative to the path, which only works with a custom
// transport.
func New(baseURL string, opts ...Option) (*Client, error) {
	o := clientOptions{path: defaultPath}
	for _, opt := range opts {
		opt(&o)
	}
	if o.path == "" {
		return nil, errors.New("chatclient: path must not be empty")
	}
	if !strings.HasPrefix(o.path, "/") {
		o.path = "/" + o.path
	}
	if o.httpClient == nil {
		// No timeout: a submission waits for as long as the endpoint takes.
		o.httpClient = &http.Client{}
	}
	return &Client{
		url:        strings.TrimRight(strings.TrimSpace(baseURL), "/") + o.path,
		httpClient: o.httpClient,
	}, nil
}

func (c *Client) URL() string {
	return c.url
}

// Send posts message unchanged and returns the endpoint's reply.
func (c *Client) Send(ctx context.Context, message string) (string, error) {
	body, err := json.Marshal(chatRequest{Message: message})
	if err != nil {
		return "", fmt.Errorf("chatclient: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", &TransportError{Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return "", &TransportError{Err: err}
	}
	defer func() { _ = res.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return "", &TransportError{Err: fmt.Errorf("read response body: %w", err)}
	}
	return parseResponse(raw)
}

func parseResponse(raw []byte) (string, error) {
	if !json.Valid(raw) {
		return "", &TransportError{Err: errors.New("decode response: body is not JSON")}
	}
	var payload chatResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		// Valid JSON of some other shape, e.g. an array or a numeric reply.
		return "", ErrUnexpectedResponse
	}
	switch {
	case payload.Reply != nil:
		return *payload.Reply, nil
	case payload.Error != nil:
		return "", &ApplicationError{Message: *payload.Error}
	default:
		return "", ErrUnexpectedResponse
	}
}
