// Package client talks to the authgate HTTP API the way the browser front end does.
package client

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
)

const defaultTimeout = 15 * time.Second

// Client wraps HTTP calls to the API.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

// Options allows overriding client dependencies.
type Options struct {
	HTTPClient *http.Client
}

func New(baseURL string, opts Options) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("baseURL is empty")
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse baseURL: %w", err)
	}
	if (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, fmt.Errorf("baseURL %q must be an absolute http(s) URL", baseURL)
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{baseURL: parsed, httpClient: hc}, nil
}

// APIError is a non-2xx response. Message is the server text, meant to be shown as is.
type APIError struct {
	Op      string
	Status  int
	Message string
	Detail  string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Op, e.Message, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type messageResponse struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
	Token   string `json:"token,omitempty"`
	Status  string `json:"status,omitempty"`
}

// Register calls POST /register and returns the confirmation message.
func (c *Client) Register(ctx context.Context, username, password string) (string, error) {
	const op = "Register"
	body, err := c.call(ctx, op, http.MethodPost, "/register", credentials{username, password})
	if err != nil {
		return "", err
	}
	return body.Message, nil
}

// Login calls POST /login and returns the issued token.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	const op = "Login"
	body, err := c.call(ctx, op, http.MethodPost, "/login", credentials{username, password})
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(body.Token) == "" {
		return "", fmt.Errorf("%s: empty token in response", op)
	}
	return body.Token, nil
}

// Health calls GET /health and returns the reported status.
func (c *Client) Health(ctx context.Context) (string, error) {
	const op = "Health"
	body, err := c.call(ctx, op, http.MethodGet, "/health", nil)
	if err != nil {
		return "", err
	}
	return body.Status, nil
}

func (c *Client) call(ctx context.Context, op, method, path string, payload any) (*messageResponse, error) {
	var reader io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("%s: encode request: %w", op, err)
		}
		reader = bytes.NewReader(buf)
	}

	endpoint := c.baseURL.JoinPath(path)
	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	var body messageResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%s: decode response (status %d): %w", op, resp.StatusCode, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := body.Message
		if msg == "" {
			msg = fmt.Sprintf("HTTP error! status: %d", resp.StatusCode)
		}
		return nil, &APIError{Op: op, Status: resp.StatusCode, Message: msg, Detail: body.Error}
	}
	return &body, nil
}
