// Package client is a small Go client for the command API.
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
	"strconv"
	"strings"
	"time"

	"github.com/harrylevesque/commandapi/internal/models"
)

// DefaultServer is used when neither a flag nor COMMANDAPI_SERVER is set.
const DefaultServer = "http://localhost:8080"

// Error is a non-2xx response decoded from the API error envelope.
type Error struct {
	Status    int
	Code      string
	Message   string
	RequestID string
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("status %d", e.Status)
	if e.Code != "" {
		msg += " " + e.Code
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.RequestID != "" {
		msg += " (request " + e.RequestID + ")"
	}
	return msg
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Status == http.StatusNotFound
}

type Client struct {
	baseURL       string
	http          *http.Client
	authorization string
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithBearerToken sends token as an OAuth bearer credential.
func WithBearerToken(token string) Option {
	return func(c *Client) {
		if token != "" {
			c.authorization = "Bearer " + token
		}
	}
}

// WithAPIKey sends key using the ApiKey scheme.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		if key != "" {
			c.authorization = "ApiKey " + key
		}
	}
}

func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid server url %q", baseURL)
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) List(ctx context.Context) ([]models.Command, error) {
	var out []models.Command
	err := c.do(ctx, http.MethodGet, "/api/commands", nil, &out)
	return out, err
}

func (c *Client) Search(ctx context.Context, query string) ([]models.Command, error) {
	var out []models.Command
	err := c.do(ctx, http.MethodGet, "/api/commands/search?q="+url.QueryEscape(query), nil, &out)
	return out, err
}

func (c *Client) Get(ctx context.Context, id int64) (models.Command, error) {
	var out models.Command
	err := c.do(ctx, http.MethodGet, commandPath(id), nil, &out)
	return out, err
}

// Create stores cmd and returns it with the server assigned id.
func (c *Client) Create(ctx context.Context, cmd models.Command) (models.Command, error) {
	var out models.Command
	err := c.do(ctx, http.MethodPost, "/api/commands", cmd, &out)
	return out, err
}

// Update replaces the command stored under cmd.ID.
func (c *Client) Update(ctx context.Context, cmd models.Command) error {
	return c.do(ctx, http.MethodPut, commandPath(cmd.ID), cmd, nil)
}

// Delete removes a command and returns the removed record.
func (c *Client) Delete(ctx context.Context, id int64) (models.Command, error) {
	var out models.Command
	err := c.do(ctx, http.MethodDelete, commandPath(id), nil, &out)
	return out, err
}

func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

func commandPath(id int64) string {
	return "/api/commands/" + strconv.FormatInt(id, 10)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.authorization != "" {
		req.Header.Set("Authorization", c.authorization)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	e := &Error{Status: resp.StatusCode, RequestID: resp.Header.Get("X-Request-ID")}
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var envelope struct {
		Error struct {
			Code      string `json:"code"`
			Message   string `json:"message"`
			RequestID string `json:"requestId"`
		} `json:"error"`
	}
	if json.Unmarshal(b, &envelope) == nil && envelope.Error.Code != "" {
		e.Code = envelope.Error.Code
		e.Message = envelope.Error.Message
		if envelope.Error.RequestID != "" {
			e.RequestID = envelope.Error.RequestID
		}
		return e
	}
	e.Message = strings.TrimSpace(string(b))
	return e
}
