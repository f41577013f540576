package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrAuthExpired indicates the backend rejected the stored credential. The
// client reports it on every 401; recovery (clearing the session, login
// redirect) happens once, globally, in the registered expiry hook.
var ErrAuthExpired = errors.New("api: credential expired")

const defaultRequestTimeout = 10 * time.Second

// Error is a generic backend failure with its HTTP status.
type Error struct {
	Status int
	Detail string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("api: request failed (%d)", e.Status)
	}
	return fmt.Sprintf("api: request failed (%d): %s", e.Status, e.Detail)
}

// FieldError is one field-level validation failure.
type FieldError struct {
	Field  string
	Detail string
}

// ValidationError carries field-level detail from a 422 response.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "api: validation failed"
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Field, f.Detail))
	}
	return "api: validation failed: " + strings.Join(parts, "; ")
}

// Options configures a Client.
type Options struct {
	// Token supplies the current bearer credential, or "" when logged out.
	Token func() string
	// OnAuthExpired is invoked whenever the backend answers 401.
	OnAuthExpired func()

	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client is the REST client for the platform backend.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	token       func() string
	authExpired func()
	logger      *zap.Logger
}

// New returns a Client rooted at baseURL (no trailing slash).
func New(baseURL string, options Options) *Client {
	httpClient := options.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultRequestTimeout}
	}
	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	token := options.Token
	if token == nil {
		token = func() string { return "" }
	}

	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		httpClient:  httpClient,
		token:       token,
		authExpired: options.OnAuthExpired,
		logger:      logger,
	}
}

// BaseURL returns the configured REST root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Token returns the current bearer credential, or "".
func (c *Client) Token() string {
	return c.token()
}

// HTTPClient returns the underlying HTTP client, shared with the streaming
// reader so both honor the same transport settings.
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	return c.do(ctx, http.MethodPost, path, in, out)
}

func (c *Client) del(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodDelete, path, nil, out)
}

// envelope is the backend's common response wrapper {code, msg, data}. A few
// endpoints answer bare JSON instead; decode falls through for those.
type envelope struct {
	Code *int            `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request %s %s: %w", method, path, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response %s %s: %w", method, path, err)
	}

	if resp.StatusCode >= 400 {
		return c.decodeError(method, path, resp.StatusCode, raw)
	}

	if out == nil {
		return nil
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err == nil && env.Data != nil {
		raw = env.Data
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response %s %s: %w", method, path, err)
	}

	return nil
}

func (c *Client) decodeError(method, path string, status int, raw []byte) error {
	switch status {
	case http.StatusUnauthorized:
		c.logger.Warn("credential rejected by backend", zap.String("path", path))
		if c.authExpired != nil {
			c.authExpired()
		}
		return fmt.Errorf("%s %s: %w", method, path, ErrAuthExpired)
	case http.StatusUnprocessableEntity:
		if verr := parseValidationDetail(raw); verr != nil {
			return verr
		}
	}

	detail := parseErrorDetail(raw)
	return &Error{Status: status, Detail: detail}
}

// parseValidationDetail decodes the FastAPI-style 422 body:
// {"detail":[{"loc":["body","phone"],"msg":"..."}]}.
func parseValidationDetail(raw []byte) *ValidationError {
	var parsed struct {
		Detail []struct {
			Loc []json.RawMessage `json:"loc"`
			Msg string            `json:"msg"`
		} `json:"detail"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil || len(parsed.Detail) == 0 {
		return nil
	}

	verr := &ValidationError{}
	for _, item := range parsed.Detail {
		segments := make([]string, 0, len(item.Loc))
		for _, loc := range item.Loc {
			var s string
			if err := json.Unmarshal(loc, &s); err == nil {
				segments = append(segments, s)
				continue
			}
			var n int64
			if err := json.Unmarshal(loc, &n); err == nil {
				segments = append(segments, fmt.Sprintf("%d", n))
			}
		}
		verr.Fields = append(verr.Fields, FieldError{
			Field:  strings.Join(segments, "."),
			Detail: item.Msg,
		})
	}
	return verr
}

// parseErrorDetail pulls a human-readable message out of an error body,
// falling back to the raw text.
func parseErrorDetail(raw []byte) string {
	var parsed struct {
		Detail json.RawMessage `json:"detail"`
		Msg    string          `json:"msg"`
	}
	if err := json.Unmarshal(raw, &parsed); err == nil {
		if len(parsed.Detail) > 0 {
			var s string
			if err := json.Unmarshal(parsed.Detail, &s); err == nil && s != "" {
				return s
			}
			return string(parsed.Detail)
		}
		if parsed.Msg != "" {
			return parsed.Msg
		}
	}
	return strings.TrimSpace(string(raw))
}
