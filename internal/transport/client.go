// Package transport issues JSON requests against the clinic API, carries
// the HttpOnly session cookies the server manages, and normalizes every
// failure into an *internal.AppError before it reaches the session layer.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clinicops/clinic-console/internal"
)

type Config struct {
	BaseURL        string
	RequestTimeout time.Duration
}

// Client performs HTTP calls against the configured base address. Cookies
// (access and refresh tokens) are HttpOnly and owned by the server; the jar
// carries them back without the client ever reading or writing them.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, internal.NewValidationError("api base URL is required", internal.ErrCodeValidationFailed)
	}
	if logger == nil {
		logger = slog.Default()
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = internal.DefaultRequestTimeout
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Jar:     jar,
			Timeout: timeout,
		},
		logger: logger,
	}, nil
}

// apiErrorBody is what the backend puts in error responses. Some endpoints
// use "message", older ones "error".
type apiErrorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return internal.NewTransportError("failed to encode request body", err)
		}
		reqBody = bytes.NewReader(payload)
	}

	requestID := internal.RequestIDFromContext(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return internal.NewTransportError("failed to create request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Timeout or connectivity problem: generic message, no status code.
		c.logger.Warn("request failed", "method", method, "path", path, "error", err)
		return internal.NewTransportError("request failed, please try again", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return internal.NewTransportError("failed to read response", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return c.classifyError(method, path, resp.StatusCode, raw)
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return internal.NewAPIError(resp.StatusCode, "malformed response from server", internal.ErrCodeBadResponse).WithCause(err)
		}
	}
	return nil
}

// classifyError turns a non-2xx response into a normalized error carrying
// the server-provided message when one exists. 401 maps to the
// not-authenticated code so the session layer can tell the expected
// "no session" outcome apart from real failures.
func (c *Client) classifyError(method, path string, status int, raw []byte) error {
	var body apiErrorBody
	_ = json.Unmarshal(raw, &body)

	message := body.Message
	if message == "" {
		message = body.Error
	}
	if message == "" {
		message = fmt.Sprintf("request failed with status %d", status)
	}

	c.logger.Debug("api error", "method", method, "path", path, "status", status, "message", message)

	switch status {
	case http.StatusUnauthorized:
		return internal.NewUnauthorizedError(message, internal.ErrCodeNotAuthenticated)
	case http.StatusForbidden:
		return internal.NewForbiddenError(message, internal.ErrCodeForbiddenAccess)
	case http.StatusNotFound:
		return internal.NewAPIError(status, message, internal.ErrCodeResourceMissed)
	default:
		return internal.NewAPIError(status, message, internal.ErrCodeRequestFailed)
	}
}

// Get issues a GET and decodes the JSON response into out.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

// Post issues a POST with a JSON body and decodes the response into out.
// Both body and out may be nil.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

// Patch issues a PATCH with a JSON body and decodes the response into out.
func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPatch, path, body, out)
}
