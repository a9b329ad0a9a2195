// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package genai provides the client for the generative backend.
package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ClientError represents an error from the generative backend.
type ClientError struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// Is matches any ClientError of the same type.
func (e *ClientError) Is(target error) bool {
	t, ok := target.(*ClientError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// ErrorType categorizes backend errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeUnavailable
	ErrTypeTimeout
	ErrTypeInvalidResponse
)

// Sentinel errors for easy checking.
var (
	ErrUnavailable = &ClientError{Type: ErrTypeUnavailable, Message: "generative backend unavailable"}
	ErrTimeout     = &ClientError{Type: ErrTypeTimeout, Message: "generative backend timed out"}
)

// IsTimeout reports whether the error is a backend timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded)
}

// IsUnavailable reports whether the error is a backend availability failure.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

// =============================================================================
// BACKEND INTERFACE
// =============================================================================

// Backend is the generative collaborator consumed by the message
// transaction. Implementations return one complete reply per call.
type Backend interface {
	// GenerateText returns the complete reply for a prompt.
	GenerateText(ctx context.Context, prompt string) (string, error)

	// GenerateImage returns the URL of a generated image for a prompt.
	GenerateImage(ctx context.Context, prompt string) (string, error)
}

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// ClientConfig holds configuration options for the backend client.
type ClientConfig struct {
	// BaseURL of the generation API.
	BaseURL string

	// APIKey authenticates lumend to the backend.
	APIKey string

	// Model is the generation model name.
	Model string

	// SystemPrompt is prepended to every text prompt.
	SystemPrompt string

	// Timeout bounds one generation call (default: 60s).
	Timeout time.Duration
}

// DefaultConfig returns the default backend client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL: "http://127.0.0.1:11434",
		Model:   "gemini-2.5-flash",
		Timeout: 60 * time.Second,
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client is the HTTP implementation of Backend.
type Client struct {
	config *ClientConfig
	http   *http.Client
}

// NewClient creates a backend client. A nil config uses defaults.
func NewClient(config *ClientConfig) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultConfig().Timeout
	}
	return &Client{
		config: config,
		http:   &http.Client{Timeout: config.Timeout},
	}
}

// generateRequest is the request body for the generation endpoint.
type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

// generateResponse is the response body for the generation endpoint.
type generateResponse struct {
	Text string `json:"text"`
	URL  string `json:"url,omitempty"`
}

// GenerateText returns the complete reply for a prompt. Replies are
// HTML-sanitized before they reach the store.
func (c *Client) GenerateText(ctx context.Context, prompt string) (string, error) {
	if c.config.SystemPrompt != "" {
		prompt = c.config.SystemPrompt + "\n\n" + prompt
	}

	resp, err := c.post(ctx, "/v1/generate", generateRequest{
		Model:  c.config.Model,
		Prompt: prompt,
		Stream: false,
	})
	if err != nil {
		return "", err
	}
	if resp.Text == "" {
		return "", &ClientError{Type: ErrTypeInvalidResponse, Message: "backend returned an empty reply"}
	}
	return StripHTML(resp.Text), nil
}

// GenerateImage returns the URL of a generated image for a prompt.
func (c *Client) GenerateImage(ctx context.Context, prompt string) (string, error) {
	resp, err := c.post(ctx, "/v1/images", generateRequest{
		Model:  c.config.Model,
		Prompt: prompt,
	})
	if err != nil {
		return "", err
	}
	if resp.URL == "" {
		return "", &ClientError{Type: ErrTypeInvalidResponse, Message: "backend returned no image URL"}
	}
	return resp.URL, nil
}

func (c *Client) post(ctx context.Context, path string, body generateRequest) (*generateResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeUnknown, Message: "encode request", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, &ClientError{Type: ErrTypeUnknown, Message: "build request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeoutErr(err) {
			return nil, &ClientError{Type: ErrTypeTimeout, Message: "generative backend timed out", Cause: err}
		}
		return nil, &ClientError{Type: ErrTypeUnavailable, Message: "generative backend unavailable", Cause: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeUnavailable, Message: "read backend response", Cause: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &ClientError{Type: ErrTypeUnavailable, Message: "backend returned " + resp.Status}
	}

	var out generateResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "decode backend response", Cause: err}
	}
	return &out, nil
}

// isTimeoutErr detects net-level timeouts wrapped by the http client.
func isTimeoutErr(err error) bool {
	type timeouter interface{ Timeout() bool }
	var t timeouter
	return errors.As(err, &t) && t.Timeout()
}

// =============================================================================
// SANITIZATION
// =============================================================================

var htmlTagPattern = regexp.MustCompile(`</?[^>]+(>|$)`)

// StripHTML removes HTML tags from reply text before persistence.
func StripHTML(s string) string {
	return strings.TrimSpace(htmlTagPattern.ReplaceAllString(s, ""))
}
