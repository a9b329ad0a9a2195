// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api defines the wire protocol between the lumen client and the
// lumend server.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/jeranaias/lumen/internal/model"
)

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// ClientConfig holds configuration options for the API client.
type ClientConfig struct {
	// BaseURL of the lumend server (default: http://127.0.0.1:8790).
	// Uses an explicit IPv4 address instead of localhost to avoid IPv6
	// resolution issues on Windows.
	BaseURL string

	// Token is the caller's identity credential, sent on every request.
	Token string

	// Timeout bounds one request round-trip. The turn endpoints include the
	// generative-backend latency, so this is deliberately generous.
	Timeout time.Duration
}

// DefaultClientConfig returns the default client configuration.
func DefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL: "http://127.0.0.1:8790",
		Timeout: 120 * time.Second,
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client is the HTTP client for the lumend API.
type Client struct {
	config *ClientConfig
	http   *http.Client
}

// NewClient creates an API client with the given configuration. A nil config
// uses defaults.
func NewClient(config *ClientConfig) *Client {
	if config == nil {
		config = DefaultClientConfig()
	}
	if config.BaseURL == "" {
		config.BaseURL = DefaultClientConfig().BaseURL
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultClientConfig().Timeout
	}
	return &Client{
		config: config,
		http:   &http.Client{Timeout: config.Timeout},
	}
}

// SetToken replaces the identity credential.
func (c *Client) SetToken(token string) {
	c.config.Token = token
}

// =============================================================================
// TURNS
// =============================================================================

// TurnResult is a successful turn: the persisted user message, the persisted
// reply, and the balance after the debit.
type TurnResult struct {
	UserMessage model.Message
	Reply       model.Message
	Balance     int64
}

// SendText submits one text turn and returns the complete reply. The server
// does not stream; incremental display is simulated client-side.
func (c *Client) SendText(ctx context.Context, conversationID, prompt string) (*TurnResult, error) {
	return c.sendTurn(ctx, "/api/message/text", conversationID, prompt)
}

// SendImage submits one image turn. The reply content is the generated image
// URL.
func (c *Client) SendImage(ctx context.Context, conversationID, prompt string) (*TurnResult, error) {
	return c.sendTurn(ctx, "/api/message/image", conversationID, prompt)
}

func (c *Client) sendTurn(ctx context.Context, path, conversationID, prompt string) (*TurnResult, error) {
	req := TurnRequest{ConversationID: conversationID, Prompt: prompt}

	var resp TurnResponse
	if err := c.postJSON(ctx, path, req, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, FromWire(resp.Code, resp.Message)
	}
	if resp.Reply == nil {
		return nil, NewTurnError(CodeNetworkFailure, "server returned success without a reply", nil)
	}

	result := &TurnResult{Reply: resp.Reply.ToModel()}
	if resp.UserMessage != nil {
		result.UserMessage = resp.UserMessage.ToModel()
	}
	if resp.Balance != nil {
		result.Balance = *resp.Balance
	}
	return result, nil
}

// =============================================================================
// CONVERSATION MANAGEMENT
// =============================================================================

// CreateConversation creates an empty conversation owned by the caller.
func (c *Client) CreateConversation(ctx context.Context) (*model.Conversation, error) {
	var resp CreateResponse
	if err := c.postJSON(ctx, "/api/chat/create", struct{}{}, &resp); err != nil {
		return nil, err
	}
	if !resp.Success || resp.Conversation == nil {
		return nil, FromWire(resp.Code, resp.Message)
	}
	return resp.Conversation.ToModel(), nil
}

// ListConversations returns the caller's conversations, most recently
// updated first.
func (c *Client) ListConversations(ctx context.Context) ([]model.ConversationMeta, error) {
	var resp ListResponse
	if err := c.getJSON(ctx, "/api/chat/list", &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, FromWire(resp.Code, resp.Message)
	}
	return resp.Conversations, nil
}

// GetConversation fetches one conversation with its full message log.
func (c *Client) GetConversation(ctx context.Context, id string) (*model.Conversation, error) {
	var resp GetResponse
	query := url.Values{"id": {id}}
	if err := c.getJSON(ctx, "/api/chat/get?"+query.Encode(), &resp); err != nil {
		return nil, err
	}
	if !resp.Success || resp.Conversation == nil {
		return nil, FromWire(resp.Code, resp.Message)
	}
	return resp.Conversation.ToModel(), nil
}

// DeleteConversation removes a conversation. Idempotent: deleting an already
// deleted id succeeds.
func (c *Client) DeleteConversation(ctx context.Context, id string) error {
	var resp DeleteResponse
	if err := c.postJSON(ctx, "/api/chat/delete", DeleteRequest{ConversationID: id}, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return FromWire(resp.Code, resp.Message)
	}
	return nil
}

// Credits returns the caller's current balance.
func (c *Client) Credits(ctx context.Context) (int64, error) {
	var resp CreditsResponse
	if err := c.getJSON(ctx, "/api/credits", &resp); err != nil {
		return 0, err
	}
	if !resp.Success {
		return 0, FromWire(resp.Code, resp.Message)
	}
	return resp.Balance, nil
}

// =============================================================================
// HTTP PLUMBING
// =============================================================================

// postJSON sends a JSON body and decodes the JSON response. Transport
// failures map to the network-failure taxonomy entry: the optimistic user
// message stays rendered and the caller surfaces an error.
func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return NewTurnError(CodeNetworkFailure, "encode request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return NewTurnError(CodeNetworkFailure, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	return c.do(req, out)
}

// getJSON issues a GET and decodes the JSON response.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+path, nil)
	if err != nil {
		return NewTurnError(CodeNetworkFailure, "build request", err)
	}
	c.authorize(req)

	return c.do(req, out)
}

func (c *Client) authorize(req *http.Request) {
	if c.config.Token != "" {
		req.Header.Set("Authorization", c.config.Token)
	}
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return NewTurnError(CodeNetworkFailure, "could not reach the server", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return NewTurnError(CodeNetworkFailure, "read response", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return NewTurnError(CodeNetworkFailure, "decode response", err)
	}
	return nil
}
