// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server provides the lumend HTTP API.
package server

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jeranaias/lumen/internal/api"
	"github.com/jeranaias/lumen/internal/model"
	"github.com/jeranaias/lumen/internal/store"
	"github.com/jeranaias/lumen/internal/transaction"
)

// stubBackend is a controllable generative backend for handler tests.
type stubBackend struct {
	textFn  func(prompt string) (string, error)
	imageFn func(prompt string) (string, error)
}

func (b *stubBackend) GenerateText(_ context.Context, prompt string) (string, error) {
	if b.textFn == nil {
		return "echo: " + prompt, nil
	}
	return b.textFn(prompt)
}

func (b *stubBackend) GenerateImage(_ context.Context, prompt string) (string, error) {
	if b.imageFn == nil {
		return "https://img.example/out.png", nil
	}
	return b.imageFn(prompt)
}

// newTestServer stands up a full server over a memory store and returns an
// API client authenticated as alice.
func newTestServer(t *testing.T, backend *stubBackend) (*api.Client, *store.MemoryStore, *httptest.Server) {
	t.Helper()

	s := store.NewMemoryStore()
	exec := transaction.NewExecutor(s, backend, time.Second)
	srv := NewServer(0, s, exec, StaticTokens{"tok-alice": "alice", "tok-bob": "bob"}).
		WithRateLimiter(NewUserRateLimiter(6000, 100))

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	client := api.NewClient(&api.ClientConfig{BaseURL: ts.URL, Token: "tok-alice"})
	return client, s, ts
}

// ============================================================================
// AUTH
// ============================================================================

func TestAuth_RejectsUnknownToken(t *testing.T) {
	_, _, ts := newTestServer(t, &stubBackend{})

	for _, token := range []string{"", "tok-mallory"} {
		req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/credits", nil)
		if token != "" {
			req.Header.Set("Authorization", token)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("request: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("token %q: status = %d, want 401", token, resp.StatusCode)
		}
	}
}

func TestStaticTokens_Resolve(t *testing.T) {
	tokens := StaticTokens{"tok-alice": "alice"}

	if id, ok := tokens.Resolve("tok-alice"); !ok || id != "alice" {
		t.Errorf("Resolve = %q/%v", id, ok)
	}
	if _, ok := tokens.Resolve("tok-wrong"); ok {
		t.Error("unknown token should not resolve")
	}
	if _, ok := tokens.Resolve(""); ok {
		t.Error("empty token should not resolve")
	}
}

// ============================================================================
// TURNS
// ============================================================================

func TestTurn_TextSuccess(t *testing.T) {
	client, _, _ := newTestServer(t, &stubBackend{})
	ctx := context.Background()

	conv, err := client.CreateConversation(ctx)
	if err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}

	result, err := client.SendText(ctx, conv.ID, "hello there")
	if err != nil {
		t.Fatalf("SendText: %v", err)
	}
	if result.Reply.Content != "echo: hello there" {
		t.Errorf("reply = %q", result.Reply.Content)
	}
	if result.Balance != model.DefaultStartingCredits-model.CostTextTurn {
		t.Errorf("balance = %d, want %d", result.Balance, model.DefaultStartingCredits-model.CostTextTurn)
	}
	if result.UserMessage.Content != "hello there" {
		t.Errorf("user message = %q", result.UserMessage.Content)
	}

	got, err := client.GetConversation(ctx, conv.ID)
	if err != nil {
		t.Fatalf("GetConversation: %v", err)
	}
	if got.MessageCount() != 2 {
		t.Errorf("message count = %d, want 2", got.MessageCount())
	}
	if got.Title != "hello there" {
		t.Errorf("title = %q", got.Title)
	}
}

func TestTurn_ImageCostsTwo(t *testing.T) {
	client, _, _ := newTestServer(t, &stubBackend{})
	ctx := context.Background()

	conv, err := client.CreateConversation(ctx)
	if err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}

	result, err := client.SendImage(ctx, conv.ID, "a sunset")
	if err != nil {
		t.Fatalf("SendImage: %v", err)
	}
	if !result.Reply.IsImage {
		t.Error("reply should be marked as an image")
	}
	if result.Balance != model.DefaultStartingCredits-model.CostImageTurn {
		t.Errorf("balance = %d, want %d", result.Balance, model.DefaultStartingCredits-model.CostImageTurn)
	}
}

func TestTurn_InsufficientCredits(t *testing.T) {
	client, s, _ := newTestServer(t, &stubBackend{})
	ctx := context.Background()

	conv, err := client.CreateConversation(ctx)
	if err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}
	s.SetBalance("alice", 0)

	_, err = client.SendText(ctx, conv.ID, "hello")
	if !errors.Is(err, api.ErrInsufficientCredits) {
		t.Fatalf("SendText = %v, want ErrInsufficientCredits", err)
	}

	// The rejected turn must not have written anything.
	got, err := client.GetConversation(ctx, conv.ID)
	if err != nil {
		t.Fatalf("GetConversation: %v", err)
	}
	if got.MessageCount() != 0 {
		t.Errorf("message count = %d, want 0", got.MessageCount())
	}
}

func TestTurn_UnknownConversation(t *testing.T) {
	client, _, _ := newTestServer(t, &stubBackend{})

	_, err := client.SendText(context.Background(), "no-such-id", "hello")
	if !errors.Is(err, api.ErrConversationNotFound) {
		t.Errorf("SendText = %v, want ErrConversationNotFound", err)
	}
}

func TestTurn_BackendFailureKeepsUserMessage(t *testing.T) {
	backend := &stubBackend{
		textFn: func(string) (string, error) {
			return "", errors.New("connection refused")
		},
	}
	client, _, _ := newTestServer(t, backend)
	ctx := context.Background()

	conv, err := client.CreateConversation(ctx)
	if err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}

	_, err = client.SendText(ctx, conv.ID, "hello")
	if !errors.Is(err, api.ErrBackendUnavailable) {
		t.Fatalf("SendText = %v, want ErrBackendUnavailable", err)
	}

	got, err := client.GetConversation(ctx, conv.ID)
	if err != nil {
		t.Fatalf("GetConversation: %v", err)
	}
	if got.MessageCount() != 1 {
		t.Errorf("message count = %d, want 1 (user message kept)", got.MessageCount())
	}

	balance, err := client.Credits(ctx)
	if err != nil {
		t.Fatalf("Credits: %v", err)
	}
	if balance != model.DefaultStartingCredits {
		t.Errorf("balance = %d, want %d (no debit on failure)", balance, model.DefaultStartingCredits)
	}
}

func TestTurn_PromptTooLong(t *testing.T) {
	_, _, ts := newTestServer(t, &stubBackend{})

	body := `{"conversation_id":"c","prompt":"` + strings.Repeat("a", MaxPromptLength+1) + `"}`
	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/api/message/text", bytes.NewReader([]byte(body)))
	req.Header.Set("Authorization", "tok-alice")
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

// ============================================================================
// CONVERSATION MANAGEMENT
// ============================================================================

func TestChat_ListIsOwnerScoped(t *testing.T) {
	client, _, ts := newTestServer(t, &stubBackend{})
	ctx := context.Background()

	if _, err := client.CreateConversation(ctx); err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}

	bob := api.NewClient(&api.ClientConfig{BaseURL: ts.URL, Token: "tok-bob"})
	if _, err := bob.CreateConversation(ctx); err != nil {
		t.Fatalf("bob CreateConversation: %v", err)
	}

	metas, err := client.ListConversations(ctx)
	if err != nil {
		t.Fatalf("ListConversations: %v", err)
	}
	if len(metas) != 1 {
		t.Errorf("alice sees %d conversations, want 1", len(metas))
	}
}

func TestChat_GetIsOwnerScoped(t *testing.T) {
	client, _, ts := newTestServer(t, &stubBackend{})
	ctx := context.Background()

	conv, err := client.CreateConversation(ctx)
	if err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}

	bob := api.NewClient(&api.ClientConfig{BaseURL: ts.URL, Token: "tok-bob"})
	_, err = bob.GetConversation(ctx, conv.ID)
	if !errors.Is(err, api.ErrConversationNotFound) {
		t.Errorf("cross-owner get = %v, want ErrConversationNotFound", err)
	}
}

func TestChat_DeleteIdempotent(t *testing.T) {
	client, _, _ := newTestServer(t, &stubBackend{})
	ctx := context.Background()

	conv, err := client.CreateConversation(ctx)
	if err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := client.DeleteConversation(ctx, conv.ID); err != nil {
			t.Fatalf("delete %d: %v", i, err)
		}
	}
	if _, err := client.GetConversation(ctx, conv.ID); !errors.Is(err, api.ErrConversationNotFound) {
		t.Errorf("get after delete = %v, want ErrConversationNotFound", err)
	}
}

// ============================================================================
// RATE LIMITING
// ============================================================================

func TestRateLimit_PerUser(t *testing.T) {
	s := store.NewMemoryStore()
	exec := transaction.NewExecutor(s, &stubBackend{}, time.Second)
	srv := NewServer(0, s, exec, StaticTokens{"tok-alice": "alice"}).
		WithRateLimiter(NewUserRateLimiter(1, 1))

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	statuses := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/credits", nil)
		req.Header.Set("Authorization", "tok-alice")
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
		resp.Body.Close()
		statuses = append(statuses, resp.StatusCode)
	}

	if statuses[0] != http.StatusOK {
		t.Errorf("first request status = %d, want 200", statuses[0])
	}
	if statuses[1] != http.StatusTooManyRequests {
		t.Errorf("second request status = %d, want 429", statuses[1])
	}
}
