// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package transaction executes one credit-metered chat turn.
package transaction

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jeranaias/lumen/internal/model"
	"github.com/jeranaias/lumen/internal/store"
)

// fakeBackend implements genai.Backend with injectable behavior.
type fakeBackend struct {
	mu        sync.Mutex
	textFn    func(prompt string) (string, error)
	imageFn   func(prompt string) (string, error)
	textCalls int
}

func (f *fakeBackend) GenerateText(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	f.textCalls++
	fn := f.textFn
	f.mu.Unlock()
	if fn == nil {
		return "reply to: " + prompt, nil
	}
	return fn(prompt)
}

func (f *fakeBackend) GenerateImage(_ context.Context, prompt string) (string, error) {
	if f.imageFn == nil {
		return "https://img.example/generated.png", nil
	}
	return f.imageFn(prompt)
}

func (f *fakeBackend) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.textCalls
}

func newExecutor(t *testing.T, backend *fakeBackend) (*Executor, *store.MemoryStore, string) {
	t.Helper()
	s := store.NewMemoryStore()
	conv, err := s.Create(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return NewExecutor(s, backend, time.Second), s, conv.ID
}

func TestExecute_TextTurn(t *testing.T) {
	exec, s, convID := newExecutor(t, &fakeBackend{})
	ctx := context.Background()

	result, err := exec.Execute(ctx, "alice", convID, "hello", false)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Reply.Content != "reply to: hello" {
		t.Errorf("reply = %q", result.Reply.Content)
	}
	if result.Balance != model.DefaultStartingCredits-model.CostTextTurn {
		t.Errorf("balance = %d, want %d", result.Balance, model.DefaultStartingCredits-model.CostTextTurn)
	}
	if !result.UserMessage.ID.IsPersisted() || !result.Reply.ID.IsPersisted() {
		t.Error("turn results must carry persisted IDs")
	}

	conv, err := s.Get(ctx, "alice", convID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if conv.MessageCount() != 2 {
		t.Errorf("message count = %d, want 2", conv.MessageCount())
	}
	if conv.Title != "hello" {
		t.Errorf("title = %q, want auto-title from prompt", conv.Title)
	}
}

func TestExecute_ImageTurnCostsTwo(t *testing.T) {
	exec, _, convID := newExecutor(t, &fakeBackend{})

	result, err := exec.Execute(context.Background(), "alice", convID, "a sunset", true)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !result.Reply.IsImage {
		t.Error("reply should be marked as image")
	}
	if result.Reply.Content != "https://img.example/generated.png" {
		t.Errorf("reply = %q", result.Reply.Content)
	}
	if result.Balance != model.DefaultStartingCredits-model.CostImageTurn {
		t.Errorf("balance = %d, want %d", result.Balance, model.DefaultStartingCredits-model.CostImageTurn)
	}
}

func TestExecute_InsufficientCreditsBeforeAnyWrite(t *testing.T) {
	backend := &fakeBackend{}
	exec, s, convID := newExecutor(t, backend)
	s.SetBalance("alice", 0)

	_, err := exec.Execute(context.Background(), "alice", convID, "hello", false)
	if !errors.Is(err, ErrInsufficientCredits) {
		t.Fatalf("Execute = %v, want ErrInsufficientCredits", err)
	}
	if backend.calls() != 0 {
		t.Error("backend must not be called when the balance cannot cover the turn")
	}

	conv, err := s.Get(context.Background(), "alice", convID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if conv.MessageCount() != 0 {
		t.Errorf("message count = %d, want 0 (rejected turn writes nothing)", conv.MessageCount())
	}
}

func TestExecute_BalanceOfOneAllowsExactlyOneTextTurn(t *testing.T) {
	exec, s, convID := newExecutor(t, &fakeBackend{})
	s.SetBalance("alice", 1)
	ctx := context.Background()

	result, err := exec.Execute(ctx, "alice", convID, "first", false)
	if err != nil {
		t.Fatalf("first turn: %v", err)
	}
	if result.Balance != 0 {
		t.Errorf("balance = %d, want 0", result.Balance)
	}

	_, err = exec.Execute(ctx, "alice", convID, "second", false)
	if !errors.Is(err, ErrInsufficientCredits) {
		t.Errorf("second turn = %v, want ErrInsufficientCredits", err)
	}
}

func TestExecute_ImageTurnRejectedWithOneCredit(t *testing.T) {
	exec, s, convID := newExecutor(t, &fakeBackend{})
	s.SetBalance("alice", 1)

	_, err := exec.Execute(context.Background(), "alice", convID, "a sunset", true)
	if !errors.Is(err, ErrInsufficientCredits) {
		t.Errorf("Execute = %v, want ErrInsufficientCredits", err)
	}
}

func TestExecute_BackendFailureKeepsUserMessage(t *testing.T) {
	backend := &fakeBackend{
		textFn: func(string) (string, error) {
			return "", errors.New("connection refused")
		},
	}
	exec, s, convID := newExecutor(t, backend)
	ctx := context.Background()

	_, err := exec.Execute(ctx, "alice", convID, "hello", false)
	if !errors.Is(err, ErrBackendUnavailable) {
		t.Fatalf("Execute = %v, want ErrBackendUnavailable", err)
	}

	conv, err := s.Get(ctx, "alice", convID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if conv.MessageCount() != 1 {
		t.Fatalf("message count = %d, want 1 (user message kept)", conv.MessageCount())
	}
	if conv.Messages[0].Role != model.RoleUser {
		t.Error("kept message should be the user prompt")
	}

	account, err := s.Account(ctx, "alice")
	if err != nil {
		t.Fatalf("Account: %v", err)
	}
	if account.Balance != model.DefaultStartingCredits {
		t.Errorf("balance = %d, want %d (failed turn charges nothing)", account.Balance, model.DefaultStartingCredits)
	}
}

func TestExecute_BackendTimeoutClassified(t *testing.T) {
	backend := &fakeBackend{
		textFn: func(string) (string, error) {
			return "", context.DeadlineExceeded
		},
	}
	exec, _, convID := newExecutor(t, backend)

	_, err := exec.Execute(context.Background(), "alice", convID, "hello", false)
	if !errors.Is(err, ErrBackendTimeout) {
		t.Errorf("Execute = %v, want ErrBackendTimeout", err)
	}
}

func TestExecute_UnknownConversation(t *testing.T) {
	exec, _, _ := newExecutor(t, &fakeBackend{})

	_, err := exec.Execute(context.Background(), "alice", "no-such-id", "hello", false)
	if !errors.Is(err, ErrConversationNotFound) {
		t.Errorf("Execute = %v, want ErrConversationNotFound", err)
	}
}

func TestExecute_ForeignConversation(t *testing.T) {
	exec, _, convID := newExecutor(t, &fakeBackend{})

	_, err := exec.Execute(context.Background(), "mallory", convID, "hello", false)
	if !errors.Is(err, ErrConversationNotFound) {
		t.Errorf("Execute = %v, want ErrConversationNotFound", err)
	}
}

func TestExecute_SerializesPerConversation(t *testing.T) {
	var inFlight, maxInFlight int
	var mu sync.Mutex

	backend := &fakeBackend{
		textFn: func(prompt string) (string, error) {
			mu.Lock()
			inFlight++
			if inFlight > maxInFlight {
				maxInFlight = inFlight
			}
			mu.Unlock()

			time.Sleep(10 * time.Millisecond)

			mu.Lock()
			inFlight--
			mu.Unlock()
			return "ok", nil
		},
	}
	exec, _, convID := newExecutor(t, backend)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			exec.Execute(ctx, "alice", convID, "concurrent", false)
		}()
	}
	wg.Wait()

	if maxInFlight != 1 {
		t.Errorf("max in-flight turns = %d, want 1 (per-conversation serialization)", maxInFlight)
	}
}
