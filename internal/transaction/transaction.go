// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package transaction executes one credit-metered chat turn.
package transaction

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jeranaias/lumen/internal/genai"
	"github.com/jeranaias/lumen/internal/model"
	"github.com/jeranaias/lumen/internal/store"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrInsufficientCredits means the balance cannot cover the turn cost.
	// Checked before any write.
	ErrInsufficientCredits = errors.New("insufficient credits")

	// ErrConversationNotFound means the conversation does not exist or is
	// not owned by the caller.
	ErrConversationNotFound = errors.New("conversation not found")

	// ErrBackendUnavailable means the generative backend failed. The user
	// message is kept, no reply exists, and nothing was charged.
	ErrBackendUnavailable = errors.New("generative backend unavailable")

	// ErrBackendTimeout means the generative backend exceeded its deadline.
	// Same partial state as ErrBackendUnavailable.
	ErrBackendTimeout = errors.New("generative backend timed out")

	// ErrPersistence means a store write failed mid-turn.
	ErrPersistence = errors.New("persistence failure")
)

// DefaultBackendTimeout bounds one generation call.
const DefaultBackendTimeout = 60 * time.Second

// =============================================================================
// EXECUTOR
// =============================================================================

// Executor runs chat turns against a store and a generative backend.
type Executor struct {
	store   store.Store
	backend genai.Backend
	timeout time.Duration

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewExecutor creates a turn executor. A zero timeout uses the default.
func NewExecutor(s store.Store, backend genai.Backend, timeout time.Duration) *Executor {
	if timeout <= 0 {
		timeout = DefaultBackendTimeout
	}
	return &Executor{
		store:   s,
		backend: backend,
		timeout: timeout,
		locks:   make(map[string]*sync.Mutex),
	}
}

// Result is a completed turn: both persisted messages and the balance after
// the debit.
type Result struct {
	UserMessage model.Message
	Reply       model.Message
	Balance     int64
}

// Execute runs one turn: the prompt is appended as a user message, the
// backend generates a reply, and the reply plus the credit debit commit
// together. Turns on the same conversation run one at a time.
func (e *Executor) Execute(ctx context.Context, ownerID, conversationID, prompt string, isImage bool) (*Result, error) {
	lock := e.conversationLock(conversationID)
	lock.Lock()
	defer lock.Unlock()

	cost := model.TurnCost(isImage)

	// Preconditions before any write: the conversation must be the
	// caller's, and the balance must cover the cost.
	if _, err := e.store.Get(ctx, ownerID, conversationID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	account, err := e.store.Account(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if !account.CanAfford(cost) {
		return nil, ErrInsufficientCredits
	}

	userMsg := model.Message{
		ID:        model.NewPersistedID(),
		Role:      model.RoleUser,
		Content:   prompt,
		CreatedAt: time.Now(),
	}
	if err := e.store.AppendMessage(ctx, ownerID, conversationID, userMsg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	content, err := e.generate(ctx, prompt, isImage)
	if err != nil {
		// The user message stays in the log. No reply, no debit.
		if genai.IsTimeout(err) {
			return nil, fmt.Errorf("%w: %v", ErrBackendTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	reply := model.NewAssistantMessage(content, isImage)
	balance, err := e.store.CommitReply(ctx, ownerID, conversationID, reply, cost)
	if err != nil {
		if errors.Is(err, store.ErrInsufficientCredits) {
			return nil, ErrInsufficientCredits
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	return &Result{
		UserMessage: userMsg,
		Reply:       reply,
		Balance:     balance,
	}, nil
}

func (e *Executor) generate(ctx context.Context, prompt string, isImage bool) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	if isImage {
		return e.backend.GenerateImage(ctx, prompt)
	}
	return e.backend.GenerateText(ctx, prompt)
}

// conversationLock returns the serialization lock for a conversation,
// creating it on first use.
func (e *Executor) conversationLock(conversationID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()

	lock, ok := e.locks[conversationID]
	if !ok {
		lock = &sync.Mutex{}
		e.locks[conversationID] = lock
	}
	return lock
}
