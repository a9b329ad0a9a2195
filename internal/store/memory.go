// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store provides server-side persistence for conversations and
// credit accounts.
package store

import (
	"context"
	"sync"

	"github.com/jeranaias/lumen/internal/model"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

// MemoryStore is the in-memory Store implementation used by tests and the
// ephemeral dev mode. It honors the same owner-filtering and atomicity
// contract as the SQLite store.
type MemoryStore struct {
	mu            sync.RWMutex
	conversations map[string]*model.Conversation
	credits       map[string]int64
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		conversations: make(map[string]*model.Conversation),
		credits:       make(map[string]int64),
	}
}

// Close is a no-op for the memory store.
func (s *MemoryStore) Close() error {
	return nil
}

// Create makes an empty conversation owned by ownerID.
func (s *MemoryStore) Create(_ context.Context, ownerID string) (*model.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv := model.NewConversation(ownerID)
	s.conversations[conv.ID] = conv
	return copyConversation(conv), nil
}

// Get returns one conversation with its full message log.
func (s *MemoryStore) Get(_ context.Context, ownerID, id string) (*model.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[id]
	if !ok || conv.OwnerID != ownerID {
		return nil, ErrNotFound
	}
	return copyConversation(conv), nil
}

// List returns the owner's conversation metadata, most recently updated
// first.
func (s *MemoryStore) List(_ context.Context, ownerID string) ([]model.ConversationMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	metas := make([]model.ConversationMeta, 0)
	for _, conv := range s.conversations {
		if conv.OwnerID == ownerID {
			metas = append(metas, conv.Meta())
		}
	}
	model.SortMetasByRecency(metas)
	return metas, nil
}

// Delete removes a conversation. Idempotent.
func (s *MemoryStore) Delete(_ context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if conv, ok := s.conversations[id]; ok && conv.OwnerID == ownerID {
		delete(s.conversations, id)
	}
	return nil
}

// AppendMessage appends one message and bumps the conversation's update
// time.
func (s *MemoryStore) AppendMessage(_ context.Context, ownerID, conversationID string, msg model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[conversationID]
	if !ok || conv.OwnerID != ownerID {
		return ErrNotFound
	}
	conv.Append(msg)
	return nil
}

// CommitReply atomically appends the assistant reply and debits the owner's
// balance by cost.
func (s *MemoryStore) CommitReply(_ context.Context, ownerID, conversationID string, reply model.Message, cost int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[conversationID]
	if !ok || conv.OwnerID != ownerID {
		return 0, ErrNotFound
	}

	balance := s.balanceLocked(ownerID)
	if balance < cost {
		return 0, ErrInsufficientCredits
	}

	conv.Append(reply)
	balance -= cost
	s.credits[ownerID] = balance
	return balance, nil
}

// Account returns the user's credit account, seeding the default starting
// balance on first sight.
func (s *MemoryStore) Account(_ context.Context, userID string) (model.CreditAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return model.CreditAccount{
		UserID:  userID,
		Balance: s.balanceLocked(userID),
	}, nil
}

// SetBalance overrides a user's balance. Test hook.
func (s *MemoryStore) SetBalance(userID string, balance int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credits[userID] = balance
}

func (s *MemoryStore) balanceLocked(userID string) int64 {
	if balance, ok := s.credits[userID]; ok {
		return balance
	}
	s.credits[userID] = model.DefaultStartingCredits
	return model.DefaultStartingCredits
}

// copyConversation returns a deep enough copy that callers cannot mutate the
// stored log.
func copyConversation(conv *model.Conversation) *model.Conversation {
	out := *conv
	out.Messages = make([]model.Message, len(conv.Messages))
	copy(out.Messages, conv.Messages)
	return &out
}
