// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store provides server-side persistence for conversations and
// credit accounts.
package store

import (
	"context"
	"errors"

	"github.com/jeranaias/lumen/internal/model"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNotFound is returned when a conversation does not exist or is not
	// owned by the caller. The two cases are deliberately indistinguishable.
	ErrNotFound = errors.New("conversation not found")

	// ErrInsufficientCredits is returned when a debit would drive the
	// balance negative.
	ErrInsufficientCredits = errors.New("insufficient credits")
)

// =============================================================================
// STORE CONTRACTS
// =============================================================================

// ConversationStore is the source of truth for conversation logs.
type ConversationStore interface {
	// Create makes an empty conversation owned by ownerID.
	Create(ctx context.Context, ownerID string) (*model.Conversation, error)

	// Get returns one conversation with its full message log. Returns
	// ErrNotFound if the id does not exist or belongs to another owner.
	Get(ctx context.Context, ownerID, id string) (*model.Conversation, error)

	// List returns the owner's conversation metadata, most recently updated
	// first.
	List(ctx context.Context, ownerID string) ([]model.ConversationMeta, error)

	// Delete removes a conversation and its messages. Idempotent: deleting
	// an id that does not exist, or that belongs to another owner, succeeds
	// without effect.
	Delete(ctx context.Context, ownerID, id string) error

	// AppendMessage appends one message to the log, bumps the update time,
	// and derives the title from the first user message.
	AppendMessage(ctx context.Context, ownerID, conversationID string, msg model.Message) error

	// CommitReply atomically appends the assistant reply and debits the
	// owner's balance by cost. Neither effect happens if either would fail.
	// Returns the balance after the debit.
	CommitReply(ctx context.Context, ownerID, conversationID string, reply model.Message, cost int64) (int64, error)
}

// CreditStore tracks per-user credit balances.
type CreditStore interface {
	// Account returns the user's credit account, creating it with the
	// default starting balance on first sight.
	Account(ctx context.Context, userID string) (model.CreditAccount, error)
}

// Store is the full persistence surface lumend runs against.
type Store interface {
	ConversationStore
	CreditStore

	// Close releases the underlying resources.
	Close() error
}
