// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chatstore maintains the client-visible message list for the
// currently selected conversation.
package chatstore

import (
	"time"

	"github.com/jeranaias/lumen/internal/model"
)

// =============================================================================
// CHAT STORE
// =============================================================================

// Store holds the rendered message sequence for the active conversation and
// guarantees no duplicate renders.
type Store struct {
	conversationID string
	messages       []model.Message

	// seen indexes rendered messages by dedup key. Reset on every Select.
	seen map[string]int
}

// New creates an empty store with no conversation selected.
func New() *Store {
	return &Store{seen: make(map[string]int)}
}

// =============================================================================
// SELECTION
// =============================================================================

// Select replaces the entire visible list with the conversation's messages,
// de-duplicated by ID (falling back to CreatedAt when no ID is assigned).
//
// Clearing on every selection change is unconditional: stale messages from a
// previous conversation must never bleed through, including across a change
// of authenticated user. Selecting nil (logout, no conversation) clears and
// leaves nothing selected.
func (s *Store) Select(conv *model.Conversation) {
	s.conversationID = ""
	s.messages = s.messages[:0]
	s.seen = make(map[string]int)

	if conv == nil {
		return
	}

	s.conversationID = conv.ID
	for _, msg := range conv.Messages {
		key := msg.DedupKey()
		if _, dup := s.seen[key]; dup {
			continue
		}
		s.seen[key] = len(s.messages)
		s.messages = append(s.messages, msg)
	}
}

// ConversationID returns the ID of the selected conversation, or "" if none.
func (s *Store) ConversationID() string {
	return s.conversationID
}

// =============================================================================
// OPTIMISTIC INSERTION
// =============================================================================

// AppendOptimistic inserts a provisional message immediately, before any
// network round-trip completes, assigning it a provisional ID from the
// current time if it does not already carry one. Returns the assigned ID.
func (s *Store) AppendOptimistic(msg model.Message) model.MessageID {
	if msg.ID.IsZero() {
		if msg.CreatedAt.IsZero() {
			msg.CreatedAt = time.Now()
		}
		msg.ID = model.ProvisionalID(msg.CreatedAt)
	}

	key := msg.DedupKey()
	if idx, dup := s.seen[key]; dup {
		// Already rendered; do not insert twice.
		return s.messages[idx].ID
	}

	s.seen[key] = len(s.messages)
	s.messages = append(s.messages, msg)
	return msg.ID
}

// Reconcile replaces the provisional entry identified by tempID with the
// server-confirmed message, preserving its position. If the provisional
// entry was evicted by a concurrent Select, the confirmed message is
// appended instead (unless it is already rendered).
func (s *Store) Reconcile(tempID model.MessageID, final model.Message) {
	finalKey := final.DedupKey()
	if _, dup := s.seen[finalKey]; dup {
		return
	}

	for i, msg := range s.messages {
		if msg.ID.Equal(tempID) {
			delete(s.seen, msg.DedupKey())
			s.messages[i] = final
			s.seen[finalKey] = i
			return
		}
	}

	// Temp entry gone: fall back to append.
	s.seen[finalKey] = len(s.messages)
	s.messages = append(s.messages, final)
}

// =============================================================================
// CONTENT PATCHING
// =============================================================================

// PatchContent updates a message's content in place without changing its
// ordering or identity. Used only by the typewriter, so it applies to
// assistant messages only. Returns false if no matching assistant message
// exists.
func (s *Store) PatchContent(id model.MessageID, partial string) bool {
	for i := range s.messages {
		if s.messages[i].ID.Equal(id) {
			if s.messages[i].Role != model.RoleAssistant {
				return false
			}
			s.messages[i].Content = partial
			return true
		}
	}
	return false
}

// =============================================================================
// ACCESSORS
// =============================================================================

// Messages returns the visible message list in render order.
func (s *Store) Messages() []model.Message {
	return s.messages
}

// Len returns the number of visible messages.
func (s *Store) Len() int {
	return len(s.messages)
}

// Contains reports whether a message with the given ID is rendered.
func (s *Store) Contains(id model.MessageID) bool {
	for _, msg := range s.messages {
		if msg.ID.Equal(id) {
			return true
		}
	}
	return false
}
