// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures shared by the lumen client and
// server.
package model

import (
	"strconv"
	"time"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	default:
		return string(r)
	}
}

// Valid reports whether the role is one lumen accepts on the wire.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single message in a conversation.
type Message struct {
	ID        MessageID
	Role      Role
	Content   string
	CreatedAt time.Time
	IsImage   bool
}

// NewUserMessage creates a user message with a provisional ID assigned from
// the send time.
func NewUserMessage(content string, sentAt time.Time) Message {
	return Message{
		ID:        ProvisionalID(sentAt),
		Role:      RoleUser,
		Content:   content,
		CreatedAt: sentAt,
	}
}

// NewAssistantMessage creates a server-side assistant message with a fresh
// persisted ID.
func NewAssistantMessage(content string, isImage bool) Message {
	return Message{
		ID:        NewPersistedID(),
		Role:      RoleAssistant,
		Content:   content,
		CreatedAt: time.Now(),
		IsImage:   isImage,
	}
}

// DedupKey returns the key used to de-duplicate rendered messages: the ID if
// assigned, otherwise the creation timestamp. Persisted and provisional IDs
// with the same raw value produce distinct keys.
func (m Message) DedupKey() string {
	if !m.ID.IsZero() {
		if m.ID.IsPersisted() {
			return "p:" + m.ID.String()
		}
		return "t:" + m.ID.String()
	}
	return "t:" + strconv.FormatInt(m.CreatedAt.UnixMilli(), 10)
}

// Preview returns a truncated single-line preview of the message content.
// Uses rune-based truncation to handle Unicode correctly.
func (m Message) Preview(maxLen int) string {
	content := m.Content
	runes := []rune(content)
	if len(runes) <= maxLen {
		return content
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
