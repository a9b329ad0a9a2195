// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures shared by the lumen client and
// server.
package model

import (
	"sort"
	"strings"
	"time"
)

// DefaultTitle is the title given to a conversation created lazily on first
// send, before any message has been appended.
const DefaultTitle = "New Chat"

// TitleMaxLen is the maximum rune length of an auto-generated title.
const TitleMaxLen = 50

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation is an ordered, owned log of messages. Messages are only ever
// appended; ordering is by CreatedAt with ties broken by insertion order.
type Conversation struct {
	ID        string
	OwnerID   string
	Title     string
	Messages  []Message
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewConversation creates an empty conversation owned by ownerID.
func NewConversation(ownerID string) *Conversation {
	now := time.Now()
	return &Conversation{
		ID:        NewPersistedID().String(),
		OwnerID:   ownerID,
		Title:     DefaultTitle,
		Messages:  make([]Message, 0),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Append adds a message to the log and bumps UpdatedAt. The first user
// message replaces the default title with a truncated preview.
func (c *Conversation) Append(msg Message) {
	c.Messages = append(c.Messages, msg)
	c.UpdatedAt = time.Now()
	c.updateTitle()
}

// LastMessage returns the most recent message, or a zero Message if empty.
func (c *Conversation) LastMessage() (Message, bool) {
	if len(c.Messages) == 0 {
		return Message{}, false
	}
	return c.Messages[len(c.Messages)-1], true
}

// MessageCount returns the number of messages.
func (c *Conversation) MessageCount() int {
	return len(c.Messages)
}

// IsEmpty returns true if there are no messages.
func (c *Conversation) IsEmpty() bool {
	return len(c.Messages) == 0
}

// updateTitle replaces the default title with a preview of the first user
// message once one exists.
func (c *Conversation) updateTitle() {
	if c.Title != "" && c.Title != DefaultTitle {
		return
	}
	for _, msg := range c.Messages {
		if msg.Role == RoleUser {
			c.Title = TitleFromPrompt(msg.Content)
			return
		}
	}
}

// TitleFromPrompt derives a conversation title from prompt text: newlines
// collapsed, truncated to TitleMaxLen runes.
func TitleFromPrompt(prompt string) string {
	title := strings.ReplaceAll(prompt, "\n", " ")
	title = strings.ReplaceAll(title, "\r", "")
	title = strings.TrimSpace(title)
	if title == "" {
		return DefaultTitle
	}
	runes := []rune(title)
	if len(runes) > TitleMaxLen {
		title = string(runes[:TitleMaxLen-3]) + "..."
	}
	return title
}

// =============================================================================
// CONVERSATION METADATA
// =============================================================================

// ConversationMeta holds lightweight metadata for listing.
type ConversationMeta struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	MessageCount int       `json:"message_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Meta returns the conversation's listing metadata.
func (c *Conversation) Meta() ConversationMeta {
	return ConversationMeta{
		ID:           c.ID,
		Title:        c.Title,
		MessageCount: len(c.Messages),
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

// SortMetasByRecency orders metadata most recently updated first, for the
// recency display in the conversation list.
func SortMetasByRecency(metas []ConversationMeta) {
	sort.SliceStable(metas, func(i, j int) bool {
		return metas[i].UpdatedAt.After(metas[j].UpdatedAt)
	})
}
