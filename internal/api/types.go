// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api defines the wire protocol between the lumen client and the
// lumend server.
package api

import (
	"time"

	"github.com/jeranaias/lumen/internal/model"
)

// =============================================================================
// WIRE MESSAGE
// =============================================================================

// WireMessage is a persisted message on the wire. IDs are always
// server-assigned by the time a message crosses the wire.
type WireMessage struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	CreatedAt int64  `json:"created_at"` // unix milliseconds
	IsImage   bool   `json:"is_image"`
}

// ToModel converts a wire message to the domain type.
func (w WireMessage) ToModel() model.Message {
	return model.Message{
		ID:        model.PersistedID(w.ID),
		Role:      model.Role(w.Role),
		Content:   w.Content,
		CreatedAt: time.UnixMilli(w.CreatedAt),
		IsImage:   w.IsImage,
	}
}

// WireMessageFrom converts a domain message for the wire.
func WireMessageFrom(m model.Message) WireMessage {
	return WireMessage{
		ID:        m.ID.String(),
		Role:      m.Role.String(),
		Content:   m.Content,
		CreatedAt: m.CreatedAt.UnixMilli(),
		IsImage:   m.IsImage,
	}
}

// =============================================================================
// TURN REQUEST / RESPONSE
// =============================================================================

// TurnRequest is the body of POST /api/message/text and /api/message/image.
type TurnRequest struct {
	ConversationID string `json:"conversation_id"`
	Prompt         string `json:"prompt"`
}

// TurnResponse is the result of one chat turn. UserMessage carries the
// persisted form of the prompt so the client can replace its provisional
// entry with the server-confirmed one.
type TurnResponse struct {
	Success     bool         `json:"success"`
	UserMessage *WireMessage `json:"user_message,omitempty"`
	Reply       *WireMessage `json:"reply,omitempty"`
	Balance     *int64       `json:"balance,omitempty"`
	Code        ErrorCode    `json:"code,omitempty"`
	Message     string       `json:"message,omitempty"`
}

// =============================================================================
// CONVERSATION MANAGEMENT
// =============================================================================

// WireConversation is a full conversation with its message log.
type WireConversation struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Messages  []WireMessage `json:"messages"`
	CreatedAt int64         `json:"created_at"`
	UpdatedAt int64         `json:"updated_at"`
}

// ToModel converts a wire conversation to the domain type. OwnerID is not on
// the wire; the server only ever returns the caller's own conversations.
func (w WireConversation) ToModel() *model.Conversation {
	conv := &model.Conversation{
		ID:        w.ID,
		Title:     w.Title,
		CreatedAt: time.UnixMilli(w.CreatedAt),
		UpdatedAt: time.UnixMilli(w.UpdatedAt),
		Messages:  make([]model.Message, 0, len(w.Messages)),
	}
	for _, m := range w.Messages {
		conv.Messages = append(conv.Messages, m.ToModel())
	}
	return conv
}

// WireConversationFrom converts a domain conversation for the wire.
func WireConversationFrom(c *model.Conversation) WireConversation {
	wc := WireConversation{
		ID:        c.ID,
		Title:     c.Title,
		CreatedAt: c.CreatedAt.UnixMilli(),
		UpdatedAt: c.UpdatedAt.UnixMilli(),
		Messages:  make([]WireMessage, 0, len(c.Messages)),
	}
	for _, m := range c.Messages {
		wc.Messages = append(wc.Messages, WireMessageFrom(m))
	}
	return wc
}

// CreateResponse is the result of POST /api/chat/create.
type CreateResponse struct {
	Success      bool              `json:"success"`
	Conversation *WireConversation `json:"conversation,omitempty"`
	Code         ErrorCode         `json:"code,omitempty"`
	Message      string            `json:"message,omitempty"`
}

// ListResponse is the result of GET /api/chat/list, most recent first.
type ListResponse struct {
	Success       bool                     `json:"success"`
	Conversations []model.ConversationMeta `json:"conversations,omitempty"`
	Code          ErrorCode                `json:"code,omitempty"`
	Message       string                   `json:"message,omitempty"`
}

// GetResponse is the result of GET /api/chat/get.
type GetResponse struct {
	Success      bool              `json:"success"`
	Conversation *WireConversation `json:"conversation,omitempty"`
	Code         ErrorCode         `json:"code,omitempty"`
	Message      string            `json:"message,omitempty"`
}

// DeleteRequest is the body of POST /api/chat/delete.
type DeleteRequest struct {
	ConversationID string `json:"conversation_id"`
}

// DeleteResponse is the result of POST /api/chat/delete. Deleting an already
// deleted conversation succeeds.
type DeleteResponse struct {
	Success bool      `json:"success"`
	Code    ErrorCode `json:"code,omitempty"`
	Message string    `json:"message,omitempty"`
}

// CreditsResponse is the result of GET /api/credits.
type CreditsResponse struct {
	Success bool      `json:"success"`
	Balance int64     `json:"balance"`
	Code    ErrorCode `json:"code,omitempty"`
	Message string    `json:"message,omitempty"`
}
