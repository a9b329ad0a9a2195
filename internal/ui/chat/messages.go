// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view for the lumen TUI.
//
// This file defines the Bubble Tea message types used by the chat view.
// Messages are organized into the following categories:
//   - Turns: results of a dispatched chat turn
//   - Conversations: list, load, create, and delete results
//   - Credits: balance refreshes
package chat

import (
	"github.com/jeranaias/lumen/internal/api"
	"github.com/jeranaias/lumen/internal/model"
)

// =============================================================================
// TURN MESSAGES
// =============================================================================

// TurnFinishedMsg delivers the outcome of a dispatched turn. ConversationID
// and TempID are the values captured at dispatch, so a late result can be
// matched against the current selection.
type TurnFinishedMsg struct {
	ConversationID string
	TempID         model.MessageID
	Result         *api.TurnResult
	Err            error
}

// =============================================================================
// CONVERSATION MESSAGES
// =============================================================================

// ConversationsLoadedMsg delivers the sidebar list.
type ConversationsLoadedMsg struct {
	Metas []model.ConversationMeta
	Err   error
}

// ConversationLoadedMsg delivers a full conversation after selection.
type ConversationLoadedMsg struct {
	Conversation *model.Conversation
	Err          error
}

// ConversationCreatedMsg delivers a freshly created conversation.
type ConversationCreatedMsg struct {
	Conversation *model.Conversation
	Err          error
}

// ConversationDeletedMsg confirms a deletion.
type ConversationDeletedMsg struct {
	ID  string
	Err error
}

// =============================================================================
// CREDIT MESSAGES
// =============================================================================

// CreditsLoadedMsg delivers the current balance.
type CreditsLoadedMsg struct {
	Balance int64
	Err     error
}
