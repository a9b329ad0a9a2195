// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view for the lumen TUI.
//
// This file defines the tea.Cmds that call the lumend API off the update
// loop. Each command captures the identifiers it needs at creation time;
// results carry those identifiers back so stale responses can be detected.
package chat

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/lumen/internal/api"
	"github.com/jeranaias/lumen/internal/model"
)

// sendTurnCmd dispatches one turn. The conversation id is the one captured
// at dispatch time, not whatever is selected when the reply lands.
func sendTurnCmd(client *api.Client, conversationID, prompt string, isImage bool, tempID model.MessageID) tea.Cmd {
	return func() tea.Msg {
		var (
			result *api.TurnResult
			err    error
		)
		if isImage {
			result, err = client.SendImage(context.Background(), conversationID, prompt)
		} else {
			result, err = client.SendText(context.Background(), conversationID, prompt)
		}
		return TurnFinishedMsg{
			ConversationID: conversationID,
			TempID:         tempID,
			Result:         result,
			Err:            err,
		}
	}
}

// loadConversationsCmd refreshes the sidebar list.
func loadConversationsCmd(client *api.Client) tea.Cmd {
	return func() tea.Msg {
		metas, err := client.ListConversations(context.Background())
		return ConversationsLoadedMsg{Metas: metas, Err: err}
	}
}

// loadConversationCmd fetches one conversation with its message log.
func loadConversationCmd(client *api.Client, id string) tea.Cmd {
	return func() tea.Msg {
		conv, err := client.GetConversation(context.Background(), id)
		return ConversationLoadedMsg{Conversation: conv, Err: err}
	}
}

// createConversationCmd creates an empty conversation.
func createConversationCmd(client *api.Client) tea.Cmd {
	return func() tea.Msg {
		conv, err := client.CreateConversation(context.Background())
		return ConversationCreatedMsg{Conversation: conv, Err: err}
	}
}

// deleteConversationCmd deletes a conversation.
func deleteConversationCmd(client *api.Client, id string) tea.Cmd {
	return func() tea.Msg {
		err := client.DeleteConversation(context.Background(), id)
		return ConversationDeletedMsg{ID: id, Err: err}
	}
}

// loadCreditsCmd refreshes the balance.
func loadCreditsCmd(client *api.Client) tea.Cmd {
	return func() tea.Msg {
		balance, err := client.Credits(context.Background())
		return CreditsLoadedMsg{Balance: balance, Err: err}
	}
}
