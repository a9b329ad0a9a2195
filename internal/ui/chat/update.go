// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view for the lumen TUI.
package chat

import (
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/lumen/internal/api"
	"github.com/jeranaias/lumen/internal/model"
	"github.com/jeranaias/lumen/internal/typewriter"
)

// Update handles all Bubble Tea messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg), nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		if m.turns.InFlight() {
			var cmd tea.Cmd
			m.spin, cmd = m.spin.Update(msg)
			return m, cmd
		}
		return m, nil

	case typewriter.TickMsg:
		return m.handleRevealTick(msg)

	case TurnFinishedMsg:
		return m.handleTurnFinished(msg)

	case ConversationsLoadedMsg:
		return m.handleConversationsLoaded(msg)

	case ConversationLoadedMsg:
		return m.handleConversationLoaded(msg)

	case ConversationCreatedMsg:
		return m.handleConversationCreated(msg)

	case ConversationDeletedMsg:
		return m.handleConversationDeleted(msg)

	case CreditsLoadedMsg:
		if msg.Err == nil {
			m.balance = msg.Balance
		}
		return m, nil
	}

	return m.updateComponents(msg)
}

// =============================================================================
// RESIZE AND KEYS
// =============================================================================

func (m Model) handleResize(msg tea.WindowSizeMsg) Model {
	m.width = msg.Width
	m.height = msg.Height

	m.viewport.Width = max(msg.Width-sidebarWidth-2, 20)
	m.viewport.Height = max(msg.Height-chromeHeight, 5)
	m.input.Width = max(msg.Width-sidebarWidth-6, 20)
	m.ready = true

	m.refreshViewport(false)
	return m
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Submit):
		return m.submitTurn()

	case key.Matches(msg, m.keys.NewChat):
		return m, createConversationCmd(m.client)

	case key.Matches(msg, m.keys.DeleteChat):
		if id := m.turns.Selected(); id != "" {
			return m, deleteConversationCmd(m.client, id)
		}
		return m, nil

	case key.Matches(msg, m.keys.NextChat):
		return m.moveSelection(1)

	case key.Matches(msg, m.keys.PrevChat):
		return m.moveSelection(-1)

	case key.Matches(msg, m.keys.ImageMode):
		m.imageMode = !m.imageMode
		return m, nil

	case key.Matches(msg, m.keys.ScrollUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keys.ScrollDown):
		m.viewport.HalfViewDown()
		return m, nil
	}

	return m.updateComponents(msg)
}

// updateComponents forwards unhandled messages to the focused components.
func (m Model) updateComponents(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// =============================================================================
// TURN LIFECYCLE
// =============================================================================

// submitTurn dispatches the typed prompt. With no conversation selected the
// conversation is created lazily first: the prompt is held and dispatches as
// soon as the created conversation becomes the active one.
func (m Model) submitTurn() (tea.Model, tea.Cmd) {
	prompt := strings.TrimSpace(m.input.Value())
	if prompt == "" || m.pendingPrompt != "" || m.turns.InFlight() {
		return m, nil
	}

	if m.turns.Selected() == "" {
		m.pendingPrompt = prompt
		m.pendingImage = m.imageMode
		m.imageMode = false
		m.input.SetValue("")
		m.errText = ""
		return m, createConversationCmd(m.client)
	}

	if !m.turns.CanSubmit() {
		return m, nil
	}

	isImage := m.imageMode
	m.imageMode = false
	m.input.SetValue("")
	return m.dispatchTurn(prompt, isImage)
}

// dispatchTurn appends the prompt optimistically and sends the request. The
// input stays locked until the turn settles.
func (m Model) dispatchTurn(prompt string, isImage bool) (tea.Model, tea.Cmd) {
	if !m.turns.CanSubmit() {
		return m, nil
	}

	userMsg := model.NewUserMessage(prompt, time.Now())
	tempID := m.store.AppendOptimistic(userMsg)

	conversationID, err := m.turns.Dispatch(tempID)
	if err != nil {
		return m, nil
	}
	if err := m.turns.MarkAwaiting(); err != nil {
		m.turns.Fail(err)
		m.errText = turnErrorText(err)
		return m, nil
	}

	m.errText = ""
	m.refreshViewport(true)

	return m, tea.Batch(
		sendTurnCmd(m.client, conversationID, prompt, isImage, tempID),
		m.spin.Tick,
	)
}

func (m Model) handleTurnFinished(msg TurnFinishedMsg) (tea.Model, tea.Cmd) {
	// A result for a turn this model no longer tracks (the user dispatched
	// after an error, or the turn was discarded) is dropped outright.
	if !msg.TempID.Equal(m.turns.TempID()) {
		return m, nil
	}

	if msg.Err != nil {
		m.turns.Fail(msg.Err)
		m.errText = turnErrorText(msg.Err)
		if errors.Is(msg.Err, api.ErrInsufficientCredits) {
			return m, loadCreditsCmd(m.client)
		}
		return m, nil
	}

	m.balance = msg.Result.Balance

	// A reply for a conversation the user has left is discarded; only the
	// sidebar recency needs refreshing.
	if !m.turns.AcceptReply() {
		m.turns.DiscardReply()
		return m, loadConversationsCmd(m.client)
	}

	if !msg.Result.UserMessage.ID.IsZero() {
		m.store.Reconcile(msg.TempID, msg.Result.UserMessage)
	}

	// The reply renders through the store: it starts blank and each reveal
	// tick patches the visible prefix in.
	m.store.AppendOptimistic(msg.Result.Reply)
	m.store.PatchContent(msg.Result.Reply.ID, "")

	m.turns.BeginStreaming()
	m.generation++
	m.reveal = typewriter.New(msg.Result.Reply.Content, time.Now())
	m.revealID = msg.Result.Reply.ID
	m.refreshViewport(true)

	return m, tea.Batch(
		typewriter.TickCmd(m.generation),
		loadConversationsCmd(m.client),
	)
}

func (m Model) handleRevealTick(msg typewriter.TickMsg) (tea.Model, tea.Cmd) {
	// Ticks from an abandoned reveal carry a stale generation.
	if msg.Generation != m.generation || m.reveal == nil {
		return m, nil
	}

	m.store.PatchContent(m.revealID, m.reveal.Step(msg.Time))
	m.refreshViewport(false)

	if m.reveal.Done() {
		m.turns.FinishStreaming()
		m.reveal = nil
		m.revealID = model.MessageID{}
		return m, nil
	}
	return m, typewriter.TickCmd(m.generation)
}

// =============================================================================
// CONVERSATION MANAGEMENT
// =============================================================================

func (m Model) handleConversationsLoaded(msg ConversationsLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m.errText = turnErrorText(msg.Err)
		return m, nil
	}
	m.conversations = msg.Metas

	// First load with no selection: open the most recent conversation.
	if m.turns.Selected() == "" && len(m.conversations) > 0 {
		return m.selectConversation(m.conversations[0].ID)
	}
	return m, nil
}

func (m Model) handleConversationLoaded(msg ConversationLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m.errText = turnErrorText(msg.Err)
		return m, nil
	}
	// Ignore a load that finished after the user moved on.
	if msg.Conversation.ID != m.turns.Selected() {
		return m, nil
	}

	m.store.Select(msg.Conversation)
	m.refreshViewport(true)
	return m, nil
}

func (m Model) handleConversationCreated(msg ConversationCreatedMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m.pendingPrompt = ""
		m.pendingImage = false
		m.errText = turnErrorText(msg.Err)
		return m, nil
	}

	m.conversations = append([]model.ConversationMeta{msg.Conversation.Meta()}, m.conversations...)

	// The created conversation arrives complete (and empty), so it is
	// selected directly without a load round-trip that could evict an
	// optimistic message.
	m.cancelReveal()
	m.turns.SelectConversation(msg.Conversation.ID)
	m.store.Select(msg.Conversation)
	m.errText = ""
	m.refreshViewport(true)

	if m.pendingPrompt != "" {
		prompt, isImage := m.pendingPrompt, m.pendingImage
		m.pendingPrompt, m.pendingImage = "", false
		return m.dispatchTurn(prompt, isImage)
	}
	return m, nil
}

func (m Model) handleConversationDeleted(msg ConversationDeletedMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m.errText = turnErrorText(msg.Err)
		return m, nil
	}

	kept := m.conversations[:0]
	for _, meta := range m.conversations {
		if meta.ID != msg.ID {
			kept = append(kept, meta)
		}
	}
	m.conversations = kept

	if m.turns.Selected() == msg.ID {
		m.cancelReveal()
		m.store.Select(nil)
		if len(m.conversations) > 0 {
			return m.selectConversation(m.conversations[0].ID)
		}
		m.turns.SelectConversation("")
		m.refreshViewport(true)
	}
	return m, nil
}

// selectConversation switches the active conversation. The message list
// clears immediately and repopulates when the load completes; an in-flight
// turn for the previous conversation keeps running but its reply will not
// render here.
func (m Model) selectConversation(id string) (tea.Model, tea.Cmd) {
	if id == m.turns.Selected() {
		return m, nil
	}

	m.cancelReveal()
	m.turns.SelectConversation(id)
	m.store.Select(nil)
	m.errText = ""
	m.refreshViewport(true)

	return m, loadConversationCmd(m.client, id)
}

func (m Model) moveSelection(delta int) (tea.Model, tea.Cmd) {
	if len(m.conversations) == 0 {
		return m, nil
	}

	current := -1
	for i, meta := range m.conversations {
		if meta.ID == m.turns.Selected() {
			current = i
			break
		}
	}

	next := current + delta
	if next < 0 {
		next = 0
	}
	if next >= len(m.conversations) {
		next = len(m.conversations) - 1
	}
	if next == current {
		return m, nil
	}
	return m.selectConversation(m.conversations[next].ID)
}

// =============================================================================
// HELPERS
// =============================================================================

// cancelReveal abandons an in-progress reveal. The generation bump makes
// any queued tick a no-op.
func (m *Model) cancelReveal() {
	m.generation++
	if m.reveal != nil {
		m.reveal = nil
		m.revealID = model.MessageID{}
		m.turns.DiscardReply()
	}
}

// refreshViewport rebuilds the log content. The view follows the newest
// message only when the user was already at the bottom, so scrollback
// reading survives a streaming reply.
func (m *Model) refreshViewport(force bool) {
	wasAtBottom := m.viewport.AtBottom()
	m.viewport.SetContent(m.renderMessages())
	if force || wasAtBottom {
		m.viewport.GotoBottom()
	}
}

// turnErrorText renders an error for the banner, preferring the taxonomy
// message over raw error text.
func turnErrorText(err error) string {
	var turnErr *api.TurnError
	if errors.As(err, &turnErr) {
		return turnErr.Message
	}
	return err.Error()
}
