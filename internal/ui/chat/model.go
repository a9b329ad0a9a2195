// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view for the lumen TUI.
package chat

import (
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/lumen/internal/api"
	"github.com/jeranaias/lumen/internal/chatstore"
	"github.com/jeranaias/lumen/internal/model"
	"github.com/jeranaias/lumen/internal/session"
	"github.com/jeranaias/lumen/internal/typewriter"
	"github.com/jeranaias/lumen/internal/ui/styles"
)

// =============================================================================
// LAYOUT CONSTANTS
// =============================================================================

const (
	// sidebarWidth is the fixed width of the conversation list.
	sidebarWidth = 28

	// chromeHeight is the vertical space used by header, input, and status
	// bar around the viewport.
	chromeHeight = 6

	// lowBalanceThreshold switches the balance display to the warning
	// style.
	lowBalanceThreshold = 5
)

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat view.
type Model struct {
	// Collaborators
	client *api.Client
	store  *chatstore.Store
	turns  *session.Tracker

	// Styling
	theme *styles.Theme
	keys  KeyMap

	// UI components
	viewport viewport.Model
	input    textinput.Model
	spin     spinner.Model

	// Sidebar
	conversations []model.ConversationMeta

	// Credits
	balance int64

	// Reveal state for the reply being typed out. The generation counter
	// invalidates ticks from an abandoned reveal.
	reveal     *typewriter.Reveal
	revealID   model.MessageID
	generation int

	// Prompt held while a lazily created conversation is in flight. It
	// dispatches as soon as the created conversation is selected.
	pendingPrompt string
	pendingImage  bool

	// Flags
	imageMode      bool
	showTimestamps bool
	ready          bool
	errText        string

	width  int
	height int
}

// New creates the chat view over an API client.
func New(client *api.Client) Model {
	input := textinput.New()
	input.Placeholder = "Type a message..."
	input.CharLimit = 0
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	theme := styles.NewTheme()
	sp.Style = theme.Spinner

	return Model{
		client:   client,
		store:    chatstore.New(),
		turns:    session.NewTracker(),
		theme:    theme,
		keys:     DefaultKeyMap(),
		viewport: viewport.New(80, 20),
		input:    input,
		spin:     sp,
	}
}

// WithTimestamps toggles message timestamps in the log.
func (m Model) WithTimestamps(show bool) Model {
	m.showTimestamps = show
	return m
}

// Init loads the sidebar and the balance.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		loadConversationsCmd(m.client),
		loadCreditsCmd(m.client),
		textinput.Blink,
	)
}

// =============================================================================
// ACCESSORS (used by tests and the status bar)
// =============================================================================

// TurnState returns the current turn phase.
func (m Model) TurnState() session.State {
	return m.turns.State()
}

// Balance returns the last known credit balance.
func (m Model) Balance() int64 {
	return m.balance
}

// Messages returns the rendered message list.
func (m Model) Messages() []model.Message {
	return m.store.Messages()
}

// SelectedConversation returns the active conversation id.
func (m Model) SelectedConversation() string {
	return m.turns.Selected()
}

// ErrText returns the visible error banner text, if any.
func (m Model) ErrText() string {
	return m.errText
}
