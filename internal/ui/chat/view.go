// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view for the lumen TUI.
package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/jeranaias/lumen/internal/model"
	"github.com/jeranaias/lumen/internal/session"
)

// View renders the full chat layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	sidebar := m.renderSidebar()
	main := lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.viewport.View(),
		m.renderInput(),
		m.renderStatusBar(),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, sidebar, main)
}

// =============================================================================
// HEADER
// =============================================================================

func (m Model) renderHeader() string {
	title := m.theme.HeaderTitle.Render("lumen")

	conversation := ""
	for _, meta := range m.conversations {
		if meta.ID == m.turns.Selected() {
			conversation = meta.Title
			break
		}
	}
	if conversation != "" {
		title += m.theme.SidebarMeta.Render("  "+runewidth.Truncate(conversation, 40, "..."))
	}

	balance := m.renderBalance()
	gap := m.viewport.Width - lipgloss.Width(title) - lipgloss.Width(balance)
	if gap < 1 {
		gap = 1
	}

	return m.theme.Header.Render(title + strings.Repeat(" ", gap) + balance)
}

func (m Model) renderBalance() string {
	label := fmt.Sprintf("%d credits", m.balance)
	switch {
	case m.balance <= 0:
		return m.theme.BalanceEmpty.Render(label)
	case m.balance <= lowBalanceThreshold:
		return m.theme.BalanceLow.Render(label)
	default:
		return m.theme.Balance.Render(label)
	}
}

// =============================================================================
// SIDEBAR
// =============================================================================

func (m Model) renderSidebar() string {
	var b strings.Builder
	b.WriteString(m.theme.SidebarMeta.Render("Conversations"))
	b.WriteString("\n\n")

	if len(m.conversations) == 0 {
		b.WriteString(m.theme.SidebarMeta.Render("(none yet)"))
	}

	for _, meta := range m.conversations {
		title := runewidth.Truncate(meta.Title, sidebarWidth-4, "...")
		if meta.ID == m.turns.Selected() {
			b.WriteString(m.theme.SidebarSelected.Render("> " + title))
		} else {
			b.WriteString(m.theme.SidebarItem.Render("  " + title))
		}
		b.WriteString("\n")
	}

	return m.theme.Sidebar.
		Width(sidebarWidth).
		Height(max(m.height-2, 5)).
		Render(b.String())
}

// =============================================================================
// MESSAGE LOG
// =============================================================================

// renderMessages builds the viewport content. A reply being revealed carries
// only its visible prefix in the store, so no special-casing happens here.
func (m Model) renderMessages() string {
	messages := m.store.Messages()
	if len(messages) == 0 {
		if m.turns.Selected() == "" {
			return m.theme.SidebarMeta.Render("Press Ctrl+N to start a conversation.")
		}
		return m.theme.SidebarMeta.Render("Say hello.")
	}

	width := max(m.viewport.Width-2, 20)
	var b strings.Builder
	for i, msg := range messages {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(m.renderMessage(msg, width))
		b.WriteString("\n")
	}

	if m.turns.State() == session.StateSending || m.turns.State() == session.StateAwaitingReply {
		b.WriteString("\n")
		b.WriteString(m.spin.View())
		b.WriteString(m.theme.SidebarMeta.Render(" thinking..."))
		b.WriteString("\n")
	}

	return b.String()
}

func (m Model) renderMessage(msg model.Message, width int) string {
	label := m.theme.AssistantLabel.Render(msg.Role.DisplayName())
	if msg.Role == model.RoleUser {
		label = m.theme.UserLabel.Render(msg.Role.DisplayName())
	}
	if m.showTimestamps {
		label += m.theme.Timestamp.Render("  " + msg.CreatedAt.Format("15:04"))
	}

	body := m.theme.MessageBody.Width(width).Render(msg.Content)
	if msg.IsImage {
		body = m.theme.ImageTag.Render("[image] ") + body
	}

	return label + "\n" + body
}

// =============================================================================
// INPUT AND STATUS
// =============================================================================

func (m Model) renderInput() string {
	prompt := m.input.View()
	if m.imageMode {
		prompt = m.theme.ImageTag.Render("[img] ") + prompt
	}
	return m.theme.InputContainer.
		Width(max(m.viewport.Width-2, 20)).
		Render(prompt)
}

func (m Model) renderStatusBar() string {
	if m.errText != "" {
		return m.theme.ErrorBanner.Render(m.errText)
	}

	state := ""
	switch m.turns.State() {
	case session.StateSending, session.StateAwaitingReply:
		state = m.theme.StatusState.Render("waiting for reply")
	case session.StateStreaming:
		state = m.theme.StatusState.Render("typing")
	}

	var help []string
	for _, binding := range m.keys.ShortHelp() {
		help = append(help, binding.Help().Key+" "+binding.Help().Desc)
	}

	line := strings.Join(help, "  ")
	if state != "" {
		line = state + "  " + line
	}
	return m.theme.StatusBar.Width(m.viewport.Width).Render(line)
}
