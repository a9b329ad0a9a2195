// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the lumen TUI.
// All colors use Lip Gloss AdaptiveColor for automatic light/dark detection.
package styles

import "github.com/charmbracelet/lipgloss"

// =============================================================================
// COLORS
// =============================================================================

// Purple - Primary accent, assistant messages, selections
var Purple = lipgloss.AdaptiveColor{Light: "#7C3AED", Dark: "#A78BFA"}

// Cyan - Brand color, user highlights
var Cyan = lipgloss.AdaptiveColor{Light: "#0891B2", Dark: "#22D3EE"}

// Emerald - Success states, credit balance
var Emerald = lipgloss.AdaptiveColor{Light: "#059669", Dark: "#34D399"}

// Rose - Errors, empty balance
var Rose = lipgloss.AdaptiveColor{Light: "#E11D48", Dark: "#FB7185"}

// Amber - Warnings, low balance
var Amber = lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#FBBF24"}

// Text - Primary text
var Text = lipgloss.AdaptiveColor{Light: "#1F2937", Dark: "#CDD6F4"}

// TextMuted - Secondary text, timestamps, help
var TextMuted = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#6C7086"}

// Surface - Panel backgrounds
var Surface = lipgloss.AdaptiveColor{Light: "#F5F5F5", Dark: "#181825"}

// Border - Panel borders
var Border = lipgloss.AdaptiveColor{Light: "#D1D5DB", Dark: "#313244"}

// =============================================================================
// THEME
// =============================================================================

// Theme bundles the lipgloss styles for the chat view.
type Theme struct {
	Header       lipgloss.Style
	HeaderTitle  lipgloss.Style
	Balance      lipgloss.Style
	BalanceLow   lipgloss.Style
	BalanceEmpty lipgloss.Style

	Sidebar         lipgloss.Style
	SidebarItem     lipgloss.Style
	SidebarSelected lipgloss.Style
	SidebarMeta     lipgloss.Style

	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	MessageBody    lipgloss.Style
	Timestamp      lipgloss.Style
	ImageTag       lipgloss.Style

	InputContainer lipgloss.Style
	StatusBar      lipgloss.Style
	StatusState    lipgloss.Style
	ErrorBanner    lipgloss.Style
	Help           lipgloss.Style
	Spinner        lipgloss.Style
}

// NewTheme creates the default theme.
func NewTheme() *Theme {
	t := &Theme{}

	t.Header = lipgloss.NewStyle().
		Background(Surface).
		Padding(0, 1)
	t.HeaderTitle = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)
	t.Balance = lipgloss.NewStyle().
		Foreground(Emerald).
		Bold(true)
	t.BalanceLow = lipgloss.NewStyle().
		Foreground(Amber).
		Bold(true)
	t.BalanceEmpty = lipgloss.NewStyle().
		Foreground(Rose).
		Bold(true)

	t.Sidebar = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderRight(true).
		BorderForeground(Border).
		PaddingRight(1)
	t.SidebarItem = lipgloss.NewStyle().
		Foreground(Text)
	t.SidebarSelected = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)
	t.SidebarMeta = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.UserLabel = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)
	t.AssistantLabel = lipgloss.NewStyle().
		Foreground(Purple).
		Bold(true)
	t.MessageBody = lipgloss.NewStyle().
		Foreground(Text)
	t.Timestamp = lipgloss.NewStyle().
		Foreground(TextMuted)
	t.ImageTag = lipgloss.NewStyle().
		Foreground(Amber)

	t.InputContainer = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Border).
		Padding(0, 1)
	t.StatusBar = lipgloss.NewStyle().
		Background(Surface).
		Foreground(TextMuted).
		Padding(0, 1)
	t.StatusState = lipgloss.NewStyle().
		Foreground(Purple)
	t.ErrorBanner = lipgloss.NewStyle().
		Foreground(Rose).
		Bold(true).
		Padding(0, 1)
	t.Help = lipgloss.NewStyle().
		Foreground(TextMuted)
	t.Spinner = lipgloss.NewStyle().
		Foreground(Purple)

	return t
}
