// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package typewriter reveals a known, complete reply string progressively to
// simulate live generation.
package typewriter

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// =============================================================================
// PACING CONSTANTS
// =============================================================================

const (
	// DefaultCharDelay is the base reveal delay per character.
	DefaultCharDelay = 18 * time.Millisecond

	// DefaultBreathMultiplier lengthens the delay after punctuation. The
	// exact value is a pacing tunable, not a correctness requirement.
	DefaultBreathMultiplier = 4

	// FrameInterval is the cooperative animation tick rate (~30fps).
	FrameInterval = 33 * time.Millisecond
)

// isBreathChar reports whether a character is followed by a breath pause.
func isBreathChar(r rune) bool {
	switch r {
	case '.', ',', '!', '?':
		return true
	}
	return false
}

// =============================================================================
// REVEAL
// =============================================================================

// Reveal is one playback of a complete string. A new message gets a fresh
// Reveal; restarting is creating a new one.
type Reveal struct {
	text  []rune
	start time.Time

	// deadlines[i] is the elapsed time at which rune i becomes visible.
	// Precomputed so each frame is a binary-search-free scan from the last
	// visible index.
	deadlines []time.Duration

	visible int
}

// Options tune the reveal pacing.
type Options struct {
	CharDelay        time.Duration
	BreathMultiplier int
}

// New creates a reveal for text starting at the given time, with default
// pacing.
func New(text string, start time.Time) *Reveal {
	return NewWithOptions(text, start, Options{})
}

// NewWithOptions creates a reveal with custom pacing.
func NewWithOptions(text string, start time.Time, opts Options) *Reveal {
	if opts.CharDelay <= 0 {
		opts.CharDelay = DefaultCharDelay
	}
	if opts.BreathMultiplier <= 0 {
		opts.BreathMultiplier = DefaultBreathMultiplier
	}

	runes := []rune(text)
	deadlines := make([]time.Duration, len(runes))
	var elapsed time.Duration
	for i := range runes {
		delay := opts.CharDelay
		if i > 0 && isBreathChar(runes[i-1]) {
			delay = opts.CharDelay * time.Duration(opts.BreathMultiplier)
		}
		elapsed += delay
		deadlines[i] = elapsed
	}

	return &Reveal{
		text:      runes,
		start:     start,
		deadlines: deadlines,
	}
}

// Step advances the reveal to the given time and returns the currently
// visible prefix. The prefix is monotonically non-decreasing in length and
// always a prefix of the full text.
func (r *Reveal) Step(now time.Time) string {
	elapsed := now.Sub(r.start)
	for r.visible < len(r.text) && r.deadlines[r.visible] <= elapsed {
		r.visible++
	}
	return string(r.text[:r.visible])
}

// Visible returns the currently visible prefix without advancing.
func (r *Reveal) Visible() string {
	return string(r.text[:r.visible])
}

// Done reports whether every character has been revealed.
func (r *Reveal) Done() bool {
	return r.visible == len(r.text)
}

// Full returns the complete text.
func (r *Reveal) Full() string {
	return string(r.text)
}

// Duration returns the total playback time for the text.
func (r *Reveal) Duration() time.Duration {
	if len(r.deadlines) == 0 {
		return 0
	}
	return r.deadlines[len(r.deadlines)-1]
}

// =============================================================================
// TICK SCHEDULING
// =============================================================================

// TickMsg drives one reveal step. Generation identifies the playback it
// belongs to; handlers drop ticks whose generation is stale, which is how an
// unmounted playback stops without explicit cancellation.
type TickMsg struct {
	Generation int
	Time       time.Time
}

// TickCmd schedules the next animation frame for the given playback
// generation.
func TickCmd(generation int) tea.Cmd {
	return tea.Tick(FrameInterval, func(t time.Time) tea.Msg {
		return TickMsg{Generation: generation, Time: t}
	})
}
