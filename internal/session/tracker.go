// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session tracks the lifecycle of one chat turn on the client.
package session

import (
	"errors"

	"github.com/jeranaias/lumen/internal/model"
)

// =============================================================================
// STATES
// =============================================================================

// State is a phase of the turn lifecycle.
type State int

const (
	// StateIdle: no turn in progress; submit is enabled.
	StateIdle State = iota

	// StateSending: the optimistic message is rendered and the request is
	// being dispatched.
	StateSending

	// StateAwaitingReply: the request is in flight.
	StateAwaitingReply

	// StateStreaming: the reply arrived and is being revealed.
	StateStreaming

	// StateErrored: the turn failed; the optimistic message stays rendered.
	StateErrored
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSending:
		return "sending"
	case StateAwaitingReply:
		return "awaiting_reply"
	case StateStreaming:
		return "streaming"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrTurnInFlight means a turn is already in progress.
	ErrTurnInFlight = errors.New("a turn is already in flight")

	// ErrNoConversation means no conversation is selected.
	ErrNoConversation = errors.New("no conversation selected")

	// ErrBadTransition means the requested transition is not legal from the
	// current state.
	ErrBadTransition = errors.New("invalid turn state transition")
)

// =============================================================================
// TRACKER
// =============================================================================

// Tracker is the client-side turn state machine. It is not safe for
// concurrent use; in the TUI it lives on the update loop.
type Tracker struct {
	state      State
	selected   string
	dispatched string
	tempID     model.MessageID
	lastErr    error
}

// NewTracker returns an idle tracker with no conversation selected.
func NewTracker() *Tracker {
	return &Tracker{state: StateIdle}
}

// SelectConversation changes the active conversation. An in-flight turn is
// not cancelled; its reply will be discarded when it lands because the
// dispatched id no longer matches. Selecting out of an error clears it.
func (t *Tracker) SelectConversation(id string) {
	t.selected = id
	if t.state == StateErrored {
		t.state = StateIdle
		t.lastErr = nil
	}
}

// CanSubmit reports whether a new turn may start.
func (t *Tracker) CanSubmit() bool {
	if t.selected == "" {
		return false
	}
	return t.state == StateIdle || t.state == StateErrored
}

// Dispatch starts a turn: it captures the selected conversation id and the
// optimistic message id, and moves to Sending. The captured id, not the
// live selection, decides later whether the reply still belongs on screen.
func (t *Tracker) Dispatch(tempID model.MessageID) (conversationID string, err error) {
	if t.selected == "" {
		return "", ErrNoConversation
	}
	if t.state != StateIdle && t.state != StateErrored {
		return "", ErrTurnInFlight
	}

	t.state = StateSending
	t.dispatched = t.selected
	t.tempID = tempID
	t.lastErr = nil
	return t.dispatched, nil
}

// MarkAwaiting records that the request left the client.
func (t *Tracker) MarkAwaiting() error {
	if t.state != StateSending {
		return ErrBadTransition
	}
	t.state = StateAwaitingReply
	return nil
}

// AcceptReply reports whether an arriving reply still belongs on screen:
// the conversation captured at dispatch must still be the selected one.
func (t *Tracker) AcceptReply() bool {
	return t.dispatched != "" && t.dispatched == t.selected
}

// BeginStreaming moves an accepted reply into the reveal phase.
func (t *Tracker) BeginStreaming() error {
	if t.state != StateAwaitingReply {
		return ErrBadTransition
	}
	t.state = StateStreaming
	return nil
}

// FinishStreaming completes the turn and returns to Idle.
func (t *Tracker) FinishStreaming() error {
	if t.state != StateStreaming {
		return ErrBadTransition
	}
	t.reset()
	return nil
}

// DiscardReply settles a turn whose reply arrived for a conversation the
// user has left. The network call already completed; only the local render
// is skipped.
func (t *Tracker) DiscardReply() {
	t.reset()
}

// Fail records a turn failure. The optimistic message stays rendered; the
// caller surfaces the error and re-enables submit.
func (t *Tracker) Fail(err error) {
	t.state = StateErrored
	t.lastErr = err
	t.dispatched = ""
	t.tempID = model.MessageID{}
}

// ClearError acknowledges a failure and returns to Idle.
func (t *Tracker) ClearError() {
	if t.state == StateErrored {
		t.state = StateIdle
		t.lastErr = nil
	}
}

func (t *Tracker) reset() {
	t.state = StateIdle
	t.dispatched = ""
	t.tempID = model.MessageID{}
	t.lastErr = nil
}

// =============================================================================
// ACCESSORS
// =============================================================================

// State returns the current phase.
func (t *Tracker) State() State {
	return t.state
}

// InFlight reports whether a turn is between dispatch and settle.
func (t *Tracker) InFlight() bool {
	switch t.state {
	case StateSending, StateAwaitingReply, StateStreaming:
		return true
	}
	return false
}

// Selected returns the active conversation id.
func (t *Tracker) Selected() string {
	return t.selected
}

// DispatchedConversation returns the conversation id captured at dispatch,
// or "" when no turn is in flight.
func (t *Tracker) DispatchedConversation() string {
	return t.dispatched
}

// TempID returns the optimistic message id of the in-flight turn.
func (t *Tracker) TempID() model.MessageID {
	return t.tempID
}

// Err returns the failure recorded by Fail, if any.
func (t *Tracker) Err() error {
	return t.lastErr
}
