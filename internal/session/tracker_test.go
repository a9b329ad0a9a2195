// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session tracks the lifecycle of one chat turn on the client.
package session

import (
	"errors"
	"testing"
	"time"

	"github.com/jeranaias/lumen/internal/model"
)

func tempID() model.MessageID {
	return model.ProvisionalID(time.Now())
}

func TestTracker_HappyPath(t *testing.T) {
	tr := NewTracker()
	tr.SelectConversation("conv-1")

	if !tr.CanSubmit() {
		t.Fatal("idle tracker with a selection should allow submit")
	}

	id := tempID()
	conv, err := tr.Dispatch(id)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if conv != "conv-1" {
		t.Errorf("captured conversation = %q", conv)
	}
	if tr.State() != StateSending {
		t.Errorf("state = %v, want Sending", tr.State())
	}
	if !tr.TempID().Equal(id) {
		t.Error("tracker should hold the optimistic id")
	}

	if err := tr.MarkAwaiting(); err != nil {
		t.Fatalf("MarkAwaiting: %v", err)
	}
	if !tr.AcceptReply() {
		t.Error("reply for the still-selected conversation should be accepted")
	}
	if err := tr.BeginStreaming(); err != nil {
		t.Fatalf("BeginStreaming: %v", err)
	}
	if err := tr.FinishStreaming(); err != nil {
		t.Fatalf("FinishStreaming: %v", err)
	}

	if tr.State() != StateIdle {
		t.Errorf("state = %v, want Idle", tr.State())
	}
	if tr.InFlight() {
		t.Error("settled tracker should not be in flight")
	}
}

func TestTracker_SubmitDisabledWhileInFlight(t *testing.T) {
	tr := NewTracker()
	tr.SelectConversation("conv-1")

	if _, err := tr.Dispatch(tempID()); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	if tr.CanSubmit() {
		t.Error("submit must stay disabled while a turn is in flight")
	}
	if _, err := tr.Dispatch(tempID()); !errors.Is(err, ErrTurnInFlight) {
		t.Errorf("second Dispatch = %v, want ErrTurnInFlight", err)
	}
}

func TestTracker_NoSelection(t *testing.T) {
	tr := NewTracker()

	if tr.CanSubmit() {
		t.Error("no selection should not allow submit")
	}
	if _, err := tr.Dispatch(tempID()); !errors.Is(err, ErrNoConversation) {
		t.Errorf("Dispatch = %v, want ErrNoConversation", err)
	}
}

func TestTracker_StaleReplyDiscarded(t *testing.T) {
	tr := NewTracker()
	tr.SelectConversation("conv-1")

	if _, err := tr.Dispatch(tempID()); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if err := tr.MarkAwaiting(); err != nil {
		t.Fatalf("MarkAwaiting: %v", err)
	}

	// The user moves on before the reply lands.
	tr.SelectConversation("conv-2")

	if tr.AcceptReply() {
		t.Error("reply for a deselected conversation must be rejected")
	}

	tr.DiscardReply()
	if tr.State() != StateIdle {
		t.Errorf("state = %v, want Idle after discard", tr.State())
	}
	if !tr.CanSubmit() {
		t.Error("submit should re-enable after a discarded reply")
	}
}

func TestTracker_ReturningToDispatchedConversationStillAccepts(t *testing.T) {
	tr := NewTracker()
	tr.SelectConversation("conv-1")

	if _, err := tr.Dispatch(tempID()); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	// Switching away and back before the reply lands: the captured id
	// matches again, so the reply renders.
	tr.SelectConversation("conv-2")
	tr.SelectConversation("conv-1")

	if !tr.AcceptReply() {
		t.Error("reply should be accepted after returning to the dispatched conversation")
	}
}

func TestTracker_FailureKeepsErrorUntilCleared(t *testing.T) {
	tr := NewTracker()
	tr.SelectConversation("conv-1")

	if _, err := tr.Dispatch(tempID()); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	failure := errors.New("network down")
	tr.Fail(failure)

	if tr.State() != StateErrored {
		t.Errorf("state = %v, want Errored", tr.State())
	}
	if !errors.Is(tr.Err(), failure) {
		t.Errorf("Err = %v", tr.Err())
	}
	// A failed turn re-enables submit so the user can retry.
	if !tr.CanSubmit() {
		t.Error("errored tracker should allow a retry")
	}

	tr.ClearError()
	if tr.State() != StateIdle || tr.Err() != nil {
		t.Errorf("state = %v err = %v after clear", tr.State(), tr.Err())
	}
}

func TestTracker_DispatchFromErroredRetries(t *testing.T) {
	tr := NewTracker()
	tr.SelectConversation("conv-1")

	if _, err := tr.Dispatch(tempID()); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	tr.Fail(errors.New("boom"))

	if _, err := tr.Dispatch(tempID()); err != nil {
		t.Fatalf("retry Dispatch: %v", err)
	}
	if tr.State() != StateSending {
		t.Errorf("state = %v, want Sending", tr.State())
	}
	if tr.Err() != nil {
		t.Errorf("retry should clear the previous error, got %v", tr.Err())
	}
}

func TestTracker_BadTransitions(t *testing.T) {
	tr := NewTracker()
	tr.SelectConversation("conv-1")

	if err := tr.MarkAwaiting(); !errors.Is(err, ErrBadTransition) {
		t.Errorf("MarkAwaiting from Idle = %v, want ErrBadTransition", err)
	}
	if err := tr.BeginStreaming(); !errors.Is(err, ErrBadTransition) {
		t.Errorf("BeginStreaming from Idle = %v, want ErrBadTransition", err)
	}
	if err := tr.FinishStreaming(); !errors.Is(err, ErrBadTransition) {
		t.Errorf("FinishStreaming from Idle = %v, want ErrBadTransition", err)
	}
}

func TestState_String(t *testing.T) {
	states := map[State]string{
		StateIdle:          "idle",
		StateSending:       "sending",
		StateAwaitingReply: "awaiting_reply",
		StateStreaming:     "streaming",
		StateErrored:       "errored",
	}
	for state, want := range states {
		if got := state.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", state, got, want)
		}
	}
}
