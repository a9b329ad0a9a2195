// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session tracks the lifecycle of one chat turn on the client.
//
// A turn walks a fixed state machine: Idle, Sending, AwaitingReply,
// Streaming, back to Idle (or Errored). At most one turn is in flight at a
// time; the submit control stays disabled until the turn settles. The
// conversation id is captured at dispatch, so a reply that arrives after
// the user has switched conversations is detected and discarded instead of
// bleeding into the wrong log.
//
// # Key Types
//
//   - Tracker: the turn state machine
//   - State: Idle | Sending | AwaitingReply | Streaming | Errored
//
// # Usage
//
//	tr := session.NewTracker()
//	tr.SelectConversation(convID)
//	if tr.CanSubmit() {
//	    tempID, _ := tr.Dispatch(userMsg.ID)
//	    // send the request, then tr.MarkAwaiting()
//	}
//	if tr.AcceptReply() {
//	    // reconcile and stream
//	}
package session
