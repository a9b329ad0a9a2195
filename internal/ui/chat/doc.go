// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view for the lumen TUI.
//
// The view is a Bubble Tea model with three regions: a conversation sidebar,
// the message log, and the input line. Messages render optimistically: a
// submitted prompt appears immediately with a provisional id and is swapped
// for the server-confirmed copy when the turn settles. Replies arrive whole
// and are revealed with a client-side typewriter; the server never streams.
//
// Conversations are created lazily: sending with nothing selected creates
// one first, and the prompt dispatches once the created conversation becomes
// the active one.
//
// One turn runs at a time. While a turn is in flight the input is locked and
// the status bar shows the turn phase. Switching conversations mid-turn is
// allowed; the late reply is detected by its dispatch-time conversation id
// and quietly dropped instead of rendering into the wrong log.
package chat
