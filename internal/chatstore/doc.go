// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chatstore maintains the client-visible message list for the
// currently selected conversation.
//
// The store is a cache of the server's log, reconciled (never merged blindly)
// whenever the selection changes. It owns de-duplication and optimistic
// insertion: a submitted message is rendered immediately under a provisional
// ID and replaced in place once the server confirms it.
//
// The store is confined to the Bubble Tea update loop and is not safe for
// concurrent use.
package chatstore
