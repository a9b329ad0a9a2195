// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store provides server-side persistence for conversations and
// credit accounts.
//
// Two implementations share one contract: an SQLite store for lumend and an
// in-memory store for tests. All reads are owner-filtered, so a caller can
// never observe another user's conversations; a conversation that exists but
// belongs to someone else is indistinguishable from one that does not exist.
// The reply append and the credit debit of a turn commit together or not at
// all.
package store
