// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures shared by the lumen client and
// server: messages with two-phase identity, conversations, and credit
// accounts.
//
// The identity model is the load-bearing part. A message rendered
// optimistically on the client carries a provisional ID (its send timestamp)
// until the server persists it and assigns a permanent UUID. The two phases
// are distinct values of MessageID and never compare equal to each other, so
// a provisional entry is superseded, not duplicated, once the server ID is
// known.
package model
