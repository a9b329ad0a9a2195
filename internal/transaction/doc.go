// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package transaction executes one credit-metered chat turn.
//
// A turn runs as a fixed pipeline: verify ownership and balance, persist the
// user message, call the generative backend, then commit the reply and the
// credit debit together. The balance is only ever debited after a successful
// generation; a backend failure leaves the user message in the log, appends
// no reply, and charges nothing. Turns on the same conversation are
// serialized so interleaved requests cannot corrupt the log order.
package transaction
