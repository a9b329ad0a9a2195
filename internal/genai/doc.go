// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package genai provides the client for the generative backend.
//
// The backend contract is deliberately small: given prompt text, return one
// complete reply string or fail. No partial or streamed output is assumed at
// this layer; the client-side typewriter simulates incremental delivery.
// Every call carries a bounded timeout, and a timeout is treated identically
// to a backend failure by the transaction layer.
package genai
