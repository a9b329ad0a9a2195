// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api defines the wire protocol between the lumen client and the
// lumend server, and the HTTP client that speaks it.
//
// Every response carries a success flag; failures additionally carry a
// machine-readable error code from the turn error taxonomy and a
// human-readable message. Timestamps travel as unix milliseconds.
package api
