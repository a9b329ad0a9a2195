// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server provides the lumend HTTP API.
//
// # Endpoints
//
//   - POST /api/message/text  - run one text turn (1 credit)
//   - POST /api/message/image - run one image turn (2 credits)
//   - POST /api/chat/create   - create an empty conversation
//   - GET  /api/chat/list     - list the caller's conversations
//   - GET  /api/chat/get      - fetch one conversation with messages
//   - POST /api/chat/delete   - delete a conversation (idempotent)
//   - GET  /api/credits       - current credit balance
//   - GET  /health            - health check
//
// Every /api route requires an Authorization token resolved to a user id by
// a TokenResolver; all reads and writes are scoped to that user. Failed
// turns answer with a stable error code from the wire taxonomy rather than
// raw error text, so the client can tell user-fixable failures from
// transient ones.
package server
