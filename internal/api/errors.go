// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api defines the wire protocol between the lumen client and the
// lumend server.
package api

// =============================================================================
// ERROR TAXONOMY
// =============================================================================

// ErrorCode identifies a turn failure class. Codes survive the wire so the
// client can distinguish user-fixable failures (buy credits) from transient
// ones (retry the turn).
type ErrorCode string

const (
	// CodeInsufficientCredits: the balance cannot cover the turn's cost.
	// Rejected before any mutation.
	CodeInsufficientCredits ErrorCode = "insufficient_credits"

	// CodeConversationNotFound: the conversation does not exist or is not
	// owned by the caller. Rejected before any mutation.
	CodeConversationNotFound ErrorCode = "conversation_not_found"

	// CodeBackendUnavailable: the generative backend failed. The user
	// message stays persisted; no reply, no debit.
	CodeBackendUnavailable ErrorCode = "backend_unavailable"

	// CodeBackendTimeout: the generative backend exceeded its deadline.
	// Treated identically to CodeBackendUnavailable.
	CodeBackendTimeout ErrorCode = "backend_timeout"

	// CodePersistenceFailure: the store rejected a write.
	CodePersistenceFailure ErrorCode = "persistence_failure"

	// CodeNetworkFailure is client-observed only: the request never reached
	// the server or the response was lost. Never sent by the server.
	CodeNetworkFailure ErrorCode = "network_failure"
)

// TurnError is a typed turn failure.
type TurnError struct {
	Code    ErrorCode
	Message string
	Cause   error
}

func (e *TurnError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Code)
}

func (e *TurnError) Unwrap() error {
	return e.Cause
}

// Is matches any TurnError with the same code, so sentinel comparisons via
// errors.Is work across the wire round-trip.
func (e *TurnError) Is(target error) bool {
	t, ok := target.(*TurnError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Sentinel errors for easy checking.
var (
	ErrInsufficientCredits   = &TurnError{Code: CodeInsufficientCredits, Message: "you don't have enough credits"}
	ErrConversationNotFound  = &TurnError{Code: CodeConversationNotFound, Message: "conversation not found"}
	ErrBackendUnavailable    = &TurnError{Code: CodeBackendUnavailable, Message: "the assistant is unavailable, try again"}
	ErrBackendTimeout        = &TurnError{Code: CodeBackendTimeout, Message: "the assistant took too long to reply"}
	ErrPersistenceFailure    = &TurnError{Code: CodePersistenceFailure, Message: "could not save the message"}
	ErrNetworkFailure        = &TurnError{Code: CodeNetworkFailure, Message: "could not reach the server"}
)

// NewTurnError builds a TurnError for a code with a cause attached.
func NewTurnError(code ErrorCode, message string, cause error) *TurnError {
	return &TurnError{Code: code, Message: message, Cause: cause}
}

// FromWire reconstructs a TurnError from a failed response body. Unknown
// codes degrade to a generic backend failure so old clients keep working
// against newer servers.
func FromWire(code ErrorCode, message string) *TurnError {
	switch code {
	case CodeInsufficientCredits, CodeConversationNotFound, CodeBackendUnavailable,
		CodeBackendTimeout, CodePersistenceFailure, CodeNetworkFailure:
		return &TurnError{Code: code, Message: message}
	default:
		return &TurnError{Code: CodeBackendUnavailable, Message: message}
	}
}

// =============================================================================
// PREDICATES
// =============================================================================

// Retryable reports whether the failure is worth resubmitting the same turn
// for. Precondition failures are not: the user has to change something first.
func (e *TurnError) Retryable() bool {
	switch e.Code {
	case CodeInsufficientCredits, CodeConversationNotFound:
		return false
	}
	return true
}
