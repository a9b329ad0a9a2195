// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures shared by the lumen client and
// server.
package model

import (
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// MESSAGE ID
// =============================================================================

// MessageID is a two-phase message identifier.
//
// A provisional ID is assigned client-side at send time (the send timestamp
// in unix milliseconds, kept strictly increasing across sends) so the message
// can be rendered before any network round-trip completes. A persisted ID is assigned exactly once by the
// server. The phase is part of the identity: a provisional ID never equals a
// persisted ID even if the underlying strings were to coincide.
type MessageID struct {
	value     string
	persisted bool
}

// provisionalClock is the floor for the next provisional ID value. Each ID
// issued is strictly greater than the last, so two sends landing in the same
// millisecond still get distinct IDs.
var provisionalClock atomic.Int64

// ProvisionalID creates a client-side provisional ID from the send time,
// nudged forward past the last issued value when sends collide on the same
// millisecond.
func ProvisionalID(sentAt time.Time) MessageID {
	for {
		milli := sentAt.UnixMilli()
		last := provisionalClock.Load()
		if milli <= last {
			milli = last + 1
		}
		if provisionalClock.CompareAndSwap(last, milli) {
			return MessageID{value: strconv.FormatInt(milli, 10)}
		}
	}
}

// PersistedID wraps a server-assigned identifier.
func PersistedID(id string) MessageID {
	return MessageID{value: id, persisted: true}
}

// NewPersistedID generates a fresh server-side identifier.
func NewPersistedID() MessageID {
	return MessageID{value: uuid.NewString(), persisted: true}
}

// String returns the raw identifier value.
func (id MessageID) String() string {
	return id.value
}

// IsPersisted reports whether the ID was assigned by the server.
func (id MessageID) IsPersisted() bool {
	return id.persisted
}

// IsZero reports whether the ID is unset.
func (id MessageID) IsZero() bool {
	return id.value == ""
}

// Equal reports whether two IDs identify the same persisted message or the
// same provisional entry. IDs in different phases are never equal.
func (id MessageID) Equal(other MessageID) bool {
	return id.persisted == other.persisted && id.value == other.value
}
