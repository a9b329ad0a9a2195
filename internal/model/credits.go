// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures shared by the lumen client and
// server.
package model

// =============================================================================
// TURN COSTS
// =============================================================================

// Credit costs per turn. Text turns debit one credit, image turns two.
const (
	CostTextTurn  int64 = 1
	CostImageTurn int64 = 2
)

// DefaultStartingCredits is the balance granted to a newly seen account.
const DefaultStartingCredits int64 = 20

// TurnCost returns the credit cost of a turn.
func TurnCost(isImage bool) int64 {
	if isImage {
		return CostImageTurn
	}
	return CostTextTurn
}

// =============================================================================
// CREDIT ACCOUNT
// =============================================================================

// CreditAccount tracks a user's consumable credit balance. The balance never
// goes negative: a turn is rejected up front if the balance is insufficient
// for its cost.
type CreditAccount struct {
	UserID  string `json:"user_id"`
	Balance int64  `json:"balance"`
}

// CanAfford reports whether the account can pay for a turn of the given cost.
func (a CreditAccount) CanAfford(cost int64) bool {
	return a.Balance >= cost
}
