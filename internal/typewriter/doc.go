// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package typewriter reveals a known, complete reply string progressively to
// simulate live generation, independent of real network timing.
//
// The reveal is driven by elapsed time, not tick count: each animation frame
// computes how many characters should be visible for the time that has
// passed, so dropped or delayed frames never desynchronize the animation.
// Punctuation characters are followed by a longer "breath" pause to
// approximate natural pacing.
//
// Playback is cooperative: one reveal step per Bubble Tea tick, never a
// dedicated goroutine. Each reveal carries a generation number so ticks from
// an abandoned playback are discarded instead of cancelled.
package typewriter
