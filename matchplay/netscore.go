// Copyright (c) 2024 The illium developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package matchplay

import "math"

// MaxStrokeDifferential caps the strokes given in a match regardless of
// the true handicap gap.
const MaxStrokeDifferential = 8

// StrokeAllowance returns the number of strokes the higher handicap
// receives over 18 holes.
func StrokeAllowance(h1, h2 float64) int {
	diff := math.Abs(h1 - h2)
	return int(math.Round(math.Min(diff, MaxStrokeDifferential)))
}

// StrokesOnHole returns the strokes the receiving player gets on a hole
// with the given difficulty index.
func StrokesOnHole(allowance, holeIndex int) int {
	strokes := allowance / HolesPerRound
	if allowance%HolesPerRound >= holeIndex {
		strokes++
	}
	return strokes
}

// ComputeNetScore converts a gross hole score to net. Only the player with
// the strictly higher handicap receives strokes; the result is never below
// one. Callers must not pass unentered (zero) scores.
func ComputeNetScore(gross int, playerHandicap, opponentHandicap float64, holeIndex int) int {
	if playerHandicap <= opponentHandicap {
		return gross
	}
	strokes := StrokesOnHole(StrokeAllowance(playerHandicap, opponentHandicap), holeIndex)
	if net := gross - strokes; net > 1 {
		return net
	}
	return 1
}
