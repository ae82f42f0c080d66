// Copyright (c) 2024 The illium developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package matchplay

// Pairing is one scheduled group match.
type Pairing struct {
	Player1 PlayerID `json:"player1"`
	Player2 PlayerID `json:"player2"`
}

// RoundRobin pairs every group member with every other member once, in
// member order. Duplicate ids are ignored.
func RoundRobin(members []PlayerID) []Pairing {
	seen := make(map[PlayerID]bool, len(members))
	uniq := make([]PlayerID, 0, len(members))
	for _, id := range members {
		if !seen[id] {
			seen[id] = true
			uniq = append(uniq, id)
		}
	}

	pairings := make([]Pairing, 0, len(uniq)*(len(uniq)-1)/2)
	for i := 0; i < len(uniq); i++ {
		for j := i + 1; j < len(uniq); j++ {
			pairings = append(pairings, Pairing{Player1: uniq[i], Player2: uniq[j]})
		}
	}
	return pairings
}
