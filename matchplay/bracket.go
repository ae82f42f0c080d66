// Copyright (c) 2024 The illium developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package matchplay

import (
	"fmt"
	"slices"
)

// BracketSize is the number of players in the elimination bracket.
const BracketSize = 8

// Division names the half of the bracket a match belongs to.
type Division string

const (
	DivisionEast  Division = "east"
	DivisionWest  Division = "west"
	DivisionFinal Division = "final"
)

// MatchRef points at a bracket match by round and slot.
type MatchRef struct {
	Round int `json:"round"`
	Slot  int `json:"slot"`
}

func (r MatchRef) String() string {
	return fmt.Sprintf("R%dM%d", r.Round, r.Slot)
}

// Feed is the downstream player slot a match winner is sent to.
// Position is 1 or 2.
type Feed struct {
	Round    int `json:"round"`
	Slot     int `json:"slot"`
	Position int `json:"position"`
}

func (f Feed) ref() MatchRef { return MatchRef{Round: f.Round, Slot: f.Slot} }

// BracketMatch is one node of the bracket. Player1From and Player2From
// record which match populated a slot so a cleared result can be undone.
type BracketMatch struct {
	Round       int       `json:"round"`
	Slot        int       `json:"slot"`
	Division    Division  `json:"division"`
	Player1     *PlayerID `json:"player1"`
	Player2     *PlayerID `json:"player2"`
	Player1From *MatchRef `json:"player1From,omitempty"`
	Player2From *MatchRef `json:"player2From,omitempty"`
	Winner      *PlayerID `json:"winner"`
	Feeds       *Feed     `json:"feeds,omitempty"`
}

// Ref returns the match's round and slot.
func (m BracketMatch) Ref() MatchRef {
	return MatchRef{Round: m.Round, Slot: m.Slot}
}

// Ready reports whether both player slots are filled.
func (m BracketMatch) Ready() bool {
	return m.Player1 != nil && m.Player2 != nil
}

// Has reports whether the player occupies either slot.
func (m BracketMatch) Has(id PlayerID) bool {
	return (m.Player1 != nil && *m.Player1 == id) || (m.Player2 != nil && *m.Player2 == id)
}

// bracketLayout is the fixed shape of the 8 player bracket. Seeds index
// the qualifier list; round 2 and 3 matches start empty.
var bracketLayout = []struct {
	ref      MatchRef
	division Division
	seeds    [2]int
	feeds    *Feed
}{
	// Quarterfinals
	{MatchRef{1, 1}, DivisionEast, [2]int{0, 3}, &Feed{2, 1, 1}},
	{MatchRef{1, 2}, DivisionEast, [2]int{1, 2}, &Feed{2, 1, 2}},
	{MatchRef{1, 3}, DivisionWest, [2]int{4, 7}, &Feed{2, 2, 1}},
	{MatchRef{1, 4}, DivisionWest, [2]int{5, 6}, &Feed{2, 2, 2}},

	// Semifinals
	{MatchRef{2, 1}, DivisionEast, [2]int{-1, -1}, &Feed{3, 1, 1}},
	{MatchRef{2, 2}, DivisionWest, [2]int{-1, -1}, &Feed{3, 1, 2}},

	// Championship
	{MatchRef{3, 1}, DivisionFinal, [2]int{-1, -1}, nil},
}

// Qualify picks the bracket field: every group champion, then the best
// remaining players across all groups until eight places are filled.
// Champions are seeded ahead of wild cards; within each set players are
// ordered by Compare. A player listed in more than one group qualifies at
// most once.
func Qualify(groups []GroupStandings) ([]StandingsRow, error) {
	taken := make(map[PlayerID]bool)
	var champions []StandingsRow
	for _, g := range groups {
		champ, ok := groupChampion(g, taken)
		if !ok {
			continue
		}
		taken[champ.PlayerID] = true
		champions = append(champions, champ)
	}
	if len(champions) > BracketSize {
		return nil, fmt.Errorf("%w: %d groups for %d places", ErrTooManyGroups, len(champions), BracketSize)
	}

	var wildCards []StandingsRow
	for _, g := range groups {
		for _, row := range g.Rows {
			if !taken[row.PlayerID] {
				wildCards = append(wildCards, row)
			}
		}
	}
	sortRows(wildCards)

	// keep each player's best row only
	uniq := wildCards[:0]
	for _, row := range wildCards {
		if taken[row.PlayerID] {
			continue
		}
		taken[row.PlayerID] = true
		uniq = append(uniq, row)
	}

	need := BracketSize - len(champions)
	if len(uniq) < need {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrNotEnoughQualifiers, len(champions)+len(uniq), BracketSize)
	}

	slices.SortStableFunc(champions, Compare)
	return append(champions, uniq[:need]...), nil
}

// groupChampion returns the group's champion. When that player already
// qualified through an earlier group, the best placed player not yet taken
// stands in.
func groupChampion(g GroupStandings, taken map[PlayerID]bool) (StandingsRow, bool) {
	if champ, ok := g.Champion(); ok && !taken[champ.PlayerID] {
		return champ, true
	}
	for _, row := range g.Rows {
		if !taken[row.PlayerID] {
			return row, true
		}
	}
	return StandingsRow{}, false
}

// QualifierIDs extracts the player ids in qualification order.
func QualifierIDs(rows []StandingsRow) []PlayerID {
	ids := make([]PlayerID, len(rows))
	for i, row := range rows {
		ids[i] = row.PlayerID
	}
	return ids
}

// GenerateBracket seeds eight qualifiers into the seven bracket matches.
// The first four qualifiers form the east division and the last four the
// west; each division plays 1 v 4 and 2 v 3.
func GenerateBracket(qualifiers []PlayerID) ([]BracketMatch, error) {
	if len(qualifiers) != BracketSize {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidBracketSize, len(qualifiers))
	}
	seen := make(map[PlayerID]bool, BracketSize)
	for _, id := range qualifiers {
		if seen[id] {
			return nil, fmt.Errorf("%w: player %d", ErrDuplicateQualifier, id)
		}
		seen[id] = true
	}

	matches := make([]BracketMatch, 0, len(bracketLayout))
	for _, l := range bracketLayout {
		m := BracketMatch{
			Round:    l.ref.Round,
			Slot:     l.ref.Slot,
			Division: l.division,
		}
		if l.seeds[0] >= 0 {
			p1, p2 := qualifiers[l.seeds[0]], qualifiers[l.seeds[1]]
			m.Player1, m.Player2 = &p1, &p2
		}
		if l.feeds != nil {
			f := *l.feeds
			m.Feeds = &f
		}
		matches = append(matches, m)
	}
	return matches, nil
}

// RecordWinner sets the winner of a match and sends them on to the slot
// the match feeds. Replacing an earlier winner first undoes everything
// that winner populated. The input slice is left untouched.
func RecordWinner(matches []BracketMatch, round, slot int, winner PlayerID) ([]BracketMatch, error) {
	out := slices.Clone(matches)
	i := findMatch(out, round, slot)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", ErrMatchNotFound, MatchRef{round, slot})
	}
	m := &out[i]
	if !m.Ready() {
		return nil, fmt.Errorf("%w: %s", ErrSlotNotReady, m.Ref())
	}
	if !m.Has(winner) {
		return nil, fmt.Errorf("%w: player %d in %s", ErrNotParticipant, winner, m.Ref())
	}
	if m.Winner != nil && *m.Winner == winner {
		return out, nil
	}
	if m.Winner != nil {
		unwind(out, i)
	}

	w := winner
	m.Winner = &w
	if m.Feeds == nil {
		return out, nil
	}
	j := findMatch(out, m.Feeds.Round, m.Feeds.Slot)
	if j < 0 {
		return nil, fmt.Errorf("%w: %s feeds missing %s", ErrMatchNotFound, m.Ref(), m.Feeds.ref())
	}
	from := m.Ref()
	next := &out[j]
	if m.Feeds.Position == 1 {
		next.Player1, next.Player1From = &w, &from
	} else {
		next.Player2, next.Player2From = &w, &from
	}
	return out, nil
}

// ClearWinner removes a recorded winner along with every downstream slot
// and result that depended on it. Clearing a match without a winner is a
// no-op.
func ClearWinner(matches []BracketMatch, round, slot int) ([]BracketMatch, error) {
	out := slices.Clone(matches)
	i := findMatch(out, round, slot)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", ErrMatchNotFound, MatchRef{round, slot})
	}
	if out[i].Winner == nil {
		return out, nil
	}
	unwind(out, i)
	out[i].Winner = nil
	return out, nil
}

// unwind empties the downstream slot populated by match i. A result
// already recorded in that downstream match is no longer valid, so it is
// cleared as well, recursively.
func unwind(matches []BracketMatch, i int) {
	m := matches[i]
	if m.Feeds == nil {
		return
	}
	j := findMatch(matches, m.Feeds.Round, m.Feeds.Slot)
	if j < 0 {
		return
	}
	ref := m.Ref()
	next := &matches[j]
	switch {
	case next.Player1From != nil && *next.Player1From == ref:
		next.Player1, next.Player1From = nil, nil
	case next.Player2From != nil && *next.Player2From == ref:
		next.Player2, next.Player2From = nil, nil
	default:
		return
	}
	if next.Winner != nil {
		unwind(matches, j)
		next.Winner = nil
	}
}

// BracketChampion returns the winner of the championship match, if any.
func BracketChampion(matches []BracketMatch) *PlayerID {
	for _, m := range matches {
		if m.Feeds == nil && m.Winner != nil {
			return m.Winner
		}
	}
	return nil
}

func findMatch(matches []BracketMatch, round, slot int) int {
	for i, m := range matches {
		if m.Round == round && m.Slot == slot {
			return i
		}
	}
	return -1
}
