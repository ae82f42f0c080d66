// Copyright (c) 2024 The illium developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package matchplay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seeds() []PlayerID {
	return []PlayerID{100, 101, 102, 103, 104, 105, 106, 107}
}

func get(t *testing.T, matches []BracketMatch, round, slot int) BracketMatch {
	t.Helper()
	i := findMatch(matches, round, slot)
	require.GreaterOrEqual(t, i, 0, "missing R%dM%d", round, slot)
	return matches[i]
}

func id(p *PlayerID) PlayerID {
	if p == nil {
		return 0
	}
	return *p
}

func TestGenerateBracket(t *testing.T) {
	matches, err := GenerateBracket(seeds())
	require.NoError(t, err)
	require.Len(t, matches, 7)

	rounds := map[int]int{}
	for _, m := range matches {
		rounds[m.Round]++
	}
	assert.Equal(t, map[int]int{1: 4, 2: 2, 3: 1}, rounds)

	r1 := []struct {
		slot     int
		division Division
		p1, p2   PlayerID
	}{
		{1, DivisionEast, 100, 103},
		{2, DivisionEast, 101, 102},
		{3, DivisionWest, 104, 107},
		{4, DivisionWest, 105, 106},
	}
	for _, want := range r1 {
		m := get(t, matches, 1, want.slot)
		assert.Equal(t, want.division, m.Division)
		assert.Equal(t, want.p1, id(m.Player1))
		assert.Equal(t, want.p2, id(m.Player2))
		assert.Nil(t, m.Winner)
	}

	for _, ref := range []MatchRef{{2, 1}, {2, 2}, {3, 1}} {
		m := get(t, matches, ref.Round, ref.Slot)
		assert.Nil(t, m.Player1)
		assert.Nil(t, m.Player2)
	}
	assert.Equal(t, DivisionFinal, get(t, matches, 3, 1).Division)
	assert.Nil(t, get(t, matches, 3, 1).Feeds)
}

func TestGenerateBracket_Invalid(t *testing.T) {
	_, err := GenerateBracket(seeds()[:7])
	assert.ErrorIs(t, err, ErrInvalidBracketSize)

	dup := seeds()
	dup[7] = dup[0]
	_, err = GenerateBracket(dup)
	assert.ErrorIs(t, err, ErrDuplicateQualifier)
}

func TestRecordWinner_PopulatesOneSlot(t *testing.T) {
	matches, err := GenerateBracket(seeds())
	require.NoError(t, err)

	updated, err := RecordWinner(matches, 1, 1, 103)
	require.NoError(t, err)

	semi := get(t, updated, 2, 1)
	assert.Equal(t, PlayerID(103), id(semi.Player1))
	require.NotNil(t, semi.Player1From)
	assert.Equal(t, MatchRef{1, 1}, *semi.Player1From)
	assert.Nil(t, semi.Player2)

	filled := 0
	for _, m := range updated {
		if m.Round == 2 || m.Round == 3 {
			if m.Player1 != nil {
				filled++
			}
			if m.Player2 != nil {
				filled++
			}
		}
	}
	assert.Equal(t, 1, filled)

	// input untouched
	assert.Nil(t, get(t, matches, 1, 1).Winner)
	assert.Nil(t, get(t, matches, 2, 1).Player1)
}

func playOut(t *testing.T) []BracketMatch {
	t.Helper()
	matches, err := GenerateBracket(seeds())
	require.NoError(t, err)
	steps := []struct {
		round, slot int
		winner      PlayerID
	}{
		{1, 1, 100}, {1, 2, 102}, {1, 3, 104}, {1, 4, 106},
		{2, 1, 102}, {2, 2, 104},
	}
	for _, s := range steps {
		matches, err = RecordWinner(matches, s.round, s.slot, s.winner)
		require.NoError(t, err)
	}
	return matches
}

func TestRecordWinner_SemifinalsFillFinal(t *testing.T) {
	matches := playOut(t)
	final := get(t, matches, 3, 1)
	assert.Equal(t, PlayerID(102), id(final.Player1))
	assert.Equal(t, PlayerID(104), id(final.Player2))
	assert.Equal(t, MatchRef{2, 1}, *final.Player1From)
	assert.Equal(t, MatchRef{2, 2}, *final.Player2From)

	matches, err := RecordWinner(matches, 3, 1, 104)
	require.NoError(t, err)
	assert.Equal(t, PlayerID(104), id(BracketChampion(matches)))
}

func TestClearWinner_RemovesOnlyDependentSlots(t *testing.T) {
	matches := playOut(t)
	matches, err := RecordWinner(matches, 3, 1, 102)
	require.NoError(t, err)

	cleared, err := ClearWinner(matches, 1, 2)
	require.NoError(t, err)

	assert.Nil(t, get(t, cleared, 1, 2).Winner)
	semi := get(t, cleared, 2, 1)
	assert.Equal(t, PlayerID(100), id(semi.Player1))
	assert.Nil(t, semi.Player2)
	assert.Nil(t, semi.Player2From)
	assert.Nil(t, semi.Winner)

	final := get(t, cleared, 3, 1)
	assert.Nil(t, final.Player1)
	assert.Nil(t, final.Winner)
	assert.Equal(t, PlayerID(104), id(final.Player2))
	assert.Nil(t, BracketChampion(cleared))

	// sibling branch untouched
	assert.Equal(t, get(t, matches, 2, 2), get(t, cleared, 2, 2))
	assert.Equal(t, get(t, matches, 1, 1), get(t, cleared, 1, 1))
	assert.Equal(t, get(t, matches, 1, 3), get(t, cleared, 1, 3))
}

func TestClearWinner_NoWinnerIsNoop(t *testing.T) {
	matches, err := GenerateBracket(seeds())
	require.NoError(t, err)
	cleared, err := ClearWinner(matches, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, matches, cleared)
}

func TestRecordWinner_ChangeWinnerUnwinds(t *testing.T) {
	matches := playOut(t)

	changed, err := RecordWinner(matches, 1, 3, 107)
	require.NoError(t, err)

	semi := get(t, changed, 2, 2)
	assert.Equal(t, PlayerID(107), id(semi.Player1))
	assert.Equal(t, PlayerID(106), id(semi.Player2))
	assert.Nil(t, semi.Winner)
	assert.Nil(t, get(t, changed, 3, 1).Player2)
	assert.Equal(t, PlayerID(102), id(get(t, changed, 3, 1).Player1))
}

func TestRecordWinner_Errors(t *testing.T) {
	matches, err := GenerateBracket(seeds())
	require.NoError(t, err)

	_, err = RecordWinner(matches, 4, 1, 100)
	assert.ErrorIs(t, err, ErrMatchNotFound)

	_, err = RecordWinner(matches, 1, 1, 101)
	assert.ErrorIs(t, err, ErrNotParticipant)

	_, err = RecordWinner(matches, 2, 1, 100)
	assert.ErrorIs(t, err, ErrSlotNotReady)

	_, err = ClearWinner(matches, 0, 0)
	assert.ErrorIs(t, err, ErrMatchNotFound)
}

func group(name string, first PlayerID, n int) GroupStandings {
	var records []MatchRecord
	members := make([]PlayerID, n)
	for i := range members {
		members[i] = first + PlayerID(i)
	}
	// lower ids beat higher ids, so rank follows id
	for _, p := range RoundRobin(members) {
		records = append(records, won(p.Player1, p.Player2, 3+int(p.Player2-p.Player1), 1))
	}
	return GroupStandings{Group: name, Rows: AggregateStandings(members, records, StandingsOptions{})}
}

func TestQualify(t *testing.T) {
	groups := []GroupStandings{group("East", 10, 5), group("West", 20, 5)}

	rows, err := Qualify(groups)
	require.NoError(t, err)
	require.Len(t, rows, BracketSize)

	ids := QualifierIDs(rows)
	assert.ElementsMatch(t, []PlayerID{10, 20}, ids[:2])
	assert.ElementsMatch(t, []PlayerID{11, 21, 12, 22, 13, 23}, ids[2:])
	assert.Equal(t, rows[2].Wins, 3)
	assert.NotContains(t, ids, PlayerID(14))
	assert.NotContains(t, ids, PlayerID(24))

	_, err = GenerateBracket(ids)
	assert.NoError(t, err)
}

func TestQualify_ManualChampion(t *testing.T) {
	east := group("East", 10, 5)
	for i := range east.Rows {
		if east.Rows[i].PlayerID == 13 {
			east.Rows[i].ManuallySelectedChampion = true
		}
	}
	rows, err := Qualify([]GroupStandings{east, group("West", 20, 5)})
	require.NoError(t, err)

	ids := QualifierIDs(rows)
	assert.Contains(t, ids[:2], PlayerID(13))
	assert.Contains(t, ids[2:], PlayerID(10))
}

func TestQualify_ShortField(t *testing.T) {
	_, err := Qualify([]GroupStandings{group("East", 10, 3), group("West", 20, 4)})
	assert.ErrorIs(t, err, ErrNotEnoughQualifiers)
}

func TestQualify_TooManyGroups(t *testing.T) {
	var groups []GroupStandings
	for i := 0; i < 9; i++ {
		groups = append(groups, group("G", PlayerID(100*(i+1)), 2))
	}
	_, err := Qualify(groups)
	assert.ErrorIs(t, err, ErrTooManyGroups)
}

func TestQualify_PlayerInTwoGroups(t *testing.T) {
	// 10 tops East and also tops a West group it was added to by mistake.
	members := []PlayerID{10, 20, 21, 22, 23}
	var records []MatchRecord
	for _, p := range RoundRobin(members) {
		records = append(records, won(p.Player1, p.Player2, 4, 1))
	}
	west := GroupStandings{Group: "West", Rows: AggregateStandings(members, records, StandingsOptions{})}
	require.Equal(t, PlayerID(10), west.Rows[0].PlayerID)

	rows, err := Qualify([]GroupStandings{group("East", 10, 5), west})
	require.NoError(t, err)
	require.Len(t, rows, BracketSize)

	ids := QualifierIDs(rows)
	assert.Equal(t, []PlayerID{10, 20}, ids[:2])
	seen := make(map[PlayerID]bool)
	for _, id := range ids {
		assert.False(t, seen[id], "player %d qualified twice", id)
		seen[id] = true
	}

	_, err = GenerateBracket(ids)
	assert.NoError(t, err)
}

func TestQualify_OverlapLeavesShortField(t *testing.T) {
	// Seven distinct players across two groups of four.
	east := group("East", 1, 4)
	members := []PlayerID{1, 5, 6, 7}
	var records []MatchRecord
	for _, p := range RoundRobin(members) {
		records = append(records, won(p.Player1, p.Player2, 4, 1))
	}
	west := GroupStandings{Group: "West", Rows: AggregateStandings(members, records, StandingsOptions{})}

	_, err := Qualify([]GroupStandings{east, west})
	assert.ErrorIs(t, err, ErrNotEnoughQualifiers)
}

func TestRoundRobin(t *testing.T) {
	pairings := RoundRobin([]PlayerID{1, 2, 3, 2, 4})
	assert.Len(t, pairings, 6)
	assert.Equal(t, Pairing{Player1: 1, Player2: 2}, pairings[0])
	assert.Equal(t, Pairing{Player1: 3, Player2: 4}, pairings[5])
	assert.Empty(t, RoundRobin(nil))
}
