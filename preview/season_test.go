package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/cpacia/lfg-server/matchplay"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flat(v int) matchplay.Scorecard {
	var c matchplay.Scorecard
	for i := range c {
		c[i] = v
	}
	return c
}

// buildSeason makes groups of four where the earlier member always wins
// every hole.
func buildSeason(groups int) Season {
	s := Season{Year: "2025"}
	id := matchplay.PlayerID(1)
	for g := 0; g < groups; g++ {
		sg := SeasonGroup{Name: fmt.Sprintf("Group %d", g+1)}
		for i := 0; i < 4; i++ {
			s.Players = append(s.Players, SeasonPlayer{ID: id, Name: fmt.Sprintf("P%d", id)})
			sg.Members = append(sg.Members, id)
			id++
		}
		for _, p := range matchplay.RoundRobin(sg.Members) {
			sg.Matches = append(sg.Matches, SeasonMatch{
				Player1: p.Player1,
				Player2: p.Player2,
				Gross1:  flat(4),
				Gross2:  flat(5),
			})
		}
		s.Groups = append(s.Groups, sg)
	}
	return s
}

func TestEvaluate(t *testing.T) {
	s := buildSeason(2)
	s.Bracket = []BracketResult{
		{Round: 1, Slot: 1, Winner: 1},
		{Round: 1, Slot: 2, Winner: 2},
		{Round: 2, Slot: 1, Winner: 2},
	}

	report, err := Evaluate(s)
	require.NoError(t, err)
	require.NoError(t, report.BracketErr)
	require.Len(t, report.Groups, 2)

	rows := report.Groups[0].Standings.Rows
	require.Len(t, rows, 4)
	assert.Equal(t, matchplay.PlayerID(1), rows[0].PlayerID)
	assert.Equal(t, 3, rows[0].Wins)
	assert.Equal(t, matchplay.PlayerID(4), rows[3].PlayerID)

	ids := matchplay.QualifierIDs(report.Qualifiers)
	assert.Equal(t, []matchplay.PlayerID{1, 5, 2, 6, 3, 7, 4, 8}, ids)

	require.Len(t, report.Bracket, 7)
	final := report.Bracket[6]
	assert.Equal(t, matchplay.DivisionFinal, final.Division)
	require.NotNil(t, final.Player1)
	assert.Equal(t, matchplay.PlayerID(2), *final.Player1)
	assert.Nil(t, final.Player2)

	var buf bytes.Buffer
	Render(&buf, s, report)
	out := buf.String()
	assert.Contains(t, out, "Group 1")
	assert.Contains(t, out, "P1 10 & 8 (72-90)")
	assert.Contains(t, out, "R3M1 final P2 v TBD")
}

func TestEvaluate_ShortField(t *testing.T) {
	s := buildSeason(1)

	report, err := Evaluate(s)
	require.NoError(t, err)
	assert.ErrorIs(t, report.BracketErr, matchplay.ErrNotEnoughQualifiers)
	assert.Nil(t, report.Bracket)

	var buf bytes.Buffer
	Render(&buf, s, report)
	assert.Contains(t, buf.String(), "No bracket")
}

func TestEvaluate_Errors(t *testing.T) {
	s := buildSeason(1)
	s.Groups[0].Matches[0].Player2 = 99
	_, err := Evaluate(s)
	assert.Error(t, err)

	s = buildSeason(2)
	s.Bracket = []BracketResult{{Round: 1, Slot: 1, Winner: 2}}
	_, err = Evaluate(s)
	assert.ErrorIs(t, err, matchplay.ErrNotParticipant)

	s = buildSeason(1)
	bad := matchplay.DefaultHoleProfile()
	bad.Index[0] = 0
	s.Course = &bad
	_, err = Evaluate(s)
	assert.ErrorIs(t, err, matchplay.ErrInvalidHoleProfile)
}

func TestEvaluate_CourseAndOverride(t *testing.T) {
	raw := `{
		"year": "2025",
		"players": [
			{"id": 1, "name": "Ann", "handicap": 12},
			{"id": 2, "name": "Bo", "handicap": 3},
			{"id": 3, "name": "Cy", "handicap": 3}
		],
		"groups": [{
			"name": "North",
			"members": [1, 2, 3],
			"champion": {"player": 3, "reason": "Ann and Bo unavailable"},
			"matches": [
				{"player1": 1, "player2": 2, "gross1": [5], "gross2": [5], "completed": true}
			]
		}]
	}`
	var s Season
	require.NoError(t, json.Unmarshal([]byte(raw), &s))

	report, err := Evaluate(s)
	require.NoError(t, err)

	line := report.Groups[0].Matches[0]
	assert.Equal(t, matchplay.StatusCompleted, line.Status)
	// Ann receives a stroke on hole 1 and wins the only hole played.
	assert.Equal(t, 1, line.Result.Player1HolesWon)
	assert.Equal(t, "1 UP thru 1", line.Result.Summary())

	champ, ok := report.Groups[0].Standings.Champion()
	require.True(t, ok)
	assert.Equal(t, matchplay.PlayerID(3), champ.PlayerID)
	assert.ErrorIs(t, report.BracketErr, matchplay.ErrNotEnoughQualifiers)
}
