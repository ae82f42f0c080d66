// Copyright (c) 2024 The illium developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package matchplay

import (
	"cmp"
	"slices"
)

// MatchRecord is the stored outcome of a group match, as persisted by the
// caller after EvaluateMatch.
type MatchRecord struct {
	Player1         PlayerID  `json:"player1"`
	Player2         PlayerID  `json:"player2"`
	Status          Status    `json:"status"`
	Player1HolesWon int       `json:"player1HolesWon"`
	Player2HolesWon int       `json:"player2HolesWon"`
	Winner          *PlayerID `json:"winnerId"`
}

// NewMatchRecord captures an evaluated result for aggregation.
func NewMatchRecord(m Match, status Status, r Result) MatchRecord {
	return MatchRecord{
		Player1:         m.Player1.ID,
		Player2:         m.Player2.ID,
		Status:          status,
		Player1HolesWon: r.Player1HolesWon,
		Player2HolesWon: r.Player2HolesWon,
		Winner:          r.Winner,
	}
}

// StandingsRow is one player's line in a group table. Rank is always the
// computed position; a manual champion selection is carried alongside it.
type StandingsRow struct {
	PlayerID  PlayerID `json:"playerId"`
	Rank      int      `json:"rank"`
	Wins      int      `json:"wins"`
	Losses    int      `json:"losses"`
	Ties      int      `json:"ties"`
	Matches   int      `json:"matches"`
	HolesWon  int      `json:"holesWon"`
	HolesLost int      `json:"holesLost"`
	NetHoles  int      `json:"netHoles"`
	TieBreak  float64  `json:"tieBreak"`

	ManuallySelectedChampion bool   `json:"manuallySelectedChampion"`
	OverrideReason           string `json:"overrideReason,omitempty"`
}

// StandingsOptions supplies the inputs the engine does not derive itself.
type StandingsOptions struct {
	// TieBreak holds each player's tie-break points. When nil the points
	// are computed with MarginTieBreak.
	TieBreak map[PlayerID]float64

	// Overrides marks administrator-selected champions, keyed by player,
	// with the recorded justification.
	Overrides map[PlayerID]string
}

// GroupStandings is a ranked group table.
type GroupStandings struct {
	Group string         `json:"group"`
	Rows  []StandingsRow `json:"rows"`
}

// Champion returns the group's bracket entrant: the best ranked manually
// selected row if any, otherwise rank 1.
func (g GroupStandings) Champion() (StandingsRow, bool) {
	for _, row := range g.Rows {
		if row.ManuallySelectedChampion {
			return row, true
		}
	}
	if len(g.Rows) == 0 {
		return StandingsRow{}, false
	}
	return g.Rows[0], true
}

// Compare orders rows by wins, then tie-break points, then net holes, all
// descending. A negative result means a ranks ahead of b; zero means the
// three measures are equal.
func Compare(a, b StandingsRow) int {
	return cmp.Or(
		cmp.Compare(b.Wins, a.Wins),
		cmp.Compare(b.TieBreak, a.TieBreak),
		cmp.Compare(b.NetHoles, a.NetHoles),
	)
}

// sortRows applies Compare with the player id as the last resort so equal
// rows always come out in the same order.
func sortRows(rows []StandingsRow) {
	slices.SortFunc(rows, func(a, b StandingsRow) int {
		return cmp.Or(Compare(a, b), cmp.Compare(a.PlayerID, b.PlayerID))
	})
}

// MarginTieBreak credits each winner with the margin of victory, in holes,
// of every decisive completed match.
func MarginTieBreak(records []MatchRecord) map[PlayerID]float64 {
	points := make(map[PlayerID]float64)
	for _, rec := range records {
		if rec.Status != StatusCompleted || rec.Winner == nil {
			continue
		}
		margin := rec.Player1HolesWon - rec.Player2HolesWon
		points[*rec.Winner] += float64(abs(margin))
	}
	return points
}

// AggregateStandings folds a group's completed matches into a ranked
// table. Matches that are not completed, or that involve a non-member,
// are ignored. With no member list the players are taken from the
// matches.
func AggregateStandings(members []PlayerID, records []MatchRecord, opts StandingsOptions) []StandingsRow {
	if len(members) == 0 {
		members = playersIn(records)
	}

	index := make(map[PlayerID]*StandingsRow, len(members))
	rows := make([]StandingsRow, 0, len(members))
	for _, id := range members {
		if _, dup := index[id]; dup {
			continue
		}
		rows = append(rows, StandingsRow{PlayerID: id})
		index[id] = nil
	}
	for i := range rows {
		index[rows[i].PlayerID] = &rows[i]
	}

	counted := make([]MatchRecord, 0, len(records))
	for _, rec := range records {
		if rec.Status != StatusCompleted {
			continue
		}
		r1, r2 := index[rec.Player1], index[rec.Player2]
		if r1 == nil || r2 == nil || r1 == r2 {
			continue
		}
		counted = append(counted, rec)

		r1.Matches++
		r2.Matches++
		r1.HolesWon += rec.Player1HolesWon
		r1.HolesLost += rec.Player2HolesWon
		r2.HolesWon += rec.Player2HolesWon
		r2.HolesLost += rec.Player1HolesWon

		switch {
		case rec.Winner == nil:
			r1.Ties++
			r2.Ties++
		case *rec.Winner == rec.Player1:
			r1.Wins++
			r2.Losses++
		case *rec.Winner == rec.Player2:
			r2.Wins++
			r1.Losses++
		}
	}

	tieBreak := opts.TieBreak
	if tieBreak == nil {
		tieBreak = MarginTieBreak(counted)
	}
	for i := range rows {
		row := &rows[i]
		row.NetHoles = row.HolesWon - row.HolesLost
		row.TieBreak = tieBreak[row.PlayerID]
		if reason, ok := opts.Overrides[row.PlayerID]; ok {
			row.ManuallySelectedChampion = true
			row.OverrideReason = reason
		}
	}

	sortRows(rows)
	for i := range rows {
		rows[i].Rank = i + 1
	}
	return rows
}

func playersIn(records []MatchRecord) []PlayerID {
	var ids []PlayerID
	seen := make(map[PlayerID]bool)
	for _, rec := range records {
		for _, id := range []PlayerID{rec.Player1, rec.Player2} {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	return ids
}
