// Copyright (c) 2024 The illium developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package matchplay

import "fmt"

// PlayerID identifies a league player.
type PlayerID uint

// Player is the engine's view of a registered golfer. A negative handicap
// is better than scratch.
type Player struct {
	ID       PlayerID `json:"id"`
	Handicap float64  `json:"handicap"`
	Club     string   `json:"club,omitempty"`
}

// Status tracks a match's scoring lifecycle.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// DeriveStatus reports pending when nothing is entered and completed once
// both players have all 18 holes.
func DeriveStatus(gross1, gross2 Scorecard) Status {
	e1, e2 := gross1.Entered(), gross2.Entered()
	switch {
	case e1 == 0 && e2 == 0:
		return StatusPending
	case e1 == HolesPerRound && e2 == HolesPerRound:
		return StatusCompleted
	default:
		return StatusInProgress
	}
}

// Match pairs two players and their gross scorecards.
type Match struct {
	Player1 Player    `json:"player1"`
	Player2 Player    `json:"player2"`
	Gross1  Scorecard `json:"gross1"`
	Gross2  Scorecard `json:"gross2"`
}

// Swap returns the match with the players' sides exchanged.
func (m Match) Swap() Match {
	return Match{Player1: m.Player2, Player2: m.Player1, Gross1: m.Gross2, Gross2: m.Gross1}
}

// HoleWinner records which side took a hole.
type HoleWinner int

const (
	Halved HoleWinner = iota
	Side1
	Side2
)

// HoleResult is the outcome of one hole both players completed.
type HoleResult struct {
	Hole   int        `json:"hole"`
	Index  int        `json:"index"`
	Net1   int        `json:"net1"`
	Net2   int        `json:"net2"`
	Winner HoleWinner `json:"winner"`
}

// Result is the evaluated state of a match.
type Result struct {
	Net1            Scorecard    `json:"net1"`
	Net2            Scorecard    `json:"net2"`
	Holes           []HoleResult `json:"holes"`
	Player1HolesWon int          `json:"player1HolesWon"`
	Player2HolesWon int          `json:"player2HolesWon"`
	NetHoles1       int          `json:"netHoles1"`
	NetHoles2       int          `json:"netHoles2"`
	HolesCompared   int          `json:"holesCompared"`
	Winner          *PlayerID    `json:"winnerId"`
}

// Player1HolesLost is the number of holes player 2 won.
func (r Result) Player1HolesLost() int { return r.Player2HolesWon }

// Player2HolesLost is the number of holes player 1 won.
func (r Result) Player2HolesLost() int { return r.Player1HolesWon }

// Degenerate reports a result with no comparable holes. It is scored as a
// tie but should be shown differently from a played tie.
func (r Result) Degenerate() bool {
	return r.HolesCompared == 0
}

// EvaluateMatch nets both scorecards against each other and tallies the
// holes. Holes missing either player's score are skipped.
func EvaluateMatch(m Match, profile *HoleProfile) Result {
	p := profile.resolve()
	h1, h2 := m.Player1.Handicap, m.Player2.Handicap

	var res Result
	for i := 0; i < HolesPerRound; i++ {
		idx := p.Index[i]
		if g := m.Gross1[i]; g > 0 {
			res.Net1[i] = ComputeNetScore(g, h1, h2, idx)
		}
		if g := m.Gross2[i]; g > 0 {
			res.Net2[i] = ComputeNetScore(g, h2, h1, idx)
		}
		if res.Net1[i] == 0 || res.Net2[i] == 0 {
			continue
		}

		hr := HoleResult{Hole: i + 1, Index: idx, Net1: res.Net1[i], Net2: res.Net2[i]}
		switch {
		case hr.Net1 < hr.Net2:
			hr.Winner = Side1
			res.Player1HolesWon++
		case hr.Net2 < hr.Net1:
			hr.Winner = Side2
			res.Player2HolesWon++
		}
		res.Holes = append(res.Holes, hr)
	}

	res.HolesCompared = len(res.Holes)
	res.NetHoles1 = res.Player1HolesWon - res.Player2HolesWon
	res.NetHoles2 = -res.NetHoles1
	switch {
	case res.NetHoles1 > 0:
		id := m.Player1.ID
		res.Winner = &id
	case res.NetHoles2 > 0:
		id := m.Player2.ID
		res.Winner = &id
	}
	return res
}

// Summary renders the margin the way it is written on a match-play sheet:
// "3 & 2" when the match was closed out early, "2 UP" after 18, "A/S" for
// a tie and "1 UP thru 12" while holes remain. It does not name the leader;
// use Winner or the sign of NetHoles1 for that.
func (r Result) Summary() string {
	if r.HolesCompared == 0 {
		return ""
	}

	lead := 0
	for _, h := range r.Holes {
		switch h.Winner {
		case Side1:
			lead++
		case Side2:
			lead--
		}
		remaining := HolesPerRound - h.Hole
		if abs(lead) > remaining && remaining > 0 && r.HolesCompared == HolesPerRound {
			return fmt.Sprintf("%d & %d", abs(lead), remaining)
		}
	}

	switch {
	case r.HolesCompared < HolesPerRound && lead == 0:
		return fmt.Sprintf("A/S thru %d", r.HolesCompared)
	case r.HolesCompared < HolesPerRound:
		return fmt.Sprintf("%d UP thru %d", abs(lead), r.HolesCompared)
	case lead == 0:
		return "A/S"
	default:
		return fmt.Sprintf("%d UP", abs(lead))
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
