// Copyright (c) 2024 The illium developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/cpacia/lfg-server/matchplay"
)

// Season is the input document: a field of players, an optional course
// ranking and each group's matches as entered so far.
type Season struct {
	Year    string                 `json:"year"`
	Course  *matchplay.HoleProfile `json:"course"`
	Players []SeasonPlayer         `json:"players"`
	Groups  []SeasonGroup          `json:"groups"`
	Bracket []BracketResult        `json:"bracket"`
}

type SeasonPlayer struct {
	ID       matchplay.PlayerID `json:"id"`
	Name     string             `json:"name"`
	Handicap float64            `json:"handicap"`
}

type SeasonGroup struct {
	Name     string                         `json:"name"`
	Members  []matchplay.PlayerID           `json:"members"`
	Matches  []SeasonMatch                  `json:"matches"`
	TieBreak map[matchplay.PlayerID]float64 `json:"tieBreak,omitempty"`
	Champion *ChampionOverride              `json:"champion,omitempty"`
}

type ChampionOverride struct {
	Player matchplay.PlayerID `json:"player"`
	Reason string             `json:"reason"`
}

type SeasonMatch struct {
	Player1 matchplay.PlayerID  `json:"player1"`
	Player2 matchplay.PlayerID  `json:"player2"`
	Gross1  matchplay.Scorecard `json:"gross1"`
	Gross2  matchplay.Scorecard `json:"gross2"`

	// Completed closes a match that was conceded before 18 holes.
	Completed bool `json:"completed"`
}

// BracketResult is a knockout result to replay onto the generated bracket.
type BracketResult struct {
	Round  int                `json:"round"`
	Slot   int                `json:"slot"`
	Winner matchplay.PlayerID `json:"winner"`
}

// MatchLine is one evaluated group match.
type MatchLine struct {
	Player1 matchplay.PlayerID
	Player2 matchplay.PlayerID
	Gross1  matchplay.Scorecard
	Gross2  matchplay.Scorecard
	Status  matchplay.Status
	Result  matchplay.Result
}

type GroupReport struct {
	Standings matchplay.GroupStandings
	Matches   []MatchLine
}

// Report is everything the preview prints.
type Report struct {
	Groups     []GroupReport
	Qualifiers []matchplay.StandingsRow
	Bracket    []matchplay.BracketMatch

	// BracketErr explains why no bracket could be drawn.
	BracketErr error
}

// Evaluate scores every match, ranks the groups and, when the field is
// large enough, draws the bracket and replays the knockout results.
func Evaluate(s Season) (*Report, error) {
	if s.Course != nil {
		if err := s.Course.Validate(); err != nil {
			return nil, err
		}
	}
	handicaps := make(map[matchplay.PlayerID]float64, len(s.Players))
	for _, p := range s.Players {
		handicaps[p.ID] = p.Handicap
	}

	report := &Report{}
	standings := make([]matchplay.GroupStandings, 0, len(s.Groups))
	for _, g := range s.Groups {
		gr := GroupReport{}
		records := make([]matchplay.MatchRecord, 0, len(g.Matches))
		for i, sm := range g.Matches {
			for _, id := range []matchplay.PlayerID{sm.Player1, sm.Player2} {
				if _, ok := handicaps[id]; !ok {
					return nil, fmt.Errorf("group %s match %d: unknown player %d", g.Name, i+1, id)
				}
			}
			m := matchplay.Match{
				Player1: matchplay.Player{ID: sm.Player1, Handicap: handicaps[sm.Player1]},
				Player2: matchplay.Player{ID: sm.Player2, Handicap: handicaps[sm.Player2]},
				Gross1:  sm.Gross1,
				Gross2:  sm.Gross2,
			}
			res := matchplay.EvaluateMatch(m, s.Course)
			status := matchplay.DeriveStatus(sm.Gross1, sm.Gross2)
			if sm.Completed {
				status = matchplay.StatusCompleted
			}
			records = append(records, matchplay.NewMatchRecord(m, status, res))
			gr.Matches = append(gr.Matches, MatchLine{
				Player1: sm.Player1,
				Player2: sm.Player2,
				Gross1:  sm.Gross1,
				Gross2:  sm.Gross2,
				Status:  status,
				Result:  res,
			})
		}

		opts := matchplay.StandingsOptions{TieBreak: g.TieBreak}
		if g.Champion != nil {
			opts.Overrides = map[matchplay.PlayerID]string{g.Champion.Player: g.Champion.Reason}
		}
		gr.Standings = matchplay.GroupStandings{
			Group: g.Name,
			Rows:  matchplay.AggregateStandings(g.Members, records, opts),
		}
		standings = append(standings, gr.Standings)
		report.Groups = append(report.Groups, gr)
	}

	qualified, err := matchplay.Qualify(standings)
	if err != nil {
		report.BracketErr = err
		return report, nil
	}
	report.Qualifiers = qualified
	bracket, err := matchplay.GenerateBracket(matchplay.QualifierIDs(qualified))
	if err != nil {
		return nil, err
	}
	for _, r := range s.Bracket {
		bracket, err = matchplay.RecordWinner(bracket, r.Round, r.Slot, r.Winner)
		if err != nil {
			return nil, fmt.Errorf("bracket R%dM%d: %w", r.Round, r.Slot, err)
		}
	}
	report.Bracket = bracket
	return report, nil
}

// Render writes the report as plain text tables.
func Render(w io.Writer, s Season, r *Report) {
	names := make(map[matchplay.PlayerID]string, len(s.Players))
	for _, p := range s.Players {
		names[p.ID] = p.Name
	}
	name := func(id *matchplay.PlayerID) string {
		if id == nil {
			return "TBD"
		}
		if n, ok := names[*id]; ok {
			return n
		}
		return fmt.Sprintf("#%d", *id)
	}

	for _, g := range r.Groups {
		fmt.Fprintf(w, "%s\n%s\n", g.Standings.Group, strings.Repeat("=", len(g.Standings.Group)))
		fmt.Fprintf(w, "%-4s %-16s %3s %3s %3s %5s %6s\n", "Rank", "Player", "W", "L", "T", "Net", "TB")
		for _, row := range g.Standings.Rows {
			id := row.PlayerID
			mark := ""
			if row.ManuallySelectedChampion {
				mark = " *" + row.OverrideReason
			}
			fmt.Fprintf(w, "%-4d %-16s %3d %3d %3d %+5d %6.1f%s\n",
				row.Rank, name(&id), row.Wins, row.Losses, row.Ties, row.NetHoles, row.TieBreak, mark)
		}
		for _, m := range g.Matches {
			p1, p2 := m.Player1, m.Player2
			fmt.Fprintf(w, "  %s v %s: %s %s (%d-%d)\n", name(&p1), name(&p2), m.Status,
				describe(m.Result, name), m.Gross1.Total(), m.Gross2.Total())
		}
		fmt.Fprintln(w)
	}

	if r.BracketErr != nil {
		fmt.Fprintf(w, "No bracket: %v\n", r.BracketErr)
		return
	}
	fmt.Fprintln(w, "Bracket")
	fmt.Fprintln(w, "=======")
	for _, m := range r.Bracket {
		fmt.Fprintf(w, "%s %-5s %s v %s", m.Ref(), m.Division, name(m.Player1), name(m.Player2))
		if m.Winner != nil {
			fmt.Fprintf(w, " -> %s", name(m.Winner))
		}
		fmt.Fprintln(w)
	}
	if champ := matchplay.BracketChampion(r.Bracket); champ != nil {
		fmt.Fprintf(w, "Champion: %s\n", name(champ))
	}
}

func describe(res matchplay.Result, name func(*matchplay.PlayerID) string) string {
	if res.Degenerate() {
		return "(no holes)"
	}
	if res.Winner == nil {
		return res.Summary()
	}
	return name(res.Winner) + " " + res.Summary()
}
