package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/cpacia/lfg-server/matchplay"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	errMatchCompleted  = errors.New("match is completed")
	errVersionConflict = errors.New("match was modified concurrently")
	errBracketNotFound = errors.New("bracket not generated")
	errBracketExists   = errors.New("bracket already generated")
	errSamePlayer      = errors.New("a player cannot play themselves")
	errNotGroupMember  = errors.New("player is not a member of the group")
	errAlreadyGrouped  = errors.New("player already belongs to a group this season")
)

// Columns written when a match's scores are re-evaluated.
var matchResultColumns = []string{
	"Gross1", "Gross2", "Net1", "Net2", "Holes",
	"Player1HolesWon", "Player2HolesWon", "NetHoles1", "NetHoles2",
	"HolesCompared", "Summary", "Status", "WinnerID", "Version", "UpdatedAt",
}

// loadProfile returns the hole ranking for a course. A match without a
// course gets nil, which the engine treats as the identity ranking.
func loadProfile(db *gorm.DB, courseID *uint) (*matchplay.HoleProfile, error) {
	if courseID == nil {
		return nil, nil
	}
	var course Course
	if err := db.First(&course, *courseID).Error; err != nil {
		return nil, err
	}
	p := course.Profile()
	return &p, nil
}

// applyResult re-runs the engine over the match's gross scores and copies
// every derived field back onto the row.
func applyResult(m *Match, profile *matchplay.HoleProfile) matchplay.Result {
	res := matchplay.EvaluateMatch(m.Engine(), profile)
	m.Net1 = datatypes.NewJSONType(res.Net1)
	m.Net2 = datatypes.NewJSONType(res.Net2)
	m.Holes = datatypes.NewJSONType(res.Holes)
	m.Player1HolesWon = res.Player1HolesWon
	m.Player2HolesWon = res.Player2HolesWon
	m.NetHoles1 = res.NetHoles1
	m.NetHoles2 = res.NetHoles2
	m.HolesCompared = res.HolesCompared
	m.Summary = res.Summary()
	m.WinnerID = nil
	if res.Winner != nil {
		w := uint(*res.Winner)
		m.WinnerID = &w
	}
	return res
}

// createMatch pairs two players, snapshotting their handicaps for the
// life of the match.
func createMatch(db *gorm.DB, m *Match) error {
	if m.Player1ID == m.Player2ID {
		return errSamePlayer
	}
	return db.Transaction(func(tx *gorm.DB) error {
		var p1, p2 Player
		if err := tx.First(&p1, m.Player1ID).Error; err != nil {
			return err
		}
		if err := tx.First(&p2, m.Player2ID).Error; err != nil {
			return err
		}
		if m.GroupID != nil {
			var n int64
			err := tx.Model(&GroupMember{}).
				Where("group_id = ? AND player_id IN ?", *m.GroupID, []uint{m.Player1ID, m.Player2ID}).
				Count(&n).Error
			if err != nil {
				return err
			}
			if n != 2 {
				return errNotGroupMember
			}
		}
		profile, err := loadProfile(tx, m.CourseID)
		if err != nil {
			return err
		}
		m.Player1Handicap = p1.Handicap
		m.Player2Handicap = p2.Handicap
		m.Version = 1
		applyResult(m, profile)
		m.Status = matchplay.DeriveStatus(m.Gross1.Data(), m.Gross2.Data())
		return tx.Create(m).Error
	})
}

// groupedPlayers returns which of the given players already belong to a
// group in the season.
func groupedPlayers(db *gorm.DB, year string, ids []uint) ([]uint, error) {
	var taken []uint
	err := db.Model(&GroupMember{}).
		Joins("JOIN `groups` ON `groups`.id = group_members.group_id AND `groups`.deleted_at IS NULL").
		Where("`groups`.year = ? AND group_members.player_id IN ?", year, ids).
		Pluck("group_members.player_id", &taken).Error
	return taken, err
}

// updateMatchScores stores new gross scores if the caller saw the latest
// version. Completed matches only change through an admin correction.
func updateMatchScores(db *gorm.DB, id uint, version int, gross1, gross2 matchplay.Scorecard, correction bool) (*Match, error) {
	var match Match
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&match, id).Error; err != nil {
			return err
		}
		if match.Status == matchplay.StatusCompleted && !correction {
			return errMatchCompleted
		}
		profile, err := loadProfile(tx, match.CourseID)
		if err != nil {
			return err
		}

		match.Gross1 = datatypes.NewJSONType(gross1)
		match.Gross2 = datatypes.NewJSONType(gross2)
		applyResult(&match, profile)
		if match.Status != matchplay.StatusCompleted {
			match.Status = matchplay.DeriveStatus(gross1, gross2)
		}
		return saveMatchVersion(tx, &match, version)
	})
	if err != nil {
		return nil, err
	}
	return &match, nil
}

// completeMatch closes a match regardless of how many holes were entered,
// e.g. after a concession. A completed match stays as it is.
func completeMatch(db *gorm.DB, id uint, version int) (*Match, error) {
	var match Match
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&match, id).Error; err != nil {
			return err
		}
		if match.Status == matchplay.StatusCompleted {
			return errMatchCompleted
		}
		profile, err := loadProfile(tx, match.CourseID)
		if err != nil {
			return err
		}
		applyResult(&match, profile)
		match.Status = matchplay.StatusCompleted
		return saveMatchVersion(tx, &match, version)
	})
	if err != nil {
		return nil, err
	}
	return &match, nil
}

func saveMatchVersion(tx *gorm.DB, match *Match, version int) error {
	match.Version = version + 1
	result := tx.Model(match).
		Where("version = ?", version).
		Select(matchResultColumns).
		Updates(match)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errVersionConflict
	}
	return nil
}

// groupStandings ranks one group from its completed matches.
func groupStandings(db *gorm.DB, group *Group) (matchplay.GroupStandings, error) {
	var matches []Match
	err := db.Where("group_id = ? AND status = ?", group.ID, matchplay.StatusCompleted).
		Order("id").
		Find(&matches).Error
	if err != nil {
		return matchplay.GroupStandings{}, err
	}

	records := make([]matchplay.MatchRecord, len(matches))
	for i := range matches {
		records[i] = matches[i].Record()
	}

	var opts matchplay.StandingsOptions
	members := make([]matchplay.PlayerID, 0, len(group.Members))
	for _, m := range group.Members {
		id := matchplay.PlayerID(m.PlayerID)
		members = append(members, id)
		if m.TieBreakPoints != nil {
			if opts.TieBreak == nil {
				opts.TieBreak = make(map[matchplay.PlayerID]float64)
			}
			opts.TieBreak[id] = *m.TieBreakPoints
		}
	}
	if group.ChampionOverrideID != nil {
		opts.Overrides = map[matchplay.PlayerID]string{
			matchplay.PlayerID(*group.ChampionOverrideID): group.ChampionOverrideReason,
		}
	}

	return matchplay.GroupStandings{
		Group: group.Name,
		Rows:  matchplay.AggregateStandings(members, records, opts),
	}, nil
}

// yearStandings ranks every group of a season. Groups are independent
// reads so they are computed concurrently.
func yearStandings(ctx context.Context, db *gorm.DB, year string) ([]matchplay.GroupStandings, error) {
	var groups []Group
	err := db.WithContext(ctx).
		Preload("Members", func(tx *gorm.DB) *gorm.DB { return tx.Order("id") }).
		Where("year = ?", year).
		Order("id").
		Find(&groups).Error
	if err != nil {
		return nil, err
	}

	standings := make([]matchplay.GroupStandings, len(groups))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i := range groups {
		g.Go(func() error {
			st, err := groupStandings(db.WithContext(gctx), &groups[i])
			if err != nil {
				return fmt.Errorf("group %s: %w", groups[i].Name, err)
			}
			standings[i] = st
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return standings, nil
}

func loadBracket(db *gorm.DB, year string) ([]BracketMatch, error) {
	var rows []BracketMatch
	err := db.Where("year = ?", year).Order("round, slot").Find(&rows).Error
	return rows, err
}

// loadOrCreateBracket returns the season's bracket, generating it from
// the group standings only if none exists. The bool reports whether this
// call created it.
func loadOrCreateBracket(ctx context.Context, db *gorm.DB, year string) ([]BracketMatch, bool, error) {
	rows, err := loadBracket(db, year)
	if err != nil || len(rows) > 0 {
		return rows, false, err
	}

	standings, err := yearStandings(ctx, db, year)
	if err != nil {
		return nil, false, err
	}
	qualified, err := matchplay.Qualify(standings)
	if err != nil {
		return nil, false, err
	}
	matches, err := matchplay.GenerateBracket(matchplay.QualifierIDs(qualified))
	if err != nil {
		return nil, false, err
	}

	bracketID := uuid.NewString()
	rows = make([]BracketMatch, len(matches))
	for i, m := range matches {
		rows[i] = BracketMatch{Year: year, BracketID: bracketID}
		rows[i].apply(m)
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&BracketMatch{}).Where("year = ?", year).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return errBracketExists
		}
		return tx.Create(&rows).Error
	})
	if errors.Is(err, errBracketExists) || isUniqueConstraintError(err) {
		rows, err = loadBracket(db, year)
		return rows, false, err
	}
	if err != nil {
		return nil, false, err
	}
	return rows, true, nil
}

// updateBracketWinner records (or, with a nil winner, clears) a bracket
// result and persists the propagated slots.
func updateBracketWinner(db *gorm.DB, year string, round, slot int, winner *uint) ([]BracketMatch, error) {
	var rows []BracketMatch
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		rows, err = loadBracket(tx, year)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return errBracketNotFound
		}

		matches := make([]matchplay.BracketMatch, len(rows))
		for i := range rows {
			matches[i] = rows[i].Engine()
		}
		if winner != nil {
			matches, err = matchplay.RecordWinner(matches, round, slot, matchplay.PlayerID(*winner))
		} else {
			matches, err = matchplay.ClearWinner(matches, round, slot)
		}
		if err != nil {
			return err
		}

		for i := range rows {
			for _, m := range matches {
				if m.Round == rows[i].Round && m.Slot == rows[i].Slot {
					rows[i].apply(m)
				}
			}
			if err := tx.Save(&rows[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Engine converts the stored row to the engine's bracket node.
func (b *BracketMatch) Engine() matchplay.BracketMatch {
	m := matchplay.BracketMatch{
		Round:       b.Round,
		Slot:        b.Slot,
		Division:    matchplay.Division(b.Division),
		Player1:     toPlayerID(b.Player1ID),
		Player2:     toPlayerID(b.Player2ID),
		Player1From: parseMatchRef(b.Player1Source),
		Player2From: parseMatchRef(b.Player2Source),
		Winner:      toPlayerID(b.WinnerID),
	}
	if b.FeedsRound > 0 {
		m.Feeds = &matchplay.Feed{Round: b.FeedsRound, Slot: b.FeedsSlot, Position: b.FeedsPosition}
	}
	return m
}

// apply copies an engine node's state onto the row.
func (b *BracketMatch) apply(m matchplay.BracketMatch) {
	b.Round = m.Round
	b.Slot = m.Slot
	b.Division = string(m.Division)
	b.Player1ID = fromPlayerID(m.Player1)
	b.Player2ID = fromPlayerID(m.Player2)
	b.Player1Source = formatMatchRef(m.Player1From)
	b.Player2Source = formatMatchRef(m.Player2From)
	b.WinnerID = fromPlayerID(m.Winner)
	b.FeedsRound, b.FeedsSlot, b.FeedsPosition = 0, 0, 0
	if m.Feeds != nil {
		b.FeedsRound, b.FeedsSlot, b.FeedsPosition = m.Feeds.Round, m.Feeds.Slot, m.Feeds.Position
	}
}

func toPlayerID(id *uint) *matchplay.PlayerID {
	if id == nil {
		return nil
	}
	p := matchplay.PlayerID(*id)
	return &p
}

func fromPlayerID(id *matchplay.PlayerID) *uint {
	if id == nil {
		return nil
	}
	u := uint(*id)
	return &u
}

func formatMatchRef(ref *matchplay.MatchRef) string {
	if ref == nil {
		return ""
	}
	return ref.String()
}

func parseMatchRef(s string) *matchplay.MatchRef {
	if s == "" {
		return nil
	}
	var ref matchplay.MatchRef
	if _, err := fmt.Sscanf(s, "R%dM%d", &ref.Round, &ref.Slot); err != nil {
		return nil
	}
	return &ref
}
