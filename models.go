package main

import (
	"github.com/cpacia/lfg-server/matchplay"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Credentials struct {
	Username string `json:"username" gorm:"index"`
	Password string `json:"password"`
}

type PWChangeRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

type DBCredentials struct {
	gorm.Model
	Username     string `gorm:"uniqueIndex"`
	PasswordHash string
}

type Player struct {
	gorm.Model
	Name     string  `json:"name"`
	Club     string  `json:"club"`
	Handicap float64 `json:"handicap"`
}

type Course struct {
	gorm.Model
	Name        string                                           `json:"name" gorm:"uniqueIndex"`
	Tees        string                                           `json:"tees"`
	Par         datatypes.JSONType[[matchplay.HolesPerRound]int] `json:"par"`
	HoleIndexes datatypes.JSONType[[matchplay.HolesPerRound]int] `json:"holeIndexes"`
	SourceUrl   string                                           `json:"sourceUrl"`
}

// Profile returns the course's handicap ranking for the engine.
func (c *Course) Profile() matchplay.HoleProfile {
	return matchplay.HoleProfile{Par: c.Par.Data(), Index: c.HoleIndexes.Data()}
}

type Group struct {
	gorm.Model
	Year                   string        `json:"year" gorm:"index"`
	Name                   string        `json:"name"`
	Members                []GroupMember `json:"members"`
	ChampionOverrideID     *uint         `json:"championOverrideId"`
	ChampionOverrideReason string        `json:"championOverrideReason"`
}

type GroupMember struct {
	gorm.Model
	GroupID        uint     `json:"groupId" gorm:"uniqueIndex:idx_group_player"`
	PlayerID       uint     `json:"playerId" gorm:"uniqueIndex:idx_group_player"`
	TieBreakPoints *float64 `json:"tieBreakPoints"`
}

type Match struct {
	gorm.Model
	GroupID         *uint                                      `json:"groupId" gorm:"index"`
	CourseID        *uint                                      `json:"courseId"`
	Player1ID       uint                                       `json:"player1Id"`
	Player2ID       uint                                       `json:"player2Id"`
	Player1Handicap float64                                    `json:"player1Handicap"`
	Player2Handicap float64                                    `json:"player2Handicap"`
	Gross1          datatypes.JSONType[matchplay.Scorecard]    `json:"gross1"`
	Gross2          datatypes.JSONType[matchplay.Scorecard]    `json:"gross2"`
	Net1            datatypes.JSONType[matchplay.Scorecard]    `json:"net1"`
	Net2            datatypes.JSONType[matchplay.Scorecard]    `json:"net2"`
	Holes           datatypes.JSONType[[]matchplay.HoleResult] `json:"holes"`
	Player1HolesWon int                                        `json:"player1HolesWon"`
	Player2HolesWon int                                        `json:"player2HolesWon"`
	NetHoles1       int                                        `json:"netHoles1"`
	NetHoles2       int                                        `json:"netHoles2"`
	HolesCompared   int                                        `json:"holesCompared"`
	Summary         string                                     `json:"summary"`
	Status          matchplay.Status                           `json:"status" gorm:"index"`
	WinnerID        *uint                                      `json:"winnerId"`
	Version         int                                        `json:"version"`
}

// Engine returns the match as the scoring engine sees it.
func (m *Match) Engine() matchplay.Match {
	return matchplay.Match{
		Player1: matchplay.Player{ID: matchplay.PlayerID(m.Player1ID), Handicap: m.Player1Handicap},
		Player2: matchplay.Player{ID: matchplay.PlayerID(m.Player2ID), Handicap: m.Player2Handicap},
		Gross1:  m.Gross1.Data(),
		Gross2:  m.Gross2.Data(),
	}
}

// Record returns the stored outcome used for group standings.
func (m *Match) Record() matchplay.MatchRecord {
	rec := matchplay.MatchRecord{
		Player1:         matchplay.PlayerID(m.Player1ID),
		Player2:         matchplay.PlayerID(m.Player2ID),
		Status:          m.Status,
		Player1HolesWon: m.Player1HolesWon,
		Player2HolesWon: m.Player2HolesWon,
	}
	if m.WinnerID != nil {
		w := matchplay.PlayerID(*m.WinnerID)
		rec.Winner = &w
	}
	return rec
}

type BracketMatch struct {
	gorm.Model
	Year          string `json:"year" gorm:"uniqueIndex:idx_bracket_slot"`
	BracketID     string `json:"bracketId" gorm:"index"`
	Round         int    `json:"round" gorm:"uniqueIndex:idx_bracket_slot"`
	Slot          int    `json:"slot" gorm:"uniqueIndex:idx_bracket_slot"`
	Division      string `json:"division"`
	Player1ID     *uint  `json:"player1Id"`
	Player2ID     *uint  `json:"player2Id"`
	Player1Source string `json:"player1Source"`
	Player2Source string `json:"player2Source"`
	WinnerID      *uint  `json:"winnerId"`
	FeedsRound    int    `json:"feedsRound"`
	FeedsSlot     int    `json:"feedsSlot"`
	FeedsPosition int    `json:"feedsPosition"`
}
