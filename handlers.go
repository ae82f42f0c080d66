package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/cpacia/lfg-server/matchplay"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func (s *Server) POSTLoginHandler(w http.ResponseWriter, r *http.Request) {
	var creds Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	// Check if rate limit has been exceeded
	key := loginRateLimitKey(r, creds.Username)
	ctx, err := s.loginRateLimiter.Peek(r.Context(), key)
	if err != nil {
		http.Error(w, "Rate limiter error", http.StatusInternalServerError)
		return
	}
	if ctx.Reached {
		s.log.WithField("username", creds.Username).Warn("Login rate limit reached")
		http.Error(w, "Too many failed login attempts", http.StatusTooManyRequests)
		return
	}

	dbCreds := &DBCredentials{}
	result := s.db.First(dbCreds, "username = ?", creds.Username)
	if result.Error != nil {
		s.loginRateLimiter.Increment(r.Context(), key, 2)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	err = bcrypt.CompareHashAndPassword([]byte(dbCreds.PasswordHash), []byte(creds.Password))
	if err != nil {
		s.loginRateLimiter.Increment(r.Context(), key, 2)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	expiration := time.Now().Add(60 * time.Minute)
	claims := &Claims{
		Username: creds.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiration),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenStr, err := token.SignedString(s.jwtKey)
	if err != nil {
		http.Error(w, "Could not generate token", http.StatusInternalServerError)
		return
	}

	// Set HTTP-only JWT cookie
	http.SetCookie(w, &http.Cookie{
		Name:     "auth_token",
		Value:    tokenStr,
		HttpOnly: true,
		Secure:   !s.devMode,
		SameSite: http.SameSiteNoneMode,
		Path:     "/",
	})
	w.WriteHeader(http.StatusOK)
}

func loginRateLimitKey(r *http.Request, username string) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		ip = r.RemoteAddr
	}
	return fmt.Sprintf("%s:%s", ip, username)
}

func (s *Server) POSTLogoutHandler(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     "auth_token",
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   !s.devMode,
		SameSite: http.SameSiteNoneMode,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
	})
	w.WriteHeader(http.StatusOK)
}

func (s *Server) POSTAuthMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := r.Context().Value(userContextKey).(*Claims)
	if !ok || claims == nil {
		http.Error(w, "User info not found in context", http.StatusInternalServerError)
		return
	}

	dbCreds := &DBCredentials{}
	result := s.db.First(dbCreds, "username = ?", claims.Username)
	if result.Error != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"username":      claims.Username,
	})
}

func (s *Server) POSTChangePasswordHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := r.Context().Value(userContextKey).(*Claims)
	if !ok || claims == nil {
		http.Error(w, "User info not found in context", http.StatusInternalServerError)
		return
	}

	var pwChangeReq PWChangeRequest
	if err := json.NewDecoder(r.Body).Decode(&pwChangeReq); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	if pwChangeReq.NewPassword == "" {
		http.Error(w, "New password required", http.StatusBadRequest)
		return
	}

	dbCreds := &DBCredentials{}
	result := s.db.First(dbCreds, "username = ?", claims.Username)
	if result.Error != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	err := bcrypt.CompareHashAndPassword([]byte(dbCreds.PasswordHash), []byte(pwChangeReq.CurrentPassword))
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(pwChangeReq.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		http.Error(w, "Could not check password", http.StatusInternalServerError)
		return
	}
	dbCreds.PasswordHash = string(hash)
	if err := s.db.Save(dbCreds).Error; err != nil {
		http.Error(w, "Could not save password", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// storeError maps persistence and engine errors onto HTTP responses.
func (s *Server) storeError(w http.ResponseWriter, err error, what string) {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound),
		errors.Is(err, errBracketNotFound),
		errors.Is(err, matchplay.ErrMatchNotFound):
		http.Error(w, what+" not found", http.StatusNotFound)
	case errors.Is(err, errVersionConflict):
		http.Error(w, "Stale version, reload and retry", http.StatusConflict)
	case errors.Is(err, errAlreadyGrouped):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, errMatchCompleted):
		http.Error(w, "Match is completed, submit a correction", http.StatusConflict)
	case errors.Is(err, errSamePlayer),
		errors.Is(err, errNotGroupMember),
		errors.Is(err, matchplay.ErrInvalidHoleProfile),
		errors.Is(err, matchplay.ErrNotParticipant):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, matchplay.ErrNotEnoughQualifiers),
		errors.Is(err, matchplay.ErrTooManyGroups),
		errors.Is(err, matchplay.ErrDuplicateQualifier),
		errors.Is(err, matchplay.ErrInvalidBracketSize),
		errors.Is(err, matchplay.ErrSlotNotReady):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case isUniqueConstraintError(err):
		http.Error(w, what+" already exists", http.StatusConflict)
	default:
		s.log.WithError(err).WithField("resource", what).Error("Database error")
		http.Error(w, "Database error", http.StatusInternalServerError)
	}
}

func (s *Server) GETPlayers(w http.ResponseWriter, r *http.Request) {
	var players []Player
	if err := s.db.Order("name").Find(&players).Error; err != nil {
		s.storeError(w, err, "Players")
		return
	}
	writeJSON(w, http.StatusOK, players)
}

func (s *Server) POSTPlayer(w http.ResponseWriter, r *http.Request) {
	var input Player
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		http.Error(w, "Player name required", http.StatusBadRequest)
		return
	}
	input.ID = 0

	if err := s.db.Create(&input).Error; err != nil {
		s.storeError(w, err, "Player")
		return
	}
	writeJSON(w, http.StatusCreated, input)
}

// PUTPlayer edits a player. Handicap changes only apply to matches created
// afterwards since each match keeps its own snapshot.
func (s *Server) PUTPlayer(w http.ResponseWriter, r *http.Request) {
	id, ok := uintParam(r, "id")
	if !ok {
		http.Error(w, "Invalid player id", http.StatusBadRequest)
		return
	}
	var input Player
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	var existing Player
	if err := s.db.First(&existing, id).Error; err != nil {
		s.storeError(w, err, "Player")
		return
	}
	if name := strings.TrimSpace(input.Name); name != "" {
		existing.Name = name
	}
	existing.Club = input.Club
	existing.Handicap = input.Handicap

	if err := s.db.Save(&existing).Error; err != nil {
		s.storeError(w, err, "Player")
		return
	}
	writeJSON(w, http.StatusOK, existing)
}

func (s *Server) GETCourses(w http.ResponseWriter, r *http.Request) {
	var courses []Course
	if err := s.db.Order("name").Find(&courses).Error; err != nil {
		s.storeError(w, err, "Courses")
		return
	}
	writeJSON(w, http.StatusOK, courses)
}

func (s *Server) GETCourse(w http.ResponseWriter, r *http.Request) {
	id, ok := uintParam(r, "id")
	if !ok {
		http.Error(w, "Invalid course id", http.StatusBadRequest)
		return
	}
	var course Course
	if err := s.db.First(&course, id).Error; err != nil {
		s.storeError(w, err, "Course")
		return
	}
	writeJSON(w, http.StatusOK, course)
}

func (s *Server) POSTCourse(w http.ResponseWriter, r *http.Request) {
	var input Course
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		http.Error(w, "Course name required", http.StatusBadRequest)
		return
	}
	profile := input.Profile()
	if err := profile.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	input.ID = 0

	if err := s.db.Create(&input).Error; err != nil {
		s.storeError(w, err, "Course")
		return
	}
	writeJSON(w, http.StatusCreated, input)
}

// POSTImportCourse scrapes a course scorecard page and stores the par and
// handicap rows it finds.
func (s *Server) POSTImportCourse(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Url  string `json:"url"`
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Url == "" {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	course, err := scrapeCourse(payload.Url)
	if err != nil {
		s.log.WithError(err).WithField("url", payload.Url).Warn("Course import failed")
		http.Error(w, fmt.Sprintf("Error importing course: %s", err.Error()), http.StatusBadGateway)
		return
	}
	if name := strings.TrimSpace(payload.Name); name != "" {
		course.Name = name
	}
	if course.Name == "" {
		http.Error(w, "Course name required", http.StatusBadRequest)
		return
	}

	if err := s.db.Create(course).Error; err != nil {
		s.storeError(w, err, "Course")
		return
	}
	writeJSON(w, http.StatusCreated, course)
}

func (s *Server) GETGroups(w http.ResponseWriter, r *http.Request) {
	year, ok := yearParam(r)
	if !ok {
		http.Error(w, "Malformed year", http.StatusBadRequest)
		return
	}
	var groups []Group
	err := s.db.Preload("Members").Where("year = ?", year).Order("id").Find(&groups).Error
	if err != nil {
		s.storeError(w, err, "Groups")
		return
	}
	writeJSON(w, http.StatusOK, groups)
}

func (s *Server) POSTGroup(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Name      string `json:"name"`
		Year      string `json:"year"`
		MemberIDs []uint `json:"memberIds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	if !validateYear(input.Year) {
		http.Error(w, "Malformed year", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(input.Name) == "" {
		http.Error(w, "Group name required", http.StatusBadRequest)
		return
	}

	group := Group{Name: strings.TrimSpace(input.Name), Year: input.Year}
	seen := make(map[uint]bool)
	for _, id := range input.MemberIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		group.Members = append(group.Members, GroupMember{PlayerID: id})
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if len(seen) > 0 {
			var n int64
			if err := tx.Model(&Player{}).Where("id IN ?", input.MemberIDs).Count(&n).Error; err != nil {
				return err
			}
			if int(n) != len(seen) {
				return gorm.ErrRecordNotFound
			}
			taken, err := groupedPlayers(tx, input.Year, input.MemberIDs)
			if err != nil {
				return err
			}
			if len(taken) > 0 {
				return fmt.Errorf("%w: player %d", errAlreadyGrouped, taken[0])
			}
		}
		return tx.Create(&group).Error
	})
	if err != nil {
		s.storeError(w, err, "Player")
		return
	}
	writeJSON(w, http.StatusCreated, group)
}

func (s *Server) loadGroup(w http.ResponseWriter, r *http.Request) (*Group, bool) {
	id, ok := uintParam(r, "id")
	if !ok {
		http.Error(w, "Invalid group id", http.StatusBadRequest)
		return nil, false
	}
	var group Group
	err := s.db.Preload("Members", func(tx *gorm.DB) *gorm.DB { return tx.Order("id") }).
		First(&group, id).Error
	if err != nil {
		s.storeError(w, err, "Group")
		return nil, false
	}
	return &group, true
}

// POSTGroupSchedule creates the round-robin matches for a group. Pairings
// that already have a match are skipped so the call can be repeated after
// adding members.
func (s *Server) POSTGroupSchedule(w http.ResponseWriter, r *http.Request) {
	group, ok := s.loadGroup(w, r)
	if !ok {
		return
	}
	var payload struct {
		CourseID *uint `json:"courseId"`
	}
	// The body is optional.
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	members := make([]matchplay.PlayerID, len(group.Members))
	for i, m := range group.Members {
		members[i] = matchplay.PlayerID(m.PlayerID)
	}

	var existing []Match
	if err := s.db.Where("group_id = ?", group.ID).Find(&existing).Error; err != nil {
		s.storeError(w, err, "Matches")
		return
	}
	paired := make(map[[2]uint]bool)
	for _, m := range existing {
		paired[[2]uint{m.Player1ID, m.Player2ID}] = true
		paired[[2]uint{m.Player2ID, m.Player1ID}] = true
	}

	created := make([]Match, 0)
	for _, p := range matchplay.RoundRobin(members) {
		key := [2]uint{uint(p.Player1), uint(p.Player2)}
		if paired[key] {
			continue
		}
		m := Match{
			GroupID:   &group.ID,
			CourseID:  payload.CourseID,
			Player1ID: uint(p.Player1),
			Player2ID: uint(p.Player2),
		}
		if err := createMatch(s.db, &m); err != nil {
			s.storeError(w, err, "Match")
			return
		}
		created = append(created, m)
	}

	s.log.WithFields(logrus.Fields{"group": group.Name, "created": len(created)}).Info("Group schedule created")
	writeJSON(w, http.StatusCreated, created)
}

// PUTGroupTieBreak stores externally supplied tie-break points. A null
// value removes a player's points.
func (s *Server) PUTGroupTieBreak(w http.ResponseWriter, r *http.Request) {
	group, ok := s.loadGroup(w, r)
	if !ok {
		return
	}
	var payload struct {
		Points map[uint]*float64 `json:"points"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		for playerID, points := range payload.Points {
			res := tx.Model(&GroupMember{}).
				Where("group_id = ? AND player_id = ?", group.ID, playerID).
				Update("tie_break_points", points)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return errNotGroupMember
			}
		}
		return nil
	})
	if err != nil {
		s.storeError(w, err, "Group")
		return
	}
	s.writeGroupStandings(w, group.ID)
}

func (s *Server) GETGroupStandings(w http.ResponseWriter, r *http.Request) {
	id, ok := uintParam(r, "id")
	if !ok {
		http.Error(w, "Invalid group id", http.StatusBadRequest)
		return
	}
	s.writeGroupStandings(w, id)
}

func (s *Server) writeGroupStandings(w http.ResponseWriter, id uint) {
	var group Group
	err := s.db.Preload("Members", func(tx *gorm.DB) *gorm.DB { return tx.Order("id") }).
		First(&group, id).Error
	if err != nil {
		s.storeError(w, err, "Group")
		return
	}
	st, err := groupStandings(s.db, &group)
	if err != nil {
		s.storeError(w, err, "Standings")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// PUTGroupChampion records an admin's choice of group champion, which
// takes precedence over the computed order when qualifying for the
// bracket.
func (s *Server) PUTGroupChampion(w http.ResponseWriter, r *http.Request) {
	group, ok := s.loadGroup(w, r)
	if !ok {
		return
	}
	var payload struct {
		PlayerID uint   `json:"playerId"`
		Reason   string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(payload.Reason) == "" {
		http.Error(w, "Override reason required", http.StatusBadRequest)
		return
	}
	member := false
	for _, m := range group.Members {
		if m.PlayerID == payload.PlayerID {
			member = true
		}
	}
	if !member {
		s.storeError(w, errNotGroupMember, "Group")
		return
	}

	err := s.db.Model(&Group{}).Where("id = ?", group.ID).Updates(map[string]any{
		"champion_override_id":     payload.PlayerID,
		"champion_override_reason": strings.TrimSpace(payload.Reason),
	}).Error
	if err != nil {
		s.storeError(w, err, "Group")
		return
	}
	s.log.WithFields(logrus.Fields{
		"group":  group.Name,
		"player": payload.PlayerID,
		"reason": payload.Reason,
	}).Info("Group champion overridden")
	s.writeGroupStandings(w, group.ID)
}

func (s *Server) DELETEGroupChampion(w http.ResponseWriter, r *http.Request) {
	group, ok := s.loadGroup(w, r)
	if !ok {
		return
	}
	err := s.db.Model(&Group{}).Where("id = ?", group.ID).Updates(map[string]any{
		"champion_override_id":     nil,
		"champion_override_reason": "",
	}).Error
	if err != nil {
		s.storeError(w, err, "Group")
		return
	}
	s.writeGroupStandings(w, group.ID)
}

func (s *Server) GETStandings(w http.ResponseWriter, r *http.Request) {
	year, ok := yearParam(r)
	if !ok {
		http.Error(w, "Malformed year", http.StatusBadRequest)
		return
	}
	standings, err := yearStandings(r.Context(), s.db, year)
	if err != nil {
		s.storeError(w, err, "Standings")
		return
	}
	writeJSON(w, http.StatusOK, standings)
}

func (s *Server) POSTMatch(w http.ResponseWriter, r *http.Request) {
	var input struct {
		GroupID   *uint `json:"groupId"`
		CourseID  *uint `json:"courseId"`
		Player1ID uint  `json:"player1Id"`
		Player2ID uint  `json:"player2Id"`
		Gross1    []int `json:"gross1"`
		Gross2    []int `json:"gross2"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	gross1, gross2, err := parseScorecards(input.Gross1, input.Gross2)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	m := Match{
		GroupID:   input.GroupID,
		CourseID:  input.CourseID,
		Player1ID: input.Player1ID,
		Player2ID: input.Player2ID,
		Gross1:    datatypes.NewJSONType(gross1),
		Gross2:    datatypes.NewJSONType(gross2),
	}
	if err := createMatch(s.db, &m); err != nil {
		s.storeError(w, err, "Match")
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (s *Server) GETMatch(w http.ResponseWriter, r *http.Request) {
	id, ok := uintParam(r, "id")
	if !ok {
		http.Error(w, "Invalid match id", http.StatusBadRequest)
		return
	}
	var m Match
	if err := s.db.First(&m, id).Error; err != nil {
		s.storeError(w, err, "Match")
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// PUTMatchScores replaces both gross scorecards. The request must carry
// the version it was based on.
func (s *Server) PUTMatchScores(w http.ResponseWriter, r *http.Request) {
	id, ok := uintParam(r, "id")
	if !ok {
		http.Error(w, "Invalid match id", http.StatusBadRequest)
		return
	}
	var input struct {
		Version    int   `json:"version"`
		Gross1     []int `json:"gross1"`
		Gross2     []int `json:"gross2"`
		Correction bool  `json:"correction"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	gross1, gross2, err := parseScorecards(input.Gross1, input.Gross2)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	m, err := updateMatchScores(s.db, id, input.Version, gross1, gross2, input.Correction)
	if err != nil {
		s.storeError(w, err, "Match")
		return
	}
	if input.Correction {
		s.log.WithFields(logrus.Fields{"match": id, "version": m.Version}).Info("Completed match corrected")
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) POSTCompleteMatch(w http.ResponseWriter, r *http.Request) {
	id, ok := uintParam(r, "id")
	if !ok {
		http.Error(w, "Invalid match id", http.StatusBadRequest)
		return
	}
	var input struct {
		Version int `json:"version"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	m, err := completeMatch(s.db, id, input.Version)
	if err != nil {
		s.storeError(w, err, "Match")
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// parseScorecards converts request cards. A card is either empty or has
// one entry per hole, zero meaning not yet played.
func parseScorecards(raw1, raw2 []int) (matchplay.Scorecard, matchplay.Scorecard, error) {
	var cards [2]matchplay.Scorecard
	for i, raw := range [][]int{raw1, raw2} {
		if len(raw) == 0 {
			continue
		}
		if len(raw) != matchplay.HolesPerRound {
			return cards[0], cards[1], fmt.Errorf("gross%d must have %d holes, got %d", i+1, matchplay.HolesPerRound, len(raw))
		}
		for hole, v := range raw {
			if v < 0 {
				return cards[0], cards[1], fmt.Errorf("gross%d hole %d: scores cannot be negative", i+1, hole+1)
			}
			cards[i][hole] = v
		}
	}
	return cards[0], cards[1], nil
}

func (s *Server) GETBracket(w http.ResponseWriter, r *http.Request) {
	year, ok := yearParam(r)
	if !ok {
		http.Error(w, "Malformed year", http.StatusBadRequest)
		return
	}
	rows, err := loadBracket(s.db, year)
	if err != nil {
		s.storeError(w, err, "Bracket")
		return
	}
	if len(rows) == 0 {
		http.Error(w, "Bracket not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// POSTBracket generates the season's bracket from the group standings.
// Repeating the call returns the bracket that already exists.
func (s *Server) POSTBracket(w http.ResponseWriter, r *http.Request) {
	year, ok := yearParam(r)
	if !ok {
		http.Error(w, "Malformed year", http.StatusBadRequest)
		return
	}
	rows, created, err := loadOrCreateBracket(r.Context(), s.db, year)
	if err != nil {
		s.storeError(w, err, "Bracket")
		return
	}
	if !created {
		writeJSON(w, http.StatusOK, rows)
		return
	}
	s.hub.Broadcast(BracketEvent{Type: "generated", Year: year, Matches: rows})
	s.log.WithFields(logrus.Fields{
		"year":    year,
		"bracket": rows[0].BracketID,
		"viewers": s.hub.Viewers(year),
	}).Info("Bracket generated")
	writeJSON(w, http.StatusCreated, rows)
}

func (s *Server) PUTBracketWinner(w http.ResponseWriter, r *http.Request) {
	var input struct {
		WinnerID uint `json:"winnerId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || input.WinnerID == 0 {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	s.setBracketWinner(w, r, &input.WinnerID)
}

func (s *Server) DELETEBracketWinner(w http.ResponseWriter, r *http.Request) {
	s.setBracketWinner(w, r, nil)
}

func (s *Server) setBracketWinner(w http.ResponseWriter, r *http.Request, winner *uint) {
	year, ok := yearParam(r)
	if !ok {
		http.Error(w, "Malformed year", http.StatusBadRequest)
		return
	}
	round, ok1 := intParam(r, "round")
	slot, ok2 := intParam(r, "slot")
	if !ok1 || !ok2 {
		http.Error(w, "Invalid bracket position", http.StatusBadRequest)
		return
	}

	rows, err := updateBracketWinner(s.db, year, round, slot, winner)
	if err != nil {
		s.storeError(w, err, "Bracket")
		return
	}

	evType := "winner"
	if winner == nil {
		evType = "cleared"
	}
	s.hub.Broadcast(BracketEvent{Type: evType, Year: year, Matches: rows})
	s.log.WithFields(logrus.Fields{
		"year":    year,
		"match":   matchplay.MatchRef{Round: round, Slot: slot}.String(),
		"event":   evType,
		"viewers": s.hub.Viewers(year),
	}).Info("Bracket updated")
	writeJSON(w, http.StatusOK, rows)
}

// GETBracketSocket upgrades to a websocket that receives the current
// bracket and every later change for the requested season.
func (s *Server) GETBracketSocket(w http.ResponseWriter, r *http.Request) {
	year, ok := yearParam(r)
	if !ok {
		http.Error(w, "Malformed year", http.StatusBadRequest)
		return
	}
	rows, err := loadBracket(s.db, year)
	if err != nil {
		s.storeError(w, err, "Bracket")
		return
	}
	initial, err := json.Marshal(BracketEvent{Type: "snapshot", Year: year, Matches: rows})
	if err != nil {
		http.Error(w, "Could not encode bracket", http.StatusInternalServerError)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Debug("Websocket upgrade failed")
		return
	}
	s.hub.serve(conn, year, initial)
}
