// Copyright (c) 2024 The illium developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package matchplay

import "errors"

var (
	// ErrInvalidHoleProfile is returned when a course profile does not rank
	// exactly 18 holes with unique indexes in [1,18].
	ErrInvalidHoleProfile = errors.New("invalid hole profile")

	// ErrNotEnoughQualifiers is returned when the groups cannot supply the
	// eight players a bracket needs. Short fields are never padded.
	ErrNotEnoughQualifiers = errors.New("not enough qualified players for bracket")

	// ErrTooManyGroups is returned when there are more group champions than
	// bracket places.
	ErrTooManyGroups = errors.New("more group champions than bracket places")

	ErrInvalidBracketSize = errors.New("bracket requires exactly 8 players")
	ErrDuplicateQualifier = errors.New("player qualified more than once")
	ErrMatchNotFound      = errors.New("bracket match not found")
	ErrNotParticipant     = errors.New("winner is not a player in this match")
	ErrSlotNotReady       = errors.New("bracket match is missing a player")
)
