// Copyright (c) 2024 The illium developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package matchplay

import "fmt"

// HolesPerRound is the number of holes in a match.
const HolesPerRound = 18

// Scorecard holds one player's gross or net strokes per hole. A zero entry
// means the hole has not been scored yet.
type Scorecard [HolesPerRound]int

// Entered returns the number of holes with a score.
func (s Scorecard) Entered() int {
	n := 0
	for _, v := range s {
		if v > 0 {
			n++
		}
	}
	return n
}

// Total sums the entered strokes.
func (s Scorecard) Total() int {
	total := 0
	for _, v := range s {
		if v > 0 {
			total += v
		}
	}
	return total
}

// HoleProfile ranks a course's holes by difficulty. Index[i] is the
// handicap index of hole i+1 where 1 is the hardest hole. Par is carried
// for display and never used in net scoring.
type HoleProfile struct {
	Par   [HolesPerRound]int `json:"par"`
	Index [HolesPerRound]int `json:"index"`
}

// DefaultHoleProfile is used when a course has no handicap ranking on file:
// hole n is given index n.
func DefaultHoleProfile() HoleProfile {
	var p HoleProfile
	for i := 0; i < HolesPerRound; i++ {
		p.Par[i] = 4
		p.Index[i] = i + 1
	}
	return p
}

// Validate checks that Index is a permutation of 1..18. Par values, when
// present, must be positive.
func (p HoleProfile) Validate() error {
	var seen [HolesPerRound + 1]bool
	for i, idx := range p.Index {
		if idx < 1 || idx > HolesPerRound {
			return fmt.Errorf("%w: hole %d has index %d", ErrInvalidHoleProfile, i+1, idx)
		}
		if seen[idx] {
			return fmt.Errorf("%w: index %d used twice (hole %d)", ErrInvalidHoleProfile, idx, i+1)
		}
		seen[idx] = true
	}
	for i, par := range p.Par {
		if par < 0 {
			return fmt.Errorf("%w: hole %d has par %d", ErrInvalidHoleProfile, i+1, par)
		}
	}
	return nil
}

// IndexFor returns the difficulty index of a 1-based hole number. A nil or
// malformed profile, or a hole outside 1..18, yields the identity ordering.
func (p *HoleProfile) IndexFor(hole int) int {
	if hole < 1 || hole > HolesPerRound || p == nil || p.Validate() != nil {
		return hole
	}
	return p.Index[hole-1]
}

// resolve returns a usable copy of the profile, substituting the default
// when it is missing or malformed.
func (p *HoleProfile) resolve() HoleProfile {
	if p == nil || p.Validate() != nil {
		return DefaultHoleProfile()
	}
	return *p
}
