// Copyright (c) 2024 The illium developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package matchplay

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHoleProfile_Validate(t *testing.T) {
	p := DefaultHoleProfile()
	assert.NoError(t, p.Validate())

	dup := p
	dup.Index[4] = 1
	assert.ErrorIs(t, dup.Validate(), ErrInvalidHoleProfile)

	outOfRange := p
	outOfRange.Index[17] = 19
	assert.ErrorIs(t, outOfRange.Validate(), ErrInvalidHoleProfile)

	var empty HoleProfile
	assert.ErrorIs(t, empty.Validate(), ErrInvalidHoleProfile)
}

func TestHoleProfile_IndexFor(t *testing.T) {
	var missing *HoleProfile
	assert.Equal(t, 7, missing.IndexFor(7))

	p := DefaultHoleProfile()
	p.Index[0], p.Index[1] = 2, 1
	assert.Equal(t, 2, p.IndexFor(1))
	assert.Equal(t, 1, p.IndexFor(2))
	assert.Equal(t, 0, p.IndexFor(0))
	assert.Equal(t, 19, p.IndexFor(19))

	broken := HoleProfile{}
	assert.Equal(t, 3, broken.IndexFor(3))
}

func TestScorecard(t *testing.T) {
	var s Scorecard
	s[0], s[5], s[17] = 4, 5, 3
	assert.Equal(t, 3, s.Entered())
	assert.Equal(t, 12, s.Total())
}
