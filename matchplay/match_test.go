// Copyright (c) 2024 The illium developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package matchplay

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fill(v int) Scorecard {
	var s Scorecard
	for i := range s {
		s[i] = v
	}
	return s
}

func TestEvaluateMatch_HoleAllocation(t *testing.T) {
	a := Player{ID: 1, Handicap: 18}
	b := Player{ID: 2, Handicap: 10}

	profile := DefaultHoleProfile()
	m := Match{Player1: a, Player2: b}
	// Hole 1 is the hardest: A's stroke halves it.
	m.Gross1[0], m.Gross2[0] = 5, 4
	// Hole 9 gets no stroke: B wins it.
	m.Gross1[8], m.Gross2[8] = 5, 4

	res := EvaluateMatch(m, &profile)
	require.Len(t, res.Holes, 2)
	assert.Equal(t, Halved, res.Holes[0].Winner)
	assert.Equal(t, 4, res.Net1[0])
	assert.Equal(t, Side2, res.Holes[1].Winner)
	assert.Equal(t, 5, res.Net1[8])
	assert.Equal(t, 0, res.Player1HolesWon)
	assert.Equal(t, 1, res.Player2HolesWon)
	assert.Equal(t, -1, res.NetHoles1)
	require.NotNil(t, res.Winner)
	assert.Equal(t, PlayerID(2), *res.Winner)
}

func TestEvaluateMatch_TenSixTwo(t *testing.T) {
	m := Match{
		Player1: Player{ID: 10, Handicap: 5},
		Player2: Player{ID: 20, Handicap: 5},
	}
	for i := 0; i < HolesPerRound; i++ {
		switch {
		case i < 10:
			m.Gross1[i], m.Gross2[i] = 3, 4
		case i < 16:
			m.Gross1[i], m.Gross2[i] = 5, 4
		default:
			m.Gross1[i], m.Gross2[i] = 4, 4
		}
	}

	res := EvaluateMatch(m, nil)
	assert.Equal(t, 10, res.Player1HolesWon)
	assert.Equal(t, 6, res.Player2HolesWon)
	assert.Equal(t, 6, res.Player1HolesLost())
	assert.Equal(t, 4, res.NetHoles1)
	assert.Equal(t, -4, res.NetHoles2)
	assert.Equal(t, HolesPerRound, res.HolesCompared)
	require.NotNil(t, res.Winner)
	assert.Equal(t, PlayerID(10), *res.Winner)
	assert.Equal(t, "10 & 8", res.Summary())
}

func TestEvaluateMatch_SkipsPartialHoles(t *testing.T) {
	m := Match{
		Player1: Player{ID: 1, Handicap: 0},
		Player2: Player{ID: 2, Handicap: 0},
	}
	m.Gross1[0] = 4
	m.Gross2[1] = 3
	m.Gross1[2], m.Gross2[2] = 5, 4

	res := EvaluateMatch(m, nil)
	assert.Equal(t, 1, res.HolesCompared)
	assert.Equal(t, 4, res.Net1[0])
	assert.Equal(t, 3, res.Net2[1])
	assert.Equal(t, 0, res.Player1HolesWon)
	assert.Equal(t, 1, res.Player2HolesWon)
	assert.Equal(t, "1 UP thru 1", res.Summary())
}

func TestEvaluateMatch_NoComparableHoles(t *testing.T) {
	m := Match{Player1: Player{ID: 1}, Player2: Player{ID: 2}}
	m.Gross1[3] = 4

	res := EvaluateMatch(m, nil)
	assert.True(t, res.Degenerate())
	assert.Nil(t, res.Winner)
	assert.Zero(t, res.Player1HolesWon)
	assert.Zero(t, res.Player2HolesWon)
	assert.Equal(t, "", res.Summary())
}

func TestEvaluateMatch_AllSquare(t *testing.T) {
	m := Match{
		Player1: Player{ID: 1, Handicap: 3},
		Player2: Player{ID: 2, Handicap: 3},
		Gross1:  fill(4),
		Gross2:  fill(4),
	}
	m.Gross1[0], m.Gross1[1] = 3, 5

	res := EvaluateMatch(m, nil)
	assert.False(t, res.Degenerate())
	assert.Nil(t, res.Winner)
	assert.Equal(t, 0, res.NetHoles1)
	assert.Equal(t, "A/S", res.Summary())
}

func TestEvaluateMatch_UpAfterEighteen(t *testing.T) {
	m := Match{
		Player1: Player{ID: 1},
		Player2: Player{ID: 2},
		Gross1:  fill(4),
		Gross2:  fill(4),
	}
	m.Gross2[16], m.Gross2[17] = 5, 5

	res := EvaluateMatch(m, nil)
	assert.Equal(t, "2 UP", res.Summary())
}

func TestEvaluateMatch_Symmetric(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	profile := DefaultHoleProfile()
	rng.Shuffle(len(profile.Index), func(i, j int) {
		profile.Index[i], profile.Index[j] = profile.Index[j], profile.Index[i]
	})

	for n := 0; n < 200; n++ {
		m := Match{
			Player1: Player{ID: 1, Handicap: float64(rng.Intn(300)-40) / 10},
			Player2: Player{ID: 2, Handicap: float64(rng.Intn(300)-40) / 10},
		}
		for i := 0; i < HolesPerRound; i++ {
			m.Gross1[i] = rng.Intn(8)
			m.Gross2[i] = rng.Intn(8)
		}

		res := EvaluateMatch(m, &profile)
		swapped := EvaluateMatch(m.Swap(), &profile)

		assert.Equal(t, res.Player1HolesWon, swapped.Player2HolesWon)
		assert.Equal(t, res.Player2HolesWon, swapped.Player1HolesWon)
		assert.Equal(t, res.NetHoles1, -swapped.NetHoles1)
		assert.Equal(t, res.Net1, swapped.Net2)
		assert.Equal(t, res.Winner, swapped.Winner)
	}
}

func TestDeriveStatus(t *testing.T) {
	var empty Scorecard
	assert.Equal(t, StatusPending, DeriveStatus(empty, empty))

	partial := empty
	partial[0] = 4
	assert.Equal(t, StatusInProgress, DeriveStatus(partial, empty))
	assert.Equal(t, StatusInProgress, DeriveStatus(fill(4), partial))
	assert.Equal(t, StatusCompleted, DeriveStatus(fill(4), fill(5)))
}
