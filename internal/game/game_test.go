package game

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVerdict(t *testing.T) {
	tests := []struct {
		in   string
		want Verdict
	}{
		{"TRUE", VerdictTrue},
		{"false", VerdictFalse},
		{"  Mixed\n", VerdictMixed},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseVerdict(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseVerdict_Unknown(t *testing.T) {
	_, err := ParseVerdict("maybe")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownVerdict))
}

func TestValidConfidence(t *testing.T) {
	assert.False(t, ValidConfidence(0))
	assert.True(t, ValidConfidence(1))
	assert.True(t, ValidConfidence(3))
	assert.False(t, ValidConfidence(4))
}

func TestNewSession_IsZeroedSetup(t *testing.T) {
	s := NewSession()
	assert.Equal(t, PhaseSetup, s.Phase)
	assert.Zero(t, s.CurrentRound)
	assert.Nil(t, s.CurrentClaim)
	assert.Empty(t, s.Team.Results)
	assert.NoError(t, s.CheckInvariants())
}

func TestClone_IsDeep(t *testing.T) {
	s := Session{
		Phase:        PhasePlaying,
		CurrentRound: 2,
		TotalRounds:  2,
		Claims:       []Claim{{ID: "c1", Hints: []string{"h"}}, {ID: "c2"}},
		Team: Team{
			Score:   3,
			Results: []RoundResult{{ClaimID: "c1", Points: 3}},
			Players: []string{"ada"},
		},
	}
	s.CurrentClaim = s.ClaimAt(2)

	c := s.Clone()
	c.Claims[0].Hints[0] = "changed"
	c.Team.Results[0].Points = 99
	c.Team.Players[0] = "bob"
	c.CurrentClaim.ID = "other"

	assert.Equal(t, "h", s.Claims[0].Hints[0])
	assert.Equal(t, 3, s.Team.Results[0].Points)
	assert.Equal(t, "ada", s.Team.Players[0])
	assert.Equal(t, "c2", s.CurrentClaim.ID)
}

func TestClaimAt_OutOfRange(t *testing.T) {
	s := Session{Claims: []Claim{{ID: "c1"}}}
	assert.Nil(t, s.ClaimAt(0))
	assert.Nil(t, s.ClaimAt(2))
	require.NotNil(t, s.ClaimAt(1))
	assert.Equal(t, "c1", s.ClaimAt(1).ID)
}

func TestCheckInvariants(t *testing.T) {
	valid := Session{
		Phase:        PhasePlaying,
		CurrentRound: 2,
		TotalRounds:  3,
		Team: Team{
			Score:   1,
			Results: []RoundResult{{Points: 1}},
		},
	}
	require.NoError(t, valid.CheckInvariants())

	t.Run("result count mismatch", func(t *testing.T) {
		s := valid.Clone()
		s.CurrentRound = 3
		assert.Error(t, s.CheckInvariants())
	})

	t.Run("score mismatch", func(t *testing.T) {
		s := valid.Clone()
		s.Team.Score = 7
		assert.Error(t, s.CheckInvariants())
	})

	t.Run("round out of range", func(t *testing.T) {
		s := valid.Clone()
		s.CurrentRound = 4
		assert.Error(t, s.CheckInvariants())
	})

	t.Run("debrief has every result", func(t *testing.T) {
		s := valid.Clone()
		s.Phase = PhaseDebrief
		s.CurrentRound = 1
		assert.NoError(t, s.CheckInvariants())
	})

	t.Run("unknown phase", func(t *testing.T) {
		s := valid.Clone()
		s.Phase = "lobby"
		assert.Error(t, s.CheckInvariants())
	})
}

func TestCorrectCount(t *testing.T) {
	s := Session{Team: Team{Results: []RoundResult{{Correct: true}, {Correct: false}, {Correct: true}}}}
	assert.Equal(t, 2, s.CorrectCount())
}

func TestNormalizeName(t *testing.T) {
	// "e" + combining acute accent composes to U+00E9 under NFC.
	assert.Equal(t, "Caf\u00e9", NormalizeName("  Cafe\u0301 "))
}
