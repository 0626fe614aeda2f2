package brackets

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoubleEliminationEightParticipants(t *testing.T) {
	gen, err := NewDoubleEliminationGenerator().GenerateBracket(context.Background(), GenerateBracketParams{
		Participants: seededField(8),
	})
	require.NoError(t, err)

	// 3 winners rounds plus the grand final.
	assert.Equal(t, 4, gen.Rounds)

	var winners, losers int
	for _, m := range gen.Matches {
		if m.UID == "GF" {
			continue
		}
		if m.LosersSide {
			losers++
		} else {
			winners++
		}
	}
	assert.Equal(t, 7, winners, "winners side identical to single elimination")
	assert.Equal(t, 6, losers, "losers skeleton must seat every winners-side loser but the finalist")

	// Losers rounds for a bracket of 8: 2, 2, 1, 1.
	for round, want := range map[int]int{1: 2, 2: 2, 3: 1, 4: 1} {
		assert.Len(t, matchesInRound(gen, round, true), want, "losers round %d", round)
	}

	// Grand final is fed by the winners final and the losers final.
	var grandFinal *BracketMatch
	for _, m := range gen.Matches {
		if m.UID == "GF" {
			grandFinal = m
		}
	}
	require.NotNil(t, grandFinal)
	require.NotNil(t, grandFinal.SourceMatch1UID)
	assert.Equal(t, "R3M1", *grandFinal.SourceMatch1UID)
	require.NotNil(t, grandFinal.SourceMatch2UID)
	assert.Equal(t, "LR4M1", *grandFinal.SourceMatch2UID)
}

func TestDoubleEliminationTwoParticipants(t *testing.T) {
	gen, err := NewDoubleEliminationGenerator().GenerateBracket(context.Background(), GenerateBracketParams{
		Participants: seededField(2),
	})
	require.NoError(t, err)

	// No room for a losers bracket below 3 participants: just the single
	// winners match and a grand final placeholder.
	require.Len(t, gen.Matches, 2)
	assert.False(t, gen.Matches[0].LosersSide)
	assert.Equal(t, "GF", gen.Matches[1].UID)
	assert.Nil(t, gen.Matches[1].SourceMatch2UID)
}

func TestDoubleEliminationLosersSkeletonIsUnwired(t *testing.T) {
	gen, err := NewDoubleEliminationGenerator().GenerateBracket(context.Background(), GenerateBracketParams{
		Participants: seededField(6),
	})
	require.NoError(t, err)

	for _, m := range gen.Matches {
		if !m.LosersSide {
			continue
		}
		assert.True(t, m.IsPlaceholder)
		assert.Nil(t, m.Participant1ID)
		assert.Nil(t, m.Participant2ID)
		assert.Nil(t, m.SourceMatch1UID, "loser feed order is assigned at advancement time, not generation time")
	}
}
