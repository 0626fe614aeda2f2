package brackets

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSwissFirstRoundPairing(t *testing.T) {
	gen, err := NewSwissGenerator().GenerateBracket(context.Background(), GenerateBracketParams{
		Participants: seededField(8),
	})
	require.NoError(t, err)

	assert.Equal(t, 3, gen.Rounds)
	require.Len(t, gen.Matches, 4, "only round one is generated up front")

	// Top half against bottom half: seed i vs seed i+4.
	for i, m := range gen.Matches {
		assert.Equal(t, 1, m.Round)
		assert.Equal(t, i+1, *m.Participant1ID)
		assert.Equal(t, i+5, *m.Participant2ID)
	}
}

func TestSwissRoundCount(t *testing.T) {
	cases := map[int]int{
		2:  3, // floor of three rounds
		4:  3,
		8:  3,
		9:  4,
		16: 4,
		33: 6,
	}
	for n, want := range cases {
		gen, err := NewSwissGenerator().GenerateBracket(context.Background(), GenerateBracketParams{
			Participants: seededField(n),
		})
		require.NoError(t, err)
		assert.Equal(t, want, gen.Rounds, "n=%d", n)
	}
}

func TestSwissOddFieldLowestSeedByes(t *testing.T) {
	gen, err := NewSwissGenerator().GenerateBracket(context.Background(), GenerateBracketParams{
		Participants: seededField(5),
	})
	require.NoError(t, err)

	require.Len(t, gen.Matches, 3)
	bye := gen.Matches[2]
	assert.True(t, bye.IsBye)
	require.NotNil(t, bye.ByeParticipantID)
	assert.Equal(t, 5, *bye.ByeParticipantID)
	assert.Nil(t, bye.Participant2ID)
}
