package brackets

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundRobinSixParticipants(t *testing.T) {
	gen, err := NewRoundRobinGenerator().GenerateBracket(context.Background(), GenerateBracketParams{
		Participants: seededField(6),
	})
	require.NoError(t, err)

	assert.Equal(t, 5, gen.Rounds)
	require.Len(t, gen.Matches, 15, "6*5/2 matches")

	appearances := make(map[int]int)
	pairs := make(map[string]bool)
	for _, m := range gen.Matches {
		require.NotNil(t, m.Participant1ID)
		require.NotNil(t, m.Participant2ID)
		appearances[*m.Participant1ID]++
		appearances[*m.Participant2ID]++

		a, b := *m.Participant1ID, *m.Participant2ID
		if a > b {
			a, b = b, a
		}
		key := fmt.Sprintf("%d-%d", a, b)
		assert.False(t, pairs[key], "pair %s scheduled twice", key)
		pairs[key] = true
	}
	require.Len(t, appearances, 6)
	for id, count := range appearances {
		assert.Equal(t, 5, count, "participant %d appearances", id)
	}
}

func TestRoundRobinOneMatchPerParticipantPerRound(t *testing.T) {
	gen, err := NewRoundRobinGenerator().GenerateBracket(context.Background(), GenerateBracketParams{
		Participants: seededField(8),
	})
	require.NoError(t, err)

	perRound := make(map[int]map[int]bool)
	for _, m := range gen.Matches {
		if perRound[m.Round] == nil {
			perRound[m.Round] = make(map[int]bool)
		}
		for _, pid := range []int{*m.Participant1ID, *m.Participant2ID} {
			assert.False(t, perRound[m.Round][pid], "participant %d plays twice in round %d", pid, m.Round)
			perRound[m.Round][pid] = true
		}
	}
}

func TestRoundRobinOddFieldRotatingBye(t *testing.T) {
	gen, err := NewRoundRobinGenerator().GenerateBracket(context.Background(), GenerateBracketParams{
		Participants: seededField(5),
	})
	require.NoError(t, err)

	assert.Equal(t, 5, gen.Rounds, "odd field plays n rounds, each sitting out once")
	assert.Len(t, gen.Matches, 10)

	appearances := make(map[int]int)
	for _, m := range gen.Matches {
		appearances[*m.Participant1ID]++
		appearances[*m.Participant2ID]++
	}
	for id, count := range appearances {
		assert.Equal(t, 4, count, "participant %d appearances", id)
	}
}
