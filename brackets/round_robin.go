package brackets

import (
	"context"
	"fmt"

	"github.com/deltacrown/bracket-engine/models"
)

type RoundRobinGenerator struct {
}

func NewRoundRobinGenerator() BracketGenerator {
	return &RoundRobinGenerator{}
}

func (g *RoundRobinGenerator) GetName() string {
	return "RoundRobin"
}

// GenerateBracket schedules a single round-robin with the circle method:
// one participant stays fixed while the rest rotate one position per round.
// Every pair meets exactly once, giving n*(n-1)/2 matches over n-1 rounds
// (n rounds with a rotating bye when n is odd).
func (g *RoundRobinGenerator) GenerateBracket(ctx context.Context, params GenerateBracketParams) (*GeneratedBracket, error) {
	n := len(params.Participants)
	if n < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrNotEnoughParticipants, n)
	}

	ring := make([]*models.Participant, n, n+1)
	copy(ring, params.Participants)
	if n%2 != 0 {
		// nil is the rotating bye slot; whoever faces it sits the round out.
		ring = append(ring, nil)
	}

	m := len(ring)
	rounds := m - 1
	matches := make([]*BracketMatch, 0, n*(n-1)/2)

	for r := 1; r <= rounds; r++ {
		order := 0
		for i := 0; i < m/2; i++ {
			a, b := ring[i], ring[m-1-i]
			if a == nil || b == nil {
				continue
			}
			order++
			matches = append(matches, &BracketMatch{
				UID:            fmt.Sprintf("R%dM%d", r, order),
				Round:          r,
				OrderInRound:   order,
				Participant1ID: intPtr(a.ID),
				Participant2ID: intPtr(b.ID),
			})
		}

		last := ring[m-1]
		copy(ring[2:], ring[1:m-1])
		ring[1] = last
	}

	return &GeneratedBracket{
		Format:  models.FormatRoundRobin,
		Rounds:  rounds,
		Matches: matches,
	}, nil
}
