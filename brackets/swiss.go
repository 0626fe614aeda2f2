package brackets

import (
	"context"
	"fmt"
	"math"

	"github.com/deltacrown/bracket-engine/models"
)

type SwissGenerator struct {
}

func NewSwissGenerator() BracketGenerator {
	return &SwissGenerator{}
}

func (g *SwissGenerator) GetName() string {
	return "Swiss"
}

// GenerateBracket produces only the opening round of a Swiss tournament:
// seed i plays seed i+n/2, so the top half of the field meets the bottom
// half. The bracket advertises max(3, ceil(log2 n)) rounds; rounds beyond
// the first depend on live standings and are paired per-round by the
// scheduling collaborator, not generated up front.
func (g *SwissGenerator) GenerateBracket(ctx context.Context, params GenerateBracketParams) (*GeneratedBracket, error) {
	seeded := params.Participants
	n := len(seeded)
	if n < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrNotEnoughParticipants, n)
	}

	rounds := int(math.Ceil(math.Log2(float64(n))))
	if rounds < 3 {
		rounds = 3
	}

	half := n / 2
	matches := make([]*BracketMatch, 0, half+1)
	for i := 0; i < half; i++ {
		matches = append(matches, &BracketMatch{
			UID:            fmt.Sprintf("R1M%d", i+1),
			Round:          1,
			OrderInRound:   i + 1,
			Participant1ID: intPtr(seeded[i].ID),
			Participant2ID: intPtr(seeded[i+half].ID),
		})
	}
	if n%2 != 0 {
		// Odd field: the lowest seed sits out round one with a bye.
		last := seeded[n-1]
		matches = append(matches, &BracketMatch{
			UID:              fmt.Sprintf("R1M%d", half+1),
			Round:            1,
			OrderInRound:     half + 1,
			Participant1ID:   intPtr(last.ID),
			IsBye:            true,
			ByeParticipantID: intPtr(last.ID),
		})
	}

	return &GeneratedBracket{
		Format:  models.FormatSwiss,
		Rounds:  rounds,
		Matches: matches,
	}, nil
}
