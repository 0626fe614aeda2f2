package brackets

import (
	"context"
	"fmt"
	"math"

	"github.com/deltacrown/bracket-engine/models"
)

type SingleEliminationGenerator struct {
}

func NewSingleEliminationGenerator() BracketGenerator {
	return &SingleEliminationGenerator{}
}

func (g *SingleEliminationGenerator) GetName() string {
	return "SingleElimination"
}

func (g *SingleEliminationGenerator) GenerateBracket(ctx context.Context, params GenerateBracketParams) (*GeneratedBracket, error) {
	seeded := params.Participants
	n := len(seeded)
	if n < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrNotEnoughParticipants, n)
	}

	rounds := eliminationRounds(n)
	matches, _, err := buildWinnersSide(seeded, rounds)
	if err != nil {
		return nil, err
	}

	return &GeneratedBracket{
		Format:  models.FormatSingleElimination,
		Rounds:  rounds,
		Matches: matches,
	}, nil
}

func eliminationRounds(n int) int {
	return int(math.Ceil(math.Log2(float64(n))))
}

// eliminationNode is an entrant into a given round: either a participant that
// is already known (directly seeded or advanced through a bye) or the winner
// of an earlier match identified by its UID.
type eliminationNode struct {
	participantID *int
	sourceUID     *string
}

// buildWinnersSide generates a full single-elimination skeleton. The top
// 2^rounds-n seeds receive byes and advance to round 2 without playing; the
// remaining participants are paired sequentially from the seeded order. It
// returns the generated matches in round/order sequence together with the UID
// of the final match.
func buildWinnersSide(seeded []*models.Participant, rounds int) ([]*BracketMatch, string, error) {
	n := len(seeded)
	bracketSize := 1 << uint(rounds)
	byes := bracketSize - n

	byeSeeds := seeded[:byes]
	playSeeds := seeded[byes:]
	if len(playSeeds)%2 != 0 {
		// The bye calculation guarantees an even remainder; anything else is
		// a generator bug, not an input condition.
		return nil, "", fmt.Errorf("internal: odd remainder of %d participants after %d byes", len(playSeeds), byes)
	}

	matches := make([]*BracketMatch, 0, bracketSize-1)
	nodes := make([]eliminationNode, 0, bracketSize/2)

	order := 0
	for _, p := range byeSeeds {
		order++
		uid := fmt.Sprintf("R1M%d", order)
		matches = append(matches, &BracketMatch{
			UID:              uid,
			Round:            1,
			OrderInRound:     order,
			Participant1ID:   intPtr(p.ID),
			IsBye:            true,
			ByeParticipantID: intPtr(p.ID),
		})
		nodes = append(nodes, eliminationNode{participantID: intPtr(p.ID)})
	}
	for i := 0; i < len(playSeeds); i += 2 {
		order++
		uid := fmt.Sprintf("R1M%d", order)
		matches = append(matches, &BracketMatch{
			UID:            uid,
			Round:          1,
			OrderInRound:   order,
			Participant1ID: intPtr(playSeeds[i].ID),
			Participant2ID: intPtr(playSeeds[i+1].ID),
		})
		nodes = append(nodes, eliminationNode{sourceUID: strPtr(uid)})
	}

	finalUID := matches[len(matches)-1].UID

	for r := 2; r <= rounds; r++ {
		next := make([]eliminationNode, 0, len(nodes)/2)
		for i := 0; i < len(nodes); i += 2 {
			uid := fmt.Sprintf("R%dM%d", r, i/2+1)
			bm := &BracketMatch{
				UID:          uid,
				Round:        r,
				OrderInRound: i/2 + 1,
			}
			a, b := nodes[i], nodes[i+1]
			if a.participantID != nil {
				bm.Participant1ID = a.participantID
			} else {
				bm.SourceMatch1UID = a.sourceUID
				bm.IsPlaceholder = true
			}
			if b.participantID != nil {
				bm.Participant2ID = b.participantID
			} else {
				bm.SourceMatch2UID = b.sourceUID
				bm.IsPlaceholder = true
			}
			matches = append(matches, bm)
			next = append(next, eliminationNode{sourceUID: strPtr(uid)})
		}
		nodes = next
		finalUID = matches[len(matches)-1].UID
	}

	return matches, finalUID, nil
}
