package brackets

import (
	"context"
	"fmt"

	"github.com/deltacrown/bracket-engine/models"
)

type DoubleEliminationGenerator struct {
}

func NewDoubleEliminationGenerator() BracketGenerator {
	return &DoubleEliminationGenerator{}
}

func (g *DoubleEliminationGenerator) GetName() string {
	return "DoubleElimination"
}

// GenerateBracket builds the winners bracket exactly as single elimination,
// plus a losers-bracket skeleton sized to accept the loser of every winners
// match: for a winners bracket of size 2^R the losers side has 2*(R-1)
// rounds with 2^(R-2), 2^(R-2), 2^(R-3), 2^(R-3), ..., 1, 1 matches. Which
// loser drops into which losers match is pairing policy the advancement
// collaborator owns, so losers matches are generated as unwired placeholders;
// only the losers final feeding the grand final is unambiguous and linked.
func (g *DoubleEliminationGenerator) GenerateBracket(ctx context.Context, params GenerateBracketParams) (*GeneratedBracket, error) {
	seeded := params.Participants
	n := len(seeded)
	if n < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrNotEnoughParticipants, n)
	}

	rounds := eliminationRounds(n)
	matches, winnersFinalUID, err := buildWinnersSide(seeded, rounds)
	if err != nil {
		return nil, err
	}

	var losersFinalUID string
	if rounds >= 2 {
		losersRound := 0
		for size := (1 << uint(rounds)) / 4; size >= 1; size /= 2 {
			// Each size occurs twice: a drop-in round receiving losers from
			// the winners side, then an internal round among losers survivors.
			for k := 0; k < 2; k++ {
				losersRound++
				for m := 1; m <= size; m++ {
					uid := fmt.Sprintf("LR%dM%d", losersRound, m)
					matches = append(matches, &BracketMatch{
						UID:           uid,
						Round:         losersRound,
						OrderInRound:  m,
						LosersSide:    true,
						IsPlaceholder: true,
					})
					losersFinalUID = uid
				}
			}
		}
	}

	grandFinal := &BracketMatch{
		UID:             "GF",
		Round:           rounds + 1,
		OrderInRound:    1,
		SourceMatch1UID: strPtr(winnersFinalUID),
		IsPlaceholder:   true,
	}
	if losersFinalUID != "" {
		grandFinal.SourceMatch2UID = strPtr(losersFinalUID)
	}
	matches = append(matches, grandFinal)

	return &GeneratedBracket{
		Format:  models.FormatDoubleElimination,
		Rounds:  rounds + 1,
		Matches: matches,
	}, nil
}
