package brackets

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/deltacrown/bracket-engine/models"
)

type SeedMethod string

const (
	SeedRandom         SeedMethod = "random"
	SeedByRating       SeedMethod = "rating"
	SeedByRegistration SeedMethod = "registration_order"
)

// Seed orders participants for bracket placement. The input is never mutated;
// the returned slice is a fresh permutation. rng is only consulted for
// SeedRandom and may be nil, in which case a time-seeded source is used.
// Callers that need reproducibility (tests) pass their own.
func Seed(participants []*models.Participant, method SeedMethod, rng *rand.Rand) ([]*models.Participant, error) {
	if len(participants) < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrNotEnoughParticipants, len(participants))
	}

	seen := make(map[int]struct{}, len(participants))
	for _, p := range participants {
		if _, ok := seen[p.ID]; ok {
			return nil, fmt.Errorf("%w: participant %d", ErrDuplicateParticipant, p.ID)
		}
		seen[p.ID] = struct{}{}
	}

	seeded := make([]*models.Participant, len(participants))
	copy(seeded, participants)

	switch method {
	case SeedRandom:
		if rng == nil {
			rng = rand.New(rand.NewSource(time.Now().UnixNano()))
		}
		rng.Shuffle(len(seeded), func(i, j int) {
			seeded[i], seeded[j] = seeded[j], seeded[i]
		})
	case SeedByRating:
		// Descending by rating; missing rating sorts last. SliceStable keeps
		// the original input order for ties, which makes the sort
		// deterministic and idempotent.
		sort.SliceStable(seeded, func(i, j int) bool {
			return ratingOf(seeded[i]) > ratingOf(seeded[j])
		})
	case SeedByRegistration:
		sort.SliceStable(seeded, func(i, j int) bool {
			return seeded[i].RegisteredAt.Before(seeded[j].RegisteredAt)
		})
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSeedMethod, method)
	}

	return seeded, nil
}

func ratingOf(p *models.Participant) int {
	if p.Rating == nil {
		return -1
	}
	return *p.Rating
}
