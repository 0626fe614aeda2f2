package brackets

import (
	"context"
	"errors"

	"github.com/deltacrown/bracket-engine/models"
)

var (
	ErrNotEnoughParticipants = errors.New("not enough participants to generate a bracket (minimum 2)")
	ErrDuplicateParticipant  = errors.New("duplicate participant identifier in input")
	ErrUnknownSeedMethod     = errors.New("unknown seeding method")
)

type GenerateBracketParams struct {
	Tournament   *models.Tournament
	Participants []*models.Participant // already seeded, in bracket placement order
}

// BracketMatch is the generator's in-memory description of one match slot in
// the topology. UIDs are stable within a single generated bracket and are the
// handles used to wire next-match linkage when the bracket is persisted.
type BracketMatch struct {
	UID          string
	Round        int
	OrderInRound int
	LosersSide   bool

	Participant1ID *int
	Participant2ID *int

	// Source UIDs identify which earlier matches feed this one. A match with
	// a source UID and no participant in that slot is a placeholder until the
	// source match completes.
	SourceMatch1UID *string
	SourceMatch2UID *string

	IsPlaceholder bool

	IsBye            bool
	ByeParticipantID *int
}

// GeneratedBracket is the full output of a generator: the round count the
// bracket advertises plus every match record of the initial generation.
// Formats that pair later rounds dynamically (Swiss) advertise more rounds
// than they generate matches for.
type GeneratedBracket struct {
	Format  models.BracketFormat
	Rounds  int
	Matches []*BracketMatch
}

type BracketGenerator interface {
	GenerateBracket(ctx context.Context, params GenerateBracketParams) (*GeneratedBracket, error)

	GetName() string
}

func intPtr(v int) *int { return &v }

func strPtr(s string) *string { return &s }
