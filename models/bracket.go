package models

import "time"

type BracketFormat string

const (
	FormatSingleElimination BracketFormat = "single_elimination"
	FormatDoubleElimination BracketFormat = "double_elimination"
	FormatRoundRobin        BracketFormat = "round_robin"
	FormatSwiss             BracketFormat = "swiss"
)

// Bracket is the structural container for a tournament's matches. Once
// Finalized the round/match skeleton is immutable; only participant slots and
// results of already generated matches change as the tournament advances.
type Bracket struct {
	ID           int           `json:"id"`
	TournamentID int           `json:"tournament_id"`
	Format       BracketFormat `json:"format"`
	Rounds       int           `json:"rounds"`
	Finalized    bool          `json:"finalized"`
	CreatedAt    time.Time     `json:"created_at"`

	// Populated by the service layer, not stored on the bracket row itself.
	Matches []*Match `json:"matches,omitempty"`
}
