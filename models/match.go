package models

import "time"

type MatchStatus string

const (
	MatchStatusPending   MatchStatus = "pending"
	MatchStatusScheduled MatchStatus = "scheduled"
	MatchStatusCompleted MatchStatus = "completed"
	MatchStatusCanceled  MatchStatus = "canceled"
)

// Match is one contest inside a bracket. Slot A/B are nullable: a nil slot is
// either a bye (IsBye) or a participant not yet determined by earlier rounds.
// A completed match has exactly one winner drawn from its slots, except bye
// records which are completed with the bye participant as winner and no
// actual contest.
type Match struct {
	ID           int  `json:"id"`
	BracketID    int  `json:"bracket_id"`
	TournamentID int  `json:"tournament_id"`
	Round        int  `json:"round"`
	OrderInRound int  `json:"order_in_round"`
	LosersSide   bool `json:"losers_side,omitempty"`

	SlotAParticipantID *int `json:"slot_a_participant_id,omitempty"`
	SlotBParticipantID *int `json:"slot_b_participant_id,omitempty"`

	Score               *string     `json:"score,omitempty"`
	Status              MatchStatus `json:"status"`
	WinnerParticipantID *int        `json:"winner_participant_id,omitempty"`
	IsBye               bool        `json:"is_bye,omitempty"`

	// BracketMatchUID is the generator-assigned identity of this match within
	// the bracket topology; NextMatchID/WinnerToSlot encode where the winner
	// advances to.
	BracketMatchUID string `json:"bracket_match_uid"`
	NextMatchID     *int   `json:"next_match_id,omitempty"`
	WinnerToSlot    *int   `json:"winner_to_slot,omitempty"`

	MatchTime time.Time `json:"match_time"`
	CreatedAt time.Time `json:"created_at"`
}

// MatchOutcome is the read model the ranking jobs consume: one row per team
// per completed match, produced by the match-reporting side of the platform.
type MatchOutcome struct {
	MatchID      int       `json:"match_id"`
	TeamID       int       `json:"team_id"`
	OpponentID   *int      `json:"opponent_id,omitempty"`
	Won          bool      `json:"won"`
	Draw         bool      `json:"draw"`
	ScoreFor     int       `json:"score_for"`
	ScoreAgainst int       `json:"score_against"`
	CompletedAt  time.Time `json:"completed_at"`
}
