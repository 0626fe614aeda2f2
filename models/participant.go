package models

import "time"

// ParticipantKind discriminates the two entrant types a tournament accepts.
// Every consumer switches on this exhaustively; an unknown kind is a data error.
type ParticipantKind string

const (
	ParticipantKindUser ParticipantKind = "user"
	ParticipantKindTeam ParticipantKind = "team"
)

type ParticipantStatus string

const (
	ParticipantStatusApplied   ParticipantStatus = "applied"
	ParticipantStatusConfirmed ParticipantStatus = "confirmed"
	ParticipantStatusRejected  ParticipantStatus = "rejected"
)

// Participant is an entrant in a single tournament. RefID points at the
// underlying user or team depending on Kind. Once seeding has started the
// record is treated as immutable.
type Participant struct {
	ID           int               `json:"id"`
	TournamentID int               `json:"tournament_id"`
	Kind         ParticipantKind   `json:"kind"`
	RefID        int               `json:"ref_id"`
	DisplayName  string            `json:"display_name"`
	Seed         *int              `json:"seed,omitempty"`
	Rating       *int              `json:"rating,omitempty"`
	Status       ParticipantStatus `json:"status"`
	RegisteredAt time.Time         `json:"registered_at"`
}
