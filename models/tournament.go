package models

import "time"

type TournamentStatus string

const (
	TournamentStatusSoon         TournamentStatus = "soon"
	TournamentStatusRegistration TournamentStatus = "registration"
	TournamentStatusActive       TournamentStatus = "active"
	TournamentStatusCompleted    TournamentStatus = "completed"
	TournamentStatusCanceled     TournamentStatus = "canceled"
)

type Tournament struct {
	ID        int              `json:"id"`
	Name      string           `json:"name"`
	GameID    *int             `json:"game_id,omitempty"`
	Format    BracketFormat    `json:"format"`
	Status    TournamentStatus `json:"status"`
	StartDate time.Time        `json:"start_date"`
	CreatedAt time.Time        `json:"created_at"`
}
