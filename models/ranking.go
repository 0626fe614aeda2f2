package models

import "time"

// Tier is a discrete ranking bucket derived from a continuous score.
type Tier string

const (
	TierBronze   Tier = "bronze"
	TierSilver   Tier = "silver"
	TierGold     Tier = "gold"
	TierPlatinum Tier = "platinum"
	TierDiamond  Tier = "diamond"
)

// TierForScore maps a continuous score onto a tier bucket. Thresholds are a
// platform policy, kept in one place so all jobs bucket identically.
func TierForScore(score float64) Tier {
	switch {
	case score >= 2200:
		return TierDiamond
	case score >= 1800:
		return TierPlatinum
	case score >= 1400:
		return TierGold
	case score >= 1000:
		return TierSilver
	default:
		return TierBronze
	}
}

type Team struct {
	ID             int     `json:"id"`
	Name           string  `json:"name"`
	GameID         *int    `json:"game_id,omitempty"`
	Region         *string `json:"region,omitempty"`
	OrganizationID *int    `json:"organization_id,omitempty"`
}

type Organization struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// TeamRanking is the current competitive standing of a team. It is created
// lazily on first recalculation and mutated in place by each batch run;
// historical snapshots are not kept here.
type TeamRanking struct {
	ID     int     `json:"id"`
	TeamID int     `json:"team_id"`
	GameID *int    `json:"game_id,omitempty"`
	Region *string `json:"region,omitempty"`

	Score         float64 `json:"score"`
	Tier          Tier    `json:"tier"`
	MatchesPlayed int     `json:"matches_played"`
	Wins          int     `json:"wins"`
	Draws         int     `json:"draws"`
	Losses        int     `json:"losses"`

	LastActivityAt *time.Time `json:"last_activity_at,omitempty"`
	RecalculatedAt *time.Time `json:"recalculated_at,omitempty"`
	DecayAppliedAt *time.Time `json:"decay_applied_at,omitempty"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// OrganizationRanking aggregates the standings of an organization's
// constituent teams. Recomputed after every team recalculation cycle.
type OrganizationRanking struct {
	ID             int       `json:"id"`
	OrganizationID int       `json:"organization_id"`
	Score          float64   `json:"score"`
	Tier           Tier      `json:"tier"`
	TeamsCounted   int       `json:"teams_counted"`
	UpdatedAt      time.Time `json:"updated_at"`
}
