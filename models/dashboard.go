package models

type DashboardStats struct {
	TournamentsTotal    int `json:"tournaments_total"`
	ActiveTournaments   int `json:"active_tournaments"`
	BracketsTotal       int `json:"brackets_total"`
	FinalizedBrackets   int `json:"finalized_brackets"`
	MatchesTotal        int `json:"matches_total"`
	CompletedMatches    int `json:"completed_matches"`
	RankedTeams         int `json:"ranked_teams"`
	RankedOrganizations int `json:"ranked_organizations"`
}
